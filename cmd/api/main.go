package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/yourusername/election-api/internal/config"
	"github.com/yourusername/election-api/internal/handler"
	"github.com/yourusername/election-api/internal/middleware"
	pgRepo "github.com/yourusername/election-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/election-api/internal/repository/redis"
	"github.com/yourusername/election-api/internal/service"
	"github.com/yourusername/election-api/pkg/database"
	"github.com/yourusername/election-api/pkg/session"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Loading configuration from %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Repositories
	adminRepo := pgRepo.NewAdminRepo(db)
	otpRepo := pgRepo.NewOTPRepo(db)
	categoryRepo := pgRepo.NewCategoryRepo(db)
	positionRepo := pgRepo.NewPositionRepo(db)
	candidateRepo := pgRepo.NewCandidateRepo(db)
	voteRepo := pgRepo.NewVoteRepo(db)
	paymentRepo := pgRepo.NewPaymentRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	isProduction := gin.Mode() == gin.ReleaseMode

	// Sessions
	sessionStore, err := session.NewRedisStore(redisClient)
	if err != nil {
		log.Printf("Failed to initialize session store: %v", err)
		os.Exit(1)
	}
	sessionManager, err := session.NewManager(sessionStore, cfg.Session.SessionTTL(), cfg.Session.CSRFKey, cfg.Session.CookieDomain)
	if err != nil {
		log.Printf("Failed to initialize session manager: %v", err)
		os.Exit(1)
	}
	sessionManager.SetProductionMode(isProduction)

	// Mail delivery chain: primary Resend transport, optional fallback key,
	// noop when nothing is configured (dev).
	var mailer service.Mailer
	transports := make([]service.Mailer, 0, 2)
	if cfg.Mail.ResendAPIKey != "" {
		primary, err := service.NewResendMailer(cfg.Mail.ResendAPIKey, cfg.Mail.From)
		if err != nil {
			log.Printf("Failed to initialize mailer: %v", err)
			os.Exit(1)
		}
		transports = append(transports, primary)
	}
	if cfg.Mail.FallbackResendAPIKey != "" {
		fallback, err := service.NewResendMailer(cfg.Mail.FallbackResendAPIKey, cfg.Mail.FallbackFrom)
		if err != nil {
			log.Printf("Failed to initialize fallback mailer: %v", err)
			os.Exit(1)
		}
		transports = append(transports, fallback)
	}
	switch len(transports) {
	case 0:
		log.Println("No mail transport configured; OTP codes will not be delivered")
		mailer = &service.NoopMailer{}
	default:
		mailer, err = service.NewFallbackMailer(transports...)
		if err != nil {
			log.Printf("Failed to initialize mail chain: %v", err)
			os.Exit(1)
		}
	}

	// Payment gateway
	gateway, err := service.NewPaystackGateway(cfg.Payment.PaystackSecretKey, cfg.Payment.PaystackBaseURL)
	if err != nil {
		log.Printf("Failed to initialize payment gateway: %v", err)
		os.Exit(1)
	}

	// Services
	otpService, err := service.NewOTPService(
		otpRepo, mailer, db,
		cfg.OTP.OTPTTL(), cfg.OTP.MaxAttempts, cfg.OTP.CodeLength, cfg.OTP.Pepper,
		isProduction,
	)
	if err != nil {
		log.Printf("Failed to initialize OTPService: %v", err)
		os.Exit(1)
	}

	authService, err := service.NewAuthService(adminRepo, otpService, sessionManager)
	if err != nil {
		log.Printf("Failed to initialize AuthService: %v", err)
		os.Exit(1)
	}

	voteService, err := service.NewVoteService(
		voteRepo, paymentRepo, candidateRepo, positionRepo, cacheRepo, gateway, db,
		cfg.Voting.UnitPrice, cfg.Payment.CallbackURL,
	)
	if err != nil {
		log.Printf("Failed to initialize VoteService: %v", err)
		os.Exit(1)
	}

	electionService, err := service.NewElectionService(categoryRepo, positionRepo, candidateRepo, voteRepo, cacheRepo)
	if err != nil {
		log.Printf("Failed to initialize ElectionService: %v", err)
		os.Exit(1)
	}

	// Handlers and middleware
	authHandler := handler.NewAuthHandler(authService)
	voteHandler := handler.NewVoteHandler(voteService, electionService)
	electionHandler := handler.NewElectionHandler(electionService)

	authMiddleware := middleware.NewAuthMiddleware(sessionManager)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	router := gin.Default()

	if isProduction {
		// Behind a load balancer, replace nil with its address list.
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-CSRF-Token"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := router.Group("/api")
	{
		// Public catalog and results
		api.GET("/categories", voteHandler.ListCategories)
		api.GET("/categories/:id",
			middleware.ExtractUintParam("id", "categoryID"),
			voteHandler.GetCategory)
		api.GET("/positions/:id/candidates",
			middleware.ExtractUintParam("id", "positionID"),
			voteHandler.ListCandidates)
		api.GET("/results", voteHandler.GetResults)

		// Public vote lifecycle
		vote := api.Group("/vote")
		vote.Use(rateLimiter.Limit(middleware.PaymentRateLimitConfig()))
		{
			vote.POST("/initialize", voteHandler.InitializeVote)
			vote.POST("/verify", voteHandler.VerifyVote)
			vote.GET("/verify", voteHandler.VerifyVote) // gateway redirect target
			vote.GET("/status/:reference", voteHandler.GetVoteStatus)
		}

		// Admin auth
		adminGroup := api.Group("/admin")
		{
			adminGroup.POST("/login",
				rateLimiter.Limit(middleware.StrictAuthRateLimitConfig()),
				authHandler.Login)
			adminGroup.POST("/logout", authHandler.Logout)

			authed := adminGroup.Group("/")
			authed.Use(authMiddleware.RequireAuth())
			{
				authed.GET("/me", authHandler.Me)
				authed.GET("/dashboard", electionHandler.GetDashboard)
				authed.GET("/results/export", electionHandler.ExportResults)
				authed.GET("/positions", electionHandler.ListPositions)
				authed.GET("/positions/:id/results",
					middleware.ExtractUintParam("id", "positionID"),
					electionHandler.GetPositionResults)

				// State-changing admin routes need the CSRF pair too
				protected := authed.Group("/")
				protected.Use(authMiddleware.RequireCSRF())
				{
					protected.POST("/categories", electionHandler.CreateCategory)
					protected.PUT("/categories/:id",
						middleware.ExtractUintParam("id", "categoryID"),
						electionHandler.UpdateCategory)
					protected.DELETE("/categories/:id",
						middleware.ExtractUintParam("id", "categoryID"),
						authMiddleware.SuperAdminOnly(),
						electionHandler.DeleteCategory)

					protected.POST("/positions", electionHandler.CreatePosition)
					protected.PUT("/positions/:id",
						middleware.ExtractUintParam("id", "positionID"),
						electionHandler.UpdatePosition)
					protected.DELETE("/positions/:id",
						middleware.ExtractUintParam("id", "positionID"),
						authMiddleware.SuperAdminOnly(),
						electionHandler.DeletePosition)

					protected.POST("/candidates", electionHandler.CreateCandidate)
					protected.PUT("/candidates/:id",
						middleware.ExtractUintParam("id", "candidateID"),
						electionHandler.UpdateCandidate)
					protected.DELETE("/candidates/:id",
						middleware.ExtractUintParam("id", "candidateID"),
						authMiddleware.SuperAdminOnly(),
						electionHandler.DeleteCandidate)
				}
			}
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}

	log.Println("Server exited properly")
}
