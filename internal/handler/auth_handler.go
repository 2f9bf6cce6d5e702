package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/election-api/internal/domain/entity"
	"github.com/yourusername/election-api/internal/middleware"
	apperrors "github.com/yourusername/election-api/internal/pkg/errors"
	"github.com/yourusername/election-api/internal/service"
)

// AuthHandler serves the admin authentication endpoints.
type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// LoginRequest drives both phases of the login. Without OTPCode the handler
// issues a code; with OTPCode it completes the login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	OTPCode  string `json:"otp_code" binding:"omitempty"`
}

// OTPChallengeResponse tells the client a code was sent. OTPDebug is only
// populated outside production when delivery failed.
type OTPChallengeResponse struct {
	OTPRequired bool      `json:"otp_required"`
	Email       string    `json:"email"`
	ExpiresAt   time.Time `json:"expires_at"`
	OTPDebug    string    `json:"otp_debug,omitempty"`
}

// LoginResponse is the completed login payload. The session itself travels in
// an HttpOnly cookie; only the CSRF token is exposed in the body.
type LoginResponse struct {
	Admin     *entity.Admin `json:"admin"`
	CSRFToken string        `json:"csrf_token"`
}

// Login handles both phases of the two-step login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	if req.OTPCode == "" {
		h.startLogin(c, req)
		return
	}
	h.completeLogin(c, req)
}

func (h *AuthHandler) startLogin(c *gin.Context, req LoginRequest) {
	result, err := h.authService.StartLogin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.handleAuthError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, OTPChallengeResponse{
		OTPRequired: true,
		Email:       result.Email,
		ExpiresAt:   result.ExpiresAt,
		OTPDebug:    result.DebugCode,
	})
}

func (h *AuthHandler) completeLogin(c *gin.Context, req LoginRequest) {
	outcome, verifyResult, err := h.authService.CompleteLogin(c.Request.Context(), req.Email, req.Password, req.OTPCode)
	if err != nil {
		h.handleAuthError(c, err, verifyResult)
		return
	}

	for _, cookie := range outcome.Cookies {
		cookie.Apply(c.Writer)
	}

	log.Printf("[AuthHandler] Admin ID=%d completed login", outcome.Admin.ID)
	c.JSON(http.StatusOK, LoginResponse{
		Admin:     outcome.Admin,
		CSRFToken: outcome.CSRFToken,
	})
}

// Logout terminates the session and clears both cookies. It is idempotent:
// a missing or already-dead session still yields 200 with cleared cookies.
func (h *AuthHandler) Logout(c *gin.Context) {
	cookies := h.authService.TerminateSession(c.Request.Context(), c.Request)
	for _, cookie := range cookies {
		cookie.Apply(c.Writer)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns the authenticated admin's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	adminID := c.MustGet(middleware.ContextAdminID).(uint)

	admin, err := h.authService.GetAdminByID(adminID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Admin not found", "error_type": "session_invalid"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load admin", "error_type": "internal_server_error"})
		return
	}

	c.JSON(http.StatusOK, admin)
}

func (h *AuthHandler) handleAuthError(c *gin.Context, err error, verifyResult *service.VerifyResult) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password", "error_type": "invalid_credentials"})
	case errors.Is(err, service.ErrOTPRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":      "Too many incorrect codes. Request a new code.",
			"error_type": "rate_limited",
		})
	case errors.Is(err, service.ErrOTPInvalidOrExpired):
		body := gin.H{"error": "Invalid or expired code", "error_type": "otp_invalid"}
		if verifyResult != nil {
			body["remaining_attempts"] = verifyResult.AttemptsLeft
		}
		c.JSON(http.StatusUnauthorized, body)
	case errors.Is(err, service.ErrDelivery):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Could not deliver the code. Try again.", "error_type": "delivery_failed"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
	default:
		log.Printf("[AuthHandler] unexpected error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "error_type": "internal_server_error"})
	}
}
