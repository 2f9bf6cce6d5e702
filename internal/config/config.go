package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application settings.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Mail     MailConfig
	Payment  PaymentConfig
	OTP      OTPConfig
	Voting   VotingConfig
	Session  SessionConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds unified Redis connection settings.
// Supported modes: single, sentinel, cluster.
type RedisConfig struct {
	// Mode: "single", "sentinel" or "cluster". Defaults to "single".
	Mode string `mapstructure:"mode"`

	// Addrs: list of host:port addresses, used for all modes.
	Addrs []string `mapstructure:"addrs"`

	// Addr: single-address alternative for "single" mode.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: master server name (sentinel mode only).
	MasterName string `mapstructure:"master_name"`

	MaxRetries      int `mapstructure:"max_retries"`
	MinRetryBackoff int `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"`
}

// MailConfig holds transactional mail settings. The fallback key/sender are
// optional; when set they form the secondary transport in the delivery chain.
type MailConfig struct {
	ResendAPIKey         string `mapstructure:"resend_api_key"`
	From                 string `mapstructure:"from"`
	FallbackResendAPIKey string `mapstructure:"fallback_resend_api_key"`
	FallbackFrom         string `mapstructure:"fallback_from"`
}

// PaymentConfig holds payment gateway settings.
type PaymentConfig struct {
	PaystackSecretKey string `mapstructure:"paystack_secret_key"`
	PaystackBaseURL   string `mapstructure:"paystack_base_url"`
	CallbackURL       string `mapstructure:"callback_url"`
}

// OTPConfig holds one-time password settings for admin login.
type OTPConfig struct {
	TTLMinutes  int    `mapstructure:"ttl_minutes"`  // default 5
	MaxAttempts int    `mapstructure:"max_attempts"` // default 3
	CodeLength  int    `mapstructure:"code_length"`  // default 8
	Pepper      string `mapstructure:"pepper"`
}

// VotingConfig holds vote pricing settings.
type VotingConfig struct {
	// UnitPrice is the charge per vote in minor currency units.
	UnitPrice int64 `mapstructure:"unit_price"`
}

// SessionConfig holds admin session settings.
type SessionConfig struct {
	TTLHours     int    `mapstructure:"ttl_hours"` // default 12
	CookieDomain string `mapstructure:"cookie_domain"`
	CSRFKey      string `mapstructure:"csrf_key"`
}

// PostgresConnectionString builds the PostgreSQL DSN.
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// OTPTTL returns the OTP lifetime as a duration.
func (o *OTPConfig) OTPTTL() time.Duration {
	return time.Duration(o.TTLMinutes) * time.Minute
}

// SessionTTL returns the session lifetime as a duration.
func (s *SessionConfig) SessionTTL() time.Duration {
	return time.Duration(s.TTLHours) * time.Hour
}

// Load reads configuration from the given file, with environment variables
// taking precedence through explicit bindings.
func Load(configPath string) (*Config, error) {
	vip := viper.New() // a fresh instance avoids global viper state

	// Defaults
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.readtimeout", 15)
	vip.SetDefault("server.writetimeout", 15)
	vip.SetDefault("otp.ttl_minutes", 5)
	vip.SetDefault("otp.max_attempts", 3)
	vip.SetDefault("otp.code_length", 8)
	vip.SetDefault("session.ttl_hours", 12)
	vip.SetDefault("payment.paystack_base_url", "https://api.paystack.co")

	// Explicit environment bindings
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	vip.BindEnv("mail.resend_api_key", "RESEND_API_KEY")
	vip.BindEnv("mail.from", "MAIL_FROM")
	vip.BindEnv("mail.fallback_resend_api_key", "RESEND_FALLBACK_API_KEY")
	vip.BindEnv("mail.fallback_from", "MAIL_FALLBACK_FROM")

	vip.BindEnv("payment.paystack_secret_key", "PAYSTACK_SECRET_KEY")
	vip.BindEnv("payment.paystack_base_url", "PAYSTACK_BASE_URL")
	vip.BindEnv("payment.callback_url", "PAYMENT_CALLBACK_URL")

	vip.BindEnv("otp.ttl_minutes", "OTP_TTL_MINUTES")
	vip.BindEnv("otp.max_attempts", "OTP_MAX_ATTEMPTS")
	vip.BindEnv("otp.code_length", "OTP_CODE_LENGTH")
	vip.BindEnv("otp.pepper", "OTP_PEPPER")

	vip.BindEnv("voting.unit_price", "VOTE_UNIT_PRICE")

	vip.BindEnv("session.ttl_hours", "SESSION_TTL_HOURS")
	vip.BindEnv("session.cookie_domain", "SESSION_COOKIE_DOMAIN")
	vip.BindEnv("session.csrf_key", "SESSION_CSRF_KEY")

	vip.BindEnv("server.port", "SERVER_PORT")

	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				log.Printf("Config file '%s' not found, relying on environment variables/defaults.", configPath)
			} else {
				log.Printf("Warning: could not read config file '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Loaded configuration ---")
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("Redis Addr: %s (mode: %s)", cfg.Redis.Addr, cfg.Redis.Mode)
		log.Printf("Mail From: %s (fallback configured: %t)", cfg.Mail.From, cfg.Mail.FallbackResendAPIKey != "")
		log.Printf("Paystack Base URL: %s", cfg.Payment.PaystackBaseURL)
		log.Printf("OTP TTL: %dm, Max Attempts: %d", cfg.OTP.TTLMinutes, cfg.OTP.MaxAttempts)
		log.Printf("Vote Unit Price (minor units): %d", cfg.Voting.UnitPrice)
		log.Printf("----------------------------")
	}

	// Required settings
	if cfg.Database.Host == "" || cfg.Database.DBName == "" || cfg.Database.User == "" {
		return nil, fmt.Errorf("database configuration (host, dbname, user) is incomplete (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if cfg.Payment.PaystackSecretKey == "" {
		return nil, fmt.Errorf("payment gateway secret key is required (check PAYSTACK_SECRET_KEY env var)")
	}
	if cfg.Voting.UnitPrice <= 0 {
		return nil, fmt.Errorf("vote unit price must be positive (check VOTE_UNIT_PRICE env var)")
	}
	if cfg.Session.CSRFKey == "" {
		return nil, fmt.Errorf("CSRF signing key is required (check SESSION_CSRF_KEY env var)")
	}
	if os.Getenv("GIN_MODE") == "release" {
		if cfg.Database.Password == "" {
			return nil, fmt.Errorf("database password is required in production mode (check DATABASE_PASSWORD env var)")
		}
		if cfg.Mail.ResendAPIKey == "" {
			return nil, fmt.Errorf("resend api key is required in production mode (check RESEND_API_KEY env var)")
		}
	}

	return &cfg, nil
}
