package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr string
	ServerPort int

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Migrations
	MigrationsEnabled bool
	MigrationsDir     string

	// Sessions
	SessionTTL   time.Duration
	CookieSecure bool

	// One-time codes
	OTPCodeTTL time.Duration

	// Staff two-step verification (optional)
	TOTPIssuer        string
	TOTPEncryptionKey string // 64-char hex (32 bytes)

	// Invoice share links
	ShareLinkSecret string
	ShareLinkTTL    time.Duration

	// Rate limiting
	RateLimit RateLimitConfig

	// Redis (optional shared rate-limit store)
	RedisURL string

	// SMTP (optional)
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string

	// WhatsApp Business Cloud API
	WhatsAppBaseURL          string
	WhatsAppPhoneNumberID    string
	WhatsAppAccessToken      string
	WhatsAppReminderTemplate string

	// Offline bill queue
	OfflineQueuePath  string
	OfflineDrainEvery string

	// Expired-state cleanup
	CleanupSchedule string

	// Request handling
	MaxRequestBodySize int64

	// Security headers
	SecurityHeaders SecurityHeadersConfig
}

// RateLimitConfig holds throttle settings for sensitive operations
// and the coarse per-IP middleware.
type RateLimitConfig struct {
	Enabled bool

	// Identity-keyed sliding-window limiters
	LoginMaxRequests     int
	LoginWindow          time.Duration
	OTPSendMaxRequests   int
	OTPSendWindow        time.Duration
	OTPVerifyMaxRequests int
	OTPVerifyWindow      time.Duration

	// Per-IP middleware on auth routes
	IPRequestsPerMinute int

	// Background sweep for abandoned limiter keys
	SweepInterval time.Duration
}

// SecurityHeadersConfig holds security header settings.
type SecurityHeadersConfig struct {
	Enabled            bool
	CSP                string
	HSTSMaxAge         int
	FrameOptions       string
	ContentTypeOptions string
	ReferrerPolicy     string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		ServerAddr: getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort: getEnvInt("SERVER_PORT", 8080),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "clinic"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		MigrationsEnabled: getEnvBool("MIGRATIONS_ENABLED", true),
		MigrationsDir:     getEnv("MIGRATIONS_DIR", "migrations"),

		SessionTTL:   getEnvDuration("SESSION_TTL", 12*time.Hour),
		CookieSecure: getEnvBool("COOKIE_SECURE", false),

		OTPCodeTTL: getEnvDuration("OTP_CODE_TTL", 5*time.Minute),

		TOTPIssuer:        getEnv("TOTP_ISSUER", "Medira Clinic"),
		TOTPEncryptionKey: getEnv("TOTP_ENCRYPTION_KEY", ""),

		ShareLinkSecret: getEnv("SHARE_LINK_SECRET", ""),
		ShareLinkTTL:    getEnvDuration("SHARE_LINK_TTL", 24*time.Hour),

		RateLimit: RateLimitConfig{
			Enabled:              getEnvBool("RATE_LIMIT_ENABLED", true),
			LoginMaxRequests:     getEnvInt("RATE_LIMIT_LOGIN_MAX", 5),
			LoginWindow:          getEnvDuration("RATE_LIMIT_LOGIN_WINDOW", 15*time.Minute),
			OTPSendMaxRequests:   getEnvInt("RATE_LIMIT_OTP_SEND_MAX", 3),
			OTPSendWindow:        getEnvDuration("RATE_LIMIT_OTP_SEND_WINDOW", 15*time.Minute),
			OTPVerifyMaxRequests: getEnvInt("RATE_LIMIT_OTP_VERIFY_MAX", 5),
			OTPVerifyWindow:      getEnvDuration("RATE_LIMIT_OTP_VERIFY_WINDOW", 15*time.Minute),
			IPRequestsPerMinute:  getEnvInt("RATE_LIMIT_IP_PER_MINUTE", 60),
			SweepInterval:        getEnvDuration("RATE_LIMIT_SWEEP_INTERVAL", 5*time.Minute),
		},

		RedisURL: getEnv("REDIS_URL", ""),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
		SMTPFromName: getEnv("SMTP_FROM_NAME", ""),

		WhatsAppBaseURL:          getEnv("WHATSAPP_BASE_URL", "https://graph.facebook.com/v19.0"),
		WhatsAppPhoneNumberID:    getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
		WhatsAppAccessToken:      getEnv("WHATSAPP_ACCESS_TOKEN", ""),
		WhatsAppReminderTemplate: getEnv("WHATSAPP_REMINDER_TEMPLATE", ""),

		OfflineQueuePath:  getEnv("OFFLINE_QUEUE_PATH", "data/offline-bills.db"),
		OfflineDrainEvery: getEnv("OFFLINE_DRAIN_SCHEDULE", "@every 30s"),

		CleanupSchedule: getEnv("CLEANUP_SCHEDULE", "@every 10m"),

		MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 1<<20)),

		SecurityHeaders: SecurityHeadersConfig{
			Enabled:            getEnvBool("SECURITY_HEADERS_ENABLED", true),
			CSP:                getEnv("SECURITY_CSP", "default-src 'none'; frame-ancestors 'none'"),
			HSTSMaxAge:         getEnvInt("SECURITY_HSTS_MAX_AGE", 0),
			FrameOptions:       getEnv("SECURITY_FRAME_OPTIONS", "DENY"),
			ContentTypeOptions: getEnv("SECURITY_CONTENT_TYPE_OPTIONS", "nosniff"),
			ReferrerPolicy:     getEnv("SECURITY_REFERRER_POLICY", "strict-origin-when-cross-origin"),
		},
	}

	if cfg.ShareLinkSecret == "" {
		return nil, fmt.Errorf("SHARE_LINK_SECRET is required")
	}

	return cfg, nil
}

// HasSMTP returns true if email sending is configured.
func (c *Config) HasSMTP() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

// HasWhatsApp returns true if WhatsApp messaging is configured.
func (c *Config) HasWhatsApp() bool {
	return c.WhatsAppPhoneNumberID != "" && c.WhatsAppAccessToken != ""
}

// HasTOTP returns true if staff two-step verification is configured.
func (c *Config) HasTOTP() bool {
	return c.TOTPEncryptionKey != ""
}

// HasRedis returns true if a shared rate-limit store is configured.
func (c *Config) HasRedis() bool {
	return c.RedisURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
