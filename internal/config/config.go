package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port              string
	Env               string
	JWTSecret         string
	JWTTTL            time.Duration
	CORSAllowedHosts  []string
	TrustProxyHeaders bool

	RateLimit RateLimitConfig
	Security  SecurityConfig
	Cognito   CognitoConfig
	Email     EmailConfig
	Recaptcha RecaptchaConfig
	Redis     RedisConfig
	DB        DatabaseConfig
}

// RateLimitConfig tunes the per-endpoint limiters and the global throttle.
type RateLimitConfig struct {
	Backend         string // memory or redis
	ContactMax      int
	ContactWindow   time.Duration
	AuthMax         int
	AuthWindow      time.Duration
	CleanupInterval time.Duration
	APIPerSecond    float64
	APIBurst        int
}

// SecurityConfig tunes the security event log and its background jobs.
type SecurityConfig struct {
	Capacity            int
	SuspiciousThreshold int
	SuspiciousWindow    time.Duration
	Retention           time.Duration
	RetentionCron       string
	ArchiveEnabled      bool
	ArchiveInterval     time.Duration
}

// CognitoConfig contains the user pool used for sign-in and administration.
type CognitoConfig struct {
	Region       string
	UserPoolID   string
	ClientID     string
	ClientSecret string
	AdminGroup   string
}

// EmailConfig selects and configures the outgoing mail provider.
type EmailConfig struct {
	Provider     string // resend, ses or smtp
	From         string
	FromName     string
	To           string
	ResendAPIKey string
	SESRegion    string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
}

// RecaptchaConfig contains reCAPTCHA v3 keys. An empty site key disables
// the captcha requirement on the contact form.
type RecaptchaConfig struct {
	SecretKey string
	SiteKey   string
	MinScore  float64
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	URL      string // redis:// or rediss:// URL; overrides the fields below
	Host     string
	Port     string
	Password string
	DB       int
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Load .env if present; ignore error if file is missing so that production
	// environments relying solely on real environment variables keep working.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.CORSAllowedHosts = getEnvList("CORS_ALLOWED_HOSTS", "localhost")
	cfg.TrustProxyHeaders = getEnvBool("TRUST_PROXY_HEADERS", true)

	// Cognito
	cfg.Cognito = CognitoConfig{
		Region:       getEnv("COGNITO_REGION", "us-east-1"),
		UserPoolID:   getEnv("COGNITO_USER_POOL_ID", ""),
		ClientID:     getEnv("COGNITO_CLIENT_ID", ""),
		ClientSecret: getEnv("COGNITO_CLIENT_SECRET", ""),
		AdminGroup:   getEnv("ADMIN_GROUP", "admin"),
	}

	// Email
	cfg.Email = EmailConfig{
		Provider:     strings.ToLower(getEnv("EMAIL_PROVIDER", "resend")),
		From:         getEnv("EMAIL_FROM", ""),
		FromName:     getEnv("EMAIL_FROM_NAME", "Website"),
		To:           getEnv("EMAIL_TO", ""),
		ResendAPIKey: getEnv("RESEND_API_KEY", ""),
		SESRegion:    getEnv("SES_REGION", getEnv("COGNITO_REGION", "us-east-1")),
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
	}

	// reCAPTCHA
	cfg.Recaptcha = RecaptchaConfig{
		SecretKey: getEnv("RECAPTCHA_SECRET_KEY", ""),
		SiteKey:   getEnv("RECAPTCHA_SITE_KEY", ""),
		MinScore:  getEnvFloat("RECAPTCHA_MIN_SCORE", 0.5),
	}

	// Redis
	cfg.Redis = RedisConfig{
		URL:      getEnv("REDIS_URL", ""),
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	// Database (only used by the security event archive)
	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Rate limiting
	cfg.RateLimit = RateLimitConfig{
		Backend:      strings.ToLower(getEnv("RATE_LIMIT_BACKEND", "memory")),
		ContactMax:   getEnvInt("CONTACT_RATE_LIMIT_MAX", 3),
		AuthMax:      getEnvInt("AUTH_RATE_LIMIT_MAX", 5),
		APIPerSecond: getEnvFloat("API_RATE_PER_SECOND", 10),
		APIBurst:     getEnvInt("API_RATE_BURST", 30),
	}

	// Security log
	cfg.Security = SecurityConfig{
		Capacity:            getEnvInt("SECURITY_LOG_CAPACITY", 1000),
		SuspiciousThreshold: getEnvInt("SECURITY_SUSPICIOUS_THRESHOLD", 10),
		RetentionCron:       getEnv("SECURITY_RETENTION_CRON", "@daily"),
		ArchiveEnabled:      getEnvBool("SECURITY_ARCHIVE_ENABLED", false),
	}

	// Durations
	var err error
	if cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", "8h"); err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	if cfg.RateLimit.ContactWindow, err = parseDurationEnv("CONTACT_RATE_LIMIT_WINDOW", "15m"); err != nil {
		return nil, fmt.Errorf("invalid CONTACT_RATE_LIMIT_WINDOW: %w", err)
	}
	if cfg.RateLimit.AuthWindow, err = parseDurationEnv("AUTH_RATE_LIMIT_WINDOW", "15m"); err != nil {
		return nil, fmt.Errorf("invalid AUTH_RATE_LIMIT_WINDOW: %w", err)
	}
	if cfg.RateLimit.CleanupInterval, err = parseDurationEnv("RATE_LIMIT_CLEANUP_INTERVAL", "1m"); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_CLEANUP_INTERVAL: %w", err)
	}
	if cfg.Security.SuspiciousWindow, err = parseDurationEnv("SECURITY_SUSPICIOUS_WINDOW", "5m"); err != nil {
		return nil, fmt.Errorf("invalid SECURITY_SUSPICIOUS_WINDOW: %w", err)
	}
	if cfg.Security.Retention, err = parseDurationEnv("SECURITY_RETENTION", "168h"); err != nil {
		return nil, fmt.Errorf("invalid SECURITY_RETENTION: %w", err)
	}
	if cfg.Security.ArchiveInterval, err = parseDurationEnv("SECURITY_ARCHIVE_INTERVAL", "30s"); err != nil {
		return nil, fmt.Errorf("invalid SECURITY_ARCHIVE_INTERVAL: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set for authentication")
	}
	if c.RateLimit.Backend != "memory" && c.RateLimit.Backend != "redis" {
		return fmt.Errorf("RATE_LIMIT_BACKEND must be memory or redis, got %q", c.RateLimit.Backend)
	}
	if c.RateLimit.ContactMax <= 0 || c.RateLimit.AuthMax <= 0 {
		return errors.New("CONTACT_RATE_LIMIT_MAX and AUTH_RATE_LIMIT_MAX must be positive")
	}
	if c.RateLimit.ContactWindow == 0 || c.RateLimit.AuthWindow == 0 {
		return errors.New("rate limit windows must be longer than zero")
	}
	switch c.Email.Provider {
	case "resend", "ses", "smtp":
	default:
		return fmt.Errorf("EMAIL_PROVIDER must be resend, ses or smtp, got %q", c.Email.Provider)
	}
	if c.Security.ArchiveEnabled && (c.DB.Host == "" || c.DB.User == "" || c.DB.Name == "") {
		return errors.New("database configuration incomplete: SECURITY_ARCHIVE_ENABLED requires DB_HOST, DB_USER, and DB_NAME")
	}
	return nil
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key, def string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, def), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}
