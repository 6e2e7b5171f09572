package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	GinMode  string
	LogLevel string
	// Origins allowed to call the API from a browser
	AllowedOrigins []string
	// Proxies whose X-Forwarded-For is honoured; empty means the socket address
	TrustedProxies []string
	// SMTP Configuration
	SMTPHost      string
	SMTPPort      string
	SMTPUsername  string
	SMTPPassword  string
	SMTPFromEmail string // Verified sender address; defaults to SMTPUsername
	SMTPFromName  string
	SMTPTimeout   time.Duration
	// Contact notification routing
	ContactEmailTo        string
	ContactEmailBcc       []string
	ContactSiteName       string
	ContactTimezone       string
	ContactZoneLabel      string
	ContactDeliveryPolicy string
	// reCAPTCHA Enterprise
	RecaptchaSiteKey   string
	RecaptchaProjectID string
	RecaptchaAPIKey    string
	RecaptchaBaseURL   string
	RecaptchaThreshold float64
	RecaptchaFailOpen  bool
	RecaptchaTimeout   time.Duration
	// Redis Configuration (optional, used by the contact rate limit)
	RedisURL      string
	RedisPassword string
	// Rate Limiting Configuration
	RateLimitContactLimit  int
	RateLimitWindowSeconds int
	// DKIM signing (optional)
	DKIMDomain     string
	DKIMSelector   string
	DKIMPrivateKey string
	DKIMKeyPath    string
}

func LoadConfig() (*Config, error) {
	// Load .env file when present (local development)
	_ = godotenv.Load()

	frontend := strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/")

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "INFO"),
		AllowedOrigins: append([]string{frontend}, getEnvList("CORS_ALLOWED_ORIGINS")...),
		TrustedProxies: getEnvList("TRUSTED_PROXIES"),
		// SMTP Configuration
		SMTPHost:      getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:      getEnv("SMTP_PORT", "587"),
		SMTPUsername:  getEnv("SMTP_USERNAME", getEnv("SMTP_USER", "")),
		SMTPPassword:  getEnv("SMTP_PASSWORD", getEnv("SMTP_PASS", "")),
		SMTPFromEmail: getEnv("SMTP_FROM_EMAIL", ""),
		SMTPFromName:  getEnv("SMTP_FROM_NAME", "Website Contact Form"),
		SMTPTimeout:   time.Duration(getEnvInt("SMTP_TIMEOUT_SECONDS", 10)) * time.Second,
		// Contact routing
		ContactEmailTo:        getEnv("CONTACT_EMAIL_TO", ""),
		ContactEmailBcc:       getEnvList("CONTACT_EMAIL_BCC"),
		ContactSiteName:       getEnv("CONTACT_SITE_NAME", "Website Contact Form"),
		ContactTimezone:       getEnv("CONTACT_TIMEZONE", "Asia/Dubai"),
		ContactZoneLabel:      getEnv("CONTACT_ZONE_LABEL", "UAE Time"),
		ContactDeliveryPolicy: getEnv("CONTACT_DELIVERY_POLICY", "best_effort"),
		// reCAPTCHA Enterprise
		RecaptchaSiteKey:   getEnv("RECAPTCHA_SITE_KEY", ""),
		RecaptchaProjectID: getEnv("RECAPTCHA_PROJECT_ID", ""),
		RecaptchaAPIKey:    getEnv("RECAPTCHA_API_KEY", ""),
		RecaptchaBaseURL:   strings.TrimRight(getEnv("RECAPTCHA_BASE_URL", ""), "/"),
		RecaptchaThreshold: getEnvFloat("RECAPTCHA_THRESHOLD", 0.3),
		RecaptchaFailOpen:  getEnvBool("RECAPTCHA_FAIL_OPEN", true),
		RecaptchaTimeout:   time.Duration(getEnvInt("RECAPTCHA_TIMEOUT_SECONDS", 8)) * time.Second,
		// Redis
		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		// Rate Limiting Configuration (with sensible defaults)
		RateLimitContactLimit:  getEnvInt("RATE_LIMIT_CONTACT_LIMIT", 5),
		RateLimitWindowSeconds: getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 600),
		// DKIM
		DKIMDomain:     getEnv("DKIM_DOMAIN", ""),
		DKIMSelector:   getEnv("DKIM_SELECTOR", ""),
		DKIMPrivateKey: getEnv("DKIM_PRIVATE_KEY", ""),
		DKIMKeyPath:    getEnv("DKIM_KEY_PATH", ""),
	}

	if cfg.SMTPUsername == "" || cfg.SMTPPassword == "" || cfg.ContactEmailTo == "" {
		log.Println("WARNING: SMTP credentials or CONTACT_EMAIL_TO missing. Contact notifications will not be sent.")
	}
	if cfg.RecaptchaAPIKey == "" {
		log.Println("WARNING: RECAPTCHA_API_KEY not configured. Risk checks fall back to RECAPTCHA_FAIL_OPEN.")
	}
	if cfg.RedisURL == "" {
		log.Println("WARNING: REDIS_URL not configured. Rate limiting will use in-memory fallback.")
	}

	return cfg, nil
}

// RateLimitWindow returns the contact rate-limit window.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt returns an integer environment variable or fallback if not set/invalid
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool returns a boolean environment variable or fallback if not set/invalid
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvList splits a comma separated variable, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
