// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Auth        AuthConfig
	AWS         AWSConfig
	Payment     PaymentConfig
	Trust       TrustConfig
	I18n        I18nConfig
	Frontend    FrontendConfig
}

type FrontendConfig struct {
	BaseURL string
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
	CORSOrigins  []string
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

// AuthConfig describes how tokens issued by the external identity provider
// are verified.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	AdminRole string
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	EvidenceBucket  string
	PresignTTL      int // in minutes
}

type PaymentConfig struct {
	StripeSecretKey      string
	StripeWebhookSecret  string
	VerificationPriceID  string
	CertificationPriceID string
	OnboardingPriceID    string
	CheckoutSuccessPath  string
	CheckoutCancelPath   string
}

type TrustConfig struct {
	SMEThreshold    int
	MinReasonLength int
	MaxEvidenceURLs int
}

type I18nConfig struct {
	DefaultLocale string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
			CORSOrigins:  getEnvAsList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "trust_engine"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "warn"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("IDP_JWT_SECRET", "your-secret-key-change-in-production"),
			Issuer:    getEnv("IDP_ISSUER", ""),
			AdminRole: getEnv("IDP_ADMIN_ROLE", "admin"),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			EvidenceBucket:  getEnv("AWS_EVIDENCE_BUCKET", "trust-engine-evidence"),
			PresignTTL:      getEnvAsInt("AWS_PRESIGN_TTL_MINUTES", 15),
		},
		Payment: PaymentConfig{
			StripeSecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
			StripeWebhookSecret:  getEnv("STRIPE_WEBHOOK_SECRET", ""),
			VerificationPriceID:  getEnv("STRIPE_VERIFICATION_PRICE_ID", ""),
			CertificationPriceID: getEnv("STRIPE_CERTIFICATION_PRICE_ID", ""),
			OnboardingPriceID:    getEnv("STRIPE_ONBOARDING_PRICE_ID", ""),
			CheckoutSuccessPath:  getEnv("CHECKOUT_SUCCESS_PATH", "/brand/checkout/success"),
			CheckoutCancelPath:   getEnv("CHECKOUT_CANCEL_PATH", "/brand/checkout/cancel"),
		},
		Trust: TrustConfig{
			SMEThreshold:    getEnvAsInt("SME_THRESHOLD", 100),
			MinReasonLength: getEnvAsInt("MIN_REASON_LENGTH", 10),
			MaxEvidenceURLs: getEnvAsInt("MAX_EVIDENCE_URLS", 10),
		},
		I18n: I18nConfig{
			DefaultLocale: getEnv("DEFAULT_LOCALE", "en"),
		},
		Frontend: FrontendConfig{
			BaseURL: getEnv("FRONTEND_BASE_URL", "http://localhost:3000"),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.Environment != "production" {
		return nil
	}

	if c.Auth.JWTSecret == "your-secret-key-change-in-production" {
		return fmt.Errorf("identity provider JWT secret must be changed in production")
	}

	if c.Database.Password == "" {
		return fmt.Errorf("database password is required in production")
	}

	if c.Payment.StripeSecretKey == "" || c.Payment.StripeWebhookSecret == "" {
		return fmt.Errorf("stripe secret and webhook secret are required in production")
	}

	if c.Trust.SMEThreshold != 100 {
		return fmt.Errorf("SME threshold cannot be overridden in production")
	}

	return nil
}

// CheckoutURLs returns the absolute success and cancel redirect URLs.
func (p PaymentConfig) CheckoutURLs(frontendBase string) (string, string) {
	base := strings.TrimRight(frontendBase, "/")
	return base + p.CheckoutSuccessPath, base + p.CheckoutCancelPath
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
