package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	App      AppConfig
	Firebase FirebaseConfig
	Store    StoreConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Payments PaymentsConfig
	Audit    AuditConfig
}

// ServerConfig holds HTTP settings. SignupRPS and SignupBurst limit signup and
// password-reset requests per process.
type ServerConfig struct {
	Port           string
	AllowedOrigins []string
	SignupRPS      float64
	SignupBurst    int
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
}

// FirebaseConfig holds identity provider settings.
// APIKey is the web API key used for password sign-in through Identity Toolkit.
type FirebaseConfig struct {
	CredentialsPath string
	ProjectID       string
	APIKey          string
	IdentityURL     string
}

type StoreConfig struct {
	// Backend is "firestore", "postgres" or "memory" (development only).
	Backend string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	ProfileTTL time.Duration
}

type PaymentsConfig struct {
	APIBaseURL string
	Timeout    time.Duration
	SiteURL    string
	ThemeColor string
	WidgetAddr string
	CheckoutJS string
	WidgetWait time.Duration
}

type AuditConfig struct {
	// Schedule is a six-field cron expression; empty disables the orphan audit.
	Schedule string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			SignupRPS:      getEnvAsFloat("SIGNUP_RPS", 1),
			SignupBurst:    getEnvAsInt("SIGNUP_BURST", 5),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
		Firebase: loadFirebase(),
		Store: StoreConfig{
			Backend: getEnv("USER_STORE", "firestore"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "lms"),
		},
		Redis: RedisConfig{
			Addr:       getEnv("REDIS_ADDR", ""),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getEnvAsInt("REDIS_DB", 0),
			ProfileTTL: getEnvAsDuration("PROFILE_CACHE_TTL", 5*time.Minute),
		},
		Payments: loadPayments(),
		Audit: AuditConfig{
			Schedule: getEnv("ORPHAN_AUDIT_SCHEDULE", "0 0 3 * * *"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ClientConfig is what lmsctl needs: no store, no server.
type ClientConfig struct {
	APIURL   string
	Firebase FirebaseConfig
	Payments PaymentsConfig
}

func LoadClient() *ClientConfig {
	_ = godotenv.Load()

	return &ClientConfig{
		APIURL:   getEnv("LMS_API_URL", "http://localhost:8080"),
		Firebase: loadFirebase(),
		Payments: loadPayments(),
	}
}

func loadFirebase() FirebaseConfig {
	return FirebaseConfig{
		CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		APIKey:          getEnv("FIREBASE_API_KEY", ""),
		IdentityURL:     getEnv("FIREBASE_IDENTITY_URL", "https://identitytoolkit.googleapis.com/v1"),
	}
}

func loadPayments() PaymentsConfig {
	return PaymentsConfig{
		APIBaseURL: getEnv("PAYMENTS_API_URL", "http://localhost:3000"),
		Timeout:    getEnvAsDuration("PAYMENTS_TIMEOUT", 30*time.Second),
		SiteURL:    getEnv("SITE_URL", "http://localhost:3000"),
		ThemeColor: getEnv("CHECKOUT_THEME_COLOR", "#3399cc"),
		WidgetAddr: getEnv("CHECKOUT_WIDGET_ADDR", "127.0.0.1:8765"),
		CheckoutJS: getEnv("CHECKOUT_SCRIPT_URL", "https://checkout.razorpay.com/v1/checkout.js"),
		WidgetWait: getEnvAsDuration("CHECKOUT_WIDGET_WAIT", 15*time.Minute),
	}
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.Store.Backend {
	case "firestore":
		if c.Firebase.ProjectID == "" && c.Firebase.CredentialsPath == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID or FIREBASE_CREDENTIALS_PATH is required for the firestore user store")
		}
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
	case "memory":
		if c.App.Environment == "production" {
			return fmt.Errorf("USER_STORE=memory is not allowed in production")
		}
	default:
		return fmt.Errorf("USER_STORE must be firestore, postgres or memory, got %q", c.Store.Backend)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid number for %s, using default: %v", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
