package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverMemory   = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode  string // Set via flag, not env
	AppEnv   string
	LogLevel string

	// Storage backend
	StoreDriver string

	// PostgreSQL
	PostgresDSN       string
	DbMaxOpenConns    int
	DbMaxIdleConns    int
	DbConnMaxLifetime time.Duration

	// MongoDB
	MongoURI    string
	MongoDbName string

	// Redis
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JwtSecret       string
	JwtTTL          time.Duration
	CaptchaTokenTTL time.Duration

	// Server
	ApiPort        string
	ServiceApiPort string

	// Cloudflare
	CloudflareTurnstileSecretKey string
	CloudflareSiteVerifyURL      string

	// Email
	SmtpHost        string
	SmtpPort        int
	SmtpUsername    string
	SmtpPassword    string
	SmtpFromAddress string
	MockServices    bool
	LogEmailsPath   string

	// AWS S3
	AwsAccessKeyID     string
	AwsSecretAccessKey string
	AwsRegion          string
	AwsS3Bucket        string
	ImageBaseS3URL     string
	ImageMaxDimension  int
	ImageMaxSizeMB     int
	ImageUploadURLTTL  time.Duration

	// App Defaults
	AppName                  string
	BcryptCost               int
	SupplierCacheTTL         time.Duration
	InquiryAllowReRespond    bool
	InquiryResponseMinLength int

	// Rate Limiting Defaults
	RateLimitSoftBucketSize int
	RateLimitSoftRefillRate int // tokens per second
	RateLimitHardBucketSize int
	RateLimitHardRefillRate int // tokens per second
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	godotenv.Load()

	cfg := &Config{
		RunMode: runMode, // Set from flag
	}

	var err error

	// Helper function to get env var or default
	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	// Helper function to get required env var
	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	getInt := func(key, defaultValue string) (int, error) {
		v, err := strconv.Atoi(getEnv(key, defaultValue))
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return v, nil
	}

	getBool := func(key, defaultValue string) (bool, error) {
		v, err := strconv.ParseBool(getEnv(key, defaultValue))
		if err != nil {
			return false, fmt.Errorf("invalid %s: %w", key, err)
		}
		return v, nil
	}

	getSeconds := func(key, defaultValue string) (time.Duration, error) {
		v, err := strconv.ParseInt(getEnv(key, defaultValue), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return time.Duration(v) * time.Second, nil
	}

	cfg.AppEnv = getEnv("APP_ENV", "development")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	cfg.StoreDriver = getEnv("STORE_DRIVER", StoreDriverPostgres)
	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		cfg.PostgresDSN, err = getRequiredEnv("POSTGRES_DSN")
		if err != nil {
			return nil, err
		}
	case StoreDriverMongo:
		cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
		if err != nil {
			return nil, err
		}
	case StoreDriverMemory:
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER: %q", cfg.StoreDriver)
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "marketlink")

	if cfg.DbMaxOpenConns, err = getInt("DB_MAX_OPEN_CONNS", "10"); err != nil {
		return nil, err
	}
	if cfg.DbMaxIdleConns, err = getInt("DB_MAX_IDLE_CONNS", "5"); err != nil {
		return nil, err
	}
	lifetimeMinutes, err := getInt("DB_CONN_MAX_LIFETIME_MINUTES", "30")
	if err != nil {
		return nil, err
	}
	cfg.DbConnMaxLifetime = time.Duration(lifetimeMinutes) * time.Minute

	if cfg.RedisEnabled, err = getBool("REDIS_ENABLED", "true"); err != nil {
		return nil, err
	}
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	if cfg.RedisDB, err = getInt("REDIS_DB", "0"); err != nil {
		return nil, err
	}

	cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	if cfg.JwtTTL, err = getSeconds("JWT_TTL_SECONDS", "3600"); err != nil {
		return nil, err
	}
	if cfg.CaptchaTokenTTL, err = getSeconds("CAPTCHA_TOKEN_TTL", "1200"); err != nil {
		return nil, err
	}

	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	cfg.CloudflareTurnstileSecretKey = getEnv("CLOUDFLARE_TURNSTILE_SECRET_KEY", "")
	cfg.CloudflareSiteVerifyURL = getEnv("CLOUDFLARE_SITEVERIFY_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify")

	cfg.SmtpHost = getEnv("SMTP_HOST", "")
	cfg.SmtpUsername = getEnv("SMTP_USERNAME", "")
	cfg.SmtpPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SmtpFromAddress = getEnv("SMTP_FROM_ADDRESS", "noreply@marketlink.example.com")
	if cfg.SmtpPort, err = getInt("SMTP_PORT", "587"); err != nil {
		return nil, err
	}
	cfg.MockServices = getEnv("MOCK_SERVICES", "") == "true"
	cfg.LogEmailsPath = getEnv("LOG_EMAILS", "")

	cfg.AwsAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AwsSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")
	cfg.AwsRegion = getEnv("AWS_REGION", "")
	cfg.AwsS3Bucket = getEnv("AWS_S3_BUCKET", "")
	cfg.ImageBaseS3URL = getEnv("IMAGE_BASE_S3_URL", "")
	if cfg.ImageMaxDimension, err = getInt("IMAGE_MAX_DIMENSION", "2048"); err != nil {
		return nil, err
	}
	if cfg.ImageMaxSizeMB, err = getInt("IMAGE_MAX_SIZE_MB", "10"); err != nil {
		return nil, err
	}
	if cfg.ImageUploadURLTTL, err = getSeconds("IMAGE_UPLOAD_URL_TTL_SECONDS", "900"); err != nil {
		return nil, err
	}

	cfg.AppName = getEnv("APP_NAME", "Market Link")
	if cfg.BcryptCost, err = getInt("BCRYPT_COST", "12"); err != nil {
		return nil, err
	}
	if cfg.SupplierCacheTTL, err = getSeconds("SUPPLIER_CACHE_TTL_SECONDS", "60"); err != nil {
		return nil, err
	}
	if cfg.InquiryAllowReRespond, err = getBool("INQUIRY_ALLOW_RERESPOND", "true"); err != nil {
		return nil, err
	}
	if cfg.InquiryResponseMinLength, err = getInt("INQUIRY_RESPONSE_MIN_LENGTH", "10"); err != nil {
		return nil, err
	}

	// Rate Limiting
	if cfg.RateLimitSoftBucketSize, err = getInt("RATE_LIMIT_SOFT_BUCKET_SIZE", "20"); err != nil {
		return nil, err
	}
	if cfg.RateLimitSoftRefillRate, err = getInt("RATE_LIMIT_SOFT_REFILL_RATE", "5"); err != nil {
		return nil, err
	}
	if cfg.RateLimitHardBucketSize, err = getInt("RATE_LIMIT_HARD_BUCKET_SIZE", "60"); err != nil {
		return nil, err
	}
	if cfg.RateLimitHardRefillRate, err = getInt("RATE_LIMIT_HARD_REFILL_RATE", "20"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Defaults returns a configuration suitable for tests and the in-memory backend.
func Defaults() *Config {
	return &Config{
		RunMode:                  "api",
		AppEnv:                   "test",
		LogLevel:                 "debug",
		StoreDriver:              StoreDriverMemory,
		MongoDbName:              "marketlink",
		JwtSecret:                "test-secret",
		JwtTTL:                   time.Hour,
		CaptchaTokenTTL:          20 * time.Minute,
		ApiPort:                  "8080",
		ServiceApiPort:           "12345",
		SmtpFromAddress:          "noreply@marketlink.example.com",
		ImageMaxDimension:        2048,
		ImageMaxSizeMB:           10,
		ImageUploadURLTTL:        15 * time.Minute,
		AppName:                  "Market Link",
		BcryptCost:               4,
		SupplierCacheTTL:         time.Minute,
		InquiryAllowReRespond:    true,
		InquiryResponseMinLength: 10,
		RateLimitSoftBucketSize:  20,
		RateLimitSoftRefillRate:  5,
		RateLimitHardBucketSize:  60,
		RateLimitHardRefillRate:  20,
	}
}
