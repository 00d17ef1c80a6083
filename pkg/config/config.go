package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Ledger    LedgerConfig
	Storage   StorageConfig
	RateLimit RateLimitConfig
	Sentry    SentryConfig
	Secrets   SecretsConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	Environment  string
	ServiceName  string
	ReadTimeout  int
	WriteTimeout int
	CORSOrigins  string // Comma-separated list of allowed origins
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret     string
	Expiration int // in hours
}

// LedgerConfig holds evidence ledger configuration
type LedgerConfig struct {
	// Difficulty is the number of leading zero hex digits a sealed block
	// hash must carry. Kept low so sealing stays fast on the upload path.
	Difficulty int
	// MaxSealAttempts bounds the nonce search; sealing past this count
	// fails with a mining timeout instead of spinning forever.
	MaxSealAttempts uint64
}

// StorageConfig holds evidence file storage (S3) configuration
type StorageConfig struct {
	Bucket        string
	Region        string
	Endpoint      string // For S3-compatible storage (MinIO, etc.)
	AccessKey     string
	SecretKey     string
	BaseURL       string
	MaxFileSizeMB int
}

// RateLimitConfig holds request rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool
	WindowSeconds  int
	DefaultLimit   int
	DefaultBurst   int
	AnonymousLimit int
	AnonymousBurst int
	RedisPrefix    string

	// EndpointOverrides customizes limits for specific endpoints.
	EndpointOverrides map[string]EndpointRateLimitConfig
}

// EndpointRateLimitConfig overrides rate limits for a single endpoint.
type EndpointRateLimitConfig struct {
	AuthenticatedLimit int
	AuthenticatedBurst int
	AnonymousLimit     int
	AnonymousBurst     int
	WindowSeconds      int
}

// Window returns the sliding window duration, defaulting to one minute.
func (c RateLimitConfig) Window() time.Duration {
	if c.WindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.WindowSeconds) * time.Second
}

// SentryConfig holds Sentry error reporting configuration
type SentryConfig struct {
	DSN         string
	SampleRate  float64
	Environment string
}

// SecretsConfig selects and configures the external secrets backend.
type SecretsConfig struct {
	Provider string

	VaultAddress   string
	VaultToken     string
	VaultNamespace string
	VaultMount     string

	AWSRegion string

	GCPProjectID       string
	GCPCredentialsFile string

	KubernetesBasePath string

	// Reference strings resolved against the backend at startup, using
	// the [provider://]path[@version][#key] syntax. Empty refs leave the
	// plain env value in place.
	DatabasePasswordRef string
	JWTSecretRef        string
	RedisPasswordRef    string
	StorageSecretKeyRef string
	SentryDSNRef        string
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ServiceName:  serviceName,
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 10),
			CORSOrigins:  getEnv("CORS_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "jankavach"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			Expiration: getEnvAsInt("JWT_EXPIRATION", 24),
		},
		Ledger: LedgerConfig{
			Difficulty:      getEnvAsInt("LEDGER_DIFFICULTY", 2),
			MaxSealAttempts: uint64(getEnvAsInt("LEDGER_MAX_SEAL_ATTEMPTS", 2_000_000)),
		},
		Storage: StorageConfig{
			Bucket:        getEnv("STORAGE_BUCKET", "jankavach-evidence"),
			Region:        getEnv("STORAGE_REGION", "ap-south-1"),
			Endpoint:      getEnv("STORAGE_ENDPOINT", ""),
			AccessKey:     getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey:     getEnv("STORAGE_SECRET_KEY", ""),
			BaseURL:       getEnv("STORAGE_BASE_URL", ""),
			MaxFileSizeMB: getEnvAsInt("STORAGE_MAX_FILE_SIZE_MB", 25),
		},
		RateLimit: RateLimitConfig{
			Enabled:        getEnvAsBool("RATE_LIMIT_ENABLED", true),
			WindowSeconds:  getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60),
			DefaultLimit:   getEnvAsInt("RATE_LIMIT_DEFAULT_LIMIT", 100),
			DefaultBurst:   getEnvAsInt("RATE_LIMIT_DEFAULT_BURST", 10),
			AnonymousLimit: getEnvAsInt("RATE_LIMIT_ANONYMOUS_LIMIT", 30),
			AnonymousBurst: getEnvAsInt("RATE_LIMIT_ANONYMOUS_BURST", 5),
			RedisPrefix:    getEnv("RATE_LIMIT_REDIS_PREFIX", "rl"),
		},
		Sentry: SentryConfig{
			DSN:         getEnv("SENTRY_DSN", ""),
			SampleRate:  getEnvAsFloat("SENTRY_SAMPLE_RATE", 1.0),
			Environment: getEnv("SENTRY_ENVIRONMENT", getEnv("ENVIRONMENT", "development")),
		},
		Secrets: SecretsConfig{
			Provider:           getEnv("SECRETS_PROVIDER", ""),
			VaultAddress:       getEnv("VAULT_ADDR", ""),
			VaultToken:         getEnv("VAULT_TOKEN", ""),
			VaultNamespace:     getEnv("VAULT_NAMESPACE", ""),
			VaultMount:         getEnv("VAULT_MOUNT", "secret"),
			AWSRegion:          getEnv("SECRETS_AWS_REGION", getEnv("STORAGE_REGION", "ap-south-1")),
			GCPProjectID:       getEnv("SECRETS_GCP_PROJECT_ID", ""),
			GCPCredentialsFile: getEnv("SECRETS_GCP_CREDENTIALS_FILE", ""),
			KubernetesBasePath: getEnv("SECRETS_K8S_BASE_PATH", ""),

			DatabasePasswordRef: getEnv("DB_PASSWORD_SECRET_REF", ""),
			JWTSecretRef:        getEnv("JWT_SECRET_REF", ""),
			RedisPasswordRef:    getEnv("REDIS_PASSWORD_SECRET_REF", ""),
			StorageSecretKeyRef: getEnv("STORAGE_SECRET_KEY_REF", ""),
			SentryDSNRef:        getEnv("SENTRY_DSN_SECRET_REF", ""),
		},
	}

	if cfg.Ledger.Difficulty < 1 {
		return nil, fmt.Errorf("LEDGER_DIFFICULTY must be at least 1")
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// MigrateURL returns the connection URL for golang-migrate's pgx driver.
func (c *DatabaseConfig) MigrateURL() string {
	return fmt.Sprintf(
		"pgx5://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// getEnv gets an environment variable with a fallback default
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a fallback default
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as a boolean with a fallback default
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsFloat gets an environment variable as a float with a fallback default
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}
