package config

import (
	"os"
	"strconv"
	"strings"
)

const (
	// BackendPostgres persists evidence and documents in PostgreSQL and MinIO.
	BackendPostgres = "postgres"
	// BackendMemory keeps everything in process memory. Intended for local runs.
	BackendMemory = "memory"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	ApplicationName    string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	// StatementTimeoutMs bounds every statement server-side; 0 leaves the server default.
	StatementTimeoutMs int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	// RetentionDays > 0 creates the bucket with object locking and writes every
	// object under governance retention for that many days.
	RetentionDays int
}

// LedgerConfig tunes the evidence append path.
type LedgerConfig struct {
	MaxAppendAttempts int
	AppendBackoffMs   int
}

// VerificationConfig controls verification code allocation and the public verify URL.
type VerificationConfig struct {
	CodePrefix      string
	MaxCodeAttempts int
	PublicBaseURL   string
}

// AuthConfig holds the shared secret used to authenticate internal callers.
// An empty JWTSecret disables authentication on internal routes.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost      string
	Port         string
	Backend      string
	LogLevel     string
	Timezone     string
	// BodyLimitMB caps request bodies, which bounds uploaded documents and evidence files.
	BodyLimitMB  int
	Database     DatabaseConfig
	MinIO        MinIOConfig
	Ledger       LedgerConfig
	Verification VerificationConfig
	Auth         AuthConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	appHost := getEnv("APP_HOST", "localhost:8080")
	return &AppConfig{
		AppHost:     appHost,
		Port:        getEnv("PORT", "8080"),
		Backend:     strings.ToLower(getEnv("BACKEND", BackendPostgres)),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Timezone:    getEnv("APP_TIMEZONE", "UTC"),
		BodyLimitMB: getEnvInt("BODY_LIMIT_MB", 25),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			ApplicationName:    getEnv("DB_APPLICATION_NAME", "custodyapi"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
			StatementTimeoutMs: getEnvInt("DB_STATEMENT_TIMEOUT_MS", 5000),
		},
		MinIO: MinIOConfig{
			Endpoint:      getEnv("MINIO_ENDPOINT", ""),
			AccessKey:     getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey:     getEnv("MINIO_SECRET_KEY", ""),
			Bucket:        getEnv("MINIO_BUCKET", ""),
			UseSSL:        getEnvBool("MINIO_USE_SSL", false),
			RetentionDays: getEnvInt("MINIO_RETENTION_DAYS", 0),
		},
		Ledger: LedgerConfig{
			MaxAppendAttempts: getEnvInt("LEDGER_MAX_APPEND_ATTEMPTS", 8),
			AppendBackoffMs:   getEnvInt("LEDGER_APPEND_BACKOFF_MS", 10),
		},
		Verification: VerificationConfig{
			CodePrefix:      strings.ToUpper(getEnv("VERIFICATION_CODE_PREFIX", "LK")),
			MaxCodeAttempts: getEnvInt("VERIFICATION_MAX_CODE_ATTEMPTS", 5),
			PublicBaseURL:   strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://"+appHost), "/"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
			Issuer:    getEnv("AUTH_JWT_ISSUER", ""),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
