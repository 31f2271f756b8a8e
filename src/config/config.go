package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "your-very-secure-and-long-jwt-secret-key-for-hs256-minimum-32-bytes"

type AppConfig struct {
	JWTSecret          string
	Port               string
	DatabasePath       string
	LogLevel           string
	AccessTokenExpiry  time.Duration
	MaxUploadSizeBytes int64

	// Statement ingestion bounds
	MaxImportRows int
	ImportTimeout time.Duration

	DefaultCurrency   string
	CategoryRulesPath string

	// Recurring backfill bounds, per template and per run
	BackfillMaxOccurrences int
	BackfillTimeout        time.Duration

	RateLimitRPS   int
	RateLimitBurst int
	AllowedOrigins []string
	CacheTTL       time.Duration
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	jwtSecret := getEnv("JWT_SECRET", defaultJWTSecret)
	if jwtSecret == defaultJWTSecret {
		log.Println("WARNING: Using default insecure JWT_SECRET. Set JWT_SECRET environment variable for production.")
	}

	maxUploadSizeBytesStr := getEnv("MAX_UPLOAD_SIZE_BYTES", "10485760")
	maxUploadSizeBytes, err := strconv.ParseInt(maxUploadSizeBytesStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid MAX_UPLOAD_SIZE_BYTES format '%s'. Using default 10MB. Error: %v", maxUploadSizeBytesStr, err)
		maxUploadSizeBytes = 10 * 1024 * 1024
	}

	Cfg = &AppConfig{
		JWTSecret:          jwtSecret,
		Port:               getEnv("PORT", "8080"),
		DatabasePath:       getEnv("DATABASE_PATH", "./fintrack.db"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		AccessTokenExpiry:  getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 60*time.Minute),
		MaxUploadSizeBytes: maxUploadSizeBytes,

		MaxImportRows: getEnvAsInt("MAX_IMPORT_ROWS", 10000),
		ImportTimeout: getEnvAsDuration("IMPORT_TIMEOUT", 30*time.Second),

		DefaultCurrency:   strings.ToUpper(getEnv("DEFAULT_CURRENCY", "IDR")),
		CategoryRulesPath: getEnv("CATEGORY_RULES_PATH", ""),

		BackfillMaxOccurrences: getEnvAsInt("BACKFILL_MAX_OCCURRENCES", 366),
		BackfillTimeout:        getEnvAsDuration("BACKFILL_TIMEOUT", 2*time.Minute),

		RateLimitRPS:   getEnvAsInt("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 30),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		CacheTTL:       getEnvAsDuration("CACHE_TTL", 15*time.Minute),
	}

	if Cfg.MaxImportRows <= 0 {
		log.Printf("WARNING: MAX_IMPORT_ROWS must be positive, got %d. Using default 10000.", Cfg.MaxImportRows)
		Cfg.MaxImportRows = 10000
	}
	if Cfg.BackfillMaxOccurrences <= 0 {
		log.Printf("WARNING: BACKFILL_MAX_OCCURRENCES must be positive, got %d. Using default 366.", Cfg.BackfillMaxOccurrences)
		Cfg.BackfillMaxOccurrences = 366
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, DefaultCurrency=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.DefaultCurrency)
}

// Defaults returns a configuration populated with built-in defaults and no
// environment lookups. Used by tests and tools that run without a .env file.
func Defaults() *AppConfig {
	return &AppConfig{
		JWTSecret:              defaultJWTSecret,
		Port:                   "8080",
		DatabasePath:           "./fintrack.db",
		LogLevel:               "info",
		AccessTokenExpiry:      60 * time.Minute,
		MaxUploadSizeBytes:     10 * 1024 * 1024,
		MaxImportRows:          10000,
		ImportTimeout:          30 * time.Second,
		DefaultCurrency:        "IDR",
		BackfillMaxOccurrences: 366,
		BackfillTimeout:        2 * time.Minute,
		RateLimitRPS:           10,
		RateLimitBurst:         30,
		AllowedOrigins:         []string{"http://localhost:3000"},
		CacheTTL:               15 * time.Minute,
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Integer value for %s not set or empty, using default: %d", key, fallback)
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Duration value for %s not set or empty, using default: %s", key, fallback.String())
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
