package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/nimbusdb/nimbus-backend/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

// Storage backend identifiers.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds application configuration values
type Config struct {
	ServerPort       string
	JWTSecret        string
	JWTExpiration    time.Duration
	StorageBackend   string
	SQLitePath       string
	PostgresURL      string
	SchemaValidation bool
}

// LoadConfig loads configuration from environment variables.
// It uses a .env file for local development if present (ignores it for production).
func LoadConfig() (*Config, error) {
	customLog.Println("Loading configuration from environment variables...")

	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			customLog.Warnf("Warning: Error loading .env file: %v", err)
		}
	}

	port := getEnv("SERVER_PORT", "8080")
	jwtSecret := getEnv("JWT_SECRET", "") // Shared secret with the identity provider; no sensible default
	jwtExpHoursStr := getEnv("JWT_EXPIRATION_HOURS", "24")
	backend := strings.ToLower(getEnv("STORAGE_BACKEND", BackendSQLite))
	sqlitePath := getEnv("SQLITE_PATH", "data/nimbus.db")
	postgresURL := os.Getenv("DATABASE_URL")
	schemaValidationStr := getEnv("SCHEMA_VALIDATION", "false")

	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable must be set")
	}

	jwtExpHours, err := strconv.Atoi(jwtExpHoursStr)
	if err != nil || jwtExpHours <= 0 {
		customLog.Warnf("Invalid JWT_EXPIRATION_HOURS '%s'. Using default 24h. Error: %v", jwtExpHoursStr, err)
		jwtExpHours = 24
	}

	switch backend {
	case BackendSQLite:
		// Local document-file backend, nothing else required.
	case BackendPostgres:
		if postgresURL == "" {
			return nil, errors.New("DATABASE_URL must be set when STORAGE_BACKEND=postgres")
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND '%s' (use %s or %s)", backend, BackendSQLite, BackendPostgres)
	}

	schemaValidation, err := strconv.ParseBool(schemaValidationStr)
	if err != nil {
		customLog.Warnf("Invalid SCHEMA_VALIDATION '%s'. Defaulting to false.", schemaValidationStr)
		schemaValidation = false
	}

	cfg := &Config{
		ServerPort:       port,
		JWTSecret:        jwtSecret,
		JWTExpiration:    time.Hour * time.Duration(jwtExpHours),
		StorageBackend:   backend,
		SQLitePath:       sqlitePath,
		PostgresURL:      postgresURL,
		SchemaValidation: schemaValidation,
	}

	customLog.Printf("Configuration loaded successfully. Port: %s, Backend: %s, Schema validation: %v",
		cfg.ServerPort, cfg.StorageBackend, cfg.SchemaValidation)
	return cfg, nil
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
