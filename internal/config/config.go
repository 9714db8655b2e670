// Package config provides configuration management for the QC review tool.
//
// This package handles loading configuration from environment variables,
// validating settings, and providing sensible defaults. Configuration is
// loaded once at startup and treated as read-only afterwards.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (highest priority)
//  2. External .env file in the working directory
//  3. Embedded .env file (fallback, included in binary)
//  4. Hard-coded defaults (lowest priority)
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends accepted by STORE_BACKEND.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// embeddedEnv contains the .env file embedded at build time.
//
// The embedded file only carries non-secret defaults; Telegram credentials
// must come from the environment or an external .env.
//
//go:embed .env
var embeddedEnv string

// Config holds all application configuration.
type Config struct {
	// Verdict persistence
	VerdictFile  string // JSON verdict file path (fixed, well-known)
	StoreBackend string // "json" (default) or "sqlite"
	SQLitePath   string // Database file used by the sqlite backend

	// Review workflow
	Locale            string // Suffix of the export file name, qc_log_<locale>.xlsx
	PageSize          int    // Records per review page
	HeaderScanRows    int    // Leading spreadsheet rows scanned for the header keyword
	FallbackHeaderRow int    // Header row index used when detection fails

	// HTTP server
	ServerPort  string        // Port for the review API and /health
	MaxUploadMB int           // Upload body limit in megabytes
	SessionTTL  time.Duration // Idle time before a review session is dropped (0 keeps it)

	// Telegram configuration (optional)
	TelegramBotToken string // Telegram bot API token
	TelegramChatID   string // Telegram chat ID for progress reports

	// Debug mode - skips actual Telegram calls
	DebugMode bool

	// Photo link checks
	WorkerPoolSize int           // Number of concurrent link checkers
	HTTPTimeout    time.Duration // Per-request timeout for link checks

	LogLevel string // zap level name: debug, info, warn, error
}

// LoadConfig loads configuration from environment variables with defaults.
//
// Loading process:
//  1. Parse embedded .env file and set as fallback environment variables
//  2. Try to load external .env file
//  3. Read environment variables, applying defaults for missing values
//  4. Validate the result
func LoadConfig() (*Config, error) {
	// Embedded values never override the environment
	envMap, err := godotenv.Unmarshal(embeddedEnv)
	if err == nil {
		for k, v := range envMap {
			if os.Getenv(k) == "" {
				os.Setenv(k, v)
			}
		}
	}

	_ = godotenv.Load()

	cfg := &Config{
		VerdictFile:  getEnvOrDefault("VERDICT_FILE", "feedback_data_prayagraj.json"),
		StoreBackend: strings.ToLower(getEnvOrDefault("STORE_BACKEND", BackendJSON)),
		SQLitePath:   getEnvOrDefault("SQLITE_PATH", "verdicts.db"),

		Locale:            getEnvOrDefault("LOCALE", "prayagraj"),
		PageSize:          getEnvInt("PAGE_SIZE", 10),
		HeaderScanRows:    getEnvInt("HEADER_SCAN_ROWS", 20),
		FallbackHeaderRow: getEnvInt("FALLBACK_HEADER_ROW", 5),

		ServerPort:  getEnvOrDefault("SERVER_PORT", "8080"),
		MaxUploadMB: getEnvInt("MAX_UPLOAD_MB", 50),
		SessionTTL:  getEnvDuration("SESSION_TTL", 12*time.Hour),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),

		DebugMode: getEnvOrDefault("DEBUG_MODE", "false") == "true",

		WorkerPoolSize: getEnvInt("WORKER_POOL_SIZE", 10),
		HTTPTimeout:    getEnvDuration("HTTP_TIMEOUT", 15*time.Second),

		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that values are present and sensible.
func (c *Config) Validate() error {
	if c.VerdictFile == "" {
		return fmt.Errorf("VERDICT_FILE cannot be empty")
	}
	switch c.StoreBackend {
	case BackendJSON:
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH cannot be empty when STORE_BACKEND=sqlite")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendJSON, BackendSQLite, c.StoreBackend)
	}

	if c.Locale == "" {
		return fmt.Errorf("LOCALE cannot be empty")
	}
	if c.PageSize < 1 {
		return fmt.Errorf("PAGE_SIZE must be at least 1, got %d", c.PageSize)
	}
	if c.HeaderScanRows < 1 {
		return fmt.Errorf("HEADER_SCAN_ROWS must be at least 1, got %d", c.HeaderScanRows)
	}
	if c.FallbackHeaderRow < 0 {
		return fmt.Errorf("FALLBACK_HEADER_ROW cannot be negative, got %d", c.FallbackHeaderRow)
	}
	if c.MaxUploadMB < 1 {
		return fmt.Errorf("MAX_UPLOAD_MB must be at least 1, got %d", c.MaxUploadMB)
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("SESSION_TTL cannot be negative, got %s", c.SessionTTL)
	}
	if c.WorkerPoolSize < 1 {
		return fmt.Errorf("WORKER_POOL_SIZE must be at least 1, got %d", c.WorkerPoolSize)
	}

	return nil
}

// TelegramEnabled reports whether both Telegram settings are present.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

// getEnvOrDefault returns the environment variable value or a default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as an integer or a default if not set/invalid
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns the environment variable as a duration or a default if not set/invalid.
//
// Accepts standard Go duration strings like "5s", "10m", "1h30m"
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
