package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	applog "kakeibo/internal/log"
)

// Backends accepted by DATA_BACKEND.
var Backends = []string{"memory", "file", "sqlite"}

type Config struct {
	// Backend selection
	DataBackend string

	// Persistence
	SQLiteDBPath string
	DataFilePath string
	KeywordsDir  string // seed files for the memory backend

	// Reporting
	FrozenYearsFile string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Rule memoisation
	RulesCacheSize int
	RulesCacheTTL  time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadDotEnv reads a .env file when present. A missing file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

func Load() *Config {
	return &Config{
		DataBackend: getEnv("DATA_BACKEND", "memory"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/kakeibo.db"),
		DataFilePath: getEnv("DATA_FILE_PATH", "./data/kakeibo.yaml"),
		KeywordsDir:  getEnv("KEYWORDS_DIR", ""),

		FrozenYearsFile: getEnv("FROZEN_YEARS_FILE", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "kakeibo"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_export"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Kakeibo"),

		RulesCacheSize: getEnvInt("RULES_CACHE_SIZE", 64),
		RulesCacheTTL:  getEnvDuration("RULES_CACHE_TTL", 0),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if !slices.Contains(Backends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, Backends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	case "file":
		if c.DataFilePath == "" {
			errors = append(errors, "data file path cannot be empty when using file backend")
		}
	case "memory":
		if c.KeywordsDir != "" {
			if info, err := os.Stat(c.KeywordsDir); err != nil || !info.IsDir() {
				errors = append(errors, fmt.Sprintf("keywords directory does not exist: %s", c.KeywordsDir))
			}
		}
	}

	if c.FrozenYearsFile != "" {
		if _, err := os.Stat(c.FrozenYearsFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("frozen years file does not exist: %s", c.FrozenYearsFile))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.RulesCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid rules cache size %d: must be at least 1", c.RulesCacheSize))
	}
	if c.RulesCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid rules cache TTL %v: must not be negative", c.RulesCacheTTL))
	}

	if _, err := applog.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// EnsureDataDir creates the parent directory of the configured data path.
func (c *Config) EnsureDataDir() error {
	var path string
	switch c.DataBackend {
	case "sqlite":
		path = c.SQLiteDBPath
	case "file":
		path = c.DataFilePath
	default:
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create data directory '%s': %w", dir, err)
	}
	return nil
}

// Logger builds the application logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) Logger() *applog.Logger {
	cfg := applog.DefaultConfig()
	if lvl, err := applog.ParseLevel(c.LogLevel); err == nil {
		cfg.Level = lvl
	}
	cfg.Format = c.LogFormat
	return applog.New(cfg)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
