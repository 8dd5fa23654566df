package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Backend names accepted in DATA_BACKEND.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

var validBackends = []string{BackendMemory, BackendFile, BackendSQLite, BackendPostgres}

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Persistence
	DataBackend  string
	DataFile     string
	SQLiteDBPath string
	PostgresURL  string

	// Budget used until the user sets one
	DefaultBudget string

	// AMQP transaction events. Empty URL disables publishing.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror. Empty spreadsheet ID disables it.
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Advisor chat model (OpenAI-compatible endpoint)
	AdvisorAPIKey      string
	AdvisorBaseURL     string
	AdvisorModel       string
	AdvisorTimeout     time.Duration
	AdvisorSessionTTL  time.Duration
	AdvisorMaxSessions int

	// Rate limiting of mutating requests
	RateLimitPerMinute int

	// Proxies whose X-Forwarded-For is believed, as CIDRs
	TrustedProxies []string

	// Worker
	WorkerConcurrency int
}

func Load() *Config {
	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBackend:  getEnv("DATA_BACKEND", BackendFile),
		DataFile:     getEnv("DATA_FILE", "./data/saralfin.json"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/saralfin.db"),
		PostgresURL:  getEnv("DATABASE_URL", ""),

		DefaultBudget: getEnv("DEFAULT_BUDGET", "5000"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "saralfin"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "transaction_events"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Transactions"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),

		AdvisorAPIKey:      getEnv("ADVISOR_API_KEY", getEnv("GEMINI_API_KEY", "")),
		AdvisorBaseURL:     getEnv("ADVISOR_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai/"),
		AdvisorModel:       getEnv("ADVISOR_MODEL", "gemini-2.5-flash"),
		AdvisorTimeout:     getEnvDuration("ADVISOR_TIMEOUT", 60*time.Second),
		AdvisorSessionTTL:  getEnvDuration("ADVISOR_SESSION_TTL", 2*time.Hour),
		AdvisorMaxSessions: getEnvInt("ADVISOR_MAX_SESSIONS", 100),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES"),

		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 1),
	}

	return cfg
}

// EventsEnabled reports whether transaction events are published.
func (c *Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

// MirrorEnabled reports whether the Google Sheets mirror is configured.
func (c *Config) MirrorEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// AdvisorEnabled reports whether the chat advisor can reach a model.
func (c *Config) AdvisorEnabled() bool {
	return c.AdvisorAPIKey != ""
}

// SlogLevel maps LogLevel onto slog. Unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.LogLevel != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
			errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
		}
	}

	// Validate data backend
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendFile:
		if c.DataFile == "" {
			errors = append(errors, "data file path cannot be empty when using file backend")
		} else if msg := ensureDir(c.DataFile); msg != "" {
			errors = append(errors, msg)
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if msg := ensureDir(c.SQLiteDBPath); msg != "" {
			errors = append(errors, msg)
		}
	case BackendPostgres:
		if c.PostgresURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		} else if parsedURL, err := url.Parse(c.PostgresURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid DATABASE_URL: %v", err))
		} else if parsedURL.Scheme != "postgres" && parsedURL.Scheme != "postgresql" {
			errors = append(errors, fmt.Sprintf("invalid DATABASE_URL scheme '%s': must be 'postgres' or 'postgresql'", parsedURL.Scheme))
		}
	}

	if c.DefaultBudget != "" {
		if f, err := strconv.ParseFloat(c.DefaultBudget, 64); err != nil || f < 0 {
			errors = append(errors, fmt.Sprintf("invalid default budget '%s': must be a non-negative number", c.DefaultBudget))
		}
	}

	// Validate AMQP URL if provided
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

	// Google Sheets mirror
	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
		}
		hasJSON := c.GoogleServiceAccountJSON != ""
		hasFile := c.GoogleServiceAccountFile != ""
		if !hasJSON && !hasFile {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for the sheets mirror")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	// Advisor
	if c.AdvisorBaseURL != "" {
		if parsedURL, err := url.Parse(c.AdvisorBaseURL); err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid advisor base URL '%s': must be an http(s) URL", c.AdvisorBaseURL))
		}
	}
	if c.AdvisorTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid advisor timeout %v: must be at least 1 second", c.AdvisorTimeout))
	}
	if c.AdvisorSessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid advisor session TTL %v: must be at least 1 minute", c.AdvisorSessionTTL))
	}
	if c.AdvisorMaxSessions < 1 {
		errors = append(errors, fmt.Sprintf("invalid advisor max sessions %d: must be at least 1", c.AdvisorMaxSessions))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	if c.WorkerConcurrency < 1 {
		errors = append(errors, fmt.Sprintf("invalid worker concurrency %d: must be at least 1", c.WorkerConcurrency))
	} else if c.WorkerConcurrency > 32 {
		errors = append(errors, fmt.Sprintf("invalid worker concurrency %d: must be at most 32", c.WorkerConcurrency))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ensureDir makes sure the parent directory of path exists.
func ensureDir(path string) string {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return ""
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Sprintf("cannot create data directory '%s': %v", dir, err)
		}
	}
	return ""
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

// getEnvList splits a comma-separated variable, dropping blank entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
