package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Backend API
	APIURL string

	// Client storage
	Store  string
	DBPath string

	// Session shell
	PollInterval time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// AMQP budget alerts
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	ExportInterval           time.Duration

	// Development server
	Port          string
	JWTSecret     string
	AuthRateLimit int // requests per minute per client on /auth
}

func Load() *Config {
	cfg := &Config{
		APIURL: getEnv("FINANCEFLOW_API_URL", "http://localhost:5000/api"),

		Store:  getEnv("FINANCEFLOW_STORE", "sqlite"),
		DBPath: getEnv("FINANCEFLOW_DB_PATH", "./data/financeflow.db"),

		PollInterval: getEnvDuration("POLL_INTERVAL", 30*time.Second),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "financeflow"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "budget_alerts"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Summary"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		ExportInterval:           getEnvDuration("EXPORT_INTERVAL", time.Hour),

		Port:      getEnv("PORT", "5000"),
		JWTSecret: getEnv("JWT_SECRET", "dev-secret"),

		AuthRateLimit: getEnvInt("AUTH_RATE_LIMIT", 20),
	}

	return cfg
}

// SheetsEnabled reports whether a spreadsheet export is configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate API URL
	if parsedURL, err := url.Parse(c.APIURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid API URL '%s': %v", c.APIURL, err))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid API URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
	}

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate store
	validStores := []string{"memory", "sqlite"}
	isValidStore := false
	for _, store := range validStores {
		if c.Store == store {
			isValidStore = true
			break
		}
	}
	if !isValidStore {
		errors = append(errors, fmt.Sprintf("invalid store '%s': must be one of %v", c.Store, validStores))
	}

	// Validate SQLite configuration if store is sqlite
	if c.Store == "sqlite" {
		if c.DBPath == "" {
			errors = append(errors, "database path cannot be empty when using sqlite store")
		} else {
			dir := filepath.Dir(c.DBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate logging
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
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

	// Validate Google Sheets export if enabled
	if c.SheetsEnabled() {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
		}
		hasFile := c.GoogleServiceAccountFile != ""
		hasJSON := c.GoogleServiceAccountJSON != ""
		if !hasFile && !hasJSON {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets export")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
		if c.ExportInterval < time.Minute {
			errors = append(errors, fmt.Sprintf("invalid export interval %v: must be at least 1 minute", c.ExportInterval))
		}
	}

	// Validate poll interval
	if c.PollInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid poll interval %v: must be at least 1 second", c.PollInterval))
	} else if c.PollInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid poll interval %v: must be at most 24 hours", c.PollInterval))
	}

	if c.JWTSecret == "" {
		errors = append(errors, "JWT secret cannot be empty")
	}
	if c.AuthRateLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid auth rate limit %d: must be at least 1", c.AuthRateLimit))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
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
