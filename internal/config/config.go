// Package config loads settings from the environment, optionally seeded by a
// .env file.
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// HTTP Server
	Port          string `env:"PORT" envDefault:"8081"`
	AllowedOrigin string `env:"ALLOWED_ORIGIN" envDefault:"https://web.telegram.org"`

	// Backend selection: sqlite, postgres or local
	DataBackend    string `env:"DATA_BACKEND" envDefault:"sqlite"`
	SQLiteDBPath   string `env:"SQLITE_DB_PATH" envDefault:"./data/nomadfinance.db"`
	DatabaseURL    string `env:"DATABASE_URL"`
	LocalCachePath string `env:"LOCAL_CACHE_PATH" envDefault:"./data/local-cache.json"`

	// Identity and sessions
	DevMode          bool          `env:"DEV_MODE" envDefault:"false"`
	PasswordEncoding string        `env:"PASSWORD_ENCODING" envDefault:"plaintext"`
	SessionSecret    string        `env:"SESSION_SECRET"`
	SessionTTL       time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	SessionCacheSize int           `env:"SESSION_CACHE_SIZE" envDefault:"500"`

	// AMQP, optional. Empty URL disables record events.
	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"nomadfinance"`
	AMQPQueue    string `env:"AMQP_QUEUE" envDefault:"export_records"`

	// Google Sheets export, used by the worker
	GoogleSpreadsheetID      string `env:"GOOGLE_SPREADSHEET_ID"`
	GoogleSheetName          string `env:"GOOGLE_SHEET_NAME" envDefault:"Records"`
	GoogleServiceAccountJSON string `env:"GOOGLE_SERVICE_ACCOUNT_JSON"`
	GoogleServiceAccountFile string `env:"GOOGLE_SERVICE_ACCOUNT_FILE"`
	GoogleOAuthClientJSON    string `env:"GOOGLE_OAUTH_CLIENT_JSON"`
	GoogleOAuthClientFile    string `env:"GOOGLE_OAUTH_CLIENT_FILE"`
	GoogleOAuthTokenJSON     string `env:"GOOGLE_OAUTH_TOKEN_JSON"`
	GoogleOAuthTokenFile     string `env:"GOOGLE_OAUTH_TOKEN_FILE"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load parses the environment into a Config with defaults applied.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Backends lists the accepted DATA_BACKEND values.
var Backends = []string{"sqlite", "postgres", "local"}

// Validate checks the server configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLITE_DB_PATH cannot be empty when using sqlite backend")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required when using postgres backend")
		}
	case "local":
	default:
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, Backends))
	}

	switch c.PasswordEncoding {
	case "plaintext", "bcrypt":
	default:
		errs = append(errs, fmt.Sprintf("invalid password encoding '%s': must be plaintext or bcrypt", c.PasswordEncoding))
	}

	if len(c.SessionSecret) < 32 {
		errs = append(errs, "SESSION_SECRET must be at least 32 characters")
	}
	if c.SessionTTL < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.SessionCacheSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid session cache size %d: must be at least 1", c.SessionCacheSize))
	}

	errs = append(errs, c.validateAMQP()...)

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// ValidateWorker checks what the export worker needs.
func (c *Config) ValidateWorker() error {
	var errs []string

	if c.AMQPURL == "" {
		errs = append(errs, "AMQP_URL is required for the export worker")
	}
	errs = append(errs, c.validateAMQP()...)

	// Dev mode exports to memory.
	if !c.DevMode {
		if c.GoogleSpreadsheetID == "" {
			errs = append(errs, "GOOGLE_SPREADSHEET_ID is required for the export worker")
		}
		if c.GoogleSheetName == "" {
			errs = append(errs, "GOOGLE_SHEET_NAME cannot be empty")
		}
		hasServiceAccount := c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != ""
		hasOAuth := (c.GoogleOAuthClientJSON != "" || c.GoogleOAuthClientFile != "") &&
			(c.GoogleOAuthTokenJSON != "" || c.GoogleOAuthTokenFile != "")
		if !hasServiceAccount && !hasOAuth {
			errs = append(errs, "either service account credentials or an OAuth client and token must be provided")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("worker configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func (c *Config) validateAMQP() []string {
	if c.AMQPURL == "" {
		return nil
	}
	var errs []string
	if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
		errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
	} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
		errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
	}
	if c.AMQPExchange == "" {
		errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
	}
	if c.AMQPQueue == "" {
		errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
	}
	return errs
}
