// Package cli holds the start-up steps shared by cmd/nomadfinance and
// cmd/finance-worker.
package cli

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"nomadfinance/internal/config"
	"nomadfinance/internal/log"
)

// LoadEnvFile loads .env (or the given files) into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// SetupLogger builds the process logger from configuration and installs it
// as the slog default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	logCfg := log.DefaultConfig()
	logCfg.Component = component
	if cfg != nil {
		logCfg.Level = log.ParseLevel(cfg.LogLevel)
		logCfg.Format = cfg.LogFormat
	}
	logger := log.New(logCfg)
	log.SetDefault(logger)
	return logger
}

// LoadConfig reads .env and the environment, then runs validate. Any failure
// is fatal: the process exits with status 1.
func LoadConfig(validate func(*config.Config) error) *config.Config {
	bootstrap := SetupLogger(nil, log.ComponentApp)

	if err := LoadEnvFile(); err != nil {
		bootstrap.Error("Failed to read .env file", log.FieldError, err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		bootstrap.Error("Failed to load configuration", log.FieldError, err)
		os.Exit(1)
	}
	if validate != nil {
		if err := validate(cfg); err != nil {
			bootstrap.Error("Configuration validation failed", log.FieldError, err)
			os.Exit(1)
		}
	}
	return cfg
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM.
func ShutdownContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")
	}()
	return ctx, stop
}
