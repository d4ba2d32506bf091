package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"nomadfinance/internal/backend"
	"nomadfinance/internal/cli"
	"nomadfinance/internal/config"
	apphttp "nomadfinance/internal/http"
	"nomadfinance/internal/identity"
	"nomadfinance/internal/log"
)

func main() {
	// Amounts go to the mini-app as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	cfg := cli.LoadConfig((*config.Config).Validate)
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	encoder, err := identity.EncoderByName(cfg.PasswordEncoding)
	if err != nil {
		logger.Error("Invalid password encoding", log.FieldError, err)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	result, err := backend.NewFactory(logger).CreateBackend(startCtx, backendCfg)
	cancel()
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	srv := apphttp.NewServer(apphttp.Options{
		Addr:          ":" + cfg.Port,
		Service:       result.Service,
		Ping:          result.Ping,
		Secret:        []byte(cfg.SessionSecret),
		SessionTTL:    cfg.SessionTTL,
		CacheSize:     cfg.SessionCacheSize,
		AllowedOrigin: cfg.AllowedOrigin,
		DevMode:       cfg.DevMode,
		Encoder:       encoder,
		Logger:        logger,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting nomadfinance server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"events", result.Events,
			"dev_mode", cfg.DevMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err, log.FieldOperation, log.OpShutdown)
	}
	logger.Info("Server stopped gracefully")
}
