package backend

import (
	"context"
	"fmt"

	"nomadfinance/internal/amqp"
	"nomadfinance/internal/events"
	"nomadfinance/internal/log"
	"nomadfinance/internal/remote"
	"nomadfinance/internal/storage/local"
	"nomadfinance/internal/storage/postgres"
	"nomadfinance/internal/storage/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
	// dialAMQP is swapped in tests.
	dialAMQP func(url, exchange, queue string) (events.Publisher, error)
}

func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
		dialAMQP: func(url, exchange, queue string) (events.Publisher, error) {
			return amqp.NewClient(url, exchange, queue)
		},
	}
}

var _ Factory = (*DefaultFactory)(nil)

// CreateBackend opens the configured store and, when AMQP is configured,
// wraps it with the record-event publisher. An unreachable broker is logged
// and the backend runs without events.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		svc  remote.Service
		ping PingFunc
		err  error
	)
	switch config.Type {
	case SQLiteBackend:
		svc, ping, err = f.createSQLiteBackend(config)
	case PostgresBackend:
		svc, ping, err = f.createPostgresBackend(ctx, config)
	case LocalBackend:
		svc, ping, err = f.createLocalBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	result := &BackendResult{Service: svc, Ping: ping, Cleanup: svc.Close}

	if config.AMQPURL != "" {
		publisher, err := f.dialAMQP(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without record events", log.FieldError, err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			wrapped := events.NewService(svc, publisher, f.logger)
			result.Service = wrapped
			result.Cleanup = wrapped.Close
			result.Events = true
		}
	}

	return result, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (remote.Service, PingFunc, error) {
	store, err := sqlite.Open(config.SQLiteDBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return store, store.Ping, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (remote.Service, PingFunc, error) {
	store, err := postgres.Connect(ctx, config.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize Postgres store: %w", err)
	}
	f.logger.Info("Initialized Postgres backend")
	return store, store.Ping, nil
}

func (f *DefaultFactory) createLocalBackend(config Config) (remote.Service, PingFunc, error) {
	if config.LocalCachePath == "" {
		f.logger.Info("Initialized in-memory local backend")
		return local.New(), alwaysReady, nil
	}
	store, err := local.Open(config.LocalCachePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open local cache: %w", err)
	}
	f.logger.Info("Initialized local backend", "path", config.LocalCachePath)
	return store, alwaysReady, nil
}

func alwaysReady(context.Context) error { return nil }
