// Package backend builds the configured remote.Service.
package backend

import (
	"context"

	"nomadfinance/internal/remote"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// PingFunc reports whether the backend is reachable.
type PingFunc func(ctx context.Context) error

// BackendResult contains the service and its lifecycle hooks. Ping is never
// nil; Cleanup closes the service and any event publisher.
type BackendResult struct {
	Service remote.Service
	Ping    PingFunc
	Cleanup CleanupFunc
	// Events reports whether record events are being published.
	Events bool
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath   string
	DatabaseURL    string
	LocalCachePath string

	// Optional record-event publishing.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	LocalBackend    BackendType = "local"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PostgresBackend, LocalBackend:
		return true
	default:
		return false
	}
}
