package backend

import (
	"context"
	"time"

	"ledgerly/internal/ledger"
	"ledgerly/internal/stats"
)

// StatsReader serves per-owner income and expense reports.
type StatsReader interface {
	Aggregate(ctx context.Context, ownerID string, period stats.Period) (stats.Report, error)
}

// Backend groups the ledger engine with the read services built on the same store.
type Backend struct {
	Engine *ledger.Engine
	Stats  StatsReader
	Store  ledger.Store
	// Ready reports whether the backing services answer.
	Ready func(ctx context.Context) error
}

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend *Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// AMQP carries ledger events and, in amqp cascade mode, wallet purges.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	CascadeMode      string
	CascadeBatchSize int

	UploadProvider         string
	CloudinaryCloudName    string
	CloudinaryUploadPreset string
	UploadFolderRoot       string

	StatsCache    string
	StatsCacheTTL time.Duration
	RedisURL      string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
