package backend

import (
	"context"
	"time"

	"finance/internal/cache"
	"finance/internal/core"
	"finance/internal/services"
	"finance/internal/store"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// BackendResult is a ready transaction service plus its cleanup.
type BackendResult struct {
	Service   *services.TransactionService
	ListCache *cache.LRUCache[[]core.Transaction]
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend builds the store, the optional event publisher and the
	// list cache, and wires them into a TransactionService.
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// OpenRepository builds the bare store without events or caching.
	OpenRepository(ctx context.Context, config Config) (store.Repository, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite
	SQLiteDBPath string

	// Memory
	MemorySeedFile string

	// AMQP (optional for every store type)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenFile     string
	GoogleOAuthClientJSON    string
	GoogleOAuthTokenJSON     string

	// List cache; zero disables it.
	CacheTTL time.Duration
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
