package backend

import (
	"context"
	"fmt"

	"finance/internal/amqp"
	"finance/internal/cache"
	"finance/internal/core"
	"finance/internal/log"
	"finance/internal/services"
	"finance/internal/storage"
	"finance/internal/store"
	"finance/internal/store/google"
	"finance/internal/store/memory"
)

const listCacheSize = 4

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentStorage)}
}

// OpenRepository implements Factory.OpenRepository
func (f *DefaultFactory) OpenRepository(ctx context.Context, config Config) (store.Repository, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return repo, nil

	case SheetsBackend:
		cli, err := google.New(ctx, config.SheetsOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", config.GoogleSpreadsheetID)
		return cli, nil

	case MemoryBackend:
		st, err := memory.NewFromFile(config.MemorySeedFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load memory seed: %w", err)
		}
		f.logger.Info("Initialized memory backend", "seed_file", config.MemorySeedFile, "records", st.Len())
		return st, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := f.OpenRepository(ctx, config)
	if err != nil {
		return nil, err
	}

	// The interface must stay nil when AMQP is off; a typed nil *amqp.Client
	// would pass the service's nil check.
	var publisher services.Publisher
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without sync", "error", err)
		} else {
			publisher = client
			f.logger.Info("Initialized AMQP client", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)
		}
	}

	var listCache *cache.LRUCache[[]core.Transaction]
	var svcCache cache.Cache[[]core.Transaction]
	if config.CacheTTL > 0 {
		listCache = cache.NewLRUCache[[]core.Transaction](listCacheSize, config.CacheTTL)
		svcCache = listCache
	}

	svc := services.NewTransactionService(repo, publisher, svcCache)
	f.logger.Info("Transaction service ready",
		"backend", config.Type,
		"amqp_enabled", publisher != nil,
		"cache_ttl", config.CacheTTL)

	return &BackendResult{
		Service:   svc,
		ListCache: listCache,
		Cleanup:   svc.Close,
	}, nil
}
