package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"finance/internal/amqp"
	"finance/internal/cache"
	"finance/internal/core"
	"finance/internal/store"
)

const listCacheKey = "transactions"

var (
	_ store.Repository = (*TransactionService)(nil)
	_ store.Pinger     = (*TransactionService)(nil)
)

// Publisher announces changes to other processes.
type Publisher interface {
	PublishTransactionEvent(ctx context.Context, id string, op amqp.Op) error
}

// TransactionService orchestrates transaction writes across the store, the
// list cache and the event bus.
type TransactionService struct {
	repo      store.Repository
	publisher Publisher
	list      cache.Cache[[]core.Transaction]

	// gen counts invalidations. A list read only fills the cache when no
	// write invalidated it while the read was in flight.
	mu  sync.Mutex
	gen uint64
}

// NewTransactionService wraps repo. A nil publisher disables events; a nil
// listCache disables caching.
func NewTransactionService(repo store.Repository, publisher Publisher, listCache cache.Cache[[]core.Transaction]) *TransactionService {
	return &TransactionService{repo: repo, publisher: publisher, list: listCache}
}

func (s *TransactionService) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	if s.list != nil {
		if txs, ok := s.list.Get(listCacheKey); ok {
			return append([]core.Transaction(nil), txs...), nil
		}
	}
	gen := s.generation()
	txs, err := s.repo.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	s.fill(gen, txs)
	return txs, nil
}

func (s *TransactionService) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

// CreateTransaction saves locally first, then announces the change.
func (s *TransactionService) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	created, err := s.repo.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.invalidate()
	s.publish(ctx, created.ID, amqp.OpCreated)
	return created, nil
}

func (s *TransactionService) UpdateTransaction(ctx context.Context, id string, t core.Transaction) (core.Transaction, error) {
	updated, err := s.repo.UpdateTransaction(ctx, id, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.invalidate()
	s.publish(ctx, id, amqp.OpUpdated)
	return updated, nil
}

func (s *TransactionService) DeleteTransaction(ctx context.Context, id string) error {
	if err := s.repo.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.invalidate()
	s.publish(ctx, id, amqp.OpDeleted)
	return nil
}

// Summary derives totals, breakdown and daily series from the current list.
// When chronological is set the daily series is built from date-ascending
// records.
func (s *TransactionService) Summary(ctx context.Context, chronological bool) (core.Summary, error) {
	txs, err := s.ListTransactions(ctx)
	if err != nil {
		return core.Summary{}, err
	}
	if chronological {
		txs = core.SortChronological(txs)
	}
	return core.Derive(txs), nil
}

func (s *TransactionService) Ping(ctx context.Context) error {
	if p, ok := s.repo.(store.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *TransactionService) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

func (s *TransactionService) fill(gen uint64, txs []core.Transaction) {
	if s.list == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	s.list.Set(listCacheKey, append([]core.Transaction(nil), txs...))
}

func (s *TransactionService) invalidate() {
	if s.list == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.list.Clear()
}

// publish never fails the caller: the write is already committed.
func (s *TransactionService) publish(ctx context.Context, id string, op amqp.Op) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping event", "id", id, "op", op)
		return
	}
	if err := s.publisher.PublishTransactionEvent(ctx, id, op); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event", "id", id, "op", op, "error", err)
	}
}

// Close closes the repository and the publisher when they hold resources.
func (s *TransactionService) Close() error {
	var errs []error
	if c, ok := s.repo.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	return errors.Join(errs...)
}
