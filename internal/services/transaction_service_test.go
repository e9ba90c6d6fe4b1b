package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"finance/internal/amqp"
	"finance/internal/cache"
	"finance/internal/core"
	"finance/internal/store"
	"finance/internal/store/memory"
)

type event struct {
	id string
	op amqp.Op
}

type fakePublisher struct {
	mu     sync.Mutex
	events []event
	err    error
	closed bool
}

func (f *fakePublisher) PublishTransactionEvent(_ context.Context, id string, op amqp.Op) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event{id, op})
	return f.err
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

// countingRepo records how often the list is read.
type countingRepo struct {
	store.Repository
	lists int
}

func (c *countingRepo) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	c.lists++
	return c.Repository.ListTransactions(ctx)
}

// gatedRepo holds its first list read after loading from the store until
// release is closed.
type gatedRepo struct {
	store.Repository
	once    sync.Once
	loaded  chan struct{}
	release chan struct{}
}

func (g *gatedRepo) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	txs, err := g.Repository.ListTransactions(ctx)
	g.once.Do(func() {
		close(g.loaded)
		<-g.release
	})
	return txs, err
}

func TestTransactionService_PublishesAfterWrites(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc := NewTransactionService(memory.New(), pub, nil)

	created, err := svc.CreateTransaction(ctx, core.Transaction{Text: "a", Amount: 1, Type: core.Income})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.UpdateTransaction(ctx, created.ID, core.Transaction{Text: "b", Amount: 2, Type: core.Expense}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := svc.DeleteTransaction(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	want := []event{{created.ID, amqp.OpCreated}, {created.ID, amqp.OpUpdated}, {created.ID, amqp.OpDeleted}}
	if len(pub.events) != len(want) {
		t.Fatalf("events = %v, want %v", pub.events, want)
	}
	for i := range want {
		if pub.events[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, pub.events[i], want[i])
		}
	}
}

func TestTransactionService_PublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{err: errors.New("connection refused")}
	svc := NewTransactionService(memory.New(), pub, nil)

	if _, err := svc.CreateTransaction(ctx, core.Transaction{Amount: 1, Type: core.Income}); err != nil {
		t.Fatalf("create should succeed when publishing fails: %v", err)
	}
}

func TestTransactionService_NoEventOnFailedWrite(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc := NewTransactionService(memory.New(), pub, nil)

	_, err := svc.UpdateTransaction(ctx, "missing", core.Transaction{})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.DeleteTransaction(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatalf("no event expected for failed writes, got %v", pub.events)
	}
}

func TestTransactionService_NilPublisher(t *testing.T) {
	svc := NewTransactionService(memory.New(), nil, nil)
	if _, err := svc.CreateTransaction(context.Background(), core.Transaction{Type: core.Expense}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestTransactionService_ListCacheInvalidation(t *testing.T) {
	ctx := context.Background()
	repo := &countingRepo{Repository: memory.New()}
	svc := NewTransactionService(repo, nil, cache.NewLRUCache[[]core.Transaction](1, time.Hour))

	if _, err := svc.ListTransactions(ctx); err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, err := svc.ListTransactions(ctx); err != nil {
		t.Fatalf("list: %v", err)
	}
	if repo.lists != 1 {
		t.Fatalf("second list should be served from cache, repo reads = %d", repo.lists)
	}

	if _, err := svc.CreateTransaction(ctx, core.Transaction{Amount: 5, Type: core.Income}); err != nil {
		t.Fatalf("create: %v", err)
	}
	list, err := svc.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if repo.lists != 2 || len(list) != 1 {
		t.Fatalf("write should invalidate the cache: reads=%d len=%d", repo.lists, len(list))
	}
}

func TestTransactionService_ListDuringWriteDoesNotCacheStaleData(t *testing.T) {
	ctx := context.Background()
	repo := &gatedRepo{
		Repository: memory.New(),
		loaded:     make(chan struct{}),
		release:    make(chan struct{}),
	}
	svc := NewTransactionService(repo, nil, cache.NewLRUCache[[]core.Transaction](1, time.Hour))

	done := make(chan error, 1)
	go func() {
		_, err := svc.ListTransactions(ctx)
		done <- err
	}()
	<-repo.loaded

	created, err := svc.CreateTransaction(ctx, core.Transaction{Text: "a", Amount: 1, Type: core.Income})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	close(repo.release)
	if err := <-done; err != nil {
		t.Fatalf("list: %v", err)
	}

	list, err := svc.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("list after write = %+v, want the created record", list)
	}
}

func TestTransactionService_Summary(t *testing.T) {
	ctx := context.Background()
	svc := NewTransactionService(memory.New(), nil, nil)
	inputs := []core.Transaction{
		{Amount: 100, Type: core.Income, Date: core.NewDate(2024, 1, 1)},
		{Amount: 40, Type: core.Expense, Date: core.NewDate(2024, 1, 1)},
		{Amount: 60, Type: core.Income, Date: core.NewDate(2024, 1, 2)},
	}
	for _, in := range inputs {
		if _, err := svc.CreateTransaction(ctx, in); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	sum, err := svc.Summary(ctx, false)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Totals != (core.Totals{TotalIncome: 160, TotalExpense: 40, Balance: 120}) {
		t.Fatalf("totals = %+v", sum.Totals)
	}
	// Store order is newest first.
	if sum.Daily[0].Day != "2024-01-02" {
		t.Fatalf("default series should follow store order, got %+v", sum.Daily)
	}

	chrono, err := svc.Summary(ctx, true)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if chrono.Daily[0].Day != "2024-01-01" || chrono.Daily[0].Income != 100 || chrono.Daily[0].Expense != 40 {
		t.Fatalf("chronological series = %+v", chrono.Daily)
	}
}

func TestTransactionService_Close(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewTransactionService(memory.New(), pub, nil)
	if err := svc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !pub.closed {
		t.Fatal("publisher should be closed")
	}
}
