package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"finance/internal/core"
	"finance/internal/store"
)

var (
	_ store.Repository = (*Store)(nil)
	_ store.Mirror     = (*Store)(nil)
	_ store.Pinger     = (*Store)(nil)
)

type Store struct {
	mu    sync.RWMutex
	items map[string]core.Transaction
	now   func() time.Time
}

func New(seed ...core.Transaction) *Store {
	s := &Store{items: make(map[string]core.Transaction, len(seed)), now: time.Now}
	for _, t := range seed {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		s.items[t.ID] = t
	}
	return s
}

// NewFromFile seeds the store from a JSON array of transactions.
// An empty path or a missing file yields an empty store.
func NewFromFile(path string) (*Store, error) {
	if path == "" {
		return New(), nil
	}
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed []core.Transaction
	if err := json.Unmarshal(b, &seed); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	return New(seed...), nil
}

func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.RLock()
	out := make([]core.Transaction, 0, len(s.items))
	for _, t := range s.items {
		out = append(out, t)
	}
	s.mu.RUnlock()
	store.SortNewestFirst(out)
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.items[id]
	if !ok {
		return core.Transaction{}, store.ErrNotFound
	}
	return t, nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	now := s.now().UTC()
	t.ID = uuid.NewString()
	t.CreatedAt, t.UpdatedAt = now, now

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[t.ID] = t
	return t, nil
}

func (s *Store) UpdateTransaction(_ context.Context, id string, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.items[id]
	if !ok {
		return core.Transaction{}, store.ErrNotFound
	}
	next := cur.Replace(t)
	next.UpdatedAt = s.now().UTC()
	s.items[id] = next
	return next, nil
}

// DeleteTransaction removes the record. It returns store.ErrNotFound for an
// unknown id; the mirror path ignores that error.
func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

// PutTransaction stores t under its own id, keeping every field as given.
func (s *Store) PutTransaction(_ context.Context, t core.Transaction) error {
	if t.ID == "" {
		return fmt.Errorf("put transaction: empty id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[t.ID] = t
	return nil
}

func (s *Store) ReplaceAll(_ context.Context, txs []core.Transaction) error {
	items := make(map[string]core.Transaction, len(txs))
	for _, t := range txs {
		items[t.ID] = t
	}
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

// Len reports how many records are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
