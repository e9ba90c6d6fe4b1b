package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"finance/internal/core"
	"finance/internal/store"

	_ "modernc.org/sqlite"
)

// timestampLayout is fixed-width so that stored timestamps sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

var (
	_ store.Repository = (*SQLiteRepository)(nil)
	_ store.Pinger     = (*SQLiteRepository)(nil)
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(ctx, row))
	}
	return out, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, store.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return fromRow(ctx, row), nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	now := r.now().UTC()
	t.ID = uuid.NewString()
	t.CreatedAt, t.UpdatedAt = now, now

	if err := r.queries.CreateTransaction(ctx, toRow(t)); err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"type", t.Type,
		"amount", float64(t.Amount),
		"date", t.Date.Key())
	return t, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, id string, t core.Transaction) (core.Transaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()
	q := r.queries.WithTx(tx)

	row, err := q.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, store.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("load transaction %s: %w", id, err)
	}

	next := fromRow(ctx, row).Replace(t)
	next.UpdatedAt = r.now().UTC()
	if _, err := q.UpdateTransaction(ctx, toRow(next)); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit update: %w", err)
	}

	slog.InfoContext(ctx, "Transaction updated in SQLite", "id", id)
	return next, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	n, err := r.queries.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	slog.InfoContext(ctx, "Transaction deleted from SQLite", "id", id)
	return nil
}

func toRow(t core.Transaction) TransactionRow {
	// SQLite has no NaN; a malformed amount is stored as NULL.
	amount := sql.NullFloat64{Float64: float64(t.Amount), Valid: t.Amount.Valid()}
	return TransactionRow{
		ID:        t.ID,
		Text:      t.Text,
		Amount:    amount,
		Type:      string(t.Type),
		Date:      t.Date.Key(),
		CreatedAt: t.CreatedAt.UTC().Format(timestampLayout),
		UpdatedAt: t.UpdatedAt.UTC().Format(timestampLayout),
	}
}

func fromRow(ctx context.Context, row TransactionRow) core.Transaction {
	t := core.Transaction{
		ID:   row.ID,
		Text: row.Text,
		Type: core.Type(row.Type),
	}
	if row.Amount.Valid {
		t.Amount = core.Amount(row.Amount.Float64)
	} else {
		t.Amount = core.Amount(math.NaN())
	}
	date, err := core.ParseDate(row.Date)
	if err != nil {
		slog.WarnContext(ctx, "Stored transaction has an unreadable date", "id", row.ID, "date", row.Date)
	}
	t.Date = date
	t.CreatedAt, _ = time.Parse(timestampLayout, row.CreatedAt)
	t.UpdatedAt, _ = time.Parse(timestampLayout, row.UpdatedAt)
	return t
}
