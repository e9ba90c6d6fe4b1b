// Package store defines the ports through which the rest of the service
// reads and writes transactions.
package store

import (
	"context"
	"errors"

	"finance/internal/core"
)

// ErrNotFound is returned when no transaction has the requested id.
var ErrNotFound = errors.New("transaction not found")

// Ports for outbound adapters.
type (
	// TransactionLister returns every stored transaction, newest date first.
	// Records without a date come last; equal dates are ordered by creation
	// time, newest first, then by id.
	TransactionLister interface {
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
	}

	TransactionReader interface {
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	}

	// TransactionWriter mutates the store. CreateTransaction assigns the id
	// and ignores any id set on t. UpdateTransaction replaces every
	// user-editable field of the record with the given id.
	TransactionWriter interface {
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, id string, t core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id string) error
	}

	Repository interface {
		TransactionLister
		TransactionReader
		TransactionWriter
	}

	// Mirror is a secondary copy of the store kept up to date by the sync
	// worker. PutTransaction inserts or overwrites by id. DeleteTransaction
	// may return ErrNotFound, which callers treat as already deleted.
	Mirror interface {
		PutTransaction(ctx context.Context, t core.Transaction) error
		DeleteTransaction(ctx context.Context, id string) error
		ReplaceAll(ctx context.Context, txs []core.Transaction) error
	}

	// Pinger is implemented by stores that can report their readiness.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)
