package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"finance/internal/amqp"
	"finance/internal/store"
)

// Source is the authoritative store the worker copies from.
type Source interface {
	store.TransactionLister
	store.TransactionReader
}

// EventConsumer delivers change events until its context ends.
type EventConsumer interface {
	ConsumeTransactionEvents(ctx context.Context, handler func(context.Context, *amqp.TransactionEvent) error) error
}

// SyncWorker keeps a mirror (the Google Sheet) in step with the source store.
type SyncWorker struct {
	source   Source
	mirror   store.Mirror
	interval time.Duration
}

func NewSyncWorker(source Source, mirror store.Mirror, interval time.Duration) *SyncWorker {
	return &SyncWorker{source: source, mirror: mirror, interval: interval}
}

// HandleEvent applies one change event to the mirror. A record that no
// longer exists in the source is removed from the mirror whatever the op.
func (w *SyncWorker) HandleEvent(ctx context.Context, msg *amqp.TransactionEvent) error {
	slog.InfoContext(ctx, "Processing transaction event", "id", msg.ID, "op", msg.Op)

	if msg.Op == amqp.OpDeleted {
		return w.deleteFromMirror(ctx, msg.ID)
	}

	t, err := w.source.GetTransaction(ctx, msg.ID)
	if errors.Is(err, store.ErrNotFound) {
		slog.InfoContext(ctx, "Transaction gone from source, removing from mirror", "id", msg.ID, "op", msg.Op)
		return w.deleteFromMirror(ctx, msg.ID)
	}
	if err != nil {
		return fmt.Errorf("get transaction from source: %w", err)
	}

	if err := w.mirror.PutTransaction(ctx, t); err != nil {
		return fmt.Errorf("put transaction in mirror: %w", err)
	}
	slog.InfoContext(ctx, "Transaction mirrored", "id", t.ID, "op", msg.Op)
	return nil
}

func (w *SyncWorker) deleteFromMirror(ctx context.Context, id string) error {
	err := w.mirror.DeleteTransaction(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("delete transaction from mirror: %w", err)
	}
	slog.InfoContext(ctx, "Transaction removed from mirror", "id", id)
	return nil
}

// Reconcile rewrites the whole mirror from the source list. It recovers
// from lost events and from edits made directly in the mirror.
func (w *SyncWorker) Reconcile(ctx context.Context) error {
	start := time.Now()
	txs, err := w.source.ListTransactions(ctx)
	if err != nil {
		return fmt.Errorf("list source transactions: %w", err)
	}
	if err := w.mirror.ReplaceAll(ctx, txs); err != nil {
		return fmt.Errorf("replace mirror: %w", err)
	}
	slog.InfoContext(ctx, "Mirror reconciled", "count", len(txs), "duration", time.Since(start))
	return nil
}

// Run reconciles once, then consumes events and reconciles every interval
// until ctx is cancelled. A nil consumer runs the periodic reconcile only.
func (w *SyncWorker) Run(ctx context.Context, consumer EventConsumer) error {
	if err := w.Reconcile(ctx); err != nil {
		// Keep going: events and the next tick can still make progress.
		slog.ErrorContext(ctx, "Startup reconcile failed", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if consumer != nil {
		g.Go(func() error {
			return consumer.ConsumeTransactionEvents(gctx, w.HandleEvent)
		})
	} else {
		slog.InfoContext(ctx, "No event consumer configured, relying on periodic reconcile")
	}
	if w.interval > 0 {
		g.Go(func() error {
			return w.reconcileLoop(gctx)
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *SyncWorker) reconcileLoop(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Reconcile(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic reconcile failed", "error", err)
			}
		}
	}
}
