package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"finance/internal/amqp"
	"finance/internal/core"
	"finance/internal/store"
	"finance/internal/store/memory"
)

type failingMirror struct {
	store.Mirror
	err error
}

func (f failingMirror) PutTransaction(context.Context, core.Transaction) error { return f.err }

type sliceConsumer struct {
	events []*amqp.TransactionEvent
	errs   []error
}

func (s *sliceConsumer) ConsumeTransactionEvents(ctx context.Context, handler func(context.Context, *amqp.TransactionEvent) error) error {
	for _, ev := range s.events {
		s.errs = append(s.errs, handler(ctx, ev))
	}
	<-ctx.Done()
	return ctx.Err()
}

func seedSource(t *testing.T) (*memory.Store, core.Transaction) {
	t.Helper()
	src := memory.New()
	created, err := src.CreateTransaction(context.Background(), core.Transaction{
		Text: "Lương", Amount: 1000, Type: core.Income, Date: core.NewDate(2024, 1, 1),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return src, created
}

func TestHandleEventUpsertsAndDeletes(t *testing.T) {
	ctx := context.Background()
	src, created := seedSource(t)
	mirror := memory.New()
	w := NewSyncWorker(src, mirror, 0)

	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent(created.ID, amqp.OpCreated)); err != nil {
		t.Fatalf("created: %v", err)
	}
	got, err := mirror.GetTransaction(ctx, created.ID)
	if err != nil || got.Text != "Lương" {
		t.Fatalf("mirror after create: %+v err=%v", got, err)
	}

	if _, err := src.UpdateTransaction(ctx, created.ID, core.Transaction{Text: "Thưởng", Amount: 5, Type: core.Income}); err != nil {
		t.Fatalf("update source: %v", err)
	}
	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent(created.ID, amqp.OpUpdated)); err != nil {
		t.Fatalf("updated: %v", err)
	}
	if got, _ := mirror.GetTransaction(ctx, created.ID); got.Text != "Thưởng" || mirror.Len() != 1 {
		t.Fatalf("mirror after update: %+v len=%d", got, mirror.Len())
	}

	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent(created.ID, amqp.OpDeleted)); err != nil {
		t.Fatalf("deleted: %v", err)
	}
	if mirror.Len() != 0 {
		t.Fatalf("mirror should be empty after delete")
	}
	// Deleting again is not an error.
	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent(created.ID, amqp.OpDeleted)); err != nil {
		t.Fatalf("repeated delete: %v", err)
	}
}

func TestHandleEventMissingSourceRecordDeletes(t *testing.T) {
	ctx := context.Background()
	mirror := memory.New(core.Transaction{ID: "stale"})
	w := NewSyncWorker(memory.New(), mirror, 0)

	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent("stale", amqp.OpUpdated)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if mirror.Len() != 0 {
		t.Fatalf("stale record should be removed from mirror")
	}
}

func TestHandleEventReturnsMirrorErrors(t *testing.T) {
	src, created := seedSource(t)
	w := NewSyncWorker(src, failingMirror{Mirror: memory.New(), err: errors.New("quota exceeded")}, 0)
	if err := w.HandleEvent(context.Background(), amqp.NewTransactionEvent(created.ID, amqp.OpCreated)); err == nil {
		t.Fatal("mirror failure should be returned so the event is requeued")
	}
}

func TestReconcileReplacesMirror(t *testing.T) {
	ctx := context.Background()
	src, created := seedSource(t)
	mirror := memory.New(core.Transaction{ID: "orphan"})
	w := NewSyncWorker(src, mirror, 0)

	if err := w.Reconcile(ctx); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if mirror.Len() != 1 {
		t.Fatalf("mirror len = %d, want 1", mirror.Len())
	}
	if _, err := mirror.GetTransaction(ctx, created.ID); err != nil {
		t.Fatalf("source record missing from mirror: %v", err)
	}
}

func TestRunConsumesUntilCancelled(t *testing.T) {
	src, created := seedSource(t)
	mirror := memory.New()
	w := NewSyncWorker(src, mirror, time.Hour)
	consumer := &sliceConsumer{events: []*amqp.TransactionEvent{
		amqp.NewTransactionEvent(created.ID, amqp.OpCreated),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, consumer) }()

	deadline := time.After(2 * time.Second)
	for mirror.Len() == 0 {
		select {
		case <-deadline:
			t.Fatal("worker never mirrored the record")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v after cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
