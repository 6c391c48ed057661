package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fluxo/internal/amqp"
	"fluxo/internal/core"
	"fluxo/internal/ledger/memory"
	"fluxo/internal/services"
	sheetsmem "fluxo/internal/sheets/memory"
)

func seed(t *testing.T, store *memory.Store, id string, day int, source string) core.Transaction {
	t.Helper()
	tx := core.Transaction{
		ID:           id,
		Description:  "Movement " + id,
		Amount:       decimal.RequireFromString("121"),
		Flow:         core.Outflow,
		Date:         core.NewDate(2024, 5, day),
		SourceBillID: source,
	}
	if err := tx.ApplyVAT(false); err != nil {
		t.Fatal(err)
	}
	if err := store.InsertTransaction(context.Background(), tx); err != nil {
		t.Fatal(err)
	}
	return tx
}

type failingMirror struct{ err error }

func (f failingMirror) AppendTransaction(context.Context, core.Transaction) (string, error) {
	return "", f.err
}

type countingReconciler struct {
	mu    sync.Mutex
	calls []core.Date
}

func (c *countingReconciler) Run(_ context.Context, since core.Date) (services.ReconcileResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, since)
	return services.ReconcileResult{Checked: 1}, nil
}

func (c *countingReconciler) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func TestHandleEvent(t *testing.T) {
	store := memory.New()
	mirror := sheetsmem.New()
	w := NewMirrorWorker(store, mirror, nil, 10)
	ctx := context.Background()

	seed(t, store, "t1", 1, "")
	seed(t, store, "t2", 2, "bill-9")

	if err := w.HandleEvent(ctx, amqp.NewTransactionRecorded("t1")); err != nil {
		t.Fatal(err)
	}
	if err := w.HandleEvent(ctx, amqp.NewBillSettled("bill-9", "t2")); err != nil {
		t.Fatal(err)
	}
	// Redelivery must not duplicate rows.
	if err := w.HandleEvent(ctx, amqp.NewTransactionRecorded("t1")); err != nil {
		t.Fatal(err)
	}

	rows := mirror.Rows()
	if len(rows) != 2 || rows[0].ID != "t1" || rows[1].ID != "t2" {
		t.Fatalf("unexpected mirror rows %+v", rows)
	}
}

func TestHandleEventMissingTransactionIsPermanent(t *testing.T) {
	w := NewMirrorWorker(memory.New(), sheetsmem.New(), nil, 10)
	err := w.HandleEvent(context.Background(), amqp.NewTransactionRecorded("ghost"))
	if !errors.Is(err, amqp.ErrPermanent) {
		t.Fatalf("expected ErrPermanent, got %v", err)
	}
}

func TestHandleEventMirrorFailureIsRetryable(t *testing.T) {
	store := memory.New()
	seed(t, store, "t1", 1, "")
	boom := errors.New("sheets unavailable")
	w := NewMirrorWorker(store, failingMirror{err: boom}, nil, 10)

	err := w.HandleEvent(context.Background(), amqp.NewTransactionRecorded("t1"))
	if !errors.Is(err, boom) || errors.Is(err, amqp.ErrPermanent) {
		t.Fatalf("expected retryable mirror error, got %v", err)
	}
}

func TestBackfill(t *testing.T) {
	store := memory.New()
	mirror := sheetsmem.New()
	w := NewMirrorWorker(store, mirror, nil, 2)
	ctx := context.Background()

	seed(t, store, "old", 1, "")
	seed(t, store, "mid", 5, "")
	seed(t, store, "new", 9, "")

	n, err := w.Backfill(ctx, core.NewDate(2024, 5, 2))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 synced, got %d", n)
	}
	rows := mirror.Rows()
	if len(rows) != 2 || rows[0].ID != "mid" || rows[1].ID != "new" {
		t.Fatalf("unexpected backfill order %+v", rows)
	}

	failing := NewMirrorWorker(store, failingMirror{err: errors.New("down")}, nil, 10)
	if _, err := failing.Backfill(ctx, core.Date{}); err == nil {
		t.Fatal("expected backfill error")
	}
}

func TestRunReconcileLoop(t *testing.T) {
	rec := &countingReconciler{}
	w := NewMirrorWorker(memory.New(), sheetsmem.New(), rec, 10)
	now := func() time.Time { return time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.RunReconcileLoop(ctx, 5*time.Millisecond, 30, now)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for rec.count() < 2 {
		select {
		case <-deadline:
			t.Fatal("reconciler not called")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if !rec.calls[0].Equal(core.NewDate(2024, 4, 10)) {
		t.Fatalf("unexpected lookback start %s", rec.calls[0])
	}
}
