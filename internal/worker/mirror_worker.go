package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fluxo/internal/amqp"
	"fluxo/internal/core"
	"fluxo/internal/ledger"
	"fluxo/internal/services"
	"fluxo/internal/sheets"
)

// Reconciler is the part of services.Reconciler the worker drives.
type Reconciler interface {
	Run(ctx context.Context, since core.Date) (services.ReconcileResult, error)
}

// MirrorWorker copies realized transactions into the spreadsheet mirror and
// periodically repairs interrupted settlements.
type MirrorWorker struct {
	store      ledger.TransactionStore
	mirror     sheets.LedgerMirror
	reconciler Reconciler
	batchSize  int
}

func NewMirrorWorker(store ledger.TransactionStore, mirror sheets.LedgerMirror, reconciler Reconciler, batchSize int) *MirrorWorker {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &MirrorWorker{
		store:      store,
		mirror:     mirror,
		reconciler: reconciler,
		batchSize:  batchSize,
	}
}

// HandleEvent mirrors the transaction an event refers to. Events for
// transactions that no longer exist fail with amqp.ErrPermanent.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"type", ev.Type,
		"transaction_id", ev.TransactionID,
		"bill_id", ev.BillID)

	t, err := w.lookup(ctx, ev)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Dropping event for missing transaction",
			"type", ev.Type,
			"transaction_id", ev.TransactionID)
		return fmt.Errorf("%w: %v", amqp.ErrPermanent, err)
	}
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}

	ref, err := w.mirror.AppendTransaction(ctx, t)
	if err != nil {
		return fmt.Errorf("mirror transaction %s: %w", t.ID, err)
	}

	slog.InfoContext(ctx, "Transaction mirrored",
		"transaction_id", t.ID,
		"row", ref)
	return nil
}

func (w *MirrorWorker) lookup(ctx context.Context, ev *amqp.LedgerEvent) (core.Transaction, error) {
	if ev.Type == amqp.EventBillSettled && ev.BillID != "" {
		return w.store.FindTransactionBySourceBill(ctx, ev.BillID)
	}
	return w.store.GetTransaction(ctx, ev.TransactionID)
}

// Backfill mirrors the most recent transactions dated on or after since. It
// recovers events lost while the worker was down; the mirror skips rows it
// already holds.
func (w *MirrorWorker) Backfill(ctx context.Context, since core.Date) (int, error) {
	txs, err := w.store.ListTransactions(ctx, ledger.TransactionQuery{
		From:  since,
		Order: ledger.Descending,
		Limit: w.batchSize,
	})
	if err != nil {
		return 0, fmt.Errorf("list transactions for backfill: %w", err)
	}
	if len(txs) == 0 {
		slog.InfoContext(ctx, "No transactions to backfill")
		return 0, nil
	}

	synced, failed := 0, 0
	// Oldest first so the sheet keeps chronological order.
	for i := len(txs) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		if _, err := w.mirror.AppendTransaction(ctx, txs[i]); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror transaction during backfill",
				"transaction_id", txs[i].ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Backfill completed",
		"total", len(txs),
		"synced", synced,
		"errors", failed)
	if failed > 0 {
		return synced, fmt.Errorf("backfill: %d of %d transactions failed", failed, len(txs))
	}
	return synced, nil
}

// RunReconcileLoop runs a reconciliation pass every interval until ctx is
// done. Each pass looks back lookback days from now.
func (w *MirrorWorker) RunReconcileLoop(ctx context.Context, interval time.Duration, lookback int, now func() time.Time) {
	if w.reconciler == nil || interval <= 0 {
		return
	}
	if now == nil {
		now = time.Now
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Reconcile loop stopped")
			return
		case <-ticker.C:
			w.reconcileOnce(ctx, core.DateOf(now()).AddDays(-lookback))
		}
	}
}

func (w *MirrorWorker) reconcileOnce(ctx context.Context, since core.Date) {
	res, err := w.reconciler.Run(ctx, since)
	if err != nil {
		slog.ErrorContext(ctx, "Reconciliation failed",
			"since", since.String(),
			"checked", res.Checked,
			"repaired", res.Repaired,
			"error", err)
		return
	}
	if res.Repaired > 0 {
		slog.InfoContext(ctx, "Reconciliation repaired bills",
			"checked", res.Checked,
			"repaired", res.Repaired)
	}
}
