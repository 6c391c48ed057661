package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fluxo/internal/core"
	"fluxo/internal/ledger"
	"fluxo/internal/log"
)

// ReconcileResult summarises one reconciliation pass.
type ReconcileResult struct {
	Checked  int
	Repaired int
}

// Reconciler removes bills that already have a settlement transaction,
// which is what a settlement interrupted between its two steps leaves behind.
type Reconciler struct {
	store  ledger.Ledger
	logger *log.StructuredLogger
}

func NewReconciler(store ledger.Ledger) *Reconciler {
	return &Reconciler{store: store, logger: componentLogger(log.ComponentReconciler)}
}

// Run checks settlement transactions dated on or after since (all of them
// when since is zero). Failures on single bills are collected and returned
// together after the pass.
func (r *Reconciler) Run(ctx context.Context, since core.Date) (ReconcileResult, error) {
	var res ReconcileResult
	txs, err := r.store.ListTransactions(ctx, ledger.TransactionQuery{From: since, SettledOnly: true})
	if err != nil {
		return res, storeErr("reconcile", err)
	}

	var errs []error
	for _, t := range txs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Checked++
		b, err := r.store.GetBill(ctx, t.SourceBillID)
		if errors.Is(err, core.ErrNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("bill %s: %w", t.SourceBillID, err))
			continue
		}
		if err := r.store.DeleteBill(ctx, b.ID); err != nil && !errors.Is(err, core.ErrNotFound) {
			r.logger.LogError(ctx, "Failed to remove settled bill", err, log.ErrorTypeDatabase, log.ComponentReconciler, log.OpReconcile)
			errs = append(errs, fmt.Errorf("bill %s: %w", b.ID, err))
			continue
		}
		res.Repaired++
		slog.InfoContext(ctx, "Removed bill left by interrupted settlement",
			"bill_id", b.ID,
			"transaction_id", t.ID)
	}
	if len(errs) > 0 {
		return res, storeErr("reconcile", errors.Join(errs...))
	}
	return res, nil
}
