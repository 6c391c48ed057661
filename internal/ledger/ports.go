// Package ledger defines the storage ports for transactions and bills and the
// query objects every backend understands.
package ledger

import (
	"context"

	"fluxo/internal/core"
)

type SortOrder int

const (
	Ascending SortOrder = iota
	Descending
)

// TransactionQuery selects transactions by date range and flow. Zero values
// leave a criterion unbounded. Limit 0 returns everything.
type TransactionQuery struct {
	From  core.Date
	To    core.Date
	Flow  core.Flow
	Order SortOrder
	Limit int
	// SettledOnly restricts the result to transactions produced by settling a bill.
	SettledOnly bool
}

// BillQuery selects bills by due date range, flow and status.
type BillQuery struct {
	From     core.Date
	To       core.Date
	Flow     core.Flow
	Statuses []core.BillStatus
	Order    SortOrder
	Limit    int
}

// OpenStatuses are the statuses of bills that have not been settled.
var OpenStatuses = []core.BillStatus{core.StatusPending, core.StatusOverdue}

// ForecastStatuses are the statuses the aggregators count as expected cash.
// A bill stored as atrasado is shown as overdue but no longer forecast.
var ForecastStatuses = []core.BillStatus{core.StatusPending}

// Ports for storage adapters.
type (
	TransactionStore interface {
		// InsertTransaction stores t. It returns core.ErrConflict when another
		// transaction already references t.SourceBillID.
		InsertTransaction(ctx context.Context, t core.Transaction) error
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		ListTransactions(ctx context.Context, q TransactionQuery) ([]core.Transaction, error)
		// FindTransactionBySourceBill returns core.ErrNotFound when the bill
		// has no settlement transaction.
		FindTransactionBySourceBill(ctx context.Context, billID string) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id string) error
	}

	BillStore interface {
		InsertBills(ctx context.Context, bills []core.Bill) error
		GetBill(ctx context.Context, id string) (core.Bill, error)
		UpdateBill(ctx context.Context, b core.Bill) error
		DeleteBill(ctx context.Context, id string) error
		ListBills(ctx context.Context, q BillQuery) ([]core.Bill, error)
	}

	// Ledger is the pair of collections every service works against.
	Ledger interface {
		TransactionStore
		BillStore
	}

	Store interface {
		Ledger
		Ping(ctx context.Context) error
		Close() error
	}

	// Settler is implemented by stores that can turn a bill into a
	// transaction atomically. build receives the stored bill and returns the
	// transaction to insert; the bill is deleted in the same unit of work.
	Settler interface {
		SettleBill(ctx context.Context, billID string, build func(core.Bill) core.Transaction) (core.Transaction, error)
	}
)

// Matches reports whether t satisfies the filters of q (ignoring order and limit).
func (q TransactionQuery) Matches(t core.Transaction) bool {
	if !q.From.IsZero() && t.Date.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && t.Date.After(q.To) {
		return false
	}
	if q.Flow != "" && t.Flow != q.Flow {
		return false
	}
	if q.SettledOnly && t.SourceBillID == "" {
		return false
	}
	return true
}

// Matches reports whether b satisfies the filters of q (ignoring order and limit).
func (q BillQuery) Matches(b core.Bill) bool {
	if !q.From.IsZero() && b.DueDate.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && b.DueDate.After(q.To) {
		return false
	}
	if q.Flow != "" && b.Flow != q.Flow {
		return false
	}
	if len(q.Statuses) > 0 {
		for _, s := range q.Statuses {
			if b.Status == s {
				return true
			}
		}
		return false
	}
	return true
}
