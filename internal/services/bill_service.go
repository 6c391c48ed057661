package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"fluxo/internal/core"
	"fluxo/internal/ledger"
	"fluxo/internal/log"
)

// DefaultBillPage is the first page size of the bill list.
const DefaultBillPage = 3

// BillInput holds the editable fields of a bill.
type BillInput struct {
	Description string
	Amount      decimal.Decimal
	NoVAT       bool
	Flow        core.Flow
	DueDate     core.Date
}

// BillService manages the lifecycle of bills up to their settlement.
type BillService struct {
	store  ledger.Ledger
	events EventPublisher
	opts   options
	logger *log.StructuredLogger
}

func NewBillService(store ledger.Ledger, events EventPublisher, opts ...Option) *BillService {
	return &BillService{
		store:  store,
		events: events,
		opts:   buildOptions(opts),
		logger: componentLogger(log.ComponentBills),
	}
}

// Today is the calendar day the service classifies and settles against.
func (s *BillService) Today() core.Date { return s.opts.today() }

func (s *BillService) Create(ctx context.Context, in BillInput) (core.Bill, error) {
	b := core.Bill{
		ID:        s.opts.newID(),
		Status:    core.StatusPending,
		CreatedAt: s.opts.now().UTC(),
	}
	if err := in.apply(&b); err != nil {
		return core.Bill{}, err
	}
	if err := s.store.InsertBills(ctx, []core.Bill{b}); err != nil {
		return core.Bill{}, storeErr("create bill", err)
	}
	slog.InfoContext(ctx, "Bill created", "bill_id", b.ID, "due_date", b.DueDate.String(), "amount", b.Amount.StringFixed(2))
	return b, nil
}

// CreateRecurring expands rule into one bill per month and stores them in a
// single call. An empty expansion stores nothing.
func (s *BillService) CreateRecurring(ctx context.Context, rule core.RecurrenceRule) ([]core.Bill, error) {
	bills, err := core.ExpandMonthly(rule, s.opts.now().UTC())
	if err != nil {
		return nil, err
	}
	for i := range bills {
		bills[i].ID = s.opts.newID()
		if err := bills[i].Validate(); err != nil {
			return nil, err
		}
	}
	if len(bills) == 0 {
		slog.InfoContext(ctx, "Recurrence produced no bills", "start", rule.Start.String(), "end", rule.End.String())
		return []core.Bill{}, nil
	}
	if err := s.store.InsertBills(ctx, bills); err != nil {
		return nil, storeErr("create recurring bills", err)
	}
	slog.InfoContext(ctx, "Recurring bills created",
		"count", len(bills),
		"day", rule.Day,
		"start", rule.Start.String(),
		"end", rule.End.String())
	return bills, nil
}

func (s *BillService) Get(ctx context.Context, id string) (core.Bill, error) {
	b, err := s.store.GetBill(ctx, id)
	if err != nil {
		return core.Bill{}, storeErr("get bill", err)
	}
	return b, nil
}

// Update replaces the editable fields of a pending bill and recomputes VAT.
func (s *BillService) Update(ctx context.Context, id string, in BillInput) (core.Bill, error) {
	if err := in.validate(); err != nil {
		return core.Bill{}, err
	}
	b, err := s.store.GetBill(ctx, id)
	if err != nil {
		return core.Bill{}, storeErr("update bill", err)
	}
	if !b.IsPending() {
		return core.Bill{}, core.ErrNotPending
	}
	if err := in.apply(&b); err != nil {
		return core.Bill{}, err
	}
	if err := s.store.UpdateBill(ctx, b); err != nil {
		return core.Bill{}, storeErr("update bill", err)
	}
	return b, nil
}

// Delete removes a pending bill.
func (s *BillService) Delete(ctx context.Context, id string) error {
	b, err := s.store.GetBill(ctx, id)
	if err != nil {
		return storeErr("delete bill", err)
	}
	if !b.IsPending() {
		return core.ErrNotPending
	}
	if err := s.store.DeleteBill(ctx, id); err != nil {
		return storeErr("delete bill", err)
	}
	return nil
}

// List returns bills by due date ascending. limit <= 0 uses the default page.
func (s *BillService) List(ctx context.Context, q ledger.BillQuery) (Page[core.Bill], error) {
	if q.Limit <= 0 {
		q.Limit = DefaultBillPage
	}
	limit := q.Limit
	q.Limit++
	q.Order = ledger.Ascending

	items, err := s.store.ListBills(ctx, q)
	if err != nil {
		return Page[core.Bill]{}, storeErr("list bills", err)
	}
	return pageOf(items, limit), nil
}

// Settle turns a pending bill into a transaction dated today and removes
// the bill, so the bill is realized exactly once. A bill that was already
// settled yields core.ErrNotFound.
//
// Stores implementing ledger.Settler (SQL and memory) do this atomically.
// Otherwise the transaction is inserted first with the bill as its source
// and the bill is deleted second; if the delete fails the transaction is
// removed again, and if that also fails a *PartialSettlementError is
// returned. A retry after a partial failure finds the existing transaction
// and finishes the job.
func (s *BillService) Settle(ctx context.Context, id string) (core.Transaction, error) {
	paidOn := s.opts.today()
	build := func(b core.Bill) core.Transaction {
		return b.Settle(s.opts.newID(), paidOn, s.opts.now().UTC())
	}

	var (
		t   core.Transaction
		err error
	)
	if settler, ok := s.store.(ledger.Settler); ok {
		t, err = settler.SettleBill(ctx, id, build)
		if err != nil {
			return core.Transaction{}, storeErr("settle bill", err)
		}
	} else {
		t, err = s.settleTwoStep(ctx, id, build)
		if err != nil {
			return core.Transaction{}, err
		}
	}

	s.logger.LogBillSettled(ctx, id, t.ID, t.Amount.StringFixed(2))
	if s.events == nil {
		return t, nil
	}
	if err := s.events.PublishBillSettled(ctx, id, t.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish settlement event", "bill_id", id, "transaction_id", t.ID, "error", err)
	}
	return t, nil
}

func (s *BillService) settleTwoStep(ctx context.Context, id string, build func(core.Bill) core.Transaction) (core.Transaction, error) {
	b, err := s.store.GetBill(ctx, id)
	if err != nil {
		return core.Transaction{}, storeErr("settle bill", err)
	}
	if !b.IsPending() {
		return core.Transaction{}, core.ErrNotPending
	}

	t := build(b)
	if err := s.store.InsertTransaction(ctx, t); err != nil {
		if errors.Is(err, core.ErrConflict) {
			return s.finishSettlement(ctx, id)
		}
		return core.Transaction{}, storeErr("settle bill", err)
	}

	if err := s.store.DeleteBill(ctx, id); err != nil {
		if errors.Is(err, core.ErrNotFound) && s.ownsSettlement(ctx, id, t.ID) {
			// A concurrent attempt removed the bill after our insert and
			// returned this same transaction.
			return t, nil
		}
		if cerr := s.store.DeleteTransaction(ctx, t.ID); cerr != nil {
			s.logger.LogError(ctx, "Settlement left an orphan bill", cerr, log.ErrorTypePartial, log.ComponentBills, log.OpSettle)
			return core.Transaction{}, &PartialSettlementError{BillID: id, TransactionID: t.ID, Err: err, CompensationErr: cerr}
		}
		slog.WarnContext(ctx, "Settlement rolled back", "bill_id", id, "transaction_id", t.ID, "error", err)
		return core.Transaction{}, storeErr("settle bill", err)
	}
	return t, nil
}

// ownsSettlement reports whether txID is the recorded settlement of bill id.
func (s *BillService) ownsSettlement(ctx context.Context, id, txID string) bool {
	t, err := s.store.FindTransactionBySourceBill(ctx, id)
	return err == nil && t.ID == txID
}

// finishSettlement completes an earlier attempt that recorded the
// transaction but left the bill behind.
func (s *BillService) finishSettlement(ctx context.Context, id string) (core.Transaction, error) {
	t, err := s.store.FindTransactionBySourceBill(ctx, id)
	if err != nil {
		return core.Transaction{}, storeErr("settle bill", err)
	}
	if err := s.store.DeleteBill(ctx, id); err != nil && !errors.Is(err, core.ErrNotFound) {
		return core.Transaction{}, storeErr("settle bill", err)
	}
	slog.InfoContext(ctx, "Completed earlier partial settlement", "bill_id", id, "transaction_id", t.ID)
	return t, nil
}

func (in BillInput) validate() error {
	probe := core.Bill{
		Description: in.Description,
		Amount:      in.Amount,
		Flow:        in.Flow,
		DueDate:     in.DueDate,
		Status:      core.StatusPending,
	}
	return probe.Validate()
}

func (in BillInput) apply(b *core.Bill) error {
	if err := in.validate(); err != nil {
		return err
	}
	b.Description = in.Description
	b.Amount = in.Amount
	b.NoVAT = in.NoVAT
	b.Flow = in.Flow
	b.DueDate = in.DueDate
	return b.ApplyVAT()
}
