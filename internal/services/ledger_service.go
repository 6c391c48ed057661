package services

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"fluxo/internal/core"
	"fluxo/internal/ledger"
	"fluxo/internal/log"
)

// DefaultTransactionPage is the first page size of the transaction list.
const DefaultTransactionPage = 20

// TransactionInput is a new movement entered by the user.
type TransactionInput struct {
	Description string
	Amount      decimal.Decimal
	NoVAT       bool
	Flow        core.Flow
	// Date defaults to today when zero.
	Date core.Date
}

// LedgerService records realized transactions and announces them.
type LedgerService struct {
	store  ledger.TransactionStore
	events EventPublisher
	opts   options
	logger *log.StructuredLogger
}

func NewLedgerService(store ledger.TransactionStore, events EventPublisher, opts ...Option) *LedgerService {
	return &LedgerService{
		store:  store,
		events: events,
		opts:   buildOptions(opts),
		logger: componentLogger(log.ComponentLedger),
	}
}

// Record validates the input, splits VAT, stores the transaction and
// publishes a transaction.recorded event. A failed publish is logged and
// does not fail the call.
func (s *LedgerService) Record(ctx context.Context, in TransactionInput) (core.Transaction, error) {
	date := in.Date
	if date.IsZero() {
		date = s.opts.today()
	}
	t := core.Transaction{
		ID:          s.opts.newID(),
		Description: in.Description,
		Amount:      in.Amount,
		Flow:        in.Flow,
		Date:        date,
		CreatedAt:   s.opts.now().UTC(),
	}
	if err := t.ApplyVAT(in.NoVAT); err != nil {
		return core.Transaction{}, err
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if err := s.store.InsertTransaction(ctx, t); err != nil {
		return core.Transaction{}, storeErr("record transaction", err)
	}
	s.logger.LogTransactionRecorded(ctx, t.ID, t.Description, t.Amount.StringFixed(2), string(t.Flow))

	if s.events == nil {
		slog.WarnContext(ctx, "Event publisher not available, skipping transaction event", "transaction_id", t.ID)
		return t, nil
	}
	if err := s.events.PublishTransactionRecorded(ctx, t.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event", "transaction_id", t.ID, "error", err)
	}
	return t, nil
}

// Get returns one transaction, or core.ErrNotFound.
func (s *LedgerService) Get(ctx context.Context, id string) (core.Transaction, error) {
	t, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, storeErr("get transaction", err)
	}
	return t, nil
}

// List returns the newest transactions first. limit <= 0 uses the default page.
func (s *LedgerService) List(ctx context.Context, q ledger.TransactionQuery) (Page[core.Transaction], error) {
	if q.Limit <= 0 {
		q.Limit = DefaultTransactionPage
	}
	limit := q.Limit
	q.Limit++
	q.Order = ledger.Descending

	items, err := s.store.ListTransactions(ctx, q)
	if err != nil {
		return Page[core.Transaction]{}, storeErr("list transactions", err)
	}
	return pageOf(items, limit), nil
}

// Today reports the current calendar date in the configured zone.
func (s *LedgerService) Today() core.Date { return s.opts.today() }
