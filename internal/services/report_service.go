package services

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"fluxo/internal/core"
	"fluxo/internal/ledger"
)

// ReportService fetches the records a view needs and runs the aggregators.
// Nothing is aggregated unless every fetch succeeded.
type ReportService struct {
	store ledger.Ledger
	opts  options
}

func NewReportService(store ledger.Ledger, opts ...Option) *ReportService {
	return &ReportService{store: store, opts: buildOptions(opts)}
}

// Today reports the current calendar date in the configured zone.
func (s *ReportService) Today() core.Date { return s.opts.today() }

// CashFlow returns realized and forecast buckets for rng.
func (s *ReportService) CashFlow(ctx context.Context, rng core.DateRange) (core.CashFlowResult, error) {
	if err := rng.Validate(); err != nil {
		return core.CashFlowResult{}, err
	}
	start := time.Now()

	txs, bills, err := s.fetchBoth(ctx,
		ledger.TransactionQuery{From: rng.Start, To: rng.End},
		ledger.BillQuery{From: rng.Start, To: rng.End, Statuses: ledger.ForecastStatuses},
	)
	if err != nil {
		return core.CashFlowResult{}, err
	}

	res := core.CashFlow(txs, bills, rng)
	slog.DebugContext(ctx, "Cash flow aggregated",
		"from", rng.Start.String(),
		"to", rng.End.String(),
		"rows", len(res.Rows),
		"duration_ms", time.Since(start).Milliseconds())
	return res, nil
}

// Report groups the transactions of rng by description and flow.
func (s *ReportService) Report(ctx context.Context, rng core.DateRange) (core.Report, error) {
	if err := rng.Validate(); err != nil {
		return core.Report{}, err
	}
	txs, err := s.store.ListTransactions(ctx, ledger.TransactionQuery{From: rng.Start, To: rng.End})
	if err != nil {
		return core.Report{}, storeErr("transactions report", err)
	}
	return core.GroupReport(txs, rng), nil
}

// BillsReport lists the pendente bills due in month with their totals.
func (s *ReportService) BillsReport(ctx context.Context, month core.YearMonth) (core.BillsReport, error) {
	rng := month.Range()
	bills, err := s.store.ListBills(ctx, ledger.BillQuery{
		From:     rng.Start,
		To:       rng.End,
		Statuses: ledger.ForecastStatuses,
	})
	if err != nil {
		return core.BillsReport{}, storeErr("bills report", err)
	}
	return core.MonthBills(bills, month), nil
}

// Summary builds the dashboard view for today.
func (s *ReportService) Summary(ctx context.Context) (core.Summary, error) {
	return s.SummaryAt(ctx, s.opts.today())
}

// SummaryAt builds the dashboard view as seen on today.
func (s *ReportService) SummaryAt(ctx context.Context, today core.Date) (core.Summary, error) {
	month := today.YearMonth().Range()
	txs, bills, err := s.fetchBoth(ctx,
		ledger.TransactionQuery{From: month.Start, To: month.End},
		ledger.BillQuery{To: today.AddDays(core.UpcomingWindowDays), Statuses: ledger.ForecastStatuses},
	)
	if err != nil {
		return core.Summary{}, err
	}
	return core.Summarize(txs, bills, today), nil
}

func (s *ReportService) fetchBoth(ctx context.Context, tq ledger.TransactionQuery, bq ledger.BillQuery) ([]core.Transaction, []core.Bill, error) {
	var (
		txs   []core.Transaction
		bills []core.Bill
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = s.store.ListTransactions(gctx, tq)
		return storeErr("list transactions", err)
	})
	g.Go(func() error {
		var err error
		bills, err = s.store.ListBills(gctx, bq)
		return storeErr("list bills", err)
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return txs, bills, nil
}
