package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"fluxo/internal/core"
	"fluxo/internal/log"
)

// handleVATPreview splits an amount the same way a stored record would be.
func (s *Server) handleVATPreview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, err := amountField(q.Get("amount")).parse()
	if err != nil {
		s.respondError(w, r, log.OpRead, err)
		return
	}
	noVAT, err := parseBoolParam(q, "no_vat")
	if err != nil {
		s.respondError(w, r, log.OpRead, err)
		return
	}
	split, err := core.SplitVAT(amount, noVAT)
	if err != nil {
		s.respondError(w, r, log.OpRead, err)
		return
	}
	rate := core.VATRate
	if noVAT {
		rate = decimal.Zero
	}
	NewJSONResponse().Data(taxSplitJSON{
		Gross: money(split.Gross),
		VAT:   money(split.VAT),
		Net:   money(split.Net),
		Rate:  rate.StringFixed(2),
	}).Write(w)
}

func (s *Server) handleCashFlow(w http.ResponseWriter, r *http.Request) {
	today := s.reports.Today()
	rng, err := parseRange(r.URL.Query(), today)
	if err != nil {
		s.respondError(w, r, log.OpAggregate, err)
		return
	}
	key := "cashflow|" + rng.Start.String() + "|" + rng.End.String()
	s.cached(w, r, log.OpAggregate, key, func() (any, error) {
		res, err := s.reports.CashFlow(r.Context(), rng)
		if err != nil {
			return nil, err
		}
		return toCashFlowJSON(res), nil
	})
}

func (s *Server) handleTransactionsReport(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r.URL.Query(), s.reports.Today())
	if err != nil {
		s.respondError(w, r, log.OpAggregate, err)
		return
	}
	key := "report|" + rng.Start.String() + "|" + rng.End.String()
	s.cached(w, r, log.OpAggregate, key, func() (any, error) {
		rep, err := s.reports.Report(r.Context(), rng)
		if err != nil {
			return nil, err
		}
		return toReportJSON(rep), nil
	})
}

func (s *Server) handleBillsReport(w http.ResponseWriter, r *http.Request) {
	today := s.reports.Today()
	month, err := parseMonth(r.URL.Query(), "month", today)
	if err != nil {
		s.respondError(w, r, log.OpAggregate, err)
		return
	}
	// Display status depends on today, so today is part of the key.
	key := "bills|" + month.String() + "|" + today.String()
	s.cached(w, r, log.OpAggregate, key, func() (any, error) {
		rep, err := s.reports.BillsReport(r.Context(), month)
		if err != nil {
			return nil, err
		}
		return toBillsReportJSON(rep, today), nil
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	today := s.reports.Today()
	s.cached(w, r, log.OpAggregate, "summary|"+today.String(), func() (any, error) {
		sum, err := s.reports.SummaryAt(r.Context(), today)
		if err != nil {
			return nil, err
		}
		return toSummaryJSON(sum), nil
	})
}
