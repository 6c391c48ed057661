package core

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Series distinguishes recorded money from money projected by pending bills.
type Series string

const (
	Realized Series = "realized"
	Forecast Series = "forecast"
)

// DateRange is a closed interval of calendar dates.
type DateRange struct {
	Start Date
	End   Date
}

func (r DateRange) Validate() error {
	if err := r.Start.Validate(); err != nil {
		return &ValidationError{Field: "from", Err: err}
	}
	if err := r.End.Validate(); err != nil {
		return &ValidationError{Field: "to", Err: err}
	}
	if r.Start.After(r.End) {
		return &ValidationError{Field: "from", Err: fmt.Errorf("%w: %s after %s", ErrInvalidRange, r.Start, r.End)}
	}
	return nil
}

// Contains reports whether start <= d <= end.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// CashFlowRow is the total of one (date, series) bucket and the running
// balance after it.
type CashFlowRow struct {
	Date    Date
	Series  Series
	Inflow  decimal.Decimal
	Outflow decimal.Decimal
	Balance decimal.Decimal
}

// Net is inflow minus outflow for the bucket.
func (r CashFlowRow) Net() decimal.Decimal { return r.Inflow.Sub(r.Outflow) }

type CashFlowResult struct {
	Range           DateRange
	Rows            []CashFlowRow
	RealizedBalance decimal.Decimal
	ForecastBalance decimal.Decimal
}

// ProjectedBalance is the realized balance plus what pending bills would add.
func (c CashFlowResult) ProjectedBalance() decimal.Decimal {
	return c.RealizedBalance.Add(c.ForecastBalance)
}

type bucketKey struct {
	date   Date
	series Series
}

// CashFlow buckets transactions (realized) and pending bills (forecast) in
// rng by date, one row per date and series with activity. Rows are ordered
// by date; on the same date the realized row precedes the forecast row.
func CashFlow(txs []Transaction, bills []Bill, rng DateRange) CashFlowResult {
	buckets := make(map[bucketKey]*CashFlowRow)
	add := func(d Date, s Series, f Flow, amount decimal.Decimal) {
		k := bucketKey{date: d, series: s}
		row, ok := buckets[k]
		if !ok {
			row = &CashFlowRow{Date: d, Series: s}
			buckets[k] = row
		}
		switch f {
		case Inflow:
			row.Inflow = row.Inflow.Add(amount)
		case Outflow:
			row.Outflow = row.Outflow.Add(amount)
		}
	}

	for _, t := range txs {
		if rng.Contains(t.Date) {
			add(t.Date, Realized, t.Flow, t.Amount)
		}
	}
	for _, b := range bills {
		if b.Status == StatusPending && rng.Contains(b.DueDate) {
			add(b.DueDate, Forecast, b.Flow, b.Amount)
		}
	}

	out := CashFlowResult{Range: rng, Rows: make([]CashFlowRow, 0, len(buckets))}
	for _, row := range buckets {
		out.Rows = append(out.Rows, *row)
	}
	sort.SliceStable(out.Rows, func(i, j int) bool {
		a, b := out.Rows[i], out.Rows[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.Series == Realized && b.Series == Forecast
	})

	running := decimal.Zero
	for i := range out.Rows {
		net := out.Rows[i].Net()
		running = running.Add(net)
		out.Rows[i].Balance = running
		if out.Rows[i].Series == Realized {
			out.RealizedBalance = out.RealizedBalance.Add(net)
		} else {
			out.ForecastBalance = out.ForecastBalance.Add(net)
		}
	}
	return out
}
