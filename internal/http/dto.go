package http

import (
	"time"

	"github.com/shopspring/decimal"

	"fluxo/internal/core"
	"fluxo/internal/services"
)

// money renders amounts with two decimals so clients never see float noise.
func money(d decimal.Decimal) string { return d.StringFixed(2) }

type transactionJSON struct {
	ID           string    `json:"id"`
	Description  string    `json:"description"`
	Amount       string    `json:"amount"`
	VAT          string    `json:"vat"`
	NetAmount    string    `json:"net_amount"`
	Flow         string    `json:"flow"`
	Date         string    `json:"date"`
	SourceBillID string    `json:"source_bill_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:           t.ID,
		Description:  t.Description,
		Amount:       money(t.Amount),
		VAT:          money(t.VAT),
		NetAmount:    money(t.NetAmount),
		Flow:         t.Flow.Name(),
		Date:         t.Date.String(),
		SourceBillID: t.SourceBillID,
		CreatedAt:    t.CreatedAt,
	}
}

type billJSON struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Amount      string    `json:"amount"`
	VAT         string    `json:"vat"`
	NetAmount   string    `json:"net_amount"`
	NoVAT       bool      `json:"no_vat"`
	Flow        string    `json:"flow"`
	DueDate     string    `json:"due_date"`
	Status      string    `json:"status"`
	Display     string    `json:"display_status"`
	CreatedAt   time.Time `json:"created_at"`
}

func toBillJSON(b core.Bill, today core.Date) billJSON {
	return billJSON{
		ID:          b.ID,
		Description: b.Description,
		Amount:      money(b.Amount),
		VAT:         money(b.VAT),
		NetAmount:   money(b.NetAmount),
		NoVAT:       b.NoVAT,
		Flow:        b.Flow.Name(),
		DueDate:     b.DueDate.String(),
		Status:      string(b.Status),
		Display:     string(b.Display(today)),
		CreatedAt:   b.CreatedAt,
	}
}

func toBillsJSON(bills []core.Bill, today core.Date) []billJSON {
	out := make([]billJSON, 0, len(bills))
	for _, b := range bills {
		out = append(out, toBillJSON(b, today))
	}
	return out
}

type pageJSON[T any] struct {
	Items   []T  `json:"items"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"has_more"`
}

func toPageJSON[S, T any](p services.Page[S], conv func(S) T) pageJSON[T] {
	items := make([]T, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, conv(it))
	}
	return pageJSON[T]{Items: items, Limit: p.Limit, HasMore: p.HasMore}
}

type rangeJSON struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func toRangeJSON(r core.DateRange) rangeJSON {
	return rangeJSON{From: r.Start.String(), To: r.End.String()}
}

type taxSplitJSON struct {
	Gross string `json:"gross"`
	VAT   string `json:"vat"`
	Net   string `json:"net"`
	Rate  string `json:"rate"`
}

type cashFlowRowJSON struct {
	Date    string `json:"date"`
	Series  string `json:"series"`
	Inflow  string `json:"inflow"`
	Outflow string `json:"outflow"`
	Net     string `json:"net"`
	Balance string `json:"balance"`
}

type cashFlowJSON struct {
	Range            rangeJSON         `json:"range"`
	Rows             []cashFlowRowJSON `json:"rows"`
	RealizedBalance  string            `json:"realized_balance"`
	ForecastBalance  string            `json:"forecast_balance"`
	ProjectedBalance string            `json:"projected_balance"`
}

func toCashFlowJSON(c core.CashFlowResult) cashFlowJSON {
	rows := make([]cashFlowRowJSON, 0, len(c.Rows))
	for _, r := range c.Rows {
		rows = append(rows, cashFlowRowJSON{
			Date:    r.Date.String(),
			Series:  string(r.Series),
			Inflow:  money(r.Inflow),
			Outflow: money(r.Outflow),
			Net:     money(r.Net()),
			Balance: money(r.Balance),
		})
	}
	return cashFlowJSON{
		Range:            toRangeJSON(c.Range),
		Rows:             rows,
		RealizedBalance:  money(c.RealizedBalance),
		ForecastBalance:  money(c.ForecastBalance),
		ProjectedBalance: money(c.ProjectedBalance()),
	}
}

type reportGroupJSON struct {
	Description string `json:"description"`
	Flow        string `json:"flow"`
	Total       string `json:"total"`
	Count       int    `json:"count"`
}

type reportJSON struct {
	Range        rangeJSON         `json:"range"`
	Groups       []reportGroupJSON `json:"groups"`
	TotalInflow  string            `json:"total_inflow"`
	TotalOutflow string            `json:"total_outflow"`
	Net          string            `json:"net"`
}

func toReportJSON(r core.Report) reportJSON {
	groups := make([]reportGroupJSON, 0, len(r.Groups))
	for _, g := range r.Groups {
		groups = append(groups, reportGroupJSON{
			Description: g.Description,
			Flow:        g.Flow.Name(),
			Total:       money(g.Total),
			Count:       g.Count,
		})
	}
	return reportJSON{
		Range:        toRangeJSON(r.Range),
		Groups:       groups,
		TotalInflow:  money(r.TotalInflow),
		TotalOutflow: money(r.TotalOutflow),
		Net:          money(r.Net()),
	}
}

type billsReportJSON struct {
	Month        string     `json:"month"`
	Bills        []billJSON `json:"bills"`
	TotalInflow  string     `json:"total_inflow"`
	TotalOutflow string     `json:"total_outflow"`
	Balance      string     `json:"balance"`
}

func toBillsReportJSON(r core.BillsReport, today core.Date) billsReportJSON {
	return billsReportJSON{
		Month:        r.Month.String(),
		Bills:        toBillsJSON(r.Bills, today),
		TotalInflow:  money(r.TotalInflow),
		TotalOutflow: money(r.TotalOutflow),
		Balance:      money(r.Balance()),
	}
}

type summaryJSON struct {
	Today    string     `json:"today"`
	Month    string     `json:"month"`
	Income   string     `json:"income"`
	Expense  string     `json:"expense"`
	Balance  string     `json:"balance"`
	Upcoming []billJSON `json:"upcoming"`
	Overdue  []billJSON `json:"overdue"`
}

func toSummaryJSON(s core.Summary) summaryJSON {
	return summaryJSON{
		Today:    s.Today.String(),
		Month:    s.Month.String(),
		Income:   money(s.Income),
		Expense:  money(s.Expense),
		Balance:  money(s.Balance()),
		Upcoming: toBillsJSON(s.Upcoming, s.Today),
		Overdue:  toBillsJSON(s.Overdue, s.Today),
	}
}
