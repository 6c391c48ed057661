package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ReportGroup is the total of transactions sharing a description and flow.
type ReportGroup struct {
	Description string
	Flow        Flow
	Total       decimal.Decimal
	Count       int
}

type Report struct {
	Range        DateRange
	Groups       []ReportGroup
	TotalInflow  decimal.Decimal
	TotalOutflow decimal.Decimal
}

func (r Report) Net() decimal.Decimal { return r.TotalInflow.Sub(r.TotalOutflow) }

// GroupReport sums transactions in rng by (description, flow). Groups keep
// the order in which they first appear in txs.
func GroupReport(txs []Transaction, rng DateRange) Report {
	type key struct {
		desc string
		flow Flow
	}
	rep := Report{Range: rng}
	index := make(map[key]int)
	for _, t := range txs {
		if !rng.Contains(t.Date) {
			continue
		}
		k := key{desc: t.Description, flow: t.Flow}
		i, ok := index[k]
		if !ok {
			i = len(rep.Groups)
			index[k] = i
			rep.Groups = append(rep.Groups, ReportGroup{Description: t.Description, Flow: t.Flow})
		}
		rep.Groups[i].Total = rep.Groups[i].Total.Add(t.Amount)
		rep.Groups[i].Count++
		switch t.Flow {
		case Inflow:
			rep.TotalInflow = rep.TotalInflow.Add(t.Amount)
		case Outflow:
			rep.TotalOutflow = rep.TotalOutflow.Add(t.Amount)
		}
	}
	return rep
}

// BillsReport lists the pendente bills due in one month.
type BillsReport struct {
	Month        YearMonth
	Bills        []Bill
	TotalInflow  decimal.Decimal
	TotalOutflow decimal.Decimal
}

// Balance is expected inflow minus expected outflow for the month.
func (r BillsReport) Balance() decimal.Decimal { return r.TotalInflow.Sub(r.TotalOutflow) }

// MonthBills builds the bills report for month, ordered by due date.
func MonthBills(bills []Bill, month YearMonth) BillsReport {
	rng := month.Range()
	rep := BillsReport{Month: month, Bills: []Bill{}}
	for _, b := range bills {
		if b.Status != StatusPending || !rng.Contains(b.DueDate) {
			continue
		}
		rep.Bills = append(rep.Bills, b)
		switch b.Flow {
		case Inflow:
			rep.TotalInflow = rep.TotalInflow.Add(b.Amount)
		case Outflow:
			rep.TotalOutflow = rep.TotalOutflow.Add(b.Amount)
		}
	}
	sort.SliceStable(rep.Bills, func(i, j int) bool {
		return rep.Bills[i].DueDate.Before(rep.Bills[j].DueDate)
	})
	return rep
}
