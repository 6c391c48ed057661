package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// UpcomingWindowDays is how far ahead a pending bill counts as upcoming.
const UpcomingWindowDays = 7

// Summary is the dashboard view for a given day.
type Summary struct {
	Today    Date
	Month    YearMonth
	Income   decimal.Decimal
	Expense  decimal.Decimal
	Upcoming []Bill
	Overdue  []Bill
}

func (s Summary) Balance() decimal.Decimal { return s.Income.Sub(s.Expense) }

// Summarize totals this month's transactions and picks out the pendente bills
// due in [today, today+7] (upcoming) and before today (overdue). A bill lands
// in at most one list.
func Summarize(txs []Transaction, bills []Bill, today Date) Summary {
	s := Summary{
		Today:    today,
		Month:    today.YearMonth(),
		Upcoming: []Bill{},
		Overdue:  []Bill{},
	}
	month := s.Month.Range()
	for _, t := range txs {
		if !month.Contains(t.Date) {
			continue
		}
		switch t.Flow {
		case Inflow:
			s.Income = s.Income.Add(t.Amount)
		case Outflow:
			s.Expense = s.Expense.Add(t.Amount)
		}
	}

	window := DateRange{Start: today, End: today.AddDays(UpcomingWindowDays)}
	for _, b := range bills {
		if b.Status != StatusPending {
			continue
		}
		switch {
		case b.DueDate.Before(today):
			s.Overdue = append(s.Overdue, b)
		case window.Contains(b.DueDate):
			s.Upcoming = append(s.Upcoming, b)
		}
	}
	byDue := func(list []Bill) {
		sort.SliceStable(list, func(i, j int) bool { return list[i].DueDate.Before(list[j].DueDate) })
	}
	byDue(s.Upcoming)
	byDue(s.Overdue)
	return s
}
