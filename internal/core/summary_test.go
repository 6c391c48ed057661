package core

import "testing"

func TestSummarize(t *testing.T) {
	today := NewDate(2024, 5, 10)
	txs := []Transaction{
		{Flow: Inflow, Amount: dec("1000"), Date: NewDate(2024, 5, 1)},
		{Flow: Outflow, Amount: dec("250"), Date: NewDate(2024, 5, 9)},
		{Flow: Outflow, Amount: dec("75"), Date: NewDate(2024, 4, 30)}, // previous month
	}
	bills := []Bill{
		{ID: "due7", DueDate: today.AddDays(7), Status: StatusPending},
		{ID: "due8", DueDate: today.AddDays(8), Status: StatusPending},
		{ID: "today", DueDate: today, Status: StatusPending},
		{ID: "late", DueDate: today.AddDays(-1), Status: StatusPending},
		{ID: "paid", DueDate: today.AddDays(-3), Status: StatusPaid},
		{ID: "atrasado", DueDate: today.AddDays(2), Status: StatusOverdue},
	}
	s := Summarize(txs, bills, today)

	if !s.Income.Equal(dec("1000")) || !s.Expense.Equal(dec("250")) || !s.Balance().Equal(dec("750")) {
		t.Errorf("income %s expense %s balance %s", s.Income, s.Expense, s.Balance())
	}
	if ids := billIDs(s.Upcoming); len(ids) != 2 || ids[0] != "today" || ids[1] != "due7" {
		t.Errorf("upcoming = %v, want [today due7]", ids)
	}
	if ids := billIDs(s.Overdue); len(ids) != 1 || ids[0] != "late" {
		t.Errorf("overdue = %v, want [late]", ids)
	}
	seen := map[string]bool{}
	for _, b := range append(s.Upcoming, s.Overdue...) {
		if seen[b.ID] {
			t.Fatalf("bill %s in both lists", b.ID)
		}
		seen[b.ID] = true
	}
}

func billIDs(bills []Bill) []string {
	ids := make([]string, len(bills))
	for i, b := range bills {
		ids[i] = b.ID
	}
	return ids
}
