package core

import "testing"

func TestClassify(t *testing.T) {
	today := NewDate(2024, 5, 10)
	cases := []struct {
		name   string
		status BillStatus
		due    Date
		want   DisplayStatus
	}{
		{"pending yesterday", StatusPending, today.AddDays(-1), DisplayOverdue},
		{"pending today", StatusPending, today, DisplayUpcoming},
		{"pending tomorrow", StatusPending, today.AddDays(1), DisplayUpcoming},
		{"paid long ago", StatusPaid, today.AddDays(-30), DisplayPaid},
		{"paid in future", StatusPaid, today.AddDays(30), DisplayPaid},
		{"stored overdue", StatusOverdue, today.AddDays(2), DisplayOverdue},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.status, tc.due, today); got != tc.want {
				t.Errorf("Classify(%q, %s) = %q, want %q", tc.status, tc.due, got, tc.want)
			}
		})
	}
}
