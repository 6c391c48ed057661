package core

import "testing"

func TestCashFlow(t *testing.T) {
	txs := []Transaction{
		{Date: NewDate(2024, 5, 1), Flow: Inflow, Amount: dec("100")},
		{Date: NewDate(2024, 5, 3), Flow: Outflow, Amount: dec("40")},
		{Date: NewDate(2024, 6, 1), Flow: Inflow, Amount: dec("999")}, // out of range
	}
	bills := []Bill{
		{DueDate: NewDate(2024, 5, 2), Flow: Outflow, Amount: dec("20"), Status: StatusPending},
		{DueDate: NewDate(2024, 5, 2), Flow: Outflow, Amount: dec("500"), Status: StatusPaid},
	}
	rng := DateRange{Start: NewDate(2024, 5, 1), End: NewDate(2024, 5, 3)}

	got := CashFlow(txs, bills, rng)

	want := []struct {
		date    Date
		series  Series
		balance string
	}{
		{NewDate(2024, 5, 1), Realized, "100"},
		{NewDate(2024, 5, 2), Forecast, "80"},
		{NewDate(2024, 5, 3), Realized, "40"},
	}
	if len(got.Rows) != len(want) {
		t.Fatalf("expected %d rows, got %d: %+v", len(want), len(got.Rows), got.Rows)
	}
	for i, w := range want {
		r := got.Rows[i]
		if !r.Date.Equal(w.date) || r.Series != w.series || !r.Balance.Equal(dec(w.balance)) {
			t.Errorf("row %d = %s/%s/%s, want %s/%s/%s", i, r.Date, r.Series, r.Balance, w.date, w.series, w.balance)
		}
	}
	if !got.RealizedBalance.Equal(dec("60")) {
		t.Errorf("realized balance %s, want 60", got.RealizedBalance)
	}
	if !got.ForecastBalance.Equal(dec("-20")) {
		t.Errorf("forecast balance %s, want -20", got.ForecastBalance)
	}
	if !got.ProjectedBalance().Equal(dec("40")) {
		t.Errorf("projected balance %s, want 40", got.ProjectedBalance())
	}
}

func TestCashFlowSameDateRealizedFirst(t *testing.T) {
	day := NewDate(2024, 5, 2)
	txs := []Transaction{
		{Date: day, Flow: Inflow, Amount: dec("10")},
		{Date: day, Flow: Outflow, Amount: dec("3")},
	}
	bills := []Bill{
		{DueDate: day, Flow: Inflow, Amount: dec("5"), Status: StatusPending},
		{DueDate: day, Flow: Outflow, Amount: dec("1"), Status: StatusOverdue},
	}
	got := CashFlow(txs, bills, DateRange{Start: day, End: day})
	if len(got.Rows) != 2 {
		t.Fatalf("expected one row per series, got %d", len(got.Rows))
	}
	if got.Rows[0].Series != Realized || got.Rows[1].Series != Forecast {
		t.Fatalf("expected realized before forecast, got %s then %s", got.Rows[0].Series, got.Rows[1].Series)
	}
	if !got.Rows[0].Inflow.Equal(dec("10")) || !got.Rows[0].Outflow.Equal(dec("3")) {
		t.Errorf("realized bucket totals wrong: %+v", got.Rows[0])
	}
	if !got.Rows[1].Balance.Equal(dec("12")) {
		t.Errorf("final balance %s, want 12", got.Rows[1].Balance)
	}
}

func TestCashFlowIgnoresStoredOverdue(t *testing.T) {
	bills := []Bill{{DueDate: NewDate(2024, 5, 2), Flow: Outflow, Amount: dec("50"), Status: StatusOverdue}}
	got := CashFlow(nil, bills, DateRange{Start: NewDate(2024, 5, 1), End: NewDate(2024, 5, 3)})
	if len(got.Rows) != 0 || !got.ForecastBalance.IsZero() {
		t.Fatalf("atrasado bill must not be forecast, got %+v", got)
	}
}

func TestCashFlowEmpty(t *testing.T) {
	got := CashFlow(nil, nil, DateRange{Start: NewDate(2024, 1, 1), End: NewDate(2024, 1, 31)})
	if len(got.Rows) != 0 || !got.ProjectedBalance().IsZero() {
		t.Fatalf("expected empty result, got %+v", got)
	}
}

func TestDateRangeValidate(t *testing.T) {
	if err := (DateRange{Start: NewDate(2024, 2, 1), End: NewDate(2024, 1, 1)}).Validate(); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := (DateRange{Start: NewDate(2024, 1, 1), End: NewDate(2024, 1, 1)}).Validate(); err != nil {
		t.Fatalf("single-day range should be valid: %v", err)
	}
}
