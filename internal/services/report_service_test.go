package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"fluxo/internal/core"
)

func seedLedger(t *testing.T, store *faultyStore) {
	t.Helper()
	ctx := context.Background()
	txs := []core.Transaction{
		{ID: "t1", Description: "Sale", Amount: amount("100"), Flow: core.Inflow, Date: core.NewDate(2024, 5, 1)},
		{ID: "t2", Description: "Rent", Amount: amount("40"), Flow: core.Outflow, Date: core.NewDate(2024, 5, 3)},
		{ID: "t3", Description: "Sale", Amount: amount("60"), Flow: core.Inflow, Date: core.NewDate(2024, 4, 28)},
	}
	for _, tx := range txs {
		if err := store.Store.InsertTransaction(ctx, tx); err != nil {
			t.Fatal(err)
		}
	}
	bills := []core.Bill{
		{ID: "b1", Description: "Power", Amount: amount("20"), Flow: core.Outflow, DueDate: core.NewDate(2024, 5, 2), Status: core.StatusPending},
		{ID: "b2", Description: "Water", Amount: amount("15"), Flow: core.Outflow, DueDate: core.NewDate(2024, 5, 17), Status: core.StatusPending},
		{ID: "b3", Description: "Phone", Amount: amount("30"), Flow: core.Outflow, DueDate: core.NewDate(2024, 5, 18), Status: core.StatusPending},
		{ID: "b4", Description: "Client", Amount: amount("300"), Flow: core.Inflow, DueDate: core.NewDate(2024, 5, 12), Status: core.StatusPending},
	}
	if err := store.Store.InsertBills(ctx, bills); err != nil {
		t.Fatal(err)
	}
}

func TestReportServiceCashFlow(t *testing.T) {
	store := newFaultyStore()
	seedLedger(t, store)
	svc := NewReportService(store, testOptions()...)

	res, err := svc.CashFlow(context.Background(), core.DateRange{Start: core.NewDate(2024, 5, 1), End: core.NewDate(2024, 5, 3)})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %+v", res.Rows)
	}
	if !res.RealizedBalance.Equal(amount("60")) || !res.ProjectedBalance().Equal(amount("40")) {
		t.Fatalf("realized %s projected %s", res.RealizedBalance, res.ProjectedBalance())
	}
}

func TestReportServiceRejectsInvertedRange(t *testing.T) {
	store := newFaultyStore()
	store.failList = errBackend
	svc := NewReportService(store, testOptions()...)
	_, err := svc.CashFlow(context.Background(), core.DateRange{Start: core.NewDate(2024, 5, 3), End: core.NewDate(2024, 5, 1)})
	if !core.IsValidation(err) {
		t.Fatalf("expected validation error before any fetch, got %v", err)
	}
}

func TestReportServiceStoreFailureIsNotEmpty(t *testing.T) {
	store := newFaultyStore()
	seedLedger(t, store)
	store.failList = errBackend
	svc := NewReportService(store, testOptions()...)
	ctx := context.Background()
	may := core.YearMonth{Year: 2024, Month: time.May}

	if _, err := svc.CashFlow(ctx, may.Range()); !errors.Is(err, errBackend) {
		t.Errorf("cash flow: expected backend error, got %v", err)
	}
	if _, err := svc.Report(ctx, may.Range()); !errors.Is(err, errBackend) {
		t.Errorf("report: expected backend error, got %v", err)
	}
	if _, err := svc.BillsReport(ctx, may); !errors.Is(err, errBackend) {
		t.Errorf("bills report: expected backend error, got %v", err)
	}
	var se *StoreError
	if _, err := svc.Summary(ctx); !errors.As(err, &se) {
		t.Errorf("summary: expected StoreError, got %v", err)
	}
}

func TestReportServiceReport(t *testing.T) {
	store := newFaultyStore()
	seedLedger(t, store)
	svc := NewReportService(store, testOptions()...)

	rep, err := svc.Report(context.Background(), core.DateRange{Start: core.NewDate(2024, 4, 1), End: core.NewDate(2024, 5, 31)})
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Groups) != 2 || !rep.Net().Equal(amount("120")) {
		t.Fatalf("unexpected report %+v net %s", rep.Groups, rep.Net())
	}
}

func TestReportServiceSummary(t *testing.T) {
	store := newFaultyStore()
	seedLedger(t, store)
	svc := NewReportService(store, testOptions()...) // today is 2024-05-10

	s, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !s.Income.Equal(amount("100")) || !s.Expense.Equal(amount("40")) {
		t.Fatalf("income %s expense %s", s.Income, s.Expense)
	}
	if len(s.Overdue) != 1 || s.Overdue[0].ID != "b1" {
		t.Fatalf("unexpected overdue %+v", s.Overdue)
	}
	// b2 is due in exactly 7 days, b3 in 8.
	if len(s.Upcoming) != 2 || s.Upcoming[0].ID != "b4" || s.Upcoming[1].ID != "b2" {
		t.Fatalf("unexpected upcoming %+v", s.Upcoming)
	}
}

func TestReportServiceBillsReport(t *testing.T) {
	store := newFaultyStore()
	seedLedger(t, store)
	svc := NewReportService(store, testOptions()...)

	rep, err := svc.BillsReport(context.Background(), core.YearMonth{Year: 2024, Month: time.May})
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Bills) != 4 || rep.Bills[0].ID != "b1" {
		t.Fatalf("unexpected bills %+v", rep.Bills)
	}
	if !rep.Balance().Equal(amount("235")) {
		t.Fatalf("balance %s, want 235", rep.Balance())
	}
}
