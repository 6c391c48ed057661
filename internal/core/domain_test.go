package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateOfDropsClock(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	got := DateOf(time.Date(2024, 5, 1, 23, 30, 0, 0, loc))
	if !got.Equal(NewDate(2024, 5, 1)) {
		t.Fatalf("expected 2024-05-01, got %s", got)
	}
}

func TestParseFlow(t *testing.T) {
	cases := map[string]Flow{
		"entrada": Inflow,
		"inflow":  Inflow,
		"saida":   Outflow,
		"saída":   Outflow,
		"OUTFLOW": Outflow,
	}
	for in, want := range cases {
		got, err := ParseFlow(in)
		if err != nil || got != want {
			t.Errorf("ParseFlow(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFlow("sideways"); !IsValidation(err) || !errors.Is(err, ErrInvalidFlow) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Description: "Rent",
		Amount:      dec("500"),
		Flow:        Outflow,
		Date:        NewDate(2025, 1, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Description: "", Amount: dec("1"), Flow: Inflow, Date: NewDate(2025, 1, 1)},
		{Description: "a", Amount: dec("0"), Flow: Inflow, Date: NewDate(2025, 1, 1)},
		{Description: "a", Amount: dec("-1"), Flow: Inflow, Date: NewDate(2025, 1, 1)},
		{Description: "a", Amount: dec("1"), Flow: "x", Date: NewDate(2025, 1, 1)},
		{Description: "a", Amount: dec("1"), Flow: Inflow},
	}
	for i, tx := range bads {
		if err := tx.Validate(); !IsValidation(err) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
	}
}

func TestBillSettleCopiesAmounts(t *testing.T) {
	b := Bill{
		ID:          "b1",
		Description: "Internet",
		Amount:      dec("121"),
		VAT:         dec("25.41"),
		NetAmount:   dec("95.59"),
		Flow:        Outflow,
		DueDate:     NewDate(2024, 5, 10),
		Status:      StatusPending,
	}
	now := time.Date(2024, 5, 12, 9, 0, 0, 0, time.UTC)
	tx := b.Settle("t1", DateOf(now), now)
	if tx.SourceBillID != "b1" || tx.ID != "t1" {
		t.Fatalf("unexpected ids: %+v", tx)
	}
	if !tx.Amount.Equal(b.Amount) || !tx.VAT.Equal(b.VAT) || !tx.NetAmount.Equal(b.NetAmount) {
		t.Fatalf("amounts not copied: %+v", tx)
	}
	if !tx.Date.Equal(NewDate(2024, 5, 12)) {
		t.Fatalf("expected settlement date, got %s", tx.Date)
	}
}
