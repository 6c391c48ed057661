package services

import (
	"context"
	"errors"
	"testing"

	"fluxo/internal/core"
	"fluxo/internal/ledger"
)

func TestLedgerServiceRecord(t *testing.T) {
	store := newFaultyStore()
	pub := &fakePublisher{}
	svc := NewLedgerService(store, pub, testOptions()...)

	tx, err := svc.Record(context.Background(), TransactionInput{
		Description: "Consulting",
		Amount:      amount("121"),
		Flow:        core.Inflow,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !tx.Date.Equal(core.NewDate(2024, 5, 10)) {
		t.Errorf("expected today's date, got %s", tx.Date)
	}
	if !tx.VAT.Equal(amount("25.41")) || !tx.NetAmount.Equal(amount("95.59")) {
		t.Errorf("unexpected split vat %s net %s", tx.VAT, tx.NetAmount)
	}
	if len(pub.events) != 1 || pub.events[0].txID != tx.ID {
		t.Errorf("expected one transaction event, got %+v", pub.events)
	}
}

func TestLedgerServiceRecordValidatesBeforeStore(t *testing.T) {
	store := newFaultyStore()
	svc := NewLedgerService(store, nil, testOptions()...)

	cases := []TransactionInput{
		{Description: "", Amount: amount("1"), Flow: core.Inflow},
		{Description: "x", Amount: amount("0"), Flow: core.Inflow},
		{Description: "x", Amount: amount("-5"), Flow: core.Inflow},
		{Description: "x", Amount: amount("5"), Flow: "sideways"},
	}
	for i, in := range cases {
		if _, err := svc.Record(context.Background(), in); !core.IsValidation(err) {
			t.Errorf("case %d: expected validation error, got %v", i, err)
		}
	}
	if store.insertTxCalls != 0 {
		t.Fatalf("store was called %d times for invalid input", store.insertTxCalls)
	}
}

func TestLedgerServicePublishFailureDoesNotFail(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewLedgerService(newFaultyStore(), pub, testOptions()...)
	if _, err := svc.Record(context.Background(), TransactionInput{
		Description: "Sale", Amount: amount("10"), Flow: core.Inflow,
	}); err != nil {
		t.Fatalf("publish failure should not fail the call: %v", err)
	}
}

func TestLedgerServiceListPages(t *testing.T) {
	store := newFaultyStore()
	svc := NewLedgerService(store, nil, testOptions()...)
	ctx := context.Background()
	for day := 1; day <= 5; day++ {
		if _, err := svc.Record(ctx, TransactionInput{
			Description: "Sale", Amount: amount("1"), Flow: core.Inflow, Date: core.NewDate(2024, 5, day),
		}); err != nil {
			t.Fatal(err)
		}
	}

	page, err := svc.List(ctx, ledger.TransactionQuery{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 2 || !page.HasMore {
		t.Fatalf("expected 2 items with more, got %d more=%v", len(page.Items), page.HasMore)
	}
	if !page.Items[0].Date.Equal(core.NewDate(2024, 5, 5)) {
		t.Errorf("expected newest first, got %s", page.Items[0].Date)
	}

	page, err = svc.List(ctx, ledger.TransactionQuery{Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 5 || page.HasMore {
		t.Fatalf("expected full list without more, got %d more=%v", len(page.Items), page.HasMore)
	}
}

func TestLedgerServiceListSurfacesStoreError(t *testing.T) {
	store := newFaultyStore()
	store.failList = errBackend
	svc := NewLedgerService(store, nil, testOptions()...)

	_, err := svc.List(context.Background(), ledger.TransactionQuery{})
	var se *StoreError
	if !errors.As(err, &se) || !errors.Is(err, errBackend) {
		t.Fatalf("expected StoreError wrapping backend error, got %v", err)
	}
}
