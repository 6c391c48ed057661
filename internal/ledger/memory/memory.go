// Package memory is an in-process ledger store used for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fluxo/internal/core"
	"fluxo/internal/ledger"
)

type Store struct {
	mu    sync.Mutex
	txs   []core.Transaction
	bills map[string]core.Bill
}

var (
	_ ledger.Store   = (*Store)(nil)
	_ ledger.Settler = (*Store)(nil)
)

func New() *Store {
	return &Store{bills: make(map[string]core.Bill)}
}

// InsertTransaction stores the transaction, enforcing one settlement per bill.
func (s *Store) InsertTransaction(_ context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.txs {
		if existing.ID == t.ID {
			return fmt.Errorf("transaction %s: %w", t.ID, core.ErrConflict)
		}
		if t.SourceBillID != "" && existing.SourceBillID == t.SourceBillID {
			return fmt.Errorf("bill %s already settled: %w", t.SourceBillID, core.ErrConflict)
		}
	}
	s.txs = append(s.txs, t)
	return nil
}

func (s *Store) ListTransactions(_ context.Context, q ledger.TransactionQuery) ([]core.Transaction, error) {
	s.mu.Lock()
	out := make([]core.Transaction, 0, len(s.txs))
	for _, t := range s.txs {
		if q.Matches(t) {
			out = append(out, t)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if q.Order == ledger.Descending {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Date.Before(out[j].Date)
	})
	return limit(out, q.Limit), nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.txs {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
}

func (s *Store) FindTransactionBySourceBill(_ context.Context, billID string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.txs {
		if t.SourceBillID == billID {
			return t, nil
		}
	}
	return core.Transaction{}, fmt.Errorf("settlement of bill %s: %w", billID, core.ErrNotFound)
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.txs {
		if t.ID == id {
			s.txs = append(s.txs[:i], s.txs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
}

func (s *Store) InsertBills(_ context.Context, bills []core.Bill) error {
	for _, b := range bills {
		if err := b.Validate(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range bills {
		if _, ok := s.bills[b.ID]; ok {
			return fmt.Errorf("bill %s: %w", b.ID, core.ErrConflict)
		}
	}
	for _, b := range bills {
		s.bills[b.ID] = b
	}
	return nil
}

func (s *Store) GetBill(_ context.Context, id string) (core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bills[id]
	if !ok {
		return core.Bill{}, fmt.Errorf("bill %s: %w", id, core.ErrNotFound)
	}
	return b, nil
}

func (s *Store) UpdateBill(_ context.Context, b core.Bill) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bills[b.ID]; !ok {
		return fmt.Errorf("bill %s: %w", b.ID, core.ErrNotFound)
	}
	s.bills[b.ID] = b
	return nil
}

func (s *Store) DeleteBill(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bills[id]; !ok {
		return fmt.Errorf("bill %s: %w", id, core.ErrNotFound)
	}
	delete(s.bills, id)
	return nil
}

func (s *Store) ListBills(_ context.Context, q ledger.BillQuery) ([]core.Bill, error) {
	s.mu.Lock()
	out := make([]core.Bill, 0, len(s.bills))
	for _, b := range s.bills {
		if q.Matches(b) {
			out = append(out, b)
		}
	}
	s.mu.Unlock()

	// Map iteration is random; break due date ties by creation then id.
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.DueDate.Equal(b.DueDate) {
			if q.Order == ledger.Descending {
				return a.DueDate.After(b.DueDate)
			}
			return a.DueDate.Before(b.DueDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return limit(out, q.Limit), nil
}

// SettleBill records the settlement transaction and removes the bill while
// holding the store lock, so concurrent settlements of one bill cannot
// interleave.
func (s *Store) SettleBill(_ context.Context, billID string, build func(core.Bill) core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bills[billID]
	if !ok {
		return core.Transaction{}, fmt.Errorf("bill %s: %w", billID, core.ErrNotFound)
	}
	if !b.IsPending() {
		return core.Transaction{}, fmt.Errorf("bill %s: %w", billID, core.ErrNotPending)
	}
	t := build(b)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	for _, existing := range s.txs {
		if existing.ID == t.ID || existing.SourceBillID == billID {
			return core.Transaction{}, fmt.Errorf("bill %s already settled: %w", billID, core.ErrConflict)
		}
	}
	s.txs = append(s.txs, t)
	delete(s.bills, billID)
	return t, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}
