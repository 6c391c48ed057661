package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"fluxo/internal/core"
	"fluxo/internal/ledger"
	"fluxo/internal/ledger/memory"
)

var testNow = time.Date(2024, 5, 10, 14, 30, 0, 0, time.UTC)

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testOptions() []Option {
	n := 0
	var mu sync.Mutex
	return []Option{
		WithClock(func() time.Time { return testNow }),
		WithLocation(time.UTC),
		WithIDGenerator(func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("id-%d", n)
		}),
	}
}

// faultyStore wraps the memory store and fails chosen operations. It embeds
// the port rather than the concrete store so settlement takes the two-step
// path.
type faultyStore struct {
	ledger.Store
	failList         error
	failDeleteBill   error
	failDeleteTx     error
	deleteBillCalls  int
	deleteTxCalls    int
	insertTxCalls    int
	insertBillsCalls int
}

func newFaultyStore() *faultyStore {
	return &faultyStore{Store: memory.New()}
}

func (f *faultyStore) InsertTransaction(ctx context.Context, t core.Transaction) error {
	f.insertTxCalls++
	return f.Store.InsertTransaction(ctx, t)
}

func (f *faultyStore) InsertBills(ctx context.Context, bills []core.Bill) error {
	f.insertBillsCalls++
	return f.Store.InsertBills(ctx, bills)
}

func (f *faultyStore) DeleteBill(ctx context.Context, id string) error {
	f.deleteBillCalls++
	if f.failDeleteBill != nil {
		return f.failDeleteBill
	}
	return f.Store.DeleteBill(ctx, id)
}

func (f *faultyStore) DeleteTransaction(ctx context.Context, id string) error {
	f.deleteTxCalls++
	if f.failDeleteTx != nil {
		return f.failDeleteTx
	}
	return f.Store.DeleteTransaction(ctx, id)
}

func (f *faultyStore) ListTransactions(ctx context.Context, q ledger.TransactionQuery) ([]core.Transaction, error) {
	if f.failList != nil {
		return nil, f.failList
	}
	return f.Store.ListTransactions(ctx, q)
}

func (f *faultyStore) ListBills(ctx context.Context, q ledger.BillQuery) ([]core.Bill, error) {
	if f.failList != nil {
		return nil, f.failList
	}
	return f.Store.ListBills(ctx, q)
}

// atomicStore counts calls to the memory store's Settler.
type atomicStore struct {
	*memory.Store
	mu    sync.Mutex
	calls int
}

func (a *atomicStore) SettleBill(ctx context.Context, id string, build func(core.Bill) core.Transaction) (core.Transaction, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	return a.Store.SettleBill(ctx, id, build)
}

// gatedDeleteStore blocks the first DeleteBill until release is closed.
type gatedDeleteStore struct {
	ledger.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedDeleteStore() *gatedDeleteStore {
	return &gatedDeleteStore{Store: memory.New(), entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedDeleteStore) DeleteBill(ctx context.Context, id string) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.Store.DeleteBill(ctx, id)
}

type recordedEvent struct {
	kind   string
	billID string
	txID   string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (p *fakePublisher) PublishTransactionRecorded(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{kind: "transaction.recorded", txID: id})
	return p.err
}

func (p *fakePublisher) PublishBillSettled(_ context.Context, billID, txID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{kind: "bill.settled", billID: billID, txID: txID})
	return p.err
}

var errBackend = errors.New("backend unavailable")
