package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"fluxo/internal/core"
	"fluxo/internal/ledger"
)

// Repository is the SQL ledger store. It supports atomic settlement.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	queries *Queries
}

var (
	_ ledger.Store   = (*Repository)(nil)
	_ ledger.Settler = (*Repository)(nil)
)

// NewSQLiteRepository opens (creating if needed) the SQLite database at dbPath
// and applies migrations.
func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(SQLite, dbPath+"?_pragma=busy_timeout(5000)")
}

// NewPostgresRepository connects to the PostgreSQL database at dsn and
// applies migrations.
func NewPostgresRepository(dsn string) (*Repository, error) {
	return open(Postgres, dsn)
}

func open(d Dialect, dsn string) (*Repository, error) {
	db, err := sql.Open(d.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(d, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, dialect: d, queries: New(db, d)}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) InsertTransaction(ctx context.Context, t core.Transaction) error {
	if err := r.queries.CreateTransaction(ctx, transactionToRow(t)); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert transaction %s: %w", t.ID, core.ErrConflict)
		}
		return fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"description", t.Description,
		"amount", t.Amount.StringFixed(2),
		"flow", t.Flow,
		"date", t.Date.String())
	return nil
}

func (r *Repository) ListTransactions(ctx context.Context, q ledger.TransactionQuery) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, ListTransactionsParams{
		From:        q.From.String(),
		To:          q.To.String(),
		Type:        string(q.Flow),
		SettledOnly: q.SettledOnly,
		Desc:        q.Order == ledger.Descending,
		Limit:       q.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, transactionFromRow(row))
	}
	return out, nil
}

func (r *Repository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return transactionFromRow(row), nil
}

func (r *Repository) FindTransactionBySourceBill(ctx context.Context, billID string) (core.Transaction, error) {
	row, err := r.queries.GetTransactionBySourceBill(ctx, billID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("settlement of bill %s: %w", billID, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get settlement of bill %s: %w", billID, err)
	}
	return transactionFromRow(row), nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, id string) error {
	n, err := r.queries.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return nil
}

// InsertBills stores all bills in one database transaction.
func (r *Repository) InsertBills(ctx context.Context, bills []core.Bill) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	for _, b := range bills {
		if err := qtx.CreateBill(ctx, billToRow(b)); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("insert bill %s: %w", b.ID, core.ErrConflict)
			}
			return fmt.Errorf("insert bill: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bills: %w", err)
	}

	slog.InfoContext(ctx, "Bills saved", "count", len(bills))
	return nil
}

func (r *Repository) GetBill(ctx context.Context, id string) (core.Bill, error) {
	row, err := r.queries.GetBill(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Bill{}, fmt.Errorf("bill %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Bill{}, fmt.Errorf("get bill %s: %w", id, err)
	}
	return billFromRow(row), nil
}

func (r *Repository) UpdateBill(ctx context.Context, b core.Bill) error {
	n, err := r.queries.UpdateBill(ctx, billToRow(b))
	if err != nil {
		return fmt.Errorf("update bill %s: %w", b.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("bill %s: %w", b.ID, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Bill updated", "id", b.ID, "due_date", b.DueDate.String())
	return nil
}

func (r *Repository) DeleteBill(ctx context.Context, id string) error {
	n, err := r.queries.DeleteBill(ctx, id)
	if err != nil {
		return fmt.Errorf("delete bill %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("bill %s: %w", id, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Bill deleted", "id", id)
	return nil
}

func (r *Repository) ListBills(ctx context.Context, q ledger.BillQuery) ([]core.Bill, error) {
	statuses := make([]string, len(q.Statuses))
	for i, s := range q.Statuses {
		statuses[i] = string(s)
	}
	rows, err := r.queries.ListBills(ctx, ListBillsParams{
		From:     q.From.String(),
		To:       q.To.String(),
		Type:     string(q.Flow),
		Statuses: statuses,
		Desc:     q.Order == ledger.Descending,
		Limit:    q.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	out := make([]core.Bill, 0, len(rows))
	for _, row := range rows {
		out = append(out, billFromRow(row))
	}
	return out, nil
}

// SettleBill inserts the settlement transaction and deletes the bill in a
// single database transaction. A bill that no longer exists yields
// core.ErrNotFound; a concurrent settlement loses on the unique source bill
// index and yields core.ErrConflict.
func (r *Repository) SettleBill(ctx context.Context, billID string, build func(core.Bill) core.Transaction) (core.Transaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	row, err := qtx.GetBill(ctx, billID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("bill %s: %w", billID, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get bill %s: %w", billID, err)
	}
	bill := billFromRow(row)
	if !bill.IsPending() {
		return core.Transaction{}, fmt.Errorf("bill %s: %w", billID, core.ErrNotPending)
	}

	t := build(bill)
	if err := qtx.CreateTransaction(ctx, transactionToRow(t)); err != nil {
		if isUniqueViolation(err) {
			return core.Transaction{}, fmt.Errorf("bill %s already settled: %w", billID, core.ErrConflict)
		}
		return core.Transaction{}, fmt.Errorf("insert settlement: %w", err)
	}
	n, err := qtx.DeleteBill(ctx, billID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("delete settled bill: %w", err)
	}
	if n == 0 {
		return core.Transaction{}, fmt.Errorf("bill %s: %w", billID, core.ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit settlement: %w", err)
	}

	slog.InfoContext(ctx, "Bill settled",
		"bill_id", billID,
		"transaction_id", t.ID,
		"amount", t.Amount.StringFixed(2))
	return t, nil
}

func transactionToRow(t core.Transaction) TransactionRow {
	return TransactionRow{
		ID:           t.ID,
		Description:  t.Description,
		AmountCents:  core.Cents(t.Amount),
		VatCents:     core.Cents(t.VAT),
		NetCents:     core.Cents(t.NetAmount),
		Type:         string(t.Flow),
		Date:         dbDate{Time: t.Date.Time},
		SourceBillID: sql.NullString{String: t.SourceBillID, Valid: t.SourceBillID != ""},
		CreatedAt:    dbTime{Time: t.CreatedAt},
	}
}

func transactionFromRow(r TransactionRow) core.Transaction {
	return core.Transaction{
		ID:           r.ID,
		Description:  r.Description,
		Amount:       core.FromCents(r.AmountCents),
		VAT:          core.FromCents(r.VatCents),
		NetAmount:    core.FromCents(r.NetCents),
		Flow:         core.Flow(r.Type),
		Date:         core.Date{Time: r.Date.Time},
		SourceBillID: r.SourceBillID.String,
		CreatedAt:    r.CreatedAt.Time,
	}
}

func billToRow(b core.Bill) BillRow {
	return BillRow{
		ID:          b.ID,
		Description: b.Description,
		AmountCents: core.Cents(b.Amount),
		VatCents:    core.Cents(b.VAT),
		NetCents:    core.Cents(b.NetAmount),
		NoVat:       b.NoVAT,
		Type:        string(b.Flow),
		DueDate:     dbDate{Time: b.DueDate.Time},
		Status:      string(b.Status),
		CreatedAt:   dbTime{Time: b.CreatedAt},
	}
}

func billFromRow(r BillRow) core.Bill {
	return core.Bill{
		ID:          r.ID,
		Description: r.Description,
		Amount:      core.FromCents(r.AmountCents),
		VAT:         core.FromCents(r.VatCents),
		NetAmount:   core.FromCents(r.NetCents),
		NoVAT:       r.NoVat,
		Flow:        core.Flow(r.Type),
		DueDate:     core.Date{Time: r.DueDate.Time},
		Status:      core.BillStatus(r.Status),
		CreatedAt:   r.CreatedAt.Time,
	}
}
