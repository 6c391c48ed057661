package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db      DBTX
	dialect Dialect
}

func New(db DBTX, d Dialect) *Queries {
	return &Queries{db: db, dialect: d}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx, dialect: q.dialect}
}

// TransactionRow mirrors a row of the transactions table.
type TransactionRow struct {
	ID           string
	Description  string
	AmountCents  int64
	VatCents     int64
	NetCents     int64
	Type         string
	Date         dbDate
	SourceBillID sql.NullString
	CreatedAt    dbTime
}

// BillRow mirrors a row of the bills table.
type BillRow struct {
	ID          string
	Description string
	AmountCents int64
	VatCents    int64
	NetCents    int64
	NoVat       bool
	Type        string
	DueDate     dbDate
	Status      string
	CreatedAt   dbTime
}

const transactionColumns = `id, description, amount_cents, vat_cents, net_cents, type, date, source_bill_id, created_at`

const billColumns = `id, description, amount_cents, vat_cents, net_cents, no_vat, type, due_date, status, created_at`

func scanTransaction(s interface{ Scan(...interface{}) error }) (TransactionRow, error) {
	var r TransactionRow
	err := s.Scan(&r.ID, &r.Description, &r.AmountCents, &r.VatCents, &r.NetCents,
		&r.Type, &r.Date, &r.SourceBillID, &r.CreatedAt)
	return r, err
}

func scanBill(s interface{ Scan(...interface{}) error }) (BillRow, error) {
	var r BillRow
	err := s.Scan(&r.ID, &r.Description, &r.AmountCents, &r.VatCents, &r.NetCents,
		&r.NoVat, &r.Type, &r.DueDate, &r.Status, &r.CreatedAt)
	return r, err
}

const createTransaction = `INSERT INTO transactions (` + transactionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, r TransactionRow) error {
	_, err := q.db.ExecContext(ctx, q.dialect.rebind(createTransaction),
		r.ID, r.Description, r.AmountCents, r.VatCents, r.NetCents,
		r.Type, r.Date, r.SourceBillID, r.CreatedAt)
	return err
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id string) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, q.dialect.rebind(getTransaction), id)
	return scanTransaction(row)
}

const getTransactionBySourceBill = `SELECT ` + transactionColumns + ` FROM transactions WHERE source_bill_id = ?`

func (q *Queries) GetTransactionBySourceBill(ctx context.Context, billID string) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, q.dialect.rebind(getTransactionBySourceBill), billID)
	return scanTransaction(row)
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, q.dialect.rebind(deleteTransaction), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type ListTransactionsParams struct {
	From        string
	To          string
	Type        string
	SettledOnly bool
	Desc        bool
	Limit       int
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]TransactionRow, error) {
	var (
		where []string
		args  []interface{}
	)
	if arg.From != "" {
		where = append(where, "date >= ?")
		args = append(args, arg.From)
	}
	if arg.To != "" {
		where = append(where, "date <= ?")
		args = append(args, arg.To)
	}
	if arg.Type != "" {
		where = append(where, "type = ?")
		args = append(args, arg.Type)
	}
	if arg.SettledOnly {
		where = append(where, "source_bill_id IS NOT NULL")
	}
	query := buildSelect("SELECT "+transactionColumns+" FROM transactions", where,
		"date", "created_at, id", arg.Desc, arg.Limit, &args)

	rows, err := q.db.QueryContext(ctx, q.dialect.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		r, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const createBill = `INSERT INTO bills (` + billColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateBill(ctx context.Context, r BillRow) error {
	_, err := q.db.ExecContext(ctx, q.dialect.rebind(createBill),
		r.ID, r.Description, r.AmountCents, r.VatCents, r.NetCents,
		r.NoVat, r.Type, r.DueDate, r.Status, r.CreatedAt)
	return err
}

const getBill = `SELECT ` + billColumns + ` FROM bills WHERE id = ?`

func (q *Queries) GetBill(ctx context.Context, id string) (BillRow, error) {
	row := q.db.QueryRowContext(ctx, q.dialect.rebind(getBill), id)
	return scanBill(row)
}

const updateBill = `UPDATE bills
SET description = ?, amount_cents = ?, vat_cents = ?, net_cents = ?, no_vat = ?, type = ?, due_date = ?, status = ?
WHERE id = ?`

func (q *Queries) UpdateBill(ctx context.Context, r BillRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, q.dialect.rebind(updateBill),
		r.Description, r.AmountCents, r.VatCents, r.NetCents, r.NoVat,
		r.Type, r.DueDate, r.Status, r.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteBill = `DELETE FROM bills WHERE id = ?`

func (q *Queries) DeleteBill(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, q.dialect.rebind(deleteBill), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type ListBillsParams struct {
	From     string
	To       string
	Type     string
	Statuses []string
	Desc     bool
	Limit    int
}

func (q *Queries) ListBills(ctx context.Context, arg ListBillsParams) ([]BillRow, error) {
	var (
		where []string
		args  []interface{}
	)
	if arg.From != "" {
		where = append(where, "due_date >= ?")
		args = append(args, arg.From)
	}
	if arg.To != "" {
		where = append(where, "due_date <= ?")
		args = append(args, arg.To)
	}
	if arg.Type != "" {
		where = append(where, "type = ?")
		args = append(args, arg.Type)
	}
	if len(arg.Statuses) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(arg.Statuses)), ", ")
		where = append(where, "status IN ("+marks+")")
		for _, s := range arg.Statuses {
			args = append(args, s)
		}
	}
	query := buildSelect("SELECT "+billColumns+" FROM bills", where,
		"due_date", "created_at, id", arg.Desc, arg.Limit, &args)

	rows, err := q.db.QueryContext(ctx, q.dialect.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BillRow
	for rows.Next() {
		r, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

func buildSelect(base string, where []string, orderCol, tieBreak string, desc bool, limit int, args *[]interface{}) string {
	var b strings.Builder
	b.WriteString(base)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	fmt.Fprintf(&b, " ORDER BY %s %s, %s", orderCol, dir, tieBreak)
	if limit > 0 {
		b.WriteString(" LIMIT ?")
		*args = append(*args, limit)
	}
	return b.String()
}

// dbDate is a calendar date stored as YYYY-MM-DD text (SQLite) or DATE (PostgreSQL).
type dbDate struct {
	time.Time
}

func (d *dbDate) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		y, m, day := v.Date()
		d.Time = time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	}
	return fmt.Errorf("cannot scan %T into date", src)
}

func (d *dbDate) parse(s string) error {
	if len(s) > len(time.DateOnly) {
		s = s[:len(time.DateOnly)]
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

func (d dbDate) Value() (driver.Value, error) {
	return d.Format(time.DateOnly), nil
}

// dbTime is a timestamp stored as RFC 3339 text (SQLite) or TIMESTAMPTZ (PostgreSQL).
type dbTime struct {
	time.Time
}

func (t *dbTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into timestamp", src)
}

func (t *dbTime) parse(s string) error {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	t.Time = parsed.UTC()
	return nil
}

func (t dbTime) Value() (driver.Value, error) {
	return t.UTC().Format(time.RFC3339Nano), nil
}
