package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Inflow  Flow = "entrada"
	Outflow Flow = "saida"
)

const (
	StatusPending BillStatus = "pendente"
	StatusPaid    BillStatus = "pago"
	StatusOverdue BillStatus = "atrasado"
)

const maxDescriptionLen = 200

type (
	// Flow is the direction of money: received (inflow) or paid out (outflow).
	Flow string

	// BillStatus is the stored status of a bill.
	BillStatus string

	// Date is a calendar date at UTC midnight.
	Date struct {
		time.Time
	}

	Transaction struct {
		ID          string
		Description string
		Amount      decimal.Decimal // gross
		VAT         decimal.Decimal
		NetAmount   decimal.Decimal
		Flow        Flow
		Date        Date
		// SourceBillID is set when the transaction was produced by settling a
		// bill. At most one transaction may reference a given bill.
		SourceBillID string
		CreatedAt    time.Time
	}

	Bill struct {
		ID          string
		Description string
		Amount      decimal.Decimal // gross
		VAT         decimal.Decimal
		NetAmount   decimal.Decimal
		NoVAT       bool
		Flow        Flow
		DueDate     Date
		Status      BillStatus
		CreatedAt   time.Time
	}
)

// ParseFlow accepts the stored values (entrada, saida) and their English names.
func ParseFlow(s string) (Flow, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "entrada", "inflow", "in":
		return Inflow, nil
	case "saida", "saída", "outflow", "out":
		return Outflow, nil
	}
	return "", &ValidationError{Field: "flow", Err: fmt.Errorf("%w: %q", ErrInvalidFlow, s)}
}

func (f Flow) Valid() bool { return f == Inflow || f == Outflow }

// Name returns the English name used by the JSON API.
func (f Flow) Name() string {
	switch f {
	case Inflow:
		return "inflow"
	case Outflow:
		return "outflow"
	}
	return string(f)
}

// Sign applies the flow direction to an amount: inflow positive, outflow negative.
func (f Flow) Sign(amount decimal.Decimal) decimal.Decimal {
	if f == Outflow {
		return amount.Neg()
	}
	return amount
}

func ParseBillStatus(s string) (BillStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pendente", "pending":
		return StatusPending, nil
	case "pago", "paid":
		return StatusPaid, nil
	case "atrasado", "overdue":
		return StatusOverdue, nil
	}
	return "", &ValidationError{Field: "status", Err: fmt.Errorf("%w: %q", ErrInvalidStatus, s)}
}

func (s BillStatus) Valid() bool {
	return s == StatusPending || s == StatusPaid || s == StatusOverdue
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, &ValidationError{Field: "date", Err: fmt.Errorf("%w: %q", ErrInvalidDate, s)}
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

// YearMonth returns the calendar month containing d.
func (d Date) YearMonth() YearMonth {
	return YearMonth{Year: d.Year(), Month: time.Month(d.Month())}
}

func (t Transaction) Validate() error {
	if err := validateDescription(t.Description); err != nil {
		return err
	}
	if err := validateAmount(t.Amount); err != nil {
		return err
	}
	if !t.Flow.Valid() {
		return &ValidationError{Field: "flow", Err: ErrInvalidFlow}
	}
	if err := t.Date.Validate(); err != nil {
		return &ValidationError{Field: "date", Err: err}
	}
	return nil
}

func (b Bill) Validate() error {
	if err := validateDescription(b.Description); err != nil {
		return err
	}
	if err := validateAmount(b.Amount); err != nil {
		return err
	}
	if !b.Flow.Valid() {
		return &ValidationError{Field: "flow", Err: ErrInvalidFlow}
	}
	if err := b.DueDate.Validate(); err != nil {
		return &ValidationError{Field: "due_date", Err: err}
	}
	if !b.Status.Valid() {
		return &ValidationError{Field: "status", Err: ErrInvalidStatus}
	}
	return nil
}

// IsPending reports whether the bill is still open. A stored overdue status
// is an open bill as well.
func (b Bill) IsPending() bool {
	return b.Status == StatusPending || b.Status == StatusOverdue
}

// Settle builds the realized transaction for a bill paid on the given date.
func (b Bill) Settle(id string, paidOn Date, now time.Time) Transaction {
	return Transaction{
		ID:           id,
		Description:  b.Description,
		Amount:       b.Amount,
		VAT:          b.VAT,
		NetAmount:    b.NetAmount,
		Flow:         b.Flow,
		Date:         paidOn,
		SourceBillID: b.ID,
		CreatedAt:    now,
	}
}

func validateDescription(s string) error {
	if len(strings.TrimSpace(s)) == 0 {
		return &ValidationError{Field: "description", Err: ErrEmptyDescription}
	}
	if len(s) > maxDescriptionLen {
		return &ValidationError{Field: "description", Err: fmt.Errorf("too long (max %d characters)", maxDescriptionLen)}
	}
	return nil
}

func validateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	if d.GreaterThan(MaxAmount) {
		return &ValidationError{Field: "amount", Err: ErrAmountTooLarge}
	}
	return nil
}
