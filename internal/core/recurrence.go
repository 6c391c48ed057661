package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxRecurrenceDay caps the due day so every month has it.
const MaxRecurrenceDay = 28

// MaxRecurrenceMonths caps how many monthly bills one rule may produce.
const MaxRecurrenceMonths = 120

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// ParseYearMonth parses YYYY-MM.
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return YearMonth{}, &ValidationError{Field: "month", Err: fmt.Errorf("%w: %q", ErrInvalidMonth, s)}
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

func (ym YearMonth) index() int { return ym.Year*12 + int(ym.Month) - 1 }

// After reports whether ym is a later month than o.
func (ym YearMonth) After(o YearMonth) bool { return ym.index() > o.index() }

// Next returns the following month.
func (ym YearMonth) Next() YearMonth {
	if ym.Month == time.December {
		return YearMonth{Year: ym.Year + 1, Month: time.January}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month + 1}
}

// First returns the first day of the month.
func (ym YearMonth) First() Date { return NewDate(ym.Year, int(ym.Month), 1) }

// Last returns the last day of the month.
func (ym YearMonth) Last() Date { return ym.Next().First().AddDays(-1) }

// Range returns the closed date range covering the month.
func (ym YearMonth) Range() DateRange { return DateRange{Start: ym.First(), End: ym.Last()} }

// RecurrenceRule describes a bill repeated monthly on a fixed day.
type RecurrenceRule struct {
	Day         int
	Start       YearMonth
	End         YearMonth
	Description string
	Amount      decimal.Decimal
	NoVAT       bool
	Flow        Flow
}

func (r RecurrenceRule) Validate() error {
	if r.Day < 1 || r.Day > MaxRecurrenceDay {
		return &ValidationError{Field: "day", Err: fmt.Errorf("%w: %d not in [1,%d]", ErrInvalidDay, r.Day, MaxRecurrenceDay)}
	}
	if n := r.End.index() - r.Start.index() + 1; n > MaxRecurrenceMonths {
		return &ValidationError{Field: "recurrence.end", Err: fmt.Errorf("%w: %d months exceeds %d", ErrInvalidRange, n, MaxRecurrenceMonths)}
	}
	return nil
}

// ExpandMonthly produces one pending bill per month from Start to End
// inclusive, each due on the rule's day. A Start after End yields no bills.
// The returned bills carry no ID and have VAT already split.
func ExpandMonthly(r RecurrenceRule, now time.Time) ([]Bill, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	split, err := SplitVAT(r.Amount, r.NoVAT)
	if err != nil {
		return nil, err
	}
	var bills []Bill
	for ym := r.Start; !ym.After(r.End); ym = ym.Next() {
		bills = append(bills, Bill{
			Description: r.Description,
			Amount:      split.Gross,
			VAT:         split.VAT,
			NetAmount:   split.Net,
			NoVAT:       r.NoVAT,
			Flow:        r.Flow,
			DueDate:     NewDate(ym.Year, int(ym.Month), r.Day),
			Status:      StatusPending,
			CreatedAt:   now,
		})
	}
	return bills, nil
}
