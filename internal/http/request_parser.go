// Package http serves the ledger over a JSON API.
//
// This file parses and validates query parameters and request bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"fluxo/internal/core"
)

const (
	maxBodyBytes = 64 << 10
	maxPageSize  = 100
)

// amountField accepts an amount as a JSON string ("12,50") or number (12.5).
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = amountField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount must be a string or number")
	}
	*a = amountField(n.String())
	return nil
}

func (a amountField) parse() (decimal.Decimal, error) {
	d, err := core.ParseAmount(string(a))
	if err != nil {
		return decimal.Zero, &core.ValidationError{Field: "amount", Err: err}
	}
	return d, nil
}

type transactionRequest struct {
	Description string      `json:"description"`
	Amount      amountField `json:"amount"`
	NoVAT       bool        `json:"no_vat"`
	Flow        string      `json:"flow"`
	Date        string      `json:"date"`
}

type recurrenceRequest struct {
	Day   int    `json:"day"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type billRequest struct {
	Description string             `json:"description"`
	Amount      amountField        `json:"amount"`
	NoVAT       bool               `json:"no_vat"`
	Flow        string             `json:"flow"`
	DueDate     string             `json:"due_date"`
	Recurrence  *recurrenceRequest `json:"recurrence,omitempty"`
}

// decodeJSON reads a single JSON object from r into dst, rejecting unknown
// fields and bodies over maxBodyBytes.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body too large")
		case errors.Is(err, io.EOF):
			return fmt.Errorf("request body is empty")
		}
		return fmt.Errorf("malformed JSON: %v", err)
	}
	if dec.More() {
		return fmt.Errorf("request body must hold a single JSON object")
	}
	return nil
}

// sanitizeInput trims whitespace and drops control characters other than
// tab and newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// parseDateParam parses key as YYYY-MM-DD, returning def when absent.
func parseDateParam(q url.Values, key string, def core.Date) (core.Date, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return def, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, &core.ValidationError{Field: key, Err: core.ErrInvalidDate}
	}
	return d, nil
}

// parseRange reads from/to, defaulting each end to the bounds of today's month.
func parseRange(q url.Values, today core.Date) (core.DateRange, error) {
	month := today.YearMonth().Range()
	from, err := parseDateParam(q, "from", month.Start)
	if err != nil {
		return core.DateRange{}, err
	}
	to, err := parseDateParam(q, "to", month.End)
	if err != nil {
		return core.DateRange{}, err
	}
	rng := core.DateRange{Start: from, End: to}
	return rng, rng.Validate()
}

// parseMonth reads a YYYY-MM parameter, defaulting to today's month.
func parseMonth(q url.Values, key string, today core.Date) (core.YearMonth, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return today.YearMonth(), nil
	}
	ym, err := core.ParseYearMonth(v)
	if err != nil {
		return core.YearMonth{}, &core.ValidationError{Field: key, Err: core.ErrInvalidMonth}
	}
	return ym, nil
}

// parseFlowParam returns the empty flow when the parameter is absent.
func parseFlowParam(q url.Values) (core.Flow, error) {
	v := strings.TrimSpace(q.Get("flow"))
	if v == "" {
		return "", nil
	}
	return core.ParseFlow(v)
}

// parseLimit returns 0 (service default) when absent and caps at maxPageSize.
func parseLimit(q url.Values) (int, error) {
	v := strings.TrimSpace(q.Get("limit"))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, &core.ValidationError{Field: "limit", Err: fmt.Errorf("must be a positive integer")}
	}
	if n > maxPageSize {
		n = maxPageSize
	}
	return n, nil
}

func parseBoolParam(q url.Values, key string) (bool, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, &core.ValidationError{Field: key, Err: fmt.Errorf("must be true or false")}
	}
	return b, nil
}
