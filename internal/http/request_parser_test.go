package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"fluxo/internal/core"
)

var parserToday = core.NewDate(2024, 5, 10)

func TestParseRange(t *testing.T) {
	tests := []struct {
		name      string
		query     url.Values
		wantStart core.Date
		wantEnd   core.Date
		wantErr   bool
	}{
		{
			name:      "defaults to current month",
			query:     url.Values{},
			wantStart: core.NewDate(2024, 5, 1),
			wantEnd:   core.NewDate(2024, 5, 31),
		},
		{
			name:      "explicit range",
			query:     url.Values{"from": {"2024-01-15"}, "to": {"2024-02-15"}},
			wantStart: core.NewDate(2024, 1, 15),
			wantEnd:   core.NewDate(2024, 2, 15),
		},
		{
			name:      "only from keeps month end",
			query:     url.Values{"from": {"2024-05-20"}},
			wantStart: core.NewDate(2024, 5, 20),
			wantEnd:   core.NewDate(2024, 5, 31),
		},
		{name: "bad date", query: url.Values{"from": {"2024-13-01"}}, wantErr: true},
		{name: "reversed", query: url.Values{"from": {"2024-06-01"}, "to": {"2024-05-01"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng, err := parseRange(tt.query, parserToday)
			if tt.wantErr {
				if !core.IsValidation(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !rng.Start.Equal(tt.wantStart) || !rng.End.Equal(tt.wantEnd) {
				t.Errorf("range = %s..%s, want %s..%s", rng.Start, rng.End, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestParseMonth(t *testing.T) {
	ym, err := parseMonth(url.Values{}, "month", parserToday)
	if err != nil || ym.String() != "2024-05" {
		t.Fatalf("default month = %s, %v", ym, err)
	}
	ym, err = parseMonth(url.Values{"month": {"2023-12"}}, "month", parserToday)
	if err != nil || ym.String() != "2023-12" {
		t.Fatalf("month = %s, %v", ym, err)
	}
	if _, err := parseMonth(url.Values{"month": {"december"}}, "month", parserToday); !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"5", 5, false},
		{"1000", maxPageSize, false},
		{"0", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := parseLimit(url.Values{"limit": {tt.raw}})
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseLimit(%q) = %d, %v", tt.raw, got, err)
		}
	}
}

func TestParseFlowParam(t *testing.T) {
	if f, err := parseFlowParam(url.Values{}); err != nil || f != "" {
		t.Fatalf("absent flow = %q, %v", f, err)
	}
	if f, err := parseFlowParam(url.Values{"flow": {"outflow"}}); err != nil || f != core.Outflow {
		t.Fatalf("outflow = %q, %v", f, err)
	}
	if _, err := parseFlowParam(url.Values{"flow": {"sideways"}}); !errors.Is(err, core.ErrInvalidFlow) {
		t.Fatalf("expected ErrInvalidFlow, got %v", err)
	}
}

func TestAmountFieldAcceptsStringsAndNumbers(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"amount":"12,50"}`, "12.5"},
		{`{"amount":121}`, "121"},
		{`{"amount":"0.005"}`, "0.01"},
	}
	for _, tt := range tests {
		var req transactionRequest
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
		if err := decodeJSON(httptest.NewRecorder(), r, &req); err != nil {
			t.Fatalf("%s: %v", tt.body, err)
		}
		got, err := req.Amount.parse()
		if err != nil || got.String() != tt.want {
			t.Errorf("%s: got %s, %v", tt.body, got, err)
		}
	}
}

func TestDecodeJSONRejects(t *testing.T) {
	bodies := []string{
		``,
		`{"description":`,
		`{"unknown":1}`,
		`{"amount":true}`,
		`{} {}`,
	}
	for _, body := range bodies {
		var req transactionRequest
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		if err := decodeJSON(httptest.NewRecorder(), r, &req); err == nil {
			t.Errorf("expected error for %q", body)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  Rent\x00 May\x07 "); got != "Rent May" {
		t.Fatalf("got %q", got)
	}
}
