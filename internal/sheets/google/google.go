package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"fluxo/internal/core"
	ports "fluxo/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is the base name of the yearly ledger sheet.
const DefaultSheetName = "Ledger"

// Columns A:H of the ledger sheet.
var header = []any{"ID", "Date", "Description", "Flow", "Amount", "VAT", "Net", "Bill"}

// Config selects the spreadsheet and the service account used to write it.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// valuesAPI is the part of the Sheets values service the client uses.
type valuesAPI interface {
	get(ctx context.Context, spreadsheetID, rng string) ([][]any, error)
	update(ctx context.Context, spreadsheetID, rng string, values [][]any) error
}

type Client struct {
	values        valuesAPI
	spreadsheetID string
	sheetBase     string

	// Appends to one sheet must not race for the same next row.
	mu sync.Mutex
}

var _ ports.LedgerMirror = (*Client)(nil)

// NewClient creates a Sheets client authenticated with a service account.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(serviceValues{svc: svc}, cfg), nil
}

func newClient(values valuesAPI, cfg Config) *Client {
	base := strings.TrimSpace(cfg.SheetName)
	if base == "" {
		base = DefaultSheetName
	}
	return &Client{values: values, spreadsheetID: cfg.SpreadsheetID, sheetBase: base}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Falls back to GOOGLE_APPLICATION_CREDENTIALS when no credentials are configured.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credentialsJSON := []byte(strings.TrimSpace(cfg.CredentialsJSON))
	file := strings.TrimSpace(cfg.CredentialsFile)
	if len(credentialsJSON) == 0 && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case len(credentialsJSON) > 0:
		slog.InfoContext(ctx, "Using inline service account credentials")
	case file != "":
		var err error
		credentialsJSON, err = os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Read service account credentials", "path", file)
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// AppendTransaction writes t to the ledger sheet of its year. A transaction
// whose ID is already in column A is not written again.
func (c *Client) AppendTransaction(ctx context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.values == nil {
		return "", errors.New("sheets service not initialized")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	sheet := yearPrefixedName(c.sheetBase, t.Date.Year())
	existing, err := c.values.get(ctx, c.spreadsheetID, sheet+"!A:A")
	if err != nil {
		return "", fmt.Errorf("read ids from %s: %w", sheet, err)
	}

	if row := findRow(existing, t.ID); row > 0 {
		slog.InfoContext(ctx, "Transaction already mirrored", "transaction_id", t.ID, "sheet", sheet, "row", row)
		return rowRef(sheet, row), nil
	}

	nextRow := len(existing) + 1
	if len(existing) == 0 {
		if err := c.values.update(ctx, c.spreadsheetID, rangeFor(sheet, 1), [][]any{header}); err != nil {
			return "", fmt.Errorf("write header in sheet %s: %w", sheet, err)
		}
		nextRow = 2
	}

	if err := c.values.update(ctx, c.spreadsheetID, rangeFor(sheet, nextRow), [][]any{rowFor(t)}); err != nil {
		return "", fmt.Errorf("write row %d in sheet %s: %w", nextRow, sheet, err)
	}
	return rowRef(sheet, nextRow), nil
}

func rowFor(t core.Transaction) []any {
	return []any{
		t.ID,
		t.Date.String(),
		t.Description,
		t.Flow.Name(),
		t.Flow.Sign(t.Amount).InexactFloat64(),
		t.VAT.InexactFloat64(),
		t.NetAmount.InexactFloat64(),
		t.SourceBillID,
	}
}

// findRow returns the 1-based row whose first cell equals id, or 0.
func findRow(values [][]any, id string) int {
	for i, row := range values {
		if len(row) > 0 && strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i + 1
		}
	}
	return 0
}

func rangeFor(sheet string, row int) string {
	return fmt.Sprintf("%s!A%d:H%d", sheet, row, row)
}

func rowRef(sheet string, row int) string {
	return rangeFor(sheet, row)
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

// serviceValues adapts the generated Sheets client to valuesAPI.
type serviceValues struct {
	svc *gsheet.Service
}

func (s serviceValues) get(ctx context.Context, spreadsheetID, rng string) ([][]any, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (s serviceValues) update(ctx context.Context, spreadsheetID, rng string, values [][]any) error {
	vr := &gsheet.ValueRange{Values: values}
	_, err := s.svc.Spreadsheets.Values.Update(spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	return err
}
