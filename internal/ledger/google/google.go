package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"familybudget/internal/core"
	"familybudget/internal/ledger"
)

// Client stores the ledger in one sheet of a Google spreadsheet. The first row
// of the sheet is the header; data rows follow in insertion order.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	loc           *time.Location
}

var _ ledger.Store = (*Client)(nil)

// Options configures the Sheets ledger.
type Options struct {
	SpreadsheetID string
	// SheetName selects the worksheet; empty means the first one.
	SheetName string
	// CredentialsJSON takes precedence over CredentialsFile.
	CredentialsJSON string
	CredentialsFile string
	// Location is used to interpret stored timestamps.
	Location *time.Location
}

// New creates a Sheets ledger authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, opts.CredentialsJSON, opts.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	c := &Client{svc: svc, spreadsheetID: opts.SpreadsheetID, sheet: strings.TrimSpace(opts.SheetName), loc: opts.Location}
	if c.loc == nil {
		c.loc = time.Local
	}
	if c.sheet == "" {
		name, err := c.firstSheet(ctx)
		if err != nil {
			return nil, core.NewStoreError("open", err)
		}
		c.sheet = name
	}
	slog.InfoContext(ctx, "Google Sheets ledger ready", "spreadsheet_id", c.spreadsheetID, "sheet", c.sheet)
	return c, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, credentialsJSON, credentialsFile string) (*gsheet.Service, error) {
	var creds []byte
	switch {
	case strings.TrimSpace(credentialsJSON) != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		creds = []byte(credentialsJSON)
	case strings.TrimSpace(credentialsFile) != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", credentialsFile)
		b, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		creds = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) firstSheet(ctx context.Context) (string, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get spreadsheet %s: %w", c.spreadsheetID, err)
	}
	if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil {
		return "", fmt.Errorf("spreadsheet %s has no sheets", c.spreadsheetID)
	}
	return ss.Sheets[0].Properties.Title, nil
}

// SheetName returns the worksheet the ledger lives in.
func (c *Client) SheetName() string { return c.sheet }

// Append adds the row below the last non-empty row of the sheet.
func (c *Client) Append(ctx context.Context, r core.ExpenseRow) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return core.NewStoreError("append", errors.New("sheets service not initialized"))
	}
	vr := &gsheet.ValueRange{Values: [][]any{rowValues(r, c.loc)}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.rangeFor("A:E"), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return core.NewStoreError("append", fmt.Errorf("append to sheet %s: %w", c.sheet, err))
	}
	return nil
}

// ReadAll reads the whole sheet and decodes every data row.
func (c *Client) ReadAll(ctx context.Context) ([]core.ExpenseRow, error) {
	values, err := c.values(ctx)
	if err != nil {
		return nil, core.NewStoreError("read", err)
	}
	return decodeValues(values, c.loc)
}

// Header returns the header row as stored in the sheet.
func (c *Client) Header(ctx context.Context) ([]string, error) {
	resp, err := c.get(ctx, c.rangeFor("1:1"))
	if err != nil {
		return nil, core.NewStoreError("read", err)
	}
	if len(resp) == 0 {
		return nil, nil
	}
	return toStrings(resp[0]), nil
}

// EnsureHeader writes the schema header when the sheet is empty.
func (c *Client) EnsureHeader(ctx context.Context) (written bool, err error) {
	header, err := c.Header(ctx)
	if err != nil {
		return false, err
	}
	if len(header) > 0 {
		_, err := core.LedgerSchema.Index(header)
		return false, err
	}
	cells := make([]any, 0, len(core.LedgerSchema.Columns))
	for _, h := range core.LedgerSchema.Headers() {
		cells = append(cells, h)
	}
	vr := &gsheet.ValueRange{Values: [][]any{cells}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.rangeFor("A1"), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return false, core.NewStoreError("write header", err)
	}
	return true, nil
}

func (c *Client) values(ctx context.Context) ([][]any, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	return c.get(ctx, c.rangeFor("A:Z"))
}

func (c *Client) get(ctx context.Context, rng string) ([][]any, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) rangeFor(cells string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(c.sheet, "'", "''"), cells)
}
