package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"bukukas/internal/report"
	ports "bukukas/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Optional prefix for worksheet titles, e.g. "Bukukas" gives
	// "Bukukas - Ringkasan 2025-01".
	sheetPrefix string
}

// Ensure interface conformance
var _ ports.TableWriter = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional: GOOGLE_SHEET_NAME used as worksheet title prefix.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := serviceAccountCredentials(ctx)
	if err != nil {
		return nil, err
	}
	return New(ctx, spreadsheetID, os.Getenv("GOOGLE_SHEET_NAME"),
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// New creates a client for spreadsheetID with explicit client options.
func New(ctx context.Context, spreadsheetID, sheetPrefix string, opts ...goption.ClientOption) (*Client, error) {
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetPrefix:   strings.TrimSpace(sheetPrefix),
	}, nil
}

// serviceAccountCredentials reads Service Account JSON from the environment.
func serviceAccountCredentials(ctx context.Context) ([]byte, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		return []byte(serviceAccountJSON), nil
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// WriteTable creates the worksheet if needed, clears it and writes the
// table starting at A1.
func (c *Client) WriteTable(ctx context.Context, t report.Table) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if strings.TrimSpace(t.Name) == "" {
		return "", errors.New("table name is required")
	}
	title := c.sheetTitle(t.Name)
	if err := c.ensureSheet(ctx, title); err != nil {
		return "", err
	}

	whole := quoteSheet(title)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, whole, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear %s: %w", title, err)
	}

	values := t.Values()
	rng := whole + "!" + a1Range(len(t.Header), len(values))
	vr := &gsheet.ValueRange{Values: values}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("update %s: %w", rng, err)
	}
	return rng, nil
}

func (c *Client) ensureSheet(ctx context.Context, title string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return nil
		}
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	slog.InfoContext(ctx, "Created worksheet", "title", title)
	return nil
}

func (c *Client) sheetTitle(name string) string {
	if c.sheetPrefix == "" {
		return name
	}
	return c.sheetPrefix + " - " + name
}

func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// a1Range returns "A1:<col><rows>" for a grid of cols x rows.
func a1Range(cols, rows int) string {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return fmt.Sprintf("A1:%s%d", columnName(cols), rows)
}

// columnName converts a 1-based column index to letters (1 -> A, 27 -> AA).
func columnName(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}
