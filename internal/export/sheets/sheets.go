// Package sheets writes a dashboard summary into a Google Sheets tab.
package sheets

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

	"finboard/internal/core"
	"finboard/internal/export"
)

var ErrMissingCredentials = errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")

// Options configures a Writer.
type Options struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Writer struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	now           func() time.Time
}

// New creates a Writer authenticated with service account credentials.
func New(ctx context.Context, opts Options) (*Writer, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := LoadCredentials(ctx, opts.ServiceAccountJSON, opts.ServiceAccountFile)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, opts.SpreadsheetID, opts.SheetName), nil
}

// NewWithService wraps an already configured Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Writer {
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Summary"
	}
	return &Writer{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(spreadsheetID),
		sheetName:     sheetName,
		now:           time.Now,
	}
}

// LoadCredentials returns the service account JSON, preferring the inline
// value over the file path.
func LoadCredentials(ctx context.Context, inlineJSON, file string) ([]byte, error) {
	inlineJSON = strings.TrimSpace(inlineJSON)
	file = strings.TrimSpace(file)

	switch {
	case inlineJSON != "":
		slog.DebugContext(ctx, "Using inline service account credentials", "json_length", len(inlineJSON))
		return []byte(inlineJSON), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.DebugContext(ctx, "Read service account credentials", "path", file, "size", len(data))
		return data, nil
	default:
		return nil, ErrMissingCredentials
	}
}

// WriteSummary replaces the content of the sheet with the summary. It
// returns the range reported as updated by the API.
func (w *Writer) WriteSummary(ctx context.Context, sum core.Summary) (string, error) {
	if w.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	clearRange := fmt.Sprintf("%s!A:C", w.sheetName)
	if _, err := w.svc.Spreadsheets.Values.Clear(w.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear %s: %w", clearRange, err)
	}

	rows := Rows(sum, w.now())
	vr := &gsheet.ValueRange{Values: rows}
	target := fmt.Sprintf("%s!A1", w.sheetName)
	resp, err := w.svc.Spreadsheets.Values.Update(w.spreadsheetID, target, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", target, err)
	}

	slog.InfoContext(ctx, "Summary written to sheet",
		"spreadsheet_id", w.spreadsheetID,
		"sheet", w.sheetName,
		"rows", len(rows),
		"categories", len(sum.Categories))

	if resp.UpdatedRange != "" {
		return resp.UpdatedRange, nil
	}
	return target, nil
}

// Rows lays the summary out as sheet rows: a title line, the totals, then
// the category breakdown ordered by amount.
func Rows(sum core.Summary, at time.Time) [][]interface{} {
	report := export.NewReport(sum)

	rows := [][]interface{}{
		{"Finboard summary", at.UTC().Format(time.RFC3339)},
		{},
		{"Total income", report.TotalIncome},
		{"Total expenses", report.TotalExpenses},
		{"Balance", report.Balance},
		{},
		{"Category", "Amount", "Share %"},
	}
	for _, c := range report.Categories {
		rows = append(rows, []interface{}{c.Category, c.Amount, c.Percentage})
	}
	return rows
}
