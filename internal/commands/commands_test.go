package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard/internal/config"
	"finboard/internal/core"
	"finboard/internal/export"
)

const (
	incomeDB   = "income-database-0001"
	expensesDB = "expenses-database-0001"
	token      = "secret_abcdefgh1234"
)

func fakeNotion(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, incomeDB):
			_, _ = io.WriteString(w, `{"object":"list","has_more":false,"results":[
				{"object":"page","id":"11111111-1111-1111-1111-111111111111","properties":{"Amount":{"id":"a","type":"number","number":2000}}}
			]}`)
		case strings.Contains(r.URL.Path, expensesDB):
			_, _ = io.WriteString(w, `{"object":"list","has_more":false,"results":[
				{"object":"page","id":"33333333-3333-3333-3333-333333333333","properties":{"Amount":{"id":"a","type":"number","number":300},"Category":{"id":"c","type":"select","select":{"id":"s","name":"Rent","color":"red"}}}},
				{"object":"page","id":"44444444-4444-4444-4444-444444444444","properties":{"Amount":{"id":"a","type":"number","number":100},"Category":{"id":"c","type":"select","select":{"id":"s","name":"Food","color":"blue"}}}}
			]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"object":"error","status":404,"code":"object_not_found","message":"not found"}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, apiURL string) *config.Config {
	t.Helper()
	cfg := config.Load()
	cfg.DataBackend = "sqlite"
	cfg.SQLiteDBPath = filepath.Join(t.TempDir(), "finboard.db")
	cfg.NotionTransport = config.TransportDirect
	cfg.NotionAPIURL = apiURL
	cfg.NotionFallbackRelayURL = ""
	cfg.AmountProperty = "Amount"
	cfg.CategoryProperty = "Category"
	cfg.AMQPURL = ""
	return cfg
}

type fakeSheets struct {
	got   core.Summary
	calls int
	err   error
}

func (f *fakeSheets) WriteSummary(_ context.Context, sum core.Summary) (string, error) {
	f.calls++
	f.got = sum
	if f.err != nil {
		return "", f.err
	}
	return "Summary!A1:C9", nil
}

func run(t *testing.T, opts Options, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	opts.Out = &out
	opts.Err = &errOut

	cmd := NewRootCmd(opts)
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "none.env")))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func optionsFor(cfg *config.Config) Options {
	return Options{
		LoadConfig: func() (*config.Config, error) { return cfg, nil },
	}
}

func TestConfigLifecycle(t *testing.T) {
	cfg := testConfig(t, fakeNotion(t).URL)
	opts := optionsFor(cfg)

	out, err := run(t, opts, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Not configured")

	out, err = run(t, opts, "config", "set", "--token", token, "--income-db", incomeDB, "--expenses-db", expensesDB)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration saved")
	assert.NotContains(t, out, token)

	out, err = run(t, opts, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "secret_****1234")
	assert.Contains(t, out, incomeDB)
	assert.Contains(t, out, expensesDB)
	assert.Contains(t, out, "sqlite")

	out, err = run(t, opts, "config", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration cleared")

	out, err = run(t, opts, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Not configured")
}

func TestConfigSet_RejectsInvalidToken(t *testing.T) {
	cfg := testConfig(t, fakeNotion(t).URL)

	_, err := run(t, optionsFor(cfg), "config", "set", "--token", "nope", "--income-db", incomeDB, "--expenses-db", expensesDB)
	require.Error(t, err)

	out, err := run(t, optionsFor(cfg), "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Not configured")
}

func TestConfigSet_RequiresFlags(t *testing.T) {
	cfg := testConfig(t, fakeNotion(t).URL)

	_, err := run(t, optionsFor(cfg), "config", "set", "--token", token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "income-db")
}

func TestSummary_JSON(t *testing.T) {
	cfg := testConfig(t, fakeNotion(t).URL)
	opts := optionsFor(cfg)

	_, err := run(t, opts, "config", "set", "--token", token, "--income-db", incomeDB, "--expenses-db", expensesDB)
	require.NoError(t, err)

	out, err := run(t, opts, "summary", "--format", "json")
	require.NoError(t, err)

	var report export.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "2000.00", report.TotalIncome)
	assert.Equal(t, "400.00", report.TotalExpenses)
	assert.Equal(t, "1600.00", report.Balance)
	require.Len(t, report.Categories, 2)
	assert.Equal(t, "Rent", report.Categories[0].Category)
	assert.Equal(t, "75.0", report.Categories[0].Percentage)
	assert.Equal(t, "Food", report.Categories[1].Category)
}

func TestSummary_CSVToFile(t *testing.T) {
	cfg := testConfig(t, fakeNotion(t).URL)
	opts := optionsFor(cfg)

	_, err := run(t, opts, "config", "set", "--token", token, "--income-db", incomeDB, "--expenses-db", expensesDB)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "summary.csv")
	out, err := run(t, opts, "summary", "--format", "csv", "--output", path)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "category,amount,percentage", lines[0])
	assert.Equal(t, "Rent,300.00,75.0", lines[1])
}

func TestSummary_WithoutCredentials(t *testing.T) {
	cfg := testConfig(t, fakeNotion(t).URL)

	out, err := run(t, optionsFor(cfg), "summary")
	require.Error(t, err)
	assert.Empty(t, out)
}

func TestSummary_UnknownFormat(t *testing.T) {
	cfg := testConfig(t, fakeNotion(t).URL)

	_, err := run(t, optionsFor(cfg), "summary", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestBackendFlagOverridesConfig(t *testing.T) {
	cfg := testConfig(t, fakeNotion(t).URL)

	out, err := run(t, optionsFor(cfg), "--backend", "memory", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Not configured")
	assert.Equal(t, "memory", cfg.DataBackend)
}

func TestExportSheets(t *testing.T) {
	cfg := testConfig(t, fakeNotion(t).URL)
	sheets := &fakeSheets{}
	var gotID string
	opts := optionsFor(cfg)
	opts.NewSheetsWriter = func(_ context.Context, c *config.Config) (SummaryWriter, error) {
		gotID = c.GoogleSpreadsheetID
		return sheets, nil
	}

	_, err := run(t, opts, "config", "set", "--token", token, "--income-db", incomeDB, "--expenses-db", expensesDB)
	require.NoError(t, err)

	out, err := run(t, opts, "export", "sheets", "--spreadsheet", "sheet-123")
	require.NoError(t, err)
	assert.Contains(t, out, "Summary!A1:C9")
	assert.Equal(t, "sheet-123", gotID)
	assert.Equal(t, 1, sheets.calls)
	assert.Equal(t, "1600", sheets.got.Balance.String())
}

func TestExportSheets_WriterError(t *testing.T) {
	cfg := testConfig(t, fakeNotion(t).URL)
	sheets := &fakeSheets{err: errors.New("quota exceeded")}
	opts := optionsFor(cfg)
	opts.NewSheetsWriter = func(context.Context, *config.Config) (SummaryWriter, error) { return sheets, nil }

	_, err := run(t, opts, "config", "set", "--token", token, "--income-db", incomeDB, "--expenses-db", expensesDB)
	require.NoError(t, err)

	_, err = run(t, opts, "export", "sheets")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestExportSheets_MissingSheetsConfig(t *testing.T) {
	cfg := testConfig(t, fakeNotion(t).URL)
	cfg.GoogleSpreadsheetID = ""
	cfg.GoogleServiceAccountJSON = ""
	cfg.GoogleServiceAccountFile = ""

	_, err := run(t, optionsFor(cfg), "export", "sheets")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOOGLE_SPREADSHEET_ID")
}
