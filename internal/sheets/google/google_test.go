package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"contas/internal/core"
)

// fakeSheets records the Sheets API calls the client makes.
type fakeSheets struct {
	mu       sync.Mutex
	titles   []string
	added    []string
	cleared  []string
	updated  []string
	rows     [][]any
	gets     int
	inputOpt string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/v4/spreadsheets/sheet-id"):
		f.gets++
		var sheets []map[string]any
		for _, t := range f.titles {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": t}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-id", "sheets": sheets})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			if rq.AddSheet != nil {
				f.added = append(f.added, rq.AddSheet.Properties.Title)
				f.titles = append(f.titles, rq.AddSheet.Properties.Title)
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-id"})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		f.cleared = append(f.cleared, rangeOf(path))
		_ = json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-id"})
	case r.Method == http.MethodPut:
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.updated = append(f.updated, rangeOf(path))
		f.rows = vr.Values
		f.inputOpt = r.URL.Query().Get("valueInputOption")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"updatedRange": rangeOf(path),
			"updatedRows":  len(vr.Values),
		})
	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
	}
}

func rangeOf(path string) string {
	_, rng, _ := strings.Cut(path, "/values/")
	rng, _, _ = strings.Cut(rng, ":clear")
	return rng
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	c, err := newClient(context.Background(), Options{SpreadsheetID: "sheet-id"},
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("newClient: %v", err)
	}
	return c
}

func febView() core.View {
	return core.View{
		Month:   "2024-02",
		Version: 3,
		Summary: core.Summary{
			Receivable: core.KindSummary{Kind: core.Receivable},
			Payable:    core.KindSummary{Kind: core.Payable},
		},
	}
}

func TestWriteMonthReport_CreatesTabAndWritesRows(t *testing.T) {
	fake := &fakeSheets{titles: []string{"2024-01 Relatorio"}}
	c := newTestClient(t, fake)

	ref, err := c.WriteMonthReport(context.Background(), febView())
	if err != nil {
		t.Fatalf("WriteMonthReport: %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.added) != 1 || fake.added[0] != "2024-02 Relatorio" {
		t.Fatalf("expected the February tab to be added, got %v", fake.added)
	}
	if len(fake.cleared) != 1 || fake.cleared[0] != "'2024-02 Relatorio'!A:Z" {
		t.Fatalf("unexpected clear calls %v", fake.cleared)
	}
	if ref != "'2024-02 Relatorio'!A1" {
		t.Errorf("unexpected range ref %q", ref)
	}
	if fake.inputOpt != "USER_ENTERED" {
		t.Errorf("expected USER_ENTERED, got %q", fake.inputOpt)
	}
	if len(fake.rows) == 0 || fake.rows[0][0] != "Relatório" {
		t.Errorf("unexpected rows %v", fake.rows)
	}
}

func TestWriteMonthReport_ReusesKnownTab(t *testing.T) {
	fake := &fakeSheets{titles: []string{"2024-02 Relatorio"}}
	c := newTestClient(t, fake)

	for i := 0; i < 2; i++ {
		if _, err := c.WriteMonthReport(context.Background(), febView()); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.added) != 0 {
		t.Fatalf("existing tab must not be re-added, got %v", fake.added)
	}
	if fake.gets != 1 {
		t.Fatalf("expected one spreadsheet lookup, got %d", fake.gets)
	}
	if len(fake.updated) != 2 {
		t.Fatalf("expected two updates, got %d", len(fake.updated))
	}
}

func TestWriteMonthReport_Errors(t *testing.T) {
	c := &Client{}
	if _, err := c.WriteMonthReport(context.Background(), febView()); err == nil {
		t.Fatal("expected error with nil service")
	}

	c = newTestClient(t, &fakeSheets{})
	v := febView()
	v.Month = "fevereiro"
	if _, err := c.WriteMonthReport(context.Background(), v); err == nil {
		t.Fatal("expected error for invalid month")
	}
}

func TestSheetTitle(t *testing.T) {
	c := &Client{sheetBase: "Relatorio"}
	v := febView()
	if got := c.sheetTitle(v); got != "2024-02 Relatorio" {
		t.Errorf("got %q", got)
	}
	v.Category = core.Lazer
	if got := c.sheetTitle(v); got != "2024-02 Relatorio Lazer" {
		t.Errorf("got %q", got)
	}
	if got := quoted("Conta's"); got != "'Conta''s'" {
		t.Errorf("got %q", got)
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestServiceAccountCredentials(t *testing.T) {
	ctx := context.Background()
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	b, err := serviceAccountCredentials(ctx, Options{ServiceAccountJSON: `{"type":"service_account"}`})
	if err != nil || string(b) != `{"type":"service_account"}` {
		t.Fatalf("inline: %q %v", b, err)
	}

	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte(`{"from":"file"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	b, err = serviceAccountCredentials(ctx, Options{ServiceAccountFile: path})
	if err != nil || string(b) != `{"from":"file"}` {
		t.Fatalf("file: %q %v", b, err)
	}

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", path)
	if _, err := serviceAccountCredentials(ctx, Options{}); err != nil {
		t.Fatalf("application credentials fallback: %v", err)
	}

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	if _, err := serviceAccountCredentials(ctx, Options{}); err == nil {
		t.Fatal("expected error without credentials")
	}
	if _, err := serviceAccountCredentials(ctx, Options{ServiceAccountFile: filepath.Join(t.TempDir(), "missing.json")}); err == nil {
		t.Fatal("expected error for missing file")
	}
}
