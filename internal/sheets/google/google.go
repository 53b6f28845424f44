package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"contas/internal/core"
	ports "contas/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is the base tab name; each month gets its own tab.
const DefaultSheetName = "Relatorio"

// Client writes monthly reports into one spreadsheet, one tab per month.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string

	mu    sync.Mutex
	known map[string]bool
}

var _ ports.ReportWriter = (*Client)(nil)

// Options selects the spreadsheet and the credentials used to write it.
// A service account wins over OAuth user credentials when both are set.
type Options struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string

	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenJSON  string
	OAuthTokenFile  string
}

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS,
// or GOOGLE_OAUTH_CLIENT_JSON/FILE together with GOOGLE_OAUTH_TOKEN_JSON/FILE.
// Optional: GOOGLE_SHEET_NAME (default "Relatorio").
func NewFromEnv(ctx context.Context) (*Client, error) {
	return New(ctx, Options{
		SpreadsheetID:      os.Getenv("GOOGLE_SPREADSHEET_ID"),
		SheetName:          os.Getenv("GOOGLE_SHEET_NAME"),
		ServiceAccountJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		ServiceAccountFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
		OAuthClientJSON:    os.Getenv("GOOGLE_OAUTH_CLIENT_JSON"),
		OAuthClientFile:    os.Getenv("GOOGLE_OAUTH_CLIENT_FILE"),
		OAuthTokenJSON:     os.Getenv("GOOGLE_OAUTH_TOKEN_JSON"),
		OAuthTokenFile:     os.Getenv("GOOGLE_OAUTH_TOKEN_FILE"),
	})
}

// New creates a Sheets client authenticated with a service account or, when
// none is configured, with a stored OAuth user token.
func New(ctx context.Context, o Options) (*Client, error) {
	if strings.TrimSpace(o.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	if o.usesOAuth() {
		ts, err := oauthTokenSource(ctx, o)
		if err != nil {
			return nil, fmt.Errorf("sheets service: %w", err)
		}
		slog.InfoContext(ctx, "Using OAuth user credentials for Google Sheets")
		return newClient(ctx, o, goption.WithTokenSource(ts))
	}

	creds, err := serviceAccountCredentials(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(ctx, o,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// usesOAuth reports whether OAuth is the only configured credential.
func (o Options) usesOAuth() bool {
	if strings.TrimSpace(o.ServiceAccountJSON) != "" || strings.TrimSpace(o.ServiceAccountFile) != "" {
		return false
	}
	return strings.TrimSpace(o.OAuthClientJSON) != "" || strings.TrimSpace(o.OAuthClientFile) != ""
}

func newClient(ctx context.Context, o Options, opts ...goption.ClientOption) (*Client, error) {
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	base := strings.TrimSpace(o.SheetName)
	if base == "" {
		base = DefaultSheetName
	}
	slog.InfoContext(ctx, "Google Sheets service created", "sheet_base", base)
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(o.SpreadsheetID),
		sheetBase:     base,
		known:         make(map[string]bool),
	}, nil
}

// serviceAccountCredentials resolves the credentials JSON: inline first, then
// the configured file, then GOOGLE_APPLICATION_CREDENTIALS.
func serviceAccountCredentials(ctx context.Context, o Options) ([]byte, error) {
	inline := strings.TrimSpace(o.ServiceAccountJSON)
	file := strings.TrimSpace(o.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.DebugContext(ctx, "Using inline service account credentials", "json_length", len(inline))
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.DebugContext(ctx, "Read service account credentials", "path", file, "size", len(b))
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// WriteMonthReport replaces the contents of the month's tab with the report
// rows of v, creating the tab on first use.
func (c *Client) WriteMonthReport(ctx context.Context, v core.View) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if _, err := core.ParseMonth(v.Month); err != nil {
		return "", fmt.Errorf("invalid report month %q: %w", v.Month, err)
	}

	title := c.sheetTitle(v)
	if err := c.ensureSheet(ctx, title); err != nil {
		return "", err
	}

	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, quoted(title)+"!A:Z", &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to clear sheet %s: %w", title, err)
	}

	rows := ports.BuildReport(v)
	vr := &gsheet.ValueRange{Values: rows}
	resp, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, quoted(title)+"!A1", vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update sheet %s: %w", title, err)
	}

	slog.InfoContext(ctx, "Monthly report written",
		"sheet", title,
		"version", v.Version,
		"rows", len(rows),
		"range", resp.UpdatedRange)
	return resp.UpdatedRange, nil
}

// sheetTitle returns "<YYYY-MM> <base>", with the category appended for
// category-scoped views.
func (c *Client) sheetTitle(v core.View) string {
	title := fmt.Sprintf("%s %s", v.Month, c.sheetBase)
	if v.Category != "" {
		title += " " + string(v.Category)
	}
	return title
}

func (c *Client) ensureSheet(ctx context.Context, title string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.known[title] {
		return nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet %s: %w", c.spreadsheetID, err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			c.known[s.Properties.Title] = true
		}
	}
	if c.known[title] {
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	slog.InfoContext(ctx, "Report sheet created", "sheet", title)
	c.known[title] = true
	return nil
}

// quoted wraps a sheet title for A1 notation.
func quoted(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
