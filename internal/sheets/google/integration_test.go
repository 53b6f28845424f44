//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"contas/internal/core"
	"contas/internal/ledger"
)

// Integration tests require a real spreadsheet shared with a service account.
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_WriteMonthReport(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	if os.Getenv("GOOGLE_SPREADSHEET_ID") == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	if os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON") == "" && os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE") == "" &&
		os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		t.Skip("service account credentials not configured, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := NewFromEnv(ctx)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	month := core.CurrentMonth()
	snap := core.Snapshot{Version: 1, Entries: []core.Entry{{
		ID:          "integration",
		Description: "Integration Test Entry",
		Amount:      decimal.RequireFromString("12.34"),
		Kind:        core.Payable,
		Category:    core.Servicos,
		DueDate:     month.First(),
	}}}

	ref, err := client.WriteMonthReport(ctx, ledger.BuildView(snap, month, ""))
	if err != nil {
		t.Fatalf("Failed to write report: %v", err)
	}
	if ref == "" {
		t.Error("Expected non-empty range reference")
	}
	t.Logf("Report written to %s", ref)
}
