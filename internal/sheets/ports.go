package sheets

import (
	"context"

	"contas/internal/core"
)

// Ports for outbound report adapters.
type (
	// ReportWriter publishes the monthly report of a view, replacing any
	// earlier report for the same month.
	ReportWriter interface {
		WriteMonthReport(ctx context.Context, v core.View) (rangeRef string, err error)
	}
)
