package backend

import (
	"context"

	"contas/internal/amqp"
	"contas/internal/services"
	"contas/internal/sheets"
	"contas/internal/store"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the wired entry store and the services built on it
type BackendResult struct {
	Store   store.EntryStore
	Entries *services.EntryService

	// Refresher is nil for stores that cannot be changed by other processes.
	Refresher store.Refresher

	// AMQP is nil when change notifications are disabled or the broker is unreachable.
	AMQP *amqp.Client

	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates the entry store and its services
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// CreateReportWriter returns the Google Sheets writer when a spreadsheet is
	// configured and an in-memory writer otherwise
	CreateReportWriter(ctx context.Context, config Config) (sheets.ReportWriter, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// AMQP (optional for both backends)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Report export
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleOAuthClientJSON    string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenJSON     string
	GoogleOAuthTokenFile     string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
