package memory

import (
	"context"
	"fmt"
	"sync"

	"contas/internal/core"
	ports "contas/internal/sheets"
)

// Store keeps the latest report per month in memory. It stands in for the
// spreadsheet when no Google credentials are configured.
type Store struct {
	mu      sync.Mutex
	reports map[string][][]any
	views   map[string]core.View
	writes  int
}

var _ ports.ReportWriter = (*Store)(nil)

func New() *Store {
	return &Store{
		reports: make(map[string][][]any),
		views:   make(map[string]core.View),
	}
}

// WriteMonthReport stores the report rows and returns a synthetic range reference.
func (s *Store) WriteMonthReport(_ context.Context, v core.View) (string, error) {
	if _, err := core.ParseMonth(v.Month); err != nil {
		return "", fmt.Errorf("invalid report month %q: %w", v.Month, err)
	}
	key := reportKey(v.Month, v.Category)
	rows := ports.BuildReport(v)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[key] = rows
	s.views[key] = v
	s.writes++
	return fmt.Sprintf("mem:%s!A1:G%d", key, len(rows)), nil
}

// Report returns the last rows written for the month, if any.
func (s *Store) Report(month string, category core.Category) ([][]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.reports[reportKey(month, category)]
	return rows, ok
}

// LastView returns the last view written for the month, if any.
func (s *Store) LastView(month string, category core.Category) (core.View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[reportKey(month, category)]
	return v, ok
}

// Writes counts every successful write.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func reportKey(month string, category core.Category) string {
	if category == "" {
		return month
	}
	return month + " " + string(category)
}
