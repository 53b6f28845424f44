package core

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is the full, ordered entry set observed at one point in time.
// A newer snapshot replaces an older one entirely.
type Snapshot struct {
	Version uint64    `json:"version"`
	Entries []Entry   `json:"entries"`
	TakenAt time.Time `json:"taken_at"`
}

// SortEntries orders entries by due date, then creation time, then ID.
func SortEntries(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if c := a.DueDate.Compare(b.DueDate); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// CategoryGroup aggregates the entries of one kind sharing a category.
type CategoryGroup struct {
	Category    Category        `json:"category"`
	Entries     []Entry         `json:"entries"`
	Count       int             `json:"count"`
	Total       decimal.Decimal `json:"total"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Realized    decimal.Decimal `json:"realized"`
	PercentPaid decimal.Decimal `json:"percent_paid"`
}

// KindSummary holds the totals for receivables or payables.
type KindSummary struct {
	Kind        Kind            `json:"kind"`
	Count       int             `json:"count"`
	Total       decimal.Decimal `json:"total"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Realized    decimal.Decimal `json:"realized"`
	Groups      []CategoryGroup `json:"groups"`
}

// Summary is the aggregate of an entry set.
type Summary struct {
	Receivable       KindSummary     `json:"receivable"`
	Payable          KindSummary     `json:"payable"`
	ProjectedBalance decimal.Decimal `json:"projected_balance"`
	RealizedBalance  decimal.Decimal `json:"realized_balance"`
}

// CategoryGrowth compares a category's monthly total against the previous month.
type CategoryGrowth struct {
	Category Category        `json:"category"`
	Current  decimal.Decimal `json:"current"`
	Previous decimal.Decimal `json:"previous"`
	Growth   decimal.Decimal `json:"growth"`
}

// View bundles everything derived for one month of one snapshot.
type View struct {
	Month    string           `json:"month"`
	Version  uint64           `json:"version"`
	Category Category         `json:"category,omitempty"`
	Count    int              `json:"count"`
	Entries  []Entry          `json:"entries"`
	Summary  Summary          `json:"summary"`
	Growth   []CategoryGrowth `json:"growth"`
}
