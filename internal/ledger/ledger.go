// Package ledger implements the pure computations over entry snapshots:
// installment expansion, month filtering, aggregation and category growth.
//
// Every function takes its input by value and never mutates it, so results
// can be recomputed from any snapshot at any time.
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"contas/internal/core"
)

var hundred = decimal.NewFromInt(100)

// Expand turns a recurring draft into its installments.
//
// Installment i (zero based) is due i*IntervalMonths months after the draft's
// due date, computed from the base date so that day clamping never drifts.
// Each installment carries the full amount, starts unpaid and has no
// recurrence of its own.
func Expand(d core.Draft) ([]core.Entry, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if d.Recurrence == nil {
		return nil, core.NewValidationError("recurrence", core.ErrNotTemplate)
	}

	base := d.Entry()
	n := d.Recurrence.InstallmentCount
	step := d.Recurrence.IntervalMonths

	out := make([]core.Entry, 0, n)
	for i := 0; i < n; i++ {
		e := base
		e.Description = fmt.Sprintf("%s (%d/%d)", base.Description, i+1, n)
		e.DueDate = d.DueDate.AddMonths(i * step)
		e.Paid = false
		e.Installment = &core.Installment{Index: i + 1, Count: n}
		if err := e.Validate(); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// FilterPeriod keeps the entries due inside p, preserving order.
func FilterPeriod(entries []core.Entry, p core.Period) []core.Entry {
	out := make([]core.Entry, 0, len(entries))
	for _, e := range entries {
		if p.Contains(e.DueDate) {
			out = append(out, e)
		}
	}
	return out
}

// FilterMonth keeps the entries due in the calendar month containing ref.
func FilterMonth(entries []core.Entry, ref core.Date) []core.Entry {
	return FilterPeriod(entries, core.MonthOf(ref).Period())
}

// FilterCategory keeps the entries of category c. An empty c keeps everything.
func FilterCategory(entries []core.Entry, c core.Category) []core.Entry {
	if c == "" {
		return entries
	}
	out := make([]core.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Category == c {
			out = append(out, e)
		}
	}
	return out
}

// Aggregate computes per-kind totals, balances and canonical category groups.
func Aggregate(entries []core.Entry) core.Summary {
	s := core.Summary{
		Receivable: summarizeKind(core.Receivable, entries),
		Payable:    summarizeKind(core.Payable, entries),
	}
	s.ProjectedBalance = s.Receivable.Outstanding.Sub(s.Payable.Outstanding)
	s.RealizedBalance = s.Receivable.Realized.Sub(s.Payable.Realized)
	return s
}

func summarizeKind(kind core.Kind, entries []core.Entry) core.KindSummary {
	ks := core.KindSummary{
		Kind:        kind,
		Total:       decimal.Zero,
		Outstanding: decimal.Zero,
		Realized:    decimal.Zero,
		Groups:      []core.CategoryGroup{},
	}
	groups := make(map[core.Category]*core.CategoryGroup)

	for _, e := range entries {
		if e.Kind != kind {
			continue
		}
		ks.Count++
		ks.Total = ks.Total.Add(e.Amount)
		if e.Paid {
			ks.Realized = ks.Realized.Add(e.Amount)
		} else {
			ks.Outstanding = ks.Outstanding.Add(e.Amount)
		}

		if !e.Category.Valid() {
			continue
		}
		g, ok := groups[e.Category]
		if !ok {
			g = &core.CategoryGroup{
				Category:    e.Category,
				Total:       decimal.Zero,
				Outstanding: decimal.Zero,
				Realized:    decimal.Zero,
			}
			groups[e.Category] = g
		}
		g.Entries = append(g.Entries, e)
		g.Count++
		g.Total = g.Total.Add(e.Amount)
		if e.Paid {
			g.Realized = g.Realized.Add(e.Amount)
		} else {
			g.Outstanding = g.Outstanding.Add(e.Amount)
		}
	}

	for _, c := range core.Categories() {
		g, ok := groups[c]
		if !ok {
			continue
		}
		g.PercentPaid = core.Percent(g.Realized, g.Realized.Add(g.Outstanding))
		ks.Groups = append(ks.Groups, *g)
	}
	return ks
}

// Growth compares each canonical category's total in ref's month with the
// previous month, ignoring kind and paid state.
func Growth(entries []core.Entry, ref core.Date) []core.CategoryGrowth {
	month := core.MonthOf(ref)
	cur := month.Period()
	prev := month.Prev().Period()

	curTotals := make(map[core.Category]decimal.Decimal)
	prevTotals := make(map[core.Category]decimal.Decimal)
	for _, e := range entries {
		switch {
		case cur.Contains(e.DueDate):
			curTotals[e.Category] = curTotals[e.Category].Add(e.Amount)
		case prev.Contains(e.DueDate):
			prevTotals[e.Category] = prevTotals[e.Category].Add(e.Amount)
		}
	}

	out := make([]core.CategoryGrowth, 0, len(core.Categories()))
	for _, c := range core.Categories() {
		current := curTotals[c].Add(decimal.Zero)
		previous := prevTotals[c].Add(decimal.Zero)
		out = append(out, core.CategoryGrowth{
			Category: c,
			Current:  current,
			Previous: previous,
			Growth:   GrowthRate(current, previous),
		})
	}
	return out
}

// GrowthRate returns the percent change from previous to current. A category
// appearing from nothing is capped at 100, and nothing to nothing is 0.
func GrowthRate(current, previous decimal.Decimal) decimal.Decimal {
	switch {
	case previous.IsPositive():
		return current.Sub(previous).Mul(hundred).DivRound(previous, 2)
	case current.IsPositive():
		return hundred
	default:
		return decimal.Zero
	}
}

// BuildView derives the month view of a snapshot, optionally narrowed to one category.
func BuildView(s core.Snapshot, m core.Month, category core.Category) core.View {
	scoped := FilterCategory(s.Entries, category)
	monthEntries := FilterPeriod(scoped, m.Period())
	return core.View{
		Month:    m.String(),
		Version:  s.Version,
		Category: category,
		Count:    len(monthEntries),
		Entries:  monthEntries,
		Summary:  Aggregate(monthEntries),
		Growth:   Growth(scoped, m.First()),
	}
}
