package ledger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"contas/internal/core"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func entry(id string, kind core.Kind, cat core.Category, amount string, due core.Date, paid bool) core.Entry {
	return core.Entry{
		ID:          id,
		Description: id,
		Amount:      dec(amount),
		Kind:        kind,
		Category:    cat,
		DueDate:     due,
		Paid:        paid,
	}
}

func TestExpand(t *testing.T) {
	draft := core.Draft{
		Description: "Consultoria",
		Amount:      dec("1200"),
		Kind:        core.Receivable,
		Category:    core.Trabalho,
		DueDate:     core.NewDate(2024, 1, 15),
		Paid:        true,
		Recurrence:  &core.Recurrence{InstallmentCount: 3, IntervalMonths: 1},
	}
	got, err := Expand(draft)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 installments, got %d", len(got))
	}
	wantDates := []string{"2024-01-15", "2024-02-15", "2024-03-15"}
	wantDesc := []string{"Consultoria (1/3)", "Consultoria (2/3)", "Consultoria (3/3)"}
	sum := decimal.Zero
	for i, e := range got {
		if e.DueDate.String() != wantDates[i] {
			t.Errorf("installment %d due %s, want %s", i, e.DueDate, wantDates[i])
		}
		if e.Description != wantDesc[i] {
			t.Errorf("installment %d description %q, want %q", i, e.Description, wantDesc[i])
		}
		if e.Paid {
			t.Errorf("installment %d must start unpaid", i)
		}
		if e.Installment == nil || e.Installment.Index != i+1 || e.Installment.Count != 3 {
			t.Errorf("installment %d has metadata %+v", i, e.Installment)
		}
		if !e.Amount.Equal(dec("1200")) || e.Kind != core.Receivable || e.Category != core.Trabalho {
			t.Errorf("installment %d lost template fields: %+v", i, e)
		}
		sum = sum.Add(e.Amount)
	}
	if !sum.Equal(dec("3600")) {
		t.Errorf("expected sum 3600, got %s", sum)
	}
}

func TestExpandClampsAndUsesInterval(t *testing.T) {
	cases := []struct {
		name     string
		base     core.Date
		count    int
		interval int
		want     []string
	}{
		{"month end non-leap", core.NewDate(2023, 1, 31), 3, 1, []string{"2023-01-31", "2023-02-28", "2023-03-31"}},
		{"month end leap", core.NewDate(2024, 1, 31), 2, 1, []string{"2024-01-31", "2024-02-29"}},
		{"quarterly", core.NewDate(2024, 11, 30), 3, 3, []string{"2024-11-30", "2025-02-28", "2025-05-30"}},
		{"single", core.NewDate(2024, 5, 5), 1, 12, []string{"2024-05-05"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Expand(core.Draft{
				Description: "Aluguel",
				Amount:      dec("10.50"),
				Kind:        core.Payable,
				Category:    core.Moradia,
				DueDate:     tc.base,
				Recurrence:  &core.Recurrence{InstallmentCount: tc.count, IntervalMonths: tc.interval},
			})
			if err != nil {
				t.Fatalf("Expand: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("expected %d installments, got %d", len(tc.want), len(got))
			}
			for i, e := range got {
				if e.DueDate.String() != tc.want[i] {
					t.Errorf("installment %d due %s, want %s", i, e.DueDate, tc.want[i])
				}
			}
		})
	}
}

func TestExpandRejectsInvalid(t *testing.T) {
	base := core.Draft{
		Description: "x",
		Amount:      dec("1"),
		Kind:        core.Payable,
		Category:    core.Lazer,
		DueDate:     core.NewDate(2024, 1, 1),
	}
	if _, err := Expand(base); !errors.Is(err, core.ErrNotTemplate) {
		t.Fatalf("expected ErrNotTemplate, got %v", err)
	}
	bad := base
	bad.Recurrence = &core.Recurrence{InstallmentCount: 0, IntervalMonths: 1}
	if _, err := Expand(bad); !errors.Is(err, core.ErrInvalidInstallmentCount) {
		t.Fatalf("expected ErrInvalidInstallmentCount, got %v", err)
	}
	bad.Recurrence = &core.Recurrence{InstallmentCount: core.MaxInstallments + 1, IntervalMonths: 1}
	if _, err := Expand(bad); !errors.Is(err, core.ErrInvalidInstallmentCount) {
		t.Fatalf("expected ErrInvalidInstallmentCount above the cap, got %v", err)
	}
	bad.Recurrence = &core.Recurrence{InstallmentCount: 2, IntervalMonths: 0}
	if _, err := Expand(bad); !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFilterMonthBoundaries(t *testing.T) {
	entries := []core.Entry{
		entry("before", core.Payable, core.Lazer, "1", core.NewDate(2024, 1, 31), false),
		entry("first", core.Payable, core.Lazer, "1", core.NewDate(2024, 2, 1), false),
		entry("mid", core.Payable, core.Lazer, "1", core.NewDate(2024, 2, 14), false),
		entry("last", core.Payable, core.Lazer, "1", core.NewDate(2024, 2, 29), false),
		entry("after", core.Payable, core.Lazer, "1", core.NewDate(2024, 3, 1), false),
	}
	got := FilterMonth(entries, core.NewDate(2024, 2, 10))
	want := []string{"first", "mid", "last"}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i].ID)
		}
	}
}

func TestAggregateBalances(t *testing.T) {
	d := core.NewDate(2024, 2, 10)
	entries := []core.Entry{
		entry("r1", core.Receivable, core.Trabalho, "600", d, false),
		entry("r2", core.Receivable, core.Servicos, "400", d, false),
		entry("r3", core.Receivable, core.Trabalho, "700", d, true),
		entry("p1", core.Payable, core.Moradia, "400", d, false),
		entry("p2", core.Payable, core.Alimentacao, "300", d, true),
	}
	s := Aggregate(entries)

	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"receivable outstanding", s.Receivable.Outstanding, "1000"},
		{"receivable realized", s.Receivable.Realized, "700"},
		{"payable outstanding", s.Payable.Outstanding, "400"},
		{"payable realized", s.Payable.Realized, "300"},
		{"projected balance", s.ProjectedBalance, "600"},
		{"realized balance", s.RealizedBalance, "400"},
		{"receivable total", s.Receivable.Total, "1700"},
	}
	for _, c := range checks {
		if !c.got.Equal(dec(c.want)) {
			t.Errorf("%s: expected %s, got %s", c.name, c.want, c.got)
		}
	}
	if s.Receivable.Count != 3 || s.Payable.Count != 2 {
		t.Errorf("unexpected counts %d/%d", s.Receivable.Count, s.Payable.Count)
	}
}

func TestAggregateExactDecimal(t *testing.T) {
	d := core.NewDate(2024, 2, 10)
	entries := []core.Entry{
		entry("a", core.Payable, core.Lazer, "0.10", d, false),
		entry("b", core.Payable, core.Lazer, "0.20", d, false),
	}
	s := Aggregate(entries)
	if !s.Payable.Outstanding.Equal(dec("0.3")) {
		t.Fatalf("expected exactly 0.3, got %s", s.Payable.Outstanding)
	}
}

func TestAggregateCanonicalGroupOrder(t *testing.T) {
	d := core.NewDate(2024, 2, 10)
	entries := []core.Entry{
		entry("s", core.Payable, core.Servicos, "10", d, false),
		entry("l", core.Payable, core.Lazer, "10", d, true),
		entry("a", core.Payable, core.Alimentacao, "10", d, false),
		entry("l2", core.Payable, core.Lazer, "30", d, false),
		entry("x", core.Payable, core.Category("Viagem"), "99", d, false),
	}
	s := Aggregate(entries)
	want := []core.Category{core.Alimentacao, core.Lazer, core.Servicos}
	if len(s.Payable.Groups) != len(want) {
		t.Fatalf("expected %d groups, got %d", len(want), len(s.Payable.Groups))
	}
	for i, c := range want {
		if s.Payable.Groups[i].Category != c {
			t.Errorf("group %d: expected %s, got %s", i, c, s.Payable.Groups[i].Category)
		}
	}
	if len(s.Receivable.Groups) != 0 {
		t.Errorf("empty kind must have no groups, got %d", len(s.Receivable.Groups))
	}
	lazer := s.Payable.Groups[1]
	if lazer.Count != 2 || !lazer.Total.Equal(dec("40")) || !lazer.PercentPaid.Equal(dec("25")) {
		t.Errorf("unexpected lazer group %+v", lazer)
	}
	if !s.Payable.Groups[0].PercentPaid.IsZero() {
		t.Errorf("unpaid group must be 0%%, got %s", s.Payable.Groups[0].PercentPaid)
	}
	if !s.Payable.Total.Equal(dec("159")) {
		t.Errorf("unknown category still counts in kind total, got %s", s.Payable.Total)
	}
}

func TestGrowth(t *testing.T) {
	jan := core.NewDate(2024, 1, 10)
	feb := core.NewDate(2024, 2, 10)
	entries := []core.Entry{
		// Alimentação: 0 -> 300
		entry("a", core.Payable, core.Alimentacao, "300", feb, false),
		// Moradia: 250 -> 500, kinds and paid mixed
		entry("m1", core.Payable, core.Moradia, "250", jan, true),
		entry("m2", core.Receivable, core.Moradia, "200", feb, false),
		entry("m3", core.Payable, core.Moradia, "300", feb, true),
		// Lazer: 200 -> 50
		entry("l1", core.Payable, core.Lazer, "200", jan, false),
		entry("l2", core.Payable, core.Lazer, "50", feb, false),
		// Saúde: 300 -> 0
		entry("s", core.Payable, core.Saude, "300", jan, false),
		// outside both months
		entry("old", core.Payable, core.Transporte, "999", core.NewDate(2023, 12, 31), false),
	}
	got := Growth(entries, feb)
	if len(got) != len(core.Categories()) {
		t.Fatalf("expected one row per category, got %d", len(got))
	}
	want := map[core.Category]string{
		core.Alimentacao: "100",
		core.Transporte:  "0",
		core.Moradia:     "100",
		core.Saude:       "-100",
		core.Lazer:       "-75",
		core.Trabalho:    "0",
		core.Servicos:    "0",
	}
	for i, row := range got {
		if row.Category != core.Categories()[i] {
			t.Errorf("row %d out of canonical order: %s", i, row.Category)
		}
		if !row.Growth.Equal(dec(want[row.Category])) {
			t.Errorf("%s: expected growth %s, got %s", row.Category, want[row.Category], row.Growth)
		}
	}
	if !got[2].Current.Equal(dec("500")) || !got[2].Previous.Equal(dec("250")) {
		t.Errorf("unexpected moradia totals %+v", got[2])
	}
}

func TestGrowthRate(t *testing.T) {
	cases := []struct{ cur, prev, want string }{
		{"300", "0", "100"},
		{"0", "0", "0"},
		{"500", "250", "100"},
		{"100", "300", "-66.67"},
		{"0", "10", "-100"},
	}
	for _, tc := range cases {
		if got := GrowthRate(dec(tc.cur), dec(tc.prev)); !got.Equal(dec(tc.want)) {
			t.Errorf("GrowthRate(%s, %s) = %s, want %s", tc.cur, tc.prev, got, tc.want)
		}
	}
}

func TestBuildViewEndToEnd(t *testing.T) {
	installments, err := Expand(core.Draft{
		Description: "Projeto",
		Amount:      dec("1200"),
		Kind:        core.Receivable,
		Category:    core.Trabalho,
		DueDate:     core.NewDate(2024, 1, 15),
		Recurrence:  &core.Recurrence{InstallmentCount: 3, IntervalMonths: 1},
	})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	for i := range installments {
		installments[i].ID = installments[i].Installment.Label()
	}
	snap := core.Snapshot{Version: 3, Entries: installments}
	feb := core.Month{Year: 2024, Month: 2}

	v := BuildView(snap, feb, "")
	if v.Count != 1 || v.Entries[0].ID != "2/3" {
		t.Fatalf("expected only the second installment, got %+v", v.Entries)
	}
	if !v.Summary.Receivable.Outstanding.Equal(dec("1200")) || !v.Summary.Receivable.Realized.IsZero() {
		t.Fatalf("unexpected summary before toggle: %+v", v.Summary.Receivable)
	}

	snap.Entries[1] = core.SetPaid(!snap.Entries[1].Paid).Apply(snap.Entries[1])
	snap.Version++
	v = BuildView(snap, feb, "")
	if !v.Summary.Receivable.Realized.Equal(dec("1200")) || !v.Summary.Receivable.Outstanding.IsZero() {
		t.Fatalf("unexpected summary after toggle: %+v", v.Summary.Receivable)
	}
	if v.Version != 4 || v.Month != "2024-02" {
		t.Fatalf("unexpected view header %d %s", v.Version, v.Month)
	}

	if other := BuildView(snap, feb, core.Lazer); other.Count != 0 {
		t.Fatalf("category filter leaked %d entries", other.Count)
	}
}
