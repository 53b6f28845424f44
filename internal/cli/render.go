package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"contas/internal/core"
)

// KindLabel is the short pt-BR label used in tables.
func KindLabel(k core.Kind) string {
	if k == core.Payable {
		return "pagar"
	}
	return "receber"
}

// Signed renders a payable as a negative amount.
func Signed(e core.Entry) string {
	if e.Kind == core.Payable {
		return core.FormatBRL(e.Amount.Neg())
	}
	return core.FormatBRL(e.Amount)
}

// RenderEntries writes one row per entry. Empty input prints a hint instead.
func RenderEntries(w io.Writer, v core.View) error {
	title := "Lançamentos " + v.Month
	if v.Category != "" {
		title += " · " + string(v.Category)
	}
	if _, err := fmt.Fprintln(w, FormatTitle(title)); err != nil {
		return err
	}
	if len(v.Entries) == 0 {
		_, err := fmt.Fprintln(w, SubtleStyle.Render("Nenhum lançamento neste mês."))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tVENCIMENTO\tDESCRIÇÃO\tTIPO\tCATEGORIA\tVALOR\tPAGO")
	for _, e := range v.Entries {
		paid := "não"
		if e.Paid {
			paid = "sim"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.DueDate, e.Description, KindLabel(e.Kind), e.Category, Signed(e), paid)
	}
	return tw.Flush()
}

// RenderSummary writes the per-kind totals, the category groups and the balances.
func RenderSummary(w io.Writer, v core.View) error {
	if _, err := fmt.Fprintln(w, FormatTitle("Resumo "+v.Month)); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIPO\tCATEGORIA\tITENS\tTOTAL\tEM ABERTO\tREALIZADO\t% PAGO")
	for _, ks := range []core.KindSummary{v.Summary.Receivable, v.Summary.Payable} {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t\n",
			KindLabel(ks.Kind), "todas", ks.Count,
			core.FormatBRL(ks.Total), core.FormatBRL(ks.Outstanding), core.FormatBRL(ks.Realized))
		for _, g := range ks.Groups {
			fmt.Fprintf(tw, "\t%s\t%d\t%s\t%s\t%s\t%s%%\n",
				g.Category, g.Count,
				core.FormatBRL(g.Total), core.FormatBRL(g.Outstanding), core.FormatBRL(g.Realized),
				g.PercentPaid.StringFixed(2))
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	balances := strings.Join([]string{
		"Saldo previsto:  " + styleBalance(v.Summary.ProjectedBalance),
		"Saldo realizado: " + styleBalance(v.Summary.RealizedBalance),
	}, "\n")
	_, err := fmt.Fprintln(w, BoxStyle.Render(balances))
	return err
}

// RenderGrowth writes the month-over-month comparison per category.
func RenderGrowth(w io.Writer, v core.View) error {
	if _, err := fmt.Fprintln(w, FormatTitle("Crescimento "+v.Month)); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORIA\tMÊS ATUAL\tMÊS ANTERIOR\tVARIAÇÃO")
	for _, g := range v.Growth {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s%%\n",
			g.Category, core.FormatBRL(g.Current), core.FormatBRL(g.Previous), g.Growth.StringFixed(2))
	}
	return tw.Flush()
}

func styleBalance(d decimal.Decimal) string {
	s := core.FormatBRL(d)
	if d.IsNegative() {
		return ErrorStyle.Render(s)
	}
	return SuccessStyle.Render(s)
}
