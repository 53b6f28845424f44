package sheets

import (
	"fmt"

	"contas/internal/core"
)

// Report column headers (pt-BR, as shown in the spreadsheet).
var (
	summaryHeader = []any{"Tipo", "Itens", "Total", "Em aberto", "Realizado"}
	groupHeader   = []any{"Categoria", "Tipo", "Itens", "Total", "Em aberto", "Realizado", "% pago"}
	growthHeader  = []any{"Categoria", "Mês atual", "Mês anterior", "Variação %"}
	entryHeader   = []any{"Vencimento", "Descrição", "Tipo", "Categoria", "Valor", "Parcela", "Pago"}
)

// KindLabel returns the display name of a kind.
func KindLabel(k core.Kind) string {
	switch k {
	case core.Receivable:
		return "A receber"
	case core.Payable:
		return "A pagar"
	default:
		return string(k)
	}
}

// BuildReport lays out a month view as spreadsheet rows: a title line, the
// per-kind summary with both balances, the category groups, the growth table
// and finally every entry of the month.
func BuildReport(v core.View) [][]any {
	title := []any{"Relatório", v.Month}
	if v.Category != "" {
		title = append(title, string(v.Category))
	}
	rows := [][]any{title, {"Versão", fmt.Sprint(v.Version), "Itens", v.Count}, {}}

	rows = append(rows, summaryHeader)
	for _, ks := range []core.KindSummary{v.Summary.Receivable, v.Summary.Payable} {
		rows = append(rows, []any{
			KindLabel(ks.Kind),
			ks.Count,
			core.FormatBRL(ks.Total),
			core.FormatBRL(ks.Outstanding),
			core.FormatBRL(ks.Realized),
		})
	}
	rows = append(rows,
		[]any{"Saldo previsto", core.FormatBRL(v.Summary.ProjectedBalance)},
		[]any{"Saldo realizado", core.FormatBRL(v.Summary.RealizedBalance)},
		[]any{},
	)

	rows = append(rows, groupHeader)
	for _, ks := range []core.KindSummary{v.Summary.Receivable, v.Summary.Payable} {
		for _, g := range ks.Groups {
			rows = append(rows, []any{
				string(g.Category),
				KindLabel(ks.Kind),
				g.Count,
				core.FormatBRL(g.Total),
				core.FormatBRL(g.Outstanding),
				core.FormatBRL(g.Realized),
				g.PercentPaid.StringFixed(2),
			})
		}
	}
	rows = append(rows, []any{})

	rows = append(rows, growthHeader)
	for _, g := range v.Growth {
		rows = append(rows, []any{
			string(g.Category),
			core.FormatBRL(g.Current),
			core.FormatBRL(g.Previous),
			g.Growth.StringFixed(2),
		})
	}
	rows = append(rows, []any{})

	rows = append(rows, entryHeader)
	for _, e := range v.Entries {
		installment := ""
		if e.Installment != nil {
			installment = e.Installment.Label()
		}
		paid := "não"
		if e.Paid {
			paid = "sim"
		}
		rows = append(rows, []any{
			e.DueDate.String(),
			e.Description,
			KindLabel(e.Kind),
			string(e.Category),
			core.FormatBRL(e.Amount),
			installment,
			paid,
		})
	}
	return rows
}
