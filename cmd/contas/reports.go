package main

import (
	"io"

	"github.com/spf13/cobra"

	"contas/internal/cli"
	"contas/internal/core"
)

type monthFlags struct {
	month    string
	category string
}

func (f *monthFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.month, "month", "m", "", "month YYYY-MM (default current month)")
	cmd.Flags().StringVarP(&f.category, "category", "c", "", "restrict to one category")
}

func (f *monthFlags) parse() (core.Month, core.Category, error) {
	m := core.CurrentMonth()
	if f.month != "" {
		var err error
		if m, err = core.ParseMonth(f.month); err != nil {
			return core.Month{}, "", core.NewValidationError("month", err)
		}
	}
	if f.category == "" {
		return m, "", nil
	}
	c, err := core.ParseCategory(f.category)
	if err != nil {
		return core.Month{}, "", core.NewValidationError("category", err)
	}
	return m, c, nil
}

// viewCommand builds a read-only command that renders the month view.
func viewCommand(use, short string, render func(io.Writer, core.View) error) *cobra.Command {
	var f monthFlags
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			m, c, err := f.parse()
			if err != nil {
				return err
			}

			res, err := openBackend(ctx)
			if err != nil {
				return err
			}
			defer closeBackend(ctx, res)

			v, err := newViewService(res).View(ctx, m, c)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), v)
		},
	}
	f.register(cmd)
	return cmd
}

func listCmd() *cobra.Command {
	return viewCommand("list", "List the entries due in a month", cli.RenderEntries)
}

func summaryCmd() *cobra.Command {
	return viewCommand("summary", "Show totals, category groups and balances for a month", cli.RenderSummary)
}

func growthCmd() *cobra.Command {
	return viewCommand("growth", "Compare each category with the previous month", cli.RenderGrowth)
}
