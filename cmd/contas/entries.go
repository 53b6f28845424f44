package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"contas/internal/cli"
	"contas/internal/core"
)

func addCmd() *cobra.Command {
	var (
		kind, category, due string
		paid                bool
		installments, every int
	)
	cmd := &cobra.Command{
		Use:   "add DESCRIPTION AMOUNT",
		Short: "Record an entry, optionally split into monthly installments",
		Example: `  contas add "Aluguel" 1800 --kind pagar --category moradia --due 2024-01-10 --installments 12
  contas add "Consultoria" "2.500,00" --kind receber --category trabalho --due 2024-02-05`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			d, err := buildDraft(args[0], args[1], kind, category, due, paid, installments, every)
			if err != nil {
				return err
			}

			res, err := openBackend(ctx)
			if err != nil {
				return err
			}
			defer closeBackend(ctx, res)
			warnEphemeral(ctx)

			created, err := res.Entries.Create(ctx, d)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, id := range created.IDs {
				fmt.Fprintln(out, id)
			}
			for _, w := range created.Warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatWarning(w))
			}
			fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatSuccess(fmt.Sprintf("%d entr%s created", len(created.IDs), plural(len(created.IDs)))))
			return nil
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "receivable|payable (also receber, pagar, r, p)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "category name, case and accents ignored")
	cmd.Flags().StringVarP(&due, "due", "d", "", "due date YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&paid, "paid", false, "mark a single entry as already paid")
	cmd.Flags().IntVarP(&installments, "installments", "n", 0, "number of installments; 0 records a single entry")
	cmd.Flags().IntVar(&every, "every", 1, "months between installments")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

// buildDraft parses command-line input into a draft. Range checks are left to
// Draft.Validate so the CLI and the API reject the same inputs.
func buildDraft(desc, amount, kind, category, due string, paid bool, installments, every int) (core.Draft, error) {
	amt, err := core.ParseAmount(amount)
	if err != nil {
		return core.Draft{}, core.NewValidationError("amount", err)
	}
	k, err := core.ParseKind(kind)
	if err != nil {
		return core.Draft{}, core.NewValidationError("kind", err)
	}
	c, err := core.ParseCategory(category)
	if err != nil {
		return core.Draft{}, core.NewValidationError("category", err)
	}
	dueDate := core.Today()
	if strings.TrimSpace(due) != "" {
		if dueDate, err = core.ParseDate(due); err != nil {
			return core.Draft{}, core.NewValidationError("due_date", err)
		}
	}

	d := core.Draft{
		Description: desc,
		Amount:      amt,
		Kind:        k,
		Category:    c,
		DueDate:     dueDate,
		Paid:        paid,
	}
	if installments != 0 {
		d.Recurrence = &core.Recurrence{InstallmentCount: installments, IntervalMonths: every}
	}
	return d, nil
}

func editCmd() *cobra.Command {
	var desc, amount, category, due string
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change the description, amount, category or due date of an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var p core.Patch
			flags := cmd.Flags()
			if flags.Changed("description") {
				p.Description = &desc
			}
			if flags.Changed("amount") {
				amt, err := core.ParseAmount(amount)
				if err != nil {
					return core.NewValidationError("amount", err)
				}
				p.Amount = &amt
			}
			if flags.Changed("category") {
				c, err := core.ParseCategory(category)
				if err != nil {
					return core.NewValidationError("category", err)
				}
				p.Category = &c
			}
			if flags.Changed("due") {
				d, err := core.ParseDate(due)
				if err != nil {
					return core.NewValidationError("due_date", err)
				}
				p.DueDate = &d
			}

			res, err := openBackend(ctx)
			if err != nil {
				return err
			}
			defer closeBackend(ctx, res)

			if err := res.Entries.Update(ctx, args[0], p); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatSuccess("entry updated"))
			return nil
		},
	}
	cmd.Flags().StringVar(&desc, "description", "", "new description")
	cmd.Flags().StringVar(&amount, "amount", "", "new amount")
	cmd.Flags().StringVarP(&category, "category", "c", "", "new category")
	cmd.Flags().StringVarP(&due, "due", "d", "", "new due date YYYY-MM-DD")
	return cmd
}

func toggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle ID",
		Short: "Flip the paid flag of an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			res, err := openBackend(ctx)
			if err != nil {
				return err
			}
			defer closeBackend(ctx, res)

			e, err := res.Entries.TogglePaid(ctx, args[0])
			if err != nil {
				return err
			}
			state := "unpaid"
			if e.Paid {
				state = "paid"
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s marked %s", e.Description, state)))
			return nil
		},
	}
}

func rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete an entry",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			res, err := openBackend(ctx)
			if err != nil {
				return err
			}
			defer closeBackend(ctx, res)

			if err := res.Entries.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatSuccess("entry deleted"))
			return nil
		},
	}
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
