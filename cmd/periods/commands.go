package main

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/warp/period-engine/billing"
	"github.com/warp/period-engine/calendar"
	"github.com/warp/period-engine/factory"
)

// =============================================================================
// PERIOD ARITHMETIC
// =============================================================================

func newNormalizeCmd() *cobra.Command {
	var cadenceText string
	cmd := &cobra.Command{
		Use:   "normalize DATE",
		Short: "Print the period containing DATE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cadence, err := calendar.ParseCadence(cadenceText)
			if err != nil {
				return err
			}
			date, err := calendar.ParseDate(args[0])
			if err != nil {
				return err
			}
			start, end := calendar.PeriodBounds(date, cadence)
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s to %s)\n", end, start, end)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cadenceText, "cadence", "c", "monthly", "monthly or biweekly")
	return cmd
}

func newElapsedCmd() *cobra.Command {
	var cadenceText string
	cmd := &cobra.Command{
		Use:   "elapsed START END",
		Short: "Count the periods from START to END",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cadence, err := calendar.ParseCadence(cadenceText)
			if err != nil {
				return err
			}
			start, err := calendar.ParseDate(args[0])
			if err != nil {
				return err
			}
			end, err := calendar.ParseDate(args[1])
			if err != nil {
				return err
			}
			n, err := calendar.ElapsedPeriodsSince(start, end, cadence)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cadenceText, "cadence", "c", "monthly", "monthly or biweekly")
	return cmd
}

func newShiftCmd() *cobra.Command {
	var (
		unitText string
		amount   int
	)
	cmd := &cobra.Command{
		Use:   "shift PERIOD",
		Short: "Move a period end by --amount months or fortnights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			unit, err := calendar.ParseGranularity(unitText)
			if err != nil {
				return err
			}
			period, err := calendar.ParseDate(args[0])
			if err != nil {
				return err
			}
			shifted, err := calendar.Shift(period, unit, amount)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), shifted)
			return nil
		},
	}
	cmd.Flags().StringVarP(&unitText, "unit", "u", "month", "month or fortnight")
	cmd.Flags().IntVarP(&amount, "amount", "n", 1, "Periods to move, negative for earlier")
	return cmd
}

func newLabelCmd() *cobra.Command {
	var cadenceText string
	cmd := &cobra.Command{
		Use:   "label LABEL",
		Short: "Print the period end named by a label such as 2025-05-first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cadence, err := calendar.ParseCadence(cadenceText)
			if err != nil {
				return err
			}
			date, err := billing.ParsePeriodLabelForCadence(args[0], cadence)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), date)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cadenceText, "cadence", "c", "monthly", "monthly or biweekly")
	return cmd
}

func newRelativeCmd(state *cliState) *cobra.Command {
	var unitText string
	cmd := &cobra.Command{
		Use:   "relative current|last",
		Short: "Print the current or last period end",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			unit, err := calendar.ParseGranularity(unitText)
			if err != nil {
				return err
			}
			clock, err := state.clock()
			if err != nil {
				return err
			}
			var rel calendar.RelativeTime
			switch strings.ToLower(args[0]) {
			case "current":
				rel = calendar.Current(unit)
			case "last":
				rel = calendar.Last(unit)
			default:
				return fmt.Errorf("expected current or last, got %q", args[0])
			}
			date, err := calendar.PeriodEndFromRelativeTime(rel, clock)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), date)
			return nil
		},
	}
	cmd.Flags().StringVarP(&unitText, "unit", "u", "month", "month or fortnight")
	return cmd
}

// =============================================================================
// PROFILE COMMANDS
// =============================================================================

type targetFlags struct {
	profile string
	date    string
	target  string
}

func (f *targetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.profile, "profile", "p", "", "Profile file (.yaml or .json)")
	cmd.Flags().StringVarP(&f.date, "date", "d", "", "Any date inside the period to invoice")
	cmd.Flags().StringVarP(&f.target, "target", "t", "", "current or last period in the profile's cadence")
}

func newNumberCmd(state *cliState) *cobra.Command {
	var (
		flags    targetFlags
		expenses bool
	)
	cmd := &cobra.Command{
		Use:   "number",
		Short: "Print the invoice number for a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session, err := state.openProfile(ctx, flags.profile)
			if err != nil {
				return err
			}
			date, err := session.target(ctx, flags.date, flags.target)
			if err != nil {
				return err
			}
			n, err := session.service.InvoiceNumber(ctx, session.id, date, expenses)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVarP(&expenses, "expenses", "e", false, "Number the expenses invoice")
	return cmd
}

func newQuantityCmd(state *cliState) *cobra.Command {
	var flags targetFlags
	cmd := &cobra.Command{
		Use:   "quantity",
		Short: "Print the billable quantity for a period before time off",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session, err := state.openProfile(ctx, flags.profile)
			if err != nil {
				return err
			}
			date, err := session.target(ctx, flags.date, flags.target)
			if err != nil {
				return err
			}
			q, err := session.service.Quantity(ctx, session.id, date)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), q)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newPrepareCmd(state *cliState) *cobra.Command {
	var (
		flags    targetFlags
		expenses bool
		timeOff  string
	)
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Print the invoice plan for a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session, err := state.openProfile(ctx, flags.profile)
			if err != nil {
				return err
			}
			date, err := session.target(ctx, flags.date, flags.target)
			if err != nil {
				return err
			}

			var items billing.Items = billing.ExpenseItems{}
			if !expenses {
				services := billing.ServiceItems{}
				if timeOff != "" {
					t, err := parseTimeOff(timeOff)
					if err != nil {
						return err
					}
					services.TimeOff = &t
				}
				items = services
			}

			plan, err := session.service.Prepare(ctx, session.id, billing.Request{Date: date, Items: items})
			if err != nil {
				return err
			}
			printPlan(cmd, plan)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVarP(&expenses, "expenses", "e", false, "Invoice the period's expenses")
	cmd.Flags().StringVar(&timeOff, "time-off", "", `Time off to subtract, e.g. "2 day"`)
	return cmd
}

func newRecordOffCmd(state *cliState) *cobra.Command {
	var profilePath string
	cmd := &cobra.Command{
		Use:   "record-off LABEL",
		Short: "Record a period off in the profile file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session, err := state.openProfile(ctx, profilePath)
			if err != nil {
				return err
			}
			period, err := session.service.RecordPeriodOff(ctx, session.id, args[0])
			if err != nil {
				return err
			}
			if err := session.save(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recorded %s as off\n", period)
			return nil
		},
	}
	cmd.Flags().StringVarP(&profilePath, "profile", "p", "", "Profile file (.yaml or .json)")
	return cmd
}

func newReanchorCmd(state *cliState) *cobra.Command {
	var (
		profilePath string
		offset      int
	)
	cmd := &cobra.Command{
		Use:   "reanchor PERIOD",
		Short: "Anchor the profile at --offset for PERIOD",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session, err := state.openProfile(ctx, profilePath)
			if err != nil {
				return err
			}
			period, err := calendar.ParseDate(args[0])
			if err != nil {
				return err
			}
			anchor := billing.Anchor{Offset: billing.InvoiceNumber(offset), Period: period}
			updated, err := session.service.Reanchor(ctx, session.id, anchor)
			if err != nil {
				return err
			}
			if err := session.save(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "anchored invoice %d at %s\n",
				updated.Information.Anchor.Offset, updated.Information.Anchor.Period)
			return nil
		},
	}
	cmd.Flags().StringVarP(&profilePath, "profile", "p", "", "Profile file (.yaml or .json)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Invoice number of PERIOD")
	cmd.MarkFlagRequired("offset")
	return cmd
}

func newRecordExpensesCmd(state *cliState) *cobra.Command {
	var (
		profilePath string
		itemTexts   []string
	)
	cmd := &cobra.Command{
		Use:   "record-expenses LABEL",
		Short: "Record expense items for a period in the profile file",
		Example: `  periods record-expenses 2024-08 -p acme.yaml \
    --item "Train,95,2,EUR,2024-08-12" --item "Hotel,129.50,3,EUR,2024-08-13"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(itemTexts) == 0 {
				return fmt.Errorf("at least one --item is required")
			}
			items := make([]billing.ExpenseItem, len(itemTexts))
			for i, text := range itemTexts {
				item, err := parseExpenseItem(text)
				if err != nil {
					return err
				}
				items[i] = item
			}
			ctx := cmd.Context()
			session, err := state.openProfile(ctx, profilePath)
			if err != nil {
				return err
			}
			period, err := session.service.RecordExpenses(ctx, session.id, args[0], items)
			if err != nil {
				return err
			}
			if err := session.save(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recorded %d expense item(s) for %s\n", len(items), period)
			return nil
		},
	}
	cmd.Flags().StringVarP(&profilePath, "profile", "p", "", "Profile file (.yaml or .json)")
	cmd.Flags().StringArrayVar(&itemTexts, "item", nil, `Expense item "name,unit price,quantity,currency,YYYY-MM-DD" (repeatable)`)
	return cmd
}

func newValidateCmd(state *cliState) *cobra.Command {
	var profilePath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that a profile file loads and is consistent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session, err := state.openProfile(ctx, profilePath)
			if err != nil {
				return err
			}
			p, err := session.service.Profile(ctx, session.id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s is valid\n", profilePath)
			fmt.Fprintf(out, "  cadence:      %s\n", p.Cadence())
			fmt.Fprintf(out, "  anchor:       invoice %d at %s\n", p.Information.Anchor.Offset, p.Information.Anchor.Period)
			fmt.Fprintf(out, "  periods off:  %d\n", p.Information.PeriodsOff.Len())
			fmt.Fprintf(out, "  expensed:     %d period(s)\n", p.Expenses.Len())
			return nil
		},
	}
	cmd.Flags().StringVarP(&profilePath, "profile", "p", "", "Profile file (.yaml or .json)")
	return cmd
}

// =============================================================================
// HELPERS
// =============================================================================

// parseExpenseItem reads "name,unit price,quantity,currency,YYYY-MM-DD".
func parseExpenseItem(s string) (billing.ExpenseItem, error) {
	fields := strings.Split(s, ",")
	if len(fields) != 5 {
		return billing.ExpenseItem{}, fmt.Errorf("expense %q: expected name,unit price,quantity,currency,date", s)
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if fields[0] == "" || fields[3] == "" {
		return billing.ExpenseItem{}, fmt.Errorf("expense %q: name and currency are required", s)
	}
	item, err := factory.ParseExpenseItem(factory.ExpenseItemJSON{
		Name:            fields[0],
		UnitPrice:       fields[1],
		Quantity:        fields[2],
		Currency:        strings.ToUpper(fields[3]),
		TransactionDate: fields[4],
	})
	if err != nil {
		return billing.ExpenseItem{}, fmt.Errorf("expense %q: %w", s, err)
	}
	return item, nil
}

// parseTimeOff reads "<value> <unit>", e.g. "2 day" or "12.5 hour".
func parseTimeOff(s string) (billing.TimeOff, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return billing.TimeOff{}, fmt.Errorf("time off %q: expected <value> <unit>", s)
	}
	value, err := decimal.NewFromString(fields[0])
	if err != nil {
		return billing.TimeOff{}, fmt.Errorf("time off %q: %w", s, err)
	}
	unit, err := calendar.ParseGranularity(fields[1])
	if err != nil {
		return billing.TimeOff{}, err
	}
	return billing.NewTimeOff(value, unit), nil
}

func printPlan(cmd *cobra.Command, plan billing.Plan) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Invoice #%d  %s\n", plan.Number, plan.FileName())
	fmt.Fprintf(out, "Period:  %s to %s\n", plan.PeriodStart, plan.PeriodEnd)
	fmt.Fprintf(out, "Due:     %s\n", plan.DueDate)
	fmt.Fprintf(out, "From:    %s\n", plan.Vendor.Name)
	fmt.Fprintf(out, "To:      %s\n", plan.Client.Name)
	fmt.Fprintln(out, strings.Repeat("-", 60))
	for _, l := range plan.LineItems {
		fmt.Fprintf(out, "%-30s %8s x %10s = %10s %s\n",
			truncate(l.Name, 30), l.Quantity, l.UnitPrice.StringFixed(2), l.Total().StringFixed(2), l.Currency)
	}
	fmt.Fprintln(out, strings.Repeat("-", 60))
	fmt.Fprintf(out, "Total: %s %s\n", plan.Total().StringFixed(2), plan.Currency)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
