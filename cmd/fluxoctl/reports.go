package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"fluxo/internal/core"
	"fluxo/internal/ledger"
	"fluxo/internal/services"
)

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// rangeFlags resolves --from/--to, defaulting to the current month.
func rangeFlags(cmd *cobra.Command, a *app) (core.DateRange, error) {
	rng := a.today().YearMonth().Range()
	if s, _ := cmd.Flags().GetString("from"); s != "" {
		d, err := core.ParseDate(s)
		if err != nil {
			return rng, err
		}
		rng.Start = d
	}
	if s, _ := cmd.Flags().GetString("to"); s != "" {
		d, err := core.ParseDate(s)
		if err != nil {
			return rng, err
		}
		rng.End = d
	}
	return rng, rng.Validate()
}

func addRangeFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "First day of the range (YYYY-MM-DD, default: first day of this month)")
	cmd.Flags().String("to", "", "Last day of the range (YYYY-MM-DD, default: last day of this month)")
}

func newCashFlowCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cashflow",
		Short: "Print realized and forecast cash flow by day",
		Example: `  fluxoctl cashflow
  fluxoctl cashflow --from 2024-05-01 --to 2024-06-30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rng, err := rangeFlags(cmd, a)
			if err != nil {
				return err
			}
			return a.withStore(cmd.Context(), func(store ledger.Store) error {
				res, err := services.NewReportService(store, a.options()...).CashFlow(cmd.Context(), rng)
				if err != nil {
					return err
				}
				tw := newTable(a.out)
				fmt.Fprintln(tw, "DATE\tSERIES\tINFLOW\tOUTFLOW\tBALANCE\t")
				for _, row := range res.Rows {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
						row.Date, row.Series, money(row.Inflow), money(row.Outflow), money(row.Balance))
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "\nRealized balance:  %s\nForecast balance:  %s\nProjected balance: %s\n",
					money(res.RealizedBalance), money(res.ForecastBalance), money(res.ProjectedBalance()))
				return nil
			})
		},
	}
	addRangeFlags(cmd)
	return cmd
}

func newReportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Group transactions in a range by description and flow",
		RunE: func(cmd *cobra.Command, args []string) error {
			rng, err := rangeFlags(cmd, a)
			if err != nil {
				return err
			}
			return a.withStore(cmd.Context(), func(store ledger.Store) error {
				rep, err := services.NewReportService(store, a.options()...).Report(cmd.Context(), rng)
				if err != nil {
					return err
				}
				tw := newTable(a.out)
				fmt.Fprintln(tw, "DESCRIPTION\tFLOW\tCOUNT\tTOTAL\t")
				for _, g := range rep.Groups {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t\n", g.Description, g.Flow.Name(), g.Count, money(g.Total))
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "\nInflow:  %s\nOutflow: %s\nNet:     %s\n",
					money(rep.TotalInflow), money(rep.TotalOutflow), money(rep.Net()))
				return nil
			})
		},
	}
	addRangeFlags(cmd)
	return cmd
}

func newBillsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bills",
		Short: "List the open bills due in a month with their totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			month := a.today().YearMonth()
			if s, _ := cmd.Flags().GetString("month"); s != "" {
				ym, err := core.ParseYearMonth(s)
				if err != nil {
					return err
				}
				month = ym
			}
			return a.withStore(cmd.Context(), func(store ledger.Store) error {
				rep, err := services.NewReportService(store, a.options()...).BillsReport(cmd.Context(), month)
				if err != nil {
					return err
				}
				today := a.today()
				tw := newTable(a.out)
				fmt.Fprintln(tw, "DUE\tID\tDESCRIPTION\tFLOW\tSTATUS\tAMOUNT\t")
				for _, b := range rep.Bills {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
						b.DueDate, b.ID, b.Description, b.Flow.Name(), b.Display(today), money(b.Amount))
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "\n%s expected inflow %s, outflow %s, balance %s\n",
					rep.Month, money(rep.TotalInflow), money(rep.TotalOutflow), money(rep.Balance()))
				return nil
			})
		},
	}
	cmd.Flags().String("month", "", "Month to report (YYYY-MM, default: this month)")
	return cmd
}

func newSummaryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the month-to-date totals with upcoming and overdue bills",
		RunE: func(cmd *cobra.Command, args []string) error {
			today := a.today()
			if s, _ := cmd.Flags().GetString("date"); s != "" {
				d, err := core.ParseDate(s)
				if err != nil {
					return err
				}
				today = d
			}
			return a.withStore(cmd.Context(), func(store ledger.Store) error {
				sum, err := services.NewReportService(store, a.options()...).SummaryAt(cmd.Context(), today)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s as of %s\nIncome:  %s\nExpense: %s\nBalance: %s\n",
					sum.Month, sum.Today, money(sum.Income), money(sum.Expense), money(sum.Balance()))
				printBillList(a.out, "Upcoming", sum.Upcoming)
				printBillList(a.out, "Overdue", sum.Overdue)
				return nil
			})
		},
	}
	cmd.Flags().String("date", "", "Day to summarize as (YYYY-MM-DD, default: today)")
	return cmd
}

func printBillList(w io.Writer, title string, bills []core.Bill) {
	fmt.Fprintf(w, "\n%s (%d)\n", title, len(bills))
	for _, b := range bills {
		fmt.Fprintf(w, "  %s  %-30s %10s  %s\n", b.DueDate, b.Description, money(b.Amount), b.Flow.Name())
	}
}
