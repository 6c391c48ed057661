package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fluxo/internal/config"
	"fluxo/internal/core"
	"fluxo/internal/ledger"
	"fluxo/internal/services"
	"fluxo/internal/storage"
)

func newExpandCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expand",
		Short: "Preview (or store) the monthly bills of a recurrence",
		Example: `  # Preview twelve rent bills
  fluxoctl expand --description Rent --amount 1200 --flow outflow --day 5 --start 2024-01 --end 2024-12 --no-vat

  # Store them
  fluxoctl expand --description Rent --amount 1200 --flow outflow --day 5 --start 2024-01 --end 2024-12 --no-vat --save`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, err := ruleFromFlags(cmd)
			if err != nil {
				return err
			}
			save, _ := cmd.Flags().GetBool("save")

			var bills []core.Bill
			if save {
				err = a.withStore(cmd.Context(), func(store ledger.Store) error {
					var err error
					bills, err = services.NewBillService(store, nil, a.options()...).CreateRecurring(cmd.Context(), rule)
					return err
				})
			} else {
				bills, err = core.ExpandMonthly(rule, a.now())
			}
			if err != nil {
				return err
			}

			if len(bills) == 0 {
				fmt.Fprintln(a.out, "No bills: start month is after end month")
				return nil
			}
			tw := newTable(a.out)
			fmt.Fprintln(tw, "DUE\tDESCRIPTION\tFLOW\tAMOUNT\tVAT\tNET\t")
			for _, b := range bills {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
					b.DueDate, b.Description, b.Flow.Name(), money(b.Amount), money(b.VAT), money(b.NetAmount))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if save {
				fmt.Fprintf(a.out, "\nStored %d bills\n", len(bills))
			}
			return nil
		},
	}
	cmd.Flags().String("description", "", "Bill description")
	cmd.Flags().String("amount", "", "Gross amount of each bill")
	cmd.Flags().String("flow", "outflow", "inflow or outflow")
	cmd.Flags().Int("day", 1, "Day of month each bill is due (1-28)")
	cmd.Flags().String("start", "", "First month (YYYY-MM)")
	cmd.Flags().String("end", "", "Last month (YYYY-MM)")
	cmd.Flags().Bool("no-vat", false, "Amounts carry no VAT")
	cmd.Flags().Bool("save", false, "Store the bills instead of only printing them")
	for _, name := range []string{"description", "amount", "start", "end"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func ruleFromFlags(cmd *cobra.Command) (core.RecurrenceRule, error) {
	var rule core.RecurrenceRule
	f := cmd.Flags()

	desc, _ := f.GetString("description")
	rule.Description = strings.TrimSpace(desc)
	if rule.Description == "" {
		return rule, &core.ValidationError{Field: "description", Err: core.ErrEmptyDescription}
	}
	s, _ := f.GetString("amount")
	amount, err := core.ParseAmount(s)
	if err != nil {
		return rule, err
	}
	rule.Amount = amount
	s, _ = f.GetString("flow")
	if rule.Flow, err = core.ParseFlow(s); err != nil {
		return rule, err
	}
	rule.Day, _ = f.GetInt("day")
	s, _ = f.GetString("start")
	if rule.Start, err = core.ParseYearMonth(s); err != nil {
		return rule, err
	}
	s, _ = f.GetString("end")
	if rule.End, err = core.ParseYearMonth(s); err != nil {
		return rule, err
	}
	rule.NoVAT, _ = f.GetBool("no-vat")
	return rule, nil
}

func newSettleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "settle BILL_ID",
		Short: "Settle a pending bill into a transaction dated today",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(store ledger.Store) error {
				t, err := services.NewBillService(store, nil, a.options()...).Settle(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Settled bill %s as transaction %s (%s %s on %s)\n",
					args[0], t.ID, t.Flow.Name(), money(t.Amount), t.Date)
				return nil
			})
		},
	}
}

func newReconcileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Remove bills left behind by interrupted settlements",
		RunE: func(cmd *cobra.Command, args []string) error {
			var since core.Date
			if s, _ := cmd.Flags().GetString("since"); s != "" {
				d, err := core.ParseDate(s)
				if err != nil {
					return err
				}
				since = d
			}
			return a.withStore(cmd.Context(), func(store ledger.Store) error {
				res, err := services.NewReconciler(store).Run(cmd.Context(), since)
				fmt.Fprintf(a.out, "Checked %d settlements, repaired %d\n", res.Checked, res.Repaired)
				return err
			})
		},
	}
	cmd.Flags().String("since", "", "Only check settlements dated on or after this day (YYYY-MM-DD, default: all)")
	return cmd
}

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the SQL schema",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, dsn, err := migrationTarget(a.cfg)
			if err != nil {
				return err
			}
			if err := storage.RunMigrations(d, dsn); err != nil {
				return err
			}
			return printVersion(a, d, dsn)
		},
	}, &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, dsn, err := migrationTarget(a.cfg)
			if err != nil {
				return err
			}
			return printVersion(a, d, dsn)
		},
	})
	return cmd
}

func printVersion(a *app, d storage.Dialect, dsn string) error {
	v, dirty, err := storage.MigrationVersion(d, dsn)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s schema version %d (dirty: %t)\n", d, v, dirty)
	return nil
}

func migrationTarget(cfg *config.Config) (storage.Dialect, string, error) {
	switch cfg.DataBackend {
	case config.BackendSQLite:
		return storage.SQLite, cfg.SQLiteDBPath, nil
	case config.BackendPostgres:
		return storage.Postgres, cfg.DatabaseURL, nil
	}
	return "", "", errors.New("migrations need DATA_BACKEND=sqlite or postgres")
}
