// Command fluxoctl runs reports and maintenance against the configured ledger
// store without the HTTP server.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"fluxo/internal/backend"
	"fluxo/internal/cli"
	"fluxo/internal/config"
	"fluxo/internal/core"
	"fluxo/internal/ledger"
	"fluxo/internal/log"
	"fluxo/internal/services"
)

var version = "0.1.0"

// app carries what every subcommand needs.
type app struct {
	cfg       *config.Config
	out       io.Writer
	logger    *log.Logger
	loc       *time.Location
	now       func() time.Time
	openStore func(ctx context.Context) (ledger.Store, error)
}

func (a *app) today() core.Date {
	return core.DateOf(a.now().In(a.loc))
}

func (a *app) options() []services.Option {
	return []services.Option{services.WithClock(a.now), services.WithLocation(a.loc)}
}

// withStore opens the store for the duration of fn.
func (a *app) withStore(ctx context.Context, fn func(ledger.Store) error) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			a.logger.Warn("Closing store failed", "error", err)
		}
	}()
	return fn(store)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "fluxoctl",
		Short: "Inspect and maintain the fluxo ledger",
		Long: `fluxoctl reads the ledger store selected by DATA_BACKEND and prints cash flow,
reports and summaries, previews recurring bills, settles bills, reconciles
interrupted settlements and applies schema migrations.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newCashFlowCmd(a),
		newReportCmd(a),
		newBillsCmd(a),
		newSummaryCmd(a),
		newExpandCmd(a),
		newSettleCmd(a),
		newReconcileCmd(a),
		newMigrateCmd(a),
	)
	return root
}

// newApp wires a validated config into the subcommands' shared state.
func newApp(cfg *config.Config, logger *log.Logger, out io.Writer) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:    cfg,
		out:    out,
		logger: logger,
		loc:    loc,
		now:    time.Now,
		openStore: func(ctx context.Context) (ledger.Store, error) {
			bcfg, err := backend.FromAppConfig(cfg)
			if err != nil {
				return nil, err
			}
			return backend.NewFactory(logger.Logger).CreateStore(ctx, bcfg)
		},
	}, nil
}

func main() {
	cli.LoadEnvFile()
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	logger := cli.SetupLogger(os.Stderr, level)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	a, err := newApp(cfg, logger, os.Stdout)
	if err != nil {
		logger.Error("Invalid timezone", "error", err, "timezone", cfg.Timezone)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := newRootCmd(a).Execute(); err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
