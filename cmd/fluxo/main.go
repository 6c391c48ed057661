package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fluxo/internal/cli"
	apphttp "fluxo/internal/http"
	"fluxo/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap()
	loc := cli.MustLocation(logger, cfg)

	res := cli.OpenBackend(context.Background(), logger, cfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	opts := []services.Option{services.WithLocation(loc)}
	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		CacheTTL:           cfg.CacheTTL,
		CacheSize:          cfg.CacheSize,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RequestTimeout:     cfg.RequestTimeout,
	}, apphttp.Deps{
		Ledger:  services.NewLedgerService(res.Store, res.Publisher, opts...),
		Bills:   services.NewBillService(res.Store, res.Publisher, opts...),
		Reports: services.NewReportService(res.Store, opts...),
		Store:   res.Store,
		Logger:  logger,
	})

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = cfg.RequestTimeout + 5*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting fluxo server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events", res.Publisher != nil,
		"timezone", loc.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
