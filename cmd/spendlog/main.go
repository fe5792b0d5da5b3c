package main

import (
	"context"
	"time"

	"spendlog/internal/cli"
	"spendlog/internal/config"
	"spendlog/internal/demo"
	"spendlog/internal/query"
	"spendlog/internal/settings"
	"spendlog/internal/store"
	"spendlog/internal/view"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		return
	}

	backend, closeBackend := cli.OpenBackend(logger, cfg)

	ctx := context.Background()

	prefs := settings.New(backend, logger)
	prefs.Load(ctx)

	st := store.New(backend, logger)
	if err := st.Load(ctx); err != nil {
		logger.Error("Failed to load expense records", "error", err)
		closeBackend()
		return
	}

	if st.Len() == 0 && cfg.SeedDemo > 0 {
		logger.Info("Seeding demo records", "count", cfg.SeedDemo)
		for _, r := range demo.Generate(cfg.SeedDemo, time.Now(), time.Now().UnixNano()) {
			if _, err := st.Add(ctx, r); err != nil {
				logger.Warn("Demo record rejected", "error", err)
			}
		}
	}

	table := view.NewTable(st, logger, view.TableConfig{
		PageSize:  cfg.PageSize,
		Bounds:    query.Bounds{Low: cfg.AmountLow, High: cfg.AmountHigh},
		CacheSize: cfg.CacheSize,
		CacheTTL:  cfg.CacheTTL,
	})
	dashboard := view.NewDashboard(st, time.Now)

	snap := prefs.Snapshot()
	overview := dashboard.Overview()
	result := table.Current()
	logger.Info("Spendlog ready",
		"backend", cfg.DataBackend,
		"records", st.Len(),
		"total", overview.Total.StringFixed(2),
		"currency", snap.Currency,
		"theme", snap.Theme,
		"page", result.Page,
		"total_pages", result.TotalPages,
	)

	shutdownCtx, done := cli.GracefulShutdown(logger, 10*time.Second, func() {
		table.Close()
		dashboard.Close()
		closeBackend()
	})
	cli.WaitForShutdown(shutdownCtx, done)
}
