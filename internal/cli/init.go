// Package cli holds the start-up steps shared by cmd/kakeibo and
// cmd/kakeibo-worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"kakeibo/internal/backend"
	"kakeibo/internal/config"
	applog "kakeibo/internal/log"
	"kakeibo/internal/report"
	"kakeibo/internal/rules"
	"kakeibo/internal/services"
	"kakeibo/internal/sheets"
	gsheet "kakeibo/internal/sheets/google"
	"kakeibo/internal/sheets/memory"
)

// LoadAndValidateConfig reads .env (when present) and the environment.
func LoadAndValidateConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the application logger and installs it as the slog default.
func SetupLogger(cfg *config.Config) *applog.Logger {
	logger := cfg.Logger()
	applog.SetDefault(logger)
	return logger
}

// OpenLedger opens the configured backend, wires the optional publisher and
// loads the ledger.
func OpenLedger(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*services.LedgerService, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Slog()).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	frozen, err := report.LoadYearTable(cfg.FrozenYearsFile)
	if err != nil {
		res.Cleanup()
		return nil, fmt.Errorf("load frozen years: %w", err)
	}

	// Keep a nil *amqp.Client out of the interface.
	var pub services.Publisher
	if res.Publisher != nil {
		pub = res.Publisher
	}

	book := rules.NewBook(cfg.RulesCacheSize, cfg.RulesCacheTTL)
	svc := services.NewLedgerService(res.Backend, book, frozen, pub, logger)
	if err := svc.Load(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return svc, nil
}

// ExportDestination returns the Google Sheets writer when a spreadsheet is
// configured, else an in-memory one.
func ExportDestination(ctx context.Context, cfg *config.Config, logger *applog.Logger) (sheets.YearWriter, error) {
	if cfg.GoogleSpreadsheetID == "" {
		logger.WarnContext(ctx, "GOOGLE_SPREADSHEET_ID not set, exporting to memory only")
		return memory.New(), nil
	}
	client, err := gsheet.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize Google Sheets client: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
