package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	"kakeibo/internal/ledger"
	"kakeibo/internal/report"
	"kakeibo/internal/sheets"
	"kakeibo/internal/trace"
)

// Ledger is the part of the ledger service the worker reads from.
type Ledger interface {
	Load(ctx context.Context) error
	Snapshot() ledger.Snapshot
	Aggregator() *report.Aggregator
}

// ExportWorker refreshes the per-year export whenever the ledger changes.
type ExportWorker struct {
	ledger Ledger
	dest   sheets.YearWriter
	logger *slog.Logger
	tracer *trace.Tracer
}

func NewExportWorker(l Ledger, dest sheets.YearWriter, logger *slog.Logger) *ExportWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportWorker{ledger: l, dest: dest, logger: logger, tracer: trace.New(logger)}
}

// HandleLedgerChanged reloads authoritative state and rewrites every year
// named in msg. Returning an error makes the consumer requeue the message.
func (w *ExportWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	return w.tracer.Run(ctx, "ledger_changed", func(ctx context.Context) error {
		if err := w.ledger.Load(ctx); err != nil {
			return fmt.Errorf("reload ledger: %w", err)
		}
		return w.ExportYears(ctx, msg.Years...)
	}, "years", msg.Years, "reason", msg.Reason, "published_at", msg.Timestamp)
}

// Metrics reports how many messages were handled and how many failed.
func (w *ExportWorker) Metrics() trace.Metrics {
	return w.tracer.Metrics()
}

// ExportYears writes the current snapshot's rows for each year.
func (w *ExportWorker) ExportYears(ctx context.Context, years ...int) error {
	snap := w.ledger.Snapshot()
	agg := w.ledger.Aggregator()
	for _, year := range years {
		start := time.Now()
		rows := agg.ExportRows(snap, core.YearWindow(year))
		if err := w.dest.WriteYear(ctx, year, rows); err != nil {
			return fmt.Errorf("export %d: %w", year, err)
		}
		w.logger.InfoContext(ctx, "Year exported",
			"year", year,
			"rows", len(rows),
			"duration_ms", time.Since(start).Milliseconds())
	}
	return nil
}
