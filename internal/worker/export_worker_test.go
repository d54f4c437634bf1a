package worker

import (
	"context"
	"errors"
	"testing"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	"kakeibo/internal/ledger"
	"kakeibo/internal/report"
	"kakeibo/internal/rules"
	"kakeibo/internal/sheets/memory"
)

type stubLedger struct {
	snap    ledger.Snapshot
	agg     *report.Aggregator
	loads   int
	loadErr error
}

func (s *stubLedger) Load(context.Context) error     { s.loads++; return s.loadErr }
func (s *stubLedger) Snapshot() ledger.Snapshot      { return s.snap }
func (s *stubLedger) Aggregator() *report.Aggregator { return s.agg }

func newStub() *stubLedger {
	src := rules.Static{Base: core.KeywordRuleSet{core.FixedCost: {"rent"}}}
	return &stubLedger{
		snap: ledger.Snapshot{Entries: []core.Entry{
			{ID: "1", Date: "2024-12-31", Item: "rent", Amount: 80000},
			{ID: "2", Date: "2025-01-01", Item: "rent", Amount: 81000},
			{ID: "3", Date: "2025-01-02", Item: "coffee", Amount: 400},
		}},
		agg: report.New(src, nil, nil),
	}
}

func TestHandleLedgerChangedExportsNamedYears(t *testing.T) {
	l := newStub()
	dest := memory.New()
	w := NewExportWorker(l, dest, nil)

	if err := w.HandleLedgerChanged(context.Background(), amqp.NewLedgerChangedMessage(amqp.ReasonEntries, 2025)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if l.loads != 1 {
		t.Fatalf("expected a reload, got %d", l.loads)
	}
	rows := dest.Rows(2025)
	if len(rows) != 2 || rows[0].Category != core.FixedCost || rows[1].Category != core.LivingCost {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if len(dest.Rows(2024)) != 0 {
		t.Fatal("2024 should not be exported")
	}
}

func TestHandleLedgerChangedReloadFailure(t *testing.T) {
	l := newStub()
	l.loadErr = errors.New("db locked")
	dest := memory.New()
	w := NewExportWorker(l, dest, nil)

	if err := w.HandleLedgerChanged(context.Background(), amqp.NewLedgerChangedMessage(amqp.ReasonRules, 2025)); err == nil {
		t.Fatal("expected error so the message is requeued")
	}
	if dest.Writes() != 0 {
		t.Fatal("nothing should be written after a failed reload")
	}
	if m := w.Metrics(); m.TotalOperations != 1 || m.FailedOperations != 1 {
		t.Fatalf("unexpected metrics %+v", m)
	}
}

type failingWriter struct{}

func (failingWriter) WriteYear(context.Context, int, []report.ExportRow) error {
	return errors.New("quota exceeded")
}

func TestExportYearsPropagatesWriteError(t *testing.T) {
	w := NewExportWorker(newStub(), failingWriter{}, nil)
	if err := w.ExportYears(context.Background(), 2024); err == nil {
		t.Fatal("expected write error")
	}
}
