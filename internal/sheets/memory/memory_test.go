package memory

import (
	"context"
	"testing"

	"kakeibo/internal/report"
)

func TestStoreReplacesYear(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.WriteYear(ctx, 2025, []report.ExportRow{{Item: "a"}, {Item: "b"}})
	s.WriteYear(ctx, 2024, []report.ExportRow{{Item: "old"}})
	s.WriteYear(ctx, 2025, []report.ExportRow{{Item: "c"}})

	if rows := s.Rows(2025); len(rows) != 1 || rows[0].Item != "c" {
		t.Fatalf("expected replacement, got %+v", rows)
	}
	if years := s.Years(); len(years) != 2 || years[0] != 2024 {
		t.Fatalf("unexpected years %v", years)
	}
	if s.Writes() != 3 {
		t.Fatalf("writes = %d", s.Writes())
	}
}

func TestRowsReturnsCopy(t *testing.T) {
	s := New()
	s.WriteYear(context.Background(), 2025, []report.ExportRow{{Item: "a"}})
	s.Rows(2025)[0].Item = "mutated"
	if s.Rows(2025)[0].Item != "a" {
		t.Fatal("Rows must return a copy")
	}
}
