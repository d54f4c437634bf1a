package report

import (
	"os"
	"path/filepath"
	"testing"

	"kakeibo/internal/core"
	"kakeibo/internal/ledger"
)

func TestYearByMonthComputed(t *testing.T) {
	a := New(testRules(), nil, nil)
	s := a.YearByMonth(testSnapshot(), 2025)
	if s.Frozen {
		t.Fatal("2025 is not seeded")
	}
	if s.Months[1] != 3000 || s.Months[2] != 193000 || s.Total != 196000 {
		t.Fatalf("unexpected year summary %+v", s)
	}
}

func TestYearByMonthPrefersFrozenTable(t *testing.T) {
	frozen := YearTable{2019: {1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}}
	a := New(testRules(), frozen, nil)
	snap := ledger.Snapshot{Entries: []core.Entry{{ID: "x", Date: "2019-01-05", Item: "rent", Amount: 999999}}}

	s := a.YearByMonth(snap, 2019)
	if !s.Frozen || s.Months[0] != 1 || s.Total != 78 {
		t.Fatalf("expected frozen figures, got %+v", s)
	}
}

func TestLoadYearTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "years.yaml")
	content := "years:\n  2019: [1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	table, err := LoadYearTable(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if table[2019][11] != 12 {
		t.Fatalf("unexpected table %+v", table)
	}

	empty, err := LoadYearTable(filepath.Join(dir, "missing.yaml"))
	if err != nil || len(empty) != 0 {
		t.Fatalf("missing file should yield empty table, got %v %v", empty, err)
	}

	if _, err := ParseYearTable([]byte("years:\n  2019: [1, 2]\n")); err == nil {
		t.Fatal("expected error for short year")
	}
}
