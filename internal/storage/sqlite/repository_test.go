package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"kakeibo/internal/core"
)

func newTestRepo(t *testing.T) (*Repository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kakeibo.db")
	repo, err := NewRepository(path)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func TestRepositoryEntriesKeepOrderAndAssignIDs(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	saved, err := repo.SaveEntries(ctx, []core.Entry{
		{ID: core.NewProvisionalID(), Date: "2025-03-02", Item: "b", Amount: 200},
		{ID: "fixed", Date: "2025-03-01", Item: "a", Amount: 100},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if core.IsProvisional(saved[0].ID) || saved[1].ID != "fixed" {
		t.Fatalf("unexpected ids %+v", saved)
	}

	loaded, err := repo.LoadEntries(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 || loaded[0] != saved[0] || loaded[1] != saved[1] {
		t.Fatalf("loaded %+v, want %+v", loaded, saved)
	}

	// Saving is a full replacement.
	if _, err := repo.SaveEntries(ctx, saved[1:]); err != nil {
		t.Fatalf("resave: %v", err)
	}
	loaded, _ = repo.LoadEntries(ctx)
	if len(loaded) != 1 || loaded[0].ID != "fixed" {
		t.Fatalf("expected replacement, got %+v", loaded)
	}
}

func TestRepositoryDetails(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	saved, err := repo.SaveEntryDetails(ctx, []core.EntryDetail{
		{ParentID: "p1", Item: "vet", Amount: 20000},
		{ParentID: "p1", Item: "food", Amount: 1500},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, _ := repo.LoadEntryDetails(ctx)
	if len(loaded) != 2 || loaded[0] != saved[0] || loaded[1].Item != "food" {
		t.Fatalf("unexpected details %+v", loaded)
	}
}

func TestRepositoryRulesSurviveReopen(t *testing.T) {
	repo, path := newTestRepo(t)
	ctx := context.Background()

	base := core.KeywordRuleSet{
		core.Tax:       {"vat", "income tax"},
		core.FixedCost: {"rent"},
	}
	if err := repo.SaveKeywords(ctx, base); err != nil {
		t.Fatalf("save keywords: %v", err)
	}
	ov := core.MonthOverrides{"2025-03": {core.BusinessExpense: {"laptop", "desk"}}}
	if err := repo.SaveMonthExtras(ctx, ov); err != nil {
		t.Fatalf("save extras: %v", err)
	}
	repo.Close()

	again, err := NewRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()

	kw, _ := again.LoadKeywords(ctx)
	if got := kw[core.Tax]; len(got) != 2 || got[0] != "vat" || got[1] != "income tax" {
		t.Fatalf("unexpected tax keywords %v", got)
	}
	extras, _ := again.LoadMonthExtras(ctx)
	if got := extras["2025-03"][core.BusinessExpense]; len(got) != 2 || got[0] != "laptop" {
		t.Fatalf("unexpected extras %v", got)
	}
}

func TestRepositoryRejectsNonPositiveAmount(t *testing.T) {
	repo, _ := newTestRepo(t)
	_, err := repo.SaveEntries(context.Background(), []core.Entry{{ID: "x", Date: "2025-01-01", Item: "bad", Amount: 0}})
	if err == nil {
		t.Fatal("expected constraint violation")
	}
}
