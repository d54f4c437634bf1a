package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"kakeibo/internal/core"
)

// fakeBackend assigns sequential ids to provisional rows, like a database would.
type fakeBackend struct {
	entries    []core.Entry
	details    []core.EntryDetail
	next       int
	failDetail bool
	shortSave  bool
}

func (f *fakeBackend) assign(id string) string {
	if !core.IsProvisional(id) {
		return id
	}
	f.next++
	return fmt.Sprintf("db-%d", f.next)
}

func (f *fakeBackend) SaveEntries(_ context.Context, entries []core.Entry) ([]core.Entry, error) {
	out := make([]core.Entry, len(entries))
	for i, e := range entries {
		e.ID = f.assign(e.ID)
		out[i] = e
	}
	if f.shortSave && len(out) > 0 {
		out = out[:len(out)-1]
	}
	f.entries = out
	return out, nil
}

func (f *fakeBackend) SaveEntryDetails(_ context.Context, details []core.EntryDetail) ([]core.EntryDetail, error) {
	if f.failDetail {
		return nil, errors.New("disk full")
	}
	out := make([]core.EntryDetail, len(details))
	for i, d := range details {
		d.ID = f.assign(d.ID)
		out[i] = d
	}
	f.details = out
	return out, nil
}

func (f *fakeBackend) LoadEntries(context.Context) ([]core.Entry, error) {
	return f.entries, nil
}

func (f *fakeBackend) LoadEntryDetails(context.Context) ([]core.EntryDetail, error) {
	return f.details, nil
}

func mustInsert(t *testing.T, s *Store, e core.Entry) core.Entry {
	t.Helper()
	got, err := s.Insert(e)
	if err != nil {
		t.Fatalf("insert %+v: %v", e, err)
	}
	return got
}

func TestInsertValidation(t *testing.T) {
	s := NewStore()
	if _, err := s.Insert(core.Entry{Date: "2025-03-01", Item: " ", Amount: 10}); !errors.Is(err, core.ErrEmptyItem) {
		t.Fatalf("expected ErrEmptyItem, got %v", err)
	}
	if _, err := s.Insert(core.Entry{Date: "2025-03-01", Item: "x", Amount: 0}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if n := len(s.Snapshot().Entries); n != 0 {
		t.Fatalf("rejected inserts must not change the store, got %d entries", n)
	}

	e := mustInsert(t, s, core.Entry{Date: "2025-03-01", Item: " card ", Amount: 10})
	if !core.IsProvisional(e.ID) || e.Item != "card" {
		t.Fatalf("unexpected inserted entry %+v", e)
	}
}

func TestRemoveEntryCascades(t *testing.T) {
	s := NewStore()
	a := mustInsert(t, s, core.Entry{Date: "2025-03-01", Item: "card", Amount: 100})
	b := mustInsert(t, s, core.Entry{Date: "2025-03-02", Item: "cash", Amount: 50})
	if _, err := s.InsertDetailRows([]core.EntryDetail{
		{ParentID: a.ID, Item: "groceries", Amount: 30},
		{ParentID: a.ID, Item: "vet", Amount: 20},
		{ParentID: b.ID, Item: "snacks", Amount: 5},
	}); err != nil {
		t.Fatalf("insert details: %v", err)
	}

	if !s.RemoveEntry(a.ID) {
		t.Fatal("expected removal")
	}
	snap := s.Snapshot()
	if len(snap.Entries) != 1 || len(snap.Details) != 1 || snap.Details[0].ParentID != b.ID {
		t.Fatalf("cascade failed: %+v", snap)
	}
	if s.RemoveEntry("missing") {
		t.Fatal("removing a missing entry must report false")
	}
}

func TestInsertRejectsDuplicateID(t *testing.T) {
	s := NewStore()
	mustInsert(t, s, core.Entry{ID: "a", Date: "2025-03-01", Item: "card", Amount: 100})
	if _, err := s.Insert(core.Entry{ID: "a", Date: "2025-03-01", Item: "card", Amount: 100}); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if _, err := s.InsertDetailRows([]core.EntryDetail{{ParentID: "a", Item: "food", Amount: 80}}); err != nil {
		t.Fatalf("insert details: %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Entries) != 1 || len(snap.DetailsByParent()["a"]) != 1 {
		t.Fatalf("unexpected state after duplicate insert: %+v", snap)
	}

	if !s.RemoveEntry("a") {
		t.Fatal("expected removal")
	}
	snap = s.Snapshot()
	if len(snap.Entries) != 0 || len(snap.Details) != 0 {
		t.Fatalf("removal must take the details along: %+v", snap)
	}
}

func TestInsertRejectsIDOfRemappedEntry(t *testing.T) {
	s := NewStore()
	e := mustInsert(t, s, core.Entry{Date: "2025-03-01", Item: "card", Amount: 100})
	if _, err := s.Commit(context.Background(), &fakeBackend{}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	// The provisional id now resolves to the saved entry.
	if _, err := s.Insert(core.Entry{ID: e.ID, Date: "2025-03-02", Item: "cash", Amount: 5}); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestReplaceAllAndAdoptKeepFirstOfDuplicateIDs(t *testing.T) {
	entries := []core.Entry{
		{ID: "a", Date: "2025-03-01", Item: "first", Amount: 100},
		{ID: "b", Date: "2025-03-02", Item: "other", Amount: 50},
		{ID: "a", Date: "2025-03-03", Item: "second", Amount: 999},
	}

	tests := []struct {
		name  string
		apply func(*Store)
	}{
		{"replace all", func(s *Store) { s.ReplaceAll(entries) }},
		{"adopt", func(s *Store) {
			s.Adopt(entries, []core.EntryDetail{{ID: "d1", ParentID: "a", Item: "food", Amount: 80}})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			tt.apply(s)
			snap := s.Snapshot()
			if len(snap.Entries) != 2 {
				t.Fatalf("expected 2 entries, got %+v", snap.Entries)
			}
			if snap.Entries[0].Item != "first" || snap.Entries[1].ID != "b" {
				t.Fatalf("expected first occurrence kept in order, got %+v", snap.Entries)
			}
		})
	}
}

func TestInsertDetailRows(t *testing.T) {
	s := NewStore()
	a := mustInsert(t, s, core.Entry{Date: "2025-03-01", Item: "card", Amount: 100})

	got, err := s.InsertDetailRows([]core.EntryDetail{
		{ParentID: a.ID, Item: "groceries", Amount: 30},
		{ParentID: a.ID, Item: "", Amount: 30},
		{ParentID: a.ID, Item: "vet", Amount: 0},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || len(s.DetailsOf(a.ID)) != 1 {
		t.Fatalf("invalid rows should be skipped, got %+v", got)
	}

	if _, err := s.InsertDetailRows([]core.EntryDetail{{ParentID: "nope", Item: "x", Amount: 1}}); !errors.Is(err, ErrParentNotFound) {
		t.Fatalf("expected ErrParentNotFound, got %v", err)
	}
}

func TestSetDetailsReplacesParentSet(t *testing.T) {
	s := NewStore()
	a := mustInsert(t, s, core.Entry{Date: "2025-03-01", Item: "card", Amount: 100})
	b := mustInsert(t, s, core.Entry{Date: "2025-03-01", Item: "other card", Amount: 100})
	s.InsertDetailRows([]core.EntryDetail{
		{ParentID: a.ID, Item: "old", Amount: 10},
		{ParentID: b.ID, Item: "keep", Amount: 10},
	})

	if _, err := s.SetDetails(a.ID, []core.EntryDetail{{Item: "new", Amount: 40}}); err != nil {
		t.Fatalf("set details: %v", err)
	}
	da := s.DetailsOf(a.ID)
	if len(da) != 1 || da[0].Item != "new" || da[0].ParentID != a.ID {
		t.Fatalf("unexpected details for a: %+v", da)
	}
	if db := s.DetailsOf(b.ID); len(db) != 1 || db[0].Item != "keep" {
		t.Fatalf("other parent touched: %+v", db)
	}
}

func TestUpdateEntry(t *testing.T) {
	s := NewStore()
	a := mustInsert(t, s, core.Entry{Date: "2025-03-01", Item: "card", Amount: 100})

	item, amount := "card (march)", int64(120)
	got, err := s.UpdateEntry(a.ID, EntryPatch{Item: &item, Amount: &amount})
	if err != nil || got.Item != item || got.Amount != 120 || got.Date != "2025-03-01" {
		t.Fatalf("unexpected update result %+v err=%v", got, err)
	}

	bad := int64(-1)
	if _, err := s.UpdateEntry(a.ID, EntryPatch{Amount: &bad}); err == nil {
		t.Fatal("expected validation error")
	}
	if e, _ := s.Entry(a.ID); e.Amount != 120 {
		t.Fatalf("rejected patch changed entry: %+v", e)
	}
	if _, err := s.UpdateEntry("missing", EntryPatch{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReplaceAllDropsOrphanDetails(t *testing.T) {
	s := NewStore()
	a := mustInsert(t, s, core.Entry{ID: "a", Date: "2025-03-01", Item: "card", Amount: 100})
	s.InsertDetailRows([]core.EntryDetail{{ParentID: a.ID, Item: "x", Amount: 1}})

	s.ReplaceAll([]core.Entry{{ID: "b", Date: "2025-03-02", Item: "cash", Amount: 5}})
	snap := s.Snapshot()
	if len(snap.Entries) != 1 || len(snap.Details) != 0 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestCommitReconcilesProvisionalIDs(t *testing.T) {
	s := NewStore()
	backend := &fakeBackend{}
	a := mustInsert(t, s, core.Entry{Date: "2025-03-01", Item: "card", Amount: 100})
	s.InsertDetailRows([]core.EntryDetail{{ParentID: a.ID, Item: "vet", Amount: 20}})

	snap, err := s.Commit(context.Background(), backend)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if snap.Entries[0].ID != "db-1" {
		t.Fatalf("expected authoritative id, got %q", snap.Entries[0].ID)
	}
	if snap.Details[0].ParentID != "db-1" || core.IsProvisional(snap.Details[0].ID) {
		t.Fatalf("detail not reconciled: %+v", snap.Details[0])
	}
	if s.Resolve(a.ID) != "db-1" {
		t.Fatalf("remap not recorded")
	}

	// A later detail insert addressed by the stale provisional id lands on
	// the authoritative parent.
	got, err := s.InsertDetailRows([]core.EntryDetail{{ParentID: a.ID, Item: "food", Amount: 10}})
	if err != nil || got[0].ParentID != "db-1" {
		t.Fatalf("provisional parent id not resolved: %+v err=%v", got, err)
	}
	if len(s.DetailsOf(a.ID)) != 2 {
		t.Fatalf("expected 2 details via provisional id")
	}
}

func TestCommitFailureThenReload(t *testing.T) {
	s := NewStore()
	backend := &fakeBackend{entries: []core.Entry{{ID: "db-9", Date: "2025-01-01", Item: "saved", Amount: 1}}}
	mustInsert(t, s, core.Entry{Date: "2025-03-01", Item: "card", Amount: 100})

	backend.failDetail = true
	if _, err := s.Commit(context.Background(), backend); err == nil {
		t.Fatal("expected commit error")
	}
	if err := s.Reload(context.Background(), backend); err != nil {
		t.Fatalf("reload: %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Entries) != 1 || snap.Entries[0].Item != "card" || snap.Entries[0].ID != "db-1" {
		t.Fatalf("expected authoritative state after reload, got %+v", snap.Entries)
	}
}

func TestCommitRejectsShortSave(t *testing.T) {
	s := NewStore()
	mustInsert(t, s, core.Entry{Date: "2025-03-01", Item: "card", Amount: 100})
	if _, err := s.Commit(context.Background(), &fakeBackend{shortSave: true}); !errors.Is(err, ErrSaveMismatch) {
		t.Fatalf("expected ErrSaveMismatch, got %v", err)
	}
}

func TestDetailsByParent(t *testing.T) {
	snap := Snapshot{Details: []core.EntryDetail{
		{ParentID: "a", Amount: 1},
		{ParentID: "b", Amount: 2},
		{ParentID: "a", Amount: 3},
	}}
	by := snap.DetailsByParent()
	if len(by["a"]) != 2 || len(by["b"]) != 1 {
		t.Fatalf("unexpected grouping %+v", by)
	}
}
