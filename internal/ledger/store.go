// Package ledger owns the in-memory list of expense entries and their detail
// rows, and reconciles client-side provisional ids with the ids assigned by
// persistence.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"kakeibo/internal/core"
)

var (
	ErrNotFound       = errors.New("entry not found")
	ErrDuplicateID    = errors.New("entry id already in use")
	ErrParentNotFound = errors.New("parent entry not found")
	ErrSaveMismatch   = errors.New("persistence returned a different number of rows")
)

// Loader reads the authoritative state.
type Loader interface {
	LoadEntries(ctx context.Context) ([]core.Entry, error)
	LoadEntryDetails(ctx context.Context) ([]core.EntryDetail, error)
}

// Persister saves full replacement lists. The returned lists are
// authoritative and in submission order; provisional ids may be replaced.
type Persister interface {
	SaveEntries(ctx context.Context, entries []core.Entry) ([]core.Entry, error)
	SaveEntryDetails(ctx context.Context, details []core.EntryDetail) ([]core.EntryDetail, error)
}

// Snapshot is an internally consistent copy of entries and details.
type Snapshot struct {
	Entries []core.Entry
	Details []core.EntryDetail
}

// DetailsByParent groups the snapshot's details by parent id.
func (s Snapshot) DetailsByParent() map[string][]core.EntryDetail {
	out := make(map[string][]core.EntryDetail)
	for _, d := range s.Details {
		out[d.ParentID] = append(out[d.ParentID], d)
	}
	return out
}

// EntryPatch carries the fields to change; nil fields are left alone.
type EntryPatch struct {
	Date   *string
	Item   *string
	Amount *int64
}

type Store struct {
	mu      sync.RWMutex
	entries []core.Entry
	details []core.EntryDetail
	// remap resolves provisional ids to the ids persistence assigned.
	remap map[string]string
}

func NewStore() *Store {
	return &Store{remap: make(map[string]string)}
}

// Resolve maps a provisional id to its authoritative id when known.
func (s *Store) Resolve(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolve(id)
}

func (s *Store) resolve(id string) string {
	if to, ok := s.remap[id]; ok {
		return to
	}
	return id
}

func (s *Store) indexOf(id string) int {
	id = s.resolve(id)
	for i, e := range s.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Insert appends a validated entry. An empty id is replaced by a
// provisional one. Invalid entries leave the store unchanged.
func (s *Store) Insert(e core.Entry) (core.Entry, error) {
	e.Item = strings.TrimSpace(e.Item)
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	if e.ID == "" {
		e.ID = core.NewProvisionalID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(e.ID) >= 0 {
		return core.Entry{}, fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
	}
	s.entries = append(s.entries, e)
	return e, nil
}

// InsertDetailRows appends detail rows, resolving each parent id through the
// remap table. Rows that fail validation are skipped; an unknown parent
// aborts the whole batch.
func (s *Store) InsertDetailRows(details []core.EntryDetail) ([]core.EntryDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accepted := make([]core.EntryDetail, 0, len(details))
	for _, d := range details {
		d.Item = strings.TrimSpace(d.Item)
		d.ParentID = s.resolve(d.ParentID)
		if err := d.Validate(); err != nil {
			continue
		}
		if s.indexOf(d.ParentID) < 0 {
			return nil, fmt.Errorf("%w: %s", ErrParentNotFound, d.ParentID)
		}
		if d.ID == "" {
			d.ID = core.NewProvisionalID()
		}
		accepted = append(accepted, d)
	}
	s.details = append(s.details, accepted...)
	return accepted, nil
}

// SetDetails replaces the full detail set of one parent.
func (s *Store) SetDetails(parentID string, details []core.EntryDetail) ([]core.EntryDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parentID = s.resolve(parentID)
	if s.indexOf(parentID) < 0 {
		return nil, fmt.Errorf("%w: %s", ErrParentNotFound, parentID)
	}
	kept := s.details[:0:0]
	for _, d := range s.details {
		if d.ParentID != parentID {
			kept = append(kept, d)
		}
	}
	accepted := make([]core.EntryDetail, 0, len(details))
	for _, d := range details {
		d.ParentID = parentID
		d.Item = strings.TrimSpace(d.Item)
		if err := d.Validate(); err != nil {
			continue
		}
		if d.ID == "" {
			d.ID = core.NewProvisionalID()
		}
		accepted = append(accepted, d)
	}
	s.details = append(kept, accepted...)
	return accepted, nil
}

// ReplaceAll swaps the entry list. Details whose parent is gone are dropped,
// and only the first entry with a given id is kept.
func (s *Store) ReplaceAll(entries []core.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = uniqueEntries(entries)
	s.pruneOrphans()
}

// RemoveEntry deletes the entry and every detail that belongs to it.
func (s *Store) RemoveEntry(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	s.pruneOrphans()
	return true
}

// UpdateEntry applies patch in place. A patch producing an invalid entry is
// rejected and the entry is left unchanged.
func (s *Store) UpdateEntry(id string, patch EntryPatch) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return core.Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e := s.entries[i]
	if patch.Date != nil {
		e.Date = *patch.Date
	}
	if patch.Item != nil {
		e.Item = strings.TrimSpace(*patch.Item)
	}
	if patch.Amount != nil {
		e.Amount = *patch.Amount
	}
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	s.entries[i] = e
	return e, nil
}

// Entry returns the entry with the given (possibly provisional) id.
func (s *Store) Entry(id string) (core.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Entry{}, false
	}
	return s.entries[i], true
}

// DetailsOf returns a copy of the details attached to id.
func (s *Store) DetailsOf(id string) []core.EntryDetail {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id = s.resolve(id)
	var out []core.EntryDetail
	for _, d := range s.details {
		if d.ParentID == id {
			out = append(out, d)
		}
	}
	return out
}

// Snapshot copies entries and details under one read lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Entries: append([]core.Entry(nil), s.entries...),
		Details: append([]core.EntryDetail(nil), s.details...),
	}
}

// Reload replaces the in-memory state with what persistence holds. Callers
// use it to recover after a failed save.
func (s *Store) Reload(ctx context.Context, src Loader) error {
	entries, err := src.LoadEntries(ctx)
	if err != nil {
		return fmt.Errorf("load entries: %w", err)
	}
	details, err := src.LoadEntryDetails(ctx)
	if err != nil {
		return fmt.Errorf("load entry details: %w", err)
	}
	s.Adopt(entries, details)
	return nil
}

// Adopt installs authoritative lists loaded elsewhere.
func (s *Store) Adopt(entries []core.Entry, details []core.EntryDetail) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = uniqueEntries(entries)
	s.details = append([]core.EntryDetail(nil), details...)
	s.pruneOrphans()
}

// Commit saves entries, records the ids persistence assigned to provisional
// entries, rewrites detail parent ids through that remap, then saves the
// details. The store adopts the authoritative lists on success. On error the
// in-memory state is left as it was and callers should Reload.
func (s *Store) Commit(ctx context.Context, dst Persister) (Snapshot, error) {
	snap := s.Snapshot()

	savedEntries, err := dst.SaveEntries(ctx, snap.Entries)
	if err != nil {
		return Snapshot{}, fmt.Errorf("save entries: %w", err)
	}
	if len(savedEntries) != len(snap.Entries) {
		return Snapshot{}, fmt.Errorf("save entries: %w (sent %d, got %d)", ErrSaveMismatch, len(snap.Entries), len(savedEntries))
	}

	remap := make(map[string]string)
	for i, e := range snap.Entries {
		if saved := savedEntries[i].ID; saved != e.ID {
			remap[e.ID] = saved
		}
	}
	details := make([]core.EntryDetail, len(snap.Details))
	for i, d := range snap.Details {
		if to, ok := remap[d.ParentID]; ok {
			d.ParentID = to
		}
		details[i] = d
	}

	savedDetails, err := dst.SaveEntryDetails(ctx, details)
	if err != nil {
		return Snapshot{}, fmt.Errorf("save entry details: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for from, to := range remap {
		s.remap[from] = to
	}
	s.entries = uniqueEntries(savedEntries)
	s.details = savedDetails
	s.pruneOrphans()
	return Snapshot{
		Entries: append([]core.Entry(nil), s.entries...),
		Details: append([]core.EntryDetail(nil), s.details...),
	}, nil
}

// uniqueEntries copies entries, keeping the first entry for each id.
func uniqueEntries(entries []core.Entry) []core.Entry {
	seen := make(map[string]struct{}, len(entries))
	out := make([]core.Entry, 0, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.ID]; dup {
			slog.Warn("Dropping entry with duplicate id",
				"component", "ledger",
				"entry_id", e.ID,
				"item", e.Item)
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	return out
}

// pruneOrphans must be called with the write lock held.
func (s *Store) pruneOrphans() {
	ids := make(map[string]struct{}, len(s.entries))
	for _, e := range s.entries {
		ids[e.ID] = struct{}{}
	}
	kept := s.details[:0:0]
	for _, d := range s.details {
		if _, ok := ids[d.ParentID]; ok {
			kept = append(kept, d)
		}
	}
	s.details = kept
}
