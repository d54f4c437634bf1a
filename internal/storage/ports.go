package storage

import (
	"context"

	"kakeibo/internal/core"
)

// Ports for persistence adapters. Every Save* call is a full replacement and
// returns the authoritative list in submission order, with provisional ids
// replaced by ids the backend assigned.
type (
	EntryRepository interface {
		LoadEntries(ctx context.Context) ([]core.Entry, error)
		SaveEntries(ctx context.Context, entries []core.Entry) ([]core.Entry, error)
	}

	DetailRepository interface {
		LoadEntryDetails(ctx context.Context) ([]core.EntryDetail, error)
		SaveEntryDetails(ctx context.Context, details []core.EntryDetail) ([]core.EntryDetail, error)
	}

	KeywordRepository interface {
		LoadKeywords(ctx context.Context) (core.KeywordRuleSet, error)
		SaveKeywords(ctx context.Context, base core.KeywordRuleSet) error
	}

	MonthExtrasRepository interface {
		LoadMonthExtras(ctx context.Context) (core.MonthOverrides, error)
		SaveMonthExtras(ctx context.Context, overrides core.MonthOverrides) error
	}

	// Backend is the full persistence surface.
	Backend interface {
		EntryRepository
		DetailRepository
		KeywordRepository
		MonthExtrasRepository
		Close() error
	}
)

// AssignEntryIDs replaces provisional ids using next and returns a new slice.
func AssignEntryIDs(entries []core.Entry, next func() string) []core.Entry {
	out := make([]core.Entry, len(entries))
	for i, e := range entries {
		if core.IsProvisional(e.ID) {
			e.ID = next()
		}
		out[i] = e
	}
	return out
}

// AssignDetailIDs replaces provisional detail ids using next.
func AssignDetailIDs(details []core.EntryDetail, next func() string) []core.EntryDetail {
	out := make([]core.EntryDetail, len(details))
	for i, d := range details {
		if core.IsProvisional(d.ID) {
			d.ID = next()
		}
		out[i] = d
	}
	return out
}
