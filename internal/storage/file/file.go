// Package file persists the whole dataset in one local YAML document.
// Each save rewrites the document through a temporary file and a rename.
package file

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"kakeibo/internal/core"
	"kakeibo/internal/storage"
)

type document struct {
	Entries     []entryRecord                  `yaml:"entries"`
	Details     []detailRecord                 `yaml:"entry_details"`
	Keywords    map[string][]string            `yaml:"keywords"`
	MonthExtras map[string]map[string][]string `yaml:"month_extras"`
}

type entryRecord struct {
	ID     string `yaml:"id"`
	Date   string `yaml:"date"`
	Item   string `yaml:"item"`
	Amount int64  `yaml:"amount"`
}

type detailRecord struct {
	ID       string `yaml:"id"`
	ParentID string `yaml:"parent_id"`
	Item     string `yaml:"item"`
	Amount   int64  `yaml:"amount"`
}

type Store struct {
	mu   sync.Mutex
	path string
}

var _ storage.Backend = (*Store)(nil)

func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{path: path}, nil
}

func (s *Store) read() (document, error) {
	var doc document
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("read %s: %w", s.path, err)
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return doc, nil
}

func (s *Store) write(doc document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".kakeibo-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// update runs fn on the current document and writes the result back.
func (s *Store) update(fn func(*document)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return err
	}
	fn(&doc)
	return s.write(doc)
}

func (s *Store) load() (document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *Store) LoadEntries(_ context.Context) ([]core.Entry, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]core.Entry, len(doc.Entries))
	for i, r := range doc.Entries {
		out[i] = core.Entry{ID: r.ID, Date: r.Date, Item: r.Item, Amount: r.Amount}
	}
	return out, nil
}

func (s *Store) SaveEntries(ctx context.Context, entries []core.Entry) ([]core.Entry, error) {
	saved := storage.AssignEntryIDs(entries, uuid.NewString)
	err := s.update(func(doc *document) {
		doc.Entries = make([]entryRecord, len(saved))
		for i, e := range saved {
			doc.Entries[i] = entryRecord{ID: e.ID, Date: e.Date, Item: e.Item, Amount: e.Amount}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("save entries: %w", err)
	}
	slog.DebugContext(ctx, "Entries written", "component", "storage", "path", s.path, "count", len(saved))
	return saved, nil
}

func (s *Store) LoadEntryDetails(_ context.Context) ([]core.EntryDetail, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]core.EntryDetail, len(doc.Details))
	for i, r := range doc.Details {
		out[i] = core.EntryDetail{ID: r.ID, ParentID: r.ParentID, Item: r.Item, Amount: r.Amount}
	}
	return out, nil
}

func (s *Store) SaveEntryDetails(_ context.Context, details []core.EntryDetail) ([]core.EntryDetail, error) {
	saved := storage.AssignDetailIDs(details, uuid.NewString)
	err := s.update(func(doc *document) {
		doc.Details = make([]detailRecord, len(saved))
		for i, d := range saved {
			doc.Details[i] = detailRecord{ID: d.ID, ParentID: d.ParentID, Item: d.Item, Amount: d.Amount}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("save entry details: %w", err)
	}
	return saved, nil
}

func (s *Store) LoadKeywords(_ context.Context) (core.KeywordRuleSet, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	out := core.KeywordRuleSet{}
	for cat, words := range doc.Keywords {
		out[core.CategoryID(cat)] = words
	}
	return out, nil
}

func (s *Store) SaveKeywords(_ context.Context, base core.KeywordRuleSet) error {
	return s.update(func(doc *document) {
		doc.Keywords = make(map[string][]string, len(base))
		for cat, words := range base {
			doc.Keywords[string(cat)] = append([]string(nil), words...)
		}
	})
}

func (s *Store) LoadMonthExtras(_ context.Context) (core.MonthOverrides, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	out := core.MonthOverrides{}
	for ym, cats := range doc.MonthExtras {
		m := make(map[core.CategoryID][]string, len(cats))
		for cat, words := range cats {
			m[core.CategoryID(cat)] = words
		}
		out[ym] = m
	}
	return out, nil
}

func (s *Store) SaveMonthExtras(_ context.Context, overrides core.MonthOverrides) error {
	return s.update(func(doc *document) {
		doc.MonthExtras = make(map[string]map[string][]string, len(overrides))
		for ym, cats := range overrides {
			m := make(map[string][]string, len(cats))
			for cat, words := range cats {
				m[string(cat)] = append([]string(nil), words...)
			}
			doc.MonthExtras[ym] = m
		}
	})
}

func (s *Store) Close() error { return nil }
