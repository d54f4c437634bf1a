package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"kakeibo/internal/core"
	"kakeibo/internal/storage"
)

// Store keeps everything in process memory. Authoritative ids are "mem:N".
type Store struct {
	mu        sync.Mutex
	seq       int
	entries   []core.Entry
	details   []core.EntryDetail
	keywords  core.KeywordRuleSet
	overrides core.MonthOverrides
}

var _ storage.Backend = (*Store)(nil)

func New(keywords core.KeywordRuleSet) *Store {
	if keywords == nil {
		keywords = core.KeywordRuleSet{}
	}
	return &Store{keywords: keywords.Clone(), overrides: core.MonthOverrides{}}
}

// NewFromFiles seeds base keywords from "keywords_<Category>.txt" files in
// base, one keyword per line. Missing files leave the category empty.
func NewFromFiles(base string) *Store {
	kw := core.KeywordRuleSet{}
	for _, cat := range core.RuleCategories() {
		if words := readLines(filepath.Join(base, "keywords_"+string(cat)+".txt")); len(words) > 0 {
			kw[cat] = words
		}
	}
	return New(kw)
}

func (s *Store) nextID() string {
	s.seq++
	return fmt.Sprintf("mem:%d", s.seq)
}

func (s *Store) LoadEntries(_ context.Context) ([]core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Entry(nil), s.entries...), nil
}

func (s *Store) SaveEntries(_ context.Context, entries []core.Entry) ([]core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = storage.AssignEntryIDs(entries, s.nextID)
	return append([]core.Entry(nil), s.entries...), nil
}

func (s *Store) LoadEntryDetails(_ context.Context) ([]core.EntryDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.EntryDetail(nil), s.details...), nil
}

func (s *Store) SaveEntryDetails(_ context.Context, details []core.EntryDetail) ([]core.EntryDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.details = storage.AssignDetailIDs(details, s.nextID)
	return append([]core.EntryDetail(nil), s.details...), nil
}

func (s *Store) LoadKeywords(_ context.Context) (core.KeywordRuleSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keywords.Clone(), nil
}

func (s *Store) SaveKeywords(_ context.Context, base core.KeywordRuleSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keywords = base.Clone()
	return nil
}

func (s *Store) LoadMonthExtras(_ context.Context) (core.MonthOverrides, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overrides.Clone(), nil
}

func (s *Store) SaveMonthExtras(_ context.Context, overrides core.MonthOverrides) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides = overrides.Clone()
	return nil
}

func (s *Store) Close() error { return nil }

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	seen := map[string]struct{}{}
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
