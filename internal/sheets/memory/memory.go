// Package memory is an in-process export destination, used when no
// spreadsheet is configured.
package memory

import (
	"context"
	"sort"
	"sync"

	"kakeibo/internal/report"
	"kakeibo/internal/sheets"
)

type Store struct {
	mu     sync.Mutex
	years  map[int][]report.ExportRow
	writes int
}

var _ sheets.YearWriter = (*Store)(nil)

func New() *Store {
	return &Store{years: make(map[int][]report.ExportRow)}
}

// WriteYear replaces the rows kept for year.
func (s *Store) WriteYear(_ context.Context, year int, rows []report.ExportRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.years[year] = append([]report.ExportRow(nil), rows...)
	s.writes++
	return nil
}

// Rows returns a copy of the rows last written for year.
func (s *Store) Rows(year int) []report.ExportRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]report.ExportRow(nil), s.years[year]...)
}

// Years lists the years written so far.
func (s *Store) Years() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, 0, len(s.years))
	for y := range s.years {
		out = append(out, y)
	}
	sort.Ints(out)
	return out
}

// Writes counts WriteYear calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
