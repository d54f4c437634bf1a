package report

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"kakeibo/internal/core"
	"kakeibo/internal/ledger"
)

// YearTable holds frozen month totals for years that predate live data.
// It is consulted before any computation.
type YearTable map[int][12]int64

type YearSummary struct {
	Year   int
	Months [12]int64
	Total  int64
	// Frozen is set when the figures come from the seed table.
	Frozen bool
}

type yearTableFile struct {
	Years map[int][]int64 `yaml:"years"`
}

// LoadYearTable reads a YAML seed file of the form:
//
//	years:
//	  2019: [120000, 98000, ...]   # twelve month totals
//
// A missing path yields an empty table.
func LoadYearTable(path string) (YearTable, error) {
	if path == "" {
		return YearTable{}, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return YearTable{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read year table: %w", err)
	}
	return ParseYearTable(data)
}

func ParseYearTable(data []byte) (YearTable, error) {
	var f yearTableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse year table: %w", err)
	}
	out := make(YearTable, len(f.Years))
	for year, months := range f.Years {
		if len(months) != 12 {
			return nil, fmt.Errorf("year %d: expected 12 month totals, got %d", year, len(months))
		}
		var row [12]int64
		copy(row[:], months)
		out[year] = row
	}
	return out, nil
}

// YearByMonth returns the twelve display totals of year, served from the
// frozen table when the year is seeded.
func (a *Aggregator) YearByMonth(snap ledger.Snapshot, year int) YearSummary {
	if row, ok := a.Frozen[year]; ok {
		s := YearSummary{Year: year, Months: row, Frozen: true}
		for _, m := range row {
			s.Total += m
		}
		return s
	}

	s := YearSummary{Year: year}
	for m := 1; m <= 12; m++ {
		s.Months[m-1] = a.MonthDisplayTotal(snap, core.MonthWindow(core.MonthKey(year, m)))
		s.Total += s.Months[m-1]
	}
	return s
}
