// Package export renders classified ledger rows for spreadsheets.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"kakeibo/internal/report"
)

// Header is the column layout shared by the CSV and Sheets exports.
var Header = []string{"Date", "Item", "Category", "Amount"}

// Values converts export rows to string cells, header first.
func Values(rows []report.ExportRow) [][]string {
	out := make([][]string, 0, len(rows)+1)
	out = append(out, Header)
	for _, r := range rows {
		out = append(out, []string{r.Date, r.Item, r.CategoryLabel, strconv.FormatInt(r.Amount, 10)})
	}
	return out
}

// CSVWriter writes export rows as CSV.
type CSVWriter struct {
	// Comma overrides the field delimiter when non-zero.
	Comma rune
}

// WriteToFile writes rows to a CSV file at path.
func (w *CSVWriter) WriteToFile(path string, rows []report.ExportRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	if err := w.Write(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write writes rows in CSV format to out.
func (w *CSVWriter) Write(out io.Writer, rows []report.ExportRow) error {
	writer := csv.NewWriter(out)
	if w.Comma != 0 {
		writer.Comma = w.Comma
	}
	if err := writer.WriteAll(Values(rows)); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}
