package sheets

import (
	"context"

	"kakeibo/internal/report"
)

// YearWriter replaces the exported rows of one year in a spreadsheet-like
// destination.
type YearWriter interface {
	WriteYear(ctx context.Context, year int, rows []report.ExportRow) error
}
