package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"kakeibo/internal/core"
	"kakeibo/internal/report"
)

var sampleRows = []report.ExportRow{
	{Date: "2025-03-01", Item: "rent, March", Category: core.FixedCost, CategoryLabel: core.FixedCost.Label(), Amount: 80000},
	{Date: "2025-03-02", Item: "coffee", Category: core.LivingCost, CategoryLabel: core.LivingCost.Label(), Amount: 450},
}

func TestCSVWriter_Write(t *testing.T) {
	var buf bytes.Buffer
	if err := (&CSVWriter{}).Write(&buf, sampleRows); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := "Date,Item,Category,Amount\n" +
		"2025-03-01,\"rent, March\"," + core.FixedCost.Label() + ",80000\n" +
		"2025-03-02,coffee," + core.LivingCost.Label() + ",450\n"
	if buf.String() != want {
		t.Fatalf("got\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestCSVWriter_CustomDelimiter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&CSVWriter{Comma: ';'}).Write(&buf, sampleRows[1:]); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := buf.String(); got != "Date;Item;Category;Amount\n2025-03-02;coffee;"+core.LivingCost.Label()+";450\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestCSVWriter_WriteToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	if err := (&CSVWriter{}).WriteToFile(path, nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "Date,Item,Category,Amount\n" {
		t.Fatalf("expected header only, got %q", data)
	}
}
