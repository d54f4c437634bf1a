package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func setupFileBackend(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kakeibo.yaml")
	t.Setenv("DATA_BACKEND", "file")
	t.Setenv("DATA_FILE_PATH", path)
	t.Setenv("AMQP_URL", "")
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")
	t.Setenv("LOG_LEVEL", "error")
	return path
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("kakeibo %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestEntryAndCategoryReport(t *testing.T) {
	setupFileBackend(t)

	run(t, "entry", "add", "2025-03-01", "rent", "80000")
	run(t, "entry", "add", "2025-03-05", "card", "100000", "--detail", "vet=20000")
	run(t, "keyword", "add", "FixedCost", "rent")

	out := run(t, "report", "categories", "--month", "2025-03")
	if !strings.Contains(out, "Fixed costs") || !strings.Contains(out, "80,000") {
		t.Fatalf("expected fixed costs total, got:\n%s", out)
	}
	if !strings.Contains(out, "Unclassified") {
		t.Fatalf("expected unclassified remainder, got:\n%s", out)
	}

	list := run(t, "entry", "list", "--month", "2025-03")
	if !strings.Contains(list, "rent") || !strings.Contains(list, "card") {
		t.Fatalf("expected both entries, got:\n%s", list)
	}
}

func TestMonthKeywordOnlyAppliesToThatMonth(t *testing.T) {
	setupFileBackend(t)

	run(t, "keyword", "add", "BusinessExpense", "laptop", "--month", "2025-03")

	if out := run(t, "classify", "new laptop", "--month", "2025-03"); !strings.Contains(out, "Business expenses") {
		t.Fatalf("expected business expense in March, got %q", out)
	}
	if out := run(t, "classify", "new laptop", "--month", "2025-04"); !strings.Contains(out, "Living costs") {
		t.Fatalf("expected living cost default in April, got %q", out)
	}
}

func TestExportCSVToStdout(t *testing.T) {
	setupFileBackend(t)

	run(t, "entry", "add", "2025-01-10", "groceries", "3000")
	run(t, "entry", "add", "2024-12-31", "old", "100")

	out := run(t, "export", "csv", "--year", "2025")
	if !strings.HasPrefix(out, "Date,Item,Category,Amount") {
		t.Fatalf("missing header:\n%s", out)
	}
	if !strings.Contains(out, "groceries") || strings.Contains(out, "old") {
		t.Fatalf("unexpected rows:\n%s", out)
	}
}

func TestWindowFlagsAreExclusive(t *testing.T) {
	wf := windowFlags{month: "2025-03", year: 2025}
	if _, err := wf.window(); err == nil {
		t.Fatal("expected error for --month with --year")
	}

	wf = windowFlags{from: "2025-01-01"}
	w, err := wf.window()
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if !w.Contains("2030-06-01") || w.Contains("2024-12-31") {
		t.Fatalf("unexpected open-ended window %+v", w)
	}
}

func TestParseDetails(t *testing.T) {
	rows, err := parseDetails([]string{"vet=20,000", "a=b=1500"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rows[0].Amount != 20000 || rows[1].Item != "a=b" || rows[1].Amount != 1500 {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if _, err := parseDetails([]string{"novalue"}); err == nil {
		t.Fatal("expected error for missing amount")
	}
}
