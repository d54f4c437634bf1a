// Package report builds the reporting views over a ledger snapshot: day and
// month totals, category breakdowns, item drill-downs, year summaries and
// export rows.
//
// Every function is a pure read over its inputs. Amounts are summed as they
// are found; malformed dates simply fall outside windows they do not match.
package report

import (
	"log/slog"
	"sort"
	"strings"

	"kakeibo/internal/classifier"
	"kakeibo/internal/core"
	"kakeibo/internal/ledger"
	"kakeibo/internal/rules"
)

// UnclassifiedSuffix marks the remainder line of a parent entry in drill-downs.
const UnclassifiedSuffix = " (unclassified)"

type (
	DayTotal struct {
		Date  string
		Total int64
	}

	MonthTotals struct {
		Raw      int64
		Excluded int64
		Display  int64
	}

	CategoryTotal struct {
		Category core.CategoryID
		Total    int64
	}

	// ItemLine is one constituent of an item group.
	ItemLine struct {
		EntryID string
		Date    string
		Item    string
		Amount  int64
	}

	ItemGroup struct {
		Name    string
		Total   int64
		Entries []ItemLine
	}

	ExportRow struct {
		Date          string
		Item          string
		Category      core.CategoryID
		CategoryLabel string
		Amount        int64
	}
)

// Aggregator derives reports from snapshots using the rules in effect for
// each entry's own month.
type Aggregator struct {
	Rules  rules.RuleSource
	Frozen YearTable
	Logger *slog.Logger
}

func New(src rules.RuleSource, frozen YearTable, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{Rules: src, Frozen: frozen, Logger: logger}
}

// line is one classified amount produced by walking an entry: either the
// entry itself, one of its details, or its remainder.
type line struct {
	entry    core.Entry
	item     string
	category core.CategoryID
	amount   int64
}

// walk classifies every in-window entry. Entries with details are broken
// down by detail item, with the remainder attributed to Unclassified;
// entries without details are classified by their own item.
func (a *Aggregator) walk(snap ledger.Snapshot, w core.Window, visit func(line)) {
	byParent := snap.DetailsByParent()
	for _, e := range snap.Entries {
		if !w.Contains(e.Date) {
			continue
		}
		eff := a.Rules.RulesFor(e.YearMonth())
		details := byParent[e.ID]
		if len(details) == 0 {
			visit(line{entry: e, item: e.Item, category: classifier.Classify(e.Item, eff), amount: e.Amount})
			continue
		}
		for _, d := range details {
			visit(line{entry: e, item: d.Item, category: classifier.Classify(d.Item, eff), amount: d.Amount})
		}
		if rem := core.Remainder(e.Amount, details); rem > 0 {
			visit(line{entry: e, item: e.Item + UnclassifiedSuffix, category: core.Unclassified, amount: rem})
		}
	}
}

// DayTotals returns raw per-day sums, exclusions not applied, date ascending.
func (a *Aggregator) DayTotals(snap ledger.Snapshot, w core.Window) []DayTotal {
	sums := make(map[string]int64)
	for _, e := range snap.Entries {
		if w.Contains(e.Date) {
			sums[e.Date] += e.Amount
		}
	}
	out := make([]DayTotal, 0, len(sums))
	for d, t := range sums {
		out = append(out, DayTotal{Date: d, Total: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// MonthTotals returns the raw, excluded and display sums of in-window entries.
func (a *Aggregator) MonthTotals(snap ledger.Snapshot, w core.Window) MonthTotals {
	var t MonthTotals
	for _, e := range snap.Entries {
		if !w.Contains(e.Date) {
			continue
		}
		t.Raw += e.Amount
		if classifier.IsExcludedFromMonthTotal(e.Item) {
			t.Excluded += e.Amount
		}
	}
	t.Display = t.Raw - t.Excluded
	return t
}

// MonthDisplayTotal is the headline spend: raw minus savings instruments.
func (a *Aggregator) MonthDisplayTotal(snap ledger.Snapshot, w core.Window) int64 {
	return a.MonthTotals(snap, w).Display
}

// ByCategory sums every in-window amount into exactly one category bucket.
// All report categories are present, in core.ReportCategories order.
func (a *Aggregator) ByCategory(snap ledger.Snapshot, w core.Window) []CategoryTotal {
	sums := make(map[core.CategoryID]int64)
	a.walk(snap, w, func(l line) {
		sums[l.category] += l.amount
	})
	cats := core.ReportCategories()
	out := make([]CategoryTotal, len(cats))
	for i, c := range cats {
		out[i] = CategoryTotal{Category: c, Total: sums[c]}
	}
	return out
}

// ItemDrillDown groups the lines of one category by their display name:
// the detail item, the entry item, or "<parent item> (unclassified)" for
// remainders. Lines inside a group are newest first; groups are ordered by
// total, largest first.
func (a *Aggregator) ItemDrillDown(snap ledger.Snapshot, w core.Window, cat core.CategoryID) []ItemGroup {
	groups := make(map[string]*ItemGroup)
	var order []string
	a.walk(snap, w, func(l line) {
		if l.category != cat {
			return
		}
		name := strings.TrimSpace(l.item)
		g, ok := groups[name]
		if !ok {
			g = &ItemGroup{Name: name}
			groups[name] = g
			order = append(order, name)
		}
		g.Total += l.amount
		g.Entries = append(g.Entries, ItemLine{EntryID: l.entry.ID, Date: l.entry.Date, Item: l.item, Amount: l.amount})
	})

	out := make([]ItemGroup, 0, len(order))
	for _, name := range order {
		g := groups[name]
		sortByRecency(g.Entries)
		out = append(out, *g)
	}
	sortGroups(out)
	return out
}

// BaseName strips a parenthesized variant: "Dog (vet)" becomes "Dog".
func BaseName(name string) string {
	if i := strings.Index(name, " ("); i >= 0 {
		return strings.TrimSpace(name[:i])
	}
	return strings.TrimSpace(name)
}

// MergeVariants is the second grouping pass: groups whose names differ only
// by a parenthesized suffix roll up under the shared base name.
func MergeVariants(groups []ItemGroup) []ItemGroup {
	merged := make(map[string]*ItemGroup)
	var order []string
	for _, g := range groups {
		name := BaseName(g.Name)
		m, ok := merged[name]
		if !ok {
			m = &ItemGroup{Name: name}
			merged[name] = m
			order = append(order, name)
		}
		m.Total += g.Total
		m.Entries = append(m.Entries, g.Entries...)
	}
	out := make([]ItemGroup, 0, len(order))
	for _, name := range order {
		m := merged[name]
		sortByRecency(m.Entries)
		out = append(out, *m)
	}
	sortGroups(out)
	return out
}

// Reconcile reports the allocation of every in-window entry that has
// details, flagging over-allocated parents. Totals elsewhere still clamp.
func (a *Aggregator) Reconcile(snap ledger.Snapshot, w core.Window) []core.Allocation {
	byParent := snap.DetailsByParent()
	var out []core.Allocation
	for _, e := range snap.Entries {
		if !w.Contains(e.Date) {
			continue
		}
		details := byParent[e.ID]
		if len(details) == 0 {
			continue
		}
		alloc := core.Allocate(e, details)
		if alloc.Overallocated {
			a.Logger.Warn("Entry details exceed entry amount",
				"component", "report",
				"entry_id", e.ID,
				"amount", e.Amount,
				"allocated", alloc.Allocated)
		}
		out = append(out, alloc)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// ExportRows flattens the window into one row per detail when an entry has
// details, else one row per entry, sorted by date then item. Remainders are
// not exported as rows.
func (a *Aggregator) ExportRows(snap ledger.Snapshot, w core.Window) []ExportRow {
	var out []ExportRow
	a.walk(snap, w, func(l line) {
		if l.category == core.Unclassified {
			return
		}
		out = append(out, ExportRow{
			Date:          l.entry.Date,
			Item:          l.item,
			Category:      l.category,
			CategoryLabel: l.category.Label(),
			Amount:        l.amount,
		})
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Item < out[j].Item
	})
	return out
}

func sortByRecency(lines []ItemLine) {
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Date > lines[j].Date })
}

func sortGroups(groups []ItemGroup) {
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Total != groups[j].Total {
			return groups[i].Total > groups[j].Total
		}
		return groups[i].Name < groups[j].Name
	})
}
