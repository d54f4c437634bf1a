package rules

import (
	"context"
	"errors"
	"slices"
	"testing"

	"kakeibo/internal/core"
)

func TestResolveForMonthIsAdditive(t *testing.T) {
	base := core.KeywordRuleSet{
		core.FixedCost: {"electricity"},
		core.Tax:       {"vat"},
	}
	overrides := core.MonthOverrides{
		"2025-03": {core.FixedCost: {"rent", "electricity"}},
	}

	eff := ResolveForMonth(base, overrides, "2025-03")
	for cat, words := range base {
		for _, w := range words {
			if !slices.Contains(eff[cat], w) {
				t.Fatalf("effective %s lost base keyword %q", cat, w)
			}
		}
	}
	want := []string{"electricity", "rent", "electricity"}
	if !slices.Equal(eff[core.FixedCost], want) {
		t.Fatalf("expected %v, got %v", want, eff[core.FixedCost])
	}

	eff[core.Tax][0] = "mutated"
	if base[core.Tax][0] != "vat" {
		t.Fatalf("resolution must not alias the base set")
	}
}

func TestAddKeywordGlobalIsExclusive(t *testing.T) {
	b := NewBook(4, 0)
	b.Replace(core.KeywordRuleSet{
		core.LivingCost: {"insurance", "food"},
		core.Tax:        {"insurance"},
	}, nil)

	if !b.AddKeyword(core.BusinessExpense, " insurance ", "2025-03", true) {
		t.Fatal("expected change")
	}
	base := b.Base()
	for _, cat := range core.RuleCategories() {
		if cat == core.BusinessExpense {
			continue
		}
		if slices.Contains(base[cat], "insurance") {
			t.Fatalf("keyword still present in %s: %v", cat, base[cat])
		}
	}
	if !slices.Equal(base[core.BusinessExpense], []string{"insurance"}) {
		t.Fatalf("unexpected business keywords %v", base[core.BusinessExpense])
	}
	if !slices.Equal(base[core.LivingCost], []string{"food"}) {
		t.Fatalf("unrelated keyword lost: %v", base[core.LivingCost])
	}
}

func TestKeywordsCompareCaseInsensitively(t *testing.T) {
	b := NewBook(4, 0)
	b.Replace(core.KeywordRuleSet{
		core.LivingCost: {"vat", "Vat", "food"},
	}, core.MonthOverrides{"2025-03": {core.Tax: {"stamp"}}})

	if !b.AddKeyword(core.Tax, "VAT", "", true) {
		t.Fatal("expected change")
	}
	base := b.Base()
	if !slices.Equal(base[core.LivingCost], []string{"food"}) {
		t.Fatalf("case variants left in living costs: %v", base[core.LivingCost])
	}
	if !slices.Equal(base[core.Tax], []string{"VAT"}) {
		t.Fatalf("unexpected tax keywords %v", base[core.Tax])
	}

	if b.AddKeyword(core.Tax, "vat", "", true) {
		t.Fatal("re-adding a case variant must be a no-op")
	}
	if b.AddKeyword(core.Tax, "STAMP", "2025-03", false) {
		t.Fatal("re-adding a month keyword in another case must be a no-op")
	}
	if !b.RemoveKeyword(core.Tax, "vat", "", false) || len(b.Base()[core.Tax]) != 0 {
		t.Fatalf("removal should ignore case, base now %v", b.Base()[core.Tax])
	}
}

func TestAddKeywordMonthScoped(t *testing.T) {
	b := NewBook(4, 0)
	if !b.AddKeyword(core.FixedCost, "rent", "2025-03", false) {
		t.Fatal("expected change")
	}
	if slices.Contains(b.RulesFor("2025-02")[core.FixedCost], "rent") {
		t.Fatal("rent leaked into 2025-02")
	}
	if !slices.Contains(b.RulesFor("2025-03")[core.FixedCost], "rent") {
		t.Fatal("rent missing from 2025-03")
	}
	if len(b.Base()[core.FixedCost]) != 0 {
		t.Fatal("month keyword must not touch the base set")
	}
}

func TestAddKeywordNoOps(t *testing.T) {
	b := NewBook(4, 0)
	b.Replace(core.KeywordRuleSet{core.Tax: {"vat"}}, core.MonthOverrides{"2025-03": {core.Tax: {"stamp"}}})

	cases := []struct {
		name   string
		cat    core.CategoryID
		word   string
		global bool
	}{
		{"blank word", core.Tax, "   ", true},
		{"already in base", core.Tax, "vat", false},
		{"already in month", core.Tax, "stamp", false},
		{"already in month, global add", core.Tax, "stamp", true},
		{"unclassified target", core.Unclassified, "x", true},
		{"unknown category", core.CategoryID("Bogus"), "x", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if b.AddKeyword(tc.cat, tc.word, "2025-03", tc.global) {
				t.Fatalf("expected no-op")
			}
		})
	}
}

func TestRemoveKeyword(t *testing.T) {
	b := NewBook(4, 0)
	b.AddKeyword(core.FixedCost, "rent", "2025-03", false)
	b.AddKeyword(core.Tax, "vat", "", true)

	if b.RemoveKeyword(core.FixedCost, "rent", "2025-04", true) {
		t.Fatal("removing from the wrong month must be a no-op")
	}
	if !b.RemoveKeyword(core.FixedCost, "rent", "2025-03", true) {
		t.Fatal("expected month removal")
	}
	if _, ok := b.Overrides()["2025-03"]; ok {
		t.Fatal("empty month entry should be pruned")
	}
	if !b.RemoveKeyword(core.Tax, "vat", "", false) {
		t.Fatal("expected base removal")
	}
	if len(b.Base()[core.Tax]) != 0 {
		t.Fatalf("vat still in base: %v", b.Base()[core.Tax])
	}
	if b.RemoveKeyword(core.Tax, "", "", false) {
		t.Fatal("blank removal must be a no-op")
	}
}

func TestRemoveKeywordKeepsOtherMonthCategories(t *testing.T) {
	b := NewBook(4, 0)
	b.AddKeyword(core.FixedCost, "rent", "2025-03", false)
	b.AddKeyword(core.Tax, "stamp", "2025-03", false)
	b.RemoveKeyword(core.FixedCost, "rent", "2025-03", true)

	ov := b.Overrides()
	if _, ok := ov["2025-03"][core.FixedCost]; ok {
		t.Fatal("empty (month, category) entry should be pruned")
	}
	if !slices.Equal(ov["2025-03"][core.Tax], []string{"stamp"}) {
		t.Fatalf("unrelated month keyword lost: %v", ov["2025-03"])
	}
}

func TestRulesForInvalidatesOnMutation(t *testing.T) {
	b := NewBook(4, 0)
	if len(b.RulesFor("2025-01")[core.Tax]) != 0 {
		t.Fatal("expected empty rules")
	}
	b.AddKeyword(core.Tax, "vat", "", true)
	if !slices.Contains(b.RulesFor("2025-01")[core.Tax], "vat") {
		t.Fatal("memoized rules not invalidated")
	}
}

type fakeRepo struct {
	base      core.KeywordRuleSet
	overrides core.MonthOverrides
	failSave  bool
}

func (r *fakeRepo) LoadKeywords(context.Context) (core.KeywordRuleSet, error) {
	return r.base, nil
}

func (r *fakeRepo) SaveKeywords(_ context.Context, base core.KeywordRuleSet) error {
	if r.failSave {
		return errors.New("boom")
	}
	r.base = base
	return nil
}

func (r *fakeRepo) LoadMonthExtras(context.Context) (core.MonthOverrides, error) {
	return r.overrides, nil
}

func (r *fakeRepo) SaveMonthExtras(_ context.Context, o core.MonthOverrides) error {
	r.overrides = o
	return nil
}

func TestBookLoadSave(t *testing.T) {
	repo := &fakeRepo{
		base:      core.KeywordRuleSet{core.Tax: {"vat"}},
		overrides: core.MonthOverrides{"2025-03": {core.FixedCost: {"rent"}}},
	}
	b := NewBook(4, 0)
	if err := b.Load(context.Background(), repo); err != nil {
		t.Fatalf("load: %v", err)
	}
	b.AddKeyword(core.LivingCost, "food", "", true)
	if err := b.Save(context.Background(), repo); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !slices.Equal(repo.base[core.LivingCost], []string{"food"}) {
		t.Fatalf("saved base missing keyword: %v", repo.base)
	}
	if !slices.Equal(repo.overrides["2025-03"][core.FixedCost], []string{"rent"}) {
		t.Fatalf("saved overrides lost: %v", repo.overrides)
	}

	repo.failSave = true
	if err := b.Save(context.Background(), repo); err == nil {
		t.Fatal("expected save error")
	}
}

func TestStaticSource(t *testing.T) {
	s := Static{Base: core.KeywordRuleSet{core.Tax: {"vat"}}}
	if !slices.Equal(s.RulesFor("2025-01")[core.Tax], []string{"vat"}) {
		t.Fatal("static source should resolve base keywords")
	}
}
