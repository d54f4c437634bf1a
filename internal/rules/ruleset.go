// Package rules holds the category keyword model: the global base set, the
// additive month-scoped overrides, and the resolution of both into the
// effective rule set used for one month.
package rules

import (
	"slices"
	"strings"

	"kakeibo/internal/core"
)

// Effective is the keyword set that applies to one month.
type Effective map[core.CategoryID][]string

// RuleSource resolves the effective rules for a "YYYY-MM" month. Classifier
// and report code depend on this instead of any shared state.
type RuleSource interface {
	RulesFor(yearMonth string) Effective
}

// ResolveForMonth concatenates base keywords with the overrides registered
// for yearMonth. Duplicates are kept; a keyword present in both simply
// matches twice.
func ResolveForMonth(base core.KeywordRuleSet, overrides core.MonthOverrides, yearMonth string) Effective {
	extra := overrides[yearMonth]
	out := make(Effective, len(base)+len(extra))
	for cat, words := range base {
		out[cat] = append([]string(nil), words...)
	}
	for cat, words := range extra {
		out[cat] = append(out[cat], words...)
	}
	return out
}

// Static serves a fixed base and overrides pair without caching.
type Static struct {
	Base      core.KeywordRuleSet
	Overrides core.MonthOverrides
}

func (s Static) RulesFor(yearMonth string) Effective {
	return ResolveForMonth(s.Base, s.Overrides, yearMonth)
}

func normalizeWord(word string) string {
	return strings.TrimSpace(word)
}

// Keywords compare case-insensitively, matching how Classify applies them.
func containsWord(words []string, word string) bool {
	return slices.ContainsFunc(words, func(w string) bool { return strings.EqualFold(w, word) })
}

// removeWord drops every case variant of word.
func removeWord(words []string, word string) ([]string, bool) {
	n := len(words)
	words = slices.DeleteFunc(words, func(w string) bool { return strings.EqualFold(w, word) })
	return words, len(words) != n
}

// addGlobal inserts word into cat and strips it from every other category,
// keeping a keyword in at most one base category.
func addGlobal(base core.KeywordRuleSet, cat core.CategoryID, word string) {
	for other, words := range base {
		if other == cat {
			continue
		}
		base[other], _ = removeWord(words, word)
	}
	base[cat] = append(base[cat], word)
}

func addMonth(overrides core.MonthOverrides, yearMonth string, cat core.CategoryID, word string) {
	cats, ok := overrides[yearMonth]
	if !ok {
		cats = make(map[core.CategoryID][]string)
		overrides[yearMonth] = cats
	}
	cats[cat] = append(cats[cat], word)
}

func removeMonth(overrides core.MonthOverrides, yearMonth string, cat core.CategoryID, word string) bool {
	cats, ok := overrides[yearMonth]
	if !ok {
		return false
	}
	words, removed := removeWord(cats[cat], word)
	if !removed {
		return false
	}
	if len(words) == 0 {
		delete(cats, cat)
	} else {
		cats[cat] = words
	}
	if len(cats) == 0 {
		delete(overrides, yearMonth)
	}
	return true
}
