// Package classifier maps free-text expense items to categories using
// substring keyword rules.
package classifier

import (
	"strings"

	"kakeibo/internal/core"
	"kakeibo/internal/rules"
)

// PriorityOrder is the order in which categories are tested. Administrative
// categories come before the catch-all, so an item carrying both a tax and a
// living-cost keyword is always Tax.
var PriorityOrder = []core.CategoryID{
	core.FixedCost,
	core.BusinessExpense,
	core.Tax,
	core.LivingCost,
	core.Other,
}

// Default is returned when no keyword matches.
const Default = core.LivingCost

// ExclusionKeywords identify savings and retirement instruments that are
// subtracted from month display totals.
var ExclusionKeywords = []string{"ideco", "nisa", "401k", "積立", "財形"}

// Classify returns the first category in PriorityOrder with a keyword that
// is a case-insensitive substring of item.
func Classify(item string, eff rules.Effective) core.CategoryID {
	text := strings.ToLower(strings.TrimSpace(item))
	for _, cat := range PriorityOrder {
		if matchesAny(text, eff[cat]) {
			return cat
		}
	}
	return Default
}

// IsExcludedFromMonthTotal reports whether item names a savings instrument.
// Exclusion is independent of categorization.
func IsExcludedFromMonthTotal(item string) bool {
	return matchesAny(strings.ToLower(item), ExclusionKeywords)
}

func matchesAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Classifier binds Classify to a rule source so callers only pass the month.
type Classifier struct {
	Rules rules.RuleSource
}

func New(src rules.RuleSource) Classifier {
	return Classifier{Rules: src}
}

// ClassifyFor classifies item with the rules effective in yearMonth.
func (c Classifier) ClassifyFor(item, yearMonth string) core.CategoryID {
	return Classify(item, c.Rules.RulesFor(yearMonth))
}
