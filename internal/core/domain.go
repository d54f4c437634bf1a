package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	FixedCost       CategoryID = "FixedCost"
	BusinessExpense CategoryID = "BusinessExpense"
	Tax             CategoryID = "Tax"
	LivingCost      CategoryID = "LivingCost"
	Other           CategoryID = "Other"

	// Unclassified is an aggregation outcome only: the part of a parent entry
	// not covered by its details. It never receives keywords.
	Unclassified CategoryID = "Unclassified"
)

const (
	provisionalPrefix = "tmp-"
	dateLayout        = "2006-01-02"
	maxItemLength     = 200
)

type (
	CategoryID string

	// KeywordRuleSet maps each category to its ordered keyword list.
	KeywordRuleSet map[CategoryID][]string

	// MonthOverrides holds additive keyword lists scoped to one "YYYY-MM" month.
	MonthOverrides map[string]map[CategoryID][]string

	Entry struct {
		ID     string
		Date   string // YYYY-MM-DD
		Item   string
		Amount int64
	}

	// EntryDetail is a named sub-portion of the parent entry's amount.
	EntryDetail struct {
		ID       string
		ParentID string
		Item     string
		Amount   int64
	}
)

var (
	ErrEmptyItem     = errors.New("empty item")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrMissingParent = errors.New("missing parent entry id")
)

var categoryLabels = map[CategoryID]string{
	FixedCost:       "Fixed costs",
	BusinessExpense: "Business expenses",
	Tax:             "Taxes",
	LivingCost:      "Living costs",
	Other:           "Other",
	Unclassified:    "Unclassified",
}

// RuleCategories returns the categories that can carry keywords, in the
// order reports list them.
func RuleCategories() []CategoryID {
	return []CategoryID{FixedCost, BusinessExpense, Tax, LivingCost, Other}
}

// ReportCategories is RuleCategories followed by Unclassified.
func ReportCategories() []CategoryID {
	return append(RuleCategories(), Unclassified)
}

func (c CategoryID) IsRuleTarget() bool {
	switch c {
	case FixedCost, BusinessExpense, Tax, LivingCost, Other:
		return true
	default:
		return false
	}
}

// Label returns the display label used in exports.
func (c CategoryID) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// ParseCategory accepts either the identifier or the display label, case-insensitively.
func ParseCategory(s string) (CategoryID, bool) {
	s = strings.TrimSpace(s)
	for _, c := range ReportCategories() {
		if strings.EqualFold(s, string(c)) || strings.EqualFold(s, c.Label()) {
			return c, true
		}
	}
	return "", false
}

// YearMonth returns the "YYYY-MM" prefix of the entry date. Dates shorter
// than that are returned unchanged.
func (e Entry) YearMonth() string {
	return YearMonthOf(e.Date)
}

func YearMonthOf(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}

func (e Entry) Validate() error {
	if _, err := time.Parse(dateLayout, e.Date); err != nil {
		return ErrInvalidDate
	}
	if strings.TrimSpace(e.Item) == "" {
		return ErrEmptyItem
	}
	if utf8.RuneCountInString(e.Item) > maxItemLength {
		return errors.New("item too long (max 200 characters)")
	}
	if e.Amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (d EntryDetail) Validate() error {
	if strings.TrimSpace(d.ParentID) == "" {
		return ErrMissingParent
	}
	if strings.TrimSpace(d.Item) == "" {
		return ErrEmptyItem
	}
	if d.Amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// NewProvisionalID returns a client-side id that persistence will replace.
func NewProvisionalID() string {
	return provisionalPrefix + uuid.NewString()
}

func IsProvisional(id string) bool {
	return id == "" || strings.HasPrefix(id, provisionalPrefix)
}

// Clone returns a deep copy of the rule set.
func (s KeywordRuleSet) Clone() KeywordRuleSet {
	out := make(KeywordRuleSet, len(s))
	for cat, words := range s {
		out[cat] = append([]string(nil), words...)
	}
	return out
}

// Clone returns a deep copy of the overrides.
func (o MonthOverrides) Clone() MonthOverrides {
	out := make(MonthOverrides, len(o))
	for ym, cats := range o {
		m := make(map[CategoryID][]string, len(cats))
		for cat, words := range cats {
			m[cat] = append([]string(nil), words...)
		}
		out[ym] = m
	}
	return out
}
