package rules

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kakeibo/internal/cache"
	"kakeibo/internal/core"
)

const defaultCacheSize = 24

// Repository is the persistence boundary for keyword rules. Saves are full
// replacements.
type Repository interface {
	LoadKeywords(ctx context.Context) (core.KeywordRuleSet, error)
	SaveKeywords(ctx context.Context, base core.KeywordRuleSet) error
	LoadMonthExtras(ctx context.Context) (core.MonthOverrides, error)
	SaveMonthExtras(ctx context.Context, overrides core.MonthOverrides) error
}

// Book owns the base keyword set and the month overrides. Resolved rule sets
// are memoized per month until the next mutation.
type Book struct {
	mu        sync.RWMutex
	base      core.KeywordRuleSet
	overrides core.MonthOverrides
	gen       uint64
	memo      *cache.LRUCache[Effective]
}

var _ RuleSource = (*Book)(nil)

// NewBook creates an empty book. cacheSize bounds the number of memoized
// months; ttl of zero keeps them until the next mutation.
func NewBook(cacheSize int, ttl time.Duration) *Book {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	return &Book{
		base:      core.KeywordRuleSet{},
		overrides: core.MonthOverrides{},
		memo:      cache.NewLRUCache[Effective](cacheSize, ttl),
	}
}

// Cache exposes the memo so long-running processes can register it for expiry.
func (b *Book) Cache() cache.Cleaner {
	return b.memo
}

// RulesFor returns the effective rules for yearMonth. The result is shared
// and must be treated as read-only.
func (b *Book) RulesFor(yearMonth string) Effective {
	b.mu.RLock()
	defer b.mu.RUnlock()

	key := fmt.Sprintf("%d|%s", b.gen, yearMonth)
	if eff, ok := b.memo.Get(key); ok {
		return eff
	}
	eff := ResolveForMonth(b.base, b.overrides, yearMonth)
	b.memo.Set(key, eff)
	return eff
}

// AddKeyword registers word for cat. With persistGlobally the base set is
// changed and the word leaves every other category; otherwise it is added
// to the yearMonth override only. Blank words, non-target categories and
// words already present in base(cat) or the month's override are no-ops.
// It reports whether anything changed.
func (b *Book) AddKeyword(cat core.CategoryID, word, yearMonth string, persistGlobally bool) bool {
	word = normalizeWord(word)
	if word == "" || !cat.IsRuleTarget() {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if containsWord(b.base[cat], word) || containsWord(b.overrides[yearMonth][cat], word) {
		return false
	}
	if persistGlobally {
		addGlobal(b.base, cat, word)
	} else {
		if yearMonth == "" {
			return false
		}
		addMonth(b.overrides, yearMonth, cat, word)
	}
	b.invalidate()
	return true
}

// RemoveKeyword removes word from the yearMonth override of cat when
// isMonthOnly is set, pruning empty entries, or from the base set otherwise.
func (b *Book) RemoveKeyword(cat core.CategoryID, word, yearMonth string, isMonthOnly bool) bool {
	word = normalizeWord(word)
	if word == "" {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var changed bool
	if isMonthOnly {
		changed = removeMonth(b.overrides, yearMonth, cat, word)
	} else {
		var words []string
		words, changed = removeWord(b.base[cat], word)
		if changed {
			b.base[cat] = words
		}
	}
	if changed {
		b.invalidate()
	}
	return changed
}

// Base returns a copy of the base keyword set.
func (b *Book) Base() core.KeywordRuleSet {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.base.Clone()
}

// Overrides returns a copy of the month overrides.
func (b *Book) Overrides() core.MonthOverrides {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.overrides.Clone()
}

// Replace swaps both rule sets wholesale, e.g. after a reload.
func (b *Book) Replace(base core.KeywordRuleSet, overrides core.MonthOverrides) {
	if base == nil {
		base = core.KeywordRuleSet{}
	}
	if overrides == nil {
		overrides = core.MonthOverrides{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.base = base.Clone()
	b.overrides = overrides.Clone()
	b.invalidate()
}

// Load replaces the book contents from repo.
func (b *Book) Load(ctx context.Context, repo Repository) error {
	base, err := repo.LoadKeywords(ctx)
	if err != nil {
		return fmt.Errorf("load keywords: %w", err)
	}
	overrides, err := repo.LoadMonthExtras(ctx)
	if err != nil {
		return fmt.Errorf("load month extras: %w", err)
	}
	b.Replace(base, overrides)
	return nil
}

// Save persists both rule sets as full replacements.
func (b *Book) Save(ctx context.Context, repo Repository) error {
	base, overrides := b.Base(), b.Overrides()
	if err := repo.SaveKeywords(ctx, base); err != nil {
		return fmt.Errorf("save keywords: %w", err)
	}
	if err := repo.SaveMonthExtras(ctx, overrides); err != nil {
		return fmt.Errorf("save month extras: %w", err)
	}
	return nil
}

// invalidate must be called with the write lock held.
func (b *Book) invalidate() {
	b.gen++
	b.memo.Purge()
}
