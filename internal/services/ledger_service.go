package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	"kakeibo/internal/ledger"
	applog "kakeibo/internal/log"
	"kakeibo/internal/report"
	"kakeibo/internal/rules"
	"kakeibo/internal/storage"
)

// Publisher announces committed changes. A nil Publisher disables
// notifications.
type Publisher interface {
	PublishLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error
	Close() error
}

// LedgerService ties the entry store and the rule book to a persistence
// backend. Every mutation is committed immediately; a failed commit reloads
// the authoritative state before the error is returned.
type LedgerService struct {
	backend   storage.Backend
	store     *ledger.Store
	book      *rules.Book
	agg       *report.Aggregator
	publisher Publisher
	logger    *applog.Logger
}

func NewLedgerService(backend storage.Backend, book *rules.Book, frozen report.YearTable, publisher Publisher, logger *applog.Logger) *LedgerService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	if book == nil {
		book = rules.NewBook(0, 0)
	}
	return &LedgerService{
		backend:   backend,
		store:     ledger.NewStore(),
		book:      book,
		agg:       report.New(book, frozen, logger.WithComponent(applog.ComponentReport).Slog()),
		publisher: publisher,
		logger:    logger.WithComponent(applog.ComponentLedger),
	}
}

func (s *LedgerService) Book() *rules.Book              { return s.book }
func (s *LedgerService) Aggregator() *report.Aggregator { return s.agg }
func (s *LedgerService) Snapshot() ledger.Snapshot      { return s.store.Snapshot() }

func (s *LedgerService) Entry(id string) (core.Entry, bool) {
	return s.store.Entry(id)
}

func (s *LedgerService) DetailsOf(id string) []core.EntryDetail {
	return s.store.DetailsOf(id)
}

// Load reads entries, details, keywords and month overrides concurrently and
// installs them.
func (s *LedgerService) Load(ctx context.Context) error {
	var (
		entries   []core.Entry
		details   []core.EntryDetail
		keywords  core.KeywordRuleSet
		overrides core.MonthOverrides
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		entries, err = s.backend.LoadEntries(gctx)
		return wrap("load entries", err)
	})
	g.Go(func() (err error) {
		details, err = s.backend.LoadEntryDetails(gctx)
		return wrap("load entry details", err)
	})
	g.Go(func() (err error) {
		keywords, err = s.backend.LoadKeywords(gctx)
		return wrap("load keywords", err)
	})
	g.Go(func() (err error) {
		overrides, err = s.backend.LoadMonthExtras(gctx)
		return wrap("load month extras", err)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	s.store.Adopt(entries, details)
	s.book.Replace(keywords, overrides)
	s.logger.InfoContext(ctx, "Ledger loaded",
		applog.FieldOperation, applog.OpLoad,
		"entries", len(entries),
		"details", len(details))
	return nil
}

// AddEntry inserts e together with its detail rows and commits. It returns
// the entry under its authoritative id.
func (s *LedgerService) AddEntry(ctx context.Context, e core.Entry, details []core.EntryDetail) (core.Entry, error) {
	e.ID = ""
	inserted, err := s.store.Insert(e)
	if err != nil {
		return core.Entry{}, err
	}
	if len(details) > 0 {
		for i := range details {
			details[i].ID = ""
			details[i].ParentID = inserted.ID
		}
		if _, err := s.store.InsertDetailRows(details); err != nil {
			s.store.RemoveEntry(inserted.ID)
			return core.Entry{}, err
		}
	}
	if err := s.commit(ctx, amqp.ReasonEntries, yearOf(inserted.Date)); err != nil {
		return core.Entry{}, err
	}
	saved, _ := s.store.Entry(inserted.ID)
	s.logger.InfoContext(ctx, "Entry added",
		applog.NewFields().WithOperation(applog.OpInsert).WithEntry(saved.ID, saved.Item, saved.Amount).ToSlice()...)
	return saved, nil
}

// AddDetails appends detail rows to an existing entry.
func (s *LedgerService) AddDetails(ctx context.Context, parentID string, details []core.EntryDetail) ([]core.EntryDetail, error) {
	parent, ok := s.store.Entry(parentID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ledger.ErrParentNotFound, parentID)
	}
	for i := range details {
		details[i].ID = ""
		details[i].ParentID = parent.ID
	}
	accepted, err := s.store.InsertDetailRows(details)
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, amqp.ReasonEntries, yearOf(parent.Date)); err != nil {
		return nil, err
	}
	s.warnOverallocation(ctx, parent.ID, len(accepted))
	return s.store.DetailsOf(parent.ID), nil
}

// SetDetails replaces the detail rows of one entry.
func (s *LedgerService) SetDetails(ctx context.Context, parentID string, details []core.EntryDetail) ([]core.EntryDetail, error) {
	parent, ok := s.store.Entry(parentID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ledger.ErrParentNotFound, parentID)
	}
	for i := range details {
		details[i].ID = ""
	}
	accepted, err := s.store.SetDetails(parent.ID, details)
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, amqp.ReasonEntries, yearOf(parent.Date)); err != nil {
		return nil, err
	}
	s.warnOverallocation(ctx, parent.ID, len(accepted))
	return s.store.DetailsOf(parent.ID), nil
}

// UpdateEntry patches one entry and commits.
func (s *LedgerService) UpdateEntry(ctx context.Context, id string, patch ledger.EntryPatch) (core.Entry, error) {
	before, ok := s.store.Entry(id)
	if !ok {
		return core.Entry{}, fmt.Errorf("%w: %s", ledger.ErrNotFound, id)
	}
	updated, err := s.store.UpdateEntry(id, patch)
	if err != nil {
		return core.Entry{}, err
	}
	if err := s.commit(ctx, amqp.ReasonEntries, yearOf(before.Date), yearOf(updated.Date)); err != nil {
		return core.Entry{}, err
	}
	return updated, nil
}

// RemoveEntry deletes the entry and its details and commits.
func (s *LedgerService) RemoveEntry(ctx context.Context, id string) error {
	e, ok := s.store.Entry(id)
	if !ok || !s.store.RemoveEntry(id) {
		return fmt.Errorf("%w: %s", ledger.ErrNotFound, id)
	}
	if err := s.commit(ctx, amqp.ReasonEntries, yearOf(e.Date)); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Entry removed", applog.FieldOperation, applog.OpDelete, applog.FieldEntryID, e.ID)
	return nil
}

// AddKeyword changes the rule book and saves it when something changed.
func (s *LedgerService) AddKeyword(ctx context.Context, cat core.CategoryID, word, yearMonth string, global bool) (bool, error) {
	if !s.book.AddKeyword(cat, word, yearMonth, global) {
		return false, nil
	}
	return true, s.saveRules(ctx, yearMonth, global, cat, word)
}

// RemoveKeyword is the inverse of AddKeyword.
func (s *LedgerService) RemoveKeyword(ctx context.Context, cat core.CategoryID, word, yearMonth string, monthOnly bool) (bool, error) {
	if !s.book.RemoveKeyword(cat, word, yearMonth, monthOnly) {
		return false, nil
	}
	return true, s.saveRules(ctx, yearMonth, !monthOnly, cat, word)
}

func (s *LedgerService) saveRules(ctx context.Context, yearMonth string, global bool, cat core.CategoryID, word string) error {
	if err := s.book.Save(ctx, s.backend); err != nil {
		s.logger.ErrorContext(ctx, "Rule save failed, reloading", applog.FieldError, err)
		if rerr := s.book.Load(ctx, s.backend); rerr != nil {
			return errors.Join(err, fmt.Errorf("reload rules: %w", rerr))
		}
		return err
	}
	s.logger.InfoContext(ctx, "Rules saved",
		applog.NewFields().WithKeyword(string(cat), word, yearMonth).ToSlice()...)

	// A global change can reclassify any year; a month override only its own.
	var years []int
	if global {
		years = s.years()
	} else if y := yearOf(yearMonth + "-01"); y != 0 {
		years = []int{y}
	}
	s.publish(ctx, amqp.ReasonRules, years...)
	return nil
}

// commit persists the store. On failure the authoritative state is reloaded
// so the in-memory view never drifts from persistence.
func (s *LedgerService) commit(ctx context.Context, reason string, years ...int) error {
	if _, err := s.store.Commit(ctx, s.backend); err != nil {
		s.logger.ErrorContext(ctx, "Commit failed, reloading",
			applog.FieldOperation, applog.OpCommit,
			applog.FieldError, err)
		if rerr := s.store.Reload(ctx, s.backend); rerr != nil {
			return errors.Join(err, fmt.Errorf("reload: %w", rerr))
		}
		return err
	}
	s.publish(ctx, reason, years...)
	return nil
}

func (s *LedgerService) publish(ctx context.Context, reason string, years ...int) {
	if s.publisher == nil {
		return
	}
	years = uniqueYears(years)
	if len(years) == 0 {
		return
	}
	// Persistence already succeeded; a lost notification only delays export.
	if err := s.publisher.PublishLedgerChanged(ctx, amqp.NewLedgerChangedMessage(reason, years...)); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ledger changed message", applog.FieldError, err)
	}
}

func (s *LedgerService) warnOverallocation(ctx context.Context, parentID string, accepted int) {
	e, ok := s.store.Entry(parentID)
	if !ok {
		return
	}
	a := core.Allocate(e, s.store.DetailsOf(parentID))
	if a.Overallocated {
		s.logger.WarnContext(ctx, "Details exceed entry amount",
			applog.FieldEntryID, e.ID,
			"allocated", a.Allocated,
			applog.FieldAmount, e.Amount,
			"accepted", accepted)
	}
}

func (s *LedgerService) years() []int {
	snap := s.store.Snapshot()
	years := make([]int, 0, len(snap.Entries))
	for _, e := range snap.Entries {
		years = append(years, yearOf(e.Date))
	}
	return uniqueYears(years)
}

// Close closes the publisher and the backend.
func (s *LedgerService) Close() error {
	var errs []error
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if s.backend != nil {
		if err := s.backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}
	return nil
}

func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return y
}

func uniqueYears(years []int) []int {
	seen := make(map[int]struct{}, len(years))
	out := years[:0:0]
	for _, y := range years {
		if y == 0 {
			continue
		}
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		out = append(out, y)
	}
	sort.Ints(out)
	return out
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
