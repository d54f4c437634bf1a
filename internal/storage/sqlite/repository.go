// Package sqlite is the SQLite persistence backend. Schema changes live in
// embedded migrations applied on open.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"kakeibo/internal/core"
	"kakeibo/internal/storage"
)

type Repository struct {
	db *sql.DB
}

var _ storage.Backend = (*Repository)(nil)

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serialises writers; SQLite allows only one anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, err
	}

	slog.Info("SQLite repository ready", "component", "storage", "path", dbPath)
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) LoadEntries(ctx context.Context) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, date, item, amount FROM entries ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		var e core.Entry
		if err := rows.Scan(&e.ID, &e.Date, &e.Item, &e.Amount); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) SaveEntries(ctx context.Context, entries []core.Entry) ([]core.Entry, error) {
	saved := storage.AssignEntryIDs(entries, uuid.NewString)
	err := r.replace(ctx, "entries", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO entries (id, position, date, item, amount) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, e := range saved {
			if _, err := stmt.ExecContext(ctx, e.ID, i, e.Date, e.Item, e.Amount); err != nil {
				return fmt.Errorf("insert entry %s: %w", e.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "Entries saved", "component", "storage", "count", len(saved))
	return saved, nil
}

func (r *Repository) LoadEntryDetails(ctx context.Context) ([]core.EntryDetail, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, parent_id, item, amount FROM entry_details ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query entry details: %w", err)
	}
	defer rows.Close()

	var out []core.EntryDetail
	for rows.Next() {
		var d core.EntryDetail
		if err := rows.Scan(&d.ID, &d.ParentID, &d.Item, &d.Amount); err != nil {
			return nil, fmt.Errorf("scan entry detail: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Repository) SaveEntryDetails(ctx context.Context, details []core.EntryDetail) ([]core.EntryDetail, error) {
	saved := storage.AssignDetailIDs(details, uuid.NewString)
	err := r.replace(ctx, "entry_details", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO entry_details (id, position, parent_id, item, amount) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, d := range saved {
			if _, err := stmt.ExecContext(ctx, d.ID, i, d.ParentID, d.Item, d.Amount); err != nil {
				return fmt.Errorf("insert entry detail %s: %w", d.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (r *Repository) LoadKeywords(ctx context.Context) (core.KeywordRuleSet, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT category, keyword FROM keywords ORDER BY category, position`)
	if err != nil {
		return nil, fmt.Errorf("query keywords: %w", err)
	}
	defer rows.Close()

	out := core.KeywordRuleSet{}
	for rows.Next() {
		var cat, word string
		if err := rows.Scan(&cat, &word); err != nil {
			return nil, fmt.Errorf("scan keyword: %w", err)
		}
		out[core.CategoryID(cat)] = append(out[core.CategoryID(cat)], word)
	}
	return out, rows.Err()
}

func (r *Repository) SaveKeywords(ctx context.Context, base core.KeywordRuleSet) error {
	return r.replace(ctx, "keywords", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO keywords (category, keyword, position) VALUES (?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, cat := range sortedCategories(base) {
			for i, word := range base[cat] {
				if _, err := stmt.ExecContext(ctx, string(cat), word, i); err != nil {
					return fmt.Errorf("insert keyword %q: %w", word, err)
				}
			}
		}
		return nil
	})
}

func (r *Repository) LoadMonthExtras(ctx context.Context) (core.MonthOverrides, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT year_month, category, keyword FROM month_extras ORDER BY year_month, category, position`)
	if err != nil {
		return nil, fmt.Errorf("query month extras: %w", err)
	}
	defer rows.Close()

	out := core.MonthOverrides{}
	for rows.Next() {
		var ym, cat, word string
		if err := rows.Scan(&ym, &cat, &word); err != nil {
			return nil, fmt.Errorf("scan month extra: %w", err)
		}
		m, ok := out[ym]
		if !ok {
			m = map[core.CategoryID][]string{}
			out[ym] = m
		}
		m[core.CategoryID(cat)] = append(m[core.CategoryID(cat)], word)
	}
	return out, rows.Err()
}

func (r *Repository) SaveMonthExtras(ctx context.Context, overrides core.MonthOverrides) error {
	return r.replace(ctx, "month_extras", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO month_extras (year_month, category, keyword, position) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for ym, cats := range overrides {
			for _, cat := range sortedCategories(cats) {
				for i, word := range cats[cat] {
					if _, err := stmt.ExecContext(ctx, ym, string(cat), word, i); err != nil {
						return fmt.Errorf("insert month extra %s/%q: %w", ym, word, err)
					}
				}
			}
		}
		return nil
	})
}

// replace clears table and refills it through fill inside one transaction.
func (r *Repository) replace(ctx context.Context, table string, fill func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s transaction: %w", table, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	if err := fill(tx); err != nil {
		return fmt.Errorf("save %s: %w", table, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", table, err)
	}
	return nil
}

func sortedCategories(m map[core.CategoryID][]string) []core.CategoryID {
	cats := make([]core.CategoryID, 0, len(m))
	for c := range m {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}
