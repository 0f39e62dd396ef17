// Package inventory tracks how many of each item the user holds.
//
// It is a small SQLite table keyed by item name. The catalog loader seeds it
// with every name the recipes mention; the planner reads it to work out what
// still has to be crafted or gathered.
package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	_ "modernc.org/sqlite"

	"github.com/HendryAvila/craftgraph/internal/recipe"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// ErrInvalidName is returned for empty or purely numeric item names.
var ErrInvalidName = errors.New("inventory: invalid item name")

// ─── Types ───────────────────────────────────────────────────────────────────

// Item is one tracked item and the quantity held.
type Item struct {
	Name      string `json:"name"`
	Amount    int64  `json:"amount"`
	UpdatedAt string `json:"updated_at"`
}

// ListOptions filters List results.
type ListOptions struct {
	Filter      string // case-insensitive substring
	IncludeZero bool
	Limit       int // 0 means no limit
}

// Stats summarizes the inventory.
type Stats struct {
	Items      int   `json:"items"`
	Held       int   `json:"held"`
	TotalUnits int64 `json:"total_units"`
}

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds inventory store configuration.
type Config struct {
	Path string
}

// DefaultConfig returns the default configuration for the inventory store.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{Path: filepath.Join(home, ".craftgraph", "data", "inventory.db")}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the SQLite-backed inventory.
type Store struct {
	db  *sql.DB
	cfg Config
}

// New opens (creating if needed) the database at cfg.Path and runs
// migrations.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
		return nil, fmt.Errorf("inventory: create data dir: %w", err)
	}

	db, err := openDB("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("inventory: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("inventory: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("inventory: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS items (
			name       TEXT    PRIMARY KEY,
			amount     INTEGER NOT NULL DEFAULT 0 CHECK (amount >= 0),
			updated_at TEXT    NOT NULL DEFAULT (datetime('now'))
		);
		CREATE INDEX IF NOT EXISTS idx_items_amount ON items(amount);
	`)
	return err
}

// ─── Seeding ─────────────────────────────────────────────────────────────────

// EnsureNames makes sure every valid name has a row, inserting missing ones
// with amount 0. It also removes malformed rows and folds a plain name into
// its symbol-prefixed variant ("Fine Aquamarine Gemstone" into
// "☂ Fine Aquamarine Gemstone") when both exist.
func (s *Store) EnsureNames(ctx context.Context, names []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("inventory: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insert, err := tx.PrepareContext(ctx, `INSERT INTO items (name) VALUES (?) ON CONFLICT(name) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("inventory: prepare insert: %w", err)
	}
	defer func() { _ = insert.Close() }()

	for _, n := range names {
		name := strings.TrimSpace(n)
		if !recipe.ValidName(name) {
			continue
		}
		if _, err := insert.ExecContext(ctx, name); err != nil {
			return fmt.Errorf("inventory: insert %q: %w", name, err)
		}
	}

	if err := pruneMalformed(ctx, tx); err != nil {
		return err
	}
	if err := foldPrefixed(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("inventory: commit: %w", err)
	}
	return nil
}

func pruneMalformed(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, `SELECT name FROM items`)
	if err != nil {
		return fmt.Errorf("inventory: scan names: %w", err)
	}
	var bad []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return fmt.Errorf("inventory: scan names: %w", err)
		}
		if !recipe.ValidName(strings.TrimSpace(name)) {
			bad = append(bad, name)
		}
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("inventory: scan names: %w", err)
	}
	for _, name := range bad {
		if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE name = ?`, name); err != nil {
			return fmt.Errorf("inventory: delete %q: %w", name, err)
		}
	}
	return nil
}

// foldPrefixed moves the quantity of a plain name onto its prefixed variant
// and deletes the plain row.
func foldPrefixed(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, `SELECT name FROM items`)
	if err != nil {
		return fmt.Errorf("inventory: scan names: %w", err)
	}
	all := make(map[string]struct{})
	var prefixed []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return fmt.Errorf("inventory: scan names: %w", err)
		}
		all[name] = struct{}{}
		if _, ok := StripSymbolPrefix(name); ok {
			prefixed = append(prefixed, name)
		}
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("inventory: scan names: %w", err)
	}

	for _, name := range prefixed {
		plain, _ := StripSymbolPrefix(name)
		if _, ok := all[plain]; !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE items
			SET amount = amount + (SELECT amount FROM items WHERE name = ?),
			    updated_at = datetime('now')
			WHERE name = ?`, plain, name); err != nil {
			return fmt.Errorf("inventory: fold %q: %w", plain, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE name = ?`, plain); err != nil {
			return fmt.Errorf("inventory: fold %q: %w", plain, err)
		}
		delete(all, plain)
	}
	return nil
}

// StripSymbolPrefix returns name without a leading non-ASCII glyph and space
// ("☂ Fine Aquamarine Gemstone" gives "Fine Aquamarine Gemstone").
func StripSymbolPrefix(name string) (string, bool) {
	r, size := utf8.DecodeRuneInString(name)
	if r < utf8.RuneSelf || r == utf8.RuneError {
		return name, false
	}
	rest := name[size:]
	if len(rest) < 2 || rest[0] != ' ' {
		return name, false
	}
	return rest[1:], true
}

// ─── Quantities ──────────────────────────────────────────────────────────────

// Amount returns the held quantity of name, 0 when it is not tracked.
func (s *Store) Amount(ctx context.Context, name string) (int64, error) {
	var amount int64
	err := s.db.QueryRowContext(ctx, `SELECT amount FROM items WHERE name = ?`, strings.TrimSpace(name)).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("inventory: amount %q: %w", name, err)
	}
	return amount, nil
}

// SetAmount records that amount units of name are held.
func (s *Store) SetAmount(ctx context.Context, name string, amount int64) error {
	name = strings.TrimSpace(name)
	if !recipe.ValidName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if amount < 0 {
		return fmt.Errorf("inventory: negative amount %d for %q", amount, name)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (name, amount) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET amount = excluded.amount, updated_at = datetime('now')`,
		name, amount)
	if err != nil {
		return fmt.Errorf("inventory: set %q: %w", name, err)
	}
	return nil
}

// Adjust adds delta to the held quantity of name and returns the new value.
// The result never drops below 0.
func (s *Store) Adjust(ctx context.Context, name string, delta int64) (int64, error) {
	name = strings.TrimSpace(name)
	if !recipe.ValidName(name) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("inventory: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current int64
	err = tx.QueryRowContext(ctx, `SELECT amount FROM items WHERE name = ?`, name).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("inventory: adjust %q: %w", name, err)
	}

	next := clampAdd(current, delta)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO items (name, amount) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET amount = excluded.amount, updated_at = datetime('now')`,
		name, next); err != nil {
		return 0, fmt.Errorf("inventory: adjust %q: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("inventory: commit: %w", err)
	}
	return next, nil
}

func clampAdd(current, delta int64) int64 {
	if delta > 0 {
		return recipe.AddSat(current, delta)
	}
	if delta == math.MinInt64 || current+delta < 0 {
		return 0
	}
	return current + delta
}

// ─── Queries ─────────────────────────────────────────────────────────────────

// List returns tracked items ordered by name. Zero quantities are hidden
// unless opts.IncludeZero is set.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Item, error) {
	query := `SELECT name, amount, updated_at FROM items WHERE 1 = 1`
	var args []any
	if !opts.IncludeZero {
		query += ` AND amount > 0`
	}
	if f := strings.TrimSpace(opts.Filter); f != "" {
		query += ` AND lower(name) LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(strings.ToLower(f))+"%")
	}
	query += ` ORDER BY name COLLATE NOCASE, name`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("inventory: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.Name, &it.Amount, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("inventory: list: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Holdings returns every item with a positive quantity.
func (s *Store) Holdings(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, amount FROM items WHERE amount > 0`)
	if err != nil {
		return nil, fmt.Errorf("inventory: holdings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	held := make(map[string]int64)
	for rows.Next() {
		var name string
		var amount int64
		if err := rows.Scan(&name, &amount); err != nil {
			return nil, fmt.Errorf("inventory: holdings: %w", err)
		}
		held[name] = amount
	}
	return held, rows.Err()
}

// Stats returns aggregate inventory statistics.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN amount > 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(amount), 0)
		FROM items`).Scan(&stats.Items, &stats.Held, &stats.TotalUnits)
	if err != nil {
		return nil, fmt.Errorf("inventory: stats: %w", err)
	}
	return stats, nil
}
