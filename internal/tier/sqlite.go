// Package tier resolves named difficulty tiers to the concrete ids the query
// compiler filters on. Tier names and their ordering live in the relational
// store; the compiler only ever sees resolved id lists.
package tier

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Resolver turns human-readable tier names into index-filterable id sets.
type Resolver interface {
	// ResolveRange returns the ids of every tier whose sort order lies
	// between the named bounds, inclusive. Either bound may be empty (open).
	// Unknown names resolve to nothing rather than erroring.
	ResolveRange(ctx context.Context, low, high string) ([]int, error)
	// ResolveNamed returns the ids of the named tiers, skipping unknowns.
	ResolveNamed(ctx context.Context, names []string) ([]int, error)
}

// Tier is one difficulty classification row.
type Tier struct {
	ID        int
	Name      string
	Type      string
	SortOrder int
}

// SQLiteResolver implements Resolver against the difficulties table.
type SQLiteResolver struct {
	db *sql.DB
}

// Open opens or creates the tier database at dbPath.
func Open(dbPath string) (*SQLiteResolver, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open tier database: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize tier schema: %w", err)
	}
	return &SQLiteResolver{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS difficulties (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE COLLATE NOCASE,
		type TEXT NOT NULL DEFAULT '',
		sort_order INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_difficulties_sort ON difficulties(sort_order);
	`
	_, err := db.Exec(schema)
	return err
}

// Seed replaces the difficulty table contents. Used on startup and by tests.
func (r *SQLiteResolver) Seed(ctx context.Context, tiers []Tier) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM difficulties`); err != nil {
		return err
	}
	for _, t := range tiers {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO difficulties (id, name, type, sort_order) VALUES (?, ?, ?, ?)`,
			t.ID, t.Name, t.Type, t.SortOrder,
		)
		if err != nil {
			return fmt.Errorf("failed to seed tier %q: %w", t.Name, err)
		}
	}
	return tx.Commit()
}

// ResolveRange returns the ids of tiers between the named bounds.
func (r *SQLiteResolver) ResolveRange(ctx context.Context, low, high string) ([]int, error) {
	if low == "" && high == "" {
		return nil, nil
	}

	lowOrder, lowOK, err := r.sortOrder(ctx, low)
	if err != nil {
		return nil, err
	}
	highOrder, highOK, err := r.sortOrder(ctx, high)
	if err != nil {
		return nil, err
	}
	// A named but unknown bound matches nothing; a silently empty range here
	// would widen the filter instead of narrowing it.
	if (low != "" && !lowOK) || (high != "" && !highOK) {
		return nil, nil
	}

	q := `SELECT id FROM difficulties WHERE 1=1`
	var args []interface{}
	if low != "" {
		q += ` AND sort_order >= ?`
		args = append(args, lowOrder)
	}
	if high != "" {
		q += ` AND sort_order <= ?`
		args = append(args, highOrder)
	}
	q += ` ORDER BY sort_order`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tier range: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// ResolveNamed returns the ids of the named tiers, skipping unknown names.
func (r *SQLiteResolver) ResolveNamed(ctx context.Context, names []string) ([]int, error) {
	if len(names) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(names)), ",")
	args := make([]interface{}, len(names))
	for i, n := range names {
		args[i] = n
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM difficulties WHERE name IN (`+placeholders+`) ORDER BY sort_order`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve named tiers: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (r *SQLiteResolver) sortOrder(ctx context.Context, name string) (int, bool, error) {
	if name == "" {
		return 0, false, nil
	}
	var order int
	err := r.db.QueryRowContext(ctx,
		`SELECT sort_order FROM difficulties WHERE name = ?`, name,
	).Scan(&order)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return order, true, nil
}

func scanIDs(rows *sql.Rows) ([]int, error) {
	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the underlying database.
func (r *SQLiteResolver) Close() error {
	return r.db.Close()
}
