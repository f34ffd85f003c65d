// Package externs maintains a persistent registry of known external
// function arities, backed by SQLite. It exists purely to let the
// normalizer (pass 6) resolve the arity of an "external" declared
// without an explicit type signature — it is a signature cache, not an
// incremental-recompilation mechanism, and it has no bearing on
// whether any given compile must be redone from scratch.
package externs

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// seed lists the arities of the libc functions this language's test
// programs and examples actually call.
var seed = map[string]int{
	"puts":    1,
	"putchar": 1,
	"abs":     1,
	"exit":    1,
}

// Registry resolves an external symbol's arity by name.
type Registry struct {
	db *sql.DB
}

// Open opens (creating if necessary) the arity registry at path, which
// may be a file path or ":memory:". The schema is created and
// pre-seeded with well-known libc externs on first use.
func Open(path string) (*Registry, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("externs: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("externs: ping %s: %w", path, err)
	}

	r := &Registry{db: db}
	if err := r.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Registry) migrate() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS externs (
			name  TEXT PRIMARY KEY,
			arity INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("externs: migrate: %w", err)
	}

	for name, arity := range seed {
		if _, err := r.db.Exec(
			`INSERT OR IGNORE INTO externs(name, arity) VALUES (?, ?)`, name, arity,
		); err != nil {
			return fmt.Errorf("externs: seed %s: %w", name, err)
		}
	}
	return nil
}

// Lookup returns the known arity for name, or ok=false if it isn't
// registered.
func (r *Registry) Lookup(name string) (arity int, ok bool, err error) {
	row := r.db.QueryRow(`SELECT arity FROM externs WHERE name = ?`, name)
	switch err := row.Scan(&arity); err {
	case nil:
		return arity, true, nil
	case sql.ErrNoRows:
		return 0, false, nil
	default:
		return 0, false, fmt.Errorf("externs: lookup %s: %w", name, err)
	}
}

// Add registers (or overwrites) the arity for an external symbol.
func (r *Registry) Add(name string, arity int) error {
	_, err := r.db.Exec(
		`INSERT INTO externs(name, arity) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET arity = excluded.arity`, name, arity,
	)
	if err != nil {
		return fmt.Errorf("externs: add %s: %w", name, err)
	}
	return nil
}

// List returns every registered name/arity pair.
func (r *Registry) List() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT name, arity FROM externs ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("externs: list: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var name string
		var arity int
		if err := rows.Scan(&name, &arity); err != nil {
			return nil, fmt.Errorf("externs: list: %w", err)
		}
		out[name] = arity
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (r *Registry) Close() error {
	return r.db.Close()
}
