//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"

	"github.com/starford/marketeer/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE on entries.key.
	return nil
}

func ftsInsert(_ *sql.Tx, _ models.Kind, _ string, _ int, _ string) error { return nil }

func ftsDelete(_ *sql.Tx, _ models.Kind, _ string) error { return nil }

// Search performs a case-insensitive substring match on keys.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 50
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT e.kind, e.name, f.display_name, e.position, e.key
		FROM entries e
		JOIN files f ON f.kind = e.kind AND f.name = e.name
		WHERE e.key LIKE ?
		ORDER BY e.key, e.kind, e.name, e.position
		LIMIT ?
	`, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}
