//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/marketeer/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
			kind UNINDEXED,
			name UNINDEXED,
			position UNINDEXED,
			key,
			tokenize = 'trigram'
		);
	`)
	return err
}

func ftsInsert(tx *sql.Tx, kind models.Kind, name string, position int, key string) error {
	_, err := tx.Exec(`INSERT INTO entries_fts (kind, name, position, key) VALUES (?, ?, ?, ?)`,
		string(kind), name, position, key)
	if err != nil {
		return fmt.Errorf("index: insert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, kind models.Kind, name string) error {
	if _, err := tx.Exec(`DELETE FROM entries_fts WHERE kind = ? AND name = ?`, string(kind), name); err != nil {
		return fmt.Errorf("index: delete fts: %w", err)
	}
	return nil
}

// Search matches keys through the trigram FTS5 table. Queries shorter
// than a trigram fall back to LIKE.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 50
	}
	var (
		rows *sql.Rows
		err  error
	)
	if len([]rune(query)) < 3 {
		rows, err = db.conn.Query(`
			SELECT e.kind, e.name, f.display_name, e.position, e.key
			FROM entries e
			JOIN files f ON f.kind = e.kind AND f.name = e.name
			WHERE e.key LIKE ?
			ORDER BY e.key, e.kind, e.name, e.position
			LIMIT ?
		`, "%"+query+"%", limit)
	} else {
		rows, err = db.conn.Query(`
			SELECT t.kind, t.name, f.display_name, t.position, t.key
			FROM entries_fts t
			JOIN files f ON f.kind = t.kind AND f.name = t.name
			WHERE entries_fts MATCH ?
			ORDER BY t.key, t.kind, t.name, t.position
			LIMIT ?
		`, `"`+strings.ReplaceAll(query, `"`, `""`)+`"`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}
