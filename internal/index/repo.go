package index

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/marketeer/internal/models"
)

// FileRow represents a row in the files table.
type FileRow struct {
	Kind        models.Kind
	Name        string
	DisplayName string
	Checksum    string
	UpdatedAt   time.Time
}

// FileRef names one indexed document.
type FileRef struct {
	Kind models.Kind `json:"kind"`
	Name string      `json:"name"`
}

// SearchResult is one matching key.
type SearchResult struct {
	Kind        models.Kind `json:"kind"`
	Name        string      `json:"name"`
	DisplayName string      `json:"display_name"`
	Position    int         `json:"position"`
	Key         string      `json:"key"`
}

// UpsertFile replaces a document row and all of its keys within a
// transaction. Blank keys are skipped but keep their position.
func (db *DB) UpsertFile(f FileRow, keys []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO files (kind, name, display_name, checksum, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(kind, name) DO UPDATE SET
			display_name = excluded.display_name,
			checksum     = excluded.checksum,
			updated_at   = excluded.updated_at
	`, string(f.Kind), f.Name, f.DisplayName, f.Checksum, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert file: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM entries WHERE kind = ? AND name = ?`, string(f.Kind), f.Name); err != nil {
		return fmt.Errorf("index: clear entries: %w", err)
	}
	if err := ftsDelete(tx, f.Kind, f.Name); err != nil {
		return err
	}
	if len(keys) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO entries (kind, name, position, key) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare entry insert: %w", err)
		}
		defer stmt.Close()
		for i, k := range keys {
			if strings.TrimSpace(k) == "" {
				continue
			}
			if _, err := stmt.Exec(string(f.Kind), f.Name, i, k); err != nil {
				return fmt.Errorf("index: insert entry: %w", err)
			}
			if err := ftsInsert(tx, f.Kind, f.Name, i, k); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// DeleteFile removes a document and its keys.
func (db *DB) DeleteFile(kind models.Kind, name string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsDelete(tx, kind, name); err != nil {
		return err
	}
	_, _ = tx.Exec(`DELETE FROM entries WHERE kind = ? AND name = ?`, string(kind), name)
	_, _ = tx.Exec(`DELETE FROM files WHERE kind = ? AND name = ?`, string(kind), name)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a document, or empty string if not found.
func (db *DB) GetChecksum(kind models.Kind, name string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM files WHERE kind = ? AND name = ?`, string(kind), name).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums returns name -> checksum for every indexed document of kind.
func (db *DB) AllChecksums(kind models.Kind) (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT name, checksum FROM files WHERE kind = ?`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var n, cs string
		if err := rows.Scan(&n, &cs); err != nil {
			return nil, err
		}
		out[n] = cs
	}
	return out, rows.Err()
}

// FilesContaining returns every document holding exactly key, ordered by
// kind then name.
func (db *DB) FilesContaining(key string) ([]FileRef, error) {
	rows, err := db.conn.Query(`
		SELECT DISTINCT kind, name FROM entries
		WHERE key = ?
		ORDER BY kind, name
	`, key)
	if err != nil {
		return nil, fmt.Errorf("index: files containing: %w", err)
	}
	defer rows.Close()

	var out []FileRef
	for rows.Next() {
		var r FileRef
		var kind string
		if err := rows.Scan(&kind, &r.Name); err != nil {
			return nil, err
		}
		r.Kind = models.Kind(kind)
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountEntries returns the number of indexed keys.
func (db *DB) CountEntries() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}
