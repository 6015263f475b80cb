package index

import (
	"database/sql"

	"github.com/starford/marketeer/internal/models"
)

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var kind string
		if err := rows.Scan(&kind, &r.Name, &r.DisplayName, &r.Position, &r.Key); err != nil {
			return nil, err
		}
		r.Kind = models.Kind(kind)
		out = append(out, r)
	}
	return out, rows.Err()
}
