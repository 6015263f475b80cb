package index

import "github.com/starford/marketeer/internal/models"

// ItemIndex is the query surface of the index. Consumers depend on it
// rather than on *DB so handlers can be tested with fakes.
type ItemIndex interface {
	UpsertFile(f FileRow, keys []string) error
	DeleteFile(kind models.Kind, name string) error
	AllChecksums(kind models.Kind) (map[string]string, error)
	Search(query string, limit int) ([]SearchResult, error)
	FilesContaining(key string) ([]FileRef, error)
	Close() error
}

var _ ItemIndex = (*DB)(nil)
