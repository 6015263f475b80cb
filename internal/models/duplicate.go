package models

// Document is the capability shared by catalog and trader documents: an
// ordered key sequence that the deduplicator inspects and trims.
type Document interface {
	Kind() Kind
	Keys() []string
	RemoveAt(i int) error
	Normalize()
}

var (
	_ Document = (*CatalogDocument)(nil)
	_ Document = (*TraderDocument)(nil)
)

// DuplicateRecord is a repeated key found by a scan. Index is the position
// of the repeat itself, never of the first occurrence.
type DuplicateRecord struct {
	Index int    `json:"index"`
	Key   string `json:"key"`
	Path  string `json:"path"`
	Kind  Kind   `json:"kind"`
}
