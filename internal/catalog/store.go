package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/starford/marketeer/internal/apperr"
	"github.com/starford/marketeer/internal/models"
	"github.com/starford/marketeer/internal/storage"
)

// Store reads and writes documents inside one folder.
type Store struct {
	files storage.Provider
}

// NewStore creates a store over a folder provider.
func NewStore(files storage.Provider) *Store {
	return &Store{files: files}
}

// OpenFile returns a store for the folder containing path together with
// the file name inside it.
func OpenFile(path string) (*Store, string, error) {
	fs, err := storage.NewFS(filepath.Dir(path))
	if err != nil {
		return nil, "", apperr.IO(path, err)
	}
	return NewStore(fs), filepath.Base(path), nil
}

// Files returns the underlying provider.
func (s *Store) Files() storage.Provider { return s.files }

// Path returns the absolute path of name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.files.Root(), name)
}

// List returns the JSON document names in the folder, sorted.
func (s *Store) List() ([]string, error) {
	metas, err := s.files.List(".json")
	if err != nil {
		return nil, apperr.IO(s.files.Root(), err)
	}
	names := make([]string, len(metas))
	for i, m := range metas {
		names[i] = m.Name
	}
	return names, nil
}

// Exists reports whether the document name is present.
func (s *Store) Exists(name string) bool { return s.files.Exists(name) }

// Load reads and parses the document name as kind.
func (s *Store) Load(kind models.Kind, name string) (models.Document, error) {
	data, err := s.files.Read(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.IO(s.Path(name), fmt.Errorf("%w: %w", apperr.ErrNotFound, err))
		}
		return nil, apperr.IO(s.Path(name), err)
	}
	doc, err := Decode(kind, data)
	if err != nil {
		return nil, apperr.Parse(s.Path(name), err)
	}
	return doc, nil
}

// LoadCatalog reads a catalog document.
func (s *Store) LoadCatalog(name string) (*models.CatalogDocument, error) {
	doc, err := s.Load(models.KindCatalog, name)
	if err != nil {
		return nil, err
	}
	return doc.(*models.CatalogDocument), nil
}

// LoadTrader reads a trader document.
func (s *Store) LoadTrader(name string) (*models.TraderDocument, error) {
	doc, err := s.Load(models.KindTrader, name)
	if err != nil {
		return nil, err
	}
	return doc.(*models.TraderDocument), nil
}

// Save re-serializes the whole document over name.
func (s *Store) Save(name string, doc models.Document) error {
	data, err := Encode(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := s.files.Write(name, data); err != nil {
		return apperr.IO(s.Path(name), err)
	}
	return nil
}

// Folder is a store together with the kind of document it holds.
type Folder struct {
	Kind  models.Kind
	Store *Store
}
