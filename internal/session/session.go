// Package session holds the editing state of one user: the project
// folders and the catalog and trader documents currently open. All
// mutations go through one mutex, so front ends sharing a session still
// see edits in a single order.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/starford/marketeer/internal/apperr"
	"github.com/starford/marketeer/internal/assets"
	"github.com/starford/marketeer/internal/catalog"
	"github.com/starford/marketeer/internal/dedup"
	"github.com/starford/marketeer/internal/models"
	"github.com/starford/marketeer/internal/parser"
	"github.com/starford/marketeer/internal/storage"
)

var (
	ErrNoMarketFolder  = fmt.Errorf("%w: market folder not set", apperr.ErrNotFound)
	ErrNoTradersFolder = fmt.Errorf("%w: traders folder not set", apperr.ErrNotFound)
	ErrNoTypesFolder   = fmt.Errorf("%w: types folder not set", apperr.ErrNotFound)
	ErrNoFolders       = fmt.Errorf("%w: market and traders folders not set", apperr.ErrNotFound)
	ErrNoCatalogOpen   = fmt.Errorf("%w: no catalog open", apperr.ErrNotFound)
	ErrNoTraderOpen    = fmt.Errorf("%w: no trader open", apperr.ErrNotFound)
)

// Session is the application state shared by the CLI, the HTTP API and
// the MCP server.
type Session struct {
	mu       sync.Mutex
	logger   *slog.Logger
	template *assets.Template

	project Project
	market  *catalog.Store
	traders *catalog.Store
	types   storage.Provider

	catalogName string
	catalog     *models.CatalogDocument
	traderName  string
	trader      *models.TraderDocument
}

// New creates a session with no project.
func New(logger *slog.Logger, template *assets.Template) *Session {
	return &Session{logger: logger, template: template}
}

// SetProject switches to the folders of p. Folders that do not exist are
// dropped with a warning. Open documents are closed.
func (s *Session) SetProject(p Project) Project {
	p = p.resolve(s.logger)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.project = p
	s.market = openStore(p.MarketFolder, s.logger)
	s.traders = openStore(p.TradersFolder, s.logger)
	s.types = nil
	if fs := openFolder(p.TypesFolder, s.logger); fs != nil {
		s.types = fs
	}
	s.catalogName, s.catalog = "", nil
	s.traderName, s.trader = "", nil
	return p
}

func openFolder(dir string, logger *slog.Logger) *storage.FS {
	if dir == "" {
		return nil
	}
	fs, err := storage.NewFS(dir)
	if err != nil {
		logger.Warn("project: open folder failed", slog.String("path", dir), slog.String("error", err.Error()))
		return nil
	}
	return fs
}

func openStore(dir string, logger *slog.Logger) *catalog.Store {
	fs := openFolder(dir, logger)
	if fs == nil {
		return nil
	}
	return catalog.NewStore(fs)
}

// Project returns the resolved project folders.
func (s *Session) Project() Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project
}

// Folders returns the market and traders folders that are set.
func (s *Session) Folders() []catalog.Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []catalog.Folder
	if s.market != nil {
		out = append(out, catalog.Folder{Kind: models.KindCatalog, Store: s.market})
	}
	if s.traders != nil {
		out = append(out, catalog.Folder{Kind: models.KindTrader, Store: s.traders})
	}
	return out
}

// FileName appends the .json extension when name lacks it.
func FileName(name string) string {
	name = strings.TrimSpace(name)
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	return name
}

// ListCatalogFiles returns the market file names, sorted.
func (s *Session) ListCatalogFiles() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.market == nil {
		return nil, ErrNoMarketFolder
	}
	return s.market.List()
}

// ListTraderFiles returns the trader file names, sorted.
func (s *Session) ListTraderFiles() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.traders == nil {
		return nil, ErrNoTradersFolder
	}
	return s.traders.List()
}

// AvailableCategories returns the market file names without extension.
// These are the values a trader may list under Categories.
func (s *Session) AvailableCategories() ([]string, error) {
	names, err := s.ListCatalogFiles()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = strings.TrimSuffix(n, ".json")
	}
	return out, nil
}

// OpenCatalog loads a market file and makes it the current catalog. The
// returned document is a copy.
func (s *Session) OpenCatalog(name string) (*models.CatalogDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.market == nil {
		return nil, ErrNoMarketFolder
	}
	name = FileName(name)
	doc, err := s.market.LoadCatalog(name)
	if err != nil {
		return nil, err
	}
	s.catalogName, s.catalog = name, doc
	s.logger.Debug("session: catalog opened", slog.String("file", name), slog.Int("items", len(doc.Items)))
	return doc.Clone(), nil
}

// Catalog returns a copy of the current catalog and its file name.
func (s *Session) Catalog() (string, *models.CatalogDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.catalog == nil {
		return "", nil, ErrNoCatalogOpen
	}
	return s.catalogName, s.catalog.Clone(), nil
}

// UpdateCatalog runs fn on the current catalog. Changes stay in memory
// until SaveCatalog.
func (s *Session) UpdateCatalog(fn func(doc *models.CatalogDocument) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.catalog == nil {
		return ErrNoCatalogOpen
	}
	return fn(s.catalog)
}

// BulkEdit applies edit to the selected items of the current catalog.
func (s *Session) BulkEdit(edit catalog.BulkEdit, indices []int) (catalog.BulkResult, error) {
	var res catalog.BulkResult
	err := s.UpdateCatalog(func(doc *models.CatalogDocument) error {
		var err error
		res, err = edit.Apply(doc.Items, indices)
		return err
	})
	for _, e := range res.Errors {
		s.logger.Warn("session: bulk edit skipped value", slog.String("error", e.Error()))
	}
	return res, err
}

// SaveCatalog writes the current catalog back to its file.
func (s *Session) SaveCatalog() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.catalog == nil {
		return ErrNoCatalogOpen
	}
	if err := s.market.Save(s.catalogName, s.catalog); err != nil {
		return err
	}
	s.logger.Info("session: catalog saved", slog.String("file", s.catalogName))
	return nil
}

// PutCatalog replaces the named market file with doc and makes it the
// current catalog.
func (s *Session) PutCatalog(name string, doc *models.CatalogDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.market == nil {
		return ErrNoMarketFolder
	}
	name = FileName(name)
	doc = doc.Clone()
	if err := s.market.Save(name, doc); err != nil {
		return err
	}
	s.catalogName, s.catalog = name, doc
	s.logger.Info("session: catalog saved", slog.String("file", name))
	return nil
}

// OpenTrader loads a trader file and makes it the current trader. The
// returned document is a copy.
func (s *Session) OpenTrader(name string) (*models.TraderDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.traders == nil {
		return nil, ErrNoTradersFolder
	}
	name = FileName(name)
	doc, err := s.traders.LoadTrader(name)
	if err != nil {
		return nil, err
	}
	s.traderName, s.trader = name, doc
	s.logger.Debug("session: trader opened", slog.String("file", name), slog.Int("categories", len(doc.Categories)))
	return doc.Clone(), nil
}

// Trader returns a copy of the current trader and its file name.
func (s *Session) Trader() (string, *models.TraderDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trader == nil {
		return "", nil, ErrNoTraderOpen
	}
	return s.traderName, s.trader.Clone(), nil
}

// UpdateTrader runs fn on the current trader. Changes stay in memory
// until SaveTrader.
func (s *Session) UpdateTrader(fn func(doc *models.TraderDocument) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trader == nil {
		return ErrNoTraderOpen
	}
	return fn(s.trader)
}

// AddCategory appends category to the current trader unless it is blank
// or already listed.
func (s *Session) AddCategory(category string) (bool, error) {
	category = strings.TrimSpace(category)
	added := false
	err := s.UpdateTrader(func(doc *models.TraderDocument) error {
		if category == "" || doc.HasCategory(category) {
			return nil
		}
		doc.Categories = append(doc.Categories, category)
		added = true
		return nil
	})
	return added, err
}

// RemoveCategory removes the first occurrence of category from the
// current trader.
func (s *Session) RemoveCategory(category string) (bool, error) {
	removed := false
	err := s.UpdateTrader(func(doc *models.TraderDocument) error {
		if i := slices.Index(doc.Categories, category); i >= 0 {
			removed = true
			return doc.RemoveAt(i)
		}
		return nil
	})
	return removed, err
}

// SaveTrader writes the current trader back to its file.
func (s *Session) SaveTrader() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trader == nil {
		return ErrNoTraderOpen
	}
	if err := s.traders.Save(s.traderName, s.trader); err != nil {
		return err
	}
	s.logger.Info("session: trader saved", slog.String("file", s.traderName))
	return nil
}

// PutTrader replaces the named trader file with doc and makes it the
// current trader.
func (s *Session) PutTrader(name string, doc *models.TraderDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.traders == nil {
		return ErrNoTradersFolder
	}
	name = FileName(name)
	doc = doc.Clone()
	if err := s.traders.Save(name, doc); err != nil {
		return err
	}
	s.traderName, s.trader = name, doc
	s.logger.Info("session: trader saved", slog.String("file", name))
	return nil
}

// NewCatalogFromTemplate writes a copy of the template as a new market
// file and opens it. An existing file is only replaced when overwrite is
// set. It returns the file name used.
func (s *Session) NewCatalogFromTemplate(name string, overwrite bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.market == nil {
		return "", ErrNoMarketFolder
	}
	if strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(name), ".json")) == "" {
		return "", fmt.Errorf("%w: file name is empty", apperr.ErrValidation)
	}
	if s.template == nil {
		return "", fmt.Errorf("%w: no catalog template", apperr.ErrNotFound)
	}
	name = FileName(name)
	if s.market.Exists(name) && !overwrite {
		return "", fmt.Errorf("%w: %s", apperr.ErrAlreadyExists, s.market.Path(name))
	}
	doc := s.template.NewCatalog()
	if err := s.market.Save(name, doc); err != nil {
		return "", err
	}
	s.catalogName, s.catalog = name, doc
	s.logger.Info("session: catalog created", slog.String("file", name))
	return name, nil
}

// AddResult reports AddTypesToCatalog.
type AddResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// AddTypesToCatalog appends a template item for every class name not yet
// present in the named market file and saves it. If that file is the
// current catalog it is reloaded.
func (s *Session) AddTypesToCatalog(name string, classNames []string) (AddResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res AddResult
	if s.market == nil {
		return res, ErrNoMarketFolder
	}
	name = FileName(name)
	doc, err := s.market.LoadCatalog(name)
	if err != nil {
		return res, err
	}
	existing := doc.ClassNames()
	for _, cn := range classNames {
		if _, ok := existing[cn]; ok {
			res.Skipped++
			continue
		}
		doc.Items = append(doc.Items, models.NewItem(cn))
		existing[cn] = struct{}{}
		res.Added++
	}
	if err := s.market.Save(name, doc); err != nil {
		return res, err
	}
	if s.catalog != nil && s.catalogName == name {
		s.catalog = doc.Clone()
	}
	s.logger.Info("session: types added", slog.String("file", name),
		slog.Int("added", res.Added), slog.Int("skipped", res.Skipped))
	return res, nil
}

// TypeFiles returns the XML file names of the types folder.
func (s *Session) TypeFiles() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.types == nil {
		return nil, ErrNoTypesFolder
	}
	metas, err := s.types.List(".xml")
	if err != nil {
		return nil, apperr.IO(s.types.Root(), err)
	}
	out := make([]string, len(metas))
	for i, m := range metas {
		out[i] = m.Name
	}
	return out, nil
}

// TypeNames returns the union of type names across the types folder,
// filtered case-insensitively by filter.
func (s *Session) TypeNames(filter string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.types == nil {
		return nil, ErrNoTypesFolder
	}
	names, err := parser.FolderTypeNames(s.types, s.logger)
	if err != nil {
		return nil, apperr.IO(s.types.Root(), err)
	}
	return parser.Filter(names, filter), nil
}

// TypeNamesInFile returns the type names of one XML file.
func (s *Session) TypeNamesInFile(file, filter string) ([]string, parser.Strategy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.types == nil {
		return nil, "", ErrNoTypesFolder
	}
	data, err := s.types.Read(file)
	if err != nil {
		return nil, "", apperr.IO(file, err)
	}
	res := parser.ParseOrFallback(data)
	return parser.Filter(res.Names, filter), res.Strategy, nil
}

// ScanDuplicates scans every market and trader file for repeated keys.
func (s *Session) ScanDuplicates() (*dedup.Report, error) {
	folders := s.Folders()
	if len(folders) == 0 {
		return nil, ErrNoFolders
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return dedup.NewDeduplicator(s.logger, folders...).Scan(), nil
}

// RemoveDuplicates removes the duplicates of rep file by file and reloads
// the open documents.
func (s *Session) RemoveDuplicates(rep *dedup.Report) dedup.RemovalResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := dedup.NewDeduplicator(s.logger).Remove(rep)
	s.reloadLocked()
	return res
}

func (s *Session) reloadLocked() {
	if s.catalog != nil {
		doc, err := s.market.LoadCatalog(s.catalogName)
		if err != nil {
			s.logger.Warn("session: reload catalog failed", slog.String("file", s.catalogName), slog.String("error", err.Error()))
		} else {
			s.catalog = doc
		}
	}
	if s.trader != nil {
		doc, err := s.traders.LoadTrader(s.traderName)
		if err != nil {
			s.logger.Warn("session: reload trader failed", slog.String("file", s.traderName), slog.String("error", err.Error()))
		} else {
			s.trader = doc
		}
	}
}

// IsNoFolder reports whether err means a project folder is not set.
func IsNoFolder(err error) bool {
	return errors.Is(err, ErrNoMarketFolder) || errors.Is(err, ErrNoTradersFolder) ||
		errors.Is(err, ErrNoTypesFolder) || errors.Is(err, ErrNoFolders)
}
