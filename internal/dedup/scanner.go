package dedup

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/marketeer/internal/catalog"
	"github.com/starford/marketeer/internal/models"
)

// FileReport holds the duplicates found in one document. The parsed
// document is kept so removal works on the scanned state.
type FileReport struct {
	Name       string                   `json:"name"`
	Path       string                   `json:"path"`
	Kind       models.Kind              `json:"kind"`
	Duplicates []models.DuplicateRecord `json:"duplicates"`

	doc   models.Document
	store *catalog.Store
}

// FileFailure records a file that could not be processed.
type FileFailure struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

// Report is the result of a folder scan.
type Report struct {
	Files    []FileReport  `json:"files"`
	Failures []FileFailure `json:"failures,omitempty"`
}

// Total returns the number of duplicates across all files.
func (r *Report) Total() int {
	n := 0
	for _, f := range r.Files {
		n += len(f.Duplicates)
	}
	return n
}

// RemovalResult summarizes a removal pass.
type RemovalResult struct {
	Removed    int           `json:"removed"`
	FilesSaved int           `json:"files_saved"`
	Failures   []FileFailure `json:"failures,omitempty"`
}

// Deduplicator scans project folders for repeated keys.
type Deduplicator struct {
	sources []catalog.Folder
	logger  *slog.Logger
}

// NewDeduplicator creates a deduplicator over the given folders. Folders
// with a nil store are ignored.
func NewDeduplicator(logger *slog.Logger, sources ...catalog.Folder) *Deduplicator {
	d := &Deduplicator{logger: logger}
	for _, s := range sources {
		if s.Store != nil {
			d.sources = append(d.sources, s)
		}
	}
	return d
}

// Scan parses every JSON document of every source. A file that cannot be
// read or parsed is recorded as a failure and the scan moves on.
func (d *Deduplicator) Scan() *Report {
	rep := &Report{}
	for _, src := range d.sources {
		names, err := src.Store.List()
		if err != nil {
			d.logger.Warn("dedup: list failed", slog.String("folder", src.Store.Files().Root()), slog.String("error", err.Error()))
			rep.Failures = append(rep.Failures, FileFailure{Path: src.Store.Files().Root(), Err: err})
			continue
		}
		for _, name := range names {
			path := src.Store.Path(name)
			doc, err := src.Store.Load(src.Kind, name)
			if err != nil {
				d.logger.Warn("dedup: load failed", slog.String("path", path), slog.String("error", err.Error()))
				rep.Failures = append(rep.Failures, FileFailure{Path: path, Err: err})
				continue
			}
			dups := Scan(path, doc)
			if len(dups) == 0 {
				continue
			}
			d.logger.Debug("dedup: duplicates found", slog.String("path", path), slog.Int("count", len(dups)))
			rep.Files = append(rep.Files, FileReport{
				Name:       name,
				Path:       path,
				Kind:       src.Kind,
				Duplicates: dups,
				doc:        doc,
				store:      src.Store,
			})
		}
	}
	return rep
}

// Remove deletes the reported duplicates and saves each touched file.
// Files are independent: a failure is recorded and never undoes files
// already saved. Removal runs on a copy of the scanned document, and a
// saved file is dropped from rep, so calling Remove again with the same
// report cannot remove entries that were never duplicates.
func (d *Deduplicator) Remove(rep *Report) RemovalResult {
	var res RemovalResult
	for i := range rep.Files {
		f := &rep.Files[i]
		if f.doc == nil || f.store == nil {
			continue
		}
		doc := cloneDocument(f.doc)
		n, err := RemoveFrom(doc, Indices(f.Duplicates))
		if err == nil {
			err = f.store.Save(f.Name, doc)
		}
		if err != nil {
			d.logger.Warn("dedup: remove failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			res.Failures = append(res.Failures, FileFailure{Path: f.Path, Err: err})
			continue
		}
		f.doc, f.store = nil, nil
		d.logger.Info("dedup: removed duplicates", slog.String("path", f.Path), slog.Int("removed", n))
		res.Removed += n
		res.FilesSaved++
	}
	return res
}

func cloneDocument(doc models.Document) models.Document {
	switch v := doc.(type) {
	case *models.CatalogDocument:
		return v.Clone()
	case *models.TraderDocument:
		return v.Clone()
	default:
		return doc
	}
}

// Summary renders rep for a confirmation prompt, listing at most perFile
// duplicates per file.
func Summary(rep *Report, perFile int) string {
	if rep.Total() == 0 {
		return "No duplicates found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d duplicate(s) in %d file(s):\n", rep.Total(), len(rep.Files))
	for _, f := range rep.Files {
		fmt.Fprintf(&b, "\n%s (%d duplicate(s)):\n", f.Name, len(f.Duplicates))
		label := "ClassName"
		if f.Kind == models.KindTrader {
			label = "Category"
		}
		for i, dup := range f.Duplicates {
			if perFile > 0 && i == perFile {
				fmt.Fprintf(&b, "  ... and %d more\n", len(f.Duplicates)-perFile)
				break
			}
			fmt.Fprintf(&b, "  - %s: %s (index %d)\n", label, dup.Key, dup.Index)
		}
	}
	return b.String()
}
