package index

import (
	"log/slog"
	"time"

	"github.com/starford/marketeer/internal/catalog"
	"github.com/starford/marketeer/internal/models"
	"github.com/starford/marketeer/internal/storage"
)

// Sync walks a folder and brings the index up to date:
//   - new/changed documents are parsed and upserted
//   - documents removed from disk are deleted from the index
func Sync(db *DB, folder catalog.Folder, logger *slog.Logger) error {
	files := folder.Store.Files()
	metas, err := files.List(".json")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums(folder.Kind)
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Name] = struct{}{}

		if checksums[m.Name] == m.Checksum {
			continue
		}

		data, err := files.Read(m.Name)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("file", m.Name), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, folder.Kind, m.Name, data); err != nil {
			logger.Warn("sync: index failed", slog.String("file", m.Name), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("file", m.Name))
		}
	}

	for n := range checksums {
		if _, ok := disk[n]; !ok {
			if err := db.DeleteFile(folder.Kind, n); err != nil {
				logger.Warn("sync: delete failed", slog.String("file", n), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("file", n))
			}
		}
	}

	return nil
}

// IndexDocument upserts an already parsed document. Callers that just
// saved a file use it to skip a re-read.
func IndexDocument(db *DB, name string, doc models.Document, data []byte) error {
	row := FileRow{
		Kind:      doc.Kind(),
		Name:      name,
		Checksum:  storage.Checksum(data),
		UpdatedAt: time.Now(),
	}
	switch d := doc.(type) {
	case *models.CatalogDocument:
		row.DisplayName = d.DisplayName
	case *models.TraderDocument:
		row.DisplayName = d.DisplayName
	}
	return db.UpsertFile(row, doc.Keys())
}

func indexFile(db *DB, kind models.Kind, name string, data []byte) error {
	doc, err := catalog.Decode(kind, data)
	if err != nil {
		return err
	}
	return IndexDocument(db, name, doc, data)
}
