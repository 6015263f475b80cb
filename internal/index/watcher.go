package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/marketeer/internal/catalog"
)

// Change operations reported to an EventCallback.
const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

// EventCallback is called after a watcher-driven index change.
type EventCallback func(op string, ref FileRef)

// Watch starts an fsnotify watcher on every folder and keeps the index
// current until ctx is cancelled. Folders are watched non-recursively;
// only .json files are considered. cb (if non-nil) is called after each
// successful index mutation.
//
// Rename events trigger a reconciliation pass that removes stale entries
// and indexes files that appeared under a new name.
func Watch(ctx context.Context, db *DB, folders []catalog.Folder, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	byDir := make(map[string]catalog.Folder, len(folders))
	for _, f := range folders {
		if f.Store == nil {
			continue
		}
		root := filepath.Clean(f.Store.Files().Root())
		if _, dup := byDir[root]; dup {
			logger.Warn("watcher: folder watched twice", slog.String("root", root))
			continue
		}
		if err := w.Add(root); err != nil {
			return err
		}
		byDir[root] = f
		logger.Info("watcher: started", slog.String("root", root), slog.String("kind", string(f.Kind)))
	}

	notify := func(op string, ref FileRef) {
		if cb != nil {
			cb(op, ref)
		}
	}

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			for _, f := range byDir {
				reconcile(db, f, logger, notify)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, ".json") {
				continue
			}
			folder, ok := byDir[filepath.Dir(ev.Name)]
			if !ok {
				continue
			}
			ref := FileRef{Kind: folder.Kind, Name: filepath.Base(ev.Name)}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := folder.Store.Files().Read(ref.Name)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("file", ref.Name), slog.String("error", readErr.Error()))
					continue
				}
				if idxErr := indexFile(db, ref.Kind, ref.Name, data); idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("file", ref.Name), slog.String("error", idxErr.Error()))
					continue
				}
				op := OpUpdated
				if ev.Op&fsnotify.Create != 0 {
					op = OpCreated
				}
				logger.Debug("watcher: indexed", slog.String("file", ref.Name), slog.String("op", op))
				notify(op, ref)

			case ev.Op&fsnotify.Remove != 0:
				if delErr := db.DeleteFile(ref.Kind, ref.Name); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("file", ref.Name), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("file", ref.Name))
				notify(OpDeleted, ref)

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify reports Rename on the old name only; the new name
				// arrives as a Create if it stays inside a watched folder.
				if delErr := db.DeleteFile(ref.Kind, ref.Name); delErr != nil {
					logger.Warn("watcher: rename delete failed", slog.String("file", ref.Name), slog.String("error", delErr.Error()))
				} else {
					notify(OpDeleted, ref)
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile removes entries without a file on disk and indexes files
// whose checksum differs from the stored one.
func reconcile(db *DB, folder catalog.Folder, logger *slog.Logger, notify func(string, FileRef)) {
	checksums, err := db.AllChecksums(folder.Kind)
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	files := folder.Store.Files()
	metas, err := files.List(".json")
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Name] = m.Checksum
	}

	for n := range checksums {
		if _, ok := disk[n]; ok {
			continue
		}
		if delErr := db.DeleteFile(folder.Kind, n); delErr == nil {
			logger.Debug("reconcile: removed stale", slog.String("file", n))
			notify(OpDeleted, FileRef{Kind: folder.Kind, Name: n})
		}
	}

	for n, cs := range disk {
		if checksums[n] == cs {
			continue
		}
		data, readErr := files.Read(n)
		if readErr != nil {
			continue
		}
		if idxErr := indexFile(db, folder.Kind, n, data); idxErr == nil {
			logger.Debug("reconcile: indexed", slog.String("file", n))
			notify(OpCreated, FileRef{Kind: folder.Kind, Name: n})
		}
	}
}
