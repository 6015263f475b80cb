package internal

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/starford/marketeer/internal/apperr"
	"github.com/starford/marketeer/internal/assets"
	"github.com/starford/marketeer/internal/index"
	"github.com/starford/marketeer/internal/session"
)

var errConfigRequired = errors.New("config is required")

// NewLogger returns a slog logger writing JSON or text records to w.
func NewLogger(w io.Writer, level slog.Level, jsonFormat bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if jsonFormat {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// OpenSession builds the editing session described by cfg: the catalog
// template, the project file and the folder overrides. A missing template
// file only disables new-catalog creation.
func OpenSession(cfg *Config, logger *slog.Logger) (*session.Session, error) {
	tpl, err := assets.LoadTemplate(cfg.Assets.TemplateFile)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("load template: %w", err)
		}
		logger.Warn("catalog template not found", slog.String("path", cfg.Assets.TemplateFile))
		tpl = nil
	}

	p, ok, err := session.LoadDefaultProject(cfg.Project.File)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if ok {
		logger.Info("project loaded", slog.String("file", cfg.Project.File))
	}

	sess := session.New(logger, tpl)
	p = sess.SetProject(p.Merge(cfg.Project.Overrides()))
	logger.Debug("project folders",
		slog.String("market", p.MarketFolder),
		slog.String("traders", p.TradersFolder),
		slog.String("types", p.TypesFolder))
	return sess, nil
}

// OpenIndex opens the SQLite item index and brings it in line with the
// session folders. A folder that fails to sync is logged and skipped.
func OpenIndex(cfg *Config, sess *session.Session, logger *slog.Logger) (*index.DB, error) {
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	for _, f := range sess.Folders() {
		if err := index.Sync(db, f, logger); err != nil {
			logger.Warn("initial sync failed",
				slog.String("kind", string(f.Kind)),
				slog.String("error", err.Error()))
		}
	}
	return db, nil
}
