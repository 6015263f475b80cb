package parser

import (
	"log/slog"

	"github.com/starford/marketeer/internal/storage"
)

// FolderTypeNames returns the union of type names across every .xml file
// in the folder. Unreadable files are skipped.
func FolderTypeNames(files storage.Provider, logger *slog.Logger) ([]string, error) {
	metas, err := files.List(".xml")
	if err != nil {
		return nil, err
	}
	var all []string
	for _, m := range metas {
		data, err := files.Read(m.Name)
		if err != nil {
			logger.Warn("types: read failed", slog.String("file", m.Name), slog.String("error", err.Error()))
			continue
		}
		res := ParseOrFallback(data)
		if res.Strategy == StrategyRegex {
			logger.Debug("types: structural parse failed, used regex",
				slog.String("file", m.Name), slog.String("error", res.StructuralErr.Error()))
		}
		all = append(all, res.Names...)
	}
	return uniqueSorted(all), nil
}
