package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/marketeer/internal/apperr"
	"github.com/starford/marketeer/internal/storage"
)

// DefaultProjectFile is looked up in the working directory on startup.
const DefaultProjectFile = "dayz_trader_project.json"

// Project records the three folders an editing session works on.
type Project struct {
	MarketFolder  string `json:"market_folder"`
	TradersFolder string `json:"traders_folder"`
	TypesFolder   string `json:"types_folder"`
}

// LoadProject reads a project file.
func LoadProject(path string) (Project, error) {
	var p Project
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return p, apperr.IO(path, fmt.Errorf("%w: %w", apperr.ErrNotFound, err))
		}
		return p, apperr.IO(path, err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, apperr.Parse(path, err)
	}
	return p, nil
}

// LoadDefaultProject reads path when it exists. A missing file returns
// an empty project and ok=false.
func LoadDefaultProject(path string) (p Project, ok bool, err error) {
	p, err = LoadProject(path)
	if errors.Is(err, apperr.ErrNotFound) {
		return Project{}, false, nil
	}
	if err != nil {
		return Project{}, false, err
	}
	return p, true, nil
}

// Save writes the project file. A project with neither a market nor a
// traders folder is rejected.
func (p Project) Save(path string) error {
	if p.MarketFolder == "" && p.TradersFolder == "" {
		return fmt.Errorf("%w: no folders selected to save in project", apperr.ErrValidation)
	}
	data, err := json.MarshalIndent(p, "", "    ")
	if err != nil {
		return err
	}
	fs, err := storage.NewFS(filepath.Dir(path))
	if err != nil {
		return apperr.IO(path, err)
	}
	if err := fs.Write(filepath.Base(path), append(data, '\n')); err != nil {
		return apperr.IO(path, err)
	}
	return nil
}

// Merge returns p with every non-empty folder of o applied over it.
func (p Project) Merge(o Project) Project {
	if o.MarketFolder != "" {
		p.MarketFolder = o.MarketFolder
	}
	if o.TradersFolder != "" {
		p.TradersFolder = o.TradersFolder
	}
	if o.TypesFolder != "" {
		p.TypesFolder = o.TypesFolder
	}
	return p
}

// resolve drops folders that are not existing directories, logging a
// warning for each.
func (p Project) resolve(logger *slog.Logger) Project {
	check := func(label string, dir *string) {
		if *dir == "" {
			return
		}
		if info, err := os.Stat(*dir); err != nil || !info.IsDir() {
			logger.Warn("project: folder not found", slog.String("folder", label), slog.String("path", *dir))
			*dir = ""
		}
	}
	check("market", &p.MarketFolder)
	check("traders", &p.TradersFolder)
	check("types", &p.TypesFolder)
	return p
}
