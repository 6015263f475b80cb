// Package assets loads the icon list and the new-catalog template. Both
// ship with built-in defaults used when no file is configured.
package assets

import (
	"bufio"
	"bytes"
	"embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/starford/marketeer/internal/apperr"
	"github.com/starford/marketeer/internal/catalog"
	"github.com/starford/marketeer/internal/models"
)

//go:embed defaults
var defaults embed.FS

const (
	defaultIconsFile    = "defaults/icon.txt"
	defaultTemplateFile = "defaults/example.json"
)

// LoadIcons reads newline-separated icon identifiers, trimmed, without
// blanks, sorted. An empty path selects the built-in list. A missing file
// yields an empty list.
func LoadIcons(path string) ([]string, error) {
	var (
		data []byte
		err  error
	)
	if path == "" {
		data, err = defaults.ReadFile(defaultIconsFile)
	} else {
		data, err = os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
	}
	if err != nil {
		return nil, apperr.IO(path, err)
	}
	icons, err := parseIcons(data)
	if err != nil {
		return nil, apperr.Parse(path, err)
	}
	return icons, nil
}

func parseIcons(data []byte) ([]string, error) {
	icons := []string{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			icons = append(icons, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	slices.Sort(icons)
	return icons, nil
}

// Template is a parsed catalog used to seed new market files.
type Template struct {
	doc *models.CatalogDocument
}

// LoadTemplate reads the catalog template. An empty path selects the
// built-in template.
func LoadTemplate(path string) (*Template, error) {
	var (
		data []byte
		err  error
	)
	if path == "" {
		data, err = defaults.ReadFile(defaultTemplateFile)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.IO(path, fmt.Errorf("%w: %w", apperr.ErrNotFound, err))
		}
		return nil, apperr.IO(path, err)
	}
	doc, err := catalog.DecodeCatalog(data)
	if err != nil {
		return nil, apperr.Parse(path, err)
	}
	return &Template{doc: doc}, nil
}

// NewCatalog returns a deep copy of the template document.
func (t *Template) NewCatalog() *models.CatalogDocument {
	return t.doc.Clone()
}
