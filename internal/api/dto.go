package api

import (
	"github.com/starford/marketeer/internal/dedup"
	"github.com/starford/marketeer/internal/index"
	"github.com/starford/marketeer/internal/models"
	"github.com/starford/marketeer/internal/session"
)

// FileListResponse lists the JSON documents of a folder.
type FileListResponse struct {
	Files []string `json:"files" example:"ammo.json,weapons.json" validate:"required"`
}

// CatalogResponse is a market file with its lint findings.
type CatalogResponse struct {
	Name     string                  `json:"name" example:"ammo.json" validate:"required"`
	Document *models.CatalogDocument `json:"document" validate:"required"`
	Issues   map[string]string       `json:"issues,omitempty"`
}

// TraderResponse is a trader file with its lint findings.
type TraderResponse struct {
	Name     string                 `json:"name" example:"gunsmith.json" validate:"required"`
	Document *models.TraderDocument `json:"document" validate:"required"`
	Issues   map[string]string      `json:"issues,omitempty"`
}

// CreateCatalogRequest creates a market file from the template.
type CreateCatalogRequest struct {
	Name      string `json:"name" example:"medical" validate:"required"`
	Overwrite bool   `json:"overwrite"`
}

// BulkEditRequest edits a selection of catalog items.
type BulkEditRequest struct {
	Indices    []int             `json:"indices" validate:"required"`
	Fields     map[string]string `json:"fields,omitempty"`
	SellSlider *int              `json:"sell_slider,omitempty" example:"50"`
}

// BulkEditResponse reports a bulk edit.
type BulkEditResponse struct {
	Modified int      `json:"modified" example:"3"`
	Errors   []string `json:"errors,omitempty"`
}

// AddTypesRequest appends template items to a market file.
type AddTypesRequest struct {
	ClassNames []string `json:"class_names" validate:"required"`
}

// AddTypesResponse aliases the session result.
type AddTypesResponse = session.AddResult

// TypeNamesResponse lists extracted type names.
type TypeNamesResponse struct {
	Names    []string `json:"names" validate:"required"`
	Strategy string   `json:"strategy,omitempty" example:"structural"`
}

// FailureDTO is a file that could not be processed.
type FailureDTO struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// DuplicatesResponse is the result of a project scan.
type DuplicatesResponse struct {
	Total    int                `json:"total"`
	Files    []dedup.FileReport `json:"files"`
	Failures []FailureDTO       `json:"failures,omitempty"`
	Summary  string             `json:"summary"`
}

// RemoveDuplicatesResponse reports a removal pass.
type RemoveDuplicatesResponse struct {
	Removed    int          `json:"removed"`
	FilesSaved int          `json:"files_saved"`
	Failures   []FailureDTO `json:"failures,omitempty"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// FilesResponse lists the documents holding a key.
type FilesResponse struct {
	Files []index.FileRef `json:"files" validate:"required"`
}

func failures(ff []dedup.FileFailure) []FailureDTO {
	out := make([]FailureDTO, len(ff))
	for i, f := range ff {
		out[i] = FailureDTO{Path: f.Path, Error: f.Err.Error()}
	}
	return out
}
