package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/marketeer/internal/catalog"
	"github.com/starford/marketeer/internal/dedup"
	"github.com/starford/marketeer/internal/index"
	"github.com/starford/marketeer/internal/session"
	"github.com/starford/marketeer/internal/sse"
)

// Handler holds API route handlers.
type Handler struct {
	sess   *session.Session
	idx    index.ItemIndex
	icons  []string
	events *sse.Broker
}

// NewHandler creates a new Handler. idx and events may be nil.
func NewHandler(sess *session.Session, idx index.ItemIndex, icons []string, events *sse.Broker) *Handler {
	if icons == nil {
		icons = []string{}
	}
	return &Handler{sess: sess, idx: idx, icons: icons, events: events}
}

func (h *Handler) publish(ev sse.Event) {
	if h.events != nil {
		h.events.Publish(ev)
	}
}

// ListCatalogs handles GET /catalogs.
//
//	@Summary		List market files
//	@Tags			catalogs
//	@Produce		json
//	@Success		200	{object}	FileListResponse
//	@Security		BearerAuth
//	@Router			/catalogs [get]
func (h *Handler) ListCatalogs(w http.ResponseWriter, _ *http.Request) {
	files, err := h.sess.ListCatalogFiles()
	if err != nil {
		writeError(w, "list catalogs", err)
		return
	}
	writeJSON(w, http.StatusOK, FileListResponse{Files: files})
}

// GetCatalog handles GET /catalogs/{name}.
//
//	@Summary		Open a market file
//	@Tags			catalogs
//	@Produce		json
//	@Param			name	path		string	true	"File name, with or without .json"
//	@Success		200		{object}	CatalogResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/catalogs/{name} [get]
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	name := session.FileName(chi.URLParam(r, "name"))
	doc, err := h.sess.OpenCatalog(name)
	if err != nil {
		writeError(w, "open catalog", err)
		return
	}
	writeJSON(w, http.StatusOK, CatalogResponse{Name: name, Document: doc, Issues: catalog.Issues(catalog.ValidateCatalog(doc))})
}

// PutCatalog handles PUT /catalogs/{name}. The body is the whole document.
//
//	@Summary		Save a market file
//	@Tags			catalogs
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string	true	"File name"
//	@Success		200		{object}	CatalogResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/catalogs/{name} [put]
func (h *Handler) PutCatalog(w http.ResponseWriter, r *http.Request) {
	name := session.FileName(chi.URLParam(r, "name"))
	data, ok := readBody(w, r)
	if !ok {
		return
	}
	doc, err := catalog.DecodeCatalog(data)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid catalog document: "+err.Error()))
		return
	}
	doc.Normalize()
	if err := h.sess.PutCatalog(name, doc); err != nil {
		writeError(w, "save catalog", err)
		return
	}
	writeJSON(w, http.StatusOK, CatalogResponse{Name: name, Document: doc, Issues: catalog.Issues(catalog.ValidateCatalog(doc))})
}

// CreateCatalog handles POST /catalogs.
//
//	@Summary		Create a market file from the template
//	@Tags			catalogs
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateCatalogRequest	true	"New file"
//	@Success		201		{object}	CatalogResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/catalogs [post]
func (h *Handler) CreateCatalog(w http.ResponseWriter, r *http.Request) {
	var req CreateCatalogRequest
	if !readJSON(w, r, &req) {
		return
	}
	name, err := h.sess.NewCatalogFromTemplate(req.Name, req.Overwrite)
	if err != nil {
		writeError(w, "create catalog", err)
		return
	}
	_, doc, err := h.sess.Catalog()
	if err != nil {
		writeError(w, "create catalog", err)
		return
	}
	writeJSON(w, http.StatusCreated, CatalogResponse{Name: name, Document: doc})
}

// BulkEdit handles POST /catalogs/{name}/bulk. The edit is saved at once.
//
//	@Summary		Bulk edit catalog items
//	@Tags			catalogs
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string			true	"File name"
//	@Param			body	body		BulkEditRequest	true	"Edit"
//	@Success		200		{object}	BulkEditResponse
//	@Security		BearerAuth
//	@Router			/catalogs/{name}/bulk [post]
func (h *Handler) BulkEdit(w http.ResponseWriter, r *http.Request) {
	var req BulkEditRequest
	if !readJSON(w, r, &req) {
		return
	}
	edit := catalog.BulkEdit{Fields: req.Fields, SellSlider: req.SellSlider}
	if err := edit.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if _, err := h.sess.OpenCatalog(chi.URLParam(r, "name")); err != nil {
		writeError(w, "open catalog", err)
		return
	}
	res, err := h.sess.BulkEdit(edit, req.Indices)
	if err != nil {
		writeError(w, "bulk edit", err)
		return
	}
	if res.Modified > 0 {
		if err := h.sess.SaveCatalog(); err != nil {
			writeError(w, "save catalog", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, BulkEditResponse{Modified: res.Modified, Errors: errorStrings(res.Errors)})
}

// AddTypes handles POST /catalogs/{name}/types.
//
//	@Summary		Append template items for type names
//	@Tags			catalogs
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string			true	"File name"
//	@Param			body	body		AddTypesRequest	true	"Class names"
//	@Success		200		{object}	AddTypesResponse
//	@Security		BearerAuth
//	@Router			/catalogs/{name}/types [post]
func (h *Handler) AddTypes(w http.ResponseWriter, r *http.Request) {
	var req AddTypesRequest
	if !readJSON(w, r, &req) {
		return
	}
	if len(req.ClassNames) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("class_names is required"))
		return
	}
	res, err := h.sess.AddTypesToCatalog(chi.URLParam(r, "name"), req.ClassNames)
	if err != nil {
		writeError(w, "add types", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListCategories handles GET /categories.
//
//	@Summary		Market file names usable as trader categories
//	@Tags			traders
//	@Produce		json
//	@Success		200	{object}	map[string][]string
//	@Security		BearerAuth
//	@Router			/categories [get]
func (h *Handler) ListCategories(w http.ResponseWriter, _ *http.Request) {
	cats, err := h.sess.AvailableCategories()
	if err != nil {
		writeError(w, "list categories", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"categories": cats})
}

// ListTraders handles GET /traders.
//
//	@Summary		List trader files
//	@Tags			traders
//	@Produce		json
//	@Success		200	{object}	FileListResponse
//	@Security		BearerAuth
//	@Router			/traders [get]
func (h *Handler) ListTraders(w http.ResponseWriter, _ *http.Request) {
	files, err := h.sess.ListTraderFiles()
	if err != nil {
		writeError(w, "list traders", err)
		return
	}
	writeJSON(w, http.StatusOK, FileListResponse{Files: files})
}

// GetTrader handles GET /traders/{name}.
//
//	@Summary		Open a trader file
//	@Tags			traders
//	@Produce		json
//	@Param			name	path		string	true	"File name"
//	@Success		200		{object}	TraderResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/traders/{name} [get]
func (h *Handler) GetTrader(w http.ResponseWriter, r *http.Request) {
	name := session.FileName(chi.URLParam(r, "name"))
	doc, err := h.sess.OpenTrader(name)
	if err != nil {
		writeError(w, "open trader", err)
		return
	}
	writeJSON(w, http.StatusOK, TraderResponse{Name: name, Document: doc, Issues: catalog.Issues(catalog.ValidateTrader(doc))})
}

// PutTrader handles PUT /traders/{name}. The body is the whole document.
//
//	@Summary		Save a trader file
//	@Tags			traders
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string	true	"File name"
//	@Success		200		{object}	TraderResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/traders/{name} [put]
func (h *Handler) PutTrader(w http.ResponseWriter, r *http.Request) {
	name := session.FileName(chi.URLParam(r, "name"))
	data, ok := readBody(w, r)
	if !ok {
		return
	}
	doc, err := catalog.DecodeTrader(data)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid trader document: "+err.Error()))
		return
	}
	doc.Normalize()
	if err := h.sess.PutTrader(name, doc); err != nil {
		writeError(w, "save trader", err)
		return
	}
	writeJSON(w, http.StatusOK, TraderResponse{Name: name, Document: doc, Issues: catalog.Issues(catalog.ValidateTrader(doc))})
}

// TypeNames handles GET /types.
//
//	@Summary		Type names from the types folder
//	@Tags			types
//	@Produce		json
//	@Param			q		query		string	false	"Case-insensitive filter"
//	@Param			file	query		string	false	"Limit to one XML file"
//	@Success		200		{object}	TypeNamesResponse
//	@Security		BearerAuth
//	@Router			/types [get]
func (h *Handler) TypeNames(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if file := q.Get("file"); file != "" {
		names, strategy, err := h.sess.TypeNamesInFile(file, q.Get("q"))
		if err != nil {
			writeError(w, "type names", err)
			return
		}
		writeJSON(w, http.StatusOK, TypeNamesResponse{Names: names, Strategy: string(strategy)})
		return
	}
	names, err := h.sess.TypeNames(q.Get("q"))
	if err != nil {
		writeError(w, "type names", err)
		return
	}
	writeJSON(w, http.StatusOK, TypeNamesResponse{Names: names})
}

// Duplicates handles GET /duplicates.
//
//	@Summary		Scan market and trader files for duplicates
//	@Tags			duplicates
//	@Produce		json
//	@Success		200	{object}	DuplicatesResponse
//	@Security		BearerAuth
//	@Router			/duplicates [get]
func (h *Handler) Duplicates(w http.ResponseWriter, _ *http.Request) {
	rep, err := h.sess.ScanDuplicates()
	if err != nil {
		writeError(w, "scan duplicates", err)
		return
	}
	files := rep.Files
	if files == nil {
		files = []dedup.FileReport{}
	}
	writeJSON(w, http.StatusOK, DuplicatesResponse{
		Total:    rep.Total(),
		Files:    files,
		Failures: failures(rep.Failures),
		Summary:  dedup.Summary(rep, 10),
	})
}

// RemoveDuplicates handles POST /duplicates/remove. It rescans and removes
// every duplicate found, keeping first occurrences.
//
//	@Summary		Remove duplicates from all files
//	@Tags			duplicates
//	@Produce		json
//	@Success		200	{object}	RemoveDuplicatesResponse
//	@Security		BearerAuth
//	@Router			/duplicates/remove [post]
func (h *Handler) RemoveDuplicates(w http.ResponseWriter, _ *http.Request) {
	rep, err := h.sess.ScanDuplicates()
	if err != nil {
		writeError(w, "scan duplicates", err)
		return
	}
	res := h.sess.RemoveDuplicates(rep)
	slog.Info("duplicates removed", slog.Int("removed", res.Removed), slog.Int("files", res.FilesSaved))
	h.publish(sse.Event{Type: "duplicates.removed", Data: map[string]int{"removed": res.Removed, "files_saved": res.FilesSaved}})
	writeJSON(w, http.StatusOK, RemoveDuplicatesResponse{
		Removed:    res.Removed,
		FilesSaved: res.FilesSaved,
		Failures:   failures(res.Failures),
	})
}

// Search handles GET /search.
//
//	@Summary		Search class names and categories across the project
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Substring to match"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	if h.idx == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("index not available"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.idx.Search(q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// SearchFiles handles GET /search/files.
//
//	@Summary		Documents holding an exact class name or category
//	@Tags			search
//	@Produce		json
//	@Param			key	query		string	true	"Exact key"
//	@Success		200	{object}	FilesResponse
//	@Security		BearerAuth
//	@Router			/search/files [get]
func (h *Handler) SearchFiles(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'key' is required"))
		return
	}
	if h.idx == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("index not available"))
		return
	}
	refs, err := h.idx.FilesContaining(key)
	if err != nil {
		writeError(w, "search files", err)
		return
	}
	if refs == nil {
		refs = []index.FileRef{}
	}
	writeJSON(w, http.StatusOK, FilesResponse{Files: refs})
}

// Icons handles GET /icons.
//
//	@Summary		Icon identifiers for catalogs and traders
//	@Tags			assets
//	@Produce		json
//	@Success		200	{object}	map[string][]string
//	@Security		BearerAuth
//	@Router			/icons [get]
func (h *Handler) Icons(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"icons": h.icons})
}
