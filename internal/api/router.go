package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/marketeer/internal/index"
	"github.com/starford/marketeer/internal/session"
	"github.com/starford/marketeer/internal/sse"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// idx and events may be nil; search then answers 503 and /events is not
// mounted.
func NewRouter(sess *session.Session, idx index.ItemIndex, icons []string, events *sse.Broker, authEnabled bool, token string) chi.Router {
	h := NewHandler(sess, idx, icons, events)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/catalogs", h.ListCatalogs)
	r.Post("/catalogs", h.CreateCatalog)
	r.Get("/catalogs/{name}", h.GetCatalog)
	r.Put("/catalogs/{name}", h.PutCatalog)
	r.Post("/catalogs/{name}/bulk", h.BulkEdit)
	r.Post("/catalogs/{name}/types", h.AddTypes)

	r.Get("/categories", h.ListCategories)
	r.Get("/traders", h.ListTraders)
	r.Get("/traders/{name}", h.GetTrader)
	r.Put("/traders/{name}", h.PutTrader)

	r.Get("/types", h.TypeNames)

	r.Get("/duplicates", h.Duplicates)
	r.Post("/duplicates/remove", h.RemoveDuplicates)

	r.Get("/search", h.Search)
	r.Get("/search/files", h.SearchFiles)

	r.Get("/icons", h.Icons)

	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}

	return r
}
