package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/arnvald/zettel/internal/zetservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// vaultRoot is used to resolve the attachments directory.
func NewRouter(svc *zetservice.Service, authEnabled bool, token string, sseHandler http.Handler, vaultRoot string) chi.Router {
	h := NewHandler(svc)
	ah := NewAttachmentHandler(vaultRoot)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Zettel CRUD.
	r.Get("/zettels", h.ListZettels)
	r.Post("/zettels", h.CreateZettel)
	r.Get("/zettels/*", h.GetZettel)
	r.Put("/zettels/*", h.UpdateZettel)
	r.Delete("/zettels/*", h.DeleteZettel)

	// Search.
	r.Get("/search", h.Search)

	// Graph.
	r.Get("/graph", h.Graph)
	r.Get("/backlinks/*", h.Backlinks)

	// Attachments upload (auth-protected).
	r.Post("/attachments", ah.Upload)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
