package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/arnvald/zettel/internal/apperr"
	"github.com/arnvald/zettel/internal/zetservice"
	"github.com/arnvald/zettel/internal/zettel"
)

// Handler holds API route handlers.
type Handler struct {
	svc *zetservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *zetservice.Service) *Handler {
	return &Handler{svc: svc}
}

// zettelPath extracts the zettel path from the URL (everything after /api/zettels/).
// Supports encoded slashes from OpenAPI clients (e.g. topics%2Fnote.md).
func zettelPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListZettels handles GET /api/zettels.
//
//	@Summary		List zettels with optional pagination and filtering
//	@Tags			zettels
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			attr	query		string	false	"Filter by attribute, key=value"
//	@Param			sort	query		string	false	"Sort field"	Enums(updated, title, path)
//	@Success		200		{object}	ZettelListResponse
//	@Security		BearerAuth
//	@Router			/zettels [get]
func (h *Handler) ListZettels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	attr := q.Get("attr")
	sort := q.Get("sort")

	items, total, err := h.svc.ListZettels(r.Context(), limit, offset, attr, sort)
	if err != nil {
		slog.Error("list zettels failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"zettels": items,
		"total":   total,
	})
}

// GetZettel handles GET /api/zettels/*.
//
//	@Summary		Get a single zettel by path
//	@Tags			zettels
//	@Produce		json
//	@Param			path	path		string	true	"Zettel path"
//	@Success		200		{object}	ZettelDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/zettels/{path} [get]
func (h *Handler) GetZettel(w http.ResponseWriter, r *http.Request) {
	path := zettelPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	z, err := h.svc.GetZettel(r.Context(), path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get zettel failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, z)
}

// CreateZettel handles POST /api/zettels.
//
//	@Summary		Create a new zettel
//	@Tags			zettels
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateZettelRequest	true	"Zettel to create"
//	@Success		201		{object}	ZettelDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/zettels [post]
func (h *Handler) CreateZettel(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and content are required"))
		return
	}
	z, err := h.svc.CreateZettel(r.Context(), req.Path, []byte(req.Content))
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrAlreadyExists):
			writeJSON(w, http.StatusConflict, errorBody("zettel already exists"))
		case isParseError(err):
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		default:
			slog.Error("create zettel failed", slog.String("path", req.Path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, z)
}

// UpdateZettel handles PUT /api/zettels/*.
//
//	@Summary		Update a zettel with optimistic concurrency
//	@Tags			zettels
//	@Accept			json
//	@Produce		json
//	@Param			path		path	string				true	"Zettel path"
//	@Param			If-Match	header	string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body	UpdateZettelRequest	true	"Updated content"
//	@Success		200		{object}	ZettelDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/zettels/{path} [put]
func (h *Handler) UpdateZettel(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	path := zettelPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	ifMatch := r.Header.Get("If-Match")
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch = strings.Trim(ifMatch, `"`)

	z, err := h.svc.UpdateZettel(r.Context(), path, []byte(req.Content), ifMatch)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrConflict):
			writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
		case isParseError(err):
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		default:
			slog.Error("update zettel failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, z)
}

// DeleteZettel handles DELETE /api/zettels/*.
//
//	@Summary		Delete a zettel
//	@Tags			zettels
//	@Param			path	path	string	true	"Zettel path"
//	@Success		204		"Zettel deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/zettels/{path} [delete]
func (h *Handler) DeleteZettel(w http.ResponseWriter, r *http.Request) {
	path := zettelPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeleteZettel(r.Context(), path); err != nil {
		slog.Error("delete zettel failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across zettels
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the zlink graph
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, links, err := h.svc.Graph(r.Context())
	if err != nil {
		slog.Error("graph failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"nodes": nodes,
		"links": links,
	})
}

// Backlinks handles GET /api/backlinks/*.
//
//	@Summary		List zettels linking to the given path
//	@Tags			graph
//	@Produce		json
//	@Param			path	path		string	true	"Target zettel path"
//	@Success		200		{object}	BacklinksResponse
//	@Security		BearerAuth
//	@Router			/backlinks/{path} [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	path := zettelPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	bl, err := h.svc.Backlinks(r.Context(), path)
	if err != nil {
		slog.Error("backlinks failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if bl == nil {
		bl = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"backlinks": bl,
	})
}

func isParseError(err error) bool {
	var pe *zettel.ParseError
	return errors.As(err, &pe)
}
