// Package zetservice coordinates storage, parsing, and index operations
// behind one API used by the REST handlers and the MCP server.
package zetservice

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/arnvald/zettel/internal/apperr"
	"github.com/arnvald/zettel/internal/checksum"
	"github.com/arnvald/zettel/internal/index"
	"github.com/arnvald/zettel/internal/storage"
	"github.com/arnvald/zettel/internal/zettel"
)

// Attribute is one typed attribute in wire order.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Kind  string `json:"kind"`
}

// ZettelDetail is the full representation of a zettel.
type ZettelDetail struct {
	Path       string      `json:"path"`
	Title      string      `json:"title"`
	Content    string      `json:"content"`
	Checksum   string      `json:"checksum"`
	Attributes []Attribute `json:"attributes"`
	Links      []string    `json:"links"`
	Backlinks  []string    `json:"backlinks"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// ZettelListItem is a lightweight item in a list response.
type ZettelListItem struct {
	Path      string            `json:"path"`
	Title     string            `json:"title"`
	Checksum  string            `json:"checksum"`
	Attrs     map[string]string `json:"attrs"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Service coordinates storage and index operations.
type Service struct {
	store   storage.Provider
	db      *index.DB
	dialect zettel.Dialect
}

// NewService creates a new zettel service.
func NewService(store storage.Provider, db *index.DB, d zettel.Dialect) *Service {
	return &Service{store: store, db: db, dialect: d}
}

// Dialect returns the vault dialect the service parses and renders.
func (s *Service) Dialect() zettel.Dialect { return s.dialect }

// GetZettel reads a zettel from storage, parses it, and enriches with backlinks.
func (s *Service) GetZettel(_ context.Context, path string) (*ZettelDetail, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return s.buildDetail(path, data)
}

// CreateZettel writes a new zettel and indexes it. The content must parse in
// the vault dialect before anything touches disk.
func (s *Service) CreateZettel(_ context.Context, path string, content []byte) (*ZettelDetail, error) {
	if _, err := zettel.Parse(string(content), s.dialect); err != nil {
		return nil, err
	}
	if _, err := s.store.Read(path); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	if err := s.IndexFile(path, content); err != nil {
		return nil, err
	}
	return s.buildDetail(path, content)
}

// UpdateZettel writes updated content with optimistic concurrency.
func (s *Service) UpdateZettel(_ context.Context, path string, content []byte, ifMatch string) (*ZettelDetail, error) {
	if _, err := zettel.Parse(string(content), s.dialect); err != nil {
		return nil, err
	}
	existing, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(existing) {
		return nil, apperr.ErrConflict
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	if err := s.IndexFile(path, content); err != nil {
		return nil, err
	}
	return s.buildDetail(path, content)
}

// DeleteZettel removes a zettel from storage and index.
func (s *Service) DeleteZettel(_ context.Context, path string) error {
	if err := s.store.Delete(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	return s.db.DeleteZettel(path)
}

// ListZettels returns paginated zettels with an optional key=value
// attribute filter.
func (s *Service) ListZettels(_ context.Context, limit, offset int, attr, sort string) ([]ZettelListItem, int, error) {
	rows, total, err := s.db.ListZettels(limit, offset, attr, sort)
	if err != nil {
		return nil, 0, err
	}
	items := make([]ZettelListItem, len(rows))
	for i, r := range rows {
		items[i] = ZettelListItem{
			Path:      r.Path,
			Title:     r.Title,
			Checksum:  r.Checksum,
			Attrs:     nonNilMap(r.Attrs),
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Graph returns all nodes and links for graph visualization.
func (s *Service) Graph(_ context.Context) ([]index.GraphNode, []index.GraphLink, error) {
	return s.db.Graph()
}

// Backlinks returns all zettel paths that link to the given target.
func (s *Service) Backlinks(_ context.Context, target string) ([]string, error) {
	return s.db.Backlinks(target)
}

// IndexFile parses data and upserts it into the index.
// Exported so that sync and watcher callers can reuse it.
func (s *Service) IndexFile(path string, data []byte) error {
	z, err := zettel.Parse(string(data), s.dialect)
	if err != nil {
		return err
	}
	attrs := make(map[string]string, z.Attrs.Len())
	for _, k := range z.Attrs.Keys() {
		v, _ := z.Attrs.Get(k)
		attrs[k] = v.String()
	}
	return s.db.UpsertZettel(index.ZettelRow{
		Path:      path,
		Title:     z.Title,
		Checksum:  checksum.Sum(data),
		Attrs:     attrs,
		CreatedAt: attrs["creation_date"],
		UpdatedAt: time.Now().UTC(),
	}, flattenBody(z), z.Links())
}

// buildDetail constructs a ZettelDetail from raw data without re-reading the file.
func (s *Service) buildDetail(path string, data []byte) (*ZettelDetail, error) {
	z, err := zettel.Parse(string(data), s.dialect)
	if err != nil {
		return nil, err
	}
	bl, err := s.db.Backlinks(path)
	if err != nil {
		return nil, err
	}
	return &ZettelDetail{
		Path:       path,
		Title:      z.Title,
		Content:    string(data),
		Checksum:   checksum.Sum(data),
		Attributes: wireAttributes(z.Attrs),
		Links:      z.Links(),
		Backlinks:  nonNilSlice(bl),
		UpdatedAt:  time.Now().UTC(),
	}, nil
}

// wireAttributes projects the ordered bag into the wire shape, keeping order.
func wireAttributes(attrs *zettel.Attributes) []Attribute {
	out := make([]Attribute, 0, attrs.Len())
	for _, k := range attrs.Keys() {
		v, _ := attrs.Get(k)
		out = append(out, Attribute{Key: k, Value: v.String(), Kind: kindString(v.Kind)})
	}
	return out
}

func kindString(k zettel.Kind) string {
	switch k {
	case zettel.KindDate:
		return "date"
	case zettel.KindDateTime:
		return "datetime"
	case zettel.KindLinks:
		return "links"
	default:
		return "text"
	}
}

func flattenBody(z *zettel.Zettel) string {
	out := ""
	for _, s := range z.Sections {
		if s.Heading != "" {
			if out != "" {
				out += "\n"
			}
			out += s.Heading
		}
		if s.Body != "" {
			if out != "" {
				out += "\n"
			}
			out += s.Body
		}
	}
	return out
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
