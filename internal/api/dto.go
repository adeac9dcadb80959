package api

import (
	"github.com/arnvald/zettel/internal/zetservice"
)

// CreateZettelRequest is the request body for creating a zettel.
type CreateZettelRequest struct {
	Path    string `json:"path" example:"topics/groceries.md" validate:"required"`
	Content string `json:"content" example:"# Groceries\nmilk" validate:"required"`
}

// UpdateZettelRequest is the request body for updating a zettel.
type UpdateZettelRequest struct {
	Content string `json:"content" example:"# Groceries\neggs" validate:"required"`
}

// ZettelDetail is the full zettel response type (aliased from the domain layer).
type ZettelDetail = zetservice.ZettelDetail

// ZettelListItem is a lightweight item in a list response (aliased from the domain layer).
type ZettelListItem = zetservice.ZettelListItem

// ZettelListResponse wraps paginated zettel listings.
type ZettelListResponse struct {
	Zettels []ZettelListItem `json:"zettels" validate:"required"`
	Total   int              `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path    string `json:"path" example:"topics/groceries.md" validate:"required"`
	Title   string `json:"title" example:"Groceries" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// GraphNode is a node in the zlink graph.
type GraphNode struct {
	Path  string `json:"path" example:"topics/groceries.md" validate:"required"`
	Title string `json:"title,omitempty" example:"Groceries"`
	Links int    `json:"links" example:"2"`
}

// GraphLink is a directed edge in the zlink graph.
type GraphLink struct {
	Source string `json:"source" example:"topics/groceries.md" validate:"required"`
	Target string `json:"target" example:"topics/errands.md" validate:"required"`
}

// GraphResponse wraps the zlink graph.
type GraphResponse struct {
	Nodes []GraphNode `json:"nodes" validate:"required"`
	Links []GraphLink `json:"links" validate:"required"`
}

// BacklinksResponse wraps a backlink listing.
type BacklinksResponse struct {
	Backlinks []string `json:"backlinks" validate:"required"`
}

// AttachmentUploadResponse is returned after a successful attachment upload.
type AttachmentUploadResponse struct {
	Filename string `json:"filename" example:"image.png" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	URL      string `json:"url" example:"/attachments/image.png" validate:"required"`
}
