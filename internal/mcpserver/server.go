// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes vault tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/arnvald/zettel/internal/storage"
	"github.com/arnvald/zettel/internal/zetservice"
)

// Server wraps the MCP server with vault tools.
type Server struct {
	mcp   *server.MCPServer
	store storage.Provider
	svc   *zetservice.Service
}

// New creates a new MCP server with all vault tools registered.
func New(store storage.Provider, svc *zetservice.Service) *Server {
	s := &Server{store: store, svc: svc}

	s.mcp = server.NewMCPServer(
		"Zettel",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_zettels",
		mcp.WithDescription("Full-text search through zettel content, titles, and attribute values."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchZettels)

	s.mcp.AddTool(mcp.NewTool("read_zettel",
		mcp.WithDescription("Read the full content of a zettel."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the zettel (e.g. topics/groceries.md)")),
	), s.readZettel)

	s.mcp.AddTool(mcp.NewTool("create_zettel",
		mcp.WithDescription("Create a new zettel at the specified path. "+
			"Content MUST follow the canonical zettel format (optional title heading, "+
			"section headings, attribute block with key: value lines). Read the contract "+
			"first via the get_zettel_contract tool or the zettel://format resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new zettel")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Content following the zettel format contract")),
	), s.createZettel)

	s.mcp.AddTool(mcp.NewTool("get_zettel_contract",
		mcp.WithDescription("Returns the canonical zettel format contract. "+
			"Call this before creating or updating zettels to ensure correct structure."),
	), s.getZettelContract)

	s.mcp.AddTool(mcp.NewTool("list_zettels",
		mcp.WithDescription("List all zettels or zettels in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listZettels)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all zettels whose zlinks point at the specified zettel."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the zettel to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Download an asset from a URL (or decode a data: URI) and "+
			"store it in the vault's attachments directory."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or base64 data: URI of the asset")),
		mcp.WithString("filename", mcp.Description("Optional filename override")),
	), s.uploadAsset)

	// Resource: zettel format contract.
	s.mcp.AddResource(
		mcp.NewResource("zettel://format", "Zettel Format Contract",
			mcp.WithResourceDescription("Canonical zettel format that all vault documents must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchZettels(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readZettel(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) createZettel(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if _, err := s.svc.CreateZettel(ctx, path, []byte(content)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", path)), nil
}

func (s *Server) listZettels(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := ""
	if f, err := req.RequireString("folder"); err == nil {
		folder = f
	}

	metas, err := s.store.List(folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, m := range metas {
		paths = append(paths, m.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) getZettelContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ZettelFormatContract), nil
}

func (s *Server) readFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "zettel://format",
			MIMEType: "text/markdown",
			Text:     ZettelFormatContract,
		},
	}, nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}
