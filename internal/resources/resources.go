// Package resources implements MCP resource handlers for the recipe
// catalog.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (craft://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/craftgraph/internal/resolver"
)

const (
	NamesURI = "craft://recipes/names"
	StatsURI = "craft://recipes/stats"
)

// Handler serves the catalog resources.
type Handler struct {
	resolver *resolver.Resolver
}

// NewHandler creates a resource Handler.
func NewHandler(r *resolver.Resolver) *Handler {
	return &Handler{resolver: r}
}

// NamesResource returns the MCP resource definition for the name list.
func (h *Handler) NamesResource() mcp.Resource {
	return mcp.NewResource(
		NamesURI,
		"Craftable item names",
		mcp.WithResourceDescription("Every item with a known recipe, sorted case-insensitively"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleNames returns the name list as a JSON array.
func (h *Handler) HandleNames(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonContents(req.Params.URI, h.resolver.ListNames())
}

// StatsResource returns the MCP resource definition for catalog statistics.
func (h *Handler) StatsResource() mcp.Resource {
	return mcp.NewResource(
		StatsURI,
		"Recipe catalog statistics",
		mcp.WithResourceDescription("Recipe counts, catalog sources and sanitization results of the last reload"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStats returns resolver statistics as JSON.
func (h *Handler) HandleStats(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonContents(req.Params.URI, h.resolver.Stats())
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
