package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/craftgraph/internal/resolver"
)

// ReloadTool handles the recipe_reload MCP tool.
type ReloadTool struct {
	resolver *resolver.Resolver
}

// NewReloadTool creates a ReloadTool.
func NewReloadTool(r *resolver.Resolver) *ReloadTool {
	return &ReloadTool{resolver: r}
}

// Definition returns the MCP tool definition for recipe_reload.
func (t *ReloadTool) Definition() mcp.Tool {
	return mcp.NewTool("recipe_reload",
		mcp.WithDescription(
			"Re-read the recipe catalogs from the data directory and publish the result. "+
				"Queries keep answering from the previous catalog until the reload completes.",
		),
	)
}

// Handle processes the recipe_reload tool call.
func (t *ReloadTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := t.resolver.Reload(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reload failed: %v", err)), nil
	}
	st := t.resolver.Stats()
	return mcp.NewToolResultText(fmt.Sprintf(
		"Reloaded %d recipes in %s (reload #%d).",
		st.Recipes, st.LastDuration, st.Reloads,
	)), nil
}
