package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/craftgraph/internal/fetcher"
)

// FetchTool handles the recipe_fetch MCP tool. fetcher may be nil when
// remote fetching is disabled.
type FetchTool struct {
	fetcher Fetcher
}

// NewFetchTool creates a FetchTool.
func NewFetchTool(f Fetcher) *FetchTool {
	return &FetchTool{fetcher: f}
}

// Definition returns the MCP tool definition for recipe_fetch.
func (t *FetchTool) Definition() mcp.Tool {
	return mcp.NewTool("recipe_fetch",
		mcp.WithDescription(
			"Download the remote recipe catalogs now. Unchanged sources are skipped; "+
				"on change the catalogs are reloaded automatically.",
		),
	)
}

// Handle processes the recipe_fetch tool call.
func (t *FetchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.fetcher == nil {
		return mcp.NewToolResultError("remote fetching is disabled (fetch.enabled = false)"), nil
	}

	res, err := t.fetcher.Run(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("fetch failed: %v", err)), nil
	}

	var sb strings.Builder
	switch res.Outcome {
	case fetcher.OutcomeUpdated:
		fmt.Fprintf(&sb, "Updated from %s: %d crafting recipes", res.Source, res.Recipes)
		if res.ForgeRecipes > 0 {
			fmt.Fprintf(&sb, ", %d forge recipes", res.ForgeRecipes)
		}
		sb.WriteString(".")
	case fetcher.OutcomeNotModified:
		fmt.Fprintf(&sb, "%s is unchanged.", res.Source)
	case fetcher.OutcomeNoSources:
		sb.WriteString("No remote sources are configured.")
	default:
		fmt.Fprintf(&sb, "Fetch finished: %s.", res.Outcome)
	}
	if res.NotifyError != "" {
		fmt.Fprintf(&sb, "\nWARNING: inventory update failed: %s", res.NotifyError)
	}
	if res.ReloadError != "" {
		fmt.Fprintf(&sb, "\nWARNING: reload failed: %s", res.ReloadError)
	}
	return mcp.NewToolResultText(sb.String()), nil
}
