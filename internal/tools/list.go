package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/craftgraph/internal/resolver"
)

// defaultListLimit caps recipe_list output unless a limit is given.
const defaultListLimit = 200

// ListTool handles the recipe_list MCP tool.
type ListTool struct {
	resolver *resolver.Resolver
}

// NewListTool creates a ListTool.
func NewListTool(r *resolver.Resolver) *ListTool {
	return &ListTool{resolver: r}
}

// Definition returns the MCP tool definition for recipe_list.
func (t *ListTool) Definition() mcp.Tool {
	return mcp.NewTool("recipe_list",
		mcp.WithDescription(
			"List the names of every craftable item, sorted case-insensitively. "+
				"Use 'filter' to narrow the list before calling recipe_get.",
		),
		mcp.WithString("filter",
			mcp.Description("Case-insensitive substring to match against names"),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum names to return (default: %d, 0 for all)", defaultListLimit)),
		),
	)
}

// Handle processes the recipe_list tool call.
func (t *ListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := strings.ToLower(strings.TrimSpace(req.GetString("filter", "")))
	limit := int(req.GetFloat("limit", defaultListLimit))

	names := t.resolver.ListNames()
	matched := make([]string, 0, len(names))
	for _, n := range names {
		if filter == "" || strings.Contains(strings.ToLower(n), filter) {
			matched = append(matched, n)
		}
	}
	if len(matched) == 0 {
		if filter != "" {
			return mcp.NewToolResultText(fmt.Sprintf("No recipes match %q.", filter)), nil
		}
		return mcp.NewToolResultText("No recipes loaded."), nil
	}

	shown := matched
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Recipes (%d", len(matched))
	if len(shown) < len(matched) {
		fmt.Fprintf(&sb, ", showing %d", len(shown))
	}
	sb.WriteString(")\n\n")
	for _, n := range shown {
		fmt.Fprintf(&sb, "- %s\n", n)
	}
	return mcp.NewToolResultText(sb.String()), nil
}
