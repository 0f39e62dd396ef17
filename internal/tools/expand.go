package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/craftgraph/internal/recipe"
	"github.com/HendryAvila/craftgraph/internal/resolver"
)

// ExpandTool handles the recipe_expand MCP tool.
type ExpandTool struct {
	resolver *resolver.Resolver
}

// NewExpandTool creates an ExpandTool.
func NewExpandTool(r *resolver.Resolver) *ExpandTool {
	return &ExpandTool{resolver: r}
}

// Definition returns the MCP tool definition for recipe_expand.
func (t *ExpandTool) Definition() mcp.Tool {
	return mcp.NewTool("recipe_expand",
		mcp.WithDescription(
			"Show the full crafting tree of an item as an indented outline, followed by "+
				"the total raw materials. Items without a recipe are leaves.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Exact item name"),
		),
		mcp.WithNumber("amount",
			mcp.Description("How many to craft (positive integer, default: 1)"),
		),
	)
}

// Handle processes the recipe_expand tool call.
func (t *ExpandTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := nameArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	amount, err := amountArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	root := t.resolver.Expand(name, amount)

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %d × %s\n\n", root.Amount, root.Name)
	if root.IsLeaf() {
		sb.WriteString("_No known recipe: this is a raw material._\n")
		return mcp.NewToolResultText(sb.String()), nil
	}

	root.Walk(func(n *recipe.Node, depth int) {
		if depth == 0 {
			return
		}
		fmt.Fprintf(&sb, "%s- %d × %s\n", strings.Repeat("  ", depth-1), n.Amount, n.Name)
	})

	sb.WriteString("\n### Raw materials\n\n")
	totals := root.LeafTotals()
	for p := totals.Oldest(); p != nil; p = p.Next() {
		fmt.Fprintf(&sb, "- %d × %s\n", p.Value, p.Key)
	}
	return mcp.NewToolResultText(sb.String()), nil
}
