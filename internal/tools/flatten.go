package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/craftgraph/internal/resolver"
)

// FlattenTool handles the recipe_flatten MCP tool.
type FlattenTool struct {
	resolver *resolver.Resolver
}

// NewFlattenTool creates a FlattenTool.
func NewFlattenTool(r *resolver.Resolver) *FlattenTool {
	return &FlattenTool{resolver: r}
}

// Definition returns the MCP tool definition for recipe_flatten.
func (t *FlattenTool) Definition() mcp.Tool {
	return mcp.NewTool("recipe_flatten",
		mcp.WithDescription("Get only the direct ingredients of an item, scaled by 'amount', without expanding them."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Exact item name"),
		),
		mcp.WithNumber("amount",
			mcp.Description("How many to craft (positive integer, default: 1)"),
		),
	)
}

// Handle processes the recipe_flatten tool call.
func (t *FlattenTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := nameArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	amount, err := amountArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !t.resolver.Snapshot().Has(name) {
		return mcp.NewToolResultError(fmt.Sprintf("no recipe for %q", name)), nil
	}
	return jsonResult(t.resolver.Flatten(name, amount))
}
