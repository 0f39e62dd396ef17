package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/craftgraph/internal/resolver"
)

// GetTool handles the recipe_get MCP tool.
type GetTool struct {
	resolver *resolver.Resolver
}

// NewGetTool creates a GetTool.
func NewGetTool(r *resolver.Resolver) *GetTool {
	return &GetTool{resolver: r}
}

// Definition returns the MCP tool definition for recipe_get.
func (t *GetTool) Definition() mcp.Tool {
	return mcp.NewTool("recipe_get",
		mcp.WithDescription(
			"Get the recipe for an item: its direct ingredients scaled by 'amount' "+
				"(simple_recipe) and the complete breakdown down to raw materials "+
				"(full_recipe). Names are matched exactly; use recipe_list to find them.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Exact item name, e.g. 'Enchanted Iron'"),
		),
		mcp.WithNumber("amount",
			mcp.Description("How many to craft (positive integer, default: 1)"),
		),
	)
}

// Handle processes the recipe_get tool call.
func (t *GetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := nameArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	amount, err := amountArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, ok := t.resolver.GetRecipe(name, amount)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("no recipe for %q; use recipe_list to search names", name)), nil
	}
	return jsonResult(resp)
}
