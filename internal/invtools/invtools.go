// Package invtools provides MCP tool handlers for the inventory store.
//
// Each handler follows the same pattern as internal/tools: dependencies are
// injected through the constructor, Definition() returns the schema and
// Handle() processes a call.
package invtools

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/craftgraph/internal/inventory"
)

// Store is the inventory surface the tools use. *inventory.Store
// implements it.
type Store interface {
	Amount(ctx context.Context, name string) (int64, error)
	SetAmount(ctx context.Context, name string, amount int64) error
	Adjust(ctx context.Context, name string, delta int64) (int64, error)
	List(ctx context.Context, opts inventory.ListOptions) ([]inventory.Item, error)
	Stats(ctx context.Context) (*inventory.Stats, error)
}

// intArg extracts an integer argument, reporting whether it was present.
// JSON numbers arrive as float64; fractions are rejected.
func intArg(req mcp.CallToolRequest, key string) (int64, bool, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	v, ok := raw.(float64)
	if !ok || v != math.Trunc(v) || math.Abs(v) >= math.MaxInt64 {
		return 0, true, fmt.Errorf("'%s' must be an integer", key)
	}
	return int64(v), true, nil
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// ─── GetTool ─────────────────────────────────────────────────────────────────

// GetTool handles the inventory_get MCP tool.
type GetTool struct {
	store Store
}

// NewGetTool creates a GetTool.
func NewGetTool(store Store) *GetTool {
	return &GetTool{store: store}
}

// Definition returns the MCP tool definition for inventory_get.
func (t *GetTool) Definition() mcp.Tool {
	return mcp.NewTool("inventory_get",
		mcp.WithDescription("Get how many of an item are currently held. Untracked items count as 0."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Exact item name"),
		),
	)
}

// Handle processes the inventory_get tool call.
func (t *GetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := strings.TrimSpace(req.GetString("name", ""))
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}
	amount, err := t.store.Amount(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read inventory: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: %d", name, amount)), nil
}

// ─── SetTool ─────────────────────────────────────────────────────────────────

// SetTool handles the inventory_set MCP tool.
type SetTool struct {
	store Store
}

// NewSetTool creates a SetTool.
func NewSetTool(store Store) *SetTool {
	return &SetTool{store: store}
}

// Definition returns the MCP tool definition for inventory_set.
func (t *SetTool) Definition() mcp.Tool {
	return mcp.NewTool("inventory_set",
		mcp.WithDescription(
			"Record how many of an item are held. Pass 'amount' to set the quantity, or "+
				"'delta' to add (positive) or use up (negative) items; the result never goes below 0.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Exact item name"),
		),
		mcp.WithNumber("amount",
			mcp.Description("New held quantity (0 or more)"),
		),
		mcp.WithNumber("delta",
			mcp.Description("Change to apply to the held quantity"),
		),
	)
}

// Handle processes the inventory_set tool call.
func (t *SetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := strings.TrimSpace(req.GetString("name", ""))
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}
	amount, hasAmount, err := intArg(req, "amount")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	delta, hasDelta, err := intArg(req, "delta")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	switch {
	case hasAmount && hasDelta:
		return mcp.NewToolResultError("pass either 'amount' or 'delta', not both"), nil
	case hasAmount:
		if amount < 0 {
			return mcp.NewToolResultError("'amount' must not be negative"), nil
		}
		if err := t.store.SetAmount(ctx, name, amount); err != nil {
			return mcp.NewToolResultError(storeError(err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("%s set to %d", name, amount)), nil
	case hasDelta:
		next, err := t.store.Adjust(ctx, name, delta)
		if err != nil {
			return mcp.NewToolResultError(storeError(err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("%s: %+d → %d", name, delta, next)), nil
	default:
		return mcp.NewToolResultError("one of 'amount' or 'delta' is required"), nil
	}
}

func storeError(err error) string {
	if errors.Is(err, inventory.ErrInvalidName) {
		return "invalid item name: names must not be empty or purely numeric"
	}
	return fmt.Sprintf("failed to update inventory: %v", err)
}

// ─── ListTool ────────────────────────────────────────────────────────────────

// defaultListLimit caps inventory_list output unless a limit is given.
const defaultListLimit = 100

// ListTool handles the inventory_list MCP tool.
type ListTool struct {
	store Store
}

// NewListTool creates a ListTool.
func NewListTool(store Store) *ListTool {
	return &ListTool{store: store}
}

// Definition returns the MCP tool definition for inventory_list.
func (t *ListTool) Definition() mcp.Tool {
	return mcp.NewTool("inventory_list",
		mcp.WithDescription("List held items with their quantities."),
		mcp.WithString("filter",
			mcp.Description("Case-insensitive substring to match against names"),
		),
		mcp.WithBoolean("include_zero",
			mcp.Description("Also list tracked items with quantity 0 (default: false)"),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum items to return (default: %d)", defaultListLimit)),
		),
	)
}

// Handle processes the inventory_list tool call.
func (t *ListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit, hasLimit, err := intArg(req, "limit")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !hasLimit {
		limit = defaultListLimit
	}
	opts := inventory.ListOptions{
		Filter:      req.GetString("filter", ""),
		IncludeZero: boolArg(req, "include_zero", false),
		Limit:       int(max(limit, 0)),
	}

	items, err := t.store.List(ctx, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list inventory: %v", err)), nil
	}
	stats, err := t.store.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read inventory stats: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Inventory (%d held of %d tracked, %d units)\n\n", stats.Held, stats.Items, stats.TotalUnits)
	if len(items) == 0 {
		sb.WriteString("_No matching items._\n")
		return mcp.NewToolResultText(sb.String()), nil
	}
	for _, it := range items {
		fmt.Fprintf(&sb, "- %s: %d\n", it.Name, it.Amount)
	}
	return mcp.NewToolResultText(sb.String()), nil
}
