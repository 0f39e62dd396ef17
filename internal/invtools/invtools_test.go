package invtools

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/craftgraph/internal/inventory"
)

// ─── Test helpers ────────────────────────────────────────────────────────────

// newTestStore creates an inventory.Store in a temp directory for testing.
func newTestStore(t *testing.T) *inventory.Store {
	t.Helper()
	store, err := inventory.New(inventory.Config{Path: filepath.Join(t.TempDir(), "inventory.db")})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// ─── Definitions ─────────────────────────────────────────────────────────────

func TestDefinitions(t *testing.T) {
	store := newTestStore(t)
	tests := []struct {
		def  mcp.Tool
		name string
	}{
		{NewGetTool(store).Definition(), "inventory_get"},
		{NewSetTool(store).Definition(), "inventory_set"},
		{NewListTool(store).Definition(), "inventory_list"},
	}
	for _, tt := range tests {
		if tt.def.Name != tt.name {
			t.Errorf("tool name = %q, want %q", tt.def.Name, tt.name)
		}
	}

	set := NewSetTool(store).Definition()
	for _, p := range []string{"name", "amount", "delta"} {
		if _, ok := set.InputSchema.Properties[p]; !ok {
			t.Errorf("inventory_set missing %q parameter", p)
		}
	}
}

// ─── GetTool ─────────────────────────────────────────────────────────────────

func TestGetTool(t *testing.T) {
	store := newTestStore(t)
	if err := store.SetAmount(context.Background(), "Iron Ingot", 64); err != nil {
		t.Fatal(err)
	}
	tool := NewGetTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"name": "Iron Ingot"}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if got := resultText(result); got != "Iron Ingot: 64" {
		t.Errorf("result = %q", got)
	}

	result, _ = tool.Handle(context.Background(), makeReq(map[string]interface{}{"name": "Gold"}))
	if got := resultText(result); got != "Gold: 0" {
		t.Errorf("result = %q", got)
	}

	result, _ = tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	if !result.IsError {
		t.Error("expected error for missing name")
	}
}

// ─── SetTool ─────────────────────────────────────────────────────────────────

func TestSetTool_Amount(t *testing.T) {
	store := newTestStore(t)
	tool := NewSetTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"name": "Iron Ingot", "amount": float64(100)}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", resultText(result))
	}
	if got, _ := store.Amount(context.Background(), "Iron Ingot"); got != 100 {
		t.Errorf("stored amount = %d, want 100", got)
	}
}

func TestSetTool_Delta(t *testing.T) {
	store := newTestStore(t)
	tool := NewSetTool(store)
	ctx := context.Background()

	_, _ = tool.Handle(ctx, makeReq(map[string]interface{}{"name": "Coal", "delta": float64(10)}))
	result, _ := tool.Handle(ctx, makeReq(map[string]interface{}{"name": "Coal", "delta": float64(-25)}))
	if !strings.Contains(resultText(result), "-25 → 0") {
		t.Errorf("result = %q", resultText(result))
	}
	if got, _ := store.Amount(ctx, "Coal"); got != 0 {
		t.Errorf("stored amount = %d, want 0", got)
	}
}

func TestSetTool_Errors(t *testing.T) {
	tool := NewSetTool(newTestStore(t))
	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"missing name", map[string]interface{}{"amount": float64(1)}, "'name' is required"},
		{"nothing to do", map[string]interface{}{"name": "Coal"}, "is required"},
		{"both", map[string]interface{}{"name": "Coal", "amount": float64(1), "delta": float64(1)}, "not both"},
		{"negative", map[string]interface{}{"name": "Coal", "amount": float64(-1)}, "must not be negative"},
		{"fraction", map[string]interface{}{"name": "Coal", "amount": 1.5}, "must be an integer"},
		{"numeric name", map[string]interface{}{"name": "123", "amount": float64(1)}, "invalid item name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tool.Handle(context.Background(), makeReq(tt.args))
			if err != nil {
				t.Fatalf("Handle: %v", err)
			}
			if !result.IsError {
				t.Fatal("expected error result")
			}
			if !strings.Contains(resultText(result), tt.want) {
				t.Errorf("got %q, want mention of %q", resultText(result), tt.want)
			}
		})
	}
}

// ─── ListTool ────────────────────────────────────────────────────────────────

func TestListTool(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.EnsureNames(ctx, []string{"Iron Ingot", "Gold Ingot", "Coal"}); err != nil {
		t.Fatal(err)
	}
	_ = store.SetAmount(ctx, "Iron Ingot", 5)
	_ = store.SetAmount(ctx, "Gold Ingot", 2)
	tool := NewListTool(store)

	text := resultText(mustHandle(t, tool, nil))
	if !strings.Contains(text, "(2 held of 3 tracked, 7 units)") {
		t.Errorf("header = %q", text)
	}
	if strings.Contains(text, "Coal") {
		t.Error("zero quantities should be hidden by default")
	}
	if strings.Index(text, "Gold Ingot") > strings.Index(text, "Iron Ingot") {
		t.Error("items should be sorted by name")
	}

	text = resultText(mustHandle(t, tool, map[string]interface{}{"include_zero": true, "filter": "coal"}))
	if !strings.Contains(text, "- Coal: 0") {
		t.Errorf("include_zero output = %q", text)
	}

	text = resultText(mustHandle(t, tool, map[string]interface{}{"filter": "diamond"}))
	if !strings.Contains(text, "No matching items") {
		t.Errorf("no-match output = %q", text)
	}
}

func mustHandle(t *testing.T, tool *ListTool, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	result, err := tool.Handle(context.Background(), makeReq(args))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", resultText(result))
	}
	return result
}
