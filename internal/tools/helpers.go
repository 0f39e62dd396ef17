// Package tools implements the MCP tool handlers for recipe queries.
//
// Each tool is a struct that receives its dependencies through its
// constructor, exposes Definition() for registration and Handle() for
// calls. Query tools answer from the resolver's published snapshot and
// never block on a reload.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/craftgraph/internal/fetcher"
)

// Fetcher refreshes the remote catalogs. *fetcher.Fetcher implements it.
type Fetcher interface {
	Run(ctx context.Context) (fetcher.Result, error)
}

// Holdings reports what the user currently holds. *inventory.Store
// implements it.
type Holdings interface {
	Holdings(ctx context.Context) (map[string]int64, error)
}

// amountArg reads a positive integer "amount" argument, defaulting to 1.
// JSON numbers arrive as float64; numeric strings are accepted too.
func amountArg(req mcp.CallToolRequest) (int64, error) {
	raw, ok := req.GetArguments()["amount"]
	if !ok || raw == nil {
		return 1, nil
	}
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("'amount' must be a positive integer, got %q", v)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("'amount' must be a positive integer")
	}
	if f < 1 || f != math.Trunc(f) || f >= math.MaxInt64 {
		return 0, fmt.Errorf("'amount' must be a positive integer, got %v", f)
	}
	return int64(f), nil
}

// nameArg reads the required "name" argument.
func nameArg(req mcp.CallToolRequest) (string, error) {
	name := strings.TrimSpace(req.GetString("name", ""))
	if name == "" {
		return "", fmt.Errorf("'name' is required")
	}
	return name, nil
}

// jsonResult returns v as indented JSON text.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
