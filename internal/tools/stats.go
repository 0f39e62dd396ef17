package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/craftgraph/internal/resolver"
)

// StatsTool handles the recipe_stats MCP tool.
type StatsTool struct {
	resolver *resolver.Resolver
}

// NewStatsTool creates a StatsTool.
func NewStatsTool(r *resolver.Resolver) *StatsTool {
	return &StatsTool{resolver: r}
}

// Definition returns the MCP tool definition for recipe_stats.
func (t *StatsTool) Definition() mcp.Tool {
	return mcp.NewTool("recipe_stats",
		mcp.WithDescription(
			"Report on the loaded catalog: recipe counts, which catalog files were used, "+
				"and what sanitization removed (self references, redundant ingredients, cycle edges).",
		),
	)
}

// Handle processes the recipe_stats tool call.
func (t *StatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st := t.resolver.Stats()
	rep := st.Sanitize

	var sb strings.Builder
	sb.WriteString("## Recipe catalog\n\n")
	fmt.Fprintf(&sb, "- **Recipes**: %d (%d distinct names)\n", st.Recipes, st.Names)
	fmt.Fprintf(&sb, "- **Reloads**: %d", st.Reloads)
	if !st.LastReload.IsZero() {
		fmt.Fprintf(&sb, " (last at %s, took %s)", st.LastReload.Format("2006-01-02 15:04:05"), st.LastDuration)
	}
	sb.WriteString("\n\n### Sources\n\n")
	for _, src := range st.Load.Sources {
		fmt.Fprintf(&sb, "- `%s`: %s", src.File, src.State)
		if src.Entries > 0 {
			fmt.Fprintf(&sb, " (%d entries)", src.Entries)
		}
		if src.Error != "" {
			fmt.Fprintf(&sb, ": %s", src.Error)
		}
		sb.WriteString("\n")
	}
	if st.Load.NotifyError != "" {
		fmt.Fprintf(&sb, "\nWARNING: inventory update failed: %s\n", st.Load.NotifyError)
	}

	sb.WriteString("\n### Sanitization\n\n")
	fmt.Fprintf(&sb, "- Entries in: %d, out: %d\n", rep.InputEntries, rep.OutputEntries)
	fmt.Fprintf(&sb, "- Dropped: %d emptied, %d decompression\n", rep.EmptiedEntries, rep.DecompressionEntries)
	fmt.Fprintf(&sb, "- Removed ingredients: %d malformed, %d self references, %d redundant\n",
		rep.MalformedIngredients, rep.SelfReferences, rep.RedundantIngredients)
	fmt.Fprintf(&sb, "- Cycle edges cut: %d\n", len(rep.CycleEdges))
	for _, e := range rep.CycleEdges {
		fmt.Fprintf(&sb, "  - %s → %s\n", e.From, e.To)
	}
	return mcp.NewToolResultText(sb.String()), nil
}
