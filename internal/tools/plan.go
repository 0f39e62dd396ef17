package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/craftgraph/internal/plan"
	"github.com/HendryAvila/craftgraph/internal/resolver"
)

// PlanTool handles the craft_plan MCP tool. holdings may be nil, in which
// case the plan assumes nothing is held.
type PlanTool struct {
	resolver *resolver.Resolver
	holdings Holdings
}

// NewPlanTool creates a PlanTool.
func NewPlanTool(r *resolver.Resolver, h Holdings) *PlanTool {
	return &PlanTool{resolver: r, holdings: h}
}

// Definition returns the MCP tool definition for craft_plan.
func (t *PlanTool) Definition() mcp.Tool {
	return mcp.NewTool("craft_plan",
		mcp.WithDescription(
			"Plan crafting an item against the current inventory: which intermediates "+
				"to craft, what is covered by items already held, and which raw materials "+
				"are still missing.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Exact item name"),
		),
		mcp.WithNumber("amount",
			mcp.Description("How many to craft (positive integer, default: 1)"),
		),
		mcp.WithString("format",
			mcp.Description("'markdown' (default) or 'json'"),
			mcp.Enum("markdown", "json"),
		),
	)
}

// Handle processes the craft_plan tool call.
func (t *PlanTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := nameArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	amount, err := amountArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var held map[string]int64
	if t.holdings != nil {
		if held, err = t.holdings.Holdings(ctx); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("reading inventory: %v", err)), nil
		}
	}

	p := plan.Build(t.resolver.Snapshot(), name, amount, held)
	if req.GetString("format", "markdown") == "json" {
		return jsonResult(p)
	}
	return mcp.NewToolResultText(formatPlan(p)), nil
}

func formatPlan(p *plan.Plan) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Plan: %d × %s\n\n", p.Root.Required, p.Root.Name)
	if p.Root.Missing > 0 {
		sb.WriteString("_No known recipe for this item._\n\n")
	}

	var walk func(steps []*plan.Step, depth int)
	walk = func(steps []*plan.Step, depth int) {
		for _, s := range steps {
			fmt.Fprintf(&sb, "%s- %d × %s", strings.Repeat("  ", depth), s.Required, s.Name)
			var notes []string
			if s.FromStock > 0 {
				notes = append(notes, fmt.Sprintf("%d held", s.FromStock))
			}
			if s.Craft > 0 {
				notes = append(notes, fmt.Sprintf("craft %d", s.Craft))
			}
			if s.Missing > 0 {
				notes = append(notes, fmt.Sprintf("**missing %d**", s.Missing))
			}
			if len(notes) > 0 {
				fmt.Fprintf(&sb, " (%s)", strings.Join(notes, ", "))
			}
			sb.WriteString("\n")
			walk(s.Steps, depth+1)
		}
	}
	walk(p.Root.Steps, 0)

	sb.WriteString("\n### To craft\n\n")
	if p.Crafts.Len() == 0 {
		sb.WriteString("_Nothing beyond the item itself._\n")
	}
	for e := p.Crafts.Oldest(); e != nil; e = e.Next() {
		fmt.Fprintf(&sb, "- %d × %s\n", e.Value, e.Key)
	}

	sb.WriteString("\n### Missing\n\n")
	if p.Craftable {
		sb.WriteString("_Nothing: everything needed is held._\n")
	}
	for e := p.Missing.Oldest(); e != nil; e = e.Next() {
		fmt.Fprintf(&sb, "- %d × %s\n", e.Value, e.Key)
	}
	return sb.String()
}
