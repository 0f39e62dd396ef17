// Package prompts implements MCP prompt handlers.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// PlanPrompt handles the craft-plan MCP prompt. It walks the AI through
// finding an item, planning it against the inventory and summarizing the
// shopping list.
type PlanPrompt struct{}

// NewPlanPrompt creates a PlanPrompt.
func NewPlanPrompt() *PlanPrompt {
	return &PlanPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *PlanPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("craft-plan",
		mcp.WithPromptDescription(
			"Plan crafting an item: look up its recipe, compare it with what you hold "+
				"and list what is still missing.",
		),
		mcp.WithArgument("item",
			mcp.ArgumentDescription("Item to craft (a partial name is fine)"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("amount",
			mcp.ArgumentDescription("How many to craft. Default: 1"),
		),
	)
}

// Handle processes the craft-plan prompt request.
func (p *PlanPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	item := ""
	amount := "1"
	if args := req.Params.Arguments; args != nil {
		item = strings.TrimSpace(args["item"])
		if a := strings.TrimSpace(args["amount"]); a != "" {
			amount = a
		}
	}
	if item == "" {
		return nil, fmt.Errorf("argument 'item' is required")
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Craft plan: %s × %s", amount, item),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to craft %s × %s.\n\n"+
						"Please:\n"+
						"1. Run `recipe_list` with filter='%s' to find the exact item name; ask me if several match\n"+
						"2. Run `craft_plan` with that name and amount=%s\n"+
						"3. Summarize which intermediate items I need to craft, in order\n"+
						"4. List the raw materials I am still missing as a shopping list\n"+
						"5. If I tell you I gathered something, record it with `inventory_set` and re-run `craft_plan`",
					amount, item, item, amount,
				)),
			},
		},
	}, nil
}
