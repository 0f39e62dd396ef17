// Package render prints recipe trees and craft plans for the terminal.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/HendryAvila/craftgraph/internal/plan"
	"github.com/HendryAvila/craftgraph/internal/recipe"
)

// Options configures rendering.
type Options struct {
	NoColor bool
}

type palette struct {
	root, craft, leaf, amount, muted, warn *color.Color
}

func newPalette(opts *Options) palette {
	p := palette{
		root:   color.New(color.Bold, color.FgCyan),
		craft:  color.New(color.FgCyan),
		leaf:   color.New(color.FgGreen),
		amount: color.New(color.FgYellow),
		muted:  color.New(color.FgHiBlack),
		warn:   color.New(color.FgRed, color.Bold),
	}
	if opts != nil && opts.NoColor {
		for _, c := range []*color.Color{p.root, p.craft, p.leaf, p.amount, p.muted, p.warn} {
			c.DisableColor()
		}
	}
	return p
}

// Tree prints an expanded recipe as an indented tree:
//
//	2 × Enchanted Iron
//	└── 320 × Iron Ingot
func Tree(w io.Writer, root *recipe.Node, opts *Options) {
	p := newPalette(opts)
	p.amount.Fprintf(w, "%d ×", root.Amount)
	fmt.Fprint(w, " ")
	p.root.Fprintln(w, root.Name)
	treeChildren(w, p, root.Ingredients, "")
}

func treeChildren(w io.Writer, p palette, nodes []*recipe.Node, prefix string) {
	for i, n := range nodes {
		branch, next := "├── ", "│   "
		if i == len(nodes)-1 {
			branch, next = "└── ", "    "
		}
		p.muted.Fprint(w, prefix+branch)
		p.amount.Fprintf(w, "%d ×", n.Amount)
		fmt.Fprint(w, " ")
		if n.IsLeaf() {
			p.leaf.Fprintln(w, n.Name)
			continue
		}
		p.craft.Fprintln(w, n.Name)
		treeChildren(w, p, n.Ingredients, prefix+next)
	}
}

// Totals prints one "amount × name" line per entry, amounts right-aligned.
func Totals(w io.Writer, title string, totals *recipe.IngredientMap, opts *Options) {
	p := newPalette(opts)
	p.root.Fprintln(w, title)
	if totals.Len() == 0 {
		p.muted.Fprintln(w, "  (none)")
		return
	}
	width := 0
	for e := totals.Oldest(); e != nil; e = e.Next() {
		width = max(width, len(fmt.Sprint(e.Value)))
	}
	for e := totals.Oldest(); e != nil; e = e.Next() {
		fmt.Fprint(w, "  ")
		p.amount.Fprintf(w, "%*d ×", width, e.Value)
		fmt.Fprintf(w, " %s\n", e.Key)
	}
}

// Plan prints a craft plan: the step tree followed by the crafts and
// missing totals.
func Plan(w io.Writer, pl *plan.Plan, opts *Options) {
	p := newPalette(opts)
	p.root.Fprintf(w, "%d × %s\n", pl.Root.Required, pl.Root.Name)
	planSteps(w, p, pl.Root.Steps, "")
	fmt.Fprintln(w)
	Totals(w, "Craft", pl.Crafts, opts)
	Totals(w, "Missing", pl.Missing, opts)
	fmt.Fprintln(w)
	if pl.Craftable {
		p.leaf.Fprintln(w, "Craftable with current inventory.")
	} else {
		p.warn.Fprintln(w, "Not craftable: materials missing.")
	}
}

func planSteps(w io.Writer, p palette, steps []*plan.Step, prefix string) {
	for i, s := range steps {
		branch, next := "├── ", "│   "
		if i == len(steps)-1 {
			branch, next = "└── ", "    "
		}
		p.muted.Fprint(w, prefix+branch)
		fmt.Fprintf(w, "%d × %s", s.Required, s.Name)

		var notes []string
		if s.FromStock > 0 {
			notes = append(notes, p.leaf.Sprintf("%d held", s.FromStock))
		}
		if s.Craft > 0 {
			notes = append(notes, p.craft.Sprintf("craft %d", s.Craft))
		}
		if s.Missing > 0 {
			notes = append(notes, p.warn.Sprintf("missing %d", s.Missing))
		}
		if len(notes) > 0 {
			fmt.Fprintf(w, " (%s)", strings.Join(notes, ", "))
		}
		fmt.Fprintln(w)
		planSteps(w, p, s.Steps, prefix+next)
	}
}
