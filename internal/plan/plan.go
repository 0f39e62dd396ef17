// Package plan works out what it takes to craft an item given what is
// already held.
package plan

import (
	"github.com/HendryAvila/craftgraph/internal/recipe"
)

// Step is one node of a craft plan.
type Step struct {
	Name      string  `json:"name"`
	Required  int64   `json:"required"`
	FromStock int64   `json:"from_stock"`
	Craft     int64   `json:"craft"`
	Missing   int64   `json:"missing"`
	Steps     []*Step `json:"steps"`
}

// Plan is the outcome of Build.
type Plan struct {
	Root *Step `json:"root"`
	// Crafts totals the intermediate items that must be crafted, in the
	// order they are first needed.
	Crafts *recipe.IngredientMap `json:"crafts"`
	// Missing totals the raw materials that are neither held nor craftable.
	Missing   *recipe.IngredientMap `json:"missing"`
	Craftable bool                  `json:"craftable"`
}

// Build plans amount units of name against holdings. The root item is
// always crafted. Every other item first draws on a running copy of
// holdings; only the shortfall is crafted from its recipe or, for items
// without one, reported missing. holdings is not modified.
func Build(snap *recipe.Snapshot, name string, amount int64, holdings map[string]int64) *Plan {
	if amount < 0 {
		amount = 0
	}
	b := &builder{
		snap:    snap,
		stock:   make(map[string]int64, len(holdings)),
		crafts:  recipe.NewIngredientMap(),
		missing: recipe.NewIngredientMap(),
	}
	for k, v := range holdings {
		if v > 0 {
			b.stock[k] = v
		}
	}

	root := &Step{Name: name, Required: amount, Craft: amount, Steps: []*Step{}}
	if ingredients, ok := snap.Ingredients(name); ok && ingredients.Len() > 0 {
		root.Steps = b.children(ingredients, amount)
	} else {
		root.Craft = 0
		root.Missing = amount
		if amount > 0 {
			b.add(b.missing, name, amount)
		}
	}

	return &Plan{
		Root:      root,
		Crafts:    b.crafts,
		Missing:   b.missing,
		Craftable: b.missing.Len() == 0,
	}
}

type builder struct {
	snap    *recipe.Snapshot
	stock   map[string]int64
	crafts  *recipe.IngredientMap
	missing *recipe.IngredientMap
}

func (b *builder) children(ingredients *recipe.IngredientMap, units int64) []*Step {
	steps := make([]*Step, 0, ingredients.Len())
	for p := ingredients.Oldest(); p != nil; p = p.Next() {
		steps = append(steps, b.step(p.Key, recipe.MulSat(p.Value, units)))
	}
	return steps
}

func (b *builder) step(name string, required int64) *Step {
	s := &Step{Name: name, Required: required, Steps: []*Step{}}

	take := min(b.stock[name], required)
	if take > 0 {
		b.stock[name] -= take
		s.FromStock = take
	}
	short := required - take
	if short == 0 {
		return s
	}

	ingredients, ok := b.snap.Ingredients(name)
	if !ok || ingredients.Len() == 0 {
		s.Missing = short
		b.add(b.missing, name, short)
		return s
	}
	s.Craft = short
	b.add(b.crafts, name, short)
	s.Steps = b.children(ingredients, short)
	return s
}

func (b *builder) add(m *recipe.IngredientMap, name string, n int64) {
	prev, _ := m.Get(name)
	m.Set(name, recipe.AddSat(prev, n))
}
