// Package recipe is the crafting-graph engine: the recipe map types, the
// sanitizer that turns merged catalog data into an acyclic graph, and the
// expander that walks that graph into quantity-scaled trees.
//
// Raw merged data (*RecipeMap) and sanitized data (*Snapshot) are different
// types. Expansion is only available on a Snapshot, and a Snapshot can only
// be produced by Sanitize, so recursive expansion never sees a cycle.
package recipe

import (
	"math"
	"strings"
	"unicode"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// IngredientMap maps an ingredient name to the quantity needed for one
// craft of its output. Iteration follows insertion order.
type IngredientMap = orderedmap.OrderedMap[string, int64]

// RecipeMap maps an output item name to its ingredients. Iteration follows
// insertion order; overwriting an existing key keeps its original position.
type RecipeMap = orderedmap.OrderedMap[string, *IngredientMap]

// NewRecipeMap returns an empty RecipeMap.
func NewRecipeMap() *RecipeMap {
	return orderedmap.New[string, *IngredientMap]()
}

// NewIngredientMap returns an empty IngredientMap.
func NewIngredientMap() *IngredientMap {
	return orderedmap.New[string, int64]()
}

// ValidName reports whether name can be used as an item key: non-empty and
// not made only of digits (a common artifact of malformed catalog data).
func ValidName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// ReferencedNames returns every name that appears in m as an output or as an
// ingredient, de-duplicated, in first-seen order.
func ReferencedNames(m *RecipeMap) []string {
	if m == nil {
		return nil
	}
	seen := make(map[string]struct{}, m.Len())
	var names []string
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	for p := m.Oldest(); p != nil; p = p.Next() {
		add(p.Key)
	}
	for p := m.Oldest(); p != nil; p = p.Next() {
		if p.Value == nil {
			continue
		}
		for ip := p.Value.Oldest(); ip != nil; ip = ip.Next() {
			add(ip.Key)
		}
	}
	return names
}

// MulSat multiplies two quantities, saturating at math.MaxInt64.
// Non-positive operands yield 0.
func MulSat(a, b int64) int64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	if a > math.MaxInt64/b {
		return math.MaxInt64
	}
	return a * b
}

// AddSat adds two non-negative quantities, saturating at math.MaxInt64.
func AddSat(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

func cloneIngredients(in *IngredientMap) *IngredientMap {
	out := NewIngredientMap()
	if in == nil {
		return out
	}
	for p := in.Oldest(); p != nil; p = p.Next() {
		out.Set(p.Key, p.Value)
	}
	return out
}

func cloneRecipes(in *RecipeMap) *RecipeMap {
	out := NewRecipeMap()
	if in == nil {
		return out
	}
	for p := in.Oldest(); p != nil; p = p.Next() {
		out.Set(p.Key, cloneIngredients(p.Value))
	}
	return out
}

// ─── Decompression recipes ──────────────────────────────────────────────────

// decompressionBases are items whose catalog entry is often the reverse of
// their block recipe ("Diamond" made from "Block of Diamond"). Keeping both
// directions is a guaranteed 2-cycle, so the breaking-down direction goes.
var decompressionBases = map[string]struct{}{
	"Diamond":      {},
	"Iron Ingot":   {},
	"Coal":         {},
	"Gold Ingot":   {},
	"Lapis Lazuli": {},
	"Emerald":      {},
	"Redstone":     {},
	"Quartz":       {},
	"White Wool":   {},
	"Hay Bale":     {},
	"Melon":        {},
}

// blockForms returns the names a compressed block of base goes by.
func blockForms(base string) []string {
	core := strings.TrimSuffix(base, " Ingot")
	return []string{"Block of " + core, core + " Block"}
}

// isDecompression reports whether output's recipe is a block being broken
// back down into output.
func isDecompression(output string, ingredients *IngredientMap) bool {
	if _, ok := decompressionBases[output]; !ok {
		return false
	}
	forms := blockForms(output)
	for p := ingredients.Oldest(); p != nil; p = p.Next() {
		for _, form := range forms {
			if strings.EqualFold(form, p.Key) {
				return true
			}
		}
	}
	return false
}
