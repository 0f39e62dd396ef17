package recipe

import (
	"cmp"
	"slices"
	"strings"
)

// Node is one item in an expanded recipe tree. Ingredients is empty exactly
// when the item has no known recipe.
type Node struct {
	Name        string  `json:"name"`
	Amount      int64   `json:"amount"`
	Ingredients []*Node `json:"ingredients"`
}

// IsLeaf reports whether the node has no known recipe.
func (n *Node) IsLeaf() bool {
	return len(n.Ingredients) == 0
}

// Walk calls fn for n and every descendant, depth first, parents before
// children. depth is 0 for n.
func (n *Node) Walk(fn func(node *Node, depth int)) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int), depth int) {
	fn(n, depth)
	for _, child := range n.Ingredients {
		child.walk(fn, depth+1)
	}
}

// LeafTotals sums the amounts of all leaf nodes by name: the raw materials
// needed to craft n from scratch.
func (n *Node) LeafTotals() *IngredientMap {
	totals := NewIngredientMap()
	n.Walk(func(node *Node, depth int) {
		if depth == 0 || !node.IsLeaf() {
			return
		}
		prev, _ := totals.Get(node.Name)
		totals.Set(node.Name, AddSat(prev, node.Amount))
	})
	return totals
}

// Response is the answer to a recipe query: the direct ingredients scaled by
// the requested amount plus the full breakdown tree.
type Response struct {
	Name         string         `json:"name"`
	SimpleRecipe *IngredientMap `json:"simple_recipe"`
	FullRecipe   *Node          `json:"full_recipe"`
}

// Snapshot is an immutable, sanitized recipe map. Its graph is acyclic, so
// expansion always terminates.
type Snapshot struct {
	recipes *RecipeMap
	names   []string
	report  SanitizeReport
}

// EmptySnapshot returns a snapshot with no recipes.
func EmptySnapshot() *Snapshot {
	return newSnapshot(NewRecipeMap(), SanitizeReport{})
}

func newSnapshot(m *RecipeMap, rep SanitizeReport) *Snapshot {
	return &Snapshot{recipes: m, names: sortedNames(m), report: rep}
}

// sortedNames orders outputs case-insensitively. Names equal up to case
// collapse into the first one seen.
func sortedNames(m *RecipeMap) []string {
	seen := make(map[string]struct{}, m.Len())
	names := make([]string, 0, m.Len())
	for p := m.Oldest(); p != nil; p = p.Next() {
		folded := strings.ToLower(p.Key)
		if _, ok := seen[folded]; ok {
			continue
		}
		seen[folded] = struct{}{}
		names = append(names, p.Key)
	}
	slices.SortStableFunc(names, func(a, b string) int {
		if c := cmp.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return names
}

// Len returns the number of outputs with a known recipe.
func (s *Snapshot) Len() int {
	return s.recipes.Len()
}

// Has reports whether name is a known output.
func (s *Snapshot) Has(name string) bool {
	_, ok := s.recipes.Get(name)
	return ok
}

// Ingredients returns a copy of name's per-craft ingredients.
func (s *Snapshot) Ingredients(name string) (*IngredientMap, bool) {
	ingredients, ok := s.recipes.Get(name)
	if !ok {
		return nil, false
	}
	return cloneIngredients(ingredients), true
}

// Names returns the known outputs sorted case-insensitively.
func (s *Snapshot) Names() []string {
	return slices.Clone(s.names)
}

// Recipes returns a deep copy of the sanitized map in insertion order.
func (s *Snapshot) Recipes() *RecipeMap {
	return cloneRecipes(s.recipes)
}

// Report returns what sanitization removed while building the snapshot.
func (s *Snapshot) Report() SanitizeReport {
	rep := s.report
	rep.CycleEdges = slices.Clone(s.report.CycleEdges)
	return rep
}

// Expand builds the crafting tree for multiplier units of name. An unknown
// name yields a single leaf node. Negative multipliers are treated as 0.
func (s *Snapshot) Expand(name string, multiplier int64) *Node {
	if multiplier < 0 {
		multiplier = 0
	}
	ingredients, ok := s.recipes.Get(name)
	if !ok {
		return &Node{Name: name, Amount: multiplier, Ingredients: []*Node{}}
	}
	children := make([]*Node, 0, ingredients.Len())
	for p := ingredients.Oldest(); p != nil; p = p.Next() {
		children = append(children, s.Expand(p.Key, MulSat(p.Value, multiplier)))
	}
	return &Node{Name: name, Amount: multiplier, Ingredients: children}
}

// Flatten returns name's direct ingredients scaled by multiplier, without
// recursing. Unknown names yield an empty map.
func (s *Snapshot) Flatten(name string, multiplier int64) *IngredientMap {
	out := NewIngredientMap()
	ingredients, ok := s.recipes.Get(name)
	if !ok {
		return out
	}
	for p := ingredients.Oldest(); p != nil; p = p.Next() {
		out.Set(p.Key, MulSat(p.Value, multiplier))
	}
	return out
}

// Recipe answers a query for amount units of name. It returns false when
// name has no known recipe.
func (s *Snapshot) Recipe(name string, amount int64) (*Response, bool) {
	if !s.Has(name) {
		return nil, false
	}
	return &Response{
		Name:         name,
		SimpleRecipe: s.Flatten(name, amount),
		FullRecipe:   s.Expand(name, amount),
	}, true
}
