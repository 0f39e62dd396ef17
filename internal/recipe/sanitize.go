package recipe

import (
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Edge is a single output -> ingredient dependency.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// SanitizeReport records what Sanitize removed, pass by pass.
type SanitizeReport struct {
	InputEntries         int    `json:"input_entries"`
	OutputEntries        int    `json:"output_entries"`
	EmptiedEntries       int    `json:"emptied_entries"`
	DecompressionEntries int    `json:"decompression_entries"`
	MalformedIngredients int    `json:"malformed_ingredients"`
	SelfReferences       int    `json:"self_references"`
	RedundantIngredients int    `json:"redundant_ingredients"`
	CycleEdges           []Edge `json:"cycle_edges"`
	Rounds               int    `json:"rounds"`
}

// Sanitize repairs a merged recipe map into an acyclic Snapshot.
//
// The passes run in order: entry validation and decompression removal,
// self-reference removal, then redundant co-ingredient elimination and
// cycle breaking repeated until neither removes an edge. The input is never
// modified and identical input always yields an identical snapshot.
func Sanitize(in *RecipeMap) *Snapshot {
	var rep SanitizeReport
	if in != nil {
		rep.InputEntries = in.Len()
	}

	m := validateEntries(in, &rep)
	m = removeSelfReferences(m, &rep)

	// Pass 3 can expose new subsets once pass 4 cuts an edge, and the other
	// way around; every round removes at least one edge or stops.
	for {
		rep.Rounds++
		var redundant int
		m, redundant = removeRedundant(m)
		rep.RedundantIngredients += redundant

		var cut []Edge
		m, cut = breakCycles(m)
		rep.CycleEdges = append(rep.CycleEdges, cut...)

		if redundant == 0 && len(cut) == 0 {
			break
		}
	}

	rep.OutputEntries = m.Len()
	return newSnapshot(m, rep)
}

// validateEntries is pass 1. Entries present with no ingredients are kept as
// "no known recipe" markers; entries whose ingredients were all malformed
// are dropped along with known decompression recipes.
func validateEntries(in *RecipeMap, rep *SanitizeReport) *RecipeMap {
	out := NewRecipeMap()
	if in == nil {
		return out
	}
	for p := in.Oldest(); p != nil; p = p.Next() {
		output := strings.TrimSpace(p.Key)
		if output == "" {
			continue
		}
		if p.Value == nil || p.Value.Len() == 0 {
			out.Set(output, NewIngredientMap())
			continue
		}

		cleaned := NewIngredientMap()
		for ip := p.Value.Oldest(); ip != nil; ip = ip.Next() {
			name := strings.TrimSpace(ip.Key)
			if !ValidName(name) || ip.Value < 0 {
				rep.MalformedIngredients++
				continue
			}
			prev, _ := cleaned.Get(name)
			cleaned.Set(name, AddSat(prev, ip.Value))
		}

		if isDecompression(output, cleaned) {
			rep.DecompressionEntries++
			continue
		}
		if cleaned.Len() == 0 {
			rep.EmptiedEntries++
			continue
		}
		out.Set(output, cleaned)
	}
	return out
}

// removeSelfReferences is pass 2.
func removeSelfReferences(in *RecipeMap, rep *SanitizeReport) *RecipeMap {
	out := NewRecipeMap()
	for p := in.Oldest(); p != nil; p = p.Next() {
		kept := NewIngredientMap()
		for ip := p.Value.Oldest(); ip != nil; ip = ip.Next() {
			if ip.Key == p.Key {
				rep.SelfReferences++
				continue
			}
			kept.Set(ip.Key, ip.Value)
		}
		out.Set(p.Key, kept)
	}
	return out
}

// removeRedundant is pass 3: an ingredient C of O is dropped when everything
// C is made from is already listed in O. All checks read the pass input.
func removeRedundant(in *RecipeMap) (*RecipeMap, int) {
	out := NewRecipeMap()
	removed := 0
	for p := in.Oldest(); p != nil; p = p.Next() {
		output, ingredients := p.Key, p.Value
		if ingredients.Len() < 2 {
			out.Set(output, cloneIngredients(ingredients))
			continue
		}
		kept := NewIngredientMap()
		for ip := ingredients.Oldest(); ip != nil; ip = ip.Next() {
			sub, ok := in.Get(ip.Key)
			if ok && ip.Key != output && sub.Len() > 0 && subsetOf(sub, ingredients) {
				removed++
				continue
			}
			kept.Set(ip.Key, ip.Value)
		}
		out.Set(output, kept)
	}
	return out, removed
}

func subsetOf(sub, super *IngredientMap) bool {
	for p := sub.Oldest(); p != nil; p = p.Next() {
		if _, ok := super.Get(p.Key); !ok {
			return false
		}
	}
	return true
}

const (
	unvisited uint8 = iota
	onStack
	finished
)

type dfsFrame struct {
	name string
	next *orderedmap.Pair[string, int64]
}

// breakCycles is pass 4. A depth-first walk over outputs in insertion order
// cuts every back-edge it meets (an ingredient that is still on the stack).
// The walk reads in and records cuts; the result is built afterwards.
func breakCycles(in *RecipeMap) (*RecipeMap, []Edge) {
	state := make(map[string]uint8, in.Len())
	cut := make(map[Edge]struct{})
	var cutOrder []Edge

	for root := in.Oldest(); root != nil; root = root.Next() {
		if state[root.Key] != unvisited {
			continue
		}
		state[root.Key] = onStack
		stack := []dfsFrame{{name: root.Key, next: root.Value.Oldest()}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next == nil {
				state[top.name] = finished
				stack = stack[:len(stack)-1]
				continue
			}
			ingredient := top.next.Key
			top.next = top.next.Next()

			child, ok := in.Get(ingredient)
			if !ok {
				continue
			}
			switch state[ingredient] {
			case onStack:
				e := Edge{From: top.name, To: ingredient}
				if _, dup := cut[e]; !dup {
					cut[e] = struct{}{}
					cutOrder = append(cutOrder, e)
				}
			case unvisited:
				state[ingredient] = onStack
				stack = append(stack, dfsFrame{name: ingredient, next: child.Oldest()})
			}
		}
	}

	if len(cutOrder) == 0 {
		return in, nil
	}

	out := NewRecipeMap()
	for p := in.Oldest(); p != nil; p = p.Next() {
		kept := NewIngredientMap()
		for ip := p.Value.Oldest(); ip != nil; ip = ip.Next() {
			if _, drop := cut[Edge{From: p.Key, To: ip.Key}]; drop {
				continue
			}
			kept.Set(ip.Key, ip.Value)
		}
		out.Set(p.Key, kept)
	}
	return out, cutOrder
}
