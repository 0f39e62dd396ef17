package recipe_test

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/craftgraph/internal/recipe"
)

// ing builds an IngredientMap from name, quantity pairs.
func ing(pairs ...any) *recipe.IngredientMap {
	m := recipe.NewIngredientMap()
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Set(pairs[i].(string), int64(pairs[i+1].(int)))
	}
	return m
}

// recipes builds a RecipeMap from output, *IngredientMap pairs.
func recipes(pairs ...any) *recipe.RecipeMap {
	m := recipe.NewRecipeMap()
	for i := 0; i+1 < len(pairs); i += 2 {
		ingredients, _ := pairs[i+1].(*recipe.IngredientMap)
		m.Set(pairs[i].(string), ingredients)
	}
	return m
}

// dump renders a RecipeMap in iteration order for equality checks.
func dump(m *recipe.RecipeMap) string {
	var b strings.Builder
	for p := m.Oldest(); p != nil; p = p.Next() {
		b.WriteString(p.Key)
		b.WriteString("{")
		for ip := p.Value.Oldest(); ip != nil; ip = ip.Next() {
			fmt.Fprintf(&b, "%s:%d,", ip.Key, ip.Value)
		}
		b.WriteString("};")
	}
	return b.String()
}

// reachesItself reports whether a walk from start can come back to start.
func reachesItself(m *recipe.RecipeMap, start string) bool {
	visited := map[string]bool{}
	var walk func(name string) bool
	walk = func(name string) bool {
		ingredients, ok := m.Get(name)
		if !ok {
			return false
		}
		for p := ingredients.Oldest(); p != nil; p = p.Next() {
			if p.Key == start {
				return true
			}
			if visited[p.Key] {
				continue
			}
			visited[p.Key] = true
			if walk(p.Key) {
				return true
			}
		}
		return false
	}
	return walk(start)
}

// randomGraph builds a DAG over n items and then injects cycles of length
// 2 to 5.
func randomGraph(r *rand.Rand, n, cycles int) *recipe.RecipeMap {
	name := func(i int) string { return fmt.Sprintf("Item %02d", i) }
	m := recipe.NewRecipeMap()
	for i := 0; i < n; i++ {
		ingredients := recipe.NewIngredientMap()
		for j := i + 1; j < n; j++ {
			if r.IntN(6) == 0 {
				ingredients.Set(name(j), int64(1+r.IntN(9)))
			}
		}
		m.Set(name(i), ingredients)
	}
	for c := 0; c < cycles; c++ {
		length := 2 + r.IntN(4)
		members := r.Perm(n)[:length]
		for k, from := range members {
			to := members[(k+1)%length]
			ingredients, _ := m.Get(name(from))
			ingredients.Set(name(to), int64(1+r.IntN(9)))
		}
	}
	return m
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func TestValidName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Iron Ingot", true},
		{"", false},
		{"123", false},
		{"0", false},
		{"12 Gems", true},
		{"٣٤", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, recipe.ValidName(tt.name), "ValidName(%q)", tt.name)
	}
}

func TestMulSat(t *testing.T) {
	tests := []struct {
		a, b, want int64
	}{
		{3, 4, 12},
		{0, 9, 0},
		{-2, 9, 0},
		{math.MaxInt64, 2, math.MaxInt64},
		{1 << 40, 1 << 40, math.MaxInt64},
		{math.MaxInt64, 1, math.MaxInt64},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, recipe.MulSat(tt.a, tt.b), "MulSat(%d, %d)", tt.a, tt.b)
	}
}

func TestAddSat(t *testing.T) {
	assert.Equal(t, int64(5), recipe.AddSat(2, 3))
	assert.Equal(t, int64(math.MaxInt64), recipe.AddSat(math.MaxInt64, 1))
}

func TestReferencedNames_OutputsThenIngredients(t *testing.T) {
	m := recipes(
		"Gadget", ing("Ingot", 10, "Block", 1),
		"Block", ing("Ingot", 9),
		"Empty", nil,
	)
	assert.Equal(t, []string{"Gadget", "Block", "Empty", "Ingot"}, recipe.ReferencedNames(m))
	assert.Nil(t, recipe.ReferencedNames(nil))
}

// ─── Sanitize: entry validation ─────────────────────────────────────────────

func TestSanitize_DropsMalformedIngredients(t *testing.T) {
	in := recipes(
		"Widget", ing("", 1, "123", 2, " Bolt ", 3, "Nut", -1),
		"Numbers", ing("42", 1),
		"Marker", ing(),
	)
	snap := recipe.Sanitize(in)

	assert.Equal(t, "Widget{Bolt:3,};Marker{};", dump(snap.Recipes()))
	rep := snap.Report()
	assert.Equal(t, 4, rep.MalformedIngredients)
	assert.Equal(t, 1, rep.EmptiedEntries)
	assert.Equal(t, 3, rep.InputEntries)
	assert.Equal(t, 2, rep.OutputEntries)
}

func TestSanitize_TrimsAndSumsDuplicateIngredients(t *testing.T) {
	in := recipes(" Widget ", ing("Bolt", 2, "Bolt ", 3))
	snap := recipe.Sanitize(in)
	assert.Equal(t, "Widget{Bolt:5,};", dump(snap.Recipes()))
}

func TestSanitize_NilInput(t *testing.T) {
	snap := recipe.Sanitize(nil)
	assert.Equal(t, 0, snap.Len())
	assert.Empty(t, snap.Names())
}

func TestSanitize_DropsDecompressionRecipes(t *testing.T) {
	in := recipes(
		"Diamond", ing("Block of Diamond", 1),
		"Block of Diamond", ing("Diamond", 9),
		"Iron Ingot", ing("iron block", 1),
		"Iron Block", ing("Iron Ingot", 9),
		"Coal", ing("Wood", 1),
	)
	snap := recipe.Sanitize(in)

	assert.False(t, snap.Has("Diamond"))
	assert.False(t, snap.Has("Iron Ingot"))
	assert.True(t, snap.Has("Block of Diamond"))
	assert.True(t, snap.Has("Coal"), "a base item with an unrelated recipe is kept")
	assert.Equal(t, 2, snap.Report().DecompressionEntries)
	assert.Empty(t, snap.Report().CycleEdges)
}

// ─── Sanitize: self references and redundancy ───────────────────────────────

func TestSanitize_RemovesSelfReferences(t *testing.T) {
	in := recipes(
		"Loop", ing("Loop", 1, "Stick", 2),
		"Only Self", ing("Only Self", 4),
	)
	snap := recipe.Sanitize(in)

	assert.Equal(t, "Loop{Stick:2,};Only Self{};", dump(snap.Recipes()))
	assert.Equal(t, 2, snap.Report().SelfReferences)
	for p := snap.Recipes().Oldest(); p != nil; p = p.Next() {
		_, self := p.Value.Get(p.Key)
		assert.False(t, self, "%s lists itself", p.Key)
	}
}

func TestSanitize_RemovesRedundantCoIngredient(t *testing.T) {
	in := recipes(
		"Block", ing("Ingot", 9),
		"Gadget", ing("Ingot", 10, "Block", 1),
	)
	snap := recipe.Sanitize(in)

	assert.Equal(t, "Block{Ingot:9,};Gadget{Ingot:10,};", dump(snap.Recipes()))
	assert.Equal(t, 1, snap.Report().RedundantIngredients)
}

func TestSanitize_RedundancyIgnoresSingleIngredientAndEmptyEntries(t *testing.T) {
	in := recipes(
		"Block", ing("Ingot", 9),
		"Wrapper", ing("Block", 1),
		"Marker", ing(),
		"Kit", ing("Marker", 1, "Ingot", 2),
	)
	snap := recipe.Sanitize(in)
	assert.Equal(t, "Block{Ingot:9,};Wrapper{Block:1,};Marker{};Kit{Marker:1,Ingot:2,};", dump(snap.Recipes()))
	assert.Zero(t, snap.Report().RedundantIngredients)
}

// ─── Sanitize: cycles ───────────────────────────────────────────────────────

func TestSanitize_BreaksCycleAtBackEdge(t *testing.T) {
	in := recipes(
		"A", ing("B", 1),
		"B", ing("C", 1),
		"C", ing("A", 1),
	)
	snap := recipe.Sanitize(in)

	assert.Equal(t, "A{B:1,};B{C:1,};C{};", dump(snap.Recipes()))
	assert.Equal(t, []recipe.Edge{{From: "C", To: "A"}}, snap.Report().CycleEdges)
}

func TestSanitize_TwoCycleKeepsFirstDirection(t *testing.T) {
	in := recipes(
		"Nugget", ing("Ingot", 1),
		"Ingot", ing("Nugget", 9),
	)
	snap := recipe.Sanitize(in)
	assert.Equal(t, "Nugget{Ingot:1,};Ingot{};", dump(snap.Recipes()))
}

func TestSanitize_RandomGraphsAreAcyclic(t *testing.T) {
	for seed := uint64(1); seed <= 25; seed++ {
		r := rand.New(rand.NewPCG(seed, seed*7919))
		in := randomGraph(r, 30, 2+r.IntN(4))
		before := dump(in)

		snap := recipe.Sanitize(in)
		out := snap.Recipes()

		require.Equal(t, before, dump(in), "seed %d: input was modified", seed)
		for p := out.Oldest(); p != nil; p = p.Next() {
			assert.False(t, reachesItself(out, p.Key), "seed %d: %s reaches itself", seed, p.Key)
			_, self := p.Value.Get(p.Key)
			assert.False(t, self, "seed %d: %s lists itself", seed, p.Key)
		}
		// Expansion terminates on every output.
		for _, name := range snap.Names() {
			assert.Equal(t, int64(1), snap.Expand(name, 1).Amount)
		}
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	for seed := uint64(1); seed <= 25; seed++ {
		r := rand.New(rand.NewPCG(seed, 42))
		in := randomGraph(r, 25, 1+r.IntN(5))

		once := recipe.Sanitize(in)
		twice := recipe.Sanitize(once.Recipes())

		assert.Equal(t, dump(once.Recipes()), dump(twice.Recipes()), "seed %d", seed)
		assert.Empty(t, twice.Report().CycleEdges, "seed %d", seed)
		assert.Zero(t, twice.Report().RedundantIngredients, "seed %d", seed)
	}
}

func TestSanitize_Deterministic(t *testing.T) {
	r := rand.New(rand.NewPCG(99, 1))
	in := randomGraph(r, 40, 5)

	a := recipe.Sanitize(in)
	b := recipe.Sanitize(in)
	assert.Equal(t, dump(a.Recipes()), dump(b.Recipes()))
	assert.Equal(t, a.Report(), b.Report())
}

// ─── Expand / Flatten ───────────────────────────────────────────────────────

func TestExpand_MultiplierScalesChildren(t *testing.T) {
	snap := recipe.Sanitize(recipes("Enchanted Iron", ing("Iron Ingot", 160)))

	node := snap.Expand("Enchanted Iron", 2)
	assert.Equal(t, "Enchanted Iron", node.Name)
	assert.Equal(t, int64(2), node.Amount)
	require.Len(t, node.Ingredients, 1)

	child := node.Ingredients[0]
	assert.Equal(t, "Iron Ingot", child.Name)
	assert.Equal(t, int64(320), child.Amount)
	assert.Empty(t, child.Ingredients)
	assert.True(t, child.IsLeaf())
}

func TestExpand_UnknownNameIsLeaf(t *testing.T) {
	snap := recipe.EmptySnapshot()
	node := snap.Expand("Unknown Item XYZ", 5)

	assert.Equal(t, &recipe.Node{Name: "Unknown Item XYZ", Amount: 5, Ingredients: []*recipe.Node{}}, node)

	raw, err := json.Marshal(node)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Unknown Item XYZ","amount":5,"ingredients":[]}`, string(raw))
}

func TestExpand_NestedOrderAndAmounts(t *testing.T) {
	snap := recipe.Sanitize(recipes(
		"Drill", ing("Engine", 2, "Handle", 1),
		"Engine", ing("Gear", 3, "Fuel", 5),
	))
	node := snap.Expand("Drill", 4)

	var got []string
	node.Walk(func(n *recipe.Node, depth int) {
		got = append(got, fmt.Sprintf("%d:%s=%d", depth, n.Name, n.Amount))
	})
	assert.Equal(t, []string{
		"0:Drill=4",
		"1:Engine=8",
		"2:Gear=24",
		"2:Fuel=40",
		"1:Handle=4",
	}, got)

	totals := node.LeafTotals()
	assert.Equal(t, "Gear:24,Fuel:40,Handle:4,", dumpIngredients(totals))
}

func TestExpand_SaturatesInsteadOfOverflowing(t *testing.T) {
	snap := recipe.Sanitize(recipes("Huge", ing("Dust", 1<<40)))
	node := snap.Expand("Huge", 1<<40)
	require.Len(t, node.Ingredients, 1)
	assert.Equal(t, int64(math.MaxInt64), node.Ingredients[0].Amount)
}

func TestExpand_NegativeMultiplierIsZero(t *testing.T) {
	snap := recipe.Sanitize(recipes("A", ing("B", 3)))
	node := snap.Expand("A", -4)
	assert.Equal(t, int64(0), node.Amount)
	assert.Equal(t, int64(0), node.Ingredients[0].Amount)
	assert.False(t, node.IsLeaf())
}

func TestFlatten_FirstLevelOnly(t *testing.T) {
	snap := recipe.Sanitize(recipes(
		"Drill", ing("Engine", 2, "Handle", 1),
		"Engine", ing("Gear", 3),
	))
	assert.Equal(t, "Engine:6,Handle:3,", dumpIngredients(snap.Flatten("Drill", 3)))
	assert.Equal(t, 0, snap.Flatten("Nope", 3).Len())
}

func TestRecipe_Response(t *testing.T) {
	snap := recipe.Sanitize(recipes("Torch", ing("Stick", 1, "Coal", 1)))

	resp, ok := snap.Recipe("Torch", 8)
	require.True(t, ok)
	assert.Equal(t, "Torch", resp.Name)
	assert.Equal(t, "Stick:8,Coal:8,", dumpIngredients(resp.SimpleRecipe))
	assert.Equal(t, int64(8), resp.FullRecipe.Amount)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"simple_recipe":{"Stick":8,"Coal":8}`)

	_, ok = snap.Recipe("Coal", 1)
	assert.False(t, ok, "ingredients without a recipe are not found")
}

// ─── Snapshot accessors ─────────────────────────────────────────────────────

func TestNames_CaseInsensitiveSortAndDedupe(t *testing.T) {
	snap := recipe.Sanitize(recipes(
		"banana", ing(),
		"Apple", ing(),
		"apple", ing(),
		"Cherry", ing(),
		"APPLE", ing(),
	))
	assert.Equal(t, []string{"Apple", "banana", "Cherry"}, snap.Names())
}

func TestSnapshot_ReturnsCopies(t *testing.T) {
	snap := recipe.Sanitize(recipes("A", ing("B", 1)))

	names := snap.Names()
	names[0] = "mutated"
	assert.Equal(t, []string{"A"}, snap.Names())

	ingredients, ok := snap.Ingredients("A")
	require.True(t, ok)
	ingredients.Set("C", 5)
	again, _ := snap.Ingredients("A")
	assert.Equal(t, 1, again.Len())

	all := snap.Recipes()
	all.Delete("A")
	assert.True(t, snap.Has("A"))
}

func dumpIngredients(m *recipe.IngredientMap) string {
	var b strings.Builder
	for p := m.Oldest(); p != nil; p = p.Next() {
		fmt.Fprintf(&b, "%s:%d,", p.Key, p.Value)
	}
	return b.String()
}
