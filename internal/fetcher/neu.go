package fetcher

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/buger/jsonparser"

	"github.com/HendryAvila/craftgraph/internal/recipe"
)

// formatCode matches Minecraft "§x" color and style codes.
var formatCode = regexp.MustCompile("§.")

// neuEmpty marks an unused slot in NEU recipes.
const neuEmpty = "NEU_SENTINEL_EMPTY"

// neuCatalog accumulates recipes keyed by internal item ID while the
// archive is read; display names are resolved at the end.
type neuCatalog struct {
	display  map[string]string
	crafting *recipe.RecipeMap
	forge    *recipe.RecipeMap
}

func newNEUCatalog() *neuCatalog {
	return &neuCatalog{
		display:  make(map[string]string),
		crafting: recipe.NewRecipeMap(),
		forge:    recipe.NewRecipeMap(),
	}
}

// parseNEUArchive reads a NotEnoughUpdates repository zip and returns its
// crafting and forge recipes keyed by display name.
func parseNEUArchive(data []byte) (crafting, forge *recipe.RecipeMap, err error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, fmt.Errorf("opening archive: %w", err)
	}

	files := make([]*zip.File, 0, len(zr.File))
	for _, f := range zr.File {
		if isItemFile(stripRoot(f.Name)) {
			files = append(files, f)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("archive has no items/*.json entries")
	}

	cat := newNEUCatalog()
	for _, f := range files {
		raw, err := readZipFile(f)
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", f.Name, err)
		}
		fallback := strings.TrimSuffix(path.Base(f.Name), ".json")
		// A single malformed item file does not invalidate the repository.
		_ = cat.addItem(fallback, raw)
	}
	return cat.resolve(cat.crafting), cat.resolve(cat.forge), nil
}

// stripRoot drops the single top-level directory GitHub puts in archives.
func stripRoot(name string) string {
	i := strings.IndexByte(name, '/')
	if i < 0 {
		return ""
	}
	return name[i+1:]
}

func isItemFile(rel string) bool {
	dir, file := path.Split(rel)
	return dir == "items/" && strings.HasSuffix(file, ".json") && len(file) > len(".json")
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

func (c *neuCatalog) addItem(fallbackID string, data []byte) error {
	id, err := jsonparser.GetString(data, "internalname")
	if err != nil || strings.TrimSpace(id) == "" {
		id = fallbackID
	}
	id = strings.TrimSpace(id)

	if display, err := jsonparser.GetString(data, "displayname"); err == nil {
		if name := StripFormatting(display); name != "" {
			if _, seen := c.display[id]; !seen {
				c.display[id] = name
			}
		}
	}

	if grid, dataType, _, err := jsonparser.Get(data, "recipe"); err == nil && dataType == jsonparser.Object {
		c.addRecipe(c.crafting, outputID(grid, id), gridInputs(grid))
	}

	_, err = jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
		if dataType != jsonparser.Object {
			return
		}
		kind, _ := jsonparser.GetString(value, "type")
		switch strings.ToLower(kind) {
		case "", "crafting":
			c.addRecipe(c.crafting, outputID(value, id), gridInputs(value))
		case "forge":
			c.addRecipe(c.forge, outputID(value, id), listInputs(value))
		}
	}, "recipes")
	if err != nil && !errors.Is(err, jsonparser.KeyPathNotFoundError) {
		return err
	}
	return nil
}

// addRecipe keeps the first recipe seen for each output.
func (c *neuCatalog) addRecipe(target *recipe.RecipeMap, output string, inputs []string) {
	if output == "" || output == neuEmpty {
		return
	}
	if _, exists := target.Get(output); exists {
		return
	}
	ingredients := recipe.NewIngredientMap()
	for _, in := range inputs {
		id, amount, ok := ParseIngredient(in)
		if !ok {
			continue
		}
		prev, _ := ingredients.Get(id)
		ingredients.Set(id, recipe.AddSat(prev, amount))
	}
	if ingredients.Len() == 0 {
		return
	}
	target.Set(output, ingredients)
}

func outputID(value []byte, fallback string) string {
	if id, err := jsonparser.GetString(value, "overrideOutputId"); err == nil && strings.TrimSpace(id) != "" {
		return strings.TrimSpace(id)
	}
	return fallback
}

// gridInputs returns the A1..C3 slots of a crafting grid in slot order.
func gridInputs(grid []byte) []string {
	var inputs []string
	for _, row := range "ABC" {
		for _, col := range "123" {
			slot, err := jsonparser.GetString(grid, string(row)+string(col))
			if err == nil && slot != "" {
				inputs = append(inputs, slot)
			}
		}
	}
	return inputs
}

func listInputs(value []byte) []string {
	var inputs []string
	_, _ = jsonparser.ArrayEach(value, func(v []byte, dataType jsonparser.ValueType, _ int, _ error) {
		if dataType == jsonparser.String {
			if s, err := jsonparser.ParseString(v); err == nil && s != "" {
				inputs = append(inputs, s)
			}
		}
	}, "inputs")
	return inputs
}

// ParseIngredient splits an NEU ingredient string "ITEM_ID:amount". The
// amount is rounded up and at least 1; a missing amount means 1.
func ParseIngredient(s string) (id string, amount int64, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", 0, false
	}
	id, amount = s, 1
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		id = strings.TrimSpace(s[:i])
		if f, err := strconv.ParseFloat(strings.TrimSpace(s[i+1:]), 64); err == nil && !math.IsNaN(f) {
			switch {
			case f >= math.MaxInt64:
				amount = math.MaxInt64
			case f > 1:
				amount = int64(math.Ceil(f))
			}
		}
	}
	if id == "" || id == neuEmpty {
		return "", 0, false
	}
	return id, amount, true
}

// StripFormatting removes "§x" formatting codes and surrounding space.
func StripFormatting(s string) string {
	return strings.TrimSpace(formatCode.ReplaceAllString(s, ""))
}

// resolve rewrites internal IDs to display names. IDs without a display
// name are kept as they are.
func (c *neuCatalog) resolve(byID *recipe.RecipeMap) *recipe.RecipeMap {
	name := func(id string) string {
		if d, ok := c.display[id]; ok {
			return d
		}
		return id
	}
	out := recipe.NewRecipeMap()
	for p := byID.Oldest(); p != nil; p = p.Next() {
		output := name(p.Key)
		if _, exists := out.Get(output); exists {
			continue
		}
		ingredients := recipe.NewIngredientMap()
		for ip := p.Value.Oldest(); ip != nil; ip = ip.Next() {
			ing := name(ip.Key)
			prev, _ := ingredients.Get(ing)
			ingredients.Set(ing, recipe.AddSat(prev, ip.Value))
		}
		out.Set(output, ingredients)
	}
	return out
}
