package catalog

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/buger/jsonparser"

	"github.com/HendryAvila/craftgraph/internal/recipe"
)

// ParseRecipeMap decodes a catalog document. The recipe map is either the
// top-level object or an object nested under "recipes". Document order is
// kept for outputs and ingredients.
//
// Names are trimmed and empty output names skipped. A null ingredient object
// becomes an empty map, fractional quantities are rounded up and non-numeric
// quantities are skipped. Blank input yields an empty map.
func ParseRecipeMap(data []byte) (*recipe.RecipeMap, error) {
	out := recipe.NewRecipeMap()
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}

	_, dataType, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, fmt.Errorf("catalog: invalid JSON: %w", err)
	}
	if dataType != jsonparser.Object {
		return nil, fmt.Errorf("catalog: top-level value is %s, want object", dataType)
	}

	var keys []string
	if _, nestedType, _, err := jsonparser.Get(data, "recipes"); err == nil && nestedType == jsonparser.Object {
		keys = []string{"recipes"}
	}

	err = jsonparser.ObjectEach(data, func(key, value []byte, valueType jsonparser.ValueType, _ int) error {
		output := strings.TrimSpace(string(key))
		if output == "" {
			return nil
		}
		switch valueType {
		case jsonparser.Null:
			out.Set(output, recipe.NewIngredientMap())
		case jsonparser.Object:
			ingredients, err := parseIngredients(value)
			if err != nil {
				return fmt.Errorf("recipe %q: %w", output, err)
			}
			out.Set(output, ingredients)
		}
		return nil
	}, keys...)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return out, nil
}

func parseIngredients(data []byte) (*recipe.IngredientMap, error) {
	ingredients := recipe.NewIngredientMap()
	err := jsonparser.ObjectEach(data, func(key, value []byte, valueType jsonparser.ValueType, _ int) error {
		if valueType != jsonparser.Number {
			return nil
		}
		f, err := jsonparser.ParseFloat(value)
		if err != nil {
			return nil
		}
		ingredients.Set(strings.TrimSpace(string(key)), ceilQuantity(f))
		return nil
	})
	return ingredients, err
}

// ceilQuantity rounds a catalog quantity up to an integer, clamped to the
// int64 range.
func ceilQuantity(f float64) int64 {
	c := math.Ceil(f)
	switch {
	case math.IsNaN(c):
		return 0
	case c >= math.MaxInt64:
		return math.MaxInt64
	case c <= math.MinInt64:
		return math.MinInt64
	}
	return int64(c)
}
