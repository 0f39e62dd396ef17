package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/craftgraph/internal/catalog"
	"github.com/HendryAvila/craftgraph/internal/recipe"
	"github.com/HendryAvila/craftgraph/internal/resolver"
)

type staticSource struct{ m *recipe.RecipeMap }

func (s staticSource) Load(context.Context) (*recipe.RecipeMap, catalog.Report) {
	return s.m, catalog.Report{Entries: s.m.Len()}
}

type fakeInventory struct {
	held map[string]int64
	err  error
}

func (f fakeInventory) Amount(_ context.Context, name string) (int64, error) {
	return f.held[name], f.err
}

func (f fakeInventory) Holdings(context.Context) (map[string]int64, error) {
	return f.held, f.err
}

func newResolver(t *testing.T) *resolver.Resolver {
	t.Helper()
	m := recipe.NewRecipeMap()
	iron := recipe.NewIngredientMap()
	iron.Set("Iron Ingot", 160)
	m.Set("Enchanted Iron", iron)
	block := recipe.NewIngredientMap()
	block.Set("Enchanted Iron", 160)
	m.Set("Enchanted Iron Block", block)
	m.Set("Stick/Bundle", recipe.NewIngredientMap())

	r := resolver.New(staticSource{m}, nil)
	require.NoError(t, r.Reload(context.Background()))
	return r
}

func do(t *testing.T, h http.Handler, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	h := NewRouter(newResolver(t), nil, nil)
	rec, body := do(t, h, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(3), body["recipes"])
}

func TestListRecipes(t *testing.T) {
	h := NewRouter(newResolver(t), nil, nil)

	_, body := do(t, h, http.MethodGet, "/api/recipes")
	assert.Equal(t, float64(3), body["count"])

	_, body = do(t, h, http.MethodGet, "/api/recipes?filter=BLOCK")
	assert.Equal(t, []any{"Enchanted Iron Block"}, body["names"])
}

func TestGetRecipe(t *testing.T) {
	h := NewRouter(newResolver(t), nil, nil)

	rec, body := do(t, h, http.MethodGet, "/api/recipes/Enchanted%20Iron?amount=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Enchanted Iron", body["name"])
	assert.Equal(t, map[string]any{"Iron Ingot": float64(320)}, body["simple_recipe"])

	full := body["full_recipe"].(map[string]any)
	assert.Equal(t, float64(2), full["amount"])
	leaf := full["ingredients"].([]any)[0].(map[string]any)
	assert.Equal(t, float64(320), leaf["amount"])
	assert.Empty(t, leaf["ingredients"])
}

func TestGetRecipe_EscapedSlash(t *testing.T) {
	h := NewRouter(newResolver(t), nil, nil)
	rec, body := do(t, h, http.MethodGet, "/api/recipes/Stick%2FBundle")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Stick/Bundle", body["name"])
}

func TestGetRecipe_Errors(t *testing.T) {
	h := NewRouter(newResolver(t), nil, nil)

	tests := []struct {
		target string
		status int
	}{
		{"/api/recipes/Unknown", http.StatusNotFound},
		{"/api/recipes/Enchanted%20Iron?amount=0", http.StatusBadRequest},
		{"/api/recipes/Enchanted%20Iron?amount=-3", http.StatusBadRequest},
		{"/api/recipes/Enchanted%20Iron?amount=lots", http.StatusBadRequest},
		{"/api/expand/Enchanted%20Iron?amount=1.5", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec, body := do(t, h, http.MethodGet, tt.target)
		assert.Equal(t, tt.status, rec.Code, tt.target)
		assert.NotEmpty(t, body["error"], tt.target)
	}
}

func TestExpandAndFlatten(t *testing.T) {
	h := NewRouter(newResolver(t), nil, nil)

	_, body := do(t, h, http.MethodGet, "/api/expand/Enchanted%20Iron%20Block")
	assert.Equal(t, "Enchanted Iron Block", body["name"])
	mid := body["ingredients"].([]any)[0].(map[string]any)
	assert.Equal(t, float64(160), mid["amount"])

	_, body = do(t, h, http.MethodGet, "/api/expand/Unknown?amount=4")
	assert.Equal(t, float64(4), body["amount"])
	assert.Empty(t, body["ingredients"])

	_, body = do(t, h, http.MethodGet, "/api/flatten/Enchanted%20Iron%20Block?amount=3")
	assert.Equal(t, map[string]any{"Enchanted Iron": float64(480)}, body["ingredients"])
}

func TestReloadAndStats(t *testing.T) {
	h := NewRouter(newResolver(t), nil, nil)

	rec, body := do(t, h, http.MethodPost, "/api/reload")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["reloads"])

	_, body = do(t, h, http.MethodGet, "/api/stats")
	assert.Equal(t, float64(3), body["recipes"])

	rec, _ = do(t, h, http.MethodGet, "/api/reload")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestInventory(t *testing.T) {
	res := newResolver(t)

	rec, _ := do(t, NewRouter(res, nil, nil), http.MethodGet, "/api/inventory/Iron%20Ingot")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h := NewRouter(res, fakeInventory{held: map[string]int64{"Iron Ingot": 64}}, nil)
	_, body := do(t, h, http.MethodGet, "/api/inventory/Iron%20Ingot")
	assert.Equal(t, float64(64), body["amount"])

	h = NewRouter(res, fakeInventory{err: errors.New("db gone")}, nil)
	rec, _ = do(t, h, http.MethodGet, "/api/inventory/Iron%20Ingot")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPlan(t *testing.T) {
	h := NewRouter(newResolver(t), fakeInventory{held: map[string]int64{"Iron Ingot": 100}}, nil)

	rec, body := do(t, h, http.MethodGet, "/api/plan/Enchanted%20Iron")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["craftable"])
	assert.Equal(t, map[string]any{"Iron Ingot": float64(60)}, body["missing"])
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, ln, NewRouter(newResolver(t), nil, nil), nil) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServe_BadAddress(t *testing.T) {
	assert.Error(t, Serve(context.Background(), "not-an-address", http.NotFoundHandler(), nil))
}
