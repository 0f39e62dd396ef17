// Package resolver owns the published recipe snapshot and answers queries
// against it. Reads never block; reloads are serialized and swap the
// snapshot in one step.
package resolver

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/HendryAvila/craftgraph/internal/catalog"
	"github.com/HendryAvila/craftgraph/internal/recipe"
)

// Source produces the raw merged recipe map. *catalog.Loader implements it.
type Source interface {
	Load(ctx context.Context) (*recipe.RecipeMap, catalog.Report)
}

// Stats describes the current snapshot and the reload that produced it.
type Stats struct {
	Recipes      int                   `json:"recipes"`
	Names        int                   `json:"names"`
	Reloads      int64                 `json:"reloads"`
	LastReload   time.Time             `json:"last_reload"`
	LastDuration time.Duration         `json:"last_duration_ns"`
	Sanitize     recipe.SanitizeReport `json:"sanitize"`
	Load         catalog.Report        `json:"load"`
}

type state struct {
	snapshot *recipe.Snapshot
	load     catalog.Report
	at       time.Time
	took     time.Duration
}

// timeNow is swapped in tests.
var timeNow = time.Now

// Resolver is the query facade over the current snapshot. Create it with
// New; the zero value is not usable.
type Resolver struct {
	source  Source
	logger  *zap.Logger
	current atomic.Pointer[state]
	reloads atomic.Int64

	mu sync.Mutex // serializes Reload
}

// New creates a Resolver serving an empty snapshot until the first Reload.
func New(source Source, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Resolver{source: source, logger: logger}
	r.current.Store(&state{snapshot: recipe.EmptySnapshot()})
	return r
}

// Snapshot returns the currently published snapshot. It stays valid after a
// reload replaces it.
func (r *Resolver) Snapshot() *recipe.Snapshot {
	return r.current.Load().snapshot
}

// Reload re-reads every catalog, sanitizes the result and publishes it.
// Concurrent calls run one at a time.
func (r *Resolver) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("resolver: reload: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	start := timeNow()
	raw, loadReport := r.source.Load(ctx)
	snap := recipe.Sanitize(raw)
	took := timeNow().Sub(start)

	r.current.Store(&state{snapshot: snap, load: loadReport, at: start, took: took})
	r.reloads.Add(1)

	rep := snap.Report()
	r.logger.Info("recipes reloaded",
		zap.Int("recipes", snap.Len()),
		zap.Int("merged", loadReport.Entries),
		zap.Int("self_references", rep.SelfReferences),
		zap.Int("redundant", rep.RedundantIngredients),
		zap.Int("cycle_edges", len(rep.CycleEdges)),
		zap.Duration("took", took))
	for _, e := range rep.CycleEdges {
		r.logger.Debug("cycle edge removed", zap.String("from", e.From), zap.String("to", e.To))
	}
	return nil
}

// ListNames returns every output name, sorted case-insensitively without
// case-only duplicates.
func (r *Resolver) ListNames() []string {
	return r.Snapshot().Names()
}

// GetRecipe answers a recipe query. ok is false when name has no recipe.
func (r *Resolver) GetRecipe(name string, amount int64) (resp *recipe.Response, ok bool) {
	return r.Snapshot().Recipe(name, amount)
}

// Expand returns the crafting tree for amount units of name.
func (r *Resolver) Expand(name string, amount int64) *recipe.Node {
	return r.Snapshot().Expand(name, amount)
}

// Flatten returns the direct ingredients of name scaled by amount.
func (r *Resolver) Flatten(name string, amount int64) *recipe.IngredientMap {
	return r.Snapshot().Flatten(name, amount)
}

// Recipes returns a copy of the whole sanitized map.
func (r *Resolver) Recipes() *recipe.RecipeMap {
	return r.Snapshot().Recipes()
}

// Stats reports on the published snapshot.
func (r *Resolver) Stats() Stats {
	st := r.current.Load()
	return Stats{
		Recipes:      st.snapshot.Len(),
		Names:        len(st.snapshot.Names()),
		Reloads:      r.reloads.Load(),
		LastReload:   st.at,
		LastDuration: st.took,
		Sanitize:     st.snapshot.Report(),
		Load:         st.load,
	}
}
