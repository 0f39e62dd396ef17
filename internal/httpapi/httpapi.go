// Package httpapi exposes the resolver and inventory over a small JSON REST
// API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/HendryAvila/craftgraph/internal/plan"
	"github.com/HendryAvila/craftgraph/internal/resolver"
)

// Inventory is the part of the inventory store the API reads.
type Inventory interface {
	Amount(ctx context.Context, name string) (int64, error)
	Holdings(ctx context.Context) (map[string]int64, error)
}

type api struct {
	resolver  *resolver.Resolver
	inventory Inventory
	logger    *zap.Logger
}

// NewRouter builds the API handler. inv may be nil, in which case the
// inventory route answers 503 and plans assume nothing is held.
func NewRouter(res *resolver.Resolver, inv Inventory, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &api{resolver: res, inventory: inv, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.logRequests)

	r.Get("/healthz", a.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/recipes", a.listRecipes)
		r.Get("/recipes/{name}", a.getRecipe)
		r.Get("/expand/{name}", a.expand)
		r.Get("/flatten/{name}", a.flatten)
		r.Post("/reload", a.reload)
		r.Get("/stats", a.stats)
		r.Get("/inventory/{name}", a.inventoryAmount)
		r.Get("/plan/{name}", a.plan)
	})
	return r
}

// ─── Handlers ────────────────────────────────────────────────────────────────

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"recipes": a.resolver.Snapshot().Len(),
	})
}

func (a *api) listRecipes(w http.ResponseWriter, r *http.Request) {
	names := a.resolver.ListNames()
	if f := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("filter"))); f != "" {
		filtered := make([]string, 0, len(names))
		for _, n := range names {
			if strings.Contains(strings.ToLower(n), f) {
				filtered = append(filtered, n)
			}
		}
		names = filtered
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(names), "names": names})
}

func (a *api) getRecipe(w http.ResponseWriter, r *http.Request) {
	name, amount, ok := nameAndAmount(w, r)
	if !ok {
		return
	}
	resp, found := a.resolver.GetRecipe(name, amount)
	if !found {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no recipe for %q", name))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *api) expand(w http.ResponseWriter, r *http.Request) {
	name, amount, ok := nameAndAmount(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a.resolver.Expand(name, amount))
}

func (a *api) flatten(w http.ResponseWriter, r *http.Request) {
	name, amount, ok := nameAndAmount(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        name,
		"amount":      amount,
		"ingredients": a.resolver.Flatten(name, amount),
	})
}

func (a *api) reload(w http.ResponseWriter, r *http.Request) {
	if err := a.resolver.Reload(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, a.resolver.Stats())
}

func (a *api) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.resolver.Stats())
}

func (a *api) inventoryAmount(w http.ResponseWriter, r *http.Request) {
	if a.inventory == nil {
		writeError(w, http.StatusServiceUnavailable, "inventory is not available")
		return
	}
	name := pathName(r)
	amount, err := a.inventory.Amount(r.Context(), name)
	if err != nil {
		a.logger.Error("inventory lookup failed", zap.String("name", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "amount": amount})
}

func (a *api) plan(w http.ResponseWriter, r *http.Request) {
	name, amount, ok := nameAndAmount(w, r)
	if !ok {
		return
	}
	var holdings map[string]int64
	if a.inventory != nil {
		var err error
		if holdings, err = a.inventory.Holdings(r.Context()); err != nil {
			a.logger.Error("reading holdings failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, plan.Build(a.resolver.Snapshot(), name, amount, holdings))
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// pathName returns the {name} parameter, decoding escapes chi left in place.
func pathName(r *http.Request) string {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath != "" {
		if decoded, err := url.PathUnescape(name); err == nil {
			name = decoded
		}
	}
	return strings.TrimSpace(name)
}

// nameAndAmount reads {name} and ?amount=, writing a 400 when amount is not
// a positive integer. amount defaults to 1.
func nameAndAmount(w http.ResponseWriter, r *http.Request) (string, int64, bool) {
	name := pathName(r)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return "", 0, false
	}
	amount := int64(1)
	if raw := strings.TrimSpace(r.URL.Query().Get("amount")); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("amount must be a positive integer, got %q", raw))
			return "", 0, false
		}
		amount = n
	}
	return name, amount, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (a *api) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		a.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// ─── Server ──────────────────────────────────────────────────────────────────

// Serve listens on addr and serves handler until ctx is canceled, then
// shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("httpapi: listen %s: %w", addr, err)
	}
	return serve(ctx, ln, handler, logger)
}

func serve(ctx context.Context, ln net.Listener, handler http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	logger.Info("http api listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("httpapi: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("httpapi: shutdown: %w", err)
	}
	return nil
}
