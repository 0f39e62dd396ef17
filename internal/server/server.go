// Package server wires all components and runs them.
//
// This is the composition root: it creates the concrete stores, the
// resolver and the fetcher, and injects them into the MCP tools, the HTTP
// API and the file watcher. No business logic lives here, only wiring.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/HendryAvila/craftgraph/internal/catalog"
	"github.com/HendryAvila/craftgraph/internal/config"
	"github.com/HendryAvila/craftgraph/internal/fetcher"
	"github.com/HendryAvila/craftgraph/internal/httpapi"
	"github.com/HendryAvila/craftgraph/internal/inventory"
	"github.com/HendryAvila/craftgraph/internal/invtools"
	"github.com/HendryAvila/craftgraph/internal/prompts"
	"github.com/HendryAvila/craftgraph/internal/resolver"
	"github.com/HendryAvila/craftgraph/internal/resources"
	"github.com/HendryAvila/craftgraph/internal/tools"
	"github.com/HendryAvila/craftgraph/internal/watch"
)

// Version is set at build time via ldflags.
var Version = "dev"

// App holds the long-lived components of one process.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	layout    catalog.Layout
	inventory *inventory.Store // nil when the database could not be opened
	resolver  *resolver.Resolver
	fetcher   *fetcher.Fetcher // nil when fetching is disabled
	closers   []func() error
}

// NewApp creates every component and performs the initial catalog load.
//
// The inventory is an independent subsystem: if it fails to open, recipe
// queries keep working, a warning is logged and the inventory tools are not
// registered. The returned App must be closed.
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger, layout: catalog.Layout{DataDir: cfg.DataDir}}

	if err := a.layout.Bootstrap(); err != nil {
		return nil, fmt.Errorf("preparing data dir: %w", err)
	}

	// --- Inventory ---

	var notifier catalog.NameNotifier
	inv, err := inventory.New(inventory.Config{Path: cfg.Inventory.DBPath})
	if err != nil {
		logger.Warn("inventory disabled", zap.Error(err))
	} else {
		a.inventory = inv
		notifier = inv
		a.closers = append(a.closers, inv.Close)
	}

	// --- Resolver ---

	a.resolver = resolver.New(catalog.NewLoader(a.layout, notifier, logger), logger)
	if err := a.resolver.Reload(ctx); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("initial load: %w", err)
	}

	// --- Fetcher ---

	if cfg.Fetch.Enabled {
		a.fetcher = fetcher.New(fetcher.Options{
			Layout:    a.layout,
			Meta:      a.metaStore(ctx),
			Notifier:  notifier,
			OnChange:  a.resolver.Reload,
			UserAgent: cfg.Fetch.UserAgent,
			Timeout:   cfg.Fetch.Timeout,
			Logger:    logger,
		})
	}
	return a, nil
}

// metaStore returns the Redis validator store when configured and
// reachable. nil makes the fetcher use its JSON file.
func (a *App) metaStore(ctx context.Context) fetcher.MetaStore {
	if a.cfg.Fetch.RedisAddr == "" {
		return nil
	}
	rs, err := fetcher.DialRedisMetaStore(ctx, a.cfg.Fetch.RedisAddr)
	if err != nil {
		a.logger.Warn("redis unavailable, keeping fetch validators on disk", zap.Error(err))
		return nil
	}
	a.closers = append(a.closers, rs.Close)
	return rs
}

// Resolver returns the query facade.
func (a *App) Resolver() *resolver.Resolver { return a.resolver }

// Inventory returns the inventory store, or nil when it is unavailable.
func (a *App) Inventory() *inventory.Store { return a.inventory }

// Fetcher returns the remote fetcher, or nil when fetching is disabled.
func (a *App) Fetcher() *fetcher.Fetcher { return a.fetcher }

// Close releases the database and Redis connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// ─── MCP ─────────────────────────────────────────────────────────────────────

// NewMCPServer creates the MCP server with every tool, prompt and resource
// registered.
func (a *App) NewMCPServer() *server.MCPServer {
	s := server.NewMCPServer(
		"craftgraph",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Recipe tools ---

	listTool := tools.NewListTool(a.resolver)
	s.AddTool(listTool.Definition(), listTool.Handle)

	getTool := tools.NewGetTool(a.resolver)
	s.AddTool(getTool.Definition(), getTool.Handle)

	expandTool := tools.NewExpandTool(a.resolver)
	s.AddTool(expandTool.Definition(), expandTool.Handle)

	flattenTool := tools.NewFlattenTool(a.resolver)
	s.AddTool(flattenTool.Definition(), flattenTool.Handle)

	reloadTool := tools.NewReloadTool(a.resolver)
	s.AddTool(reloadTool.Definition(), reloadTool.Handle)

	statsTool := tools.NewStatsTool(a.resolver)
	s.AddTool(statsTool.Definition(), statsTool.Handle)

	// A nil *fetcher.Fetcher must reach the tool as a nil interface.
	var f tools.Fetcher
	if a.fetcher != nil {
		f = a.fetcher
	}
	fetchTool := tools.NewFetchTool(f)
	s.AddTool(fetchTool.Definition(), fetchTool.Handle)

	// --- Inventory tools ---

	var holdings tools.Holdings
	if a.inventory != nil {
		holdings = a.inventory
		registerInventoryTools(s, a.inventory)
	}
	planTool := tools.NewPlanTool(a.resolver, holdings)
	s.AddTool(planTool.Definition(), planTool.Handle)

	// --- Prompts ---

	planPrompt := prompts.NewPlanPrompt()
	s.AddPrompt(planPrompt.Definition(), planPrompt.Handle)

	// --- Resources ---

	resourceHandler := resources.NewHandler(a.resolver)
	s.AddResource(resourceHandler.NamesResource(), resourceHandler.HandleNames)
	s.AddResource(resourceHandler.StatsResource(), resourceHandler.HandleStats)

	return s
}

func registerInventoryTools(s *server.MCPServer, store invtools.Store) {
	getTool := invtools.NewGetTool(store)
	s.AddTool(getTool.Definition(), getTool.Handle)

	setTool := invtools.NewSetTool(store)
	s.AddTool(setTool.Definition(), setTool.Handle)

	listTool := invtools.NewListTool(store)
	s.AddTool(listTool.Definition(), listTool.Handle)
}

// ─── Running ─────────────────────────────────────────────────────────────────

// ServeMCP serves the MCP protocol over in/out until the input ends or ctx
// is canceled. The watcher and the startup fetch run alongside it.
func (a *App) ServeMCP(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(a.NewMCPServer())
	stdio.SetErrorLogger(zap.NewStdLog(a.logger))

	return a.run(ctx, func(ctx context.Context) error {
		err := stdio.Listen(ctx, in, out)
		if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
			return nil
		}
		return err
	})
}

// ServeHTTP serves the REST API on the configured address until ctx is
// canceled.
func (a *App) ServeHTTP(ctx context.Context) error {
	var inv httpapi.Inventory
	if a.inventory != nil {
		inv = a.inventory
	}
	handler := httpapi.NewRouter(a.resolver, inv, a.logger)
	return a.run(ctx, func(ctx context.Context) error {
		return httpapi.Serve(ctx, a.cfg.HTTP.Addr, handler, a.logger)
	})
}

// run starts the background work and the foreground server in one group.
// When the server returns, the background work is stopped.
func (a *App) run(ctx context.Context, serve func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if a.cfg.Watch.Enabled {
		w, err := watch.New(a.layout.DataDir, catalog.CatalogFiles(), a.cfg.Watch.Debounce, a.resolver.Reload, a.logger)
		if err != nil {
			a.logger.Warn("file watching disabled", zap.Error(err))
		} else {
			g.Go(func() error { return w.Run(gctx) })
		}
	}

	if a.fetcher != nil && a.cfg.Fetch.OnStart {
		g.Go(func() error {
			<-a.fetcher.RunAsync(gctx)
			return nil
		})
	}

	g.Go(func() error {
		defer cancel()
		return serve(gctx)
	})
	return g.Wait()
}

// serverInstructions tells the AI how to use the tools.
func serverInstructions() string {
	return `You have access to craftgraph, a crafting-recipe resolver.

## What it knows

A catalog of recipes: each craftable item maps to the ingredients (and
quantities) one craft consumes. Items without a recipe are raw materials.
The catalog is merged from local files and, when enabled, a remote item
repository. Cycles and redundant ingredients are removed on load, so every
breakdown terminates.

## How to answer crafting questions

1. Names are exact. When the user gives a partial or differently-cased
   name, call recipe_list with a filter first.
2. "What do I need for N x ITEM?": call recipe_get (direct ingredients and
   the full tree) or recipe_expand (readable tree plus raw material totals).
3. "What am I missing?": call craft_plan. It subtracts what the user holds
   (inventory_list, inventory_get) before crafting intermediates.
4. When the user reports gathering or using items, call inventory_set with
   'delta' (or 'amount' for an absolute count).
5. If recipes look outdated, call recipe_fetch; after editing catalog files
   by hand, call recipe_reload.

Quantities are integers and saturate instead of overflowing.`
}
