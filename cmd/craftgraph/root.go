package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HendryAvila/craftgraph/internal/config"
	"github.com/HendryAvila/craftgraph/internal/logging"
	"github.com/HendryAvila/craftgraph/internal/render"
	"github.com/HendryAvila/craftgraph/internal/server"
)

// cli carries the global flags and the state built from them.
type cli struct {
	configPath string
	logLevel   string
	noColor    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "craftgraph",
		Short: "Crafting-recipe dependency resolver",
		Long: `craftgraph merges recipe catalogs, removes cycles and redundant
ingredients, and expands any item into the raw materials it takes.

Add it to your AI tool's MCP config:

  {
    "mcpServers": {
      "craftgraph": {
        "command": "craftgraph",
        "args": ["serve"]
      }
    }
  }`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: ./craftgraph.yaml or ~/.craftgraph/craftgraph.yaml)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override the configured log level")
	root.PersistentFlags().BoolVar(&c.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		c.newServeCmd(),
		c.newHTTPCmd(),
		c.newRecipeCmd(),
		c.newPlanCmd(),
		c.newNamesCmd(),
		c.newFetchCmd(),
		c.newInventoryCmd(),
		newVersionCmd(),
	)
	return root
}

// setup loads the configuration and builds the logger.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	c.cfg, c.logger = cfg, logger
	return nil
}

func (c *cli) openApp(ctx context.Context) (*server.App, error) {
	app, err := server.NewApp(ctx, c.cfg, c.logger)
	if err != nil {
		return nil, fmt.Errorf("starting craftgraph: %w", err)
	}
	return app, nil
}

func (c *cli) renderOptions() *render.Options {
	return &render.Options{NoColor: c.noColor}
}

// signalContext is canceled on interrupt or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func (c *cli) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server (stdio transport)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			app, err := c.openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			return app.ServeMCP(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func (c *cli) newHTTPCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "http",
		Short: "Start the REST API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				c.cfg.HTTP.Addr = addr
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			app, err := c.openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			return app.ServeHTTP(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http.addr)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "craftgraph v%s\n", server.Version)
		},
	}
}
