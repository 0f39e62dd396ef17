package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/craftgraph/internal/fetcher"
	"github.com/HendryAvila/craftgraph/internal/plan"
	"github.com/HendryAvila/craftgraph/internal/render"
)

var errInventoryUnavailable = errors.New("inventory is unavailable (see the log for why the database could not be opened)")

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

func checkAmount(n int64) error {
	if n <= 0 {
		return fmt.Errorf("amount must be a positive integer, got %d", n)
	}
	return nil
}

func (c *cli) newRecipeCmd() *cobra.Command {
	var (
		amount int64
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "recipe NAME",
		Short: "Print the crafting tree and raw material totals of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkAmount(amount); err != nil {
				return err
			}
			app, err := c.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			name := args[0]
			out := cmd.OutOrStdout()
			if asJSON {
				resp, ok := app.Resolver().GetRecipe(name, amount)
				if !ok {
					return fmt.Errorf("no recipe for %q", name)
				}
				return writeJSON(out, resp)
			}

			node := app.Resolver().Expand(name, amount)
			render.Tree(out, node, c.renderOptions())
			fmt.Fprintln(out)
			render.Totals(out, "Raw materials", node.LeafTotals(), c.renderOptions())
			return nil
		},
	}
	cmd.Flags().Int64VarP(&amount, "amount", "n", 1, "how many to craft")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the recipe response as JSON")
	return cmd
}

func (c *cli) newPlanCmd() *cobra.Command {
	var (
		amount int64
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "plan NAME",
		Short: "Plan crafting an item against the inventory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkAmount(amount); err != nil {
				return err
			}
			ctx := cmd.Context()
			app, err := c.openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			var holdings map[string]int64
			if inv := app.Inventory(); inv != nil {
				if holdings, err = inv.Holdings(ctx); err != nil {
					return fmt.Errorf("reading inventory: %w", err)
				}
			}

			p := plan.Build(app.Resolver().Snapshot(), args[0], amount, holdings)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), p)
			}
			render.Plan(cmd.OutOrStdout(), p, c.renderOptions())
			return nil
		},
	}
	cmd.Flags().Int64VarP(&amount, "amount", "n", 1, "how many to craft")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the plan as JSON")
	return cmd
}

func (c *cli) newNamesCmd() *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "names",
		Short: "List the items that have a recipe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			needle := strings.ToLower(strings.TrimSpace(filter))
			for _, name := range app.Resolver().ListNames() {
				if needle == "" || strings.Contains(strings.ToLower(name), needle) {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "case-insensitive substring to match")
	return cmd
}

func (c *cli) newFetchCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the remote catalogs now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.cfg.Fetch.Enabled = true
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			app, err := c.openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			res, runErr := app.Fetcher().Run(ctx)
			out := cmd.OutOrStdout()
			if asJSON {
				if err := writeJSON(out, res); err != nil {
					return err
				}
				return runErr
			}
			if runErr != nil {
				return runErr
			}
			printFetchResult(out, res)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func printFetchResult(w io.Writer, res fetcher.Result) {
	switch res.Outcome {
	case fetcher.OutcomeNoSources:
		fmt.Fprintln(w, "No remote sources configured.")
		return
	case fetcher.OutcomeNotModified:
		fmt.Fprintf(w, "Not modified: %s\n", res.Source)
	default:
		fmt.Fprintf(w, "Updated from %s: %d recipes, %d forge recipes\n", res.Source, res.Recipes, res.ForgeRecipes)
	}
	if res.ReloadError != "" {
		fmt.Fprintf(w, "warning: reload failed: %s\n", res.ReloadError)
	}
	if res.NotifyError != "" {
		fmt.Fprintf(w, "warning: inventory update failed: %s\n", res.NotifyError)
	}
}

func (c *cli) newInventoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Read or change held item amounts",
	}

	get := &cobra.Command{
		Use:   "get NAME",
		Short: "Print the held amount of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := c.openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			inv := app.Inventory()
			if inv == nil {
				return errInventoryUnavailable
			}
			n, err := inv.Amount(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", args[0], n)
			return nil
		},
	}

	var delta int64
	set := &cobra.Command{
		Use:   "set NAME [AMOUNT]",
		Short: "Set the held amount of an item, or adjust it with --delta",
		Example: `  craftgraph inventory set "Iron Ingot" 640
  craftgraph inventory set "Iron Ingot" --delta -64`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			adjust := cmd.Flags().Changed("delta")
			if adjust == (len(args) == 2) {
				return errors.New("give exactly one of AMOUNT or --delta")
			}
			var amount int64
			if !adjust {
				n, err := strconv.ParseInt(args[1], 10, 64)
				if err != nil || n < 0 {
					return fmt.Errorf("amount must be a non-negative integer, got %q", args[1])
				}
				amount = n
			}

			ctx := cmd.Context()
			app, err := c.openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			inv := app.Inventory()
			if inv == nil {
				return errInventoryUnavailable
			}
			if adjust {
				total, err := inv.Adjust(ctx, name, delta)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %+d → %d\n", name, delta, total)
				return nil
			}
			if err := inv.SetAmount(ctx, name, amount); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", name, amount)
			return nil
		},
	}
	set.Flags().Int64Var(&delta, "delta", 0, "add this amount (may be negative) instead of replacing")

	cmd.AddCommand(get, set)
	return cmd
}
