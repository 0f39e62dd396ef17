// craftgraph: crafting-recipe dependency resolver.
//
// Resolves how many raw materials an item takes by recursively expanding
// its recipe, and serves those answers to AI tools over MCP or to anything
// else over a small REST API.
//
// Usage:
//
//	craftgraph serve              # Start MCP server (stdio transport)
//	craftgraph http               # Start the REST API
//	craftgraph recipe NAME -n 4   # Print the crafting tree
//	craftgraph fetch              # Refresh the remote catalogs
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
