// Package cli wires the mcpengine Cobra command tree: serve (run a live
// engine over stdio or SSE) and sessions (render a Session Multiplexer
// demo's active connections as a table). Grounded on
// H0llyW00dzZ-tls-cert-chain-resolver's src/cli/root.go Execute pattern.
package cli

import (
	"github.com/spf13/cobra"
)

var (
	configFile string
)

// Execute builds and runs the root command.
func Execute(version string) error {
	root := &cobra.Command{
		Use:     "mcpengine",
		Short:   "MCP protocol engine demonstration server",
		Version: version,
		Example: "  mcpengine serve --transport stdio\n  mcpengine sessions",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to a YAML engine config file")

	root.AddCommand(newServeCommand())
	root.AddCommand(newSessionsCommand())

	return root.Execute()
}
