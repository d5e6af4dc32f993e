// Command mcpengine is a thin demonstration harness around the engine,
// session, and transport packages: a stdio or SSE server with a demo/echo
// handler (ping is answered by the engine's built-in default), and a demo
// that creates in-memory sessions and reports them, built the way the
// teacher pack's own CLI
// tools compose Cobra commands (H0llyW00dzZ-tls-cert-chain-resolver's
// src/cli/root.go) with a tablewriter-rendered diagnostics view
// (src/mcp-server/resource_usage.go, src/internal/x509/chain/visualization.go).
package main

import (
	"fmt"
	"os"

	"github.com/mcpcore/engine/cmd/mcpengine/internal/cli"
)

func main() {
	if err := cli.Execute(version); err != nil {
		fmt.Fprintln(os.Stderr, "mcpengine:", err)
		os.Exit(1)
	}
}

// version is overridden at build time via -ldflags, mirroring the teacher
// tool's pattern of a version string threaded into the root command.
var version = "dev"
