package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/mcpcore/engine/config"
	"github.com/mcpcore/engine/engine"
	"github.com/mcpcore/engine/mcp"
	"github.com/mcpcore/engine/session"
	"github.com/mcpcore/engine/transport/sse"
	"github.com/mcpcore/engine/transport/stdio"
)

func newServeCommand() *cobra.Command {
	var transportName string
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run an engine session over stdio or SSE",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := config.Load(configFile)
			if err != nil {
				return err
			}
			opts.ServerInfo = mcp.Implementation{Name: "mcpengine", Version: "dev"}

			registry := engine.NewRegistry()
			registry.SetRequestHandler(echoMethod, echoHandler)

			mux := session.New(registry, *opts)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go waitForSignal(cancel)

			switch coalesce(transportName, "stdio") {
			case "sse":
				return serveSSE(ctx, mux, coalesce(addr, ":8085"))
			default:
				return serveStdio(ctx, mux)
			}
		},
	}

	cmd.Flags().StringVarP(&transportName, "transport", "t", "stdio", "transport to serve on: stdio or sse")
	cmd.Flags().StringVar(&addr, "addr", ":8085", "listen address when --transport=sse")
	return cmd
}

const echoMethod = "demo/echo"

// echoKnownParamFields is what echoHandler itself understands; anything
// else in the caller's params is round-tripped onto the result unchanged
// via Context.PreserveUnknownFields instead of being silently dropped
// (spec §4.1 forward-compatible result decoding).
var echoKnownParamFields = map[string]struct{}{"text": {}}

type echoParams struct {
	Text string `json:"text"`
}

type echoResult struct {
	Text string `json:"text"`
}

func echoHandler(ctx context.Context, hctx *engine.Context, params json.RawMessage) (any, error) {
	var in echoParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &in); err != nil {
			return nil, engine.NewInvalidParams(err.Error())
		}
	}
	hctx.PreserveUnknownFields(echoKnownParamFields)
	return echoResult{Text: in.Text}, nil
}

func serveStdio(ctx context.Context, mux *session.Multiplexer) error {
	tr := stdio.New(os.Stdin, os.Stdout)
	_, err := mux.CreateSession(ctx, "stdio", tr)
	if err != nil {
		return err
	}
	<-ctx.Done()
	return mux.CloseSession("stdio")
}

func serveSSE(ctx context.Context, mux *session.Multiplexer, addr string) error {
	router := gin.Default()
	listener := sse.NewListener()
	listener.OnSession = func(t *sse.Transport) {
		sessionID := t.SessionID()
		if _, err := mux.CreateSession(ctx, sessionID, t); err != nil {
			fmt.Fprintln(os.Stderr, "mcpengine: create session:", err)
		}
	}
	listener.Register(router)

	errCh := make(chan error, 1)
	go func() { errCh <- router.Run(addr) }()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func waitForSignal(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	cancel()
}

func coalesce(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
