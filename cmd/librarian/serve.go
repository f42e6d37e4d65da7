package main

import (
	"github.com/effective-security/xlog"
	"github.com/spf13/cobra"

	"github.com/mlziade/librarian/internal/version"
	"github.com/mlziade/librarian/mcp/transport"
	"github.com/mlziade/librarian/mcp/transport/httptransport"
	"github.com/mlziade/librarian/mcp/transport/wstransport"
)

var logger = xlog.NewPackageLogger("github.com/mlziade/librarian", "cmd")

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP and WebSocket channels concurrently",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, server, err := setup()
		if err != nil {
			return err
		}

		httpTr := httptransport.New(cfg.HTTP.Endpoint).
			WithAddr(cfg.HTTP.Addr).
			WithServerInfo("librarian", version.Version)
		wsTr := wstransport.New(cfg.WebSocket.Endpoint).
			WithAddr(cfg.WebSocket.Addr)

		channels := map[string]transport.Transport{
			"http":      httpTr,
			"websocket": wsTr,
		}

		// A channel failing to start is logged, not fatal: the surviving
		// channels keep serving.
		done := make(chan struct{})
		for name, tr := range channels {
			go func(name string, tr transport.Transport) {
				logger.KV(xlog.INFO, "reason", "channel_start", "channel", name)
				if err := server.Serve(tr); err != nil {
					logger.KV(xlog.ERROR, "reason", "channel_failed", "channel", name, "err", err.Error())
				}
				done <- struct{}{}
			}(name, tr)
		}

		ctxDone := cmd.Context().Done()
		for remaining := len(channels); remaining > 0; {
			select {
			case <-ctxDone:
				logger.KV(xlog.INFO, "reason", "shutdown")
				for _, tr := range channels {
					_ = tr.Close()
				}
				ctxDone = nil
			case <-done:
				remaining--
			}
		}
		return nil
	},
}
