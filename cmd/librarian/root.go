package main

import (
	"net/http"
	"os"
	"strings"

	"github.com/effective-security/xlog"
	"github.com/spf13/cobra"

	"github.com/mlziade/librarian/internal/config"
	"github.com/mlziade/librarian/internal/version"
	"github.com/mlziade/librarian/mcp"
	"github.com/mlziade/librarian/resources"
	"github.com/mlziade/librarian/tools/wikipedia"
	"github.com/mlziade/librarian/wiki"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "librarian",
	Short: "Wikipedia tool server for LLM agents",
	Long: `Librarian serves Wikipedia search, page, summary and section tools to
LLM agents over the Model Context Protocol.

Channels:
  - stdio: newline-delimited JSON-RPC on stdin/stdout (librarian stdio)
  - HTTP and WebSocket endpoints served concurrently (librarian serve)`,
	Version: version.Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.librarian/config.yaml)",
	)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(stdioCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads the configuration, configures logging and builds the server
// with every tool, prompt and resource registered.
func setup() (*config.Config, *mcp.Server, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	// Logs go to stderr: on the stdio channel, stdout carries the protocol.
	xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))
	xlog.SetGlobalLogLevel(logLevel(cfg.Logging.Level))

	client := wiki.NewClient().
		WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}).
		WithUserAgent(cfg.UserAgent).
		WithDefaultLanguage(cfg.DefaultLanguage).
		WithLimiter(wiki.NewLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec))

	server := mcp.NewServer(
		mcp.WithName("librarian"),
		mcp.WithVersion(version.Version),
	)
	if err := wikipedia.Register(server, client); err != nil {
		return nil, nil, err
	}
	if err := resources.RegisterPrompts(server); err != nil {
		return nil, nil, err
	}
	if err := resources.RegisterResources(server); err != nil {
		return nil, nil, err
	}
	return cfg, server, nil
}

func logLevel(level string) xlog.LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG", "TRACE":
		return xlog.DEBUG
	case "WARNING", "WARN":
		return xlog.WARNING
	case "ERROR":
		return xlog.ERROR
	default:
		return xlog.INFO
	}
}
