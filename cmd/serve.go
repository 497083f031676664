package cmd

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mj1618/a11y-chain/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an MCP server exposing the accessibility chains",
	Long: `Start a Model Context Protocol (MCP) server that exposes the chains as tools:
pointer, key, move_mouse, set_features, clear, chains, events, inject_gesture.

Supported transports:
  stdio             Standard I/O (default, for MCP clients)
  streamable-http   Streamable HTTP transport (for remote agents)

Examples:
  a11y-chain serve
  a11y-chain serve --transport streamable-http --port 8080
  a11y-chain serve --dry-run --features touch_exploration`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("transport", "stdio", "Transport: stdio, streamable-http")
	serveCmd.Flags().Int("port", 8080, "HTTP port for streamable-http transport")
	serveCmd.Flags().Int("cache-ttl", 500, "Event journal cache TTL in milliseconds (0 to disable)")
	serveCmd.Flags().String("features", "", "Features to enable, overriding the config")
	serveCmd.Flags().String("journal", "", "Append accessibility events to this sqlite journal")
	serveCmd.Flags().Bool("dbus", false, "Emit accessibility events on the session bus")
	serveCmd.Flags().Bool("dry-run", false, "Record injected events in memory instead of delivering them to the OS")
}

func runServe(cmd *cobra.Command, args []string) error {
	transport, _ := cmd.Flags().GetString("transport")
	port, _ := cmd.Flags().GetInt("port")
	cacheTTLMs, _ := cmd.Flags().GetInt("cache-ttl")
	features, _ := cmd.Flags().GetString("features")
	journal, _ := cmd.Flags().GetString("journal")
	dbus, _ := cmd.Flags().GetBool("dbus")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	srvCfg := server.Config{
		Transport: transport,
		Port:      port,
		CacheTTL:  time.Duration(cacheTTLMs) * time.Millisecond,
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if transport == "stdio" && cfg.Logging.Output == "stdout" {
		return fmt.Errorf("logging to stdout would corrupt the stdio transport")
	}
	rt, err := newRuntime(cfg, runtimeOptions{Live: !dryRun, Features: features, Journal: journal, DBus: dbus})
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(rt.ic, rt.hub, rt.journal, srvCfg, rt.logger())
	return srv.Serve(ctx, srvCfg)
}
