package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/kirillkom/relationship-assistant/internal/adapters/mcp"
	"github.com/kirillkom/relationship-assistant/internal/bootstrap"
	"github.com/kirillkom/relationship-assistant/internal/config"
	"github.com/kirillkom/relationship-assistant/internal/observability/logging"
)

// The MCP entrypoint speaks the protocol over stdio, so structured logs
// go to stderr to keep stdout clean.
func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	server := mcpadapter.NewServer(app.ToolRegistry())
	if err := server.ServeStdio(); err != nil {
		slog.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}
