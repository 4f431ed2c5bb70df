package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tapgate/internal/app/bootstrap"
)

// API process entrypoint.
// Data flow:
// 1) Load config and the distributor inventory.
// 2) Build app wiring (ports + adapters + use cases).
// 3) Start HTTP server.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.BuildAPI()
	if err != nil {
		slog.Error("api bootstrap failed",
			"event", "bootstrap_api_failed",
			"module", "cmd/api",
			"layer", "platform",
			"error", err.Error(),
		)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil {
		slog.Error("api run failed",
			"event", "api_run_failed",
			"module", "cmd/api",
			"layer", "platform",
			"error", err.Error(),
		)
		os.Exit(1)
	}
}
