// Package main is the entry point for the tasksync CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tasksync/internal/backend/googletasks"
	"tasksync/internal/backend/rest"
	"tasksync/internal/cli"
	"tasksync/internal/commands"
	"tasksync/internal/config"
	"tasksync/internal/service"
)

func main() {
	// Cancel on interrupt so in-flight requests and `serve` stop cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, newService)
	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)

	stop()
	os.Exit(code)
}

// newService selects the backend named in the config.
func newService(ctx context.Context, cfg *config.Config, log *slog.Logger) (service.Service, error) {
	switch cfg.Backend {
	case config.BackendREST:
		return rest.New(ctx, cfg.Remote.BaseURL, cfg.Remote.Token,
			rest.WithTimeout(cfg.RemoteTimeout()),
			rest.WithLogger(log),
		)
	case config.BackendGoogleTasks:
		return googletasks.New(ctx, cfg, log)
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}
