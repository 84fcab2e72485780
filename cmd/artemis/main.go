package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mydotey/artemis/internal/app"
	"github.com/mydotey/artemis/internal/config"
)

func main() {
	host := flag.String("host", "", "listen host (overrides ARTEMIS_HOST)")
	port := flag.Int("port", 0, "listen port (overrides ARTEMIS_PORT)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: loading config: %v\n", err)
		os.Exit(1)
	}

	// CLI flags override env vars.
	if *host != "" {
		cfg.Host = *host
	}
	if *port != 0 {
		cfg.Port = *port
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx, cfg); err != nil {
		slog.Error("fatal", "error", err)
		if errors.Is(err, app.ErrBind) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
