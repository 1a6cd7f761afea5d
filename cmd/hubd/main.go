// Hubd is the Hub's dedicated serving process. See internal/hub/daemon
// for the full environment variable contract.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bdobrica/Ruriko/internal/hub/daemon"
)

func main() {
	daemon.ConfigureLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := daemon.Run(ctx); err != nil {
		slog.Error("hubd exited with error", "err", err)
		os.Exit(1)
	}
}
