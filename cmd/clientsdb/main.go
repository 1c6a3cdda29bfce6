package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"clientsdb/logging"
)

func main() {
	logging.Setup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{open: openRegistry}
	err := a.rootCmd().ExecuteContext(ctx)
	a.close()
	if err != nil {
		slog.Error("command failed", "error", err)
		stop()
		os.Exit(1)
	}
}
