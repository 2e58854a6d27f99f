// main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gewnthar/charttiles/cli"
)

func main() {
	// An external abort (CI timeout, operator interrupt) cancels the run
	// context; lanes stop issuing new work and never commit a partial
	// cycle.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
