// File: cmd/pagelens/main.go
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/pagelens/cmd"
	"github.com/xkilldash9x/pagelens/internal/observability"
)

// main is the entry point of the application.
func main() {
	// Set up a context that listens for interrupt signals (SIGINT, SIGTERM)
	// for graceful shutdown; the browser session tears down on cancel.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	defer observability.Sync()

	cmd.ExecuteContext(ctx)
}
