// Command bizextract runs the extraction pipeline over documents on disk.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(NewOptions()).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
