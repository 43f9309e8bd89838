// Command podcastctl is a command-line client for the podcast generation API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tbourn/go-podcast-backend/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.Execute(ctx)
	stop()
	os.Exit(code)
}
