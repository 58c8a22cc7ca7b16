package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/marcelocantos/sudo-mcp/internal/cli"
)

var version = "dev"

func main() {
	// In-flight commands are killed through their contexts on shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := cli.Execute(ctx, version, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
