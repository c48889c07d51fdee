// Package main is the entry point for the photoreport archive and mail tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shineum/photoreport/internal/cli"
)

func main() {
	// Cancel in-flight delivery on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	err := cli.NewRootCommand(cli.Options{}).ExecuteContext(ctx)
	if err == nil {
		return
	}

	// The validation message has already been printed.
	if !errors.Is(err, cli.ErrInvalidArguments) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	stop()
	os.Exit(1)
}
