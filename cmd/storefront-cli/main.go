// Package main is the entry point for storefront-cli.
//
// storefront-cli signs in to the storefront backends, browses the catalog
// and manages the cart and orders, either one command at a time or from the
// interactive shell.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yndnr/storefront-go/internal/cli/command"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt := command.NewRuntime()
	defer func() {
		if cerr := rt.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("shutdown: %w", cerr)
		}
	}()

	return command.Friendly(command.NewApp(rt).RunContext(ctx, os.Args))
}
