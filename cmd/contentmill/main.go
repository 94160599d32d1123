// Package main provides the entry point for the contentmill CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/raphaelgruber/contentmill/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
