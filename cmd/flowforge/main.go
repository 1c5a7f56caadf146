package main

import (
	"context"
	"os"

	"github.com/dukex/flowforge/pkg/log"
)

func main() {
	logger := log.WithModule("cli")

	if err := NewApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		logger.Error("flowforge failed", "error", err)
		os.Exit(1)
	}
}
