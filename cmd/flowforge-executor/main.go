package main

import (
	"context"
	"os"
	"strconv"

	"github.com/dukex/flowforge/pkg/execution"
	"github.com/dukex/flowforge/pkg/log"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9092

func main() {
	logger := log.WithModule("executor")

	command := &cli.Command{
		Name:  "flowforge-executor",
		Usage: "Serve the mock execution service",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			port := command.Int("port")
			logger.InfoContext(ctx, "Starting mock execution service", "port", port)

			return NewServer(logger, execution.NewMockExecutor()).Listen(":" + strconv.Itoa(port))
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		logger.Error("flowforge-executor stopped", "error", err)
		os.Exit(1)
	}
}
