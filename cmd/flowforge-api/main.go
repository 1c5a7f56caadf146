package main

import (
	"context"
	"os"
	"time"

	"github.com/dukex/flowforge/pkg/cmd"
	"github.com/dukex/flowforge/pkg/eventbus"
	"github.com/dukex/flowforge/pkg/log"
	"github.com/dukex/flowforge/pkg/services"
	"github.com/go-playground/validator/v10"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "flowforge-api",
		Usage:                 "Edit, publish and version flows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Persistence URL (file://<dir>, postgres://..., redis://..., mem://)",
				Value:   "file://./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated Kafka brokers",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "executor-url",
				Usage:   "Base URL of the execution service; empty uses the built-in mock",
				Sources: cli.EnvVars("EXECUTOR_URL"),
			},
			&cli.DurationFlag{
				Name:    "executor-timeout",
				Usage:   "Timeout of a single execution request",
				Value:   30 * time.Second,
				Sources: cli.EnvVars("EXECUTOR_TIMEOUT"),
			},
			&cli.StringFlag{
				Name:    "catalog-file",
				Usage:   "JSON file listing servers and their services",
				Sources: cli.EnvVars("CATALOG_FILE"),
			},
			&cli.BoolFlag{
				Name:    "otel",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
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

			logger.InfoContext(ctx, "Initializing FlowForge API")

			tracer, shutdownTracer, err := cmd.NewTracer(ctx, command.Bool("otel"), "flowforge-api")
			if err != nil {
				return err
			}

			defer func() {
				if err := shutdownTracer(context.Background()); err != nil {
					logger.ErrorContext(ctx, "Failed to shutdown tracer", "error", err)
				}
			}()

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(context.Background()); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(cmd.EventBusConfig{
				Provider:     command.String("event-bus"),
				KafkaBrokers: command.String("kafka-brokers"),
				OtelEnabled:  command.Bool("otel"),
			}, logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			if err := eventbus.LogActivity(eventBus, logger); err != nil {
				return err
			}

			if err := eventBus.Subscribe(ctx); err != nil {
				return err
			}

			validate := validator.New(validator.WithRequiredStructEnabled())

			catalog, err := cmd.LoadCatalog(command.String("catalog-file"), validate)
			if err != nil {
				return err
			}

			lifecycle := services.NewLifecycle(
				persistence,
				services.WithCatalog(catalog),
				services.WithExecutor(cmd.NewExecutor(command.String("executor-url"), command.Duration("executor-timeout"), logger)),
				services.WithEventPublisher(eventBus),
				services.WithTracer(tracer),
				services.WithLogger(logger),
			)

			if err := lifecycle.Init(ctx); err != nil {
				return err
			}

			api := NewAPI(logger, lifecycle, validate)

			err = api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return err
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		logger.Error("FlowForge API stopped", "error", err)
		os.Exit(1)
	}
}
