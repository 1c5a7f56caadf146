// Package main provides the flowforge command-line tool for inspecting and moving flows.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/dukex/flowforge/pkg/cmd"
	"github.com/dukex/flowforge/pkg/document"
	"github.com/dukex/flowforge/pkg/log"
	"github.com/dukex/flowforge/pkg/services"
	"github.com/go-playground/validator/v10"
	cli "github.com/urfave/cli/v3"
)

var errMissingArgument = errors.New("missing argument")

// NewApp builds the flowforge command tree writing its output to out.
func NewApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:                  "flowforge",
		Usage:                 "Inspect, export and import flows",
		EnableShellCompletion: true,
		Writer:                out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Persistence URL (file://<dir>, postgres://..., redis://..., mem://)",
				Value:   "file://./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "catalog-file",
				Usage:   "JSON file listing servers and their services",
				Sources: cli.EnvVars("CATALOG_FILE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "drafts",
				Usage: "Manage drafts",
				Commands: []*cli.Command{
					NewListDraftsCommand(),
				},
			},
			{
				Name:  "live",
				Usage: "Manage live flows",
				Commands: []*cli.Command{
					NewListLiveFlowsCommand(),
				},
			},
			NewExportCommand(),
			NewImportCommand(),
		},
	}
}

func NewListDraftsCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List drafts",
		Action: func(ctx context.Context, command *cli.Command) error {
			return withLifecycle(ctx, command, func(lifecycle *services.Lifecycle) error {
				drafts, err := lifecycle.Drafts(ctx)
				if err != nil {
					return fmt.Errorf("failed to fetch drafts: %w", err)
				}

				w := tabwriter.NewWriter(command.Root().Writer, 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(w, "ID\tTITLE\tVERSION\tAUTHOR\tCELLS")

				for _, draft := range drafts {
					_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n",
						draft.ID, draft.Metadata.Title, draft.Metadata.Version, draft.Metadata.Author, len(draft.Cells))
				}

				return w.Flush()
			})
		},
	}
}

func NewListLiveFlowsCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List live flows and their versions",
		Action: func(ctx context.Context, command *cli.Command) error {
			return withLifecycle(ctx, command, func(lifecycle *services.Lifecycle) error {
				flows, err := lifecycle.LiveFlows(ctx)
				if err != nil {
					return fmt.Errorf("failed to fetch live flows: %w", err)
				}

				out := command.Root().Writer

				for _, flow := range flows {
					_, _ = fmt.Fprintf(out, "%d\t%s\t(live %s, revision %d)\n", flow.ID, flow.Title(), flow.LiveVersion, flow.Revision)

					for _, version := range flow.Versions {
						marker := " "
						if version.Metadata.Version == flow.LiveVersion {
							marker = "*"
						}

						_, _ = fmt.Fprintf(out, "  %s %s\t%d\t%d cells\n", marker, version.Metadata.Version, version.ID, len(version.Cells))
					}
				}

				return nil
			})
		},
	}
}

func NewExportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export a draft, or a version of a live flow, as a flow document",
		ArgsUsage: "<draft-id | live-flow-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "version",
				Usage: "Export this version label of a live flow instead of a draft",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to this file instead of standard output",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			id, err := strconv.ParseInt(command.Args().First(), 10, 64)
			if err != nil {
				return fmt.Errorf("%w: numeric id required", errMissingArgument)
			}

			return withLifecycle(ctx, command, func(lifecycle *services.Lifecycle) error {
				var doc *document.Document

				if label := command.String("version"); label != "" {
					doc, err = lifecycle.ExportVersion(ctx, id, label)
				} else {
					doc, err = lifecycle.ExportDraft(ctx, id)
				}

				if err != nil {
					return err
				}

				payload, err := json.MarshalIndent(doc, "", "  ")
				if err != nil {
					return err
				}

				if path := command.String("output"); path != "" {
					return os.WriteFile(path, payload, 0o600)
				}

				_, err = fmt.Fprintln(command.Root().Writer, string(payload))

				return err
			})
		},
	}
}

func NewImportCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Create a draft from a flow document",
		ArgsUsage: "<file>",
		Action: func(ctx context.Context, command *cli.Command) error {
			path := command.Args().First()
			if path == "" {
				return fmt.Errorf("%w: document file required", errMissingArgument)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read document: %w", err)
			}

			return withLifecycle(ctx, command, func(lifecycle *services.Lifecycle) error {
				draft, err := lifecycle.ImportDraft(ctx, data)
				if err != nil {
					return err
				}

				_, err = fmt.Fprintf(command.Root().Writer, "Imported draft %d (%s, %d cells)\n",
					draft.ID, draft.Metadata.Title, len(draft.Cells))

				return err
			})
		},
	}
}

// withLifecycle opens the configured store for the duration of fn.
func withLifecycle(ctx context.Context, command *cli.Command, fn func(*services.Lifecycle) error) error {
	log.Setup(command.String("log-level"))
	logger := log.WithModule("cli")

	catalog, err := cmd.LoadCatalog(command.String("catalog-file"), validator.New(validator.WithRequiredStructEnabled()))
	if err != nil {
		return err
	}

	persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := persistence.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	lifecycle := services.NewLifecycle(persistence, services.WithCatalog(catalog), services.WithLogger(logger))
	if err := lifecycle.Init(ctx); err != nil {
		return err
	}

	return fn(lifecycle)
}
