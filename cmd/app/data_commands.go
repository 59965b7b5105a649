package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"

	"github.com/brightchat/fieldvault/cmd/app/commands"
	"github.com/brightchat/fieldvault/internal/app"
	"github.com/brightchat/fieldvault/internal/config"
	internalHTTP "github.com/brightchat/fieldvault/internal/http"
	"github.com/brightchat/fieldvault/internal/migration"
)

func getDataCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "migrate-plaintext",
			Usage: "Encrypt legacy plaintext fields in the configured collections",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:    "dry-run",
					Aliases: []string{"n"},
					Value:   false,
					Usage:   "Encrypt records but withhold writes",
				},
				&cli.IntFlag{
					Name:    "batch-size",
					Aliases: []string{"b"},
					Value:   0,
					Usage:   "Number of records to process per batch (defaults to BATCH_SIZE)",
				},
				&cli.StringFlag{
					Name:    "collection",
					Aliases: []string{"c"},
					Value:   "",
					Usage:   "Restrict the run to one configured collection",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				gin.SetMode(cfg.GetGinMode())

				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				runner, err := container.MigrationRunner()
				if err != nil {
					return err
				}

				secret, err := container.MasterSecret()
				if err != nil {
					return err
				}

				trail, err := container.AuditTrail()
				if err != nil {
					return err
				}

				var metricsServer *internalHTTP.MetricsServer
				if cfg.MetricsEnabled {
					metricsServer, err = container.MetricsServer()
					if err != nil {
						return err
					}
				}

				batchSize := int(cmd.Int("batch-size"))
				if batchSize <= 0 {
					batchSize = cfg.BatchSize
				}

				return commands.RunMigratePlaintext(
					ctx,
					runner,
					trail,
					metricsServer,
					container.Logger(),
					commands.DefaultIO().Writer,
					migration.Config{
						DryRun:     cmd.Bool("dry-run"),
						BatchSize:  batchSize,
						Collection: cmd.String("collection"),
						Secret:     secret,
					},
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "redact",
			Usage: "Scrub PII from text piped through stdin",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				stdio := commands.DefaultIO()
				return commands.RunRedact(
					container.Redactor(),
					container.Logger(),
					stdio.Reader,
					stdio.Writer,
				)
			},
		},
	}
}
