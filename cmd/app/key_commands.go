package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"

	"github.com/brightchat/fieldvault/cmd/app/commands"
	"github.com/brightchat/fieldvault/internal/app"
	"github.com/brightchat/fieldvault/internal/config"
	internalHTTP "github.com/brightchat/fieldvault/internal/http"
	"github.com/brightchat/fieldvault/internal/rotation"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "gen-master-secret",
			Usage: "Generate a new 32-byte master secret for envelope encryption",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "version",
					Value: "",
					Usage: "Version label for the secret (e.g. v2); defaults to v1",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunGenMasterSecret(
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("version"),
				)
			},
		},
		{
			Name:  "rotate-keys",
			Usage: "Rewrap all stored data keys under the new master secret",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:    "preview",
					Aliases: []string{"p"},
					Value:   false,
					Usage:   "Run every cryptographic step but withhold writes",
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

				engine, err := container.RotationEngine()
				if err != nil {
					return err
				}

				oldSecret, err := container.MasterSecret()
				if err != nil {
					return err
				}

				newSecret, err := container.NewMasterSecret()
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

				return commands.RunRotateKeys(
					ctx,
					engine,
					trail,
					metricsServer,
					container.Logger(),
					commands.DefaultIO().Writer,
					rotation.Config{
						Preview:    cmd.Bool("preview"),
						BatchSize:  batchSize,
						Collection: cmd.String("collection"),
						OldSecret:  oldSecret,
						NewSecret:  newSecret,
					},
					cmd.String("format"),
				)
			},
		},
	}
}
