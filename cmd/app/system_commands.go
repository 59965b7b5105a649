package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/brightchat/fieldvault/cmd/app/commands"
	"github.com/brightchat/fieldvault/internal/app"
	"github.com/brightchat/fieldvault/internal/config"
)

func getSystemCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "migrate",
			Usage: "Create the document tables for the SQL store drivers",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunMigrations(
					container.Logger(),
					cfg.StoreDriver,
					cfg.StoreConnectionString,
				)
			},
		},
		{
			Name:  "verify-audit",
			Usage: "Verify cryptographic integrity of the audit trail",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "path",
					Value: "",
					Usage: "Audit trail file (defaults to AUDIT_LOG_PATH)",
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
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				secret, err := container.MasterSecret()
				if err != nil {
					return err
				}

				path := cmd.String("path")
				if path == "" {
					path = cfg.AuditLogPath
				}

				return commands.RunVerifyAudit(
					container.Logger(),
					commands.DefaultIO().Writer,
					path,
					secret,
					cmd.String("format"),
				)
			},
		},
	}
}
