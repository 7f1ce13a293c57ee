package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/threadbridge/internal/api"
	"github.com/threadbridge/pkg/models"
)

// APICommand returns the CLI command for starting the API server
func APICommand() *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Start the ThreadBridge API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the API server (overrides config)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadValidatedConfig(c)
			if err != nil {
				return err
			}

			port := cfg.API.Port
			if c.IsSet("port") {
				port = c.Int("port")
			}

			runner := func(ctx context.Context) models.Report {
				return runMigration(ctx, cfg)
			}

			fmt.Printf("Starting ThreadBridge API server on port %d...\n", port)
			server := api.NewServer(port, runner)
			return server.Start()
		},
	}
}
