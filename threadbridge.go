package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/threadbridge/cmd"
)

const (
	version = "0.1.0"
)

func main() {
	app := &cli.App{
		Name:    "threadbridge",
		Usage:   "Migrate threaded conversations from a Cord datastore into Liveblocks",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
			},
		},
		Commands: []*cli.Command{
			cmd.MigrateCommand(),
			cmd.APICommand(),
			cmd.RoomsCommand(),
			cmd.ConfigCommand(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
