package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/threadbridge/internal/liveblocks"
)

// RoomsCommand returns manual room maintenance commands. These exist for
// cleaning up after aborted test runs; the migration itself never deletes.
func RoomsCommand() *cli.Command {
	return &cli.Command{
		Name:  "rooms",
		Usage: "Inspect and clean up destination rooms",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List all destination rooms",
				Action: runRoomsList,
			},
			{
				Name:      "delete",
				Usage:     "Delete a destination room and everything in it",
				ArgsUsage: "ROOM_ID",
				Action:    runRoomsDelete,
			},
		},
	}
}

func destinationClient(c *cli.Context) (*liveblocks.Client, error) {
	cfg, err := loadValidatedConfig(c)
	if err != nil {
		return nil, err
	}
	return liveblocks.NewClient(cfg.Liveblocks.BaseURL, cfg.Liveblocks.SecretKey), nil
}

func runRoomsList(c *cli.Context) error {
	client, err := destinationClient(c)
	if err != nil {
		return err
	}

	rooms, err := client.ListRooms(c.Context)
	if err != nil {
		return fmt.Errorf("failed to list rooms: %w", err)
	}

	for _, room := range rooms {
		fmt.Println(room.ID)
	}
	fmt.Printf("%d rooms\n", len(rooms))
	return nil
}

func runRoomsDelete(c *cli.Context) error {
	roomID := c.Args().First()
	if roomID == "" {
		return fmt.Errorf("room id is required")
	}

	client, err := destinationClient(c)
	if err != nil {
		return err
	}

	if err := client.DeleteRoom(c.Context, roomID); err != nil {
		return fmt.Errorf("failed to delete room %s: %w", roomID, err)
	}

	fmt.Printf("Deleted room %s\n", roomID)
	return nil
}
