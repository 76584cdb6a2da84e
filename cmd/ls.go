package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/illarion/phantom/internal/manifest"
)

// List prints every registered vault.
func List() *cli.Command {
	return &cli.Command{
		Name:  "ls",
		Usage: "List registered vaults",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
		},
		Action: runList,
	}
}

type vaultRow struct {
	VaultID  string    `json:"vaultId"`
	Name     string    `json:"name"`
	Location string    `json:"location"`
	Sealed   bool      `json:"sealed"`
	Created  time.Time `json:"created"`
}

func runList(ctx context.Context, cmd *cli.Command) error {
	app, err := OpenApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	ids, err := app.Store.ListVaults()
	if err != nil {
		return err
	}

	rows := make([]vaultRow, 0, len(ids))
	for _, id := range ids {
		record, err := app.Store.LoadVault(id)
		if err != nil {
			return err
		}
		rows = append(rows, vaultRow{
			VaultID:  record.VaultID,
			Name:     record.Name,
			Location: record.Location,
			Sealed:   manifest.Exists(record.Location),
			Created:  record.CreatedTime,
		})
	}

	if cmd.Bool("json") {
		return printJSON(rows)
	}

	if len(rows) == 0 {
		fmt.Println("No vaults registered")
		return nil
	}
	for _, row := range rows {
		state := "open"
		if row.Sealed {
			state = "sealed"
		}
		fmt.Printf("%-24s %-7s %-20s %s\n", row.VaultID, state, row.Name, row.Location)
	}
	return nil
}
