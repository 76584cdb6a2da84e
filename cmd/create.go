package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/illarion/phantom/internal/crypto"
	"github.com/illarion/phantom/internal/keyring"
)

// Create registers a folder as a new encrypted vault.
func Create() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Register a folder as a new vault",
		ArgsUsage: "<folder>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "name",
				Aliases: []string{"n"},
				Usage:   "Display name for the vault (defaults to the folder name)",
			},
			&cli.BoolFlag{
				Name:  "keyring",
				Usage: "Store the password in the OS keyring",
			},
		},
		Action: runCreate,
	}
}

func runCreate(ctx context.Context, cmd *cli.Command) error {
	folder := cmd.Args().First()
	if folder == "" {
		return errors.New("usage: phantom create <folder>")
	}

	app, err := OpenApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	password, err := NewPassword()
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(password)

	name := cmd.String("name")
	if name == "" {
		abs, err := filepath.Abs(folder)
		if err != nil {
			return err
		}
		name = filepath.Base(abs)
	}

	record, err := app.Engine().CreateVault(ctx, folder, name, password)
	if err != nil {
		return friendlyError(err)
	}

	if cmd.Bool("keyring") {
		if err := keyring.SavePassword(record.VaultID, string(password)); err != nil {
			app.Log.Warn().Err(err).Msg("failed to store password in keyring")
		} else {
			fmt.Println("Password saved to keyring")
		}
	}

	fmt.Printf("Created vault %s at %s\n", record.VaultID, record.Location)
	return nil
}
