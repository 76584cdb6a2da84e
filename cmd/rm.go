package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/illarion/phantom/internal/keyring"
	"github.com/illarion/phantom/internal/wipe"
)

// Remove deletes a vault record, optionally purging the folder itself.
func Remove() *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "Remove a vault from the registry",
		ArgsUsage: "<vault-id|folder>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "Skip confirmation",
			},
			&cli.BoolFlag{
				Name:  "purge",
				Usage: "Securely delete the folder and its contents as well",
			},
		},
		Action: runRemove,
	}
}

func runRemove(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.Args().First()
	if ref == "" {
		return errors.New("usage: phantom rm <vault-id|folder>")
	}

	app, err := OpenApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	eng := app.Engine()
	record, err := eng.Resolve(ref)
	if err != nil {
		return friendlyError(err)
	}

	if !cmd.Bool("force") {
		prompt := fmt.Sprintf("Remove vault %s (%s)?", record.VaultID, record.Location)
		if cmd.Bool("purge") {
			prompt = fmt.Sprintf("Remove vault %s and wipe %s?", record.VaultID, record.Location)
		}
		if !confirm(prompt) {
			fmt.Println("Aborted")
			return nil
		}
	}

	if cmd.Bool("purge") {
		if err := purgeFolder(record.Location, app.Config.Security.WipePasses); err != nil {
			return fmt.Errorf("purge failed: %w", err)
		}
	}

	if err := eng.DeleteVault(ctx, record.VaultID); err != nil {
		return friendlyError(err)
	}
	if err := keyring.DeletePassword(record.VaultID); err != nil {
		app.Log.Debug().Err(err).Msg("keyring cleanup failed")
	}

	fmt.Printf("Removed vault %s\n", record.VaultID)
	return nil
}

// purgeFolder overwrites every regular file under the folder and then
// removes the whole tree.
func purgeFolder(folder string, passes int) error {
	err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return wipe.Delete(path, passes, nil)
	})
	if err != nil {
		return err
	}
	return os.RemoveAll(folder)
}
