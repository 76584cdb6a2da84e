package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/illarion/phantom/internal/crypto"
	"github.com/illarion/phantom/internal/engine"
	"github.com/illarion/phantom/internal/keyring"
)

// Passwd changes the password of an open vault.
func Passwd() *cli.Command {
	return &cli.Command{
		Name:      "passwd",
		Usage:     "Change the password of an open vault",
		ArgsUsage: "<vault-id|folder>",
		Action:    runPasswd,
	}
}

func runPasswd(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.Args().First()
	if ref == "" {
		return errors.New("usage: phantom passwd <vault-id|folder>")
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

	// Get current password
	currentPassword, err := ResolvePassword(record.VaultID)
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(currentPassword)

	// Get new password
	newPassword, err := ReadPasswordConfirm()
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(newPassword)

	if err := eng.ChangePassword(ctx, record.VaultID, currentPassword, newPassword); err != nil {
		if errors.Is(err, engine.ErrAlreadyEncrypted) {
			return fmt.Errorf("vault is sealed; run 'phantom unseal %s' before changing the password", ref)
		}
		return friendlyError(err)
	}

	// Refresh the keyring entry when one exists
	if keyring.HasPassword(record.VaultID) {
		if err := keyring.SavePassword(record.VaultID, string(newPassword)); err == nil {
			fmt.Println("Keyring updated with new password")
		}
	}

	fmt.Println("password changed successfully")
	return nil
}
