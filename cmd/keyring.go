package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/illarion/phantom/internal/crypto"
	"github.com/illarion/phantom/internal/keyring"
)

// Keyring manages vault passwords stored in the OS keyring.
func Keyring() *cli.Command {
	return &cli.Command{
		Name:  "keyring",
		Usage: "Manage vault passwords in the OS keyring",
		Commands: []*cli.Command{
			{
				Name:      "save",
				Usage:     "Store a vault password in the keyring",
				ArgsUsage: "<vault-id|folder>",
				Action:    runKeyringSave,
			},
			{
				Name:      "rm",
				Usage:     "Remove a vault password from the keyring",
				ArgsUsage: "<vault-id|folder>",
				Action:    runKeyringRemove,
			},
			{
				Name:      "status",
				Usage:     "Check whether a vault password is stored",
				ArgsUsage: "<vault-id|folder>",
				Action:    runKeyringStatus,
			},
		},
	}
}

func runKeyringSave(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.Args().First()
	if ref == "" {
		return errors.New("usage: phantom keyring save <vault-id|folder>")
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

	password := PasswordFromEnv()
	if password == nil {
		password, err = ReadPassword("Enter password: ")
		if err != nil {
			return err
		}
	}
	defer crypto.ClearBytes(password)

	// Verify first so the keyring never holds a bad password.
	if err := eng.VerifyPassword(record, password); err != nil {
		return friendlyError(err)
	}

	if err := keyring.SavePassword(record.VaultID, string(password)); err != nil {
		return fmt.Errorf("failed to save to keyring: %w", err)
	}
	fmt.Println("Password saved to keyring")
	return nil
}

func runKeyringRemove(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.Args().First()
	if ref == "" {
		return errors.New("usage: phantom keyring rm <vault-id|folder>")
	}

	app, err := OpenApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	record, err := app.Engine().Resolve(ref)
	if err != nil {
		return friendlyError(err)
	}

	if err := keyring.DeletePassword(record.VaultID); err != nil {
		return fmt.Errorf("failed to remove from keyring: %w", err)
	}
	fmt.Println("Password removed from keyring")
	return nil
}

func runKeyringStatus(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.Args().First()
	if ref == "" {
		return errors.New("usage: phantom keyring status <vault-id|folder>")
	}

	app, err := OpenApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	record, err := app.Engine().Resolve(ref)
	if err != nil {
		return friendlyError(err)
	}

	if keyring.HasPassword(record.VaultID) {
		fmt.Println("Password: stored in keyring")
	} else {
		fmt.Println("Password: not stored")
	}
	return nil
}
