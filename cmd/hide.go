package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/illarion/phantom/internal/fsattr"
	"github.com/illarion/phantom/internal/store"
)

// Hide dot-renames a folder so file browsers skip it. Registered
// vaults keep their registry record in sync with the new path.
func Hide() *cli.Command {
	return &cli.Command{
		Name:      "hide",
		Usage:     "Hide a folder from directory listings",
		ArgsUsage: "<vault-id|folder>",
		Action:    runHide,
	}
}

func runHide(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.Args().First()
	if ref == "" {
		return errors.New("usage: phantom hide <vault-id|folder>")
	}

	app, err := OpenApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	newPath, err := app.Engine().HideFolder(ctx, ref)
	if errors.Is(err, store.ErrVaultNotFound) {
		// Plain folder, no vault record to keep in sync.
		newPath, err = fsattr.Hide(ref)
	}
	if err != nil {
		return friendlyError(err)
	}

	fmt.Printf("Hidden: %s\n", newPath)
	return nil
}
