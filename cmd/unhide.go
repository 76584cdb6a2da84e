package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/illarion/phantom/internal/fsattr"
	"github.com/illarion/phantom/internal/store"
)

// Unhide makes a hidden folder visible again.
func Unhide() *cli.Command {
	return &cli.Command{
		Name:      "unhide",
		Usage:     "Make a hidden folder visible again",
		ArgsUsage: "<vault-id|folder>",
		Action:    runUnhide,
	}
}

func runUnhide(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.Args().First()
	if ref == "" {
		return errors.New("usage: phantom unhide <vault-id|folder>")
	}

	app, err := OpenApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	newPath, err := app.Engine().UnhideFolder(ctx, ref)
	if errors.Is(err, store.ErrVaultNotFound) {
		newPath, err = fsattr.Unhide(ref)
	}
	if err != nil {
		return friendlyError(err)
	}

	fmt.Printf("Visible: %s\n", newPath)
	return nil
}
