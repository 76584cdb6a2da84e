package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/illarion/phantom/internal/crypto"
	"github.com/illarion/phantom/internal/engine"
)

// Unseal restores the plaintext files of a sealed vault folder.
func Unseal() *cli.Command {
	return &cli.Command{
		Name:      "unseal",
		Usage:     "Decrypt a sealed vault folder",
		ArgsUsage: "<vault-id|folder>",
		Action:    runUnseal,
	}
}

func runUnseal(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.Args().First()
	if ref == "" {
		return errors.New("usage: phantom unseal <vault-id|folder>")
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

	password, err := ResolvePassword(record.VaultID)
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(password)

	var bar *progressbar.ProgressBar
	eng := app.Engine(engine.WithProgress(func(op engine.Op, done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Unsealing"),
				progressbar.OptionSetRenderBlankState(true),
				progressbar.OptionShowCount(),
				progressbar.OptionThrottle(100*time.Millisecond),
			)
		}
		_ = bar.Set(done)
	}))

	res, err := eng.DecryptFolder(ctx, record.Location, password)
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}
	if err != nil {
		return friendlyError(err)
	}

	fmt.Printf("Unsealed %d files (%s) in %s\n",
		len(res.Files), humanize.Bytes(uint64(res.Bytes)), record.Location)
	return nil
}
