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

// Seal encrypts every file in a vault folder in place.
func Seal() *cli.Command {
	return &cli.Command{
		Name:      "seal",
		Usage:     "Encrypt every file in a vault folder",
		ArgsUsage: "<vault-id|folder>",
		Action:    runSeal,
	}
}

func runSeal(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.Args().First()
	if ref == "" {
		return errors.New("usage: phantom seal <vault-id|folder>")
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
				progressbar.OptionSetDescription("Sealing"),
				progressbar.OptionSetRenderBlankState(true),
				progressbar.OptionShowCount(),
				progressbar.OptionThrottle(100*time.Millisecond),
			)
		}
		_ = bar.Set(done)
	}))

	res, err := eng.EncryptFolder(ctx, record.Location, password)
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}
	if err != nil {
		return friendlyError(err)
	}

	fmt.Printf("Sealed %d files (%s) in %s\n",
		len(res.Files), humanize.Bytes(uint64(res.Bytes)), record.Location)
	return nil
}
