package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/illarion/phantom/internal/autolock"
	"github.com/illarion/phantom/internal/conceal"
	"github.com/illarion/phantom/internal/crypto"
	"github.com/illarion/phantom/internal/platform"
)

// Watch seals vault folders automatically after a period of
// inactivity.
func Watch() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Watch open vaults and seal them when idle",
		ArgsUsage: "<vault-id|folder>...",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "idle",
				Usage: "Idle seconds before sealing (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "conceal",
				Usage: "Disguise the process name while watching",
			},
		},
		Action: runWatch,
	}
}

func runWatch(ctx context.Context, cmd *cli.Command) error {
	refs := cmd.Args().Slice()
	if len(refs) == 0 {
		return errors.New("usage: phantom watch <vault-id|folder>...")
	}

	app, err := OpenApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	idle := app.Config.Autolock.IdleTimeout()
	if s := int(cmd.Int("idle")); s > 0 {
		idle = time.Duration(s) * time.Second
	}

	// A watcher holds vault passwords for its whole lifetime.
	if app.Config.Security.LockMemory {
		if err := platform.LockAllMemory(); err != nil {
			app.Log.Warn().Err(err).Msg("could not lock process memory")
		}
	}

	if cmd.Bool("conceal") {
		c, err := conceal.New()
		if err != nil {
			return err
		}
		if d := app.Config.Conceal.Disguise; d != "" {
			c.SetDisguise(d)
		}
		if err := c.Hide(); err != nil {
			app.Log.Warn().Err(err).Msg("could not disguise process name")
		} else {
			defer func() { _ = c.Show() }()
		}
	}

	eng := app.Engine()

	g, ctx := errgroup.WithContext(ctx)
	for _, ref := range refs {
		record, err := eng.Resolve(ref)
		if err != nil {
			return friendlyError(err)
		}
		password, err := ResolvePassword(record.VaultID)
		if err != nil {
			return err
		}

		folder := record.Location
		log := app.Log.With().Str("vault", record.VaultID).Logger()
		g.Go(func() error {
			defer crypto.ClearBytes(password)
			return autolock.Watch(ctx, eng, folder, password, idle, log)
		})
		log.Info().Str("folder", folder).Dur("idle", idle).Msg("watching")
	}
	return g.Wait()
}
