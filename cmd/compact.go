package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// Compact rewrites the vault registry database to reclaim space.
func Compact() *cli.Command {
	return &cli.Command{
		Name:   "compact",
		Usage:  "Compact the vault registry database",
		Action: runCompact,
	}
}

func runCompact(ctx context.Context, cmd *cli.Command) error {
	app, err := OpenApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	path := app.Store.Path()

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	sizeBefore := info.Size()

	if err := app.Store.Compact(); err != nil {
		return err
	}

	info, err = os.Stat(path)
	if err != nil {
		return err
	}

	fmt.Printf("Compacted %s: %s -> %s\n", path,
		humanize.Bytes(uint64(sizeBefore)), humanize.Bytes(uint64(info.Size())))
	return nil
}
