package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/illarion/phantom/internal/wipe"
)

// Wipe securely deletes files by overwriting them before removal.
func Wipe() *cli.Command {
	return &cli.Command{
		Name:      "wipe",
		Usage:     "Securely delete files",
		ArgsUsage: "<file>...",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "passes",
				Usage: "Overwrite passes (defaults to config)",
			},
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "Skip confirmation",
			},
		},
		Action: runWipe,
	}
}

func runWipe(ctx context.Context, cmd *cli.Command) error {
	files := cmd.Args().Slice()
	if len(files) == 0 {
		return errors.New("usage: phantom wipe <file>...")
	}

	app, err := OpenApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	passes := app.Config.Security.WipePasses
	if n := int(cmd.Int("passes")); n > 0 {
		passes = n
	}

	if !cmd.Bool("force") {
		if !confirm(fmt.Sprintf("Securely delete %d file(s)?", len(files))) {
			fmt.Println("Aborted")
			return nil
		}
	}

	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			return fmt.Errorf("%s is a directory", path)
		}

		bar := progressbar.NewOptions64(info.Size()*int64(passes),
			progressbar.OptionSetDescription(fmt.Sprintf("Wiping %s", filepath.Base(path))),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionShowBytes(true),
			progressbar.OptionThrottle(100*time.Millisecond),
		)
		err = wipe.Delete(path, passes, func(pass int, written, total int64) {
			_ = bar.Set64(int64(pass-1)*total + written)
		})
		_ = bar.Finish()
		fmt.Println()
		if err != nil {
			return err
		}
	}

	fmt.Printf("Wiped %d file(s) with %d pass(es)\n", len(files), passes)
	return nil
}
