package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/illarion/phantom/internal/conceal"
)

// Conceal manages the kernel-visible name of the running phantom
// process. The change lasts until the process exits, so it is mostly
// useful combined with long-running commands like watch.
func Conceal() *cli.Command {
	return &cli.Command{
		Name:  "conceal",
		Usage: "Manage the process name of the current phantom process",
		Commands: []*cli.Command{
			{
				Name:   "hide",
				Usage:  "Disguise the process name",
				Action: runConcealHide,
			},
			{
				Name:   "show",
				Usage:  "Restore the original process name",
				Action: runConcealShow,
			},
			{
				Name:   "status",
				Usage:  "Show the current and original process names",
				Action: runConcealStatus,
			},
			{
				Name:      "name",
				Usage:     "Set the process name explicitly",
				ArgsUsage: "<name>",
				Action:    runConcealName,
			},
		},
	}
}

func runConcealHide(ctx context.Context, cmd *cli.Command) error {
	app, err := OpenApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	c, err := conceal.New()
	if err != nil {
		return err
	}
	if d := app.Config.Conceal.Disguise; d != "" {
		c.SetDisguise(d)
	}
	if err := c.Hide(); err != nil {
		return err
	}
	fmt.Printf("Process name: %s -> %s\n", c.OriginalName(), c.CurrentName())
	return nil
}

func runConcealShow(ctx context.Context, cmd *cli.Command) error {
	c, err := conceal.New()
	if err != nil {
		return err
	}
	if err := c.Show(); err != nil {
		return err
	}
	fmt.Printf("Process name: %s\n", c.CurrentName())
	return nil
}

func runConcealStatus(ctx context.Context, cmd *cli.Command) error {
	c, err := conceal.New()
	if err != nil {
		return err
	}
	fmt.Printf("Current:  %s\n", c.CurrentName())
	fmt.Printf("Original: %s\n", c.OriginalName())
	fmt.Printf("Hidden:   %v\n", c.IsHidden())
	return nil
}

func runConcealName(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return errors.New("usage: phantom conceal name <name>")
	}
	c, err := conceal.New()
	if err != nil {
		return err
	}
	if err := c.SetName(name); err != nil {
		return err
	}
	fmt.Printf("Process name: %s\n", c.CurrentName())
	return nil
}
