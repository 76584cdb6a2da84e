package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/illarion/phantom/internal/fsattr"
)

// Attr shows or changes the attributes of a file or folder.
func Attr() *cli.Command {
	return &cli.Command{
		Name:      "attr",
		Usage:     "Show or change file attributes",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "hidden",
				Usage: "Set the hidden attribute (true|false)",
			},
			&cli.StringFlag{
				Name:  "readonly",
				Usage: "Set the read-only attribute (true|false)",
			},
			&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
		},
		Action: runAttr,
	}
}

func runAttr(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return errors.New("usage: phantom attr <path>")
	}

	var change fsattr.Change
	changed := false
	if s := cmd.String("hidden"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("invalid --hidden value %q", s)
		}
		change.Hidden = &v
		changed = true
	}
	if s := cmd.String("readonly"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("invalid --readonly value %q", s)
		}
		change.ReadOnly = &v
		changed = true
	}

	if changed {
		newPath, err := fsattr.Set(path, change)
		if err != nil {
			return err
		}
		path = newPath
	}

	attrs, err := fsattr.Get(path)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return printJSON(struct {
			Path string `json:"path"`
			fsattr.Attributes
		}{path, attrs})
	}

	fmt.Printf("Path:     %s\n", path)
	fmt.Printf("Hidden:   %v\n", attrs.Hidden)
	fmt.Printf("ReadOnly: %v\n", attrs.ReadOnly)
	fmt.Printf("Mode:     %s\n", attrs.Mode)
	fmt.Printf("Modified: %s\n", attrs.Modified.Format(time.RFC3339))
	fmt.Printf("Accessed: %s\n", attrs.Accessed.Format(time.RFC3339))
	return nil
}
