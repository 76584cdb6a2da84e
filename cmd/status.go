package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
)

// Status reports whether a vault folder is sealed and consistent.
func Status() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Show the sealed state of a vault and any drift",
		ArgsUsage: "<vault-id|folder>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
		},
		Action: runStatus,
	}
}

func runStatus(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.Args().First()
	if ref == "" {
		return errors.New("usage: phantom status <vault-id|folder>")
	}

	app, err := OpenApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	st, err := app.Engine().Status(ctx, ref)
	if err != nil {
		return friendlyError(err)
	}

	if cmd.Bool("json") {
		return printJSON(st)
	}

	state := "open"
	if st.Sealed {
		state = "sealed"
	}
	fmt.Printf("Vault:    %s (%s)\n", st.VaultID, st.Name)
	fmt.Printf("Location: %s\n", st.Location)
	fmt.Printf("State:    %s\n", state)
	fmt.Printf("Files:    %d\n", st.FileCount)
	fmt.Printf("Modified: %s\n", st.Modified.Format(time.RFC3339))

	if !st.Sealed {
		return nil
	}
	if st.Consistent() {
		fmt.Println("Manifest matches the encrypted files on disk")
		return nil
	}

	for _, p := range st.MissingEnc {
		fmt.Printf("  missing ciphertext: %s\n", p)
	}
	for _, p := range st.StrayEnc {
		fmt.Printf("  stray ciphertext:   %s\n", p)
	}
	if st.Drift != "" {
		fmt.Println()
		fmt.Print(st.Drift)
	}
	return nil
}
