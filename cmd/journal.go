package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
)

// Journal prints or verifies the tamper-evident operation log.
func Journal() *cli.Command {
	return &cli.Command{
		Name:  "journal",
		Usage: "Show recent vault operations",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "n",
				Value:   20,
				Usage:   "Number of entries to show",
				Aliases: []string{"limit"},
			},
			&cli.BoolFlag{
				Name:  "verify",
				Usage: "Verify the journal hash chain instead of listing",
			},
			&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
		},
		Action: runJournal,
	}
}

func runJournal(ctx context.Context, cmd *cli.Command) error {
	app, err := OpenApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	if app.Journal == nil {
		return errors.New("journal is not available")
	}

	if cmd.Bool("verify") {
		n, err := app.Journal.VerifyChain()
		if err != nil {
			return fmt.Errorf("journal verification failed: %w", err)
		}
		fmt.Printf("Journal chain intact (%d entries)\n", n)
		return nil
	}

	entries, err := app.Journal.Recent(int(cmd.Int("n")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return printJSON(entries)
	}

	if len(entries) == 0 {
		fmt.Println("Journal is empty")
		return nil
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-14s %-7s %s",
			e.Time.Format(time.RFC3339), e.Op, e.Status, e.VaultID)
		if e.Detail != "" {
			line += "  " + e.Detail
		}
		fmt.Println(line)
	}
	return nil
}
