package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/illarion/phantom/internal/keyring"
	"github.com/illarion/phantom/internal/manifest"
	"github.com/illarion/phantom/internal/recovery"
)

// Info shows the stored record and settings of one vault.
func Info() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "Show details of a vault",
		ArgsUsage: "<vault-id|folder>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
		},
		Action: runInfo,
	}
}

type vaultInfo struct {
	VaultID      string `json:"vaultId"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Location     string `json:"location"`
	Sealed       bool   `json:"sealed"`
	Created      string `json:"created"`
	Modified     string `json:"modified"`
	Iterations   int    `json:"iterations"`
	WipePasses   int    `json:"wipePasses"`
	InKeyring    bool   `json:"inKeyring"`
	RecoverySet  bool   `json:"recoverySet"`
	RecoveryLeft int    `json:"recoveryAttemptsLeft,omitempty"`
}

func runInfo(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.Args().First()
	if ref == "" {
		return errors.New("usage: phantom info <vault-id|folder>")
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
	settings, err := app.Store.LoadConfig(record.VaultID)
	if err != nil {
		return err
	}

	info := vaultInfo{
		VaultID:     record.VaultID,
		Name:        record.Name,
		Description: record.Description,
		Location:    record.Location,
		Sealed:      manifest.Exists(record.Location),
		Created:     record.CreatedTime.Format(time.RFC3339),
		Modified:    record.ModifiedTime.Format(time.RFC3339),
		Iterations:  record.Iterations,
		WipePasses:  settings.WipePasses(),
		InKeyring:   keyring.HasPassword(record.VaultID),
	}

	rec := recovery.New(app.Store)
	if left, err := rec.AttemptsRemaining(record.VaultID); err == nil {
		info.RecoverySet = true
		info.RecoveryLeft = left
	} else if !errors.Is(err, recovery.ErrNoRecovery) {
		return err
	}

	if cmd.Bool("json") {
		return printJSON(info)
	}

	state := "open"
	if info.Sealed {
		state = "sealed"
	}
	fmt.Printf("Vault:       %s\n", info.VaultID)
	fmt.Printf("Name:        %s\n", info.Name)
	fmt.Printf("Location:    %s\n", info.Location)
	fmt.Printf("State:       %s\n", state)
	fmt.Printf("Created:     %s\n", info.Created)
	fmt.Printf("Modified:    %s\n", info.Modified)
	fmt.Printf("KDF:         PBKDF2-SHA256, %d iterations\n", info.Iterations)
	if info.WipePasses == 0 {
		fmt.Println("Wipe passes: disabled")
	} else {
		fmt.Printf("Wipe passes: %d\n", info.WipePasses)
	}
	fmt.Printf("Keyring:     %v\n", info.InKeyring)
	if info.RecoverySet {
		fmt.Printf("Recovery:    configured (%d attempts remaining)\n", info.RecoveryLeft)
	} else {
		fmt.Println("Recovery:    not configured")
	}
	return nil
}
