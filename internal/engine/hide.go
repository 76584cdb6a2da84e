package engine

import (
	"context"
	"fmt"

	"github.com/illarion/phantom/internal/fsattr"
	"github.com/illarion/phantom/internal/journal"
)

// HideFolder dot-renames the vault folder and moves the registry
// record to the new location. Already hidden folders are left alone.
func (e *Engine) HideFolder(ctx context.Context, ref string) (string, error) {
	return e.renameFolder(ctx, ref, "vault.hide", fsattr.Hide, fsattr.Unhide)
}

// UnhideFolder removes the dot prefix from the vault folder and moves
// the registry record to the new location.
func (e *Engine) UnhideFolder(ctx context.Context, ref string) (string, error) {
	return e.renameFolder(ctx, ref, "vault.unhide", fsattr.Unhide, fsattr.Hide)
}

func (e *Engine) renameFolder(ctx context.Context, ref, op string, rename, undo func(string) (string, error)) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	record, err := e.Resolve(ref)
	if err != nil {
		return "", err
	}

	newPath, err := rename(record.Location)
	if err != nil {
		e.journal(record.VaultID, op, record.Location, journal.StatusFailed, err.Error())
		return "", err
	}
	if newPath == record.Location {
		return newPath, nil
	}

	oldPath := record.Location
	record.Location = newPath
	if err := e.st.SaveVault(record); err != nil {
		// The registry must keep pointing at a real folder. Undo the
		// rename rather than strand the record.
		if _, backErr := undo(newPath); backErr != nil {
			e.log.Error().Err(backErr).Str("path", newPath).Msg("could not undo rename after store failure")
		}
		return "", fmt.Errorf("failed to update vault record: %w", err)
	}

	e.journal(record.VaultID, op, newPath, journal.StatusOK, oldPath)
	e.log.Info().Str("vault", record.VaultID).Str("from", oldPath).Str("to", newPath).Msg("vault folder renamed")
	return newPath, nil
}
