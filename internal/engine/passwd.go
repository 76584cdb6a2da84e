package engine

import (
	"context"
	"fmt"

	"github.com/illarion/phantom/internal/crypto"
	"github.com/illarion/phantom/internal/journal"
	"github.com/illarion/phantom/internal/manifest"
)

// ChangePassword re-keys an open vault with a fresh salt and
// verification blob. Sealed vaults must be unsealed first: their file
// keys derive from the old salt, which is baked into the manifest.
// Recovery data wraps the old password and is dropped.
func (e *Engine) ChangePassword(ctx context.Context, ref string, oldPassword, newPassword []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(newPassword) == 0 {
		return ErrPasswordRequired
	}

	record, err := e.Resolve(ref)
	if err != nil {
		return err
	}
	if manifest.Exists(record.Location) {
		return fmt.Errorf("%w: unseal %s before changing the password", ErrAlreadyEncrypted, record.Location)
	}
	if err := e.VerifyPassword(record, oldPassword); err != nil {
		return err
	}

	kdf, err := crypto.NewKDF()
	if err != nil {
		return fmt.Errorf("failed to create KDF: %w", err)
	}

	key := kdf.DeriveKey(newPassword)
	defer crypto.ClearBytes(key)

	enc, err := crypto.NewEncryptor(key)
	if err != nil {
		return err
	}
	defer enc.Destroy()

	verification, err := enc.Encrypt([]byte(keyCheckString))
	if err != nil {
		return fmt.Errorf("failed to seal verification data: %w", err)
	}

	if err := e.st.RotateKey(record.VaultID, kdf.Salt, kdf.Iterations, verification); err != nil {
		return err
	}
	if err := e.st.DeleteRecovery(record.VaultID); err != nil {
		e.log.Warn().Err(err).Str("vault", record.VaultID).Msg("could not drop stale recovery data")
	}

	e.journal(record.VaultID, "vault.passwd", record.Location, journal.StatusOK, "")
	e.log.Info().Str("vault", record.VaultID).Msg("vault password changed")
	return nil
}
