package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/illarion/phantom/internal/crypto"
	"github.com/illarion/phantom/internal/journal"
	"github.com/illarion/phantom/internal/manifest"
	"github.com/illarion/phantom/internal/platform"
	"github.com/illarion/phantom/internal/security"
	"github.com/illarion/phantom/internal/wipe"
)

// UnsealResult describes a completed folder decryption.
type UnsealResult struct {
	VaultID string
	Files   []string // slash-relative paths that were restored
	Bytes   int64
}

// DecryptFolder restores every file listed in the folder's manifest.
// Failure rolls back the opposite way from sealing: plaintext written
// this run is wiped, while the encrypted siblings and the manifest
// stay untouched so the run can be retried.
func (e *Engine) DecryptFolder(ctx context.Context, folderPath string, password []byte) (*UnsealResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	record, err := e.VaultByLocation(folderPath)
	if err != nil {
		return nil, err
	}
	folder := record.Location

	man, err := manifest.Read(folder)
	if err != nil {
		if errors.Is(err, manifest.ErrNoManifest) {
			return nil, fmt.Errorf("%w: %s", ErrNotEncrypted, folder)
		}
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	if err := e.VerifyPassword(record, password); err != nil {
		return nil, err
	}

	config, err := e.st.LoadConfig(record.VaultID)
	if err != nil {
		return nil, err
	}

	validator, err := security.New(folder)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize path validator: %w", err)
	}
	defer validator.Close()

	// The manifest salt is authoritative for the file data; it matches
	// the record salt for every vault this code created.
	kdf := crypto.KDFFrom(man.Salt, record.Iterations)
	key := kdf.DeriveKey(password)
	platform.LockMemory(key)
	defer func() {
		platform.UnlockMemory(key)
		crypto.ClearBytes(key)
	}()

	enc, err := crypto.NewEncryptor(key)
	if err != nil {
		return nil, err
	}
	defer enc.Destroy()

	// Phase 1: restore plaintext for every manifest entry. Encrypted
	// siblings stay in place; the restored paths accumulate so a
	// failure can wipe everything this run produced.
	var (
		restored []string // absolute plaintext paths written this run
		relPaths []string
		total    int64
	)
	passes := config.WipePasses()
	rollback := func() {
		for _, p := range restored {
			var err error
			if passes == 0 {
				err = os.Remove(p)
			} else {
				err = wipe.Delete(p, passes, nil)
			}
			if err != nil && !os.IsNotExist(err) {
				e.log.Warn().Err(err).Str("path", p).Msg("rollback could not remove restored file")
			}
		}
	}
	fail := func(format string, args ...any) (*UnsealResult, error) {
		rollback()
		err := fmt.Errorf("%w: %s", ErrDecryptionFailed, fmt.Sprintf(format, args...))
		e.journal(record.VaultID, "vault.unseal", folder, journal.StatusFailed, err.Error())
		return nil, err
	}

	for i, entry := range man.Entries {
		if err := ctx.Err(); err != nil {
			rollback()
			return nil, err
		}

		rel, err := validator.ValidateStored(entry.Path)
		if err != nil {
			return fail("manifest entry %q: %v", entry.Path, err)
		}

		sealed, err := validator.ReadFileInRoot(rel + manifest.EncSuffix)
		if err != nil {
			return fail("missing encrypted file for %s: %v", rel, err)
		}

		data, err := enc.Open(entry.IV, sealed)
		if err != nil {
			return fail("cannot decrypt %s: %v", rel, err)
		}

		if dir := filepath.Dir(rel); dir != "." && dir != "/" {
			if err := validator.MkdirAllInRoot(dir, DirPermSecure); err != nil {
				crypto.ClearBytes(data)
				return fail("cannot create directory for %s: %v", rel, err)
			}
		}
		if err := validator.WriteFileInRoot(rel, data, FilePermSecure); err != nil {
			crypto.ClearBytes(data)
			return fail("cannot write %s: %v", rel, err)
		}
		total += int64(len(data))
		crypto.ClearBytes(data)

		restored = append(restored, filepath.Join(folder, filepath.FromSlash(rel)))
		relPaths = append(relPaths, rel)
		e.report(OpUnseal, i+1, len(man.Entries))
	}

	// Phase 2: every file is back, the ciphertext and manifest can go.
	// These are plain removals; encrypted data needs no overwriting.
	for _, rel := range relPaths {
		if err := validator.RemoveInRoot(rel + manifest.EncSuffix); err != nil {
			e.log.Warn().Err(err).Str("path", rel).Msg("could not remove encrypted file after restore")
		}
	}
	if err := os.RemoveAll(manifest.MetaDir(folder)); err != nil {
		e.log.Warn().Err(err).Str("folder", folder).Msg("could not remove metadata area")
	}

	e.touchModified(record)
	e.journal(record.VaultID, "vault.unseal", folder, journal.StatusOK, fmt.Sprintf("%d files", len(relPaths)))
	e.log.Info().Str("vault", record.VaultID).Int("files", len(relPaths)).Msg("folder unsealed")

	return &UnsealResult{VaultID: record.VaultID, Files: relPaths, Bytes: total}, nil
}
