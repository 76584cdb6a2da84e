package engine

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/illarion/phantom/internal/crypto"
	"github.com/illarion/phantom/internal/journal"
	"github.com/illarion/phantom/internal/manifest"
	"github.com/illarion/phantom/internal/platform"
	"github.com/illarion/phantom/internal/wipe"
)

// SealResult describes a completed folder encryption.
type SealResult struct {
	VaultID string
	Files   []string // slash-relative paths that were sealed
	Bytes   int64
}

// EncryptFolder seals every eligible file in the vault folder. The
// whole run is atomic from the outside: encrypted siblings appear for
// all files and the manifest is written before a single original is
// deleted. Any failure removes the encrypted siblings produced so far
// and leaves the folder exactly as it was.
func (e *Engine) EncryptFolder(ctx context.Context, folderPath string, password []byte) (*SealResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	record, err := e.VaultByLocation(folderPath)
	if err != nil {
		return nil, err
	}
	folder := record.Location

	if manifest.Exists(folder) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyEncrypted, folder)
	}
	if err := e.VerifyPassword(record, password); err != nil {
		return nil, err
	}

	config, err := e.st.LoadConfig(record.VaultID)
	if err != nil {
		return nil, err
	}

	files, err := enumerate(folder)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot enumerate %s: %v", ErrEncryptionFailed, folder, err)
	}

	man, err := manifest.New(record.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	kdf := crypto.KDFFrom(record.Salt, record.Iterations)
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

	// Phase 1: produce an encrypted sibling for every file. Originals
	// are not touched; the sibling paths accumulate so a failure can
	// undo everything written so far.
	var (
		siblings  []string // absolute .enc paths written this run
		originals []string // absolute plaintext paths, deleted in phase 2
		total     int64
	)
	rollback := func() {
		for _, p := range siblings {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				e.log.Warn().Err(err).Str("path", p).Msg("rollback could not remove encrypted file")
			}
		}
	}

	for i, rel := range files {
		if err := ctx.Err(); err != nil {
			rollback()
			return nil, err
		}

		absPath := filepath.Join(folder, filepath.FromSlash(rel))
		data, err := os.ReadFile(absPath)
		if err != nil {
			rollback()
			return nil, fmt.Errorf("%w: cannot read %s: %v", ErrEncryptionFailed, rel, err)
		}

		iv, err := crypto.GenerateIV()
		if err != nil {
			crypto.ClearBytes(data)
			rollback()
			return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
		}

		sealed, err := enc.Seal(iv, data)
		crypto.ClearBytes(data)
		if err != nil {
			rollback()
			return nil, fmt.Errorf("%w: cannot encrypt %s: %v", ErrEncryptionFailed, rel, err)
		}

		encPath := absPath + manifest.EncSuffix
		if err := os.WriteFile(encPath, sealed, FilePermSecure); err != nil {
			rollback()
			return nil, fmt.Errorf("%w: cannot write %s: %v", ErrEncryptionFailed, encPath, err)
		}

		siblings = append(siblings, encPath)
		originals = append(originals, absPath)
		man.Add(rel, iv)
		total += int64(len(sealed))
		e.report(OpSeal, i+1, len(files))
	}

	if err := man.Write(folder); err != nil {
		rollback()
		e.journal(record.VaultID, "vault.seal", folder, journal.StatusFailed, err.Error())
		return nil, fmt.Errorf("%w: cannot write manifest: %v", ErrEncryptionFailed, err)
	}

	// Phase 2: the manifest is durable, originals can go. Deletion
	// trouble here must not fail the seal; the worst case is a
	// plaintext leftover next to its encrypted sibling.
	passes := config.WipePasses()
	for _, absPath := range originals {
		var err error
		if passes == 0 {
			err = os.Remove(absPath)
		} else {
			err = wipe.Delete(absPath, passes, nil)
		}
		if err != nil {
			e.log.Warn().Err(err).Str("path", absPath).Msg("could not delete original after sealing")
		}
	}

	e.touchModified(record)
	e.journal(record.VaultID, "vault.seal", folder, journal.StatusOK, fmt.Sprintf("%d files", len(files)))
	e.log.Info().Str("vault", record.VaultID).Int("files", len(files)).Msg("folder sealed")

	return &SealResult{VaultID: record.VaultID, Files: files, Bytes: total}, nil
}

// enumerate lists the regular files eligible for sealing as sorted
// slash-relative paths. Dot-named files and directories, encrypted
// siblings and the metadata area are skipped.
func enumerate(folder string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == folder {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || strings.HasSuffix(name, manifest.EncSuffix) {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(folder, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
