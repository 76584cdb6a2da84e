package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/illarion/phantom/internal/crypto"
	"github.com/illarion/phantom/internal/journal"
	"github.com/illarion/phantom/internal/store"
)

const (
	DirPermSecure  = 0700 // Directory: owner rwx only
	FilePermSecure = 0600 // File: owner rw only

	keyCheckString = "phantom-key-verification"
)

var (
	ErrPathInvalid      = errors.New("path does not exist or is not a directory")
	ErrVaultExists      = errors.New("a vault is already registered for this folder")
	ErrAlreadyEncrypted = errors.New("folder is already encrypted")
	ErrNotEncrypted     = errors.New("folder is not encrypted")
	ErrWrongPassword    = errors.New("wrong password")
	ErrPasswordRequired = errors.New("password required")
	ErrEncryptionFailed = errors.New("encryption failed")
	ErrDecryptionFailed = errors.New("decryption failed")
)

// Op identifies the operation reported through the progress hook.
type Op string

const (
	OpSeal   Op = "seal"
	OpUnseal Op = "unseal"
)

// ProgressFunc is invoked after each file is processed.
type ProgressFunc func(op Op, done, total int)

// Engine coordinates vault records, folder sealing and the activity
// journal. All operations are synchronous; interruption happens only
// between files via the context.
type Engine struct {
	st       *store.Store
	jr       *journal.Journal
	log      zerolog.Logger
	progress ProgressFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithJournal records every operation outcome in the activity journal.
func WithJournal(jr *journal.Journal) Option {
	return func(e *Engine) { e.jr = jr }
}

// WithLogger sets the engine logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithProgress sets the per-file progress hook.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Engine) { e.progress = fn }
}

// New creates an Engine on top of a vault store.
func New(st *store.Store, opts ...Option) *Engine {
	e := &Engine{
		st:  st,
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store exposes the underlying vault registry.
func (e *Engine) Store() *store.Store {
	return e.st
}

// CreateVault registers a folder as a vault. The folder must exist;
// its contents stay untouched until the first seal.
func (e *Engine) CreateVault(ctx context.Context, folderPath, name string, password []byte) (store.VaultRecord, error) {
	if err := ctx.Err(); err != nil {
		return store.VaultRecord{}, err
	}
	if len(password) == 0 {
		return store.VaultRecord{}, ErrPasswordRequired
	}

	abs, err := filepath.Abs(folderPath)
	if err != nil {
		return store.VaultRecord{}, fmt.Errorf("%w: %v", ErrPathInvalid, err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return store.VaultRecord{}, fmt.Errorf("%w: %s", ErrPathInvalid, abs)
	}

	if _, err := e.VaultByLocation(abs); err == nil {
		return store.VaultRecord{}, fmt.Errorf("%w: %s", ErrVaultExists, abs)
	} else if !errors.Is(err, store.ErrVaultNotFound) {
		return store.VaultRecord{}, err
	}

	vaultID, err := store.NewVaultID()
	if err != nil {
		return store.VaultRecord{}, err
	}

	kdf, err := crypto.NewKDF()
	if err != nil {
		return store.VaultRecord{}, fmt.Errorf("failed to create KDF: %w", err)
	}

	key := kdf.DeriveKey(password)
	defer crypto.ClearBytes(key)

	enc, err := crypto.NewEncryptor(key)
	if err != nil {
		return store.VaultRecord{}, err
	}
	defer enc.Destroy()

	verification, err := enc.Encrypt([]byte(keyCheckString))
	if err != nil {
		return store.VaultRecord{}, fmt.Errorf("failed to seal verification data: %w", err)
	}

	now := time.Now()
	record := store.VaultRecord{
		VaultID:         vaultID,
		Name:            name,
		Description:     fmt.Sprintf("Encrypted vault at %s", abs),
		Location:        abs,
		CreatedTime:     now,
		ModifiedTime:    now,
		Salt:            kdf.Salt,
		Iterations:      kdf.Iterations,
		KeyVerification: verification,
	}

	if err := e.st.SaveVault(record); err != nil {
		return store.VaultRecord{}, err
	}
	if err := e.st.SaveConfig(vaultID, store.DefaultConfig()); err != nil {
		return store.VaultRecord{}, err
	}

	e.journal(vaultID, "vault.create", abs, journal.StatusOK, name)
	e.log.Info().Str("vault", vaultID).Str("location", abs).Msg("vault created")
	return record, nil
}

// VerifyPassword checks a password against the vault's sealed
// verification data.
func (e *Engine) VerifyPassword(record store.VaultRecord, password []byte) error {
	if len(password) == 0 {
		return ErrPasswordRequired
	}

	kdf := crypto.KDFFrom(record.Salt, record.Iterations)
	key := kdf.DeriveKey(password)
	defer crypto.ClearBytes(key)

	enc, err := crypto.NewEncryptor(key)
	if err != nil {
		return err
	}
	defer enc.Destroy()

	check, err := enc.Decrypt(record.KeyVerification)
	if err != nil {
		return ErrWrongPassword
	}
	ok := crypto.ConstantTimeCompare(check, []byte(keyCheckString))
	crypto.ClearBytes(check)
	if !ok {
		return ErrWrongPassword
	}
	return nil
}

// DeleteVault removes a vault from the registry. The folder and its
// contents are left alone; callers wanting the data gone wipe it
// separately.
func (e *Engine) DeleteVault(ctx context.Context, vaultID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	record, err := e.st.LoadVault(vaultID)
	if err != nil {
		return err
	}

	existed, err := e.st.DeleteVault(vaultID)
	if err != nil {
		return err
	}
	if !existed {
		return store.ErrVaultNotFound
	}

	e.journal(vaultID, "vault.remove", record.Location, journal.StatusOK, record.Name)
	e.log.Info().Str("vault", vaultID).Msg("vault removed from registry")
	return nil
}

// Resolve finds a vault record by ID or by folder path.
func (e *Engine) Resolve(ref string) (store.VaultRecord, error) {
	record, err := e.st.LoadVault(ref)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, store.ErrVaultNotFound) {
		return store.VaultRecord{}, err
	}
	return e.VaultByLocation(ref)
}

// VaultByLocation finds the vault registered for a folder.
func (e *Engine) VaultByLocation(folder string) (store.VaultRecord, error) {
	abs, err := filepath.Abs(folder)
	if err != nil {
		return store.VaultRecord{}, fmt.Errorf("%w: %v", ErrPathInvalid, err)
	}

	ids, err := e.st.ListVaults()
	if err != nil {
		return store.VaultRecord{}, err
	}
	for _, id := range ids {
		record, err := e.st.LoadVault(id)
		if err != nil {
			continue
		}
		if record.Location == abs {
			return record, nil
		}
	}
	return store.VaultRecord{}, store.ErrVaultNotFound
}

// touchModified bumps the record's modification time. Registry update
// failures do not undo a completed folder operation.
func (e *Engine) touchModified(record store.VaultRecord) {
	record.ModifiedTime = time.Now()
	if err := e.st.SaveVault(record); err != nil {
		e.log.Warn().Err(err).Str("vault", record.VaultID).Msg("failed to update vault record")
	}
}

// journal appends an activity entry, dropping it on failure. Journal
// trouble never fails a vault operation.
func (e *Engine) journal(vaultID, op, path, status, detail string) {
	if e.jr == nil {
		return
	}
	if _, err := e.jr.Append(vaultID, op, path, status, detail); err != nil {
		e.log.Warn().Err(err).Str("op", op).Msg("journal append failed")
	}
}

// report invokes the progress hook when one is set.
func (e *Engine) report(op Op, done, total int) {
	if e.progress != nil {
		e.progress(op, done, total)
	}
}
