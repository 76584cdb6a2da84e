package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/illarion/phantom/internal/crypto"
	"github.com/illarion/phantom/internal/store"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(st, opts...)
}

func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", rel, err)
		}
	}
}

func TestCreateVault(t *testing.T) {
	e := newTestEngine(t)
	dir := t.TempDir()
	password := []byte("test123")

	record, err := e.CreateVault(context.Background(), dir, "documents", password)
	if err != nil {
		t.Fatalf("CreateVault failed: %v", err)
	}

	if !strings.HasPrefix(record.VaultID, "vault_") {
		t.Errorf("unexpected vault id format: %s", record.VaultID)
	}
	if record.Name != "documents" {
		t.Errorf("name = %q, want documents", record.Name)
	}
	if record.Location != dir {
		t.Errorf("location = %q, want %q", record.Location, dir)
	}
	if record.Description != "Encrypted vault at "+dir {
		t.Errorf("unexpected description: %q", record.Description)
	}
	if len(record.Salt) != crypto.SaltSize {
		t.Errorf("salt length = %d, want %d", len(record.Salt), crypto.SaltSize)
	}
	if record.Iterations != crypto.DefaultIters {
		t.Errorf("iterations = %d, want %d", record.Iterations, crypto.DefaultIters)
	}

	// Default config saved alongside
	config, err := e.Store().LoadConfig(record.VaultID)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if config != store.DefaultConfig() {
		t.Errorf("config = %+v, want defaults", config)
	}
}

func TestCreateVaultValidation(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	dir := t.TempDir()

	if _, err := e.CreateVault(ctx, filepath.Join(dir, "missing"), "x", []byte("pw")); !errors.Is(err, ErrPathInvalid) {
		t.Errorf("missing folder: got %v, want ErrPathInvalid", err)
	}

	file := filepath.Join(dir, "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := e.CreateVault(ctx, file, "x", []byte("pw")); !errors.Is(err, ErrPathInvalid) {
		t.Errorf("regular file: got %v, want ErrPathInvalid", err)
	}

	if _, err := e.CreateVault(ctx, dir, "x", nil); !errors.Is(err, ErrPasswordRequired) {
		t.Errorf("empty password: got %v, want ErrPasswordRequired", err)
	}

	if _, err := e.CreateVault(ctx, dir, "first", []byte("pw")); err != nil {
		t.Fatalf("CreateVault failed: %v", err)
	}
	if _, err := e.CreateVault(ctx, dir, "second", []byte("pw")); !errors.Is(err, ErrVaultExists) {
		t.Errorf("duplicate location: got %v, want ErrVaultExists", err)
	}
}

func TestVerifyPassword(t *testing.T) {
	e := newTestEngine(t)
	record, err := e.CreateVault(context.Background(), t.TempDir(), "v", []byte("correct-horse"))
	if err != nil {
		t.Fatalf("CreateVault failed: %v", err)
	}

	if err := e.VerifyPassword(record, []byte("correct-horse")); err != nil {
		t.Errorf("correct password rejected: %v", err)
	}
	if err := e.VerifyPassword(record, []byte("battery-staple")); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("wrong password: got %v, want ErrWrongPassword", err)
	}
	if err := e.VerifyPassword(record, nil); !errors.Is(err, ErrPasswordRequired) {
		t.Errorf("empty password: got %v, want ErrPasswordRequired", err)
	}
}

func TestDeleteVault(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	dir := t.TempDir()

	record, err := e.CreateVault(ctx, dir, "v", []byte("pw"))
	if err != nil {
		t.Fatalf("CreateVault failed: %v", err)
	}

	if err := e.DeleteVault(ctx, record.VaultID); err != nil {
		t.Fatalf("DeleteVault failed: %v", err)
	}
	if _, err := e.Store().LoadVault(record.VaultID); !errors.Is(err, store.ErrVaultNotFound) {
		t.Errorf("record still present after delete: %v", err)
	}
	if err := e.DeleteVault(ctx, record.VaultID); !errors.Is(err, store.ErrVaultNotFound) {
		t.Errorf("second delete: got %v, want ErrVaultNotFound", err)
	}

	// Folder untouched
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("folder should survive vault removal: %v", err)
	}
}

func TestResolve(t *testing.T) {
	e := newTestEngine(t)
	dir := t.TempDir()

	record, err := e.CreateVault(context.Background(), dir, "v", []byte("pw"))
	if err != nil {
		t.Fatalf("CreateVault failed: %v", err)
	}

	byID, err := e.Resolve(record.VaultID)
	if err != nil || byID.VaultID != record.VaultID {
		t.Errorf("resolve by id: %v", err)
	}
	byPath, err := e.Resolve(dir)
	if err != nil || byPath.VaultID != record.VaultID {
		t.Errorf("resolve by path: %v", err)
	}
	if _, err := e.Resolve("vault_0_0000"); !errors.Is(err, store.ErrVaultNotFound) {
		t.Errorf("unknown ref: got %v, want ErrVaultNotFound", err)
	}
}
