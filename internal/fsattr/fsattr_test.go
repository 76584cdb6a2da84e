package fsattr

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestHideUnhideRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docs")
	if err := os.Mkdir(path, 0755); err != nil {
		t.Fatalf("Failed to create folder: %v", err)
	}

	hidden, err := Hide(path)
	if err != nil {
		t.Fatalf("Hide failed: %v", err)
	}
	if hidden != filepath.Join(dir, ".docs") {
		t.Errorf("Hidden path mismatch: got %s", hidden)
	}
	if !IsHidden(hidden) {
		t.Error("IsHidden should report true after Hide")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Original path should be gone after Hide")
	}

	restored, err := Unhide(hidden)
	if err != nil {
		t.Fatalf("Unhide failed: %v", err)
	}
	if restored != path {
		t.Errorf("Unhide should restore the original path: got %s, want %s", restored, path)
	}
	if IsHidden(restored) {
		t.Error("IsHidden should report false after Unhide")
	}
}

func TestHideAlreadyHidden(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".secret")
	if err := os.Mkdir(path, 0755); err != nil {
		t.Fatalf("Failed to create folder: %v", err)
	}

	got, err := Hide(path)
	if err != nil {
		t.Fatalf("Hide failed: %v", err)
	}
	if got != path {
		t.Errorf("Hide of hidden path should be a no-op: got %s", got)
	}
}

func TestUnhideVisible(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "visible")
	if err := os.Mkdir(path, 0755); err != nil {
		t.Fatalf("Failed to create folder: %v", err)
	}

	got, err := Unhide(path)
	if err != nil {
		t.Fatalf("Unhide failed: %v", err)
	}
	if got != path {
		t.Errorf("Unhide of visible path should be a no-op: got %s", got)
	}
}

func TestMissingPath(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent")

	if _, err := Hide(missing); !errors.Is(err, ErrPathNotFound) {
		t.Errorf("Hide: expected ErrPathNotFound, got %v", err)
	}
	if _, err := Unhide(missing); !errors.Is(err, ErrPathNotFound) {
		t.Errorf("Unhide: expected ErrPathNotFound, got %v", err)
	}
	if _, err := Get(missing); !errors.Is(err, ErrPathNotFound) {
		t.Errorf("Get: expected ErrPathNotFound, got %v", err)
	}
	if _, err := Set(missing, Change{}); !errors.Is(err, ErrPathNotFound) {
		t.Errorf("Set: expected ErrPathNotFound, got %v", err)
	}
}

func TestGetAttributes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	attrs, err := Get(path)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if attrs.Hidden {
		t.Error("File should not be hidden")
	}
	if attrs.ReadOnly {
		t.Error("File should be writable")
	}
	if attrs.System {
		t.Error("System attribute should always be false here")
	}
	if attrs.Modified.IsZero() || attrs.Accessed.IsZero() {
		t.Error("Timestamps should be populated")
	}
}

func TestSetReadOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	ro := true
	if _, err := Set(path, Change{ReadOnly: &ro}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	attrs, err := Get(path)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !attrs.ReadOnly {
		t.Error("File should be read-only after Set")
	}

	rw := false
	if _, err := Set(path, Change{ReadOnly: &rw}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	attrs, _ = Get(path)
	if attrs.ReadOnly {
		t.Error("File should be writable again")
	}
}

func TestSetTimestampsPartial(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	before, err := Get(path)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	want := time.Date(2020, 6, 1, 12, 0, 0, 0, time.Local)
	if _, err := Set(path, Change{Modified: &want}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	after, err := Get(path)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !after.Modified.Equal(want) {
		t.Errorf("Modified time not applied: got %v, want %v", after.Modified, want)
	}
	// Read-only state must be untouched by a timestamp-only change
	if after.ReadOnly != before.ReadOnly {
		t.Error("ReadOnly changed by a timestamp-only update")
	}
}

func TestSetHiddenRenames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "folder")
	if err := os.Mkdir(path, 0755); err != nil {
		t.Fatalf("Failed to create folder: %v", err)
	}

	hidden := true
	newPath, err := Set(path, Change{Hidden: &hidden})
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if newPath != filepath.Join(dir, ".folder") {
		t.Errorf("Set hidden should rename: got %s", newPath)
	}
}
