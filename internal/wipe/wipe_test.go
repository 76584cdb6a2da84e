package wipe

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func writeTestFile(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "victim.txt")
	data := bytes.Repeat([]byte("secret! "), size/8+1)[:size]
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
	return path
}

func TestDeleteRemovesFile(t *testing.T) {
	path := writeTestFile(t, 1000)
	if err := Delete(path, DefaultPasses, nil); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("File should be gone after Delete")
	}
}

func TestDeleteLeavesDirectoryEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "victim.txt")
	if err := os.WriteFile(path, []byte("secret"), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	if err := Delete(path, DefaultPasses, nil); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to list dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Directory should be empty, found %d entries", len(entries))
	}
}

func TestOverwriteExactLength(t *testing.T) {
	// A size that is not a multiple of the buffer ensures the last
	// partial block is handled exactly.
	const size = bufferSize*2 + 123
	path := writeTestFile(t, size)

	if err := Overwrite(path, 2, nil); err != nil {
		t.Fatalf("Overwrite failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat file: %v", err)
	}
	if info.Size() != size {
		t.Errorf("Size changed by overwrite: got %d, want %d", info.Size(), size)
	}

	// Second pass pattern is all ones
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	for i, b := range data {
		if b != 0xFF {
			t.Fatalf("Byte %d not overwritten: got %#x, want 0xFF", i, b)
		}
	}
}

func TestOverwriteDestroysContent(t *testing.T) {
	original := []byte("extremely secret plaintext that must not survive")
	path := filepath.Join(t.TempDir(), "victim.txt")
	if err := os.WriteFile(path, original, 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	if err := Overwrite(path, DefaultPasses, nil); err != nil {
		t.Fatalf("Overwrite failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if bytes.Contains(data, []byte("secret")) {
		t.Error("Original content survived the overwrite passes")
	}
}

func TestProgressReported(t *testing.T) {
	const size = bufferSize + 10
	path := writeTestFile(t, size)

	var (
		passes   []int
		lastDone int64
	)
	progress := func(pass int, written, total int64) {
		if total != size {
			t.Errorf("Progress total mismatch: got %d, want %d", total, size)
		}
		if len(passes) == 0 || passes[len(passes)-1] != pass {
			passes = append(passes, pass)
		}
		lastDone = written
	}

	if err := Overwrite(path, 3, progress); err != nil {
		t.Fatalf("Overwrite failed: %v", err)
	}

	if len(passes) != 3 {
		t.Errorf("Expected 3 passes reported, got %v", passes)
	}
	if lastDone != size {
		t.Errorf("Final progress should reach %d, got %d", size, lastDone)
	}
}

func TestDeleteZeroPassesPlainRemove(t *testing.T) {
	path := writeTestFile(t, 100)
	if err := Delete(path, 0, nil); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("File should be gone after plain remove")
	}
}

func TestDeleteMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent")
	if err := Delete(path, DefaultPasses, nil); err == nil {
		t.Error("Delete of a missing file should report the removal failure")
	}
}
