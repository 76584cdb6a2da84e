package manifest

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/illarion/phantom/internal/crypto"
)

func newTestManifest(t *testing.T, paths ...string) *Manifest {
	t.Helper()
	salt, err := crypto.GenerateSalt()
	if err != nil {
		t.Fatalf("Failed to generate salt: %v", err)
	}
	m, err := New(salt)
	if err != nil {
		t.Fatalf("Failed to create manifest: %v", err)
	}
	for _, p := range paths {
		iv, err := crypto.GenerateIV()
		if err != nil {
			t.Fatalf("Failed to generate IV: %v", err)
		}
		m.Add(p, iv)
	}
	return m
}

func TestWriteReadRoundTrip(t *testing.T) {
	folder := t.TempDir()
	m := newTestManifest(t, "a.txt", "sub/dir/b.bin", "weird|name.txt")

	if err := m.Write(folder); err != nil {
		t.Fatalf("Failed to write manifest: %v", err)
	}

	if !Exists(folder) {
		t.Fatal("Exists should report true after write")
	}

	got, err := Read(folder)
	if err != nil {
		t.Fatalf("Failed to read manifest: %v", err)
	}

	if !bytes.Equal(got.Salt, m.Salt) {
		t.Error("Salt mismatch after round-trip")
	}
	if !bytes.Equal(got.GlobalIV, m.GlobalIV) {
		t.Error("Global IV mismatch after round-trip")
	}
	if len(got.Entries) != len(m.Entries) {
		t.Fatalf("Entry count mismatch: got %d, want %d", len(got.Entries), len(m.Entries))
	}
	for i := range m.Entries {
		if got.Entries[i].Path != m.Entries[i].Path {
			t.Errorf("Entry %d path mismatch: got %q, want %q", i, got.Entries[i].Path, m.Entries[i].Path)
		}
		if !bytes.Equal(got.Entries[i].IV, m.Entries[i].IV) {
			t.Errorf("Entry %d IV mismatch", i)
		}
	}
}

func TestReadMissingManifest(t *testing.T) {
	folder := t.TempDir()
	if _, err := Read(folder); !errors.Is(err, ErrNoManifest) {
		t.Errorf("Expected ErrNoManifest, got %v", err)
	}
	if Exists(folder) {
		t.Error("Exists should report false without a manifest")
	}
}

func TestFileCountMatchesEntries(t *testing.T) {
	folder := t.TempDir()
	m := newTestManifest(t, "one", "two", "three")
	if err := m.Write(folder); err != nil {
		t.Fatalf("Failed to write manifest: %v", err)
	}

	data, err := os.ReadFile(Path(folder))
	if err != nil {
		t.Fatalf("Failed to read manifest bytes: %v", err)
	}

	countOff := crypto.SaltSize + crypto.IVSize
	count := binary.LittleEndian.Uint64(data[countOff : countOff+8])
	if count != 3 {
		t.Errorf("Declared file count mismatch: got %d, want 3", count)
	}

	got, err := Parse(data)
	if err != nil {
		t.Fatalf("Failed to parse manifest: %v", err)
	}
	if uint64(len(got.Entries)) != count {
		t.Errorf("Parsed entries != declared count: %d vs %d", len(got.Entries), count)
	}
}

func TestParseRejectsTruncatedHeader(t *testing.T) {
	if _, err := Parse(make([]byte, headerSize-1)); !errors.Is(err, ErrMalformed) {
		t.Errorf("Expected ErrMalformed on short header, got %v", err)
	}
}

func TestParseRejectsCountMismatch(t *testing.T) {
	folder := t.TempDir()
	m := newTestManifest(t, "only.txt")
	if err := m.Write(folder); err != nil {
		t.Fatalf("Failed to write manifest: %v", err)
	}

	data, err := os.ReadFile(Path(folder))
	if err != nil {
		t.Fatalf("Failed to read manifest bytes: %v", err)
	}

	// Declare one more entry than the table holds
	countOff := crypto.SaltSize + crypto.IVSize
	binary.LittleEndian.PutUint64(data[countOff:countOff+8], 2)
	if _, err := Parse(data); !errors.Is(err, ErrMalformed) {
		t.Errorf("Expected ErrMalformed on count mismatch, got %v", err)
	}

	// Declare one fewer: the leftover entry becomes trailing bytes
	binary.LittleEndian.PutUint64(data[countOff:countOff+8], 0)
	if _, err := Parse(data); !errors.Is(err, ErrMalformed) {
		t.Errorf("Expected ErrMalformed on trailing bytes, got %v", err)
	}
}

func TestParseRejectsBadEntry(t *testing.T) {
	folder := t.TempDir()
	m := newTestManifest(t, "file.txt")
	if err := m.Write(folder); err != nil {
		t.Fatalf("Failed to write manifest: %v", err)
	}

	data, err := os.ReadFile(Path(folder))
	if err != nil {
		t.Fatalf("Failed to read manifest bytes: %v", err)
	}

	// Overwrite the separator byte inside the entry
	sepOff := headerSize + 4 + len("file.txt")
	if data[sepOff] != '|' {
		t.Fatalf("Test offset wrong: byte at %d is %q", sepOff, data[sepOff])
	}
	data[sepOff] = '_'

	if _, err := Parse(data); !errors.Is(err, ErrMalformed) {
		t.Errorf("Expected ErrMalformed on missing separator, got %v", err)
	}
}

func TestParseRejectsOversizedEntry(t *testing.T) {
	buf := new(bytes.Buffer)
	salt := make([]byte, crypto.SaltSize)
	iv := make([]byte, crypto.IVSize)
	buf.Write(salt)
	buf.Write(iv)
	binary.Write(buf, binary.LittleEndian, uint64(1))
	binary.Write(buf, binary.LittleEndian, uint32(maxEntrySize+1))

	if _, err := Parse(buf.Bytes()); !errors.Is(err, ErrMalformed) {
		t.Errorf("Expected ErrMalformed on oversized entry, got %v", err)
	}
}

func TestWriteLeavesNoTempOnSuccess(t *testing.T) {
	folder := t.TempDir()
	m := newTestManifest(t, "a")
	if err := m.Write(folder); err != nil {
		t.Fatalf("Failed to write manifest: %v", err)
	}

	entries, err := os.ReadDir(MetaDir(folder))
	if err != nil {
		t.Fatalf("Failed to list metadata dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != FileName {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("Metadata dir should hold only the manifest, got %v", names)
	}
}

func TestPathHelpers(t *testing.T) {
	folder := "/some/folder"
	if got := MetaDir(folder); got != filepath.Join(folder, MetaDirName) {
		t.Errorf("MetaDir mismatch: %s", got)
	}
	if got := Path(folder); got != filepath.Join(folder, MetaDirName, FileName) {
		t.Errorf("Path mismatch: %s", got)
	}
}
