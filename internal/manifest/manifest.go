package manifest

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/illarion/phantom/internal/crypto"
)

const (
	// MetaDirName is the hidden metadata area created inside a sealed folder.
	MetaDirName = ".phantom_vault"

	// FileName is the manifest file inside the metadata area.
	FileName = "encryption.meta"

	// EncSuffix marks an encrypted sibling of an original file.
	EncSuffix = ".enc"

	// headerSize is salt + global IV + file count.
	headerSize = crypto.SaltSize + crypto.IVSize + 8

	// minEntrySize is a one-byte path, the separator, and the IV.
	minEntrySize = 1 + 1 + crypto.IVSize

	// maxEntrySize bounds a single entry so a corrupted length field
	// cannot trigger a huge allocation.
	maxEntrySize = 64 * 1024
)

var (
	ErrMalformed  = errors.New("malformed manifest")
	ErrNoManifest = errors.New("manifest not found")
)

// Entry maps one original file to its per-file encryption IV.
// Path is relative to the sealed folder root, slash-separated.
type Entry struct {
	Path string
	IV   []byte
}

// Manifest is the binary record written at the end of a successful
// folder encryption and destroyed at the end of a successful decryption.
//
// On-disk layout, integers little-endian:
//
//	salt (32 bytes)
//	global IV (12 bytes, reserved; per-file IVs do the work)
//	file count (8 bytes)
//	file count times: entry size (4 bytes) + path bytes + '|' + IV (12 bytes)
//
// The file is all-or-nothing: a manifest that cannot be parsed in full
// is treated as absent rather than partially trusted.
type Manifest struct {
	Salt     []byte
	GlobalIV []byte
	Entries  []Entry
}

// MetaDir returns the metadata directory for a folder.
func MetaDir(folder string) string {
	return filepath.Join(folder, MetaDirName)
}

// Path returns the manifest file path for a folder.
func Path(folder string) string {
	return filepath.Join(folder, MetaDirName, FileName)
}

// Exists reports whether a folder carries a manifest.
func Exists(folder string) bool {
	info, err := os.Stat(Path(folder))
	return err == nil && info.Mode().IsRegular()
}

// New creates an empty manifest carrying the vault's salt and a fresh
// global IV.
func New(salt []byte) (*Manifest, error) {
	iv, err := crypto.GenerateIV()
	if err != nil {
		return nil, err
	}
	return &Manifest{Salt: salt, GlobalIV: iv}, nil
}

// Add appends a file entry.
func (m *Manifest) Add(relPath string, iv []byte) {
	m.Entries = append(m.Entries, Entry{Path: relPath, IV: iv})
}

// encode serializes the manifest into a byte buffer.
func (m *Manifest) encode() ([]byte, error) {
	if len(m.Salt) != crypto.SaltSize {
		return nil, fmt.Errorf("%w: salt is %d bytes, want %d", ErrMalformed, len(m.Salt), crypto.SaltSize)
	}
	if len(m.GlobalIV) != crypto.IVSize {
		return nil, fmt.Errorf("%w: global iv is %d bytes, want %d", ErrMalformed, len(m.GlobalIV), crypto.IVSize)
	}

	buf := new(bytes.Buffer)
	buf.Write(m.Salt)
	buf.Write(m.GlobalIV)

	if err := binary.Write(buf, binary.LittleEndian, uint64(len(m.Entries))); err != nil {
		return nil, fmt.Errorf("failed to write file count: %w", err)
	}

	for _, e := range m.Entries {
		if e.Path == "" {
			return nil, fmt.Errorf("%w: empty entry path", ErrMalformed)
		}
		if len(e.IV) != crypto.IVSize {
			return nil, fmt.Errorf("%w: entry %q iv is %d bytes, want %d", ErrMalformed, e.Path, len(e.IV), crypto.IVSize)
		}

		entrySize := len(e.Path) + 1 + crypto.IVSize
		if entrySize > maxEntrySize {
			return nil, fmt.Errorf("%w: entry %q exceeds maximum size", ErrMalformed, e.Path)
		}
		if err := binary.Write(buf, binary.LittleEndian, uint32(entrySize)); err != nil {
			return nil, fmt.Errorf("failed to write entry size: %w", err)
		}
		buf.WriteString(e.Path)
		buf.WriteByte('|')
		buf.Write(e.IV)
	}

	return buf.Bytes(), nil
}

// Write persists the manifest atomically: the bytes go to a temp file in
// the metadata directory, are fsynced, and then renamed into place. A
// crash at any point leaves either no manifest or a complete one.
func (m *Manifest) Write(folder string) error {
	data, err := m.encode()
	if err != nil {
		return err
	}

	dir := MetaDir(folder)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create metadata dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".meta-tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp manifest: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close manifest: %w", err)
	}
	if err := os.Rename(tmpName, Path(folder)); err != nil {
		return fmt.Errorf("failed to rename manifest into place: %w", err)
	}
	success = true
	return nil
}

// Read loads and parses a folder's manifest. Every field is bounds
// checked; the declared file count must match the entry table exactly
// and no trailing bytes may remain.
func Read(folder string) (*Manifest, error) {
	data, err := os.ReadFile(Path(folder))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoManifest
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data)
}

// Parse decodes manifest bytes.
func Parse(data []byte) (*Manifest, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: truncated header (%d bytes)", ErrMalformed, len(data))
	}

	m := &Manifest{
		Salt:     append([]byte(nil), data[:crypto.SaltSize]...),
		GlobalIV: append([]byte(nil), data[crypto.SaltSize:crypto.SaltSize+crypto.IVSize]...),
	}

	r := bytes.NewReader(data[crypto.SaltSize+crypto.IVSize:])

	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: failed to read file count", ErrMalformed)
	}

	for i := uint64(0); i < count; i++ {
		var entrySize uint32
		if err := binary.Read(r, binary.LittleEndian, &entrySize); err != nil {
			return nil, fmt.Errorf("%w: entry %d: failed to read size", ErrMalformed, i)
		}
		if entrySize < minEntrySize || entrySize > maxEntrySize {
			return nil, fmt.Errorf("%w: entry %d: invalid size %d", ErrMalformed, i, entrySize)
		}

		entry := make([]byte, entrySize)
		if _, err := io.ReadFull(r, entry); err != nil {
			return nil, fmt.Errorf("%w: entry %d: truncated", ErrMalformed, i)
		}

		// The IV is the fixed-size tail; the separator sits right
		// before it. Parsing from the end keeps paths containing
		// '|' unambiguous.
		sep := len(entry) - crypto.IVSize - 1
		if entry[sep] != '|' {
			return nil, fmt.Errorf("%w: entry %d: missing separator", ErrMalformed, i)
		}

		m.Entries = append(m.Entries, Entry{
			Path: string(entry[:sep]),
			IV:   append([]byte(nil), entry[sep+1:]...),
		})
	}

	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after entry table", ErrMalformed, r.Len())
	}

	return m, nil
}
