package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrPathEscapes  = errors.New("path escapes vault folder")
	ErrAbsolutePath = errors.New("absolute paths are not allowed")
	ErrEmptyPath    = errors.New("empty path not allowed")
)

// PathValidator confines file operations to a vault folder using
// os.Root. Manifest entries are attacker-controllable bytes once a
// folder has been carried between machines, so every stored path is
// validated before any file is created from it.
type PathValidator struct {
	root     *os.Root
	rootPath string
}

// New creates a PathValidator for the folder at the given path.
func New(folder string) (*PathValidator, error) {
	absPath, err := filepath.Abs(folder)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault folder: %w", err)
	}

	return &PathValidator{
		root:     root,
		rootPath: absPath,
	}, nil
}

// Close releases the folder handle.
func (pv *PathValidator) Close() error {
	if pv.root != nil {
		return pv.root.Close()
	}
	return nil
}

// Normalize validates a path that is about to be recorded and returns
// the slash-separated relative form used on disk. It rejects empty
// paths, absolute paths, escapes through "..", and names that are not
// local in the filepath.IsLocal sense.
func (pv *PathValidator) Normalize(userPath string) (string, error) {
	if userPath == "" {
		return "", ErrEmptyPath
	}

	if !filepath.IsLocal(userPath) {
		if filepath.IsAbs(userPath) {
			return "", fmt.Errorf("%w: %s", ErrAbsolutePath, userPath)
		}
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, userPath)
	}

	cleanPath := filepath.Clean(userPath)
	if !filepath.IsLocal(cleanPath) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, cleanPath)
	}

	// Containment recheck through Rel, in case lexical cleaning and
	// IsLocal ever disagree
	absPath := filepath.Join(pv.rootPath, cleanPath)
	relPath, err := filepath.Rel(pv.rootPath, absPath)
	if err != nil {
		return "", fmt.Errorf("failed to compute relative path: %w", err)
	}
	if strings.HasPrefix(relPath, "..") || filepath.IsAbs(relPath) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, userPath)
	}

	return filepath.ToSlash(relPath), nil
}

// ValidateStored validates a path read back from a manifest and returns
// its platform form. The same rules as Normalize apply; a manifest
// whose entries fail here must be treated as malformed.
func (pv *PathValidator) ValidateStored(storedPath string) (string, error) {
	platformPath := filepath.FromSlash(storedPath)
	if _, err := pv.Normalize(platformPath); err != nil {
		return "", err
	}
	return platformPath, nil
}

// WriteFileInRoot writes a file inside the vault folder. The path must
// be relative and is validated first; os.Root guarantees the write
// cannot land outside the folder even through symlinks.
func (pv *PathValidator) WriteFileInRoot(path string, data []byte, perm os.FileMode) error {
	platformPath, err := pv.ValidateStored(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	return pv.root.WriteFile(platformPath, data, perm)
}

// MkdirAllInRoot creates directories inside the vault folder.
func (pv *PathValidator) MkdirAllInRoot(path string, perm os.FileMode) error {
	platformPath, err := pv.ValidateStored(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	return pv.root.MkdirAll(platformPath, perm)
}

// ReadFileInRoot reads a file inside the vault folder.
func (pv *PathValidator) ReadFileInRoot(path string) ([]byte, error) {
	platformPath, err := pv.ValidateStored(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	return pv.root.ReadFile(platformPath)
}

// StatInRoot stats a file inside the vault folder.
func (pv *PathValidator) StatInRoot(path string) (os.FileInfo, error) {
	platformPath, err := pv.ValidateStored(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	return pv.root.Stat(platformPath)
}

// RemoveInRoot removes a file or empty directory inside the vault folder.
func (pv *PathValidator) RemoveInRoot(path string) error {
	platformPath, err := pv.ValidateStored(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	return pv.root.Remove(platformPath)
}
