// Package fsattr manages OS-visible attributes of files and folders.
//
// On this platform hiding is the dot-prefix convention: Hide and Unhide
// rename the entry and return the resulting path, which callers must use
// from then on. Read-only maps to the owner write bit; there is no
// system attribute here, so it always reads false and set requests for
// it are ignored.
package fsattr

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// ErrPathNotFound is returned by every operation on a missing path.
var ErrPathNotFound = errors.New("path not found")

// Attributes describes the externally visible state of a path.
type Attributes struct {
	Hidden   bool        `json:"hidden"`
	ReadOnly bool        `json:"readonly"`
	System   bool        `json:"system"`
	Mode     os.FileMode `json:"mode"`
	Created  time.Time   `json:"created"`
	Modified time.Time   `json:"modified"`
	Accessed time.Time   `json:"accessed"`
}

// Change is a partial attribute update. Nil fields are left untouched.
type Change struct {
	Hidden   *bool
	ReadOnly *bool
	Modified *time.Time
	Accessed *time.Time
}

// IsHidden reports whether the path's name carries the hidden marker.
// It does not require the path to exist.
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// Hide makes the entry hidden and returns its new path. Hiding an
// already hidden entry is a no-op that returns the path unchanged.
func Hide(path string) (string, error) {
	if _, err := os.Lstat(path); err != nil {
		return "", pathError(path, err)
	}
	if IsHidden(path) {
		return path, nil
	}

	newPath := filepath.Join(filepath.Dir(path), "."+filepath.Base(path))
	if err := os.Rename(path, newPath); err != nil {
		return "", fmt.Errorf("failed to hide %s: %w", path, err)
	}
	return newPath, nil
}

// Unhide removes the hidden marker and returns the new path. Unhiding a
// visible entry is a no-op that returns the path unchanged.
func Unhide(path string) (string, error) {
	if _, err := os.Lstat(path); err != nil {
		return "", pathError(path, err)
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, ".") {
		return path, nil
	}

	newPath := filepath.Join(filepath.Dir(path), strings.TrimPrefix(base, "."))
	if err := os.Rename(path, newPath); err != nil {
		return "", fmt.Errorf("failed to unhide %s: %w", path, err)
	}
	return newPath, nil
}

// Get returns the attributes and timestamps of a path.
func Get(path string) (Attributes, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return Attributes{}, pathError(path, err)
	}

	mode := os.FileMode(st.Mode & 07777)
	return Attributes{
		Hidden:   IsHidden(path),
		ReadOnly: st.Mode&unix.S_IWUSR == 0,
		System:   false,
		Mode:     mode,
		Created:  time.Unix(st.Ctim.Sec, st.Ctim.Nsec),
		Modified: time.Unix(st.Mtim.Sec, st.Mtim.Nsec),
		Accessed: time.Unix(st.Atim.Sec, st.Atim.Nsec),
	}, nil
}

// Set applies the supplied fields of a Change and leaves the rest
// untouched. When the hidden flag changes, the returned path reflects
// the rename; otherwise the original path comes back.
func Set(path string, change Change) (string, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return "", pathError(path, err)
	}

	if change.ReadOnly != nil {
		mode := st.Mode & 07777
		if *change.ReadOnly {
			mode &^= unix.S_IWUSR | unix.S_IWGRP | unix.S_IWOTH
		} else {
			mode |= unix.S_IWUSR
		}
		if err := os.Chmod(path, os.FileMode(mode)); err != nil {
			return "", fmt.Errorf("failed to chmod %s: %w", path, err)
		}
	}

	if change.Modified != nil || change.Accessed != nil {
		mtime := time.Unix(st.Mtim.Sec, st.Mtim.Nsec)
		atime := time.Unix(st.Atim.Sec, st.Atim.Nsec)
		if change.Modified != nil {
			mtime = *change.Modified
		}
		if change.Accessed != nil {
			atime = *change.Accessed
		}
		if err := os.Chtimes(path, atime, mtime); err != nil {
			return "", fmt.Errorf("failed to set times on %s: %w", path, err)
		}
	}

	if change.Hidden != nil {
		if *change.Hidden {
			return Hide(path)
		}
		return Unhide(path)
	}
	return path, nil
}

func pathError(path string, err error) error {
	if os.IsNotExist(err) || errors.Is(err, unix.ENOENT) {
		return fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}
	return fmt.Errorf("failed to stat %s: %w", path, err)
}
