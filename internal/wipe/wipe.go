// Package wipe implements multi-pass secure file deletion.
//
// Each pass overwrites the file's exact byte length and is flushed to
// disk before the next begins: all zeros, then all ones, then
// cryptographically random bytes. The directory entry is renamed to a
// random name before the final unlink so the original filename does not
// linger in directory listings.
//
// Deletion is best-effort. A failed overwrite degrades to a plain
// remove; vault operations must never be blocked because a wipe pass
// could not run.
package wipe

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DefaultPasses is the standard zero/one/random sequence.
const DefaultPasses = 3

// bufferSize is the overwrite chunk size.
const bufferSize = 4096

// ProgressFunc is invoked as overwrite passes advance. pass is 1-based;
// written and total are byte counts within the current pass.
type ProgressFunc func(pass int, written, total int64)

// Delete overwrites path with the given number of passes and removes it.
// Overwrite failures are swallowed and the file is removed anyway; only
// a failure to remove the entry itself is reported. Callers that treat
// deletion as advisory may ignore the returned error.
func Delete(path string, passes int, progress ProgressFunc) error {
	if passes > 0 {
		// Best-effort: a file we cannot overwrite (permissions,
		// concurrent truncation) still gets unlinked below.
		_ = Overwrite(path, passes, progress)
	}
	return remove(path)
}

// Overwrite runs the overwrite passes without removing the file.
// Pass patterns cycle zero, one, random; three passes give the full
// sequence. The last partial block is covered exactly, with no write
// past end-of-file.
func Overwrite(path string, passes int, progress ProgressFunc) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", path)
	}
	size := info.Size()

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to open file for overwrite: %w", err)
	}
	defer f.Close()

	buf := make([]byte, bufferSize)
	for pass := 1; pass <= passes; pass++ {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("pass %d: failed to seek: %w", pass, err)
		}

		var written int64
		for written < size {
			chunk := buf
			if remaining := size - written; remaining < int64(len(buf)) {
				chunk = buf[:remaining]
			}
			if err := fillPattern(chunk, pass); err != nil {
				return fmt.Errorf("pass %d: %w", pass, err)
			}

			n, err := f.Write(chunk)
			if err != nil {
				return fmt.Errorf("pass %d: failed to overwrite: %w", pass, err)
			}
			written += int64(n)
			if progress != nil {
				progress(pass, written, size)
			}
		}

		if err := f.Sync(); err != nil {
			return fmt.Errorf("pass %d: failed to sync: %w", pass, err)
		}
	}

	return nil
}

// fillPattern fills buf for a 1-based pass number: zeros, then ones,
// then random, cycling for higher pass counts.
func fillPattern(buf []byte, pass int) error {
	switch (pass - 1) % 3 {
	case 0:
		for i := range buf {
			buf[i] = 0x00
		}
	case 1:
		for i := range buf {
			buf[i] = 0xFF
		}
	default:
		if _, err := rand.Read(buf); err != nil {
			return fmt.Errorf("failed to generate random pattern: %w", err)
		}
	}
	return nil
}

// remove unlinks path, first renaming it to a random hidden name so the
// original filename is not left behind in the directory. The rename is
// best-effort; removal proceeds in place when it fails.
func remove(path string) error {
	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err == nil {
		obscured := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%x", suffix))
		if err := os.Rename(path, obscured); err == nil {
			path = obscured
		}
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}
