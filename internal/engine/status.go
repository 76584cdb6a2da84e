package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/illarion/phantom/internal/manifest"
)

// Status is the password-free view of one vault.
type Status struct {
	VaultID    string    `json:"vaultId"`
	Name       string    `json:"name"`
	Location   string    `json:"location"`
	Sealed     bool      `json:"sealed"`
	FileCount  int       `json:"fileCount"`
	MissingEnc []string  `json:"missingEnc,omitempty"`
	StrayEnc   []string  `json:"strayEnc,omitempty"`
	Drift      string    `json:"drift,omitempty"`
	Modified   time.Time `json:"modified"`
}

// Consistent reports whether a sealed vault's ciphertext matches its
// manifest exactly.
func (s *Status) Consistent() bool {
	return len(s.MissingEnc) == 0 && len(s.StrayEnc) == 0
}

// Status inspects a vault without a password. For a sealed vault it
// compares the manifest file table against the encrypted files on
// disk and renders the difference as a unified diff.
func (e *Engine) Status(ctx context.Context, ref string) (*Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	record, err := e.Resolve(ref)
	if err != nil {
		return nil, err
	}
	folder := record.Location

	status := &Status{
		VaultID:  record.VaultID,
		Name:     record.Name,
		Location: folder,
		Modified: record.ModifiedTime,
	}

	if _, err := os.Stat(folder); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPathInvalid, folder)
	}

	man, err := manifest.Read(folder)
	if errors.Is(err, manifest.ErrNoManifest) {
		files, err := enumerate(folder)
		if err != nil {
			return nil, err
		}
		status.FileCount = len(files)
		return status, nil
	}
	if err != nil {
		return nil, err
	}

	status.Sealed = true
	status.FileCount = len(man.Entries)

	expected := make([]string, 0, len(man.Entries))
	for _, entry := range man.Entries {
		expected = append(expected, entry.Path)
	}
	sort.Strings(expected)

	onDisk, err := collectSealed(folder)
	if err != nil {
		return nil, err
	}

	disk := make(map[string]bool, len(onDisk))
	for _, p := range onDisk {
		disk[p] = true
	}
	want := make(map[string]bool, len(expected))
	for _, p := range expected {
		want[p] = true
		if !disk[p] {
			status.MissingEnc = append(status.MissingEnc, p)
		}
	}
	for _, p := range onDisk {
		if !want[p] {
			status.StrayEnc = append(status.StrayEnc, p)
		}
	}

	if !status.Consistent() {
		status.Drift = driftDiff(expected, onDisk)
	}
	return status, nil
}

// collectSealed lists the encrypted files under a folder as sorted
// slash-relative paths with the encryption suffix stripped.
func collectSealed(folder string) ([]string, error) {
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
		if !strings.HasSuffix(name, manifest.EncSuffix) || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(folder, path)
		if err != nil {
			return err
		}
		rel = strings.TrimSuffix(filepath.ToSlash(rel), manifest.EncSuffix)
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// driftDiff renders the manifest/disk disagreement as a unified diff
// over the two file lists.
func driftDiff(expected, onDisk []string) string {
	expectedText := strings.Join(expected, "\n") + "\n"
	diskText := strings.Join(onDisk, "\n") + "\n"

	dmp := diffmatchpatch.New()

	// Line-mode diff keeps one file per line
	a, b, lineArray := dmp.DiffLinesToChars(expectedText, diskText)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	patches := dmp.PatchMake(expectedText, diffs)
	if len(patches) == 0 {
		return ""
	}

	var result strings.Builder
	result.WriteString("--- a/manifest\n")
	result.WriteString("+++ b/disk\n")
	result.WriteString(dmp.PatchToText(patches))
	return result.String()
}
