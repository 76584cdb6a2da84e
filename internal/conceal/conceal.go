// Package conceal rewrites the externally visible name of the running
// process so it does not stand out in process listings.
//
// Concealment is in-process state only: it lasts for the lifetime of
// the process and is lost on restart unless re-applied. The Concealer
// always retains the true original name, so it can be restored after
// any number of renames.
package conceal

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// maxNameLen is the kernel's comm limit (16 bytes including NUL).
const maxNameLen = 15

// DefaultDisguise mimics a kernel worker thread for the given pid.
func DefaultDisguise() string {
	return fmt.Sprintf("kworker/%d:0", os.Getpid()%100)
}

var (
	ErrConcealDenied = errors.New("process name change rejected")
	ErrEmptyName     = errors.New("process name cannot be empty")
)

// Concealer owns the process-name state. Create one at service start
// and keep it for the life of the process; it is safe for concurrent
// use.
type Concealer struct {
	mu       sync.Mutex
	original string
	current  string
	disguise string
	hidden   bool
}

// New captures the current process name as the original.
func New() (*Concealer, error) {
	name, err := readComm()
	if err != nil {
		return nil, fmt.Errorf("failed to read process name: %w", err)
	}
	return &Concealer{
		original: name,
		current:  name,
		disguise: DefaultDisguise(),
	}, nil
}

// SetDisguise overrides the name used by Hide.
func (c *Concealer) SetDisguise(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name != "" {
		c.disguise = name
	}
}

// SetName renames the process. Names longer than the kernel limit are
// truncated. The original name recorded at construction is unaffected.
func (c *Concealer) SetName(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setName(name)
}

func (c *Concealer) setName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}

	b, err := unix.BytePtrFromString(name)
	if err != nil {
		return fmt.Errorf("invalid process name: %w", err)
	}
	if err := unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(b)), 0, 0, 0); err != nil {
		return fmt.Errorf("%w: %v", ErrConcealDenied, err)
	}

	// Some tools read comm directly; keep it in sync. prctl already
	// updated it on mainline kernels, so a write failure is harmless.
	_ = os.WriteFile("/proc/self/comm", []byte(name), 0)

	c.current = name
	return nil
}

// Hide switches the process name to the disguise. Hiding an already
// hidden process is a no-op.
func (c *Concealer) Hide() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hidden {
		return nil
	}
	if err := c.setName(c.disguise); err != nil {
		return err
	}
	c.hidden = true
	return nil
}

// Show restores the original process name.
func (c *Concealer) Show() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hidden {
		return nil
	}
	if err := c.setName(c.original); err != nil {
		return err
	}
	c.hidden = false
	return nil
}

// IsHidden reflects the last successful Hide/Show call.
func (c *Concealer) IsHidden() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hidden
}

// CurrentName returns the name last applied through this Concealer.
func (c *Concealer) CurrentName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// OriginalName returns the name the process started with.
func (c *Concealer) OriginalName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.original
}

func readComm() (string, error) {
	data, err := os.ReadFile("/proc/self/comm")
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(string(data), "\n"), nil
}
