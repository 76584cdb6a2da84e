// Package platform provides process-level hardening used around key
// material: core dumps are disabled so derived keys never land in a
// crash dump, and key buffers can be pinned to RAM so they are not
// swapped out. Both are best-effort; callers degrade gracefully when
// the kernel refuses.
package platform

import "golang.org/x/sys/unix"

// DisableCoreDumps sets the core dump size limit to zero.
func DisableCoreDumps() error {
	var rlim unix.Rlimit
	rlim.Cur = 0
	rlim.Max = 0
	return unix.Setrlimit(unix.RLIMIT_CORE, &rlim)
}

// LockMemory pins a buffer so it cannot be swapped to disk.
func LockMemory(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return unix.Mlock(b)
}

// LockAllMemory pins the current and future pages of the whole
// process. Long-running processes that hold derived keys use it so no
// page ever reaches swap. May fail under RLIMIT_MEMLOCK.
func LockAllMemory() error {
	return unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE)
}

// UnlockMemory releases a buffer pinned by LockMemory.
func UnlockMemory(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return unix.Munlock(b)
}
