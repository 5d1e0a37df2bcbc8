// Package claim gives hardware handles exclusive ownership of the file that
// represents them, using an advisory flock(2) held for the handle lifetime.
package claim

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/cjeanneret/irdapower/internal/debug"
	"golang.org/x/sys/unix"
)

// ErrBusy is returned when another handle already holds the claim.
var ErrBusy = errors.New("claim: resource busy")

// Lock is an exclusive claim on a file.
type Lock struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// Open opens path with flag and takes a non-blocking exclusive flock on it.
// The file is closed again if the lock cannot be taken.
func Open(path string, flag int) (*Lock, error) {
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s", ErrBusy, path)
		}
		return nil, fmt.Errorf("flock %s: %w", path, err)
	}
	debug.HW("claim", path, true)
	return &Lock{f: f, path: path}, nil
}

// File returns the locked file, or nil once released.
func (l *Lock) File() *os.File {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f
}

// Path returns the claimed path.
func (l *Lock) Path() string { return l.path }

// Release drops the lock and closes the file. Calling it twice is a no-op.
func (l *Lock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	debug.HW("release", l.path, nil)
	_ = unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	err := l.f.Close()
	l.f = nil
	return err
}
