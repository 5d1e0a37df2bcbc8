// Package regulator switches a voltage regulator through the Linux
// reg-userspace-consumer sysfs interface.
package regulator

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/cjeanneret/irdapower/internal/debug"
	"github.com/cjeanneret/irdapower/internal/hw/claim"
)

// ErrState is returned when the state attribute holds an unexpected value.
var ErrState = errors.New("regulator: unexpected state")

const (
	stateEnabled  = "enabled"
	stateDisabled = "disabled"
)

// Sysfs controls a regulator via the "state" attribute of a
// reg-userspace-consumer device, e.g.
// /sys/devices/platform/irda-ldo/state. The attribute is claimed
// exclusively for the lifetime of the handle.
type Sysfs struct {
	name string
	lock *claim.Lock
}

// OpenSysfs claims the state attribute at statePath for the supply name.
func OpenSysfs(name, statePath string) (*Sysfs, error) {
	if statePath == "" {
		return nil, fmt.Errorf("regulator %s: no state path configured", name)
	}
	lock, err := claim.Open(statePath, os.O_RDWR)
	if err != nil {
		return nil, fmt.Errorf("regulator %s: %w", name, err)
	}
	debug.Verbose("Regulator %s claimed (%s)", name, statePath)
	return &Sysfs{name: name, lock: lock}, nil
}

func (s *Sysfs) Enable() error {
	return s.write(stateEnabled)
}

func (s *Sysfs) Disable() error {
	return s.write(stateDisabled)
}

func (s *Sysfs) write(state string) error {
	debug.HW("write", "regulator "+s.name, state)
	f := s.lock.File()
	if f == nil {
		return fmt.Errorf("regulator %s: closed", s.name)
	}
	if _, err := f.WriteAt([]byte(state+"\n"), 0); err != nil {
		return fmt.Errorf("regulator %s: write %s: %w", s.name, state, err)
	}
	return nil
}

// IsEnabled reads the state attribute back.
func (s *Sysfs) IsEnabled() (bool, error) {
	f := s.lock.File()
	if f == nil {
		return false, fmt.Errorf("regulator %s: closed", s.name)
	}
	buf := make([]byte, 32)
	n, err := f.ReadAt(buf, 0)
	if n == 0 && err != nil {
		return false, fmt.Errorf("regulator %s: read state: %w", s.name, err)
	}
	fields := strings.Fields(string(buf[:n]))
	if len(fields) == 0 {
		return false, fmt.Errorf("%w: empty", ErrState)
	}
	debug.HW("read", "regulator "+s.name, fields[0])
	switch fields[0] {
	case stateEnabled, "1":
		return true, nil
	case stateDisabled, "0":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrState, fields[0])
	}
}

// Close releases the claim. The rail is left as is.
func (s *Sysfs) Close() error {
	debug.Verbose("Regulator %s released", s.name)
	return s.lock.Release()
}

// Mock is an in-memory regulator for development and tests.
type Mock struct {
	mu      sync.Mutex
	enabled bool
	closed  bool

	// Errors injected into the next calls, if set.
	EnableErr  error
	DisableErr error
	QueryErr   error

	Enables  int
	Disables int
}

func (m *Mock) Enable() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	debug.HW("enable", "regulator mock", nil)
	if m.EnableErr != nil {
		return m.EnableErr
	}
	m.Enables++
	m.enabled = true
	return nil
}

func (m *Mock) Disable() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	debug.HW("disable", "regulator mock", nil)
	if m.DisableErr != nil {
		return m.DisableErr
	}
	m.Disables++
	m.enabled = false
	return nil
}

func (m *Mock) IsEnabled() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.QueryErr != nil {
		return false, m.QueryErr
	}
	return m.enabled, nil
}

// Force sets the rail state without counting a call.
func (m *Mock) Force(enabled bool) {
	m.mu.Lock()
	m.enabled = enabled
	m.mu.Unlock()
}

func (m *Mock) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
