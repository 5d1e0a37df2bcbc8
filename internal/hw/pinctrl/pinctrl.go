// Package pinctrl switches the UART pin group between named mux states by
// driving the board's pinctrl command.
package pinctrl

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/cjeanneret/irdapower/internal/debug"
	"github.com/cjeanneret/irdapower/internal/hw/claim"
)

// Well-known state names.
const (
	StateDefault = "default"
	StateIdle    = "idle"
)

// ErrNoState is returned when a state name is not configured.
var ErrNoState = errors.New("pinctrl: no such state")

// Runner executes name with args and returns its combined output.
type Runner func(name string, args ...string) ([]byte, error)

// ExecRunner runs the command with os/exec.
func ExecRunner(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

// Config describes the pin group and its states.
type Config struct {
	Command  string            // e.g. "pinctrl"
	LockPath string            // file claimed while the handle is held
	Pins     []int             // pins of the group (TX, RX)
	States   map[string]string // state name -> function args, e.g. "a0" or "ip pd"
}

// State is a resolved mux state.
type State struct {
	Name string
	args []string
}

// Handle is an exclusively owned pin group.
type Handle struct {
	mu   sync.Mutex
	cfg  Config
	run  Runner
	lock *claim.Lock
}

// Get claims the pin group. A nil run uses ExecRunner.
func Get(cfg Config, run Runner) (*Handle, error) {
	if len(cfg.Pins) == 0 {
		return nil, errors.New("pinctrl: no pins configured")
	}
	if cfg.Command == "" {
		cfg.Command = "pinctrl"
	}
	if run == nil {
		run = ExecRunner
	}
	lock, err := claim.Open(cfg.LockPath, os.O_RDWR|os.O_CREATE)
	if err != nil {
		return nil, fmt.Errorf("pinctrl: %w", err)
	}
	debug.Verbose("Pinctrl group %v claimed", cfg.Pins)
	return &Handle{cfg: cfg, run: run, lock: lock}, nil
}

// LookupState resolves a configured state by name.
func (h *Handle) LookupState(name string) (State, error) {
	fn, ok := h.cfg.States[name]
	if !ok || strings.TrimSpace(fn) == "" {
		return State{}, fmt.Errorf("%w: %q", ErrNoState, name)
	}
	return State{Name: name, args: strings.Fields(fn)}, nil
}

// SelectState applies s to every pin of the group, in order.
func (h *Handle) SelectState(s State) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lock == nil {
		return errors.New("pinctrl: handle released")
	}
	for _, pin := range h.cfg.Pins {
		args := append([]string{"set", strconv.Itoa(pin)}, s.args...)
		debug.HW("select", "pinctrl "+strconv.Itoa(pin), s.Name)
		if out, err := h.run(h.cfg.Command, args...); err != nil {
			return fmt.Errorf("%s %s: %w: %s", h.cfg.Command, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
		}
	}
	return nil
}

// Select looks up and applies the named state.
func (h *Handle) Select(name string) error {
	s, err := h.LookupState(name)
	if err != nil {
		return err
	}
	return h.SelectState(s)
}

// Close releases the pin group claim. Pins keep their current mux.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lock == nil {
		return nil
	}
	err := h.lock.Release()
	h.lock = nil
	debug.Verbose("Pinctrl group %v released", h.cfg.Pins)
	return err
}

// Mock records selected states; used in mock hardware mode and tests.
type Mock struct {
	mu       sync.Mutex
	current  string
	closed   bool
	Selected []string

	// Fail maps a state name to the error returned when selecting it.
	Fail map[string]error
}

func (m *Mock) Select(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	debug.HW("select", "pinctrl mock", name)
	if err := m.Fail[name]; err != nil {
		return err
	}
	m.Selected = append(m.Selected, name)
	m.current = name
	return nil
}

// Current returns the last selected state.
func (m *Mock) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
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
