// Package power sequences the supply of the IrDA transceiver. A Device owns
// one power path (Backend), the tri-state tracker, and the lock that
// serializes every state change.
package power

import (
	"sync"

	"github.com/cjeanneret/irdapower/internal/debug"
)

// DefaultName is the device name used when none is given.
const DefaultName = "irda_maxim"

// Event describes one handled write request.
type Event struct {
	Device    string `json:"device"`
	Kind      Kind   `json:"kind"`
	Requested State  `json:"requested"`
	Work      State  `json:"work"`
	Elided    bool   `json:"elided,omitempty"`
	Err       string `json:"error,omitempty"`
}

// Snapshot is a copy of the tracker for display.
type Snapshot struct {
	Device string `json:"device"`
	Kind   Kind   `json:"kind"`
	Work   State  `json:"work"`
	Power  State  `json:"power"`
	Uart   State  `json:"uart"`
}

// Device is one transceiver instance.
type Device struct {
	mu       sync.Mutex
	name     string
	backend  Backend
	state    PowerState
	observer func(Event)
	obsMu    sync.Mutex // orders observer calls
	closed   bool
}

// Option configures a Device.
type Option func(*Device)

// WithName sets the device name used in logs and snapshots.
func WithName(name string) Option {
	return func(d *Device) { d.name = name }
}

// WithObserver registers fn to be called after every write request, outside
// the device lock. Calls are serialized and arrive in the order the requests
// ran, so fn may call back into the Device but must not block for long.
func WithObserver(fn func(Event)) Option {
	return func(d *Device) { d.observer = fn }
}

// New runs the init step of the backend for kind and returns the device.
// All three states start Unknown.
func New(kind Kind, hw Hardware, opts ...Option) (*Device, error) {
	b, err := NewBackend(kind, hw)
	if err != nil {
		return nil, err
	}
	return newDevice(b, opts...), nil
}

func newDevice(b Backend, opts ...Option) *Device {
	d := &Device{
		name:    DefaultName,
		backend: b,
		state:   NewPowerState(),
	}
	for _, opt := range opts {
		opt(d)
	}
	debug.Info("%s: power backend %s ready", d.name, b.Kind())
	return d
}

// Name returns the device name.
func (d *Device) Name() string { return d.name }

// Kind returns the power path, fixed at construction.
func (d *Device) Kind() Kind { return d.backend.Kind() }

// Snapshot returns the tracked states without touching hardware.
func (d *Device) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Snapshot{
		Device: d.name,
		Kind:   d.backend.Kind(),
		Work:   d.state.Work,
		Power:  d.state.Power,
		Uart:   d.state.Uart,
	}
}

// Close tears the backend down. It is safe to call more than once.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	debug.Info("%s: releasing %s backend", d.name, d.backend.Kind())
	return d.backend.Teardown()
}
