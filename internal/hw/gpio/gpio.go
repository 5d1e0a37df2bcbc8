package gpio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cjeanneret/irdapower/internal/debug"
)

// Level represents the logical state of a GPIO pin.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// PinMode indicates whether a GPIO is input or output.
type PinMode int

const (
	Input PinMode = iota
	Output
)

// MaxPin is the highest line number accepted by the drivers.
const MaxPin = 511

var (
	// ErrNoLine is returned when a line name does not resolve to a line.
	ErrNoLine = errors.New("gpio: no such line")
	// ErrInvalidPin is returned for line numbers outside 0..MaxPin.
	ErrInvalidPin = errors.New("gpio: invalid line number")
	// ErrBusy is returned when a line is already requested by another owner.
	ErrBusy = errors.New("gpio: line busy")
)

// Driver defines the abstract interface for controlling GPIOs.
// This allows plugging in a real Raspberry Pi implementation,
// a periph.io host registry implementation, or a mock for development on PC.
type Driver interface {
	// Resolve maps a configured line name to a line number.
	Resolve(name string) (int, error)
	// Request claims exclusive ownership of a line for label.
	Request(pin int, label string) error
	// Free releases a line claimed with Request.
	Free(pin int) error
	SetupPin(pin int, mode PinMode) error
	WritePin(pin int, level Level) error
	ReadPin(pin int) (Level, error)
	Close() error
}

// ValidPin reports whether pin is a usable line number.
func ValidPin(pin int) bool {
	return pin >= 0 && pin <= MaxPin
}

// Kind names for NewDriver.
const (
	KindMock   = "mock"
	KindRPi    = "rpio"
	KindPeriph = "periph"
)

// NewDriver creates a GPIO driver based on the chosen kind.
// names maps configured line names to line numbers; the periph driver
// falls back to the host pin registry for names missing from it.
func NewDriver(kind string, names map[string]int) (Driver, error) {
	switch kind {
	case KindMock:
		debug.Info("Using MOCK GPIO driver (development mode)")
		return NewMockDriver(names), nil
	case KindRPi, "":
		return NewRPiRealDriver(names)
	case KindPeriph:
		return NewPeriphDriver(names)
	default:
		return nil, fmt.Errorf("unknown gpio driver %q", kind)
	}
}

// claims tracks exclusive line ownership for a driver instance.
type claims struct {
	mu     sync.Mutex
	owners map[int]string
}

func (c *claims) request(pin int, label string) error {
	if !ValidPin(pin) {
		return fmt.Errorf("%w: %d", ErrInvalidPin, pin)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.owners == nil {
		c.owners = make(map[int]string)
	}
	if owner, ok := c.owners[pin]; ok {
		return fmt.Errorf("%w: line %d owned by %q", ErrBusy, pin, owner)
	}
	c.owners[pin] = label
	return nil
}

func (c *claims) free(pin int) {
	c.mu.Lock()
	delete(c.owners, pin)
	c.mu.Unlock()
}

func (c *claims) owner(pin int) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.owners[pin]
	return o, ok
}

// lineNames resolves names from a static table.
type lineNames map[string]int

func (n lineNames) resolve(name string) (int, error) {
	pin, ok := n[name]
	if !ok {
		return -1, fmt.Errorf("%w: %q", ErrNoLine, name)
	}
	if !ValidPin(pin) {
		return -1, fmt.Errorf("%w: %q -> %d", ErrInvalidPin, name, pin)
	}
	return pin, nil
}

// MockDriver is a test implementation that keeps line levels in memory and
// logs actions. Used for development on PC or testing.
type MockDriver struct {
	claims
	names lineNames

	mu     sync.Mutex
	levels map[int]Level
	modes  map[int]PinMode
}

// NewMockDriver returns a MockDriver resolving names from the given table.
func NewMockDriver(names map[string]int) *MockDriver {
	return &MockDriver{
		names:  lineNames(names),
		levels: make(map[int]Level),
		modes:  make(map[int]PinMode),
	}
}

func (m *MockDriver) Resolve(name string) (int, error) {
	return m.names.resolve(name)
}

func (m *MockDriver) Request(pin int, label string) error {
	debug.GPIO("Request", pin, label)
	return m.request(pin, label)
}

func (m *MockDriver) Free(pin int) error {
	debug.GPIO("Free", pin, nil)
	m.free(pin)
	return nil
}

func (m *MockDriver) SetupPin(pin int, mode PinMode) error {
	debug.GPIO("SetupPin", pin, mode)
	m.mu.Lock()
	m.modes[pin] = mode
	m.mu.Unlock()
	return nil
}

func (m *MockDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)
	m.mu.Lock()
	m.levels[pin] = level
	m.mu.Unlock()
	return nil
}

func (m *MockDriver) ReadPin(pin int) (Level, error) {
	debug.GPIO("ReadPin", pin, nil)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.levels[pin], nil
}

// Drive changes a line level from outside the owner, as another agent on
// the board would.
func (m *MockDriver) Drive(pin int, level Level) {
	m.mu.Lock()
	m.levels[pin] = level
	m.mu.Unlock()
}

// Owner returns the label holding pin, if any.
func (m *MockDriver) Owner(pin int) (string, bool) {
	return m.owner(pin)
}

func (m *MockDriver) Close() error {
	debug.Trace("GPIO Close (mock)")
	return nil
}
