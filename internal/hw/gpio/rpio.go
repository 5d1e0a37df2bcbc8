package gpio

import (
	"fmt"
	"sync"

	"github.com/cjeanneret/irdapower/internal/debug"
	"github.com/stianeikeland/go-rpio/v4"
)

// MaxBCMPin is the highest BCM line number on the Raspberry Pi SoCs.
const MaxBCMPin = 53

// pinIO is the register layer under RPiDriver.
type pinIO interface {
	Input(pin uint8)
	Output(pin uint8)
	Write(pin uint8, level Level)
	Read(pin uint8) Level
	Close() error
}

// rpioPins drives /dev/gpiomem through go-rpio.
type rpioPins struct{}

func (rpioPins) Input(pin uint8)  { rpio.Pin(pin).Input() }
func (rpioPins) Output(pin uint8) { rpio.Pin(pin).Output() }

func (rpioPins) Write(pin uint8, level Level) {
	if level == High {
		rpio.Pin(pin).High()
	} else {
		rpio.Pin(pin).Low()
	}
}

func (rpioPins) Read(pin uint8) Level {
	return rpio.Pin(pin).Read() == rpio.High
}

func (rpioPins) Close() error { return rpio.Close() }

// RPiDriver is the real implementation for Raspberry Pi using go-rpio.
// Lines are addressed by BCM number; names come from the config table.
// Releasing a line or closing the driver leaves line direction and level
// as they are.
type RPiDriver struct {
	claims
	names lineNames
	io    pinIO

	mu      sync.Mutex
	outputs map[int]bool // lines set to output by this driver
}

// NewRPiRealDriver creates a real GPIO driver for Raspberry Pi.
// Requires running on a Raspberry Pi with access to /dev/gpiomem or as root.
func NewRPiRealDriver(names map[string]int) (*RPiDriver, error) {
	debug.Info("Initializing real GPIO driver (go-rpio)")

	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("failed to open GPIO: %w (are you running on a Raspberry Pi?)", err)
	}

	debug.Verbose("GPIO memory mapped successfully")
	return newRPiDriver(names, rpioPins{}), nil
}

func newRPiDriver(names map[string]int, io pinIO) *RPiDriver {
	return &RPiDriver{
		names:   lineNames(names),
		io:      io,
		outputs: make(map[int]bool),
	}
}

func checkBCM(pin int) error {
	if pin < 0 || pin > MaxBCMPin {
		return fmt.Errorf("%w: %d is not a BCM line", ErrInvalidPin, pin)
	}
	return nil
}

func (r *RPiDriver) Resolve(name string) (int, error) {
	pin, err := r.names.resolve(name)
	if err != nil {
		return -1, err
	}
	if err := checkBCM(pin); err != nil {
		return -1, fmt.Errorf("%q: %w", name, err)
	}
	return pin, nil
}

func (r *RPiDriver) Request(pin int, label string) error {
	debug.GPIO("Request", pin, label)
	if err := checkBCM(pin); err != nil {
		return err
	}
	return r.request(pin, label)
}

// Free drops the claim only. The line keeps driving its last level.
func (r *RPiDriver) Free(pin int) error {
	debug.GPIO("Free", pin, nil)
	r.free(pin)
	return nil
}

func (r *RPiDriver) SetupPin(pin int, mode PinMode) error {
	debug.GPIO("SetupPin", pin, mode)
	if err := checkBCM(pin); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	switch mode {
	case Input:
		r.io.Input(uint8(pin))
		delete(r.outputs, pin)
	case Output:
		r.io.Output(uint8(pin))
		r.outputs[pin] = true
	default:
		return fmt.Errorf("unknown pin mode: %d", mode)
	}
	return nil
}

func (r *RPiDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)
	if err := checkBCM(pin); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.outputs[pin] {
		r.io.Output(uint8(pin))
		r.outputs[pin] = true
	}
	r.io.Write(uint8(pin), level)
	return nil
}

// ReadPin returns the live line level without touching the line mode. An
// output line reads back the level it is being driven to.
func (r *RPiDriver) ReadPin(pin int) (Level, error) {
	debug.GPIO("ReadPin", pin, nil)
	if err := checkBCM(pin); err != nil {
		return Low, err
	}
	return r.io.Read(uint8(pin)), nil
}

func (r *RPiDriver) Close() error {
	debug.Trace("GPIO Close (real driver)")
	r.mu.Lock()
	r.outputs = make(map[int]bool)
	r.mu.Unlock()
	return r.io.Close()
}
