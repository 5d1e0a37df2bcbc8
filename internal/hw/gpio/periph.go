package gpio

import (
	"fmt"
	"sync"

	"github.com/cjeanneret/irdapower/internal/debug"
	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// PeriphDriver implements Driver on top of the periph.io host registry.
// Unlike RPiDriver it can resolve board line names (e.g. from the device
// tree gpio-line-names) that are missing from the config table.
type PeriphDriver struct {
	claims
	names lineNames

	mu   sync.Mutex
	pins map[int]pgpio.PinIO // cached pin handles
}

// NewPeriphDriver initializes periph.io and returns a real GPIO driver.
func NewPeriphDriver(names map[string]int) (*PeriphDriver, error) {
	debug.Info("Initializing real GPIO driver (periph.io)")
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	return &PeriphDriver{
		names: lineNames(names),
		pins:  make(map[int]pgpio.PinIO),
	}, nil
}

func (d *PeriphDriver) Resolve(name string) (int, error) {
	if pin, err := d.names.resolve(name); err == nil {
		return pin, nil
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return -1, fmt.Errorf("%w: %q", ErrNoLine, name)
	}
	pin := p.Number()
	if !ValidPin(pin) {
		return -1, fmt.Errorf("%w: %q -> %d", ErrInvalidPin, name, pin)
	}
	d.mu.Lock()
	d.pins[pin] = p
	d.mu.Unlock()
	return pin, nil
}

// resolvePin looks up a GPIO pin by number, caching the result.
func (d *PeriphDriver) resolvePin(pin int) (pgpio.PinIO, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pins[pin]; ok {
		return p, nil
	}

	name := fmt.Sprintf("GPIO%d", pin)
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("pin %d (%s) not found in hardware", pin, name)
	}
	d.pins[pin] = p
	return p, nil
}

func (d *PeriphDriver) Request(pin int, label string) error {
	debug.GPIO("Request", pin, label)
	if _, err := d.resolvePin(pin); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPin, err)
	}
	return d.request(pin, label)
}

// Free drops the claim only. The line keeps driving its last level.
func (d *PeriphDriver) Free(pin int) error {
	debug.GPIO("Free", pin, nil)
	d.free(pin)
	return nil
}

func (d *PeriphDriver) SetupPin(pin int, mode PinMode) error {
	debug.GPIO("SetupPin", pin, mode)
	p, err := d.resolvePin(pin)
	if err != nil {
		return err
	}
	switch mode {
	case Input:
		return p.In(pgpio.PullNoChange, pgpio.NoEdge)
	case Output:
		// Keep the current level when switching direction.
		return p.Out(p.Read())
	default:
		return fmt.Errorf("unknown pin mode: %d", mode)
	}
}

func (d *PeriphDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)
	p, err := d.resolvePin(pin)
	if err != nil {
		return err
	}
	return p.Out(pgpio.Level(level))
}

func (d *PeriphDriver) ReadPin(pin int) (Level, error) {
	debug.GPIO("ReadPin", pin, nil)
	p, err := d.resolvePin(pin)
	if err != nil {
		return Low, err
	}
	return Level(p.Read()), nil
}

func (d *PeriphDriver) Close() error {
	debug.Trace("GPIO Close (periph driver)")
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pins = make(map[int]pgpio.PinIO)
	return nil
}
