package power

import (
	"errors"
	"fmt"

	"github.com/cjeanneret/irdapower/internal/debug"
	"github.com/cjeanneret/irdapower/internal/hw/gpio"
)

const gpioLabel = "irda_gpio"

// gpioBackend switches the transceiver supply with a single output line.
type gpioBackend struct {
	drv  gpio.Driver
	name string
	pin  int
}

func newGPIOBackend(hw Hardware) (*gpioBackend, error) {
	if hw.GPIO == nil {
		return nil, fmt.Errorf("%w: no gpio driver", ErrInvalidConfig)
	}
	name := hw.GPIOLine
	if name == "" {
		name = DefaultGPIOLine
	}

	pin, err := hw.GPIO.Resolve(name)
	if err != nil {
		return nil, fmt.Errorf("%w: gpio %q: %w", ErrInvalidConfig, name, err)
	}
	if !gpio.ValidPin(pin) {
		return nil, fmt.Errorf("%w: gpio %q is not valid (%d)", ErrInvalidConfig, name, pin)
	}
	if err := hw.GPIO.Request(pin, gpioLabel); err != nil {
		if errors.Is(err, gpio.ErrInvalidPin) {
			return nil, fmt.Errorf("%w: gpio %q: %w", ErrInvalidConfig, name, err)
		}
		return nil, fmt.Errorf("%w: gpio %d: %w", ErrResourceUnavailable, pin, err)
	}

	debug.Info("Power line %s resolved to GPIO %d", name, pin)
	return &gpioBackend{drv: hw.GPIO, name: name, pin: pin}, nil
}

func (b *gpioBackend) Kind() Kind { return KindGpio }

func (b *gpioBackend) Set(st *PowerState, enable bool) error {
	if err := b.drv.SetupPin(b.pin, gpio.Output); err != nil {
		return fmt.Errorf("%w: gpio %d direction: %w", ErrIO, b.pin, err)
	}
	if err := b.drv.WritePin(b.pin, gpio.Level(enable)); err != nil {
		return fmt.Errorf("%w: gpio %d write: %w", ErrIO, b.pin, err)
	}
	st.Power = StateOf(enable)
	return nil
}

// Query reads the live line, so a change made outside this process shows up.
func (b *gpioBackend) Query(st *PowerState) State {
	lvl, err := b.drv.ReadPin(b.pin)
	if err != nil {
		debug.Error(fmt.Errorf("gpio %d read: %w", b.pin, err))
		return st.Work
	}
	return StateOf(bool(lvl))
}

func (b *gpioBackend) Teardown() error {
	debug.Verbose("Releasing GPIO %d (%s)", b.pin, b.name)
	return b.drv.Free(b.pin)
}
