package power

import (
	"fmt"

	"github.com/cjeanneret/irdapower/internal/hw/gpio"
	"github.com/cjeanneret/irdapower/internal/hw/pmic"
)

// DefaultGPIOLine is the line name looked up for KindGpio when none is
// configured.
const DefaultGPIOLine = "gpio_power_control"

// Backend is one power path. It is built (init) by NewBackend and torn down
// exactly once by the owning Device.
type Backend interface {
	Kind() Kind
	// Set drives the hardware towards enable and updates the shadows in st.
	Set(st *PowerState, enable bool) error
	// Query returns the state to report; it never fails.
	Query(st *PowerState) State
	Teardown() error
}

// Regulator is the supply rail used by KindInternalLdo.
type Regulator interface {
	Enable() error
	Disable() error
	IsEnabled() (bool, error)
	Close() error
}

// PinMux switches the UART pins between the "default" and "idle" states.
type PinMux interface {
	Select(state string) error
	Close() error
}

// Hardware carries the collaborators a backend may need. Only the fields
// of the selected kind are used; openers are called by init and nothing
// else.
type Hardware struct {
	GPIO     gpio.Driver
	GPIOLine string

	OpenRegulator func() (Regulator, error)
	OpenPinMux    func() (PinMux, error)

	PMIC pmic.Configurer
}

// NewBackend runs the init step of the backend for kind. On error nothing
// stays acquired.
func NewBackend(kind Kind, hw Hardware) (Backend, error) {
	switch kind {
	case KindGpio:
		return newGPIOBackend(hw)
	case KindInternalLdo:
		return newInternalLDOBackend(hw)
	case KindExternalLdo:
		return newExternalLDOBackend(hw), nil
	case KindOther:
		return otherBackend{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, kind)
	}
}
