package power

import (
	"errors"
	"fmt"

	"github.com/cjeanneret/irdapower/internal/debug"
	"github.com/cjeanneret/irdapower/internal/hw/pinctrl"
)

// internalLDOBackend powers the transceiver from an on-board regulator and
// moves the UART pins out of idle once the rail is up.
type internalLDOBackend struct {
	reg Regulator
	mux PinMux
}

func newInternalLDOBackend(hw Hardware) (*internalLDOBackend, error) {
	if hw.OpenRegulator == nil || hw.OpenPinMux == nil {
		return nil, fmt.Errorf("%w: internal ldo needs a regulator and a pin mux", ErrInvalidConfig)
	}

	reg, err := hw.OpenRegulator()
	if err != nil {
		return nil, fmt.Errorf("%w: ldo is not valid: %w", ErrResourceUnavailable, err)
	}

	mux, err := hw.OpenPinMux()
	if err != nil {
		if cerr := reg.Close(); cerr != nil {
			debug.Error(fmt.Errorf("release regulator after pin mux failure: %w", cerr))
		}
		return nil, fmt.Errorf("%w: get pin error: %w", ErrResourceUnavailable, err)
	}

	return &internalLDOBackend{reg: reg, mux: mux}, nil
}

func (b *internalLDOBackend) Kind() Kind { return KindInternalLdo }

// Set runs the rail phase, then the pin mux phase. Each phase is skipped
// when its shadow already matches. A rail failure leaves everything as it
// was; a pin mux failure after the rail moved leaves Work Unknown.
func (b *internalLDOBackend) Set(st *PowerState, enable bool) error {
	want := StateOf(enable)

	if st.Power != want {
		on, qerr := b.reg.IsEnabled()
		if qerr != nil {
			debug.Warn("regulator state unreadable: %v", qerr)
		}

		var err error
		switch {
		case enable && (qerr != nil || !on):
			debug.Verbose("regulator_enable")
			err = b.reg.Enable()
		case !enable && (qerr != nil || on):
			debug.Verbose("regulator_disable")
			err = b.reg.Disable()
		}
		if err != nil {
			return fmt.Errorf("%w: set ldo failed: %w", ErrIO, err)
		}
		st.Power = want
	}

	if st.Uart != want {
		name := pinctrl.StateIdle
		if enable {
			name = pinctrl.StateDefault
		}
		debug.Verbose("set uart %s state", name)
		if err := b.mux.Select(name); err != nil {
			st.Work = Unknown
			return fmt.Errorf("%w: set uart %s state failed: %w", ErrIO, name, err)
		}
		st.Uart = want
	}

	return nil
}

// Query has no hardware read-back for this path.
func (b *internalLDOBackend) Query(st *PowerState) State {
	return st.Work
}

// Teardown releases the pin mux first, then the regulator.
func (b *internalLDOBackend) Teardown() error {
	return errors.Join(b.mux.Close(), b.reg.Close())
}
