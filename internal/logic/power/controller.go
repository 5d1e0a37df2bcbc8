package power

import (
	"github.com/cjeanneret/irdapower/internal/debug"
)

// Apply requests the supply on or off. The whole request (no-op check,
// backend call, tracker update) runs under the device lock. A request that
// matches the current work state does not reach the hardware.
//
// On failure the error from the backend is returned as is and Work keeps
// its previous value, unless the backend marked it Unknown.
func (d *Device) Apply(enable bool) error {
	d.mu.Lock()
	ev, err := d.apply(enable)
	if d.observer == nil {
		d.mu.Unlock()
		return err
	}
	// Hand over to the observer lock so events keep state order.
	d.obsMu.Lock()
	d.mu.Unlock()
	d.observer(ev)
	d.obsMu.Unlock()
	return err
}

func (d *Device) apply(enable bool) (Event, error) {
	ev := Event{Device: d.name, Kind: d.backend.Kind(), Requested: StateOf(enable)}
	if d.closed {
		ev.Work = d.state.Work
		ev.Err = ErrClosed.Error()
		return ev, ErrClosed
	}

	if d.state.Noop(enable) {
		debug.Verbose("%s: already %s, nothing to do", d.name, d.state.Work)
		ev.Work = d.state.Work
		ev.Elided = true
		return ev, nil
	}

	from := d.state.Work
	if err := d.backend.Set(&d.state, enable); err != nil {
		debug.Error(err)
		ev.Work = d.state.Work
		ev.Err = err.Error()
		return ev, err
	}

	d.state.Work = StateOf(enable)
	debug.Power(d.backend.Kind().String(), from, d.state.Work)
	ev.Work = d.state.Work
	return ev, nil
}

// Status queries the backend, stores the result as the work state and
// returns it. For KindGpio this is the live line level; the other kinds
// report their tracked state.
func (d *Device) Status() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return d.state.Work
	}
	d.state.Work = d.backend.Query(&d.state)
	debug.Live("%s: true status:%d", d.name, int(d.state.Work))
	return d.state.Work
}
