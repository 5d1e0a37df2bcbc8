package power

import "github.com/cjeanneret/irdapower/internal/debug"

// otherBackend is used when another subsystem switches the supply. It only
// keeps the books.
type otherBackend struct{}

func (otherBackend) Kind() Kind { return KindOther }

func (otherBackend) Set(st *PowerState, enable bool) error {
	st.Power = StateOf(enable)
	debug.Verbose("just change the state. enable:%v", enable)
	return nil
}

func (otherBackend) Query(st *PowerState) State {
	return st.Work
}

func (otherBackend) Teardown() error {
	return nil
}
