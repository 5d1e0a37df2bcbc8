package power

import "strconv"

// State is a tri-state power value. Its numeric value is what the
// attribute reports.
type State int

const (
	Unknown State = -1
	Off     State = 0
	On      State = 1
)

// StateOf converts a requested boolean to a State.
func StateOf(enable bool) State {
	if enable {
		return On
	}
	return Off
}

// Equal reports whether s holds the boolean b. Unknown equals neither.
func (s State) Equal(b bool) bool {
	return s != Unknown && s == StateOf(b)
}

func (s State) String() string {
	switch s {
	case Unknown:
		return "unknown"
	case Off:
		return "off"
	case On:
		return "on"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// PowerState tracks the caller-visible work state and the two
// backend-private shadows used to skip redundant hardware writes.
type PowerState struct {
	Work  State // reported to callers, authoritative for no-op detection
	Power State // rail or line shadow
	Uart  State // UART pin mux shadow (InternalLdo only)
}

// NewPowerState returns a tracker with every field Unknown.
func NewPowerState() PowerState {
	return PowerState{Work: Unknown, Power: Unknown, Uart: Unknown}
}

// Noop reports whether a request for enable can be skipped.
func (p *PowerState) Noop(enable bool) bool {
	return p.Work.Equal(enable)
}
