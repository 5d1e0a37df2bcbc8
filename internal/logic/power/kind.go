package power

import (
	"fmt"
	"strings"
)

// Kind selects the power path of the transceiver. It is fixed for the
// lifetime of a Device.
type Kind int

const (
	KindGpio Kind = iota
	KindInternalLdo
	KindExternalLdo
	KindOther

	// kindUndefined is the first value past the known kinds.
	kindUndefined
)

var kindNames = [...]string{
	KindGpio:        "gpio",
	KindInternalLdo: "internal_ldo",
	KindExternalLdo: "external_ldo",
	KindOther:       "other",
}

func (k Kind) String() string {
	if k < 0 || k >= kindUndefined {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText renders the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts a kind name or its number.
func (k *Kind) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	for i, name := range kindNames {
		if s == name {
			*k = Kind(i)
			return nil
		}
	}
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err == nil && n >= 0 && Kind(n) < kindUndefined {
		*k = Kind(n)
		return nil
	}
	return fmt.Errorf("%w: power type %q", ErrInvalidConfig, s)
}

// ParseKind maps the configured power type to a Kind. A missing value
// selects KindGpio, the layout of older boards. An unrecognized value also
// falls back to KindGpio; the returned error then wraps ErrInvalidConfig
// and is meant to be logged, not to abort construction.
func ParseKind(powerType *int) (Kind, error) {
	if powerType == nil {
		return KindGpio, nil
	}
	v := *powerType
	if v < 0 || Kind(v) >= kindUndefined {
		return KindGpio, fmt.Errorf("%w: power type %d out of range, using %s", ErrInvalidConfig, v, KindGpio)
	}
	return Kind(v), nil
}
