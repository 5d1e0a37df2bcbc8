package power

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cjeanneret/irdapower/internal/debug"
)

// AttrName is the name of the read/write status attribute.
const AttrName = "power_cfg"

// Show formats the current status the way the attribute is read: the
// decimal work state (-1, 0 or 1) and a newline.
func (d *Device) Show() string {
	return fmt.Sprintf("%d\n", int(d.Status()))
}

// Store parses buf as a decimal integer, with at most one trailing newline,
// and applies it: zero switches off, anything else switches on. It returns
// the number of bytes consumed. Unparsable text is rejected before the
// device is touched.
func (d *Device) Store(buf string) (int, error) {
	enable, err := ParseRequest(buf)
	if err != nil {
		return 0, err
	}
	debug.Live("%s: %s <- %v", d.name, AttrName, enable)
	if err := d.Apply(enable); err != nil {
		return 0, err
	}
	debug.Info("%s: current state:%d", d.name, int(StateOf(enable)))
	return len(buf), nil
}

// ParseRequest converts attribute text to the requested boolean.
func ParseRequest(buf string) (bool, error) {
	s := strings.TrimSuffix(buf, "\n")
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return false, fmt.Errorf("%w: %q", ErrInvalidInput, buf)
	}
	return v != 0, nil
}
