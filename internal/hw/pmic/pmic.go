// Package pmic reaches the camera subsystem's external PMIC, which owns the
// rail feeding the IrDA transceiver on some board revisions.
//
// Support is compiled in with the extpmic build tag. Without it every
// request fails with ErrUnsupported.
package pmic

import "errors"

// The transceiver sits on LDO channel 1 at 1.8 V.
const (
	Channel    = 1
	Microvolts = 1800000
)

// ErrUnsupported is returned when the PMIC side channel is not built in.
var ErrUnsupported = errors.New("pmic: external pmic support not built in")

// Configurer sets an external LDO channel.
type Configurer interface {
	Config(channel, microvolts int, enable bool) error
}
