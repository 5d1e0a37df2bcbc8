package power

import (
	"errors"
	"fmt"

	"github.com/cjeanneret/irdapower/internal/debug"
	"github.com/cjeanneret/irdapower/internal/hw/pmic"
)

// externalLDOBackend forwards requests to the PMIC owned by the camera
// subsystem. There is no local handle and no read-back.
type externalLDOBackend struct {
	pmic pmic.Configurer
}

func newExternalLDOBackend(hw Hardware) *externalLDOBackend {
	debug.Info("no need to init, external ldo is controlled directly")
	return &externalLDOBackend{pmic: hw.PMIC}
}

func (b *externalLDOBackend) Kind() Kind { return KindExternalLdo }

func (b *externalLDOBackend) Set(_ *PowerState, enable bool) error {
	if b.pmic == nil {
		return fmt.Errorf("%w: no external pmic", ErrUnsupportedConfig)
	}
	err := b.pmic.Config(pmic.Channel, pmic.Microvolts, enable)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pmic.ErrUnsupported):
		return fmt.Errorf("%w: %w", ErrUnsupportedConfig, err)
	default:
		return fmt.Errorf("%w: pmic ldo%d: %w", ErrIO, pmic.Channel, err)
	}
}

// Query returns the last known work state; the PMIC owner is authoritative.
func (b *externalLDOBackend) Query(st *PowerState) State {
	debug.Verbose("no need get power status, external ldo")
	return st.Work
}

func (b *externalLDOBackend) Teardown() error {
	return nil
}
