package power

import (
	"errors"

	"golang.org/x/sys/unix"
)

var (
	// ErrInvalidConfig reports a malformed or out-of-range configuration value.
	ErrInvalidConfig = errors.New("invalid power configuration")
	// ErrResourceUnavailable reports a hardware resource that could not be claimed.
	ErrResourceUnavailable = errors.New("power resource unavailable")
	// ErrIO reports a failed hardware operation.
	ErrIO = errors.New("power i/o error")
	// ErrUnsupportedConfig reports a backend whose capability is not built in.
	ErrUnsupportedConfig = errors.New("power backend not supported by this build")
	// ErrInvalidInput reports attribute text that is not a decimal integer.
	ErrInvalidInput = errors.New("invalid power_cfg value")
	// ErrClosed is returned by a Device after Close.
	ErrClosed = errors.New("power device closed")
)

// Errno maps an error to the negative errno value the attribute surface
// reports. A nil error maps to 0.
func Errno(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidConfig):
		return -int(unix.EINVAL)
	case errors.Is(err, ErrResourceUnavailable):
		return -int(unix.EBUSY)
	case errors.Is(err, ErrUnsupportedConfig):
		return -int(unix.EOPNOTSUPP)
	case errors.Is(err, ErrClosed):
		return -int(unix.ENODEV)
	default:
		return -int(unix.EIO)
	}
}
