//go:build !extpmic

package pmic

import "github.com/cjeanneret/irdapower/internal/debug"

// Available reports whether the side channel is compiled in.
const Available = false

// Client is a placeholder when the side channel is not built in.
type Client struct{}

// NewClient returns a client whose requests always fail.
func NewClient(string) *Client {
	return &Client{}
}

// Config always returns ErrUnsupported.
func (c *Client) Config(channel, microvolts int, enable bool) error {
	debug.Warn("external pmic not built in (ldo%d, enable=%v)", channel, enable)
	return ErrUnsupported
}
