//go:build extpmic

package pmic

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cjeanneret/irdapower/internal/debug"
)

// Available reports whether the side channel is compiled in.
const Available = true

// Client drives the PMIC sysfs node, one directory per LDO channel:
// <root>/ldo<N>/microvolts and <root>/ldo<N>/enable.
type Client struct {
	root string
}

// NewClient returns a client rooted at the PMIC sysfs directory.
func NewClient(root string) *Client {
	return &Client{root: root}
}

// Config programs the channel voltage, then switches it.
func (c *Client) Config(channel, microvolts int, enable bool) error {
	dir := filepath.Join(c.root, "ldo"+strconv.Itoa(channel))
	debug.HW("config", dir, fmt.Sprintf("%duV enable=%v", microvolts, enable))

	if enable {
		if err := os.WriteFile(filepath.Join(dir, "microvolts"), []byte(strconv.Itoa(microvolts)+"\n"), 0o644); err != nil {
			return fmt.Errorf("pmic ldo%d: set voltage: %w", channel, err)
		}
	}
	v := "0\n"
	if enable {
		v = "1\n"
	}
	if err := os.WriteFile(filepath.Join(dir, "enable"), []byte(v), 0o644); err != nil {
		return fmt.Errorf("pmic ldo%d: set enable: %w", channel, err)
	}
	return nil
}
