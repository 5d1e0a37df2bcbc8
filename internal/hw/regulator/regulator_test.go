package regulator

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cjeanneret/irdapower/internal/hw/claim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStateFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSysfs_EnableDisableRoundTrip(t *testing.T) {
	path := newStateFile(t, "disabled\n")
	reg, err := OpenSysfs("ldo_power", path)
	require.NoError(t, err)
	defer reg.Close()

	on, err := reg.IsEnabled()
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, reg.Enable())
	on, err = reg.IsEnabled()
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, reg.Disable())
	on, err = reg.IsEnabled()
	require.NoError(t, err)
	assert.False(t, on)
}

func TestSysfs_ExclusiveClaim(t *testing.T) {
	path := newStateFile(t, "disabled\n")
	reg, err := OpenSysfs("ldo_power", path)
	require.NoError(t, err)

	_, err = OpenSysfs("ldo_power", path)
	assert.True(t, errors.Is(err, claim.ErrBusy), "error = %v", err)

	require.NoError(t, reg.Close())
	reg2, err := OpenSysfs("ldo_power", path)
	require.NoError(t, err)
	require.NoError(t, reg2.Close())
}

func TestSysfs_MissingPath(t *testing.T) {
	_, err := OpenSysfs("ldo_power", "")
	assert.Error(t, err)

	_, err = OpenSysfs("ldo_power", filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestSysfs_UnexpectedState(t *testing.T) {
	path := newStateFile(t, "bogus\n")
	reg, err := OpenSysfs("ldo_power", path)
	require.NoError(t, err)
	defer reg.Close()

	_, err = reg.IsEnabled()
	assert.True(t, errors.Is(err, ErrState), "error = %v", err)
}

func TestSysfs_ClosedHandle(t *testing.T) {
	path := newStateFile(t, "enabled\n")
	reg, err := OpenSysfs("ldo_power", path)
	require.NoError(t, err)
	require.NoError(t, reg.Close())

	assert.Error(t, reg.Enable())
	_, err = reg.IsEnabled()
	assert.Error(t, err)
}

func TestMock_CountsAndErrors(t *testing.T) {
	m := &Mock{}
	require.NoError(t, m.Enable())
	on, _ := m.IsEnabled()
	assert.True(t, on)
	assert.Equal(t, 1, m.Enables)

	m.DisableErr = errors.New("i2c timeout")
	assert.Error(t, m.Disable())
	on, _ = m.IsEnabled()
	assert.True(t, on, "failed disable must not change state")

	require.NoError(t, m.Close())
	assert.True(t, m.Closed())
}

