package claim

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_ExclusiveWithinProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state")
	require.NoError(t, os.WriteFile(path, []byte("disabled\n"), 0o644))

	first, err := Open(path, os.O_RDWR)
	require.NoError(t, err)

	_, err = Open(path, os.O_RDWR)
	assert.True(t, errors.Is(err, ErrBusy), "second claim error = %v", err)

	require.NoError(t, first.Release())

	again, err := Open(path, os.O_RDWR)
	require.NoError(t, err, "claim after release")
	require.NoError(t, again.Release())
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"), os.O_RDWR)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrBusy))
}

func TestOpen_CreatesLockFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uart.lock")
	l, err := Open(path, os.O_RDWR|os.O_CREATE)
	require.NoError(t, err)
	defer l.Release()

	_, err = os.Stat(path)
	assert.NoError(t, err)
	assert.Equal(t, path, l.Path())
}

func TestRelease_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uart.lock")
	l, err := Open(path, os.O_RDWR|os.O_CREATE)
	require.NoError(t, err)

	require.NoError(t, l.Release())
	assert.NoError(t, l.Release())
	assert.Nil(t, l.File())
}
