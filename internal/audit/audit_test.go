package audit

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cjeanneret/irdapower/internal/logic/power"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_NilWriter(t *testing.T) {
	l := NewLogger(nil)
	assert.Nil(t, l)
	assert.ErrorIs(t, l.Log(Entry{}), ErrNilWriter)
	assert.NoError(t, l.Record(power.Event{}), "nil logger drops events")
}

func TestRecord_WritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	l.now = func() time.Time { return time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC) }

	require.NoError(t, l.Record(power.Event{
		Device: "irda_maxim", Kind: power.KindInternalLdo,
		Requested: power.On, Work: power.Unknown, Err: "power i/o error: set uart default state failed",
	}))
	require.NoError(t, l.Record(power.Event{
		Device: "irda_maxim", Kind: power.KindInternalLdo,
		Requested: power.Off, Work: power.Off,
	}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "2026-03-01T08:00:00Z", first["timestamp"])
	assert.Equal(t, "internal_ldo", first["kind"])
	assert.Equal(t, float64(1), first["requested"])
	assert.Equal(t, float64(-1), first["work"])
	assert.True(t, strings.HasPrefix(first["result"].(string), "error: "))
	assert.NotContains(t, first, "elided")

	var second Entry
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "ok", second.Result)
	assert.Equal(t, power.Off, second.Work)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestLog_WriterError(t *testing.T) {
	l := NewLogger(failingWriter{})
	assert.EqualError(t, l.Log(Entry{}), "disk full")
}

func TestLog_ConcurrentLinesStayWhole(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(on bool) {
			defer wg.Done()
			_ = l.Record(power.Event{Device: "d", Kind: power.KindOther, Requested: power.StateOf(on), Work: power.StateOf(on)})
		}(i%2 == 0)
	}
	wg.Wait()

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var e Entry
		assert.NoError(t, json.Unmarshal([]byte(line), &e), "line %q", line)
	}
}
