package power

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend records Set calls and checks that they never overlap.
type fakeBackend struct {
	kind  Kind
	delay time.Duration

	mu       sync.Mutex
	sets     []bool
	setErr   error
	live     State
	tornDown int

	inFlight atomic.Int32
	overlap  atomic.Bool
}

func (f *fakeBackend) Kind() Kind { return f.kind }

func (f *fakeBackend) Set(st *PowerState, enable bool) error {
	if f.inFlight.Add(1) > 1 {
		f.overlap.Store(true)
	}
	defer f.inFlight.Add(-1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets = append(f.sets, enable)
	if f.setErr != nil {
		return f.setErr
	}
	st.Power = StateOf(enable)
	f.live = StateOf(enable)
	return nil
}

func (f *fakeBackend) Query(st *PowerState) State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.live
}

func (f *fakeBackend) Teardown() error {
	f.mu.Lock()
	f.tornDown++
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) setCalls() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.sets...)
}

func newFake() *fakeBackend {
	return &fakeBackend{kind: KindOther, live: Unknown}
}

func TestApply_ElidesRepeatedRequest(t *testing.T) {
	fb := newFake()
	d := newDevice(fb)

	require.NoError(t, d.Apply(true))
	require.NoError(t, d.Apply(true))

	assert.Equal(t, []bool{true}, fb.setCalls())
	assert.Equal(t, On, d.Snapshot().Work)
}

func TestApply_FromUnknownAlwaysAttempted(t *testing.T) {
	for _, enable := range []bool{true, false} {
		fb := newFake()
		d := newDevice(fb)
		require.NoError(t, d.Apply(enable))
		assert.Equal(t, []bool{enable}, fb.setCalls(), "first Apply(%v) must reach the backend", enable)
	}
}

func TestApply_FailureKeepsWorkState(t *testing.T) {
	fb := newFake()
	d := newDevice(fb)
	require.NoError(t, d.Apply(true))

	fb.setErr = errors.New("bus error")
	err := d.Apply(false)
	require.Error(t, err)
	assert.Same(t, fb.setErr, err, "backend error must propagate unchanged")
	assert.Equal(t, On, d.Snapshot().Work)

	// The failed request is not remembered: the next one is attempted again.
	fb.setErr = nil
	require.NoError(t, d.Apply(false))
	assert.Equal(t, []bool{true, false, false}, fb.setCalls())
}

func TestApply_DoesNotOverwriteUnknownMarker(t *testing.T) {
	fb := newFake()
	d := newDevice(fb)
	require.NoError(t, d.Apply(false))

	marking := &markingBackend{fakeBackend: fb}
	d.backend = marking
	err := d.Apply(true)
	require.ErrorIs(t, err, ErrIO)
	assert.Equal(t, Unknown, d.Snapshot().Work)
}

// markingBackend fails like a two-phase backend whose second phase broke.
type markingBackend struct {
	*fakeBackend
}

func (m *markingBackend) Set(st *PowerState, enable bool) error {
	st.Power = StateOf(enable)
	st.Work = Unknown
	return ErrIO
}

func TestApply_ConcurrentWritersSerialized(t *testing.T) {
	fb := newFake()
	fb.delay = 200 * time.Microsecond
	d := newDevice(fb)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(enable bool) {
			defer wg.Done()
			_ = d.Apply(enable)
		}(i%2 == 0)
	}
	wg.Wait()

	assert.False(t, fb.overlap.Load(), "backend Set calls interleaved")
	calls := fb.setCalls()
	require.NotEmpty(t, calls)
	assert.Equal(t, StateOf(calls[len(calls)-1]), d.Snapshot().Work,
		"final work state must match the last executed critical section")
	for i := 1; i < len(calls); i++ {
		assert.NotEqual(t, calls[i-1], calls[i], "consecutive identical requests must be elided")
	}
}

func TestStatus_StoresQueriedValue(t *testing.T) {
	fb := newFake()
	d := newDevice(fb)
	require.NoError(t, d.Apply(true))

	fb.mu.Lock()
	fb.live = Off
	fb.mu.Unlock()

	assert.Equal(t, Off, d.Status())
	assert.Equal(t, Off, d.Snapshot().Work)

	// The refreshed work state now drives no-op detection.
	require.NoError(t, d.Apply(true))
	assert.Equal(t, []bool{true, true}, fb.setCalls())
}

func TestObserver_ReceivesEvents(t *testing.T) {
	fb := newFake()
	var events []Event
	d := newDevice(fb, WithName("irda0"), WithObserver(func(ev Event) {
		events = append(events, ev)
	}))

	require.NoError(t, d.Apply(true))
	require.NoError(t, d.Apply(true))
	fb.setErr = errors.New("nope")
	require.Error(t, d.Apply(false))

	require.Len(t, events, 3)
	assert.Equal(t, Event{Device: "irda0", Kind: KindOther, Requested: On, Work: On}, events[0])
	assert.True(t, events[1].Elided)
	assert.Equal(t, "nope", events[2].Err)
	assert.Equal(t, On, events[2].Work)
}

func TestObserver_EventsFollowStateOrder(t *testing.T) {
	fb := newFake()
	fb.delay = 100 * time.Microsecond

	var (
		mu   sync.Mutex
		seen []bool
	)
	var d *Device
	d = newDevice(fb, WithObserver(func(ev Event) {
		if ev.Elided || ev.Err != "" {
			return
		}
		// Let a later writer overtake if delivery were unordered.
		time.Sleep(50 * time.Microsecond)
		_ = d.Snapshot()
		mu.Lock()
		seen = append(seen, ev.Work == On)
		mu.Unlock()
	}))

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(enable bool) {
			defer wg.Done()
			_ = d.Apply(enable)
		}(i%2 == 0)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, fb.setCalls(), seen, "observer order must match the order of hardware writes")
}

func TestClose_TearsDownOnce(t *testing.T) {
	fb := newFake()
	d := newDevice(fb)

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.Equal(t, 1, fb.tornDown)

	assert.ErrorIs(t, d.Apply(true), ErrClosed)
	assert.Empty(t, fb.setCalls())
	assert.Equal(t, Unknown, d.Status())
}

func TestDevice_Defaults(t *testing.T) {
	d := newDevice(newFake())
	assert.Equal(t, DefaultName, d.Name())
	assert.Equal(t, KindOther, d.Kind())
	assert.Equal(t, Snapshot{Device: DefaultName, Kind: KindOther, Work: Unknown, Power: Unknown, Uart: Unknown}, d.Snapshot())
}
