// Package audit records every power write request as newline-delimited JSON.
package audit

import (
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/cjeanneret/irdapower/internal/logic/power"
)

// ErrNilWriter is returned by Logger.Log when the logger has no writer.
var ErrNilWriter = errors.New("audit logger: writer is nil")

// Entry is one audit line.
type Entry struct {
	Timestamp time.Time   `json:"timestamp"`
	Device    string      `json:"device"`
	Kind      power.Kind  `json:"kind"`
	Requested power.State `json:"requested"`
	Work      power.State `json:"work"`
	Elided    bool        `json:"elided,omitempty"`
	Result    string      `json:"result"`
}

// Logger writes entries to an io.Writer. It is safe for concurrent use.
type Logger struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// NewLogger returns a Logger writing to w, or nil if w is nil.
func NewLogger(w io.Writer) *Logger {
	if w == nil {
		return nil
	}
	return &Logger{w: w, now: time.Now}
}

// Log writes entry as a single JSON line.
func (l *Logger) Log(entry Entry) error {
	if l == nil || l.w == nil {
		return ErrNilWriter
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	l.mu.Lock()
	_, err = l.w.Write(data)
	l.mu.Unlock()
	return err
}

// Record converts a device event into an entry and logs it. A nil logger
// drops the event.
func (l *Logger) Record(ev power.Event) error {
	if l == nil {
		return nil
	}
	result := "ok"
	if ev.Err != "" {
		result = "error: " + ev.Err
	}
	return l.Log(Entry{
		Timestamp: l.now(),
		Device:    ev.Device,
		Kind:      ev.Kind,
		Requested: ev.Requested,
		Work:      ev.Work,
		Elided:    ev.Elided,
		Result:    result,
	})
}
