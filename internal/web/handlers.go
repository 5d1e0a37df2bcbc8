package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cjeanneret/irdapower/internal/debug"
	"github.com/cjeanneret/irdapower/internal/logic/power"
)

// maxAttrBytes caps a power_cfg write body, as a sysfs store would be capped
// at a page.
const maxAttrBytes = 4096

// heartbeatInterval is the SSE keep-alive period.
var heartbeatInterval = 30 * time.Second

// Device is the attribute surface the handlers drive.
type Device interface {
	Show() string
	Store(buf string) (int, error)
	Status() power.State
	Snapshot() power.Snapshot
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Device      Device
	Broadcaster *StatusBroadcaster
}

// NewHandlers creates handlers with the given dependencies.
func NewHandlers(dev Device, broadcaster *StatusBroadcaster) *Handlers {
	return &Handlers{
		Device:      dev,
		Broadcaster: broadcaster,
	}
}

// HandlePowerCfgGet handles GET /power_cfg: the decimal work state and a newline.
func (h *Handlers) HandlePowerCfgGet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, h.Device.Show())
}

// HandlePowerCfgSet handles PUT and POST /power_cfg. The body is the
// attribute text ("0", "1\n", ...). On success it answers with the number of
// bytes consumed; on failure with the negative errno.
func (h *Handlers) HandlePowerCfgSet(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAttrBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "read request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	n, err := h.Device.Store(string(body))
	if err != nil {
		debug.Verbose("web: %s %q failed: %v", power.AttrName, body, err)
		w.WriteHeader(StatusCode(err))
		fmt.Fprintf(w, "%d\n", power.Errno(err))
		return
	}
	fmt.Fprintf(w, "%d\n", n)
}

// HandleStatus handles GET /status: a fresh status read, as JSON.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.Device.Status()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.Device.Snapshot())
}

// StatusCode maps a power error to an HTTP status.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, power.ErrInvalidInput), errors.Is(err, power.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, power.ErrResourceUnavailable):
		return http.StatusConflict
	case errors.Is(err, power.ErrUnsupportedConfig):
		return http.StatusNotImplemented
	case errors.Is(err, power.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Initial comment and the current tracker state
	w.Write([]byte(": connected\n\n"))
	if snap, err := json.Marshal(h.Device.Snapshot()); err == nil {
		w.Write([]byte("event: snapshot\ndata: " + string(snap) + "\n\n"))
	}
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
