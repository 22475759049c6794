package progress

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// KeepAliveInterval is how often an idle stream gets a comment line
var KeepAliveInterval = 15 * time.Second

// WriteEvent writes ev in server-sent-events framing
func WriteEvent(w io.Writer, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}

// ServeSSE streams the events of downloadID until the download finishes or
// the client goes away. Unknown downloads get a 404.
func ServeSSE(w http.ResponseWriter, r *http.Request, hub *Hub, downloadID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	events, cancel, ok := hub.Subscribe(downloadID)
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Download not found"}`))
		return
	}
	defer cancel()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(KeepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, open := <-events:
			if !open {
				return
			}
			if err := WriteEvent(w, ev); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
