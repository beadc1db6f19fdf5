package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/opus-domini/alertd/internal/events"
)

const sseHeartbeat = 15 * time.Second

func (h *Handler) streamEvents(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		h.writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "event streaming is disabled", nil)
		return
	}

	rc := http.NewResponseController(w)
	// Streams outlive the server write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	ch, unsubscribe := h.events.Subscribe(32, eventTypes(r)...)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeSSE(w, events.NewEvent(events.TypeReady, nil)); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		h.logger.Warn("event stream flush unsupported", "err", err)
		return
	}

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-h.done:
			return
		case <-heartbeat.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := writeSSE(w, evt); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

// eventTypes reads the repeatable, comma-separated type filter.
func eventTypes(r *http.Request) []string {
	var types []string
	for _, raw := range r.URL.Query()["type"] {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, t)
			}
		}
	}
	return types
}

func writeSSE(w io.Writer, evt events.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if evt.EventID > 0 {
		if _, err := fmt.Fprintf(w, "id: %d\n", evt.EventID); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data)
	return err
}
