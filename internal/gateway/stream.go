package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// streamPingInterval is how long the activity stream stays silent before a
// keepalive frame is written.
const streamPingInterval = 30 * time.Second

type streamFrame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// handleActivityStream serves the activity feed as server-sent events. Each
// bus event becomes one data frame; idle connections get a ping every 30s.
func (s *Server) handleActivityStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := s.cfg.Bus.Subscribe("activity.")
	defer s.cfg.Bus.Unsubscribe(sub)

	ping := time.NewTimer(streamPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case event, open := <-sub.Ch():
			if !open {
				return
			}
			if err := writeSSE(w, streamFrame{Type: eventType(event.Topic), Payload: event.Payload}); err != nil {
				return
			}
			flusher.Flush()
			resetTimer(ping, streamPingInterval)

		case <-ping.C:
			if err := writeSSE(w, streamFrame{Type: "ping"}); err != nil {
				return
			}
			flusher.Flush()
			ping.Reset(streamPingInterval)
		}
	}
}

func writeSSE(w http.ResponseWriter, frame streamFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

// eventType strips the "activity." prefix so clients see short frame types.
func eventType(topic string) string {
	const prefix = "activity."
	if len(topic) > len(prefix) && topic[:len(prefix)] == prefix {
		return topic[len(prefix):]
	}
	return topic
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
