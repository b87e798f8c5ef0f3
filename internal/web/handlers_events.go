package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/ImageFinder/internal/core"
	"github.com/JonMunkholm/ImageFinder/internal/logging"
)

const sseKeepAlive = 25 * time.Second

// handleEvents streams a session's item transitions via Server-Sent Events.
//
// The stream opens with a "snapshot" event holding the full state so a
// client that connects mid-window cannot miss a transition. Each change
// follows as an "item" event; "closed" is sent when the session ends. The
// stream also ends when the server shuts down.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	events, unsubscribe, err := s.service.Subscribe(id)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	defer unsubscribe()

	snap, err := s.service.State(id)
	if err != nil && !errors.Is(err, core.ErrColumnNotChosen) {
		respondError(w, r, err, statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	logger := logging.WithFields(r.Context(), "session_id", id)

	eventID := 0
	send := func(event string, v any) bool {
		data, err := json.Marshal(v)
		if err != nil {
			logger.Error("encode event", "event", event, "error", err)
			return false
		}
		eventID++
		if err := writeEvent(w, eventID, event, data); err != nil {
			return false
		}
		return rc.Flush() == nil
	}

	if !send("snapshot", snap) {
		return
	}

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				send("closed", map[string]string{"session_id": id})
				return
			}
			if !send("item", ev) {
				return
			}
		case <-keepAlive.C:
			if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil || rc.Flush() != nil {
				return
			}
		case <-r.Context().Done():
			logger.Debug("event stream closed by client")
			return
		case <-s.closing:
			logger.Debug("event stream ended by shutdown")
			return
		}
	}
}

func writeEvent(w io.Writer, id int, event string, data []byte) error {
	_, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, event, data)
	return err
}
