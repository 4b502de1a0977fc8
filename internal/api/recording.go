package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sahilr2050/step-by-step-guide-generator/internal/capture"
)

func stateLabel(s capture.State) string {
	switch s {
	case capture.StateArmed:
		return "armed"
	case capture.StateCapturing:
		return "capturing"
	default:
		return "idle"
	}
}

func (s *Server) recordingStatus(w http.ResponseWriter, r *http.Request) {
	if s.recorder == nil {
		s.respondError(w, http.StatusServiceUnavailable, "no browser attached")
		return
	}
	s.respond(w, http.StatusOK, map[string]any{
		"state":   stateLabel(s.recorder.State()),
		"guideId": s.recorder.GuideID(),
		"steps":   s.recorder.StepCount(),
	})
}

func (s *Server) startRecording(w http.ResponseWriter, r *http.Request) {
	if s.recorder == nil {
		s.respondError(w, http.StatusServiceUnavailable, "no browser attached")
		return
	}
	var body struct {
		GuideID string `json:"guideId"`
	}
	if err := decodeBody(r, &body); err != nil || body.GuideID == "" {
		s.respondError(w, http.StatusBadRequest, "a guideId is required")
		return
	}

	err := s.recorder.Start(r.Context(), body.GuideID)
	switch {
	case errors.Is(err, capture.ErrGuideNotFound):
		s.respondError(w, http.StatusNotFound, "guide not found")
	case errors.Is(err, capture.ErrAlreadyRecording):
		s.respondError(w, http.StatusConflict, "a recording is already active")
	case err != nil:
		s.respondError(w, http.StatusInternalServerError, err.Error())
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) stopRecording(w http.ResponseWriter, r *http.Request) {
	if s.recorder == nil {
		s.respondError(w, http.StatusServiceUnavailable, "no browser attached")
		return
	}
	s.recorder.Stop()
	w.WriteHeader(http.StatusNoContent)
}

// recordingEvents streams step counts as server-sent events until the
// client goes away.
func (s *Server) recordingEvents(w http.ResponseWriter, r *http.Request) {
	if s.recorder == nil {
		s.respondError(w, http.StatusServiceUnavailable, "no browser attached")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, cancel := s.recorder.Events().Subscribe()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: {\"guideId\":%q,\"steps\":%d}\n\n", ev.GuideID, ev.Count)
			flusher.Flush()
		}
	}
}
