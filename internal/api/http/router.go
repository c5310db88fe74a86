// Package http exposes the session control and transcript API.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"prosody-caption-service/internal/calibrate"
	"prosody-caption-service/internal/caption/classify"
	"prosody-caption-service/internal/session"
)

// NewRouter constructs the HTTP router for the service. The render hub is
// optional; when nil the websocket endpoint is not mounted.
func NewRouter(sess *session.Session, renderHandler http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/transcript", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, sess.Snapshot())
		})
		r.Delete("/transcript", func(w http.ResponseWriter, _ *http.Request) {
			sess.ResetTranscript()
			writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
		})

		r.Post("/calibration/start", func(w http.ResponseWriter, _ *http.Request) {
			sess.StartVoiceCalibration()
			writeJSON(w, http.StatusOK, map[string]string{"status": "calibrating"})
		})
		r.Post("/calibration/finish", func(w http.ResponseWriter, _ *http.Request) {
			res, err := sess.FinishVoiceCalibration()
			switch {
			case errors.Is(err, calibrate.ErrNotActive):
				writeError(w, http.StatusConflict, err)
			case errors.Is(err, calibrate.ErrInsufficientSamples):
				writeError(w, http.StatusUnprocessableEntity, err)
			case err != nil:
				writeError(w, http.StatusInternalServerError, err)
			default:
				writeJSON(w, http.StatusOK, res)
			}
		})

		r.Post("/sensitivity", func(w http.ResponseWriter, req *http.Request) {
			var t classify.Thresholds
			if err := json.NewDecoder(req.Body).Decode(&t); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			if err := sess.SetThresholds(t); err != nil {
				writeError(w, http.StatusUnprocessableEntity, err)
				return
			}
			writeJSON(w, http.StatusOK, t)
		})
	})

	if renderHandler != nil {
		r.Handle("/ws/captions", renderHandler)
	}

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
