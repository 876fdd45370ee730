package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/application"
)

var errMissingBearer = errors.New("missing bearer token")

// Handler is the HTTP adapter entrypoint. It depends on the application
// service alone, keeping transport concerns out of the core.
type Handler struct {
	service *application.Service
	ready   func() error
}

func NewHandler(service *application.Service, ready func() error) *Handler {
	return &Handler{service: service, ready: ready}
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(); err != nil {
			writeError(w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), requestIDFromContext(r.Context()))
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}
