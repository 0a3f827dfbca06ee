package http

import (
	"errors"
	"net/http"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
)

// statusFor maps an action error onto an HTTP status and a response body.
func statusFor(err error) (int, map[string]any) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, map[string]any{"error": "validation failed", "fields": verr.Errors}
	case errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest, map[string]any{"error": err.Error()}
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusBadRequest, map[string]any{"error": err.Error()}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, map[string]any{"error": "not found"}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, map[string]any{"error": "forbidden"}
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, map[string]any{"error": "unauthorized"}
	case errors.Is(err, domain.ErrReindexRunning):
		return http.StatusConflict, map[string]any{"error": err.Error()}
	}
	return http.StatusInternalServerError, map[string]any{"error": "internal error"}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
	}
	writeJSON(w, status, body)
}
