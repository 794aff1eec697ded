package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/familycare/visit-service/internal/core/domain"
)

// envelope is the body of every visit and alert response.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Error   string `json:"error,omitempty"`

	Field          string `json:"field,omitempty"`
	DistanceMeters *int   `json:"distanceMeters,omitempty"`
	RadiusMeters   *int   `json:"radiusMeters,omitempty"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func writeData(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	writeJSON(w, logger, status, envelope{Success: true, Data: data})
}

func writeList(w http.ResponseWriter, logger *slog.Logger, data any, count int) {
	writeJSON(w, logger, http.StatusOK, envelope{Success: true, Data: data, Count: &count})
}

// writeError maps core errors to HTTP statuses. Anything that is not a
// domain.Error is logged and reported as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, logger, http.StatusInternalServerError, envelope{Error: "internal server error"})
		return
	}

	body := envelope{Error: de.Message, Field: de.Field}
	status := http.StatusBadRequest
	switch de.Kind {
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindForbidden:
		status = http.StatusForbidden
	case domain.KindTooFar:
		body.DistanceMeters = &de.DistanceMeters
		body.RadiusMeters = &de.RadiusMeters
	}
	writeJSON(w, logger, status, body)
}

func badRequest(w http.ResponseWriter, logger *slog.Logger, msg string) {
	writeJSON(w, logger, http.StatusBadRequest, envelope{Error: msg})
}

// decodeJSON reads the request body into v. An empty body leaves v zeroed.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
