package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"clipmark/internal/gateway"
	"clipmark/internal/logging"
	"clipmark/internal/services"
)

const (
	maxRecordBytes  = 1 << 20
	maxSummaryBytes = 16 << 20
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, gateway.ErrorResponse{Error: message})
}

// writeServiceError maps err to a status code. Server-side failures are
// logged and answered with a generic message.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := services.HTTPStatus(err)
	logger := logging.WithContext(r.Context(), s.logger)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logger, "request failed", "request_failed",
			slog.String("path", r.URL.Path),
			logging.Error(err),
		)
		s.writeError(w, status, http.StatusText(status))
		return
	}
	logger.Debug("request rejected",
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		logging.Error(err),
	)
	s.writeError(w, status, err.Error())
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	body := http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return services.Wrap(services.ErrValidation, "server", "decode body",
				fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit), nil)
		}
		return services.Wrap(services.ErrValidation, "server", "decode body", "invalid JSON", err)
	}
	return nil
}
