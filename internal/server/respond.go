package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"shiptrack/internal/api"
	"shiptrack/internal/logging"
	"shiptrack/internal/services"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps an error class to its HTTP status. Persistence failures
// are logged and reported without internal detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := services.HTTPStatus(err)
	message := err.Error()
	logger := logging.WithContext(r.Context(), s.logger)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logger, "request failed", "request_failed",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check database connectivity and server logs"),
		)
		message = "internal error"
	} else {
		logger.Info("request rejected",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
			logging.String("reason", message),
		)
	}
	writeJSON(w, status, api.ErrorResponse{Error: message, Kind: services.Kind(err)})
}

// readBody returns the raw request body, bounded to maxBodyBytes.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, services.Wrap(services.ErrValidation, "server", "read body",
				fmt.Sprintf("request body exceeds %d bytes", maxBodyBytes), nil)
		}
		return nil, services.Wrap(services.ErrValidation, "server", "read body", err.Error(), nil)
	}
	return body, nil
}

// decodeBody parses a JSON request envelope, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, target any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return services.Wrap(services.ErrValidation, "server", "decode body", "request body is required", nil)
		}
		return services.Wrap(services.ErrValidation, "server", "decode body", err.Error(), nil)
	}
	return nil
}
