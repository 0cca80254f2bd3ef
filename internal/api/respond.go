package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/calscan/calscan/internal/database"
	"github.com/calscan/calscan/internal/narrative"
	"github.com/calscan/calscan/internal/orats"
	"github.com/calscan/calscan/internal/scanner"
)

const maxBodyBytes = 1 << 20

func setCORS(w http.ResponseWriter, methods string) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// statusFor maps domain errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, scanner.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, scanner.ErrUnknownExpiry),
		errors.Is(err, scanner.ErrNoStrike),
		errors.Is(err, orats.ErrNotFound),
		errors.Is(err, database.ErrScanNotFound):
		return http.StatusNotFound
	case errors.Is(err, narrative.ErrNoCandidates):
		return http.StatusConflict
	case errors.Is(err, narrative.ErrDisabled),
		errors.Is(err, orats.ErrNoAPIKey):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, orats.ErrUnauthorized),
		errors.Is(err, orats.ErrMalformed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err and writes it with the mapped status. Server errors
// get a generic message.
func writeError(w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error(msg, "error", err, "status", status)
	} else {
		logger.Warn(msg, "error", err, "status", status)
	}

	text := err.Error()
	if status == http.StatusInternalServerError {
		text = "Internal server error"
	}
	http.Error(w, text, status)
}

func queryInt(r *http.Request, key string, def, max int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	if max > 0 && n > max {
		return max
	}
	return n
}
