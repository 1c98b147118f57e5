package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"piggyflow/internal/core"
	"piggyflow/internal/log"
	"piggyflow/internal/services"
	"piggyflow/internal/storage"
)

// maxBodyBytes caps request bodies. Scanned bill text is the largest
// legitimate payload and stays far below this.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps service errors onto status codes: caller-fixable input is
// a 400, a missing record is a 404, everything else is a 500 with the detail
// kept in the log rather than the response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case isValidationErr(err):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "record not found"})
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func isValidationErr(err error) bool {
	if services.IsValidation(err) {
		return true
	}
	for _, sentinel := range []error{
		core.ErrInvalidAmount,
		core.ErrEmptyField,
		core.ErrEmptyName,
		core.ErrEmptyEmoji,
		core.ErrZeroDate,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// decodeBody parses a JSON request body into dst, rejecting unknown fields
// and trailing garbage.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("parse request body: %w", err)
	}
	if dec.More() {
		return errors.New("request body has trailing data")
	}
	_, _ = io.Copy(io.Discard, r.Body)
	return nil
}
