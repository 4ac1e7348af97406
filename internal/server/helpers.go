package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"tubearchivist/internal/errs"
	"tubearchivist/internal/utils/logging"
)

// respondJSON writes v with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.E("api: encoding response: %v", err)
	}
}

// respondErr maps component errors onto status codes.
func respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, errs.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		logging.E("api: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// decodeBody parses a JSON request body into out.
func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}
