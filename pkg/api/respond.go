package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"nodechat/pkg/chat"
)

// JSONError writes a JSON error response with the given status code.
func JSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// JSONWrite writes v as JSON with the given status code.
func JSONWrite(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	return json.NewEncoder(w).Encode(v)
}

// writeErr maps core error kinds onto HTTP statuses. The core itself has no
// knowledge of this mapping.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrInvalidArgument), errors.Is(err, chat.ErrInvalidReply):
		JSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chat.ErrNotFound):
		JSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chat.ErrPermissionDenied):
		deniedTotal.Inc()
		JSONError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, chat.ErrRateLimited):
		JSONError(w, http.StatusTooManyRequests, err.Error())
	default:
		JSONError(w, http.StatusInternalServerError, err.Error())
	}
}
