package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cardline/platform/internal/domain"
)

// RespondJSON writes a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// RespondError writes a JSON error response, detecting domain.AppError
// for status codes.
func RespondError(w http.ResponseWriter, err error) {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		RespondJSON(w, appErr.Status, map[string]any{
			"success": false,
			"error":   map[string]string{"code": appErr.Code, "message": appErr.Message},
		})
		return
	}
	RespondJSON(w, http.StatusInternalServerError, map[string]any{
		"success": false,
		"error":   map[string]string{"code": "INTERNAL_ERROR", "message": "internal server error"},
	})
}
