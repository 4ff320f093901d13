package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/goliatone/go-errors"

	"github.com/erazemk/nalog/internal/workflow"
)

type errorBody struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, errorBody{Error: message})
}

// writeError maps workflow errors to their HTTP status and writes the message,
// text code and details. Anything else is logged and reported as a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ge *apperrors.Error
	if errors.As(err, &ge) {
		jsonResponse(w, statusFor(ge), errorBody{
			Error:   ge.Message,
			Code:    ge.TextCode,
			Details: ge.Metadata,
		})
		return
	}

	slog.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", RequestID(r.Context()),
		"error", err,
	)
	jsonError(w, http.StatusInternalServerError, "internal error")
}

func statusFor(ge *apperrors.Error) int {
	if ge.TextCode == workflow.CodeInvalidInput {
		return http.StatusBadRequest
	}
	switch ge.Category {
	case apperrors.CategoryNotFound:
		return http.StatusNotFound
	case apperrors.CategoryAuthz:
		return http.StatusForbidden
	case apperrors.CategoryConflict:
		return http.StatusConflict
	case apperrors.CategoryBadInput:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// pathID parses a positive integer path parameter.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryID parses an optional positive integer query parameter. Missing values
// return 0.
func queryID(r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
