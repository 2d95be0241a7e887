package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"coremd.cloud/internal/auth"
	"coremd.cloud/internal/course"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError emits the uniform failure payload: {message} plus the request
// id when one is attached.
func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"message": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleAuthError is the single translator for auth workflow failures. Typed
// errors carry their own status; anything else is an internal error and must
// not leak detail.
func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	if typed, ok := auth.AsError(err); ok {
		writeError(w, r, typed.Status, typed.Message)
		return
	}
	if errors.Is(err, auth.ErrInvalidInput) {
		writeError(w, r, http.StatusBadRequest, "Invalid request.")
		return
	}
	writeError(w, r, http.StatusInternalServerError, "Internal server error.")
}

func handleCourseError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, course.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, course.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "Course not found")
	case errors.Is(err, course.ErrModuleNotFound):
		writeError(w, r, http.StatusNotFound, "Module not found")
	default:
		writeError(w, r, http.StatusInternalServerError, "Internal server error.")
	}
}
