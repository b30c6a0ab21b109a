package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/api-marketplace-gateway/internal/httputil"
	"github.com/api-marketplace-gateway/internal/middleware"
	"github.com/api-marketplace-gateway/internal/model"
)

const maxJSONBody = 1 << 20

// ErrorResponse is the standard JSON error response body.
type ErrorResponse = httputil.ErrorResponse

// Pagination is returned next to every list.
type Pagination = httputil.Pagination

// RespondJSON writes a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	httputil.RespondJSON(w, status, data)
}

// RespondError writes a JSON error response.
func RespondError(w http.ResponseWriter, status int, code, message string) {
	httputil.RespondError(w, status, code, message)
}

// Caller returns the authenticated caller, writing a 401 when there is none.
func Caller(w http.ResponseWriter, r *http.Request) (model.Caller, bool) {
	caller, ok := middleware.CallerFrom(r.Context())
	if !ok {
		RespondError(w, http.StatusUnauthorized, "unauthorized", "Token is missing.")
	}
	return caller, ok
}

// IDParam parses a positive integer URL parameter. Malformed ids are
// reported as not found, the same as unknown ones.
func IDParam(w http.ResponseWriter, r *http.Request, name, what string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		RespondError(w, http.StatusNotFound, "not_found", "No "+what+" found with id: "+raw)
		return 0, false
	}
	return id, true
}

// DecodeJSON decodes a bounded request body into v, writing a 400 on failure.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(v); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return false
	}
	return true
}
