package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/evcraddock/safe-estate/internal/auth"
	"github.com/evcraddock/safe-estate/internal/kyc"
	"github.com/evcraddock/safe-estate/internal/otp"
	"github.com/evcraddock/safe-estate/internal/property"
	"github.com/evcraddock/safe-estate/internal/validate"
	"github.com/evcraddock/safe-estate/internal/visit"
)

// kycPath is where sellers without approved KYC are sent.
const kycPath = "/api/kyc"

// apiError writes a JSON error response.
func apiError(w http.ResponseWriter, msg string, code int) {
	apiJSON(w, map[string]string{"error": msg}, code)
}

// apiJSON writes a JSON response with the given status code.
func apiJSON(w http.ResponseWriter, data any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding response", "err", err)
	}
}

// apiFields writes a 400 with per-field messages.
func apiFields(w http.ResponseWriter, errs validate.Errors) {
	apiJSON(w, map[string]any{"error": "validation failed", "fields": errs}, http.StatusBadRequest)
}

// fail maps a domain error onto an HTTP response. Unexpected errors are
// logged and reported as 500.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	if fe, ok := validate.As(err); ok {
		apiFields(w, fe)
		return
	}

	switch {
	case errors.Is(err, auth.ErrNotFound),
		errors.Is(err, property.ErrNotFound),
		errors.Is(err, property.ErrImageNotFound),
		errors.Is(err, property.ErrSearchNotFound),
		errors.Is(err, kyc.ErrNotFound),
		errors.Is(err, visit.ErrNotFound):
		apiError(w, err.Error(), http.StatusNotFound)

	case errors.Is(err, property.ErrKYCNotApproved):
		auth.Deny(w, http.StatusForbidden, err.Error(), kycPath)

	case errors.Is(err, property.ErrNotSeller),
		errors.Is(err, property.ErrNotOwner),
		errors.Is(err, kyc.ErrNotSeller),
		errors.Is(err, visit.ErrNotBuyer),
		errors.Is(err, visit.ErrOwnProperty),
		errors.Is(err, visit.ErrNotOwner):
		auth.Deny(w, http.StatusForbidden, err.Error(), auth.ListingPath)

	case errors.Is(err, visit.ErrDuplicatePending),
		errors.Is(err, visit.ErrAlreadyResponded),
		errors.Is(err, kyc.ErrAlreadyApproved):
		apiError(w, err.Error(), http.StatusConflict)

	case errors.Is(err, auth.ErrInvalidCredentials):
		apiError(w, err.Error(), http.StatusUnauthorized)

	case errors.Is(err, auth.ErrInactive):
		apiError(w, err.Error(), http.StatusForbidden)

	case errors.Is(err, otp.ErrNoOTP),
		errors.Is(err, otp.ErrExpired),
		errors.Is(err, otp.ErrInvalidCode),
		errors.Is(err, otp.ErrTooManyAttempts):
		apiError(w, err.Error(), http.StatusBadRequest)

	default:
		slog.Error("request failed", "err", err, "method", r.Method, "path", r.URL.Path)
		apiError(w, "internal error", http.StatusInternalServerError)
	}
}

// decodeJSON reads a JSON request body into v, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		apiError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}

// parseMultipart reads a multipart body of at most limit bytes, answering
// 413 when it is larger and 400 on any other failure.
func parseMultipart(w http.ResponseWriter, r *http.Request, limit int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apiError(w, fmt.Sprintf("request body exceeds %d MB", limit>>20), http.StatusRequestEntityTooLarge)
			return false
		}
		apiError(w, "invalid multipart body", http.StatusBadRequest)
		return false
	}
	return true
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// pathID parses a numeric path value, answering 404 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		apiError(w, "not found", http.StatusNotFound)
		return 0, false
	}
	return id, true
}

// currentUser returns the logged-in user. The route middleware guarantees
// one is present.
func currentUser(r *http.Request) *auth.User {
	return auth.UserFromContext(r.Context())
}
