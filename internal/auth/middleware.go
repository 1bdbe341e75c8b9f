package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// Redirect hints returned with authorization failures.
const (
	LoginPath   = "/api/login"
	ListingPath = "/api/properties"
)

// LoadUser is middleware that resolves the session cookie to an active
// user and stores it in the request context. Requests without a valid
// session pass through anonymously.
func LoadUser(sessions *SessionStore, users *UserStore, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := sessions.Validate(r)
		if err != nil {
			if !errors.Is(err, ErrNoSession) {
				slog.Error("validating session", "err", err)
			}
			next.ServeHTTP(w, r)
			return
		}

		u, err := users.GetByID(userID)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				slog.Error("loading session user", "err", err, "user_id", userID)
			}
			next.ServeHTTP(w, r)
			return
		}
		if !u.IsActive {
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// RequireLogin rejects anonymous requests with 401.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			Deny(w, http.StatusUnauthorized, "login required", LoginPath)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole returns middleware that admits only logged-in users holding
// one of roles. Anonymous requests get 401, other roles 403.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	msg := "access denied: " + strings.Join(names, " or ") + " role required"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := UserFromContext(r.Context())
			if u == nil {
				Deny(w, http.StatusUnauthorized, "login required", LoginPath)
				return
			}
			if !hasRole(u, roles) {
				Deny(w, http.StatusForbidden, msg, ListingPath)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hasRole(u *User, roles []Role) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// Deny writes a JSON authorization failure with a redirect hint.
func Deny(w http.ResponseWriter, status int, msg, redirect string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"error":    msg,
		"redirect": redirect,
	}); err != nil {
		slog.Error("encoding denial", "err", err)
	}
}
