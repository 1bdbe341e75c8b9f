package web

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"

	"github.com/evcraddock/safe-estate/internal/auth"
)

const (
	ceremonyCookie = "se_passkey"
	ceremonyTTL    = 5 * time.Minute
)

// passkeyHandlers holds WebAuthn-related HTTP handlers.
type passkeyHandlers struct {
	wan      *webauthn.WebAuthn
	passkeys *auth.PasskeyStore
	sessions *auth.SessionStore
	users    *auth.UserStore

	// In-flight ceremonies. Registrations are keyed by user ID, logins by
	// a random ceremony ID carried in a short-lived cookie.
	mu            sync.Mutex
	regSessions   map[int64]*webauthn.SessionData
	loginSessions map[string]*webauthn.SessionData
}

func newPasskeyHandlers(baseURL string, passkeys *auth.PasskeyStore, sessions *auth.SessionStore, users *auth.UserStore) (*passkeyHandlers, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	wan, err := webauthn.New(&webauthn.Config{
		RPDisplayName: "Safe Estate",
		RPID:          parsed.Hostname(),
		RPOrigins:     []string{strings.TrimSuffix(baseURL, "/")},
	})
	if err != nil {
		return nil, err
	}

	return &passkeyHandlers{
		wan:           wan,
		passkeys:      passkeys,
		sessions:      sessions,
		users:         users,
		regSessions:   make(map[int64]*webauthn.SessionData),
		loginSessions: make(map[string]*webauthn.SessionData),
	}, nil
}

// handleBeginRegistration starts passkey registration for the current user.
func (h *passkeyHandlers) handleBeginRegistration(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)

	creds, err := h.passkeys.WebAuthnCredentials(u.ID)
	if err != nil {
		fail(w, r, err)
		return
	}

	// Exclude existing credentials so the user doesn't re-register a key.
	excludeList := make([]protocol.CredentialDescriptor, len(creds))
	for i, c := range creds {
		excludeList[i] = c.Descriptor()
	}

	creation, session, err := h.wan.BeginRegistration(auth.NewPasskeyUser(u, creds),
		webauthn.WithExclusions(excludeList),
	)
	if err != nil {
		slog.Error("beginning registration", "err", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.mu.Lock()
	h.regSessions[u.ID] = session
	h.mu.Unlock()

	apiJSON(w, creation, http.StatusOK)
}

// handleFinishRegistration completes passkey registration.
func (h *passkeyHandlers) handleFinishRegistration(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)

	h.mu.Lock()
	session, ok := h.regSessions[u.ID]
	delete(h.regSessions, u.ID)
	h.mu.Unlock()

	if !ok {
		apiError(w, "no registration in progress", http.StatusBadRequest)
		return
	}

	creds, err := h.passkeys.WebAuthnCredentials(u.ID)
	if err != nil {
		fail(w, r, err)
		return
	}

	credential, err := h.wan.FinishRegistration(auth.NewPasskeyUser(u, creds), *session, r)
	if err != nil {
		slog.Warn("finishing registration", "err", err, "user_id", u.ID)
		apiError(w, "registration failed", http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		name = "Passkey"
	}
	if err := h.passkeys.Save(u.ID, name, credential); err != nil {
		fail(w, r, err)
		return
	}

	slog.Info("passkey registered", "user_id", u.ID)
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// handleBeginLogin starts a discoverable passkey login.
func (h *passkeyHandlers) handleBeginLogin(w http.ResponseWriter, r *http.Request) {
	assertion, session, err := h.wan.BeginDiscoverableLogin()
	if err != nil {
		slog.Error("beginning passkey login", "err", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}

	id := uuid.NewString()
	now := time.Now()
	h.mu.Lock()
	for k, sd := range h.loginSessions {
		if !sd.Expires.IsZero() && now.After(sd.Expires) {
			delete(h.loginSessions, k)
		}
	}
	h.loginSessions[id] = session
	h.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     ceremonyCookie,
		Value:    id,
		Path:     "/passkey/login",
		MaxAge:   int(ceremonyTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	apiJSON(w, assertion, http.StatusOK)
}

// handleFinishLogin completes a passkey login and starts a session.
func (h *passkeyHandlers) handleFinishLogin(w http.ResponseWriter, r *http.Request) {
	session := h.takeLoginSession(r)
	if session == nil {
		apiError(w, "no login in progress", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: ceremonyCookie, Path: "/passkey/login", MaxAge: -1})

	var loggedIn *auth.User
	handler := func(rawID, userHandle []byte) (webauthn.User, error) {
		id, err := auth.UserIDFromHandle(userHandle)
		if err != nil {
			return nil, protocol.ErrBadRequest.WithDetails("unknown user")
		}
		u, err := h.users.GetByID(id)
		if err != nil {
			return nil, protocol.ErrBadRequest.WithDetails("unknown user")
		}
		creds, err := h.passkeys.WebAuthnCredentials(u.ID)
		if err != nil {
			return nil, err
		}
		loggedIn = u
		return auth.NewPasskeyUser(u, creds), nil
	}

	if _, _, err := h.wan.FinishPasskeyLogin(handler, *session, r); err != nil {
		slog.Warn("finishing passkey login", "err", err)
		apiError(w, "login failed", http.StatusUnauthorized)
		return
	}
	if !loggedIn.IsActive {
		fail(w, r, auth.ErrInactive)
		return
	}

	if err := h.sessions.Create(w, loggedIn.ID); err != nil {
		fail(w, r, err)
		return
	}

	slog.Info("login success", "user_id", loggedIn.ID, "method", "passkey")
	apiJSON(w, loggedIn, http.StatusOK)
}

func (h *passkeyHandlers) takeLoginSession(r *http.Request) *webauthn.SessionData {
	c, err := r.Cookie(ceremonyCookie)
	if err != nil {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	session, ok := h.loginSessions[c.Value]
	delete(h.loginSessions, c.Value)
	if !ok || (!session.Expires.IsZero() && time.Now().After(session.Expires)) {
		return nil
	}
	return session
}
