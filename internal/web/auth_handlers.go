package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/evcraddock/safe-estate/internal/auth"
	"github.com/evcraddock/safe-estate/internal/kyc"
	"github.com/evcraddock/safe-estate/internal/otp"
	"github.com/evcraddock/safe-estate/internal/validate"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// handleRegister creates a buyer or seller account.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg auth.Registration
	if !decodeJSON(w, r, &reg) {
		return
	}

	u, err := s.users.Register(reg)
	if err != nil {
		fail(w, r, err)
		return
	}
	slog.Info("user registered", "user_id", u.ID, "role", u.Role)
	apiJSON(w, u, http.StatusCreated)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleLogin checks credentials and starts a session.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := s.users.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			slog.Warn("login failed", "username", req.Username)
		}
		fail(w, r, err)
		return
	}

	if err := s.sessions.Create(w, u.ID); err != nil {
		fail(w, r, err)
		return
	}
	slog.Info("login success", "user_id", u.ID, "method", "password")
	apiJSON(w, u, http.StatusOK)
}

// handleLogout destroys the session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Destroy(w, r); err != nil {
		slog.Error("destroying session", "err", err)
	}
	apiJSON(w, map[string]string{"status": "logged out"}, http.StatusOK)
}

type profileResponse struct {
	User *auth.User `json:"user"`
	KYC  *kyc.KYC   `json:"kyc,omitempty"`
}

// handleProfile returns the current user and, for sellers, their KYC.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	resp := profileResponse{User: u}

	if u.Role == auth.RoleSeller {
		k, err := s.kyc.Repository().GetBySeller(u.ID)
		if err != nil && !errors.Is(err, kyc.ErrNotFound) {
			fail(w, r, err)
			return
		}
		resp.KYC = k
	}
	apiJSON(w, resp, http.StatusOK)
}

// handleUpdateProfile edits the phone and address.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var upd auth.ProfileUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}

	u, err := s.users.UpdateProfile(currentUser(r).ID, upd)
	if err != nil {
		fail(w, r, err)
		return
	}
	apiJSON(w, u, http.StatusOK)
}

// handleOTPGenerate issues a fresh code. The code goes out of band; the
// response only carries its expiry.
func (s *Server) handleOTPGenerate(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	expiresAt, err := s.otp.Issue(otp.Recipient{ID: u.ID, Email: u.Email})
	if err != nil {
		fail(w, r, err)
		return
	}
	apiJSON(w, map[string]any{
		"message":    "A verification code has been sent.",
		"expires_at": expiresAt,
	}, http.StatusOK)
}

type verifyRequest struct {
	Code string `json:"code"`
}

// handleOTPVerify checks a submitted code.
func (s *Server) handleOTPVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	code := strings.TrimSpace(req.Code)
	if len(code) != otp.CodeLength {
		errs := validate.Errors{}
		errs.Add("code", "Enter the 6-digit code.")
		apiFields(w, errs)
		return
	}

	if err := s.otp.Verify(currentUser(r).ID, code); err != nil {
		fail(w, r, err)
		return
	}
	apiJSON(w, map[string]any{"verified": true}, http.StatusOK)
}
