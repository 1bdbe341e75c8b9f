// Package web provides the safe-estate JSON HTTP API.
package web

import (
	"database/sql"
	"fmt"
	"net/http"

	"github.com/evcraddock/safe-estate/internal/admin"
	"github.com/evcraddock/safe-estate/internal/auth"
	"github.com/evcraddock/safe-estate/internal/config"
	"github.com/evcraddock/safe-estate/internal/imagefetch"
	"github.com/evcraddock/safe-estate/internal/kyc"
	"github.com/evcraddock/safe-estate/internal/logging"
	"github.com/evcraddock/safe-estate/internal/notify"
	"github.com/evcraddock/safe-estate/internal/otp"
	"github.com/evcraddock/safe-estate/internal/property"
	"github.com/evcraddock/safe-estate/internal/scheduler"
	"github.com/evcraddock/safe-estate/internal/storage"
	"github.com/evcraddock/safe-estate/internal/visit"
)

// Maximum request body sizes. Multipart limits leave room for form
// fields and part headers on top of the largest accepted files.
const (
	maxJSONBody      = 1 << 20
	multipartSlack   = 1 << 20
	maxListingBody   = property.MaxImageSize + multipartSlack
	maxBulkImageBody = 100 << 20
)

var maxKYCBody = int64(len(kyc.Documents))*kyc.MaxDocumentSize + multipartSlack

// Server is the API HTTP server.
type Server struct {
	users      *auth.UserStore
	sessions   *auth.SessionStore
	otpStore   *otp.Store
	otp        *otp.Service
	kyc        *kyc.Service
	properties *property.Service
	visits     *visit.Service
	admin      *admin.Service
	files      *storage.Local
	passkeys   *passkeyHandlers

	handler http.Handler
}

type options struct {
	sender  notify.Sender
	fetcher imagefetch.Fetcher
}

// Option customizes a Server.
type Option func(*options)

// WithSender delivers one-time codes through sender.
func WithSender(sender notify.Sender) Option {
	return func(o *options) { o.sender = sender }
}

// WithFetcher downloads stock images through f.
func WithFetcher(f imagefetch.Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// NewServer creates the API server.
func NewServer(db *sql.DB, cfg *config.Config, opts ...Option) (*Server, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sender == nil {
		o.sender = Sender(cfg)
	}
	if o.fetcher == nil {
		o.fetcher = imagefetch.NewClient(cfg.Images.Timeout)
	}

	files, err := storage.NewLocal(cfg.Media.Root)
	if err != nil {
		return nil, err
	}

	users := auth.NewUserStore(db)
	sessions := auth.NewSessionStore(db, cfg.Server.SecureCookies)
	kycRepo := kyc.NewRepository(db)
	propRepo := property.NewRepository(db)
	visitRepo := visit.NewRepository(db)
	otpStore := otp.NewStore(db)

	passkeys, err := newPasskeyHandlers(cfg.Server.BaseURL, auth.NewPasskeyStore(db), sessions, users)
	if err != nil {
		return nil, fmt.Errorf("configuring passkeys: %w", err)
	}

	s := &Server{
		users:      users,
		sessions:   sessions,
		otpStore:   otpStore,
		otp:        otp.NewService(otpStore, o.sender),
		kyc:        kyc.NewService(kycRepo, files),
		properties: property.NewService(propRepo, kycRepo, files),
		visits:     visit.NewService(visitRepo, propRepo),
		admin:      admin.NewService(users, propRepo, kycRepo, visitRepo, files, o.fetcher),
		files:      files,
		passkeys:   passkeys,
	}

	mux := http.NewServeMux()
	s.routes(mux)
	s.handler = logging.RequestLogger(auth.LoadUser(sessions, users, mux))
	return s, nil
}

// Sender returns the OTP delivery channel configured by cfg: SMTP when it
// is set up, the log otherwise.
func Sender(cfg *config.Config) notify.Sender {
	if cfg.DevMode || !cfg.SMTP.Enabled() {
		return notify.LogSender{}
	}
	return notify.NewSMTPSender(notify.SMTPConfig{
		Host: cfg.SMTP.Host,
		Port: cfg.SMTP.Port,
		User: cfg.SMTP.User,
		Pass: cfg.SMTP.Pass,
		From: cfg.SMTP.From,
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Admin returns the admin service, for offline image tools.
func (s *Server) Admin() *admin.Service { return s.admin }

// CleanupJobs returns the periodic maintenance jobs for the scheduler.
func (s *Server) CleanupJobs() []scheduler.Job {
	return []scheduler.Job{
		{Name: "expired sessions", Run: s.sessions.Cleanup},
		{Name: "expired otps", Run: s.otpStore.Cleanup},
	}
}

type middleware func(http.Handler) http.Handler

var (
	loggedIn    middleware = auth.RequireLogin
	sellersOnly            = auth.RequireRole(auth.RoleSeller)
	buyersOnly             = auth.RequireRole(auth.RoleBuyer)
	adminsOnly             = auth.RequireRole(auth.RoleAdmin)
)

func handle(mux *http.ServeMux, pattern string, h http.HandlerFunc, mw ...middleware) {
	var handler http.Handler = h
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	mux.Handle(pattern, handler)
}

func (s *Server) routes(mux *http.ServeMux) {
	handle(mux, "GET /health", s.handleHealth)

	handle(mux, "POST /api/register", s.handleRegister)
	handle(mux, "POST /api/login", s.handleLogin)
	handle(mux, "POST /api/logout", s.handleLogout)
	handle(mux, "GET /api/profile", s.handleProfile, loggedIn)
	handle(mux, "PATCH /api/profile", s.handleUpdateProfile, loggedIn)
	handle(mux, "POST /api/otp/generate", s.handleOTPGenerate, loggedIn)
	handle(mux, "POST /api/otp/verify", s.handleOTPVerify, loggedIn)

	handle(mux, "GET /api/kyc", s.handleKYC, sellersOnly)
	handle(mux, "POST /api/kyc", s.handleKYCSubmit, sellersOnly)

	handle(mux, "GET /api/properties", s.handleSearch)
	handle(mux, "POST /api/properties", s.handleCreateProperty, sellersOnly)
	handle(mux, "GET /api/properties/{id}", s.handlePropertyDetail)
	handle(mux, "PUT /api/properties/{id}", s.handleUpdateProperty, loggedIn)
	handle(mux, "POST /api/properties/{id}/images", s.handleReplaceImage, loggedIn)
	handle(mux, "DELETE /api/properties/{id}/images/{imageID}", s.handleDeleteImage, loggedIn)
	handle(mux, "GET /api/my/properties", s.handleMyProperties, sellersOnly)

	handle(mux, "POST /api/properties/{id}/visits", s.handleRequestVisit, buyersOnly)
	handle(mux, "POST /api/visits/{id}/respond", s.handleRespondVisit, sellersOnly)
	handle(mux, "GET /api/my/visits", s.handleMyVisits, buyersOnly)

	handle(mux, "GET /api/searches", s.handleSearches, loggedIn)
	handle(mux, "POST /api/searches", s.handleSaveSearch, loggedIn)
	handle(mux, "DELETE /api/searches/{id}", s.handleDeleteSearch, loggedIn)
	handle(mux, "GET /api/searches/{id}/results", s.handleSearchResults, loggedIn)

	handle(mux, "GET /api/admin/dashboard", s.handleDashboard, adminsOnly)
	handle(mux, "GET /api/admin/users", s.handleAdminUsers, adminsOnly)
	handle(mux, "POST /api/admin/users/{id}/toggle", s.handleToggleUser, adminsOnly)
	handle(mux, "GET /api/admin/properties", s.handleAdminProperties, adminsOnly)
	handle(mux, "POST /api/admin/properties/{id}/status", s.handlePropertyStatus, adminsOnly)
	handle(mux, "GET /api/admin/kyc", s.handleAdminKYC, adminsOnly)
	handle(mux, "GET /api/admin/kyc/{id}", s.handleAdminKYCDetail, adminsOnly)
	handle(mux, "POST /api/admin/kyc/{id}", s.handleKYCDecision, adminsOnly)
	handle(mux, "GET /api/admin/kyc/{id}/documents/{field}", s.handleKYCDocument, adminsOnly)
	handle(mux, "GET /api/admin/images", s.handleAdminImages, adminsOnly)
	handle(mux, "POST /api/admin/images/bulk", s.handleBulkImages, adminsOnly)

	handle(mux, "POST /passkey/register/begin", s.passkeys.handleBeginRegistration, loggedIn)
	handle(mux, "POST /passkey/register/finish", s.passkeys.handleFinishRegistration, loggedIn)
	handle(mux, "POST /passkey/login/begin", s.passkeys.handleBeginLogin)
	handle(mux, "POST /passkey/login/finish", s.passkeys.handleFinishLogin)

	handle(mux, "GET /media/properties/{path...}", s.handleMedia)
}
