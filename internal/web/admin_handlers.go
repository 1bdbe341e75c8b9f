package web

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/evcraddock/safe-estate/internal/admin"
	"github.com/evcraddock/safe-estate/internal/auth"
	"github.com/evcraddock/safe-estate/internal/kyc"
	"github.com/evcraddock/safe-estate/internal/page"
	"github.com/evcraddock/safe-estate/internal/property"
	"github.com/evcraddock/safe-estate/internal/storage"
	"github.com/evcraddock/safe-estate/internal/validate"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.admin.Dashboard()
	if err != nil {
		fail(w, r, err)
		return
	}
	apiJSON(w, d, http.StatusOK)
}

// handleAdminUsers lists users with role, status, verification and
// search filters.
func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := auth.UserFilter{
		Role:         strings.TrimSpace(q.Get("role")),
		Status:       strings.TrimSpace(q.Get("status")),
		Verification: strings.TrimSpace(q.Get("verification")),
		Search:       strings.TrimSpace(q.Get("search")),
	}

	users, p, err := s.users.List(f, q.Get("page"))
	if err != nil {
		fail(w, r, err)
		return
	}
	apiJSON(w, map[string]any{"users": users, "page": p}, http.StatusOK)
}

// handleToggleUser activates or deactivates an account.
func (s *Server) handleToggleUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	u, err := s.users.ToggleActive(id)
	if err != nil {
		fail(w, r, err)
		return
	}
	state := "activated"
	if !u.IsActive {
		state = "deactivated"
	}
	apiJSON(w, map[string]any{
		"user":    u,
		"message": fmt.Sprintf("User %s has been %s.", u.Username, state),
	}, http.StatusOK)
}

func (s *Server) handleAdminProperties(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	props, p, err := s.properties.Repository().AdminList(property.ParseAdminFilter(q), q.Get("page"))
	if err != nil {
		fail(w, r, err)
		return
	}
	apiJSON(w, listResponse{Properties: props, Page: p}, http.StatusOK)
}

type statusRequest struct {
	Status string `json:"status"`
}

// handlePropertyStatus forces the availability of any listing.
func (s *Server) handlePropertyStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !property.ValidStatus(req.Status) {
		errs := validate.Errors{}
		errs.Add("status", "Select a valid choice. \""+req.Status+"\" is not one of the available choices.")
		apiFields(w, errs)
		return
	}

	repo := s.properties.Repository()
	if err := repo.UpdateStatus(id, property.Status(req.Status)); err != nil {
		fail(w, r, err)
		return
	}
	p, err := repo.GetByID(id)
	if err != nil {
		fail(w, r, err)
		return
	}
	apiJSON(w, p, http.StatusOK)
}

type kycListResponse struct {
	KYC  []*kyc.KYC `json:"kyc"`
	Page page.Page  `json:"page"`
}

func (s *Server) handleAdminKYC(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := kyc.Filter{
		Status:     strings.TrimSpace(q.Get("status")),
		Completion: strings.TrimSpace(q.Get("completion")),
		Search:     strings.TrimSpace(q.Get("search")),
		DateFilter: strings.TrimSpace(q.Get("date_filter")),
	}

	records, p, err := s.kyc.Repository().List(f, q.Get("page"))
	if err != nil {
		fail(w, r, err)
		return
	}
	apiJSON(w, kycListResponse{KYC: records, Page: p}, http.StatusOK)
}

func (s *Server) handleAdminKYCDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	k, err := s.kyc.Repository().GetByID(id)
	if err != nil {
		fail(w, r, err)
		return
	}
	apiJSON(w, newKYCResponse(k), http.StatusOK)
}

type decisionRequest struct {
	Action  string `json:"action"`
	Remarks string `json:"remarks"`
}

// handleKYCDecision approves or rejects a KYC record.
func (s *Server) handleKYCDecision(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req decisionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	k, err := s.kyc.Decide(currentUser(r), id, req.Action, strings.TrimSpace(req.Remarks))
	if err != nil {
		fail(w, r, err)
		return
	}
	apiJSON(w, newKYCResponse(k), http.StatusOK)
}

// handleKYCDocument sends one stored KYC document as a download.
func (s *Server) handleKYCDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	field := r.PathValue("field")

	rel, err := s.kyc.DocumentPath(id, field)
	if err != nil {
		fail(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s%s"`, field, path.Ext(rel)))
	s.serveStored(w, r, rel)
}

type imagesResponse struct {
	Properties []*property.Property `json:"properties"`
	Page       page.Page            `json:"page"`
	Stats      property.ImageStats  `json:"stats"`
}

// handleAdminImages lists listings for the image tools with coverage stats.
func (s *Server) handleAdminImages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	repo := s.properties.Repository()

	props, p, err := repo.ImageList(property.ParseImageFilter(q), q.Get("page"))
	if err != nil {
		fail(w, r, err)
		return
	}
	stats, err := repo.ImageStats()
	if err != nil {
		fail(w, r, err)
		return
	}
	apiJSON(w, imagesResponse{Properties: props, Page: p, Stats: stats}, http.StatusOK)
}

// handleBulkImages runs a bulk image action. Uploads arrive as multipart
// forms and every other action as JSON.
func (s *Server) handleBulkImages(w http.ResponseWriter, r *http.Request) {
	var (
		res *admin.BulkResult
		err error
	)

	if isMultipart(r) {
		if !parseMultipart(w, r, maxBulkImageBody) {
			return
		}
		if r.FormValue("action") != admin.ActionUpload {
			apiJSON(w, admin.BulkResult{Message: "Invalid action."}, http.StatusOK)
			return
		}
		res, err = s.admin.Upload(admin.ParseIDs(r.FormValue("property_ids")), r.MultipartForm.File["images"])
	} else {
		var req admin.BulkRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		res, err = s.admin.Bulk(r.Context(), req)
	}

	if err != nil {
		fail(w, r, err)
		return
	}
	apiJSON(w, res, http.StatusOK)
}

// handleMedia serves stored listing images.
func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	rel := path.Join(storage.DirProperties, r.PathValue("path"))
	if !strings.HasPrefix(rel, storage.DirProperties+"/") {
		apiError(w, "not found", http.StatusNotFound)
		return
	}
	s.serveStored(w, r, rel)
}

func (s *Server) serveStored(w http.ResponseWriter, r *http.Request, rel string) {
	full, err := s.files.Path(rel)
	if err != nil {
		apiError(w, "not found", http.StatusNotFound)
		return
	}
	info, err := os.Stat(full)
	if errors.Is(err, os.ErrNotExist) || (err == nil && !info.Mode().IsRegular()) {
		apiError(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		fail(w, r, err)
		return
	}
	http.ServeFile(w, r, full)
}
