package web

import (
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/evcraddock/safe-estate/internal/page"
	"github.com/evcraddock/safe-estate/internal/property"
	"github.com/evcraddock/safe-estate/internal/visit"
)

type listResponse struct {
	Properties []*property.Property `json:"properties"`
	Page       page.Page            `json:"page"`
}

// handleSearch lists available properties matching the query filters.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, errs := property.ParseFilter(q)
	if len(errs) > 0 {
		apiFields(w, errs)
		return
	}

	props, p, err := s.properties.Search(f, q.Get("page"))
	if err != nil {
		fail(w, r, err)
		return
	}
	apiJSON(w, listResponse{Properties: props, Page: p}, http.StatusOK)
}

type detailResponse struct {
	Property      *property.Property `json:"property"`
	VisitRequests []*visit.Request   `json:"visit_requests,omitempty"`
}

// handlePropertyDetail returns a listing with its images. The owning
// seller also gets the visit requests made for it.
func (s *Server) handlePropertyDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	p, err := s.properties.Detail(id)
	if err != nil {
		fail(w, r, err)
		return
	}
	requests, err := s.visits.ForProperty(currentUser(r), p)
	if err != nil {
		fail(w, r, err)
		return
	}
	apiJSON(w, detailResponse{Property: p, VisitRequests: requests}, http.StatusOK)
}

// readListing reads listing fields from a JSON or multipart body. The
// optional image is only present in multipart bodies.
func readListing(w http.ResponseWriter, r *http.Request) (property.Input, *multipart.FileHeader, bool) {
	if !isMultipart(r) {
		var in property.Input
		ok := decodeJSON(w, r, &in)
		return in, nil, ok
	}

	if !parseMultipart(w, r, maxListingBody) {
		return property.Input{}, nil, false
	}
	in, errs := property.FormInput(url.Values(r.MultipartForm.Value))
	if len(errs) > 0 {
		errs.Merge(in.Validate())
		apiFields(w, errs)
		return property.Input{}, nil, false
	}

	var image *multipart.FileHeader
	if fhs := r.MultipartForm.File["image"]; len(fhs) > 0 {
		image = fhs[0]
	}
	return in, image, true
}

// handleCreateProperty lists a new property for the current seller.
// Sellers without approved KYC are turned away before the body is read.
func (s *Server) handleCreateProperty(w http.ResponseWriter, r *http.Request) {
	if err := s.properties.CanList(currentUser(r)); err != nil {
		fail(w, r, err)
		return
	}
	in, image, ok := readListing(w, r)
	if !ok {
		return
	}

	p, err := s.properties.Create(currentUser(r), in, image)
	if err != nil {
		fail(w, r, err)
		return
	}
	apiJSON(w, p, http.StatusCreated)
}

// handleUpdateProperty replaces the fields of a listing the user owns.
func (s *Server) handleUpdateProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	in, _, ok := readListing(w, r)
	if !ok {
		return
	}

	p, err := s.properties.Update(currentUser(r), id, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	apiJSON(w, p, http.StatusOK)
}

// handleMyProperties lists the current seller's listings.
func (s *Server) handleMyProperties(w http.ResponseWriter, r *http.Request) {
	props, err := s.properties.MyProperties(currentUser(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	apiJSON(w, map[string]any{"properties": props}, http.StatusOK)
}

// handleReplaceImage makes the uploaded file the listing's only image.
func (s *Server) handleReplaceImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if !isMultipart(r) {
		apiError(w, "multipart body required", http.StatusBadRequest)
		return
	}
	if !parseMultipart(w, r, maxListingBody) {
		return
	}

	var image *multipart.FileHeader
	if fhs := r.MultipartForm.File["image"]; len(fhs) > 0 {
		image = fhs[0]
	}

	img, err := s.properties.ReplaceImage(currentUser(r), id, image, r.FormValue("caption"))
	if err != nil {
		fail(w, r, err)
		return
	}
	apiJSON(w, img, http.StatusCreated)
}

// handleDeleteImage removes one image of a listing the user owns.
func (s *Server) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	imageID, ok := pathID(w, r, "imageID")
	if !ok {
		return
	}

	if err := s.properties.DeleteImage(currentUser(r), id, imageID); err != nil {
		fail(w, r, err)
		return
	}
	apiJSON(w, map[string]string{"status": "deleted"}, http.StatusOK)
}

// handleRequestVisit asks the seller of a listing for a visit.
func (s *Server) handleRequestVisit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in visit.Input
	if !decodeJSON(w, r, &in) {
		return
	}

	v, err := s.visits.Request(currentUser(r), id, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	apiJSON(w, v, http.StatusCreated)
}

// handleRespondVisit records the seller's answer to a visit request.
func (s *Server) handleRespondVisit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var resp visit.Response
	if !decodeJSON(w, r, &resp) {
		return
	}

	v, err := s.visits.Respond(currentUser(r), id, resp)
	if err != nil {
		fail(w, r, err)
		return
	}
	apiJSON(w, v, http.StatusOK)
}

// handleMyVisits lists the current buyer's visit requests.
func (s *Server) handleMyVisits(w http.ResponseWriter, r *http.Request) {
	requests, err := s.visits.ForBuyer(currentUser(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	apiJSON(w, map[string]any{"visit_requests": requests}, http.StatusOK)
}
