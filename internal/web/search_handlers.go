package web

import (
	"net/http"

	"github.com/evcraddock/safe-estate/internal/page"
	"github.com/evcraddock/safe-estate/internal/property"
)

func (s *Server) handleSearches(w http.ResponseWriter, r *http.Request) {
	searches, err := s.properties.Searches(currentUser(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	apiJSON(w, map[string]any{"searches": searches}, http.StatusOK)
}

func (s *Server) handleSaveSearch(w http.ResponseWriter, r *http.Request) {
	var in property.SearchInput
	if !decodeJSON(w, r, &in) {
		return
	}

	saved, err := s.properties.SaveSearch(currentUser(r), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	apiJSON(w, saved, http.StatusCreated)
}

func (s *Server) handleDeleteSearch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.properties.DeleteSearch(currentUser(r), id); err != nil {
		fail(w, r, err)
		return
	}
	apiJSON(w, map[string]string{"status": "deleted"}, http.StatusOK)
}

type searchResultsResponse struct {
	Search     *property.SavedSearch `json:"search"`
	Properties []*property.Property  `json:"properties"`
	Page       page.Page             `json:"page"`
}

// handleSearchResults runs a saved search.
func (s *Server) handleSearchResults(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	saved, props, p, err := s.properties.RunSearch(currentUser(r), id, r.URL.Query().Get("page"))
	if err != nil {
		fail(w, r, err)
		return
	}
	apiJSON(w, searchResultsResponse{Search: saved, Properties: props, Page: p}, http.StatusOK)
}
