package web

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/evcraddock/safe-estate/internal/auth"
	"github.com/evcraddock/safe-estate/internal/property"
)

func TestSavedSearches(t *testing.T) {
	env := newTestEnv(t)
	seller, _ := env.approvedSeller(t, "vendor")
	_, buyer := env.user(t, "shopper", auth.RoleBuyer)
	_, other := env.user(t, "browser", auth.RoleBuyer)
	match := env.listing(t, seller.ID, func(in *property.Input) { in.Price = 2500000 })
	env.listing(t, seller.ID, func(in *property.Input) { in.Price = 12000000 })

	wantStatus(t, env.do(t, "GET", "/api/searches", nil, nil), http.StatusUnauthorized)

	w := env.do(t, "POST", "/api/searches", buyer, map[string]any{"name": "", "state": "atlantis"})
	wantStatus(t, w, http.StatusBadRequest)
	b := errorOf(t, w)
	for _, f := range []string{"name", "state"} {
		if len(b.Fields[f]) == 0 {
			t.Errorf("fields = %v, want an error on %s", b.Fields, f)
		}
	}

	w = env.do(t, "POST", "/api/searches", buyer, map[string]any{"name": "Cheap Mumbai", "city": "Mumbai", "max_price": 3000000})
	wantStatus(t, w, http.StatusCreated)
	var saved property.SavedSearch
	decode(t, w, &saved)

	w = env.do(t, "GET", "/api/searches", buyer, nil)
	wantStatus(t, w, http.StatusOK)
	var list struct {
		Searches []*property.SavedSearch `json:"searches"`
	}
	decode(t, w, &list)
	if len(list.Searches) != 1 || list.Searches[0].Name != "Cheap Mumbai" {
		t.Errorf("searches = %+v", list.Searches)
	}

	results := fmt.Sprintf("/api/searches/%d/results", saved.ID)
	w = env.do(t, "GET", results, buyer, nil)
	wantStatus(t, w, http.StatusOK)
	var run searchResultsResponse
	decode(t, w, &run)
	if len(run.Properties) != 1 || run.Properties[0].ID != match.ID {
		t.Errorf("results = %+v", run.Properties)
	}

	// Saved searches are private to their owner.
	wantStatus(t, env.do(t, "GET", results, other, nil), http.StatusNotFound)
	wantStatus(t, env.do(t, "DELETE", fmt.Sprintf("/api/searches/%d", saved.ID), other, nil), http.StatusNotFound)

	wantStatus(t, env.do(t, "DELETE", fmt.Sprintf("/api/searches/%d", saved.ID), buyer, nil), http.StatusOK)
	wantStatus(t, env.do(t, "GET", results, buyer, nil), http.StatusNotFound)
}
