// Package admin implements the administrator dashboard and the bulk
// listing image tools.
package admin

import (
	"fmt"

	"github.com/evcraddock/safe-estate/internal/auth"
	"github.com/evcraddock/safe-estate/internal/imagefetch"
	"github.com/evcraddock/safe-estate/internal/kyc"
	"github.com/evcraddock/safe-estate/internal/property"
	"github.com/evcraddock/safe-estate/internal/visit"
)

// RecentLimit is how many recent rows of each kind the dashboard shows.
const RecentLimit = 5

// Service aggregates data across the domain stores.
type Service struct {
	users  *auth.UserStore
	props  *property.Repository
	kyc    *kyc.Repository
	visits *visit.Repository
	files  property.Files
	fetch  imagefetch.Fetcher
}

// NewService creates an admin service.
func NewService(
	users *auth.UserStore,
	props *property.Repository,
	kycRepo *kyc.Repository,
	visits *visit.Repository,
	files property.Files,
	fetch imagefetch.Fetcher,
) *Service {
	return &Service{users: users, props: props, kyc: kycRepo, visits: visits, files: files, fetch: fetch}
}

// Dashboard is the admin overview.
type Dashboard struct {
	TotalUsers         int                     `json:"total_users"`
	UsersByRole        map[auth.Role]int       `json:"users_by_role"`
	TotalProperties    int                     `json:"total_properties"`
	PropertiesByStatus map[property.Status]int `json:"properties_by_status"`
	KYCByStatus        map[kyc.Status]int      `json:"kyc_by_status"`
	VisitsByStatus     map[visit.Status]int    `json:"visits_by_status"`
	RecentUsers        []*auth.User            `json:"recent_users"`
	RecentProperties   []*property.Property    `json:"recent_properties"`
	RecentKYC          []*kyc.KYC              `json:"recent_kyc"`
}

// Dashboard collects counts and the newest users, listings and KYC records.
func (s *Service) Dashboard() (*Dashboard, error) {
	var d Dashboard
	var err error

	if d.UsersByRole, err = s.users.CountByRole(); err != nil {
		return nil, fmt.Errorf("dashboard users: %w", err)
	}
	for _, n := range d.UsersByRole {
		d.TotalUsers += n
	}
	if d.PropertiesByStatus, err = s.props.CountByStatus(); err != nil {
		return nil, fmt.Errorf("dashboard properties: %w", err)
	}
	for _, n := range d.PropertiesByStatus {
		d.TotalProperties += n
	}
	if d.KYCByStatus, err = s.kyc.CountByStatus(); err != nil {
		return nil, fmt.Errorf("dashboard kyc: %w", err)
	}
	if d.VisitsByStatus, err = s.visits.CountByStatus(); err != nil {
		return nil, fmt.Errorf("dashboard visits: %w", err)
	}

	if d.RecentUsers, err = s.users.Recent(RecentLimit); err != nil {
		return nil, fmt.Errorf("dashboard recent users: %w", err)
	}
	if d.RecentProperties, err = s.props.Recent(RecentLimit); err != nil {
		return nil, fmt.Errorf("dashboard recent properties: %w", err)
	}
	if d.RecentKYC, err = s.kyc.Recent(RecentLimit); err != nil {
		return nil, fmt.Errorf("dashboard recent kyc: %w", err)
	}
	return &d, nil
}
