package visit

import (
	"log/slog"
	"strings"
	"time"

	"github.com/evcraddock/safe-estate/internal/auth"
	"github.com/evcraddock/safe-estate/internal/property"
	"github.com/evcraddock/safe-estate/internal/validate"
)

// Properties looks up listings.
type Properties interface {
	GetByID(id int64) (*property.Property, error)
}

// Service implements the visit request workflow.
type Service struct {
	repo  *Repository
	props Properties
	now   func() time.Time
	loc   *time.Location
}

// NewService creates a visit service. Preferred dates and times are
// interpreted in the server's local time zone.
func NewService(repo *Repository, props Properties) *Service {
	return &Service{repo: repo, props: props, now: time.Now, loc: time.Local}
}

// Repository returns the underlying repository.
func (s *Service) Repository() *Repository { return s.repo }

// Request asks the seller of propertyID for a visit on behalf of buyer.
func (s *Service) Request(buyer *auth.User, propertyID int64, in Input) (*Request, error) {
	if buyer.Role != auth.RoleBuyer {
		return nil, ErrNotBuyer
	}
	p, err := s.props.GetByID(propertyID)
	if err != nil {
		return nil, err
	}
	if p.SellerID == buyer.ID {
		return nil, ErrOwnProperty
	}

	pending, err := s.repo.HasPending(propertyID, buyer.ID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, ErrDuplicatePending
	}

	in.Phone = strings.TrimSpace(in.Phone)
	in.Message = strings.TrimSpace(in.Message)
	errs := validate.Struct(in)
	if !errs.Has("preferred_date") && !errs.Has("preferred_time") {
		at, err := time.ParseInLocation("2006-01-02 15:04", in.PreferredDate+" "+in.PreferredTime, s.loc)
		if err == nil && !at.After(s.now()) {
			errs.Add("preferred_date", "Preferred visit date and time must be in the future.")
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	v, err := s.repo.Create(propertyID, buyer.ID, in)
	if err != nil {
		return nil, err
	}
	slog.Info("visit requested", "visit_id", v.ID, "property_id", propertyID, "buyer_id", buyer.ID)
	return v, nil
}

// Respond records the seller's answer to pending request id.
func (s *Service) Respond(seller *auth.User, id int64, resp Response) (*Request, error) {
	v, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if v.SellerID != seller.ID {
		return nil, ErrNotOwner
	}
	if v.Status != StatusPending {
		return nil, ErrAlreadyResponded
	}

	resp.SellerResponse = strings.TrimSpace(resp.SellerResponse)
	if err := validate.Struct(resp).Err(); err != nil {
		return nil, err
	}

	v, err = s.repo.Respond(id, resp.Status, resp.SellerResponse)
	if err != nil {
		return nil, err
	}
	slog.Info("visit answered", "visit_id", id, "status", v.Status, "seller_id", seller.ID)
	return v, nil
}

// ForBuyer returns the requests buyer has made, newest first.
func (s *Service) ForBuyer(buyer *auth.User) ([]*Request, error) {
	return s.repo.ListByBuyer(buyer.ID)
}

// ForProperty returns the requests for p when viewer is its seller, and
// nil otherwise.
func (s *Service) ForProperty(viewer *auth.User, p *property.Property) ([]*Request, error) {
	if viewer == nil || viewer.ID != p.SellerID {
		return nil, nil
	}
	return s.repo.ListByProperty(p.ID)
}
