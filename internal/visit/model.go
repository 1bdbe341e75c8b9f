// Package visit provides buyer visit requests and the seller response
// workflow.
package visit

import (
	"errors"
	"time"
)

// Status is where a visit request is in its lifecycle. Every status other
// than StatusPending is terminal.
type Status string

// Visit request statuses.
const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusDeclined  Status = "declined"
	StatusCompleted Status = "completed"
)

// ValidStatuses is the set of allowed statuses.
var ValidStatuses = []Status{StatusPending, StatusApproved, StatusDeclined, StatusCompleted}

// IsValid checks if a status is recognized.
func (s Status) IsValid() bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Label returns a human-readable label for the status.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusApproved:
		return "Approved"
	case StatusDeclined:
		return "Declined"
	case StatusCompleted:
		return "Completed"
	default:
		return string(s)
	}
}

var (
	// ErrNotFound is returned when a visit request does not exist.
	ErrNotFound = errors.New("visit request not found")
	// ErrNotBuyer is returned when a non-buyer requests a visit.
	ErrNotBuyer = errors.New("only buyers can request property visits")
	// ErrOwnProperty is returned when a user requests a visit to their own listing.
	ErrOwnProperty = errors.New("you cannot request to visit your own property")
	// ErrDuplicatePending is returned when the buyer already has a pending
	// request for the property.
	ErrDuplicatePending = errors.New("you already have a pending visit request for this property")
	// ErrNotOwner is returned when someone other than the listing's seller responds.
	ErrNotOwner = errors.New("you can only respond to visit requests for your own properties")
	// ErrAlreadyResponded is returned when responding to a request that is
	// no longer pending.
	ErrAlreadyResponded = errors.New("visit request has already been answered")
)

// Request is a buyer's request to view a listing.
type Request struct {
	ID             int64      `json:"id"`
	PropertyID     int64      `json:"property_id"`
	PropertyTitle  string     `json:"property_title"`
	SellerID       int64      `json:"seller_id"`
	BuyerID        int64      `json:"buyer_id"`
	BuyerUsername  string     `json:"buyer_username"`
	PreferredDate  string     `json:"preferred_date"` // YYYY-MM-DD
	PreferredTime  string     `json:"preferred_time"` // HH:MM
	Phone          string     `json:"phone"`
	Message        string     `json:"message"`
	Status         Status     `json:"status"`
	StatusDisplay  string     `json:"status_display"`
	SellerResponse string     `json:"seller_response"`
	RequestedAt    time.Time  `json:"requested_at"`
	RespondedAt    *time.Time `json:"responded_at,omitempty"`
}

// Input is what a buyer submits to request a visit.
type Input struct {
	PreferredDate string `json:"preferred_date" validate:"required,datetime=2006-01-02"`
	PreferredTime string `json:"preferred_time" validate:"required,datetime=15:04"`
	Phone         string `json:"phone" validate:"required,max=15,phone"`
	Message       string `json:"message" validate:"max=2000"`
}

// Response is a seller's answer to a pending request.
type Response struct {
	Status         Status `json:"status" validate:"required,oneof=approved declined completed"`
	SellerResponse string `json:"seller_response" validate:"max=2000"`
}
