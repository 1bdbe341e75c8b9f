// Package property provides the listing catalog, listing images and
// saved searches.
package property

import (
	"database/sql"
	"errors"
	"time"
)

// Type is the kind of real estate being listed.
type Type string

// Property types.
const (
	TypePlot       Type = "plot"
	TypeFlat       Type = "flat"
	TypeHouse      Type = "house"
	TypeCommercial Type = "commercial"
)

// ValidType returns true if s is a known property type.
func ValidType(s string) bool {
	switch Type(s) {
	case TypePlot, TypeFlat, TypeHouse, TypeCommercial:
		return true
	}
	return false
}

// Status is the availability of a listing.
type Status string

// Listing statuses.
const (
	StatusAvailable Status = "available"
	StatusSold      Status = "sold"
	StatusPending   Status = "pending"
)

// ValidStatus returns true if s is a known listing status.
func ValidStatus(s string) bool {
	switch Status(s) {
	case StatusAvailable, StatusSold, StatusPending:
		return true
	}
	return false
}

// State is an Indian state a listing can be located in.
type State struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// States lists the accepted values of Property.State.
var States = []State{
	{"andhra_pradesh", "Andhra Pradesh"},
	{"assam", "Assam"},
	{"bihar", "Bihar"},
	{"chhattisgarh", "Chhattisgarh"},
	{"goa", "Goa"},
	{"gujarat", "Gujarat"},
	{"haryana", "Haryana"},
	{"himachal_pradesh", "Himachal Pradesh"},
	{"jharkhand", "Jharkhand"},
	{"karnataka", "Karnataka"},
	{"kerala", "Kerala"},
	{"madhya_pradesh", "Madhya Pradesh"},
	{"maharashtra", "Maharashtra"},
	{"manipur", "Manipur"},
	{"meghalaya", "Meghalaya"},
	{"mizoram", "Mizoram"},
	{"nagaland", "Nagaland"},
	{"odisha", "Odisha"},
	{"punjab", "Punjab"},
	{"rajasthan", "Rajasthan"},
	{"sikkim", "Sikkim"},
	{"tamil_nadu", "Tamil Nadu"},
	{"telangana", "Telangana"},
	{"tripura", "Tripura"},
	{"uttar_pradesh", "Uttar Pradesh"},
	{"uttarakhand", "Uttarakhand"},
	{"west_bengal", "West Bengal"},
	{"delhi", "Delhi"},
}

// ValidState returns true if slug is one of States.
func ValidState(slug string) bool {
	for _, s := range States {
		if s.Slug == slug {
			return true
		}
	}
	return false
}

var (
	// ErrNotFound is returned when a listing does not exist.
	ErrNotFound = errors.New("property not found")
	// ErrImageNotFound is returned when a listing image does not exist.
	ErrImageNotFound = errors.New("image not found")
	// ErrSearchNotFound is returned when a saved search does not exist
	// or belongs to someone else.
	ErrSearchNotFound = errors.New("saved search not found")
	// ErrNotSeller is returned when a non-seller tries to list a property.
	ErrNotSeller = errors.New("only sellers can add properties")
	// ErrKYCNotApproved is returned when a seller without approved KYC
	// tries to list a property.
	ErrKYCNotApproved = errors.New("complete KYC verification before listing properties")
	// ErrNotOwner is returned when a user changes a listing they do not own.
	ErrNotOwner = errors.New("you can only manage your own properties")
)

// Property is a listing owned by a seller.
type Property struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Price          float64   `json:"price"`
	Type           Type      `json:"property_type"`
	State          string    `json:"state"`
	City           string    `json:"city"`
	Pincode        string    `json:"pincode"`
	Address        string    `json:"address"`
	Latitude       *float64  `json:"latitude,omitempty"`
	Longitude      *float64  `json:"longitude,omitempty"`
	Area           float64   `json:"area"`
	Bedrooms       *int64    `json:"bedrooms,omitempty"`
	Bathrooms      *int64    `json:"bathrooms,omitempty"`
	SellerID       int64     `json:"seller_id"`
	SellerUsername string    `json:"seller_username"`
	Status         Status    `json:"status"`
	ImageCount     int       `json:"image_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Images         []*Image  `json:"images,omitempty"`
}

// Image is a picture attached to a listing.
type Image struct {
	ID         int64     `json:"id"`
	PropertyID int64     `json:"property_id"`
	Path       string    `json:"path"`
	Caption    string    `json:"caption"`
	IsPrimary  bool      `json:"is_primary"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Input holds the seller-editable listing fields.
type Input struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"required"`
	Price       float64  `json:"price" validate:"gt=0"`
	Type        Type     `json:"property_type" validate:"required,oneof=plot flat house commercial"`
	State       string   `json:"state" validate:"required"`
	City        string   `json:"city" validate:"required,max=100"`
	Pincode     string   `json:"pincode" validate:"required,pincode"`
	Address     string   `json:"address" validate:"required"`
	Latitude    *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude   *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	Area        float64  `json:"area" validate:"gt=0"`
	Bedrooms    *int64   `json:"bedrooms" validate:"omitempty,gte=0"`
	Bathrooms   *int64   `json:"bathrooms" validate:"omitempty,gte=0"`
}

// scanProperty scans a property from a database row.
func scanProperty(row interface{ Scan(...any) error }) (*Property, error) {
	var p Property
	var lat, lng sql.NullFloat64
	var beds, baths sql.NullInt64

	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.Price, &p.Type,
		&p.State, &p.City, &p.Pincode, &p.Address, &lat, &lng,
		&p.Area, &beds, &baths, &p.SellerID, &p.SellerUsername,
		&p.Status, &p.ImageCount, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lat.Valid {
		p.Latitude = &lat.Float64
	}
	if lng.Valid {
		p.Longitude = &lng.Float64
	}
	if beds.Valid {
		p.Bedrooms = &beds.Int64
	}
	if baths.Valid {
		p.Bathrooms = &baths.Int64
	}

	return &p, nil
}
