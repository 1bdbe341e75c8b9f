package property

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/evcraddock/safe-estate/internal/validate"
)

const numberMessage = "Enter a number."

// Filter narrows a public listing search. Empty strings and nil bounds
// match everything.
type Filter struct {
	Search   string   `json:"search,omitempty"`
	Type     string   `json:"property_type,omitempty"`
	State    string   `json:"state,omitempty"`
	City     string   `json:"city,omitempty"`
	Pincode  string   `json:"pincode,omitempty"`
	MinPrice *float64 `json:"min_price,omitempty"`
	MaxPrice *float64 `json:"max_price,omitempty"`
	MinArea  *float64 `json:"min_area,omitempty"`
	MaxArea  *float64 `json:"max_area,omitempty"`
}

// ParseFilter reads a search filter from query parameters. Unknown
// choices and malformed numbers are reported per field.
func ParseFilter(q url.Values) (Filter, validate.Errors) {
	errs := validate.Errors{}
	f := Filter{
		Search:  strings.TrimSpace(q.Get("search")),
		Type:    strings.TrimSpace(q.Get("property_type")),
		State:   strings.TrimSpace(q.Get("state")),
		City:    strings.TrimSpace(q.Get("city")),
		Pincode: strings.TrimSpace(q.Get("pincode")),
	}
	f.Check(errs)

	f.MinPrice = number(q, "min_price", errs)
	f.MaxPrice = number(q, "max_price", errs)
	f.MinArea = number(q, "min_area", errs)
	f.MaxArea = number(q, "max_area", errs)
	return f, errs
}

// Check adds an error to errs for each unknown choice in f.
func (f Filter) Check(errs validate.Errors) {
	if f.Type != "" && !ValidType(f.Type) {
		errs.Add("property_type", choiceMessage(f.Type))
	}
	if f.State != "" && !ValidState(f.State) {
		errs.Add("state", choiceMessage(f.State))
	}
}

// AdminFilter narrows the admin listing table.
type AdminFilter struct {
	Status   string
	Type     string
	State    string
	City     string
	Seller   string // seller username contains
	Search   string
	MinPrice *float64
	MaxPrice *float64
}

// ParseAdminFilter reads the admin filter from query parameters.
// Unparseable prices are ignored.
func ParseAdminFilter(q url.Values) AdminFilter {
	return AdminFilter{
		Status:   strings.TrimSpace(q.Get("status")),
		Type:     strings.TrimSpace(q.Get("property_type")),
		State:    strings.TrimSpace(q.Get("state")),
		City:     strings.TrimSpace(q.Get("city")),
		Seller:   strings.TrimSpace(q.Get("seller")),
		Search:   strings.TrimSpace(q.Get("search")),
		MinPrice: number(q, "min_price", nil),
		MaxPrice: number(q, "max_price", nil),
	}
}

// ImageFilter narrows the admin image management table.
type ImageFilter struct {
	Type        string
	Status      string
	Search      string // title, city or seller username contains
	ImageStatus string // with_images | without_images
}

// ParseImageFilter reads the image filter from query parameters.
func ParseImageFilter(q url.Values) ImageFilter {
	return ImageFilter{
		Type:        strings.TrimSpace(q.Get("property_type")),
		Status:      strings.TrimSpace(q.Get("status")),
		Search:      strings.TrimSpace(q.Get("search")),
		ImageStatus: strings.TrimSpace(q.Get("image_status")),
	}
}

// FormInput reads listing fields from a submitted form. Malformed numbers
// are reported per field; the remaining checks happen in Validate.
func FormInput(v url.Values) (Input, validate.Errors) {
	errs := validate.Errors{}
	in := Input{
		Title:       strings.TrimSpace(v.Get("title")),
		Description: strings.TrimSpace(v.Get("description")),
		Type:        Type(strings.TrimSpace(v.Get("property_type"))),
		State:       strings.TrimSpace(v.Get("state")),
		City:        strings.TrimSpace(v.Get("city")),
		Pincode:     strings.TrimSpace(v.Get("pincode")),
		Address:     strings.TrimSpace(v.Get("address")),
		Latitude:    number(v, "latitude", errs),
		Longitude:   number(v, "longitude", errs),
		Bedrooms:    integer(v, "bedrooms", errs),
		Bathrooms:   integer(v, "bathrooms", errs),
	}
	if p := number(v, "price", errs); p != nil {
		in.Price = *p
	}
	if a := number(v, "area", errs); a != nil {
		in.Area = *a
	}
	return in, errs
}

// Validate checks the listing fields.
func (in Input) Validate() validate.Errors {
	errs := validate.Struct(in)
	if in.State != "" && !ValidState(in.State) {
		errs.Add("state", choiceMessage(in.State))
	}
	return errs
}

func choiceMessage(v string) string {
	return "Select a valid choice. \"" + v + "\" is not one of the available choices."
}

// number parses an optional decimal parameter. A malformed value is
// recorded in errs when errs is non-nil and otherwise dropped.
func number(v url.Values, key string, errs validate.Errors) *float64 {
	s := strings.TrimSpace(v.Get(key))
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		if errs != nil {
			errs.Add(key, numberMessage)
		}
		return nil
	}
	return &f
}

func integer(v url.Values, key string, errs validate.Errors) *int64 {
	s := strings.TrimSpace(v.Get(key))
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		errs.Add(key, "Enter a whole number.")
		return nil
	}
	return &n
}
