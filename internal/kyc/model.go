// Package kyc manages seller identity and ownership documents and their
// admin review.
package kyc

import (
	"errors"
	"time"
)

// Status is the review state of a KYC record.
type Status string

// KYC statuses.
const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseDecision validates an admin decision.
func ParseDecision(s string) (Status, bool) {
	switch Status(s) {
	case StatusApproved, StatusRejected:
		return Status(s), true
	}
	return "", false
}

var (
	// ErrNotFound is returned when a KYC record or document does not exist.
	ErrNotFound = errors.New("KYC record not found")
	// ErrNotSeller is returned when a non-seller submits documents.
	ErrNotSeller = errors.New("only sellers can submit KYC documents")
	// ErrAlreadyApproved is returned when an approved seller resubmits.
	ErrAlreadyApproved = errors.New("KYC is already approved")
)

// DocumentKind describes one document slot.
type DocumentKind struct {
	Field    string `json:"field"`
	Label    string `json:"label"`
	Dir      string `json:"-"`
	Required bool   `json:"required"`
}

// Documents lists every document slot in storage order.
var Documents = []DocumentKind{
	{Field: "pan_card", Label: "PAN Card", Dir: "kyc/pan", Required: true},
	{Field: "aadhaar_card", Label: "Aadhaar Card", Dir: "kyc/aadhaar", Required: true},
	{Field: "ownership_proof", Label: "Ownership Proof", Dir: "kyc/ownership", Required: true},
	{Field: "revenue_records", Label: "Revenue Records", Dir: "kyc/revenue", Required: true},
	{Field: "tax_receipt", Label: "Tax Receipt", Dir: "kyc/tax", Required: true},
	{Field: "encumbrance_certificate", Label: "Encumbrance Certificate", Dir: "kyc/encumbrance", Required: true},
	{Field: "voter_id", Label: "Voter ID", Dir: "kyc/voter"},
	{Field: "additional_documents", Label: "Additional Documents", Dir: "kyc/additional"},
}

// Kind returns the document slot named field.
func Kind(field string) (DocumentKind, bool) {
	for _, d := range Documents {
		if d.Field == field {
			return d, true
		}
	}
	return DocumentKind{}, false
}

// KYC is a seller's verification record.
type KYC struct {
	ID             int64             `json:"id"`
	SellerID       int64             `json:"seller_id"`
	SellerUsername string            `json:"seller_username"`
	SellerEmail    string            `json:"seller_email"`
	Documents      map[string]string `json:"documents"`
	Status         Status            `json:"status"`
	Remarks        string            `json:"remarks"`
	VerifiedBy     *int64            `json:"verified_by,omitempty"`
	SubmittedAt    time.Time         `json:"submitted_at"`
	VerifiedAt     *time.Time        `json:"verified_at,omitempty"`
	Complete       bool              `json:"complete"`
}

// Missing returns the required slots with no document on file.
func (k *KYC) Missing() []string {
	var missing []string
	for _, d := range Documents {
		if d.Required && k.Documents[d.Field] == "" {
			missing = append(missing, d.Field)
		}
	}
	return missing
}

// IsComplete reports whether every required document is on file.
func (k *KYC) IsComplete() bool {
	return len(k.Missing()) == 0
}
