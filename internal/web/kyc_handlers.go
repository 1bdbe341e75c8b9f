package web

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/evcraddock/safe-estate/internal/kyc"
)

type kycResponse struct {
	KYC     *kyc.KYC           `json:"kyc"`
	Missing []string           `json:"missing"`
	Slots   []kyc.DocumentKind `json:"documents"`
}

func newKYCResponse(k *kyc.KYC) kycResponse {
	resp := kycResponse{KYC: k, Slots: kyc.Documents}
	if k == nil {
		for _, d := range kyc.Documents {
			if d.Required {
				resp.Missing = append(resp.Missing, d.Field)
			}
		}
	} else {
		resp.Missing = k.Missing()
	}
	if resp.Missing == nil {
		resp.Missing = []string{}
	}
	return resp
}

// handleKYC returns the seller's own KYC record, if any.
func (s *Server) handleKYC(w http.ResponseWriter, r *http.Request) {
	k, err := s.kyc.Repository().GetBySeller(currentUser(r).ID)
	if err != nil && !errors.Is(err, kyc.ErrNotFound) {
		fail(w, r, err)
		return
	}
	apiJSON(w, newKYCResponse(k), http.StatusOK)
}

// handleKYCSubmit stores uploaded documents and puts the record in review.
func (s *Server) handleKYCSubmit(w http.ResponseWriter, r *http.Request) {
	if !parseMultipart(w, r, maxKYCBody) {
		return
	}

	uploads := map[string]*multipart.FileHeader{}
	for field, fhs := range r.MultipartForm.File {
		if _, ok := kyc.Kind(field); ok && len(fhs) > 0 {
			uploads[field] = fhs[0]
		}
	}

	k, err := s.kyc.Submit(currentUser(r), uploads)
	if err != nil {
		fail(w, r, err)
		return
	}
	apiJSON(w, newKYCResponse(k), http.StatusOK)
}
