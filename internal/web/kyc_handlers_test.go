package web

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/evcraddock/safe-estate/internal/auth"
	"github.com/evcraddock/safe-estate/internal/kyc"
)

func TestKYCSubmitEveryDocumentAtSizeLimit(t *testing.T) {
	if testing.Short() {
		t.Skip("uploads every document slot at full size")
	}
	env := newTestEnv(t)
	_, seller := env.user(t, "bigfiles", auth.RoleSeller)

	full := append(append([]byte{}, pdfData...), bytes.Repeat([]byte{' '}, kyc.MaxDocumentSize-len(pdfData))...)
	var docs []filePart
	for _, d := range kyc.Documents {
		docs = append(docs, filePart{field: d.Field, filename: d.Field + ".pdf", contentType: "application/pdf", data: full})
	}

	w := env.multipart(t, "POST", "/api/kyc", seller, nil, docs...)
	wantStatus(t, w, http.StatusOK)
	var resp kycResponse
	decode(t, w, &resp)
	if resp.KYC == nil || len(resp.KYC.Documents) != len(kyc.Documents) {
		t.Fatalf("kyc = %+v, want all %d documents stored", resp.KYC, len(kyc.Documents))
	}
}

func TestKYCSubmitOversizedDocument(t *testing.T) {
	env := newTestEnv(t)
	_, seller := env.user(t, "toolarge", auth.RoleSeller)

	big := append(append([]byte{}, pdfData...), bytes.Repeat([]byte{' '}, kyc.MaxDocumentSize)...)
	w := env.multipart(t, "POST", "/api/kyc", seller, nil,
		filePart{field: "pan_card", filename: "pan.pdf", contentType: "application/pdf", data: big})
	wantStatus(t, w, http.StatusBadRequest)
	if b := errorOf(t, w); len(b.Fields["pan_card"]) == 0 {
		t.Errorf("fields = %v, want a size error on pan_card", b.Fields)
	}
}
