package kyc

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxDocumentSize is the largest accepted document upload.
const MaxDocumentSize = 10 << 20

var (
	allowedTypes      = []string{"image/jpeg", "image/png", "image/gif", "application/pdf"}
	allowedExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".pdf": true}
)

const typeMessage = "Only images (JPG, PNG, GIF) and PDF files are allowed."

// CheckUpload returns a message describing why fh is not an acceptable
// document, or "" if it is.
func CheckUpload(fh *multipart.FileHeader) (string, error) {
	if fh.Size > MaxDocumentSize {
		return "File size cannot exceed 10MB.", nil
	}

	declared := strings.TrimSpace(strings.SplitN(fh.Header.Get("Content-Type"), ";", 2)[0])
	if declared != "" && !allowedType(declared) {
		return typeMessage, nil
	}
	if !allowedExtensions[strings.ToLower(filepath.Ext(fh.Filename))] {
		return typeMessage, nil
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("opening upload: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			fmt.Printf("warning: closing upload: %v\n", cerr)
		}
	}()

	detected, err := mimetype.DetectReader(f)
	if err != nil {
		return "", fmt.Errorf("detecting content type: %w", err)
	}
	if !allowedType(detected.String()) {
		return typeMessage, nil
	}
	return "", nil
}

func allowedType(t string) bool {
	t = strings.ToLower(strings.TrimSpace(strings.SplitN(t, ";", 2)[0]))
	for _, a := range allowedTypes {
		if t == a {
			return true
		}
	}
	return false
}
