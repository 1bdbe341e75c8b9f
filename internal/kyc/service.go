package kyc

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"

	"github.com/evcraddock/safe-estate/internal/auth"
	"github.com/evcraddock/safe-estate/internal/validate"
)

// Files stores uploaded documents.
type Files interface {
	Save(dir, originalName string, r io.Reader) (string, error)
	DeleteAll(rels ...string)
}

// Service implements KYC submission and review.
type Service struct {
	repo  *Repository
	files Files
}

// NewService creates a KYC service.
func NewService(repo *Repository, files Files) *Service {
	return &Service{repo: repo, files: files}
}

// Repository returns the underlying repository.
func (s *Service) Repository() *Repository { return s.repo }

// Submit stores the uploaded documents for seller and puts the record
// back into review. Slots missing from uploads keep what is on file;
// every required slot must end up filled.
func (s *Service) Submit(seller *auth.User, uploads map[string]*multipart.FileHeader) (*KYC, error) {
	if seller.Role != auth.RoleSeller {
		return nil, ErrNotSeller
	}

	existing, err := s.repo.GetBySeller(seller.ID)
	switch {
	case errors.Is(err, ErrNotFound):
		existing = &KYC{Documents: map[string]string{}}
	case err != nil:
		return nil, err
	case existing.Status == StatusApproved:
		return nil, ErrAlreadyApproved
	}

	errs := validate.Errors{}
	for _, d := range Documents {
		fh := uploads[d.Field]
		if fh == nil {
			if d.Required && existing.Documents[d.Field] == "" {
				errs.Add(d.Field, "This document is required for KYC verification.")
			}
			continue
		}
		msg, err := CheckUpload(fh)
		if err != nil {
			return nil, err
		}
		if msg != "" {
			errs.Add(d.Field, msg)
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	docs := make(map[string]string, len(Documents))
	var saved, replaced []string
	for _, d := range Documents {
		docs[d.Field] = existing.Documents[d.Field]
		fh := uploads[d.Field]
		if fh == nil {
			continue
		}
		rel, err := s.store(d.Dir, fh)
		if err != nil {
			s.files.DeleteAll(saved...)
			return nil, fmt.Errorf("storing %s: %w", d.Field, err)
		}
		saved = append(saved, rel)
		if old := docs[d.Field]; old != "" {
			replaced = append(replaced, old)
		}
		docs[d.Field] = rel
	}

	k, err := s.repo.SaveSubmission(seller.ID, docs)
	if err != nil {
		s.files.DeleteAll(saved...)
		return nil, err
	}
	s.files.DeleteAll(replaced...)

	slog.Info("kyc submitted", "seller_id", seller.ID, "kyc_id", k.ID, "documents", len(saved))
	return k, nil
}

func (s *Service) store(dir string, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			fmt.Printf("warning: closing upload: %v\n", cerr)
		}
	}()
	return s.files.Save(dir, fh.Filename, f)
}

// Decide applies an admin decision ("approved" or "rejected") to record id.
func (s *Service) Decide(admin *auth.User, id int64, action, remarks string) (*KYC, error) {
	status, ok := ParseDecision(action)
	if !ok {
		errs := validate.Errors{}
		errs.Add("action", "Select either approved or rejected.")
		return nil, errs
	}

	k, err := s.repo.Decide(id, admin.ID, status, remarks)
	if err != nil {
		return nil, err
	}
	slog.Info("kyc decided", "kyc_id", id, "status", status, "admin_id", admin.ID)
	return k, nil
}

// DocumentPath returns the stored path of one document of record id.
func (s *Service) DocumentPath(id int64, field string) (string, error) {
	if _, ok := Kind(field); !ok {
		return "", ErrNotFound
	}
	k, err := s.repo.GetByID(id)
	if err != nil {
		return "", err
	}
	rel := k.Documents[field]
	if rel == "" {
		return "", ErrNotFound
	}
	return rel, nil
}
