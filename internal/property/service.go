package property

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/evcraddock/safe-estate/internal/auth"
	"github.com/evcraddock/safe-estate/internal/page"
	"github.com/evcraddock/safe-estate/internal/storage"
	"github.com/evcraddock/safe-estate/internal/validate"
)

// MaxImageSize is the largest accepted listing image.
const MaxImageSize = 10 << 20

// KYCChecker reports whether a seller may list properties.
type KYCChecker interface {
	IsApproved(sellerID int64) (bool, error)
}

// Files stores listing images.
type Files interface {
	Save(dir, originalName string, r io.Reader) (string, error)
	DeleteAll(rels ...string)
}

// Service provides listing business logic.
type Service struct {
	repo  *Repository
	kyc   KYCChecker
	files Files
}

// NewService creates a property service.
func NewService(repo *Repository, kyc KYCChecker, files Files) *Service {
	return &Service{repo: repo, kyc: kyc, files: files}
}

// Repository returns the underlying repository.
func (s *Service) Repository() *Repository { return s.repo }

// CanList reports whether user may list properties: only sellers with
// approved KYC can.
func (s *Service) CanList(user *auth.User) error {
	if user.Role != auth.RoleSeller {
		return ErrNotSeller
	}
	approved, err := s.kyc.IsApproved(user.ID)
	if err != nil {
		return err
	}
	if !approved {
		return ErrKYCNotApproved
	}
	return nil
}

// Create lists a new property for seller, with an optional primary image.
func (s *Service) Create(seller *auth.User, in Input, image *multipart.FileHeader) (*Property, error) {
	if err := s.CanList(seller); err != nil {
		return nil, err
	}

	errs := in.Validate()
	if image != nil {
		msg, err := CheckImage(image)
		if err != nil {
			return nil, err
		}
		if msg != "" {
			errs.Add("image", msg)
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	var rel string
	if image != nil {
		var err error
		if rel, err = s.store(image); err != nil {
			return nil, err
		}
	}

	p, err := s.repo.Insert(seller.ID, in)
	if err != nil {
		s.files.DeleteAll(rel)
		return nil, err
	}
	if rel != "" {
		if _, err := s.repo.AddImage(p.ID, rel, "", true); err != nil {
			s.files.DeleteAll(rel)
			return nil, err
		}
	}

	slog.Info("property listed", "property_id", p.ID, "seller_id", seller.ID)
	return s.Detail(p.ID)
}

// Update replaces the listing fields of property id owned by user.
func (s *Service) Update(user *auth.User, id int64, in Input) (*Property, error) {
	if _, err := s.Owned(user, id); err != nil {
		return nil, err
	}
	if err := in.Validate().Err(); err != nil {
		return nil, err
	}
	if _, err := s.repo.Update(id, in); err != nil {
		return nil, err
	}
	return s.Detail(id)
}

// Detail returns property id with its images.
func (s *Service) Detail(id int64) (*Property, error) {
	p, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if p.Images, err = s.repo.Images(id); err != nil {
		return nil, err
	}
	return p, nil
}

// Owned returns property id if user is its seller.
func (s *Service) Owned(user *auth.User, id int64) (*Property, error) {
	p, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if p.SellerID != user.ID {
		return nil, ErrNotOwner
	}
	return p, nil
}

// MyProperties returns the listings of seller, newest first.
func (s *Service) MyProperties(seller *auth.User) ([]*Property, error) {
	return s.repo.ListBySeller(seller.ID)
}

// Search returns one page of available listings matching f.
func (s *Service) Search(f Filter, pageNum string) ([]*Property, page.Page, error) {
	return s.repo.Search(f, pageNum)
}

// ReplaceImage makes image the only picture of property id.
func (s *Service) ReplaceImage(user *auth.User, id int64, image *multipart.FileHeader, caption string) (*Image, error) {
	if _, err := s.Owned(user, id); err != nil {
		return nil, err
	}

	errs := validate.Errors{}
	if image == nil {
		errs.Add("image", "Please select an image file.")
	} else {
		msg, err := CheckImage(image)
		if err != nil {
			return nil, err
		}
		if msg != "" {
			errs.Add("image", msg)
		}
	}
	if len(caption) > 200 {
		errs.Add("caption", "Ensure this value has at most 200 characters.")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	rel, err := s.store(image)
	if err != nil {
		return nil, err
	}
	img, old, err := s.repo.ReplaceImages(id, rel, strings.TrimSpace(caption))
	if err != nil {
		s.files.DeleteAll(rel)
		return nil, err
	}
	s.files.DeleteAll(old...)

	slog.Info("property image replaced", "property_id", id, "removed", len(old))
	return img, nil
}

// DeleteImage removes one image of property id.
func (s *Service) DeleteImage(user *auth.User, id, imageID int64) error {
	if _, err := s.Owned(user, id); err != nil {
		return err
	}
	rel, err := s.repo.DeleteImage(id, imageID)
	if err != nil {
		return err
	}
	s.files.DeleteAll(rel)
	return nil
}

// SaveSearch stores a named search for user.
func (s *Service) SaveSearch(user *auth.User, in SearchInput) (*SavedSearch, error) {
	in.Name = strings.TrimSpace(in.Name)
	errs := validate.Struct(in)
	in.Filter.Check(errs)
	for _, b := range []struct {
		field string
		v     *float64
	}{
		{"min_price", in.MinPrice}, {"max_price", in.MaxPrice},
		{"min_area", in.MinArea}, {"max_area", in.MaxArea},
	} {
		if b.v != nil && *b.v < 0 {
			errs.Add(b.field, "Ensure this value is greater than or equal to 0.")
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	return s.repo.SaveSearch(user.ID, in.Name, in.Filter)
}

// Searches returns the saved searches of user.
func (s *Service) Searches(user *auth.User) ([]*SavedSearch, error) {
	return s.repo.Searches(user.ID)
}

// DeleteSearch removes one of user's saved searches.
func (s *Service) DeleteSearch(user *auth.User, id int64) error {
	return s.repo.DeleteSearch(id, user.ID)
}

// RunSearch returns one page of results for one of user's saved searches.
func (s *Service) RunSearch(user *auth.User, id int64, pageNum string) (*SavedSearch, []*Property, page.Page, error) {
	saved, err := s.repo.GetSearch(id, user.ID)
	if err != nil {
		return nil, nil, page.Page{}, err
	}
	props, p, err := s.repo.Search(saved.Filter, pageNum)
	if err != nil {
		return nil, nil, page.Page{}, err
	}
	return saved, props, p, nil
}

func (s *Service) store(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("opening upload: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			fmt.Printf("warning: closing upload: %v\n", cerr)
		}
	}()
	rel, err := s.files.Save(storage.DirProperties, fh.Filename, f)
	if err != nil {
		return "", fmt.Errorf("storing image: %w", err)
	}
	return rel, nil
}

var imageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

const imageMessage = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."

// CheckImage returns a message describing why fh is not an acceptable
// listing image, or "" if it is.
func CheckImage(fh *multipart.FileHeader) (string, error) {
	if fh.Size > MaxImageSize {
		return "File size cannot exceed 10MB.", nil
	}
	mime, err := SniffImage(fh)
	if err != nil {
		return "", err
	}
	if mime == "" {
		return imageMessage, nil
	}
	return "", nil
}

// SniffImage returns the detected image type of fh, or "" if its content
// is not a supported image.
func SniffImage(fh *multipart.FileHeader) (string, error) {
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
	if !mimetype.EqualsAny(detected.String(), imageTypes...) {
		return "", nil
	}
	return detected.String(), nil
}
