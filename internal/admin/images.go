package admin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/evcraddock/safe-estate/internal/imagefetch"
	"github.com/evcraddock/safe-estate/internal/property"
	"github.com/evcraddock/safe-estate/internal/storage"
)

// Bulk image actions.
const (
	ActionRemoveAll         = "remove_all"
	ActionRemoveSpecific    = "remove_specific"
	ActionAssignUnique      = "assign_unique"
	ActionAssignPlaceholder = "assign_placeholder"
	ActionUpload            = "upload"
)

// BulkRequest is a JSON bulk image action.
type BulkRequest struct {
	Action      string  `json:"action"`
	PropertyIDs []int64 `json:"property_ids"`
	ImageID     int64   `json:"image_id"`
}

// BulkResult reports the outcome of a bulk image action.
type BulkResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	UpdatedCount int    `json:"updated_count"`
	FailedCount  int    `json:"failed_count,omitempty"`
}

func failure(msg string) *BulkResult {
	return &BulkResult{Success: false, Message: msg}
}

// Bulk runs a JSON bulk image action.
func (s *Service) Bulk(ctx context.Context, req BulkRequest) (*BulkResult, error) {
	switch req.Action {
	case ActionRemoveAll:
		return s.RemoveAll(req.PropertyIDs)
	case ActionRemoveSpecific:
		return s.RemoveImage(req.ImageID)
	case ActionAssignUnique:
		return s.AssignUnique(ctx, req.PropertyIDs)
	case ActionAssignPlaceholder:
		return s.AssignPlaceholder(ctx, req.PropertyIDs)
	default:
		return failure("Invalid action."), nil
	}
}

// ParseIDs reads a comma separated list of listing IDs, skipping anything
// that is not a positive integer.
func ParseIDs(s string) []int64 {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err == nil && id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// listings returns the existing listings among ids, in the order given.
func (s *Service) listings(ids []int64) ([]*property.Property, error) {
	found, err := s.props.ListByIDs(ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*property.Property, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	props := make([]*property.Property, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			props = append(props, p)
			delete(byID, id)
		}
	}
	return props, nil
}

// RemoveAll deletes every image of the given listings.
func (s *Service) RemoveAll(ids []int64) (*BulkResult, error) {
	props, err := s.listings(ids)
	if err != nil {
		return nil, err
	}

	removed := 0
	for _, p := range props {
		old, err := s.props.ClearImages(p.ID)
		if err != nil {
			return nil, err
		}
		s.files.DeleteAll(old...)
		removed += len(old)
	}

	slog.Info("bulk images removed", "properties", len(props), "images", removed)
	return &BulkResult{
		Success:      true,
		Message:      fmt.Sprintf("Removed %d images from %d properties.", removed, len(props)),
		UpdatedCount: len(props),
	}, nil
}

// RemoveImage deletes a single image of any listing.
func (s *Service) RemoveImage(imageID int64) (*BulkResult, error) {
	rel, err := s.props.DeleteImageByID(imageID)
	if errors.Is(err, property.ErrImageNotFound) {
		return failure("Image not found."), nil
	}
	if err != nil {
		return nil, err
	}
	s.files.DeleteAll(rel)
	return &BulkResult{Success: true, Message: "Image removed successfully.", UpdatedCount: 1}, nil
}

// Upload distributes files over the given listings round-robin. Files
// whose content is not an image are skipped, and the first image a
// listing receives becomes its primary one.
func (s *Service) Upload(ids []int64, files []*multipart.FileHeader) (*BulkResult, error) {
	props, err := s.listings(ids)
	if err != nil {
		return nil, err
	}
	if len(props) == 0 || len(files) == 0 {
		return failure("No properties selected or no files uploaded."), nil
	}

	uploaded, skipped := 0, 0
	for i, fh := range files {
		p := props[i%len(props)]

		mime, err := property.SniffImage(fh)
		if err != nil {
			return nil, err
		}
		if mime == "" || fh.Size > property.MaxImageSize {
			skipped++
			continue
		}

		rel, err := s.saveUpload(fh)
		if err != nil {
			return nil, err
		}
		if _, err := s.props.AppendImage(p.ID, rel, "Uploaded image for "+p.Title); err != nil {
			s.files.DeleteAll(rel)
			return nil, err
		}
		uploaded++
	}

	slog.Info("bulk images uploaded", "properties", len(props), "images", uploaded, "skipped", skipped)
	return &BulkResult{
		Success:      true,
		Message:      fmt.Sprintf("Successfully uploaded %d images.", uploaded),
		UpdatedCount: len(props),
		FailedCount:  skipped,
	}, nil
}

func (s *Service) saveUpload(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("opening upload: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			fmt.Printf("warning: closing upload: %v\n", cerr)
		}
	}()
	return s.files.Save(storage.DirProperties, fh.Filename, f)
}

// AssignUnique gives each listing a different stock photo from the pool,
// replacing its existing images. Listings whose download fails keep their
// images and are counted as failed.
func (s *Service) AssignUnique(ctx context.Context, ids []int64) (*BulkResult, error) {
	props, err := s.listings(ids)
	if err != nil {
		return nil, err
	}

	assigned, failed := 0, 0
	for i, p := range props {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		url := imagefetch.UniquePool[i%len(imagefetch.UniquePool)]
		rel, ok := s.download(ctx, p, url)
		if !ok {
			failed++
			continue
		}

		_, old, err := s.props.ReplaceImages(p.ID, rel, "Professional image for "+p.Title)
		if err != nil {
			s.files.DeleteAll(rel)
			return nil, err
		}
		s.files.DeleteAll(old...)
		assigned++
	}

	return &BulkResult{
		Success:      true,
		Message:      fmt.Sprintf("Successfully assigned unique images to %d properties.", assigned),
		UpdatedCount: assigned,
		FailedCount:  failed,
	}, nil
}

// AssignPlaceholder gives the placeholder photo to the listings that have
// no images.
func (s *Service) AssignPlaceholder(ctx context.Context, ids []int64) (*BulkResult, error) {
	props, err := s.listings(ids)
	if err != nil {
		return nil, err
	}

	assigned, failed := 0, 0
	for _, p := range props {
		if p.ImageCount > 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rel, ok := s.download(ctx, p, imagefetch.Placeholder)
		if !ok {
			failed++
			continue
		}
		if _, err := s.props.AddImage(p.ID, rel, "Placeholder for "+p.Title, true); err != nil {
			s.files.DeleteAll(rel)
			return nil, err
		}
		assigned++
	}

	return &BulkResult{
		Success:      true,
		Message:      fmt.Sprintf("Assigned placeholder images to %d properties.", assigned),
		UpdatedCount: assigned,
		FailedCount:  failed,
	}, nil
}

// download fetches url and stores it for p. Failures are logged.
func (s *Service) download(ctx context.Context, p *property.Property, url string) (string, bool) {
	img, err := s.fetch.Fetch(ctx, url)
	if err != nil {
		slog.Warn("stock image download failed", "property_id", p.ID, "url", url, "err", err)
		return "", false
	}
	rel, err := s.files.Save(storage.DirProperties, "stock"+img.Ext, bytes.NewReader(img.Data))
	if err != nil {
		slog.Warn("storing stock image", "property_id", p.ID, "err", err)
		return "", false
	}
	return rel, true
}
