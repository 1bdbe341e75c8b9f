package property

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evcraddock/safe-estate/internal/db"
)

// ImageStats summarizes image coverage across all listings.
type ImageStats struct {
	TotalProperties int `json:"total_properties"`
	WithImages      int `json:"properties_with_images"`
	WithoutImages   int `json:"properties_without_images"`
	TotalImages     int `json:"total_images"`
}

const selectImageSQL = `SELECT id, property_id, path, caption, is_primary, uploaded_at FROM property_images`

func scanImage(row interface{ Scan(...any) error }) (*Image, error) {
	var img Image
	if err := row.Scan(&img.ID, &img.PropertyID, &img.Path, &img.Caption, &img.IsPrimary, &img.UploadedAt); err != nil {
		return nil, err
	}
	return &img, nil
}

// Images returns the images of propertyID, primary first, then by upload time.
func (r *Repository) Images(propertyID int64) ([]*Image, error) {
	rows, err := r.db.Query(
		selectImageSQL+" WHERE property_id = ? ORDER BY is_primary DESC, uploaded_at, id",
		propertyID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing images: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			fmt.Printf("warning: closing rows: %v\n", cerr)
		}
	}()

	images := []*Image{}
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning image: %w", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// AddImage attaches a stored file to propertyID.
func (r *Repository) AddImage(propertyID int64, path, caption string, primary bool) (*Image, error) {
	var img *Image
	err := db.WithTx(r.db, func(tx *sql.Tx) error {
		var err error
		img, err = insertImage(tx, propertyID, path, caption, primary, r.now())
		return err
	})
	return img, err
}

// AppendImage attaches a stored file to propertyID, making it primary
// when the listing has no images yet.
func (r *Repository) AppendImage(propertyID int64, path, caption string) (*Image, error) {
	var img *Image
	err := db.WithTx(r.db, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRow("SELECT COUNT(*) FROM property_images WHERE property_id = ?", propertyID).Scan(&n); err != nil {
			return fmt.Errorf("counting images: %w", err)
		}
		var err error
		img, err = insertImage(tx, propertyID, path, caption, n == 0, r.now())
		return err
	})
	return img, err
}

// ReplaceImages removes every image of propertyID and inserts path as the
// sole primary image. It returns the paths of the removed files.
func (r *Repository) ReplaceImages(propertyID int64, path, caption string) (*Image, []string, error) {
	var img *Image
	var old []string
	err := db.WithTx(r.db, func(tx *sql.Tx) error {
		var err error
		old, err = deleteImages(tx, propertyID)
		if err != nil {
			return err
		}
		img, err = insertImage(tx, propertyID, path, caption, true, r.now())
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return img, old, nil
}

// ClearImages removes every image of propertyID and returns the paths of
// the removed files.
func (r *Repository) ClearImages(propertyID int64) ([]string, error) {
	var old []string
	err := db.WithTx(r.db, func(tx *sql.Tx) error {
		var err error
		old, err = deleteImages(tx, propertyID)
		return err
	})
	return old, err
}

// DeleteImage removes image imageID of propertyID and returns its path.
func (r *Repository) DeleteImage(propertyID, imageID int64) (string, error) {
	return r.deleteImage("DELETE FROM property_images WHERE id = ? AND property_id = ? RETURNING path", imageID, propertyID)
}

// DeleteImageByID removes image imageID of any listing and returns its path.
func (r *Repository) DeleteImageByID(imageID int64) (string, error) {
	return r.deleteImage("DELETE FROM property_images WHERE id = ? RETURNING path", imageID)
}

func (r *Repository) deleteImage(q string, args ...any) (string, error) {
	var path string
	err := r.db.QueryRow(q, args...).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrImageNotFound
	}
	if err != nil {
		return "", fmt.Errorf("deleting image: %w", err)
	}
	return path, nil
}

// ImageStats returns image coverage counts.
func (r *Repository) ImageStats() (ImageStats, error) {
	var s ImageStats
	err := r.db.QueryRow(`SELECT
		(SELECT COUNT(*) FROM properties),
		(SELECT COUNT(DISTINCT property_id) FROM property_images),
		(SELECT COUNT(*) FROM property_images)`,
	).Scan(&s.TotalProperties, &s.WithImages, &s.TotalImages)
	if err != nil {
		return ImageStats{}, fmt.Errorf("counting images: %w", err)
	}
	s.WithoutImages = s.TotalProperties - s.WithImages
	return s, nil
}

func insertImage(tx *sql.Tx, propertyID int64, path, caption string, primary bool, now time.Time) (*Image, error) {
	result, err := tx.Exec(
		"INSERT INTO property_images (property_id, path, caption, is_primary, uploaded_at) VALUES (?, ?, ?, ?, ?)",
		propertyID, path, caption, primary, now,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting image: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting insert id: %w", err)
	}

	img, err := scanImage(tx.QueryRow(selectImageSQL+" WHERE id = ?", id))
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	return img, nil
}

func deleteImages(tx *sql.Tx, propertyID int64) ([]string, error) {
	rows, err := tx.Query("DELETE FROM property_images WHERE property_id = ? RETURNING path", propertyID)
	if err != nil {
		return nil, fmt.Errorf("deleting images: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			fmt.Printf("warning: closing rows: %v\n", cerr)
		}
	}()

	paths := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scanning image path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}
