package property

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SavedSearch is a named search filter kept by a user.
type SavedSearch struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Filter
}

// SearchInput is a request to save a search.
type SearchInput struct {
	Name string `json:"name" validate:"required,max=100"`
	Filter
}

const selectSearchSQL = `SELECT id, user_id, name, search, property_type, state, city, pincode,
	min_price, max_price, min_area, max_area, created_at FROM saved_searches`

func scanSearch(row interface{ Scan(...any) error }) (*SavedSearch, error) {
	var s SavedSearch
	var minPrice, maxPrice, minArea, maxArea sql.NullFloat64
	if err := row.Scan(
		&s.ID, &s.UserID, &s.Name, &s.Search, &s.Type, &s.State, &s.City, &s.Pincode,
		&minPrice, &maxPrice, &minArea, &maxArea, &s.CreatedAt,
	); err != nil {
		return nil, err
	}
	s.MinPrice = nullFloat(minPrice)
	s.MaxPrice = nullFloat(maxPrice)
	s.MinArea = nullFloat(minArea)
	s.MaxArea = nullFloat(maxArea)
	return &s, nil
}

func nullFloat(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	return &n.Float64
}

// SaveSearch stores a named filter for userID.
func (r *Repository) SaveSearch(userID int64, name string, f Filter) (*SavedSearch, error) {
	result, err := r.db.Exec(`INSERT INTO saved_searches
		(user_id, name, search, property_type, state, city, pincode,
		 min_price, max_price, min_area, max_area, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, name, f.Search, f.Type, f.State, f.City, f.Pincode,
		f.MinPrice, f.MaxPrice, f.MinArea, f.MaxArea, r.now(),
	)
	if err != nil {
		return nil, fmt.Errorf("saving search: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting insert id: %w", err)
	}
	return r.GetSearch(id, userID)
}

// GetSearch returns saved search id if it belongs to userID.
func (r *Repository) GetSearch(id, userID int64) (*SavedSearch, error) {
	s, err := scanSearch(r.db.QueryRow(selectSearchSQL+" WHERE id = ? AND user_id = ?", id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSearchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying saved search: %w", err)
	}
	return s, nil
}

// Searches returns the saved searches of userID, newest first.
func (r *Repository) Searches(userID int64) ([]*SavedSearch, error) {
	rows, err := r.db.Query(selectSearchSQL+" WHERE user_id = ? ORDER BY created_at DESC, id DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("listing saved searches: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			fmt.Printf("warning: closing rows: %v\n", cerr)
		}
	}()

	searches := []*SavedSearch{}
	for rows.Next() {
		s, err := scanSearch(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning saved search: %w", err)
		}
		searches = append(searches, s)
	}
	return searches, rows.Err()
}

// DeleteSearch removes saved search id of userID.
func (r *Repository) DeleteSearch(id, userID int64) error {
	result, err := r.db.Exec("DELETE FROM saved_searches WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting saved search: %w", err)
	}
	err = requireAffected(result)
	if errors.Is(err, ErrNotFound) {
		return ErrSearchNotFound
	}
	return err
}
