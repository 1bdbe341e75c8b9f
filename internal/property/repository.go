package property

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evcraddock/safe-estate/internal/db"
	"github.com/evcraddock/safe-estate/internal/page"
)

// Page sizes.
const (
	PerPage       = 12
	ImagesPerPage = 15
)

// Repository provides data access for listings and their images.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a property repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const selectSQL = `SELECT p.id, p.title, p.description, p.price, p.property_type,
	p.state, p.city, p.pincode, p.address, p.latitude, p.longitude,
	p.area, p.bedrooms, p.bathrooms, p.seller_id, u.username, p.status,
	(SELECT COUNT(*) FROM property_images i WHERE i.property_id = p.id),
	p.created_at, p.updated_at
	FROM properties p JOIN users u ON u.id = p.seller_id`

const fromSQL = ` FROM properties p JOIN users u ON u.id = p.seller_id`

const newestFirst = " ORDER BY p.created_at DESC, p.id DESC"

// Insert adds a listing for sellerID and returns it with its generated ID.
func (r *Repository) Insert(sellerID int64, in Input) (*Property, error) {
	now := r.now()
	result, err := r.db.Exec(`INSERT INTO properties
		(title, description, price, property_type, state, city, pincode, address,
		 latitude, longitude, area, bedrooms, bathrooms, seller_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Title, in.Description, in.Price, in.Type, in.State, in.City, in.Pincode, in.Address,
		in.Latitude, in.Longitude, in.Area, in.Bedrooms, in.Bathrooms,
		sellerID, StatusAvailable, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting property: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting insert id: %w", err)
	}

	return r.GetByID(id)
}

// GetByID returns a listing by its ID.
func (r *Repository) GetByID(id int64) (*Property, error) {
	p, err := scanProperty(r.db.QueryRow(selectSQL+" WHERE p.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying property %d: %w", id, err)
	}
	return p, nil
}

// Update replaces every editable field of listing id.
func (r *Repository) Update(id int64, in Input) (*Property, error) {
	result, err := r.db.Exec(`UPDATE properties SET
		title = ?, description = ?, price = ?, property_type = ?, state = ?, city = ?,
		pincode = ?, address = ?, latitude = ?, longitude = ?, area = ?,
		bedrooms = ?, bathrooms = ?, updated_at = ?
		WHERE id = ?`,
		in.Title, in.Description, in.Price, in.Type, in.State, in.City,
		in.Pincode, in.Address, in.Latitude, in.Longitude, in.Area,
		in.Bedrooms, in.Bathrooms, r.now(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating property: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return nil, err
	}
	return r.GetByID(id)
}

// UpdateStatus sets the availability of listing id.
func (r *Repository) UpdateStatus(id int64, status Status) error {
	if !ValidStatus(string(status)) {
		return fmt.Errorf("invalid status: %s", status)
	}

	result, err := r.db.Exec(
		"UPDATE properties SET status = ?, updated_at = ? WHERE id = ?",
		status, r.now(), id,
	)
	if err != nil {
		return fmt.Errorf("updating status: %w", err)
	}
	return requireAffected(result)
}

// Search returns one page of available listings matching f, newest first.
func (r *Repository) Search(f Filter, pageNum string) ([]*Property, page.Page, error) {
	q := newQuery()
	q.where("p.status = ?", StatusAvailable)
	if f.Search != "" {
		q.contains(f.Search, "p.title", "p.description", "p.address", "p.city")
	}
	if f.Type != "" {
		q.where("p.property_type = ?", f.Type)
	}
	if f.State != "" {
		q.where("p.state = ?", f.State)
	}
	if f.City != "" {
		q.contains(f.City, "p.city")
	}
	if f.Pincode != "" {
		q.where("p.pincode = ?", f.Pincode)
	}
	q.between("p.price", f.MinPrice, f.MaxPrice)
	q.between("p.area", f.MinArea, f.MaxArea)

	return r.page(q, PerPage, pageNum)
}

// ListBySeller returns every listing of sellerID, newest first.
func (r *Repository) ListBySeller(sellerID int64) ([]*Property, error) {
	return r.query(selectSQL+" WHERE p.seller_id = ?"+newestFirst, sellerID)
}

// ListByIDs returns the listings with the given IDs, newest first.
// Unknown IDs are skipped.
func (r *Repository) ListByIDs(ids []int64) ([]*Property, error) {
	if len(ids) == 0 {
		return []*Property{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	return r.query(selectSQL+" WHERE p.id IN ("+placeholders+")"+newestFirst, args...)
}

// AdminList returns one page of all listings matching f, newest first.
func (r *Repository) AdminList(f AdminFilter, pageNum string) ([]*Property, page.Page, error) {
	q := newQuery()
	if ValidStatus(f.Status) {
		q.where("p.status = ?", f.Status)
	}
	if ValidType(f.Type) {
		q.where("p.property_type = ?", f.Type)
	}
	if f.State != "" {
		q.where("p.state = ?", f.State)
	}
	if f.City != "" {
		q.contains(f.City, "p.city")
	}
	if f.Seller != "" {
		q.contains(f.Seller, "u.username")
	}
	if f.Search != "" {
		q.contains(f.Search, "p.title", "p.description", "p.address", "p.city")
	}
	q.between("p.price", f.MinPrice, f.MaxPrice)

	return r.page(q, PerPage, pageNum)
}

// ImageList returns one page of listings for the admin image tools.
func (r *Repository) ImageList(f ImageFilter, pageNum string) ([]*Property, page.Page, error) {
	q := newQuery()
	if ValidType(f.Type) {
		q.where("p.property_type = ?", f.Type)
	}
	if ValidStatus(f.Status) {
		q.where("p.status = ?", f.Status)
	}
	if f.Search != "" {
		q.contains(f.Search, "p.title", "p.city", "u.username")
	}
	switch f.ImageStatus {
	case "with_images":
		q.where("EXISTS (SELECT 1 FROM property_images i WHERE i.property_id = p.id)")
	case "without_images":
		q.where("NOT EXISTS (SELECT 1 FROM property_images i WHERE i.property_id = p.id)")
	}

	return r.page(q, ImagesPerPage, pageNum)
}

// CountByStatus returns the number of listings per status.
func (r *Repository) CountByStatus() (map[Status]int, error) {
	rows, err := r.db.Query("SELECT status, COUNT(*) FROM properties GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("counting properties: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			fmt.Printf("warning: closing rows: %v\n", cerr)
		}
	}()

	counts := map[Status]int{StatusAvailable: 0, StatusSold: 0, StatusPending: 0}
	for rows.Next() {
		var s Status
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[s] = n
	}
	return counts, rows.Err()
}

// Recent returns the n newest listings.
func (r *Repository) Recent(n int) ([]*Property, error) {
	return r.query(selectSQL+newestFirst+" LIMIT ?", n)
}

func (r *Repository) page(q *query, size int, pageNum string) ([]*Property, page.Page, error) {
	var total int
	if err := r.db.QueryRow("SELECT COUNT(*)"+fromSQL+q.clause(), q.args...).Scan(&total); err != nil {
		return nil, page.Page{}, fmt.Errorf("counting properties: %w", err)
	}
	p := page.New(total, size, pageNum)

	args := append(append([]any{}, q.args...), p.Size, p.Offset())
	props, err := r.query(selectSQL+q.clause()+newestFirst+" LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, page.Page{}, err
	}
	return props, p, nil
}

func (r *Repository) query(q string, args ...any) ([]*Property, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing properties: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			fmt.Printf("warning: closing rows: %v\n", cerr)
		}
	}()

	props := []*Property{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning property: %w", err)
		}
		props = append(props, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating properties: %w", err)
	}
	return props, nil
}

// query accumulates WHERE conditions and their arguments.
type query struct {
	conds []string
	args  []any
}

func newQuery() *query { return &query{} }

func (q *query) where(cond string, args ...any) {
	q.conds = append(q.conds, cond)
	q.args = append(q.args, args...)
}

// contains matches s case-insensitively anywhere in any of columns.
func (q *query) contains(s string, columns ...string) {
	like := db.Contains(s)
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = db.Like(c)
		q.args = append(q.args, like)
	}
	q.conds = append(q.conds, "("+strings.Join(parts, " OR ")+")")
}

func (q *query) between(column string, lo, hi *float64) {
	if lo != nil {
		q.where(column+" >= ?", *lo)
	}
	if hi != nil {
		q.where(column+" <= ?", *hi)
	}
}

func (q *query) clause() string {
	if len(q.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.conds, " AND ")
}

func requireAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
