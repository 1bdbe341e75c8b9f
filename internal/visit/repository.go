package visit

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

// Repository provides data access for visit requests.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a visit repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const selectSQL = `SELECT v.id, v.property_id, p.title, p.seller_id, v.buyer_id, u.username,
	v.preferred_date, v.preferred_time, v.phone, v.message, v.status,
	v.seller_response, v.requested_at, v.responded_at
	FROM visit_requests v
	JOIN properties p ON p.id = v.property_id
	JOIN users u ON u.id = v.buyer_id`

func scanRequest(row interface{ Scan(...any) error }) (*Request, error) {
	var v Request
	var respondedAt sql.NullTime
	if err := row.Scan(
		&v.ID, &v.PropertyID, &v.PropertyTitle, &v.SellerID, &v.BuyerID, &v.BuyerUsername,
		&v.PreferredDate, &v.PreferredTime, &v.Phone, &v.Message, &v.Status,
		&v.SellerResponse, &v.RequestedAt, &respondedAt,
	); err != nil {
		return nil, err
	}
	if respondedAt.Valid {
		v.RespondedAt = &respondedAt.Time
	}
	v.StatusDisplay = v.Status.Label()
	return &v, nil
}

// Create records a pending request from buyerID for propertyID.
func (r *Repository) Create(propertyID, buyerID int64, in Input) (*Request, error) {
	result, err := r.db.Exec(
		`INSERT INTO visit_requests
		(property_id, buyer_id, preferred_date, preferred_time, phone, message, status, requested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		propertyID, buyerID, in.PreferredDate, in.PreferredTime, in.Phone, in.Message,
		StatusPending, r.now(),
	)
	if isUniqueViolation(err) {
		return nil, ErrDuplicatePending
	}
	if err != nil {
		return nil, fmt.Errorf("inserting visit request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting insert id: %w", err)
	}

	return r.GetByID(id)
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

// GetByID returns a visit request by its ID.
func (r *Repository) GetByID(id int64) (*Request, error) {
	v, err := scanRequest(r.db.QueryRow(selectSQL+" WHERE v.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying visit request %d: %w", id, err)
	}
	return v, nil
}

// HasPending reports whether buyerID has a pending request for propertyID.
func (r *Repository) HasPending(propertyID, buyerID int64) (bool, error) {
	var n int
	if err := r.db.QueryRow(
		"SELECT COUNT(*) FROM visit_requests WHERE property_id = ? AND buyer_id = ? AND status = ?",
		propertyID, buyerID, StatusPending,
	).Scan(&n); err != nil {
		return false, fmt.Errorf("checking pending requests: %w", err)
	}
	return n > 0, nil
}

// Respond moves pending request id to status and stamps the response time.
func (r *Repository) Respond(id int64, status Status, response string) (*Request, error) {
	if !status.IsValid() || status == StatusPending {
		return nil, fmt.Errorf("invalid response status: %q", status)
	}

	result, err := r.db.Exec(
		`UPDATE visit_requests SET status = ?, seller_response = ?, responded_at = ?
		WHERE id = ? AND status = ?`,
		status, response, r.now(), id, StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("updating visit request: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		if _, err := r.GetByID(id); err != nil {
			return nil, err
		}
		return nil, ErrAlreadyResponded
	}

	return r.GetByID(id)
}

// ListByBuyer returns the requests of buyerID, newest first.
func (r *Repository) ListByBuyer(buyerID int64) ([]*Request, error) {
	return r.query(selectSQL+" WHERE v.buyer_id = ? ORDER BY v.requested_at DESC, v.id DESC", buyerID)
}

// ListByProperty returns the requests for propertyID, newest first.
func (r *Repository) ListByProperty(propertyID int64) ([]*Request, error) {
	return r.query(selectSQL+" WHERE v.property_id = ? ORDER BY v.requested_at DESC, v.id DESC", propertyID)
}

// CountByStatus returns the number of requests per status.
func (r *Repository) CountByStatus() (map[Status]int, error) {
	rows, err := r.db.Query("SELECT status, COUNT(*) FROM visit_requests GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("counting visit requests: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			fmt.Printf("warning: closing rows: %v\n", cerr)
		}
	}()

	counts := make(map[Status]int, len(ValidStatuses))
	for _, s := range ValidStatuses {
		counts[s] = 0
	}
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

func (r *Repository) query(q string, args ...any) ([]*Request, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing visit requests: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			fmt.Printf("warning: closing rows: %v\n", cerr)
		}
	}()

	requests := []*Request{}
	for rows.Next() {
		v, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning visit request: %w", err)
		}
		requests = append(requests, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating visit requests: %w", err)
	}
	return requests, nil
}
