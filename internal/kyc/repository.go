package kyc

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evcraddock/safe-estate/internal/db"
	"github.com/evcraddock/safe-estate/internal/page"
)

// PerPage is the admin KYC list page size.
const PerPage = 15

// Filter narrows the admin KYC list. Empty fields match everything.
type Filter struct {
	Status     string // pending | approved | rejected
	Completion string // complete | incomplete
	Search     string // seller username or email contains
	DateFilter string // today | week | month
}

// Repository provides KYC data access.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a KYC repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

var documentColumns = func() string {
	cols := make([]string, len(Documents))
	for i, d := range Documents {
		cols[i] = d.Field
	}
	return strings.Join(cols, ", ")
}()

var selectKYC = `SELECT k.id, k.seller_id, u.username, u.email, ` + prefixed("k.", documentColumns) + `,
	k.status, k.remarks, k.verified_by, k.submitted_at, k.verified_at
	FROM kyc k JOIN users u ON u.id = k.seller_id`

func prefixed(prefix, cols string) string {
	parts := strings.Split(cols, ", ")
	for i := range parts {
		parts[i] = prefix + parts[i]
	}
	return strings.Join(parts, ", ")
}

// completeClause is true when every required document is on file.
var completeClause = func() string {
	var parts []string
	for _, d := range Documents {
		if d.Required {
			parts = append(parts, "k."+d.Field+" <> ''")
		}
	}
	return "(" + strings.Join(parts, " AND ") + ")"
}()

type rowScanner interface {
	Scan(dest ...any) error
}

func scanKYC(row rowScanner) (*KYC, error) {
	var k KYC
	docs := make([]string, len(Documents))
	dest := []any{&k.ID, &k.SellerID, &k.SellerUsername, &k.SellerEmail}
	for i := range docs {
		dest = append(dest, &docs[i])
	}
	var verifiedBy sql.NullInt64
	var verifiedAt sql.NullTime
	dest = append(dest, &k.Status, &k.Remarks, &verifiedBy, &k.SubmittedAt, &verifiedAt)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	k.Documents = make(map[string]string, len(Documents))
	for i, d := range Documents {
		if docs[i] != "" {
			k.Documents[d.Field] = docs[i]
		}
	}
	if verifiedBy.Valid {
		k.VerifiedBy = &verifiedBy.Int64
	}
	if verifiedAt.Valid {
		k.VerifiedAt = &verifiedAt.Time
	}
	k.Complete = k.IsComplete()
	return &k, nil
}

// GetByID returns a KYC record by ID.
func (r *Repository) GetByID(id int64) (*KYC, error) {
	k, err := scanKYC(r.db.QueryRow(selectKYC+" WHERE k.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying KYC: %w", err)
	}
	return k, nil
}

// GetBySeller returns the KYC record of sellerID.
func (r *Repository) GetBySeller(sellerID int64) (*KYC, error) {
	k, err := scanKYC(r.db.QueryRow(selectKYC+" WHERE k.seller_id = ?", sellerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying KYC: %w", err)
	}
	return k, nil
}

// IsApproved reports whether sellerID has an approved KYC record.
func (r *Repository) IsApproved(sellerID int64) (bool, error) {
	var n int
	if err := r.db.QueryRow(
		"SELECT COUNT(*) FROM kyc WHERE seller_id = ? AND status = ?", sellerID, StatusApproved,
	).Scan(&n); err != nil {
		return false, fmt.Errorf("checking KYC status: %w", err)
	}
	return n > 0, nil
}

// SaveSubmission stores docs for sellerID and resets the status to pending,
// creating the record if needed.
func (r *Repository) SaveSubmission(sellerID int64, docs map[string]string) (*KYC, error) {
	cols := documentColumns
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(Documents)), ", ")
	var updates []string
	args := []any{sellerID}
	for _, d := range Documents {
		args = append(args, docs[d.Field])
		updates = append(updates, d.Field+" = excluded."+d.Field)
	}
	args = append(args, StatusPending, r.now())

	q := `INSERT INTO kyc (seller_id, ` + cols + `, status, submitted_at)
		VALUES (?, ` + placeholders + `, ?, ?)
		ON CONFLICT(seller_id) DO UPDATE SET ` + strings.Join(updates, ", ") + `,
		status = excluded.status, submitted_at = excluded.submitted_at`

	if _, err := r.db.Exec(q, args...); err != nil {
		return nil, fmt.Errorf("saving KYC: %w", err)
	}
	return r.GetBySeller(sellerID)
}

// Decide records an admin decision and mirrors it onto the seller's
// verified flag in the same transaction.
func (r *Repository) Decide(id, adminID int64, status Status, remarks string) (*KYC, error) {
	err := db.WithTx(r.db, func(tx *sql.Tx) error {
		var sellerID int64
		err := tx.QueryRow("SELECT seller_id FROM kyc WHERE id = ?", id).Scan(&sellerID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("querying KYC: %w", err)
		}

		if _, err := tx.Exec(
			"UPDATE kyc SET status = ?, remarks = ?, verified_by = ?, verified_at = ? WHERE id = ?",
			status, remarks, adminID, r.now(), id,
		); err != nil {
			return fmt.Errorf("updating KYC: %w", err)
		}
		if _, err := tx.Exec(
			"UPDATE users SET is_verified = ? WHERE id = ?", status == StatusApproved, sellerID,
		); err != nil {
			return fmt.Errorf("updating seller: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(id)
}

// List returns one page of KYC records matching f, newest submission first.
func (r *Repository) List(f Filter, pageNum string) ([]*KYC, page.Page, error) {
	var where []string
	var args []any

	switch Status(f.Status) {
	case StatusPending, StatusApproved, StatusRejected:
		where = append(where, "k.status = ?")
		args = append(args, f.Status)
	}
	switch f.Completion {
	case "complete":
		where = append(where, completeClause)
	case "incomplete":
		where = append(where, "NOT "+completeClause)
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		where = append(where, "("+db.Like("u.username")+" OR "+db.Like("u.email")+")")
		like := db.Contains(q)
		args = append(args, like, like)
	}
	if since, ok := r.since(f.DateFilter); ok {
		where = append(where, "k.submitted_at >= ?")
		args = append(args, since)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRow(
		"SELECT COUNT(*) FROM kyc k JOIN users u ON u.id = k.seller_id"+clause, args...,
	).Scan(&total); err != nil {
		return nil, page.Page{}, fmt.Errorf("counting KYC: %w", err)
	}
	p := page.New(total, PerPage, pageNum)

	records, err := r.query(selectKYC+clause+" ORDER BY k.submitted_at DESC, k.id DESC LIMIT ? OFFSET ?",
		append(args, p.Size, p.Offset())...)
	if err != nil {
		return nil, page.Page{}, err
	}
	return records, p, nil
}

// since returns the lower submission bound for a date filter.
func (r *Repository) since(dateFilter string) (time.Time, bool) {
	now := r.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch dateFilter {
	case "today":
		return today, true
	case "week":
		return today.AddDate(0, 0, -7), true
	case "month":
		return today.AddDate(0, 0, -30), true
	}
	return time.Time{}, false
}

// Recent returns the n most recently submitted records.
func (r *Repository) Recent(n int) ([]*KYC, error) {
	return r.query(selectKYC+" ORDER BY k.submitted_at DESC, k.id DESC LIMIT ?", n)
}

// CountByStatus returns the number of records per status.
func (r *Repository) CountByStatus() (map[Status]int, error) {
	rows, err := r.db.Query("SELECT status, COUNT(*) FROM kyc GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("counting KYC: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			fmt.Printf("warning: closing rows: %v\n", cerr)
		}
	}()

	counts := map[Status]int{StatusPending: 0, StatusApproved: 0, StatusRejected: 0}
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

func (r *Repository) query(q string, args ...any) ([]*KYC, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing KYC: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			fmt.Printf("warning: closing rows: %v\n", cerr)
		}
	}()

	records := []*KYC{}
	for rows.Next() {
		k, err := scanKYC(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning KYC: %w", err)
		}
		records = append(records, k)
	}
	return records, rows.Err()
}
