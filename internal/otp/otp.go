// Package otp issues and verifies six-digit one-time codes.
package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/evcraddock/safe-estate/internal/db"
)

const (
	// TTL is how long a code stays valid.
	TTL = 5 * time.Minute
	// MaxAttempts is the number of wrong codes that exhaust an OTP.
	MaxAttempts = 5
	// CodeLength is the number of digits in a code.
	CodeLength = 6
)

var (
	// ErrNoOTP is returned when the user has no code to verify.
	ErrNoOTP = errors.New("no OTP found, generate one first")
	// ErrExpired is returned when the code has expired.
	ErrExpired = errors.New("OTP has expired, generate a new one")
	// ErrInvalidCode is returned for a wrong code.
	ErrInvalidCode = errors.New("invalid OTP")
	// ErrTooManyAttempts is returned once MaxAttempts wrong codes were entered.
	ErrTooManyAttempts = errors.New("too many attempts, generate a new OTP")
)

// OTP is a one-time code issued to a user.
type OTP struct {
	ID         int64
	UserID     int64
	Code       string
	IsVerified bool
	Attempts   int
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Store manages one-time codes in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates an OTP store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Generate replaces any unverified code for userID with a fresh one.
func (s *Store) Generate(userID int64) (*OTP, error) {
	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("generating code: %w", err)
	}

	now := s.now()
	o := &OTP{UserID: userID, Code: code, CreatedAt: now, ExpiresAt: now.Add(TTL)}

	err = db.WithTx(s.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM otps WHERE user_id = ? AND is_verified = 0", userID); err != nil {
			return fmt.Errorf("deleting old codes: %w", err)
		}
		result, err := tx.Exec(
			"INSERT INTO otps (user_id, code, created_at, expires_at) VALUES (?, ?, ?, ?)",
			userID, code, o.CreatedAt, o.ExpiresAt,
		)
		if err != nil {
			return fmt.Errorf("storing code: %w", err)
		}
		o.ID, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// Verify checks code against the user's most recent OTP. On success the
// OTP and the user are marked verified together. Repeating a successful
// verification with the same code succeeds without changing anything.
func (s *Store) Verify(userID int64, code string) error {
	var o OTP
	err := s.db.QueryRow(
		`SELECT id, code, is_verified, attempts, expires_at FROM otps
		 WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		userID,
	).Scan(&o.ID, &o.Code, &o.IsVerified, &o.Attempts, &o.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoOTP
	}
	if err != nil {
		return fmt.Errorf("querying OTP: %w", err)
	}

	match := subtle.ConstantTimeCompare([]byte(o.Code), []byte(code)) == 1

	if o.IsVerified {
		if match {
			return nil
		}
		return ErrInvalidCode
	}
	if !s.now().Before(o.ExpiresAt) {
		return ErrExpired
	}
	if o.Attempts >= MaxAttempts {
		return ErrTooManyAttempts
	}

	if !match {
		if _, err := s.db.Exec("UPDATE otps SET attempts = attempts + 1 WHERE id = ?", o.ID); err != nil {
			return fmt.Errorf("recording attempt: %w", err)
		}
		return ErrInvalidCode
	}

	return db.WithTx(s.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec("UPDATE otps SET is_verified = 1 WHERE id = ?", o.ID); err != nil {
			return fmt.Errorf("marking OTP verified: %w", err)
		}
		if _, err := tx.Exec("UPDATE users SET is_verified = 1 WHERE id = ?", userID); err != nil {
			return fmt.Errorf("marking user verified: %w", err)
		}
		return nil
	})
}

// Cleanup removes unverified codes that have expired and returns how many
// were deleted.
func (s *Store) Cleanup() (int64, error) {
	result, err := s.db.Exec("DELETE FROM otps WHERE is_verified = 0 AND expires_at < ?", s.now())
	if err != nil {
		return 0, fmt.Errorf("cleaning up OTPs: %w", err)
	}
	return result.RowsAffected()
}

// generateCode returns a uniformly random code in [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
