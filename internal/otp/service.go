package otp

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/evcraddock/safe-estate/internal/notify"
)

// Recipient is the user a code is issued to.
type Recipient struct {
	ID    int64
	Email string
}

// Service issues codes and delivers them out of band.
type Service struct {
	store  *Store
	sender notify.Sender
}

// NewService creates an OTP service delivering through sender.
func NewService(store *Store, sender notify.Sender) *Service {
	return &Service{store: store, sender: sender}
}

// Issue generates a code for r, sends it, and returns its expiry.
// The code itself is never returned.
func (s *Service) Issue(r Recipient) (time.Time, error) {
	o, err := s.store.Generate(r.ID)
	if err != nil {
		return time.Time{}, err
	}

	body := fmt.Sprintf(
		"Your Safe Estate verification code is %s.\n\nIt expires in %d minutes.",
		o.Code, int(TTL.Minutes()),
	)
	if err := s.sender.Send(r.Email, "Your verification code", body); err != nil {
		return time.Time{}, fmt.Errorf("sending OTP: %w", err)
	}

	slog.Info("otp issued", "user_id", r.ID)
	return o.ExpiresAt, nil
}

// Verify checks code for userID. See Store.Verify.
func (s *Service) Verify(userID int64, code string) error {
	return s.store.Verify(userID, code)
}
