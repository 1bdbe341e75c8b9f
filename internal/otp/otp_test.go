package otp

import (
	"database/sql"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/evcraddock/safe-estate/internal/db"
	"github.com/evcraddock/safe-estate/internal/notify"
)

func testStore(t *testing.T) (*Store, *sql.DB, int64) {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})

	res, err := d.Exec(
		"INSERT INTO users (username, email, password_hash, role, created_at) VALUES ('ravi', 'ravi@example.com', 'x', 'buyer', ?)",
		time.Now().UTC(),
	)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	userID, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("last insert id: %v", err)
	}
	return NewStore(d), d, userID
}

func userVerified(t *testing.T, d *sql.DB, userID int64) bool {
	t.Helper()
	var v bool
	if err := d.QueryRow("SELECT is_verified FROM users WHERE id = ?", userID).Scan(&v); err != nil {
		t.Fatalf("query user: %v", err)
	}
	return v
}

func wrongCode(code string) string {
	if code == "123456" {
		return "654321"
	}
	return "123456"
}

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := generateCode()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != CodeLength {
			t.Fatalf("code %q has length %d", code, len(code))
		}
		n, err := strconv.Atoi(code)
		if err != nil || n < 100000 || n > 999999 {
			t.Fatalf("code %q out of range", code)
		}
	}
}

func TestGenerateReplacesUnverified(t *testing.T) {
	s, d, userID := testStore(t)

	first, err := s.Generate(userID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	second, err := s.Generate(userID)
	if err != nil {
		t.Fatalf("generate again: %v", err)
	}

	var n int
	if err := d.QueryRow("SELECT COUNT(*) FROM otps WHERE user_id = ?", userID).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("got %d OTPs, want 1", n)
	}
	if second.ExpiresAt.Sub(second.CreatedAt) != TTL {
		t.Errorf("expiry window = %v, want %v", second.ExpiresAt.Sub(second.CreatedAt), TTL)
	}
	if first.Code != second.Code {
		if err := s.Verify(userID, first.Code); !errors.Is(err, ErrInvalidCode) {
			t.Errorf("old code err = %v, want ErrInvalidCode", err)
		}
	}
}

func TestVerifySuccessAndIdempotent(t *testing.T) {
	s, d, userID := testStore(t)

	o, err := s.Generate(userID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := s.Verify(userID, o.Code); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !userVerified(t, d, userID) {
		t.Fatal("user should be verified")
	}

	if err := s.Verify(userID, o.Code); err != nil {
		t.Errorf("second verify should succeed, got %v", err)
	}
	if err := s.Verify(userID, wrongCode(o.Code)); !errors.Is(err, ErrInvalidCode) {
		t.Errorf("wrong code after success err = %v", err)
	}
}

func TestVerifyNoOTP(t *testing.T) {
	s, _, userID := testStore(t)

	if err := s.Verify(userID, "123456"); !errors.Is(err, ErrNoOTP) {
		t.Errorf("err = %v, want ErrNoOTP", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	s, d, userID := testStore(t)

	o, err := s.Generate(userID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	s.now = func() time.Time { return o.ExpiresAt.Add(time.Second) }
	if err := s.Verify(userID, o.Code); !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}
	if userVerified(t, d, userID) {
		t.Error("user must not be verified with an expired code")
	}
}

func TestVerifyWrongCode(t *testing.T) {
	s, d, userID := testStore(t)

	o, err := s.Generate(userID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	err = s.Verify(userID, wrongCode(o.Code))
	if !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("err = %v, want ErrInvalidCode", err)
	}
	if strings.Contains(err.Error(), o.Code) {
		t.Error("error must not reveal the code")
	}
	if userVerified(t, d, userID) {
		t.Error("user must not be verified")
	}
}

func TestVerifyTooManyAttempts(t *testing.T) {
	s, _, userID := testStore(t)

	o, err := s.Generate(userID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for i := 0; i < MaxAttempts; i++ {
		if err := s.Verify(userID, wrongCode(o.Code)); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("attempt %d err = %v", i, err)
		}
	}
	if err := s.Verify(userID, o.Code); !errors.Is(err, ErrTooManyAttempts) {
		t.Errorf("err = %v, want ErrTooManyAttempts", err)
	}
}

func TestCleanup(t *testing.T) {
	s, d, userID := testStore(t)

	o, err := s.Generate(userID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	n, err := s.Cleanup()
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if n != 0 {
		t.Errorf("deleted %d live codes", n)
	}

	s.now = func() time.Time { return o.ExpiresAt.Add(time.Minute) }
	n, err = s.Cleanup()
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d, want 1", n)
	}

	var left int
	if err := d.QueryRow("SELECT COUNT(*) FROM otps").Scan(&left); err != nil {
		t.Fatalf("count: %v", err)
	}
	if left != 0 {
		t.Errorf("left %d OTPs", left)
	}
}

type failingSender struct{}

func (failingSender) Send(to, subject, body string) error { return errors.New("smtp down") }

func TestServiceIssue(t *testing.T) {
	s, _, userID := testStore(t)
	rec := &notify.Recorder{}
	svc := NewService(s, rec)

	expires, err := svc.Issue(Recipient{ID: userID, Email: "ravi@example.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if time.Until(expires) <= 0 || time.Until(expires) > TTL {
		t.Errorf("expires in %v", time.Until(expires))
	}

	msg, ok := rec.Last()
	if !ok {
		t.Fatal("expected a message")
	}
	if msg.To != "ravi@example.com" {
		t.Errorf("to = %q", msg.To)
	}

	var code string
	for _, f := range strings.Fields(msg.Body) {
		f = strings.TrimSuffix(f, ".")
		if len(f) == CodeLength {
			if _, err := strconv.Atoi(f); err == nil {
				code = f
			}
		}
	}
	if code == "" {
		t.Fatalf("no code in body %q", msg.Body)
	}
	if err := svc.Verify(userID, code); err != nil {
		t.Errorf("verify delivered code: %v", err)
	}
}

func TestServiceIssueSendFailure(t *testing.T) {
	s, _, userID := testStore(t)
	svc := NewService(s, failingSender{})

	if _, err := svc.Issue(Recipient{ID: userID, Email: "ravi@example.com"}); err == nil {
		t.Fatal("expected send error")
	}
}
