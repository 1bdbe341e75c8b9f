package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	t.Fatalf("expected cookie named %q", cookieName)
	return nil
}

func testSessionStore(t *testing.T, secure bool) (*SessionStore, *User) {
	t.Helper()
	d := testDB(t)
	u, err := NewUserStore(d).Register(registration("ravi", RoleBuyer))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return NewSessionStore(d, secure), u
}

func TestSessionCreateAndValidate(t *testing.T) {
	store, u := testSessionStore(t, false)

	w := httptest.NewRecorder()
	if err := store.Create(w, u.ID); err != nil {
		t.Fatalf("create: %v", err)
	}
	c := sessionCookie(t, w)
	if !c.HttpOnly {
		t.Error("expected HttpOnly cookie")
	}
	if c.Secure {
		t.Error("expected non-secure cookie")
	}

	r := httptest.NewRequest("GET", "/", nil)
	r.AddCookie(c)

	id, err := store.Validate(r)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if id != u.ID {
		t.Errorf("user id = %d, want %d", id, u.ID)
	}
}

func TestSessionSecureCookie(t *testing.T) {
	store, u := testSessionStore(t, true)

	w := httptest.NewRecorder()
	if err := store.Create(w, u.ID); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !sessionCookie(t, w).Secure {
		t.Error("expected secure cookie")
	}
}

func TestSessionValidateRejects(t *testing.T) {
	store, _ := testSessionStore(t, false)

	tests := []struct {
		name   string
		cookie *http.Cookie
	}{
		{"no cookie", nil},
		{"unknown session", &http.Cookie{Name: cookieName, Value: "bogus-session-id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tt.cookie != nil {
				r.AddCookie(tt.cookie)
			}
			if _, err := store.Validate(r); !errors.Is(err, ErrNoSession) {
				t.Errorf("err = %v, want ErrNoSession", err)
			}
		})
	}
}

func TestSessionExpired(t *testing.T) {
	store, u := testSessionStore(t, false)

	past := time.Now().UTC().Add(-time.Hour)
	if _, err := store.db.Exec("INSERT INTO sessions (id, user_id, expires_at) VALUES ('old', ?, ?)", u.ID, past); err != nil {
		t.Fatalf("insert: %v", err)
	}

	r := httptest.NewRequest("GET", "/", nil)
	r.AddCookie(&http.Cookie{Name: cookieName, Value: "old"})
	if _, err := store.Validate(r); !errors.Is(err, ErrNoSession) {
		t.Errorf("err = %v, want ErrNoSession", err)
	}

	var n int
	if err := store.db.QueryRow("SELECT COUNT(*) FROM sessions WHERE id = 'old'").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Error("expired session should be deleted on validate")
	}
}

func TestSessionDestroy(t *testing.T) {
	store, u := testSessionStore(t, false)

	w := httptest.NewRecorder()
	if err := store.Create(w, u.ID); err != nil {
		t.Fatalf("create: %v", err)
	}
	c := sessionCookie(t, w)

	r := httptest.NewRequest("GET", "/", nil)
	r.AddCookie(c)
	if err := store.Destroy(httptest.NewRecorder(), r); err != nil {
		t.Fatalf("destroy: %v", err)
	}

	r2 := httptest.NewRequest("GET", "/", nil)
	r2.AddCookie(c)
	if _, err := store.Validate(r2); err == nil {
		t.Fatal("expected error after destroy")
	}
}

func TestSessionCleanup(t *testing.T) {
	store, u := testSessionStore(t, false)

	if err := store.Create(httptest.NewRecorder(), u.ID); err != nil {
		t.Fatalf("create: %v", err)
	}
	past := time.Now().UTC().Add(-time.Hour)
	if _, err := store.db.Exec("INSERT INTO sessions (id, user_id, expires_at) VALUES ('old', ?, ?)", u.ID, past); err != nil {
		t.Fatalf("insert: %v", err)
	}

	n, err := store.Cleanup()
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d sessions, want 1", n)
	}
}
