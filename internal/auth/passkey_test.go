package auth

import (
	"errors"
	"testing"

	"github.com/go-webauthn/webauthn/webauthn"
)

func testPasskeyStore(t *testing.T) (*PasskeyStore, *User) {
	t.Helper()
	d := testDB(t)
	u, err := NewUserStore(d).Register(registration("ravi", RoleSeller))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return NewPasskeyStore(d), u
}

func TestPasskeySaveAndList(t *testing.T) {
	store, u := testPasskeyStore(t)

	cred := &webauthn.Credential{
		ID:        []byte("test-credential-id"),
		PublicKey: []byte("test-public-key"),
	}
	if err := store.Save(u.ID, "My Laptop", cred); err != nil {
		t.Fatalf("save: %v", err)
	}

	stored, err := store.ListByUser(u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("got %d credentials, want 1", len(stored))
	}
	if stored[0].Name != "My Laptop" {
		t.Errorf("name = %q, want %q", stored[0].Name, "My Laptop")
	}
	if string(stored[0].Credential.ID) != string(cred.ID) {
		t.Errorf("credential ID mismatch")
	}

	creds, err := store.WebAuthnCredentials(u.ID)
	if err != nil {
		t.Fatalf("webauthn credentials: %v", err)
	}
	if len(creds) != 1 {
		t.Errorf("got %d credentials, want 1", len(creds))
	}
}

func TestPasskeyDelete(t *testing.T) {
	store, u := testPasskeyStore(t)

	cred := &webauthn.Credential{ID: []byte("cred-1"), PublicKey: []byte("key-1")}
	if err := store.Save(u.ID, "Key", cred); err != nil {
		t.Fatalf("save: %v", err)
	}

	stored, err := store.ListByUser(u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if err := store.Delete(stored[0].ID, u.ID+1); !errors.Is(err, ErrCredentialNotFound) {
		t.Errorf("deleting another user's credential err = %v", err)
	}
	if err := store.Delete(stored[0].ID, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(stored[0].ID, u.ID); !errors.Is(err, ErrCredentialNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestPasskeyUserHandle(t *testing.T) {
	pu := NewPasskeyUser(&User{ID: 42, Username: "ravi"}, nil)

	id, err := UserIDFromHandle(pu.WebAuthnID())
	if err != nil {
		t.Fatalf("parse handle: %v", err)
	}
	if id != 42 {
		t.Errorf("id = %d, want 42", id)
	}
	if pu.WebAuthnName() != "ravi" {
		t.Errorf("name = %q", pu.WebAuthnName())
	}

	for _, bad := range []string{"", "abc", "0", "-3"} {
		if _, err := UserIDFromHandle([]byte(bad)); err == nil {
			t.Errorf("expected error for handle %q", bad)
		}
	}
}
