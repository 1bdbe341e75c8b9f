package auth

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
)

// ErrCredentialNotFound is returned when deleting an unknown passkey.
var ErrCredentialNotFound = errors.New("credential not found")

// PasskeyUser adapts a User to webauthn.User.
type PasskeyUser struct {
	user        *User
	credentials []webauthn.Credential
}

// NewPasskeyUser creates a PasskeyUser for u.
func NewPasskeyUser(u *User, credentials []webauthn.Credential) *PasskeyUser {
	return &PasskeyUser{user: u, credentials: credentials}
}

// User returns the wrapped account.
func (u *PasskeyUser) User() *User { return u.user }

// WebAuthnID returns the decimal user ID. It doubles as the user handle
// presented during discoverable login.
func (u *PasskeyUser) WebAuthnID() []byte {
	return []byte(strconv.FormatInt(u.user.ID, 10))
}

// WebAuthnName returns the username.
func (u *PasskeyUser) WebAuthnName() string { return u.user.Username }

// WebAuthnDisplayName returns the username.
func (u *PasskeyUser) WebAuthnDisplayName() string { return u.user.Username }

// WebAuthnCredentials returns the stored credentials.
func (u *PasskeyUser) WebAuthnCredentials() []webauthn.Credential { return u.credentials }

// UserIDFromHandle parses a user handle produced by WebAuthnID.
func UserIDFromHandle(handle []byte) (int64, error) {
	id, err := strconv.ParseInt(string(handle), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user handle")
	}
	return id, nil
}

// PasskeyStore manages passkey credentials in SQLite.
type PasskeyStore struct {
	db *sql.DB
}

// NewPasskeyStore creates a passkey store.
func NewPasskeyStore(db *sql.DB) *PasskeyStore {
	return &PasskeyStore{db: db}
}

// StoredCredential is a passkey credential with metadata.
type StoredCredential struct {
	ID         string              `json:"id"`
	UserID     int64               `json:"user_id"`
	Name       string              `json:"name"`
	Credential webauthn.Credential `json:"-"`
}

// Save stores a new passkey credential for userID.
func (s *PasskeyStore) Save(userID int64, name string, cred *webauthn.Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("marshaling credential: %w", err)
	}

	id := fmt.Sprintf("%x", cred.ID)
	if _, err := s.db.Exec(
		"INSERT INTO passkey_credentials (id, user_id, name, credential_json, created_at) VALUES (?, ?, ?, ?, ?)",
		id, userID, name, string(data), time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("storing credential: %w", err)
	}

	return nil
}

// ListByUser returns all credentials for userID.
func (s *PasskeyStore) ListByUser(userID int64) ([]StoredCredential, error) {
	rows, err := s.db.Query(
		"SELECT id, user_id, name, credential_json FROM passkey_credentials WHERE user_id = ? ORDER BY created_at",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying credentials: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			fmt.Printf("closing rows: %v\n", err)
		}
	}()

	var result []StoredCredential
	for rows.Next() {
		var sc StoredCredential
		var data string
		if err := rows.Scan(&sc.ID, &sc.UserID, &sc.Name, &data); err != nil {
			return nil, fmt.Errorf("scanning credential: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &sc.Credential); err != nil {
			return nil, fmt.Errorf("unmarshaling credential: %w", err)
		}
		result = append(result, sc)
	}

	return result, rows.Err()
}

// WebAuthnCredentials returns just the webauthn.Credential slice for userID.
func (s *PasskeyStore) WebAuthnCredentials(userID int64) ([]webauthn.Credential, error) {
	stored, err := s.ListByUser(userID)
	if err != nil {
		return nil, err
	}

	creds := make([]webauthn.Credential, len(stored))
	for i, sc := range stored {
		creds[i] = sc.Credential
	}

	return creds, nil
}

// Delete removes one of userID's credentials.
func (s *PasskeyStore) Delete(id string, userID int64) error {
	result, err := s.db.Exec(
		"DELETE FROM passkey_credentials WHERE id = ? AND user_id = ?",
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if rows == 0 {
		return ErrCredentialNotFound
	}

	return nil
}
