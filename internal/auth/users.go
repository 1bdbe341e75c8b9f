// Package auth provides accounts, password login, sessions, passkeys and
// role-based access middleware.
package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evcraddock/safe-estate/internal/db"
	"github.com/evcraddock/safe-estate/internal/page"
	"github.com/evcraddock/safe-estate/internal/validate"
)

// Role is an account type. It is fixed when the account is created.
type Role string

// Account roles.
const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleBuyer || r == RoleSeller || r == RoleAdmin
}

// UsersPerPage is the admin user list page size.
const UsersPerPage = 20

var (
	// ErrNotFound is returned when a user does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned for a wrong username or password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInactive is returned when a deactivated user tries to log in.
	ErrInactive = errors.New("account is inactive")
)

// User is an account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	IsVerified   bool      `json:"is_verified"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	PasswordHash string    `json:"-"`
}

// Registration is a self-service signup request.
type Registration struct {
	Username  string `json:"username" validate:"required,max=150,username"`
	Email     string `json:"email" validate:"required,max=254,email"`
	Password  string `json:"password" validate:"required"`
	Password2 string `json:"password2" validate:"required,eqfield=Password"`
	Role      Role   `json:"role" validate:"required,oneof=buyer seller"`
	Phone     string `json:"phone" validate:"max=15"`
	Address   string `json:"address"`
}

// ProfileUpdate holds the user-editable profile fields.
type ProfileUpdate struct {
	Phone   string `json:"phone" validate:"max=15"`
	Address string `json:"address"`
}

// UserFilter narrows the admin user list. Empty fields match everything.
type UserFilter struct {
	Role         string // buyer | seller | admin
	Status       string // active | inactive
	Verification string // verified | unverified
	Search       string // username or email contains
}

// UserStore manages accounts in SQLite.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a user store.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = "id, username, email, role, phone, address, is_verified, is_active, created_at, password_hash"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.Phone, &u.Address,
		&u.IsVerified, &u.IsActive, &u.CreatedAt, &u.PasswordHash); err != nil {
		return nil, err
	}
	return &u, nil
}

// Register validates reg and creates a buyer or seller account.
// Field problems are returned as validate.Errors.
func (s *UserStore) Register(reg Registration) (*User, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)
	reg.Phone = strings.TrimSpace(reg.Phone)

	errs := validate.Struct(reg)
	errs.Merge(PasswordErrors(reg.Password, reg.Username, reg.Email))
	if err := s.checkUnique(errs, reg.Username, reg.Email); err != nil {
		return nil, err
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	return s.insert(reg.Username, reg.Email, reg.Password, reg.Role, reg.Phone, reg.Address, false)
}

type adminAccount struct {
	Username string `json:"username" validate:"required,max=150,username"`
	Email    string `json:"email" validate:"required,max=254,email"`
	Password string `json:"password" validate:"required"`
}

// CreateAdmin creates a verified admin account.
func (s *UserStore) CreateAdmin(username, email, password string) (*User, error) {
	acct := adminAccount{
		Username: strings.TrimSpace(username),
		Email:    strings.TrimSpace(email),
		Password: password,
	}

	errs := validate.Struct(acct)
	errs.Merge(PasswordErrors(password, acct.Username, acct.Email))
	if err := s.checkUnique(errs, acct.Username, acct.Email); err != nil {
		return nil, err
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	return s.insert(acct.Username, acct.Email, password, RoleAdmin, "", "", true)
}

func (s *UserStore) checkUnique(errs validate.Errors, username, email string) error {
	if username != "" && !errs.Has("username") {
		taken, err := s.exists("username", username)
		if err != nil {
			return err
		}
		if taken {
			errs.Add("username", "A user with that username already exists.")
		}
	}
	if email != "" && !errs.Has("email") {
		taken, err := s.exists("email", email)
		if err != nil {
			return err
		}
		if taken {
			errs.Add("email", "A user with that email already exists.")
		}
	}
	return nil
}

func (s *UserStore) exists(column, value string) (bool, error) {
	var n int
	// column is one of two fixed identifiers
	if err := s.db.QueryRow(
		fmt.Sprintf("SELECT COUNT(*) FROM users WHERE %s = ? COLLATE NOCASE", column), value,
	).Scan(&n); err != nil {
		return false, fmt.Errorf("checking %s: %w", column, err)
	}
	return n > 0, nil
}

func (s *UserStore) insert(username, email, password string, role Role, phone, address string, verified bool) (*User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	result, err := s.db.Exec(
		`INSERT INTO users (username, email, password_hash, role, phone, address, is_verified, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		username, email, hash, role, phone, address, verified, time.Now().UTC(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			errs := validate.Errors{}
			errs.Add("username", "A user with that username or email already exists.")
			return nil, errs
		}
		return nil, fmt.Errorf("adding user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user ID: %w", err)
	}
	return s.GetByID(id)
}

// Authenticate checks a username/password pair.
func (s *UserStore) Authenticate(username, password string) (*User, error) {
	u, err := s.GetByUsername(strings.TrimSpace(username))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrInactive
	}
	return u, nil
}

// GetByID returns a user by ID.
func (s *UserStore) GetByID(id int64) (*User, error) {
	u, err := scanUser(s.db.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return u, nil
}

// GetByUsername returns a user by username, ignoring case.
func (s *UserStore) GetByUsername(username string) (*User, error) {
	u, err := scanUser(s.db.QueryRow("SELECT "+userColumns+" FROM users WHERE username = ? COLLATE NOCASE", username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return u, nil
}

// UpdateProfile replaces the user's phone and address.
func (s *UserStore) UpdateProfile(id int64, upd ProfileUpdate) (*User, error) {
	upd.Phone = strings.TrimSpace(upd.Phone)
	if err := validate.Struct(upd).Err(); err != nil {
		return nil, err
	}

	result, err := s.db.Exec("UPDATE users SET phone = ?, address = ? WHERE id = ?", upd.Phone, upd.Address, id)
	if err != nil {
		return nil, fmt.Errorf("updating profile: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

// ToggleActive flips the user's active flag and returns the updated user.
// Deactivated users lose their sessions.
func (s *UserStore) ToggleActive(id int64) (*User, error) {
	result, err := s.db.Exec("UPDATE users SET is_active = 1 - is_active WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("toggling user: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return nil, err
	}

	u, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		if _, err := s.db.Exec("DELETE FROM sessions WHERE user_id = ?", id); err != nil {
			return nil, fmt.Errorf("revoking sessions: %w", err)
		}
	}
	return u, nil
}

// List returns one page of users matching f, newest first.
func (s *UserStore) List(f UserFilter, pageNum string) ([]*User, page.Page, error) {
	var where []string
	var args []any

	if Role(f.Role).Valid() {
		where = append(where, "role = ?")
		args = append(args, f.Role)
	}
	switch f.Status {
	case "active":
		where = append(where, "is_active = 1")
	case "inactive":
		where = append(where, "is_active = 0")
	}
	switch f.Verification {
	case "verified":
		where = append(where, "is_verified = 1")
	case "unverified":
		where = append(where, "is_verified = 0")
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		where = append(where, "("+db.Like("username")+" OR "+db.Like("email")+")")
		like := db.Contains(q)
		args = append(args, like, like)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM users"+clause, args...).Scan(&total); err != nil {
		return nil, page.Page{}, fmt.Errorf("counting users: %w", err)
	}
	p := page.New(total, UsersPerPage, pageNum)

	users, err := s.query("SELECT "+userColumns+" FROM users"+clause+
		" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?", append(args, p.Size, p.Offset())...)
	if err != nil {
		return nil, page.Page{}, err
	}
	return users, p, nil
}

// Recent returns the n newest users.
func (s *UserStore) Recent(n int) ([]*User, error) {
	return s.query("SELECT "+userColumns+" FROM users ORDER BY created_at DESC, id DESC LIMIT ?", n)
}

// CountByRole returns the number of users per role.
func (s *UserStore) CountByRole() (map[Role]int, error) {
	rows, err := s.db.Query("SELECT role, COUNT(*) FROM users GROUP BY role")
	if err != nil {
		return nil, fmt.Errorf("counting users: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			fmt.Printf("warning: closing rows: %v\n", cerr)
		}
	}()

	counts := map[Role]int{RoleBuyer: 0, RoleSeller: 0, RoleAdmin: 0}
	for rows.Next() {
		var role Role
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[role] = n
	}
	return counts, rows.Err()
}

func (s *UserStore) query(q string, args ...any) ([]*User, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			fmt.Printf("warning: closing rows: %v\n", cerr)
		}
	}()

	users := []*User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
