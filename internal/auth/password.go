package auth

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/evcraddock/safe-estate/internal/validate"
)

const minPasswordLength = 8

// bcrypt rejects input longer than 72 bytes.
const maxPasswordBytes = 72

var commonPasswords = map[string]bool{
	"password": true, "password1": true, "password123": true, "12345678": true,
	"123456789": true, "1234567890": true, "qwerty123": true, "qwertyuiop": true,
	"iloveyou": true, "sunshine": true, "princess": true, "football": true,
	"baseball": true, "welcome1": true, "welcome123": true, "abc12345": true,
	"abcd1234": true, "admin123": true, "letmein1": true, "passw0rd": true,
	"trustno1": true, "11111111": true, "00000000": true, "87654321": true,
	"superman": true, "starwars": true, "dragon123": true, "monkey123": true,
	"whatever": true, "computer": true, "internet": true, "michelle": true,
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// PasswordErrors returns strength problems with password, keyed "password".
// username and email are used to reject passwords too close to them.
func PasswordErrors(password, username, email string) validate.Errors {
	errs := validate.Errors{}
	if password == "" {
		return errs
	}

	if len([]rune(password)) < minPasswordLength {
		errs.Add("password", fmt.Sprintf("This password is too short. It must contain at least %d characters.", minPasswordLength))
	}
	if len(password) > maxPasswordBytes {
		errs.Add("password", fmt.Sprintf("This password is too long. It must contain at most %d bytes.", maxPasswordBytes))
	}
	if strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) == -1 {
		errs.Add("password", "This password is entirely numeric.")
	}
	if commonPasswords[strings.ToLower(password)] {
		errs.Add("password", "This password is too common.")
	}
	if similarTo(password, username) || similarTo(password, localPart(email)) {
		errs.Add("password", "The password is too similar to your account details.")
	}
	return errs
}

func localPart(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}

func similarTo(password, attr string) bool {
	p := strings.ToLower(password)
	a := strings.ToLower(attr)
	if len(a) < 3 {
		return false
	}
	return strings.Contains(p, a) || strings.Contains(a, p)
}
