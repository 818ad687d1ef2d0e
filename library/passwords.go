package library

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordScheme decides how passwords of newly added users are stored.
//
// PlainPasswords keeps the legacy behaviour of storing and comparing plaintext. It is a
// known weakness kept so existing data files stay usable; prefer BcryptPasswords.
type PasswordScheme string

const (
	PlainPasswords  PasswordScheme = "plain"
	BcryptPasswords PasswordScheme = "bcrypt"
)

// ParsePasswordScheme validates a configured scheme name.
func ParsePasswordScheme(s string) (PasswordScheme, error) {
	switch p := PasswordScheme(s); p {
	case PlainPasswords, BcryptPasswords:
		return p, nil
	}
	return "", fmt.Errorf("unknown password scheme %q", s)
}

func (s PasswordScheme) hash(plain string) (string, error) {
	if s != BcryptPasswords {
		return plain, nil
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// verifyPassword compares against a bcrypt hash when stored is one, otherwise by exact
// string match, so plaintext records keep working under either scheme.
func verifyPassword(stored, plain string) bool {
	if _, err := bcrypt.Cost([]byte(stored)); err == nil {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(plain)) == nil
	}
	return stored == plain
}
