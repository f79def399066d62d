package util

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"unicode"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for stored password hashes. Changing them invalidates
// every stored hash.
const (
	saltLength   = 16
	hashLength   = 32
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4

	minPasswordLength = 12
)

var (
	ErrEmptyPassword = errors.New("password cannot be empty")
	ErrWeakPassword  = errors.New("password is too weak")
)

// CheckPasswordStrength is applied when an account is provisioned; login never
// checks strength.
func CheckPasswordStrength(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: at least %d characters required", ErrWeakPassword, minPasswordLength)
	}
	var classes int
	var upper, lower, digit, other bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			other = true
		}
	}
	for _, ok := range []bool{upper, lower, digit, other} {
		if ok {
			classes++
		}
	}
	if classes < 3 {
		return fmt.Errorf("%w: mix at least three of upper case, lower case, digits and symbols", ErrWeakPassword)
	}
	return nil
}

// DerivePassword hashes password under a fresh random salt.
func DerivePassword(password string) (hash, salt []byte, err error) {
	if password == "" {
		return nil, nil, ErrEmptyPassword
	}
	salt = make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("generate salt: %w", err)
	}
	return hashPassword(password, salt), salt, nil
}

// VerifyPassword compares in constant time. Accounts without a stored hash
// never verify.
func VerifyPassword(password string, salt, expectedHash []byte) bool {
	if password == "" || len(salt) == 0 || len(expectedHash) != hashLength {
		return false
	}
	return subtle.ConstantTimeCompare(hashPassword(password, salt), expectedHash) == 1
}

func hashPassword(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, hashLength)
}
