package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/stories1001/publisher/internal/entities"
)

// Password policy. Accounts that can publish or grant roles need longer passwords.
const (
	MinPasswordLength           = 12
	MinPrivilegedPasswordLength = 16

	// bcrypt ignores everything past 72 bytes
	maxPasswordBytes = 72
)

// APITokenPrefix marks publisher API tokens so they stand out in logs and secret scanners.
const APITokenPrefix = "pub_"

var (
	ErrInvalidPassword          = errors.New("invalid password")
	ErrPasswordTooShort         = errors.New("password is too short")
	ErrPasswordTooLong          = errors.New("password exceeds maximum length of 72 bytes")
	ErrPasswordContainsUsername = errors.New("password must not contain the username")
)

// MinPasswordLengthFor returns the minimum password length for accounts holding role.
func MinPasswordLengthFor(role entities.UserRole) int {
	if role.IsPrivileged() {
		return MinPrivilegedPasswordLength
	}
	return MinPasswordLength
}

// ValidatePassword checks a new password for the account username holding role.
func ValidatePassword(password, username string, role entities.UserRole) error {
	if need := MinPasswordLengthFor(role); utf8.RuneCountInString(password) < need {
		return fmt.Errorf("%w: %s accounts need at least %d characters", ErrPasswordTooShort, role, need)
	}
	if len(password) > maxPasswordBytes {
		return ErrPasswordTooLong
	}
	if len(username) >= 3 && strings.Contains(strings.ToLower(password), strings.ToLower(username)) {
		return ErrPasswordContainsUsername
	}
	return nil
}

func normalizeCost(cost int) int {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return cost
}

// HashPassword hashes a password that already passed ValidatePassword.
func HashPassword(password string, cost int) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), normalizeCost(cost))
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a password with its stored hash.
func CheckPassword(password, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrInvalidPassword
	}
	return err
}

// NeedsRehash reports whether hash was made with a cost other than the configured one.
func NeedsRehash(hash string, cost int) bool {
	current, err := bcrypt.Cost([]byte(hash))
	return err == nil && current != normalizeCost(cost)
}

// GenerateAPIToken returns a new bearer token and the hash to store.
// The plaintext is shown to the user once.
func GenerateAPIToken() (plaintext string, hash string, err error) {
	secret, err := randomHex(32)
	if err != nil {
		return "", "", err
	}
	plaintext = APITokenPrefix + secret
	return plaintext, HashToken(plaintext), nil
}

// HashToken returns the SHA-256 hex digest stored for an API token.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// GenerateSessionSecret returns a random 32-byte hex secret for CSRF and session signing.
func GenerateSessionSecret() (string, error) {
	return randomHex(32)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
