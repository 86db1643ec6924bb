// Package password hashes account passwords with bcrypt and owns the
// password policy.
package password

import (
	"golang.org/x/crypto/bcrypt"

	appErr "github.com/xxxsen/yawiki/internal/pkg/errors"
)

const (
	MinLength = 6
	// bcrypt ignores everything after 72 bytes.
	MaxLength = 72
)

var cost = bcrypt.DefaultCost

// Validate checks plain against the password policy.
func Validate(plain string) error {
	if len(plain) < MinLength {
		return appErr.Invalid("password must be at least %d characters", MinLength)
	}
	if len(plain) > MaxLength {
		return appErr.Invalid("password must be at most %d bytes", MaxLength)
	}
	return nil
}

func Hash(plain string) (string, error) {
	if err := Validate(plain); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Match reports whether plain belongs to hash.
func Match(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// NeedsRehash is true for hashes produced with a different cost than the
// current one, or for values that are not bcrypt hashes at all.
func NeedsRehash(hash string) bool {
	c, err := bcrypt.Cost([]byte(hash))
	return err != nil || c != cost
}
