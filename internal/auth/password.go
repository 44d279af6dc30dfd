// Package auth: password hashing utilities.
//
// WHY BCRYPT?
// bcrypt is a password hashing function specifically designed to be slow.
// That slowness makes brute-forcing an item password expensive even if the
// items table leaks.
//
// bcrypt automatically:
//   - Generates a random salt (two items with the same password get different hashes)
//   - Embeds the salt in the output hash (no separate salt column needed)
//   - Controls the work factor via "cost" (higher = slower = harder to crack)
//
// Hash format (the full output of bcrypt.GenerateFromPassword):
//
//	$2a$12$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost (12 rounds → 2^12 = 4096 iterations)
//	 version
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used in production.
const DefaultCost = 12

// MaxPasswordBytes is the bcrypt input limit. Longer inputs are rejected
// rather than silently truncated.
const MaxPasswordBytes = 72

// ErrPasswordTooLong is returned by Hash for inputs over MaxPasswordBytes.
var ErrPasswordTooLong = errors.New("auth: password must be 72 bytes or fewer")

// decoyPassword is hashed once per PasswordService and compared against on
// lookups that found no item, so a miss costs one bcrypt comparison too.
const decoyPassword = "decoy-password-for-timing"

// PasswordService provides bcrypt hashing and verification.
//
// It's a struct (not free functions) so that the cost can be injected
// in tests; cost 4 makes tests run much faster without changing the logic.
type PasswordService struct {
	cost      int
	decoyHash []byte
}

// NewPasswordService creates a PasswordService with the given bcrypt cost.
// Out-of-range costs fall back to DefaultCost.
func NewPasswordService(cost int) *PasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return newPasswordService(cost)
}

// NewPasswordServiceForTest creates a PasswordService with the given (low) cost
// without range correction. Do NOT use in production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return newPasswordService(cost)
}

// newPasswordService hashes the decoy up front so the first miss after
// startup costs one comparison, like every later one.
func newPasswordService(cost int) *PasswordService {
	p := &PasswordService{cost: cost}
	if h, err := bcrypt.GenerateFromPassword([]byte(decoyPassword), cost); err == nil {
		p.decoyHash = h
	}
	return p
}

// Hash hashes the given plaintext password with bcrypt.
//
// Store the returned string directly; it includes the salt and cost.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify reports whether plaintext matches the stored bcrypt hash.
//
// It never returns an error: a malformed or empty hash simply does not
// verify. Callers treat "wrong password" and "broken hash" the same way.
//
// bcrypt.CompareHashAndPassword compares in constant time, so the response
// time does not reveal how many leading bytes were right.
func (p *PasswordService) Verify(plaintext, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// VerifyDecoy burns one bcrypt comparison against a fixed hash and always
// returns false. Used when there is no real hash to check.
func (p *PasswordService) VerifyDecoy(plaintext string) bool {
	if p.decoyHash != nil {
		_ = bcrypt.CompareHashAndPassword(p.decoyHash, []byte(plaintext))
	}
	return false
}
