package auth

import (
	"crypto/rand"
)

// DefaultPasswordLength is the length of generated item passwords.
const DefaultPasswordLength = 15

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// rejectAbove is the largest multiple of len(passwordAlphabet) that fits in a
// byte. Bytes at or above it are discarded so every letter is equally likely.
const rejectAbove = 256 - 256%len(passwordAlphabet)

// PasswordGenerator produces random alphanumeric passwords from crypto/rand.
type PasswordGenerator struct {
	length int
}

// NewPasswordGenerator returns a generator for passwords of the given length.
// Non-positive lengths fall back to DefaultPasswordLength.
func NewPasswordGenerator(length int) *PasswordGenerator {
	if length <= 0 {
		length = DefaultPasswordLength
	}
	return &PasswordGenerator{length: length}
}

// Generate returns a password of the generator's default length.
func (g *PasswordGenerator) Generate() string {
	return g.GenerateN(g.length)
}

// GenerateN returns a password of exactly n characters drawn from
// [a-zA-Z0-9]. crypto/rand.Read does not fail on supported platforms.
func (g *PasswordGenerator) GenerateN(n int) string {
	if n <= 0 {
		return ""
	}

	out := make([]byte, 0, n)
	buf := make([]byte, n*2)
	for len(out) < n {
		_, _ = rand.Read(buf)
		for _, b := range buf {
			if int(b) >= rejectAbove {
				continue
			}
			out = append(out, passwordAlphabet[int(b)%len(passwordAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out)
}
