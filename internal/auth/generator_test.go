package auth

import (
	"testing"
)

func isAlphanumeric(s string) bool {
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

func TestGenerate_DefaultLength(t *testing.T) {
	g := NewPasswordGenerator(0)

	pw := g.Generate()
	if len(pw) != DefaultPasswordLength {
		t.Errorf("len(Generate()) = %d, want %d", len(pw), DefaultPasswordLength)
	}
	if !isAlphanumeric(pw) {
		t.Errorf("Generate() = %q, want only letters and digits", pw)
	}
}

func TestGenerateN_Lengths(t *testing.T) {
	g := NewPasswordGenerator(DefaultPasswordLength)

	for _, n := range []int{1, 8, 15, 32, 72, 200} {
		pw := g.GenerateN(n)
		if len(pw) != n {
			t.Errorf("len(GenerateN(%d)) = %d", n, len(pw))
		}
		if !isAlphanumeric(pw) {
			t.Errorf("GenerateN(%d) = %q, want only letters and digits", n, pw)
		}
	}
	if pw := g.GenerateN(0); pw != "" {
		t.Errorf("GenerateN(0) = %q, want empty", pw)
	}
}

func TestGenerate_ConsecutiveCallsDiffer(t *testing.T) {
	g := NewPasswordGenerator(DefaultPasswordLength)

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		pw := g.Generate()
		if seen[pw] {
			t.Fatalf("Generate() repeated %q after %d calls", pw, i)
		}
		seen[pw] = true
	}
}
