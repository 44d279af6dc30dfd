package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testJWTSecret = "owner-session-secret-0123"

func newTestTokenService(t *testing.T, ttl time.Duration) *TokenService {
	t.Helper()
	ts, err := NewTokenService(testJWTSecret, ttl)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// signClaims mints a token with arbitrary registered claims, the way a
// foreign service sharing our secret (or an attacker holding it) would.
func signClaims(t *testing.T, method jwt.SigningMethod, key any, rc jwt.RegisteredClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, rc).SignedString(key)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return tok
}

func parseUnverified(t *testing.T, tok string) *jwt.RegisteredClaims {
	t.Helper()
	var rc jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &rc); err != nil {
		t.Fatalf("ParseUnverified: %v", err)
	}
	return &rc
}

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		ttl     time.Duration
		wantErr bool
		wantTTL time.Duration
	}{
		{name: "short secret", secret: "short", ttl: time.Hour, wantErr: true},
		{name: "configured ttl", secret: "exactly-16-chars", ttl: 90 * time.Minute, wantTTL: 90 * time.Minute},
		{name: "zero ttl falls back", secret: testJWTSecret, wantTTL: DefaultTokenTTL},
		{name: "negative ttl falls back", secret: testJWTSecret, ttl: -time.Hour, wantTTL: DefaultTokenTTL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, err := NewTokenService(tt.secret, tt.ttl)
			if tt.wantErr {
				if err == nil {
					t.Fatal("NewTokenService() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewTokenService() error = %v", err)
			}
			if ts.TTL() != tt.wantTTL {
				t.Errorf("TTL() = %v, want %v", ts.TTL(), tt.wantTTL)
			}
		})
	}
}

func TestGenerate_SessionClaims(t *testing.T) {
	const ttl = 45 * time.Minute
	ts := newTestTokenService(t, ttl)

	before := time.Now().Add(-time.Second)
	tok, err := ts.Generate("cs8v1k2ujvh6a0o4kq10")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	rc := parseUnverified(t, tok)
	if rc.Issuer != "secret-share" {
		t.Errorf("iss = %q, want secret-share", rc.Issuer)
	}
	if rc.Subject != "cs8v1k2ujvh6a0o4kq10" {
		t.Errorf("sub = %q", rc.Subject)
	}
	if rc.ExpiresAt == nil || rc.IssuedAt == nil {
		t.Fatal("exp and iat must both be set")
	}
	if got := rc.ExpiresAt.Sub(rc.IssuedAt.Time); got != ttl {
		t.Errorf("exp - iat = %v, want the configured %v", got, ttl)
	}
	if rc.IssuedAt.Before(before) {
		t.Errorf("iat = %v, earlier than the call", rc.IssuedAt)
	}

	userID, err := ts.Validate(tok)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if userID != "cs8v1k2ujvh6a0o4kq10" {
		t.Errorf("Validate() = %q", userID)
	}
}

func TestValidate_Rejects(t *testing.T) {
	ts := newTestTokenService(t, time.Hour)
	now := time.Now()

	valid := func() jwt.RegisteredClaims {
		return jwt.RegisteredClaims{
			Subject:   "owner-1",
			Issuer:    "secret-share",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		}
	}
	with := func(edit func(*jwt.RegisteredClaims)) jwt.RegisteredClaims {
		rc := valid()
		edit(&rc)
		return rc
	}

	expired, err := ts.GenerateWithDuration("owner-1", -time.Second)
	if err != nil {
		t.Fatalf("GenerateWithDuration() error = %v", err)
	}
	good, err := ts.Generate("owner-1")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	parts := strings.Split(good, ".")

	hs256 := jwt.SigningMethodHS256
	key := []byte(testJWTSecret)

	tests := []struct {
		name  string
		token string
	}{
		{name: "expired session", token: expired},
		{name: "other issuer", token: signClaims(t, hs256, key, with(func(rc *jwt.RegisteredClaims) { rc.Issuer = "coding-playground" }))},
		{name: "no issuer", token: signClaims(t, hs256, key, with(func(rc *jwt.RegisteredClaims) { rc.Issuer = "" }))},
		{name: "no expiry", token: signClaims(t, hs256, key, with(func(rc *jwt.RegisteredClaims) { rc.ExpiresAt = nil }))},
		{name: "no subject", token: signClaims(t, hs256, key, with(func(rc *jwt.RegisteredClaims) { rc.Subject = "" }))},
		{name: "other secret", token: signClaims(t, hs256, []byte("not-the-server-secret"), valid())},
		{name: "HS512", token: signClaims(t, jwt.SigningMethodHS512, key, valid())},
		{name: "alg none", token: signClaims(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid())},
		{name: "payload swapped", token: parts[0] + "." + strings.Split(expired, ".")[1] + "." + parts[2]},
		{name: "empty", token: ""},
		{name: "garbage", token: "not.a.jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if userID, err := ts.Validate(tt.token); err == nil {
				t.Errorf("Validate() = %q, want error", userID)
			}
		})
	}
}

func TestValidate_SessionsDoNotCrossSecrets(t *testing.T) {
	a := newTestTokenService(t, time.Hour)
	b, err := NewTokenService("a-different-deployment-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	tok, err := a.Generate("owner-1")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := b.Validate(tok); err == nil {
		t.Error("a token from one secret must not validate under another")
	}
}

func TestValidate_ExpiredMessage(t *testing.T) {
	ts := newTestTokenService(t, time.Hour)

	tok, err := ts.GenerateWithDuration("owner-1", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateWithDuration() error = %v", err)
	}
	_, err = ts.Validate(tok)
	if err == nil || !strings.Contains(err.Error(), "expired") {
		t.Errorf("Validate() error = %v, want an expiry error", err)
	}
}
