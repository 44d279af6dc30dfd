package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// echoUser writes the context user ID (or "anonymous") so tests can see what
// the middleware decided.
var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	id, ok := UserIDFromContext(r.Context())
	if !ok {
		id = "anonymous"
	}
	_, _ = w.Write([]byte(id))
})

func TestRequireAuth(t *testing.T) {
	ts := newTestTokenService(t, time.Hour)
	valid, err := ts.Generate("user-1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	expired, err := ts.GenerateWithDuration("user-1", -time.Second)
	if err != nil {
		t.Fatalf("GenerateWithDuration: %v", err)
	}

	tests := []struct {
		name       string
		setup      func(r *http.Request)
		wantStatus int
		wantBody   string
	}{
		{
			name:       "no token",
			setup:      func(r *http.Request) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "valid cookie",
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: TokenCookie, Value: valid})
			},
			wantStatus: http.StatusOK,
			wantBody:   "user-1",
		},
		{
			name: "valid bearer header",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+valid)
			},
			wantStatus: http.StatusOK,
			wantBody:   "user-1",
		},
		{
			name: "lowercase bearer scheme",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "bearer "+valid)
			},
			wantStatus: http.StatusOK,
			wantBody:   "user-1",
		},
		{
			name: "basic scheme rejected",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "bad header wins over good cookie",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer garbage")
				r.AddCookie(&http.Cookie{Name: TokenCookie, Value: valid})
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "expired cookie",
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: TokenCookie, Value: expired})
			},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			RequireAuth(ts)(echoUser).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	ts := newTestTokenService(t, time.Hour)
	valid, _ := ts.Generate("user-2")

	t.Run("anonymous passes through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/s/abc", nil)
		rec := httptest.NewRecorder()
		OptionalAuth(ts)(echoUser).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK || rec.Body.String() != "anonymous" {
			t.Errorf("got %d %q, want 200 anonymous", rec.Code, rec.Body.String())
		}
	})

	t.Run("invalid token is ignored", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/s/abc", nil)
		req.AddCookie(&http.Cookie{Name: TokenCookie, Value: "nope"})
		rec := httptest.NewRecorder()
		OptionalAuth(ts)(echoUser).ServeHTTP(rec, req)

		if rec.Body.String() != "anonymous" {
			t.Errorf("body = %q, want anonymous", rec.Body.String())
		}
	})

	t.Run("valid token sets user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/s/abc", nil)
		req.AddCookie(&http.Cookie{Name: TokenCookie, Value: valid})
		rec := httptest.NewRecorder()
		OptionalAuth(ts)(echoUser).ServeHTTP(rec, req)

		if rec.Body.String() != "user-2" {
			t.Errorf("body = %q, want user-2", rec.Body.String())
		}
	})
}
