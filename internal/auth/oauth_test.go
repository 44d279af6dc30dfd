package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

// fakeGitHub serves the token endpoint and the /user endpoint.
func fakeGitHub(t *testing.T, userStatus int, userBody string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"bad_verification_code"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"gho_test","token_type":"bearer"}`))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer gho_test" {
			t.Errorf("Authorization = %q, want Bearer gho_test", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(userStatus)
		_, _ = w.Write([]byte(userBody))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newFakeProvider(srv *httptest.Server) *GitHubProvider {
	return newGitHubProviderWithEndpoints("cid", "csecret", "http://localhost/cb",
		oauth2.Endpoint{
			AuthURL:   srv.URL + "/login/oauth/authorize",
			TokenURL:  srv.URL + "/login/oauth/access_token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		srv.URL+"/user",
	)
}

func TestAuthURL_CarriesStateAndClient(t *testing.T) {
	p := NewGitHubProvider("client-123", "secret", "http://localhost:8080/auth/github/callback")

	u, err := url.Parse(p.AuthURL("state-xyz"))
	if err != nil {
		t.Fatalf("parse AuthURL: %v", err)
	}
	q := u.Query()
	if q.Get("state") != "state-xyz" {
		t.Errorf("state = %q", q.Get("state"))
	}
	if q.Get("client_id") != "client-123" {
		t.Errorf("client_id = %q", q.Get("client_id"))
	}
	if !strings.Contains(q.Get("scope"), "read:user") {
		t.Errorf("scope = %q, want read:user", q.Get("scope"))
	}
}

func TestExchange_Success(t *testing.T) {
	srv := fakeGitHub(t, http.StatusOK, `{"id":42,"login":"octo","email":"o@example.com","avatar_url":"http://a/x.png"}`)
	p := newFakeProvider(srv)

	u, err := p.Exchange(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if u.ID != 42 || u.Login != "octo" || u.Email != "o@example.com" || u.AvatarURL != "http://a/x.png" {
		t.Errorf("unexpected user: %+v", u)
	}
}

func TestExchange_Errors(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		userStatus int
		userBody   string
	}{
		{"bad code", "bad-code", http.StatusOK, `{"id":1}`},
		{"user api failure", "good-code", http.StatusInternalServerError, `{}`},
		{"zero id", "good-code", http.StatusOK, `{"id":0,"login":"ghost"}`},
		{"malformed body", "good-code", http.StatusOK, `{not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := fakeGitHub(t, tt.userStatus, tt.userBody)
			p := newFakeProvider(srv)

			if _, err := p.Exchange(context.Background(), tt.code); err == nil {
				t.Error("Exchange() expected an error, got nil")
			}
		})
	}
}
