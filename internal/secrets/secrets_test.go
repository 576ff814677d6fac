package secrets

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serverSecrets(t *testing.T, srv *httptest.Server) Secrets {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse server URL: %v", err)
	}
	port, _ := strconv.Atoi(u.Port())
	return Secrets{Hostname: u.Hostname(), Port: port, Protocol: "http"}
}

func TestHostURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		s    Secrets
		want string
	}{
		{"plain", Secrets{Hostname: "localhost", Port: 7878, Protocol: "http"}, "http://localhost:7878"},
		{"url_base", Secrets{Hostname: "media", Port: 443, Protocol: "https", URLBase: "/radarr/"}, "https://media:443/radarr"},
	}
	for _, tc := range cases {
		if got := tc.s.HostURL(); got != tc.want {
			t.Errorf("%s: HostURL() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestGetBootstrapsAPIKey(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/initialize.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		io.WriteString(w, `{"apiKey": "abc123", "version": "5.2.6.8376"}`)
	}))
	defer srv.Close()

	got, err := Get(context.Background(), serverSecrets(t, srv), discard())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.APIKey != "abc123" {
		t.Errorf("APIKey = %q, want abc123", got.APIKey)
	}
	if got.Version != "5.2.6.8376" {
		t.Errorf("Version = %q", got.Version)
	}
}

func TestGetKeepsConfiguredKey(t *testing.T) {
	t.Parallel()

	s := Secrets{Hostname: "localhost", Port: 7878, Protocol: "http", APIKey: "configured"}
	got, err := Get(context.Background(), s, discard())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.APIKey != "configured" {
		t.Errorf("APIKey = %q, want the configured key untouched", got.APIKey)
	}
}

func TestGetAuthenticationEnabled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := Get(context.Background(), serverSecrets(t, srv), discard())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestTest(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/system/status" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		io.WriteString(w, `{"version": "5.2.6.8376"}`)
	}))
	defer srv.Close()

	good := serverSecrets(t, srv)
	good.APIKey = "good"
	ok, err := Test(context.Background(), good, discard())
	if err != nil || !ok {
		t.Errorf("Test with valid key = (%v, %v), want (true, nil)", ok, err)
	}

	bad := serverSecrets(t, srv)
	bad.APIKey = "bad"
	ok, err = Test(context.Background(), bad, discard())
	if err != nil {
		t.Fatalf("Test with rejected key: %v", err)
	}
	if ok {
		t.Error("Test reported success for a rejected key")
	}
}
