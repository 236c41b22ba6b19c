package yale

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/yale-alarm/internal/yaletest"
)

// newTestClient returns a client bound to fake with the fake's account.
func newTestClient(t *testing.T, fake *yaletest.Server, opts ...Option) *Client {
	t.Helper()

	opts = append([]Option{WithBaseURL(fake.URL())}, opts...)

	c, err := NewClient(Credentials{Username: yaletest.Username, Password: yaletest.Password}, opts...)
	require.NoError(t, err)

	return c
}

// loggedIn returns a client that has already logged in to fake.
func loggedIn(t *testing.T, fake *yaletest.Server, opts ...Option) *Client {
	t.Helper()

	c := newTestClient(t, fake, opts...)
	require.NoError(t, c.Login(context.Background()))

	return c
}

// newRawServer serves a valid token endpoint and passes every other request
// to handler. It returns the API root.
func newRawServer(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /yapi/o/token/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "raw-access",
			"refresh_token": "raw-refresh",
			"expires_in":    3600,
		})
	})
	mux.HandleFunc("/", handler)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv.URL + "/yapi"
}

// rawClient returns a client for a raw server without service discovery.
func rawClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()

	opts = append([]Option{WithBaseURL(baseURL), WithoutServiceDiscovery()}, opts...)

	c, err := NewClient(Credentials{Username: "u", Password: "p"}, opts...)
	require.NoError(t, err)

	return c
}

func writeBody(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

// newTokenServer answers every token request with status and body.
func newTokenServer(t *testing.T, status int, body string) string {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return srv.URL + "/yapi"
}
