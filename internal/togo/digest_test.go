package togo

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestTransportAuthenticates(t *testing.T) {
	var sawCookie, sawAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("sid"); err == nil {
			sawCookie = c.Value
		}
		auth := r.Header.Get("Authorization")
		if auth == "" {
			w.Header().Set("WWW-Authenticate", `Digest realm="TiVo DVR", nonce="abc123", qop="auth"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		sawAuth = auth
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := &http.Client{Transport: &DigestTransport{Password: "MAK12345"}}
	resp, err := client.Get(srv.URL + "/TiVoConnect")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, sidCookieValue, sawCookie)
	assert.Contains(t, sawAuth, `username="tivo"`)
	assert.Contains(t, sawAuth, `realm="TiVo DVR"`)
}

func TestDigestTransportReusesNonceOnSecondRequest(t *testing.T) {
	challenges := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			challenges++
			w.Header().Set("WWW-Authenticate", `Digest realm="TiVo DVR", nonce="n1", qop="auth"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	transport := &DigestTransport{Password: "MAK"}
	client := &http.Client{Transport: transport}

	for i := 0; i < 2; i++ {
		resp, err := client.Get(srv.URL + "/x")
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.Equal(t, 1, challenges, "second request should reuse the learned nonce, not re-challenge")
}

func TestParseDigestChallenge(t *testing.T) {
	ch, ok := parseDigestChallenge(`Digest realm="TiVo DVR", nonce="abc", qop="auth", opaque="xyz"`)
	require.True(t, ok)
	assert.Equal(t, "TiVo DVR", ch.realm)
	assert.Equal(t, "abc", ch.nonce)
	assert.Equal(t, "auth", ch.qop)
	assert.Equal(t, "xyz", ch.opaque)
}
