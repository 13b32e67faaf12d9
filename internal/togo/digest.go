package togo

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// digestRealm and digestUsername are fixed by the TiVo DVR's own HTTP
// server, per spec.md §4.5 step 3.
const (
	digestRealm    = "TiVo DVR"
	digestUsername = "tivo"
	sidCookieValue = "ADEADDA7EDEBAC1E"
)

// digestChallenge is the parsed WWW-Authenticate header of a 401 response.
type digestChallenge struct {
	realm  string
	nonce  string
	qop    string
	opaque string
}

func parseDigestChallenge(header string) (digestChallenge, bool) {
	if !strings.HasPrefix(header, "Digest ") {
		return digestChallenge{}, false
	}
	fields := map[string]string{}
	for _, part := range splitDigestParams(strings.TrimPrefix(header, "Digest ")) {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		fields[strings.TrimSpace(kv[0])] = strings.Trim(strings.TrimSpace(kv[1]), `"`)
	}
	return digestChallenge{realm: fields["realm"], nonce: fields["nonce"], qop: fields["qop"], opaque: fields["opaque"]}, fields["nonce"] != ""
}

func splitDigestParams(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '"':
			depth ^= 1
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func randomCNonce() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// DigestTransport is an http.RoundTripper implementing RFC 7616 HTTP
// Digest authentication against a TiVo's HTTPS server (spec.md §4.5 step
// 3: realm "TiVo DVR", username "tivo", password the TiVo's MAK), plus the
// fixed `sid=ADEADDA7EDEBAC1E` cookie every request carries. Grounded in
// shape on the teacher's own single-purpose RoundTripper wrappers
// (ManuGH-xg2g/internal/openwebif/client.go); no library in the pack
// implements RFC 7616 digest auth (grepped for "digest" — see DESIGN.md).
type DigestTransport struct {
	Base     http.RoundTripper
	Password string // the TiVo MAK

	mu    sync.Mutex
	nc    uint32
	nonce digestChallenge
	have  bool
}

func (t *DigestTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// RoundTrip sends req, transparently answering a 401 Digest challenge (or
// reusing the previously learned nonce) before retrying once.
func (t *DigestTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.AddCookie(&http.Cookie{Name: "sid", Value: sidCookieValue})

	t.mu.Lock()
	have := t.have
	ch := t.nonce
	t.mu.Unlock()

	if have {
		req2 := req.Clone(req.Context())
		req2.Header.Set("Authorization", t.authorize(req2, ch))
		resp, err := t.base().RoundTrip(req2)
		if err != nil || resp.StatusCode != http.StatusUnauthorized {
			return resp, err
		}
		resp.Body.Close()
	}

	resp, err := t.base().RoundTrip(cloneForChallenge(req))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	challenge, ok := parseDigestChallenge(resp.Header.Get("WWW-Authenticate"))
	resp.Body.Close()
	if !ok {
		return resp, nil
	}

	t.mu.Lock()
	t.nonce = challenge
	t.have = true
	t.mu.Unlock()

	req2 := req.Clone(req.Context())
	req2.Header.Set("Authorization", t.authorize(req2, challenge))
	return t.base().RoundTrip(req2)
}

func cloneForChallenge(req *http.Request) *http.Request {
	return req.Clone(req.Context())
}

func (t *DigestTransport) authorize(req *http.Request, ch digestChallenge) string {
	t.mu.Lock()
	t.nc++
	nc := t.nc
	t.mu.Unlock()

	ha1 := md5hex(fmt.Sprintf("%s:%s:%s", digestUsername, digestRealm, t.Password))
	ha2 := md5hex(fmt.Sprintf("%s:%s", req.Method, req.URL.RequestURI()))
	cnonce := randomCNonce()
	ncStr := fmt.Sprintf("%08x", nc)

	var response string
	if ch.qop != "" {
		response = md5hex(fmt.Sprintf("%s:%s:%s:%s:%s:%s", ha1, ch.nonce, ncStr, cnonce, ch.qop, ha2))
	} else {
		response = md5hex(fmt.Sprintf("%s:%s:%s", ha1, ch.nonce, ha2))
	}

	header := fmt.Sprintf(`Digest username="%s", realm="%s", nonce="%s", uri="%s", response="%s"`,
		digestUsername, digestRealm, ch.nonce, req.URL.RequestURI(), response)
	if ch.qop != "" {
		header += fmt.Sprintf(`, qop=%s, nc=%s, cnonce="%s"`, ch.qop, ncStr, cnonce)
	}
	if ch.opaque != "" {
		header += fmt.Sprintf(`, opaque="%s"`, ch.opaque)
	}
	return header
}

