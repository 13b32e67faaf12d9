package togo

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pytivogo/bridge/internal/log"
	"golang.org/x/time/rate"
)

// busyRetryInterval is the TiVo-busy backoff of spec.md §4.5 step 3:
// "Retry on HTTP 503 indefinitely with 5 s backoff."
const busyRetryInterval = 5 * time.Second

// busyLogLimiter caps how often a wedged TiVo's repeated 503s get logged,
// per SPEC_FULL.md §0 ("golang.org/x/time/rate caps the rate of retry-503
// log lines so a wedged TiVo doesn't flood logs"). One line per backoff
// interval is already the natural ceiling; this guards against a TiVo that
// answers 503 faster than the backoff, e.g. under test.
var busyLogLimiter = rate.NewLimiter(rate.Every(busyRetryInterval), 1)

// NewClient builds an HTTPS client ToGo workers use to pull from a TiVo,
// authenticated with Digest using mak as the password. Each call returns a
// new Client with its own DigestTransport; Worker.RunOne calls it once per
// job, so the nonce a transport negotiates is not shared between jobs.
func NewClient(mak string) *http.Client {
	return &http.Client{Transport: &DigestTransport{Password: mak}}
}

// Open performs GET rawURL, retrying indefinitely on a 503 "TiVo busy"
// response (spec.md §4.5 step 3). It returns once a non-503 response
// arrives or ctx is cancelled.
func Open(ctx context.Context, client *http.Client, rawURL string) (*http.Response, error) {
	logger := log.WithComponent("togo")
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("togo: opening %s: %w", rawURL, err)
		}
		if resp.StatusCode != http.StatusServiceUnavailable {
			return resp, nil
		}
		resp.Body.Close()
		if busyLogLimiter.Allow() {
			logger.Debug().Str("event", "togo.tivo_busy").Str("url", rawURL).Msg("TiVo busy, retrying")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(busyRetryInterval):
		}
	}
}
