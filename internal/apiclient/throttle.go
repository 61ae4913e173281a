// Package apiclient implements the rate-limited, retrying HTTP client
// contract shared by the discogs and lastfm metadata workers (spec §4.4,
// §5): a minimum inter-call interval per client (2s Discogs, 1s Last.fm)
// and a retry policy on transient failures. Grounded on the pack's
// internal/ratelimit.Limiter (golang.org/x/time/rate usage, one limiter per
// scope) generalized from per-IP/per-mode HTTP-server throttling to a
// single per-process outbound-call throttle — each metadata worker holds
// exactly one apiclient.Client, enforcing spec §5's "each API client is a
// singleton within its worker process and serializes calls through the
// throttle".
package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Throttle enforces a minimum interval between permitted calls.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle returns a Throttle allowing at most one call per minInterval,
// with no burst beyond one (a metadata client issues calls serially, never
// in bursts — spec §5's "last_call" timestamp idiom).
func NewThrottle(minInterval time.Duration) *Throttle {
	return &Throttle{limiter: rate.NewLimiter(rate.Every(minInterval), 1)}
}

// Wait blocks until the throttle permits the next call or ctx is
// cancelled (suspension point (c), spec §5).
func (t *Throttle) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}

// Client is a rate-limited, retrying HTTP client for one metadata API.
type Client struct {
	HTTP     *http.Client
	Throttle *Throttle
	Retry    Retry
}

// NewClient builds a Client enforcing minInterval between calls.
func NewClient(minInterval time.Duration, retry Retry) *Client {
	return &Client{
		HTTP:     &http.Client{Timeout: 30 * time.Second},
		Throttle: NewThrottle(minInterval),
		Retry:    retry,
	}
}

// Do throttles, then performs req with retry, returning the first response
// whose status is not a retryable failure.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.Throttle.Wait(ctx); err != nil {
		return nil, fmt.Errorf("apiclient: throttle: %w", err)
	}
	return c.Retry.Do(ctx, func() (*http.Response, error) {
		return c.HTTP.Do(req)
	})
}
