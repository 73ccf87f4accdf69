package services

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimitedTransport spaces outgoing requests according to a token bucket.
type RateLimitedTransport struct {
	Base    http.RoundTripper
	Limiter *rate.Limiter
}

// NewRateLimitedTransport allows rps requests per second with a burst of one.
//
// A non-positive rps disables limiting.
func NewRateLimitedTransport(base http.RoundTripper, rps float64) *RateLimitedTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &RateLimitedTransport{Base: base, Limiter: rate.NewLimiter(limit, 1)}
}

// RoundTrip waits for a token, then delegates to the base transport.
func (t *RateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.Limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.Base.RoundTrip(req)
}
