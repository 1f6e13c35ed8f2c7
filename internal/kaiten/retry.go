package kaiten

import (
	"net/http"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy bounds the client's handling of 429 responses. Only rate
// limiting is retried at this layer; every other failure surfaces on the
// first attempt.
type RetryPolicy struct {
	// MaxRetries is the number of additional attempts after the first
	// request, so MaxRetries=3 means at most 4 requests total.
	MaxRetries uint64

	// Base is the delay before the first retry; it doubles on each
	// subsequent one unless the server supplies Retry-After.
	Base time.Duration
}

// DefaultRetryPolicy matches the upstream limiter's documented budget.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, Base: time.Second}
}

// rateLimitBackoff is an exponential backoff whose delays can be
// overridden by a server-provided Retry-After interval. The client
// consumes the schedule eagerly through decide, so each chosen delay can
// be logged next to the attempt and status that caused it; Next replays
// the decision when the retry loop asks for it.
type rateLimitBackoff struct {
	next retry.Backoff

	pending []time.Duration
	stopped bool
}

func newRateLimitBackoff(p RetryPolicy) *rateLimitBackoff {
	return &rateLimitBackoff{
		next: retry.WithMaxRetries(p.MaxRetries, retry.NewExponential(p.Base)),
	}
}

// decide takes the next slot of the schedule, preferring the response's
// Retry-After interval over the computed delay. It reports false once
// the retry budget is exhausted.
func (b *rateLimitBackoff) decide(resp *http.Response) (time.Duration, bool) {
	d, stop := b.next.Next()
	if stop {
		b.stopped = true
		return 0, false
	}
	if hint, ok := retryAfterHint(resp); ok {
		d = hint
	}
	b.pending = append(b.pending, d)
	return d, true
}

func (b *rateLimitBackoff) Next() (time.Duration, bool) {
	if len(b.pending) > 0 {
		d := b.pending[0]
		b.pending = b.pending[1:]
		return d, false
	}
	if b.stopped {
		return 0, true
	}
	return b.next.Next()
}

// retryAfterHint parses a Retry-After header carrying a second count.
func retryAfterHint(resp *http.Response) (time.Duration, bool) {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0, false
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}
