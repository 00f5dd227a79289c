package search

import "time"

// Backoff defaults for rate-limited responses.
const (
	DefaultMaxAttempts    = 6
	DefaultInitialBackoff = 2 * time.Second
	DefaultMaxBackoff     = 16 * time.Second
)

// Backoff tracks the retry state for one page: how many attempts were
// rate limited and how long to wait before the next one.
//
// The delay starts at the initial value and doubles after every rate-limited
// attempt up to the cap. Once the attempt count reaches the maximum the
// backoff is exhausted.
type Backoff struct {
	current     time.Duration
	max         time.Duration
	maxAttempts int
	attempts    int
}

// NewBackoff creates a Backoff. Non-positive arguments fall back to the
// package defaults.
func NewBackoff(initial, maxDelay time.Duration, maxAttempts int) *Backoff {
	if initial <= 0 {
		initial = DefaultInitialBackoff
	}
	if maxDelay <= 0 {
		maxDelay = DefaultMaxBackoff
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Backoff{
		current:     initial,
		max:         maxDelay,
		maxAttempts: maxAttempts,
	}
}

// Next records a rate-limited attempt and returns the delay to wait before
// retrying. The delay for the following call is doubled, capped at max.
func (b *Backoff) Next() time.Duration {
	b.attempts++
	delay := b.current
	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return delay
}

// Attempts returns the number of rate-limited attempts recorded so far.
func (b *Backoff) Attempts() int {
	return b.attempts
}

// Exhausted reports whether no attempts remain.
func (b *Backoff) Exhausted() bool {
	return b.attempts >= b.maxAttempts
}
