// Package retrier retries exchange calls with exponential backoff.
package retrier

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/pkg/errors"
)

// Policy backoff parameters. Attempts counts the first call, so Attempts 1
// never retries.
type Policy struct {
	Attempts   int
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	// Jitter spreads each delay by +-Jitter of its length.
	Jitter float64
}

// DefaultPolicy suits Binance REST weight limits: six calls over roughly a minute.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:   6,
		Initial:    time.Second,
		Max:        30 * time.Second,
		Multiplier: 2,
		Jitter:     0.1,
	}
}

// Delay backoff before retry number n (1-based), without jitter.
func (p Policy) Delay(n int) time.Duration {
	if n < 1 {
		return 0
	}
	d := float64(p.Initial) * math.Pow(p.Multiplier, float64(n-1))
	if p.Max > 0 && d > float64(p.Max) {
		return p.Max
	}
	return time.Duration(d)
}

// Retrier runs calls under a Policy.
type Retrier struct {
	policy  Policy
	retryIf func(error) bool
	waitFor func(error) (time.Duration, bool)
	onRetry func(attempt int, err error)
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithRetryIf limits retries to errors the predicate accepts.
// Other errors are returned immediately.
func WithRetryIf(fn func(error) bool) Option {
	return func(r *Retrier) {
		r.retryIf = fn
	}
}

// WithWaitFor lets an error dictate its own delay, e.g. a rate-limit ban.
func WithWaitFor(fn func(error) (time.Duration, bool)) Option {
	return func(r *Retrier) {
		r.waitFor = fn
	}
}

// WithOnRetry registers a hook called before each retry with the failed attempt number.
func WithOnRetry(fn func(attempt int, err error)) Option {
	return func(r *Retrier) {
		r.onRetry = fn
	}
}

// New creates a Retrier. A policy with fewer than one attempt is treated as one.
func New(policy Policy, opts ...Option) *Retrier {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	r := &Retrier{
		policy:  policy,
		retryIf: func(error) bool { return true },
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do calls fn until it succeeds, returns a non-retryable error, the policy
// runs out of attempts or ctx is done.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if !r.retryIf(err) {
			return err
		}
		if attempt >= r.policy.Attempts {
			return errors.Wrapf(err, "gave up after %d attempts", attempt)
		}
		if r.onRetry != nil {
			r.onRetry(attempt, err)
		}
		if serr := r.sleep(ctx, r.delay(attempt, err)); serr != nil {
			return serr
		}
	}
}

func (r *Retrier) delay(attempt int, err error) time.Duration {
	if r.waitFor != nil {
		if d, ok := r.waitFor(err); ok {
			return d
		}
	}
	d := float64(r.policy.Delay(attempt))
	d += (rand.Float64()*2 - 1) * r.policy.Jitter * d
	if d < 0 {
		return 0
	}
	return time.Duration(d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// DoWithData is Do for calls returning a value.
func DoWithData[T any](r *Retrier, ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, func(ctx context.Context) error {
		var e error
		result, e = fn(ctx)
		return e
	})
	return result, err
}
