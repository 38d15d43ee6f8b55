package llm

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy configures bounded retry with exponential backoff.
type RetryPolicy struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // delay before the first retry
	MaxDelay    time.Duration // cap on the backoff delay
	Multiplier  float64       // exponential backoff factor
	Jitter      bool          // randomize delays to avoid thundering herd
	OnRetry     func(err error, attempt int, delay time.Duration)
}

// DefaultRetryPolicy returns the standard policy: up to 3 attempts with
// jittered exponential backoff starting at 500 ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
		Jitter:      true,
	}
}

// Delay calculates the backoff before retry n (0-indexed: n=0 is the delay
// after the first failed attempt).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt))
	if d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter {
		// +/- 50%
		d = d * (0.5 + rand.Float64())
	}
	return time.Duration(d)
}

// retryDelay resolves the delay for a particular failure, honoring a
// provider-supplied Retry-After hint on rate limit errors.
func (p RetryPolicy) retryDelay(err error, attempt int) (time.Duration, bool) {
	delay := p.Delay(attempt)
	if rl, ok := err.(*RateLimitedError); ok && rl.RetryAfter != nil {
		hinted := time.Duration(*rl.RetryAfter * float64(time.Second))
		if hinted > p.MaxDelay {
			// The provider wants us to wait longer than we are willing to.
			return 0, false
		}
		delay = hinted
	}
	return delay, true
}

// Retry executes fn up to MaxAttempts times. Only retryable errors are
// retried; see IsRetryable.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	result, err := fn(ctx)
	if err == nil {
		return result, nil
	}

	for attempt := 0; attempt < policy.MaxAttempts-1; attempt++ {
		if !IsRetryable(err) {
			return zero, err
		}
		delay, ok := policy.retryDelay(err, attempt)
		if !ok {
			return zero, err
		}
		if policy.OnRetry != nil {
			policy.OnRetry(err, attempt+1, delay)
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}
	}
	return zero, err
}

// StreamWithRetry wraps adapter.Stream with the retry policy. Attempts are
// retried only while no token or tool call has been delivered downstream:
// partial output already sent cannot be un-sent, so a mid-stream failure
// surfaces as a terminal Err event instead of a silent restart.
func StreamWithRetry(ctx context.Context, adapter Adapter, inv Invocation, policy RetryPolicy) <-chan ProviderEvent {
	out := make(chan ProviderEvent, 16)

	go func() {
		defer close(out)

		var lastErr error
		for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
			if attempt > 0 {
				delay, ok := policy.retryDelay(lastErr, attempt-1)
				if !ok {
					out <- Errf(lastErr)
					return
				}
				if policy.OnRetry != nil {
					policy.OnRetry(lastErr, attempt, delay)
				}
				select {
				case <-ctx.Done():
					// The caller is gone and may have stopped draining out, so
					// the terminal must not block.
					select {
					case out <- Errf(ctx.Err()):
					default:
					}
					return
				case <-time.After(delay):
				}
			}

			src, err := adapter.Stream(ctx, inv)
			if err != nil {
				err = ClassifyProviderError(adapter.Name(), err)
				if IsRetryable(err) && attempt < policy.MaxAttempts-1 {
					lastErr = err
					continue
				}
				out <- Errf(err)
				return
			}

			delivered := false
			restarted := false
			for ev := range src {
				if ev.Kind == EventErr {
					err := ClassifyProviderError(adapter.Name(), ev.Err)
					if !delivered && IsRetryable(err) && attempt < policy.MaxAttempts-1 {
						lastErr = err
						restarted = true
						break
					}
					out <- Errf(err)
					return
				}
				if ev.Kind == EventToken || ev.Kind == EventToolCall {
					delivered = true
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					// Same as above: best effort only, never block on a
					// consumer that stopped reading.
					select {
					case out <- Errf(ctx.Err()):
					default:
					}
					return
				}
				if ev.Kind == EventEnd {
					return
				}
			}
			if restarted {
				continue
			}

			// Channel closed without a terminal event. Treat as a transient
			// provider failure; retry only if nothing was delivered.
			err = Unavailablef(adapter.Name(), nil, "stream ended without terminal event")
			if !delivered && attempt < policy.MaxAttempts-1 {
				lastErr = err
				continue
			}
			out <- Errf(err)
			return
		}

		out <- Errf(lastErr)
	}()

	return out
}
