package llm

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy controls exponential backoff with optional jitter, shared
// by the client's complete() wrapper and (via the same shape) the
// pipeline engine's handler retry wrapper.
type RetryPolicy struct {
	MaxAttempts int
	Base        time.Duration
	Multiplier  float64
	Max         time.Duration
	Jitter      bool
	// Rand is used for jitter; tests inject a deterministic source.
	Rand *rand.Rand
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Base:        500 * time.Millisecond,
		Multiplier:  2.0,
		Max:         30 * time.Second,
		Jitter:      true,
	}
}

// Delay computes delay(attempt) = min(base * multiplier^attempt, max),
// then applies up to ±50% jitter when enabled. attempt is 1-based.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	raw := float64(p.Base) * math.Pow(p.Multiplier, float64(attempt))
	if raw > float64(p.Max) {
		raw = float64(p.Max)
	}
	if raw < 0 {
		raw = 0
	}
	if !p.Jitter || raw == 0 {
		return time.Duration(raw)
	}
	r := p.Rand
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	// Uniform in [0.5x, 1.5x].
	factor := 0.5 + r.Float64()
	return time.Duration(raw * factor)
}

// callWithRetry runs fn, retrying while the returned error is a retryable
// ProviderError, honouring its RetryAfter hint over the computed delay
// (stopping early if RetryAfter exceeds the policy's max delay).
func callWithRetry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (Response, error)) (Response, error) {
	var lastErr error
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := fn(ctx)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		pe, ok := err.(*ProviderError)
		if !ok || !pe.Retryable || attempt == attempts {
			return Response{}, err
		}

		delay := policy.Delay(attempt)
		if pe.RetryAfter > 0 {
			retryAfter := time.Duration(pe.RetryAfter * float64(time.Second))
			if retryAfter > policy.Max {
				return Response{}, err
			}
			delay = retryAfter
		}

		select {
		case <-ctx.Done():
			return Response{}, NewAbortError(pe.Provider, "aborted during retry backoff")
		case <-time.After(delay):
		}
	}
	return Response{}, lastErr
}
