package llm

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDelayWithoutJitterMatchesFormula(t *testing.T) {
	p := RetryPolicy{Base: 100 * time.Millisecond, Multiplier: 2.0, Max: 10 * time.Second, Jitter: false}
	for attempt := 1; attempt <= 6; attempt++ {
		got := p.Delay(attempt)
		want := time.Duration(float64(p.Base) * pow(2.0, attempt))
		if want > p.Max {
			want = p.Max
		}
		assert.Equal(t, want, got)
	}
}

func pow(base float64, n int) float64 {
	r := 1.0
	for i := 0; i < n; i++ {
		r *= base
	}
	return r
}

func TestDelayWithJitterStaysWithinHalfRange(t *testing.T) {
	p := RetryPolicy{Base: 100 * time.Millisecond, Multiplier: 2.0, Max: 10 * time.Second, Jitter: true, Rand: rand.New(rand.NewSource(1))}
	raw := float64(p.Base) * pow(2.0, 3)
	got := p.Delay(3)
	assert.GreaterOrEqual(t, float64(got), raw*0.5)
	assert.LessOrEqual(t, float64(got), raw*1.5)
}

func TestCallWithRetryStopsOnNonRetryableError(t *testing.T) {
	calls := 0
	_, err := callWithRetry(context.Background(), DefaultRetryPolicy(), func(ctx context.Context) (Response, error) {
		calls++
		return Response{}, &ProviderError{Kind: KindAuthentication, Retryable: false}
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
