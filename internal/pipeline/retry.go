package pipeline

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
)

// Backoff controls a node's retry delay; shape mirrors the LLM client
// spine's RetryPolicy (same delay(attempt) = min(base*mult^attempt,max)
// formula with optional ±50% jitter), since both are the same
// exponential-backoff-with-jitter idea applied to a different retry
// loop.
type Backoff struct {
	Base       time.Duration
	Multiplier float64
	Max        time.Duration
	Jitter     bool
	Rand       *rand.Rand
}

func DefaultBackoff() Backoff {
	return Backoff{Base: 500 * time.Millisecond, Multiplier: 2.0, Max: 30 * time.Second, Jitter: true}
}

func (b Backoff) Delay(attempt int) time.Duration {
	raw := float64(b.Base) * math.Pow(b.Multiplier, float64(attempt))
	if raw > float64(b.Max) {
		raw = float64(b.Max)
	}
	if raw < 0 {
		raw = 0
	}
	if !b.Jitter || raw == 0 {
		return time.Duration(raw)
	}
	r := b.Rand
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	factor := 0.5 + r.Float64()
	return time.Duration(raw * factor)
}

// ShouldRetry decides, from the lowercased error message, whether a
// handler exception warrants another attempt.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())

	if strings.Contains(msg, "401") || strings.Contains(msg, "403") {
		return false
	}
	if strings.Contains(msg, "400") || strings.Contains(msg, "validation") {
		return false
	}

	switch {
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429"):
		return true
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		return true
	case strings.Contains(msg, "network") || strings.Contains(msg, "econnrefused"):
		return true
	case strings.Contains(msg, "5") && strings.Contains(msg, "server error"):
		return true
	}
	return true
}

// Handler dispatches a node against a pipeline context and returns an
// Outcome; it may return an error instead, which executeWithRetry
// treats per ShouldRetry.
type Handler interface {
	Handle(ctx context.Context, node *Node, pctx *Context, graph *Graph, logsRoot string) (Outcome, error)
}

type HandlerFunc func(ctx context.Context, node *Node, pctx *Context, graph *Graph, logsRoot string) (Outcome, error)

func (f HandlerFunc) Handle(ctx context.Context, node *Node, pctx *Context, graph *Graph, logsRoot string) (Outcome, error) {
	return f(ctx, node, pctx, graph, logsRoot)
}

// retryState tracks per-node retry counters across a run.
type retryState struct {
	counts map[string]int
}

func newRetryState() *retryState {
	return &retryState{counts: make(map[string]int)}
}

// executeWithRetry runs handler against node up to its effective
// max_attempts (= effective max_retries + 1), applying RETRY/exception
// backoff per §4.6.3.
func executeWithRetry(
	ctx context.Context,
	handler Handler,
	node *Node,
	pctx *Context,
	graph *Graph,
	logsRoot string,
	state *retryState,
	backoff Backoff,
	onRetrying func(attempt int, delay time.Duration),
) (Outcome, error) {
	maxRetries := graph.EffectiveMaxRetry(node)
	maxAttempts := maxRetries + 1

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		outcome, err := handler.Handle(ctx, node, pctx, graph, logsRoot)

		if err != nil {
			if ShouldRetry(err) && attempt < maxAttempts {
				state.counts[node.ID]++
				pctx.Set(fmt.Sprintf("internal.retry_count.%s", node.ID), state.counts[node.ID])
				delay := backoff.Delay(attempt)
				if onRetrying != nil {
					onRetrying(attempt, delay)
				}
				sleep(ctx, delay)
				continue
			}
			return Outcome{Status: StatusFail, FailureReason: err.Error()}, nil
		}

		switch outcome.Status {
		case StatusSuccess, StatusPartialSuccess:
			state.counts[node.ID] = 0
			return outcome, nil
		case StatusRetry:
			if attempt < maxAttempts {
				state.counts[node.ID]++
				pctx.Set(fmt.Sprintf("internal.retry_count.%s", node.ID), state.counts[node.ID])
				delay := backoff.Delay(attempt)
				if onRetrying != nil {
					onRetrying(attempt, delay)
				}
				sleep(ctx, delay)
				continue
			}
			if node.AllowPartial {
				return Outcome{Status: StatusPartialSuccess, Notes: "retries exhausted, partial accepted"}, nil
			}
			return Outcome{Status: StatusFail, FailureReason: "max retries exceeded"}, nil
		default: // FAIL, SKIPPED, or anything else
			return outcome, nil
		}
	}

	return Outcome{Status: StatusFail, FailureReason: "max retries exceeded"}, nil
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
