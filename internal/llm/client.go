package llm

import (
	"context"

	"go.uber.org/zap"
)

// Client is the provider-neutral entry point the session loop and the
// pipeline engine's codergen handler both call through. It owns default
// provider routing, the middleware pipeline, and the shared retry policy.
type Client struct {
	registry        *Registry
	defaultProvider string
	middleware      *MiddlewarePipeline
	retry           RetryPolicy
	logger          *zap.Logger
}

type ClientOption func(*Client)

func WithDefaultProvider(name string) ClientOption {
	return func(c *Client) { c.defaultProvider = name }
}

func WithMiddleware(mw ...Middleware) ClientOption {
	return func(c *Client) { c.middleware = NewMiddlewarePipeline(mw...) }
}

func WithRetryPolicy(p RetryPolicy) ClientOption {
	return func(c *Client) { c.retry = p }
}

func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

func NewClient(registry *Registry, opts ...ClientOption) *Client {
	c := &Client{
		registry:   registry,
		middleware: NewMiddlewarePipeline(),
		retry:      DefaultRetryPolicy(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) resolveProvider(name string) (Adapter, error) {
	if name == "" {
		name = c.defaultProvider
	}
	if name == "" {
		return nil, NewConfigurationError("request has no provider and client has no default")
	}
	return c.registry.CreateProvider(name, nil)
}

// Complete normalizes req through the middleware chain, dispatches to
// the resolved adapter, runs the result back through the middleware
// chain in reverse, and retries retryable failures per the client's
// RetryPolicy.
func (c *Client) Complete(ctx context.Context, req Request) (Response, error) {
	adapter, err := c.resolveProvider(req.Provider)
	if err != nil {
		return Response{}, err
	}

	transformed, err := c.middleware.RunBeforeModel(ctx, req)
	if err != nil {
		return Response{}, err
	}

	resp, err := callWithRetry(ctx, c.retry, func(ctx context.Context) (Response, error) {
		return adapter.Complete(ctx, transformed)
	})
	if err != nil {
		return Response{}, err
	}

	return c.middleware.RunAfterModel(ctx, resp)
}

// Stream normalizes req through the before-model middleware (streams are
// not retried — a mid-stream failure surfaces as an error event) and
// dispatches to the resolved adapter's Stream.
//
// A request-only middleware can still observe/transform the request: the
// client runs BeforeModel once up front and threads the transformed
// request into the adapter call, matching a dummy-next capture without
// needing the adapter to know about middleware at all.
func (c *Client) Stream(ctx context.Context, req Request) (*Stream, error) {
	adapter, err := c.resolveProvider(req.Provider)
	if err != nil {
		return nil, err
	}

	transformed, err := c.middleware.RunBeforeModel(ctx, req)
	if err != nil {
		return nil, err
	}

	return adapter.Stream(ctx, transformed)
}

func (c *Client) Registry() *Registry {
	return c.registry
}
