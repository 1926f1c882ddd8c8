package llm

import "context"

// Middleware wraps a complete() call. Composition is strict onion: the
// first-registered middleware is outermost — it runs first on the
// request and last on the response.
type Middleware interface {
	Name() string
	BeforeModel(ctx context.Context, req Request) (Request, error)
	AfterModel(ctx context.Context, resp Response) (Response, error)
}

// NoOpMiddleware is a pass-through Middleware, useful as a base to embed.
type NoOpMiddleware struct {
	MiddlewareName string
}

func (m NoOpMiddleware) Name() string { return m.MiddlewareName }

func (m NoOpMiddleware) BeforeModel(_ context.Context, req Request) (Request, error) {
	return req, nil
}

func (m NoOpMiddleware) AfterModel(_ context.Context, resp Response) (Response, error) {
	return resp, nil
}

// MiddlewarePipeline folds a list of Middleware into a single Before/After
// pair: Before runs forward order, After runs reverse order, implementing
// the onion.
type MiddlewarePipeline struct {
	chain []Middleware
}

func NewMiddlewarePipeline(chain ...Middleware) *MiddlewarePipeline {
	return &MiddlewarePipeline{chain: chain}
}

func (p *MiddlewarePipeline) RunBeforeModel(ctx context.Context, req Request) (Request, error) {
	current := req
	for _, mw := range p.chain {
		next, err := mw.BeforeModel(ctx, current)
		if err != nil {
			return current, err
		}
		current = next
	}
	return current, nil
}

func (p *MiddlewarePipeline) RunAfterModel(ctx context.Context, resp Response) (Response, error) {
	current := resp
	for i := len(p.chain) - 1; i >= 0; i-- {
		next, err := p.chain[i].AfterModel(ctx, current)
		if err != nil {
			return current, err
		}
		current = next
	}
	return current, nil
}

func (p *MiddlewarePipeline) Append(mw Middleware) {
	p.chain = append(p.chain, mw)
}
