package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingMiddleware struct {
	NoOpMiddleware
	order  *[]string
	tagReq string
}

func (m recordingMiddleware) BeforeModel(ctx context.Context, req Request) (Request, error) {
	*m.order = append(*m.order, "before:"+m.tagReq)
	return req, nil
}

func (m recordingMiddleware) AfterModel(ctx context.Context, resp Response) (Response, error) {
	*m.order = append(*m.order, "after:"+m.tagReq)
	return resp, nil
}

func TestMiddlewarePipelineIsStrictOnion(t *testing.T) {
	var order []string
	pipeline := NewMiddlewarePipeline(
		recordingMiddleware{order: &order, tagReq: "outer"},
		recordingMiddleware{order: &order, tagReq: "inner"},
	)

	_, err := pipeline.RunBeforeModel(context.Background(), Request{})
	assert.NoError(t, err)
	_, err = pipeline.RunAfterModel(context.Background(), Response{})
	assert.NoError(t, err)

	assert.Equal(t, []string{"before:outer", "before:inner", "after:inner", "after:outer"}, order)
}
