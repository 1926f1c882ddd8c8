package llm

import (
	"context"
)

// mockAdapter is the only concrete Adapter this module ships — real
// vendor wire formats are an external collaborator's job. It replays a
// scripted sequence of responses, one per Complete call.
type mockAdapter struct {
	name      string
	responses []Response
	errs      []error
	calls     int
}

func newMockAdapter(name string) *mockAdapter {
	return &mockAdapter{name: name}
}

func (m *mockAdapter) Name() string { return m.name }

func (m *mockAdapter) script(resp Response, err error) *mockAdapter {
	m.responses = append(m.responses, resp)
	m.errs = append(m.errs, err)
	return m
}

func (m *mockAdapter) Complete(_ context.Context, _ Request) (Response, error) {
	i := m.calls
	m.calls++
	if i >= len(m.responses) {
		return Response{}, NewConfigurationError("mock adapter script exhausted")
	}
	return m.responses[i], m.errs[i]
}

func (m *mockAdapter) Stream(_ context.Context, _ Request) (*Stream, error) {
	resp := m.responses[0]
	idx := 0
	events := []StreamEvent{
		{Type: EventStreamStart},
		{Type: EventTextStart},
	}
	for _, p := range resp.Message.Parts {
		if p.Type == ContentText {
			events = append(events, StreamEvent{Type: EventTextDelta, Delta: p.Text})
		}
	}
	events = append(events, StreamEvent{Type: EventTextEnd}, StreamEvent{Type: EventFinish, Response: &resp})

	return newStream(context.Background(), func(ctx context.Context) (StreamEvent, bool, error) {
		if idx >= len(events) {
			return StreamEvent{}, false, nil
		}
		ev := events[idx]
		idx++
		return ev, idx < len(events), nil
	}, nil), nil
}
