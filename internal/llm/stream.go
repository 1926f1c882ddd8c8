package llm

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/agentspine/spine/internal/safego"
)

type StreamEventType string

const (
	EventStreamStart     StreamEventType = "stream_start"
	EventTextStart       StreamEventType = "text_start"
	EventTextDelta       StreamEventType = "text_delta"
	EventTextEnd         StreamEventType = "text_end"
	EventReasoningStart  StreamEventType = "reasoning_start"
	EventReasoningDelta  StreamEventType = "reasoning_delta"
	EventReasoningEnd    StreamEventType = "reasoning_end"
	EventToolCallStart   StreamEventType = "tool_call_start"
	EventToolCallDelta   StreamEventType = "tool_call_delta"
	EventToolCallEnd     StreamEventType = "tool_call_end"
	EventFinish          StreamEventType = "finish"
	EventError           StreamEventType = "error"
	EventProviderEvent   StreamEventType = "provider_event"
)

// StreamEvent is the wire-visible shape of one streamed model event. The
// terminal "finish" event carries a fully-formed Response.
type StreamEvent struct {
	Type         StreamEventType `json:"type"`
	Delta        string          `json:"delta,omitempty"`
	FinishReason *FinishReason   `json:"finish_reason,omitempty"`
	Usage        *Usage          `json:"usage,omitempty"`
	Response     *Response       `json:"response,omitempty"`
	Raw          interface{}     `json:"raw,omitempty"`
	Err          error           `json:"-"`
}

// rawProducer is whatever an adapter hands the client: a pull-based
// source of events. Each call returns the next event and a more flag;
// more=false marks exhaustion (an event returned alongside it is still
// kept), and a non-nil error ends the stream.
type rawProducer func(ctx context.Context) (StreamEvent, bool, error)

// Stream is returned by Client.Stream(). It eagerly drains the adapter's
// raw producer into a shared buffer so that every consumer — direct
// iteration, Response(), and TextStream() — observes the complete
// sequence regardless of when it starts consuming, including consumers
// that attach after some events have already arrived (late-join).
type Stream struct {
	mu       sync.Mutex
	cond     *sync.Cond
	buf      []StreamEvent
	done     bool
	err      error
	response *Response
}

// newStream starts draining produce in the background and returns the
// shared, multi-consumer Stream handle.
func newStream(ctx context.Context, produce rawProducer, logger *zap.Logger) *Stream {
	s := &Stream{}
	s.cond = sync.NewCond(&s.mu)

	safego.Go(logger, "llm-stream-drain", func() {
		for {
			ev, more, err := produce(ctx)
			s.mu.Lock()
			if err != nil {
				s.err = err
				s.done = true
				s.cond.Broadcast()
				s.mu.Unlock()
				return
			}
			if ev.Type != "" {
				s.buf = append(s.buf, ev)
				if ev.Type == EventFinish && ev.Response != nil {
					resp := *ev.Response
					s.response = &resp
				}
			}
			if !more {
				s.done = true
				s.cond.Broadcast()
				s.mu.Unlock()
				return
			}
			s.cond.Broadcast()
			s.mu.Unlock()
		}
	})

	return s
}

// Cursor is a per-consumer read position into the shared buffer.
type Cursor struct {
	s   *Stream
	pos int
}

func (s *Stream) NewCursor() *Cursor {
	return &Cursor{s: s}
}

// Next blocks until an event is available at this cursor's position, the
// stream is done, or ctx is cancelled.
func (c *Cursor) Next(ctx context.Context) (StreamEvent, bool, error) {
	s := c.s
	s.mu.Lock()
	for c.pos >= len(s.buf) && !s.done {
		// sync.Cond doesn't support ctx cancellation directly; poll via a
		// small wait that re-checks ctx between wakeups triggered by append.
		waitCh := make(chan struct{})
		go func() {
			s.cond.L.Lock()
			s.cond.Wait()
			s.cond.L.Unlock()
			close(waitCh)
		}()
		s.mu.Unlock()
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.cond.Broadcast() // release the helper goroutine
			s.mu.Unlock()
			return StreamEvent{}, false, ctx.Err()
		case <-waitCh:
		}
		s.mu.Lock()
	}
	if c.pos < len(s.buf) {
		ev := s.buf[c.pos]
		c.pos++
		s.mu.Unlock()
		return ev, true, nil
	}
	err := s.err
	s.mu.Unlock()
	return StreamEvent{}, false, err
}

// Response blocks until the terminal finish event has arrived and
// returns its Response.
func (s *Stream) Response(ctx context.Context) (Response, error) {
	c := s.NewCursor()
	for {
		ev, more, err := c.Next(ctx)
		if err != nil {
			return Response{}, err
		}
		if !more {
			s.mu.Lock()
			resp := s.response
			s.mu.Unlock()
			if resp == nil {
				return Response{}, NewStreamError("", "stream ended without a finish event", nil)
			}
			return *resp, nil
		}
		if ev.Type == EventFinish && ev.Response != nil {
			return *ev.Response, nil
		}
	}
}

// TextStream returns a channel yielding only text_delta deltas, closed
// when the stream completes or ctx is cancelled.
func (s *Stream) TextStream(ctx context.Context) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		c := s.NewCursor()
		for {
			ev, more, err := c.Next(ctx)
			if err != nil || !more {
				return
			}
			if ev.Type == EventTextDelta {
				select {
				case out <- ev.Delta:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
