// Package eventbus is the Control Plane's async event bus: it fans out
// session-loop and pipeline-engine events (already synchronous,
// single-publisher buses of their own) to any number of operational
// subscribers — the WebSocket tail, persistence's write-behind mirror,
// metrics — without making the originating session/run wait on a slow
// subscriber.
package eventbus

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event is anything with a type, a timestamp, and an opaque payload.
type Event interface {
	Type() string
	Timestamp() time.Time
	Payload() any
}

// BaseEvent is the concrete Event the bus itself constructs via NewEvent;
// origin packages (session, pipeline) can also satisfy Event directly.
type BaseEvent struct {
	EventType      string
	EventTimestamp time.Time
	EventPayload   any
}

func (e *BaseEvent) Type() string      { return e.EventType }
func (e *BaseEvent) Timestamp() time.Time { return e.EventTimestamp }
func (e *BaseEvent) Payload() any      { return e.EventPayload }

// NewEvent stamps payload with the current time.
func NewEvent(eventType string, payload any) *BaseEvent {
	return &BaseEvent{EventType: eventType, EventTimestamp: time.Now(), EventPayload: payload}
}

// Handler receives a dispatched event. A subscriber-side panic is
// recovered and logged — it never takes down the bus or other
// subscribers.
type Handler func(ctx context.Context, event Event)

// Well-known event types. BridgePipeline publishes the pipeline_* types;
// BridgeSession does not use these constants and publishes each session
// event under its session.EventKind string (such as "SESSION_START").
const (
	TypeSessionStart    = "session_start"
	TypeSessionEnd       = "session_end"
	TypeToolExecution    = "tool_execution"
	TypeLLMRequest       = "llm_request"
	TypeLLMResponse      = "llm_response"
	TypeStageStarted     = "pipeline_stage_started"
	TypeStageCompleted   = "pipeline_stage_completed"
	TypeStageFailed      = "pipeline_stage_failed"
	TypeCheckpointSaved  = "pipeline_checkpoint_saved"
	TypeError            = "error"
)

// Bus is the fan-out contract: publish once, deliver to every handler
// subscribed to the event's type plus every wildcard ("*") handler.
type Bus interface {
	Publish(ctx context.Context, event Event)
	Subscribe(eventType string, handler Handler)
	Close()
}

type eventWrapper struct {
	ctx   context.Context
	event Event
}

// InMemoryBus buffers published events on a channel and dispatches them
// from a single background goroutine, so Publish never blocks the
// session/pipeline thread that called it — it only drops the event (with
// a logged warning) if the buffer is full.
type InMemoryBus struct {
	mu        sync.RWMutex
	handlers  map[string][]Handler
	eventChan chan eventWrapper
	closed    bool
	logger    *zap.Logger
	wg        sync.WaitGroup
}

// NewInMemoryBus starts the dispatch goroutine immediately; Close stops it.
func NewInMemoryBus(logger *zap.Logger, bufferSize int) *InMemoryBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &InMemoryBus{
		handlers:  make(map[string][]Handler),
		eventChan: make(chan eventWrapper, bufferSize),
		logger:    logger,
	}
	b.wg.Add(1)
	go b.dispatch()
	return b
}

func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	b.mu.RUnlock()

	select {
	case b.eventChan <- eventWrapper{ctx: ctx, event: event}:
	default:
		b.logger.Warn("event buffer full, dropping event", zap.String("type", event.Type()))
	}
}

func (b *InMemoryBus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

func (b *InMemoryBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.eventChan)
	b.mu.Unlock()

	b.wg.Wait()
}

func (b *InMemoryBus) dispatch() {
	defer b.wg.Done()
	for wrapper := range b.eventChan {
		b.dispatchEvent(wrapper.ctx, wrapper.event)
	}
}

func (b *InMemoryBus) dispatchEvent(ctx context.Context, event Event) {
	b.mu.RLock()
	var handlers []Handler
	handlers = append(handlers, b.handlers[event.Type()]...)
	handlers = append(handlers, b.handlers["*"]...)
	b.mu.RUnlock()

	var wg sync.WaitGroup
	for _, h := range handlers {
		wg.Add(1)
		go func(h Handler) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("event handler panicked", zap.String("type", event.Type()), zap.Any("panic", r))
				}
			}()
			h(ctx, event)
		}(h)
	}
	wg.Wait()
}
