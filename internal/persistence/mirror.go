package persistence

import (
	"context"

	"go.uber.org/zap"

	"github.com/agentspine/spine/internal/eventbus"
	"github.com/agentspine/spine/internal/session"
)

// Mirror subscribes to the control-plane event bus and flushes session
// and pipeline lifecycle transitions to the Store. Per-turn content
// isn't carried on the lightweight bus events (those only tag
// session_id/run_id, not full turn bodies) — a caller that owns a
// *session.Session calls Mirror.SyncTurns directly after each Submit,
// the way a web handler persists an aggregate after mutating it.
type Mirror struct {
	store  *Store
	logger *zap.Logger
}

func NewMirror(store *Store, logger *zap.Logger) *Mirror {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mirror{store: store, logger: logger}
}

// Attach subscribes the mirror's handlers on bus. Call once per process.
func (m *Mirror) Attach(bus eventbus.Bus) {
	bus.Subscribe(string(session.EventSessionStart), m.onSessionStart)
	bus.Subscribe(string(session.EventSessionEnd), m.onSessionEnd)
	bus.Subscribe(eventbus.TypeStageStarted, m.onStage)
	bus.Subscribe(eventbus.TypeStageCompleted, m.onStage)
	bus.Subscribe(eventbus.TypeStageFailed, m.onStage)
	bus.Subscribe(eventbus.TypeCheckpointSaved, m.onStage)
}

func (m *Mirror) onSessionStart(ctx context.Context, ev eventbus.Event) {
	payload, ok := ev.Payload().(eventbus.SessionPayload)
	if !ok {
		return
	}
	if err := m.store.StartSession(ctx, payload.SessionID, "", "", ev.Timestamp()); err != nil {
		m.logger.Warn("mirror: start session failed", zap.String("session_id", payload.SessionID), zap.Error(err))
	}
}

func (m *Mirror) onSessionEnd(ctx context.Context, ev eventbus.Event) {
	payload, ok := ev.Payload().(eventbus.SessionPayload)
	if !ok {
		return
	}
	if err := m.store.EndSession(ctx, payload.SessionID, ev.Timestamp(), 0); err != nil {
		m.logger.Warn("mirror: end session failed", zap.String("session_id", payload.SessionID), zap.Error(err))
	}
}

func (m *Mirror) onStage(ctx context.Context, ev eventbus.Event) {
	payload, ok := ev.Payload().(eventbus.PipelinePayload)
	if !ok {
		return
	}
	if err := m.store.AppendStage(ctx, payload.RunID, payload.NodeID, ev.Type(), payload.Payload, ev.Timestamp()); err != nil {
		m.logger.Warn("mirror: append stage failed", zap.String("run_id", payload.RunID), zap.Error(err))
	}
}

// SyncTurns appends any turns not yet mirrored for sessionID. Call this
// after every Session.Submit.
func (m *Mirror) SyncTurns(ctx context.Context, sessionID string, turns []session.Turn) error {
	from, err := m.store.LoadTurnCount(ctx, sessionID)
	if err != nil {
		return err
	}
	return m.store.AppendTurns(ctx, sessionID, from, turns)
}
