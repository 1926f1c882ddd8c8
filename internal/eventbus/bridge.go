package eventbus

import (
	"context"

	"github.com/agentspine/spine/internal/pipeline"
	"github.com/agentspine/spine/internal/session"
)

// BridgeSession subscribes to a session's synchronous Bus and republishes
// every event onto the async control-plane Bus, tagging the payload with
// sessionID so subscribers handling many concurrent sessions can
// distinguish them.
func BridgeSession(sessionID string, src *session.Bus, dst Bus) {
	src.Subscribe(func(ev session.Event) {
		dst.Publish(context.Background(), NewEvent(string(ev.Kind), SessionPayload{
			SessionID: sessionID,
			Payload:   ev.Payload,
		}))
	})
}

// SessionPayload wraps a bridged session.Event's payload with the id of
// the session it came from.
type SessionPayload struct {
	SessionID string
	Payload   interface{}
}

// BridgePipeline adapts a pipeline run's StageSink callback into a
// publish onto the async control-plane Bus, tagging the payload with
// runID.
func BridgePipeline(runID string, dst Bus) pipeline.StageSink {
	return func(ev pipeline.StageEvent) {
		dst.Publish(context.Background(), NewEvent(pipelineEventType(ev.Kind), PipelinePayload{
			RunID:   runID,
			NodeID:  ev.NodeID,
			Payload: ev.Payload,
		}))
	}
}

// PipelinePayload wraps a bridged pipeline.StageEvent's payload with the
// id of the run it came from.
type PipelinePayload struct {
	RunID   string
	NodeID  string
	Payload interface{}
}

func pipelineEventType(kind pipeline.StageEventKind) string {
	switch kind {
	case pipeline.StageStarted:
		return TypeStageStarted
	case pipeline.StageCompleted:
		return TypeStageCompleted
	case pipeline.StageFailed:
		return TypeStageFailed
	case pipeline.CheckpointSaved:
		return TypeCheckpointSaved
	default:
		return string(kind)
	}
}
