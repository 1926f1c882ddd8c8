package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/agentspine/spine/internal/errors"
)

// RunOptions configures one Execute invocation.
type RunOptions struct {
	LogsRoot            string
	ResumeFromCheckpoint bool
	Backoff              Backoff
	Logger               *zap.Logger
}

// RunResult is the finalized state of a run that ended without a fatal
// error; an unsatisfied goal gate with no retry target returns an error
// instead.
type RunResult struct {
	Status         Status
	CompletedNodes []string
	NodeOutcomes   map[string]Outcome
	FinalContext   map[string]interface{}
	LogsRoot       string
}

// StageEvent kinds emitted during Execute; the engine's caller supplies
// a sink to observe them (mirrors the session's synchronous bus without
// sharing its type, since a pipeline run has no session to hang off).
type StageEventKind string

const (
	StageStarted       StageEventKind = "stage-started"
	StageCompleted     StageEventKind = "stage-completed"
	StageFailed        StageEventKind = "stage-failed"
	StageRetrying      StageEventKind = "stage-retrying"
	EdgeSelected       StageEventKind = "edge-selected"
	CheckpointSaved    StageEventKind = "checkpoint-saved"
)

type StageEvent struct {
	Kind    StageEventKind
	NodeID  string
	Payload interface{}
}

type StageSink func(StageEvent)

// Engine dispatches nodes to registered handlers and drives a run to
// completion.
type Engine struct {
	handlers map[string]Handler
	logger   *zap.Logger
}

func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{handlers: make(map[string]Handler), logger: logger}
}

func (e *Engine) Register(handlerType string, h Handler) {
	e.handlers[handlerType] = h
}

// HandlerFor resolves node's registered handler; exported so the
// Parallel handler can dispatch a branch's target node through the same
// registry the engine uses.
func (e *Engine) HandlerFor(node *Node) (Handler, error) {
	return e.handlerFor(node)
}

func (e *Engine) handlerFor(node *Node) (Handler, error) {
	h, ok := e.handlers[node.HandlerType()]
	if !ok {
		return nil, fmt.Errorf("no handler registered for type %q (node %q)", node.HandlerType(), node.ID)
	}
	return h, nil
}

// Execute runs graph from its start node (or a resumed checkpoint)
// until a terminal node's goal gates are satisfied, or a fatal
// condition is raised.
func (e *Engine) Execute(ctx context.Context, graph *Graph, opts RunOptions, sink StageSink) (RunResult, error) {
	if sink == nil {
		sink = func(StageEvent) {}
	}

	pctx := NewContext()
	completed := []string{}
	outcomes := map[string]Outcome{}
	state := newRetryState()

	var currentID string
	var lastOutcome Outcome

	if opts.ResumeFromCheckpoint {
		cp, ok, err := LoadCheckpoint(opts.LogsRoot)
		if err != nil {
			return RunResult{}, err
		}
		if ok {
			pctx.RestoreFrom(cp.ContextValues)
			completed = append([]string(nil), cp.CompletedNodes...)
			for id, c := range cp.NodeRetries {
				state.counts[id] = c
			}
			outcomes = cp.NodeOutcomes
			if _, ok := graph.Nodes[cp.CurrentNode]; !ok {
				return RunResult{}, fmt.Errorf("checkpoint current_node %q not in graph", cp.CurrentNode)
			}
			resumeOutcome, ok := outcomes[cp.CurrentNode]
			if !ok {
				resumeOutcome = Outcome{Status: StatusSuccess}
			}
			edge := SelectEdge(graph, cp.CurrentNode, resumeOutcome, pctx)
			if edge == nil {
				return RunResult{
					Status: StatusSuccess, CompletedNodes: completed, NodeOutcomes: outcomes,
					FinalContext: pctx.Snapshot(), LogsRoot: opts.LogsRoot,
				}, nil
			}
			currentID = edge.To
		}
	}

	if currentID == "" {
		start, ok := graph.FindStart()
		if !ok {
			return RunResult{}, fmt.Errorf("no start node found in graph %q", graph.Name)
		}
		currentID = start.ID
	}

	return e.runLoop(ctx, graph, pctx, completed, outcomes, state, currentID, lastOutcome, opts, sink)
}

func (e *Engine) runLoop(
	ctx context.Context,
	graph *Graph,
	pctx *Context,
	completed []string,
	outcomes map[string]Outcome,
	state *retryState,
	currentID string,
	lastOutcome Outcome,
	opts RunOptions,
	sink StageSink,
) (RunResult, error) {
	for {
		node, ok := graph.Nodes[currentID]
		if !ok {
			return RunResult{}, fmt.Errorf("node %q not found in graph", currentID)
		}

		pctx.Set("current_node", currentID)

		if node.IsTerminal() {
			if failing, ok := failingGoalGate(graph, completed, outcomes); ok {
				target, hasTarget := graph.ResolveRetryTarget(graph.Nodes[failing])
				if hasTarget {
					currentID = target
					continue
				}
				return RunResult{}, appErrors.NewPipelineFatalError(
					fmt.Sprintf("goal gate unsatisfied for node '%s' and no retry target available", failing))
			}
			status := StatusSuccess
			if lastOutcome.Status == StatusFail {
				status = StatusFail
			}
			return RunResult{
				Status: status, CompletedNodes: completed, NodeOutcomes: outcomes,
				FinalContext: pctx.Snapshot(), LogsRoot: opts.LogsRoot,
			}, nil
		}

		sink(StageEvent{Kind: StageStarted, NodeID: node.ID})

		handler, err := e.handlerFor(node)
		if err != nil {
			return RunResult{}, err
		}

		outcome, err := executeWithRetry(ctx, handler, node, pctx, graph, opts.LogsRoot, state, opts.Backoff,
			func(attempt int, delay time.Duration) {
				sink(StageEvent{Kind: StageRetrying, NodeID: node.ID, Payload: map[string]interface{}{"attempt": attempt}})
			})
		if err != nil {
			return RunResult{}, err
		}

		if node.AutoStatus && !statusFileExists(opts.LogsRoot, node.ID) {
			outcome = Outcome{Status: StatusSuccess, Notes: "auto_status: synthesized"}
		}

		if outcome.Status == StatusSkipped {
			sink(StageEvent{Kind: StageCompleted, NodeID: node.ID, Payload: outcome})
			edge := SelectEdge(graph, node.ID, outcome, pctx)
			if edge == nil {
				return RunResult{
					Status: StatusSuccess, CompletedNodes: completed, NodeOutcomes: outcomes,
					FinalContext: pctx.Snapshot(), LogsRoot: opts.LogsRoot,
				}, nil
			}
			sink(StageEvent{Kind: EdgeSelected, NodeID: node.ID, Payload: edge.To})
			currentID = edge.To
			continue
		}

		completed = append(completed, node.ID)
		outcomes[node.ID] = outcome
		lastOutcome = outcome

		if outcome.Status == StatusSuccess || outcome.Status == StatusPartialSuccess {
			sink(StageEvent{Kind: StageCompleted, NodeID: node.ID, Payload: outcome})
		} else {
			sink(StageEvent{Kind: StageFailed, NodeID: node.ID, Payload: outcome})
		}

		pctx.ApplyUpdates(outcome.ContextUpdates)
		pctx.Set("outcome", string(outcome.Status))
		if outcome.PreferredLabel != "" {
			pctx.Set("preferred_label", outcome.PreferredLabel)
		}

		if err := SaveCheckpoint(opts.LogsRoot, Checkpoint{
			Timestamp: time.Now(), CurrentNode: node.ID, CompletedNodes: completed,
			NodeRetries: snapshotRetries(state), NodeOutcomes: outcomes, ContextValues: pctx.Snapshot(), Logs: pctx.Logs(),
		}); err != nil {
			return RunResult{}, fmt.Errorf("save checkpoint: %w", err)
		}
		sink(StageEvent{Kind: CheckpointSaved, NodeID: node.ID})

		edge := SelectEdge(graph, node.ID, outcome, pctx)
		if edge == nil {
			if outcome.Status == StatusFail {
				return RunResult{}, appErrors.NewPipelineFatalError(
					fmt.Sprintf("stage '%s' failed with no outgoing fail edge", node.ID))
			}
			return RunResult{
				Status: StatusSuccess, CompletedNodes: completed, NodeOutcomes: outcomes,
				FinalContext: pctx.Snapshot(), LogsRoot: opts.LogsRoot,
			}, nil
		}
		sink(StageEvent{Kind: EdgeSelected, NodeID: node.ID, Payload: edge.To})

		if edge.LoopRestart {
			freshRoot := fmt.Sprintf("%s_restart_%s", opts.LogsRoot, uuid.NewString())
			freshOpts := opts
			freshOpts.LogsRoot = freshRoot
			return e.runLoop(ctx, graph, NewContext(), nil, map[string]Outcome{}, newRetryState(), edge.To, Outcome{}, freshOpts, sink)
		}

		if _, ok := graph.Nodes[edge.To]; !ok {
			return RunResult{}, fmt.Errorf("edge target %q not found in graph", edge.To)
		}
		currentID = edge.To
	}
}

// failingGoalGate returns the first node, in the order nodes completed
// during this run, whose goal_gate is set and whose recorded outcome
// isn't SUCCESS/PARTIAL_SUCCESS.
func failingGoalGate(graph *Graph, completedOrder []string, outcomes map[string]Outcome) (string, bool) {
	for _, id := range completedOrder {
		node, ok := graph.Nodes[id]
		if !ok || !node.GoalGate {
			continue
		}
		status := outcomes[id].Status
		if status != StatusSuccess && status != StatusPartialSuccess {
			return id, true
		}
	}
	return "", false
}

func statusFileExists(logsRoot, nodeID string) bool {
	_, err := os.Stat(fmt.Sprintf("%s/%s/status.json", logsRoot, nodeID))
	return err == nil
}

func snapshotRetries(state *retryState) map[string]int {
	out := make(map[string]int, len(state.counts))
	for k, v := range state.counts {
		out[k] = v
	}
	return out
}
