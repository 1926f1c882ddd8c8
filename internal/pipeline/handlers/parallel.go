package handlers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/agentspine/spine/internal/pipeline"
	"github.com/agentspine/spine/internal/safego"
	"go.uber.org/zap"
)

// JoinPolicy decides the component-shaped node's own outcome from its
// branch results.
type JoinPolicy string

const (
	JoinWaitAll      JoinPolicy = "wait_all"
	JoinFirstSuccess JoinPolicy = "first_success"
	JoinAny          JoinPolicy = "any" // default
)

// BranchResult is one entry of context.parallel.results.
type BranchResult struct {
	Branch  string  `json:"branch"`
	Outcome string  `json:"outcome"`
	Notes   string  `json:"notes,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

// Parallel fans out a component-shaped node's outgoing edges as
// independent branches, each dispatched to its target node's own
// handler over a cloned context, bounded by MaxParallel batches —
// a simpler, dependency-free branch set built from the same
// ready-queue/semaphore fan-out shape as a dependency-ordered DAG
// executor.
type Parallel struct {
	Engine      *pipeline.Engine // nil ⇒ simulate every branch as SUCCESS
	MaxParallel int
	ErrorPolicy string // "fail_fast" or ""
	Join        JoinPolicy
	Logger      *zap.Logger
}

func (p Parallel) Handle(ctx context.Context, node *pipeline.Node, pctx *pipeline.Context, graph *pipeline.Graph, logsRoot string) (pipeline.Outcome, error) {
	branches := graph.OutEdges(node.ID)
	if len(branches) == 0 {
		return pipeline.Outcome{Status: pipeline.StatusSuccess, Notes: "no branches"}, nil
	}

	batchSize := p.MaxParallel
	if batchSize <= 0 {
		batchSize = len(branches)
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	results := make([]BranchResult, len(branches))

	for start := 0; start < len(branches); start += batchSize {
		end := start + batchSize
		if end > len(branches) {
			end = len(branches)
		}
		batch := branches[start:end]

		var wg sync.WaitGroup
		wg.Add(len(batch))
		for i, edge := range batch {
			idx := start + i
			edge := edge
			safego.Go(logger, "pipeline-parallel-branch", func() {
				defer wg.Done()
				results[idx] = p.runBranch(ctx, edge, pctx, graph, logsRoot)
			})
		}
		wg.Wait()

		if p.ErrorPolicy == "fail_fast" && batchHasFailure(results[start:end]) {
			break
		}
	}

	encoded, _ := json.Marshal(results)
	pctx.Set("parallel.results", string(encoded))

	return pipeline.Outcome{Status: p.joinOutcome(results)}, nil
}

func (p Parallel) runBranch(ctx context.Context, edge *pipeline.Edge, pctx *pipeline.Context, graph *pipeline.Graph, logsRoot string) BranchResult {
	if p.Engine == nil {
		return BranchResult{Branch: edge.To, Outcome: string(pipeline.StatusSuccess), Notes: "Simulated"}
	}

	target, ok := graph.Nodes[edge.To]
	if !ok {
		return BranchResult{Branch: edge.To, Outcome: string(pipeline.StatusFail), Notes: "branch target not found"}
	}

	handler, err := p.Engine.HandlerFor(target)
	if err != nil {
		return BranchResult{Branch: edge.To, Outcome: string(pipeline.StatusFail), Notes: err.Error()}
	}

	branchCtx := pctx.Clone()
	outcome, err := handler.Handle(ctx, target, branchCtx, graph, logsRoot)
	if err != nil {
		return BranchResult{Branch: edge.To, Outcome: string(pipeline.StatusFail), Notes: err.Error()}
	}
	return BranchResult{Branch: edge.To, Outcome: string(outcome.Status), Notes: outcome.Notes}
}

func batchHasFailure(results []BranchResult) bool {
	for _, r := range results {
		if r.Outcome == string(pipeline.StatusFail) {
			return true
		}
	}
	return false
}

func (p Parallel) joinOutcome(results []BranchResult) pipeline.Status {
	succeeded, failed := 0, 0
	for _, r := range results {
		switch r.Outcome {
		case string(pipeline.StatusSuccess), string(pipeline.StatusPartialSuccess):
			succeeded++
		default:
			failed++
		}
	}

	switch p.Join {
	case JoinWaitAll:
		if failed == 0 {
			return pipeline.StatusSuccess
		}
		if succeeded > 0 {
			return pipeline.StatusPartialSuccess
		}
		return pipeline.StatusFail
	case JoinFirstSuccess:
		if succeeded > 0 {
			return pipeline.StatusSuccess
		}
		return pipeline.StatusFail
	default: // "any"
		if succeeded > 0 {
			return pipeline.StatusSuccess
		}
		return pipeline.StatusFail
	}
}
