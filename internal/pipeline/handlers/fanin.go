package handlers

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/agentspine/spine/internal/pipeline"
)

// statusRank mirrors the engine's internal ranking for the fan-in pick:
// SUCCESS=0 < PARTIAL_SUCCESS=1 < FAIL=3; anything unrecognized also
// ranks 3.
func statusRank(status string) int {
	switch pipeline.Status(status) {
	case pipeline.StatusSuccess:
		return 0
	case pipeline.StatusPartialSuccess:
		return 1
	default:
		return 3
	}
}

// FanIn picks the best branch out of a Parallel node's recorded
// results, a tripleoctagon-shaped node's sole job.
type FanIn struct{}

func (FanIn) Handle(_ context.Context, _ *pipeline.Node, pctx *pipeline.Context, _ *pipeline.Graph, _ string) (pipeline.Outcome, error) {
	raw, ok := pctx.Get("parallel.results")
	if !ok {
		return pipeline.Outcome{Status: pipeline.StatusFail, FailureReason: "no parallel.results in context"}, nil
	}
	s, ok := raw.(string)
	if !ok {
		return pipeline.Outcome{Status: pipeline.StatusFail, FailureReason: "parallel.results is not a string"}, nil
	}

	var results []BranchResult
	if err := json.Unmarshal([]byte(s), &results); err != nil {
		return pipeline.Outcome{Status: pipeline.StatusFail, FailureReason: "malformed parallel.results: " + err.Error()}, nil
	}
	if len(results) == 0 {
		return pipeline.Outcome{Status: pipeline.StatusFail, FailureReason: "parallel.results is empty"}, nil
	}

	allFailed := true
	for _, r := range results {
		if r.Outcome != string(pipeline.StatusFail) {
			allFailed = false
			break
		}
	}
	if allFailed {
		return pipeline.Outcome{Status: pipeline.StatusFail, FailureReason: "all branches failed"}, nil
	}

	sorted := append([]BranchResult(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := statusRank(sorted[i].Outcome), statusRank(sorted[j].Outcome)
		if ri != rj {
			return ri < rj
		}
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].Branch < sorted[j].Branch
	})

	best := sorted[0]
	pctx.Set("parallel.fan_in.best_id", best.Branch)

	return pipeline.Outcome{
		Status:         pipeline.StatusSuccess,
		ContextUpdates: map[string]interface{}{"parallel.fan_in.best_id": best.Branch},
	}, nil
}
