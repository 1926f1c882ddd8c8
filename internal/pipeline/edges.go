package pipeline

import (
	"regexp"
	"sort"
	"strings"
)

var acceleratorPrefix = regexp.MustCompile(`^(?:\[[A-Za-z0-9]\]\s*|[A-Za-z0-9]\)\s*|[A-Za-z0-9]\s*-\s*)`)

// normalizeLabel lowercases, strips a leading accelerator prefix
// ("[K] ", "K) ", "K - "), and trims whitespace.
func normalizeLabel(label string) string {
	stripped := acceleratorPrefix.ReplaceAllString(label, "")
	return strings.TrimSpace(strings.ToLower(stripped))
}

// highestWeight returns the highest-weight edge among candidates,
// tiebreaking lexically on target id ascending.
func highestWeight(candidates []*Edge) *Edge {
	if len(candidates) == 0 {
		return nil
	}
	sorted := append([]*Edge(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Weight != sorted[j].Weight {
			return sorted[i].Weight > sorted[j].Weight
		}
		return sorted[i].To < sorted[j].To
	})
	return sorted[0]
}

// evalCondition evaluates an &&-joined clause list against the outcome
// and context. Each clause is key=value, key!=value, or bare key
// (truthy). An empty clause is skipped (treated as satisfied).
func evalCondition(condition string, outcome Outcome, pctx *Context) bool {
	clauses := strings.Split(condition, "&&")
	for _, clause := range clauses {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		if !evalClause(clause, outcome, pctx) {
			return false
		}
	}
	return true
}

func evalClause(clause string, outcome Outcome, pctx *Context) bool {
	if idx := strings.Index(clause, "!="); idx >= 0 {
		key := strings.TrimSpace(clause[:idx])
		want := strings.TrimSpace(clause[idx+2:])
		return lookupString(key, outcome, pctx) != want
	}
	if idx := strings.Index(clause, "="); idx >= 0 {
		key := strings.TrimSpace(clause[:idx])
		want := strings.TrimSpace(clause[idx+1:])
		return lookupString(key, outcome, pctx) == want
	}
	// Bare key: truthy.
	v := lookupString(clause, outcome, pctx)
	return v != "" && v != "false" && v != "0"
}

func lookupString(key string, outcome Outcome, pctx *Context) string {
	if key == "outcome" || key == "status" {
		return string(outcome.Status)
	}
	if v, ok := pctx.Get(key); ok {
		return toConditionString(v)
	}
	return ""
}

func toConditionString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case nil:
		return ""
	default:
		return ""
	}
}

// SelectEdge implements §4.6.6's deterministic 5-step priority over
// current node's outgoing edges. Returns nil only when there are no
// outgoing edges at all.
func SelectEdge(graph *Graph, currentNode string, outcome Outcome, pctx *Context) *Edge {
	edges := graph.OutEdges(currentNode)
	if len(edges) == 0 {
		return nil
	}

	// 1. Condition match.
	var matching []*Edge
	for _, e := range edges {
		if e.Condition == "" {
			continue
		}
		if evalCondition(e.Condition, outcome, pctx) {
			matching = append(matching, e)
		}
	}
	if len(matching) > 0 {
		return highestWeight(matching)
	}

	// 2. Preferred label.
	if outcome.PreferredLabel != "" {
		normalized := normalizeLabel(outcome.PreferredLabel)
		for _, e := range edges {
			if normalizeLabel(e.Label) == normalized {
				return e
			}
		}
	}

	// 3. Suggested next ids, in order.
	for _, id := range outcome.SuggestedNextIDs {
		for _, e := range edges {
			if e.To == id {
				return e
			}
		}
	}

	// 4. Unconditional by weight.
	var unconditional []*Edge
	for _, e := range edges {
		if e.Condition == "" {
			unconditional = append(unconditional, e)
		}
	}
	if len(unconditional) > 0 {
		return highestWeight(unconditional)
	}

	// 5. Fallback: highest-weight edge overall.
	return highestWeight(edges)
}
