package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func buildEdgeGraph() *Graph {
	g := NewGraph("edge-test")
	g.AddNode(&Node{ID: "a"})
	g.AddNode(&Node{ID: "b"})
	g.AddNode(&Node{ID: "c"})
	g.AddNode(&Node{ID: "d"})
	return g
}

func TestSelectEdgeConditionMatchHighestWeight(t *testing.T) {
	g := buildEdgeGraph()
	g.AddEdge(&Edge{From: "a", To: "b", Condition: "outcome=SUCCESS", Weight: 1})
	g.AddEdge(&Edge{From: "a", To: "c", Condition: "outcome=SUCCESS", Weight: 5})
	g.AddEdge(&Edge{From: "a", To: "d", Weight: 10})

	edge := SelectEdge(g, "a", Outcome{Status: StatusSuccess}, NewContext())
	assert.Equal(t, "c", edge.To)
}

func TestSelectEdgePreferredLabelNormalization(t *testing.T) {
	g := buildEdgeGraph()
	g.AddEdge(&Edge{From: "a", To: "b", Label: "[K] Retry"})
	g.AddEdge(&Edge{From: "a", To: "c", Label: "Continue"})

	edge := SelectEdge(g, "a", Outcome{PreferredLabel: "retry"}, NewContext())
	assert.Equal(t, "b", edge.To)
}

func TestSelectEdgeSuggestedNextIDsInOrder(t *testing.T) {
	g := buildEdgeGraph()
	g.AddEdge(&Edge{From: "a", To: "b"})
	g.AddEdge(&Edge{From: "a", To: "c"})

	edge := SelectEdge(g, "a", Outcome{SuggestedNextIDs: []string{"nonexistent", "c", "b"}}, NewContext())
	assert.Equal(t, "c", edge.To)
}

func TestSelectEdgeUnconditionalByWeight(t *testing.T) {
	g := buildEdgeGraph()
	g.AddEdge(&Edge{From: "a", To: "b", Weight: 2})
	g.AddEdge(&Edge{From: "a", To: "c", Weight: 7})
	g.AddEdge(&Edge{From: "a", To: "d", Weight: 7})

	edge := SelectEdge(g, "a", Outcome{}, NewContext())
	// weight tie between c and d: lexical tiebreak picks c.
	assert.Equal(t, "c", edge.To)
}

func TestSelectEdgeFallbackWhenNothingElseMatches(t *testing.T) {
	g := buildEdgeGraph()
	g.AddEdge(&Edge{From: "a", To: "b", Condition: "outcome=FAIL", Weight: 9})

	edge := SelectEdge(g, "a", Outcome{Status: StatusSuccess}, NewContext())
	require := assert.New(t)
	require.NotNil(edge)
	require.Equal("b", edge.To)
}

func TestSelectEdgeNoOutgoingEdgesReturnsNil(t *testing.T) {
	g := buildEdgeGraph()
	edge := SelectEdge(g, "a", Outcome{}, NewContext())
	assert.Nil(t, edge)
}

func TestEvalConditionANDedClauses(t *testing.T) {
	pctx := NewContext()
	pctx.Set("stage.passed", "true")
	assert.True(t, evalCondition("outcome=SUCCESS && stage.passed", Outcome{Status: StatusSuccess}, pctx))
	assert.False(t, evalCondition("outcome=SUCCESS && stage.passed!=true", Outcome{Status: StatusSuccess}, pctx))
}
