package handlers

import (
	"context"
	"regexp"
	"strings"

	"github.com/agentspine/spine/internal/pipeline"
)

// Choice is one labelled option presented to the human operator,
// derived from an outgoing edge.
type Choice struct {
	Value string // edge.To
	Label string // edge.Label, or Value if unset
}

const (
	AnswerTimeout = "__TIMEOUT__"
	AnswerSkipped = "__SKIPPED__"
)

var waitAccelerator = regexp.MustCompile(`^(?:\[([A-Za-z0-9])\]|([A-Za-z0-9])\)|([A-Za-z0-9])\s*-)`)

// AcceleratorKey extracts the accelerator key from a choice label via
// "[K] …" / "K) …" / "K - …" patterns, falling back to the label's first
// character.
func AcceleratorKey(label string) string {
	if m := waitAccelerator.FindStringSubmatch(label); m != nil {
		for _, g := range m[1:] {
			if g != "" {
				return strings.ToLower(g)
			}
		}
	}
	if label == "" {
		return ""
	}
	return strings.ToLower(label[:1])
}

// Prompter presents choices to a human operator and returns either the
// chosen value, AnswerTimeout, or AnswerSkipped. Implementations wire
// this to a CLI prompt, websocket round-trip, or any other front end.
type Prompter func(ctx context.Context, node *pipeline.Node, choices []Choice) (string, error)

// WaitHuman implements the hexagon-shaped handler contract: present
// outgoing edges as choices, resolve the operator's answer against
// them, and report suggested_next_ids for the engine's edge selector.
type WaitHuman struct {
	Ask            Prompter
	DefaultChoice  string
}

func (w WaitHuman) Handle(ctx context.Context, node *pipeline.Node, pctx *pipeline.Context, graph *pipeline.Graph, _ string) (pipeline.Outcome, error) {
	edges := graph.OutEdges(node.ID)
	choices := make([]Choice, len(edges))
	for i, e := range edges {
		label := e.Label
		if label == "" {
			label = e.To
		}
		choices[i] = Choice{Value: e.To, Label: label}
	}

	answer, err := w.Ask(ctx, node, choices)
	if err != nil {
		return pipeline.Outcome{}, err
	}

	switch answer {
	case AnswerTimeout:
		target, matched := w.matchDefault(choices)
		if !matched {
			return pipeline.Outcome{Status: pipeline.StatusRetry}, nil
		}
		return pipeline.Outcome{Status: pipeline.StatusSuccess, SuggestedNextIDs: []string{target}}, nil
	case AnswerSkipped:
		return pipeline.Outcome{Status: pipeline.StatusFail, FailureReason: "human operator skipped the prompt"}, nil
	}

	if target, ok := resolveAnswer(answer, choices); ok {
		return pipeline.Outcome{Status: pipeline.StatusSuccess, SuggestedNextIDs: []string{target}}, nil
	}
	if len(choices) > 0 {
		return pipeline.Outcome{Status: pipeline.StatusSuccess, SuggestedNextIDs: []string{choices[0].Value}}, nil
	}
	return pipeline.Outcome{Status: pipeline.StatusFail, FailureReason: "no choices available"}, nil
}

// resolveAnswer matches precedence: exact value, then label text, then
// target id (value and target id are the same field here, kept as two
// passes to mirror the documented precedence order). It reports false
// when nothing matches; Handle then falls back to the first choice.
func resolveAnswer(answer string, choices []Choice) (string, bool) {
	for _, c := range choices {
		if c.Value == answer {
			return c.Value, true
		}
	}
	for _, c := range choices {
		if strings.EqualFold(c.Label, answer) {
			return c.Value, true
		}
	}
	for _, c := range choices {
		if c.Value == answer {
			return c.Value, true
		}
	}
	return "", false
}

func (w WaitHuman) matchDefault(choices []Choice) (string, bool) {
	if w.DefaultChoice == "" {
		return "", false
	}
	for _, c := range choices {
		if c.Value == w.DefaultChoice {
			return c.Value, true
		}
	}
	for _, c := range choices {
		if strings.EqualFold(c.Label, w.DefaultChoice) {
			return c.Value, true
		}
	}
	return "", false
}
