package session

// nonStringToolResultChars is the charge for a tool_results entry whose
// payload is not plain text. ToolResult.Content is always a string, so
// TotalChars never applies it.
const nonStringToolResultChars = 100

// TotalChars sums the text length of every content-bearing turn: user,
// steering and system text directly, assistant text plus its reasoning
// text, and each result's string length for tool_results turns.
func TotalChars(turns []Turn) int {
	total := 0
	for _, t := range turns {
		switch t.Kind {
		case TurnUser, TurnSteering, TurnSystem:
			total += len(t.Content)
		case TurnAssistant:
			total += len(t.Content) + len(t.Reasoning)
		case TurnToolResults:
			for _, r := range t.Results {
				total += len(r.Content)
			}
		}
	}
	return total
}

// EstimateTokens approximates token usage as total_chars / 4.
func EstimateTokens(turns []Turn) int {
	return TotalChars(turns) / 4
}

type ContextUsage struct {
	EstimatedTokens int
	ContextWindow   int
	Ratio           float64
	Warn            bool
}

// CheckContextUsage reports whether estimated prompt usage exceeds 80%
// of the declared context window.
func CheckContextUsage(turns []Turn, contextWindow int) ContextUsage {
	tokens := EstimateTokens(turns)
	ratio := 0.0
	if contextWindow > 0 {
		ratio = float64(tokens) / float64(contextWindow)
	}
	return ContextUsage{
		EstimatedTokens: tokens,
		ContextWindow:   contextWindow,
		Ratio:           ratio,
		Warn:            ratio > 0.8,
	}
}
