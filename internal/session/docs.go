package session

import (
	"os"
	"path/filepath"
)

const projectDocsBudget = 32 * 1024

const truncationMarker = "\n...[truncated at 32KB]"

// providerDocFiles maps a provider name to its additional instruction file,
// on top of the universal AGENTS.md.
var providerDocFiles = map[string]string{
	"openai":    filepath.Join(".codex", "instructions.md"),
	"anthropic": "CLAUDE.md",
	"gemini":    "GEMINI.md",
}

// projectDocFiles returns the ordered list of instruction files to scan for
// the given provider: AGENTS.md first, then the provider-keyed file if any.
func projectDocFiles(provider string) []string {
	files := []string{"AGENTS.md"}
	if extra, ok := providerDocFiles[provider]; ok {
		files = append(files, extra)
	}
	return files
}

// BuildProjectDocsSnippet concatenates the project's instruction files
// under root, in order, respecting the 32 KiB budget: when a file would
// not fully fit, only its remaining prefix (if any budget remains) is
// appended, followed unconditionally by the truncation marker, and
// scanning stops. Reaching the budget exactly with whole files appends
// no marker. Unreadable files are silently skipped.
func BuildProjectDocsSnippet(root, provider string) string {
	remaining := projectDocsBudget
	var out []byte

	for _, name := range projectDocFiles(provider) {
		data, err := os.ReadFile(filepath.Join(root, name))
		if err != nil {
			continue
		}
		if len(data) <= remaining {
			out = append(out, data...)
			remaining -= len(data)
			continue
		}
		if remaining > 0 {
			out = append(out, data[:remaining]...)
		}
		out = append(out, []byte(truncationMarker)...)
		break
	}

	return string(out)
}
