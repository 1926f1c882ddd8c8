package main

import (
	"bytes"
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/agentspine/spine/internal/session"
)

func newDocsCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "docs [project-root]",
		Short: "Render the project-instruction budget a session would inject",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return renderDocs(root, provider)
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "provider name, selects which instruction filenames are scanned")
	return cmd
}

func renderDocs(root, provider string) error {
	snippet := session.BuildProjectDocsSnippet(root, provider)
	if snippet == "" {
		fmt.Println("no project instruction files found (or budget truncated to nothing)")
		return nil
	}

	stats := summarizeMarkdown(snippet)
	fmt.Printf("%d bytes · %d headings · %d words\n\n", len(snippet), stats.headings, stats.words)

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return fmt.Errorf("init markdown renderer: %w", err)
	}

	out, err := renderer.Render(snippet)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	fmt.Print(out)
	return nil
}

type docStats struct {
	headings int
	words    int
}

// summarizeMarkdown walks the goldmark AST to count headings and text
// words, giving the operator a budget-at-a-glance before the styled
// render below it.
func summarizeMarkdown(src string) docStats {
	data := []byte(src)
	doc := goldmark.New().Parser().Parse(text.NewReader(data))

	var stats docStats
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if n.Kind() == ast.KindHeading {
			stats.headings++
		}
		if n.Kind() == ast.KindText {
			stats.words += len(bytes.Fields(n.(*ast.Text).Segment.Value(data)))
		}
		return ast.WalkContinue, nil
	})
	return stats
}
