// Package render turns the schema index, dependency graph, and lineage
// results into Graphviz DOT sources and HTML pages. It writes nothing itself;
// the site builder decides where output lands.
package render

import "strings"

// DefaultSnippetWidth is the window size used for edge tooltips.
const DefaultSnippetWidth = 150

// SnippetAround extracts a window of text centered on the first occurrence of
// keyword, case-insensitively. When the keyword is absent the head of the
// text is returned instead. Truncated ends are marked with ellipses.
func SnippetAround(text, keyword string, width int) string {
	if text == "" {
		return ""
	}
	if width <= 0 {
		width = DefaultSnippetWidth
	}

	idx := strings.Index(strings.ToLower(text), strings.ToLower(keyword))
	if idx < 0 || keyword == "" {
		if len(text) > width {
			return text[:width] + "..."
		}
		return text
	}

	start := idx - width/2
	if start < 0 {
		start = 0
	}
	end := start + width
	if end > len(text) {
		end = len(text)
	}

	snippet := text[start:end]
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(text) {
		snippet += "..."
	}
	return snippet
}
