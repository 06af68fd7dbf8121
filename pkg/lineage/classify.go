// Package lineage traces where a view column's value ultimately originates.
// It combines a lexical SQL expression classifier with a cycle-safe walk of
// the dependency graph, producing a human-readable provenance chain per
// column. Classification is deliberately textual — no SQL parser — so it
// stays robust across dialects and survives unparsable definitions.
package lineage

import (
	"regexp"
	"strings"
)

// Kind is the classification of a column expression within a view's SQL.
type Kind int

const (
	// NotFound means no aliased expression for the column was located.
	NotFound Kind = iota
	// PassThrough means the column is copied verbatim from upstream.
	PassThrough
	// Calculation means the column is derived via an aggregate or
	// conditional expression.
	Calculation
)

func (k Kind) String() string {
	switch k {
	case PassThrough:
		return "pass-through"
	case Calculation:
		return "calculation"
	default:
		return "not-found"
	}
}

// calcMarkers are the lexical markers that flag an expression as a
// calculation. Lowercase; matched against the lowercased expression text.
// Unlisted functions are missed and markers inside string literals match
// anyway — accepted trade-offs of the text-level approach.
var calcMarkers = []string{
	"sum(", "avg(", "min(", "max(", "count(", "distinct(",
	"case ", " when ", " then ", " else ",
}

// clauseTerminators end the projection list of a SELECT at nesting depth 0.
var clauseTerminators = []string{"from", "where", "group", "order", "having", "limit"}

// Classify inspects a view's SQL text and decides whether the named column is
// a pass-through, a calculation, or absent. The matched expression snippet is
// returned alongside; for NotFound it is empty. Empty or malformed SQL is
// never an error — it classifies as NotFound.
func Classify(viewSQL, column string) (Kind, string) {
	if strings.TrimSpace(viewSQL) == "" || strings.TrimSpace(column) == "" {
		return NotFound, ""
	}

	projection := projectionList(viewSQL)
	if projection == "" {
		return NotFound, ""
	}

	aliasPattern, err := regexp.Compile(`(?i)\bas\s+"?` + regexp.QuoteMeta(column) + `"?(\b|$)`)
	if err != nil {
		return NotFound, ""
	}

	items := splitTopLevel(projection)

	for _, expr := range items {
		if !aliasPattern.MatchString(expr) {
			continue
		}
		expr = strings.TrimSpace(expr)
		if isCalculation(expr) {
			return Calculation, expr
		}
		return PassThrough, expr
	}

	// No alias matched. A projection item that is the bare column reference
	// itself (optionally table-qualified) is still a verbatim copy.
	for _, expr := range items {
		if isBareReference(expr, column) {
			return PassThrough, strings.TrimSpace(expr)
		}
	}

	return NotFound, ""
}

// isBareReference reports whether the projection item is exactly the column
// name, optionally qualified as table.column.
func isBareReference(expr, column string) bool {
	expr = strings.TrimSpace(expr)
	expr = strings.Trim(expr, `"`)
	if dot := strings.LastIndex(expr, "."); dot >= 0 {
		expr = expr[dot+1:]
		expr = strings.Trim(expr, `"`)
	}
	return strings.EqualFold(expr, column)
}

// isCalculation reports whether the expression text contains any aggregate or
// conditional marker.
func isCalculation(expr string) bool {
	lower := strings.ToLower(expr)
	for _, marker := range calcMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// projectionList isolates the text between the first SELECT keyword and the
// next top-level clause keyword (FROM, WHERE, GROUP, ORDER, HAVING, LIMIT).
// Keywords inside parenthesized subexpressions do not terminate the list.
func projectionList(sql string) string {
	tokens := scanWords(sql)

	start := -1
	for _, tok := range tokens {
		if tok.depth == 0 && strings.EqualFold(tok.word, "select") {
			start = tok.end
			break
		}
	}
	if start < 0 {
		return ""
	}

	end := len(sql)
	for _, tok := range tokens {
		if tok.start < start || tok.depth != 0 {
			continue
		}
		for _, term := range clauseTerminators {
			if strings.EqualFold(tok.word, term) {
				return sql[start:tok.start]
			}
		}
	}
	return sql[start:end]
}

// splitTopLevel splits a projection list on commas at parenthesis depth 0.
// Quoted strings are skipped the same way scanWords skips them, so commas
// and parentheses inside literals never split an item.
func splitTopLevel(projection string) []string {
	var parts []string
	depth := 0
	last := 0
	n := len(projection)
	for i := 0; i < n; i++ {
		switch projection[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case '\'', '"':
			quote := projection[i]
			i++
			for i < n && projection[i] != quote {
				i++
			}
		case ',':
			if depth == 0 {
				parts = append(parts, projection[last:i])
				last = i + 1
			}
		}
	}
	parts = append(parts, projection[last:])
	return parts
}

// wordToken is a bare word in SQL text with its position and paren depth.
type wordToken struct {
	word  string
	start int
	end   int
	depth int
}

// scanWords tokenizes SQL text into words, tracking parenthesis nesting.
// Quoted strings are skipped so keywords inside literals are not treated as
// clause boundaries.
func scanWords(sql string) []wordToken {
	var tokens []wordToken
	depth := 0
	i := 0
	n := len(sql)

	for i < n {
		c := sql[i]
		switch {
		case c == '(':
			depth++
			i++
		case c == ')':
			if depth > 0 {
				depth--
			}
			i++
		case c == '\'' || c == '"':
			// Skip to the closing quote; unterminated quotes run to the end.
			quote := c
			i++
			for i < n && sql[i] != quote {
				i++
			}
			if i < n {
				i++
			}
		case isWordByte(c):
			start := i
			for i < n && isWordByte(sql[i]) {
				i++
			}
			tokens = append(tokens, wordToken{
				word:  sql[start:i],
				start: start,
				end:   i,
				depth: depth,
			})
		default:
			i++
		}
	}
	return tokens
}

func isWordByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
