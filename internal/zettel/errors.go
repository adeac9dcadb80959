package zettel

import "fmt"

// ParseError reports structurally invalid zettel text: a malformed attribute
// line, a duplicate attribute key, or a section underline with no heading.
// Ambiguous date text is not a parse error; it degrades to plain text.
type ParseError struct {
	Line int    // 1-based line within the parsed block, 0 when unknown
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("zettel: parse error at line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("zettel: parse error: %s", e.Msg)
}

func parseErrorf(line int, format string, args ...any) *ParseError {
	return &ParseError{Line: line, Msg: fmt.Sprintf(format, args...)}
}
