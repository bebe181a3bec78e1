// Package filter implements the pilot query language: a small
// comparison/boolean DSL that is lexed, parsed, compiled against a
// caller-supplied field binder and then evaluated per object.
package filter

import "fmt"

// ParseError is a lexing or parsing failure with the source position.
type ParseError struct {
	Line int
	Pos  int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at line %d pos %d", e.Msg, e.Line, e.Pos)
}

// CompileError is a compilation failure, typically an identifier the
// binder does not accept.
type CompileError struct {
	Msg string
}

func (e *CompileError) Error() string {
	return e.Msg
}
