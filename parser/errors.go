package parser

import "fmt"

// SyntaxError is raised when the DSL text is malformed. It always
// carries a line:column location, and no partial AST escapes past it.
type SyntaxError struct {
	Line, Col int
	Msg       string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg)
}

// SemanticError is raised for a duplicate ACTION or RULE name within a
// single parse unit.
type SemanticError struct {
	Msg string
}

func (e *SemanticError) Error() string {
	return e.Msg
}
