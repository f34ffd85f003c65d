// Package diagnostics defines the compiler's error taxonomy.
//
// Every pass reports failures through a *CompileError carrying the phase
// that detected the problem, a stable error code, and a templated
// message. All errors are fatal: the pipeline stops at the first one
// (spec.md 7, "All errors abort the pipeline immediately").
package diagnostics

import "fmt"

// Phase identifies which pass raised an error.
type Phase string

const (
	PhaseLexer      Phase = "lexer"
	PhaseGrouper    Phase = "grouper"
	PhaseParser     Phase = "parser"
	PhaseNamer      Phase = "namer"
	PhaseFlattener  Phase = "flattener"
	PhaseNormalizer Phase = "normalizer"
	PhaseEmitter    Phase = "emitter"
)

// ErrorCode is a stable, greppable identifier for one kind of failure.
type ErrorCode string

const (
	// Lexer
	ErrL001 ErrorCode = "L001" // unrecognised character

	// Grouper
	ErrG001 ErrorCode = "G001" // unexpected token
	ErrG002 ErrorCode = "G002" // mixed separators in one block
	ErrG003 ErrorCode = "G003" // operator missing lhs
	ErrG004 ErrorCode = "G004" // operator missing rhs
	ErrG005 ErrorCode = "G005" // keyword not followed by required form
	ErrG006 ErrorCode = "G006" // unbalanced parentheses / leftover tokens

	// Parser
	ErrP001 ErrorCode = "P001" // lhs of '=' is not a name
	ErrP002 ErrorCode = "P002" // lhs of '=>' is not a tuple of names
	ErrP003 ErrorCode = "P003" // lhs of '->' is not a tuple of type expressions
	ErrP004 ErrorCode = "P004" // malformed type expression
	ErrP005 ErrorCode = "P005" // malformed call

	// Namer
	ErrN001 ErrorCode = "N001" // reference to an undefined name
	ErrN002 ErrorCode = "N002" // duplicate definition in the same scope

	// Normalizer (typing + closure conversion)
	ErrT001 ErrorCode = "T001" // type mismatch
	ErrT002 ErrorCode = "T002" // wrong argument arity
	ErrT003 ErrorCode = "T003" // instruction operand type mismatch
	ErrT004 ErrorCode = "T004" // unknown instruction
	ErrT005 ErrorCode = "T005" // unresolved external
	ErrT006 ErrorCode = "T006" // applying a non-function

	// Internal
	ErrI001 ErrorCode = "I001" // unreachable tag surfaced during lowering
)

var templates = map[ErrorCode]string{
	ErrL001: "unrecognised character: %q",

	ErrG001: "unexpected token at this position: %s",
	ErrG002: "block mixes separators %q and %q",
	ErrG003: "operator %q is missing its left-hand side",
	ErrG004: "operator %q is missing its right-hand side",
	ErrG005: "%s must be followed by %s",
	ErrG006: "parser could not read all tokens, %d left over",

	ErrP001: "left-hand side of '=' must be a name, found %s",
	ErrP002: "left-hand side of '=>' must be a tuple of names, found %s",
	ErrP003: "left-hand side of '->' must be a tuple of type expressions, found %s",
	ErrP004: "malformed type expression: %s",
	ErrP005: "malformed call: %s",

	ErrN001: "reference to an undefined name: %q",
	ErrN002: "duplicate definition of %q in the same scope",

	ErrT001: "type mismatch: %s and %s don't unify",
	ErrT002: "wrong number of arguments: expected %d, got %d",
	ErrT003: "instruction %q expects Int operands, got %s",
	ErrT004: "unknown instruction: %q",
	ErrT005: "unresolved external: %q",
	ErrT006: "cannot call a value of type %s",

	ErrI001: "internal error: unreachable tag %q surfaced during lowering",
}

// CompileError is the single error type every pass returns.
type CompileError struct {
	Phase  Phase
	Code   ErrorCode
	Args   []interface{}
	Line   int
	Column int
}

func (e *CompileError) Error() string {
	template, ok := templates[e.Code]
	if !ok {
		return fmt.Sprintf("[%s] unknown error code: %s", e.Phase, e.Code)
	}
	msg := fmt.Sprintf(template, e.Args...)
	if e.Line > 0 {
		return fmt.Sprintf("[%s %s] %d:%d: %s", e.Phase, e.Code, e.Line, e.Column, msg)
	}
	return fmt.Sprintf("[%s %s] %s", e.Phase, e.Code, msg)
}

// New builds a CompileError with no positional information attached
// (passes 4-7 operate on trees that no longer carry source spans, per
// spec.md's "source location tracking in errors" non-goal beyond the
// lexer/grouper).
func New(phase Phase, code ErrorCode, args ...interface{}) *CompileError {
	return &CompileError{Phase: phase, Code: code, Args: args}
}

// NewAt builds a CompileError positioned at a line/column, used by the
// lexer and grouper which still see raw token positions.
func NewAt(phase Phase, code ErrorCode, line, column int, args ...interface{}) *CompileError {
	return &CompileError{Phase: phase, Code: code, Args: args, Line: line, Column: column}
}
