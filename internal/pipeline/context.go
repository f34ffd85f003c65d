// Package pipeline chains the seven compiler passes behind a single
// Processor interface, mirroring the teacher's internal/pipeline
// package.
package pipeline

import "github.com/entropiahr/znj/internal/diagnostics"

// Processor is one stage of the compiler pipeline.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// PipelineContext carries state between pipeline stages. Tree holds
// whatever the most recently completed stage produced (a token slice,
// an optree.Block, an ast.Node, ...); each Processor downcasts it to
// the type it expects and fails the context if the shape is wrong.
type PipelineContext struct {
	Source string
	Tree   any
	IR     string
	Errors []*diagnostics.CompileError
}

// NewPipelineContext seeds a context with source text and nothing else.
func NewPipelineContext(source string) *PipelineContext {
	return &PipelineContext{Source: source}
}

// Fail appends a pass error. Once Errors is non-empty, Pipeline.Run
// stops advancing the context (spec.md 7: all errors abort the
// pipeline immediately; no partial IR is emitted on error).
func (c *PipelineContext) Fail(err *diagnostics.CompileError) {
	c.Errors = append(c.Errors, err)
}
