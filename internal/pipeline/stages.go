package pipeline

import (
	"fmt"

	"github.com/entropiahr/znj/internal/ast"
	"github.com/entropiahr/znj/internal/diagnostics"
	"github.com/entropiahr/znj/internal/externs"
	"github.com/entropiahr/znj/internal/flat"
	"github.com/entropiahr/znj/internal/flattener"
	"github.com/entropiahr/znj/internal/grouper"
	"github.com/entropiahr/znj/internal/ir"
	"github.com/entropiahr/znj/internal/lexer"
	"github.com/entropiahr/znj/internal/namer"
	"github.com/entropiahr/znj/internal/named"
	"github.com/entropiahr/znj/internal/normalized"
	"github.com/entropiahr/znj/internal/normalizer"
	"github.com/entropiahr/znj/internal/optree"
	"github.com/entropiahr/znj/internal/parser"
	"github.com/entropiahr/znj/internal/token"
)

func wrongShape(ctx *PipelineContext, phase diagnostics.Phase, stage string, got any) *PipelineContext {
	ctx.Fail(diagnostics.New(phase, diagnostics.ErrI001, fmt.Sprintf("%s given unexpected input %T", stage, got)))
	return ctx
}

// LexStage runs pass 1 over ctx.Source.
type LexStage struct{}

func (LexStage) Process(ctx *PipelineContext) *PipelineContext {
	toks, err := lexer.Lex(ctx.Source)
	if err != nil {
		ctx.Fail(err)
		return ctx
	}
	ctx.Tree = toks
	return ctx
}

// GroupStage runs pass 2 over the token stream LexStage produced.
type GroupStage struct{}

func (GroupStage) Process(ctx *PipelineContext) *PipelineContext {
	toks, ok := ctx.Tree.([]token.Token)
	if !ok {
		return wrongShape(ctx, diagnostics.PhaseGrouper, "grouper", ctx.Tree)
	}
	block, err := grouper.Group(toks)
	if err != nil {
		ctx.Fail(err)
		return ctx
	}
	ctx.Tree = block
	return ctx
}

// ParseStage runs pass 3 over the block GroupStage produced.
type ParseStage struct{}

func (ParseStage) Process(ctx *PipelineContext) *PipelineContext {
	block, ok := ctx.Tree.(*optree.Block)
	if !ok {
		return wrongShape(ctx, diagnostics.PhaseParser, "parser", ctx.Tree)
	}
	tree, err := parser.Parse(block)
	if err != nil {
		ctx.Fail(err)
		return ctx
	}
	ctx.Tree = tree
	return ctx
}

// NameStage runs pass 4 over the AST ParseStage produced.
type NameStage struct{}

func (NameStage) Process(ctx *PipelineContext) *PipelineContext {
	root, ok := ctx.Tree.(ast.Node)
	if !ok {
		return wrongShape(ctx, diagnostics.PhaseNamer, "namer", ctx.Tree)
	}
	tree, err := namer.Name(root)
	if err != nil {
		ctx.Fail(err)
		return ctx
	}
	ctx.Tree = tree
	return ctx
}

// FlattenStage runs pass 5 over the named tree NameStage produced.
type FlattenStage struct{}

func (FlattenStage) Process(ctx *PipelineContext) *PipelineContext {
	root, ok := ctx.Tree.(named.Node)
	if !ok {
		return wrongShape(ctx, diagnostics.PhaseFlattener, "flattener", ctx.Tree)
	}
	mod, err := flattener.Flatten(root)
	if err != nil {
		ctx.Fail(err)
		return ctx
	}
	ctx.Tree = mod
	return ctx
}

// NormalizeStage runs pass 6 over the flat module FlattenStage produced.
// It needs the extern arity registry to resolve externals with no
// explicit type signature.
type NormalizeStage struct {
	Registry *externs.Registry
}

func (s NormalizeStage) Process(ctx *PipelineContext) *PipelineContext {
	mod, ok := ctx.Tree.(*flat.Module)
	if !ok {
		return wrongShape(ctx, diagnostics.PhaseNormalizer, "normalizer", ctx.Tree)
	}
	out, err := normalizer.Normalize(mod, s.Registry)
	if err != nil {
		ctx.Fail(err)
		return ctx
	}
	ctx.Tree = out
	return ctx
}

// EmitStage runs pass 7 over the normalized module NormalizeStage
// produced, writing the result to ctx.IR rather than ctx.Tree.
type EmitStage struct{}

func (EmitStage) Process(ctx *PipelineContext) *PipelineContext {
	mod, ok := ctx.Tree.(*normalized.Module)
	if !ok {
		return wrongShape(ctx, diagnostics.PhaseEmitter, "emitter", ctx.Tree)
	}
	out, err := ir.Emit(mod)
	if err != nil {
		ctx.Fail(err)
		return ctx
	}
	ctx.IR = out
	return ctx
}

// Compile builds the full seven-stage, fail-fast pipeline (spec.md 7).
func Compile(reg *externs.Registry) *Pipeline {
	return New(
		LexStage{},
		GroupStage{},
		ParseStage{},
		NameStage{},
		FlattenStage{},
		NormalizeStage{Registry: reg},
		EmitStage{},
	)
}
