// Package parser implements pass 3: converting the grouper's operator
// tree into the semantic AST by interpreting each operator's meaning
// (spec.md 4.3).
package parser

import (
	"fmt"

	"github.com/entropiahr/znj/internal/ast"
	"github.com/entropiahr/znj/internal/diagnostics"
	"github.com/entropiahr/znj/internal/optree"
)

// Parse converts a grouper output tree into the semantic AST.
func Parse(root *optree.Block) (ast.Node, *diagnostics.CompileError) {
	return convertGeneric(root)
}

// convertGeneric applies the generic block-conversion rule (spec.md
// 4.3): ";" separated blocks become ast.Block, "," separated blocks
// become ast.Tuple, a null-separator block of exactly one element
// unwraps to that element's conversion, and a null-separator empty
// block becomes an empty ast.Tuple. It is used for ordinary expression
// positions; the special-case forms below (Fn's parameter list, ->'s
// argument-type list) bypass this rule because they need the raw
// element list even when it isn't wrapped in a block.
func convertGeneric(n optree.Node) (ast.Node, *diagnostics.CompileError) {
	switch v := n.(type) {
	case *optree.Integer:
		return &ast.Integer{Type: "integer", Value: v.Value}, nil

	case *optree.Name:
		return &ast.Name{Type: "name", Value: v.Value}, nil

	case *optree.External:
		return &ast.External{Type: "external", Name: v.External}, nil

	case *optree.Instruction:
		args, err := convertAll(v.Args)
		if err != nil {
			return nil, err
		}
		return &ast.Instruction{Type: "instruction", Opcode: v.Opcode, Args: args}, nil

	case *optree.Block:
		switch v.Separator {
		case ";":
			exprs, err := convertAll(v.Expressions)
			if err != nil {
				return nil, err
			}
			return &ast.Block{Type: "block", Expressions: exprs}, nil
		case ",":
			exprs, err := convertAll(v.Expressions)
			if err != nil {
				return nil, err
			}
			return &ast.Tuple{Type: "tuple", Expressions: exprs}, nil
		default: // ""
			switch len(v.Expressions) {
			case 0:
				return &ast.Tuple{Type: "tuple"}, nil
			case 1:
				return convertGeneric(v.Expressions[0])
			default:
				return nil, diagnostics.New(diagnostics.PhaseParser, diagnostics.ErrP005,
					"a null-separator block must hold at most one expression")
			}
		}

	case *optree.Operator:
		return convertOperator(v)

	default:
		return nil, diagnostics.New(diagnostics.PhaseParser, diagnostics.ErrI001, fmt.Sprintf("%T", n))
	}
}

func convertAll(nodes []optree.Node) ([]ast.Node, *diagnostics.CompileError) {
	out := make([]ast.Node, len(nodes))
	for i, n := range nodes {
		c, err := convertGeneric(n)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func convertOperator(op *optree.Operator) (ast.Node, *diagnostics.CompileError) {
	switch op.Op {
	case "call":
		return convertCall(op)
	case "=":
		return convertDef(op)
	case "=>":
		return convertFn(op)
	case ":":
		return convertTyped(op)
	case "->":
		return nil, diagnostics.New(diagnostics.PhaseParser, diagnostics.ErrP004,
			"'->' may only appear on the right-hand side of ':'")
	default:
		return nil, diagnostics.New(diagnostics.PhaseParser, diagnostics.ErrI001, "operator "+op.Op)
	}
}

// convertCall handles "call" nodes: the lhs is the called expression,
// the rhs is generically converted and then unwrapped into an argument
// list — a Tuple's elements become the arguments, anything else becomes
// a single argument (spec.md 4.3: "a non-tuple rhs is one argument").
func convertCall(op *optree.Operator) (ast.Node, *diagnostics.CompileError) {
	callee, err := convertGeneric(op.Lhs)
	if err != nil {
		return nil, err
	}
	rhs, err := convertGeneric(op.Rhs)
	if err != nil {
		return nil, err
	}
	var args []ast.Node
	if tup, ok := rhs.(*ast.Tuple); ok {
		args = tup.Expressions
	} else {
		args = []ast.Node{rhs}
	}
	return &ast.Call{Type: "call", Call: callee, Args: args}, nil
}

// convertDef handles "=" nodes: the lhs must be a Name, optionally
// wrapped in a ':' type annotation (e.g. "x : Int = 5").
func convertDef(op *optree.Operator) (ast.Node, *diagnostics.CompileError) {
	lhs := op.Lhs
	var vtype ast.Type
	if typed, ok := lhs.(*optree.Operator); ok && typed.Op == ":" {
		nm, ok := typed.Lhs.(*optree.Name)
		if !ok {
			return nil, diagnostics.New(diagnostics.PhaseParser, diagnostics.ErrP001, describe(typed.Lhs))
		}
		t, terr := parseType(typed.Rhs)
		if terr != nil {
			return nil, terr
		}
		lhs = nm
		vtype = t
	}

	nm, ok := lhs.(*optree.Name)
	if !ok {
		return nil, diagnostics.New(diagnostics.PhaseParser, diagnostics.ErrP001, describe(lhs))
	}
	expr, err := convertGeneric(op.Rhs)
	if err != nil {
		return nil, err
	}
	return &ast.Def{Type: "def", Name: nm.Value, Expression: expr, VType: vtype}, nil
}

// convertFn handles "=>" nodes: the lhs names the parameters directly
// (bare Name for one parameter, a ","-block of Names for several, or an
// empty "()" for zero), bypassing the generic single-element unwrap so
// that a lone parameter name is never mistaken for an expression.
func convertFn(op *optree.Operator) (ast.Node, *diagnostics.CompileError) {
	names, err := paramNames(op.Lhs)
	if err != nil {
		return nil, err
	}
	expr, cerr := convertGeneric(op.Rhs)
	if cerr != nil {
		return nil, cerr
	}
	return &ast.Fn{Type: "fn", Args: names, Expression: expr}, nil
}

func paramNames(n optree.Node) ([]string, *diagnostics.CompileError) {
	switch v := n.(type) {
	case *optree.Name:
		return []string{v.Value}, nil
	case *optree.Block:
		if v.Separator == ";" {
			return nil, diagnostics.New(diagnostics.PhaseParser, diagnostics.ErrP002, describe(n))
		}
		names := make([]string, len(v.Expressions))
		for i, e := range v.Expressions {
			nm, ok := e.(*optree.Name)
			if !ok {
				return nil, diagnostics.New(diagnostics.PhaseParser, diagnostics.ErrP002, describe(n))
			}
			names[i] = nm.Value
		}
		return names, nil
	default:
		return nil, diagnostics.New(diagnostics.PhaseParser, diagnostics.ErrP002, describe(n))
	}
}

// convertTyped handles top-level ":" nodes that attach a type signature
// directly to an external declaration (e.g. "external puts : Int -> Int").
// ":" nested under "=" is handled by convertDef instead.
func convertTyped(op *optree.Operator) (ast.Node, *diagnostics.CompileError) {
	ext, ok := op.Lhs.(*optree.External)
	if !ok {
		return nil, diagnostics.New(diagnostics.PhaseParser, diagnostics.ErrP004,
			"':' may only type an external declaration or a definition's name")
	}
	t, err := parseType(op.Rhs)
	if err != nil {
		return nil, err
	}
	return &ast.External{Type: "external", Name: ext.External, VType: t}, nil
}

// parseType converts an optree node appearing in type position into an
// ast.Type: a bare Name is a nullary type constructor, and "->" builds a
// (possibly multi-argument, right-nested) function type whose lhs must
// be a ","-block of argument type expressions (spec.md 4.3).
func parseType(n optree.Node) (ast.Type, *diagnostics.CompileError) {
	switch v := n.(type) {
	case *optree.Name:
		return &ast.TypeName{Type: "type_name", Name: v.Value}, nil

	case *optree.Operator:
		if v.Op != "->" {
			return nil, diagnostics.New(diagnostics.PhaseParser, diagnostics.ErrP004, describe(n))
		}
		argTypes, err := typeList(v.Lhs)
		if err != nil {
			return nil, err
		}
		ret, rerr := parseType(v.Rhs)
		if rerr != nil {
			return nil, rerr
		}
		return buildFnType(argTypes, ret), nil

	default:
		return nil, diagnostics.New(diagnostics.PhaseParser, diagnostics.ErrP004, describe(n))
	}
}

// typeList extracts the argument-type list from the lhs of "->": a bare
// type atom is one argument, a ","-block lists several, and "()" lists
// none (spec.md: "lhs must be a ','-block of type expressions").
func typeList(n optree.Node) ([]ast.Type, *diagnostics.CompileError) {
	if b, ok := n.(*optree.Block); ok && b.Separator != ";" {
		if b.Separator == "" && len(b.Expressions) == 0 {
			return nil, nil
		}
		types := make([]ast.Type, len(b.Expressions))
		for i, e := range b.Expressions {
			t, err := parseType(e)
			if err != nil {
				return nil, err
			}
			types[i] = t
		}
		return types, nil
	}
	t, err := parseType(n)
	if err != nil {
		return nil, diagnostics.New(diagnostics.PhaseParser, diagnostics.ErrP003, describe(n))
	}
	return []ast.Type{t}, nil
}

// buildFnType right-folds a curried argument list onto a return type;
// zero arguments yields the return type unchanged (spec.md: an external
// declared with no arguments has no Fn wrapper at all).
func buildFnType(args []ast.Type, ret ast.Type) ast.Type {
	result := ret
	for i := len(args) - 1; i >= 0; i-- {
		result = &ast.TypeFn{Type: "type_fn", Arg: args[i], Ret: result}
	}
	return result
}

func describe(n optree.Node) string {
	switch n.(type) {
	case *optree.Integer:
		return "an integer literal"
	case *optree.Name:
		return "a name"
	case *optree.Operator:
		return "an operator expression"
	case *optree.Block:
		return "a block"
	case *optree.Instruction:
		return "an instruction"
	case *optree.External:
		return "an external declaration"
	default:
		return fmt.Sprintf("%T", n)
	}
}
