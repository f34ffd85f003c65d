// Package flattener implements pass 5: lowering the namer's tree into
// three-address form, giving every intermediate value its own named
// statement (spec.md 4.5).
package flattener

import (
	"fmt"

	"github.com/entropiahr/znj/internal/diagnostics"
	"github.com/entropiahr/znj/internal/flat"
	"github.com/entropiahr/znj/internal/named"
)

// Flatten lowers a complete namer output tree into a flattened module.
func Flatten(root named.Node) (*flat.Module, *diagnostics.CompileError) {
	expr, stmts, err := flattenNode(root)
	if err != nil {
		return nil, err
	}
	return &flat.Module{Statements: stmts, Expression: expr}, nil
}

// flattenNode lowers one node to the expression that represents its
// value plus the statements that must run to compute it, in order.
func flattenNode(n named.Node) (flat.Expression, []flat.Statement, *diagnostics.CompileError) {
	switch v := n.(type) {
	case *named.Integer:
		return &flat.Integer{Type: "integer", Value: v.Value}, nil, nil

	case *named.Name:
		return &flat.Name{Type: "name", Value: v.Value}, nil, nil

	case *named.Def:
		expr, stmts, err := flattenNode(v.Expression)
		if err != nil {
			return nil, nil, err
		}
		// The namer stamps Fn/Call/Instruction/External with this Def's
		// own label, so their statement already binds it; wrapping that
		// in another flat.Def would just rebind the label to itself.
		if name, ok := expr.(*flat.Name); ok && name.Value == v.Label {
			return expr, stmts, nil
		}
		stmts = append(stmts, &flat.Def{Type: "def", Label: v.Label, Expression: expr})
		return &flat.Name{Type: "name", Value: v.Label}, stmts, nil

	case *named.Fn:
		ret, body, err := flattenNode(v.Expression)
		if err != nil {
			return nil, nil, err
		}
		stmt := &flat.Fn{Type: "fn", Args: v.Args, Label: v.Label, Body: body, Return: ret}
		return &flat.Name{Type: "name", Value: v.Label}, []flat.Statement{stmt}, nil

	case *named.External:
		stmt := &flat.External{Type: "external", Name: v.Name, Label: v.Label, VType: v.VType}
		return &flat.Name{Type: "name", Value: v.Label}, []flat.Statement{stmt}, nil

	case *named.Call:
		var stmts []flat.Statement
		args := make([]flat.Expression, len(v.Args))
		for i, a := range v.Args {
			expr, argStmts, err := flattenNode(a)
			if err != nil {
				return nil, nil, err
			}
			args[i] = expr
			stmts = append(stmts, argStmts...)
		}
		callExpr, callStmts, err := flattenNode(v.Call)
		if err != nil {
			return nil, nil, err
		}
		stmts = append(stmts, callStmts...)
		stmts = append(stmts, &flat.Call{Type: "call", Label: v.Label, Call: callExpr, Args: args})
		return &flat.Name{Type: "name", Value: v.Label}, stmts, nil

	case *named.Instruction:
		var stmts []flat.Statement
		args := make([]flat.Expression, len(v.Args))
		for i, a := range v.Args {
			expr, argStmts, err := flattenNode(a)
			if err != nil {
				return nil, nil, err
			}
			args[i] = expr
			stmts = append(stmts, argStmts...)
		}
		stmts = append(stmts, &flat.Instruction{Type: "instruction", Opcode: v.Opcode, Label: v.Label, Args: args})
		return &flat.Name{Type: "name", Value: v.Label}, stmts, nil

	case *named.Block:
		var stmts []flat.Statement
		var last flat.Expression
		for _, child := range v.Expressions {
			expr, childStmts, err := flattenNode(child)
			if err != nil {
				return nil, nil, err
			}
			stmts = append(stmts, childStmts...)
			last = expr
		}
		return last, stmts, nil

	case *named.Tuple:
		return nil, nil, diagnostics.New(diagnostics.PhaseFlattener, diagnostics.ErrI001,
			fmt.Sprintf("a tuple cannot be used as a value expression (len=%d)", len(v.Expressions)))

	default:
		return nil, nil, diagnostics.New(diagnostics.PhaseFlattener, diagnostics.ErrI001, fmt.Sprintf("%T", n))
	}
}
