// Package namer implements pass 4: alpha-renaming every binding to a
// module-unique name, resolving every reference against lexical scope,
// and stamping a synthetic destination label on each value-producing
// node for the flattener to target (spec.md 4.4).
package namer

import (
	"fmt"

	"github.com/entropiahr/znj/internal/ast"
	"github.com/entropiahr/znj/internal/diagnostics"
	"github.com/entropiahr/znj/internal/named"
)

// scope maps a source-level identifier to the counter of its most
// recent binding. A missing entry means "undefined"; -1 ("empty") means
// the identifier has been bound exactly once and keeps its bare name;
// any other value n means the identifier's current unique name is
// "ident.n". Rebinding an already-bound name in the same scope is legal
// (shadowing) and bumps the counter (spec.md 4.4 design note: shadowing
// is allowed, not an error).
type scope map[string]int

const empty = -1

func clone(s scope) scope {
	c := make(scope, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

func resolve(name string, s scope) (string, bool) {
	id, ok := s[name]
	if !ok {
		return "", false
	}
	if id == empty {
		return name, true
	}
	return fmt.Sprintf("%s.%d", name, id), true
}

// bind introduces or rebinds name in s, returning its new unique name
// and the scope it is visible in.
func bind(name string, s scope) (string, scope) {
	next := clone(s)
	id, ok := s[name]
	if !ok {
		next[name] = empty
		return name, next
	}
	if id == empty {
		id = 0
	} else {
		id++
	}
	next[name] = id
	return fmt.Sprintf("%s.%d", name, id), next
}

// Name runs the namer over a complete module (spec.md: the module's
// own synthetic parent label is ".module").
func Name(root ast.Node) (named.Node, *diagnostics.CompileError) {
	n, _, err := nameNode(root, "", ".module", scope{})
	return n, err
}

// nameNode renames one AST node. requestedLabel, when non-empty,
// overrides the node's own destination label (used when this node is
// the last expression of an enclosing block); parentLabel is the
// fallback synthetic label built from the node's position. Def ignores
// both and labels itself from bind instead, since its label doubles as
// the name later Name references resolve to. The returned scope
// reflects only the bindings this node introduces that are visible to
// later siblings — every node except Def and an External with no
// requested label returns its input scope unchanged.
func nameNode(n ast.Node, requestedLabel, parentLabel string, s scope) (named.Node, scope, *diagnostics.CompileError) {
	label := parentLabel
	if requestedLabel != "" {
		label = requestedLabel
	}

	switch v := n.(type) {
	case *ast.Integer:
		return &named.Integer{Type: "integer", Value: v.Value}, s, nil

	case *ast.Name:
		resolved, ok := resolve(v.Value, s)
		if !ok {
			return nil, s, diagnostics.New(diagnostics.PhaseNamer, diagnostics.ErrN001, v.Value)
		}
		return &named.Name{Type: "name", Value: resolved}, s, nil

	case *ast.Def:
		// A Def's label is never taken from requestedLabel/parentLabel: it
		// must be exactly the name later Name references to v.Name resolve
		// to, so bind's own return value is authoritative regardless of
		// where in a block this Def sits.
		defLabel, next := bind(v.Name, s)
		expr, _, err := nameNode(v.Expression, defLabel, parentLabel+".expr", s)
		if err != nil {
			return nil, s, err
		}
		return &named.Def{Type: "def", Expression: expr, VType: v.VType, Label: defLabel}, next, nil

	case *ast.Fn:
		inner := s
		args := make([]string, len(v.Args))
		seen := make(map[string]bool, len(v.Args))
		for i, arg := range v.Args {
			if seen[arg] {
				return nil, s, diagnostics.New(diagnostics.PhaseNamer, diagnostics.ErrN002, arg)
			}
			seen[arg] = true
			unique, next := bind(arg, inner)
			args[i] = unique
			inner = next
		}
		ret, _, err := nameNode(v.Expression, "", parentLabel+".ret", inner)
		if err != nil {
			return nil, s, err
		}
		return &named.Fn{Type: "fn", Args: args, Expression: ret, Label: label}, s, nil

	case *ast.External:
		// An external with no requested label binds its own source name
		// for later siblings, so "external puts; puts(0)" resolves.
		if requestedLabel == "" {
			extLabel, next := bind(v.Name, s)
			return &named.External{Type: "external", Name: v.Name, VType: v.VType, Label: extLabel}, next, nil
		}
		return &named.External{Type: "external", Name: v.Name, VType: v.VType, Label: label}, s, nil

	case *ast.Call:
		call, _, err := nameNode(v.Call, "", parentLabel+".call", s)
		if err != nil {
			return nil, s, err
		}
		args := make([]named.Node, len(v.Args))
		for i, arg := range v.Args {
			a, _, aerr := nameNode(arg, "", fmt.Sprintf("%s.call%d", parentLabel, i), s)
			if aerr != nil {
				return nil, s, aerr
			}
			args[i] = a
		}
		return &named.Call{Type: "call", Call: call, Args: args, Label: label}, s, nil

	case *ast.Instruction:
		args := make([]named.Node, len(v.Args))
		for i, arg := range v.Args {
			a, _, err := nameNode(arg, "", fmt.Sprintf("%s.instruction%d", parentLabel, i), s)
			if err != nil {
				return nil, s, err
			}
			args[i] = a
		}
		return &named.Instruction{Type: "instruction", Opcode: v.Opcode, Args: args, Label: label}, s, nil

	case *ast.Block:
		exprs, err := nameSequence(v.Expressions, label, parentLabel, s)
		if err != nil {
			return nil, s, err
		}
		return &named.Block{Type: "block", Expressions: exprs}, s, nil

	case *ast.Tuple:
		exprs, err := nameSequence(v.Expressions, label, parentLabel, s)
		if err != nil {
			return nil, s, err
		}
		return &named.Tuple{Type: "tuple", Expressions: exprs}, s, nil

	default:
		return nil, s, diagnostics.New(diagnostics.PhaseNamer, diagnostics.ErrI001, fmt.Sprintf("%T", n))
	}
}

// nameSequence names a block/tuple's children left to right, threading
// each child's bindings to the next so later siblings can see earlier
// definitions; the sequence's own enclosing scope is left untouched.
func nameSequence(exprs []ast.Node, label, parentLabel string, s scope) ([]named.Node, *diagnostics.CompileError) {
	out := make([]named.Node, len(exprs))
	inner := s
	for i, e := range exprs {
		requested := ""
		if i == len(exprs)-1 {
			requested = label
		}
		n, next, err := nameNode(e, requested, fmt.Sprintf("%s.%d", parentLabel, i), inner)
		if err != nil {
			return nil, err
		}
		out[i] = n
		inner = next
	}
	return out, nil
}
