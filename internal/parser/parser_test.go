package parser

import (
	"testing"

	"github.com/entropiahr/znj/internal/ast"
	"github.com/entropiahr/znj/internal/grouper"
	"github.com/entropiahr/znj/internal/lexer"
)

func mustParse(t *testing.T, src string) ast.Node {
	t.Helper()
	toks, lexErr := lexer.Lex(src)
	if lexErr != nil {
		t.Fatalf("lex: %v", lexErr)
	}
	tree, grpErr := grouper.Group(toks)
	if grpErr != nil {
		t.Fatalf("group: %v", grpErr)
	}
	n, parseErr := Parse(tree)
	if parseErr != nil {
		t.Fatalf("parse: %v", parseErr)
	}
	return n
}

func TestParseConstant(t *testing.T) {
	n := mustParse(t, "main = 5")
	blk, ok := n.(*ast.Block)
	if !ok || len(blk.Expressions) != 1 {
		t.Fatalf("expected a 1-expression block, got %#v", n)
	}
	def, ok := blk.Expressions[0].(*ast.Def)
	if !ok || def.Name != "main" {
		t.Fatalf("expected Def(main), got %#v", blk.Expressions[0])
	}
	if _, ok := def.Expression.(*ast.Integer); !ok {
		t.Fatalf("expected integer rhs, got %#v", def.Expression)
	}
}

func TestParseFnAndCurriedCall(t *testing.T) {
	n := mustParse(t, "add = (a, b) => instruction add(a, b); main = add(2)(3)")
	blk := n.(*ast.Block)
	add := blk.Expressions[0].(*ast.Def)
	fn, ok := add.Expression.(*ast.Fn)
	if !ok || len(fn.Args) != 2 || fn.Args[0] != "a" || fn.Args[1] != "b" {
		t.Fatalf("expected Fn(a,b), got %#v", add.Expression)
	}

	main := blk.Expressions[1].(*ast.Def)
	outer, ok := main.Expression.(*ast.Call)
	if !ok || len(outer.Args) != 1 {
		t.Fatalf("expected a 1-arg outer call, got %#v", main.Expression)
	}
	inner, ok := outer.Call.(*ast.Call)
	if !ok || len(inner.Args) != 1 {
		t.Fatalf("expected a curried inner call, got %#v", outer.Call)
	}
	if _, ok := inner.Call.(*ast.Name); !ok {
		t.Fatalf("expected innermost callee to be a Name, got %#v", inner.Call)
	}
}

func TestParseSingleParamFn(t *testing.T) {
	n := mustParse(t, "id = x => x")
	blk := n.(*ast.Block)
	def := blk.Expressions[0].(*ast.Def)
	fn := def.Expression.(*ast.Fn)
	if len(fn.Args) != 1 || fn.Args[0] != "x" {
		t.Fatalf("expected single param x, got %#v", fn.Args)
	}
}

func TestParseExternalWithType(t *testing.T) {
	n := mustParse(t, "external puts : Int -> Int")
	blk := n.(*ast.Block)
	ext, ok := blk.Expressions[0].(*ast.External)
	if !ok || ext.Name != "puts" {
		t.Fatalf("expected External(puts), got %#v", blk.Expressions[0])
	}
	fnType, ok := ext.VType.(*ast.TypeFn)
	if !ok {
		t.Fatalf("expected a TypeFn vtype, got %#v", ext.VType)
	}
	if _, ok := fnType.Arg.(*ast.TypeName); !ok {
		t.Fatalf("expected Int arg type, got %#v", fnType.Arg)
	}
}

func TestParseBareExternal(t *testing.T) {
	n := mustParse(t, "external putchar")
	blk := n.(*ast.Block)
	ext := blk.Expressions[0].(*ast.External)
	if ext.Name != "putchar" || ext.VType != nil {
		t.Fatalf("expected untyped External(putchar), got %#v", ext)
	}
}

func TestParseDefWithLhsNotNameIsError(t *testing.T) {
	toks, _ := lexer.Lex("5 = 6")
	tree, _ := grouper.Group(toks)
	if _, err := Parse(tree); err == nil {
		t.Fatal("expected an error for a non-name lhs of '='")
	}
}
