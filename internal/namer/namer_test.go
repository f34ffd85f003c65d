package namer

import (
	"testing"

	"github.com/entropiahr/znj/internal/grouper"
	"github.com/entropiahr/znj/internal/lexer"
	"github.com/entropiahr/znj/internal/named"
	"github.com/entropiahr/znj/internal/parser"
)

func mustName(t *testing.T, src string) named.Node {
	t.Helper()
	toks, lexErr := lexer.Lex(src)
	if lexErr != nil {
		t.Fatalf("lex: %v", lexErr)
	}
	tree, grpErr := grouper.Group(toks)
	if grpErr != nil {
		t.Fatalf("group: %v", grpErr)
	}
	tagged, parseErr := parser.Parse(tree)
	if parseErr != nil {
		t.Fatalf("parse: %v", parseErr)
	}
	n, nameErr := Name(tagged)
	if nameErr != nil {
		t.Fatalf("name: %v", nameErr)
	}
	return n
}

func TestNameResolvesForwardReference(t *testing.T) {
	n := mustName(t, "a = 5; b = a")
	blk := n.(*named.Block)
	bDef := blk.Expressions[1].(*named.Def)
	ref := bDef.Expression.(*named.Name)
	if ref.Value != "a" {
		t.Fatalf("expected reference to resolve to bare 'a', got %q", ref.Value)
	}
}

func TestNameShadowingAllowed(t *testing.T) {
	n := mustName(t, "a = 5; a = a; a")
	blk := n.(*named.Block)
	second := blk.Expressions[1].(*named.Def)
	ref := second.Expression.(*named.Name)
	if ref.Value != "a" {
		t.Fatalf("second def's rhs should see the first 'a', got %q", ref.Value)
	}
	third := blk.Expressions[2].(*named.Name)
	if third.Value != "a.0" {
		t.Fatalf("trailing reference should resolve to the shadowed binding a.0, got %q", third.Value)
	}
}

func TestNameUndefinedReferenceErrors(t *testing.T) {
	toks, _ := lexer.Lex("b = a")
	tree, _ := grouper.Group(toks)
	tagged, _ := parser.Parse(tree)
	if _, err := Name(tagged); err == nil {
		t.Fatal("expected an undefined-reference error")
	}
}

func TestNameDuplicateFnParamErrors(t *testing.T) {
	toks, _ := lexer.Lex("f = (a, a) => a")
	tree, _ := grouper.Group(toks)
	tagged, _ := parser.Parse(tree)
	if _, err := Name(tagged); err == nil {
		t.Fatal("expected a duplicate-parameter error")
	}
}

func TestNameFnParamsNotVisibleOutside(t *testing.T) {
	toks, _ := lexer.Lex("f = x => x; g = x")
	tree, _ := grouper.Group(toks)
	tagged, _ := parser.Parse(tree)
	if _, err := Name(tagged); err == nil {
		t.Fatal("expected an undefined-reference error: fn params don't leak to the enclosing scope")
	}
}
