package flattener

import (
	"testing"

	"github.com/entropiahr/znj/internal/flat"
	"github.com/entropiahr/znj/internal/grouper"
	"github.com/entropiahr/znj/internal/lexer"
	"github.com/entropiahr/znj/internal/namer"
	"github.com/entropiahr/znj/internal/parser"
)

func mustFlatten(t *testing.T, src string) *flat.Module {
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
	n, nameErr := namer.Name(tagged)
	if nameErr != nil {
		t.Fatalf("name: %v", nameErr)
	}
	mod, flatErr := Flatten(n)
	if flatErr != nil {
		t.Fatalf("flatten: %v", flatErr)
	}
	return mod
}

func TestFlattenConstant(t *testing.T) {
	mod := mustFlatten(t, "main = 5")
	if len(mod.Statements) != 1 {
		t.Fatalf("expected one statement, got %d", len(mod.Statements))
	}
	def, ok := mod.Statements[0].(*flat.Def)
	if !ok {
		t.Fatalf("expected a Def statement, got %#v", mod.Statements[0])
	}
	lit, ok := def.Expression.(*flat.Integer)
	if !ok || lit.Value != 5 {
		t.Fatalf("expected integer literal 5, got %#v", def.Expression)
	}
}

func TestFlattenNestedCallProducesThreeAddressForm(t *testing.T) {
	mod := mustFlatten(t, "add = (a, b) => instruction add(a, b); main = add(1, 2)")
	var sawInstruction, sawCall bool
	for _, s := range mod.Statements {
		switch s.(type) {
		case *flat.Instruction:
			sawInstruction = true
		}
	}
	for _, fnStmt := range mod.Statements {
		fn, ok := fnStmt.(*flat.Fn)
		if !ok {
			continue
		}
		for _, b := range fn.Body {
			if _, ok := b.(*flat.Instruction); ok {
				sawInstruction = true
			}
		}
	}
	for _, s := range mod.Statements {
		if _, ok := s.(*flat.Call); ok {
			sawCall = true
		}
	}
	if !sawInstruction {
		t.Fatal("expected an instruction statement somewhere in the module")
	}
	if !sawCall {
		t.Fatal("expected a call statement at module scope")
	}
}

func TestFlattenBareTupleValueErrors(t *testing.T) {
	toks, _ := lexer.Lex("main = (1, 2)")
	tree, _ := grouper.Group(toks)
	tagged, _ := parser.Parse(tree)
	n, _ := namer.Name(tagged)
	if _, err := Flatten(n); err == nil {
		t.Fatal("expected an error: a tuple cannot be used as a bare value")
	}
}
