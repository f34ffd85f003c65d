package normalizer

import (
	"testing"

	"github.com/entropiahr/znj/internal/externs"
	"github.com/entropiahr/znj/internal/flattener"
	"github.com/entropiahr/znj/internal/grouper"
	"github.com/entropiahr/znj/internal/lexer"
	"github.com/entropiahr/znj/internal/namer"
	"github.com/entropiahr/znj/internal/normalized"
	"github.com/entropiahr/znj/internal/parser"
	"github.com/entropiahr/znj/internal/typesystem"
)

func mustNormalize(t *testing.T, src string) *normalized.Module {
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
	named, nameErr := namer.Name(tagged)
	if nameErr != nil {
		t.Fatalf("name: %v", nameErr)
	}
	flatMod, flatErr := flattener.Flatten(named)
	if flatErr != nil {
		t.Fatalf("flatten: %v", flatErr)
	}
	reg, regErr := externs.Open(":memory:")
	if regErr != nil {
		t.Fatalf("open registry: %v", regErr)
	}
	defer reg.Close()
	mod, normErr := Normalize(flatMod, reg)
	if normErr != nil {
		t.Fatalf("normalize: %v", normErr)
	}
	return mod
}

func TestNormalizeCurriesMultiArgFn(t *testing.T) {
	mod := mustNormalize(t, "add = (a, b) => instruction add(a, b); main = add(1)(2)")
	if len(mod.Fns) != 2 {
		t.Fatalf("expected a 2-arg fn to curry into 2 lifted fns, got %d", len(mod.Fns))
	}
	for _, fn := range mod.Fns {
		if _, ok := fn.ArgType.(typesystem.Int); !ok {
			t.Fatalf("expected every curried fn's arg to resolve to Int, got %s", fn.ArgType)
		}
	}
}

func TestNormalizeCapturesEnclosingArgument(t *testing.T) {
	mod := mustNormalize(t, "make_adder = x => (y => instruction add(x, y)); main = make_adder(1)(2)")

	var inner *normalized.Fn
	for _, fn := range mod.Fns {
		if len(fn.EnvFields) > 0 {
			inner = fn
		}
	}
	if inner == nil {
		t.Fatal("expected exactly one lifted fn to capture an environment field")
	}
	if len(inner.EnvFields) != 1 {
		t.Fatalf("expected the inner fn to capture exactly one field, got %d: %v", len(inner.EnvFields), inner.EnvFields)
	}

	var sawEnvRef bool
	for _, stmt := range inner.Body {
		if ins, ok := stmt.(*normalized.Instruction); ok {
			for _, a := range ins.Args {
				if _, ok := a.(*normalized.EnvRef); ok {
					sawEnvRef = true
				}
			}
		}
	}
	if !sawEnvRef {
		t.Fatal("expected the captured outer argument to surface as an EnvRef inside the inner fn's body")
	}
}

func TestNormalizeMakeClosureWiresOuterFnToItsLift(t *testing.T) {
	mod := mustNormalize(t, "make_adder = x => (y => instruction add(x, y)); main = make_adder(1)(2)")

	// A nested fn is lifted before its enclosing fn, so the outer one is last.
	var found bool
	for _, stmt := range mod.Fns[len(mod.Fns)-1].Body {
		if mc, ok := stmt.(*normalized.MakeClosure); ok {
			found = true
			var match bool
			for _, fn := range mod.Fns {
				if fn.Label == mc.FnLabel {
					match = true
				}
			}
			if !match {
				t.Fatalf("MakeClosure references fn label %q with no matching lifted Fn", mc.FnLabel)
			}
		}
	}
	if !found {
		t.Fatal("expected the outer fn's body to construct a closure for the nested fn")
	}
}

func TestNormalizeUnknownExternalWithoutSignatureOrSeedErrors(t *testing.T) {
	toks, _ := lexer.Lex("external mystery; main = mystery(1)")
	tree, _ := grouper.Group(toks)
	tagged, _ := parser.Parse(tree)
	n, _ := namer.Name(tagged)
	flatMod, _ := flattener.Flatten(n)

	reg, err := externs.Open(":memory:")
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}
	defer reg.Close()

	if _, err := Normalize(flatMod, reg); err == nil {
		t.Fatal("expected an unresolved-external error for a symbol with no signature and no registry entry")
	}
}

func TestNormalizeExternalWithExplicitSignature(t *testing.T) {
	mod := mustNormalize(t, "external puts : Int -> Int; main = puts(5)")
	if len(mod.Externals) != 1 || mod.Externals[0].Name != "puts" {
		t.Fatalf("expected puts to be registered as an external, got %#v", mod.Externals)
	}
}

func TestNormalizeInstructionOperandTypeMismatchErrors(t *testing.T) {
	// instruction add applied to a closure value, not an Int, must fail.
	toks, _ := lexer.Lex("f = x => x; main = instruction add(f, 1)")
	tree, _ := grouper.Group(toks)
	tagged, _ := parser.Parse(tree)
	n, _ := namer.Name(tagged)
	flatMod, _ := flattener.Flatten(n)
	reg, _ := externs.Open(":memory:")
	defer reg.Close()
	if _, err := Normalize(flatMod, reg); err == nil {
		t.Fatal("expected a type error: instruction add applied to a function value")
	}
}
