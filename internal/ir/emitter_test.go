package ir

import (
	"strings"
	"testing"

	"github.com/entropiahr/znj/internal/externs"
	"github.com/entropiahr/znj/internal/flattener"
	"github.com/entropiahr/znj/internal/grouper"
	"github.com/entropiahr/znj/internal/lexer"
	"github.com/entropiahr/znj/internal/namer"
	"github.com/entropiahr/znj/internal/normalizer"
	"github.com/entropiahr/znj/internal/parser"
)

func mustEmit(t *testing.T, src string) string {
	t.Helper()
	toks, err := lexer.Lex(src)
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	tree, err := grouper.Group(toks)
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	tagged, err := parser.Parse(tree)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	n, err := namer.Name(tagged)
	if err != nil {
		t.Fatalf("name: %v", err)
	}
	flatMod, err := flattener.Flatten(n)
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}
	reg, regErr := externs.Open(":memory:")
	if regErr != nil {
		t.Fatalf("open registry: %v", regErr)
	}
	defer reg.Close()
	mod, err := normalizer.Normalize(flatMod, reg)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	out, emitErr := Emit(mod)
	if emitErr != nil {
		t.Fatalf("emit: %v", emitErr)
	}
	return out
}

func TestEmitConstantMain(t *testing.T) {
	out := mustEmit(t, "main = 5")
	if !strings.Contains(out, "define i32 @main()") {
		t.Fatalf("expected a nullary i32 main, got:\n%s", out)
	}
	if !strings.Contains(out, "ret i32 5") {
		t.Fatalf("expected main to return the constant 5, got:\n%s", out)
	}
}

func TestEmitInstructionLowersToArithmetic(t *testing.T) {
	out := mustEmit(t, "add = (a, b) => instruction add(a, b); main = add(1)(2)")
	if !strings.Contains(out, "= add i32") {
		t.Fatalf("expected an add instruction in the output, got:\n%s", out)
	}
}

func TestEmitExternalDeclaredAndCalledPlain(t *testing.T) {
	out := mustEmit(t, "external puts : Int -> Int; main = puts(5)")
	if !strings.Contains(out, "declare i32 @puts(i32)") {
		t.Fatalf("expected puts to be declared with plain calling convention, got:\n%s", out)
	}
	if !strings.Contains(out, "call i32 @puts(") {
		t.Fatalf("expected a direct, non-closure call to puts, got:\n%s", out)
	}
}

func TestEmitClosureCaptureAllocatesEnv(t *testing.T) {
	out := mustEmit(t, "make_adder = x => (y => instruction add(x, y)); main = make_adder(1)(2)")
	if !strings.Contains(out, ".env = type {") {
		t.Fatalf("expected a named env struct type for the capturing fn, got:\n%s", out)
	}
	if !strings.Contains(out, "alloca %") {
		t.Fatalf("expected the environment to be stack-allocated, got:\n%s", out)
	}
	if !strings.Contains(out, "extractvalue") {
		t.Fatalf("expected a closure call to extract code_ptr/env_ptr, got:\n%s", out)
	}
}
