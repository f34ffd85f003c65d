package pipeline

import (
	"strings"
	"testing"

	"github.com/entropiahr/znj/internal/externs"
)

func mustRegistry(t *testing.T) *externs.Registry {
	t.Helper()
	reg, err := externs.Open(":memory:")
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}
	t.Cleanup(func() { reg.Close() })
	return reg
}

func TestCompileRunsAllSevenStages(t *testing.T) {
	reg := mustRegistry(t)
	ctx := NewPipelineContext("main = 5")
	out := Compile(reg).Run(ctx)
	if len(out.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", out.Errors)
	}
	if !strings.Contains(out.IR, "define i32 @main()") {
		t.Fatalf("expected emitted IR to define main, got:\n%s", out.IR)
	}
}

func TestCompileStopsAtFirstFailingStage(t *testing.T) {
	reg := mustRegistry(t)
	ctx := NewPipelineContext("main = ;")
	out := Compile(reg).Run(ctx)
	if len(out.Errors) == 0 {
		t.Fatalf("expected a lex/group/parse error for malformed source")
	}
	if out.IR != "" {
		t.Fatalf("expected no IR to be emitted once a stage fails, got:\n%s", out.IR)
	}
}
