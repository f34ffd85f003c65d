package config

import "testing"

func TestGetOperatorKnownAndUnknown(t *testing.T) {
	if op := GetOperator("call"); op == nil || op.Precedence != PrecCall {
		t.Fatalf("expected call at PrecCall, got %+v", op)
	}
	if op := GetOperator("=>"); op == nil || op.Assoc != AssocRight {
		t.Fatalf("expected => to be right-associative, got %+v", op)
	}
	if op := GetOperator("??"); op != nil {
		t.Fatalf("expected no operator for an unknown symbol, got %+v", op)
	}
}

func TestGetInstructionKnownAndUnknown(t *testing.T) {
	info, ok := GetInstruction("add")
	if !ok || info.Arity != 2 || info.LLVMOp != "add" {
		t.Fatalf("expected add/2/add, got %+v ok=%v", info, ok)
	}
	if _, ok := GetInstruction("mul"); ok {
		t.Fatalf("expected mul to be unregistered")
	}
}
