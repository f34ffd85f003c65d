package config

// InstructionInfo describes one primitive instruction: its arity and
// the LLVM opcode the emitter lowers it to. Modeled on the teacher's
// config/builtins.go name tables so that adding a new instruction
// (mul, div, a future neg) is a one-row change, as spec.md 4.6
// promises (all instructions are binary Int -> Int -> Int today).
type InstructionInfo struct {
	Opcode string
	Arity  int
	LLVMOp string
}

// Instructions is the single source of truth for the instruction set
// this language's `instruction` form may name.
var Instructions = []InstructionInfo{
	{Opcode: "add", Arity: 2, LLVMOp: "add"},
	{Opcode: "sub", Arity: 2, LLVMOp: "sub"},
}

// GetInstruction returns instruction info by opcode, or false if the
// opcode is unknown.
func GetInstruction(opcode string) (InstructionInfo, bool) {
	for _, ins := range Instructions {
		if ins.Opcode == opcode {
			return ins, true
		}
	}
	return InstructionInfo{}, false
}
