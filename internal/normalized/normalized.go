// Package normalized defines the normalizer's output (spec.md 4.6): a
// module where every function has been curried to unary form and
// closure-converted into a top-level code body plus an explicit
// environment, ready for direct lowering to IR.
package normalized

import "github.com/entropiahr/znj/internal/typesystem"

// Expression is a value reference: a literal or a name resolved to
// either a local three-address temporary, a function argument, an
// environment field, or a module-global.
type Expression interface {
	expression()
	Type() typesystem.Type
}

type Integer struct {
	Value int64
}

func (*Integer) expression()            {}
func (*Integer) Type() typesystem.Type { return typesystem.Int{} }

// Name is a plain reference; whether it resolves to a local, an
// argument, or a global is determined positionally by the emitter
// against the enclosing Fn's Arg/EnvFields (spec.md 4.7).
type Name struct {
	Value string
	Typ   typesystem.Type
}

func (*Name) expression()           {}
func (n *Name) Type() typesystem.Type { return n.Typ }

// EnvRef is a reference to a value captured from an enclosing
// function's scope, stored at EnvFields[Index] of the running
// closure's environment.
type EnvRef struct {
	Field string
	Index int
	Typ   typesystem.Type
}

func (*EnvRef) expression()           {}
func (e *EnvRef) Type() typesystem.Type { return e.Typ }

// Statement is one operation within a module or function body.
type Statement interface {
	statement()
}

type Def struct {
	Label      string
	Expression Expression
}

func (*Def) statement() {}

// Call applies a unary closure: Callee must evaluate to a {code_ptr,
// env_ptr} pair, which is invoked as code_ptr(env_ptr, Arg).
type Call struct {
	Label  string
	Callee Expression
	Arg    Expression
	Typ    typesystem.Type
}

func (*Call) statement() {}

type Instruction struct {
	Opcode string
	Label  string
	Args   []Expression
}

func (*Instruction) statement() {}

// MakeClosure packages a top-level Fn's code pointer with a freshly
// built environment capturing EnvValues, producing the {code_ptr,
// env_ptr} pair that represents a function value (spec.md 3,
// "Closure value").
type MakeClosure struct {
	Label     string
	FnLabel   string
	EnvValues []Expression
	Typ       *typesystem.Fn
}

func (*MakeClosure) statement() {}

// Fn is one unary function body: it takes an implicit environment
// pointer (laid out per EnvFields) and a single argument, and may
// reference either (spec.md 4.6, "every non-global function takes
// (env_ptr, arg)").
type Fn struct {
	Label     string
	EnvFields []string
	EnvTypes  []typesystem.Type
	Arg       string
	ArgType   typesystem.Type
	RetType   typesystem.Type
	Body      []Statement
	Return    Expression
}

// External is a module-level imported symbol. Unlike every other
// function value it is never curried or wrapped as a closure — calls
// to it go through ExternalCall using plain calling convention
// (spec.md 4.6, "Externals are not closures").
type External struct {
	Name string
	Typ  *typesystem.Fn
}

// ExternalCall is a direct, non-curried call to an imported symbol.
type ExternalCall struct {
	Label string
	Name  string
	Args  []Expression
	Typ   typesystem.Type
}

func (*ExternalCall) statement() {}

// Module is the complete closure-converted program: every function
// lives in Fns (flat, no nesting); Body/Return is the module's own
// top-level initialization code and result.
type Module struct {
	Externals []*External
	Fns       []*Fn
	Body      []Statement
	Return    Expression
}
