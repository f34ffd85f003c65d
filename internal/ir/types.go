// Package ir renders a closure-converted module to a typed, LLVM-flavored
// textual IR (spec.md 4.7). It does not link against an LLVM binding —
// the corpus this compiler is built from has none — it prints the same
// shapes an `llvmlite`-driven emitter would produce by hand, which is
// enough for this language's fixed, tiny type lattice.
package ir

import (
	"fmt"

	"github.com/entropiahr/znj/internal/typesystem"
)

// Type is a textual IR type: this language needs exactly three shapes.
type Type interface {
	irType()
	String() string
}

// Int32 is the only scalar value type this language has.
type Int32 struct{}

func (Int32) irType()        {}
func (Int32) String() string { return "i32" }

// OpaquePtr is the env_ptr type every closure call passes positionally.
type OpaquePtr struct{}

func (OpaquePtr) irType()        {}
func (OpaquePtr) String() string { return "i8*" }

// Closure is the {code_ptr, env_ptr} pair a function value compiles to
// (spec.md 4.6, "Closure representation").
type Closure struct {
	Arg Type
	Ret Type
}

func (*Closure) irType() {}
func (c *Closure) String() string {
	return fmt.Sprintf("{ %s (i8*, %s)*, i8* }", c.Ret, c.Arg)
}

// FromType lowers a unified typesystem.Type into its IR shape. The
// normalizer rejects an Unknown module result and an Unknown argument
// or return type on any lifted function; an Unknown nested anywhere
// else still reaches here and lowers as i32.
func FromType(t typesystem.Type) Type {
	switch v := t.(type) {
	case typesystem.Int:
		return Int32{}
	case *typesystem.Fn:
		return &Closure{Arg: FromType(v.Arg), Ret: FromType(v.Ret)}
	default:
		return Int32{}
	}
}
