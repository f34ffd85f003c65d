// Package typesystem implements the normalizer's type language: a
// two-level lattice of Unknown, Int, and Fn(arg, ret), with Unknown as
// the top element unifying with anything (spec.md 4.6). This is a
// deliberate reduction of the teacher's full Hindley-Milner type
// system down to the three constructors this language actually has —
// there is no polymorphism, no type variables, and no user-defined
// types to solve for.
package typesystem

import (
	"fmt"

	"github.com/entropiahr/znj/internal/ast"
)

// Type is the closed union of type constructors.
type Type interface {
	typ()
	String() string
}

// Unknown is the top element: it unifies with any type, taking that
// type's shape. It appears only during inference, never in emitted IR.
type Unknown struct{}

func (Unknown) typ()          {}
func (Unknown) String() string { return "Unknown" }

// Int is the only base type this language has.
type Int struct{}

func (Int) typ()          {}
func (Int) String() string { return "Int" }

// Fn is a function type: one argument type, one return type. Curried
// multi-argument signatures are nested Fn values.
type Fn struct {
	Arg Type
	Ret Type
}

func (*Fn) typ() {}
func (f *Fn) String() string {
	return fmt.Sprintf("(%s -> %s)", f.Arg.String(), f.Ret.String())
}

// IsUnknown reports whether t is the Unknown top element.
func IsUnknown(t Type) bool {
	_, ok := t.(Unknown)
	return ok
}

// Unify merges two types that both describe the same value, returning
// the most specific type that satisfies both, or an error if they are
// structurally incompatible. Mirrors the original's type_infer/
// type_validate pair, but returns a Go error instead of None/panic so
// every call site can attach its own diagnostic context.
func Unify(a, b Type) (Type, error) {
	if IsUnknown(a) {
		return b, nil
	}
	if IsUnknown(b) {
		return a, nil
	}

	switch av := a.(type) {
	case Int:
		if _, ok := b.(Int); ok {
			return Int{}, nil
		}
		return nil, fmt.Errorf("%s and %s don't unify", a, b)

	case *Fn:
		bv, ok := b.(*Fn)
		if !ok {
			return nil, fmt.Errorf("%s and %s don't unify", a, b)
		}
		arg, err := Unify(av.Arg, bv.Arg)
		if err != nil {
			return nil, err
		}
		ret, err := Unify(av.Ret, bv.Ret)
		if err != nil {
			return nil, err
		}
		return &Fn{Arg: arg, Ret: ret}, nil

	default:
		return nil, fmt.Errorf("internal: unreachable type %T in Unify", a)
	}
}

// Split returns a function type's argument and return types. It passes
// Unknown through as (Unknown, Unknown) so inference can still descend
// into a yet-unconstrained function's body (mirrors
// type_function_split's Unknown short-circuit).
func Split(t Type) (arg, ret Type, err error) {
	if IsUnknown(t) {
		return Unknown{}, Unknown{}, nil
	}
	fn, ok := t.(*Fn)
	if !ok {
		return nil, nil, fmt.Errorf("%s is not a function type", t)
	}
	return fn.Arg, fn.Ret, nil
}

// FromAST converts a parsed type expression (spec.md 4.3's ast.Type)
// into a typesystem.Type. The result is always fully known: source
// type signatures never spell "Unknown".
func FromAST(t ast.Type) (Type, error) {
	if t == nil {
		return nil, fmt.Errorf("no type expression given")
	}
	switch v := t.(type) {
	case *ast.TypeName:
		if v.Name != "Int" {
			return nil, fmt.Errorf("unknown type name %q", v.Name)
		}
		return Int{}, nil
	case *ast.TypeFn:
		arg, err := FromAST(v.Arg)
		if err != nil {
			return nil, err
		}
		ret, err := FromAST(v.Ret)
		if err != nil {
			return nil, err
		}
		return &Fn{Arg: arg, Ret: ret}, nil
	default:
		return nil, fmt.Errorf("internal: unreachable ast.Type %T in FromAST", t)
	}
}
