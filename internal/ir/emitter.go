package ir

import (
	"bytes"
	"fmt"

	"github.com/entropiahr/znj/internal/config"
	"github.com/entropiahr/znj/internal/diagnostics"
	"github.com/entropiahr/znj/internal/normalized"
	"github.com/entropiahr/znj/internal/typesystem"
)

// Emit lowers a closure-converted module into textual IR (spec.md 4.7).
func Emit(mod *normalized.Module) (string, *diagnostics.CompileError) {
	e := &emitter{
		externNames: make(map[string]bool),
		globals:     make(map[string]value),
	}
	for _, ext := range mod.Externals {
		e.externNames[ext.Name] = true
	}

	e.buf.WriteString("target triple = \"x86_64-unknown-linux-gnu\"\n\n")

	for _, fn := range mod.Fns {
		if len(fn.EnvFields) > 0 {
			e.declareEnvType(fn)
		}
	}
	for _, ext := range mod.Externals {
		if err := e.declareExternal(ext); err != nil {
			return "", err
		}
	}
	e.buf.WriteString("\n")

	for _, fn := range mod.Fns {
		if err := e.defineFn(fn); err != nil {
			return "", err
		}
	}

	if err := e.defineMain(mod); err != nil {
		return "", err
	}

	return e.buf.String(), nil
}

// value is a lowered expression: its textual SSA/constant reference and
// its IR type.
type value struct {
	ref string
	typ Type
}

type emitter struct {
	buf         bytes.Buffer
	externNames map[string]bool
	globals     map[string]value
	temp        int
}

func (e *emitter) nextTemp(prefix string) string {
	e.temp++
	return fmt.Sprintf("%s.t%d", prefix, e.temp)
}

func (e *emitter) declareEnvType(fn *normalized.Fn) {
	fmt.Fprintf(&e.buf, "%%%s.env = type { ", fn.Label)
	for i, t := range fn.EnvTypes {
		if i > 0 {
			e.buf.WriteString(", ")
		}
		e.buf.WriteString(FromType(t).String())
	}
	e.buf.WriteString(" }\n")
}

func flattenChain(fn *typesystem.Fn) (args []typesystem.Type, ret typesystem.Type) {
	var cur typesystem.Type = fn
	for {
		f, ok := cur.(*typesystem.Fn)
		if !ok {
			return args, cur
		}
		args = append(args, f.Arg)
		cur = f.Ret
	}
}

func (e *emitter) declareExternal(ext *normalized.External) *diagnostics.CompileError {
	argTypes, retType := flattenChain(ext.Typ)
	fmt.Fprintf(&e.buf, "declare %s @%s(", FromType(retType), ext.Name)
	for i, t := range argTypes {
		if i > 0 {
			e.buf.WriteString(", ")
		}
		e.buf.WriteString(FromType(t).String())
	}
	e.buf.WriteString(")\n")
	return nil
}

// defineFn emits one lifted function: its env unwrap prologue, its body
// statements, and its terminating return (spec.md 4.7, "Per-function
// body lowering").
func (e *emitter) defineFn(fn *normalized.Fn) *diagnostics.CompileError {
	retIR := FromType(fn.RetType)
	argIR := FromType(fn.ArgType)
	fmt.Fprintf(&e.buf, "define %s @%s(i8* %%.envcast, %s %%%s) {\n", retIR, fn.Label, argIR, fn.Arg)
	e.buf.WriteString("entry:\n")

	locals := make(map[string]value)
	locals[fn.Arg] = value{ref: "%" + fn.Arg, typ: argIR}

	if len(fn.EnvFields) > 0 {
		fmt.Fprintf(&e.buf, "  %%.env = bitcast i8* %%.envcast to %%%s.env*\n", fn.Label)
		for i, field := range fn.EnvFields {
			fieldType := FromType(fn.EnvTypes[i])
			fmt.Fprintf(&e.buf, "  %%.env.%s = getelementptr %%%s.env, %%%s.env* %%.env, i32 0, i32 %d\n",
				field, fn.Label, fn.Label, i)
			fmt.Fprintf(&e.buf, "  %%%s = load %s, %s* %%.env.%s\n", field, fieldType, fieldType, field)
			locals[field] = value{ref: "%" + field, typ: fieldType}
		}
	}

	for _, stmt := range fn.Body {
		if err := e.lowerStatement(stmt, locals); err != nil {
			return err
		}
	}
	ret, err := e.lowerExpression(fn.Return, locals)
	if err != nil {
		return err
	}
	fmt.Fprintf(&e.buf, "  ret %s %s\n", retIR, ret.ref)
	e.buf.WriteString("}\n\n")
	return nil
}

// defineMain emits the nullary entry point (spec.md 4.7, "main is a
// nullary function returning Int").
func (e *emitter) defineMain(mod *normalized.Module) *diagnostics.CompileError {
	e.buf.WriteString("define i32 @main() {\n")
	e.buf.WriteString("entry:\n")

	locals := make(map[string]value)
	for _, stmt := range mod.Body {
		if err := e.lowerStatement(stmt, locals); err != nil {
			return err
		}
	}
	ret, err := e.lowerExpression(mod.Return, locals)
	if err != nil {
		return err
	}
	fmt.Fprintf(&e.buf, "  ret i32 %s\n", ret.ref)
	e.buf.WriteString("}\n")
	return nil
}

func (e *emitter) lowerExpression(expr normalized.Expression, locals map[string]value) (value, *diagnostics.CompileError) {
	switch v := expr.(type) {
	case *normalized.Integer:
		return value{ref: fmt.Sprintf("%d", v.Value), typ: Int32{}}, nil
	case *normalized.Name:
		if e.externNames[v.Value] {
			return value{ref: "@" + v.Value, typ: FromType(v.Typ)}, nil
		}
		if val, ok := locals[v.Value]; ok {
			return val, nil
		}
		return value{ref: "@" + v.Value, typ: FromType(v.Typ)}, nil
	case *normalized.EnvRef:
		if val, ok := locals[v.Field]; ok {
			return val, nil
		}
		return value{ref: "%" + v.Field, typ: FromType(v.Typ)}, nil
	default:
		return value{}, diagnostics.New(diagnostics.PhaseEmitter, diagnostics.ErrI001, fmt.Sprintf("%T", expr))
	}
}

func (e *emitter) lowerStatement(stmt normalized.Statement, locals map[string]value) *diagnostics.CompileError {
	switch s := stmt.(type) {
	case *normalized.Def:
		v, err := e.lowerExpression(s.Expression, locals)
		if err != nil {
			return err
		}
		locals[s.Label] = v
		return nil

	case *normalized.Instruction:
		lhs, err := e.lowerExpression(s.Args[0], locals)
		if err != nil {
			return err
		}
		rhs, err := e.lowerExpression(s.Args[1], locals)
		if err != nil {
			return err
		}
		op, ok := llvmOp(s.Opcode)
		if !ok {
			return diagnostics.New(diagnostics.PhaseEmitter, diagnostics.ErrT004, s.Opcode)
		}
		fmt.Fprintf(&e.buf, "  %%%s = %s i32 %s, %s\n", s.Label, op, lhs.ref, rhs.ref)
		locals[s.Label] = value{ref: "%" + s.Label, typ: Int32{}}
		return nil

	case *normalized.ExternalCall:
		args := make([]value, len(s.Args))
		for i, a := range s.Args {
			v, err := e.lowerExpression(a, locals)
			if err != nil {
				return err
			}
			args[i] = v
		}
		retIR := FromType(s.Typ)
		fmt.Fprintf(&e.buf, "  %%%s = call %s @%s(", s.Label, retIR, s.Name)
		for i, a := range args {
			if i > 0 {
				e.buf.WriteString(", ")
			}
			fmt.Fprintf(&e.buf, "%s %s", a.typ, a.ref)
		}
		e.buf.WriteString(")\n")
		locals[s.Label] = value{ref: "%" + s.Label, typ: retIR}
		return nil

	case *normalized.Call:
		callee, err := e.lowerExpression(s.Callee, locals)
		if err != nil {
			return err
		}
		arg, err := e.lowerExpression(s.Arg, locals)
		if err != nil {
			return err
		}
		retIR := FromType(s.Typ)
		fmt.Fprintf(&e.buf, "  %%%s.fn = extractvalue %s %s, 0\n", s.Label, callee.typ, callee.ref)
		fmt.Fprintf(&e.buf, "  %%%s.env = extractvalue %s %s, 1\n", s.Label, callee.typ, callee.ref)
		fmt.Fprintf(&e.buf, "  %%%s = call %s %%%s.fn(i8* %%%s.env, %s %s)\n",
			s.Label, retIR, s.Label, s.Label, arg.typ, arg.ref)
		locals[s.Label] = value{ref: "%" + s.Label, typ: retIR}
		return nil

	case *normalized.MakeClosure:
		closureType := FromType(s.Typ)
		if len(s.EnvValues) == 0 {
			fmt.Fprintf(&e.buf, "  %%%s.tmp = insertvalue %s undef, %s @%s, 0\n",
				s.Label, closureType, fnPtrType(s.Typ), s.FnLabel)
			fmt.Fprintf(&e.buf, "  %%%s = insertvalue %s %%%s.tmp, i8* null, 1\n",
				s.Label, closureType, s.Label)
			locals[s.Label] = value{ref: "%" + s.Label, typ: closureType}
			return nil
		}

		envName := s.Label
		fmt.Fprintf(&e.buf, "  %%%s.env = alloca %%%s.env\n", envName, s.FnLabel)
		for i, v := range s.EnvValues {
			lowered, err := e.lowerExpression(v, locals)
			if err != nil {
				return err
			}
			fmt.Fprintf(&e.buf, "  %%%s.env.%d = getelementptr %%%s.env, %%%s.env* %%%s.env, i32 0, i32 %d\n",
				envName, i, s.FnLabel, s.FnLabel, envName, i)
			fmt.Fprintf(&e.buf, "  store %s %s, %s* %%%s.env.%d\n", lowered.typ, lowered.ref, lowered.typ, envName, i)
		}
		fmt.Fprintf(&e.buf, "  %%%s.envcast = bitcast %%%s.env* %%%s.env to i8*\n", envName, s.FnLabel, envName)
		fmt.Fprintf(&e.buf, "  %%%s.tmp = insertvalue %s undef, %s @%s, 0\n",
			s.Label, closureType, fnPtrType(s.Typ), s.FnLabel)
		fmt.Fprintf(&e.buf, "  %%%s = insertvalue %s %%%s.tmp, i8* %%%s.envcast, 1\n",
			s.Label, closureType, s.Label, envName)
		locals[s.Label] = value{ref: "%" + s.Label, typ: closureType}
		return nil

	default:
		return diagnostics.New(diagnostics.PhaseEmitter, diagnostics.ErrI001, fmt.Sprintf("%T", stmt))
	}
}

func fnPtrType(fn *typesystem.Fn) string {
	return fmt.Sprintf("%s (i8*, %s)*", FromType(fn.Ret), FromType(fn.Arg))
}

func llvmOp(opcode string) (string, bool) {
	info, ok := config.GetInstruction(opcode)
	if !ok {
		return "", false
	}
	return info.LLVMOp, true
}
