// Package normalizer implements pass 6: currying every function to
// unary form and converting each one into a closure — a top-level code
// body plus an explicit environment capturing whatever it references
// from an enclosing scope — while unifying every binding's type along
// the way (spec.md 4.6).
package normalizer

import (
	"fmt"

	"github.com/entropiahr/znj/internal/config"
	"github.com/entropiahr/znj/internal/diagnostics"
	"github.com/entropiahr/znj/internal/externs"
	"github.com/entropiahr/znj/internal/flat"
	"github.com/entropiahr/znj/internal/normalized"
	"github.com/entropiahr/znj/internal/typesystem"
)

// frame tracks one function's local bindings and the environment it
// has had to capture so far. A nil *frame represents module (global)
// scope, which has no parent and can never capture anything.
type frame struct {
	parent   *frame
	locals   map[string]typesystem.Type
	envNames []string
	envExprs []normalized.Expression // each valid in parent's context
	envIndex map[string]int
}

type normalizer struct {
	reg       *externs.Registry
	globals   map[string]typesystem.Type
	fns       []*normalized.Fn
	externals []*normalized.External
	externSet map[string]bool
	fnLabel   int

	// externalLabelToName and externalTypeByName let normalizeCall
	// recognize a call whose callee is literally an external symbol
	// and route it to the plain (non-curried, non-closure) calling
	// convention instead of the generic unary-application chain.
	externalLabelToName map[string]string
	externalTypeByName   map[string]*typesystem.Fn

	// pendingCurry carries the most recently lifted Fn's environment
	// from processCurriedFn back to its caller; see lastFnCapture.
	pendingCurry curryResult
}

// Normalize lowers a flattened module into closure-converted form.
func Normalize(mod *flat.Module, reg *externs.Registry) (*normalized.Module, *diagnostics.CompileError) {
	n := &normalizer{
		reg:                  reg,
		globals:              make(map[string]typesystem.Type),
		externSet:            make(map[string]bool),
		externalLabelToName:  make(map[string]string),
		externalTypeByName:   make(map[string]*typesystem.Fn),
	}

	body, err := n.normalizeStatements(mod.Statements, nil)
	if err != nil {
		return nil, err
	}
	ret, err := n.normalizeExpression(mod.Expression, nil)
	if err != nil {
		return nil, err
	}
	if err := n.checkResolved(ret.Type()); err != nil {
		return nil, err
	}

	return &normalized.Module{
		Externals: n.externals,
		Fns:       n.fns,
		Body:      body,
		Return:    ret,
	}, nil
}

func (n *normalizer) checkResolved(moduleReturn typesystem.Type) *diagnostics.CompileError {
	if typesystem.IsUnknown(moduleReturn) {
		return diagnostics.New(diagnostics.PhaseNormalizer, diagnostics.ErrT001, "Unknown", "a concrete type for the module's result")
	}
	for _, fn := range n.fns {
		if typesystem.IsUnknown(fn.ArgType) {
			return diagnostics.New(diagnostics.PhaseNormalizer, diagnostics.ErrT001, "Unknown", fmt.Sprintf("a concrete argument type for %s", fn.Label))
		}
		if typesystem.IsUnknown(fn.RetType) {
			return diagnostics.New(diagnostics.PhaseNormalizer, diagnostics.ErrT001, "Unknown", fmt.Sprintf("a concrete return type for %s", fn.Label))
		}
	}
	return nil
}

func bindLocal(f *frame, n *normalizer, name string, t typesystem.Type) {
	if f == nil {
		n.globals[name] = t
		return
	}
	f.locals[name] = t
}

// applyRefinement pushes a just-unified type back onto the binding an
// expression came from, so a function argument's Unknown resolves to a
// concrete type the first time its usage constrains it (spec.md 4.6's
// forward-only unification). A captured EnvRef refines transitively:
// the constraint is pushed to the frame that captured it, which is
// exactly where it was borrowed from, all the way back to wherever the
// name is actually bound.
func (n *normalizer) applyRefinement(expr normalized.Expression, merged typesystem.Type, f *frame) normalized.Expression {
	switch v := expr.(type) {
	case *normalized.Name:
		v.Typ = merged
		if f != nil {
			if _, local := f.locals[v.Value]; local {
				f.locals[v.Value] = merged
				return v
			}
		}
		if _, global := n.globals[v.Value]; global {
			n.globals[v.Value] = merged
		}
		return v
	case *normalized.EnvRef:
		v.Typ = merged
		if f != nil && v.Index < len(f.envExprs) {
			f.envExprs[v.Index] = n.applyRefinement(f.envExprs[v.Index], merged, f.parent)
		}
		return v
	default:
		return expr
	}
}

// resolve finds name in f's own locals, in something f has already
// captured, or — failing both — recurses outward and, on success,
// registers a new environment field on f so the value can flow down
// from wherever it was actually found (spec.md 4.6's closure
// conversion: free variables are captured transitively through every
// enclosing function on the way to their binding).
func (n *normalizer) resolve(name string, f *frame) (normalized.Expression, *diagnostics.CompileError) {
	if f == nil {
		t, ok := n.globals[name]
		if !ok {
			return nil, diagnostics.New(diagnostics.PhaseNormalizer, diagnostics.ErrN001, name)
		}
		return &normalized.Name{Value: name, Typ: t}, nil
	}
	if t, ok := f.locals[name]; ok {
		return &normalized.Name{Value: name, Typ: t}, nil
	}
	if idx, ok := f.envIndex[name]; ok {
		return &normalized.EnvRef{Field: name, Index: idx, Typ: f.envExprs[idx].Type()}, nil
	}

	parentExpr, err := n.resolve(name, f.parent)
	if err != nil {
		return nil, err
	}
	idx := len(f.envNames)
	f.envNames = append(f.envNames, name)
	f.envExprs = append(f.envExprs, parentExpr)
	if f.envIndex == nil {
		f.envIndex = make(map[string]int)
	}
	f.envIndex[name] = idx
	return &normalized.EnvRef{Field: name, Index: idx, Typ: parentExpr.Type()}, nil
}

func (n *normalizer) normalizeExpression(e flat.Expression, f *frame) (normalized.Expression, *diagnostics.CompileError) {
	switch v := e.(type) {
	case *flat.Integer:
		return &normalized.Integer{Value: v.Value}, nil
	case *flat.Name:
		return n.resolve(v.Value, f)
	default:
		return nil, diagnostics.New(diagnostics.PhaseNormalizer, diagnostics.ErrI001, fmt.Sprintf("%T", e))
	}
}

func (n *normalizer) normalizeStatements(stmts []flat.Statement, f *frame) ([]normalized.Statement, *diagnostics.CompileError) {
	out := make([]normalized.Statement, 0, len(stmts))
	for _, stmt := range stmts {
		s, err := n.normalizeStatement(stmt, f)
		if err != nil {
			return nil, err
		}
		out = append(out, s...)
	}
	return out, nil
}

func (n *normalizer) normalizeStatement(stmt flat.Statement, f *frame) ([]normalized.Statement, *diagnostics.CompileError) {
	switch s := stmt.(type) {
	case *flat.Def:
		expr, err := n.normalizeExpression(s.Expression, f)
		if err != nil {
			return nil, err
		}
		bindLocal(f, n, s.Label, expr.Type())
		return []normalized.Statement{&normalized.Def{Label: s.Label, Expression: expr}}, nil

	case *flat.Fn:
		if len(s.Args) == 0 {
			return nil, diagnostics.New(diagnostics.PhaseNormalizer, diagnostics.ErrT002, 1, 0)
		}
		fnType, err := n.processCurriedFn(s.Label, s.Args, s.Body, s.Return, f)
		if err != nil {
			return nil, err
		}
		envExprs, fnLabel := n.lastFnCapture()
		bindLocal(f, n, s.Label, fnType)
		return []normalized.Statement{&normalized.MakeClosure{
			Label: s.Label, FnLabel: fnLabel, EnvValues: envExprs, Typ: fnType,
		}}, nil

	case *flat.External:
		fnType, err := n.resolveExternalType(s)
		if err != nil {
			return nil, err
		}
		if !n.externSet[s.Name] {
			n.externSet[s.Name] = true
			n.externals = append(n.externals, &normalized.External{Name: s.Name, Typ: fnType})
		}
		n.externalLabelToName[s.Label] = s.Name
		n.externalTypeByName[s.Name] = fnType
		bindLocal(f, n, s.Label, fnType)
		return []normalized.Statement{&normalized.Def{
			Label:      s.Label,
			Expression: &normalized.Name{Value: s.Name, Typ: fnType},
		}}, nil

	case *flat.Call:
		return n.normalizeCall(s, f)

	case *flat.Instruction:
		opInfo, ok := config.GetInstruction(s.Opcode)
		if !ok {
			return nil, diagnostics.New(diagnostics.PhaseNormalizer, diagnostics.ErrT004, s.Opcode)
		}
		if len(s.Args) != opInfo.Arity {
			return nil, diagnostics.New(diagnostics.PhaseNormalizer, diagnostics.ErrT002, opInfo.Arity, len(s.Args))
		}
		args := make([]normalized.Expression, len(s.Args))
		for i, a := range s.Args {
			expr, err := n.normalizeExpression(a, f)
			if err != nil {
				return nil, err
			}
			merged, uErr := typesystem.Unify(expr.Type(), typesystem.Int{})
			if uErr != nil {
				return nil, diagnostics.New(diagnostics.PhaseNormalizer, diagnostics.ErrT003, s.Opcode, expr.Type().String())
			}
			args[i] = n.applyRefinement(expr, merged, f)
		}
		bindLocal(f, n, s.Label, typesystem.Int{})
		return []normalized.Statement{&normalized.Instruction{Opcode: s.Opcode, Label: s.Label, Args: args}}, nil

	default:
		return nil, diagnostics.New(diagnostics.PhaseNormalizer, diagnostics.ErrI001, fmt.Sprintf("%T", stmt))
	}
}


// normalizeCall desugars a (possibly multi-argument) flattened call
// into a chain of unary normalized.Call statements — the currying
// spec.md 4.6 requires the IR to see only unary application.
func (n *normalizer) normalizeCall(s *flat.Call, f *frame) ([]normalized.Statement, *diagnostics.CompileError) {
	if len(s.Args) == 0 {
		return nil, diagnostics.New(diagnostics.PhaseNormalizer, diagnostics.ErrT002, 1, 0)
	}

	if ref, ok := s.Call.(*flat.Name); ok {
		if name, isExternal := n.externalLabelToName[ref.Value]; isExternal {
			return n.normalizeExternalCall(s, name, f)
		}
	}

	callee, err := n.normalizeExpression(s.Call, f)
	if err != nil {
		return nil, err
	}

	var out []normalized.Statement
	for i, a := range s.Args {
		var fnType *typesystem.Fn
		switch {
		case typesystem.IsUnknown(callee.Type()):
			// callee is itself a not-yet-constrained binding, e.g. a
			// higher-order function's own argument — give it function
			// shape now so later uses of the same binding see it.
			fnType = &typesystem.Fn{Arg: typesystem.Unknown{}, Ret: typesystem.Unknown{}}
			callee = n.applyRefinement(callee, fnType, f)
		default:
			ft, ok := callee.Type().(*typesystem.Fn)
			if !ok {
				return nil, diagnostics.New(diagnostics.PhaseNormalizer, diagnostics.ErrT006, callee.Type().String())
			}
			fnType = ft
		}
		argExpr, aErr := n.normalizeExpression(a, f)
		if aErr != nil {
			return nil, aErr
		}
		merged, uErr := typesystem.Unify(fnType.Arg, argExpr.Type())
		if uErr != nil {
			return nil, diagnostics.New(diagnostics.PhaseNormalizer, diagnostics.ErrT001, fnType.Arg.String(), argExpr.Type().String())
		}
		argExpr = n.applyRefinement(argExpr, merged, f)
		fnType.Arg = merged

		label := s.Label
		if i < len(s.Args)-1 {
			label = fmt.Sprintf("%s.curry%d", s.Label, i)
		}
		call := &normalized.Call{Label: label, Callee: callee, Arg: argExpr, Typ: fnType.Ret}
		out = append(out, call)
		bindLocal(f, n, label, fnType.Ret)
		callee = &normalized.Name{Value: label, Typ: fnType.Ret}
	}
	return out, nil
}

// normalizeExternalCall handles a call whose callee is literally an
// external symbol: unlike a closure call, all of its arguments are
// passed in one direct, non-curried call (spec.md 4.6).
func (n *normalizer) normalizeExternalCall(s *flat.Call, name string, f *frame) ([]normalized.Statement, *diagnostics.CompileError) {
	fnType := n.externalTypeByName[name]
	argTypes, retType := flattenFnChain(fnType)
	if len(s.Args) != len(argTypes) {
		return nil, diagnostics.New(diagnostics.PhaseNormalizer, diagnostics.ErrT002, len(argTypes), len(s.Args))
	}

	args := make([]normalized.Expression, len(s.Args))
	for i, a := range s.Args {
		expr, err := n.normalizeExpression(a, f)
		if err != nil {
			return nil, err
		}
		merged, uErr := typesystem.Unify(argTypes[i], expr.Type())
		if uErr != nil {
			return nil, diagnostics.New(diagnostics.PhaseNormalizer, diagnostics.ErrT001, argTypes[i].String(), expr.Type().String())
		}
		args[i] = n.applyRefinement(expr, merged, f)
	}

	bindLocal(f, n, s.Label, retType)
	return []normalized.Statement{&normalized.ExternalCall{
		Label: s.Label, Name: name, Args: args, Typ: retType,
	}}, nil
}

// flattenFnChain unrolls a curried Fn type into its positional
// argument types and final (non-function) return type.
func flattenFnChain(fn *typesystem.Fn) (args []typesystem.Type, ret typesystem.Type) {
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

func (n *normalizer) resolveExternalType(s *flat.External) (*typesystem.Fn, *diagnostics.CompileError) {
	if s.VType != nil {
		t, err := typesystem.FromAST(s.VType)
		if err != nil {
			return nil, diagnostics.New(diagnostics.PhaseNormalizer, diagnostics.ErrT005, s.Name)
		}
		fn, ok := t.(*typesystem.Fn)
		if !ok {
			return nil, diagnostics.New(diagnostics.PhaseNormalizer, diagnostics.ErrT005, s.Name)
		}
		return fn, nil
	}

	if n.reg == nil {
		return nil, diagnostics.New(diagnostics.PhaseNormalizer, diagnostics.ErrT005, s.Name)
	}
	arity, ok, regErr := n.reg.Lookup(s.Name)
	if regErr != nil || !ok || arity == 0 {
		return nil, diagnostics.New(diagnostics.PhaseNormalizer, diagnostics.ErrT005, s.Name)
	}
	var t typesystem.Type = typesystem.Int{}
	for i := 0; i < arity; i++ {
		t = &typesystem.Fn{Arg: typesystem.Int{}, Ret: t}
	}
	return t.(*typesystem.Fn), nil
}

// curryResult carries the last processed Fn's environment so the
// caller (which emitted the flat.Fn statement) can build its
// MakeClosure. processCurriedFn always calls through to here exactly
// once per flat.Fn statement, so stashing it on the normalizer between
// the two calls is safe and avoids broadening every signature with an
// extra return value used on only one path.
type curryResult struct {
	envExprs []normalized.Expression
	fnLabel  string
}

func (n *normalizer) lastFnCapture() ([]normalized.Expression, string) {
	r := n.pendingCurry
	n.pendingCurry = curryResult{}
	return r.envExprs, r.fnLabel
}

// processCurriedFn curries a (possibly multi-argument) function
// literal into a right-nested chain of unary normalized.Fn values and
// lifts every one of them into n.fns, closure-converting each against
// its own parent frame.
func (n *normalizer) processCurriedFn(label string, args []string, body []flat.Statement, ret flat.Expression, parent *frame) (*typesystem.Fn, *diagnostics.CompileError) {
	own := &frame{parent: parent, locals: map[string]typesystem.Type{args[0]: typesystem.Unknown{}}}
	fnLabel := uniqueFnLabel(&n.fnLabel, label)

	var bodyStmts []normalized.Statement
	var retExpr normalized.Expression
	var retType typesystem.Type

	if len(args) == 1 {
		stmts, err := n.normalizeStatements(body, own)
		if err != nil {
			return nil, err
		}
		r, err := n.normalizeExpression(ret, own)
		if err != nil {
			return nil, err
		}
		bodyStmts, retExpr, retType = stmts, r, r.Type()
	} else {
		innerType, err := n.processCurriedFn(label+".curry", args[1:], body, ret, own)
		if err != nil {
			return nil, err
		}
		inner := n.pendingCurry
		n.pendingCurry = curryResult{}
		closureLabel := label + ".closure"
		bodyStmts = []normalized.Statement{&normalized.MakeClosure{
			Label: closureLabel, FnLabel: inner.fnLabel, EnvValues: inner.envExprs, Typ: innerType,
		}}
		retExpr = &normalized.Name{Value: closureLabel, Typ: innerType}
		retType = innerType
	}

	argType := own.locals[args[0]]
	envTypes := make([]typesystem.Type, len(own.envExprs))
	for i, e := range own.envExprs {
		envTypes[i] = e.Type()
	}
	fn := &normalized.Fn{
		Label:     fnLabel,
		EnvFields: own.envNames,
		EnvTypes:  envTypes,
		Arg:       args[0],
		ArgType:   argType,
		RetType:   retType,
		Body:      bodyStmts,
		Return:    retExpr,
	}
	n.fns = append(n.fns, fn)

	fnType := &typesystem.Fn{Arg: argType, Ret: retType}
	n.pendingCurry = curryResult{envExprs: own.envExprs, fnLabel: fnLabel}
	return fnType, nil
}

func uniqueFnLabel(counter *int, base string) string {
	*counter++
	return fmt.Sprintf("%s.fn%d", base, *counter)
}
