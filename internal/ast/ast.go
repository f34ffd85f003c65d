// Package ast defines the semantic AST the parser (pass 3) produces:
// typed definitions, functions, calls, blocks, externals and
// instructions (spec.md 3, "Semantic AST").
package ast

import (
	"encoding/json"
	"fmt"
)

// Node is the closed union of semantic-AST node kinds.
type Node interface {
	node()
}

// Type is the closed union of type-expression nodes, built only from
// the "->" operator and bare names (spec.md 4.3, "-> type
// constructor").
type Type interface {
	typeNode()
	String() string
}

type Integer struct {
	Type  string `json:"type"`
	Value int64  `json:"value"`
}

func (*Integer) node() {}

type Name struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (*Name) node() {}

// Def binds a name to an expression's value.
type Def struct {
	Type       string `json:"type"`
	Name       string `json:"name"`
	Expression Node   `json:"expression"`
	VType      Type   `json:"vtype,omitempty"`
}

func (*Def) node() {}

// Fn is a lambda with positional parameters.
type Fn struct {
	Type       string   `json:"type"`
	Args       []string `json:"args"`
	Expression Node     `json:"expression"`
}

func (*Fn) node() {}

// Call is function application.
type Call struct {
	Type string `json:"type"`
	Call Node   `json:"call"`
	Args []Node `json:"args"`
}

func (*Call) node() {}

// Instruction is a built-in primitive operation.
type Instruction struct {
	Type   string `json:"type"`
	Opcode string `json:"instruction"`
	Args   []Node `json:"args"`
}

func (*Instruction) node() {}

// External declares an imported function.
type External struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	VType Type   `json:"vtype,omitempty"`
}

func (*External) node() {}

// Block is a ";"-separated sequence; its value is its last expression.
type Block struct {
	Type        string `json:"type"`
	Expressions []Node `json:"expressions"`
}

func (*Block) node() {}

// Tuple is a ","-separated product.
type Tuple struct {
	Type        string `json:"type"`
	Expressions []Node `json:"expressions"`
}

func (*Tuple) node() {}

// TypeName is a nullary type constructor reference (only "Int" exists
// at parse time; "Unknown" and "Fn" are introduced internally by the
// normalizer, not written in source).
type TypeName struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

func (*TypeName) typeNode()      {}
func (t *TypeName) String() string { return t.Name }

// TypeFn is a function type: one argument type, one return type.
// Multi-argument signatures (spec.md 4.3: "lhs must be a ','-block of
// type expressions") desugar into a right-nested chain of TypeFn.
type TypeFn struct {
	Type string `json:"type"`
	Arg  Type   `json:"arg"`
	Ret  Type   `json:"ret"`
}

func (*TypeFn) typeNode() {}
func (t *TypeFn) String() string {
	return fmt.Sprintf("(%s -> %s)", t.Arg.String(), t.Ret.String())
}

type typeTag struct {
	Type string `json:"type"`
}

// DecodeType unmarshals one JSON-encoded type expression.
func DecodeType(data []byte) (Type, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var tag typeTag
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, err
	}
	switch tag.Type {
	case "type_name":
		var t TypeName
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, err
		}
		return &t, nil
	case "type_fn":
		var raw struct {
			Type string          `json:"type"`
			Arg  json.RawMessage `json:"arg"`
			Ret  json.RawMessage `json:"ret"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		arg, err := DecodeType(raw.Arg)
		if err != nil {
			return nil, err
		}
		ret, err := DecodeType(raw.Ret)
		if err != nil {
			return nil, err
		}
		return &TypeFn{Type: raw.Type, Arg: arg, Ret: ret}, nil
	default:
		return nil, fmt.Errorf("ast: unknown type node %q", tag.Type)
	}
}

// Decode unmarshals one JSON-encoded semantic-AST node.
func Decode(data []byte) (Node, error) {
	var tag typeTag
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, err
	}
	switch tag.Type {
	case "integer":
		var n Integer
		return &n, json.Unmarshal(data, &n)
	case "name":
		var n Name
		return &n, json.Unmarshal(data, &n)
	case "def":
		var raw struct {
			Type       string          `json:"type"`
			Name       string          `json:"name"`
			Expression json.RawMessage `json:"expression"`
			VType      json.RawMessage `json:"vtype,omitempty"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		expr, err := Decode(raw.Expression)
		if err != nil {
			return nil, err
		}
		vtype, err := DecodeType(raw.VType)
		if err != nil {
			return nil, err
		}
		return &Def{Type: raw.Type, Name: raw.Name, Expression: expr, VType: vtype}, nil
	case "fn":
		var raw struct {
			Type       string          `json:"type"`
			Args       []string        `json:"args"`
			Expression json.RawMessage `json:"expression"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		expr, err := Decode(raw.Expression)
		if err != nil {
			return nil, err
		}
		return &Fn{Type: raw.Type, Args: raw.Args, Expression: expr}, nil
	case "call":
		var raw struct {
			Type string            `json:"type"`
			Call json.RawMessage   `json:"call"`
			Args []json.RawMessage `json:"args"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		call, err := Decode(raw.Call)
		if err != nil {
			return nil, err
		}
		args, err := decodeAll(raw.Args)
		if err != nil {
			return nil, err
		}
		return &Call{Type: raw.Type, Call: call, Args: args}, nil
	case "instruction":
		var raw struct {
			Type   string            `json:"type"`
			Opcode string            `json:"instruction"`
			Args   []json.RawMessage `json:"args"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		args, err := decodeAll(raw.Args)
		if err != nil {
			return nil, err
		}
		return &Instruction{Type: raw.Type, Opcode: raw.Opcode, Args: args}, nil
	case "external":
		var raw struct {
			Type  string          `json:"type"`
			Name  string          `json:"name"`
			VType json.RawMessage `json:"vtype,omitempty"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		vtype, err := DecodeType(raw.VType)
		if err != nil {
			return nil, err
		}
		return &External{Type: raw.Type, Name: raw.Name, VType: vtype}, nil
	case "block":
		var raw struct {
			Type        string            `json:"type"`
			Expressions []json.RawMessage `json:"expressions"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		exprs, err := decodeAll(raw.Expressions)
		if err != nil {
			return nil, err
		}
		return &Block{Type: raw.Type, Expressions: exprs}, nil
	case "tuple":
		var raw struct {
			Type        string            `json:"type"`
			Expressions []json.RawMessage `json:"expressions"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		exprs, err := decodeAll(raw.Expressions)
		if err != nil {
			return nil, err
		}
		return &Tuple{Type: raw.Type, Expressions: exprs}, nil
	default:
		return nil, fmt.Errorf("ast: unknown node type %q", tag.Type)
	}
}

func decodeAll(raws []json.RawMessage) ([]Node, error) {
	nodes := make([]Node, len(raws))
	for i, raw := range raws {
		n, err := Decode(raw)
		if err != nil {
			return nil, err
		}
		nodes[i] = n
	}
	return nodes, nil
}
