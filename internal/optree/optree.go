// Package optree defines the grouper's output tree: a closed tagged
// union of nodes (spec.md 3, "OperatorTree node"). Every concrete type
// below is exhaustively switched over by the parser; adding a node kind
// without updating that switch is a compile error by construction in
// Go (a `default: panic` branch catches anything the switch missed).
package optree

import (
	"encoding/json"
	"fmt"
)

// Node is the interface every grouper-output node satisfies. JSON
// encoding relies on Go's guarantee that struct fields marshal in
// declaration order, which gives the stable, diffable key order spec.md
// 6 requires without any custom MarshalJSON.
type Node interface {
	node()
}

// Integer is a decimal literal, optionally negative (spec.md 9(c): "-n"
// lexes as a single integer, never a unary operator).
type Integer struct {
	Type  string `json:"type"`
	Value int64  `json:"value"`
}

func NewInteger(v int64) *Integer { return &Integer{Type: "integer", Value: v} }
func (*Integer) node()            {}

// Name is an identifier reference.
type Name struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func NewName(v string) *Name { return &Name{Type: "name", Value: v} }
func (*Name) node()          {}

// Instruction is a built-in primitive operation; Args is the tuple
// block's expression list (spec.md: "args is a tuple-block").
type Instruction struct {
	Type   string `json:"type"`
	Opcode string `json:"instruction"`
	Args   []Node `json:"args"`
}

func NewInstruction(opcode string, args []Node) *Instruction {
	return &Instruction{Type: "instruction", Opcode: opcode, Args: args}
}
func (*Instruction) node() {}

// External is a reference to an externally declared symbol.
type External struct {
	Type     string `json:"type"`
	External string `json:"external"`
}

func NewExternal(name string) *External { return &External{Type: "external", External: name} }
func (*External) node()                 {}

// Block is a parenthesized (or root) group. Separator is "", ";", or
// "," — "" denotes a single-expression parenthesization or the empty
// block `()` (spec.md: "null denotes a single-expression
// parenthesization"). The root block's separator is ";", except for
// empty source, whose root block has separator "".
type Block struct {
	Type        string `json:"type"`
	Separator   string `json:"separator"`
	Expressions []Node `json:"expressions"`
}

func NewBlock(sep string, exprs []Node) *Block {
	return &Block{Type: "block", Separator: sep, Expressions: exprs}
}
func (*Block) node() {}

// Operator is a binary operator node; Op is one of "=>", "->", ":",
// "=", "call". Both Lhs and Rhs are always non-nil (spec.md invariant).
type Operator struct {
	Type string `json:"type"`
	Op   string `json:"operator"`
	Lhs  Node   `json:"lhs"`
	Rhs  Node   `json:"rhs"`
}

func NewOperator(op string, lhs, rhs Node) *Operator {
	return &Operator{Type: "operator", Op: op, Lhs: lhs, Rhs: rhs}
}
func (*Operator) node() {}

// typeTag is decoded first to discover which concrete type a JSON
// object encodes; this is the Go stand-in for a closed tagged union
// decoded from an untyped interchange format.
type typeTag struct {
	Type string `json:"type"`
}

// Decode unmarshals one JSON-encoded node, dispatching on its "type"
// field. It is the single place that must stay exhaustive with the Node
// union above.
func Decode(data []byte) (Node, error) {
	var tag typeTag
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, err
	}
	switch tag.Type {
	case "integer":
		var n Integer
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, err
		}
		return &n, nil
	case "name":
		var n Name
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, err
		}
		return &n, nil
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
		var n External
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, err
		}
		return &n, nil
	case "block":
		var raw struct {
			Type        string            `json:"type"`
			Separator   string            `json:"separator"`
			Expressions []json.RawMessage `json:"expressions"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		exprs, err := decodeAll(raw.Expressions)
		if err != nil {
			return nil, err
		}
		return &Block{Type: raw.Type, Separator: raw.Separator, Expressions: exprs}, nil
	case "operator":
		var raw struct {
			Type string          `json:"type"`
			Op   string          `json:"operator"`
			Lhs  json.RawMessage `json:"lhs"`
			Rhs  json.RawMessage `json:"rhs"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		lhs, err := Decode(raw.Lhs)
		if err != nil {
			return nil, err
		}
		rhs, err := Decode(raw.Rhs)
		if err != nil {
			return nil, err
		}
		return &Operator{Type: raw.Type, Op: raw.Op, Lhs: lhs, Rhs: rhs}, nil
	default:
		return nil, fmt.Errorf("optree: unknown node type %q", tag.Type)
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
