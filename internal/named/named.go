// Package named defines the namer's output tree (spec.md 4.4): the
// semantic AST with every binding and reference rewritten to a
// module-unique name, plus a synthetic Label stamped on each
// value-producing node for the flattener to use as its destination
// temporary.
package named

import (
	"encoding/json"
	"fmt"

	"github.com/entropiahr/znj/internal/ast"
)

type Node interface {
	node()
}

type Integer struct {
	Type  string `json:"type"`
	Value int64  `json:"value"`
}

func (*Integer) node() {}

// Name is a reference, already rewritten to the unique name of the
// binding it resolves to.
type Name struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (*Name) node() {}

// Def's Label is its destination name: always the binding's own unique
// name, even when this Def is the last expression of its block, since
// later Name references to the bound identifier resolve to that same
// name (spec.md 4.4).
type Def struct {
	Type       string   `json:"type"`
	Expression Node     `json:"expression"`
	VType      ast.Type `json:"vtype,omitempty"`
	Label      string   `json:"label"`
}

func (*Def) node() {}

type Fn struct {
	Type       string   `json:"type"`
	Args       []string `json:"args"`
	Expression Node     `json:"expression"`
	Label      string   `json:"label"`
}

func (*Fn) node() {}

type Call struct {
	Type  string `json:"type"`
	Call  Node   `json:"call"`
	Args  []Node `json:"args"`
	Label string `json:"label"`
}

func (*Call) node() {}

type Instruction struct {
	Type   string `json:"type"`
	Opcode string `json:"instruction"`
	Args   []Node `json:"args"`
	Label  string `json:"label"`
}

func (*Instruction) node() {}

type External struct {
	Type  string   `json:"type"`
	Name  string   `json:"name"`
	VType ast.Type `json:"vtype,omitempty"`
	Label string   `json:"label"`
}

func (*External) node() {}

type Block struct {
	Type        string `json:"type"`
	Expressions []Node `json:"expressions"`
}

func (*Block) node() {}

type Tuple struct {
	Type        string `json:"type"`
	Expressions []Node `json:"expressions"`
}

func (*Tuple) node() {}

type typeTag struct {
	Type string `json:"type"`
}

// Decode unmarshals one JSON-encoded namer-output node.
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
			Expression json.RawMessage `json:"expression"`
			VType      json.RawMessage `json:"vtype,omitempty"`
			Label      string          `json:"label"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		expr, err := Decode(raw.Expression)
		if err != nil {
			return nil, err
		}
		vtype, err := ast.DecodeType(raw.VType)
		if err != nil {
			return nil, err
		}
		return &Def{Type: raw.Type, Expression: expr, VType: vtype, Label: raw.Label}, nil
	case "fn":
		var raw struct {
			Type       string          `json:"type"`
			Args       []string        `json:"args"`
			Expression json.RawMessage `json:"expression"`
			Label      string          `json:"label"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		expr, err := Decode(raw.Expression)
		if err != nil {
			return nil, err
		}
		return &Fn{Type: raw.Type, Args: raw.Args, Expression: expr, Label: raw.Label}, nil
	case "call":
		var raw struct {
			Type  string            `json:"type"`
			Call  json.RawMessage   `json:"call"`
			Args  []json.RawMessage `json:"args"`
			Label string            `json:"label"`
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
		return &Call{Type: raw.Type, Call: call, Args: args, Label: raw.Label}, nil
	case "instruction":
		var raw struct {
			Type   string            `json:"type"`
			Opcode string            `json:"instruction"`
			Args   []json.RawMessage `json:"args"`
			Label  string            `json:"label"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		args, err := decodeAll(raw.Args)
		if err != nil {
			return nil, err
		}
		return &Instruction{Type: raw.Type, Opcode: raw.Opcode, Args: args, Label: raw.Label}, nil
	case "external":
		var raw struct {
			Type  string          `json:"type"`
			Name  string          `json:"name"`
			VType json.RawMessage `json:"vtype,omitempty"`
			Label string          `json:"label"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		vtype, err := ast.DecodeType(raw.VType)
		if err != nil {
			return nil, err
		}
		return &External{Type: raw.Type, Name: raw.Name, VType: vtype, Label: raw.Label}, nil
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
		return nil, fmt.Errorf("named: unknown node type %q", tag.Type)
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
