// Package flat defines the flattener's output (spec.md 4.5): a
// three-address form where every intermediate value is bound to a
// named statement and expressions are reduced to bare literals or
// name references.
package flat

import (
	"encoding/json"
	"fmt"

	"github.com/entropiahr/znj/internal/ast"
)

// Expression is a value reference: a literal or a name.
type Expression interface {
	expression()
}

type Integer struct {
	Type  string `json:"type"`
	Value int64  `json:"value"`
}

func (*Integer) expression() {}

type Name struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (*Name) expression() {}

// Statement is one three-address operation, binding its Label to a
// computed value.
type Statement interface {
	statement()
}

type Def struct {
	Type       string     `json:"type"`
	Label      string     `json:"name"`
	Expression Expression `json:"expression"`
}

func (*Def) statement() {}

// Fn is a function body lowered to its own statement list plus a
// trailing return expression.
type Fn struct {
	Type   string      `json:"type"`
	Args   []string    `json:"args"`
	Label  string      `json:"name"`
	Body   []Statement `json:"body"`
	Return Expression  `json:"return"`
}

func (*Fn) statement() {}

// External carries VType when the source gave it an explicit type
// signature (e.g. "external puts : Int -> Int"); otherwise the
// normalizer must resolve its arity from the extern registry.
type External struct {
	Type  string   `json:"type"`
	Name  string   `json:"external"`
	Label string   `json:"name"`
	VType ast.Type `json:"vtype,omitempty"`
}

func (*External) statement() {}

type Call struct {
	Type  string       `json:"type"`
	Label string       `json:"name"`
	Call  Expression   `json:"call"`
	Args  []Expression `json:"args"`
}

func (*Call) statement() {}

type Instruction struct {
	Type   string       `json:"type"`
	Opcode string       `json:"instruction"`
	Label  string       `json:"name"`
	Args   []Expression `json:"args"`
}

func (*Instruction) statement() {}

// Module is the flattener's top-level artifact: a statement list and
// the expression representing the module's own value.
type Module struct {
	Statements []Statement `json:"statements"`
	Expression Expression  `json:"expression"`
}

type typeTag struct {
	Type string `json:"type"`
}

// DecodeExpression unmarshals one JSON-encoded Integer or Name.
func DecodeExpression(data []byte) (Expression, error) {
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
	default:
		return nil, fmt.Errorf("flat: unknown expression type %q", tag.Type)
	}
}

// DecodeStatement unmarshals one JSON-encoded statement.
func DecodeStatement(data []byte) (Statement, error) {
	var tag typeTag
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, err
	}
	switch tag.Type {
	case "def":
		var raw struct {
			Type       string          `json:"type"`
			Label      string          `json:"name"`
			Expression json.RawMessage `json:"expression"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		expr, err := DecodeExpression(raw.Expression)
		if err != nil {
			return nil, err
		}
		return &Def{Type: raw.Type, Label: raw.Label, Expression: expr}, nil
	case "fn":
		var raw struct {
			Type   string            `json:"type"`
			Args   []string          `json:"args"`
			Label  string            `json:"name"`
			Body   []json.RawMessage `json:"body"`
			Return json.RawMessage   `json:"return"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		body := make([]Statement, len(raw.Body))
		for i, b := range raw.Body {
			s, err := DecodeStatement(b)
			if err != nil {
				return nil, err
			}
			body[i] = s
		}
		ret, err := DecodeExpression(raw.Return)
		if err != nil {
			return nil, err
		}
		return &Fn{Type: raw.Type, Args: raw.Args, Label: raw.Label, Body: body, Return: ret}, nil
	case "external":
		var raw struct {
			Type  string          `json:"type"`
			Name  string          `json:"external"`
			Label string          `json:"name"`
			VType json.RawMessage `json:"vtype,omitempty"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		var vtype ast.Type
		if len(raw.VType) > 0 {
			v, err := ast.DecodeType(raw.VType)
			if err != nil {
				return nil, err
			}
			vtype = v
		}
		return &External{Type: raw.Type, Name: raw.Name, Label: raw.Label, VType: vtype}, nil
	case "call":
		var raw struct {
			Type  string            `json:"type"`
			Label string            `json:"name"`
			Call  json.RawMessage   `json:"call"`
			Args  []json.RawMessage `json:"args"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		call, err := DecodeExpression(raw.Call)
		if err != nil {
			return nil, err
		}
		args, err := decodeExpressions(raw.Args)
		if err != nil {
			return nil, err
		}
		return &Call{Type: raw.Type, Label: raw.Label, Call: call, Args: args}, nil
	case "instruction":
		var raw struct {
			Type   string            `json:"type"`
			Opcode string            `json:"instruction"`
			Label  string            `json:"name"`
			Args   []json.RawMessage `json:"args"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		args, err := decodeExpressions(raw.Args)
		if err != nil {
			return nil, err
		}
		return &Instruction{Type: raw.Type, Opcode: raw.Opcode, Label: raw.Label, Args: args}, nil
	default:
		return nil, fmt.Errorf("flat: unknown statement type %q", tag.Type)
	}
}

func decodeExpressions(raws []json.RawMessage) ([]Expression, error) {
	out := make([]Expression, len(raws))
	for i, raw := range raws {
		e, err := DecodeExpression(raw)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

// DecodeModule unmarshals a complete flattened module.
func DecodeModule(data []byte) (*Module, error) {
	var raw struct {
		Statements []json.RawMessage `json:"statements"`
		Expression json.RawMessage   `json:"expression"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	stmts := make([]Statement, len(raw.Statements))
	for i, s := range raw.Statements {
		st, err := DecodeStatement(s)
		if err != nil {
			return nil, err
		}
		stmts[i] = st
	}
	expr, err := DecodeExpression(raw.Expression)
	if err != nil {
		return nil, err
	}
	return &Module{Statements: stmts, Expression: expr}, nil
}
