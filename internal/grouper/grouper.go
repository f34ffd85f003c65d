// Package grouper implements pass 2: splitting a token stream into
// nested blocks and building operator trees with correct precedence
// (spec.md 4.2).
package grouper

import (
	"strconv"

	"github.com/entropiahr/znj/internal/config"
	"github.com/entropiahr/znj/internal/diagnostics"
	"github.com/entropiahr/znj/internal/optree"
	"github.com/entropiahr/znj/internal/token"
)

type grouper struct {
	toks []token.Token
	pos  int
}

func (g *grouper) cur() token.Token {
	return g.toks[g.pos]
}

func (g *grouper) advance() token.Token {
	t := g.toks[g.pos]
	if t.Type != token.EOF {
		g.pos++
	}
	return t
}

func isExplicitOp(t token.Type) bool {
	switch t {
	case token.FATARROW, token.ARROW, token.COLON, token.ASSIGN:
		return true
	}
	return false
}

func unexpectedTokenErr(tok token.Token) *diagnostics.CompileError {
	return diagnostics.NewAt(diagnostics.PhaseGrouper, diagnostics.ErrG001, tok.Line, tok.Column, tok.String())
}

// Group runs the grouper over a complete token stream (spec.md: "root
// block's separator is forced to ';'").
func Group(toks []token.Token) (*optree.Block, *diagnostics.CompileError) {
	g := &grouper{toks: toks}
	root, err := g.parseBlock(token.EOF, token.SEMI)
	if err != nil {
		return nil, err
	}
	if g.cur().Type != token.EOF {
		return nil, diagnostics.NewAt(diagnostics.PhaseGrouper, diagnostics.ErrG006, g.cur().Line, g.cur().Column, len(g.toks)-g.pos)
	}
	return root, nil
}

// parseBlock parses a sequence of expressions up to terminator.
// forcedSep, when non-empty, pre-seeds the block's separator (used only
// for the root block, whose separator is always ";").
func (g *grouper) parseBlock(terminator token.Type, forcedSep token.Type) (*optree.Block, *diagnostics.CompileError) {
	if g.cur().Type == terminator {
		g.advance()
		return optree.NewBlock("", nil), nil
	}

	var exprs []optree.Node
	separator := string(forcedSep)

	for {
		expr, err := g.parseExpression(terminator)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)

		tok := g.cur()
		switch {
		case tok.Type == token.SEMI || tok.Type == token.COMMA:
			sep := string(tok.Type)
			if separator == "" {
				separator = sep
			} else if separator != sep {
				return nil, diagnostics.NewAt(diagnostics.PhaseGrouper, diagnostics.ErrG002, tok.Line, tok.Column, separator, sep)
			}
			g.advance()
			if g.cur().Type == terminator {
				// no trailing separator permitted
				return nil, unexpectedTokenErr(g.cur())
			}
		case tok.Type == terminator:
			g.advance()
			return optree.NewBlock(separator, exprs), nil
		default:
			return nil, unexpectedTokenErr(tok)
		}
	}
}

// parseExpression parses one expression: a run of atoms, explicit
// operator tokens, and implicit calls (juxtaposition), up to the
// block's separator or terminator.
func (g *grouper) parseExpression(terminator token.Type) (optree.Node, *diagnostics.CompileError) {
	var atoms []optree.Node
	var ops []string // len(ops) == len(atoms)-1 once balanced

	for {
		tok := g.cur()
		if tok.Type == token.SEMI || tok.Type == token.COMMA || tok.Type == terminator {
			break
		}

		if isExplicitOp(tok.Type) {
			if len(atoms) == 0 {
				return nil, diagnostics.NewAt(diagnostics.PhaseGrouper, diagnostics.ErrG003, tok.Line, tok.Column, tok.Lexeme)
			}
			if len(ops) == len(atoms) {
				// two explicit operators with no atom between them
				return nil, unexpectedTokenErr(tok)
			}
			ops = append(ops, string(tok.Type))
			g.advance()
			continue
		}

		if len(atoms) > 0 && len(ops) < len(atoms) {
			// an atom follows another atom with no explicit operator: implicit call
			ops = append(ops, "call")
		}

		atom, err := g.parseAtom(terminator)
		if err != nil {
			return nil, err
		}
		atoms = append(atoms, atom)
	}

	if len(atoms) == 0 {
		return nil, unexpectedTokenErr(g.cur())
	}
	if len(ops) != len(atoms)-1 {
		last := ops[len(ops)-1]
		tok := g.cur()
		return nil, diagnostics.NewAt(diagnostics.PhaseGrouper, diagnostics.ErrG004, tok.Line, tok.Column, last)
	}

	return foldAtoms(atoms, ops), nil
}

// parseAtom parses a single atom: a literal, name, parenthesized group,
// or a keyword-prefixed instruction/external form.
func (g *grouper) parseAtom(terminator token.Type) (optree.Node, *diagnostics.CompileError) {
	tok := g.cur()

	switch tok.Type {
	case token.INTEGER:
		g.advance()
		v, convErr := strconv.ParseInt(tok.Lexeme, 10, 64)
		if convErr != nil {
			return nil, diagnostics.NewAt(diagnostics.PhaseGrouper, diagnostics.ErrG001, tok.Line, tok.Column, tok.String())
		}
		return optree.NewInteger(v), nil

	case token.NAME:
		g.advance()
		return optree.NewName(tok.Lexeme), nil

	case token.LPAREN:
		g.advance()
		return g.parseBlock(token.RPAREN, "")

	case token.INSTRUCTION:
		g.advance()
		nameTok := g.cur()
		if nameTok.Type != token.NAME {
			return nil, diagnostics.NewAt(diagnostics.PhaseGrouper, diagnostics.ErrG005, tok.Line, tok.Column, "'instruction'", "an instruction name")
		}
		g.advance()
		if g.cur().Type != token.LPAREN {
			return nil, diagnostics.NewAt(diagnostics.PhaseGrouper, diagnostics.ErrG005, nameTok.Line, nameTok.Column, "instruction name", "a tuple of arguments")
		}
		g.advance()
		args, err := g.parseBlock(token.RPAREN, "")
		if err != nil {
			return nil, err
		}
		if args.Separator == string(token.SEMI) {
			return nil, diagnostics.NewAt(diagnostics.PhaseGrouper, diagnostics.ErrG005, nameTok.Line, nameTok.Column, "instruction arguments", "a tuple, not a sequence block")
		}
		return optree.NewInstruction(nameTok.Lexeme, args.Expressions), nil

	case token.EXTERNAL:
		g.advance()
		nameTok := g.cur()
		if nameTok.Type != token.NAME {
			return nil, diagnostics.NewAt(diagnostics.PhaseGrouper, diagnostics.ErrG005, tok.Line, tok.Column, "'external'", "an external name")
		}
		g.advance()
		return optree.NewExternal(nameTok.Lexeme), nil

	default:
		return nil, unexpectedTokenErr(tok)
	}
}

// foldAtoms combines a flat (atom op atom op atom ...) sequence into an
// operator tree respecting spec.md 4.2's precedence table: call (0)
// binds tightest and is left-associative; the explicit operators
// (->, =, =>, :) share precedence 1 and are right-associative.
//
// This is done in two linear passes rather than by literally replaying
// the original implementation's single generic reduce/shift recursion:
// first fold every maximal run of implicit calls left-associatively
// (call is the only operator below precedence 1, so those runs are
// always the innermost subtrees), then fold what's left — a sequence of
// same-precedence explicit operators — right-associatively in one pass.
// The two together realize exactly the stated precedence/associativity
// rules, including left-to-right currying of n-ary call chains like
// f(2)(3) -> Call(Call(f, [2]), [3]).
func foldAtoms(atoms []optree.Node, ops []string) optree.Node {
	if len(atoms) == 1 {
		return atoms[0]
	}

	var folded []optree.Node
	var rest []string

	i := 0
	for i < len(atoms) {
		acc := atoms[i]
		j := i
		for j < len(ops) && config.GetOperator(ops[j]).Precedence == config.PrecCall {
			acc = optree.NewOperator("call", acc, atoms[j+1])
			j++
		}
		folded = append(folded, acc)
		if j < len(ops) {
			rest = append(rest, ops[j])
		}
		i = j + 1
	}

	result := folded[len(folded)-1]
	for k := len(rest) - 1; k >= 0; k-- {
		result = optree.NewOperator(rest[k], folded[k], result)
	}
	return result
}
