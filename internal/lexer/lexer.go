// Package lexer turns source text into a token stream (spec.md 4.1).
package lexer

import (
	"github.com/entropiahr/znj/internal/config"
	"github.com/entropiahr/znj/internal/diagnostics"
	"github.com/entropiahr/znj/internal/token"
)

var keywords = map[string]token.Type{
	config.KeywordInstruction: token.INSTRUCTION,
	config.KeywordExternal:    token.EXTERNAL,
}

// Lexer scans source text into tokens in one left-to-right pass.
type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           byte
	line         int
	column       int
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isNameStart(ch byte) bool {
	return ch == '_' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

func isNameChar(ch byte) bool {
	return isNameStart(ch) || isDigit(ch)
}

// NextToken returns the next token, or an error if the current character
// starts no valid token (spec.md: "any other character is a fatal lex
// error naming the offending character").
func (l *Lexer) NextToken() (token.Token, *diagnostics.CompileError) {
	l.skipWhitespace()

	line, column := l.line, l.column

	switch {
	case l.ch == 0:
		return token.New(token.EOF, "", line, column), nil
	case l.ch == '=' && l.peekChar() == '>':
		l.readChar()
		l.readChar()
		return token.New(token.FATARROW, "=>", line, column), nil
	case l.ch == '-' && l.peekChar() == '>':
		l.readChar()
		l.readChar()
		return token.New(token.ARROW, "->", line, column), nil
	case l.ch == '-' && isDigit(l.peekChar()):
		// spec.md 9(c): "-n" lexes as a single negative integer literal,
		// never as a unary operator.
		return l.readInteger(line, column), nil
	case l.ch == ':':
		l.readChar()
		return token.New(token.COLON, ":", line, column), nil
	case l.ch == '=':
		l.readChar()
		return token.New(token.ASSIGN, "=", line, column), nil
	case l.ch == ';':
		l.readChar()
		return token.New(token.SEMI, ";", line, column), nil
	case l.ch == ',':
		l.readChar()
		return token.New(token.COMMA, ",", line, column), nil
	case l.ch == '(':
		l.readChar()
		return token.New(token.LPAREN, "(", line, column), nil
	case l.ch == ')':
		l.readChar()
		return token.New(token.RPAREN, ")", line, column), nil
	case isDigit(l.ch):
		return l.readInteger(line, column), nil
	case isNameStart(l.ch):
		return l.readName(line, column), nil
	default:
		ch := l.ch
		l.readChar()
		return token.Token{}, diagnostics.NewAt(diagnostics.PhaseLexer, diagnostics.ErrL001, line, column, string(ch))
	}
}

func (l *Lexer) readInteger(line, column int) token.Token {
	start := l.position
	if l.ch == '-' {
		l.readChar()
	}
	for isDigit(l.ch) {
		l.readChar()
	}
	return token.New(token.INTEGER, l.input[start:l.position], line, column)
}

func (l *Lexer) readName(line, column int) token.Token {
	start := l.position
	for isNameChar(l.ch) {
		l.readChar()
	}
	text := l.input[start:l.position]
	if kw, ok := keywords[text]; ok {
		return token.New(kw, text, line, column)
	}
	return token.New(token.NAME, text, line, column)
}

// Lex scans the entire input into a token slice terminated by EOF
// (spec.md "lexer totality": every input either produces a finite token
// list ending in EOF, or raises a LexError).
func Lex(input string) ([]token.Token, *diagnostics.CompileError) {
	l := New(input)
	var tokens []token.Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			return tokens, nil
		}
	}
}
