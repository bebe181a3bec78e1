package filter

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenOperator
	tokenInt
	tokenFloat
	tokenString
	tokenLParen
	tokenRParen
	tokenAnd
	tokenOr
)

type token struct {
	kind     tokenKind
	text     string
	intVal   int64
	floatVal float64
	op       Operator
	line     int
	pos      int
}

// tokenize converts the query into a flat token list.
func tokenize(src string) ([]token, *ParseError) {
	r := newReader(src)
	var tokens []token

	for {
		c, ok := r.peek()
		if !ok {
			line, pos := r.position()
			tokens = append(tokens, token{kind: tokenEOF, line: line, pos: pos})
			return tokens, nil
		}

		switch {
		case unicode.IsSpace(c):
			r.advance()

		case c == '(':
			tokens = append(tokens, simpleToken(r, tokenLParen, "("))
			r.advance()

		case c == ')':
			tokens = append(tokens, simpleToken(r, tokenRParen, ")"))
			r.advance()

		case c == '&' || c == '|':
			line, pos := r.position()
			r.advance()
			c2, _ := r.peek()
			if c2 != c {
				return nil, &ParseError{Line: line, Pos: pos, Msg: fmt.Sprintf("unexpected character %q", c)}
			}
			r.advance()
			kind := tokenAnd
			if c == '|' {
				kind = tokenOr
			}
			tokens = append(tokens, token{kind: kind, text: strings.Repeat(string(c), 2), line: line, pos: pos})

		case isOperatorStart(c):
			tok, err := lexOperator(r)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)

		case c == '"' || c == '\'':
			tok, err := lexString(r)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)

		case unicode.IsDigit(c) || c == '-':
			tok, err := lexNumber(r)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)

		case unicode.IsLetter(c) || c == '_':
			tokens = append(tokens, lexIdent(r))

		default:
			line, pos := r.position()
			return nil, &ParseError{Line: line, Pos: pos, Msg: fmt.Sprintf("unexpected character %q", c)}
		}
	}
}

func simpleToken(r *reader, kind tokenKind, text string) token {
	line, pos := r.position()
	return token{kind: kind, text: text, line: line, pos: pos}
}

func isOperatorStart(c rune) bool {
	return c == '=' || c == '!' || c == '<' || c == '>'
}

func lexOperator(r *reader) (token, *ParseError) {
	line, pos := r.position()
	c, _ := r.next()
	c2, _ := r.peek()

	var op Operator
	switch c {
	case '=':
		switch c2 {
		case '=':
			op = OpEquals
		case '~':
			op = OpMatches
		default:
			return token{}, &ParseError{Line: line, Pos: pos, Msg: fmt.Sprintf("unexpected character %q, expected == or =~", c2)}
		}
		r.advance()
	case '!':
		switch c2 {
		case '=':
			op = OpNotEquals
		case '~':
			op = OpNotMatches
		default:
			return token{}, &ParseError{Line: line, Pos: pos, Msg: fmt.Sprintf("unexpected character %q, expected != or !~", c2)}
		}
		r.advance()
	case '<':
		op = OpLess
		if c2 == '=' {
			op = OpLessOrEqual
			r.advance()
		}
	case '>':
		op = OpGreater
		if c2 == '=' {
			op = OpGreaterOrEqual
			r.advance()
		}
	}
	return token{kind: tokenOperator, text: op.Literal(), op: op, line: line, pos: pos}, nil
}

func lexString(r *reader) (token, *ParseError) {
	line, pos := r.position()
	quote, _ := r.next()
	var sb strings.Builder
	for {
		c, ok := r.next()
		if !ok {
			return token{}, &ParseError{Line: line, Pos: pos, Msg: "unterminated string"}
		}
		if c == '\\' {
			esc, ok := r.next()
			if !ok {
				return token{}, &ParseError{Line: line, Pos: pos, Msg: "unterminated string"}
			}
			sb.WriteRune(esc)
			continue
		}
		if c == quote {
			return token{kind: tokenString, text: sb.String(), line: line, pos: pos}, nil
		}
		sb.WriteRune(c)
	}
}

func lexNumber(r *reader) (token, *ParseError) {
	line, pos := r.position()
	var sb strings.Builder
	isFloat := false

	if c, _ := r.peek(); c == '-' {
		sb.WriteRune(c)
		r.advance()
	}
	for {
		c, ok := r.peek()
		if !ok {
			break
		}
		if unicode.IsDigit(c) {
			sb.WriteRune(c)
			r.advance()
			continue
		}
		if c == '.' && !isFloat {
			isFloat = true
			sb.WriteRune(c)
			r.advance()
			continue
		}
		break
	}

	text := sb.String()
	if isFloat {
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return token{}, &ParseError{Line: line, Pos: pos, Msg: fmt.Sprintf("invalid number %q", text)}
		}
		return token{kind: tokenFloat, text: text, floatVal: v, line: line, pos: pos}, nil
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return token{}, &ParseError{Line: line, Pos: pos, Msg: fmt.Sprintf("invalid number %q", text)}
	}
	return token{kind: tokenInt, text: text, intVal: v, line: line, pos: pos}, nil
}

func lexIdent(r *reader) token {
	line, pos := r.position()
	var sb strings.Builder
	for {
		c, ok := r.peek()
		if !ok || !(unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_') {
			break
		}
		sb.WriteRune(c)
		r.advance()
	}
	return token{kind: tokenIdent, text: sb.String(), line: line, pos: pos}
}
