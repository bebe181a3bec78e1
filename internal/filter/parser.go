package filter

import "fmt"

// Parse turns a query string into an uncompiled expression tree.
//
//	expr := term ( ('&&' | '||') term )*
//	term := '(' expr ')' | IDENT OP VALUE
func Parse[T any](src string) (*Expression[T], error) {
	tokens, perr := tokenize(src)
	if perr != nil {
		return nil, perr
	}
	p := &parser[T]{tokens: tokens}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokenEOF {
		return nil, p.errorAt(tok, fmt.Sprintf("unexpected %q", tok.text))
	}
	return expr, nil
}

type parser[T any] struct {
	tokens []token
	idx    int
}

func (p *parser[T]) peek() token {
	return p.tokens[p.idx]
}

func (p *parser[T]) next() token {
	tok := p.tokens[p.idx]
	if tok.kind != tokenEOF {
		p.idx++
	}
	return tok
}

func (p *parser[T]) errorAt(tok token, msg string) *ParseError {
	return &ParseError{Line: tok.line, Pos: tok.pos, Msg: msg}
}

func (p *parser[T]) parseExpression() (*Expression[T], error) {
	expr, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	// combinators fold left: a && b || c is (a && b) || c
	for {
		tok := p.peek()
		if tok.kind != tokenAnd && tok.kind != tokenOr {
			return expr, nil
		}
		p.next()
		op := CombineAnd
		if tok.kind == tokenOr {
			op = CombineOr
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		expr = &Expression[T]{LeftExpr: expr, Op: op, Right: right}
	}
}

func (p *parser[T]) parseTerm() (*Expression[T], error) {
	tok := p.peek()
	switch tok.kind {
	case tokenLParen:
		p.next()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokenRParen {
			return nil, p.errorAt(closing, "expected )")
		}
		return &Expression[T]{LeftExpr: expr}, nil

	case tokenIdent:
		return p.parseCondition()

	case tokenEOF:
		return nil, p.errorAt(tok, "unexpected end of input")

	default:
		return nil, p.errorAt(tok, fmt.Sprintf("unexpected %q, expected identifier or (", tok.text))
	}
}

func (p *parser[T]) parseCondition() (*Expression[T], error) {
	ident := p.next()

	opTok := p.next()
	if opTok.kind != tokenOperator {
		if opTok.kind == tokenEOF {
			return nil, p.errorAt(opTok, "unexpected end of input, expected operator")
		}
		return nil, p.errorAt(opTok, fmt.Sprintf("unexpected %q, expected operator", opTok.text))
	}

	valTok := p.next()
	var value Value
	switch valTok.kind {
	case tokenInt:
		value = IntValue(valTok.intVal)
	case tokenFloat:
		value = FloatValue(valTok.floatVal)
	case tokenString:
		value = StringValue(valTok.text)
	case tokenEOF:
		return nil, p.errorAt(valTok, "unexpected end of input, expected value")
	default:
		return nil, p.errorAt(valTok, fmt.Sprintf("unexpected %q, expected value", valTok.text))
	}

	cond := &Condition[T]{Cond: Cond{Ident: ident.text, Op: opTok.op, Value: value}}
	return &Expression[T]{LeftCond: cond}, nil
}
