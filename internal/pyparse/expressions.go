package pyparse

import (
	"github.com/tycore/tycore/internal/pyast"
	"github.com/tycore/tycore/internal/token"
)

// parseExprList parses a comma-separated expression list, producing a
// TupleExpr when more than one element is present (or a single trailing
// comma follows one element), matching CPython's testlist_star_expr rule.
func (p *Parser) parseExprList() pyast.Expr {
	start := p.cur()
	first := p.parseExprOrStar()
	if !p.at(token.COMMA) {
		return first
	}
	elts := []pyast.Expr{first}
	for p.at(token.COMMA) {
		p.advance()
		if p.atStmtEnd() || p.at(token.ASSIGN) || p.at(token.COLON) || p.at(token.RPAREN) || p.at(token.RBRACKET) {
			break
		}
		elts = append(elts, p.parseExprOrStar())
	}
	tup := &pyast.TupleExpr{Elts: elts}
	tup.Tok = start
	tup.Rng = rangeFrom(start, p.lastConsumed())
	return tup
}

func (p *Parser) parseExprListNoExpand() pyast.Expr { return p.parseExprList() }

func (p *Parser) parseExprOrStar() pyast.Expr {
	if p.at(token.STAR) {
		tok := p.advance()
		val := p.parseOrTest()
		s := &pyast.Starred{Value: val}
		s.Tok = tok
		s.Rng = rangeFrom(tok, p.lastConsumed())
		return s
	}
	return p.parseExpr()
}

// parseExpr is the single-expression entry point: walrus, lambda, ternary,
// and everything below.
func (p *Parser) parseExpr() pyast.Expr {
	if p.at(token.NAME) && p.peekAt(1).Kind == token.WALRUS {
		tok := p.cur()
		nameTok := p.advance()
		p.advance() // :=
		target := &pyast.Name{Id: nameTok.Lexeme, Ctx: pyast.CtxStore}
		target.Tok = nameTok
		target.Rng = rangeFrom(nameTok, nameTok)
		value := p.parseExpr()
		ne := &pyast.NamedExpr{Target: target, Value: value}
		ne.Tok = tok
		ne.Rng = rangeFrom(tok, p.lastConsumed())
		return ne
	}
	if p.at(token.KW_LAMBDA) {
		return p.parseLambda()
	}
	left := p.parseOrTest()
	if p.at(token.KW_IF) {
		tok := p.cur()
		p.advance()
		test := p.parseOrTest()
		p.eat(token.KW_ELSE)
		orelse := p.parseExpr()
		ie := &pyast.IfExp{Test: test, Body: left, Orelse: orelse}
		ie.Tok = tok
		ie.Rng = rangeFrom(left.GetToken(), p.lastConsumed())
		return ie
	}
	return left
}

// parseNamedExprOrExpr is used for if/while tests where a bare walrus
// expression is the common case.
func (p *Parser) parseNamedExprOrExpr() pyast.Expr { return p.parseExpr() }

func (p *Parser) parseLambda() pyast.Expr {
	start := p.cur()
	p.advance()
	var params []*pyast.Param
	for !p.at(token.COLON) && !p.at(token.EOF) {
		tok := p.cur()
		switch {
		case p.at(token.STAR) && (p.peekAt(1).Kind == token.COMMA || p.peekAt(1).Kind == token.COLON):
			p.advance()
			m := &pyast.Param{Kind: pyast.ParamKwOnlyMarker}
			m.Tok = tok
			params = append(params, m)
		case p.at(token.STAR):
			p.advance()
			nm := p.eat(token.NAME).Lexeme
			pr := &pyast.Param{Name: nm, Kind: pyast.ParamStarArgs}
			pr.Tok = tok
			params = append(params, pr)
		case p.at(token.DOUBLESTAR):
			p.advance()
			nm := p.eat(token.NAME).Lexeme
			pr := &pyast.Param{Name: nm, Kind: pyast.ParamDoubleStarArgs}
			pr.Tok = tok
			params = append(params, pr)
		default:
			nm := p.eat(token.NAME).Lexeme
			pr := &pyast.Param{Name: nm, Kind: pyast.ParamNormal}
			pr.Tok = tok
			if p.at(token.ASSIGN) {
				p.advance()
				pr.Default = p.parseExpr()
			}
			params = append(params, pr)
		}
		if p.at(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	p.eat(token.COLON)
	body := p.parseExpr()
	l := &pyast.Lambda{Params: params, Body: body}
	l.Tok = start
	l.Rng = rangeFrom(start, p.lastConsumed())
	return l
}

func (p *Parser) parseOrTest() pyast.Expr {
	tok := p.cur()
	left := p.parseAndTest()
	if !p.at(token.KW_OR) {
		return left
	}
	values := []pyast.Expr{left}
	for p.at(token.KW_OR) {
		p.advance()
		values = append(values, p.parseAndTest())
	}
	b := &pyast.BoolOp{Op: "or", Values: values}
	b.Tok = tok
	b.Rng = rangeFrom(tok, p.lastConsumed())
	return b
}

func (p *Parser) parseAndTest() pyast.Expr {
	tok := p.cur()
	left := p.parseNotTest()
	if !p.at(token.KW_AND) {
		return left
	}
	values := []pyast.Expr{left}
	for p.at(token.KW_AND) {
		p.advance()
		values = append(values, p.parseNotTest())
	}
	b := &pyast.BoolOp{Op: "and", Values: values}
	b.Tok = tok
	b.Rng = rangeFrom(tok, p.lastConsumed())
	return b
}

func (p *Parser) parseNotTest() pyast.Expr {
	if p.at(token.KW_NOT) {
		tok := p.advance()
		operand := p.parseNotTest()
		u := &pyast.UnaryOp{Op: "not", Operand: operand}
		u.Tok = tok
		u.Rng = rangeFrom(tok, p.lastConsumed())
		return u
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() pyast.Expr {
	tok := p.cur()
	left := p.parseBitOr()
	var ops []string
	var comparators []pyast.Expr
	for {
		op, ok := p.matchComparisonOp()
		if !ok {
			break
		}
		ops = append(ops, op)
		comparators = append(comparators, p.parseBitOr())
	}
	if len(ops) == 0 {
		return left
	}
	c := &pyast.Compare{Left: left, Ops: ops, Comparators: comparators}
	c.Tok = tok
	c.Rng = rangeFrom(tok, p.lastConsumed())
	return c
}

func (p *Parser) matchComparisonOp() (string, bool) {
	switch p.cur().Kind {
	case token.EQ:
		p.advance()
		return "==", true
	case token.NOTEQ:
		p.advance()
		return "!=", true
	case token.LT:
		p.advance()
		return "<", true
	case token.GT:
		p.advance()
		return ">", true
	case token.LE:
		p.advance()
		return "<=", true
	case token.GE:
		p.advance()
		return ">=", true
	case token.KW_IN:
		p.advance()
		return "in", true
	case token.KW_IS:
		p.advance()
		if p.at(token.KW_NOT) {
			p.advance()
			return "is not", true
		}
		return "is", true
	case token.KW_NOT:
		if p.peekAt(1).Kind == token.KW_IN {
			p.advance()
			p.advance()
			return "not in", true
		}
	}
	return "", false
}

func (p *Parser) parseBitOr() pyast.Expr {
	return p.binaryLevel(p.parseBitXor, token.PIPE)
}
func (p *Parser) parseBitXor() pyast.Expr {
	return p.binaryLevel(p.parseBitAnd, token.CARET)
}
func (p *Parser) parseBitAnd() pyast.Expr {
	return p.binaryLevel(p.parseShift, token.AMP)
}
func (p *Parser) parseShift() pyast.Expr {
	return p.binaryLevel(p.parseArith, token.LSHIFT, token.RSHIFT)
}
func (p *Parser) parseArith() pyast.Expr {
	return p.binaryLevel(p.parseTerm, token.PLUS, token.MINUS)
}
func (p *Parser) parseTerm() pyast.Expr {
	return p.binaryLevel(p.parseFactor, token.STAR, token.SLASH, token.DOUBLESLASH, token.PERCENT, token.AT)
}

// binaryLevel is a small precedence-climbing helper shared by every
// left-associative binary tier, avoiding six near-identical copies of the
// same loop.
func (p *Parser) binaryLevel(next func() pyast.Expr, kinds ...token.Kind) pyast.Expr {
	tok := p.cur()
	left := next()
	for {
		matched := false
		for _, k := range kinds {
			if p.at(k) {
				op := string(p.advance().Kind)
				right := next()
				b := &pyast.BinOp{Left: left, Op: op, Right: right}
				b.Tok = tok
				b.Rng = rangeFrom(tok, p.lastConsumed())
				left = b
				matched = true
				break
			}
		}
		if !matched {
			return left
		}
	}
}

func (p *Parser) parseFactor() pyast.Expr {
	switch p.cur().Kind {
	case token.PLUS, token.MINUS, token.TILDE:
		tok := p.advance()
		operand := p.parseFactor()
		u := &pyast.UnaryOp{Op: string(tok.Kind), Operand: operand}
		u.Tok = tok
		u.Rng = rangeFrom(tok, p.lastConsumed())
		return u
	}
	return p.parsePower()
}

func (p *Parser) parsePower() pyast.Expr {
	tok := p.cur()
	left := p.parseAwaitOrPostfix()
	if p.at(token.DOUBLESTAR) {
		p.advance()
		right := p.parseFactor()
		b := &pyast.BinOp{Left: left, Op: "**", Right: right}
		b.Tok = tok
		b.Rng = rangeFrom(tok, p.lastConsumed())
		return b
	}
	return left
}

func (p *Parser) parseAwaitOrPostfix() pyast.Expr {
	if p.at(token.KW_AWAIT) {
		tok := p.advance()
		val := p.parsePostfix()
		a := &pyast.Await{Value: val}
		a.Tok = tok
		a.Rng = rangeFrom(tok, p.lastConsumed())
		return a
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() pyast.Expr {
	expr := p.parseAtom()
	for {
		switch p.cur().Kind {
		case token.DOT:
			tok := p.advance()
			attr := p.eat(token.NAME).Lexeme
			a := &pyast.Attribute{Value: expr, Attr: attr}
			a.Tok = tok
			a.Rng = rangeFrom(expr.GetToken(), p.lastConsumed())
			expr = a
		case token.LPAREN:
			expr = p.parseCallTrailer(expr)
		case token.LBRACKET:
			expr = p.parseSubscriptTrailer(expr)
		default:
			return expr
		}
	}
}

func (p *Parser) parseCallTrailer(fn pyast.Expr) pyast.Expr {
	tok := p.advance() // (
	call := &pyast.Call{Func: fn}
	call.Tok = tok
	for !p.at(token.RPAREN) && !p.at(token.EOF) {
		if p.at(token.NAME) && p.peekAt(1).Kind == token.ASSIGN {
			kwTok := p.cur()
			name := p.advance().Lexeme
			p.advance()
			kw := &pyast.Keyword{Name: name, Value: p.parseExpr()}
			kw.Tok = kwTok
			call.Keywords = append(call.Keywords, kw)
		} else if p.at(token.DOUBLESTAR) {
			kwTok := p.advance()
			kw := &pyast.Keyword{Value: p.parseExpr()}
			kw.Tok = kwTok
			call.Keywords = append(call.Keywords, kw)
		} else if p.at(token.STAR) {
			starTok := p.advance()
			val := p.parseExpr()
			s := &pyast.Starred{Value: val}
			s.Tok = starTok
			s.Rng = rangeFrom(starTok, p.lastConsumed())
			call.Args = append(call.Args, s)
		} else {
			arg := p.parseExpr()
			if p.at(token.KW_FOR) || (p.at(token.KW_ASYNC) && p.peekAt(1).Kind == token.KW_FOR) {
				arg = p.parseGeneratorExpTail(arg, tok)
			}
			call.Args = append(call.Args, arg)
		}
		if p.at(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	p.eat(token.RPAREN)
	call.Rng = rangeFrom(fn.GetToken(), p.lastConsumed())
	return call
}

func (p *Parser) parseSubscriptTrailer(val pyast.Expr) pyast.Expr {
	tok := p.advance() // [
	slice := p.parseSubscriptBody()
	p.eat(token.RBRACKET)
	s := &pyast.Subscript{Value: val, Slice: slice}
	s.Tok = tok
	s.Rng = rangeFrom(val.GetToken(), p.lastConsumed())
	return s
}

// parseSubscriptBody handles both plain index expressions and slices, plus
// comma-separated subscript tuples such as `arr[1:2, ::3]`.
func (p *Parser) parseSubscriptBody() pyast.Expr {
	first := p.parseSliceItem()
	if !p.at(token.COMMA) {
		return first
	}
	elts := []pyast.Expr{first}
	tok := first.GetToken()
	for p.at(token.COMMA) {
		p.advance()
		if p.at(token.RBRACKET) {
			break
		}
		elts = append(elts, p.parseSliceItem())
	}
	tup := &pyast.TupleExpr{Elts: elts}
	tup.Tok = tok
	tup.Rng = rangeFrom(tok, p.lastConsumed())
	return tup
}

func (p *Parser) parseSliceItem() pyast.Expr {
	tok := p.cur()
	var lower pyast.Expr
	if !p.at(token.COLON) {
		lower = p.parseExprOrStar()
	}
	if !p.at(token.COLON) {
		return lower
	}
	sl := &pyast.Slice{Lower: lower}
	sl.Tok = tok
	p.advance() // :
	if !p.at(token.COLON) && !p.at(token.RBRACKET) && !p.at(token.COMMA) {
		sl.Upper = p.parseExpr()
	}
	if p.at(token.COLON) {
		p.advance()
		if !p.at(token.RBRACKET) && !p.at(token.COMMA) {
			sl.Step = p.parseExpr()
		}
	}
	sl.Rng = rangeFrom(tok, p.lastConsumed())
	return sl
}

func (p *Parser) parseAtom() pyast.Expr {
	tok := p.cur()
	switch tok.Kind {
	case token.NAME:
		p.advance()
		n := &pyast.Name{Id: tok.Lexeme}
		n.Tok = tok
		n.Rng = rangeFrom(tok, tok)
		return n
	case token.INT:
		p.advance()
		c := &pyast.Constant{Kind: pyast.ConstInt, Value: tok.Literal}
		c.Tok = tok
		c.Rng = rangeFrom(tok, tok)
		return c
	case token.FLOAT:
		p.advance()
		c := &pyast.Constant{Kind: pyast.ConstFloat, Value: tok.Literal}
		c.Tok = tok
		c.Rng = rangeFrom(tok, tok)
		return c
	case token.STRING:
		return p.parseStringAtom()
	case token.KW_TRUE, token.KW_FALSE:
		p.advance()
		c := &pyast.Constant{Kind: pyast.ConstBool, Value: tok.Kind == token.KW_TRUE}
		c.Tok = tok
		c.Rng = rangeFrom(tok, tok)
		return c
	case token.KW_NONE:
		p.advance()
		c := &pyast.Constant{Kind: pyast.ConstNone}
		c.Tok = tok
		c.Rng = rangeFrom(tok, tok)
		return c
	case token.ELLIPSIS:
		p.advance()
		c := &pyast.Constant{Kind: pyast.ConstEllipsis}
		c.Tok = tok
		c.Rng = rangeFrom(tok, tok)
		return c
	case token.LPAREN:
		return p.parseParenAtom()
	case token.LBRACKET:
		return p.parseBracketAtom()
	case token.LBRACE:
		return p.parseBraceAtom()
	case token.KW_YIELD:
		return p.parseYield()
	case token.STAR:
		p.advance()
		val := p.parsePostfix()
		s := &pyast.Starred{Value: val}
		s.Tok = tok
		s.Rng = rangeFrom(tok, p.lastConsumed())
		return s
	default:
		p.errorf("unexpected token %s %q in expression", tok.Kind, tok.Lexeme)
		p.advance()
		bad := &pyast.Constant{Kind: pyast.ConstNone}
		bad.Tok = tok
		bad.Rng = rangeFrom(tok, tok)
		return bad
	}
}

func (p *Parser) parseStringAtom() pyast.Expr {
	tok := p.cur()
	var sb []byte
	for p.at(token.STRING) {
		lit := p.cur().Literal
		switch v := lit.(type) {
		case string:
			sb = append(sb, v...)
		case []byte:
			sb = append(sb, v...)
		}
		p.advance()
	}
	c := &pyast.Constant{Kind: pyast.ConstString, Value: string(sb)}
	c.Tok = tok
	c.Rng = rangeFrom(tok, p.lastConsumed())
	return c
}

func (p *Parser) parseYield() pyast.Expr {
	tok := p.advance()
	if p.at(token.KW_FROM) {
		p.advance()
		val := p.parseExpr()
		y := &pyast.YieldFrom{Value: val}
		y.Tok = tok
		y.Rng = rangeFrom(tok, p.lastConsumed())
		return y
	}
	y := &pyast.Yield{}
	y.Tok = tok
	if !p.atStmtEnd() && !p.at(token.RPAREN) && !p.at(token.RBRACKET) && !p.at(token.RBRACE) && !p.at(token.COMMA) {
		y.Value = p.parseExprList()
	}
	y.Rng = rangeFrom(tok, p.lastConsumed())
	return y
}

func (p *Parser) parseParenAtom() pyast.Expr {
	tok := p.advance() // (
	if p.at(token.RPAREN) {
		p.advance()
		tup := &pyast.TupleExpr{}
		tup.Tok = tok
		tup.Rng = rangeFrom(tok, p.lastConsumed())
		return tup
	}
	first := p.parseExprOrStar()
	if p.at(token.KW_FOR) || (p.at(token.KW_ASYNC) && p.peekAt(1).Kind == token.KW_FOR) {
		gen := p.parseGeneratorExpTail(first, tok)
		p.eat(token.RPAREN)
		return gen
	}
	if !p.at(token.COMMA) {
		p.eat(token.RPAREN)
		return first
	}
	elts := []pyast.Expr{first}
	for p.at(token.COMMA) {
		p.advance()
		if p.at(token.RPAREN) {
			break
		}
		elts = append(elts, p.parseExprOrStar())
	}
	p.eat(token.RPAREN)
	tup := &pyast.TupleExpr{Elts: elts}
	tup.Tok = tok
	tup.Rng = rangeFrom(tok, p.lastConsumed())
	return tup
}

func (p *Parser) parseComprehensionClauses() []*pyast.Comprehension {
	var gens []*pyast.Comprehension
	for p.at(token.KW_FOR) || (p.at(token.KW_ASYNC) && p.peekAt(1).Kind == token.KW_FOR) {
		isAsync := false
		if p.at(token.KW_ASYNC) {
			isAsync = true
			p.advance()
		}
		p.advance() // for
		target := p.parseTargetList()
		p.eat(token.KW_IN)
		iter := p.parseOrTest()
		comp := &pyast.Comprehension{Target: target, Iter: iter, IsAsync: isAsync}
		for p.at(token.KW_IF) {
			p.advance()
			comp.Ifs = append(comp.Ifs, p.parseOrTest())
		}
		gens = append(gens, comp)
	}
	return gens
}

func (p *Parser) parseGeneratorExpTail(elt pyast.Expr, tok token.Token) pyast.Expr {
	gens := p.parseComprehensionClauses()
	g := &pyast.GeneratorExp{Elt: elt, Gens: gens}
	g.Tok = tok
	g.Rng = rangeFrom(tok, p.lastConsumed())
	return g
}

func (p *Parser) parseBracketAtom() pyast.Expr {
	tok := p.advance() // [
	if p.at(token.RBRACKET) {
		p.advance()
		l := &pyast.List{}
		l.Tok = tok
		l.Rng = rangeFrom(tok, p.lastConsumed())
		return l
	}
	first := p.parseExprOrStar()
	if p.at(token.KW_FOR) || (p.at(token.KW_ASYNC) && p.peekAt(1).Kind == token.KW_FOR) {
		gens := p.parseComprehensionClauses()
		p.eat(token.RBRACKET)
		lc := &pyast.ListComp{Elt: first, Gens: gens}
		lc.Tok = tok
		lc.Rng = rangeFrom(tok, p.lastConsumed())
		return lc
	}
	elts := []pyast.Expr{first}
	for p.at(token.COMMA) {
		p.advance()
		if p.at(token.RBRACKET) {
			break
		}
		elts = append(elts, p.parseExprOrStar())
	}
	p.eat(token.RBRACKET)
	l := &pyast.List{Elts: elts}
	l.Tok = tok
	l.Rng = rangeFrom(tok, p.lastConsumed())
	return l
}

func (p *Parser) parseBraceAtom() pyast.Expr {
	tok := p.advance() // {
	if p.at(token.RBRACE) {
		p.advance()
		d := &pyast.DictExpr{}
		d.Tok = tok
		d.Rng = rangeFrom(tok, p.lastConsumed())
		return d
	}
	if p.at(token.DOUBLESTAR) {
		return p.parseDictAtomBody(tok, nil, nil)
	}
	firstKeyOrElt := p.parseExprOrStar()
	if p.at(token.COLON) {
		p.advance()
		firstVal := p.parseExpr()
		if p.at(token.KW_FOR) || (p.at(token.KW_ASYNC) && p.peekAt(1).Kind == token.KW_FOR) {
			gens := p.parseComprehensionClauses()
			p.eat(token.RBRACE)
			dc := &pyast.DictComp{Key: firstKeyOrElt, Value: firstVal, Gens: gens}
			dc.Tok = tok
			dc.Rng = rangeFrom(tok, p.lastConsumed())
			return dc
		}
		return p.parseDictAtomBody(tok, []pyast.Expr{firstKeyOrElt}, []pyast.Expr{firstVal})
	}
	if p.at(token.KW_FOR) || (p.at(token.KW_ASYNC) && p.peekAt(1).Kind == token.KW_FOR) {
		gens := p.parseComprehensionClauses()
		p.eat(token.RBRACE)
		sc := &pyast.SetComp{Elt: firstKeyOrElt, Gens: gens}
		sc.Tok = tok
		sc.Rng = rangeFrom(tok, p.lastConsumed())
		return sc
	}
	elts := []pyast.Expr{firstKeyOrElt}
	for p.at(token.COMMA) {
		p.advance()
		if p.at(token.RBRACE) {
			break
		}
		elts = append(elts, p.parseExprOrStar())
	}
	p.eat(token.RBRACE)
	s := &pyast.SetExpr{Elts: elts}
	s.Tok = tok
	s.Rng = rangeFrom(tok, p.lastConsumed())
	return s
}

func (p *Parser) parseDictAtomBody(tok token.Token, keys, values []pyast.Expr) pyast.Expr {
	first := len(keys) == 0
	for first || p.at(token.COMMA) {
		if !first {
			p.advance() // ,
		}
		first = false
		if p.at(token.RBRACE) {
			break
		}
		if p.at(token.DOUBLESTAR) {
			p.advance()
			val := p.parseOrTest()
			keys = append(keys, nil)
			values = append(values, val)
			continue
		}
		k := p.parseExpr()
		p.eat(token.COLON)
		v := p.parseExpr()
		keys = append(keys, k)
		values = append(values, v)
	}
	p.eat(token.RBRACE)
	d := &pyast.DictExpr{Keys: keys, Values: values}
	d.Tok = tok
	d.Rng = rangeFrom(tok, p.lastConsumed())
	return d
}
