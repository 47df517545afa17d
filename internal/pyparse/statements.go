package pyparse

import (
	"github.com/tycore/tycore/internal/pyast"
	"github.com/tycore/tycore/internal/token"
)

// parseStatement parses one logical statement line. It returns a slice
// because a single line can hold several semicolon-separated simple
// statements (`x = 1; y = 2`); every other branch returns a one-element
// slice.
func (p *Parser) parseStatement() []pyast.Stmt {
	switch p.cur().Kind {
	case token.KW_DEF:
		return []pyast.Stmt{p.parseFunctionDef(nil, false)}
	case token.KW_ASYNC:
		if p.peekAt(1).Kind == token.KW_DEF {
			p.advance()
			return []pyast.Stmt{p.parseFunctionDef(nil, true)}
		}
		if p.peekAt(1).Kind == token.KW_FOR {
			p.advance()
			return []pyast.Stmt{p.parseFor(true)}
		}
		if p.peekAt(1).Kind == token.KW_WITH {
			p.advance()
			return []pyast.Stmt{p.parseWith(true)}
		}
		return p.parseSimpleStatementLine()
	case token.KW_CLASS:
		return []pyast.Stmt{p.parseClassDef(nil)}
	case token.AT:
		return []pyast.Stmt{p.parseDecorated()}
	case token.KW_IF:
		return []pyast.Stmt{p.parseIf()}
	case token.KW_WHILE:
		return []pyast.Stmt{p.parseWhile()}
	case token.KW_FOR:
		return []pyast.Stmt{p.parseFor(false)}
	case token.KW_TRY:
		return []pyast.Stmt{p.parseTry()}
	case token.KW_WITH:
		return []pyast.Stmt{p.parseWith(false)}
	case token.NAME:
		if p.cur().Lexeme == "match" && p.looksLikeMatch() {
			return []pyast.Stmt{p.parseMatch()}
		}
		if p.cur().Lexeme == "type" && p.peekAt(1).Kind == token.NAME {
			return []pyast.Stmt{p.parseTypeAliasStmt()}
		}
		return p.parseSimpleStatementLine()
	default:
		return p.parseSimpleStatementLine()
	}
}

func (p *Parser) looksLikeMatch() bool {
	// A soft keyword: "match" only introduces a match statement when the
	// line is not itself an assignment/call using `match` as a plain name,
	// a heuristic CPython's own PEG grammar also applies (no colon-ending
	// line starting with `match` that's actually `match = ...` etc.).
	save := p.pos
	defer func() { p.pos = save }()
	p.advance()
	if p.at(token.ASSIGN) || p.at(token.DOT) || p.at(token.LPAREN) && p.peekAt(1).Kind == token.RPAREN {
		return false
	}
	return true
}

func (p *Parser) parseDecorated() pyast.Stmt {
	var decorators []pyast.Expr
	for p.at(token.AT) {
		p.advance()
		decorators = append(decorators, p.parseExpr())
		p.eatNewlineish()
	}
	switch p.cur().Kind {
	case token.KW_DEF:
		return p.parseFunctionDef(decorators, false)
	case token.KW_ASYNC:
		p.advance()
		return p.parseFunctionDef(decorators, true)
	case token.KW_CLASS:
		return p.parseClassDef(decorators)
	default:
		p.errorf("expected def/class after decorator")
		return nil
	}
}

func (p *Parser) eatNewlineish() {
	for p.at(token.NEWLINE) {
		p.advance()
	}
}

func (p *Parser) parseTypeParams() []*pyast.TypeParam {
	if !p.at(token.LBRACKET) {
		return nil
	}
	p.advance()
	var params []*pyast.TypeParam
	for !p.at(token.RBRACKET) && !p.at(token.EOF) {
		tok := p.cur()
		kind := pyast.TypeParamNormal
		if p.at(token.STAR) {
			p.advance()
			kind = pyast.TypeParamVarTuple
		} else if p.at(token.DOUBLESTAR) {
			p.advance()
			kind = pyast.TypeParamParamSpec
		}
		name := p.eat(token.NAME).Lexeme
		tp := &pyast.TypeParam{Name: name, Kind: kind}
		tp.Tok = tok
		if p.at(token.COLON) {
			p.advance()
			tp.Bound = p.parseExpr()
		}
		if p.at(token.ASSIGN) {
			p.advance()
			tp.Default = p.parseExpr()
		}
		tp.Rng = rangeFrom(tok, p.cur())
		params = append(params, tp)
		if p.at(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	p.eat(token.RBRACKET)
	return params
}

func (p *Parser) parseFunctionDef(decorators []pyast.Expr, isAsync bool) pyast.Stmt {
	start := p.cur()
	p.eat(token.KW_DEF)
	name := p.eat(token.NAME).Lexeme
	typeParams := p.parseTypeParams()
	p.eat(token.LPAREN)
	params := p.parseParamList()
	p.eat(token.RPAREN)
	var returns pyast.Expr
	if p.at(token.ARROW) {
		p.advance()
		returns = p.parseExpr()
	}
	p.eat(token.COLON)
	body := p.parseBlock()
	fd := &pyast.FunctionDef{
		Name: name, TypeParams: typeParams, Params: params, Returns: returns,
		Body: body, Decorators: decorators, IsAsync: isAsync,
	}
	fd.Tok = start
	fd.Rng = rangeFrom(start, p.lastConsumed())
	return fd
}

func (p *Parser) lastConsumed() token.Token {
	if p.pos == 0 {
		return p.cur()
	}
	return p.toks[p.pos-1]
}

func (p *Parser) parseParamList() []*pyast.Param {
	var params []*pyast.Param
	for !p.at(token.RPAREN) && !p.at(token.EOF) {
		tok := p.cur()
		switch {
		case p.at(token.SLASH):
			p.advance()
			marker := &pyast.Param{Kind: pyast.ParamPosOnlyMarker}
			marker.Tok = tok
			marker.Rng = rangeFrom(tok, tok)
			params = append(params, marker)
		case p.at(token.STAR) && (p.peekAt(1).Kind == token.COMMA || p.peekAt(1).Kind == token.RPAREN):
			p.advance()
			marker := &pyast.Param{Kind: pyast.ParamKwOnlyMarker}
			marker.Tok = tok
			marker.Rng = rangeFrom(tok, tok)
			params = append(params, marker)
		case p.at(token.STAR):
			p.advance()
			nameTok := p.eat(token.NAME)
			pr := &pyast.Param{Name: nameTok.Lexeme, Kind: pyast.ParamStarArgs}
			pr.Tok = tok
			if p.at(token.COLON) {
				p.advance()
				pr.Annotation = p.parseExpr()
			}
			pr.Rng = rangeFrom(tok, p.lastConsumed())
			params = append(params, pr)
		case p.at(token.DOUBLESTAR):
			p.advance()
			nameTok := p.eat(token.NAME)
			pr := &pyast.Param{Name: nameTok.Lexeme, Kind: pyast.ParamDoubleStarArgs}
			pr.Tok = tok
			if p.at(token.COLON) {
				p.advance()
				pr.Annotation = p.parseExpr()
			}
			pr.Rng = rangeFrom(tok, p.lastConsumed())
			params = append(params, pr)
		default:
			nameTok := p.eat(token.NAME)
			pr := &pyast.Param{Name: nameTok.Lexeme, Kind: pyast.ParamNormal}
			pr.Tok = tok
			if p.at(token.COLON) {
				p.advance()
				pr.Annotation = p.parseExpr()
			}
			if p.at(token.ASSIGN) {
				p.advance()
				pr.Default = p.parseExpr()
			}
			pr.Rng = rangeFrom(tok, p.lastConsumed())
			params = append(params, pr)
		}
		if p.at(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	return params
}

func (p *Parser) parseClassDef(decorators []pyast.Expr) pyast.Stmt {
	start := p.cur()
	p.eat(token.KW_CLASS)
	name := p.eat(token.NAME).Lexeme
	typeParams := p.parseTypeParams()
	var bases []pyast.Expr
	var keywords []*pyast.Keyword
	if p.at(token.LPAREN) {
		p.advance()
		for !p.at(token.RPAREN) && !p.at(token.EOF) {
			if p.at(token.NAME) && p.peekAt(1).Kind == token.ASSIGN {
				kwTok := p.cur()
				kwName := p.advance().Lexeme
				p.advance() // =
				kw := &pyast.Keyword{Name: kwName, Value: p.parseExpr()}
				kw.Tok = kwTok
				keywords = append(keywords, kw)
			} else {
				bases = append(bases, p.parseExpr())
			}
			if p.at(token.COMMA) {
				p.advance()
			} else {
				break
			}
		}
		p.eat(token.RPAREN)
	}
	p.eat(token.COLON)
	body := p.parseBlock()
	cd := &pyast.ClassDef{Name: name, TypeParams: typeParams, Bases: bases, Keywords: keywords, Body: body, Decorators: decorators}
	cd.Tok = start
	cd.Rng = rangeFrom(start, p.lastConsumed())
	return cd
}

// parseBlock parses `: NEWLINE INDENT stmt+ DEDENT` or the single-line
// `: stmt` form.
func (p *Parser) parseBlock() []pyast.Stmt {
	if !p.at(token.NEWLINE) {
		var stmts []pyast.Stmt
		for {
			s := p.parseSimpleStatement()
			if s != nil {
				stmts = append(stmts, s)
			}
			if p.at(token.SEMI) {
				p.advance()
				continue
			}
			break
		}
		if p.at(token.NEWLINE) {
			p.advance()
		}
		return stmts
	}
	p.advance() // NEWLINE
	if !p.at(token.INDENT) {
		p.errorf("expected indented block")
		return nil
	}
	p.advance()
	var stmts []pyast.Stmt
	for !p.at(token.DEDENT) && !p.at(token.EOF) {
		for _, s := range p.parseStatementGuarded() {
			if s != nil {
				stmts = append(stmts, s)
			}
		}
		p.skipNewlines()
	}
	if p.at(token.DEDENT) {
		p.advance()
	}
	return stmts
}

func (p *Parser) parseIf() pyast.Stmt {
	start := p.cur()
	p.eat(token.KW_IF)
	test := p.parseNamedExprOrExpr()
	p.eat(token.COLON)
	body := p.parseBlock()
	stmt := &pyast.If{Test: test, Body: body}
	stmt.Tok = start
	if p.at(token.KW_ELIF) {
		elif := p.parseElif()
		stmt.Orelse = []pyast.Stmt{elif}
	} else if p.at(token.KW_ELSE) {
		p.advance()
		p.eat(token.COLON)
		stmt.Orelse = p.parseBlock()
	}
	stmt.Rng = rangeFrom(start, p.lastConsumed())
	return stmt
}

func (p *Parser) parseElif() pyast.Stmt {
	start := p.cur()
	p.eat(token.KW_ELIF)
	test := p.parseNamedExprOrExpr()
	p.eat(token.COLON)
	body := p.parseBlock()
	stmt := &pyast.If{Test: test, Body: body}
	stmt.Tok = start
	if p.at(token.KW_ELIF) {
		stmt.Orelse = []pyast.Stmt{p.parseElif()}
	} else if p.at(token.KW_ELSE) {
		p.advance()
		p.eat(token.COLON)
		stmt.Orelse = p.parseBlock()
	}
	stmt.Rng = rangeFrom(start, p.lastConsumed())
	return stmt
}

func (p *Parser) parseWhile() pyast.Stmt {
	start := p.cur()
	p.eat(token.KW_WHILE)
	test := p.parseNamedExprOrExpr()
	p.eat(token.COLON)
	body := p.parseBlock()
	w := &pyast.While{Test: test, Body: body}
	w.Tok = start
	if p.at(token.KW_ELSE) {
		p.advance()
		p.eat(token.COLON)
		w.Orelse = p.parseBlock()
	}
	w.Rng = rangeFrom(start, p.lastConsumed())
	return w
}

func (p *Parser) parseFor(isAsync bool) pyast.Stmt {
	start := p.cur()
	p.eat(token.KW_FOR)
	target := p.parseTargetList()
	p.eat(token.KW_IN)
	iter := p.parseExprList()
	p.eat(token.COLON)
	body := p.parseBlock()
	f := &pyast.For{Target: target, Iter: iter, Body: body, IsAsync: isAsync}
	f.Tok = start
	if p.at(token.KW_ELSE) {
		p.advance()
		p.eat(token.COLON)
		f.Orelse = p.parseBlock()
	}
	f.Rng = rangeFrom(start, p.lastConsumed())
	return f
}

func (p *Parser) parseTry() pyast.Stmt {
	start := p.cur()
	p.eat(token.KW_TRY)
	p.eat(token.COLON)
	body := p.parseBlock()
	t := &pyast.Try{Body: body}
	t.Tok = start
	for p.at(token.KW_EXCEPT) {
		hTok := p.cur()
		p.advance()
		if p.at(token.STAR) {
			p.advance()
			t.IsStar = true
		}
		h := &pyast.ExceptHandler{}
		h.Tok = hTok
		if !p.at(token.COLON) {
			exc := p.parseExpr()
			h.Type = &exc
			if p.at(token.KW_AS) {
				p.advance()
				h.Name = p.eat(token.NAME).Lexeme
			}
		}
		p.eat(token.COLON)
		h.Body = p.parseBlock()
		h.Rng = rangeFrom(hTok, p.lastConsumed())
		t.Handlers = append(t.Handlers, h)
	}
	if p.at(token.KW_ELSE) {
		p.advance()
		p.eat(token.COLON)
		t.Orelse = p.parseBlock()
	}
	if p.at(token.KW_FINALLY) {
		p.advance()
		p.eat(token.COLON)
		t.Finalbody = p.parseBlock()
	}
	t.Rng = rangeFrom(start, p.lastConsumed())
	return t
}

func (p *Parser) parseWith(isAsync bool) pyast.Stmt {
	start := p.cur()
	p.eat(token.KW_WITH)
	hasParen := p.at(token.LPAREN) && p.withParenIsGrouping()
	if hasParen {
		p.advance()
	}
	var items []*pyast.WithItem
	for {
		itemTok := p.cur()
		ctx := p.parseExpr()
		item := &pyast.WithItem{ContextExpr: ctx}
		item.Tok = itemTok
		if p.at(token.KW_AS) {
			p.advance()
			item.OptionalVar = p.parseTarget()
		}
		item.Rng = rangeFrom(itemTok, p.lastConsumed())
		items = append(items, item)
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if hasParen {
		p.eat(token.RPAREN)
	}
	p.eat(token.COLON)
	body := p.parseBlock()
	w := &pyast.With{Items: items, Body: body, IsAsync: isAsync}
	w.Tok = start
	w.Rng = rangeFrom(start, p.lastConsumed())
	return w
}

// withParenIsGrouping distinguishes `with (a, b):` parenthesized
// multi-item lists (PEP 617) from `with (a):` which just parenthesizes a
// single context expression. A cheap lookahead: if a `KW_AS` or top-level
// comma appears before the matching `)`, treat the paren as grouping.
func (p *Parser) withParenIsGrouping() bool {
	depth := 0
	for i := p.pos; i < len(p.toks); i++ {
		switch p.toks[i].Kind {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
			if depth == 0 {
				return false
			}
		case token.COMMA, token.KW_AS:
			if depth == 1 {
				return true
			}
		case token.COLON:
			if depth == 0 {
				return false
			}
		}
	}
	return false
}

func (p *Parser) parseTypeAliasStmt() pyast.Stmt {
	start := p.cur()
	p.advance() // "type"
	name := p.eat(token.NAME).Lexeme
	typeParams := p.parseTypeParams()
	p.eat(token.ASSIGN)
	value := p.parseExpr()
	ta := &pyast.TypeAliasStmt{Name: name, TypeParams: typeParams, Value: value}
	ta.Tok = start
	ta.Rng = rangeFrom(start, p.lastConsumed())
	p.eatStatementEnd()
	return ta
}

func (p *Parser) eatStatementEnd() {
	if p.at(token.NEWLINE) {
		p.advance()
	}
}
