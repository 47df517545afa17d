package pyparse

import (
	"github.com/tycore/tycore/internal/pyast"
	"github.com/tycore/tycore/internal/token"
)

// parseSimpleStatementLine parses one or more semicolon-separated simple
// statements up to the terminating NEWLINE, returning all of them — the
// caller (parseStatement) always flattens whatever this returns into a
// statement list.
func (p *Parser) parseSimpleStatementLine() []pyast.Stmt {
	stmts := []pyast.Stmt{p.parseSimpleStatement()}
	for p.at(token.SEMI) {
		p.advance()
		if p.at(token.NEWLINE) || p.at(token.EOF) {
			break
		}
		stmts = append(stmts, p.parseSimpleStatement())
	}
	p.eatStatementEnd()
	return stmts
}

func (p *Parser) parseSimpleStatement() pyast.Stmt {
	start := p.cur()
	switch start.Kind {
	case token.KW_PASS:
		p.advance()
		s := &pyast.Pass{}
		s.Tok = start
		s.Rng = rangeFrom(start, start)
		return s
	case token.KW_BREAK:
		p.advance()
		s := &pyast.Break{}
		s.Tok = start
		s.Rng = rangeFrom(start, start)
		return s
	case token.KW_CONTINUE:
		p.advance()
		s := &pyast.Continue{}
		s.Tok = start
		s.Rng = rangeFrom(start, start)
		return s
	case token.KW_RETURN:
		p.advance()
		s := &pyast.Return{}
		s.Tok = start
		if !p.atStmtEnd() {
			s.Value = p.parseExprList()
		}
		s.Rng = rangeFrom(start, p.lastConsumed())
		return s
	case token.KW_DEL:
		p.advance()
		s := &pyast.Delete{}
		s.Tok = start
		s.Targets = append(s.Targets, p.parseTarget())
		for p.at(token.COMMA) {
			p.advance()
			if p.atStmtEnd() {
				break
			}
			s.Targets = append(s.Targets, p.parseTarget())
		}
		s.Rng = rangeFrom(start, p.lastConsumed())
		return s
	case token.KW_GLOBAL:
		p.advance()
		s := &pyast.Global{}
		s.Tok = start
		s.Names = p.parseNameList()
		s.Rng = rangeFrom(start, p.lastConsumed())
		return s
	case token.KW_NONLOCAL:
		p.advance()
		s := &pyast.Nonlocal{}
		s.Tok = start
		s.Names = p.parseNameList()
		s.Rng = rangeFrom(start, p.lastConsumed())
		return s
	case token.KW_RAISE:
		p.advance()
		s := &pyast.Raise{}
		s.Tok = start
		if !p.atStmtEnd() {
			s.Exc = p.parseExpr()
			if p.at(token.KW_FROM) {
				p.advance()
				s.Cause = p.parseExpr()
			}
		}
		s.Rng = rangeFrom(start, p.lastConsumed())
		return s
	case token.KW_ASSERT:
		p.advance()
		s := &pyast.Assert{}
		s.Tok = start
		s.Test = p.parseExpr()
		if p.at(token.COMMA) {
			p.advance()
			s.Msg = p.parseExpr()
		}
		s.Rng = rangeFrom(start, p.lastConsumed())
		return s
	case token.KW_IMPORT:
		return p.parseImport()
	case token.KW_FROM:
		return p.parseImportFrom()
	default:
		return p.parseExprOrAssignStatement()
	}
}

func (p *Parser) atStmtEnd() bool {
	return p.at(token.NEWLINE) || p.at(token.SEMI) || p.at(token.EOF)
}

func (p *Parser) parseNameList() []string {
	var names []string
	names = append(names, p.eat(token.NAME).Lexeme)
	for p.at(token.COMMA) {
		p.advance()
		names = append(names, p.eat(token.NAME).Lexeme)
	}
	return names
}

func (p *Parser) parseImport() pyast.Stmt {
	start := p.cur()
	p.advance()
	s := &pyast.Import{}
	s.Tok = start
	s.Names = append(s.Names, p.parseDottedAlias())
	for p.at(token.COMMA) {
		p.advance()
		s.Names = append(s.Names, p.parseDottedAlias())
	}
	s.Rng = rangeFrom(start, p.lastConsumed())
	return s
}

func (p *Parser) parseDottedAlias() *pyast.ImportAlias {
	tok := p.cur()
	name := p.eat(token.NAME).Lexeme
	for p.at(token.DOT) {
		p.advance()
		name += "." + p.eat(token.NAME).Lexeme
	}
	alias := &pyast.ImportAlias{Name: name}
	alias.Tok = tok
	if p.at(token.KW_AS) {
		p.advance()
		alias.AsName = p.eat(token.NAME).Lexeme
	}
	alias.Rng = rangeFrom(tok, p.lastConsumed())
	return alias
}

func (p *Parser) parseImportFrom() pyast.Stmt {
	start := p.cur()
	p.advance() // from
	s := &pyast.ImportFrom{}
	s.Tok = start
	for p.at(token.DOT) || p.at(token.ELLIPSIS) {
		if p.at(token.ELLIPSIS) {
			s.Level += 3
		} else {
			s.Level++
		}
		p.advance()
	}
	if p.at(token.NAME) {
		name := p.advance().Lexeme
		for p.at(token.DOT) {
			p.advance()
			name += "." + p.eat(token.NAME).Lexeme
		}
		s.Module = name
	}
	p.eat(token.KW_IMPORT)
	if p.at(token.STAR) {
		p.advance()
		s.IsStar = true
		s.Rng = rangeFrom(start, p.lastConsumed())
		return s
	}
	hasParen := p.at(token.LPAREN)
	if hasParen {
		p.advance()
	}
	for {
		if p.at(token.RPAREN) || p.atStmtEnd() {
			break
		}
		nameTok := p.cur()
		name := p.eat(token.NAME).Lexeme
		alias := &pyast.ImportAlias{Name: name}
		alias.Tok = nameTok
		if p.at(token.KW_AS) {
			p.advance()
			alias.AsName = p.eat(token.NAME).Lexeme
		}
		alias.Rng = rangeFrom(nameTok, p.lastConsumed())
		s.Names = append(s.Names, alias)
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if hasParen {
		p.eat(token.RPAREN)
	}
	s.Rng = rangeFrom(start, p.lastConsumed())
	return s
}

// parseExprOrAssignStatement handles plain expression statements, `=`
// assignment chains, annotated assignments, and augmented assignments —
// all of which start by parsing an expression list and then branching on
// what follows.
func (p *Parser) parseExprOrAssignStatement() pyast.Stmt {
	start := p.cur()
	first := p.parseExprListNoExpand()

	if p.at(token.COLON) {
		p.advance()
		ann := p.parseExpr()
		s := &pyast.AnnAssign{Target: toStoreCtx(first), Annotation: ann}
		s.Tok = start
		if p.at(token.ASSIGN) {
			p.advance()
			s.Value = p.parseExprList()
		}
		s.Rng = rangeFrom(start, p.lastConsumed())
		return s
	}

	if augOp, ok := augAssignOp(p.cur().Kind); ok {
		p.advance()
		s := &pyast.AugAssign{Target: toStoreCtx(first), Op: augOp, Value: p.parseExprList()}
		s.Tok = start
		s.Rng = rangeFrom(start, p.lastConsumed())
		return s
	}

	if p.at(token.ASSIGN) {
		targets := []pyast.Expr{toStoreCtx(first)}
		var value pyast.Expr
		for p.at(token.ASSIGN) {
			p.advance()
			value = p.parseExprListNoExpand()
			if p.at(token.ASSIGN) {
				targets = append(targets, toStoreCtx(value))
			}
		}
		s := &pyast.Assign{Targets: targets, Value: value}
		s.Tok = start
		s.Rng = rangeFrom(start, p.lastConsumed())
		return s
	}

	s := &pyast.ExprStmt{Value: first}
	s.Tok = start
	s.Rng = rangeFrom(start, p.lastConsumed())
	return s
}

func augAssignOp(k token.Kind) (string, bool) {
	switch k {
	case token.PLUS_ASSIGN:
		return "+", true
	case token.MINUS_ASSIGN:
		return "-", true
	case token.STAR_ASSIGN:
		return "*", true
	case token.SLASH_ASSIGN:
		return "/", true
	case token.DOUBLESLASH_ASSIGN:
		return "//", true
	case token.PERCENT_ASSIGN:
		return "%", true
	case token.DOUBLESTAR_ASSIGN:
		return "**", true
	case token.AMP_ASSIGN:
		return "&", true
	case token.PIPE_ASSIGN:
		return "|", true
	case token.CARET_ASSIGN:
		return "^", true
	case token.LSHIFT_ASSIGN:
		return "<<", true
	case token.RSHIFT_ASSIGN:
		return ">>", true
	case token.AT_ASSIGN:
		return "@", true
	}
	return "", false
}

// toStoreCtx rewrites the Ctx field of a target expression tree to
// CtxStore in place, the way CPython's compiler retroactively fixes up
// assignment-target context after parsing the same grammar as a load
// expression.
func toStoreCtx(e pyast.Expr) pyast.Expr {
	switch t := e.(type) {
	case *pyast.Name:
		t.Ctx = pyast.CtxStore
	case *pyast.Attribute:
		t.Ctx = pyast.CtxStore
	case *pyast.Subscript:
		t.Ctx = pyast.CtxStore
	case *pyast.TupleExpr:
		t.Ctx = pyast.CtxStore
		for i := range t.Elts {
			t.Elts[i] = toStoreCtx(t.Elts[i])
		}
	case *pyast.List:
		t.Ctx = pyast.CtxStore
		for i := range t.Elts {
			t.Elts[i] = toStoreCtx(t.Elts[i])
		}
	case *pyast.Starred:
		t.Ctx = pyast.CtxStore
		t.Value = toStoreCtx(t.Value)
	}
	return e
}

func (p *Parser) parseTarget() pyast.Expr {
	return toStoreCtx(p.parseExpr())
}

// parseTargetList parses a for-loop or comprehension target list. Each
// target is parsed below the comparison tier so the `in` that follows it is
// not consumed as a comparison operator.
func (p *Parser) parseTargetList() pyast.Expr {
	first := toStoreCtx(p.parseBitOr())
	if !p.at(token.COMMA) {
		return first
	}
	elts := []pyast.Expr{first}
	tok := first.GetToken()
	for p.at(token.COMMA) {
		p.advance()
		if p.at(token.KW_IN) {
			break
		}
		elts = append(elts, toStoreCtx(p.parseBitOr()))
	}
	tup := &pyast.TupleExpr{Elts: elts, Ctx: pyast.CtxStore}
	tup.Tok = tok
	tup.Rng = rangeFrom(tok, p.lastConsumed())
	return tup
}
