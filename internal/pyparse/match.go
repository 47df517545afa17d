package pyparse

import (
	"github.com/tycore/tycore/internal/pyast"
	"github.com/tycore/tycore/internal/token"
)

// parseMatch parses the PEP 634 `match subject: case pattern: body` compound
// statement. Patterns are only modeled precisely enough to recover capture
// names (see pyast.Pattern's doc comment) — the core never evaluates a
// match statement, only indexes the names it binds.
func (p *Parser) parseMatch() pyast.Stmt {
	start := p.advance() // "match" (soft keyword, lexed as NAME)
	subject := p.parseSubjectExprList()
	p.eat(token.COLON)
	p.eat(token.NEWLINE)
	p.eat(token.INDENT)
	m := &pyast.Match{Subject: subject}
	m.Tok = start
	for p.at(token.NAME) && p.cur().Lexeme == "case" {
		m.Cases = append(m.Cases, p.parseCase())
	}
	if p.at(token.DEDENT) {
		p.advance()
	}
	m.Rng = rangeFrom(start, p.lastConsumed())
	return m
}

// parseSubjectExprList parses the match subject, which like a for-loop
// iterable allows a bare comma-separated tuple without parentheses.
func (p *Parser) parseSubjectExprList() pyast.Expr {
	first := p.parseExprOrStar()
	if !p.at(token.COMMA) {
		return first
	}
	elts := []pyast.Expr{first}
	tok := first.GetToken()
	for p.at(token.COMMA) {
		p.advance()
		if p.at(token.COLON) {
			break
		}
		elts = append(elts, p.parseExprOrStar())
	}
	tup := &pyast.TupleExpr{Elts: elts}
	tup.Tok = tok
	tup.Rng = rangeFrom(tok, p.lastConsumed())
	return tup
}

func (p *Parser) parseCase() *pyast.MatchCase {
	start := p.advance() // "case"
	pat := p.parseOpenPatterns()
	mc := &pyast.MatchCase{Pattern: pat}
	mc.Tok = start
	if p.at(token.KW_IF) {
		p.advance()
		mc.Guard = p.parseNamedExprOrExpr()
	}
	p.eat(token.COLON)
	mc.Body = p.parseBlock()
	mc.Rng = rangeFrom(start, p.lastConsumed())
	return mc
}

// parseOpenPatterns handles `case a, b:` — a bare comma-separated sequence
// pattern with no enclosing brackets — falling through to a single pattern
// otherwise.
func (p *Parser) parseOpenPatterns() pyast.Pattern {
	tok := p.cur()
	first := p.parsePattern()
	if !p.at(token.COMMA) {
		return first
	}
	elts := []pyast.Pattern{first}
	for p.at(token.COMMA) {
		p.advance()
		if p.at(token.COLON) || p.at(token.KW_IF) {
			break
		}
		elts = append(elts, p.parsePattern())
	}
	seq := &pyast.PatternValue{Kind: "sequence", SubNodes: elts}
	seq.Tok = tok
	seq.Rng = rangeFrom(tok, p.lastConsumed())
	return seq
}

// parsePattern is the `as_pattern` level: an or-pattern optionally bound to
// a capture name with `as`.
func (p *Parser) parsePattern() pyast.Pattern {
	start := p.cur()
	pat := p.parseOrPattern()
	if p.at(token.KW_AS) {
		p.advance()
		name := p.eat(token.NAME).Lexeme
		c := &pyast.PatternCapture{Name: name, SubPattern: pat}
		c.Tok = start
		c.Rng = rangeFrom(start, p.lastConsumed())
		return c
	}
	return pat
}

func (p *Parser) parseOrPattern() pyast.Pattern {
	start := p.cur()
	first := p.parseClosedPattern()
	if !p.at(token.PIPE) {
		return first
	}
	alts := []pyast.Pattern{first}
	for p.at(token.PIPE) {
		p.advance()
		alts = append(alts, p.parseClosedPattern())
	}
	or := &pyast.PatternValue{Kind: "or", SubNodes: alts}
	or.Tok = start
	or.Rng = rangeFrom(start, p.lastConsumed())
	return or
}

func (p *Parser) parseClosedPattern() pyast.Pattern {
	tok := p.cur()
	switch {
	case p.at(token.STAR):
		p.advance()
		name := ""
		if p.at(token.NAME) {
			n := p.advance().Lexeme
			if n != "_" {
				name = n
			}
		}
		star := &pyast.PatternValue{Kind: "star", StarName: name}
		star.Tok = tok
		star.Rng = rangeFrom(tok, p.lastConsumed())
		return star
	case p.at(token.NAME) && p.cur().Lexeme == "_" && !isLookaheadDottedOrCall(p, 1):
		p.advance()
		c := &pyast.PatternCapture{}
		c.Tok = tok
		c.Rng = rangeFrom(tok, tok)
		return c
	case p.at(token.NAME):
		return p.parseNameLedPattern()
	case p.at(token.LPAREN):
		return p.parseGroupOrSequencePattern(token.LPAREN, token.RPAREN)
	case p.at(token.LBRACKET):
		return p.parseGroupOrSequencePattern(token.LBRACKET, token.RBRACKET)
	case p.at(token.LBRACE):
		return p.parseMappingPattern()
	case p.at(token.MINUS), p.at(token.INT), p.at(token.FLOAT), p.at(token.STRING),
		p.at(token.KW_NONE), p.at(token.KW_TRUE), p.at(token.KW_FALSE):
		val := p.parseLiteralPatternExpr()
		lit := &pyast.PatternValue{Kind: "literal", ClassExpr: val}
		lit.Tok = tok
		lit.Rng = rangeFrom(tok, p.lastConsumed())
		return lit
	default:
		p.errorf("unexpected token %s in pattern", tok.Kind)
		p.advance()
		bad := &pyast.PatternCapture{}
		bad.Tok = tok
		bad.Rng = rangeFrom(tok, tok)
		return bad
	}
}

func isLookaheadDottedOrCall(p *Parser, offset int) bool {
	k := p.peekAt(offset).Kind
	return k == token.DOT || k == token.LPAREN
}

// parseNameLedPattern disambiguates a bare capture name from a value
// pattern (dotted attribute, e.g. `Color.RED`) and a class pattern
// (`Point(x=0, y=0)`).
func (p *Parser) parseNameLedPattern() pyast.Pattern {
	tok := p.cur()
	name := p.advance().Lexeme
	expr := pyast.Expr(nameExpr(tok, name))
	for p.at(token.DOT) {
		dotTok := p.advance()
		attr := p.eat(token.NAME).Lexeme
		a := &pyast.Attribute{Value: expr, Attr: attr}
		a.Tok = dotTok
		a.Rng = rangeFrom(tok, p.lastConsumed())
		expr = a
	}
	if p.at(token.LPAREN) {
		return p.parseClassPatternArgs(expr, tok)
	}
	if _, isDotted := expr.(*pyast.Attribute); isDotted {
		v := &pyast.PatternValue{Kind: "literal", ClassExpr: expr}
		v.Tok = tok
		v.Rng = rangeFrom(tok, p.lastConsumed())
		return v
	}
	c := &pyast.PatternCapture{Name: name}
	c.Tok = tok
	c.Rng = rangeFrom(tok, tok)
	return c
}

func nameExpr(tok token.Token, name string) *pyast.Name {
	n := &pyast.Name{Id: name}
	n.Tok = tok
	n.Rng = rangeFrom(tok, tok)
	return n
}

func (p *Parser) parseClassPatternArgs(classExpr pyast.Expr, start token.Token) pyast.Pattern {
	p.advance() // (
	cls := &pyast.PatternValue{Kind: "class", ClassExpr: classExpr}
	cls.Tok = start
	for !p.at(token.RPAREN) && !p.at(token.EOF) {
		if p.at(token.NAME) && p.peekAt(1).Kind == token.ASSIGN {
			p.advance()
			p.advance()
		}
		cls.SubNodes = append(cls.SubNodes, p.parsePattern())
		if p.at(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	p.eat(token.RPAREN)
	cls.Rng = rangeFrom(start, p.lastConsumed())
	return cls
}

// parseGroupOrSequencePattern parses `(pattern)` (a non-binding group, the
// inner pattern is returned as-is) or `(p, p, ...)` / `[p, p, ...]`
// (sequence patterns).
func (p *Parser) parseGroupOrSequencePattern(open, close token.Kind) pyast.Pattern {
	start := p.advance()
	if p.at(close) {
		p.advance()
		seq := &pyast.PatternValue{Kind: "sequence"}
		seq.Tok = start
		seq.Rng = rangeFrom(start, p.lastConsumed())
		return seq
	}
	first := p.parsePattern()
	if !p.at(token.COMMA) {
		p.eat(close)
		if open == token.LPAREN {
			return first
		}
		seq := &pyast.PatternValue{Kind: "sequence", SubNodes: []pyast.Pattern{first}}
		seq.Tok = start
		seq.Rng = rangeFrom(start, p.lastConsumed())
		return seq
	}
	elts := []pyast.Pattern{first}
	for p.at(token.COMMA) {
		p.advance()
		if p.at(close) {
			break
		}
		elts = append(elts, p.parsePattern())
	}
	p.eat(close)
	seq := &pyast.PatternValue{Kind: "sequence", SubNodes: elts}
	seq.Tok = start
	seq.Rng = rangeFrom(start, p.lastConsumed())
	return seq
}

func (p *Parser) parseMappingPattern() pyast.Pattern {
	start := p.advance() // {
	m := &pyast.PatternValue{Kind: "mapping"}
	m.Tok = start
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		if p.at(token.DOUBLESTAR) {
			p.advance()
			name := p.eat(token.NAME).Lexeme
			rest := &pyast.PatternCapture{Name: name}
			rest.Tok = start
			m.SubNodes = append(m.SubNodes, rest)
		} else {
			p.parseLiteralPatternExpr() // key, not bound
			p.eat(token.COLON)
			m.SubNodes = append(m.SubNodes, p.parsePattern())
		}
		if p.at(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	p.eat(token.RBRACE)
	m.Rng = rangeFrom(start, p.lastConsumed())
	return m
}

// parseLiteralPatternExpr parses the restricted literal/value grammar legal
// in pattern position (numbers, strings, None/True/False, negative numbers,
// dotted value references) by delegating to the general expression parser's
// unary/postfix tiers, which is a strict superset.
func (p *Parser) parseLiteralPatternExpr() pyast.Expr {
	return p.parseArith()
}
