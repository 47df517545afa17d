// Package pyparse is a hand-rolled, error-resilient recursive-descent
// parser for Python, producing internal/pyast trees. It plays the role
// spec.md §1 calls "the Python lexer/parser itself... consumed as a
// library" — the retrieval pack has no ready-made Go Python-AST library, so
// it is built here in the teacher's own lexer/parser idiom
// (internal/lexer + internal/parser's Pratt-style expression parser)
// rather than imported.
//
// Error resilience (spec.md §7.2): a syntax error never aborts the parse.
// errorf appends a SyntaxError and parsing continues from the current
// token; a panic inside one statement is recovered and the parser
// synchronizes to the next statement boundary (see sync), so every call
// always returns a usable (if partial) *pyast.Module.
package pyparse

import (
	"fmt"

	"github.com/tycore/tycore/internal/pyast"
	"github.com/tycore/tycore/internal/pylex"
	"github.com/tycore/tycore/internal/token"
)

// SyntaxError is one parse-time diagnostic, surfaced to the caller as data
// per spec.md §7 ("Errors are surfaced as diagnostics").
type SyntaxError struct {
	Message string
	Tok     token.Token
}

func (e SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Tok.Line, e.Tok.Column, e.Message)
}

// Parsed is the result of parsing one file: a root AST plus the error list
// spec.md §3 ("Parsed module") says the parser yields alongside the tree.
type Parsed struct {
	Module *pyast.Module
	Errors []SyntaxError
}

type Parser struct {
	path   string
	toks   []token.Token
	pos    int
	errors []SyntaxError
}

// Parse tokenizes and parses source text from path into a Parsed module.
func Parse(path, source string) *Parsed {
	lx := pylex.New(source)
	toks := lx.Tokenize()
	p := &Parser{path: path, toks: toks}
	for _, msg := range lx.Errors {
		p.errors = append(p.errors, SyntaxError{Message: msg, Tok: p.cur()})
	}
	mod := p.parseModule()
	return &Parsed{Module: mod, Errors: p.errors}
}

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) peekAt(offset int) token.Token {
	i := p.pos + offset
	if i >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[i]
}

func (p *Parser) at(k token.Kind) bool { return p.cur().Kind == k }

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

// eat consumes the current token if it matches k, else records a
// synchronizable error and returns the (wrong) current token without
// advancing, so callers that can tolerate a missing token keep making
// progress.
func (p *Parser) eat(k token.Kind) token.Token {
	if p.at(k) {
		return p.advance()
	}
	p.errorf("expected %s, got %s %q", k, p.cur().Kind, p.cur().Lexeme)
	return p.cur()
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.errors = append(p.errors, SyntaxError{Message: fmt.Sprintf(format, args...), Tok: p.cur()})
}

// sync advances past tokens until a statement boundary (NEWLINE or DEDENT)
// or EOF, the recovery strategy spec.md §7.2 requires so one bad statement
// doesn't poison the rest of the file.
func (p *Parser) sync() {
	for !p.at(token.NEWLINE) && !p.at(token.DEDENT) && !p.at(token.EOF) {
		p.advance()
	}
	if p.at(token.NEWLINE) {
		p.advance()
	}
}

func (p *Parser) skipNewlines() {
	for p.at(token.NEWLINE) {
		p.advance()
	}
}

func rangeFrom(start token.Token, end token.Token) pyast.Range {
	return pyast.Range{Start: start.Offset, End: end.End()}
}

func (p *Parser) parseModule() *pyast.Module {
	start := p.cur()
	mod := &pyast.Module{Path: p.path}
	mod.Tok = start
	p.skipNewlines()
	for !p.at(token.EOF) {
		for _, stmt := range p.parseStatementGuarded() {
			if stmt != nil {
				mod.Body = append(mod.Body, stmt)
			}
		}
		p.skipNewlines()
	}
	mod.Rng = pyast.Range{Start: 0, End: p.cur().Offset}
	return mod
}

// parseStatementGuarded wraps parseStatement with panic recovery: an
// internal invariant failure inside one statement must not corrupt the
// rest of the file (spec.md §7.6, "internal invariant failure... unwinds
// the current query only").
func (p *Parser) parseStatementGuarded() (stmts []pyast.Stmt) {
	startPos := p.pos
	defer func() {
		if r := recover(); r != nil {
			p.errorf("internal parser error: %v", r)
			if p.pos == startPos {
				p.advance()
			}
			p.sync()
			stmts = nil
		}
	}()
	return p.parseStatement()
}
