package pylex_test

import (
	"testing"

	"github.com/tycore/tycore/internal/pylex"
	"github.com/tycore/tycore/internal/token"
)

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestTokenizeSimple(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  []token.Kind
	}{
		{"assignment", "x = 1\n", []token.Kind{token.NAME, token.ASSIGN, token.INT, token.NEWLINE, token.EOF}},
		{"compare_chain", "a < b <= c\n", []token.Kind{
			token.NAME, token.LT, token.NAME, token.LE, token.NAME, token.NEWLINE, token.EOF,
		}},
		{"walrus", "if (n := len(a)) > 0:\n    pass\n", nil},
		{"fstring_prefix", `f"hi {name}"` + "\n", []token.Kind{token.STRING, token.NEWLINE, token.EOF}},
		{"augmented_assigns", "x //= 2\ny **= 3\nz >>= 1\n", nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			lx := pylex.New(tc.input)
			toks := lx.Tokenize()
			if len(lx.Errors) > 0 {
				t.Fatalf("unexpected lexer errors: %v", lx.Errors)
			}
			if tc.want != nil {
				got := kinds(toks)
				if len(got) != len(tc.want) {
					t.Fatalf("token count = %d, want %d (%v)", len(got), len(tc.want), got)
				}
				for i, k := range tc.want {
					if got[i] != k {
						t.Errorf("token %d = %s, want %s", i, got[i], k)
					}
				}
			}
		})
	}
}

func TestIndentDedent(t *testing.T) {
	input := "if x:\n    y = 1\n    if z:\n        w = 2\nq = 3\n"
	lx := pylex.New(input)
	toks := lx.Tokenize()
	if len(lx.Errors) > 0 {
		t.Fatalf("unexpected lexer errors: %v", lx.Errors)
	}
	indents, dedents := 0, 0
	for _, tok := range toks {
		switch tok.Kind {
		case token.INDENT:
			indents++
		case token.DEDENT:
			dedents++
		}
	}
	if indents != 2 || dedents != 2 {
		t.Fatalf("indents=%d dedents=%d, want 2/2", indents, dedents)
	}
}

func TestBlankAndCommentLinesDoNotAffectIndent(t *testing.T) {
	input := "if x:\n    y = 1\n\n    # a comment\n    z = 2\nw = 3\n"
	lx := pylex.New(input)
	toks := lx.Tokenize()
	if len(lx.Errors) > 0 {
		t.Fatalf("unexpected lexer errors: %v", lx.Errors)
	}
	indents, dedents := 0, 0
	for _, tok := range toks {
		switch tok.Kind {
		case token.INDENT:
			indents++
		case token.DEDENT:
			dedents++
		}
	}
	if indents != 1 || dedents != 1 {
		t.Fatalf("indents=%d dedents=%d, want 1/1", indents, dedents)
	}
}

func TestNewlineElidedInsideBrackets(t *testing.T) {
	input := "x = [\n    1,\n    2,\n]\n"
	lx := pylex.New(input)
	toks := lx.Tokenize()
	if len(lx.Errors) > 0 {
		t.Fatalf("unexpected lexer errors: %v", lx.Errors)
	}
	newlines := 0
	for _, tok := range toks {
		if tok.Kind == token.NEWLINE {
			newlines++
		}
	}
	if newlines != 1 {
		t.Fatalf("newlines = %d, want 1 (only the trailing one after ])", newlines)
	}
}

func TestNumberLiterals(t *testing.T) {
	lx := pylex.New("1_000 3.14 1e10\n")
	toks := lx.Tokenize()
	if toks[0].Kind != token.INT || toks[0].Literal.(int64) != 1000 {
		t.Errorf("want INT 1000, got %v", toks[0])
	}
	if toks[1].Kind != token.FLOAT {
		t.Errorf("want FLOAT, got %v", toks[1])
	}
	if toks[2].Kind != token.FLOAT {
		t.Errorf("want FLOAT for exponent form, got %v", toks[2])
	}
}

func TestIllegalCharacterReported(t *testing.T) {
	lx := pylex.New("x = $\n")
	lx.Tokenize()
	if len(lx.Errors) == 0 {
		t.Fatal("expected a lexer error for '$'")
	}
}
