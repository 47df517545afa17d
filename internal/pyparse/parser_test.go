package pyparse_test

import (
	"strings"
	"testing"

	"github.com/tycore/tycore/internal/pyast"
	"github.com/tycore/tycore/internal/pyparse"
)

func mustParseClean(t *testing.T, src string) *pyast.Module {
	t.Helper()
	parsed := pyparse.Parse("<test>", src)
	if len(parsed.Errors) > 0 {
		var msgs []string
		for _, e := range parsed.Errors {
			msgs = append(msgs, e.Error())
		}
		t.Fatalf("unexpected parse errors for %q:\n%s", src, strings.Join(msgs, "\n"))
	}
	return parsed.Module
}

func TestParseStatementShapes(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{"assignment", "x = 1\n"},
		{"chained_assignment", "a = b = 1\n"},
		{"annotated_assignment", "x: int = 1\n"},
		{"augmented_assignment", "x += 1\n"},
		{"all_compound_assign_ops", "a += 1\nb -= 1\nc *= 1\nd /= 1\ne //= 1\nf %= 1\ng **= 1\nh &= 1\ni |= 1\nj ^= 1\nk <<= 1\nl >>= 1\n"},
		{"semicolon_statements", "x = 1; y = 2; z = 3\n"},
		{"if_elif_else", "if a:\n    1\nelif b:\n    2\nelse:\n    3\n"},
		{"while_else", "while a:\n    1\nelse:\n    2\n"},
		{"for_loop", "for x in y:\n    pass\n"},
		{"for_tuple_target", "for k, v in items:\n    pass\n"},
		{"try_except_finally", "try:\n    1\nexcept ValueError as e:\n    2\nfinally:\n    3\n"},
		{"try_except_star", "try:\n    1\nexcept* ValueError:\n    2\n"},
		{"with_single", "with open('f') as fh:\n    pass\n"},
		{"with_grouped", "with (open('a') as a, open('b') as b):\n    pass\n"},
		{"function_def", "def f(x, y=1, *args, z, **kwargs) -> int:\n    return x + y\n"},
		{"function_generic", "def f[T](x: T) -> T:\n    return x\n"},
		{"positional_only", "def f(x, /, y, *, z):\n    pass\n"},
		{"class_def", "class C(Base, metaclass=Meta):\n    x = 1\n"},
		{"class_generic", "class C[T]:\n    pass\n"},
		{"decorated_function", "@decorator\ndef f():\n    pass\n"},
		{"decorated_async_function", "@decorator\nasync def f():\n    pass\n"},
		{"import_plain", "import os.path\n"},
		{"import_from", "from a.b import c as d, e\n"},
		{"import_from_relative", "from ..pkg import x\n"},
        {"import_star", "from pkg import *\n"},
		{"global_nonlocal", "def f():\n    global x\n    def g():\n        nonlocal x\n"},
		{"del_stmt", "del a, b\n"},
		{"raise_from", "raise ValueError('x') from err\n"},
		{"assert_msg", "assert x, 'message'\n"},
		{"type_alias", "type IntList = list[int]\n"},
		{"type_alias_generic", "type Pair[T] = tuple[T, T]\n"},
		{"async_for", "async def f():\n    async for x in y:\n        pass\n"},
		{"async_with", "async def f():\n    async with a as b:\n        pass\n"},
		{"match_literal", "match x:\n    case 1:\n        pass\n    case _:\n        pass\n"},
		{"match_capture", "match x:\n    case [a, b, *rest]:\n        pass\n"},
		{"match_class", "match p:\n    case Point(x=0, y=0):\n        pass\n"},
		{"match_or_guard", "match x:\n    case 1 | 2 if x > 0:\n        pass\n"},
		{"match_mapping", "match d:\n    case {'k': v, **rest}:\n        pass\n"},
		{"match_as", "match x:\n    case [a, b] as pair:\n        pass\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mod := mustParseClean(t, tc.input)
			if len(mod.Body) == 0 {
				t.Fatalf("expected at least one top-level statement")
			}
		})
	}
}

func TestSemicolonStatementsAreAllKept(t *testing.T) {
	mod := mustParseClean(t, "x = 1; y = 2; z = 3\n")
	if len(mod.Body) != 3 {
		t.Fatalf("got %d statements, want 3", len(mod.Body))
	}
}

func TestParseExpressionShapes(t *testing.T) {
	testCases := []string{
		"x = a + b * c - d / e\n",
		"x = a ** b ** c\n",
		"x = -a ** b\n",
		"x = not a and b or c\n",
		"x = a if b else c\n",
		"x = (y := compute())\n",
		"x = [i for i in range(10) if i % 2 == 0]\n",
		"x = {k: v for k, v in items}\n",
		"x = {i for i in range(10)}\n",
		"x = (i for i in range(10))\n",
		"x = lambda a, b=1: a + b\n",
		"x = a.b.c[1:2:3]\n",
		"x = f(1, 2, *args, key=1, **kwargs)\n",
		"x = (1, 2, 3)\n",
		"x = (1,)\n",
		"x = ()\n",
		"x = a is not b\n",
		"x = a not in b\n",
		"x = a < b <= c < d\n",
		"x = await something()\n",
		"x = yield a\n",
		"x = yield from gen()\n",
	}
	for _, src := range testCases {
		t.Run(src, func(t *testing.T) {
			mustParseClean(t, src)
		})
	}
}

func TestParseErrorResilienceRecoversAtNextStatement(t *testing.T) {
	src := "x = ]\ny = 1\n"
	parsed := pyparse.Parse("<test>", src)
	if len(parsed.Errors) == 0 {
		t.Fatal("expected a syntax error from the malformed first statement")
	}
	var sawY bool
	for _, stmt := range parsed.Module.Body {
		if assign, ok := stmt.(*pyast.Assign); ok {
			if name, ok := assign.Targets[0].(*pyast.Name); ok && name.Id == "y" {
				sawY = true
			}
		}
	}
	if !sawY {
		t.Fatal("parser did not recover and parse the statement following the error")
	}
}

func TestFunctionDefFields(t *testing.T) {
	mod := mustParseClean(t, "def f(x, y=1):\n    return x + y\n")
	fn, ok := mod.Body[0].(*pyast.FunctionDef)
	if !ok {
		t.Fatalf("expected *pyast.FunctionDef, got %T", mod.Body[0])
	}
	if fn.Name != "f" {
		t.Errorf("Name = %q, want f", fn.Name)
	}
	if len(fn.Params) != 2 {
		t.Fatalf("got %d params, want 2", len(fn.Params))
	}
	if fn.Params[0].Name != "x" || fn.Params[1].Name != "y" {
		t.Errorf("unexpected param names: %+v", fn.Params)
	}
	if fn.Params[1].Default == nil {
		t.Error("expected y's default value to be parsed")
	}
}

func TestMatchCaptureBindsNames(t *testing.T) {
	mod := mustParseClean(t, "match x:\n    case [a, b, *rest]:\n        pass\n")
	m, ok := mod.Body[0].(*pyast.Match)
	if !ok {
		t.Fatalf("expected *pyast.Match, got %T", mod.Body[0])
	}
	seq, ok := m.Cases[0].Pattern.(*pyast.PatternValue)
	if !ok || seq.Kind != "sequence" {
		t.Fatalf("expected a sequence pattern, got %#v", m.Cases[0].Pattern)
	}
	if len(seq.SubNodes) != 3 {
		t.Fatalf("expected 3 sub-patterns, got %d", len(seq.SubNodes))
	}
	if _, ok := seq.SubNodes[0].(*pyast.PatternCapture); !ok {
		t.Errorf("first element should be a capture pattern, got %T", seq.SubNodes[0])
	}
	star, ok := seq.SubNodes[2].(*pyast.PatternValue)
	if !ok || star.Kind != "star" || star.StarName != "rest" {
		t.Errorf("third element should be a star pattern binding rest, got %#v", seq.SubNodes[2])
	}
}
