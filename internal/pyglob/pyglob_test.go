package pyglob_test

import (
	"testing"

	"github.com/tycore/tycore/internal/pyglob"
)

func mustCompile(t *testing.T, pattern string) *pyglob.Pattern {
	t.Helper()
	p, err := pyglob.Compile(pattern)
	if err != nil {
		t.Fatalf("Compile(%q): %v", pattern, err)
	}
	return p
}

func TestStarMatchesWithinComponent(t *testing.T) {
	p := mustCompile(t, "*.py")
	if !p.Match("foo.py") {
		t.Fatal("expected *.py to match foo.py")
	}
	if p.Match("sub/foo.py") {
		t.Fatal("* must not cross a path separator")
	}
}

func TestDoubleStarCrossesSeparators(t *testing.T) {
	p := mustCompile(t, "**/test_*.py")
	if !p.Match("test_foo.py") {
		t.Fatal("** must also match zero components")
	}
	if !p.Match("a/b/test_foo.py") {
		t.Fatal("** must cross multiple separators")
	}
}

func TestQuestionMarkMatchesOneRune(t *testing.T) {
	p := mustCompile(t, "file?.py")
	if !p.Match("file1.py") || p.Match("file12.py") {
		t.Fatal("? must match exactly one rune")
	}
}

func TestCharacterClass(t *testing.T) {
	p := mustCompile(t, "[a-c].py")
	if !p.Match("a.py") || !p.Match("c.py") || p.Match("d.py") {
		t.Fatal("[a-c] must match only a, b, c")
	}
}

func TestNegatedCharacterClass(t *testing.T) {
	p := mustCompile(t, "[!a-c].py")
	if p.Match("a.py") || !p.Match("d.py") {
		t.Fatal("[!a-c] must match anything except a, b, c")
	}
}

func TestEscapeLiteral(t *testing.T) {
	p := mustCompile(t, `\*.py`)
	if !p.Match("*.py") {
		t.Fatal(`\* must match a literal asterisk`)
	}
}

func TestRejectsEscapingSeparator(t *testing.T) {
	if _, err := pyglob.Compile(`a\/b`); err == nil {
		t.Fatal("escaping / must be rejected")
	}
	if _, err := pyglob.Compile(`a\\b`); err == nil {
		t.Fatal(`escaping \ must be rejected`)
	}
}

func TestRejectsDotDotComponent(t *testing.T) {
	if _, err := pyglob.Compile("../foo"); err == nil {
		t.Fatal(".. as a path component must be rejected")
	}
}

func TestRejectsThreeOrMoreStars(t *testing.T) {
	if _, err := pyglob.Compile("a***b"); err == nil {
		t.Fatal("three or more consecutive stars must be rejected")
	}
}

func TestRejectsDoubleStarWithoutSeparator(t *testing.T) {
	if _, err := pyglob.Compile("**foo"); err == nil {
		t.Fatal("**literal without a separator must be rejected")
	}
}

func TestNegatedPatternParsed(t *testing.T) {
	p := mustCompile(t, "!vendor/**")
	if !p.Negates() {
		t.Fatal("a leading ! must mark the pattern as negating")
	}
	if !p.Match("vendor/pkg/mod.py") {
		t.Fatal("the ! prefix itself is not part of the path grammar")
	}
}

func TestMatchAnyLastMatchWins(t *testing.T) {
	exclude := mustCompile(t, "**/*_test.py")
	reinclude := mustCompile(t, "!**/important_test.py")
	patterns := []*pyglob.Pattern{exclude, reinclude}

	if !pyglob.MatchAny(patterns, "pkg/foo_test.py") {
		t.Fatal("foo_test.py must be excluded")
	}
	if pyglob.MatchAny(patterns, "pkg/important_test.py") {
		t.Fatal("important_test.py must be re-included by the later negated pattern")
	}
}
