package usedef

import (
	"github.com/tycore/tycore/internal/pyast"
	"github.com/tycore/tycore/internal/semindex"
)

// constraintFromTest recognizes these narrowing-predicate shapes: a single
// `is` / `is not` / `==` / `!=` comparison whose left side is a name (any
// right-hand operand), `isinstance(x, ...)`, a bare name, and `not` applied
// to any of these. It returns the constraint id to apply on
// the then-branch and on the else-branch, and which symbol they narrow.
//
// Any test shape not recognized here still affects control flow correctly
// (the join still merges both branches) — it just contributes no narrowing
// constraint, which is conservative rather than wrong.
func constraintFromTest(b *builder, test pyast.Expr) (thenID, elseID ConstraintID, sym semindex.SymbolID, ok bool) {
	name, ok2 := narrowedName(test)
	if !ok2 {
		return 0, 0, 0, false
	}
	s, ok3 := b.symbolOf(name)
	if !ok3 {
		return 0, 0, 0, false
	}
	thenID = b.addConstraint(Constraint{Expr: test, Negated: false})
	elseID = b.addConstraint(Constraint{Expr: test, Negated: true})
	return thenID, elseID, s, true
}

// narrowedName extracts the single Name a recognized narrowing test
// predicates on.
func narrowedName(test pyast.Expr) (string, bool) {
	switch t := test.(type) {
	case *pyast.Compare:
		// `x is y`, `x is not y`, `x == y`, `x != y` for any single right operand.
		if len(t.Ops) != 1 || len(t.Comparators) != 1 {
			return "", false
		}
		if n, ok := t.Left.(*pyast.Name); ok {
			switch t.Ops[0] {
			case "is", "is not", "==", "!=":
				return n.Id, true
			}
		}
		return "", false
	case *pyast.Call:
		// `isinstance(x, T)`.
		if fn, ok := t.Func.(*pyast.Name); ok && fn.Id == "isinstance" && len(t.Args) >= 1 {
			if n, ok := t.Args[0].(*pyast.Name); ok {
				return n.Id, true
			}
		}
		return "", false
	case *pyast.Name:
		// bare `if x:` narrows truthiness of x itself.
		return t.Id, true
	case *pyast.UnaryOp:
		if t.Op == "not" {
			return narrowedName(t.Operand)
		}
		return "", false
	}
	return "", false
}
