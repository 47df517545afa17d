package constraints_test

import (
	"testing"

	"github.com/tycore/tycore/internal/constraints"
)

// rank is a toy TypeLike implementation for tests: a simple totally
// ordered lattice (0 = Never, 10 = object), enough to exercise the DNF
// algebra's laws without depending on internal/types.
type rank int

func (r rank) Union(other rank) rank {
	if r > other {
		return r
	}
	return other
}

func (r rank) Intersect(other rank) rank {
	if r < other {
		return r
	}
	return other
}

func (r rank) SubtypeOf(other rank) bool { return r <= other }

const (
	never  rank = 0
	object rank = 10
)

var dom = constraints.Domain[rank]{Bottom: never, Top: object}

func atom(lower rank, tv string, upper rank) constraints.AtomicConstraint[rank, string] {
	return constraints.AtomicConstraint[rank, string]{Lower: lower, TypeVar: tv, Upper: upper}
}

func oneClause(a constraints.AtomicConstraint[rank, string]) constraints.ConstraintSet[rank, string] {
	return constraints.FromClause(constraints.NewClause(a))
}

func TestUnionIdempotent(t *testing.T) {
	a := oneClause(atom(1, "T", 5))
	got := constraints.Union(a, a)
	if len(got.Clauses()) != 1 {
		t.Fatalf("union(a, a) must collapse to a single clause, got %d", len(got.Clauses()))
	}
}

func TestIntersectionIdempotent(t *testing.T) {
	a := oneClause(atom(1, "T", 5))
	got := constraints.Intersection(a, a)
	if len(got.Clauses()) != 1 {
		t.Fatalf("intersect(a, a) must collapse to a single clause, got %d", len(got.Clauses()))
	}
	c := got.Clauses()[0]
	at, ok := c.Get("T")
	if !ok || at.Lower != 1 || at.Upper != 5 {
		t.Fatalf("intersect(a, a) must equal a, got %+v", at)
	}
}

func TestAlwaysSatisfiableAbsorbsUnion(t *testing.T) {
	always := constraints.AlwaysSatisfiable[rank, string]()
	x := oneClause(atom(1, "T", 5))
	got := constraints.Union(always, x)
	if !got.IsAlwaysSatisfied() {
		t.Fatal("always_satisfiable ∪ x must be always_satisfiable")
	}
}

func TestUnsatisfiableAbsorbsIntersection(t *testing.T) {
	none := constraints.Unsatisfiable[rank, string]()
	x := oneClause(atom(1, "T", 5))
	got := constraints.Intersection(none, x)
	if !got.IsNeverSatisfied() {
		t.Fatal("unsatisfiable ∩ x must be unsatisfiable")
	}
}

func TestDoubleNegationRoundTrips(t *testing.T) {
	a := oneClause(atom(3, "T", 7))
	negated := constraints.Negate(a, dom)
	twice := constraints.Negate(negated, dom)

	// Up to clause normalization: twice must accept exactly the same
	// substitutions a does. We check this by intersecting with a known
	// witness substitution set on both sides of the boundary.
	inside := oneClause(atom(5, "T", 5)) // T=5 is within [3,7]
	outside := oneClause(atom(8, "T", 8))

	if constraints.Intersection(twice, inside).IsNeverSatisfied() {
		t.Fatal("double negation must still admit substitutions inside the original range")
	}
	if !constraints.Intersection(twice, outside).IsNeverSatisfied() {
		t.Fatal("double negation must still reject substitutions outside the original range")
	}
}

func TestNegateOfUnsatisfiableIsAlwaysSatisfiable(t *testing.T) {
	got := constraints.Negate(constraints.Unsatisfiable[rank, string](), dom)
	if !got.IsAlwaysSatisfied() {
		t.Fatal("negate(unsatisfiable) must be always_satisfiable")
	}
}

func TestNegateOfAlwaysSatisfiableIsUnsatisfiable(t *testing.T) {
	got := constraints.Negate(constraints.AlwaysSatisfiable[rank, string](), dom)
	if !got.IsNeverSatisfied() {
		t.Fatal("negate(always_satisfiable) must be unsatisfiable")
	}
}

func TestWhenAnyShortCircuits(t *testing.T) {
	calls := 0
	items := []int{1, 2, 3}
	got := constraints.WhenAny(items, func(x int) constraints.ConstraintSet[rank, string] {
		calls++
		if x == 1 {
			return constraints.AlwaysSatisfiable[rank, string]()
		}
		return constraints.Unsatisfiable[rank, string]()
	})
	if !got.IsAlwaysSatisfied() {
		t.Fatal("expected always-satisfied result")
	}
	if calls != 1 {
		t.Fatalf("expected short-circuit after the first always-satisfied result, got %d calls", calls)
	}
}

func TestWhenAllShortCircuits(t *testing.T) {
	calls := 0
	items := []int{1, 2, 3}
	got := constraints.WhenAll(items, func(x int) constraints.ConstraintSet[rank, string] {
		calls++
		if x == 1 {
			return constraints.Unsatisfiable[rank, string]()
		}
		return constraints.AlwaysSatisfiable[rank, string]()
	})
	if !got.IsNeverSatisfied() {
		t.Fatal("expected never-satisfied result")
	}
	if calls != 1 {
		t.Fatalf("expected short-circuit after the first unsatisfiable result, got %d calls", calls)
	}
}

func TestBoolAlgebraMirrorsLaws(t *testing.T) {
	if !constraints.BoolUnion(constraints.BoolAlwaysSatisfiable, false).IsAlwaysSatisfied() {
		t.Fatal("always_satisfiable ∪ x must be always_satisfiable (Bool)")
	}
	if !constraints.BoolIntersection(constraints.BoolUnsatisfiable, true).IsNeverSatisfied() {
		t.Fatal("unsatisfiable ∩ x must be unsatisfiable (Bool)")
	}
	a := constraints.Bool(true)
	if constraints.BoolNegate(constraints.BoolNegate(a)) != a {
		t.Fatal("double negation must round-trip (Bool)")
	}
}
