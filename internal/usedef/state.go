// Package usedef implements spec.md §4.5: for every use site of every
// symbol in a scope, the set of reaching definitions together with the
// narrowing constraints that apply to each, merged across control-flow
// joins.
//
// The builder below is a hand-written structured walk (no general CFG) over
// internal/pyast statement lists, mirroring the teacher's own
// statement-at-a-time semantic pass (internal/analyzer/statements.go)
// generalized from funxy's let-binding dataflow to Python's full branching
// and narrowing model.
package usedef

import (
	"github.com/tycore/tycore/internal/semindex"
)

// DefID is a definition id local to the scope a UseDefMap was built for; it
// indexes the same global semindex.Definitions array, restricted in
// practice to definitions whose Scope matches the map's scope.
type DefID = semindex.DefinitionID

// ConstraintID indexes UseDefMap.AllConstraints.
type ConstraintID int

// SymbolState is the per-symbol dataflow value spec.md §4.5 describes:
// which definitions are visible at a program point, and, for each, which
// narrowing predicates dominate the path from that definition to this
// point.
//
// Constraints is keyed by DefID rather than spec.md's parallel-vector
// sketch (`constraints: Vec<BitSet>` indexed in lockstep with a sorted
// `visible_definitions`): a map keyed directly by DefID gives the same
// "constraints.len() == visible_definitions.count()" invariant with less
// bookkeeping in a language without a borrow checker forcing the
// cache-friendly layout. The observable semantics (§8 invariant, §4.5
// primitive operations) are unchanged.
type SymbolState struct {
	Defs         BitSet
	Constraints  map[DefID]BitSet
	MayBeUnbound bool
}

// NewSymbolState returns an empty state: no visible definitions, not
// unbound (the initial state before any assignment is seen is represented
// by AddUnbound, not by the zero value, since "no definitions yet" at
// function entry for a parameter is different from "no definitions and
// never will be").
func NewSymbolState() *SymbolState {
	return &SymbolState{Constraints: make(map[DefID]BitSet)}
}

// With seeds a symbol with exactly one visible definition and an empty
// constraint set (spec.md §4.5 "with(def)").
func With(def DefID) *SymbolState {
	s := NewSymbolState()
	s.Defs.Set(int(def))
	s.Constraints[def] = BitSet{}
	return s
}

// Clone returns an independent deep copy.
func (s *SymbolState) Clone() *SymbolState {
	out := &SymbolState{Defs: s.Defs.Clone(), Constraints: make(map[DefID]BitSet, len(s.Constraints)), MayBeUnbound: s.MayBeUnbound}
	for d, bs := range s.Constraints {
		out.Constraints[d] = bs.Clone()
	}
	return out
}

// AddUnbound records that some path reaches this point with the symbol
// never having been bound (spec.md §4.5 "add_unbound()").
func (s *SymbolState) AddUnbound() {
	s.MayBeUnbound = true
}

// AddConstraint inserts c into every currently-visible definition's
// constraint set: a newly observed predicate now dominates every
// definition visible at this point (spec.md §4.5 "add_constraint(c)").
func (s *SymbolState) AddConstraint(c ConstraintID) {
	s.Defs.ForEach(func(d int) {
		bs := s.Constraints[DefID(d)]
		bs.Set(int(c))
		s.Constraints[DefID(d)] = bs
	})
}

// Merge combines a and b at a control-flow join (spec.md §4.5
// "merge(a, b)"):
//   - a definition visible only on one side carries that side's
//     constraints unchanged (the predicate on the other path is
//     irrelevant, since the definition never reached that path);
//   - a definition visible on both sides carries the *intersection* of
//     both sides' constraints (a predicate that held on only one path no
//     longer dominates after the join).
func Merge(a, b *SymbolState) *SymbolState {
	out := NewSymbolState()
	out.MayBeUnbound = a.MayBeUnbound || b.MayBeUnbound
	a.Defs.ForEach(func(d int) {
		out.Defs.Set(d)
		if b.Defs.Has(d) {
			merged := a.Constraints[DefID(d)].Clone()
			merged.Intersect(b.Constraints[DefID(d)])
			out.Constraints[DefID(d)] = merged
		} else {
			out.Constraints[DefID(d)] = a.Constraints[DefID(d)].Clone()
		}
	})
	b.Defs.ForEach(func(d int) {
		if !a.Defs.Has(d) {
			out.Defs.Set(d)
			out.Constraints[DefID(d)] = b.Constraints[DefID(d)].Clone()
		}
	})
	return out
}

// VisibleDefs returns the set of definition ids visible at this state, in
// ascending order.
func (s *SymbolState) VisibleDefs() []DefID {
	var out []DefID
	s.Defs.ForEach(func(d int) { out = append(out, DefID(d)) })
	return out
}

// ConstraintsFor returns the constraint bitset recorded for def, or an
// empty set if def is not visible.
func (s *SymbolState) ConstraintsFor(def DefID) BitSet {
	return s.Constraints[def]
}

// Invariant checks the spec.md §8 testable property:
// `constraints.len() == visible_definitions.count()`, and if
// `!may_be_unbound` the definition set is non-empty. Exposed for tests.
func (s *SymbolState) Invariant() bool {
	if len(s.Constraints) != s.Defs.Count() {
		return false
	}
	if !s.MayBeUnbound && s.Defs.IsEmpty() {
		return false
	}
	return true
}
