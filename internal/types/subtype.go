package types

import (
	"github.com/tycore/tycore/internal/constraints"
)

// Domain is the Never/object fixed points internal/constraints.Negate
// needs to fill a negated atomic's opposite bound.
var Domain = constraints.Domain[Type]{
	Bottom: Never{},
	Top:    Instance{Class: ClassType{QualName: "object", Known: ClassObject}},
}

// ConstraintSet is the constraint-set algebra instantiated for tycore's
// concrete Type and TypeVarID — the return type of SubtypeOfWithConstraints
// and AssignableToWithConstraints. Both operations return a constraint set
// of substitutions that would satisfy the relation, not a bare Boolean,
// since a typevar on either side has no fixed answer until specialized.
type ConstraintSet = constraints.ConstraintSet[Type, TypeVarID]

// AtomicConstraint names the lower ≤ typevar ≤ upper shape for this
// package's Type/TypeVarID instantiation.
type AtomicConstraint = constraints.AtomicConstraint[Type, TypeVarID]

// SubtypeOfWithConstraints is the constraint-set-returning counterpart to
// Type.SubtypeOf: where a bare typevar appears on the left, instead of
// answering true/false it returns the constraint set of substitutions that
// would make the relation hold.
func SubtypeOfWithConstraints(sub, sup Type) ConstraintSet {
	return relate(sub, sup, false)
}

// AssignableToWithConstraints is SubtypeOfWithConstraints's gradual
// counterpart: Dynamic is assignable to and from everything, short-
// circuiting to always_satisfiable.
func AssignableToWithConstraints(sub, sup Type) ConstraintSet {
	return relate(sub, sup, true)
}

func relate(sub, sup Type, gradual bool) ConstraintSet {
	if gradual && (IsDynamic(sub) || IsDynamic(sup)) {
		return constraints.AlwaysSatisfiable[Type, TypeVarID]()
	}

	if tv, ok := sub.(TypeVarType); ok {
		return constraints.FromClause(constraints.NewClause(AtomicConstraint{
			Lower: Never{}, TypeVar: tv.Decl.ID, Upper: sup,
		}))
	}
	if tv, ok := sup.(TypeVarType); ok {
		return constraints.FromClause(constraints.NewClause(AtomicConstraint{
			Lower: sub, TypeVar: tv.Decl.ID, Upper: Domain.Top,
		}))
	}

	if u, ok := sub.(Union); ok {
		return constraints.WhenAll(u.Members, func(m Type) ConstraintSet { return relate(m, sup, gradual) })
	}
	if u, ok := sup.(Union); ok {
		return constraints.WhenAny(u.Members, func(m Type) ConstraintSet { return relate(sub, m, gradual) })
	}

	if inst, ok := sub.(Instance); ok {
		if supInst, ok := sup.(Instance); ok && len(inst.Specialization) == len(supInst.Specialization) && len(inst.Specialization) > 0 {
			if classIsSubclass(inst.Class, supInst.Class) {
				out := constraints.AlwaysSatisfiable[Type, TypeVarID]()
				for i := range inst.Specialization {
					variance := varianceFor(supInst.Class, i)
					out = constraints.And(out, func() ConstraintSet {
						return relateWithVariance(inst.Specialization[i], supInst.Specialization[i], gradual, variance)
					})
				}
				return out
			}
			return constraints.Unsatisfiable[Type, TypeVarID]()
		}
	}

	if ok := relateBool(sub, sup, gradual); ok {
		return constraints.AlwaysSatisfiable[Type, TypeVarID]()
	}
	return constraints.Unsatisfiable[Type, TypeVarID]()
}

func relateWithVariance(sub, sup Type, gradual bool, v Variance) ConstraintSet {
	switch v {
	case VarianceCovariant:
		return relate(sub, sup, gradual)
	case VarianceContravariant:
		return relate(sup, sub, gradual)
	default:
		return constraints.And(relate(sub, sup, gradual), func() ConstraintSet { return relate(sup, sub, gradual) })
	}
}

// varianceFor looks up the declared variance of class's argIndex'th type
// parameter. A class built without TypeParams (an unresolved or dynamic
// base, or a generic whose parameters weren't recovered) falls back to
// invariant, the conservative choice that never accepts a relation PEP 484
// wouldn't.
func varianceFor(class ClassType, argIndex int) Variance {
	if argIndex < 0 || argIndex >= len(class.TypeParams) {
		return VarianceInvariant
	}
	v := class.TypeParams[argIndex].Variance
	if v == VarianceInferred {
		return VarianceInvariant
	}
	return v
}

func relateBool(sub, sup Type, gradual bool) bool {
	if gradual {
		return sub.SubtypeOf(sup) || IsDynamic(sub) || IsDynamic(sup)
	}
	return sub.SubtypeOf(sup)
}

// SubtypeOfBool answers a SubtypeOf/AssignableTo call with no typevars
// anywhere in either operand using the simpler Bool algebra instead of
// building a full ConstraintSet.
func SubtypeOfBool(sub, sup Type) constraints.Bool {
	return constraints.Bool(sub.SubtypeOf(sup))
}

// AssignableToBool is AssignableToWithConstraints's Bool-algebra mirror.
func AssignableToBool(sub, sup Type) constraints.Bool {
	if IsDynamic(sub) || IsDynamic(sup) {
		return constraints.BoolAlwaysSatisfiable
	}
	return constraints.Bool(sub.SubtypeOf(sup))
}
