package types

// TypeVarID identifies one typevar (PEP 695 `class C[T]`/`def f[T]`, or a
// classic `T = TypeVar("T")`) within the module that declared it. It is
// the V parameter internal/constraints.ConstraintSet[Type, TypeVarID]
// instantiates with.
type TypeVarID struct {
	Name  string
	Scope int // semindex.ScopeID of the declaring scope, widened to int to avoid an import
}

func (v TypeVarID) String() string { return v.Name }

// Variance is the declared or inferred variance of a typevar, read by a
// specialized Instance's subtyping check to decide whether a type
// parameter's argument compares covariantly, contravariantly, or (the
// default) invariantly.
type Variance int

const (
	VarianceInvariant Variance = iota
	VarianceCovariant
	VarianceContravariant
	VarianceInferred // dataclass-like: inferred from usage, treated as invariant conservatively
)

// TypeVarKind distinguishes a plain TypeVar from `*Ts` (TypeVarTuple) and
// `**P` (ParamSpec) — the Unpack/Concatenate special forms operate on the
// latter two.
type TypeVarKind int

const (
	TypeVarPlain TypeVarKind = iota
	TypeVarTuple
	ParamSpec
)

// TypeVarDecl is the declaration a typevar carries: its identity, kind,
// variance, bound, and default (PEP 696). A constrained typevar's list of
// allowed types is not recorded.
type TypeVarDecl struct {
	ID       TypeVarID
	Kind     TypeVarKind
	Variance Variance
	Bound    Type   // optional upper bound
	Default  Type   // optional PEP 696 default
}

// TypeVarType is the Type representation of an as-yet-unsubstituted
// typevar reference appearing inside a generic class/function body.
type TypeVarType struct {
	Decl TypeVarDecl
}

func (t TypeVarType) String() string { return t.Decl.ID.Name }
func (TypeVarType) typ()             {}

func (t TypeVarType) Union(other Type) Type { return unionOf(t, other) }
func (t TypeVarType) Intersect(other Type) Type {
	return intersectOf(t, other)
}

// SubtypeOf for a bare TypeVarType ignoring its constraint set: Dynamic
// (the gradual top), the identical typevar, and, for a bounded typevar,
// any type its bound is a subtype of qualify. Anything
// more precise goes through subtype.go's AssignableTo/SubtypeOf, which
// returns a ConstraintSet capturing what substitution would be required.
func (t TypeVarType) SubtypeOf(other Type) bool {
	if IsDynamic(other) {
		return true
	}
	if o, ok := other.(TypeVarType); ok {
		return o.Decl.ID == t.Decl.ID
	}
	if t.Decl.Bound != nil {
		return t.Decl.Bound.SubtypeOf(other)
	}
	return false
}
