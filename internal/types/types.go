// Package types implements Python's gradual type system: type/annotation
// expression evaluation, definition and expression inference, and
// subtyping/assignability/disjointness/equivalence.
//
// The variant shape is a Type interface with one struct per variant
// (Never, Dynamic, Instance, ClassLiteral, Union, Intersection, ...),
// covering Python's richer, gradual type lattice rather than a strict
// Hindley-Milner value-type system: SubtypeOf/AssignableTo return a
// constraint set (internal/constraints) instead of a bare bool, since a
// relation involving a typevar has no fixed answer until it is
// specialized.
package types

import (
	"fmt"
	"sort"
	"strings"
)

// Type is the interface every type variant implements. It satisfies
// constraints.TypeLike[Type] (Union/Intersect/SubtypeOf) so
// internal/constraints can build ConstraintSet[Type, TypeVarID] without
// importing this package.
type Type interface {
	String() string

	// Union returns the least type that is a supertype of both t and other.
	Union(other Type) Type
	// Intersect returns the greatest type that is a subtype of both t and
	// other.
	Intersect(other Type) Type
	// SubtypeOf reports whether t is a subtype of other, ignoring typevars
	// (a TypeVar is a subtype of Dynamic, of itself, and of whatever its
	// bound is a subtype of — callers
	// wanting the full constraint-set answer use SubtypeOf/AssignableTo in
	// subtype.go).
	SubtypeOf(other Type) bool

	typ() // unexported marker: only this package may add Type variants.
}

// Never is the bottom type: no value has it, and it is a subtype of (so
// assignable to) every type, in the trivial "unreachable code" sense
// (NoReturn/Never).
type Never struct{}

func (Never) String() string          { return "Never" }
func (Never) typ()                    {}
func (n Never) Union(other Type) Type { return other }
func (Never) Intersect(Type) Type     { return Never{} }
func (Never) SubtypeOf(Type) bool     { return true }

// Dynamic is the gradual top: `Any`/`Unknown`. Assignability treats it as
// both a subtype and a supertype of everything; subtyping (the stricter
// relation) does not.
type Dynamic struct {
	// Name distinguishes the spelling for display: "Any" (from typing) vs
	// "Unknown" (tycore's own inferred-gradual marker, never written by a
	// user) — both behave identically.
	Name string
}

func (d Dynamic) String() string { return d.Name }
func (Dynamic) typ()             {}
func (d Dynamic) Union(Type) Type {
	return d
}
func (d Dynamic) Intersect(other Type) Type { return other }
func (Dynamic) SubtypeOf(other Type) bool {
	_, ok := other.(Dynamic)
	return ok
}

// AnyType and UnknownType are the two Dynamic spellings tycore constructs.
var (
	AnyType     Type = Dynamic{Name: "Any"}
	UnknownType Type = Dynamic{Name: "Unknown"}
)

// IsDynamic reports whether t is any spelling of the gradual top.
func IsDynamic(t Type) bool {
	_, ok := t.(Dynamic)
	return ok
}

// NoneType is the type of the `None` singleton.
type NoneType struct{}

func (NoneType) String() string { return "None" }
func (NoneType) typ()           {}
func (n NoneType) Union(other Type) Type {
	return unionOf(n, other)
}
func (n NoneType) Intersect(other Type) Type { return intersectOf(n, other) }
func (n NoneType) SubtypeOf(other Type) bool { return subtypeOf(n, other) }

// BoolLiteral, IntLiteral, StringLiteral, BytesLiteral are the four
// `Literal[...]`-shaped singleton types a type expression can denote.
type BoolLiteral struct{ Value bool }
type IntLiteral struct{ Value int64 }
type StringLiteral struct{ Value string }
type BytesLiteral struct{ Value string }

func (b BoolLiteral) String() string   { return fmt.Sprintf("Literal[%t]", b.Value) }
func (i IntLiteral) String() string    { return fmt.Sprintf("Literal[%d]", i.Value) }
func (s StringLiteral) String() string { return fmt.Sprintf("Literal[%q]", s.Value) }
func (b BytesLiteral) String() string  { return fmt.Sprintf("Literal[b%q]", b.Value) }

func (BoolLiteral) typ()   {}
func (IntLiteral) typ()    {}
func (StringLiteral) typ() {}
func (BytesLiteral) typ()  {}

func (b BoolLiteral) Union(other Type) Type   { return unionOf(b, other) }
func (i IntLiteral) Union(other Type) Type    { return unionOf(i, other) }
func (s StringLiteral) Union(other Type) Type { return unionOf(s, other) }
func (b BytesLiteral) Union(other Type) Type  { return unionOf(b, other) }

func (b BoolLiteral) Intersect(other Type) Type   { return intersectOf(b, other) }
func (i IntLiteral) Intersect(other Type) Type    { return intersectOf(i, other) }
func (s StringLiteral) Intersect(other Type) Type { return intersectOf(s, other) }
func (b BytesLiteral) Intersect(other Type) Type  { return intersectOf(b, other) }

func (b BoolLiteral) SubtypeOf(other Type) bool {
	if o, ok := other.(BoolLiteral); ok {
		return o.Value == b.Value
	}
	return subtypeOf(b, other)
}
func (i IntLiteral) SubtypeOf(other Type) bool {
	if o, ok := other.(IntLiteral); ok {
		return o.Value == i.Value
	}
	return subtypeOf(i, other)
}
func (s StringLiteral) SubtypeOf(other Type) bool {
	if o, ok := other.(StringLiteral); ok {
		return o.Value == s.Value
	}
	return subtypeOf(s, other)
}
func (b BytesLiteral) SubtypeOf(other Type) bool {
	if o, ok := other.(BytesLiteral); ok {
		return o.Value == b.Value
	}
	return subtypeOf(b, other)
}

// Tuple is a fixed-length, per-position-typed `tuple[X, Y, Z]`. An
// unbounded `tuple[X, ...]` is represented as Instance{Class: tuple} with a
// single specialization argument instead, since its length is not
// statically fixed.
type Tuple struct{ Elements []Type }

func (t Tuple) String() string {
	parts := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		parts[i] = e.String()
	}
	return "tuple[" + strings.Join(parts, ", ") + "]"
}
func (Tuple) typ() {}
func (t Tuple) Union(other Type) Type { return unionOf(t, other) }
func (t Tuple) Intersect(other Type) Type { return intersectOf(t, other) }

// SubtypeOf is covariant per-position: a same-length tuple is a subtype iff
// every element is.
func (t Tuple) SubtypeOf(other Type) bool {
	if o, ok := other.(Tuple); ok {
		if len(t.Elements) != len(o.Elements) {
			return false
		}
		for i, e := range t.Elements {
			if !e.SubtypeOf(o.Elements[i]) {
				return false
			}
		}
		return true
	}
	return subtypeOf(t, other)
}

// KnownClass enumerates the handful of builtin/stdlib classes the core
// gives special treatment (bool/int/str/bytes promotion to their literal
// types' instance type). Anything else is just a ClassType by qualified name.
type KnownClass int

const (
	ClassUnknown KnownClass = iota
	ClassObject
	ClassBool
	ClassInt
	ClassFloat
	ClassComplex
	ClassStr
	ClassBytes
	ClassList
	ClassTuple
	ClassDict
	ClassSet
	ClassFrozenSet
	ClassTypeObject
	ClassNoneType
	ClassBaseException
)

func (k KnownClass) String() string {
	names := [...]string{
		"object-unresolved", "object", "bool", "int", "float", "complex",
		"str", "bytes", "list", "tuple", "dict", "set", "frozenset", "type",
		"NoneType", "BaseException",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "?"
}

// ClassKind distinguishes the MRO base-class flavors the override checker
// branches on: a plain class, a module-attribute-dynamic stand-in, a
// Protocol, typing.Generic, or a TypedDict.
type ClassKind int

const (
	ClassKindRegular ClassKind = iota
	ClassKindDynamic
	ClassKindProtocol
	ClassKindGeneric
	ClassKindTypedDict
)

// ClassType identifies one class by its defining scope. Known is set for
// the builtins the core treats specially; for user classes it is
// ClassUnknown and QualName carries the identity instead.
type ClassType struct {
	QualName   string
	Known      KnownClass
	Kind       ClassKind
	IsFinal    bool
	IsNamedTup bool
	Bases      []ClassType
	// TypeParams carries the class's own generic parameters in declaration
	// order (from `class C[T]:` or a `Generic[T]`/`Protocol[T]` base), each
	// with its declared Variance so a specialized Instance's subtyping can
	// respect covariant/contravariant parameters instead of assuming
	// invariance.
	TypeParams []TypeVarDecl
}

func (c ClassType) String() string { return c.QualName }

// ToInstance returns the Instance type of this class, applying Specialized
// type arguments (empty for a non-generic class).
func (c ClassType) ToInstance(args ...Type) Type {
	return Instance{Class: c, Specialization: args}
}

// Instance is "an object of class C" (optionally generic-specialized).
type Instance struct {
	Class          ClassType
	Specialization []Type
}

func (i Instance) String() string {
	if len(i.Specialization) == 0 {
		return i.Class.QualName
	}
	parts := make([]string, len(i.Specialization))
	for idx, a := range i.Specialization {
		parts[idx] = a.String()
	}
	return fmt.Sprintf("%s[%s]", i.Class.QualName, strings.Join(parts, ", "))
}
func (Instance) typ() {}

func (i Instance) Union(other Type) Type     { return unionOf(i, other) }
func (i Instance) Intersect(other Type) Type { return intersectOf(i, other) }
func (i Instance) SubtypeOf(other Type) bool {
	if o, ok := other.(Instance); ok {
		return classIsSubclass(i.Class, o.Class) && specializationCompatible(i, o)
	}
	return subtypeOf(i, other)
}

func specializationCompatible(sub, sup Instance) bool {
	if len(sup.Specialization) == 0 {
		return true
	}
	if len(sub.Specialization) != len(sup.Specialization) {
		return false
	}
	for idx := range sub.Specialization {
		// A declared-variant typevar check happens one level up, in
		// subtype.go's relate(), which has access to the class's
		// TypeParams and their Variance. Plain Instance.SubtypeOf assumes
		// invariance, the conservative default for a class whose variance
		// metadata isn't in scope here.
		if !sub.Specialization[idx].SubtypeOf(sup.Specialization[idx]) ||
			!sup.Specialization[idx].SubtypeOf(sub.Specialization[idx]) {
			return false
		}
	}
	return true
}

// classIsSubclass walks declared Bases (nominal subtyping for classes).
func classIsSubclass(sub, sup ClassType) bool {
	if sub.QualName == sup.QualName && sub.Known == sup.Known {
		return true
	}
	if sup.Known == ClassObject {
		return true
	}
	for _, b := range sub.Bases {
		if classIsSubclass(b, sup) {
			return true
		}
	}
	return false
}

// ClassLiteral is the type of the class object itself (`type[C]` where C
// is known exactly, as opposed to SubclassOf's "C or one of its unknown
// subclasses").
type ClassLiteral struct{ Class ClassType }

func (c ClassLiteral) String() string        { return fmt.Sprintf("type[%s]", c.Class.QualName) }
func (ClassLiteral) typ()                    {}
func (c ClassLiteral) Union(other Type) Type { return unionOf(c, other) }
func (c ClassLiteral) Intersect(other Type) Type {
	return intersectOf(c, other)
}
func (c ClassLiteral) SubtypeOf(other Type) bool {
	if o, ok := other.(ClassLiteral); ok {
		return classIsSubclass(c.Class, o.Class)
	}
	if o, ok := other.(SubclassOf); ok {
		return classIsSubclass(c.Class, o.Class)
	}
	return subtypeOf(c, other)
}

// SubclassOf is `type[C]` spelled as an upper bound: C itself or any of its
// subclasses, not necessarily known exactly (the `type[T]` of a typevar-
// bound parameter, for instance).
type SubclassOf struct{ Class ClassType }

func (s SubclassOf) String() string            { return fmt.Sprintf("type[%s]", s.Class.QualName) }
func (SubclassOf) typ()                        {}
func (s SubclassOf) Union(other Type) Type     { return unionOf(s, other) }
func (s SubclassOf) Intersect(other Type) Type { return intersectOf(s, other) }
func (s SubclassOf) SubtypeOf(other Type) bool {
	if o, ok := other.(SubclassOf); ok {
		return classIsSubclass(s.Class, o.Class)
	}
	return subtypeOf(s, other)
}

// Union is a disjunction of member types, flattened and deduplicated by
// subtyping order (a member already covered by another member's supertype
// relation is dropped) rather than structural string equality.
type Union struct{ Members []Type }

func (u Union) String() string {
	parts := make([]string, len(u.Members))
	for i, m := range u.Members {
		parts[i] = m.String()
	}
	return strings.Join(parts, " | ")
}
func (Union) typ() {}

func (u Union) Union(other Type) Type { return unionOf(u, other) }
func (u Union) Intersect(other Type) Type {
	return intersectOf(u, other)
}
func (u Union) SubtypeOf(other Type) bool {
	for _, m := range u.Members {
		if !m.SubtypeOf(other) {
			return false
		}
	}
	return true
}

// NormalizeUnion flattens nested unions, drops members subsumed by another
// member (m1 is redundant if m1.SubtypeOf(m2) for some other member m2),
// and returns Never for an empty list or the sole member for a singleton.
func NormalizeUnion(members []Type) Type {
	flat := make([]Type, 0, len(members))
	for _, m := range members {
		if u, ok := m.(Union); ok {
			flat = append(flat, u.Members...)
		} else {
			flat = append(flat, m)
		}
	}
	kept := make([]Type, 0, len(flat))
	for i, m := range flat {
		if _, isNever := m.(Never); isNever {
			continue
		}
		redundant := false
		for j, other := range flat {
			if i == j {
				continue
			}
			if _, otherNever := other.(Never); otherNever {
				continue
			}
			if m.SubtypeOf(other) && !other.SubtypeOf(m) {
				redundant = true
				break
			}
			if m.SubtypeOf(other) && other.SubtypeOf(m) && j < i {
				redundant = true // keep the earliest of equivalent members
				break
			}
		}
		if !redundant {
			kept = append(kept, m)
		}
	}
	switch len(kept) {
	case 0:
		return Never{}
	case 1:
		return kept[0]
	default:
		sort.Slice(kept, func(i, j int) bool { return kept[i].String() < kept[j].String() })
		return Union{Members: kept}
	}
}

// Intersection is a conjunction of positive member types and negated
// member types (`Not[X]`), the internal SpecialForm extensions backing
// narrowing's Intersection/Not shapes.
type Intersection struct {
	Positive []Type
	Negative []Type
}

func (i Intersection) String() string {
	parts := make([]string, 0, len(i.Positive)+len(i.Negative))
	for _, p := range i.Positive {
		parts = append(parts, p.String())
	}
	for _, n := range i.Negative {
		parts = append(parts, "~"+n.String())
	}
	if len(parts) == 0 {
		return "object"
	}
	return strings.Join(parts, " & ")
}
func (Intersection) typ() {}

func (i Intersection) Union(other Type) Type     { return unionOf(i, other) }
func (i Intersection) Intersect(other Type) Type { return intersectOf(i, other) }
func (i Intersection) SubtypeOf(other Type) bool {
	for _, p := range i.Positive {
		if p.SubtypeOf(other) {
			return true
		}
	}
	return subtypeOf(i, other)
}

// AlwaysTruthy and AlwaysFalsy are the narrowed-bool-ness wrapper types;
// infer's narrowing wraps a symbol's type in one of these on a truthiness
// test that usedef recorded.
type AlwaysTruthy struct{ Inner Type }
type AlwaysFalsy struct{ Inner Type }

func (a AlwaysTruthy) String() string { return fmt.Sprintf("AlwaysTruthy[%s]", a.Inner) }
func (a AlwaysFalsy) String() string  { return fmt.Sprintf("AlwaysFalsy[%s]", a.Inner) }
func (AlwaysTruthy) typ()             {}
func (AlwaysFalsy) typ()              {}

func (a AlwaysTruthy) Union(other Type) Type     { return unionOf(a, other) }
func (a AlwaysTruthy) Intersect(other Type) Type { return intersectOf(a, other) }
func (a AlwaysTruthy) SubtypeOf(other Type) bool { return a.Inner.SubtypeOf(other) }

func (a AlwaysFalsy) Union(other Type) Type     { return unionOf(a, other) }
func (a AlwaysFalsy) Intersect(other Type) Type { return intersectOf(a, other) }
func (a AlwaysFalsy) SubtypeOf(other Type) bool { return a.Inner.SubtypeOf(other) }

// unionOf is the generic fallback Union implementation shared by variants
// with no special-case merge rule: Dynamic absorbs everything, Never is
// absorbed, otherwise build a normalized Union.
func unionOf(t, other Type) Type {
	if IsDynamic(t) || IsDynamic(other) {
		if IsDynamic(t) {
			return t
		}
		return other
	}
	if _, ok := t.(Never); ok {
		return other
	}
	if _, ok := other.(Never); ok {
		return t
	}
	return NormalizeUnion([]Type{t, other})
}

// intersectOf is the generic fallback Intersect implementation.
func intersectOf(t, other Type) Type {
	if IsDynamic(t) {
		return other
	}
	if IsDynamic(other) {
		return t
	}
	if t.SubtypeOf(other) {
		return t
	}
	if other.SubtypeOf(t) {
		return other
	}
	if !isDisjoint(t, other) {
		return Intersection{Positive: []Type{t, other}}
	}
	return Never{}
}

// subtypeOf is the generic fallback SubtypeOf implementation: equal-string
// types are trivially subtypes of each other, Dynamic is handled by
// AssignableTo instead (subtyping proper excludes it), everything is a
// subtype of object (ClassObject instance) and of Dynamic only under
// assignability.
func subtypeOf(t, other Type) bool {
	if t.String() == other.String() {
		return true
	}
	if u, ok := other.(Union); ok {
		for _, m := range u.Members {
			if t.SubtypeOf(m) {
				return true
			}
		}
		return false
	}
	if inst, ok := other.(Instance); ok && inst.Class.Known == ClassObject {
		if _, never := t.(Never); !never {
			return true
		}
	}
	return false
}

// isDisjoint is IsDisjointFrom's structural core, used by intersectOf to
// decide whether two unrelated types can share no value (e.g. two
// unrelated final classes) versus merely being unrelated-but-possibly-
// overlapping (two unrelated non-final classes, where a subclass of both
// could exist).
func isDisjoint(a, b Type) bool {
	ia, aok := a.(Instance)
	ib, bok := b.(Instance)
	if aok && bok {
		if classIsSubclass(ia.Class, ib.Class) || classIsSubclass(ib.Class, ia.Class) {
			return false
		}
		return ia.Class.IsFinal || ib.Class.IsFinal
	}
	return false
}

// IsDisjointFrom reports whether no value can have both type a and type b.
func IsDisjointFrom(a, b Type) bool {
	if IsDynamic(a) || IsDynamic(b) {
		return false
	}
	if _, ok := a.(Never); ok {
		return true
	}
	if _, ok := b.(Never); ok {
		return true
	}
	if ua, ok := a.(Union); ok {
		for _, m := range ua.Members {
			if !IsDisjointFrom(m, b) {
				return false
			}
		}
		return true
	}
	if ub, ok := b.(Union); ok {
		for _, m := range ub.Members {
			if !IsDisjointFrom(a, m) {
				return false
			}
		}
		return true
	}
	return isDisjoint(a, b)
}

// IsEquivalentTo reports whether a and b accept exactly the same values
// (mutual subtyping).
func IsEquivalentTo(a, b Type) bool {
	return a.SubtypeOf(b) && b.SubtypeOf(a)
}
