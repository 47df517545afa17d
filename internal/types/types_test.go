package types_test

import (
	"testing"

	"github.com/tycore/tycore/internal/pyast"
	"github.com/tycore/tycore/internal/types"
)

func objectClass() types.ClassType {
	return types.ClassType{QualName: "object", Known: types.ClassObject}
}

func classInstance(name string, known types.KnownClass, bases ...types.ClassType) types.Type {
	return types.ClassType{QualName: name, Known: known, Bases: bases}.ToInstance()
}

func TestNormalizeUnionFlattensAndDedups(t *testing.T) {
	intT := classInstance("int", types.ClassInt, objectClass())
	strT := classInstance("str", types.ClassStr, objectClass())
	inner := types.NormalizeUnion([]types.Type{intT, strT})
	got := types.NormalizeUnion([]types.Type{inner, strT})
	if got.String() != inner.String() {
		t.Fatalf("union(union(int,str), str) = %s, want %s", got, inner)
	}
}

func TestNormalizeUnionSingletonCollapses(t *testing.T) {
	intT := classInstance("int", types.ClassInt, objectClass())
	got := types.NormalizeUnion([]types.Type{intT})
	if _, ok := got.(types.Union); ok {
		t.Fatal("a single-member union must collapse to the bare member")
	}
}

func TestSubtypingIsNominal(t *testing.T) {
	base := types.ClassType{QualName: "Animal", Known: types.ClassUnknown, Bases: []types.ClassType{objectClass()}}
	dog := types.ClassType{QualName: "Dog", Known: types.ClassUnknown, Bases: []types.ClassType{base}}

	dogInstance := dog.ToInstance()
	baseInstance := base.ToInstance()

	if !dogInstance.SubtypeOf(baseInstance) {
		t.Fatal("Dog must be a subtype of Animal")
	}
	if baseInstance.SubtypeOf(dogInstance) {
		t.Fatal("Animal must not be a subtype of Dog")
	}
}

func TestNeverIsBottom(t *testing.T) {
	intT := classInstance("int", types.ClassInt, objectClass())
	if !(types.Never{}).SubtypeOf(intT) {
		t.Fatal("Never must be a subtype of everything")
	}
}

func TestDynamicAbsorbsUnion(t *testing.T) {
	intT := classInstance("int", types.ClassInt, objectClass())
	got := types.AnyType.Union(intT)
	if !types.IsDynamic(got) {
		t.Fatal("Any ∪ int must stay Any")
	}
}

func TestDisjointFinalClasses(t *testing.T) {
	a := types.ClassType{QualName: "A", Known: types.ClassUnknown, IsFinal: true, Bases: []types.ClassType{objectClass()}}
	b := types.ClassType{QualName: "B", Known: types.ClassUnknown, IsFinal: true, Bases: []types.ClassType{objectClass()}}
	if !types.IsDisjointFrom(a.ToInstance(), b.ToInstance()) {
		t.Fatal("two unrelated final classes must be disjoint")
	}
}

func TestNonFinalUnrelatedClassesAreNotDisjoint(t *testing.T) {
	a := types.ClassType{QualName: "A", Known: types.ClassUnknown, Bases: []types.ClassType{objectClass()}}
	b := types.ClassType{QualName: "B", Known: types.ClassUnknown, Bases: []types.ClassType{objectClass()}}
	if types.IsDisjointFrom(a.ToInstance(), b.ToInstance()) {
		t.Fatal("two unrelated non-final classes might share a common subclass")
	}
}

func TestKnownInstanceTruthinessAlwaysTrue(t *testing.T) {
	k := types.KnownInstance{Form: types.FormNever}
	if k.Bool() != types.AlwaysTrue {
		t.Fatal("a KnownInstance is always truthy regardless of its Form")
	}
}

// fakeResolver is a minimal Resolver double standing in for semindex +
// usedef's name resolution, enough to exercise EvalTypeExpression's/
// EvalAnnotationExpression's subscript and qualifier handling.
type fakeResolver struct {
	names map[string]types.Type
	forms map[string]types.SpecialForm
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{names: map[string]types.Type{}, forms: map[string]types.SpecialForm{}}
}

func (r *fakeResolver) ResolveName(name string) (types.Type, bool) {
	v, ok := r.names[name]
	return v, ok
}

func (r *fakeResolver) ResolveAttribute(base types.Type, attr string) (types.Type, bool) {
	return nil, false
}

func (r *fakeResolver) SpecialFormOf(v types.Type) (types.SpecialForm, bool) {
	ki, ok := v.(types.KnownInstance)
	if !ok {
		return 0, false
	}
	return ki.Form, true
}

func formPlaceholder(f types.SpecialForm) types.Type { return types.KnownInstance{Form: f} }

func nameNode(id string) *pyast.Name { return &pyast.Name{Id: id, Ctx: pyast.CtxLoad} }

func TestEvalTypeExpressionUnionOperator(t *testing.T) {
	r := newFakeResolver()
	r.names["int"] = types.ClassLiteral{Class: types.ClassType{QualName: "int", Known: types.ClassInt}}
	r.names["str"] = types.ClassLiteral{Class: types.ClassType{QualName: "str", Known: types.ClassStr}}

	expr := &pyast.BinOp{Left: nameNode("int"), Op: "|", Right: nameNode("str")}
	got, err := types.EvalTypeExpression(r, expr)
	if err != nil {
		t.Fatal(err)
	}
	u, ok := got.(types.Union)
	if !ok || len(u.Members) != 2 {
		t.Fatalf("int | str must evaluate to a two-member union, got %s", got)
	}
}

func TestEvalTypeExpressionOptionalSubscript(t *testing.T) {
	r := newFakeResolver()
	r.names["int"] = types.ClassLiteral{Class: types.ClassType{QualName: "int", Known: types.ClassInt}}
	r.names["Optional"] = formPlaceholder(types.FormOptional)

	expr := &pyast.Subscript{Value: nameNode("Optional"), Slice: nameNode("int")}
	got, err := types.EvalTypeExpression(r, expr)
	if err != nil {
		t.Fatal(err)
	}
	u, ok := got.(types.Union)
	if !ok || len(u.Members) != 2 {
		t.Fatalf("Optional[int] must evaluate to int | None, got %s", got)
	}
}

func TestEvalAnnotationExpressionRejectsNestedQualifiers(t *testing.T) {
	r := newFakeResolver()
	r.names["int"] = types.ClassLiteral{Class: types.ClassType{QualName: "int", Known: types.ClassInt}}
	r.names["ClassVar"] = formPlaceholder(types.FormClassVar)
	r.names["Final"] = formPlaceholder(types.FormFinal)

	inner := &pyast.Subscript{Value: nameNode("ClassVar"), Slice: nameNode("int")}
	outer := &pyast.Subscript{Value: nameNode("Final"), Slice: inner}

	_, _, err := types.EvalAnnotationExpression(r, outer)
	if err == nil {
		t.Fatal("Final[ClassVar[int]] must be a reported error")
	}
}

func TestEvalAnnotationExpressionSingleQualifier(t *testing.T) {
	r := newFakeResolver()
	r.names["int"] = types.ClassLiteral{Class: types.ClassType{QualName: "int", Known: types.ClassInt}}
	r.names["Final"] = formPlaceholder(types.FormFinal)

	expr := &pyast.Subscript{Value: nameNode("Final"), Slice: nameNode("int")}
	got, q, err := types.EvalAnnotationExpression(r, expr)
	if err != nil {
		t.Fatal(err)
	}
	if !q.Has(types.QualifierFinal) {
		t.Fatal("Final[int] must set the Final qualifier bit")
	}
	if got.String() != "int" {
		t.Fatalf("Final[int] must strip to plain int, got %s", got)
	}
}

func TestAssignableToWithConstraintsBindsTypeVar(t *testing.T) {
	tv := types.TypeVarType{Decl: types.TypeVarDecl{ID: types.TypeVarID{Name: "T"}}}
	intT := classInstance("int", types.ClassInt, objectClass())

	cs := types.AssignableToWithConstraints(intT, tv)
	if cs.IsNeverSatisfied() {
		t.Fatal("int assignable to bare typevar T must be satisfiable")
	}
	clause := cs.Clauses()[0]
	at, ok := clause.Get(types.TypeVarID{Name: "T"})
	if !ok {
		t.Fatal("expected a constraint on T")
	}
	if at.Lower.String() != "int" {
		t.Fatalf("lower bound on T must be int, got %s", at.Lower)
	}
}

func TestAssignableToWithConstraintsDynamicAlwaysSatisfiable(t *testing.T) {
	intT := classInstance("int", types.ClassInt, objectClass())
	cs := types.AssignableToWithConstraints(types.AnyType, intT)
	if !cs.IsAlwaysSatisfied() {
		t.Fatal("Any assignable to anything must be always-satisfiable")
	}
}
