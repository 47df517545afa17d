package override_test

import (
	"testing"

	"github.com/tycore/tycore/internal/diagnostics"
	"github.com/tycore/tycore/internal/override"
	"github.com/tycore/tycore/internal/pyast"
	"github.com/tycore/tycore/internal/types"
)

func objectClass() types.ClassType {
	return types.ClassType{QualName: "object", Known: types.ClassObject}
}

func intInstance() types.Type {
	return types.ClassType{QualName: "int", Known: types.ClassInt, Bases: []types.ClassType{objectClass()}}.ToInstance()
}

func strInstance() types.Type {
	return types.ClassType{QualName: "str", Known: types.ClassStr, Bases: []types.ClassType{objectClass()}}.ToInstance()
}

func methodType(ret types.Type) types.Type {
	return types.FunctionLiteral{QualName: "f", Signatures: []types.Signature{{ReturnType: ret}}}
}

func node() pyast.Node {
	return &pyast.Name{Id: "placeholder", Ctx: pyast.CtxLoad}
}

// TestLiskovNarrowingOfReturnType reproduces spec.md §8 scenario 1.
func TestLiskovNarrowingOfReturnType(t *testing.T) {
	classA := types.ClassType{QualName: "A", Bases: []types.ClassType{objectClass()}}
	classB := types.ClassType{QualName: "B", Bases: []types.ClassType{classA}}

	info := override.ClassInfo{
		Class:      classB,
		Kind:       types.ClassKindRegular,
		MemberKeys: []string{"f"},
		Members: map[string]override.Member{
			"f": {Name: "f", Node: node(), Declared: methodType(strInstance()), IsFunctionDef: true},
		},
		MRO: []override.MROEntry{
			{Kind: types.ClassKindRegular, Class: classA, Members: map[string]override.Member{
				"f": {Name: "f", Node: node(), Declared: methodType(intInstance()), IsFunctionDef: true},
			}},
		},
	}

	diags := override.Check(info)
	if len(diags) != 1 {
		t.Fatalf("expected exactly one diagnostic, got %d: %v", len(diags), diags)
	}
	if diags[0].Rule != diagnostics.RuleInvalidMethodOverride {
		t.Fatalf("expected %s, got %s", diagnostics.RuleInvalidMethodOverride, diags[0].Rule)
	}
	if len(diags[0].Secondary) != 1 {
		t.Fatal("expected a secondary span on A.f")
	}
}

// TestFinalOverride reproduces spec.md §8 scenario 2.
func TestFinalOverride(t *testing.T) {
	classA := types.ClassType{QualName: "A", Bases: []types.ClassType{objectClass()}}
	classB := types.ClassType{QualName: "B", Bases: []types.ClassType{classA}}
	noneMethod := methodType(types.NoneType{})

	info := override.ClassInfo{
		Class:      classB,
		Kind:       types.ClassKindRegular,
		MemberKeys: []string{"f"},
		Members: map[string]override.Member{
			"f": {Name: "f", Node: node(), Declared: noneMethod, IsFunctionDef: true},
		},
		MRO: []override.MROEntry{
			{Kind: types.ClassKindRegular, Class: classA, Members: map[string]override.Member{
				"f": {Name: "f", Node: node(), Declared: noneMethod, IsFunctionDef: true, IsFinalDecorated: true},
			}},
		},
	}

	diags := override.Check(info)
	if len(diags) != 1 || diags[0].Rule != diagnostics.RuleOverrideOfFinalMethod {
		t.Fatalf("expected exactly one override-of-final-method diagnostic, got %v", diags)
	}
}

// TestOverrideViaAssignmentAliasIsNotFinalViolating reproduces spec.md §8
// scenario 3: B.f = A.f is not a function definition, so C(B).f does not
// trigger override-of-final-method even though A.f is @final.
func TestOverrideViaAssignmentAliasIsNotFinalViolating(t *testing.T) {
	classB := types.ClassType{QualName: "B", Bases: []types.ClassType{objectClass()}}
	classC := types.ClassType{QualName: "C", Bases: []types.ClassType{classB}}
	noneMethod := methodType(types.NoneType{})

	info := override.ClassInfo{
		Class:      classC,
		Kind:       types.ClassKindRegular,
		MemberKeys: []string{"f"},
		Members: map[string]override.Member{
			"f": {Name: "f", Node: node(), Declared: noneMethod, IsFunctionDef: true},
		},
		MRO: []override.MROEntry{
			{Kind: types.ClassKindRegular, Class: classB, Members: map[string]override.Member{
				"f": {Name: "f", Node: node(), Declared: noneMethod, IsFunctionDef: false, IsAssignmentAlias: true},
			}},
		},
	}

	diags := override.Check(info)
	for _, d := range diags {
		if d.Rule == diagnostics.RuleOverrideOfFinalMethod {
			t.Fatal("an assignment alias must not trigger override-of-final-method")
		}
	}
}

func TestInvalidNamedTupleMember(t *testing.T) {
	class := types.ClassType{QualName: "Point", IsNamedTup: true, Bases: []types.ClassType{objectClass()}}
	info := override.ClassInfo{
		Class:      class,
		Kind:       types.ClassKindRegular,
		MemberKeys: []string{"_replace"},
		Members: map[string]override.Member{
			"_replace": {Name: "_replace", Node: node(), IsFunctionDef: true},
		},
	}
	diags := override.Check(info)
	if len(diags) != 1 || diags[0].Rule != diagnostics.RuleInvalidNamedTuple {
		t.Fatalf("expected exactly one invalid-named-tuple-member diagnostic, got %v", diags)
	}
}

func TestNamedTupleAnnotationOnlyMemberIsAllowed(t *testing.T) {
	class := types.ClassType{QualName: "Point", IsNamedTup: true, Bases: []types.ClassType{objectClass()}}
	info := override.ClassInfo{
		Class:      class,
		Kind:       types.ClassKindRegular,
		MemberKeys: []string{"_fields"},
		Members: map[string]override.Member{
			"_fields": {Name: "_fields", Node: node(), IsAnnotationOnly: true},
		},
	}
	diags := override.Check(info)
	if len(diags) != 0 {
		t.Fatalf("an annotation-only redeclaration must not be flagged, got %v", diags)
	}
}

func TestInvalidExplicitOverrideWithNoAncestorDeclaration(t *testing.T) {
	class := types.ClassType{QualName: "A", Bases: []types.ClassType{objectClass()}}
	info := override.ClassInfo{
		Class:      class,
		Kind:       types.ClassKindRegular,
		MemberKeys: []string{"f"},
		Members: map[string]override.Member{
			"f": {Name: "f", Node: node(), IsFunctionDef: true, IsOverrideDecorated: true},
		},
		MRO: []override.MROEntry{
			{Kind: types.ClassKindRegular, Class: objectClass(), Members: map[string]override.Member{}},
		},
	}
	diags := override.Check(info)
	if len(diags) != 1 || diags[0].Rule != diagnostics.RuleInvalidExplicitOverride {
		t.Fatalf("expected exactly one invalid-explicit-override diagnostic, got %v", diags)
	}
}

func TestDynamicAncestorSuppressesInvalidExplicitOverride(t *testing.T) {
	class := types.ClassType{QualName: "A"}
	info := override.ClassInfo{
		Class:      class,
		Kind:       types.ClassKindRegular,
		MemberKeys: []string{"f"},
		Members: map[string]override.Member{
			"f": {Name: "f", Node: node(), IsFunctionDef: true, IsOverrideDecorated: true},
		},
		MRO: []override.MROEntry{
			{Kind: types.ClassKindDynamic},
		},
	}
	diags := override.Check(info)
	if len(diags) != 0 {
		t.Fatalf("a dynamic ancestor must suppress invalid-explicit-override, got %v", diags)
	}
}
