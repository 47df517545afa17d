// Package override implements spec.md §4.8's class override checker:
// given a class and its MRO, validate each declared member against its
// ancestors for Liskov compatibility, `@override`/`@final` misuse, and
// illegal overriding of synthesized NamedTuple attributes.
//
// The per-member walk is grounded on the teacher's own nominal-inheritance
// checks in internal/analyzer/declarations_instances_methods.go (which
// walks a trait/instance's superclass chain looking for an incompatible
// method signature and reports the first mismatch, the same "first
// incompatible ancestor wins" rule spec.md asks for here), generalized from
// funxy's single-inheritance instance methods to Python's full MRO and its
// three independent diagnostic kinds.
package override

import (
	"fmt"

	"github.com/tycore/tycore/internal/diagnostics"
	"github.com/tycore/tycore/internal/files"
	"github.com/tycore/tycore/internal/pyast"
	"github.com/tycore/tycore/internal/types"
)

// namedTupleDenyList is the fixed set of NamedTuple-synthesized attribute
// names spec.md §4.8.1 prohibits a NamedTuple subclass from rebinding.
var namedTupleDenyList = map[string]struct{}{
	"__new__": {}, "__init__": {}, "__slots__": {}, "_fields": {},
	"_field_defaults": {}, "_field_types": {}, "_make": {}, "_replace": {},
	"_asdict": {}, "_source": {}, "__getnewargs__": {},
}

// constructorNames are skipped by the Liskov check (spec.md §4.8.2).
var constructorNames = map[string]struct{}{
	"__init__": {}, "__new__": {}, "__post_init__": {}, "__init_subclass__": {},
}

// Member is one class-body binding: a method, a plain assignment, or an
// annotated declaration, as seen at the end of the class's own scope.
type Member struct {
	Name     string
	Node     pyast.Node
	Declared types.Type

	IsFunctionDef       bool
	IsFinalDecorated    bool
	IsOverrideDecorated bool
	// IsAssignmentAlias is true when the member is bound via `name = other`
	// rather than a `def`/annotated declaration — spec.md §4.7 "an alias
	// bound via assignment" is explicitly not a final-method violation,
	// since the ancestor's function object is merely referenced, not
	// redefined.
	IsAssignmentAlias bool
	// IsSynthesizedReplace marks dataclass's synthesized `__replace__`,
	// exempted from the Liskov check alongside the constructor names.
	IsSynthesizedReplace bool
	// IsAnnotationOnly is true for a bare `name: T` with no assigned value
	// — spec.md §4.8.1 only flags a NamedTuple deny-listed name when it is
	// "bound by any non-annotation assignment or by a method definition".
	IsAnnotationOnly bool
}

// MROEntry is one ancestor in the class's method-resolution order, nearest
// first, carrying the subset of its members override.Check needs: whatever
// the caller recorded in Members (internal/infer records the members
// declared in the ancestor's own class body).
type MROEntry struct {
	Kind    types.ClassKind
	Class   types.ClassType
	Members map[string]Member
}

// Member looks up name in this ancestor's recorded Members. Synthesized
// fallback members (NamedTupleFallback/TypedDictFallback) are not added
// here; they are found only if the caller put them in Members.
func (e MROEntry) Member(name string) (Member, bool) {
	m, ok := e.Members[name]
	return m, ok
}

// ClassInfo is Check's input: the subclass itself, its own end-of-scope
// member set, and its MRO (nearest ancestor first), computed elsewhere
// (internal/types, via the class's Bases and any synthesized bases for
// NamedTuple/TypedDict/Protocol/Generic).
type ClassInfo struct {
	Class      types.ClassType
	Kind       types.ClassKind
	File       *files.File
	Members    map[string]Member
	MemberKeys []string // declaration order, for deterministic diagnostics
	MRO        []MROEntry
}

// Check runs the per-member algorithm over every member of class and
// returns the diagnostics it emits, in declaration order.
func Check(class ClassInfo) []diagnostics.Diagnostic {
	bag := diagnostics.NewBag()
	for _, name := range class.MemberKeys {
		member := class.Members[name]
		checkNamedTupleDenyList(bag, class, member)
		checkAgainstMRO(bag, class, member)
	}
	return bag.Diagnostics()
}

func checkNamedTupleDenyList(bag *diagnostics.Bag, class ClassInfo, member Member) {
	if class.Kind != types.ClassKindRegular || !class.Class.IsNamedTup {
		return
	}
	if _, denied := namedTupleDenyList[member.Name]; !denied {
		return
	}
	if member.IsAnnotationOnly {
		return
	}
	bag.Add(diagnostics.Diagnostic{
		Rule:     diagnostics.RuleInvalidNamedTuple,
		Primary:  diagnostics.RangeOf(class.File, member.Node),
		Message:  fmt.Sprintf("%q is a synthesized NamedTuple attribute and cannot be overridden", member.Name),
		Severity: diagnostics.SeverityError,
	})
}

func checkAgainstMRO(bag *diagnostics.Bag, class ClassInfo, member Member) {
	liskovReported := false
	var firstFinalAncestor *MROEntry
	var firstFinalMember Member
	hasDynamicAncestor := false
	declaredByAnyAncestor := false

	for i := range class.MRO {
		ancestor := class.MRO[i]
		if ancestor.Kind == types.ClassKindDynamic {
			hasDynamicAncestor = true
			continue
		}
		ancestorMember, ok := ancestor.Member(member.Name)
		if !ok {
			continue
		}
		declaredByAnyAncestor = true

		if !liskovReported && !isExemptFromLiskov(member) {
			if member.Declared != nil && ancestorMember.Declared != nil {
				if !member.Declared.SubtypeOf(ancestorMember.Declared) {
					bag.Add(diagnostics.Diagnostic{
						Rule:    diagnostics.RuleInvalidMethodOverride,
						Primary: diagnostics.RangeOf(class.File, member.Node),
						Secondary: []diagnostics.SecondaryRange{{
							Range:      diagnostics.RangeOf(class.File, ancestorMember.Node),
							Annotation: fmt.Sprintf("overridden member declared in %s", ancestor.Class.QualName),
						}},
						Message:  fmt.Sprintf("%q is not compatible with the declaration in %s", member.Name, ancestor.Class.QualName),
						Severity: diagnostics.SeverityError,
					})
					liskovReported = true
				}
			}
		}

		if firstFinalAncestor == nil && ancestorMember.IsFunctionDef && ancestorMember.IsFinalDecorated {
			entry := ancestor
			firstFinalAncestor = &entry
			firstFinalMember = ancestorMember
		}
	}

	if firstFinalAncestor != nil {
		bag.Add(diagnostics.Diagnostic{
			Rule:    diagnostics.RuleOverrideOfFinalMethod,
			Primary: diagnostics.RangeOf(class.File, member.Node),
			Secondary: []diagnostics.SecondaryRange{{
				Range:      diagnostics.RangeOf(class.File, firstFinalMember.Node),
				Annotation: fmt.Sprintf("%q is declared @final in %s", member.Name, firstFinalAncestor.Class.QualName),
			}},
			Message:  fmt.Sprintf("%q overrides a method declared @final in %s", member.Name, firstFinalAncestor.Class.QualName),
			Severity: diagnostics.SeverityError,
		})
	}

	if !declaredByAnyAncestor && !hasDynamicAncestor && member.IsFunctionDef && member.IsOverrideDecorated {
		bag.Add(diagnostics.Diagnostic{
			Rule:     diagnostics.RuleInvalidExplicitOverride,
			Primary:  diagnostics.RangeOf(class.File, member.Node),
			Message:  fmt.Sprintf("%q is decorated @override but no ancestor declares it", member.Name),
			Severity: diagnostics.SeverityError,
		})
	}
}

func isExemptFromLiskov(member Member) bool {
	if member.IsSynthesizedReplace {
		return true
	}
	_, isConstructor := constructorNames[member.Name]
	return isConstructor
}
