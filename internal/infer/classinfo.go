package infer

import (
	"github.com/tycore/tycore/internal/files"
	"github.com/tycore/tycore/internal/override"
	"github.com/tycore/tycore/internal/pyast"
	"github.com/tycore/tycore/internal/semindex"
	"github.com/tycore/tycore/internal/types"
)

// functionLiteral builds the FunctionLiteral for a def, grouping its
// params into Python's five kinds by walking the explicit "/" and "*"
// marker params the parser inserts, retroactively marking everything seen
// before a "/" as positional-only and switching to keyword-only after a
// "*"/`*args`.
func (inf *Inferrer) functionLiteral(idx *semindex.SemanticIndex, scope semindex.ScopeID, f *pyast.FunctionDef) types.FunctionLiteral {
	sig := types.Signature{}
	mode := types.ParamPositionalOrKeyword
	for _, p := range f.Params {
		switch p.Kind {
		case pyast.ParamPosOnlyMarker:
			for j := range sig.Parameters {
				sig.Parameters[j].Kind = types.ParamPositionalOnly
			}
		case pyast.ParamKwOnlyMarker:
			mode = types.ParamKeywordOnly
		case pyast.ParamStarArgs:
			sig.Parameters = append(sig.Parameters, inf.parameter(idx, scope, p, types.ParamArgs))
			mode = types.ParamKeywordOnly
		case pyast.ParamDoubleStarArgs:
			sig.Parameters = append(sig.Parameters, inf.parameter(idx, scope, p, types.ParamKwargs))
		default:
			sig.Parameters = append(sig.Parameters, inf.parameter(idx, scope, p, mode))
		}
	}
	if f.Returns != nil {
		if t, err := types.EvalTypeExpression(inf.resolver.scoped(idx, scope), f.Returns); err == nil {
			sig.ReturnType = t
		}
	}
	if sig.ReturnType == nil {
		sig.ReturnType = types.UnknownType
	}
	fn := types.FunctionLiteral{QualName: f.Name, Signatures: []types.Signature{sig}}
	for _, d := range f.Decorators {
		switch decoratorName(d) {
		case "final":
			fn.IsFinal = true
		case "override":
			fn.IsOverride = true
		}
	}
	return fn
}

func (inf *Inferrer) parameter(idx *semindex.SemanticIndex, scope semindex.ScopeID, p *pyast.Param, kind types.ParameterKind) types.Parameter {
	param := types.Parameter{Name: p.Name, Kind: kind, HasDefault: p.Default != nil, Annotated: types.UnknownType}
	if p.Annotation != nil {
		if t, quals, err := types.EvalAnnotationExpression(inf.resolver.scoped(idx, scope), p.Annotation); err == nil {
			param.Annotated = t
			param.Qualifiers = quals
		}
	}
	return param
}

// classType builds the ClassType for a class definition: its own kind
// (Protocol/Generic/regular), NamedTuple-ness, and resolved bases. Bases
// that don't resolve to a class literal (a dynamic/unknown ancestor) are
// dropped from Bases here; mroChain below records a base it cannot look up
// as a ClassKindDynamic MROEntry.
func (inf *Inferrer) classType(idx *semindex.SemanticIndex, scope semindex.ScopeID, c *pyast.ClassDef) types.ClassType {
	ct := types.ClassType{QualName: c.Name, Kind: types.ClassKindRegular}
	for _, d := range c.Decorators {
		if decoratorName(d) == "final" {
			ct.IsFinal = true
		}
	}
	for _, tp := range c.TypeParams {
		ct.TypeParams = append(ct.TypeParams, typeVarDeclFromParam(scope, tp))
	}
	for _, base := range c.Bases {
		switch baseName(base) {
		case "Protocol":
			ct.Kind = types.ClassKindProtocol
			inf.mergeTypeParamsFromGenericBase(idx, scope, base, &ct)
			continue
		case "Generic":
			if ct.Kind == types.ClassKindRegular {
				ct.Kind = types.ClassKindGeneric
			}
			inf.mergeTypeParamsFromGenericBase(idx, scope, base, &ct)
			continue
		case "NamedTuple":
			ct.IsNamedTup = true
			continue
		case "TypedDict":
			ct.Kind = types.ClassKindTypedDict
			continue
		}
		t, err := types.EvalTypeExpression(inf.resolver.scoped(idx, scope), base)
		if err != nil {
			continue
		}
		if lit, ok := t.(types.ClassLiteral); ok {
			ct.Bases = append(ct.Bases, lit.Class)
		}
	}
	return ct
}

// mergeTypeParamsFromGenericBase recovers a class's type parameters from a
// `Generic[T, ...]`/`Protocol[T, ...]` base when they weren't already
// declared via PEP 695 `class C[T]:` syntax — the classic form, where each
// T is a module-level `T = TypeVar("T", covariant=True)` the resolver
// evaluates to a TypeVarType carrying its own declared variance.
func (inf *Inferrer) mergeTypeParamsFromGenericBase(idx *semindex.SemanticIndex, scope semindex.ScopeID, base pyast.Expr, ct *types.ClassType) {
	if len(ct.TypeParams) > 0 {
		return
	}
	sub, ok := base.(*pyast.Subscript)
	if !ok {
		return
	}
	args, err := types.SubscriptArgs(inf.resolver.scoped(idx, scope), sub.Slice)
	if err != nil {
		return
	}
	for _, a := range args {
		if tv, ok := a.(types.TypeVarType); ok {
			ct.TypeParams = append(ct.TypeParams, tv.Decl)
		}
	}
}

// decoratorName returns the bare name a decorator expression refers to,
// ignoring any module qualification or call arguments: `@final`,
// `@typing.final` and `@final()` all return "final".
func decoratorName(e pyast.Expr) string {
	switch d := e.(type) {
	case *pyast.Name:
		return d.Id
	case *pyast.Attribute:
		return d.Attr
	case *pyast.Call:
		return decoratorName(d.Func)
	default:
		return ""
	}
}

// baseName mirrors decoratorName for a base-class expression, used to spot
// the handful of typing special forms (Protocol, Generic, NamedTuple,
// TypedDict) that classType special-cases before falling back to a plain
// class-literal resolution.
func baseName(e pyast.Expr) string {
	switch b := e.(type) {
	case *pyast.Name:
		return b.Id
	case *pyast.Attribute:
		return b.Attr
	case *pyast.Subscript:
		return baseName(b.Value)
	default:
		return ""
	}
}

// ClassLookup resolves a base class's name to the scope/AST node that
// defines it within the file being checked. internal/engine supplies this
// from the module's top-level (and nested) class definitions; a miss means
// the base is external or dynamic.
type ClassLookup func(name string) (scope semindex.ScopeID, node *pyast.ClassDef, ok bool)

// BuildClassInfo assembles override.ClassInfo for classScope/classDef: the
// class's own end-of-scope member set plus its MRO, linearized by walking
// each base's own chain depth-first and stopping a cycle the moment a
// class reappears in its own ancestry rather than looping forever.
func BuildClassInfo(file *files.File, idx *semindex.SemanticIndex, classScope semindex.ScopeID, classDef *pyast.ClassDef, inf *Inferrer, lookup ClassLookup) override.ClassInfo {
	class := inf.classType(idx, classScope, classDef)
	info := override.ClassInfo{
		Class:   class,
		Kind:    class.Kind,
		File:    file,
		Members: membersOf(idx, classScope, inf),
	}
	info.MemberKeys = memberOrder(idx, classScope)

	visited := map[string]bool{class.QualName: true}
	for _, base := range classDef.Bases {
		info.MRO = append(info.MRO, mroChain(idx, inf, lookup, base, visited)...)
	}
	return info
}

func membersOf(idx *semindex.SemanticIndex, scope semindex.ScopeID, inf *Inferrer) map[string]override.Member {
	members := make(map[string]override.Member)
	for i, d := range idx.Definitions {
		if d.Scope != scope {
			continue
		}
		name := idx.Symbol(d.Symbol).Name
		members[name] = memberFor(idx, semindex.DefinitionID(i), d, inf)
	}
	return members
}

func memberOrder(idx *semindex.SemanticIndex, scope semindex.ScopeID) []string {
	var order []string
	seen := make(map[string]bool)
	for _, d := range idx.Definitions {
		if d.Scope != scope {
			continue
		}
		name := idx.Symbol(d.Symbol).Name
		if !seen[name] {
			seen[name] = true
			order = append(order, name)
		}
	}
	return order
}

func memberFor(idx *semindex.SemanticIndex, id semindex.DefinitionID, d semindex.Definition, inf *Inferrer) override.Member {
	m := override.Member{
		Name:     idx.Symbol(d.Symbol).Name,
		Node:     d.Node,
		Declared: inf.DefinitionType(idx, id),
	}
	switch d.Kind {
	case semindex.DefFunctionDef:
		m.IsFunctionDef = true
		if fd, ok := d.Node.(*pyast.FunctionDef); ok {
			for _, dec := range fd.Decorators {
				switch decoratorName(dec) {
				case "final":
					m.IsFinalDecorated = true
				case "override":
					m.IsOverrideDecorated = true
				}
			}
		}
	case semindex.DefAssignment:
		if a, ok := d.Node.(*pyast.Assign); ok {
			if _, isName := a.Value.(*pyast.Name); isName {
				m.IsAssignmentAlias = true
			}
		}
	case semindex.DefAnnotatedAssignment:
		if a, ok := d.Node.(*pyast.AnnAssign); ok && a.Value == nil {
			m.IsAnnotationOnly = true
		}
	}
	return m
}

// mroChain resolves one base expression into zero or more MROEntry values:
// a class found via lookup contributes itself followed by its own bases'
// chains (depth-first, pre-order, nearest ancestor first); anything else
// (an external import, a dynamically computed base, a cycle) contributes a
// single ClassKindDynamic entry with no known members, so the Liskov check
// simply finds nothing to compare against rather than failing.
func mroChain(idx *semindex.SemanticIndex, inf *Inferrer, lookup ClassLookup, base pyast.Expr, visited map[string]bool) []override.MROEntry {
	name := baseName(base)
	scope, node, ok := lookup(name)
	if !ok || visited[name] {
		return []override.MROEntry{{Kind: types.ClassKindDynamic, Class: types.ClassType{QualName: name, Kind: types.ClassKindDynamic}}}
	}
	visited[name] = true
	baseIdx := idx
	ct := inf.classType(baseIdx, scope, node)
	entry := override.MROEntry{Kind: ct.Kind, Class: ct, Members: membersOf(baseIdx, scope, inf)}
	chain := []override.MROEntry{entry}
	for _, b := range node.Bases {
		chain = append(chain, mroChain(baseIdx, inf, lookup, b, visited)...)
	}
	return chain
}
