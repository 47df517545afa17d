// Package infer implements the type-inference stage of the analysis
// pipeline: given a semantic index (internal/semindex) and its per-scope
// use-def maps (internal/usedef), it answers `infer_expression_type` and
// per-Definition inference by walking reaching definitions and applying
// narrowing constraints before handing the result to internal/types'
// subtyping and internal/override's Liskov check.
//
// The driver is a scope-threaded visitor that infers a declaration's type
// once and memoizes it in a per-module cache. It never unifies a single
// "the" type for a symbol; it instead infers one type per Definition and
// lets internal/usedef's reaching-definition sets decide which of those
// apply at a given use — Python's gradual, definition-keyed typing model
// rather than a Hindley-Milner unify-and-substitute loop.
package infer

import (
	"github.com/tycore/tycore/internal/pyast"
	"github.com/tycore/tycore/internal/semindex"
	"github.com/tycore/tycore/internal/types"
	"github.com/tycore/tycore/internal/usedef"
)

// ScopeGraph is the minimal surface Inferrer needs to fetch another scope's
// use-def map and semantic index, narrowed so callers (internal/engine) can
// supply memoized, query-tracked results instead of recomputing on every
// call.
type ScopeGraph interface {
	Index() *semindex.SemanticIndex
	UseDefFor(scope semindex.ScopeID) *usedef.UseDefMap
}

// Inferrer answers type questions about one file's definitions and
// expressions. It is not itself a query: internal/engine builds a fresh
// Inferrer per Db.Infer / Db.InferExpressionType call and per check_file
// run, so its results are memoized only in its own per-definition cache.
type Inferrer struct {
	graph    ScopeGraph
	resolver *resolver

	defCache  map[semindex.DefinitionID]types.Type
	defActive map[semindex.DefinitionID]bool // cycle guard
}

// NewInferrer builds an Inferrer over graph. globals supplies module-level
// names resolvable from import resolution (a caller of internal/engine's
// Db.Infer may pass them; engine's own check_file and InferExpressionType
// pass nil); a nil/empty map means every
// unresolved name evaluates to Unknown, which is always sound (just
// imprecise).
func NewInferrer(graph ScopeGraph, globals map[string]types.Type) *Inferrer {
	inf := &Inferrer{
		graph:     graph,
		defCache:  make(map[semindex.DefinitionID]types.Type),
		defActive: make(map[semindex.DefinitionID]bool),
	}
	inf.resolver = &resolver{inf: inf, globals: globals}
	return inf
}

// DefinitionType infers the type of one Definition, memoizing the result.
// A self-referential definition (e.g. a class using itself in its own
// annotation) resolves to Unknown rather than recursing forever: inference
// must never hang on a cycle, whether in an MRO or in definitions that
// reference each other.
func (inf *Inferrer) DefinitionType(idx *semindex.SemanticIndex, id semindex.DefinitionID) types.Type {
	if t, ok := inf.defCache[id]; ok {
		return t
	}
	if inf.defActive[id] {
		return types.UnknownType
	}
	inf.defActive[id] = true
	t := inf.inferDefinition(idx, idx.Definition(id))
	delete(inf.defActive, id)
	inf.defCache[id] = t
	return t
}

func (inf *Inferrer) inferDefinition(idx *semindex.SemanticIndex, def semindex.Definition) types.Type {
	switch d := def.Node.(type) {
	case *pyast.Assign:
		if tv, ok := typeVarFromCall(def.Scope, d.Value); ok {
			return tv
		}
		return inf.ExpressionType(idx, def.Scope, d.Value)
	case *pyast.AnnAssign:
		t, _, err := types.EvalAnnotationExpression(inf.resolver.scoped(idx, def.Scope), d.Annotation)
		if err != nil {
			return types.UnknownType
		}
		return t
	case *pyast.AugAssign:
		return inf.ExpressionType(idx, def.Scope, d.Value)
	case *pyast.NamedExpr:
		return inf.ExpressionType(idx, def.Scope, d.Value)
	case *pyast.FunctionDef:
		return inf.functionLiteral(idx, def.Scope, d)
	case *pyast.ClassDef:
		return types.ClassLiteral{Class: inf.classType(idx, def.Scope, d)}
	case *pyast.Param:
		if d.Annotation != nil {
			t, err := types.EvalTypeExpression(inf.resolver.scoped(idx, def.Scope), d.Annotation)
			if err == nil {
				return t
			}
		}
		return types.UnknownType
	case *pyast.For:
		return types.UnknownType // iterated-element type needs __iter__ resolution, out of scope
	case *pyast.With:
		return types.UnknownType
	case *pyast.ExceptHandler:
		if d.Type != nil {
			t, err := types.EvalTypeExpression(inf.resolver.scoped(idx, def.Scope), *d.Type)
			if err == nil {
				return t
			}
		}
		return types.UnknownType
	case *pyast.TypeParam:
		return types.TypeVarType{Decl: typeVarDeclFromParam(def.Scope, d)}
	default:
		return types.UnknownType
	}
}

// CheckAnnotationForm re-evaluates expr as an annotation in scope purely to
// surface a malformed form (a qualifier given the wrong argument count, two
// qualifiers nested inside each other) as an error, independent of whatever
// type inferring the same annotation for DefinitionType produces. Internal/
// engine calls this over every AnnAssign/Param annotation in a file to
// populate the invalid-type-form diagnostic.
func (inf *Inferrer) CheckAnnotationForm(idx *semindex.SemanticIndex, scope semindex.ScopeID, expr pyast.Expr) error {
	_, _, err := types.EvalAnnotationExpression(inf.resolver.scoped(idx, scope), expr)
	return err
}

// ExpressionType infers the type of one expression within scope: literals
// evaluate directly; a Name in load context consults the scope's use-def
// map for its reaching definitions, infers each, narrows each by its
// dominating constraints, and unions the results — starting from the
// inferred type at each reaching definition and progressively refining it
// through every constraint that dominates the use.
func (inf *Inferrer) ExpressionType(idx *semindex.SemanticIndex, scope semindex.ScopeID, expr pyast.Expr) types.Type {
	if expr == nil {
		return types.UnknownType
	}
	switch e := expr.(type) {
	case *pyast.Constant:
		return literalType(e)
	case *pyast.Name:
		if e.Ctx != pyast.CtxLoad {
			return types.UnknownType
		}
		return inf.nameUseType(idx, scope, e)
	case *pyast.TupleExpr:
		elems := make([]types.Type, len(e.Elts))
		for i, el := range e.Elts {
			elems[i] = inf.ExpressionType(idx, scope, el)
		}
		return types.Tuple{Elements: elems}
	case *pyast.BoolOp:
		// `a and b` / `a or b`: Python's value is whichever operand is
		// returned at runtime, so the static type is the union of every
		// operand's type.
		var t types.Type = types.Never{}
		for _, v := range e.Values {
			t = t.Union(inf.ExpressionType(idx, scope, v))
		}
		return t
	case *pyast.IfExp:
		return inf.ExpressionType(idx, scope, e.Body).Union(inf.ExpressionType(idx, scope, e.Orelse))
	case *pyast.Attribute:
		base := inf.ExpressionType(idx, scope, e.Value)
		if t, ok := inf.resolver.ResolveAttribute(base, e.Attr); ok {
			return t
		}
		return types.UnknownType
	default:
		return types.UnknownType
	}
}

// nameUseType looks up the use-def state recorded for nameExpr (a Name
// node in load context) in scope's use-def map, and narrows/unions across
// its reaching definitions.
func (inf *Inferrer) nameUseType(idx *semindex.SemanticIndex, scope semindex.ScopeID, nameExpr *pyast.Name) types.Type {
	ud := inf.graph.UseDefFor(scope)
	if ud == nil {
		return types.UnknownType
	}
	state, ok := ud.StateAt(nameExpr)
	if !ok || state.Defs.IsEmpty() {
		return types.UnknownType
	}
	var result types.Type = types.Never{}
	for _, defID := range state.VisibleDefs() {
		base := inf.DefinitionType(idx, defID)
		narrowed := inf.narrow(idx, scope, base, ud, state.ConstraintsFor(defID))
		result = result.Union(narrowed)
	}
	return result
}

// narrow applies every constraint in ids (the per-definition bitset
// recorded by a use's dominating narrowing tests) to base in turn,
// refining the type along the way.
func (inf *Inferrer) narrow(idx *semindex.SemanticIndex, scope semindex.ScopeID, base types.Type, ud *usedef.UseDefMap, ids usedef.BitSet) types.Type {
	t := base
	ids.ForEach(func(i int) {
		c := ud.AllConstraints[i]
		t = inf.applyConstraint(idx, scope, t, c)
	})
	return t
}

// applyConstraint narrows t by one recognized predicate shape: `is [not]
// None`, `isinstance(x, T)`, and bare truthiness. Unrecognized shapes
// (`is` against anything but None, equality to an arbitrary literal,
// anything narrowing.go's
// constraintFromTest didn't model) leave t unchanged — conservative,
// never unsound.
func (inf *Inferrer) applyConstraint(idx *semindex.SemanticIndex, scope semindex.ScopeID, t types.Type, c usedef.Constraint) types.Type {
	switch test := c.Expr.(type) {
	case *pyast.Compare:
		if len(test.Ops) != 1 || len(test.Comparators) != 1 {
			return t
		}
		isNoneTest := test.Ops[0] == "is" || test.Ops[0] == "is not"
		if !isNoneTest {
			return t
		}
		if cmp, ok := test.Comparators[0].(*pyast.Constant); !ok || cmp.Kind != pyast.ConstNone {
			return t
		}
		holdsIsNone := test.Ops[0] == "is"
		if c.Negated {
			holdsIsNone = !holdsIsNone
		}
		if holdsIsNone {
			return types.NoneType{}
		}
		return stripNone(t)
	case *pyast.Call:
		fn, ok := test.Func.(*pyast.Name)
		if !ok || fn.Id != "isinstance" || len(test.Args) != 2 {
			return t
		}
		cls, err := types.EvalTypeExpression(inf.resolver.scoped(idx, scope), test.Args[1])
		if err != nil {
			return t
		}
		if c.Negated {
			// Narrowing the false branch of isinstance would need a type
			// difference operation the type system doesn't expose; leave
			// t unchanged rather than guessing.
			return t
		}
		return cls
	case *pyast.Name, *pyast.UnaryOp:
		truthy := !c.Negated
		if truthy {
			return types.AlwaysTruthy{Inner: t}
		}
		return types.AlwaysFalsy{Inner: t}
	default:
		return t
	}
}

// stripNone removes NoneType from a union, narrowing `T | None` to `T`
// after an `is not None` test.
func stripNone(t types.Type) types.Type {
	u, ok := t.(types.Union)
	if !ok {
		if _, isNone := t.(types.NoneType); isNone {
			return types.Never{}
		}
		return t
	}
	kept := make([]types.Type, 0, len(u.Members))
	for _, m := range u.Members {
		if _, isNone := m.(types.NoneType); !isNone {
			kept = append(kept, m)
		}
	}
	return types.NormalizeUnion(kept)
}

func literalType(c *pyast.Constant) types.Type {
	switch c.Kind {
	case pyast.ConstInt:
		return types.IntLiteral{Value: c.Value.(int64)}
	case pyast.ConstFloat:
		return types.Instance{Class: types.ClassType{QualName: "float", Known: types.ClassFloat}}
	case pyast.ConstString:
		return types.StringLiteral{Value: c.Value.(string)}
	case pyast.ConstBytes:
		if b, ok := c.Value.([]byte); ok {
			return types.BytesLiteral{Value: string(b)}
		}
		return types.Instance{Class: types.ClassType{QualName: "bytes", Known: types.ClassBytes}}
	case pyast.ConstBool:
		return types.BoolLiteral{Value: c.Value.(bool)}
	case pyast.ConstNone:
		return types.NoneType{}
	case pyast.ConstEllipsis:
		return types.UnknownType
	default:
		return types.UnknownType
	}
}

// typeVarDeclFromParam builds a TypeVarDecl for a PEP 695 type parameter
// (`class C[T]:` / `def f[T]:`). PEP 695 syntax has no way to declare
// variance explicitly, so the declaration carries VarianceInferred — a
// caller relating specialized instances treats that the same as invariant,
// the conservative default, until real use-site variance inference is
// wired in.
func typeVarDeclFromParam(scope semindex.ScopeID, p *pyast.TypeParam) types.TypeVarDecl {
	kind := types.TypeVarPlain
	switch p.Kind {
	case pyast.TypeParamVarTuple:
		kind = types.TypeVarTuple
	case pyast.TypeParamParamSpec:
		kind = types.ParamSpec
	}
	return types.TypeVarDecl{
		ID:       types.TypeVarID{Name: p.Name, Scope: int(scope)},
		Kind:     kind,
		Variance: types.VarianceInferred,
	}
}

// typeVarFromCall recognizes the classic `T = TypeVar("T", covariant=True)`
// / TypeVarTuple / ParamSpec declaration form and builds the TypeVarType it
// denotes. This is the one source of explicitly declared (non-inferred)
// variance the grammar supports: PEP 695's `class C[T]:` form has no syntax
// for it at all.
func typeVarFromCall(scope semindex.ScopeID, value pyast.Expr) (types.Type, bool) {
	call, ok := value.(*pyast.Call)
	if !ok {
		return nil, false
	}
	fn, ok := call.Func.(*pyast.Name)
	if !ok {
		return nil, false
	}
	var kind types.TypeVarKind
	switch fn.Id {
	case "TypeVar":
		kind = types.TypeVarPlain
	case "TypeVarTuple":
		kind = types.TypeVarTuple
	case "ParamSpec":
		kind = types.ParamSpec
	default:
		return nil, false
	}
	name := fn.Id
	if len(call.Args) > 0 {
		if c, ok := call.Args[0].(*pyast.Constant); ok && c.Kind == pyast.ConstString {
			if s, ok := c.Value.(string); ok {
				name = s
			}
		}
	}
	variance := types.VarianceInvariant
	for _, kw := range call.Keywords {
		b, ok := kw.Value.(*pyast.Constant)
		if !ok || b.Kind != pyast.ConstBool {
			continue
		}
		truthy, _ := b.Value.(bool)
		if !truthy {
			continue
		}
		switch kw.Name {
		case "covariant":
			variance = types.VarianceCovariant
		case "contravariant":
			variance = types.VarianceContravariant
		}
	}
	return types.TypeVarType{Decl: types.TypeVarDecl{
		ID:       types.TypeVarID{Name: name, Scope: int(scope)},
		Kind:     kind,
		Variance: variance,
	}}, true
}
