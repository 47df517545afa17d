package infer

import (
	"github.com/tycore/tycore/internal/semindex"
	"github.com/tycore/tycore/internal/types"
)

// resolver implements types.Resolver for one Inferrer. It is rebound to a
// specific (idx, scope) pair via scoped before each EvalTypeExpression /
// EvalAnnotationExpression call, since name resolution is scope-relative
// but types.Resolver itself carries no scope parameter.
type resolver struct {
	inf     *Inferrer
	globals map[string]types.Type

	idx   *semindex.SemanticIndex
	scope semindex.ScopeID
}

// scoped returns a resolver bound to (idx, scope), reusing the same
// Inferrer and globals. Cheap: called once per EvalTypeExpression/
// EvalAnnotationExpression entry point.
func (r *resolver) scoped(idx *semindex.SemanticIndex, scope semindex.ScopeID) *resolver {
	return &resolver{inf: r.inf, globals: r.globals, idx: idx, scope: scope}
}

// ResolveName looks up name lexically: the innermost enclosing scope that
// declares it wins (module scope, ultimately, for anything at file scope),
// falling back to a well-known special form or builtin class, then to the
// caller-supplied cross-module globals, then Unknown.
func (r *resolver) ResolveName(name string) (types.Type, bool) {
	for s := r.scope; s != semindex.NoScope; s = r.idx.Scopes[s].Parent {
		st := r.idx.SymbolTable(s)
		symID, ok := st.SymbolIDByName(name)
		if !ok {
			continue
		}
		if t, ok := r.defsForSymbol(s, symID); ok {
			return t, true
		}
	}
	if form, ok := specialFormsByName[name]; ok {
		return types.KnownInstance{Form: form}, true
	}
	if class, ok := builtinClassesByName[name]; ok {
		return types.ClassLiteral{Class: class}, true
	}
	if t, ok := r.globals[name]; ok {
		return t, true
	}
	return nil, false
}

// defsForSymbol returns the type of the *last* definition of symID
// declared directly in scope s — the binding a later type-expression
// evaluation at module scope would see after the whole module body has
// executed, matching how the other example type checkers treat module-
// level forward structure (a class can be used in an annotation anywhere
// in the same module regardless of source order).
func (r *resolver) defsForSymbol(s semindex.ScopeID, symID semindex.SymbolID) (types.Type, bool) {
	var last semindex.DefinitionID
	found := false
	for i, d := range r.idx.Definitions {
		if d.Scope == s && d.Symbol == symID {
			last = semindex.DefinitionID(i)
			found = true
		}
	}
	if !found {
		return nil, false
	}
	return r.inf.DefinitionType(r.idx, last), true
}

// ResolveAttribute resolves `base.attr` for the cases tycore's type-form
// evaluation actually needs: a module literal's attribute (so
// `typing.Final` resolves the same as a bare `Final` after `import
// typing`), and a class's nested attribute (forwarded to the type
// system's instance member lookup, out of scope here — Unknown).
func (r *resolver) ResolveAttribute(base types.Type, attr string) (types.Type, bool) {
	if mod, ok := base.(types.ModuleLiteral); ok {
		if isTypingModule(mod.Path) {
			if form, ok := specialFormsByName[attr]; ok {
				return types.KnownInstance{Form: form}, true
			}
		}
		return nil, false
	}
	return nil, false
}

func isTypingModule(path string) bool {
	return path == "typing" || path == "typing_extensions" || path == "dataclasses"
}

// SpecialFormOf reports which SpecialForm v stands for, if it is the bare
// (unsubscripted) use of one — the signal formOfSubscriptTarget needs to
// tell `Union[int, str]` apart from a subscript of some unrelated generic
// alias also named `Union`.
func (r *resolver) SpecialFormOf(v types.Type) (types.SpecialForm, bool) {
	if k, ok := v.(types.KnownInstance); ok {
		return k.Form, true
	}
	return 0, false
}

var specialFormsByName = map[string]types.SpecialForm{
	"Annotated":      types.FormAnnotated,
	"Literal":        types.FormLiteral,
	"LiteralString":  types.FormLiteralString,
	"Optional":       types.FormOptional,
	"Union":          types.FormUnion,
	"NoReturn":       types.FormNoReturn,
	"Never":          types.FormNever,
	"Any":            types.FormAny,
	"Tuple":          types.FormTuple,
	"Type":           types.FormType,
	"Self":           types.FormTypingSelf,
	"Final":          types.FormFinal,
	"ClassVar":       types.FormClassVar,
	"Callable":       types.FormCallable,
	"Concatenate":    types.FormConcatenate,
	"Unpack":         types.FormUnpack,
	"Required":       types.FormRequired,
	"NotRequired":    types.FormNotRequired,
	"TypeAlias":      types.FormTypeAlias,
	"TypeGuard":      types.FormTypeGuard,
	"TypedDict":      types.FormTypedDict,
	"TypeIs":         types.FormTypeIs,
	"ReadOnly":       types.FormReadOnly,
	"Protocol":       types.FormProtocol,
	"Generic":        types.FormGeneric,
}

var builtinClassesByName = map[string]types.ClassType{
	"object": {QualName: "object", Known: types.ClassObject},
	"bool":   {QualName: "bool", Known: types.ClassBool},
	"int":    {QualName: "int", Known: types.ClassInt},
	"float":  {QualName: "float", Known: types.ClassFloat},
	"complex": {QualName: "complex", Known: types.ClassComplex},
	"str":    {QualName: "str", Known: types.ClassStr},
	"bytes":  {QualName: "bytes", Known: types.ClassBytes},
	"list":   {QualName: "list", Known: types.ClassList},
	"tuple":  {QualName: "tuple", Known: types.ClassTuple},
	"dict":   {QualName: "dict", Known: types.ClassDict},
	"set":    {QualName: "set", Known: types.ClassSet},
	"frozenset": {QualName: "frozenset", Known: types.ClassFrozenSet},
	"type":   {QualName: "type", Known: types.ClassTypeObject},
	"BaseException": {QualName: "BaseException", Known: types.ClassBaseException},
}
