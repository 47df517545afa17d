// Package semindex builds spec.md §4.4's per-file semantic index: the scope
// tree, symbol tables, and definition list produced by a single
// source-order visitor over a parsed module.
//
// The builder is a hand-written recursive descent over internal/pyast,
// following the shape of the teacher's own scope-stack symbol-table builder
// (internal/symbols/symbol_table_core.go, symbol_table_init.go: a stack of
// *Scope with Define/Resolve) generalized from funxy's let/fun/block scopes
// to Python's module/class/function/lambda/comprehension/annotation scopes
// and its load/store/del name semantics.
package semindex

import (
	"github.com/tycore/tycore/internal/pyast"
)

// ScopeKind is one of the six scope flavors spec.md §3 names.
type ScopeKind int

const (
	ScopeModule ScopeKind = iota
	ScopeClass
	ScopeFunction
	ScopeAnnotation // PEP 695 type-parameter scope
	ScopeLambda
	ScopeComprehension
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeModule:
		return "module"
	case ScopeClass:
		return "class"
	case ScopeFunction:
		return "function"
	case ScopeAnnotation:
		return "annotation"
	case ScopeLambda:
		return "lambda"
	case ScopeComprehension:
		return "comprehension"
	default:
		return "unknown"
	}
}

// ScopeID identifies a scope within one file's semantic index. The module
// scope is always id 0 (spec.md §4.4 invariant).
type ScopeID int

const NoScope ScopeID = -1

// Scope is one entry in the scope tree. DescStart/DescEnd give the
// contiguous [start, end) range of this scope's own id plus every
// descendant's id, in id order — the O(1) subtree test spec.md §3
// describes, valid because scopes are numbered in a single pre-order pass.
type Scope struct {
	Kind      ScopeKind
	Name      string // function/class name, "<lambda>", "<listcomp>", "<module>", ...
	Parent    ScopeID
	Children  []ScopeID
	DescStart ScopeID
	DescEnd   ScopeID
	// Body is the scope's own statement list (module/function/class
	// scopes only; lambda and comprehension scopes are expression-bodied
	// and leave this nil) — recorded so a use-def builder (internal/usedef)
	// can be driven straight from a ScopeID without re-walking the AST to
	// rediscover which statements belong to it.
	Body []pyast.Stmt
	// Node is the FunctionDef/ClassDef that introduced this scope, nil for
	// the module scope. Used to read decorators, bases, and annotations
	// when building override/type information for the scope's owner.
	Node pyast.Node
}

// ContainsScope reports whether candidate is s or a descendant of s.
func (sc Scope) ContainsScope(candidate ScopeID) bool {
	return candidate >= sc.DescStart && candidate < sc.DescEnd
}

// SymbolFlags records the USED/DEFINED/MARKED_* bits spec.md §3 assigns per
// symbol.
type SymbolFlags uint8

const (
	FlagUsed SymbolFlags = 1 << iota
	FlagDefined
	FlagMarkedGlobal
	FlagMarkedNonlocal
)

// SymbolID identifies a symbol within one file's semantic index.
type SymbolID int

// Symbol is one (scope, name) binding site; names are unique within a
// scope, so (Scope, Name) is the primary lookup key.
type Symbol struct {
	Name  string
	Scope ScopeID
	Flags SymbolFlags
}

// DefinitionKind is the tagged-variant discriminator for Definition.
type DefinitionKind int

const (
	DefFunctionDef DefinitionKind = iota
	DefClassDef
	DefAssignment
	DefAnnotatedAssignment
	DefAugmentedAssignment
	DefNamedExpr
	DefImport
	DefImportFrom
	DefForTarget
	DefWithTarget
	DefExceptHandler
	DefParameter
	DefTypeParameter
)

func (k DefinitionKind) String() string {
	names := [...]string{
		"FunctionDef", "ClassDef", "Assignment", "AnnotatedAssignment",
		"AugmentedAssignment", "NamedExpr", "Import", "ImportFrom",
		"ForTarget", "WithTarget", "ExceptHandler", "Parameter", "TypeParameter",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// DefinitionID identifies a Definition within one file's semantic index.
type DefinitionID int

// Definition carries a stable reference to the AST node that created a
// binding, per spec.md §3. AliasIndex/NameIndex disambiguate which
// import-alias within an Import/ImportFrom statement this definition
// covers, matching spec.md's `Import { stmt, alias_index }` /
// `ImportFrom { stmt, name_index }` shape.
type Definition struct {
	Kind       DefinitionKind
	Symbol     SymbolID
	Scope      ScopeID
	Node       pyast.Node
	AliasIndex int // valid for DefImport
	NameIndex  int // valid for DefImportFrom
}

// AstID is the stable (scope, local_index) key spec.md §3 defines, with
// separate index spaces for statements and expressions.
type AstID struct {
	Scope  ScopeID
	Index  int
	IsExpr bool
}

// SemanticIndex is the complete per-file output of Build: the scope tree,
// one SymbolTable per scope, the flat definition list, and the two
// NodeKey-based reverse maps spec.md §4.4 names for callers that only hold
// a reference into the AST.
type SemanticIndex struct {
	Scopes      []Scope
	Definitions []Definition

	symbolsByID  []Symbol
	scopeSymbols []map[string]SymbolID // parallel to Scopes: name -> symbol in that scope
	scopeOrder   [][]SymbolID          // parallel to Scopes: declaration order

	astIDs             map[pyast.NodeKey]AstID
	scopesByExpression map[pyast.NodeKey]ScopeID
	scopesByDefinition map[pyast.NodeKey]ScopeID
}

// SymbolTable is the read-only view of one scope's symbols, returned by
// the `symbol_table(db, scope)` query (spec.md §6).
type SymbolTable struct {
	idx   *SemanticIndex
	scope ScopeID
}

// SymbolTable returns the view over scope's symbols.
func (si *SemanticIndex) SymbolTable(scope ScopeID) SymbolTable {
	return SymbolTable{idx: si, scope: scope}
}

// SymbolIDByName returns the symbol id bound to name directly in this
// scope, if any exists — per spec.md §8 invariant, this is Some iff there
// is at least one definition or use of name in the scope.
func (st SymbolTable) SymbolIDByName(name string) (SymbolID, bool) {
	id, ok := st.idx.scopeSymbols[st.scope][name]
	return id, ok
}

// Symbol returns the full Symbol record for id.
func (si *SemanticIndex) Symbol(id SymbolID) Symbol {
	return si.symbolsByID[id]
}

// Symbols returns every symbol declared in scope, in declaration order.
func (st SymbolTable) Symbols() []SymbolID {
	return st.idx.scopeOrder[st.scope]
}

// Definition returns the Definition record for id.
func (si *SemanticIndex) Definition(id DefinitionID) Definition {
	return si.Definitions[id]
}

// AstIDOf returns the stable AstID previously assigned to node, if Build
// indexed it.
func (si *SemanticIndex) AstIDOf(node pyast.Node) (AstID, bool) {
	id, ok := si.astIDs[pyast.KeyOf(node)]
	return id, ok
}

// ScopeOfExpression returns the scope an expression node was indexed under.
func (si *SemanticIndex) ScopeOfExpression(node pyast.Node) (ScopeID, bool) {
	id, ok := si.scopesByExpression[pyast.KeyOf(node)]
	return id, ok
}

// ScopeOfDefinition returns the scope a definition-creating node was
// indexed under.
func (si *SemanticIndex) ScopeOfDefinition(node pyast.Node) (ScopeID, bool) {
	id, ok := si.scopesByDefinition[pyast.KeyOf(node)]
	return id, ok
}
