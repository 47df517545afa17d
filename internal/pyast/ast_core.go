// Package pyast defines the Python abstract syntax tree produced by
// internal/pyparse, together with the dense node-index arena that gives
// nodes a stable identity independent of Go pointers, so other packages
// can hold a back-reference into a parsed module without the cyclic-
// ownership problems a pointer-based reference would create.
//
// The shape is a narrow Node interface, statement/expression marker
// methods, and visitor-style dispatch over Python's statement/expression
// grammar.
package pyast

import "github.com/tycore/tycore/internal/token"

// NodeIndex is a dense, source-order identity assigned to every node of a
// parsed module by BuildIndex (see nodeindex.go). It is the stable key external
// callers use to refer back into an AST across a load/collect cycle
// (spec.md §9, "Self-referential cell for parsed modules").
type NodeIndex int

// NoIndex marks a node that has not yet been indexed.
const NoIndex NodeIndex = -1

// Range is a half-open byte range [Start, End) into the source text.
type Range struct {
	Start int
	End   int
}

// Node is the base interface for every AST node.
type Node interface {
	GetToken() token.Token
	GetRange() Range
	// nodeIndexSlot returns a pointer to the node's own index slot so
	// BuildIndex can assign it in a single pass without a side table keyed by
	// node identity (which would require nodes to be comparable/hashable).
	nodeIndexSlot() *NodeIndex
	Accept(v Visitor)
}

// Stmt is a Node that is a statement.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is a Node that is an expression.
type Expr interface {
	Node
	exprNode()
}

// base is embedded by every concrete node to provide its index slot and
// common bookkeeping, the way the teacher embeds a Token field.
type base struct {
	Tok   token.Token
	Rng   Range
	index NodeIndex
}

func (b *base) GetToken() token.Token      { return b.Tok }
func (b *base) GetRange() Range            { return b.Rng }
func (b *base) nodeIndexSlot() *NodeIndex  { return &b.index }

// Index returns the node's dense index, or NoIndex if the owning module has
// not been indexed yet.
func Index(n Node) NodeIndex {
	if n == nil {
		return NoIndex
	}
	return *n.nodeIndexSlot()
}

// Module is the root of every parsed file.
type Module struct {
	base
	Path  string
	Body  []Stmt
}

func (m *Module) Accept(v Visitor) { v.VisitModule(m) }

// TypeParam is a PEP 695 type-parameter declaration (the "Annotation" scope
// contents per spec.md §3).
type TypeParam struct {
	base
	Name   string
	Bound  Expr // optional
	Kind   TypeParamKind
	Default Expr // optional, PEP 696
}

func (t *TypeParam) Accept(v Visitor) { v.VisitTypeParam(t) }

// TypeParamKind distinguishes plain typevars from *args/**kwargs style
// PEP 695 parameters.
type TypeParamKind int

const (
	TypeParamNormal TypeParamKind = iota
	TypeParamVarTuple
	TypeParamParamSpec
)
