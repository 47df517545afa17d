package pyast

import "fmt"

// IndexedModule is a parsed Module plus the dense NodeIndex -> Node arena
// built over it in a single source-order pass, per spec.md §4.3: "built by
// a single source-order traversal that assigns each AST node a dense
// NodeIndex and stores a back-pointer in a flat array". External code
// should only ever hold (ParsedModule, NodeIndex) pairs, never raw node
// pointers, so the arena can be dropped and rebuilt on reparse (§9
// "Self-referential cell for parsed modules").
type IndexedModule struct {
	Module *Module
	nodes  []Node // index i holds the node whose NodeIndex is i
}

// BuildIndex walks mod in Walk's pre-order, assigns each node a NodeIndex, and
// returns the resulting arena. Re-running BuildIndex over a reparse of
// byte-identical source text assigns identical indices to structurally
// identical nodes, which is what makes NodeIndex usable as a cross-reparse
// key (spec.md §8 round-trip property).
func BuildIndex(mod *Module) *IndexedModule {
	im := &IndexedModule{Module: mod}
	Walk(mod, func(n Node) bool {
		slot := n.nodeIndexSlot()
		*slot = NodeIndex(len(im.nodes))
		im.nodes = append(im.nodes, n)
		return true
	})
	return im
}

// Lookup returns the node at the given index, or nil if it is out of range
// (e.g. stale after a structural reparse).
func (im *IndexedModule) Lookup(idx NodeIndex) Node {
	if im == nil || idx < 0 || int(idx) >= len(im.nodes) {
		return nil
	}
	return im.nodes[idx]
}

// Len returns the number of indexed nodes.
func (im *IndexedModule) Len() int {
	if im == nil {
		return 0
	}
	return len(im.nodes)
}

// NodeKey is a positional hash of a node (range + kind) used when callers
// hold only a reference into a possibly-stale AST, per spec.md §4.4: "used
// when only a reference into the AST is available". Unlike NodeIndex it
// survives being computed from a node whose IndexedModule was dropped.
type NodeKey struct {
	Start int
	End   int
	Kind  string
}

// KeyOf derives the NodeKey for n.
func KeyOf(n Node) NodeKey {
	r := n.GetRange()
	return NodeKey{Start: r.Start, End: r.End, Kind: fmt.Sprintf("%T", n)}
}
