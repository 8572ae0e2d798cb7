package hostast

// CallableKind classifies the containers the Sequence Extractor walks
// (spec §4.1): methods, constructors, static/instance initializers, block
// lambdas, and anonymous-class members are all independent extraction
// units (see DESIGN.md's Open Question decision on lambda containers).
type CallableKind int

const (
	Method CallableKind = iota
	Constructor
	StaticInitializer
	InstanceInitializer
	BlockLambda
	AnonymousClassMethod
)

// Callable is one extraction unit: a method, constructor, initializer,
// block-bodied lambda, or anonymous-class member.
type Callable struct {
	Node NodeIndex
	Kind CallableKind

	// Statements are the top-level statement node indices of the
	// callable's body, in source order. Empty when HasBody is false.
	Statements []NodeIndex

	HasBody bool
	IsTest  bool
}

// Tree is one translation unit's arena-resident AST plus its source path.
type Tree struct {
	// Path is the absolute, normalized source path of this translation
	// unit, carried by every StatementSequence derived from it.
	Path string

	arena     []Node
	callables []Callable
}

// NewTree creates an empty tree for path.
func NewTree(path string) *Tree {
	return &Tree{Path: path}
}

// AddNode appends a node to the arena and returns its index.
func (t *Tree) AddNode(n Node) NodeIndex {
	t.arena = append(t.arena, n)
	idx := NodeIndex(len(t.arena) - 1)
	if n.Parent != NoNode && int(n.Parent) < len(t.arena) {
		t.arena[n.Parent].Children = append(t.arena[n.Parent].Children, idx)
	}
	return idx
}

// Node returns the node at idx. Panics on an out-of-range index, as any
// NodeIndex the pipeline holds must have been produced by this same Tree.
func (t *Tree) Node(idx NodeIndex) Node {
	return t.arena[idx]
}

// NodeCount returns the number of nodes in the arena.
func (t *Tree) NodeCount() int {
	return len(t.arena)
}

// AddCallable registers a callable (method, constructor, initializer,
// lambda, or anonymous-class member) for extraction.
func (t *Tree) AddCallable(c Callable) {
	t.callables = append(t.callables, c)
}

// Callables returns every registered callable, in the order they were
// added (source order, by convention of the parser adaptor).
func (t *Tree) Callables() []Callable {
	return t.callables
}

// Walk visits idx and every descendant in pre-order, calling visit for
// each node. An unrecognized Kind is never special-cased here — Walk
// always descends into Children, which is exactly the "unknown nodes are
// silently skipped; their children are still visited" contract of spec §6.
func (t *Tree) Walk(idx NodeIndex, visit func(NodeIndex, Node)) {
	if idx == NoNode || int(idx) >= len(t.arena) {
		return
	}
	n := t.arena[idx]
	visit(idx, n)
	for _, child := range n.Children {
		t.Walk(child, visit)
	}
}

// ReferencedNames collects every NameExpr/FieldAccess/VarDecl/Param
// identifier reachable from idx's subtree, used by the boundary refiner
// (spec §4.8) to determine which names a statement references and defines.
func (t *Tree) ReferencedNames(idx NodeIndex) []string {
	var names []string
	t.Walk(idx, func(_ NodeIndex, n Node) {
		switch n.Kind {
		case NameExpr, FieldAccess, VarDecl, Param:
			if n.Name != "" {
				names = append(names, n.Name)
			}
		}
	})
	return names
}

// DefinedNames collects the names a single statement *introduces*: its
// VarDecl/Param nodes. Used by the boundary refiner to grow the
// defined-earlier set as it scans forward through a sequence.
func (t *Tree) DefinedNames(idx NodeIndex) []string {
	var names []string
	t.Walk(idx, func(_ NodeIndex, n Node) {
		if n.Kind == VarDecl || n.Kind == Param {
			if n.Name != "" {
				names = append(names, n.Name)
			}
		}
	})
	return names
}
