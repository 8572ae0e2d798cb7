package hostast

// Builder provides convenience constructors for assembling synthetic trees
// in tests, where no real host-language parser is available. Production
// parser adaptors populate a Tree directly via AddNode/AddCallable.
type Builder struct {
	tree *Tree
	line int
}

// NewBuilder creates a Builder over a fresh Tree for path.
func NewBuilder(path string) *Builder {
	return &Builder{tree: NewTree(path)}
}

// Tree returns the tree under construction.
func (b *Builder) Tree() *Tree {
	return b.tree
}

func (b *Builder) nextLine() int {
	b.line++
	return b.line
}

// Leaf adds a single leaf node (no children) with the given kind and name,
// returning its index. Useful for identifiers, literals, and keywords.
func (b *Builder) Leaf(parent NodeIndex, kind NodeKind, name string) NodeIndex {
	line := b.nextLine()
	return b.tree.AddNode(Node{
		Kind:    kind,
		Parent:  parent,
		Name:    name,
		Literal: name,
		Pos:     Position{Line: line, Column: 1},
		EndPos:  Position{Line: line, Column: len(name) + 1},
	})
}

// ExprStatement adds an expression-statement node wrapping a single child
// expression built by buildChild(parentIdx). Returns the statement's index.
func (b *Builder) ExprStatement(parent NodeIndex, buildChild func(*Builder, NodeIndex) NodeIndex) NodeIndex {
	line := b.nextLine()
	stmt := b.tree.AddNode(Node{Kind: ExprStmt, Parent: parent, Pos: Position{Line: line}, EndPos: Position{Line: line}})
	buildChild(b, stmt)
	return stmt
}

// MethodCall adds a MethodCallExpr node named name under parent.
func (b *Builder) MethodCall(parent NodeIndex, name string) NodeIndex {
	line := b.nextLine()
	return b.tree.AddNode(Node{Kind: MethodCallExpr, Parent: parent, Name: name, Pos: Position{Line: line}, EndPos: Position{Line: line}})
}

// VarDeclaration adds a Declaration statement introducing a VarDecl named
// name under parent.
func (b *Builder) VarDeclaration(parent NodeIndex, name string) NodeIndex {
	line := b.nextLine()
	decl := b.tree.AddNode(Node{Kind: Declaration, Parent: parent, Pos: Position{Line: line}, EndPos: Position{Line: line}})
	b.tree.AddNode(Node{Kind: VarDecl, Parent: decl, Name: name, Pos: Position{Line: line}, EndPos: Position{Line: line}})
	return decl
}

// StringLiteral adds a StringLit leaf with the given raw value under
// parent.
func (b *Builder) StringLiteral(parent NodeIndex, value string) NodeIndex {
	return b.Leaf(parent, StringLit, value)
}

// NameReference adds a NameExpr leaf referencing name under parent.
func (b *Builder) NameReference(parent NodeIndex, name string) NodeIndex {
	return b.Leaf(parent, NameExpr, name)
}

// If adds an If statement under parent; condBuilder/thenBuilder attach a
// condition expression and a then-block, respectively.
func (b *Builder) If(parent NodeIndex, condBuilder, thenBuilder func(*Builder, NodeIndex)) NodeIndex {
	line := b.nextLine()
	ifNode := b.tree.AddNode(Node{Kind: If, Parent: parent, Pos: Position{Line: line}, EndPos: Position{Line: line}})
	condBuilder(b, ifNode)
	thenBuilder(b, ifNode)
	return ifNode
}

// While adds a While statement under parent, mirroring If.
func (b *Builder) While(parent NodeIndex, condBuilder, bodyBuilder func(*Builder, NodeIndex)) NodeIndex {
	line := b.nextLine()
	whileNode := b.tree.AddNode(Node{Kind: While, Parent: parent, Pos: Position{Line: line}, EndPos: Position{Line: line}})
	condBuilder(b, whileNode)
	bodyBuilder(b, whileNode)
	return whileNode
}

// Return adds a Return statement under parent.
func (b *Builder) Return(parent NodeIndex) NodeIndex {
	line := b.nextLine()
	return b.tree.AddNode(Node{Kind: Return, Parent: parent, Pos: Position{Line: line}, EndPos: Position{Line: line}})
}

// AddMethod registers a new Method callable whose body is the given
// top-level statement indices, and returns the Callable.
func (b *Builder) AddMethod(name string, statements []NodeIndex, isTest bool) Callable {
	node := b.tree.AddNode(Node{Kind: Other, Parent: NoNode, Name: name})
	c := Callable{Node: node, Kind: Method, Statements: statements, HasBody: len(statements) > 0, IsTest: isTest}
	b.tree.AddCallable(c)
	return c
}
