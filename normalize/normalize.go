// Package normalize implements the Normalizer (spec §4.2): two AST views
// produced by a single visitor pass per mode, and the NormalizedNode data
// model (spec §3) those views produce.
//
// Resolves spec §4.2/§4.6's apparent inconsistency (4.2 assigns the
// literal-only/semantic-token view to the similarity kernel; 4.6 calls its
// operand "the fuzzy NormalizedNode sequence") in favor of 4.2's explicit
// statement: Semantic is the kernel's operand, Fuzzy feeds MinHash/LSH/the
// structural pre-filter. See DESIGN.md's Open Question decisions.
package normalize

import (
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/fulmenhq/dupefoundry/hostast"
	"github.com/fulmenhq/dupefoundry/token"
)

// Node is one statement's normalized token stream (spec §3 NormalizedNode).
// Each token.Token already carries both its normalized and original
// spelling, so a single Node serves as the "(normalized_ast, original_ast)"
// pair the spec describes. Equality is the cached serialization hash —
// string comparison inside the similarity kernel's DP is forbidden (§4.6).
type Node struct {
	Statement hostast.NodeIndex
	Tokens    []token.Token

	hash    uint64
	hashSet bool
}

func (n *Node) serialize() string {
	var b strings.Builder
	for _, t := range n.Tokens {
		b.WriteString(t.Kind.String())
		b.WriteByte(':')
		b.WriteString(t.Normalized)
		b.WriteByte('|')
	}
	return b.String()
}

// Hash returns the cached xxh3 hash of the node's normalized serialization,
// computing it on first use.
func (n *Node) Hash() uint64 {
	if !n.hashSet {
		n.hash = xxh3.HashString(n.serialize())
		n.hashSet = true
	}
	return n.hash
}

// Equals implements O(1) structural equality via the cached hash (spec
// §4.6: "string comparison inside the DP is forbidden").
func (n *Node) Equals(other *Node) bool {
	if n == other {
		return true
	}
	if other == nil {
		return false
	}
	return n.Hash() == other.Hash()
}

// Mode selects which of the two normalization views to produce.
type Mode int

const (
	// Semantic is the literal-only view (spec §4.2): literals become kind
	// placeholders, identifiers are preserved, and control-flow/keyword
	// nodes additionally emit a structural token. This is the similarity
	// kernel's operand (spec §4.2's explicit assignment).
	Semantic Mode = iota

	// Fuzzy additionally anonymizes variable/field identifiers to VAR/FIELD
	// placeholders. This feeds MinHash, LSH, and the structural pre-filter.
	Fuzzy
)

// Normalizer produces NormalizedNode views from host AST statements.
type Normalizer struct{}

// New creates a Normalizer.
func New() *Normalizer {
	return &Normalizer{}
}

// NormalizeStatement builds the Node for stmt in the given mode.
func (nz *Normalizer) NormalizeStatement(tree *hostast.Tree, stmt hostast.NodeIndex, mode Mode) *Node {
	var tokens []token.Token
	tree.Walk(stmt, func(_ hostast.NodeIndex, n hostast.Node) {
		if tok, ok := tokenFor(n, mode); ok {
			tokens = append(tokens, tok)
		}
	})
	return &Node{Statement: stmt, Tokens: tokens}
}

// NormalizeSequence normalizes every statement in stmts, in order.
func (nz *Normalizer) NormalizeSequence(tree *hostast.Tree, stmts []hostast.NodeIndex, mode Mode) []*Node {
	nodes := make([]*Node, len(stmts))
	for i, stmt := range stmts {
		nodes[i] = nz.NormalizeStatement(tree, stmt, mode)
	}
	return nodes
}

func literalKind(k hostast.NodeKind) token.Kind {
	switch k {
	case hostast.StringLit:
		return token.StringLit
	case hostast.IntLit:
		return token.IntLit
	case hostast.LongLit:
		return token.LongLit
	case hostast.DoubleLit:
		return token.DoubleLit
	case hostast.BoolLit:
		return token.BoolLit
	case hostast.NullLit:
		return token.NullLit
	case hostast.CharLit:
		return token.CharLit
	default:
		return token.StringLit
	}
}

func controlFlowName(k hostast.NodeKind) string {
	switch k {
	case hostast.If:
		return "if"
	case hostast.For:
		return "for"
	case hostast.ForEach:
		return "foreach"
	case hostast.While:
		return "while"
	case hostast.DoWhile:
		return "do"
	case hostast.Switch:
		return "switch"
	case hostast.Try:
		return "try"
	case hostast.Catch:
		return "catch"
	default:
		return ""
	}
}

func keywordName(k hostast.NodeKind) string {
	switch k {
	case hostast.Return:
		return "return"
	case hostast.Throw:
		return "throw"
	case hostast.Break:
		return "break"
	case hostast.Continue:
		return "continue"
	default:
		return ""
	}
}

// tokenFor maps one host AST node to at most one Token, per the rewrite
// rules of spec §4.2. Container/wrapper kinds (Block, ExprStmt,
// Declaration, Assignment-as-statement, Lambda, AnonymousClassMember,
// Other) contribute no token of their own — their descendants do.
func tokenFor(n hostast.Node, mode Mode) (token.Token, bool) {
	if n.Kind.IsLiteral() {
		return token.Token{Kind: literalKind(n.Kind), Normalized: literalKind(n.Kind).String(), Original: n.Literal}, true
	}

	if name := controlFlowName(n.Kind); name != "" {
		return token.Token{Kind: token.ControlFlow, Normalized: name, Original: name}, true
	}

	if name := keywordName(n.Kind); name != "" {
		return token.Token{Kind: token.Keyword, Normalized: name, Original: name}, true
	}

	switch n.Kind {
	case hostast.MethodCallExpr:
		kind := token.ClassifyCall(n.Name)
		return token.Token{Kind: kind, Normalized: n.Name, Original: n.Name}, true

	case hostast.VarDecl, hostast.Param, hostast.NameExpr:
		if n.IsTypeRef {
			return token.Token{Kind: token.Type, Normalized: n.Name, Original: n.Name}, true
		}
		return identifierToken(token.Var, n.Name, mode), true

	case hostast.FieldAccess:
		if n.IsTypeRef {
			return token.Token{Kind: token.Type, Normalized: n.Name, Original: n.Name}, true
		}
		return identifierToken(token.Field, n.Name, mode), true

	case hostast.BinaryOp, hostast.UnaryOp, hostast.IncDecStmt:
		return token.Token{Kind: token.Operator, Normalized: n.Name, Original: n.Name}, true

	default:
		return token.Token{}, false
	}
}

// identifierToken builds a VAR/FIELD token, anonymizing the spelling in
// Fuzzy mode and leaving it intact in Semantic mode. Already-placeholder
// spellings are left alone in either mode, keeping the visitor idempotent.
func identifierToken(kind token.Kind, name string, mode Mode) token.Token {
	if token.IsPlaceholder(name) {
		return token.Token{Kind: kind, Normalized: name, Original: name}
	}
	if mode == Fuzzy {
		return token.Token{Kind: kind, Normalized: kind.String(), Original: name}
	}
	return token.Token{Kind: kind, Normalized: name, Original: name}
}
