package variation

import (
	"testing"

	"github.com/fulmenhq/dupefoundry/hostast"
	"github.com/fulmenhq/dupefoundry/normalize"
)

func buildSequence(t *testing.T, build func(*hostast.Builder, hostast.NodeIndex) []hostast.NodeIndex) []*normalize.Node {
	t.Helper()
	b := hostast.NewBuilder("Example.java")
	root := b.Tree().AddNode(hostast.Node{Kind: hostast.Block, Parent: hostast.NoNode})
	stmts := build(b, root)
	nz := normalize.New()
	return nz.NormalizeSequence(b.Tree(), stmts, normalize.Semantic)
}

func setterBody(t *testing.T, method, literal string) []*normalize.Node {
	return buildSequence(t, func(b *hostast.Builder, root hostast.NodeIndex) []hostast.NodeIndex {
		return []hostast.NodeIndex{
			b.ExprStatement(root, func(bb *hostast.Builder, parent hostast.NodeIndex) hostast.NodeIndex {
				call := bb.MethodCall(parent, method)
				bb.StringLiteral(call, literal)
				return call
			}),
		}
	})
}

func TestAnalyze_LiteralDifferenceClassifiedAsLiteral(t *testing.T) {
	a := setterBody(t, "setName", "\"alice\"")
	b := setterBody(t, "setName", "\"bob\"")

	analysis := Analyze(a, b)
	if len(analysis.Diffs) != 1 {
		t.Fatalf("expected exactly one diff, got %d: %+v", len(analysis.Diffs), analysis.Diffs)
	}
	if analysis.Diffs[0].Category != Literal {
		t.Errorf("expected LITERAL category, got %v", analysis.Diffs[0].Category)
	}
	if analysis.HasControlFlowDifferences {
		t.Error("a literal-only difference must not set hasControlFlowDifferences")
	}
}

func TestAnalyze_MethodNameDifferenceClassified(t *testing.T) {
	a := setterBody(t, "setActive", "\"x\"")
	b := setterBody(t, "setDeleted", "\"x\"")

	analysis := Analyze(a, b)
	found := false
	for _, d := range analysis.Diffs {
		if d.Category == MethodName {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a METHOD_NAME diff, got %+v", analysis.Diffs)
	}
}

func TestAnalyze_ControlFlowDifferenceSetsFlag(t *testing.T) {
	a := buildSequence(t, func(b *hostast.Builder, root hostast.NodeIndex) []hostast.NodeIndex {
		return []hostast.NodeIndex{
			b.If(root, func(bb *hostast.Builder, parent hostast.NodeIndex) { bb.NameReference(parent, "x") }, func(bb *hostast.Builder, parent hostast.NodeIndex) {}),
		}
	})
	bSeq := buildSequence(t, func(b *hostast.Builder, root hostast.NodeIndex) []hostast.NodeIndex {
		return []hostast.NodeIndex{
			b.While(root, func(bb *hostast.Builder, parent hostast.NodeIndex) { bb.NameReference(parent, "x") }, func(bb *hostast.Builder, parent hostast.NodeIndex) {}),
		}
	})

	analysis := Analyze(a, bSeq)
	if !analysis.HasControlFlowDifferences {
		t.Error("if-vs-while must be flagged as a control-flow difference")
	}
}

func TestCanRefactor_Gate(t *testing.T) {
	analysis := &Analysis{TypeCompatible: true, HasControlFlowDifferences: false}
	if !analysis.CanRefactor(0.80) {
		t.Error("expected can_refactor true for overall>=0.70, no control-flow diff, feasible types")
	}
	if analysis.CanRefactor(0.50) {
		t.Error("expected can_refactor false when overall < 0.70")
	}

	blocked := &Analysis{TypeCompatible: true, HasControlFlowDifferences: true}
	if blocked.CanRefactor(0.95) {
		t.Error("control-flow differences must block refactorability regardless of score")
	}

	infeasible := &Analysis{TypeCompatible: false, HasControlFlowDifferences: false}
	if infeasible.CanRefactor(0.95) {
		t.Error("type-incompatible positions must block refactorability")
	}
}

func typeDeclSequence(t *testing.T, typeName string) []*normalize.Node {
	t.Helper()
	b := hostast.NewBuilder("Example.java")
	tree := b.Tree()
	root := tree.AddNode(hostast.Node{Kind: hostast.Block, Parent: hostast.NoNode})
	decl := tree.AddNode(hostast.Node{Kind: hostast.Declaration, Parent: root})
	tree.AddNode(hostast.Node{Kind: hostast.VarDecl, Parent: decl, Name: typeName, IsTypeRef: true})

	nz := normalize.New()
	return nz.NormalizeSequence(tree, []hostast.NodeIndex{decl}, normalize.Semantic)
}

func TestAnalyze_SpellingCloseTypeRenameIsCompatible(t *testing.T) {
	a := typeDeclSequence(t, "Customer")
	b := typeDeclSequence(t, "Customers")

	analysis := Analyze(a, b)
	if !analysis.TypeCompatible {
		t.Errorf("expected a spelling-close type rename to remain type-compatible, diffs: %+v", analysis.Diffs)
	}
}

func TestAnalyze_UnrelatedTypeRenameIsIncompatible(t *testing.T) {
	a := typeDeclSequence(t, "int")
	b := typeDeclSequence(t, "String")

	analysis := Analyze(a, b)
	if analysis.TypeCompatible {
		t.Errorf("expected spelling-unrelated types to be flagged type-incompatible, diffs: %+v", analysis.Diffs)
	}
}

func TestAlign_UnalignedStatementsProduceAbsencyDiffs(t *testing.T) {
	a := setterBody(t, "setName", "\"x\"")
	b := buildSequence(t, func(bb *hostast.Builder, root hostast.NodeIndex) []hostast.NodeIndex {
		s1 := bb.ExprStatement(root, func(b2 *hostast.Builder, parent hostast.NodeIndex) hostast.NodeIndex {
			call := b2.MethodCall(parent, "setName")
			b2.StringLiteral(call, "\"x\"")
			return call
		})
		s2 := bb.ExprStatement(root, func(b2 *hostast.Builder, parent hostast.NodeIndex) hostast.NodeIndex {
			return b2.MethodCall(parent, "logAudit")
		})
		return []hostast.NodeIndex{s1, s2}
	})

	analysis := Analyze(a, b)
	foundAbsent := false
	for _, d := range analysis.Diffs {
		if d.StatementA == -1 && d.StatementB == 1 {
			foundAbsent = true
		}
	}
	if !foundAbsent {
		t.Errorf("expected a diff recording b's unaligned extra statement, got %+v", analysis.Diffs)
	}
}
