// Package variation implements Variation and Type Analysis (spec §4.7):
// classifying the positions where two aligned semantic-token sequences
// differ, and gating refactorability from that classification plus a
// coarse type-compatibility check.
package variation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fulmenhq/dupefoundry/foundry/similarity"
	"github.com/fulmenhq/dupefoundry/normalize"
	"github.com/fulmenhq/dupefoundry/token"
)

// typeNameMinScore is the coarse spelling-similarity floor below which two
// differing TYPE-category tokens are treated as genuinely incompatible
// types rather than a cosmetic rename (spec §4.7's "coarse yes/no" check).
// "int" vs "Integer" (0.57) still scores above this; "List" vs "ArrayList"
// (0.44) and "int" vs "String" (0.33) do not.
const typeNameMinScore = 0.5

// Category classifies one differing position (spec §4.7).
type Category int

const (
	Literal Category = iota
	Identifier
	MethodName
	Type
	ControlFlow
	Other
)

// MarshalJSON renders Category as its String() name rather than the
// underlying int, so a Report serialized to JSON is self-describing.
func (c Category) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c Category) String() string {
	switch c {
	case Literal:
		return "LITERAL"
	case Identifier:
		return "IDENTIFIER"
	case MethodName:
		return "METHOD_NAME"
	case Type:
		return "TYPE"
	case ControlFlow:
		return "CONTROL_FLOW"
	default:
		return "OTHER"
	}
}

// Diff records one differing token position between two aligned
// statements.
type Diff struct {
	StatementA int      `json:"statement_a"`
	StatementB int      `json:"statement_b"`
	TokenIndex int      `json:"token_index"`
	Category   Category `json:"category"`
	Before     string   `json:"before"`
	After      string   `json:"after"`
}

// RefactorabilityThreshold is the fixed 0.70 overall-score floor in the
// can_refactor gate (spec §4.7); it is independent of config.Options'
// configurable report threshold.
const RefactorabilityThreshold = 0.70

// Analysis is the VariationAnalysis data model (spec §3).
type Analysis struct {
	Diffs                     []Diff              `json:"diffs"`
	HasControlFlowDifferences bool                `json:"has_control_flow_differences"`
	TypeCompatible            bool                `json:"type_compatible"`
	TypeCandidates            map[string][]string `json:"type_candidates"`
}

// CanRefactor implements the gate of spec §4.7:
// can_refactor := overall >= 0.70 AND NOT hasControlFlowDifferences AND is_feasible.
func (a *Analysis) CanRefactor(overall float64) bool {
	return overall >= RefactorabilityThreshold && !a.HasControlFlowDifferences && a.TypeCompatible
}

// alignedPair is one (statement-in-A, statement-in-B) correspondence
// produced by Align.
type alignedPair struct {
	a, b int
}

// Align finds a correspondence between statement positions of a and b via
// an LCS backtrace under normalize.Node structural equality. Unlike
// kernel's scoring LCS (rolling two rows, O(min(m,n)) space), this keeps
// the full table since it runs only on pairs that already survived
// pre-filtering and kernel scoring, not the full candidate stream.
func Align(a, b []*normalize.Node) []alignedPair {
	m, n := len(a), len(b)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if a[i-1].Equals(b[j-1]) {
				dp[i][j] = dp[i-1][j-1] + 1
			} else if dp[i-1][j] >= dp[i][j-1] {
				dp[i][j] = dp[i-1][j]
			} else {
				dp[i][j] = dp[i][j-1]
			}
		}
	}

	var pairs []alignedPair
	i, j := m, n
	for i > 0 && j > 0 {
		switch {
		case a[i-1].Equals(b[j-1]):
			pairs = append(pairs, alignedPair{a: i - 1, b: j - 1})
			i--
			j--
		case dp[i-1][j] >= dp[i][j-1]:
			i--
		default:
			j--
		}
	}
	for l, r := 0, len(pairs)-1; l < r; l, r = l+1, r-1 {
		pairs[l], pairs[r] = pairs[r], pairs[l]
	}
	return pairs
}

func categorize(kind token.Kind) Category {
	switch {
	case kind.IsLiteral():
		return Literal
	case kind == token.Var || kind == token.Field:
		return Identifier
	case kind == token.MethodCall || kind == token.Assert || kind == token.Mock:
		return MethodName
	case kind == token.Type:
		return Type
	case kind == token.ControlFlow:
		return ControlFlow
	default:
		return Other
	}
}

// Analyze produces a VariationAnalysis from two aligned semantic-token
// NormalizedNode sequences (spec §4.7). Every aligned statement pair's
// token streams are compared position-wise via token.Token.Matches; every
// unaligned statement (present on one side only, dropped by Align's LCS
// backtrace) contributes a single whole-statement diff.
func Analyze(a, b []*normalize.Node) *Analysis {
	analysis := &Analysis{TypeCandidates: make(map[string][]string)}

	aligned := Align(a, b)
	coveredA := make(map[int]bool, len(aligned))
	coveredB := make(map[int]bool, len(aligned))
	for _, p := range aligned {
		coveredA[p.a] = true
		coveredB[p.b] = true

		nodeA, nodeB := a[p.a], b[p.b]
		if nodeA.Equals(nodeB) {
			continue
		}
		diffTokens(analysis, p.a, p.b, nodeA.Tokens, nodeB.Tokens)
	}

	for i := range a {
		if !coveredA[i] {
			analysis.Diffs = append(analysis.Diffs, Diff{StatementA: i, StatementB: -1, Category: Other, Before: "present", After: "absent"})
		}
	}
	for j := range b {
		if !coveredB[j] {
			analysis.Diffs = append(analysis.Diffs, Diff{StatementA: -1, StatementB: j, Category: Other, Before: "absent", After: "present"})
		}
	}

	for _, d := range analysis.Diffs {
		if d.Category == ControlFlow {
			analysis.HasControlFlowDifferences = true
			break
		}
	}

	analysis.TypeCompatible = typeCompatible(analysis.TypeCandidates)

	return analysis
}

// typeCompatible implements spec §4.7's coarse type-compatibility check:
// every pair of differing TYPE-category tokens must still be spelling-close
// (foundry/similarity.Score, case-insensitive) to count as the same family
// of type. IDENTIFIER-category candidates (plain renames) never affect this
// — only TYPE positions are load-bearing for can_refactor's third conjunct.
func typeCompatible(candidates map[string][]string) bool {
	for key, pair := range candidates {
		if !strings.HasPrefix(key, Type.String()+"@") {
			continue
		}
		if len(pair) != 2 {
			continue
		}
		if similarity.Score(strings.ToLower(pair[0]), strings.ToLower(pair[1])) < typeNameMinScore {
			return false
		}
	}
	return true
}

// sameToken reports whether two tokens are identical for variation
// purposes. Unlike token.Token.Matches (which the kernel's alignment uses
// and which always treats same-kind literals as matching so value
// differences never block structural alignment — DESIGN.md Open Question
// 1), variation analysis must surface literal value differences as
// LITERAL diffs, so it compares literals by Original spelling.
func sameToken(a, b token.Token) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind.IsLiteral() {
		return a.Original == b.Original
	}
	return a.Normalized == b.Normalized
}

// diffTokens compares two statements' token streams position-wise and
// records a Diff for every mismatching position (spec §4.7's "aligned
// token streams").
func diffTokens(analysis *Analysis, stmtA, stmtB int, tokensA, tokensB []token.Token) {
	n := len(tokensA)
	if len(tokensB) < n {
		n = len(tokensB)
	}
	for i := 0; i < n; i++ {
		ta, tb := tokensA[i], tokensB[i]
		if sameToken(ta, tb) {
			continue
		}
		cat := categorize(ta.Kind)
		analysis.Diffs = append(analysis.Diffs, Diff{
			StatementA: stmtA, StatementB: stmtB, TokenIndex: i,
			Category: cat, Before: ta.Original, After: tb.Original,
		})
		if cat == Identifier || cat == Type {
			key := fmt.Sprintf("%s@%d:%d", cat, stmtA, i)
			analysis.TypeCandidates[key] = []string{ta.Original, tb.Original}
		}
	}
	for i := n; i < len(tokensA); i++ {
		analysis.Diffs = append(analysis.Diffs, Diff{StatementA: stmtA, StatementB: stmtB, TokenIndex: i, Category: Other, Before: tokensA[i].Original, After: ""})
	}
	for i := n; i < len(tokensB); i++ {
		analysis.Diffs = append(analysis.Diffs, Diff{StatementA: stmtA, StatementB: stmtB, TokenIndex: i, Category: Other, Before: "", After: tokensB[i].Original})
	}
}
