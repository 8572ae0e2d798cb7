// Package boundary implements the Boundary Refiner (spec §4.8): symmetric
// trailing-statement trimming of usage-only tails, with threshold
// reversion.
package boundary

import (
	"github.com/fulmenhq/dupefoundry/errors"
	"github.com/fulmenhq/dupefoundry/hostast"
	"github.com/fulmenhq/dupefoundry/sequence"
)

// Refiner trims trailing usage-only statements from a surviving pair,
// never shrinking below minLines.
type Refiner struct {
	minLines int
}

// NewRefiner builds a Refiner. Returns a ConfigurationError if minLines < 1.
func NewRefiner(minLines int) (*Refiner, error) {
	if minLines < 1 {
		return nil, errors.NewConfigurationError(
			"boundary.refiner.min_lines.invalid",
			"min_lines must be >= 1",
			map[string]interface{}{"minLines": minLines},
		)
	}
	return &Refiner{minLines: minLines}, nil
}

// definedEarlierSets returns, for each index i, the set of names defined
// by stmts[0:i] (strictly before i) — the "defined earlier in the same
// sequence" set of spec §4.8 condition (c).
func definedEarlierSets(tree *hostast.Tree, stmts []hostast.NodeIndex) []map[string]bool {
	sets := make([]map[string]bool, len(stmts)+1)
	sets[0] = map[string]bool{}
	for i, s := range stmts {
		next := make(map[string]bool, len(sets[i]))
		for k := range sets[i] {
			next[k] = true
		}
		for _, name := range tree.DefinedNames(s) {
			next[name] = true
		}
		sets[i+1] = next
	}
	return sets
}

// isUsageOnly implements spec §4.8's four-part test for a single
// statement.
func isUsageOnly(tree *hostast.Tree, stmt hostast.NodeIndex, definedEarlier map[string]bool) bool {
	n := tree.Node(stmt)

	// (b), (d): a usage-only statement must be a plain expression
	// statement — Declaration, Assignment, IncDecStmt, and every
	// control-flow/jump kind are distinct NodeKinds from ExprStmt, so this
	// single check covers both exclusions.
	if n.Kind != hostast.ExprStmt {
		return false
	}

	// (b) continued: also exclude a unary-mutating expression wrapped
	// directly in the expression statement (e.g. `x++;` represented as
	// ExprStmt(UnaryOp) rather than a dedicated IncDecStmt).
	for _, child := range n.Children {
		if tree.Node(child).Kind == hostast.UnaryOp {
			return false
		}
	}

	// (c): must reference at least one name, and every referenced name
	// must already be defined earlier in the sequence.
	refs := tree.ReferencedNames(stmt)
	if len(refs) == 0 {
		return false
	}
	for _, name := range refs {
		if !definedEarlier[name] {
			return false
		}
	}
	return true
}

// trimCount returns how many trailing statements of stmts are usage-only
// and may be dropped without falling below minLines (spec §4.8).
func (r *Refiner) trimCount(tree *hostast.Tree, stmts []hostast.NodeIndex) int {
	sets := definedEarlierSets(tree, stmts)
	end := len(stmts)
	for end > r.minLines {
		idx := end - 1
		if !isUsageOnly(tree, stmts[idx], sets[idx]) {
			break
		}
		end--
	}
	return len(stmts) - end
}

// Refine attempts to symmetrically trim usage-only trailing statements
// from both sides of a surviving pair. It trims the same count from each
// side, stopping as soon as either side's next trailing statement fails
// the usage-only test or either side would drop below minLines. Returns
// the (possibly unchanged) pair and whether any trimming occurred; the
// caller is responsible for spec §4.8's threshold-reversion rule (rescore
// and discard the trim if the new overall score regresses below
// threshold).
func (r *Refiner) Refine(a, b *sequence.StatementSequence) (*sequence.StatementSequence, *sequence.StatementSequence, bool, error) {
	n := r.trimCount(a.Tree, a.Statements)
	if m := r.trimCount(b.Tree, b.Statements); m < n {
		n = m
	}
	if n == 0 {
		return a, b, false, nil
	}

	trimmedA, err := a.WithTrailingTrimmed(n)
	if err != nil {
		return nil, nil, false, err
	}
	trimmedB, err := b.WithTrailingTrimmed(n)
	if err != nil {
		return nil, nil, false, err
	}
	return trimmedA, trimmedB, true, nil
}
