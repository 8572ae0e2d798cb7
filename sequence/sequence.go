// Package sequence implements the Sequence Extractor (spec §4.1): sliding
// statement windows over callable bodies, and the StatementSequence data
// model (spec §3) those windows produce.
package sequence

import (
	"fmt"

	"github.com/fulmenhq/dupefoundry/errors"
	"github.com/fulmenhq/dupefoundry/fulhash"
	"github.com/fulmenhq/dupefoundry/hostast"
)

// byteOffsetApproximationFactor preserves the teacher-era "line * 80"
// approximation (spec §9) for translation units whose parser adaptor
// doesn't supply a true byte offset. The value is recorded on the sequence
// only: seq_order does not include it, and it is never used for text
// manipulation.
const byteOffsetApproximationFactor = 80

// StatementSequence is a contiguous slice of statements drawn from one
// callable body (spec §3). Distinct windows with identical ranges are
// distinct sequences; every identity-keyed cache in this module keys on
// *StatementSequence pointer identity, never on range equality.
type StatementSequence struct {
	Tree       *hostast.Tree
	Statements []hostast.NodeIndex
	Callable   hostast.Callable

	// Path is the absolute, normalized source path of the owning
	// translation unit (spec §3).
	Path string

	StartPos hostast.Position
	EndPos   hostast.Position

	ByteOffset            int
	ByteOffsetApproximate bool

	// start is the sequence's offset within Callable.Statements, kept so
	// the boundary refiner (spec §4.8) can rebuild a trimmed sequence over
	// the same window origin without re-walking the callable.
	start int

	fingerprint    fulhash.Digest
	fingerprintSet bool
}

// Len returns the number of statements in the sequence.
func (s *StatementSequence) Len() int {
	return len(s.Statements)
}

// SeqOrder returns the stable total-order key used whenever pair
// orientation or cluster-primary selection is required (spec §4.9):
// (normalized_path, start_line, start_column, end_line, end_column).
type SeqOrder struct {
	Path                                   string
	StartLine, StartColumn, EndLine, EndColumn int
}

// Order returns s's SeqOrder key.
func (s *StatementSequence) Order() SeqOrder {
	return SeqOrder{
		Path:        s.Path,
		StartLine:   s.StartPos.Line,
		StartColumn: s.StartPos.Column,
		EndLine:     s.EndPos.Line,
		EndColumn:   s.EndPos.Column,
	}
}

// Less implements the seq_order total order (spec §4.9).
func (o SeqOrder) Less(other SeqOrder) bool {
	if o.Path != other.Path {
		return o.Path < other.Path
	}
	if o.StartLine != other.StartLine {
		return o.StartLine < other.StartLine
	}
	if o.StartColumn != other.StartColumn {
		return o.StartColumn < other.StartColumn
	}
	if o.EndLine != other.EndLine {
		return o.EndLine < other.EndLine
	}
	return o.EndColumn < other.EndColumn
}

// Fingerprint returns a cached whole-sequence content digest, computed
// lazily from each node's kind, name and literal spelling across the
// sequence's statement subtrees. It is a diagnostic/dedup aid only — never used by
// the similarity kernel, which compares NormalizedNode views instead.
func (s *StatementSequence) Fingerprint() fulhash.Digest {
	if s.fingerprintSet {
		return s.fingerprint
	}
	var content []byte
	for _, stmt := range s.Statements {
		s.Tree.Walk(stmt, func(_ hostast.NodeIndex, n hostast.Node) {
			content = append(content, []byte(fmt.Sprintf("%d:%s:%s|", n.Kind, n.Name, n.Literal))...)
		})
	}
	digest, err := fulhash.Hash(content)
	if err != nil {
		// fulhash.Hash only fails for an unsupported algorithm, which
		// cannot happen with the package default; treat as invariant.
		digest = fulhash.Digest{}
	}
	s.fingerprint = digest
	s.fingerprintSet = true
	return s.fingerprint
}

func computeByteOffset(tree *hostast.Tree, stmt hostast.NodeIndex) (int, bool) {
	n := tree.Node(stmt)
	if n.HasByteOffset {
		return n.ByteOffset, false
	}
	return n.Pos.Line * byteOffsetApproximationFactor, true
}

// newSequence builds a StatementSequence from a contiguous run of
// statement indices [start, start+length) within callable c.
func newSequence(tree *hostast.Tree, c hostast.Callable, path string, start, length int) (*StatementSequence, error) {
	if length <= 0 || start < 0 || start+length > len(c.Statements) {
		return nil, errors.NewInternalInvariantViolation(
			"sequence.window.out_of_range",
			"sequence extractor produced an out-of-range window",
			map[string]interface{}{"start": start, "length": length, "bodySize": len(c.Statements)},
		)
	}

	stmts := append([]hostast.NodeIndex(nil), c.Statements[start:start+length]...)
	firstNode := tree.Node(stmts[0])
	lastNode := tree.Node(stmts[len(stmts)-1])

	byteOffset, approx := computeByteOffset(tree, stmts[0])

	return &StatementSequence{
		Tree:                  tree,
		Statements:            stmts,
		Callable:              c,
		Path:                  path,
		StartPos:              firstNode.Pos,
		EndPos:                lastNode.EndPos,
		ByteOffset:            byteOffset,
		ByteOffsetApproximate: approx,
		start:                 start,
	}, nil
}

// WithTrailingTrimmed returns a new StatementSequence covering the same
// window origin but n fewer trailing statements, used by the boundary
// refiner (spec §4.8). Returns an InternalInvariantViolation if n is
// out of range.
func (s *StatementSequence) WithTrailingTrimmed(n int) (*StatementSequence, error) {
	if n < 0 || n >= s.Len() {
		return nil, errors.NewInternalInvariantViolation(
			"sequence.trim.out_of_range",
			"boundary trim requested more statements than the sequence holds",
			map[string]interface{}{"trim": n, "length": s.Len()},
		)
	}
	return newSequence(s.Tree, s.Callable, s.Path, s.start, s.Len()-n)
}
