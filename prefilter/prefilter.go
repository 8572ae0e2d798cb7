// Package prefilter implements the Pre-Filter chain (spec §4.5): cheap,
// order-preserving, short-circuiting rejection of candidate pairs before
// they reach the similarity kernel.
package prefilter

import (
	"sync"

	"github.com/fulmenhq/dupefoundry/errors"
	"github.com/fulmenhq/dupefoundry/normalize"
	"github.com/fulmenhq/dupefoundry/sequence"
	"github.com/fulmenhq/dupefoundry/telemetry"
	"github.com/fulmenhq/dupefoundry/telemetry/metrics"
)

// Options configures the chain's two thresholds (spec §4.5).
type Options struct {
	MaxSizeRatio         float64
	MinStructuralJaccard float64
}

// Chain is the ordered size-then-structural filter. It caches each
// sequence's fuzzy-normalized nodes keyed by reference identity — distinct
// sequences with equal ranges must not collide in the cache (spec §4.5),
// which a map keyed on *sequence.StatementSequence naturally guarantees.
type Chain struct {
	opts Options
	nz   *normalize.Normalizer

	mu    sync.Mutex
	nodes map[*sequence.StatementSequence][]*normalize.Node
}

// NewChain builds a Chain. Returns a ConfigurationError for non-positive
// MaxSizeRatio or a MinStructuralJaccard outside [0, 1]; callers that ran
// config.Options.Validate() will never see this.
func NewChain(opts Options) (*Chain, error) {
	if opts.MaxSizeRatio <= 0 {
		return nil, errors.NewConfigurationError(
			"prefilter.chain.max_size_ratio.invalid",
			"max_size_ratio must be > 0",
			map[string]interface{}{"maxSizeRatio": opts.MaxSizeRatio},
		)
	}
	if opts.MinStructuralJaccard < 0 || opts.MinStructuralJaccard > 1 {
		return nil, errors.NewConfigurationError(
			"prefilter.chain.min_structural_jaccard.invalid",
			"min_structural_jaccard must be in [0, 1]",
			map[string]interface{}{"minStructuralJaccard": opts.MinStructuralJaccard},
		)
	}
	return &Chain{
		opts:  opts,
		nz:    normalize.New(),
		nodes: make(map[*sequence.StatementSequence][]*normalize.Node),
	}, nil
}

// Accept runs the size filter then the structural filter, short-circuiting
// on the first rejection. Returns true iff the pair survives both.
func (c *Chain) Accept(a, b *sequence.StatementSequence) bool {
	if !c.acceptSize(a, b) {
		telemetry.EmitCounter(metrics.DupePrefilterRejectionsTotal, 1, map[string]string{metrics.TagOperation: "size"})
		return false
	}
	if !c.acceptStructural(a, b) {
		telemetry.EmitCounter(metrics.DupePrefilterRejectionsTotal, 1, map[string]string{metrics.TagOperation: "structural"})
		return false
	}
	return true
}

// acceptSize is the O(1) size-ratio filter (spec §4.5 step 1).
func (c *Chain) acceptSize(a, b *sequence.StatementSequence) bool {
	sizeA, sizeB := float64(a.Len()), float64(b.Len())
	max := sizeA
	if sizeB > max {
		max = sizeB
	}
	if max == 0 {
		return true
	}
	diff := sizeA - sizeB
	if diff < 0 {
		diff = -diff
	}
	return diff/max <= c.opts.MaxSizeRatio
}

// acceptStructural is the multiset-Jaccard filter over fuzzy-normalized
// nodes (spec §4.5 step 2).
func (c *Chain) acceptStructural(a, b *sequence.StatementSequence) bool {
	return multisetJaccard(c.fuzzyNodes(a), c.fuzzyNodes(b)) >= c.opts.MinStructuralJaccard
}

// fuzzyNodes returns seq's cached fuzzy-normalized node list, computing it
// on first use.
func (c *Chain) fuzzyNodes(seq *sequence.StatementSequence) []*normalize.Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	if nodes, ok := c.nodes[seq]; ok {
		return nodes
	}
	nodes := c.nz.NormalizeSequence(seq.Tree, seq.Statements, normalize.Fuzzy)
	c.nodes[seq] = nodes
	return nodes
}

// multisetJaccard computes sum(min(count))/sum(max(count)) over the union
// of distinct normalized-node hashes in a and b, treating each side as a
// multiset (spec §4.5: "Jaccard of the... node multisets").
func multisetJaccard(a, b []*normalize.Node) float64 {
	countsA := counts(a)
	countsB := counts(b)

	seen := make(map[uint64]struct{}, len(countsA)+len(countsB))
	var intersection, union float64
	for h := range countsA {
		seen[h] = struct{}{}
	}
	for h := range countsB {
		seen[h] = struct{}{}
	}
	for h := range seen {
		ca, cb := countsA[h], countsB[h]
		if ca < cb {
			intersection += float64(ca)
		} else {
			intersection += float64(cb)
		}
		if ca > cb {
			union += float64(ca)
		} else {
			union += float64(cb)
		}
	}
	if union == 0 {
		return 1
	}
	return intersection / union
}

func counts(nodes []*normalize.Node) map[uint64]int {
	m := make(map[uint64]int, len(nodes))
	for _, n := range nodes {
		m[n.Hash()]++
	}
	return m
}

// Clear empties the identity-keyed node cache, bounding memory between
// analysis runs (spec §5).
func (c *Chain) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodes = make(map[*sequence.StatementSequence][]*normalize.Node)
}
