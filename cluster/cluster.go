// Package cluster implements the Clusterer (spec §4.9): union-find over
// sequence identities driven by above-threshold similar pairs, primary
// selection, and estimated-reduction-ranked reporting.
package cluster

import (
	"sort"

	"github.com/fulmenhq/dupefoundry/sequence"
)

// Pair is one above-threshold similarity result feeding the clusterer.
type Pair struct {
	A, B  *sequence.StatementSequence
	Score float64
}

// Cluster is a group of pairwise-similar sequences (spec §3
// DuplicateCluster).
type Cluster struct {
	Members               []*sequence.StatementSequence
	Primary               *sequence.StatementSequence
	EstimatedLOCReduction int
}

// disjointSet is a plain map-backed union-find over sequence identities;
// no library in the example corpus implements one, and the algorithm is
// ~30 lines of textbook code (see DESIGN.md's standard-library-only
// justifications).
type disjointSet struct {
	parent map[*sequence.StatementSequence]*sequence.StatementSequence
	rank   map[*sequence.StatementSequence]int
}

func newDisjointSet() *disjointSet {
	return &disjointSet{
		parent: make(map[*sequence.StatementSequence]*sequence.StatementSequence),
		rank:   make(map[*sequence.StatementSequence]int),
	}
}

func (d *disjointSet) find(s *sequence.StatementSequence) *sequence.StatementSequence {
	if _, ok := d.parent[s]; !ok {
		d.parent[s] = s
		return s
	}
	root := s
	for d.parent[root] != root {
		root = d.parent[root]
	}
	for d.parent[s] != root {
		next := d.parent[s]
		d.parent[s] = root
		s = next
	}
	return root
}

func (d *disjointSet) union(a, b *sequence.StatementSequence) {
	ra, rb := d.find(a), d.find(b)
	if ra == rb {
		return
	}
	if d.rank[ra] < d.rank[rb] {
		ra, rb = rb, ra
	}
	d.parent[rb] = ra
	if d.rank[ra] == d.rank[rb] {
		d.rank[ra]++
	}
}

// primaryLess orders two sequences by (source_path, start_line,
// start_column) for primary selection (spec §4.9). It is a projection of
// the same fields sequence.SeqOrder.Less compares, in the order the
// clusterer's primary-selection rule names them.
func primaryLess(a, b *sequence.StatementSequence) bool {
	oa, ob := a.Order(), b.Order()
	if oa.Path != ob.Path {
		return oa.Path < ob.Path
	}
	if oa.StartLine != ob.StartLine {
		return oa.StartLine < ob.StartLine
	}
	return oa.StartColumn < ob.StartColumn
}

// Build groups pairs above the clustering threshold into Clusters, sorted
// by estimated LOC reduction descending (spec §4.9). Callers filter pairs
// to those above threshold before calling Build.
func Build(pairs []Pair) []*Cluster {
	ds := newDisjointSet()
	for _, p := range pairs {
		ds.find(p.A)
		ds.find(p.B)
		ds.union(p.A, p.B)
	}

	groups := make(map[*sequence.StatementSequence][]*sequence.StatementSequence)
	for s := range ds.parent {
		root := ds.find(s)
		groups[root] = append(groups[root], s)
	}

	var clusters []*Cluster
	for _, members := range groups {
		if len(members) < 2 {
			continue
		}
		sorted := append([]*sequence.StatementSequence(nil), members...)
		sort.Slice(sorted, func(i, j int) bool { return primaryLess(sorted[i], sorted[j]) })

		primary := sorted[0]
		duplicates := len(sorted) - 1
		// estimated_loc_reduction: each duplicate collapses to a one-line
		// call, plus one new helper definition of the primary's size
		// (spec §4.9).
		reduction := duplicates*primary.Len() - duplicates - 1

		clusters = append(clusters, &Cluster{
			Members:               sorted,
			Primary:               primary,
			EstimatedLOCReduction: reduction,
		})
	}

	// Primary map iteration order over ds.parent is randomized per process,
	// so EstimatedLOCReduction ties must break on a deterministic key
	// (spec §8 property 1: two runs produce byte-identical reports) rather
	// than rely on sort.Slice's incidental stability over random input
	// order.
	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].EstimatedLOCReduction != clusters[j].EstimatedLOCReduction {
			return clusters[i].EstimatedLOCReduction > clusters[j].EstimatedLOCReduction
		}
		return primaryLess(clusters[i].Primary, clusters[j].Primary)
	})
	return clusters
}
