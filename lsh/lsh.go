// Package lsh implements the banded LSH candidate-retrieval index (spec
// §4.4): signatures are split into B bands of R rows, and sequences that
// share a bucket in any band become retrieval candidates for each other.
package lsh

import (
	"sync"

	"github.com/fulmenhq/dupefoundry/errors"
	"github.com/fulmenhq/dupefoundry/minhash"
	"github.com/fulmenhq/dupefoundry/sequence"
	"github.com/fulmenhq/dupefoundry/telemetry"
	"github.com/fulmenhq/dupefoundry/telemetry/metrics"
	"github.com/fulmenhq/dupefoundry/token"
)

// segmentAvalanche is the fixed avalanche constant used to mix a band's
// row values into its 56-bit segment hash (spec §4.4).
const segmentAvalanche uint64 = 0x9e3779b97f4a7c15

// fnvOffsetBasis seeds the segment hash accumulator.
const fnvOffsetBasis uint64 = 0xcbf29ce484222325

const bandIndexShift = 56
const segmentMask = (uint64(1) << bandIndexShift) - 1

// bucketKey is a bucket address: a 64-bit value, never a string (spec
// §4.4: "Strings as bucket keys are prohibited — allocation in the inner
// loop").
type bucketKey uint64

func hash56(segment minhash.Signature) uint64 {
	h := fnvOffsetBasis
	for _, v := range segment {
		h ^= uint64(v)
		h *= segmentAvalanche
		h ^= h >> 32
	}
	return h & segmentMask
}

func bucketKeyFor(band int, segment minhash.Signature) bucketKey {
	return bucketKey((uint64(band) << bandIndexShift) | hash56(segment))
}

// Index is a banded LSH index over StatementSequence signatures. It is a
// shared resource under the concurrency model of spec §5 and guards its
// per-band buckets with a single mutex (fine-grained-enough: band lookups
// are O(R) and bucket chains stay short in practice).
type Index struct {
	numBands     int
	rowsPerBand  int
	shingleSize  int
	signatureLen int

	mu      sync.Mutex
	buckets []map[bucketKey][]*sequence.StatementSequence
}

// NewIndex builds an Index for H = numBands*rowsPerBand hash functions,
// banded B = numBands wide, shingled at shingleSize. Returns a
// ConfigurationError if the dimensions are invalid.
func NewIndex(numHashFunctions, numBands, shingleSize int) (*Index, error) {
	if numBands <= 0 || numHashFunctions <= 0 {
		return nil, errors.NewConfigurationError(
			"lsh.index.invalid_dimensions",
			"num_hash_functions and num_bands must both be positive",
			map[string]interface{}{"numHashFunctions": numHashFunctions, "numBands": numBands},
		)
	}
	if numHashFunctions%numBands != 0 {
		return nil, errors.NewConfigurationError(
			"lsh.index.bands_do_not_divide_hashes",
			"num_bands must evenly divide num_hash_functions",
			map[string]interface{}{"numHashFunctions": numHashFunctions, "numBands": numBands},
		)
	}
	if shingleSize < 1 {
		return nil, errors.NewConfigurationError(
			"lsh.index.shingle_size.invalid",
			"shingle_size must be >= 1",
			map[string]interface{}{"shingleSize": shingleSize},
		)
	}

	rows := numHashFunctions / numBands
	buckets := make([]map[bucketKey][]*sequence.StatementSequence, numBands)
	for i := range buckets {
		buckets[i] = make(map[bucketKey][]*sequence.StatementSequence)
	}
	return &Index{
		numBands:     numBands,
		rowsPerBand:  rows,
		shingleSize:  shingleSize,
		signatureLen: numHashFunctions,
		buckets:      buckets,
	}, nil
}

func (idx *Index) signature(tokens []token.Token) minhash.Signature {
	return minhash.Compute(tokens, idx.signatureLen, idx.shingleSize)
}

func (idx *Index) bandKeys(sig minhash.Signature) []bucketKey {
	keys := make([]bucketKey, idx.numBands)
	for band := 0; band < idx.numBands; band++ {
		start := band * idx.rowsPerBand
		keys[band] = bucketKeyFor(band, sig[start:start+idx.rowsPerBand])
	}
	return keys
}

// Add computes tokens' signature once and inserts seq into the index's B
// buckets.
func (idx *Index) Add(tokens []token.Token, seq *sequence.StatementSequence) {
	idx.insert(idx.signature(tokens), seq)
}

func (idx *Index) insert(sig minhash.Signature, seq *sequence.StatementSequence) {
	keys := idx.bandKeys(sig)
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for band, key := range keys {
		if existing := idx.buckets[band][key]; len(existing) > 0 {
			telemetry.EmitCounter(metrics.DupeLSHBucketCollisionsTotal, 1, nil)
		}
		idx.buckets[band][key] = append(idx.buckets[band][key], seq)
	}
}

// Query computes tokens' signature once and returns the union of every
// bucket it falls into across all bands, deduplicated.
func (idx *Index) Query(tokens []token.Token) []*sequence.StatementSequence {
	return idx.collect(idx.signature(tokens))
}

func (idx *Index) collect(sig minhash.Signature) []*sequence.StatementSequence {
	keys := idx.bandKeys(sig)
	idx.mu.Lock()
	defer idx.mu.Unlock()

	seen := make(map[*sequence.StatementSequence]struct{})
	var results []*sequence.StatementSequence
	for band, key := range keys {
		for _, candidate := range idx.buckets[band][key] {
			if _, ok := seen[candidate]; ok {
				continue
			}
			seen[candidate] = struct{}{}
			results = append(results, candidate)
		}
	}
	telemetry.EmitCounter(metrics.DupeCandidatePairsTotal, float64(len(results)), nil)
	return results
}

// QueryAndAdd is the atomic fused variant used when streaming sequences
// one at a time: it returns every prior candidate sharing a bucket with
// seq, then inserts seq, all while holding the index lock once.
func (idx *Index) QueryAndAdd(tokens []token.Token, seq *sequence.StatementSequence) []*sequence.StatementSequence {
	sig := idx.signature(tokens)
	keys := idx.bandKeys(sig)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	seen := make(map[*sequence.StatementSequence]struct{})
	var results []*sequence.StatementSequence
	for band, key := range keys {
		for _, candidate := range idx.buckets[band][key] {
			if _, ok := seen[candidate]; ok {
				continue
			}
			seen[candidate] = struct{}{}
			results = append(results, candidate)
		}
		idx.buckets[band][key] = append(idx.buckets[band][key], seq)
	}
	telemetry.EmitCounter(metrics.DupeCandidatePairsTotal, float64(len(results)), nil)
	return results
}

// Clear empties every bucket, bounding memory between analysis runs (spec
// §5).
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for i := range idx.buckets {
		idx.buckets[i] = make(map[bucketKey][]*sequence.StatementSequence)
	}
}
