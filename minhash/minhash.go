// Package minhash implements MinHash signature computation (spec §4.3)
// over a sequence's fuzzy-normalized token stream.
package minhash

import (
	"github.com/zeebo/xxh3"

	"github.com/fulmenhq/dupefoundry/token"
)

// DefaultLength is H, the default signature length.
const DefaultLength = 100

// DefaultShingleSize is k, the default shingle size.
const DefaultShingleSize = 3

// seedMultiplier and seedIncrement generate the fixed seed sequence
// seed_i = i*seedMultiplier + seedIncrement (spec §4.3).
const (
	seedMultiplier uint64 = 2654435761
	seedIncrement  uint64 = 0x9e3779b9
)

// Signature is a fixed-length vector of 32-bit integers summarizing a
// sequence's shingle set (spec §3 MinHashSignature).
type Signature []uint32

// tokenHash32 returns a 32-bit hash of a single token's kind+normalized
// spelling, the unit the shingle rolling hash combines.
func tokenHash32(tok token.Token) uint32 {
	return uint32(xxh3.HashString(tok.Kind.String() + ":" + tok.Normalized))
}

// shingleHash combines a k-gram of tokens into a single 32-bit value via
// the fixed rolling polynomial hash h = 31*h + token_hash (spec §4.3). The
// polynomial must be identical on both sides of any comparison — it is
// never parameterized.
func shingleHash(shingle []token.Token) uint32 {
	var h uint32
	for _, tok := range shingle {
		h = 31*h + tokenHash32(tok)
	}
	return h
}

// shingles splits tokens into contiguous k-grams. If tokens is shorter
// than k, the single shingle is the entire stream.
func shingles(tokens []token.Token, k int) [][]token.Token {
	if len(tokens) == 0 {
		return nil
	}
	if len(tokens) <= k {
		return [][]token.Token{tokens}
	}
	out := make([][]token.Token, 0, len(tokens)-k+1)
	for i := 0; i+k <= len(tokens); i++ {
		out = append(out, tokens[i:i+k])
	}
	return out
}

// seedFor returns the deterministic seed for signature row i.
func seedFor(i int) uint64 {
	return uint64(i)*seedMultiplier + seedIncrement
}

// mix is the fixed 64->32 bit finalizer (spec §4.3): two
// multiply-and-xor-shift rounds in the style of a SplitMix64 finalizer.
func mix(h uint32, seed uint64) uint32 {
	x := uint64(h) ^ seed
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return uint32(x)
}

// Compute produces a length-H signature from tokens' shingle set, using
// shingle size k. Both must match on both sides of any comparison.
func Compute(tokens []token.Token, length, shingleSize int) Signature {
	sh := shingles(tokens, shingleSize)
	if len(sh) == 0 {
		return make(Signature, length)
	}

	hashes := make([]uint32, len(sh))
	for i, s := range sh {
		hashes[i] = shingleHash(s)
	}

	sig := make(Signature, length)
	for row := 0; row < length; row++ {
		seed := seedFor(row)
		min := ^uint32(0)
		for _, h := range hashes {
			if m := mix(h, seed); m < min {
				min = m
			}
		}
		sig[row] = min
	}
	return sig
}

// EqualFraction returns the fraction of positions where a and b agree, an
// unbiased estimator of the Jaccard similarity of their shingle sets (spec
// §4.3, tested by spec §8 property 2). Panics if the signatures differ in
// length, which would indicate a configuration mismatch between callers.
func EqualFraction(a, b Signature) float64 {
	if len(a) != len(b) {
		panic("minhash: signatures have different lengths")
	}
	if len(a) == 0 {
		return 0
	}
	equal := 0
	for i := range a {
		if a[i] == b[i] {
			equal++
		}
	}
	return float64(equal) / float64(len(a))
}
