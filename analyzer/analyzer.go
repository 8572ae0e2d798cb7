// Package analyzer orchestrates the full detection pipeline (spec §5):
// extraction and normalization per translation unit, LSH candidate
// retrieval, the pre-filter chain, the similarity kernel, variation
// analysis, boundary refinement, and clustering — producing one aggregate
// Report across every translation unit handed to a single run.
package analyzer

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fulmenhq/dupefoundry/boundary"
	"github.com/fulmenhq/dupefoundry/cluster"
	"github.com/fulmenhq/dupefoundry/config"
	"github.com/fulmenhq/dupefoundry/errors"
	"github.com/fulmenhq/dupefoundry/hostast"
	"github.com/fulmenhq/dupefoundry/kernel"
	"github.com/fulmenhq/dupefoundry/logging"
	"github.com/fulmenhq/dupefoundry/lsh"
	"github.com/fulmenhq/dupefoundry/normalize"
	"github.com/fulmenhq/dupefoundry/prefilter"
	"github.com/fulmenhq/dupefoundry/sequence"
	"github.com/fulmenhq/dupefoundry/telemetry"
	"github.com/fulmenhq/dupefoundry/telemetry/metrics"
	"github.com/fulmenhq/dupefoundry/token"
	"github.com/fulmenhq/dupefoundry/variation"
)

// SimilarityResult is spec §3's SimilarityResult.
type SimilarityResult struct {
	Overall        float64             `json:"overall"`
	LCS            float64             `json:"lcs"`
	Levenshtein    float64             `json:"levenshtein"`
	Structural     float64             `json:"structural"`
	Size1          int                 `json:"size1"`
	Size2          int                 `json:"size2"`
	Variations     *variation.Analysis `json:"variations"`
	TypeCompatible bool                `json:"type_compatible"`
	CanRefactor    bool                `json:"can_refactor"`
}

// SequenceLocation is the JSON-serializable projection of a
// *sequence.StatementSequence: a SimilarityPair or Cluster can't marshal
// its sequences directly (StatementSequence.Tree is an internal,
// self-referential arena, not report data), so this carries just the
// fields a report consumer needs to locate the duplicate in source.
type SequenceLocation struct {
	Path        string `json:"path"`
	StartLine   int    `json:"start_line"`
	StartColumn int    `json:"start_column"`
	EndLine     int    `json:"end_line"`
	EndColumn   int    `json:"end_column"`
	Statements  int    `json:"statements"`
}

func locationOf(s *sequence.StatementSequence) SequenceLocation {
	return SequenceLocation{
		Path:        s.Path,
		StartLine:   s.StartPos.Line,
		StartColumn: s.StartPos.Column,
		EndLine:     s.EndPos.Line,
		EndColumn:   s.EndPos.Column,
		Statements:  s.Len(),
	}
}

// SimilarityPair is spec §3's SimilarityPair: Seq1 always precedes Seq2 in
// seq_order (spec §8 property 9, §4.9).
type SimilarityPair struct {
	Seq1, Seq2 *sequence.StatementSequence
	Result     SimilarityResult
}

// similarityPairJSON is SimilarityPair's wire shape (spec SPEC_FULL.md §C.1).
type similarityPairJSON struct {
	Seq1   SequenceLocation `json:"seq1"`
	Seq2   SequenceLocation `json:"seq2"`
	Result SimilarityResult `json:"result"`
}

// MarshalJSON projects Seq1/Seq2 to SequenceLocation (spec SPEC_FULL.md
// §C.1: Report gains MarshalJSON-friendly struct tags).
func (p SimilarityPair) MarshalJSON() ([]byte, error) {
	return json.Marshal(similarityPairJSON{
		Seq1:   locationOf(p.Seq1),
		Seq2:   locationOf(p.Seq2),
		Result: p.Result,
	})
}

// Diagnostic is a non-fatal note surfaced alongside the report (spec §7).
type Diagnostic struct {
	Kind     errors.Kind `json:"kind"`
	Message  string      `json:"message"`
	Path     string      `json:"path"`
	Callable string      `json:"callable"`
}

// clusterJSON is cluster.Cluster's wire shape, projecting its
// *sequence.StatementSequence fields the same way SimilarityPair does.
type clusterJSON struct {
	Members               []SequenceLocation `json:"members"`
	Primary               SequenceLocation   `json:"primary"`
	EstimatedLOCReduction int                `json:"estimated_loc_reduction"`
}

func marshalCluster(c *cluster.Cluster) clusterJSON {
	members := make([]SequenceLocation, len(c.Members))
	for i, m := range c.Members {
		members[i] = locationOf(m)
	}
	return clusterJSON{
		Members:               members,
		Primary:               locationOf(c.Primary),
		EstimatedLOCReduction: c.EstimatedLOCReduction,
	}
}

// Report is the aggregate result of one analysis run across every
// translation unit it was given (spec §3 Report, generalized to a
// corpus-level aggregate since DuplicateCluster membership can span
// files).
type Report struct {
	RunID                  string             `json:"run_id"`
	Paths                  []string           `json:"paths"`
	TotalSequences         int                `json:"total_sequences"`
	CandidatePairsAnalyzed int                `json:"candidate_pairs_analyzed"`
	SurvivingPairs         []SimilarityPair   `json:"surviving_pairs"`
	Clusters               []*cluster.Cluster `json:"clusters"`
	Diagnostics            []Diagnostic       `json:"diagnostics"`
}

// reportJSON is Report's wire shape: Clusters is projected through
// marshalCluster since cluster.Cluster itself carries raw
// *sequence.StatementSequence pointers with no JSON encoding of their own.
type reportJSON struct {
	RunID                  string           `json:"run_id"`
	Paths                  []string         `json:"paths"`
	TotalSequences         int              `json:"total_sequences"`
	CandidatePairsAnalyzed int              `json:"candidate_pairs_analyzed"`
	SurvivingPairs         []SimilarityPair `json:"surviving_pairs"`
	Clusters               []clusterJSON    `json:"clusters"`
	Diagnostics            []Diagnostic     `json:"diagnostics"`
}

// MarshalJSON implements the serialization SPEC_FULL.md §C.1 commits to.
func (r *Report) MarshalJSON() ([]byte, error) {
	clusters := make([]clusterJSON, len(r.Clusters))
	for i, c := range r.Clusters {
		clusters[i] = marshalCluster(c)
	}
	return json.Marshal(reportJSON{
		RunID:                  r.RunID,
		Paths:                  r.Paths,
		TotalSequences:         r.TotalSequences,
		CandidatePairsAnalyzed: r.CandidatePairsAnalyzed,
		SurvivingPairs:         r.SurvivingPairs,
		Clusters:               clusters,
		Diagnostics:            r.Diagnostics,
	})
}

// Summary is a compact, report-level rollup — the counts a CI gate or
// dashboard checks without walking every SimilarityPair/Cluster (spec
// SPEC_FULL.md §C.1).
type Summary struct {
	RunID                      string `json:"run_id"`
	FileCount                  int    `json:"file_count"`
	TotalSequences             int    `json:"total_sequences"`
	CandidatePairsAnalyzed     int    `json:"candidate_pairs_analyzed"`
	SurvivingPairCount         int    `json:"surviving_pair_count"`
	RefactorablePairCount      int    `json:"refactorable_pair_count"`
	ClusterCount               int    `json:"cluster_count"`
	TotalEstimatedLOCReduction int    `json:"total_estimated_loc_reduction"`
	DiagnosticCount            int    `json:"diagnostic_count"`
}

// Summary rolls the Report up into its headline counts.
func (r *Report) Summary() Summary {
	s := Summary{
		RunID:                  r.RunID,
		FileCount:              len(r.Paths),
		TotalSequences:         r.TotalSequences,
		CandidatePairsAnalyzed: r.CandidatePairsAnalyzed,
		SurvivingPairCount:     len(r.SurvivingPairs),
		ClusterCount:           len(r.Clusters),
		DiagnosticCount:        len(r.Diagnostics),
	}
	for _, p := range r.SurvivingPairs {
		if p.Result.CanRefactor {
			s.RefactorablePairCount++
		}
	}
	for _, c := range r.Clusters {
		s.TotalEstimatedLOCReduction += c.EstimatedLOCReduction
	}
	return s
}

// Analyzer drives the pipeline with one fixed, validated configuration
// (spec §9: "pass an immutable options value through the pipeline instead
// [of global configuration state]").
type Analyzer struct {
	opts       config.Options
	extractor  *sequence.Extractor
	normalizer *normalize.Normalizer
	kernel     *kernel.Kernel
	prefilter  *prefilter.Chain
	boundary   *boundary.Refiner
	lshIndex   *lsh.Index // nil when opts.EnableLSH is false
	excludes   *config.ExcludeMatcher
	log        *logging.Logger

	// workerCount bounds the fan-out at both concurrency seams of spec §5.
	workerCount int
}

// New validates opts and builds an Analyzer. Returns the first
// ConfigurationError encountered. log may be nil, in which case a
// stderr-only CLI logger is built.
func New(opts config.Options, log *logging.Logger) (*Analyzer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		cliLog, err := logging.NewCLI("dupefoundry")
		if err != nil {
			return nil, err
		}
		log = cliLog
	}
	log = log.WithComponent("analyzer")

	extractor, err := sequence.NewExtractor(sequence.ExtractorOptions{
		MinLines:        opts.MinLines,
		MaxWindowGrowth: opts.MaxWindowGrowth,
		MaximalOnly:     opts.MaximalOnly,
		IncludeTests:    opts.IncludeTests,
	})
	if err != nil {
		return nil, err
	}

	prefilterChain, err := prefilter.NewChain(prefilter.Options{
		MaxSizeRatio:         opts.Filter.MaxSizeRatio,
		MinStructuralJaccard: opts.Filter.MinStructuralJaccard,
	})
	if err != nil {
		return nil, err
	}

	var lshIndex *lsh.Index
	if opts.EnableLSH {
		lshIndex, err = lsh.NewIndex(opts.LSH.NumHashFunctions, opts.LSH.NumBands, opts.LSH.ShingleSize)
		if err != nil {
			return nil, err
		}
	}

	var boundaryRefiner *boundary.Refiner
	if opts.EnableBoundaryRefinement {
		boundaryRefiner, err = boundary.NewRefiner(opts.MinLines)
		if err != nil {
			return nil, err
		}
	}

	excludes, err := config.CompileExcludePatterns(opts.ExcludePatterns)
	if err != nil {
		return nil, err
	}

	return &Analyzer{
		opts:        opts,
		extractor:   extractor,
		normalizer:  normalize.New(),
		kernel:      kernel.New(opts.Weights),
		prefilter:   prefilterChain,
		boundary:    boundaryRefiner,
		lshIndex:    lshIndex,
		excludes:    excludes,
		log:         log,
		workerCount: 8,
	}, nil
}

// Clear resets the shared, identity-keyed caches (LSH index, fuzzy node
// cache) so a new Analyzer run starts with bounded memory (spec §5).
func (a *Analyzer) Clear() {
	if a.lshIndex != nil {
		a.lshIndex.Clear()
	}
	a.prefilter.Clear()
}

func (a *Analyzer) relPathExcluded(relPath string) bool {
	return a.excludes.Match(relPath)
}

// Analyze runs the full pipeline over every given translation unit and
// returns one aggregate Report (spec §5 dataflow).
func (a *Analyzer) Analyze(trees []*hostast.Tree) (*Report, error) {
	runID := errors.GenerateCorrelationID()
	log := a.log
	start := time.Now()
	defer func() {
		telemetry.EmitHistogram(metrics.DupeAnalysisDurationMs, time.Since(start), map[string]string{metrics.TagOperation: "analyze"})
	}()

	log.Info("analysis run starting", zap.String("run_id", runID), zap.Int("tree_count", len(trees)))

	report := &Report{RunID: runID}

	type extraction struct {
		tree  *hostast.Tree
		seqs  []*sequence.StatementSequence
		diags []sequence.Diagnostic
	}

	// Seam 1: extraction and fuzzy-normalization/signature prep per
	// translation unit are independent (spec §5).
	extractions := make([]extraction, len(trees))
	a.parallelFor(len(trees), func(i int) {
		tree := trees[i]
		extractions[i].tree = tree
		if a.relPathExcluded(tree.Path) {
			return
		}

		seqs, diags, err := a.extractor.Extract(tree)
		if err != nil {
			log.Error("extraction failed", zap.String("path", tree.Path), zap.Error(err))
			return
		}
		extractions[i].seqs = seqs
		extractions[i].diags = diags
	})

	var allSequences []*sequence.StatementSequence
	for _, e := range extractions {
		report.Paths = append(report.Paths, e.tree.Path)
		for _, d := range e.diags {
			report.Diagnostics = append(report.Diagnostics, Diagnostic{Kind: d.Kind, Message: d.Message, Path: e.tree.Path, Callable: d.Callable})
		}
		allSequences = append(allSequences, e.seqs...)
	}
	report.TotalSequences = len(allSequences)
	log.Info("extraction complete", zap.Int("sequence_count", len(allSequences)))

	candidates := a.candidatePairs(allSequences)
	report.CandidatePairsAnalyzed = len(candidates)
	log.Info("candidate retrieval complete", zap.Int("candidate_count", len(candidates)))

	// Seam 2: pair evaluation after candidate retrieval is independent
	// (spec §5).
	results := make([]*SimilarityPair, len(candidates))
	a.parallelFor(len(candidates), func(i int) {
		results[i] = a.evaluatePair(candidates[i].a, candidates[i].b)
	})

	var surviving []SimilarityPair
	for _, r := range results {
		if r != nil {
			surviving = append(surviving, *r)
		}
	}
	sort.Slice(surviving, func(i, j int) bool {
		return surviving[i].Seq1.Order().Less(surviving[j].Seq1.Order())
	})
	report.SurvivingPairs = surviving

	var clusterPairs []cluster.Pair
	for _, p := range surviving {
		clusterPairs = append(clusterPairs, cluster.Pair{A: p.Seq1, B: p.Seq2, Score: p.Result.Overall})
	}
	report.Clusters = cluster.Build(clusterPairs)

	telemetry.EmitCounter(metrics.DupeClusterCountTotal, float64(len(report.Clusters)), nil)
	telemetry.EmitCounter(metrics.DupePairsRetainedTotal, float64(len(surviving)), nil)
	log.Info("analysis run complete",
		zap.Int("surviving_pairs", len(surviving)),
		zap.Int("cluster_count", len(report.Clusters)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return report, nil
}

type candidatePair struct {
	a, b *sequence.StatementSequence
}

// candidatePairs narrows the quadratic pair space via LSH (when enabled)
// or exhaustive enumeration (spec §4.4, §5: "the quadratic pair list is
// never materialized [under LSH]: pairs are streamed from bucket
// enumeration").
func (a *Analyzer) candidatePairs(seqs []*sequence.StatementSequence) []candidatePair {
	if !a.opts.EnableLSH {
		var pairs []candidatePair
		for i := 0; i < len(seqs); i++ {
			for j := i + 1; j < len(seqs); j++ {
				pairs = append(pairs, orderedPair(seqs[i], seqs[j]))
			}
		}
		return pairs
	}

	seen := make(map[candidatePair]bool)
	var pairs []candidatePair
	for _, seq := range seqs {
		fuzzy := a.normalizer.NormalizeSequence(seq.Tree, seq.Statements, normalize.Fuzzy)
		tokens := flattenTokens(fuzzy)
		for _, candidate := range a.lshIndex.QueryAndAdd(tokens, seq) {
			key := orderedPair(candidate, seq)
			if seen[key] {
				continue
			}
			seen[key] = true
			pairs = append(pairs, key)
		}
	}
	return pairs
}

func orderedPair(x, y *sequence.StatementSequence) candidatePair {
	if x.Order().Less(y.Order()) {
		return candidatePair{a: x, b: y}
	}
	return candidatePair{a: y, b: x}
}

func flattenTokens(nodes []*normalize.Node) []token.Token {
	var all []token.Token
	for _, n := range nodes {
		all = append(all, n.Tokens...)
	}
	return all
}

// evaluatePair runs the pre-filter chain, the similarity kernel, variation
// analysis, and (if enabled) boundary refinement, returning nil if the
// pair is rejected or falls below the report threshold.
func (a *Analyzer) evaluatePair(x, y *sequence.StatementSequence) *SimilarityPair {
	seq1, seq2 := x, y
	if !seq1.Order().Less(seq2.Order()) {
		seq1, seq2 = seq2, seq1
	}

	if !a.prefilter.Accept(seq1, seq2) {
		return nil
	}

	result, ok := a.score(seq1, seq2)
	if !ok {
		return nil
	}

	if a.boundary != nil {
		if refined1, refined2, trimmed, err := a.boundary.Refine(seq1, seq2); err == nil && trimmed {
			if refinedResult, ok := a.score(refined1, refined2); ok && refinedResult.Overall >= a.opts.Threshold {
				telemetry.EmitCounter(metrics.DupeBoundaryTrimsTotal, 1, nil)
				seq1, seq2, result = refined1, refined2, refinedResult
			}
		}
	}

	telemetry.EmitCounter(metrics.DupePairsAnalyzedTotal, 1, nil)
	return &SimilarityPair{Seq1: seq1, Seq2: seq2, Result: result}
}

// score computes the kernel composite plus variation/type analysis for a
// pair, returning ok=false if the overall score falls below threshold.
func (a *Analyzer) score(seq1, seq2 *sequence.StatementSequence) (SimilarityResult, bool) {
	semantic1 := a.normalizer.NormalizeSequence(seq1.Tree, seq1.Statements, normalize.Semantic)
	semantic2 := a.normalizer.NormalizeSequence(seq2.Tree, seq2.Statements, normalize.Semantic)

	kernelStart := time.Now()
	kernelResult := a.kernel.Compare(semantic1, semantic2)
	telemetry.EmitHistogram(metrics.DupeKernelDurationMs, time.Since(kernelStart), nil)
	if kernelResult.Composite < a.opts.Threshold {
		return SimilarityResult{}, false
	}

	variations := variation.Analyze(semantic1, semantic2)
	canRefactor := variations.CanRefactor(kernelResult.Composite)

	return SimilarityResult{
		Overall:        kernelResult.Composite,
		LCS:            kernelResult.LCS,
		Levenshtein:    kernelResult.Levenshtein,
		Structural:     kernelResult.Structural,
		Size1:          seq1.Len(),
		Size2:          seq2.Len(),
		Variations:     variations,
		TypeCompatible: variations.TypeCompatible,
		CanRefactor:    canRefactor,
	}, true
}

// parallelFor runs fn(i) for i in [0, n) on a bounded worker pool (spec
// §5's two concurrency seams), built from sync.WaitGroup and a buffered
// job channel rather than golang.org/x/sync/errgroup — no pack example
// imports errgroup, and the stdlib primitives are a direct fit for a
// bounded fan-out with no per-task error to aggregate (see DESIGN.md).
func (a *Analyzer) parallelFor(n int, fn func(i int)) {
	if n == 0 {
		return
	}
	jobs := make(chan int, n)
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)

	workers := a.workerCount
	if workers > n {
		workers = n
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(i)
			}
		}()
	}
	wg.Wait()
}
