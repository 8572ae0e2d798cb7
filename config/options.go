package config

import (
	"fmt"
	"math"

	"github.com/bmatcuk/doublestar/v4"

	dferrors "github.com/fulmenhq/dupefoundry/errors"
)

// weightSumTolerance bounds how far Weights.LCS+Levenshtein+Structural may
// drift from 1.0 before Validate rejects it.
const weightSumTolerance = 1e-3

// Weights holds the composite-score mixing weights for the similarity
// kernel's three algorithms. They must sum to 1.0 within weightSumTolerance.
type Weights struct {
	LCS         float64 `json:"lcs" yaml:"lcs"`
	Levenshtein float64 `json:"levenshtein" yaml:"levenshtein"`
	Structural  float64 `json:"structural" yaml:"structural"`
}

// LSHOptions configures MinHash signature generation and LSH banding.
type LSHOptions struct {
	NumHashFunctions int `json:"numHashFunctions" yaml:"numHashFunctions"`
	NumBands         int `json:"numBands" yaml:"numBands"`
	ShingleSize      int `json:"shingleSize" yaml:"shingleSize"`
}

// FilterOptions configures the cheap pre-filter chain run before the
// similarity kernel.
type FilterOptions struct {
	MaxSizeRatio         float64 `json:"maxSizeRatio" yaml:"maxSizeRatio"`
	MinStructuralJaccard float64 `json:"minStructuralJaccard" yaml:"minStructuralJaccard"`
}

// Options is the full tunable configuration surface for a DupeFoundry
// analysis run.
type Options struct {
	MinLines                 int             `json:"minLines" yaml:"minLines"`
	Threshold                float64         `json:"threshold" yaml:"threshold"`
	Weights                  Weights         `json:"weights" yaml:"weights"`
	IncludeTests             bool            `json:"includeTests" yaml:"includeTests"`
	ExcludePatterns          []string        `json:"excludePatterns" yaml:"excludePatterns"`
	MaxWindowGrowth          int             `json:"maxWindowGrowth" yaml:"maxWindowGrowth"`
	MaximalOnly              bool            `json:"maximalOnly" yaml:"maximalOnly"`
	EnableLSH                bool            `json:"enableLSH" yaml:"enableLSH"`
	EnableBoundaryRefinement bool            `json:"enableBoundaryRefinement" yaml:"enableBoundaryRefinement"`
	LSH                      LSHOptions      `json:"lsh" yaml:"lsh"`
	Filter                   FilterOptions   `json:"filter" yaml:"filter"`
}

// DefaultExcludePatterns are the glob patterns every preset starts from;
// build-output and VCS directories are never worth scanning for duplicates.
func DefaultExcludePatterns() []string {
	return []string{
		"**/target/**",
		"**/build/**",
		"**/generated/**",
		"**/gen/**",
		"**/.git/**",
	}
}

// DefaultOptions returns the "moderate" preset, the recommended starting
// point for a first run against an unfamiliar codebase.
func DefaultOptions() *Options {
	return Moderate()
}

// Moderate balances precision and recall: the default preset, matching the
// options default table of spec.md §6 exactly.
func Moderate() *Options {
	return &Options{
		MinLines:                 5,
		Threshold:                0.75,
		Weights:                  Weights{LCS: 0.40, Levenshtein: 0.40, Structural: 0.20},
		IncludeTests:             false,
		ExcludePatterns:          DefaultExcludePatterns(),
		MaxWindowGrowth:          5,
		MaximalOnly:              true,
		EnableLSH:                true,
		EnableBoundaryRefinement: true,
		LSH:                      LSHOptions{NumHashFunctions: 100, NumBands: 20, ShingleSize: 3},
		Filter:                   FilterOptions{MaxSizeRatio: 0.30, MinStructuralJaccard: 0.50},
	}
}

// Strict favors precision: higher threshold, longer minimum sequences, fewer
// false positives at the cost of missing smaller or looser duplicates.
func Strict() *Options {
	o := Moderate()
	o.Threshold = 0.90
	o.MinLines = 7
	o.Filter.MinStructuralJaccard = 0.4
	return o
}

// Lenient favors recall: lower threshold, shorter minimum sequences, more
// candidates survive to manual review.
func Lenient() *Options {
	o := Moderate()
	o.Threshold = 0.60
	o.MinLines = 3
	o.Filter.MinStructuralJaccard = 0.2
	return o
}

// Aggressive maximizes recall across the whole tree, including test code;
// expect a higher false-positive rate and a longer run.
func Aggressive() *Options {
	o := Lenient()
	o.IncludeTests = true
	o.MaximalOnly = false
	// MaxSizeRatio is |size1-size2|/max(size1,size2), always in [0,1); 0.9
	// makes the size pre-filter nearly a pass-through without making it a
	// literal no-op the way a value >= 1 would.
	o.Filter.MaxSizeRatio = 0.9
	return o
}

// TestSetup is tuned for detecting duplicated test fixture/setup code, which
// tends to be short and heavily boilerplate; it scans test files and accepts
// shorter minimum sequences than Moderate.
func TestSetup() *Options {
	o := Moderate()
	o.IncludeTests = true
	o.MinLines = 4
	o.Threshold = 0.75
	return o
}

// Presets returns all named presets keyed by name, as used by the CLI's
// `preset --name` subcommand and its did-you-mean hint for unknown names.
func Presets() map[string]*Options {
	return map[string]*Options{
		"moderate":   Moderate(),
		"strict":     Strict(),
		"lenient":    Lenient(),
		"aggressive": Aggressive(),
		"test_setup": TestSetup(),
	}
}

// Validate checks Options for internal consistency, returning a
// ConfigurationError-kind *errors.PipelineError describing the first
// violation found.
func (o *Options) Validate() error {
	if o.MinLines < 1 {
		return dferrors.NewConfigurationError(
			"options.min_lines.invalid",
			fmt.Sprintf("min_lines must be >= 1, got %d", o.MinLines),
			map[string]interface{}{"minLines": o.MinLines},
		)
	}

	if o.Threshold < 0 || o.Threshold > 1 {
		return dferrors.NewConfigurationError(
			"options.threshold.out_of_range",
			fmt.Sprintf("threshold must be within [0,1], got %v", o.Threshold),
			map[string]interface{}{"threshold": o.Threshold},
		)
	}

	sum := o.Weights.LCS + o.Weights.Levenshtein + o.Weights.Structural
	if math.Abs(sum-1.0) > weightSumTolerance {
		return dferrors.NewConfigurationError(
			"options.weights.not_normalized",
			fmt.Sprintf("weights must sum to 1.0 (+/- %v), got %v", weightSumTolerance, sum),
			map[string]interface{}{
				"lcs":         o.Weights.LCS,
				"levenshtein": o.Weights.Levenshtein,
				"structural":  o.Weights.Structural,
				"sum":         sum,
			},
		)
	}
	for name, w := range map[string]float64{
		"lcs":         o.Weights.LCS,
		"levenshtein": o.Weights.Levenshtein,
		"structural":  o.Weights.Structural,
	} {
		if w < 0 {
			return dferrors.NewConfigurationError(
				"options.weights.negative",
				fmt.Sprintf("weight %q must be >= 0, got %v", name, w),
				map[string]interface{}{"weight": name, "value": w},
			)
		}
	}

	if o.MaxWindowGrowth < 0 {
		return dferrors.NewConfigurationError(
			"options.max_window_growth.negative",
			fmt.Sprintf("max_window_growth must be >= 0, got %d", o.MaxWindowGrowth),
			map[string]interface{}{"maxWindowGrowth": o.MaxWindowGrowth},
		)
	}

	if o.EnableLSH {
		if o.LSH.NumBands <= 0 || o.LSH.NumHashFunctions <= 0 {
			return dferrors.NewConfigurationError(
				"options.lsh.invalid_dimensions",
				"lsh.num_hash_functions and lsh.num_bands must both be positive when lsh is enabled",
				map[string]interface{}{
					"numHashFunctions": o.LSH.NumHashFunctions,
					"numBands":         o.LSH.NumBands,
				},
			)
		}
		if o.LSH.NumHashFunctions%o.LSH.NumBands != 0 {
			return dferrors.NewConfigurationError(
				"options.lsh.bands_do_not_divide_hashes",
				fmt.Sprintf("lsh.num_hash_functions (%d) must be evenly divisible by lsh.num_bands (%d)",
					o.LSH.NumHashFunctions, o.LSH.NumBands),
				map[string]interface{}{
					"numHashFunctions": o.LSH.NumHashFunctions,
					"numBands":         o.LSH.NumBands,
				},
			)
		}
		if o.LSH.ShingleSize < 1 {
			return dferrors.NewConfigurationError(
				"options.lsh.shingle_size.invalid",
				fmt.Sprintf("lsh.shingle_size must be >= 1, got %d", o.LSH.ShingleSize),
				map[string]interface{}{"shingleSize": o.LSH.ShingleSize},
			)
		}
	}

	if o.Filter.MaxSizeRatio <= 0 {
		return dferrors.NewConfigurationError(
			"options.filter.max_size_ratio.invalid",
			fmt.Sprintf("filter.max_size_ratio must be > 0, got %v", o.Filter.MaxSizeRatio),
			map[string]interface{}{"maxSizeRatio": o.Filter.MaxSizeRatio},
		)
	}
	if o.Filter.MinStructuralJaccard < 0 || o.Filter.MinStructuralJaccard > 1 {
		return dferrors.NewConfigurationError(
			"options.filter.min_structural_jaccard.out_of_range",
			fmt.Sprintf("filter.min_structural_jaccard must be within [0,1], got %v", o.Filter.MinStructuralJaccard),
			map[string]interface{}{"minStructuralJaccard": o.Filter.MinStructuralJaccard},
		)
	}

	if _, err := CompileExcludePatterns(o.ExcludePatterns); err != nil {
		return dferrors.NewConfigurationError(
			"options.exclude_patterns.invalid",
			fmt.Sprintf("invalid exclude pattern: %v", err),
			map[string]interface{}{"excludePatterns": o.ExcludePatterns},
		)
	}

	return nil
}

// RowsPerBand returns the number of MinHash rows per LSH band
// (LSH.NumHashFunctions / LSH.NumBands). Callers must Validate first to
// guarantee the division is exact.
func (o *Options) RowsPerBand() int {
	if o.LSH.NumBands == 0 {
		return 0
	}
	return o.LSH.NumHashFunctions / o.LSH.NumBands
}

// ExcludeMatcher matches relative file paths against a compiled set of
// doublestar glob patterns.
type ExcludeMatcher struct {
	patterns []string
}

// CompileExcludePatterns validates each pattern against doublestar's
// pattern grammar and returns a matcher; a malformed pattern is reported
// with its index and the underlying parse error.
func CompileExcludePatterns(patterns []string) (*ExcludeMatcher, error) {
	compiled := make([]string, 0, len(patterns))
	for i, p := range patterns {
		if _, err := doublestar.Match(p, ""); err != nil {
			return nil, fmt.Errorf("exclude pattern %d (%q) is not a valid glob: %w", i, p, err)
		}
		compiled = append(compiled, p)
	}
	return &ExcludeMatcher{patterns: compiled}, nil
}

// Match reports whether relPath (slash-separated, relative to the scan
// root) matches any compiled exclude pattern.
func (m *ExcludeMatcher) Match(relPath string) bool {
	for _, p := range m.patterns {
		if ok, err := doublestar.Match(p, relPath); err == nil && ok {
			return true
		}
	}
	return false
}
