package sequence

import (
	"time"

	"github.com/fulmenhq/dupefoundry/errors"
	"github.com/fulmenhq/dupefoundry/hostast"
	"github.com/fulmenhq/dupefoundry/telemetry"
	"github.com/fulmenhq/dupefoundry/telemetry/metrics"
)

// ExtractorOptions configures window generation (spec §4.1).
type ExtractorOptions struct {
	MinLines        int
	MaxWindowGrowth int
	MaximalOnly     bool
	IncludeTests    bool
}

// Extractor walks callable bodies and emits sliding windows of statements.
type Extractor struct {
	opts ExtractorOptions
}

// NewExtractor builds an Extractor from the given options. Returns a
// ConfigurationError if MinLines < 1 or MaxWindowGrowth < 0; callers that
// have already run config.Options.Validate() will never see this.
func NewExtractor(opts ExtractorOptions) (*Extractor, error) {
	if opts.MinLines < 1 {
		return nil, errors.NewConfigurationError(
			"sequence.extractor.min_lines.invalid",
			"min_lines must be >= 1",
			map[string]interface{}{"minLines": opts.MinLines},
		)
	}
	if opts.MaxWindowGrowth < 0 {
		return nil, errors.NewConfigurationError(
			"sequence.extractor.max_window_growth.negative",
			"max_window_growth must be >= 0",
			map[string]interface{}{"maxWindowGrowth": opts.MaxWindowGrowth},
		)
	}
	return &Extractor{opts: opts}, nil
}

// Diagnostic records a non-fatal skip or structural issue encountered
// during extraction (spec §7 AnalysisSkipped / StructuralError).
type Diagnostic struct {
	Kind     errors.Kind
	Message  string
	Callable string
}

// Extract walks every callable in tree and returns the sequences it
// yields, plus any non-fatal diagnostics (skipped callables, unresolvable
// structure). It never returns an error for per-callable conditions; only
// a programmer-facing invariant violation propagates as an error.
func (e *Extractor) Extract(tree *hostast.Tree) ([]*StatementSequence, []Diagnostic, error) {
	start := time.Now()
	defer func() {
		telemetry.EmitHistogram(metrics.DupeAnalysisDurationMs, time.Since(start), map[string]string{metrics.TagOperation: "extract"})
	}()

	var sequences []*StatementSequence
	var diagnostics []Diagnostic

	for _, c := range tree.Callables() {
		if !c.HasBody {
			diagnostics = append(diagnostics, Diagnostic{
				Kind:     errors.KindAnalysisSkipped,
				Message:  "callable has no body",
				Callable: tree.Node(c.Node).Name,
			})
			continue
		}
		if c.IsTest && !e.opts.IncludeTests {
			diagnostics = append(diagnostics, Diagnostic{
				Kind:     errors.KindAnalysisSkipped,
				Message:  "test callable excluded by include_tests=false",
				Callable: tree.Node(c.Node).Name,
			})
			continue
		}

		n := len(c.Statements)
		if n < e.opts.MinLines {
			diagnostics = append(diagnostics, Diagnostic{
				Kind:     errors.KindAnalysisSkipped,
				Message:  "callable body shorter than min_lines",
				Callable: tree.Node(c.Node).Name,
			})
			continue
		}

		windows := e.windowsFor(n)

		for _, w := range windows {
			seq, err := newSequence(tree, c, tree.Path, w.start, w.length)
			if err != nil {
				return nil, diagnostics, err
			}
			sequences = append(sequences, seq)
		}
	}

	telemetry.EmitCounter(metrics.DupeSequencesExtractedTotal, float64(len(sequences)), nil)
	if len(diagnostics) > 0 {
		telemetry.EmitCounter(metrics.DupeDiagnosticsTotal, float64(len(diagnostics)), map[string]string{metrics.TagPhase: "extract"})
	}

	return sequences, diagnostics, nil
}

type window struct {
	start  int
	length int
}

// windowsFor computes the window (start, length) pairs for a body of size
// n, per the §4.1 contract.
func (e *Extractor) windowsFor(n int) []window {
	minLines := e.opts.MinLines
	growth := e.opts.MaxWindowGrowth

	var windows []window
	for s := 0; s <= n-minLines; s++ {
		maxLen := minLines + growth
		if rem := n - s; rem < maxLen {
			maxLen = rem
		}

		if e.opts.MaximalOnly {
			windows = append(windows, window{start: s, length: maxLen})
			continue
		}

		for w := minLines; w <= maxLen; w++ {
			windows = append(windows, window{start: s, length: w})
		}
	}
	return windows
}
