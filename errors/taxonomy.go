package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a DupeFoundry pipeline error per the detection-core error
// taxonomy: configuration problems are fatal at construction, structural
// problems are locally fatal (the offending sequence is skipped), skip
// conditions are silent, and invariant violations are bugs.
type Kind string

const (
	// KindConfiguration marks invalid options discovered at construction
	// time: weights that don't sum to 1.0, out-of-range thresholds,
	// negative window growth, or a band/row split that doesn't divide the
	// signature length. Fatal for the run.
	KindConfiguration Kind = "configuration"

	// KindStructural marks a statement missing a source range or whose
	// parent callable is unresolvable. Locally fatal: the offending
	// sequence is skipped and analysis continues.
	KindStructural Kind = "structural"

	// KindAnalysisSkipped marks an ordinary, silent skip: a sequence below
	// min_lines, a file excluded by glob, or a callable with no body.
	KindAnalysisSkipped Kind = "analysis_skipped"

	// KindInternalInvariant marks a condition that should be unreachable
	// (e.g. an empty sequence reaching the boundary refiner, or a cluster
	// with zero members). Treated as a bug: aborts with full context.
	KindInternalInvariant Kind = "internal_invariant_violation"
)

// PipelineError is a DupeFoundry detection-core error carrying a Kind and an
// ErrorEnvelope for structured context.
type PipelineError struct {
	Kind     Kind
	Envelope *ErrorEnvelope
}

func (e *PipelineError) Error() string {
	if e.Envelope != nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Envelope.Error())
	}
	return string(e.Kind)
}

// Unwrap exposes the underlying envelope for errors.As/errors.Is chains.
func (e *PipelineError) Unwrap() error { return e.Envelope }

// IsFatal reports whether this error kind should abort the whole analysis
// run (ConfigurationError, InternalInvariantViolation) as opposed to being
// aggregated into the per-file report and continuing (StructuralError,
// AnalysisSkipped).
func (e *PipelineError) IsFatal() bool {
	return e.Kind == KindConfiguration || e.Kind == KindInternalInvariant
}

func newPipelineError(kind Kind, code, message string, context map[string]interface{}) *PipelineError {
	envelope := NewErrorEnvelope(code, message)
	envelope = SafeWithContext(envelope, context)
	switch kind {
	case KindConfiguration, KindInternalInvariant:
		envelope = SafeWithSeverity(envelope, SeverityCritical)
	case KindStructural:
		envelope = SafeWithSeverity(envelope, SeverityHigh)
	default:
		envelope = SafeWithSeverity(envelope, SeverityInfo)
	}
	return &PipelineError{Kind: kind, Envelope: envelope}
}

// NewConfigurationError builds a fatal, construction-time configuration
// error (§7 ConfigurationError).
func NewConfigurationError(code, message string, context map[string]interface{}) *PipelineError {
	return newPipelineError(KindConfiguration, code, message, context)
}

// NewStructuralError builds a locally-fatal structural error: the caller
// skips the offending sequence and keeps going (§7 StructuralError).
func NewStructuralError(code, message string, context map[string]interface{}) *PipelineError {
	return newPipelineError(KindStructural, code, message, context)
}

// NewAnalysisSkipped builds a silent skip notice (§7 AnalysisSkipped). It is
// still returned as a value (not logged/surfaced by default) so callers can
// choose to record it in Report.Diagnostics.
func NewAnalysisSkipped(code, message string, context map[string]interface{}) *PipelineError {
	return newPipelineError(KindAnalysisSkipped, code, message, context)
}

// NewInternalInvariantViolation builds an abort-worthy bug report (§7
// InternalInvariantViolation).
func NewInternalInvariantViolation(code, message string, context map[string]interface{}) *PipelineError {
	return newPipelineError(KindInternalInvariant, code, message, context)
}

// KindOf returns the Kind of err if it is (or wraps) a *PipelineError, and
// ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var pe *PipelineError
	if stderrors.As(err, &pe) {
		return pe.Kind, true
	}
	return "", false
}
