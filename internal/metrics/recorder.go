package metrics

import "time"

// ResultLabel enumerates per-document outcomes for counters.
type ResultLabel string

const (
	ResultLoaded   ResultLabel = "loaded"
	ResultRendered ResultLabel = "rendered"
	ResultCopied   ResultLabel = "copied"
	ResultSkipped  ResultLabel = "skipped"
	ResultFailed   ResultLabel = "failed"
)

// BuildOutcomeLabel enumerates final build states.
type BuildOutcomeLabel string

const (
	BuildOutcomeSuccess  BuildOutcomeLabel = "success"
	BuildOutcomeWarning  BuildOutcomeLabel = "warning"
	BuildOutcomeFailed   BuildOutcomeLabel = "failed"
	BuildOutcomeCanceled BuildOutcomeLabel = "canceled"
)

// Recorder defines observability hooks for build and stage metrics.
// Implementations must be safe for concurrent use; document results are
// recorded from worker goroutines.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncDocumentResult(kind string, result ResultLabel)
	IncBuildOutcome(outcome BuildOutcomeLabel)
	SetWorkers(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncDocumentResult(string, ResultLabel)      {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)          {}
func (NoopRecorder) SetWorkers(int)                             {}
