// Package build runs a full site build: it discovers content files, loads
// them against the site configuration, renders them and writes the output.
//
// The loaders it drives are pure; this package owns every filesystem access.
package build

import (
	"runtime"
	"time"

	"git.home.luguber.info/inful/blogbuilder/internal/document"
	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/manifest"
	"git.home.luguber.info/inful/blogbuilder/internal/metrics"
	"git.home.luguber.info/inful/blogbuilder/internal/site"
)

// Options provides the inputs and behavior modifiers of one build.
type Options struct {
	// Source is the site root directory.
	Source string

	// Destination is the output directory. Empty means the config's
	// destination key, or "_site", resolved against Source.
	Destination string

	// ConfigPath is the configuration file in use; it is never treated as
	// content.
	ConfigPath string

	// Drafts includes documents under _drafts.
	Drafts bool

	// Strict aborts the build on the first document failure.
	Strict bool

	// DryRun loads every document but renders and writes nothing.
	DryRun bool

	// Concurrency bounds the document workers (0 = runtime.NumCPU()).
	Concurrency int

	// Recorder receives build metrics. Nil means NoopRecorder.
	Recorder metrics.Recorder

	// Loader loads documents. Nil means the default loader.
	Loader *document.Loader
}

func (o Options) workers() int {
	if o.Concurrency > 0 {
		return o.Concurrency
	}
	return runtime.NumCPU()
}

func (o Options) recorder() metrics.Recorder {
	if o.Recorder == nil {
		return metrics.NoopRecorder{}
	}
	return o.Recorder
}

func (o Options) loader() *document.Loader {
	if o.Loader == nil {
		return document.NewLoader()
	}
	return o.Loader
}

// Status represents the outcome of a build execution.
type Status string

const (
	// StatusSuccess indicates every document was processed.
	StatusSuccess Status = "success"

	// StatusWarning indicates a lenient build that skipped failing documents.
	StatusWarning Status = "warning"

	// StatusFailed indicates the build was aborted.
	StatusFailed Status = "failed"

	// StatusCanceled indicates the context was canceled mid-build.
	StatusCanceled Status = "canceled"
)

func (s Status) outcome() metrics.BuildOutcomeLabel {
	switch s {
	case StatusSuccess:
		return metrics.BuildOutcomeSuccess
	case StatusWarning:
		return metrics.BuildOutcomeWarning
	case StatusCanceled:
		return metrics.BuildOutcomeCanceled
	default:
		return metrics.BuildOutcomeFailed
	}
}

// Entry is one processed document.
type Entry struct {
	Document *document.Document
	// Output is slash-separated and relative to Report.Destination; empty for
	// skipped documents.
	Output string
	Result metrics.ResultLabel
}

// Failure is one document that could not be processed.
type Failure struct {
	Path string
	Err  error
}

// Category returns the error category used for reporting.
func (f Failure) Category() ferrors.ErrorCategory {
	return ferrors.GetCategory(f.Err)
}

// Report contains the outcome of a build.
type Report struct {
	BuildID     string
	Status      Status
	Source      string
	Destination string
	ConfigPath  string
	Drafts      bool
	Strict      bool
	Start       time.Time
	End         time.Time

	// Entries keep discovery order within each stage; skipped documents are
	// recorded during loading, before written ones.
	Entries  []Entry
	Failures []Failure
}

// Duration is the total build time.
func (r *Report) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Count returns the number of entries with result.
func (r *Report) Count(result metrics.ResultLabel) int {
	n := 0
	for _, e := range r.Entries {
		if e.Result == result {
			n++
		}
	}
	return n
}

// Manifest converts the report into a build manifest for cfg.
func (r *Report) Manifest(cfg *site.Config) (*manifest.BuildManifest, error) {
	m, err := manifest.New(cfg, r.Start)
	if err != nil {
		return nil, err
	}
	m.ID = r.BuildID
	m.Inputs.Source = r.Source
	m.Inputs.ConfigPath = r.ConfigPath
	m.Plan.Drafts = r.Drafts
	m.Plan.Strict = r.Strict
	m.Status = string(r.Status)
	m.Duration = r.Duration().Milliseconds()
	m.Outputs.Destination = r.Destination

	for _, e := range r.Entries {
		if e.Result == metrics.ResultSkipped {
			continue
		}
		fp, err := e.Document.Fingerprint()
		if err != nil {
			return nil, err
		}
		m.Documents = append(m.Documents, manifest.DocumentEntry{
			Path:        e.Document.SourcePath,
			Kind:        string(e.Document.Kind),
			Layout:      e.Document.Layout,
			Rule:        e.Document.Rule,
			Output:      e.Output,
			Fingerprint: fp,
		})
	}
	for _, f := range r.Failures {
		m.Failures = append(m.Failures, manifest.FailureEntry{
			Path:     f.Path,
			Category: string(f.Category()),
			Error:    f.Err.Error(),
		})
	}
	m.Outputs.ContentHash = m.ContentHash()
	return m, nil
}
