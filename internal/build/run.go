package build

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/blogbuilder/internal/document"
	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
	"git.home.luguber.info/inful/blogbuilder/internal/metrics"
	"git.home.luguber.info/inful/blogbuilder/internal/observability"
	"git.home.luguber.info/inful/blogbuilder/internal/render"
	"git.home.luguber.info/inful/blogbuilder/internal/site"
	"github.com/google/uuid"
)

const defaultDestination = "_site"

// kindUnknown labels documents that failed before their kind was known.
const kindUnknown = "unknown"

// Stage names used for logging and metrics.
const (
	StageDiscover = "discover"
	StageLoad     = "load"
	StageWrite    = "write"
)

type loaded struct {
	doc *document.Document
	raw []byte
}

// Run executes a complete build of the site rooted at opts.Source. The
// returned Report is non-nil whenever err is a build outcome rather than a
// usage problem; in lenient mode document failures are collected in the
// report and err is nil.
func Run(ctx context.Context, cfg *site.Config, opts Options, renderer render.Renderer) (*Report, error) {
	if cfg == nil {
		return nil, ferrors.ConfigError("site config required").Build()
	}
	if opts.Source == "" {
		return nil, ferrors.ValidationError("source directory required").Build()
	}
	if renderer == nil && !opts.DryRun {
		return nil, ferrors.ValidationError("renderer required").Build()
	}

	rec := opts.recorder()
	report := &Report{
		BuildID:     uuid.NewString(),
		Source:      opts.Source,
		Destination: ResolveDestination(cfg, opts),
		ConfigPath:  opts.ConfigPath,
		Drafts:      opts.Drafts,
		Strict:      opts.Strict,
		Start:       time.Now(),
	}
	ctx = observability.WithBuildID(ctx, report.BuildID)

	finish := func(status Status, err error) (*Report, error) {
		report.Status = status
		report.End = time.Now()
		rec.IncBuildOutcome(status.outcome())
		rec.ObserveBuildDuration(report.Duration())
		observability.InfoContext(ctx, "Build finished",
			slog.String("status", string(status)),
			logfields.Documents(len(report.Entries)),
			logfields.Failures(len(report.Failures)),
			logfields.DurationMS(float64(report.Duration().Microseconds())/1000))
		return report, err
	}

	// Stage 1: discovery
	stageStart := time.Now()
	stageCtx := observability.WithStage(ctx, StageDiscover)
	files, err := newDiscoverer(cfg, opts.Source, report.Destination, opts.ConfigPath, opts.Drafts).discover()
	rec.ObserveStageDuration(StageDiscover, time.Since(stageStart))
	if err != nil {
		observability.ErrorContext(stageCtx, "Discovery failed", logfields.Error(err))
		return finish(StatusFailed, err)
	}
	observability.InfoContext(stageCtx, "Discovered content", logfields.Documents(len(files)))

	workers := opts.workers()
	rec.SetWorkers(workers)

	// Stage 2: load every document. In strict mode the first failure cancels
	// the remaining work.
	stageStart = time.Now()
	stageCtx = observability.WithStage(ctx, StageLoad)
	loadCtx, cancel := context.WithCancel(stageCtx)
	defer cancel()
	loader := opts.loader()
	results := runOrdered(loadCtx, files, workers, func(_ context.Context, f sourceFile) (loaded, error) {
		data, err := os.ReadFile(f.Abs)
		if err != nil {
			err = ferrors.FileSystemError(err, "failed to read content file").
				WithContext("path", f.Rel).
				Build()
		} else {
			var doc *document.Document
			doc, err = loader.Load(f.Rel, string(data), cfg)
			if err == nil {
				return loaded{doc: doc, raw: data}, nil
			}
		}
		if opts.Strict {
			cancel()
		}
		return loaded{}, err
	})
	rec.ObserveStageDuration(StageLoad, time.Since(stageStart))

	if err := ctx.Err(); err != nil {
		return finish(StatusCanceled, err)
	}

	var pending []Entry
	var pendingRaw [][]byte
	outputs := make(map[string]string)
	for i, res := range results {
		f := files[i]
		if res.Err != nil {
			if errors.Is(res.Err, context.Canceled) {
				continue
			}
			report.fail(stageCtx, rec, f.Rel, kindUnknown, res.Err)
			continue
		}
		doc := res.Value.doc
		if !doc.Published() {
			report.Entries = append(report.Entries, Entry{Document: doc, Result: metrics.ResultSkipped})
			rec.IncDocumentResult(string(doc.Kind), metrics.ResultSkipped)
			observability.DebugContext(stageCtx, "Skipping unpublished document", logfields.Path(doc.SourcePath))
			continue
		}
		out := doc.OutputPath(cfg.Permalink)
		if other, ok := outputs[out]; ok {
			report.fail(stageCtx, rec, f.Rel, string(doc.Kind), ferrors.BuildError("output path collides with another document").
				WithContext("output", out).
				WithContext("other", other).
				Build())
			continue
		}
		outputs[out] = doc.SourcePath
		pending = append(pending, Entry{Document: doc, Output: out})
		pendingRaw = append(pendingRaw, res.Value.raw)
	}

	if opts.Strict && len(report.Failures) > 0 {
		return finish(StatusFailed, report.Failures[0].Err)
	}

	if opts.DryRun {
		for _, e := range pending {
			e.Result = metrics.ResultLoaded
			report.Entries = append(report.Entries, e)
			rec.IncDocumentResult(string(e.Document.Kind), e.Result)
		}
		return finish(report.status(), nil)
	}

	// Stage 3: render and write.
	stageStart = time.Now()
	stageCtx = observability.WithStage(ctx, StageWrite)
	writeCtx, cancelWrite := context.WithCancel(stageCtx)
	defer cancelWrite()
	indexes := make([]int, len(pending))
	for i := range indexes {
		indexes[i] = i
	}
	written := runOrdered(writeCtx, indexes, workers, func(ctx context.Context, i int) (metrics.ResultLabel, error) {
		e := pending[i]
		result, err := writeEntry(ctx, cfg, renderer, report.Destination, e, pendingRaw[i])
		if err != nil && opts.Strict {
			cancelWrite()
		}
		return result, err
	})
	rec.ObserveStageDuration(StageWrite, time.Since(stageStart))

	if err := ctx.Err(); err != nil {
		return finish(StatusCanceled, err)
	}

	for i, res := range written {
		e := pending[i]
		if res.Err != nil {
			if errors.Is(res.Err, context.Canceled) {
				continue
			}
			report.fail(stageCtx, rec, e.Document.SourcePath, string(e.Document.Kind), res.Err)
			continue
		}
		e.Result = res.Value
		report.Entries = append(report.Entries, e)
		rec.IncDocumentResult(string(e.Document.Kind), e.Result)
		observability.DebugContext(stageCtx, "Wrote document",
			logfields.Path(e.Document.SourcePath),
			logfields.Output(e.Output),
			logfields.Layout(e.Document.Layout),
			logfields.Rule(e.Document.Rule))
	}

	if opts.Strict && len(report.Failures) > 0 {
		return finish(StatusFailed, report.Failures[0].Err)
	}
	return finish(report.status(), nil)
}

func (r *Report) status() Status {
	if len(r.Failures) > 0 {
		return StatusWarning
	}
	return StatusSuccess
}

func (r *Report) fail(ctx context.Context, rec metrics.Recorder, rel, kind string, err error) {
	r.Failures = append(r.Failures, Failure{Path: rel, Err: err})
	rec.IncDocumentResult(kind, metrics.ResultFailed)
	observability.ErrorContext(ctx, "Document failed", logfields.Path(rel), logfields.Error(err))
}

// ResolveDestination returns the output directory a build of cfg writes to.
// An explicit opts.Destination wins, then the config's destination, then
// _site under the source.
func ResolveDestination(cfg *site.Config, opts Options) string {
	dest := opts.Destination
	if dest == "" {
		dest = cfg.Destination
	}
	if dest == "" {
		dest = defaultDestination
	}
	if !filepath.IsAbs(dest) && opts.Destination == "" {
		dest = filepath.Join(opts.Source, dest)
	}
	return dest
}

func writeEntry(ctx context.Context, cfg *site.Config, renderer render.Renderer, destination string, e Entry, raw []byte) (metrics.ResultLabel, error) {
	target := filepath.Join(destination, filepath.FromSlash(e.Output))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return metrics.ResultFailed, fileSystemError(err, "failed to create output directory", e.Output)
	}

	result := metrics.ResultRendered
	data := raw
	if e.Document.Kind == document.KindStatic {
		result = metrics.ResultCopied
	} else {
		out, err := renderer.Render(ctx, e.Document, cfg)
		if err != nil {
			return metrics.ResultFailed, err
		}
		data = out
	}

	if err := os.WriteFile(target, data, 0o644); err != nil {
		return metrics.ResultFailed, fileSystemError(err, "failed to write output", e.Output)
	}
	return result, nil
}

func fileSystemError(err error, msg, output string) error {
	return ferrors.FileSystemError(err, msg).WithContext("path", output).Build()
}
