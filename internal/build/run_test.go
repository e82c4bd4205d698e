package build

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"git.home.luguber.info/inful/blogbuilder/internal/document"
	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/metrics"
	"git.home.luguber.info/inful/blogbuilder/internal/render"
	"git.home.luguber.info/inful/blogbuilder/internal/site"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
title: Test
permalink: date
exclude:
  - notes
include:
  - .well-known
defaults:
  - scope: {path: "", type: posts}
    values: {layout: post}
`

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func newSite(t *testing.T, extra map[string]string) (string, *site.Config) {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"_config.yml":                 testConfig,
		"index.md":                    "---\ntitle: Home\n---\n# Welcome\n",
		"_posts/2020-01-02-hello.md":  "---\ntitle: Hello\n---\nHello *world*\n",
		"assets/logo.png":             "PNGDATA",
		"_drafts/idea.md":             "---\ntitle: Idea\n---\nlater\n",
		"_includes/head.html":         "<head>",
		".git/config":                 "[core]",
		".well-known/security.txt":    "contact",
		"notes/private.md":            "---\n---\nsecret\n",
		"Gemfile":                     "source 'x'",
		"hidden.md":                   "---\npublished: false\n---\nhidden\n",
	}
	for k, v := range extra {
		files[k] = v
	}
	writeTree(t, root, files)

	cfg, err := site.LoadFile(filepath.Join(root, "_config.yml"))
	require.NoError(t, err)
	return root, cfg
}

func outputs(r *Report) map[string]metrics.ResultLabel {
	out := map[string]metrics.ResultLabel{}
	for _, e := range r.Entries {
		out[e.Document.SourcePath] = e.Result
	}
	return out
}

func TestRun_BuildsSite(t *testing.T) {
	root, cfg := newSite(t, nil)
	dest := filepath.Join(root, "_site")

	report, err := Run(context.Background(), cfg, Options{Source: root, Concurrency: 2}, render.NewMarkdown(render.Options{}))
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, report.Status)
	assert.Equal(t, dest, report.Destination)
	assert.Empty(t, report.Failures)
	assert.Equal(t, map[string]metrics.ResultLabel{
		"index.md":                   metrics.ResultRendered,
		"_posts/2020-01-02-hello.md": metrics.ResultRendered,
		"assets/logo.png":            metrics.ResultCopied,
		".well-known/security.txt":   metrics.ResultCopied,
		"hidden.md":                  metrics.ResultSkipped,
	}, outputs(report))

	index, err := os.ReadFile(filepath.Join(dest, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), `<h1 id="welcome">Welcome</h1>`)

	post, err := os.ReadFile(filepath.Join(dest, "2020", "01", "02", "hello.html"))
	require.NoError(t, err)
	assert.Contains(t, string(post), "<em>world</em>")

	logo, err := os.ReadFile(filepath.Join(dest, "assets", "logo.png"))
	require.NoError(t, err)
	assert.Equal(t, "PNGDATA", string(logo))

	for _, absent := range []string{"_config.yml", "Gemfile", "notes/private.html", "_includes/head.html", "hidden.html", "_drafts"} {
		assert.NoFileExists(t, filepath.Join(dest, filepath.FromSlash(absent)))
	}
}

func TestRun_RebuildDoesNotDiscoverOutput(t *testing.T) {
	root, cfg := newSite(t, nil)
	opts := Options{Source: root}
	r := render.NewMarkdown(render.Options{})

	first, err := Run(context.Background(), cfg, opts, r)
	require.NoError(t, err)
	second, err := Run(context.Background(), cfg, opts, r)
	require.NoError(t, err)

	assert.Len(t, second.Entries, len(first.Entries))
}

func TestRun_Drafts(t *testing.T) {
	root, cfg := newSite(t, nil)

	report, err := Run(context.Background(), cfg, Options{Source: root, Drafts: true}, render.NewMarkdown(render.Options{}))
	require.NoError(t, err)

	assert.Equal(t, metrics.ResultRendered, outputs(report)["_drafts/idea.md"])
}

func TestRun_LenientCollectsFailures(t *testing.T) {
	root, cfg := newSite(t, map[string]string{
		"broken.md": "---\ntitle: [oops\n---\n",
	})

	report, err := Run(context.Background(), cfg, Options{Source: root}, render.NewMarkdown(render.Options{}))
	require.NoError(t, err)

	assert.Equal(t, StatusWarning, report.Status)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "broken.md", report.Failures[0].Path)
	assert.Equal(t, ferrors.CategoryFrontMatter, report.Failures[0].Category())
	assert.FileExists(t, filepath.Join(root, "_site", "index.html"))
}

func TestRun_StrictAbortsOnFirstFailure(t *testing.T) {
	root, cfg := newSite(t, map[string]string{
		"broken.md": "---\ntitle: [oops\n---\n",
	})

	report, err := Run(context.Background(), cfg, Options{Source: root, Strict: true}, render.NewMarkdown(render.Options{}))
	var perr *document.FrontMatterParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "broken.md", perr.Path)
	require.NotNil(t, report)
	assert.Equal(t, StatusFailed, report.Status)
	assert.NoFileExists(t, filepath.Join(root, "_site", "index.html"))
	assert.Equal(t, 11, ferrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestRun_MissingLayoutWithoutFallback(t *testing.T) {
	root, cfg := newSite(t, nil)
	loader := document.NewLoader(document.WithFallbackLayout(""))

	report, err := Run(context.Background(), cfg, Options{Source: root, Loader: loader, DryRun: true}, nil)
	require.NoError(t, err)

	// Only the post gets a layout, from its typed rule.
	failed := map[string]ferrors.ErrorCategory{}
	for _, f := range report.Failures {
		failed[f.Path] = f.Category()
	}
	assert.Equal(t, ferrors.CategoryLayout, failed["index.md"])
	assert.Equal(t, ferrors.CategoryLayout, failed["assets/logo.png"])
	assert.NotContains(t, failed, "_posts/2020-01-02-hello.md")
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	root, cfg := newSite(t, nil)

	report, err := Run(context.Background(), cfg, Options{Source: root, DryRun: true}, nil)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Count(metrics.ResultLoaded))
	assert.NoDirExists(t, filepath.Join(root, "_site"))
}

func TestRun_OutputCollision(t *testing.T) {
	root, cfg := newSite(t, map[string]string{
		"about.md":       "---\n---\none\n",
		"about.markdown": "---\n---\ntwo\n",
	})

	report, err := Run(context.Background(), cfg, Options{Source: root}, render.NewMarkdown(render.Options{}))
	require.NoError(t, err)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, "about.md", report.Failures[0].Path)
	assert.Equal(t, ferrors.CategoryBuild, report.Failures[0].Category())
}

func TestRun_ExplicitDestination(t *testing.T) {
	root, cfg := newSite(t, nil)
	dest := filepath.Join(t.TempDir(), "public")

	_, err := Run(context.Background(), cfg, Options{Source: root, Destination: dest}, render.NewMarkdown(render.Options{}))
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dest, "index.html"))
}

func TestResolveDestination(t *testing.T) {
	src := filepath.Join("srv", "site")
	assert.Equal(t, filepath.Join(src, "_site"), ResolveDestination(&site.Config{}, Options{Source: src}))
	assert.Equal(t, filepath.Join(src, "public"), ResolveDestination(&site.Config{Destination: "public"}, Options{Source: src}))
	assert.Equal(t, "out", ResolveDestination(&site.Config{Destination: "public"}, Options{Source: src, Destination: "out"}))
}

func TestRun_Canceled(t *testing.T) {
	root, cfg := newSite(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := Run(ctx, cfg, Options{Source: root}, render.NewMarkdown(render.Options{}))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusCanceled, report.Status)
}

func TestRun_RequiresInputs(t *testing.T) {
	_, err := Run(context.Background(), nil, Options{Source: "x"}, nil)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))

	cfg, err := site.Load("")
	require.NoError(t, err)
	_, err = Run(context.Background(), cfg, Options{}, nil)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))

	_, err = Run(context.Background(), cfg, Options{Source: t.TempDir()}, nil)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
}

func TestRun_RecordsMetrics(t *testing.T) {
	root, cfg := newSite(t, nil)
	reg := prom.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)

	_, err := Run(context.Background(), cfg, Options{Source: root, Recorder: rec, Concurrency: 3}, render.NewMarkdown(render.Options{}))
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "blogbuilder_document_results_total")
	require.NoError(t, err)
	assert.Positive(t, count)

	count, err = testutil.GatherAndCount(reg, "blogbuilder_build_outcomes_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestReport_Manifest(t *testing.T) {
	root, cfg := newSite(t, map[string]string{
		"broken.md": "---\ntitle: [oops\n---\n",
	})

	report, err := Run(context.Background(), cfg, Options{Source: root}, render.NewMarkdown(render.Options{}))
	require.NoError(t, err)

	m, err := report.Manifest(cfg)
	require.NoError(t, err)
	assert.Equal(t, report.BuildID, m.ID)
	assert.Equal(t, "warning", m.Status)
	assert.Len(t, m.Documents, 4, "skipped documents are not recorded")
	require.Len(t, m.Failures, 1)
	assert.Equal(t, "frontmatter", m.Failures[0].Category)
	assert.NotEmpty(t, m.Outputs.ContentHash)
	for _, d := range m.Documents {
		assert.NotEmpty(t, d.Fingerprint, d.Path)
	}
}

func TestRunOrdered_PreservesOrderAndBoundsConcurrency(t *testing.T) {
	items := []int{5, 1, 4, 2, 3, 0, 6, 7}
	var inFlight, peak int32

	results := runOrdered(context.Background(), items, 3, func(_ context.Context, n int) (int, error) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
				break
			}
		}
		time.Sleep(time.Duration(n) * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return n * 10, nil
	})

	require.Len(t, results, len(items))
	for i, n := range items {
		assert.Equal(t, n*10, results[i].Value)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	assert.Nil(t, runOrdered(context.Background(), []int{}, 2, func(context.Context, int) (int, error) { return 0, nil }))
}
