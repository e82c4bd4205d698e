package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/site"
	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	titles []string
}

func (r *recorder) rebuild(_ context.Context, cfg *site.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.titles = append(r.titles, cfg.Title)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.titles)
}

func (r *recorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.titles) == 0 {
		return ""
	}
	return r.titles[len(r.titles)-1]
}

func startWatcher(t *testing.T, root string) (*Watcher, *recorder) {
	t.Helper()
	configPath := filepath.Join(root, "_config.yml")
	cfg, err := site.LoadFile(configPath)
	require.NoError(t, err)

	rec := &recorder{}
	w, err := New(cfg, Options{
		Source:      root,
		Destination: filepath.Join(root, "_site"),
		ConfigPath:  configPath,
		Debounce:    20 * time.Millisecond,
	}, rec.rebuild)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})
	// Give the watcher time to register its directories.
	time.Sleep(100 * time.Millisecond)
	return w, rec
}

func newTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "_config.yml"), []byte("title: One\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "_posts"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "_site"), 0o755))
	return root
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWatcher_RebuildsOnContentChange(t *testing.T) {
	root := newTree(t)
	_, rec := startWatcher(t, root)

	write(t, filepath.Join(root, "_posts", "2020-01-01-a.md"), "---\n---\nA\n")

	require.Eventually(t, func() bool { return rec.count() >= 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "One", rec.last())
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	root := newTree(t)
	_, rec := startWatcher(t, root)

	for i := 0; i < 5; i++ {
		write(t, filepath.Join(root, "index.md"), "---\n---\nedit\n")
	}

	require.Eventually(t, func() bool { return rec.count() >= 1 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}

func TestWatcher_WatchesNewDirectories(t *testing.T) {
	root := newTree(t)
	_, rec := startWatcher(t, root)

	dir := filepath.Join(root, "guides")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.Eventually(t, func() bool { return rec.count() >= 1 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	before := rec.count()

	write(t, filepath.Join(dir, "intro.md"), "---\n---\nintro\n")
	require.Eventually(t, func() bool { return rec.count() > before }, 5*time.Second, 10*time.Millisecond)
}

func TestWatcher_ReloadsConfig(t *testing.T) {
	root := newTree(t)
	w, rec := startWatcher(t, root)

	write(t, filepath.Join(root, "_config.yml"), "title: Two\n")

	require.Eventually(t, func() bool { return rec.last() == "Two" }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "Two", w.Config().Title)
}

func TestWatcher_KeepsConfigOnReloadError(t *testing.T) {
	root := newTree(t)
	w, rec := startWatcher(t, root)

	write(t, filepath.Join(root, "_config.yml"), "baseurl: no-slash\n")

	require.Eventually(t, func() bool { return rec.count() >= 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "One", rec.last())
	assert.Equal(t, "One", w.Config().Title)
}

func TestWatcher_IgnoresOutputAndHiddenFiles(t *testing.T) {
	root := newTree(t)
	_, rec := startWatcher(t, root)

	write(t, filepath.Join(root, "_site", "index.html"), "<html>")
	write(t, filepath.Join(root, ".hidden"), "x")
	write(t, filepath.Join(root, "index.md.swp"), "x")

	time.Sleep(300 * time.Millisecond)
	assert.Zero(t, rec.count())
}

func TestIgnored(t *testing.T) {
	root := t.TempDir()
	w, err := New(&site.Config{}, Options{Source: root, Destination: filepath.Join(root, "_site")}, func(context.Context, *site.Config) error { return nil })
	require.NoError(t, err)

	tests := []struct {
		rel  string
		want bool
	}{
		{"index.md", false},
		{"_posts/2020-01-01-a.md", false},
		{"_site/index.html", true},
		{".git/HEAD", true},
		{"assets/.DS_Store", true},
		{"notes.md~", true},
		{"notes.md.swp", true},
		{"#notes.md#", true},
		{"draft.tmp", true},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.want, w.ignored(filepath.Join(root, filepath.FromSlash(tt.rel))))
		})
	}
}

func TestNew_RequiresInputs(t *testing.T) {
	_, err := New(nil, Options{Source: "."}, func(context.Context, *site.Config) error { return nil })
	require.Error(t, err)

	_, err = New(&site.Config{}, Options{Source: "."}, nil)
	require.Error(t, err)
}

func TestWatcher_FollowsDestinationAcrossReloads(t *testing.T) {
	root := newTree(t)
	configPath := filepath.Join(root, "_config.yml")
	cfg, err := site.LoadFile(configPath)
	require.NoError(t, err)

	resolve := func(cfg *site.Config) string {
		if cfg.Destination == "" {
			return filepath.Join(root, "_site")
		}
		return filepath.Join(root, cfg.Destination)
	}
	rec := &recorder{}
	rebuild := func(ctx context.Context, cfg *site.Config) error {
		dest := resolve(cfg)
		if err := os.MkdirAll(filepath.Join(dest, "posts"), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dest, "posts", "a.html"), []byte("<p>a</p>"), 0o644); err != nil {
			return err
		}
		return rec.rebuild(ctx, cfg)
	}

	w, err := New(cfg, Options{
		Source:             root,
		ConfigPath:         configPath,
		Debounce:           20 * time.Millisecond,
		ResolveDestination: resolve,
	}, rebuild)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "_site"), w.Destination())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)

	write(t, configPath, "title: Two\ndestination: public\n")

	require.Eventually(t, func() bool { return rec.count() >= 1 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
	assert.Equal(t, filepath.Join(root, "public"), w.Destination())
}

func TestWatcher_ReturnsWhenEventStreamCloses(t *testing.T) {
	root := newTree(t)
	w, err := New(&site.Config{}, Options{Source: root}, func(context.Context, *site.Config) error { return nil })
	require.NoError(t, err)

	fsw, err := fsnotify.NewWatcher()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- w.serve(context.Background(), fsw) }()
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, fsw.Close())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after its event stream closed")
	}
}

func TestWatcher_MissingSourceIsRuntimeError(t *testing.T) {
	w, err := New(&site.Config{}, Options{Source: filepath.Join(t.TempDir(), "missing")}, func(context.Context, *site.Config) error { return nil })
	require.NoError(t, err)

	err = w.Run(context.Background())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryRuntime))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
