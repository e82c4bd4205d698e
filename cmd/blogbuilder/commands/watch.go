package commands

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/blogbuilder/internal/build"
	"git.home.luguber.info/inful/blogbuilder/internal/site"
	"git.home.luguber.info/inful/blogbuilder/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	SiteFlags   `embed:""`
	RenderFlags `embed:""`

	Debounce time.Duration `help:"Quiet period before a rebuild starts" default:"300ms"`
}

func (w *WatchCmd) Run(g *Global, _ *CLI) error {
	cfg, configPath, err := w.LoadSite()
	if err != nil {
		return err
	}
	opts := w.BuildOptions(configPath)
	renderer := w.Renderer()

	rebuild := func(ctx context.Context, cfg *site.Config) error {
		report, err := build.Run(ctx, cfg, opts, renderer)
		printReport(g.out(), report)
		return err
	}

	report, err := build.Run(g.ctx(), cfg, opts, renderer)
	printReport(g.out(), report)
	if err != nil {
		return err
	}

	watcher, err := watch.New(cfg, watch.Options{
		Source:     w.Source,
		ConfigPath: configPath,
		Debounce:   w.Debounce,
		ResolveDestination: func(cfg *site.Config) string {
			return build.ResolveDestination(cfg, opts)
		},
	}, rebuild)
	if err != nil {
		return err
	}
	slog.Info("Watching for changes; press Ctrl+C to stop", "source", w.Source)
	return watcher.Run(g.ctx())
}
