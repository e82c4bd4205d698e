package commands

import (
	"log/slog"

	"git.home.luguber.info/inful/blogbuilder/internal/build"
	"git.home.luguber.info/inful/blogbuilder/internal/metrics"
	"git.home.luguber.info/inful/blogbuilder/internal/site"
	prom "github.com/prometheus/client_golang/prometheus"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	SiteFlags   `embed:""`
	RenderFlags `embed:""`

	Strict      bool   `help:"Abort on the first document failure" env:"BLOGBUILDER_STRICT"`
	Manifest    string `help:"Write a JSON build manifest to this path"`
	MetricsFile string `name:"metrics-file" help:"Write Prometheus metrics in text format to this path"`
}

func (b *BuildCmd) Run(g *Global, _ *CLI) error {
	cfg, configPath, err := b.LoadSite()
	if err != nil {
		return err
	}
	opts := b.BuildOptions(configPath)
	opts.Strict = b.Strict

	var reg *prom.Registry
	if b.MetricsFile != "" {
		reg = prom.NewRegistry()
		opts.Recorder = metrics.NewPrometheusRecorder(reg)
	}

	report, runErr := build.Run(g.ctx(), cfg, opts, b.Renderer())
	printReport(g.out(), report)

	if report != nil {
		if err := b.writeArtifacts(cfg, report, reg); err != nil {
			if runErr == nil {
				return err
			}
			slog.Warn("Failed to write build artifacts", "error", err)
		}
	}
	return runErr
}

func (b *BuildCmd) writeArtifacts(cfg *site.Config, report *build.Report, reg *prom.Registry) error {
	if b.Manifest != "" {
		m, err := report.Manifest(cfg)
		if err != nil {
			return err
		}
		if err := m.WriteFile(b.Manifest); err != nil {
			return err
		}
		slog.Info("Wrote build manifest", "path", b.Manifest)
	}
	if reg != nil {
		if err := metrics.WriteTextfile(b.MetricsFile, reg); err != nil {
			return err
		}
		slog.Info("Wrote metrics", "path", b.MetricsFile)
	}
	return nil
}
