package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/blogbuilder/internal/build"
	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/metrics"
	"git.home.luguber.info/inful/blogbuilder/internal/render"
	"git.home.luguber.info/inful/blogbuilder/internal/site"
	"github.com/alecthomas/kong"
)

// Global carries process-wide state into every command.
type Global struct {
	Context context.Context
	Stdout  io.Writer
}

func (g *Global) ctx() context.Context {
	if g == nil || g.Context == nil {
		return context.Background()
	}
	return g.Context
}

func (g *Global) out() io.Writer {
	if g == nil || g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

// CLI definition & global flags.
type CLI struct {
	Verbose  bool             `short:"v" help:"Enable verbose logging" env:"BLOGBUILDER_VERBOSE"`
	LogLevel string           `name:"log-level" help:"Log level (debug|info|warn|error)" default:"info" env:"BLOGBUILDER_LOG_LEVEL"`
	Version  kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Build the site into the destination directory"`
	Check   CheckCmd   `cmd:"" help:"Load every document without writing output"`
	Inspect InspectCmd `cmd:"" help:"Show the merged front matter and layout of one document"`
	Watch   WatchCmd   `cmd:"" help:"Build the site and rebuild whenever sources change"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(c.LogLevel, c.Verbose)}))
	slog.SetDefault(logger)
	return nil
}

// parseLogLevel maps a level name to a slog level; verbose always wins.
func parseLogLevel(name string, verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SiteFlags locate the site and its configuration.
type SiteFlags struct {
	Source      string `short:"s" help:"Site source directory" default:"." env:"BLOGBUILDER_SOURCE"`
	Config      string `short:"c" help:"Configuration file (default: _config.yml, _config.yaml or _config.toml in the source)" env:"BLOGBUILDER_CONFIG"`
	Destination string `short:"d" help:"Output directory (default: the config's destination, or _site)" env:"BLOGBUILDER_DESTINATION"`
	Drafts      bool   `help:"Include documents under _drafts"`
	Concurrency int    `help:"Maximum documents processed at once (0 = number of CPUs)" default:"0" env:"BLOGBUILDER_CONCURRENCY"`
}

// ConfigPath returns the configuration file in use, or "" when the site has
// none.
func (f *SiteFlags) ConfigPath() (string, error) {
	if f.Config != "" {
		return f.Config, nil
	}
	for _, name := range build.ConfigFileNames {
		p := filepath.Join(f.Source, name)
		_, err := os.Stat(p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", ferrors.WrapError(err, ferrors.CategoryConfig, "failed to stat config file").
				WithContext("path", p).
				Build()
		}
	}
	return "", nil
}

// LoadSite loads the site configuration. A site without a config file uses
// an empty configuration.
func (f *SiteFlags) LoadSite() (*site.Config, string, error) {
	path, err := f.ConfigPath()
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		slog.Debug("No config file found; using empty configuration", "source", f.Source)
		cfg, err := site.Load("")
		return cfg, "", err
	}
	cfg, err := site.LoadFile(path)
	if err != nil {
		return nil, path, err
	}
	slog.Debug("Loaded configuration", "config", path)
	return cfg, path, nil
}

// BuildOptions converts the flags into build options.
func (f *SiteFlags) BuildOptions(configPath string) build.Options {
	return build.Options{
		Source:      f.Source,
		Destination: f.Destination,
		ConfigPath:  configPath,
		Drafts:      f.Drafts,
		Concurrency: f.Concurrency,
	}
}

// RenderFlags tune Markdown rendering.
type RenderFlags struct {
	Sanitize  bool `help:"Sanitize rendered HTML" env:"BLOGBUILDER_SANITIZE"`
	HardWraps bool `name:"hard-wraps" help:"Render newlines inside paragraphs as <br>"`
}

// Renderer returns the Markdown renderer for the flags.
func (r *RenderFlags) Renderer() *render.Markdown {
	return render.NewMarkdown(render.Options{Sanitize: r.Sanitize, HardWraps: r.HardWraps})
}

// printReport writes a human readable build summary.
func printReport(w io.Writer, report *build.Report) {
	if report == nil {
		return
	}
	fmt.Fprintf(w, "Build %s: %d rendered, %d copied, %d skipped, %d failed in %s\n",
		report.Status,
		report.Count(metrics.ResultRendered),
		report.Count(metrics.ResultCopied),
		report.Count(metrics.ResultSkipped),
		len(report.Failures),
		report.Duration().Round(time.Millisecond))
	for _, f := range report.Failures {
		fmt.Fprintf(w, "  %s [%s]: %v\n", f.Path, f.Category(), f.Err)
	}
}
