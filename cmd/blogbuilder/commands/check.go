package commands

import (
	"fmt"

	"git.home.luguber.info/inful/blogbuilder/internal/build"
	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

// CheckCmd implements the 'check' command: a dry run that reports every
// document that would fail a build.
type CheckCmd struct {
	SiteFlags `embed:""`

	List bool `short:"l" help:"List each document with its layout and output path"`
}

func (c *CheckCmd) Run(g *Global, _ *CLI) error {
	cfg, configPath, err := c.LoadSite()
	if err != nil {
		return err
	}
	opts := c.BuildOptions(configPath)
	opts.DryRun = true

	report, err := build.Run(g.ctx(), cfg, opts, nil)
	if err != nil {
		return err
	}

	out := g.out()
	if c.List {
		for _, e := range report.Entries {
			fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", e.Document.SourcePath, e.Result, e.Document.Layout, e.Output)
		}
	}
	printReport(out, report)

	if len(report.Failures) == 0 {
		return nil
	}
	first := report.Failures[0]
	return ferrors.WrapError(first.Err, first.Category(),
		fmt.Sprintf("%d of %d documents failed to load", len(report.Failures), len(report.Failures)+len(report.Entries))).
		WithContext("path", first.Path).
		Build()
}
