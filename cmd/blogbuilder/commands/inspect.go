package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/blogbuilder/internal/document"
	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/frontmatter"
)

// InspectCmd implements the 'inspect' command.
type InspectCmd struct {
	SiteFlags `embed:""`

	Path string `arg:"" help:"Content file, relative to the site source"`
}

func (i *InspectCmd) Run(g *Global, _ *CLI) error {
	cfg, _, err := i.LoadSite()
	if err != nil {
		return err
	}

	rel := filepath.ToSlash(filepath.Clean(i.Path))
	data, err := os.ReadFile(filepath.Join(i.Source, filepath.FromSlash(rel)))
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNotFound, "failed to read content file").
			WithContext("path", rel).
			Build()
	}

	doc, err := document.Load(rel, string(data), cfg)
	if err != nil {
		return err
	}
	fm, err := frontmatter.SerializeYAML(doc.FrontMatter, frontmatter.Style{Newline: "\n"})
	if err != nil {
		return err
	}

	rule := "none"
	if doc.Rule >= 0 {
		rule = fmt.Sprintf("defaults[%d]", doc.Rule)
	}
	out := g.out()
	fmt.Fprintf(out, "path:      %s\n", doc.SourcePath)
	fmt.Fprintf(out, "kind:      %s\n", doc.Kind)
	fmt.Fprintf(out, "layout:    %s\n", doc.Layout)
	fmt.Fprintf(out, "rule:      %s\n", rule)
	fmt.Fprintf(out, "output:    %s\n", doc.OutputPath(cfg.Permalink))
	fmt.Fprintf(out, "published: %t\n", doc.Published())
	fmt.Fprintf(out, "---\n%s---\n", fm)
	return nil
}
