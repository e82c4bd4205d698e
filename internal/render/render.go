// Package render turns a loaded document body into output bytes. It converts
// Markdown to HTML and nothing else; layouts are not applied.
package render

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"git.home.luguber.info/inful/blogbuilder/internal/document"
	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
	"git.home.luguber.info/inful/blogbuilder/internal/observability"
	"git.home.luguber.info/inful/blogbuilder/internal/site"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer produces the output for one document.
type Renderer interface {
	Render(ctx context.Context, doc *document.Document, cfg *site.Config) ([]byte, error)
}

// Options configures the Markdown renderer.
type Options struct {
	// Sanitize strips unsafe HTML from rendered output with a UGC policy.
	Sanitize bool
	// HardWraps renders soft line breaks as <br>.
	HardWraps bool
}

// Markdown renders Markdown bodies with goldmark and passes every other
// body through unchanged. It is safe for concurrent use.
type Markdown struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
	noted  sync.Map
}

// compatibleEngines are the markdown engine names whose output goldmark
// reproduces closely enough to render without comment.
var compatibleEngines = map[string]bool{
	"":                  true,
	"goldmark":          true,
	"commonmark":        true,
	"commonmarkghpages": true,
	"gfm":               true,
	"kramdown":          true,
}

// NewMarkdown builds a Markdown renderer.
func NewMarkdown(opts Options) *Markdown {
	htmlOpts := []renderer.Option{html.WithUnsafe()}
	if opts.HardWraps {
		htmlOpts = append(htmlOpts, html.WithHardWraps())
	}

	m := &Markdown{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Footnote, extension.Typographer),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(htmlOpts...),
		),
	}
	if opts.Sanitize {
		m.policy = bluemonday.UGCPolicy()
	}
	return m
}

// Render implements Renderer.
func (m *Markdown) Render(ctx context.Context, doc *document.Document, cfg *site.Config) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.noteConfig(ctx, cfg)
	if !doc.IsMarkdown() {
		return []byte(doc.Body), nil
	}

	var buf bytes.Buffer
	if err := m.md.Convert([]byte(doc.Body), &buf); err != nil {
		return nil, ferrors.RenderError(err, "failed to render markdown").
			WithContext("path", doc.SourcePath).
			Build()
	}
	if m.policy != nil {
		return m.policy.SanitizeBytes(buf.Bytes()), nil
	}
	return buf.Bytes(), nil
}

// noteConfig reports, once per distinct value, a markdown engine or
// highlighter the renderer does not implement.
func (m *Markdown) noteConfig(ctx context.Context, cfg *site.Config) {
	if cfg == nil {
		return
	}
	if engine := strings.ToLower(cfg.Markdown); !compatibleEngines[engine] {
		if _, seen := m.noted.LoadOrStore(site.KeyMarkdown+"="+engine, struct{}{}); !seen {
			observability.DebugContext(ctx, "Markdown engine not available; rendering with goldmark",
				logfields.Engine(cfg.Markdown))
		}
	}
	if hl := strings.ToLower(cfg.Highlighter); hl != "" && hl != "none" {
		if _, seen := m.noted.LoadOrStore(site.KeyHighlighter+"="+hl, struct{}{}); !seen {
			observability.DebugContext(ctx, "Syntax highlighting not applied",
				logfields.Engine(cfg.Highlighter))
		}
	}
}
