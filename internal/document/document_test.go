package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_Type(t *testing.T) {
	assert.Equal(t, "posts", KindPost.Type())
	assert.Equal(t, "drafts", KindDraft.Type())
	assert.Equal(t, "pages", KindPage.Type())
	assert.Equal(t, "static_files", KindStatic.Type())
}

func TestDocument_Title(t *testing.T) {
	doc, err := Load("_posts/2020-01-01-hello-big_world.md", "---\n---\n", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello Big World", doc.Title())

	doc, err = Load("_posts/2020-01-01-x.md", "---\ntitle: kept as written\n---\n", nil)
	require.NoError(t, err)
	assert.Equal(t, "kept as written", doc.Title())
}

func TestDocument_Published(t *testing.T) {
	doc, err := Load("a.md", "---\npublished: false\n---\n", nil)
	require.NoError(t, err)
	assert.False(t, doc.Published())

	doc, err = Load("a.md", "---\ntitle: x\n---\n", nil)
	require.NoError(t, err)
	assert.True(t, doc.Published())
}

func TestDocument_Categories(t *testing.T) {
	doc, err := Load("a.md", "---\ncategories: Go Tools\n---\n", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "Tools"}, doc.Categories())

	doc, err = Load("a.md", "---\ncategory: notes\n---\n", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"notes"}, doc.Categories())
}

func TestDocument_OutputPath(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		text   string
		style  string
		expect string
	}{
		{"post date style", "_posts/2020-01-02-hello.md", "---\n---\n", "", "2020/01/02/hello.html"},
		{"post with categories", "_posts/2020-01-02-hello.md", "---\ncategories: [Go]\n---\n", PermalinkDate, "go/2020/01/02/hello.html"},
		{"post pretty", "_posts/2020-01-02-hello.md", "---\n---\n", PermalinkPretty, "2020/01/02/hello/index.html"},
		{"post none", "_posts/2020-01-02-hello.md", "---\n---\n", PermalinkNone, "hello.html"},
		{"custom pattern", "_posts/2020-01-02-hello.md", "---\n---\n", "/blog/:year/:title/", "blog/2020/hello/index.html"},
		{"front-matter permalink", "_posts/2020-01-02-hello.md", "---\npermalink: /welcome/\n---\n", "", "welcome/index.html"},
		{"markdown page", "about/me.md", "---\n---\n", "", "about/me.html"},
		{"pretty page", "about/me.md", "---\n---\n", PermalinkPretty, "about/me/index.html"},
		{"pretty index page", "index.markdown", "---\n---\n", PermalinkPretty, "index.html"},
		{"html page keeps name", "feed.xml", "---\n---\n", "", "feed.xml"},
		{"static file", "assets/logo.png", "PNG", "", "assets/logo.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Load(tt.path, tt.text, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expect, doc.OutputPath(tt.style))
		})
	}
}

func TestDocument_Fingerprint(t *testing.T) {
	a, err := Load("a.md", "---\ntitle: One\n---\nbody\n", nil)
	require.NoError(t, err)
	b, err := Load("b.md", "---\ntitle: One\nfingerprint: stale\n---\nbody\n", nil)
	require.NoError(t, err)
	c, err := Load("a.md", "---\ntitle: One\n---\nother body\n", nil)
	require.NoError(t, err)

	fa, err := a.Fingerprint()
	require.NoError(t, err)
	fb, err := b.Fingerprint()
	require.NoError(t, err)
	fc, err := c.Fingerprint()
	require.NoError(t, err)

	assert.NotEmpty(t, fa)
	assert.Equal(t, fa, fb, "an existing fingerprint key is ignored")
	assert.NotEqual(t, fa, fc)
}
