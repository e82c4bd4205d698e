package build

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchAny(t *testing.T) {
	tests := []struct {
		patterns []string
		rel      string
		want     bool
	}{
		{[]string{"notes"}, "notes", true},
		{[]string{"notes/"}, "notes/a.md", true},
		{[]string{"notes"}, "notes-old/a.md", false},
		{[]string{"*.log"}, "logs/build.log", true},
		{[]string{"drafts/*.md"}, "drafts/a.md", true},
		{[]string{"./vendor"}, "vendor/x.js", true},
		{[]string{""}, "anything", false},
		{nil, "anything", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matchAny(tt.patterns, tt.rel), "%v %s", tt.patterns, tt.rel)
	}
}

func TestDiscoverer_KeepRules(t *testing.T) {
	d := newDiscoverer(nil, "/site", "/site/_site", "", false)

	assert.True(t, d.keepDir("_posts"))
	assert.False(t, d.keepDir("_drafts"))
	assert.False(t, d.keepDir("_layouts"))
	assert.False(t, d.keepDir(".git"))
	assert.False(t, d.keepDir("node_modules"))

	assert.False(t, d.keepFile("_config.yml"))
	assert.False(t, d.keepFile("_config.toml"))
	assert.False(t, d.keepFile("#scratch.md"))
	assert.False(t, d.keepFile("post.md~"))
	assert.True(t, d.keepFile("about.md"))

	d.drafts = true
	assert.True(t, d.keepDir("_drafts"))
}
