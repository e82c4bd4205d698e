// Package site loads the site-wide configuration document.
//
// A Config is built once per run and never mutated afterwards, so it can be
// shared by concurrent document loads.
package site

import (
	"slices"

	"git.home.luguber.info/inful/blogbuilder/internal/fields"
)

// Recognized top-level configuration keys.
const (
	KeyTitle       = "title"
	KeyEmail       = "email"
	KeyDescription = "description"
	KeyBaseURL     = "baseurl"
	KeyURL         = "url"
	KeyTheme       = "theme"
	KeyPlugins     = "plugins"
	KeyGems        = "gems"
	KeyMarkdown    = "markdown"
	KeyHighlighter = "highlighter"
	KeyDefaults    = "defaults"
	KeyExclude     = "exclude"
	KeyInclude     = "include"
	KeyDestination = "destination"
	KeyPermalink   = "permalink"
	KeyTimezone    = "timezone"
)

var recognizedKeys = []string{
	KeyTitle, KeyEmail, KeyDescription, KeyBaseURL, KeyURL, KeyTheme,
	KeyPlugins, KeyGems, KeyMarkdown, KeyHighlighter, KeyDefaults,
	KeyExclude, KeyInclude, KeyDestination, KeyPermalink, KeyTimezone,
}

// IsRecognized reports whether key is interpreted by the loader rather than
// passed through in Extra.
func IsRecognized(key string) bool {
	return slices.Contains(recognizedKeys, key)
}

// Config is the parsed site configuration.
type Config struct {
	Title       string
	Email       string
	Description string
	BaseURL     string
	URL         string
	Theme       string
	// Plugins run in listed order.
	Plugins     []string
	Markdown    string
	Highlighter string
	// Defaults are evaluated in order; the first matching rule wins.
	Defaults []DefaultRule

	Exclude     []string
	Include     []string
	Destination string
	Permalink   string
	Timezone    string

	// Extra holds unrecognized top-level keys verbatim, in document order.
	Extra *fields.Map
	// Raw is the whole parsed document.
	Raw *fields.Map
}

// Equal reports whether two configs were loaded from equivalent documents.
func (c *Config) Equal(other *Config) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.Title != other.Title || c.Email != other.Email || c.Description != other.Description ||
		c.BaseURL != other.BaseURL || c.URL != other.URL || c.Theme != other.Theme ||
		c.Markdown != other.Markdown || c.Highlighter != other.Highlighter ||
		c.Destination != other.Destination || c.Permalink != other.Permalink || c.Timezone != other.Timezone {
		return false
	}
	if !slices.Equal(c.Plugins, other.Plugins) || !slices.Equal(c.Exclude, other.Exclude) || !slices.Equal(c.Include, other.Include) {
		return false
	}
	if !slices.EqualFunc(c.Defaults, other.Defaults, DefaultRule.Equal) {
		return false
	}
	return c.Extra.Equal(other.Extra) && c.Raw.Equal(other.Raw)
}

// AbsoluteURL joins the site origin, the base path and p.
func (c *Config) AbsoluteURL(p string) string {
	if p != "" && p[0] != '/' {
		p = "/" + p
	}
	return c.URL + c.BaseURL + p
}
