package site

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"git.home.luguber.info/inful/blogbuilder/internal/fields"
	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/frontmatter"
)

// Format selects the syntax of the configuration document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatForPath picks the document format from a file extension.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Load parses a YAML configuration document.
func Load(configText string) (*Config, error) {
	return LoadFormat(configText, FormatYAML)
}

// LoadFormat parses a configuration document in the given format. It touches
// no filesystem state. The document shares its decoders with front-matter.
func LoadFormat(configText string, format Format) (*Config, error) {
	var (
		raw *fields.Map
		err error
	)
	switch format {
	case FormatTOML:
		raw, err = frontmatter.ParseTOML([]byte(configText))
	case FormatYAML, "":
		raw, err = frontmatter.ParseYAML([]byte(configText))
	default:
		return nil, &ConfigValidationError{Index: -1, Reason: fmt.Sprintf("unsupported config format %q", format)}
	}
	if err != nil {
		cve := &ConfigValidationError{Index: -1, Reason: "malformed document", Err: err}
		var syn *frontmatter.SyntaxError
		if errors.As(err, &syn) {
			cve.Line = syn.Line
			cve.Err = syn.Err
		}
		return nil, cve
	}
	return FromMap(raw)
}

// LoadFile reads and parses the configuration file at path. It is the one
// loader entry point that touches the filesystem.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read config file").
			WithContext("path", path).
			Build()
	}
	return LoadFormat(string(data), FormatForPath(path))
}

// FromMap builds a Config from an already parsed document.
func FromMap(raw *fields.Map) (*Config, error) {
	if raw == nil {
		raw = fields.New()
	}
	cfg := &Config{Raw: raw.Clone(), Extra: fields.New()}

	scalars := []struct {
		key string
		dst *string
	}{
		{KeyTitle, &cfg.Title},
		{KeyEmail, &cfg.Email},
		{KeyDescription, &cfg.Description},
		{KeyBaseURL, &cfg.BaseURL},
		{KeyURL, &cfg.URL},
		{KeyTheme, &cfg.Theme},
		{KeyMarkdown, &cfg.Markdown},
		{KeyHighlighter, &cfg.Highlighter},
		{KeyDestination, &cfg.Destination},
		{KeyPermalink, &cfg.Permalink},
		{KeyTimezone, &cfg.Timezone},
	}
	for _, s := range scalars {
		v, err := scalarString(raw, s.key)
		if err != nil {
			return nil, err
		}
		*s.dst = v
	}

	pluginKey := KeyPlugins
	if !raw.Has(KeyPlugins) && raw.Has(KeyGems) {
		pluginKey = KeyGems
	}
	lists := []struct {
		key string
		dst *[]string
	}{
		{pluginKey, &cfg.Plugins},
		{KeyExclude, &cfg.Exclude},
		{KeyInclude, &cfg.Include},
	}
	for _, l := range lists {
		v, ok := raw.Strings(l.key)
		if !ok {
			return nil, keyError(l.key, "must be a list of strings")
		}
		*l.dst = v
	}

	defaults, err := parseDefaults(raw)
	if err != nil {
		return nil, err
	}
	cfg.Defaults = defaults

	cfg.Raw.Range(func(k string, v any) bool {
		if !IsRecognized(k) {
			cfg.Extra.Set(k, v)
		}
		return true
	})

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// scalarString reads a recognized scalar key. Missing and null values yield
// "". Numbers and booleans are accepted in their textual form; collections are
// rejected.
func scalarString(m *fields.Map, key string) (string, error) {
	switch v := m.Get(key).(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case time.Time:
		return v.Format(time.RFC3339), nil
	default:
		return "", keyError(key, "must be a string")
	}
}

func parseDefaults(raw *fields.Map) ([]DefaultRule, error) {
	v, present := raw.Lookup(KeyDefaults)
	if !present || v == nil {
		return nil, nil
	}
	entries, ok := v.([]any)
	if !ok {
		return nil, keyError(KeyDefaults, "must be a list of {scope, values} entries")
	}

	rules := make([]DefaultRule, 0, len(entries))
	for i, entry := range entries {
		em, ok := entry.(*fields.Map)
		if !ok {
			return nil, entryError(KeyDefaults, i, "entry must be a mapping")
		}
		scope, ok := em.Map("scope")
		if !ok {
			return nil, entryError(KeyDefaults, i, "scope must be a mapping with a path")
		}
		path, ok := scope.String("path")
		if !ok {
			return nil, entryError(KeyDefaults, i, "scope.path must be a string")
		}
		var docType string
		if t, present := scope.Lookup("type"); present && t != nil {
			s, isStr := t.(string)
			if !isStr {
				return nil, entryError(KeyDefaults, i, "scope.type must be a string")
			}
			docType = s
		}
		values, ok := em.Map("values")
		if !ok {
			return nil, entryError(KeyDefaults, i, "values must be a mapping")
		}
		rules = append(rules, DefaultRule{Path: path, Type: docType, Values: values.Clone()})
	}
	return rules, nil
}

func (c *Config) validate() error {
	if c.BaseURL != "" {
		if !strings.HasPrefix(c.BaseURL, "/") {
			return keyError(KeyBaseURL, fmt.Sprintf("%q must start with \"/\"", c.BaseURL))
		}
		if strings.HasSuffix(c.BaseURL, "/") {
			return keyError(KeyBaseURL, fmt.Sprintf("%q must not end with \"/\"", c.BaseURL))
		}
	}
	if c.URL != "" {
		u, err := url.Parse(c.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return keyError(KeyURL, fmt.Sprintf("%q must be an absolute origin such as https://example.com", c.URL))
		}
	}
	return nil
}
