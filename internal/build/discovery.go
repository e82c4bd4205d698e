package build

import (
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/site"
)

// ConfigFileNames are the configuration files looked up in the site root, in
// order of preference.
var ConfigFileNames = []string{"_config.yml", "_config.yaml", "_config.toml"}

// builtinExcludes are never published unless listed in include.
var builtinExcludes = []string{
	"Gemfile",
	"Gemfile.lock",
	"node_modules",
	"vendor",
}

// contentDirs are underscore directories that hold content.
const (
	postsDir  = "_posts"
	draftsDir = "_drafts"
)

// sourceFile is a discovered content file.
type sourceFile struct {
	// Rel is slash-separated and relative to the source root.
	Rel string
	Abs string
}

type discoverer struct {
	root        string
	destination string
	configPath  string
	drafts      bool
	exclude     []string
	include     []string
}

func newDiscoverer(cfg *site.Config, root, destination, configPath string, drafts bool) *discoverer {
	d := &discoverer{
		root:        root,
		destination: destination,
		configPath:  configPath,
		drafts:      drafts,
		exclude:     builtinExcludes,
	}
	if cfg != nil {
		d.exclude = append(append([]string{}, builtinExcludes...), cfg.Exclude...)
		d.include = cfg.Include
	}
	return d
}

// discover walks the source tree and returns content files in lexical order.
func (d *discoverer) discover() ([]sourceFile, error) {
	var files []sourceFile
	err := filepath.WalkDir(d.root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == d.root {
			return nil
		}
		rel, err := filepath.Rel(d.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if entry.IsDir() {
			if d.sameFile(p, d.destination) || !d.keepDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() || d.sameFile(p, d.configPath) || !d.keepFile(rel) {
			return nil
		}
		files = append(files, sourceFile{Rel: rel, Abs: p})
		return nil
	})
	if err != nil {
		return nil, ferrors.FileSystemError(err, "failed to discover content").
			WithContext("source", d.root).
			Build()
	}
	return files, nil
}

func (d *discoverer) sameFile(p, target string) bool {
	if target == "" {
		return false
	}
	a, errA := filepath.Abs(p)
	b, errB := filepath.Abs(target)
	return errA == nil && errB == nil && a == b
}

func (d *discoverer) keepDir(rel string) bool {
	if matchAny(d.include, rel) {
		return true
	}
	name := path.Base(rel)
	switch {
	case name == postsDir:
	case name == draftsDir:
		if !d.drafts {
			return false
		}
	case isHidden(name):
		return false
	}
	return !matchAny(d.exclude, rel)
}

func (d *discoverer) keepFile(rel string) bool {
	if matchAny(d.include, rel) {
		return true
	}
	if !strings.Contains(rel, "/") {
		for _, name := range ConfigFileNames {
			if rel == name {
				return false
			}
		}
	}
	name := path.Base(rel)
	if isHidden(name) || strings.HasPrefix(name, "#") || strings.HasSuffix(name, "~") {
		return false
	}
	return !matchAny(d.exclude, rel)
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

// matchAny reports whether rel is selected by any pattern. A pattern selects
// a path it equals, a path below it, or a path (or base name) it glob-matches.
func matchAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		pattern = strings.TrimSuffix(site.NormalizePath(pattern), "/")
		if pattern == "" {
			continue
		}
		if rel == pattern || strings.HasPrefix(rel, pattern+"/") {
			return true
		}
		if ok, _ := path.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := path.Match(pattern, path.Base(rel)); ok {
			return true
		}
	}
	return false
}
