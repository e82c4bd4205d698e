package frontmatter

import (
	"bytes"

	"git.home.luguber.info/inful/blogbuilder/internal/fields"
	"gopkg.in/yaml.v3"
)

// SerializeYAML serializes front-matter into YAML bytes (without delimiters).
//
// Keys keep the map's insertion order. The returned bytes use the newline
// style provided by Style (defaults to \n). An empty map serializes to an
// empty slice.
func SerializeYAML(m *fields.Map, style Style) ([]byte, error) {
	if m.Len() == 0 {
		return []byte{}, nil
	}

	nl := style.Newline
	if nl == "" {
		nl = "\n"
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fields.ToYAMLNode(m)); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}

	out := buf.Bytes()
	if nl != "\n" {
		out = bytes.ReplaceAll(out, []byte("\n"), []byte(nl))
	}
	return out, nil
}
