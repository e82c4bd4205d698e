package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"git.home.luguber.info/inful/blogbuilder/internal/fields"
	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// SyntaxError describes malformed front-matter. Line is relative to the start
// of the raw block (1-based); zero when the parser did not report a position.
type SyntaxError struct {
	Format Format
	Line   int
	Err    error
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s front matter: line %d: %v", e.Format, e.Line, e.Err)
	}
	return fmt.Sprintf("%s front matter: %v", e.Format, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// Parse decodes the raw block of b according to its format. FormatNone
// yields an empty map.
func Parse(b Block) (*fields.Map, error) {
	switch b.Format {
	case FormatYAML:
		return ParseYAML(b.Raw)
	case FormatTOML:
		return ParseTOML(b.Raw)
	default:
		return fields.New(), nil
	}
}

var yamlLineRE = regexp.MustCompile(`^yaml: line (\d+): (.*)$`)

// ParseYAML parses raw YAML front-matter (without --- delimiters) into an
// ordered map.
func ParseYAML(raw []byte) (*fields.Map, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fields.New(), nil
	}

	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, yamlSyntaxError(err)
	}

	m, err := fields.FromYAMLNode(&node)
	if err != nil {
		var nodeErr *fields.NodeError
		if errors.As(err, &nodeErr) {
			return nil, &SyntaxError{Format: FormatYAML, Line: nodeErr.Line, Err: errors.New(nodeErr.Msg)}
		}
		return nil, &SyntaxError{Format: FormatYAML, Err: err}
	}
	return m, nil
}

func yamlSyntaxError(err error) *SyntaxError {
	if m := yamlLineRE.FindStringSubmatch(err.Error()); m != nil {
		line, _ := strconv.Atoi(m[1])
		return &SyntaxError{Format: FormatYAML, Line: line, Err: errors.New(m[2])}
	}
	return &SyntaxError{Format: FormatYAML, Err: err}
}

// ParseTOML parses raw TOML front-matter (without +++ delimiters) into an
// ordered map.
func ParseTOML(raw []byte) (*fields.Map, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fields.New(), nil
	}

	var data map[string]any
	md, err := toml.Decode(string(raw), &data)
	if err != nil {
		var perr toml.ParseError
		if errors.As(err, &perr) {
			return nil, &SyntaxError{Format: FormatTOML, Line: perr.Position.Line, Err: errors.New(perr.Message)}
		}
		return nil, &SyntaxError{Format: FormatTOML, Err: err}
	}
	return fields.FromTOML(data, md.Keys()), nil
}
