package frontmatter

import (
	"bytes"
	"errors"
)

// Format identifies the structured syntax of a front-matter block.
type Format string

const (
	FormatNone Format = "none"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Marker returns the delimiter line used for the format.
func (f Format) Marker() string {
	switch f {
	case FormatYAML:
		return "---"
	case FormatTOML:
		return "+++"
	default:
		return ""
	}
}

// Style captures formatting details needed for stable rewriting.
//
// It intentionally focuses on newline/trailing newline shape and does not
// attempt to preserve original YAML formatting.
type Style struct {
	Newline            string
	HasTrailingNewline bool
}

// Block is the result of splitting a content file.
type Block struct {
	Format Format
	// Raw is the front-matter text between the delimiter lines.
	Raw  []byte
	Body []byte
	// StartLine is the 1-based file line holding the first line of Raw.
	StartLine int
	Style     Style
}

// Had reports whether the file opened with a front-matter delimiter.
func (b Block) Had() bool {
	return b.Format == FormatYAML || b.Format == FormatTOML
}

// ErrMissingClosingDelimiter indicates the document started with a
// front-matter delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("front matter start delimiter found but closing delimiter is missing")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Split separates front-matter from the body.
//
// A `---` line at the very start opens a YAML block and a `+++` line opens a
// TOML block; the block ends at the next line holding the same marker (YAML
// also accepts `...`). Trailing spaces on marker lines are ignored. If the
// document does not start with a marker, Format is FormatNone and Body is the
// full input.
func Split(content []byte) (Block, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	style := detectStyle(content)
	block := Block{Format: FormatNone, Body: content, Style: style}

	first, rest, ok := cutLine(content)
	if !ok {
		return block, nil
	}
	format := openingFormat(first)
	if format == FormatNone {
		return block, nil
	}

	pos := 0
	for pos <= len(rest) {
		line, after, hasNL := cutLine(rest[pos:])
		if isClosing(line, format) {
			block.Format = format
			block.Raw = rest[:pos]
			block.Body = after
			block.StartLine = 2
			return block, nil
		}
		if !hasNL {
			break
		}
		pos = len(rest) - len(after)
	}

	return Block{Format: FormatNone, Style: style}, ErrMissingClosingDelimiter
}

// Join reassembles a document from raw front-matter and body.
//
// For FormatNone Join returns body as-is. Otherwise the block is wrapped in
// the format's delimiters using the newline style captured in Style.
func Join(frontmatter []byte, body []byte, format Format, style Style) []byte {
	marker := format.Marker()
	if marker == "" {
		return body
	}

	nl := style.Newline
	if nl == "" {
		nl = "\n"
	}

	delim := []byte(marker + nl)

	out := make([]byte, 0, 2*len(delim)+len(frontmatter)+len(body))
	out = append(out, delim...)
	out = append(out, frontmatter...)
	if len(frontmatter) > 0 && !bytes.HasSuffix(frontmatter, []byte("\n")) {
		out = append(out, nl...)
	}
	out = append(out, delim...)
	out = append(out, body...)
	return out
}

// cutLine returns the first line of b without its terminator, the remainder
// after the terminator, and whether a terminator was found.
func cutLine(b []byte) (line, rest []byte, ok bool) {
	idx := bytes.IndexByte(b, '\n')
	if idx < 0 {
		return b, b[len(b):], false
	}
	return bytes.TrimSuffix(b[:idx], []byte("\r")), b[idx+1:], true
}

func openingFormat(line []byte) Format {
	switch string(bytes.TrimRight(line, " \t")) {
	case "---":
		return FormatYAML
	case "+++":
		return FormatTOML
	default:
		return FormatNone
	}
}

func isClosing(line []byte, format Format) bool {
	trimmed := string(bytes.TrimRight(line, " \t"))
	if trimmed == format.Marker() {
		return true
	}
	return format == FormatYAML && trimmed == "..."
}

func detectStyle(content []byte) Style {
	newline := "\n"
	for i := 0; i+1 < len(content); i++ {
		if content[i] == '\r' && content[i+1] == '\n' {
			newline = "\r\n"
			break
		}
		if content[i] == '\n' {
			newline = "\n"
			break
		}
	}

	hasTrailingNewline := len(content) > 0 && (content[len(content)-1] == '\n')

	return Style{
		Newline:            newline,
		HasTrailingNewline: hasTrailingNewline,
	}
}
