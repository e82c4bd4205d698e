package fields

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// NodeError reports a structural problem at a position in a YAML document.
type NodeError struct {
	Line   int
	Column int
	Msg    string
}

func (e *NodeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return e.Msg
}

// ErrNotMapping is the message used when a document root is not a mapping.
const ErrNotMapping = "document root is not a mapping"

// MaxAliasExpansion bounds how many nodes may be produced by following
// aliases while converting one document.
const MaxAliasExpansion = 10000

// FromYAMLNode converts a decoded YAML document into a Map, preserving key
// order. An empty document yields an empty Map; any other non-mapping root is
// a *NodeError. Aliases that contain themselves or expand past
// MaxAliasExpansion nodes are rejected with a *NodeError.
func FromYAMLNode(n *yaml.Node) (*Map, error) {
	if n == nil {
		return New(), nil
	}
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return New(), nil
		}
		n = n.Content[0]
	}
	if n.Kind == 0 {
		return New(), nil
	}
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null" {
		return New(), nil
	}
	if resolveAlias(n).Kind != yaml.MappingNode {
		return nil, &NodeError{Line: n.Line, Column: n.Column, Msg: ErrNotMapping}
	}
	c := &converter{active: make(map[*yaml.Node]bool)}
	return c.mapping(resolveAlias(n))
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

// converter walks one document. active holds the anchors currently being
// expanded; expanded counts nodes reached through an alias.
type converter struct {
	active   map[*yaml.Node]bool
	depth    int
	expanded int
}

// enter follows n when it is an alias. The returned leave func must be called
// once the target has been converted.
func (c *converter) enter(n *yaml.Node) (*yaml.Node, func(), error) {
	if n.Kind != yaml.AliasNode || n.Alias == nil {
		return n, func() {}, nil
	}
	target := resolveAlias(n)
	if c.active[target] {
		return nil, nil, &NodeError{Line: n.Line, Column: n.Column, Msg: fmt.Sprintf("anchor %q contains itself", n.Value)}
	}
	c.active[target] = true
	c.depth++
	return target, func() {
		delete(c.active, target)
		c.depth--
	}, nil
}

func (c *converter) count(n *yaml.Node) error {
	if c.depth == 0 {
		return nil
	}
	c.expanded++
	if c.expanded > MaxAliasExpansion {
		return &NodeError{Line: n.Line, Column: n.Column, Msg: "document contains excessive aliasing"}
	}
	return nil
}

func (c *converter) mapping(n *yaml.Node) (*Map, error) {
	m := New()
	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode := resolveAlias(n.Content[i])
		valNode := n.Content[i+1]

		if keyNode.Kind != yaml.ScalarNode {
			return nil, &NodeError{Line: keyNode.Line, Column: keyNode.Column, Msg: "mapping key is not a scalar"}
		}

		if keyNode.ShortTag() == "!!merge" {
			if err := c.merge(m, valNode); err != nil {
				return nil, err
			}
			continue
		}

		v, err := c.value(valNode)
		if err != nil {
			return nil, err
		}
		m.Set(keyNode.Value, v)
	}
	return m, nil
}

// merge applies a YAML merge key (<<). Merged keys never override keys the
// mapping sets explicitly.
func (c *converter) merge(m *Map, n *yaml.Node) error {
	n, leave, err := c.enter(n)
	if err != nil {
		return err
	}
	defer leave()

	var sources []*yaml.Node
	switch n.Kind {
	case yaml.MappingNode:
		sources = []*yaml.Node{n}
	case yaml.SequenceNode:
		sources = n.Content
	default:
		return &NodeError{Line: n.Line, Column: n.Column, Msg: "merge value is not a mapping"}
	}

	for _, item := range sources {
		if err := c.mergeOne(m, item); err != nil {
			return err
		}
	}
	return nil
}

func (c *converter) mergeOne(m *Map, n *yaml.Node) error {
	src, leave, err := c.enter(n)
	if err != nil {
		return err
	}
	defer leave()

	if src.Kind != yaml.MappingNode {
		return &NodeError{Line: src.Line, Column: src.Column, Msg: "merge sequence item is not a mapping"}
	}
	if err := c.count(src); err != nil {
		return err
	}
	sub, err := c.mapping(src)
	if err != nil {
		return err
	}
	sub.Range(func(k string, v any) bool {
		if !m.Has(k) {
			m.Set(k, v)
		}
		return true
	})
	return nil
}

func (c *converter) value(n *yaml.Node) (any, error) {
	n, leave, err := c.enter(n)
	if err != nil {
		return nil, err
	}
	defer leave()
	if err := c.count(n); err != nil {
		return nil, err
	}

	switch n.Kind {
	case yaml.MappingNode:
		return c.mapping(n)
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := c.value(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.ScalarNode:
		return scalarFromNode(n), nil
	default:
		return nil, &NodeError{Line: n.Line, Column: n.Column, Msg: fmt.Sprintf("unsupported node kind %d", n.Kind)}
	}
}

func scalarFromNode(n *yaml.Node) any {
	switch n.ShortTag() {
	case "!!null":
		return nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err == nil {
			return b
		}
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil && i >= math.MinInt && i <= math.MaxInt {
			return int(i)
		}
		var f float64
		if err := n.Decode(&f); err == nil {
			return f
		}
	case "!!float":
		var f float64
		if err := n.Decode(&f); err == nil {
			return f
		}
	case "!!timestamp":
		// yaml.v3 only yields time.Time when the target is a time.Time.
		var t time.Time
		if err := n.Decode(&t); err == nil {
			return t
		}
	}
	return n.Value
}

// ToYAMLNode converts m into a YAML mapping node that keeps key order.
func ToYAMLNode(m *Map) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode}
	m.Range(func(k string, v any) bool {
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			nodeFromValue(v))
		return true
	})
	return n
}

func nodeFromValue(v any) *yaml.Node {
	switch vv := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: vv}
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(vv)}
	case int:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(vv)}
	case float64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(vv, 'g', -1, 64)}
	case time.Time:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!timestamp", Value: vv.Format(time.RFC3339Nano)}
	case *Map:
		return ToYAMLNode(vv)
	case []any:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range vv {
			seq.Content = append(seq.Content, nodeFromValue(item))
		}
		return seq
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: fmt.Sprint(vv)}
	}
}
