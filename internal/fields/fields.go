// Package fields provides an insertion-ordered key/value mapping used for
// site configuration and front-matter.
//
// Values are restricted to a closed set of kinds: string, bool, int, float64,
// time.Time, *Map, []any (of the same kinds) and nil. Decoders in this package
// normalise parser output into that set so callers can type-switch without
// surprises (no map[any]any, no int64).
package fields

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Map is an ordered string-keyed mapping. The zero value is an empty map ready
// to use. A Map is not safe for concurrent mutation; loaders never mutate a Map
// after handing it out.
type Map struct {
	keys   []string
	values map[string]any
}

// New returns an empty Map.
func New() *Map {
	return &Map{values: map[string]any{}}
}

// Of builds a Map from alternating key/value arguments. It panics on an odd
// argument count or a non-string key and is intended for tests and literals.
func Of(kv ...any) *Map {
	if len(kv)%2 != 0 {
		panic("fields.Of: odd number of arguments")
	}
	m := New()
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("fields.Of: key %v is not a string", kv[i]))
		}
		m.Set(k, kv[i+1])
	}
	return m
}

// Len reports the number of keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order. The slice is a copy.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Lookup returns the value stored under key and whether it was present.
func (m *Map) Lookup(key string) (any, bool) {
	if m == nil || m.values == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Get returns the value for key or nil.
func (m *Map) Get(key string) any {
	v, _ := m.Lookup(key)
	return v
}

// Has reports whether key is present (even with a nil value).
func (m *Map) Has(key string) bool {
	_, ok := m.Lookup(key)
	return ok
}

// Set stores value under key. New keys are appended; existing keys keep
// their position.
func (m *Map) Set(key string, value any) {
	if m.values == nil {
		m.values = map[string]any{}
	}
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Delete removes key if present.
func (m *Map) Delete(key string) {
	if m == nil || m.values == nil {
		return
	}
	if _, exists := m.values[key]; !exists {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Range calls fn for each entry in order until fn returns false.
func (m *Map) Range(fn func(key string, value any) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

// String returns the value of key when it is a string.
func (m *Map) String(key string) (string, bool) {
	s, ok := m.Get(key).(string)
	return s, ok
}

// Bool returns the value of key when it is a bool.
func (m *Map) Bool(key string) (bool, bool) {
	b, ok := m.Get(key).(bool)
	return b, ok
}

// Map returns the nested map stored under key.
func (m *Map) Map(key string) (*Map, bool) {
	sub, ok := m.Get(key).(*Map)
	return sub, ok && sub != nil
}

// Strings returns the value of key as a list of strings. A single string is
// returned as a one-element list. ok is false when any element is not a string.
func (m *Map) Strings(key string) (out []string, ok bool) {
	switch v := m.Get(key).(type) {
	case nil:
		return nil, true
	case string:
		return []string{v}, true
	case []any:
		out = make([]string, 0, len(v))
		for _, item := range v {
			s, isStr := item.(string)
			if !isStr {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

// Clone returns a deep copy of m. Nested maps and slices are copied; scalar
// values (including time.Time) are copied by value.
func (m *Map) Clone() *Map {
	if m == nil {
		return New()
	}
	out := &Map{
		keys:   make([]string, len(m.keys)),
		values: make(map[string]any, len(m.values)),
	}
	copy(out.keys, m.keys)
	for k, v := range m.values {
		out.values[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch vv := v.(type) {
	case *Map:
		return vv.Clone()
	case []any:
		out := make([]any, len(vv))
		for i, item := range vv {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// Overlay returns a copy of m with every top-level key of other set on it.
// Keys present in both are replaced wholesale, never merged recursively.
func (m *Map) Overlay(other *Map) *Map {
	out := m.Clone()
	other.Range(func(k string, v any) bool {
		out.Set(k, cloneValue(v))
		return true
	})
	return out
}

// Equal reports whether m and other hold the same keys in the same order with
// deeply equal values. Time values compare with time.Time.Equal.
func (m *Map) Equal(other *Map) bool {
	if m.Len() != other.Len() {
		return false
	}
	if m.Len() == 0 {
		return true
	}
	for i, k := range m.keys {
		if other.keys[i] != k {
			return false
		}
		if !valuesEqual(m.values[k], other.values[k]) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	switch av := a.(type) {
	case *Map:
		bv, ok := b.(*Map)
		return ok && av.Equal(bv)
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	default:
		return reflect.DeepEqual(a, b)
	}
}

// ToAny converts m into plain map[string]any / []any trees, dropping order.
// Useful for JSON encoding.
func (m *Map) ToAny() map[string]any {
	out := make(map[string]any, m.Len())
	m.Range(func(k string, v any) bool {
		out[k] = toAny(v)
		return true
	})
	return out
}

func toAny(v any) any {
	switch vv := v.(type) {
	case *Map:
		return vv.ToAny()
	case []any:
		out := make([]any, len(vv))
		for i, item := range vv {
			out[i] = toAny(item)
		}
		return out
	default:
		return v
	}
}

// GoString renders m for debugging and test failure output.
func (m *Map) GoString() string {
	var b strings.Builder
	b.WriteString("{")
	first := true
	m.Range(func(k string, v any) bool {
		if !first {
			b.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&b, "%s: %#v", k, v)
		return true
	})
	b.WriteString("}")
	return b.String()
}

// Format implements fmt.Formatter so maps print in key order.
func (m *Map) Format(f fmt.State, verb rune) {
	_, _ = f.Write([]byte(m.GoString()))
}
