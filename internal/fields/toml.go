package fields

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// FromTOML converts the output of toml.Decode into a Map. keys is
// MetaData.Keys(), which lists keys in document order; entries missing from
// keys sort alphabetically after the known ones.
func FromTOML(data map[string]any, keys []toml.Key) *Map {
	order := make(map[string]int, len(keys))
	for i, k := range keys {
		p := strings.Join(k, "\x00")
		if _, seen := order[p]; !seen {
			order[p] = i
		}
	}
	return tomlTable(data, "", order)
}

func tomlTable(data map[string]any, prefix string, order map[string]int) *Map {
	names := make([]string, 0, len(data))
	for k := range data {
		names = append(names, k)
	}
	pos := func(name string) (int, bool) {
		i, ok := order[joinPath(prefix, name)]
		return i, ok
	}
	sort.SliceStable(names, func(i, j int) bool {
		pi, oki := pos(names[i])
		pj, okj := pos(names[j])
		switch {
		case oki && okj:
			return pi < pj
		case oki != okj:
			return oki
		default:
			return names[i] < names[j]
		}
	})

	m := New()
	for _, name := range names {
		m.Set(name, tomlValue(data[name], joinPath(prefix, name), order))
	}
	return m
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "\x00" + name
}

func tomlValue(v any, path string, order map[string]int) any {
	switch vv := v.(type) {
	case map[string]any:
		return tomlTable(vv, path, order)
	case []map[string]any:
		out := make([]any, len(vv))
		for i, item := range vv {
			out[i] = tomlTable(item, path, order)
		}
		return out
	case []any:
		out := make([]any, len(vv))
		for i, item := range vv {
			out[i] = tomlValue(item, path, order)
		}
		return out
	case int64:
		if vv >= math.MinInt && vv <= math.MaxInt {
			return int(vv)
		}
		return float64(vv)
	case float64, string, bool, time.Time, nil:
		return vv
	default:
		return fmt.Sprint(vv)
	}
}
