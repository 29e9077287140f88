package model

import (
	"cmp"
	"encoding/json"
	"sort"
)

// Normalize maps Go numeric types onto float64 so values decoded from JSON
// compare equal to the ones callers pass in.
func Normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	case Gender:
		return string(n)
	}
	return v
}

// ValuesEqual is strict equality over scalars. Composite values never match.
func ValuesEqual(a, b any) bool {
	a, b = Normalize(a), Normalize(b)
	switch a.(type) {
	case nil, bool, float64, string:
	default:
		return false
	}
	return a == b
}

// rank orders values of different kinds: absent/nil < bool < number < string < other.
func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case string:
		return 3
	}
	return 4
}

// CompareValues is a total order over record values.
func CompareValues(a, b any) int {
	a, b = Normalize(a), Normalize(b)
	if ra, rb := rank(a), rank(b); ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch x := a.(type) {
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case float64:
		return cmp.Compare(x, b.(float64))
	case string:
		return cmp.Compare(x, b.(string))
	}
	return 0
}

// Apply filters rows by f and sorts the matches by f.OrderColumn.
// An empty OrderColumn keeps insertion order.
func (f Filter) Apply(rows []Record) []Record {
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		if ValuesEqual(r[f.EqualsColumn], f.EqualsValue) {
			out = append(out, r)
		}
	}
	if f.OrderColumn == "" {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		c := CompareValues(out[i][f.OrderColumn], out[j][f.OrderColumn])
		if f.Ascending {
			return c < 0
		}
		return c > 0
	})
	return out
}
