package volume

import (
	"cmp"
	"strings"

	"github.com/robert-malhotra/go-volume/props"
)

// key is a tuple of property values. A nil entry stands for an absent
// property.
type key []*props.Value

func keyOf(s *props.Set, paths []string) key {
	k := make(key, len(paths))
	for i, p := range paths {
		if v, ok := s.Get(p); ok {
			k[i] = v
		}
	}
	return k
}

// hasList reports whether any value of k holds more than one item.
func (k key) hasList() bool {
	for _, v := range k {
		if v != nil && v.IsList() {
			return true
		}
	}
	return false
}

func (k key) String() string {
	parts := make([]string, len(k))
	for i, v := range k {
		if v == nil {
			parts[i] = "-"
			continue
		}
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, "; ") + "]"
}

// compareKeys orders tuples lexicographically.
func compareKeys(a, b key) int {
	for i := range min(len(a), len(b)) {
		if c := compareValues(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}

// compareValues is a total order on values: absent before empty before
// present. Numbers compare numerically across int and float, other kinds
// order by kind first.
func compareValues(a, b *props.Value) int {
	switch {
	case a == nil || b == nil:
		return cmp.Compare(rank(a), rank(b))
	case a.IsEmpty() || b.IsEmpty():
		return cmp.Compare(a.Len(), b.Len())
	}
	if !(numeric(a.Kind()) && numeric(b.Kind())) && a.Kind() != b.Kind() {
		return cmp.Compare(a.Kind(), b.Kind())
	}
	for i := range min(a.Len(), b.Len()) {
		if c := compareItems(a.Item(i), b.Item(i)); c != 0 {
			return c
		}
	}
	return cmp.Compare(a.Len(), b.Len())
}

func rank(v *props.Value) int {
	if v == nil {
		return 0
	}
	return 1
}

func numeric(k props.Kind) bool {
	return k == props.KindInt || k == props.KindFloat
}

func compareItems(a, b any) int {
	switch x := a.(type) {
	case string:
		return strings.Compare(x, b.(string))
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case int64:
		if y, ok := b.(int64); ok {
			return cmp.Compare(x, y)
		}
		return cmp.Compare(float64(x), b.(float64))
	case float64:
		if y, ok := b.(int64); ok {
			return cmp.Compare(x, float64(y))
		}
		return cmp.Compare(x, b.(float64))
	case [3]float64:
		y := b.([3]float64)
		for i := range x {
			if c := cmp.Compare(x[i], y[i]); c != 0 {
				return c
			}
		}
	case [4]float64:
		y := b.([4]float64)
		for i := range x {
			if c := cmp.Compare(x[i], y[i]); c != 0 {
				return c
			}
		}
	case props.Selection:
		return strings.Compare(x.Value, b.(props.Selection).Value)
	}
	return 0
}
