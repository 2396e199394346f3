package props

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Kind is the type of the items held by a Value.
type Kind uint8

const (
	KindNone Kind = iota
	KindString
	KindBool
	KindInt
	KindFloat
	KindVec3
	KindVec4
	KindSelection
)

var kindNames = [...]string{
	KindNone:      "none",
	KindString:    "string",
	KindBool:      "bool",
	KindInt:       "int",
	KindFloat:     "float",
	KindVec3:      "vec3",
	KindVec4:      "vec4",
	KindSelection: "selection",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

func parseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return KindNone, false
}

// Selection is one choice out of a fixed list of options.
type Selection struct {
	Value   string   `json:"value"`
	Options []string `json:"options,omitempty"`
}

func (s Selection) equal(o Selection) bool {
	return s.Value == o.Value && slices.Equal(s.Options, o.Options)
}

// Value holds zero or more items of one Kind. A Value with no items is
// empty, which is different from a path that holds no Value at all.
type Value struct {
	kind  Kind
	items []any

	// Needed marks a value a consumer must be given.
	Needed bool
}

// String returns a Value of string items.
func String(items ...string) Value { return newValue(KindString, items) }

// Bool returns a Value of boolean items.
func Bool(items ...bool) Value { return newValue(KindBool, items) }

// Int returns a Value of integer items.
func Int(items ...int64) Value { return newValue(KindInt, items) }

// Float returns a Value of floating point items.
func Float(items ...float64) Value { return newValue(KindFloat, items) }

// Vec3 returns a Value of 3-vectors.
func Vec3(items ...[3]float64) Value { return newValue(KindVec3, items) }

// Vec4 returns a Value of 4-vectors.
func Vec4(items ...[4]float64) Value { return newValue(KindVec4, items) }

// Select returns a Value holding one selection.
func Select(value string, options ...string) Value {
	return newValue(KindSelection, []Selection{{Value: value, Options: slices.Clone(options)}})
}

// Empty returns a Value of kind k without items.
func Empty(k Kind) Value { return Value{kind: k} }

func newValue[T any](k Kind, items []T) Value {
	v := Value{kind: k, items: make([]any, len(items))}
	for i, it := range items {
		v.items[i] = it
	}
	return v
}

// Kind returns the kind of the items.
func (v *Value) Kind() Kind { return v.kind }

// Len returns the number of items.
func (v *Value) Len() int { return len(v.items) }

// IsEmpty reports whether v holds no items.
func (v *Value) IsEmpty() bool { return len(v.items) == 0 }

// IsList reports whether v holds more than one item.
func (v *Value) IsList() bool { return len(v.items) > 1 }

// Item returns item i.
func (v *Value) Item(i int) any { return v.items[i] }

// Items returns a copy of the items.
func (v *Value) Items() []any { return slices.Clone(v.items) }

// Append adds items of the value's kind. An empty KindNone value adopts the
// kind of the first item.
func (v *Value) Append(items ...any) error {
	for _, it := range items {
		k := kindOf(it)
		if k == KindNone {
			return fmt.Errorf("props: unsupported item type %T", it)
		}
		if v.kind == KindNone {
			v.kind = k
		}
		if k != v.kind {
			return fmt.Errorf("props: cannot append %s item to %s value", k, v.kind)
		}
		v.items = append(v.items, normalize(it))
	}
	return nil
}

// Clear removes all items but keeps the kind.
func (v *Value) Clear() { v.items = nil }

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	out := Value{kind: v.kind, Needed: v.Needed, items: make([]any, len(v.items))}
	for i, it := range v.items {
		if s, ok := it.(Selection); ok {
			s.Options = slices.Clone(s.Options)
			it = s
		}
		out.items[i] = it
	}
	return out
}

// At returns a Value holding only item i.
func (v *Value) At(i int) Value {
	out := Value{kind: v.kind, Needed: v.Needed, items: []any{v.items[i]}}
	return out.Clone()
}

// Equal reports whether v and o hold equal items of the same kind. Integer
// and float values compare numerically.
func (v *Value) Equal(o *Value) bool {
	if v == nil || o == nil {
		return v == o
	}
	if len(v.items) != len(o.items) {
		return false
	}
	if v.kind != o.kind && !(numeric(v.kind) && numeric(o.kind)) {
		return len(v.items) == 0
	}
	for i := range v.items {
		if !itemEqual(v.items[i], o.items[i]) {
			return false
		}
	}
	return true
}

// AsString returns the first item formatted as a string.
func (v *Value) AsString() (string, bool) {
	if len(v.items) == 0 {
		return "", false
	}
	if s, ok := v.items[0].(string); ok {
		return s, true
	}
	return formatItem(v.items[0]), true
}

// AsInt returns the first item as an integer.
func (v *Value) AsInt() (int64, bool) {
	if len(v.items) == 0 {
		return 0, false
	}
	switch x := v.items[0].(type) {
	case int64:
		return x, true
	case float64:
		return int64(math.Round(x)), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		return n, err == nil
	}
	return 0, false
}

// AsFloat returns the first item as a float.
func (v *Value) AsFloat() (float64, bool) {
	if len(v.items) == 0 {
		return 0, false
	}
	switch x := v.items[0].(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// AsVec3 returns the first item as a 3-vector.
func (v *Value) AsVec3() ([3]float64, bool) {
	if len(v.items) == 0 {
		return [3]float64{}, false
	}
	switch x := v.items[0].(type) {
	case [3]float64:
		return x, true
	case [4]float64:
		return [3]float64{x[0], x[1], x[2]}, true
	}
	return [3]float64{}, false
}

// Strings returns every item formatted as a string.
func (v *Value) Strings() []string {
	out := make([]string, len(v.items))
	for i, it := range v.items {
		out[i] = formatItem(it)
	}
	return out
}

// Floats returns the numeric items as floats; others are skipped.
func (v *Value) Floats() []float64 {
	out := make([]float64, 0, len(v.items))
	for _, it := range v.items {
		switch x := it.(type) {
		case float64:
			out = append(out, x)
		case int64:
			out = append(out, float64(x))
		}
	}
	return out
}

// Vec3s returns the 3-vector items.
func (v *Value) Vec3s() [][3]float64 {
	out := make([][3]float64, 0, len(v.items))
	for _, it := range v.items {
		if x, ok := it.([3]float64); ok {
			out = append(out, x)
		}
	}
	return out
}

func (v *Value) String() string {
	return strings.Join(v.Strings(), ", ")
}

func kindOf(it any) Kind {
	switch it.(type) {
	case string:
		return KindString
	case bool:
		return KindBool
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return KindInt
	case float32, float64:
		return KindFloat
	case [3]float64:
		return KindVec3
	case [4]float64:
		return KindVec4
	case Selection:
		return KindSelection
	}
	return KindNone
}

func normalize(it any) any {
	switch x := it.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case float32:
		return float64(x)
	}
	return it
}

func numeric(k Kind) bool { return k == KindInt || k == KindFloat }

func itemEqual(a, b any) bool {
	switch x := a.(type) {
	case Selection:
		y, ok := b.(Selection)
		return ok && x.equal(y)
	case int64:
		if y, ok := b.(float64); ok {
			return float64(x) == y
		}
	case float64:
		if y, ok := b.(int64); ok {
			return x == float64(y)
		}
	}
	return a == b
}

func formatItem(it any) string {
	switch x := it.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case [3]float64:
		return fmt.Sprintf("(%g, %g, %g)", x[0], x[1], x[2])
	case [4]float64:
		return fmt.Sprintf("(%g, %g, %g, %g)", x[0], x[1], x[2], x[3])
	case Selection:
		return x.Value
	}
	return fmt.Sprint(it)
}
