package props

import (
	"fmt"
	"math"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Leaves are encoded as objects carrying these keys; any other object is a
// branch.
const (
	jsonType   = "$type"
	jsonItems  = "$items"
	jsonNeeded = "$needed"
)

// MarshalJSON encodes s as nested objects in insertion order.
func (s *Set) MarshalJSON() ([]byte, error) {
	out := []byte("{}")
	for _, e := range s.entries {
		var raw []byte
		var err error
		if e.branch != nil {
			raw, err = e.branch.MarshalJSON()
		} else {
			raw, err = e.value.marshal()
		}
		if err != nil {
			return nil, fmt.Errorf("props: encode %q: %w", e.name, err)
		}
		if out, err = sjson.SetRawBytes(out, ":"+gjson.Escape(e.name), raw); err != nil {
			return nil, fmt.Errorf("props: encode %q: %w", e.name, err)
		}
	}
	return out, nil
}

func (v *Value) marshal() ([]byte, error) {
	out, err := sjson.SetBytes([]byte("{}"), jsonType, v.kind.String())
	if err != nil {
		return nil, err
	}
	if v.Needed {
		if out, err = sjson.SetBytes(out, jsonNeeded, true); err != nil {
			return nil, err
		}
	}
	if out, err = sjson.SetRawBytes(out, jsonItems, []byte("[]")); err != nil {
		return nil, err
	}
	for _, it := range v.items {
		if out, err = sjson.SetBytes(out, jsonItems+".-1", jsonItem(it)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// jsonItem replaces non-finite floats, which JSON cannot carry, by strings.
func jsonItem(it any) any {
	finite := func(f float64) any {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return strconv.FormatFloat(f, 'g', -1, 64)
		}
		return f
	}
	switch x := it.(type) {
	case float64:
		return finite(x)
	case [3]float64:
		return []any{finite(x[0]), finite(x[1]), finite(x[2])}
	case [4]float64:
		return []any{finite(x[0]), finite(x[1]), finite(x[2]), finite(x[3])}
	}
	return it
}

// UnmarshalJSON replaces the contents of s with the decoded document.
func (s *Set) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("props: invalid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return fmt.Errorf("props: expected an object, got %s", root.Type)
	}
	s.entries = nil
	return s.decode(root)
}

func (s *Set) decode(obj gjson.Result) error {
	var err error
	obj.ForEach(func(key, val gjson.Result) bool {
		name := key.String()
		if !val.IsObject() {
			err = fmt.Errorf("props: %q: expected an object", name)
			return false
		}
		e := s.add(name)
		if !val.Get(jsonType).Exists() {
			e.branch = &Set{}
			err = e.branch.decode(val)
			return err == nil
		}
		var v Value
		if v, err = decodeValue(val); err != nil {
			err = fmt.Errorf("props: %q: %w", name, err)
			return false
		}
		e.value = &v
		return true
	})
	return err
}

func decodeValue(val gjson.Result) (Value, error) {
	k, ok := parseKind(val.Get(jsonType).String())
	if !ok {
		return Value{}, fmt.Errorf("unknown kind %q", val.Get(jsonType).String())
	}
	v := Value{kind: k, Needed: val.Get(jsonNeeded).Bool()}
	var err error
	val.Get(jsonItems).ForEach(func(_, it gjson.Result) bool {
		var item any
		if item, err = decodeItem(k, it); err != nil {
			return false
		}
		v.items = append(v.items, item)
		return true
	})
	return v, err
}

func decodeItem(k Kind, it gjson.Result) (any, error) {
	switch k {
	case KindString:
		return it.String(), nil
	case KindBool:
		return it.Bool(), nil
	case KindInt:
		return it.Int(), nil
	case KindFloat:
		return decodeFloat(it)
	case KindVec3, KindVec4:
		arr := it.Array()
		n := 3
		if k == KindVec4 {
			n = 4
		}
		if len(arr) != n {
			return nil, fmt.Errorf("expected %d components, got %d", n, len(arr))
		}
		var c [4]float64
		for i := range arr {
			f, err := decodeFloat(arr[i])
			if err != nil {
				return nil, err
			}
			c[i] = f
		}
		if k == KindVec3 {
			return [3]float64{c[0], c[1], c[2]}, nil
		}
		return c, nil
	case KindSelection:
		sel := Selection{Value: it.Get("value").String()}
		for _, o := range it.Get("options").Array() {
			sel.Options = append(sel.Options, o.String())
		}
		return sel, nil
	}
	return nil, fmt.Errorf("kind %s carries no items", k)
}

func decodeFloat(it gjson.Result) (float64, error) {
	if it.Type == gjson.String {
		return strconv.ParseFloat(it.String(), 64)
	}
	return it.Float(), nil
}
