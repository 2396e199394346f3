package buffer

import (
	"strings"
	"unsafe"
)

// ElementType identifies the kind of every element in a Buffer. Values are
// stable and may be persisted.
type ElementType uint8

const (
	Invalid ElementType = iota
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float32
	Float64
	Complex64
	Complex128
	Color24
	Color48
	Vector3F32
	Vector3F64
	Vector4F32
	Vector4F64
	numTypes
)

// lastScalar is the highest ElementType with a single scalar component.
const lastScalar = Float64

// Class groups element types with the same conversion behaviour.
type Class uint8

const (
	ClassInteger Class = iota + 1
	ClassFloat
	ClassComplex
	ClassColor
	ClassVector
)

// RGB24 is an 8-bit color triple.
type RGB24 struct{ R, G, B uint8 }

// RGB48 is a 16-bit color triple.
type RGB48 struct{ R, G, B uint16 }

// Fixed-size vectors.
type (
	Vec3F32 [3]float32
	Vec3F64 [3]float64
	Vec4F32 [4]float32
	Vec4F64 [4]float64
)

// Element is the set of Go types a Buffer can be viewed as.
type Element interface {
	int8 | uint8 | int16 | uint16 | int32 | uint32 | int64 | uint64 |
		float32 | float64 | complex64 | complex128 |
		RGB24 | RGB48 | Vec3F32 | Vec3F64 | Vec4F32 | Vec4F64
}

// Info describes an element type.
type Info struct {
	Type  ElementType
	Name  string
	Size  int // bytes per element
	Class Class

	// Component is the scalar type of each of the Components.
	Component  ElementType
	Components int

	// Min and Max bound the representable range of a component.
	Min, Max float64
}

// Integer reports whether the components are integers.
func (i Info) Integer() bool {
	return ops[i.Component].integer
}

func scalarInfo(t ElementType, name string, size int, class Class) Info {
	o := ops[t]
	return Info{Type: t, Name: name, Size: size, Class: class, Component: t, Components: 1, Min: o.domain[0], Max: o.domain[1]}
}

func aggregateInfo(t ElementType, name string, class Class, comp ElementType, n int) Info {
	c := infos[comp]
	return Info{Type: t, Name: name, Size: c.Size * n, Class: class, Component: comp, Components: n, Min: c.Min, Max: c.Max}
}

var infos [numTypes]Info

func init() {
	infos[Int8] = scalarInfo(Int8, "s8bit", 1, ClassInteger)
	infos[Uint8] = scalarInfo(Uint8, "u8bit", 1, ClassInteger)
	infos[Int16] = scalarInfo(Int16, "s16bit", 2, ClassInteger)
	infos[Uint16] = scalarInfo(Uint16, "u16bit", 2, ClassInteger)
	infos[Int32] = scalarInfo(Int32, "s32bit", 4, ClassInteger)
	infos[Uint32] = scalarInfo(Uint32, "u32bit", 4, ClassInteger)
	infos[Int64] = scalarInfo(Int64, "s64bit", 8, ClassInteger)
	infos[Uint64] = scalarInfo(Uint64, "u64bit", 8, ClassInteger)
	infos[Float32] = scalarInfo(Float32, "float", 4, ClassFloat)
	infos[Float64] = scalarInfo(Float64, "double", 8, ClassFloat)
	infos[Complex64] = aggregateInfo(Complex64, "cfloat", ClassComplex, Float32, 2)
	infos[Complex128] = aggregateInfo(Complex128, "cdouble", ClassComplex, Float64, 2)
	infos[Color24] = aggregateInfo(Color24, "color24", ClassColor, Uint8, 3)
	infos[Color48] = aggregateInfo(Color48, "color48", ClassColor, Uint16, 3)
	infos[Vector3F32] = aggregateInfo(Vector3F32, "fvector3", ClassVector, Float32, 3)
	infos[Vector3F64] = aggregateInfo(Vector3F64, "dvector3", ClassVector, Float64, 3)
	infos[Vector4F32] = aggregateInfo(Vector4F32, "fvector4", ClassVector, Float32, 4)
	infos[Vector4F64] = aggregateInfo(Vector4F64, "dvector4", ClassVector, Float64, 4)
}

// Valid reports whether t is a known element type.
func (t ElementType) Valid() bool {
	return t > Invalid && t < numTypes
}

// Info returns the description of t. Invalid types yield a zero Info.
func (t ElementType) Info() Info {
	if !t.Valid() {
		return Info{}
	}
	return infos[t]
}

// Size returns the byte width of one element.
func (t ElementType) Size() int {
	return t.Info().Size
}

func (t ElementType) String() string {
	if !t.Valid() {
		return "invalid"
	}
	return infos[t].Name
}

// Types returns all known element types in id order.
func Types() []ElementType {
	out := make([]ElementType, 0, numTypes-1)
	for t := Invalid + 1; t < numTypes; t++ {
		out = append(out, t)
	}
	return out
}

// ParseType looks up an element type by name, ignoring case. Go type names
// such as "uint8" or "complex64" are accepted as well.
func ParseType(name string) (ElementType, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	for t := Invalid + 1; t < numTypes; t++ {
		if infos[t].Name == n {
			return t, true
		}
	}
	if t, ok := goNames[n]; ok {
		return t, true
	}
	return Invalid, false
}

var goNames = map[string]ElementType{
	"int8": Int8, "uint8": Uint8, "int16": Int16, "uint16": Uint16,
	"int32": Int32, "uint32": Uint32, "int64": Int64, "uint64": Uint64,
	"float32": Float32, "float64": Float64,
	"complex64": Complex64, "complex128": Complex128,
	"rgb24": Color24, "rgb48": Color48,
}

// TypeOf returns the ElementType of the Go type T.
func TypeOf[T Element]() ElementType {
	return typeOfValue(*new(T))
}

func typeOfValue(v any) ElementType {
	switch v.(type) {
	case int8:
		return Int8
	case uint8:
		return Uint8
	case int16:
		return Int16
	case uint16:
		return Uint16
	case int32:
		return Int32
	case uint32:
		return Uint32
	case int64:
		return Int64
	case uint64:
		return Uint64
	case float32:
		return Float32
	case float64:
		return Float64
	case complex64:
		return Complex64
	case complex128:
		return Complex128
	case RGB24:
		return Color24
	case RGB48:
		return Color48
	case Vec3F32:
		return Vector3F32
	case Vec3F64:
		return Vector3F64
	case Vec4F32:
		return Vector4F32
	case Vec4F64:
		return Vector4F64
	}
	return Invalid
}

func load[T any](data []byte, i int) T {
	size := int(unsafe.Sizeof(*new(T)))
	return *(*T)(unsafe.Pointer(&data[i*size]))
}

func store[T any](data []byte, i int, v T) {
	size := int(unsafe.Sizeof(v))
	*(*T)(unsafe.Pointer(&data[i*size])) = v
}

// decode returns element i of data as its Go value.
func decode(t ElementType, data []byte, i int) any {
	switch t {
	case Int8:
		return load[int8](data, i)
	case Uint8:
		return load[uint8](data, i)
	case Int16:
		return load[int16](data, i)
	case Uint16:
		return load[uint16](data, i)
	case Int32:
		return load[int32](data, i)
	case Uint32:
		return load[uint32](data, i)
	case Int64:
		return load[int64](data, i)
	case Uint64:
		return load[uint64](data, i)
	case Float32:
		return load[float32](data, i)
	case Float64:
		return load[float64](data, i)
	case Complex64:
		return load[complex64](data, i)
	case Complex128:
		return load[complex128](data, i)
	case Color24:
		return load[RGB24](data, i)
	case Color48:
		return load[RGB48](data, i)
	case Vector3F32:
		return load[Vec3F32](data, i)
	case Vector3F64:
		return load[Vec3F64](data, i)
	case Vector4F32:
		return load[Vec4F32](data, i)
	case Vector4F64:
		return load[Vec4F64](data, i)
	}
	return nil
}

// encode stores v at element i of data. v must match t.
func encode(data []byte, i int, v any) {
	switch x := v.(type) {
	case int8:
		store(data, i, x)
	case uint8:
		store(data, i, x)
	case int16:
		store(data, i, x)
	case uint16:
		store(data, i, x)
	case int32:
		store(data, i, x)
	case uint32:
		store(data, i, x)
	case int64:
		store(data, i, x)
	case uint64:
		store(data, i, x)
	case float32:
		store(data, i, x)
	case float64:
		store(data, i, x)
	case complex64:
		store(data, i, x)
	case complex128:
		store(data, i, x)
	case RGB24:
		store(data, i, x)
	case RGB48:
		store(data, i, x)
	case Vec3F32:
		store(data, i, x)
	case Vec3F64:
		store(data, i, x)
	case Vec4F32:
		store(data, i, x)
	case Vec4F64:
		store(data, i, x)
	}
}
