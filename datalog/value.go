// Package datalog provides the scalar value model, tuples, and typed
// schemas shared across the compilation and execution pipeline: parsed
// program -> logical IR -> optimizer passes -> dataflow graph -> fixed
// point execution -> result tuples.
package datalog

import (
	"fmt"
	"math"
)

// Kind tags which variant a Value holds.
type Kind byte

const (
	KindNull Kind = iota
	KindInt32
	KindInt64
	KindFloat64
	KindBool
	KindString
	KindTimestamp
	KindVector
	KindVectorInt8
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindTimestamp:
		return "timestamp"
	case KindVector:
		return "vector"
	case KindVectorInt8:
		return "vector_int8"
	default:
		return "unknown"
	}
}

// sharedFloats and sharedInts are the immutable, shared-ownership payloads
// backing the Vector and VectorInt8 variants. Go's garbage collector gives
// us the "clone is O(1), lifetime = longest holder" property that the
// original implementation obtained from atomic reference counting: sharing
// the slice header is enough, no refcounting wrapper is needed (see
// DESIGN.md, Open Questions).
type sharedFloats = []float32
type sharedInts = []int8

// Value is a tagged union over the scalar types a Tuple column may hold.
// The zero Value is Null. Values are immutable; constructing a new Value
// never mutates an existing one.
type Value struct {
	kind Kind
	i    int64   // Int32 (sign-extended), Int64, Timestamp (millis since epoch), Bool (0/1)
	f    float64 // Float64
	s    string  // String
	vec  sharedFloats
	vi8  sharedInts
}

// Null is the absence of a value.
var Null = Value{kind: KindNull}

func Int32(v int32) Value     { return Value{kind: KindInt32, i: int64(v)} }
func Int64(v int64) Value     { return Value{kind: KindInt64, i: v} }
func Float64(v float64) Value { return Value{kind: KindFloat64, f: v} }
func Bool(v bool) Value {
	var i int64
	if v {
		i = 1
	}
	return Value{kind: KindBool, i: i}
}
func String(v string) Value { return Value{kind: KindString, s: v} }

// Timestamp holds signed milliseconds since the Unix epoch.
func Timestamp(millis int64) Value { return Value{kind: KindTimestamp, i: millis} }

// Vector shares ownership of the given f32 slice; callers must not mutate
// it afterward.
func Vector(v []float32) Value { return Value{kind: KindVector, vec: v} }

// VectorInt8 shares ownership of the given i8 slice; callers must not
// mutate it afterward.
func VectorInt8(v []int8) Value { return Value{kind: KindVectorInt8, vi8: v} }

func (v Value) Kind() Kind  { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsInt32() (int32, bool) {
	if v.kind != KindInt32 {
		return 0, false
	}
	return int32(v.i), true
}

func (v Value) AsInt64() (int64, bool) {
	switch v.kind {
	case KindInt64, KindInt32:
		return v.i, true
	}
	return 0, false
}

func (v Value) AsFloat64() (float64, bool) {
	switch v.kind {
	case KindFloat64:
		return v.f, true
	case KindInt64, KindInt32:
		return float64(v.i), true
	}
	return 0, false
}

func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.i != 0, true
}

func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

func (v Value) AsTimestamp() (int64, bool) {
	switch v.kind {
	case KindTimestamp, KindInt64:
		return v.i, true
	}
	return 0, false
}

func (v Value) AsVector() ([]float32, bool) {
	if v.kind != KindVector {
		return nil, false
	}
	return v.vec, true
}

func (v Value) AsVectorInt8() ([]int8, bool) {
	if v.kind != KindVectorInt8 {
		return nil, false
	}
	return v.vi8, true
}

// IsNumeric reports whether the value is one of Int32/Int64/Float64.
func (v Value) IsNumeric() bool {
	switch v.kind {
	case KindInt32, KindInt64, KindFloat64:
		return true
	}
	return false
}

// String renders a human-readable form, used by tracing and CLI output.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "nil"
	case KindInt32:
		return fmt.Sprintf("%d", int32(v.i))
	case KindInt64:
		return fmt.Sprintf("%d", v.i)
	case KindFloat64:
		return fmt.Sprintf("%v", v.f)
	case KindBool:
		return fmt.Sprintf("%v", v.i != 0)
	case KindString:
		return v.s
	case KindTimestamp:
		return fmt.Sprintf("ts(%d)", v.i)
	case KindVector:
		return fmt.Sprintf("vec[%d]", len(v.vec))
	case KindVectorInt8:
		return fmt.Sprintf("vec8[%d]", len(v.vi8))
	default:
		return "?"
	}
}

// Equal reports structural equality. Two Values of different Kind are
// never equal, except that the accepted coercions (Int32<->Int64,
// Int->Float, Int64<->Timestamp) are applied the same way Equal is used
// for join-key comparisons and Filter predicates.
func (v Value) Equal(o Value) bool {
	if v.kind == o.kind {
		switch v.kind {
		case KindNull:
			return true
		case KindInt32, KindInt64, KindTimestamp, KindBool:
			return v.i == o.i
		case KindFloat64:
			return floatBits(v.f) == floatBits(o.f)
		case KindString:
			return v.s == o.s
		case KindVector:
			return equalFloats(v.vec, o.vec)
		case KindVectorInt8:
			return equalInts(v.vi8, o.vi8)
		}
	}
	// Accepted coercions: Int32<->Int64, Int->Float, Int64<->Timestamp.
	if vi, ok := v.AsInt64(); ok {
		if oi, ok := o.AsInt64(); ok {
			return vi == oi
		}
	}
	if vt, ok := v.AsTimestamp(); ok {
		if ot, ok := o.AsTimestamp(); ok {
			return vt == ot
		}
	}
	if vf, ok := v.AsFloat64(); ok {
		if of, ok := o.AsFloat64(); ok {
			return vf == of
		}
	}
	return false
}

func equalFloats(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalInts(a, b []int8) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// canonicalNaN is the bit pattern every NaN float hashes and orders as,
// regardless of its original payload bits.
const canonicalNaN = 0x7FF8000000000001

func floatBits(f float64) uint64 {
	if math.IsNaN(f) {
		return canonicalNaN
	}
	return math.Float64bits(f)
}

// Hash returns a 64-bit hash consistent with Equal for values of the
// same Kind, including floats (canonical-NaN bit hashing) and the vector
// variants (hashed by content), and across Int32/Int64/Timestamp. An
// integer and a Float64 that are Equal through the Int->Float coercion
// do not hash equal: floats always hash by bit pattern.
func (v Value) Hash() uint64 {
	const fnvOffset = 14695981039346656037
	const fnvPrime = 1099511628211

	h := uint64(fnvOffset)
	mix := func(x uint64) {
		h ^= x
		h *= fnvPrime
	}

	switch v.kind {
	case KindNull:
		mix(0)
	case KindInt32, KindInt64, KindTimestamp:
		mix(uint64(v.i))
	case KindBool:
		mix(uint64(v.i))
	case KindFloat64:
		mix(floatBits(v.f))
	case KindString:
		for i := 0; i < len(v.s); i++ {
			mix(uint64(v.s[i]))
		}
	case KindVector:
		for _, f := range v.vec {
			mix(uint64(math.Float32bits(f)))
		}
	case KindVectorInt8:
		for _, b := range v.vi8 {
			mix(uint64(b))
		}
	}
	return h
}

// Compare imposes a total order over Values of the same effective numeric
// family, and a stable cross-kind order otherwise (Null < numerics <
// Bool < String < Timestamp < Vector < VectorInt8). Within Float64, NaN
// sorts below all other values (including -Inf), so ordering stays total.
func (v Value) Compare(o Value) int {
	if v.IsNumeric() && o.IsNumeric() {
		vf, _ := v.AsFloat64()
		of, _ := o.AsFloat64()
		return compareFloatTotal(vf, of)
	}
	if v.kind != o.kind {
		return int(rank(v.kind)) - int(rank(o.kind))
	}
	switch v.kind {
	case KindNull:
		return 0
	case KindBool:
		return int(v.i - o.i)
	case KindString:
		if v.s < o.s {
			return -1
		} else if v.s > o.s {
			return 1
		}
		return 0
	case KindTimestamp:
		switch {
		case v.i < o.i:
			return -1
		case v.i > o.i:
			return 1
		default:
			return 0
		}
	case KindVector:
		return compareFloatSlices(v.vec, o.vec)
	case KindVectorInt8:
		return compareIntSlices(v.vi8, o.vi8)
	}
	return 0
}

func rank(k Kind) int {
	switch k {
	case KindNull:
		return 0
	case KindInt32, KindInt64, KindFloat64:
		return 1
	case KindBool:
		return 2
	case KindString:
		return 3
	case KindTimestamp:
		return 4
	case KindVector:
		return 5
	case KindVectorInt8:
		return 6
	}
	return 7
}

// compareFloatTotal orders floats so NaN sorts below every other value,
// including negative infinity, with the usual order otherwise.
func compareFloatTotal(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return -1
	case bNaN:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloatSlices(a, b []float32) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := compareFloatTotal(float64(a[i]), float64(b[i])); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

func compareIntSlices(a, b []int8) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return int(a[i]) - int(b[i])
		}
	}
	return len(a) - len(b)
}
