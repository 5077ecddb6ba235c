package datalog

import "strings"

// Tuple is an ordered, fixed-arity sequence of Values. Two tuples are
// equal iff they have the same arity and are componentwise equal.
// Tuples are value types for the operator algebra: operators never
// mutate a Tuple in place, they build new ones.
type Tuple []Value

// Arity returns the tuple's column count.
func (t Tuple) Arity() int { return len(t) }

// Equal reports whether two tuples have the same arity and are
// componentwise equal.
func (t Tuple) Equal(o Tuple) bool {
	if len(t) != len(o) {
		return false
	}
	for i := range t {
		if !t[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the tuple's column slice. Values
// themselves are immutable, so this only needs to copy the slice header
// array, not deep-copy each Value.
func (t Tuple) Clone() Tuple {
	c := make(Tuple, len(t))
	copy(c, t)
	return c
}

// Hash combines each column's Value.Hash() in order, so it is consistent
// with Equal to the same extent Value.Hash is.
func (t Tuple) Hash() uint64 {
	h := uint64(1469598103934665603)
	for _, v := range t {
		h ^= v.Hash()
		h *= 1099511628211
	}
	return h
}

// DataType names the declared type of a schema field. It accepts a
// fixed set of coercions: Int32<->Int64, Int->Float, Int64<->Timestamp.
type DataType byte

const (
	TypeNull DataType = iota
	TypeInt32
	TypeInt64
	TypeFloat64
	TypeBool
	TypeString
	TypeTimestamp
	TypeVector
	TypeVectorInt8
)

func (t DataType) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	case TypeFloat64:
		return "float64"
	case TypeBool:
		return "bool"
	case TypeString:
		return "string"
	case TypeTimestamp:
		return "timestamp"
	case TypeVector:
		return "vector"
	case TypeVectorInt8:
		return "vector_int8"
	default:
		return "unknown"
	}
}

// DataTypeOf returns the DataType matching a Value's Kind.
func DataTypeOf(v Value) DataType {
	switch v.Kind() {
	case KindNull:
		return TypeNull
	case KindInt32:
		return TypeInt32
	case KindInt64:
		return TypeInt64
	case KindFloat64:
		return TypeFloat64
	case KindBool:
		return TypeBool
	case KindString:
		return TypeString
	case KindTimestamp:
		return TypeTimestamp
	case KindVector:
		return TypeVector
	case KindVectorInt8:
		return TypeVectorInt8
	default:
		return TypeNull
	}
}

// Accepts reports whether a value of type `from` may populate a field
// declared as type `t`, applying the coercion rules above.
func (t DataType) Accepts(from DataType) bool {
	if t == from {
		return true
	}
	switch {
	case t == TypeInt64 && from == TypeInt32:
		return true
	case t == TypeInt32 && from == TypeInt64:
		return true
	case t == TypeFloat64 && (from == TypeInt32 || from == TypeInt64):
		return true
	case t == TypeTimestamp && from == TypeInt64:
		return true
	case t == TypeInt64 && from == TypeTimestamp:
		return true
	}
	return false
}

// Field is one column of a TupleSchema.
type Field struct {
	Name string
	Type DataType
}

// TupleSchema is the ordered list of (field name, data type) pairs that
// is the single source of truth for a relation's shape.
type TupleSchema struct {
	Fields []Field
}

// NewSchema builds a TupleSchema from field definitions.
func NewSchema(fields ...Field) TupleSchema {
	return TupleSchema{Fields: fields}
}

// Arity returns the number of fields.
func (s TupleSchema) Arity() int { return len(s.Fields) }

// FieldIndex is the reverse lookup from field name to position, or -1
// if the schema has no such field.
func (s TupleSchema) FieldIndex(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Names returns the ordered field names.
func (s TupleSchema) Names() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

// Equal reports whether two schemas declare the same fields in the same
// order (by name and type).
func (s TupleSchema) Equal(o TupleSchema) bool {
	if len(s.Fields) != len(o.Fields) {
		return false
	}
	for i := range s.Fields {
		if s.Fields[i] != o.Fields[i] {
			return false
		}
	}
	return true
}

// Validate checks a Tuple against the schema: arity must match, and each
// column's runtime type must be accepted by the declared field type
// (applying the coercions in DataType.Accepts).
func (s TupleSchema) Validate(t Tuple) error {
	if len(t) != len(s.Fields) {
		return &SchemaMismatchError{
			Want: len(s.Fields),
			Got:  len(t),
		}
	}
	for i, f := range s.Fields {
		if t[i].IsNull() {
			continue
		}
		got := DataTypeOf(t[i])
		if !f.Type.Accepts(got) {
			return &FieldTypeError{
				Field: f.Name,
				Want:  f.Type,
				Got:   got,
			}
		}
	}
	return nil
}

// String renders the schema as "(name:type, ...)" for tracing/CLI output.
func (s TupleSchema) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, f := range s.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		b.WriteByte(':')
		b.WriteString(f.Type.String())
	}
	b.WriteByte(')')
	return b.String()
}

// SchemaMismatchError reports an arity mismatch between a schema and a
// tuple being validated against it.
type SchemaMismatchError struct {
	Want, Got int
}

func (e *SchemaMismatchError) Error() string {
	return "schema arity mismatch: want " + itoa(e.Want) + " got " + itoa(e.Got)
}

// FieldTypeError reports a field whose runtime type the schema rejects.
type FieldTypeError struct {
	Field     string
	Want, Got DataType
}

func (e *FieldTypeError) Error() string {
	return "field " + e.Field + ": want " + e.Want.String() + " got " + e.Got.String()
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
