package shader

import (
	"cmp"
	"fmt"
	"strings"
)

// ScalarKind is the scalar component type of a DataType.
type ScalarKind uint8

// Scalar kinds. All are 32 bits wide.
const (
	Bool ScalarKind = iota + 1
	Int
	UInt
	Float
)

func (s ScalarKind) String() string {
	switch s {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case UInt:
		return "uint"
	case Float:
		return "float"
	}
	return fmt.Sprintf("ScalarKind(%d)", uint8(s))
}

// TypeKind discriminates DataType shapes.
type TypeKind uint8

// Type shapes.
const (
	KindScalar TypeKind = iota + 1
	KindVector
	KindMatrix
	KindArray
	KindStruct
)

// Field is a named member of a struct type.
type Field struct {
	Name string
	Type DataType
}

// DataType is the static type of a shader expression or resource member.
// Values are immutable; compare them with Equal or Compare.
type DataType struct {
	kind   TypeKind
	scalar ScalarKind
	// n is the vector length, matrix column count or array length.
	n int
	// rows is the matrix row count.
	rows   int
	elem   *DataType
	name   string
	fields []Field
}

// Scalar returns a scalar type.
func Scalar(s ScalarKind) DataType {
	return DataType{kind: KindScalar, scalar: s}
}

// Vector returns an n-component vector type.
func Vector(s ScalarKind, n int) DataType {
	return DataType{kind: KindVector, scalar: s, n: n}
}

// Matrix returns a float matrix with the given number of columns and rows.
func Matrix(cols, rows int) DataType {
	return DataType{kind: KindMatrix, scalar: Float, n: cols, rows: rows}
}

// ArrayOf returns a fixed-length array type.
func ArrayOf(elem DataType, n int) DataType {
	e := elem
	return DataType{kind: KindArray, n: n, elem: &e}
}

// StructOf returns a struct type.
func StructOf(name string, fields ...Field) DataType {
	return DataType{kind: KindStruct, name: name, fields: append([]Field(nil), fields...)}
}

// Common types.
var (
	TBool  = Scalar(Bool)
	TInt   = Scalar(Int)
	TUInt  = Scalar(UInt)
	TFloat = Scalar(Float)
	TVec2  = Vector(Float, 2)
	TVec3  = Vector(Float, 3)
	TVec4  = Vector(Float, 4)
	TUVec3 = Vector(UInt, 3)
	TMat3  = Matrix(3, 3)
	TMat4  = Matrix(4, 4)
)

// Kind returns the shape of the type; 0 for the zero DataType.
func (t DataType) Kind() TypeKind { return t.kind }

// ScalarKind returns the component scalar of scalars, vectors and matrices.
func (t DataType) ScalarKind() ScalarKind { return t.scalar }

// Len returns the vector length, matrix column count or array length.
func (t DataType) Len() int { return t.n }

// Columns returns the matrix column count.
func (t DataType) Columns() int { return t.n }

// Rows returns the matrix row count.
func (t DataType) Rows() int { return t.rows }

// Name returns the struct name.
func (t DataType) Name() string { return t.name }

// Fields returns the struct fields. The slice must not be modified.
func (t DataType) Fields() []Field { return t.fields }

// Elem returns the element type: the scalar of a vector, the column vector
// of a matrix, or the element of an array.
func (t DataType) Elem() DataType {
	switch t.kind {
	case KindVector:
		return Scalar(t.scalar)
	case KindMatrix:
		return Vector(t.scalar, t.rows)
	case KindArray:
		return *t.elem
	}
	return DataType{}
}

// FieldIndex returns the index of the named field, or -1.
func (t DataType) FieldIndex(name string) int {
	for i, f := range t.fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// IsValid reports whether t was built by one of the constructors.
func (t DataType) IsValid() bool { return t.kind != 0 }

// IsNumeric reports whether t is a non-bool scalar or vector.
func (t DataType) IsNumeric() bool {
	return (t.kind == KindScalar || t.kind == KindVector) && t.scalar != Bool
}

// IsFloat reports whether t is a float scalar or vector.
func (t DataType) IsFloat() bool {
	return (t.kind == KindScalar || t.kind == KindVector) && t.scalar == Float
}

// Components returns the number of scalar components of a scalar or vector.
func (t DataType) Components() int {
	switch t.kind {
	case KindScalar:
		return 1
	case KindVector:
		return t.n
	}
	return 0
}

// Compare is a total order over data types.
func Compare(a, b DataType) int {
	if c := cmp.Compare(a.kind, b.kind); c != 0 {
		return c
	}
	switch a.kind {
	case KindScalar:
		return cmp.Compare(a.scalar, b.scalar)
	case KindVector:
		if c := cmp.Compare(a.scalar, b.scalar); c != 0 {
			return c
		}
		return cmp.Compare(a.n, b.n)
	case KindMatrix:
		if c := cmp.Compare(a.n, b.n); c != 0 {
			return c
		}
		return cmp.Compare(a.rows, b.rows)
	case KindArray:
		if c := cmp.Compare(a.n, b.n); c != 0 {
			return c
		}
		return Compare(*a.elem, *b.elem)
	case KindStruct:
		if c := cmp.Compare(a.name, b.name); c != 0 {
			return c
		}
		if c := cmp.Compare(len(a.fields), len(b.fields)); c != 0 {
			return c
		}
		for i := range a.fields {
			if c := cmp.Compare(a.fields[i].Name, b.fields[i].Name); c != 0 {
				return c
			}
			if c := Compare(a.fields[i].Type, b.fields[i].Type); c != 0 {
				return c
			}
		}
	}
	return 0
}

// Equal reports whether a and b denote the same type.
func (t DataType) Equal(o DataType) bool {
	return Compare(t, o) == 0
}

// String returns a canonical spelling that is unique per type.
func (t DataType) String() string {
	switch t.kind {
	case KindScalar:
		return t.scalar.String()
	case KindVector:
		prefix := map[ScalarKind]string{Bool: "b", Int: "i", UInt: "u", Float: ""}[t.scalar]
		return fmt.Sprintf("%svec%d", prefix, t.n)
	case KindMatrix:
		if t.n == t.rows {
			return fmt.Sprintf("mat%d", t.n)
		}
		return fmt.Sprintf("mat%dx%d", t.n, t.rows)
	case KindArray:
		return fmt.Sprintf("%v[%d]", *t.elem, t.n)
	case KindStruct:
		var sb strings.Builder
		sb.WriteString(t.name)
		sb.WriteByte('{')
		for i, f := range t.fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(f.Name)
			sb.WriteByte(' ')
			sb.WriteString(f.Type.String())
		}
		sb.WriteByte('}')
		return sb.String()
	}
	return "invalid"
}
