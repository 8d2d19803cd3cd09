package shader

// MemoryLayout is a buffer block layout rule.
type MemoryLayout uint8

// Layout rules. Uniform buffers use Std140, storage buffers Std430.
const (
	Std140 MemoryLayout = iota
	Std430
)

func alignUp(v, a int) int {
	return (v + a - 1) / a * a
}

// Align returns the base alignment of t in bytes.
func (l MemoryLayout) Align(t DataType) int {
	switch t.kind {
	case KindScalar:
		return 4
	case KindVector:
		if t.n == 2 {
			return 8
		}
		return 16
	case KindMatrix:
		return l.MatrixStride(t)
	case KindArray:
		a := l.Align(*t.elem)
		if l == Std140 {
			a = alignUp(a, 16)
		}
		return a
	case KindStruct:
		a := 4
		for _, f := range t.fields {
			a = max(a, l.Align(f.Type))
		}
		if l == Std140 {
			a = alignUp(a, 16)
		}
		return a
	}
	return 4
}

// Size returns the size of t in bytes, including trailing struct padding.
func (l MemoryLayout) Size(t DataType) int {
	switch t.kind {
	case KindScalar:
		return 4
	case KindVector:
		return 4 * t.n
	case KindMatrix:
		return t.n * l.MatrixStride(t)
	case KindArray:
		return t.n * l.ArrayStride(t)
	case KindStruct:
		offsets := l.Offsets(t)
		if len(offsets) == 0 {
			return 0
		}
		last := len(t.fields) - 1
		end := offsets[last] + l.Size(t.fields[last].Type)
		return alignUp(end, l.Align(t))
	}
	return 0
}

// ArrayStride returns the element stride of an array type.
func (l MemoryLayout) ArrayStride(t DataType) int {
	e := *t.elem
	stride := alignUp(l.Size(e), l.Align(e))
	if l == Std140 {
		stride = alignUp(stride, 16)
	}
	return stride
}

// MatrixStride returns the column stride of a column-major matrix.
func (l MemoryLayout) MatrixStride(t DataType) int {
	col := Vector(Float, t.rows)
	s := l.Align(col)
	if l == Std140 {
		s = alignUp(s, 16)
	}
	return s
}

// Offsets returns the byte offset of every field of a struct type.
func (l MemoryLayout) Offsets(t DataType) []int {
	offsets := make([]int, len(t.fields))
	off := 0
	for i, f := range t.fields {
		off = alignUp(off, l.Align(f.Type))
		offsets[i] = off
		off += l.Size(f.Type)
	}
	return offsets
}
