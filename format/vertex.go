package format

import (
	"fmt"

	coil "github.com/quyse/coil-core-sub001"
)

// ScalarFormat is the encoding of one vertex attribute component.
type ScalarFormat uint8

// Vertex attribute component encodings.
const (
	ScalarFloat ScalarFormat = iota + 1
	ScalarSInt
	ScalarUInt
	ScalarSNorm
	ScalarUNorm
)

// VertexFormat describes one vertex attribute.
type VertexFormat struct {
	Scalar     ScalarFormat
	Components int
	// Size is the component width in bytes: 1, 2 or 4.
	Size int
}

// Common vertex formats.
var (
	VertexFloat  = VertexFormat{ScalarFloat, 1, 4}
	VertexVec2   = VertexFormat{ScalarFloat, 2, 4}
	VertexVec3   = VertexFormat{ScalarFloat, 3, 4}
	VertexVec4   = VertexFormat{ScalarFloat, 4, 4}
	VertexUInt   = VertexFormat{ScalarUInt, 1, 4}
	VertexUNorm4 = VertexFormat{ScalarUNorm, 4, 1}
)

// Bytes returns the attribute size in bytes.
func (f VertexFormat) Bytes() int {
	return f.Components * f.Size
}

// Validate checks the component count and width.
func (f VertexFormat) Validate() error {
	if f.Scalar < ScalarFloat || f.Scalar > ScalarUNorm {
		return coil.Errorf(coil.Validation, "vertex format", "unknown scalar format %d", f.Scalar)
	}
	if f.Components < 1 || f.Components > 4 {
		return coil.Errorf(coil.Validation, "vertex format", "components = %d, want 1..4", f.Components)
	}
	switch f.Size {
	case 1, 2:
		if f.Scalar == ScalarFloat && f.Size == 1 {
			return coil.Errorf(coil.Validation, "vertex format", "8-bit float")
		}
	case 4:
		if f.Scalar == ScalarSNorm || f.Scalar == ScalarUNorm {
			return coil.Errorf(coil.Validation, "vertex format", "32-bit normalized")
		}
	default:
		return coil.Errorf(coil.Validation, "vertex format", "component size = %d, want 1, 2 or 4", f.Size)
	}
	return nil
}

func (f VertexFormat) String() string {
	names := [...]string{"?", "float", "sint", "uint", "snorm", "unorm"}
	s := names[0]
	if int(f.Scalar) < len(names) {
		s = names[f.Scalar]
	}
	return fmt.Sprintf("%s%dx%d", s, f.Size*8, f.Components)
}
