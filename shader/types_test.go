package shader

import (
	"slices"
	"testing"
)

func TestCompareTotalOrder(t *testing.T) {
	types := []DataType{
		TMat4, TVec3, TFloat, TInt, Vector(UInt, 2), ArrayOf(TVec4, 3), ArrayOf(TVec4, 2),
		StructOf("B", Field{"x", TFloat}), StructOf("A", Field{"y", TVec2}), TBool, TMat3,
		Matrix(4, 3), ArrayOf(TFloat, 3),
	}
	sorted := slices.Clone(types)
	slices.SortFunc(sorted, Compare)
	for i := 1; i < len(sorted); i++ {
		if Compare(sorted[i-1], sorted[i]) >= 0 {
			t.Errorf("Compare(%v, %v) >= 0 after sort", sorted[i-1], sorted[i])
		}
		if Compare(sorted[i], sorted[i-1]) <= 0 {
			t.Errorf("Compare is not antisymmetric for %v, %v", sorted[i], sorted[i-1])
		}
	}
	for _, x := range types {
		if Compare(x, x) != 0 {
			t.Errorf("Compare(%v, %v) != 0", x, x)
		}
	}
}

func TestDataTypeString(t *testing.T) {
	tests := []struct {
		typ  DataType
		want string
	}{
		{TFloat, "float"},
		{TVec3, "vec3"},
		{TUVec3, "uvec3"},
		{TMat4, "mat4"},
		{Matrix(3, 4), "mat3x4"},
		{ArrayOf(TVec2, 8), "vec2[8]"},
		{StructOf("Light", Field{"pos", TVec3}, Field{"power", TFloat}), "Light{pos vec3, power float}"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestElem(t *testing.T) {
	if got := TMat4.Elem(); !got.Equal(TVec4) {
		t.Errorf("mat4.Elem() = %v, want vec4", got)
	}
	if got := Matrix(2, 3).Elem(); !got.Equal(TVec3) {
		t.Errorf("mat2x3.Elem() = %v, want vec3", got)
	}
	if got := TVec2.Elem(); !got.Equal(TFloat) {
		t.Errorf("vec2.Elem() = %v, want float", got)
	}
}

func TestStd140Offsets(t *testing.T) {
	s := StructOf("U",
		Field{"a", TFloat},
		Field{"b", TVec3},
		Field{"c", TFloat},
		Field{"m", TMat4},
		Field{"arr", ArrayOf(TFloat, 3)},
		Field{"v", TVec2},
	)
	got := Std140.Offsets(s)
	want := []int{0, 16, 28, 32, 96, 144}
	if !slices.Equal(got, want) {
		t.Errorf("Std140.Offsets() = %v, want %v", got, want)
	}
	if size := Std140.Size(s); size != 160 {
		t.Errorf("Std140.Size() = %d, want 160", size)
	}
	if stride := Std140.ArrayStride(ArrayOf(TFloat, 3)); stride != 16 {
		t.Errorf("Std140.ArrayStride(float[3]) = %d, want 16", stride)
	}
}

func TestStd430Offsets(t *testing.T) {
	s := StructOf("S",
		Field{"w", TMat4},
		Field{"x", TVec4},
		Field{"arr", ArrayOf(TFloat, 3)},
		Field{"v", TVec2},
	)
	got := Std430.Offsets(s)
	want := []int{0, 64, 80, 96}
	if !slices.Equal(got, want) {
		t.Errorf("Std430.Offsets() = %v, want %v", got, want)
	}
	if stride := Std430.ArrayStride(ArrayOf(TFloat, 3)); stride != 4 {
		t.Errorf("Std430.ArrayStride(float[3]) = %d, want 4", stride)
	}
	if stride := Std430.MatrixStride(Matrix(2, 2)); stride != 8 {
		t.Errorf("Std430.MatrixStride(mat2) = %d, want 8", stride)
	}
	if stride := Std140.MatrixStride(Matrix(2, 2)); stride != 16 {
		t.Errorf("Std140.MatrixStride(mat2) = %d, want 16", stride)
	}
}
