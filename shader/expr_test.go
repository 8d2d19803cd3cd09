package shader

import (
	"errors"
	"testing"

	coil "github.com/quyse/coil-core-sub001"
)

func TestExprTypes(t *testing.T) {
	v3 := NewAttribute(0, TVec3).Read()
	v4 := NewAttribute(1, TVec4).Read()
	m4 := NewUniformBuffer(StructOf("U", Field{"m", TMat4}), 0, 0).Field("m")
	f := F(2)

	tests := []struct {
		name string
		expr Expr
		want DataType
	}{
		{"vec add", Add(v3, v3), TVec3},
		{"vec scalar mul", Mul(v3, f), TVec3},
		{"scalar vec mul", Mul(f, v4), TVec4},
		{"mat vec", Mul(m4, v4), TVec4},
		{"vec mat", Mul(v4, m4), TVec4},
		{"mat mat", Mul(m4, m4), TMat4},
		{"mat scalar", Mul(m4, f), TMat4},
		{"dot", Dot(v3, v3), TFloat},
		{"cross", Cross(v3, v3), TVec3},
		{"normalize", Normalize(v3), TVec3},
		{"length", Length(v4), TFloat},
		{"swizzle", v4.Swizzle("xyz"), TVec3},
		{"swizzle scalar", v4.Swizzle("w"), TFloat},
		{"swizzle rgba", v4.Swizzle("bgra"), TVec4},
		{"index vec", v3.At(1), TFloat},
		{"index mat", m4.At(2), TVec4},
		{"cvec", Vec(v3.Swizzle("xy"), F(0), F(1)), TVec4},
		{"cast", Cast(v3, Int), Vector(Int, 3)},
		{"floor", Floor(v3), TVec3},
		{"abs int", Abs(I(-3)), TInt},
		{"neg", v3.Neg(), TVec3},
		{"const mat", ConstMat(2, 2, 1, 0, 0, 1), Matrix(2, 2)},
		{"construct mat", Construct(Matrix(2, 2), ConstVec(1, 0), ConstVec(0, 1)), Matrix(2, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.expr.Err(); err != nil {
				t.Fatalf("Err() = %v", err)
			}
			if got := tt.expr.Type(); !got.Equal(tt.want) {
				t.Errorf("Type() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExprTypeErrors(t *testing.T) {
	v2 := NewAttribute(0, TVec2).Read()
	v3 := NewAttribute(1, TVec3).Read()
	i := I(1)

	tests := []struct {
		name string
		expr Expr
	}{
		{"vec size mismatch", Add(v2, v3)},
		{"int plus float", Add(i, F(1))},
		{"dot mismatch", Dot(v2, v3)},
		{"cross vec2", Cross(v2, v2)},
		{"normalize scalar", Normalize(F(1))},
		{"swizzle out of range", v2.Swizzle("xyz")},
		{"swizzle bad char", v3.Swizzle("xq1")},
		{"index scalar", F(1).At(0)},
		{"index by float", v3.Index(F(0))},
		{"cvec too long", Vec(v3, v3)},
		{"cvec mixed", Vec(F(1), I(2))},
		{"sin int", Sin(i)},
		{"abs uint", Abs(U(1))},
		{"missing operand", Add(Expr{}, F(1))},
		{"nested", Mul(Add(v2, v3), F(2))},
		{"sample wrong coord", NewSampledImage(Dim2D, 0, 0).Sample(v3)},
		{"unknown field", NewUniformBuffer(StructOf("U", Field{"a", TFloat}), 0, 0).Field("b")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.expr.Err()
			if err == nil {
				t.Fatal("Err() = nil, want type mismatch")
			}
			if !errors.Is(err, coil.ErrShaderTypeMismatch) {
				t.Errorf("Err() kind = %v, want SHADER_TYPE_MISMATCH", coil.KindOf(err))
			}
		})
	}
}

func TestWriteTypeMismatch(t *testing.T) {
	out := NewFragment(0, TVec4)
	s := out.Write(ConstVec(1, 0, 0))
	if !errors.Is(s.Err(), coil.ErrShaderTypeMismatch) {
		t.Errorf("Write(vec3 to vec4).Err() = %v, want SHADER_TYPE_MISMATCH", s.Err())
	}
	if err := out.Write(ConstVec(1, 0, 0, 1)).Err(); err != nil {
		t.Errorf("Write(vec4).Err() = %v", err)
	}
}

func TestBuiltinClass(t *testing.T) {
	tests := []struct {
		name    string
		v       Var
		want    DataType
		wantErr bool
	}{
		{"vertex index", NewAttributeBuiltin(BuiltinVertexIndex), TInt, false},
		{"global id", NewAttributeBuiltin(BuiltinGlobalInvocationID), TUVec3, false},
		{"position", NewInterpolantBuiltin(BuiltinPosition), TVec4, false},
		{"frag depth", NewFragmentBuiltin(BuiltinFragDepth), TFloat, false},
		{"position as attribute", NewAttributeBuiltin(BuiltinPosition), DataType{}, true},
		{"frag depth as interpolant", NewInterpolantBuiltin(BuiltinFragDepth), DataType{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.v.Read().Err()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Err() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, coil.ErrShaderUnknownBuiltin) {
					t.Errorf("Err() kind = %v, want SHADER_UNKNOWN_BUILTIN", coil.KindOf(err))
				}
				return
			}
			if !tt.v.Type().Equal(tt.want) {
				t.Errorf("Type() = %v, want %v", tt.v.Type(), tt.want)
			}
		})
	}
}

func TestStorageStore(t *testing.T) {
	sb := NewStorageBuffer(StructOf("Out", Field{"r", TVec4}, Field{"list", ArrayOf(TFloat, 4)}), 0, 1)
	if err := sb.Store("r", ConstVec(1, 2, 3, 4)).Err(); err != nil {
		t.Errorf("Store(r).Err() = %v", err)
	}
	if err := sb.StoreAt("list", U(2), F(1)).Err(); err != nil {
		t.Errorf("StoreAt(list).Err() = %v", err)
	}
	if err := sb.Store("r", F(1)).Err(); err == nil {
		t.Error("Store(r, float).Err() = nil, want error")
	}
	if err := sb.StoreAt("r", U(0), F(1)).Err(); err == nil {
		t.Error("StoreAt on non-array.Err() = nil, want error")
	}
	if err := sb.Store("missing", F(1)).Err(); err == nil {
		t.Error("Store(missing).Err() = nil, want error")
	}
}

func TestSeqSkipsEmpty(t *testing.T) {
	out := NewFragment(0, TVec4)
	s := Seq(Stmt{}, out.Write(ConstVec(0, 0, 0, 1)), Stmt{})
	if got := len(s.Node().Args); got != 1 {
		t.Errorf("len(Seq.Args) = %d, want 1", got)
	}
}
