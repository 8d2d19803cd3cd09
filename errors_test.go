package coil

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{Validation, "VALIDATION"},
		{Resource, "RESOURCE"},
		{DeviceLost, "DEVICE_LOST"},
		{SurfaceLost, "SURFACE_LOST"},
		{Suboptimal, "SUBOPTIMAL"},
		{ShaderTypeMismatch, "SHADER_TYPE_MISMATCH"},
		{ShaderUnknownBuiltin, "SHADER_UNKNOWN_BUILTIN"},
		{ShaderUnsupportedOp, "SHADER_UNSUPPORTED_OP"},
		{Kind(200), "Kind(200)"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestErrorIs(t *testing.T) {
	cause := errors.New("pool exhausted")
	err := fmt.Errorf("allocate descriptor set: %w", Wrap(Resource, "pool", cause))

	if !errors.Is(err, ErrResource) {
		t.Error("errors.Is(err, ErrResource) = false, want true")
	}
	if errors.Is(err, ErrValidation) {
		t.Error("errors.Is(err, ErrValidation) = true, want false")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
	if got := KindOf(err); got != Resource {
		t.Errorf("KindOf() = %v, want %v", got, Resource)
	}
}

func TestKindOfPlainError(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != KindUnknown {
		t.Errorf("KindOf(plain) = %v, want %v", got, KindUnknown)
	}
	if got := KindOf(nil); got != KindUnknown {
		t.Errorf("KindOf(nil) = %v, want %v", got, KindUnknown)
	}
}

func TestWrapNil(t *testing.T) {
	if err := Wrap(Validation, "op", nil); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
}

func TestErrorf(t *testing.T) {
	err := Errorf(Validation, "draw", "no pipeline bound (%d vertices)", 3)
	want := "coil: draw: VALIDATION: no pipeline bound (3 vertices)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
