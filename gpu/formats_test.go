package gpu

import (
	"testing"

	"github.com/quyse/coil-core-sub001/backend"
	"github.com/quyse/coil-core-sub001/format"
)

func TestPixelFormat(t *testing.T) {
	tests := []struct {
		name string
		in   format.PixelFormat
		want backend.Format
	}{
		{"R8", format.R8, backend.FormatR8Unorm},
		{"RG8", format.RG8, backend.FormatR8G8Unorm},
		{"RGBA8", format.RGBA8, backend.FormatR8G8B8A8Unorm},
		{"RGBA8 sRGB", format.RGBA8SRGB, backend.FormatR8G8B8A8Srgb},
		{"RGBA8 uint", format.Uncompressed(format.RGBA, format.UInt, format.Size32, false), backend.FormatR8G8B8A8Uint},
		{"R16F", format.R16F, backend.FormatR16Sfloat},
		{"RGBA16F", format.RGBA16F, backend.FormatR16G16B16A16Sfloat},
		{"R32F", format.R32F, backend.FormatR32Sfloat},
		{"R32U", format.R32U, backend.FormatR32Uint},
		{"RG32F", format.RG32F, backend.FormatR32G32Sfloat},
		{"RGB32F", format.RGB32F, backend.FormatR32G32B32Sfloat},
		{"RGBA32F", format.RGBA32F, backend.FormatR32G32B32A32Sfloat},
		{"BC1 sRGB", format.Compressed(format.BC1, true), backend.FormatBC1RGBSrgb},
		{"BC3", format.Compressed(format.BC3, false), backend.FormatBC3Unorm},
		{"BC5S", format.Compressed(format.BC5S, false), backend.FormatBC5Snorm},
		{"opaque", format.Opaque(uint32(backend.FormatB8G8R8A8Unorm)), backend.FormatB8G8R8A8Unorm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pixelFormat(tt.in)
			if err != nil {
				t.Fatalf("pixelFormat(%v) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("pixelFormat(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestPixelFormatErrors(t *testing.T) {
	bad := []format.PixelFormat{
		format.DepthStencil,
		format.Uncompressed(format.RGB, format.Untyped, format.Size32, false),
		format.Compressed(format.BC4, true),
	}
	for _, f := range bad {
		if got, err := pixelFormat(f); err == nil {
			t.Errorf("pixelFormat(%v) = %d, want error", f, got)
		}
	}
}

func TestDeviceDepthStencilFormat(t *testing.T) {
	d, _, _ := newTestDevice(t)
	got, err := d.PixelFormat(format.DepthStencil)
	if err != nil {
		t.Fatalf("PixelFormat() error = %v", err)
	}
	if got != backend.FormatD24UnormS8Uint {
		t.Errorf("PixelFormat(DepthStencil) = %d, want %d", got, backend.FormatD24UnormS8Uint)
	}
}

func TestVertexFormat(t *testing.T) {
	tests := []struct {
		in   format.VertexFormat
		want backend.Format
	}{
		{format.VertexFloat, backend.FormatR32Sfloat},
		{format.VertexVec2, backend.FormatR32G32Sfloat},
		{format.VertexVec3, backend.FormatR32G32B32Sfloat},
		{format.VertexVec4, backend.FormatR32G32B32A32Sfloat},
		{format.VertexUInt, backend.FormatR32Uint},
		{format.VertexUNorm4, backend.FormatR8G8B8A8Unorm},
		{format.VertexFormat{Scalar: format.ScalarSInt, Components: 4, Size: 4}, backend.FormatR32G32B32A32Sint},
		{format.VertexFormat{Scalar: format.ScalarSNorm, Components: 4, Size: 1}, backend.FormatR8G8B8A8Snorm},
	}
	for _, tt := range tests {
		got, err := vertexFormat(tt.in)
		if err != nil {
			t.Errorf("vertexFormat(%v) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("vertexFormat(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
	if _, err := vertexFormat(format.VertexFormat{Scalar: format.ScalarFloat, Components: 2, Size: 1}); err == nil {
		t.Error("vertexFormat(8-bit float) succeeded, want error")
	}
}
