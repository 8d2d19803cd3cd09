package format

import (
	"errors"
	"image"
	"image/color"
	"testing"

	coil "github.com/quyse/coil-core-sub001"
)

func TestPixelSizeBytes(t *testing.T) {
	tests := []struct {
		size PixelSize
		want int
	}{
		{Size8, 1}, {Size16, 2}, {Size24, 3}, {Size32, 4},
		{Size48, 6}, {Size64, 8}, {Size96, 12}, {Size128, 16},
		{PixelSize(0), 0},
	}
	for _, tt := range tests {
		if got := tt.size.Bytes(); got != tt.want {
			t.Errorf("PixelSize(%d).Bytes() = %d, want %d", tt.size, got, tt.want)
		}
	}
}

func TestPixelFormatValidate(t *testing.T) {
	tests := []struct {
		name    string
		format  PixelFormat
		wantErr bool
	}{
		{"rgba8", RGBA8, false},
		{"rgba8 srgb", RGBA8SRGB, false},
		{"rgb8 srgb", Uncompressed(RGB, Untyped, Size24, true), false},
		{"rgba32f", RGBA32F, false},
		{"rgb32f", RGB32F, false},
		{"rg16", Uncompressed(RG, Untyped, Size32, false), false},
		{"r srgb", Uncompressed(R, Untyped, Size8, true), true},
		{"rg srgb", Uncompressed(RG, Untyped, Size16, true), true},
		{"rgba16 srgb", Uncompressed(RGBA, Untyped, Size64, true), true},
		{"rgba float srgb", Uncompressed(RGBA, Float, Size128, true), true},
		{"rgb size mismatch", Uncompressed(RGB, Untyped, Size32, false), true},
		{"rg 24 bit", Uncompressed(RG, Untyped, Size24, false), true},
		{"r8 float", Uncompressed(R, Float, Size8, false), true},
		{"unknown components", Uncompressed(Components(9), Untyped, Size8, false), true},
		{"bc1 srgb", Compressed(BC1, true), false},
		{"bc3 srgb", Compressed(BC3, true), false},
		{"bc4 srgb", Compressed(BC4, true), true},
		{"bc5s", Compressed(BC5S, false), false},
		{"unknown scheme", Compressed(Scheme(42), false), true},
		{"opaque", Opaque(44), false},
		{"depth", DepthStencil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.format.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, coil.ErrValidation) {
				t.Errorf("Validate() error kind = %v, want VALIDATION", coil.KindOf(err))
			}
		})
	}
}

func TestPixelFormatString(t *testing.T) {
	tests := []struct {
		format PixelFormat
		want   string
	}{
		{RGBA8, "RGBA8_unorm"},
		{RGBA8SRGB, "RGBA8_unorm_srgb"},
		{RGBA32F, "RGBA32_float"},
		{Compressed(BC1A, true), "BC1A_srgb"},
		{Opaque(7), "native(7)"},
	}
	for _, tt := range tests {
		if got := tt.format.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestVertexFormatValidate(t *testing.T) {
	tests := []struct {
		name    string
		format  VertexFormat
		wantErr bool
	}{
		{"vec3", VertexVec3, false},
		{"unorm4", VertexUNorm4, false},
		{"half2", VertexFormat{ScalarFloat, 2, 2}, false},
		{"float8", VertexFormat{ScalarFloat, 1, 1}, true},
		{"unorm32", VertexFormat{ScalarUNorm, 1, 4}, true},
		{"five components", VertexFormat{ScalarUInt, 5, 4}, true},
		{"size 3", VertexFormat{ScalarSInt, 1, 3}, true},
		{"unknown scalar", VertexFormat{0, 1, 4}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.format.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
	if got := VertexVec4.Bytes(); got != 16 {
		t.Errorf("VertexVec4.Bytes() = %d, want 16", got)
	}
}

func TestMaxMipLevels(t *testing.T) {
	tests := []struct {
		w, h, d, want int
	}{
		{1, 0, 0, 1}, {2, 2, 0, 2}, {256, 256, 0, 9}, {300, 10, 0, 9}, {4, 4, 64, 7},
	}
	for _, tt := range tests {
		if got := MaxMipLevels(tt.w, tt.h, tt.d); got != tt.want {
			t.Errorf("MaxMipLevels(%d, %d, %d) = %d, want %d", tt.w, tt.h, tt.d, got, tt.want)
		}
	}
}

func TestImageMetricsUncompressed(t *testing.T) {
	f := ImageFormat{Pixel: RGBA8, Width: 4, Height: 2, MipLevels: 3, Count: 2}
	m := f.Metrics()

	want := []MipMetrics{
		{Width: 4, Height: 2, Depth: 1, BufferWidth: 4, BufferHeight: 2, Offset: 0, Size: 32},
		{Width: 2, Height: 1, Depth: 1, BufferWidth: 2, BufferHeight: 1, Offset: 32, Size: 8},
		{Width: 1, Height: 1, Depth: 1, BufferWidth: 1, BufferHeight: 1, Offset: 40, Size: 4},
	}
	for i := range want {
		if m.Mips[i] != want[i] {
			t.Errorf("Mips[%d] = %+v, want %+v", i, m.Mips[i], want[i])
		}
	}
	if m.LayerSize != 44 {
		t.Errorf("LayerSize = %d, want 44", m.LayerSize)
	}
	if m.TotalSize != 88 {
		t.Errorf("TotalSize = %d, want 88", m.TotalSize)
	}
}

func TestImageMetricsCompressed(t *testing.T) {
	f := ImageFormat{Pixel: Compressed(BC1, false), Width: 6, Height: 6, MipLevels: 2}
	m := f.Metrics()
	if m.Mips[0].BufferWidth != 8 || m.Mips[0].BufferHeight != 8 {
		t.Errorf("mip 0 buffer = %dx%d, want 8x8", m.Mips[0].BufferWidth, m.Mips[0].BufferHeight)
	}
	if m.Mips[0].Size != 4*8 {
		t.Errorf("mip 0 size = %d, want 32", m.Mips[0].Size)
	}
	if m.Mips[1].Size != 8 || m.Mips[1].Offset != 32 {
		t.Errorf("mip 1 = %+v, want size 8 at 32", m.Mips[1])
	}
}

func TestImageFormatValidate(t *testing.T) {
	tests := []struct {
		name    string
		format  ImageFormat
		wantErr bool
	}{
		{"2d", ImageFormat{Pixel: RGBA8, Width: 16, Height: 16, MipLevels: 5}, false},
		{"too many mips", ImageFormat{Pixel: RGBA8, Width: 16, Height: 16, MipLevels: 6}, true},
		{"no mips", ImageFormat{Pixel: RGBA8, Width: 16, Height: 16}, true},
		{"zero width", ImageFormat{Pixel: RGBA8, Height: 16, MipLevels: 1}, true},
		{"3d array", ImageFormat{Pixel: RGBA8, Width: 4, Height: 4, Depth: 4, Count: 2, MipLevels: 1}, true},
		{"bad pixel", ImageFormat{Pixel: Compressed(BC4, true), Width: 4, Height: 4, MipLevels: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.format.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFromImageMips(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := range 4 {
		for x := range 4 {
			src.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	buf, err := FromImage(src, false, true)
	if err != nil {
		t.Fatalf("FromImage() error = %v", err)
	}
	if buf.Format.MipLevels != 3 {
		t.Fatalf("MipLevels = %d, want 3", buf.Format.MipLevels)
	}
	if len(buf.Data) != 4*4*4+2*2*4+4 {
		t.Fatalf("len(Data) = %d, want 84", len(buf.Data))
	}
	// A uniform image stays uniform in every mip.
	for mip := range 3 {
		px := buf.Level(0, mip)[:4]
		if px[0] != 200 || px[1] != 100 || px[2] != 50 || px[3] != 255 {
			t.Errorf("mip %d first pixel = %v, want [200 100 50 255]", mip, px)
		}
	}
	img, ok := buf.ToImage()
	if !ok {
		t.Fatal("ToImage() ok = false")
	}
	if img.Bounds().Dx() != 4 {
		t.Errorf("ToImage() width = %d, want 4", img.Bounds().Dx())
	}
}
