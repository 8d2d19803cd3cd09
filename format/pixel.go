// Package format describes pixel, vertex and image formats and computes the
// memory layout of image data.
package format

import (
	"fmt"

	coil "github.com/quyse/coil-core-sub001"
)

// Components is the channel set of an uncompressed pixel.
type Components uint8

// Channel sets.
const (
	R Components = iota + 1
	RG
	RGB
	RGBA
)

// Count returns the number of channels.
func (c Components) Count() int {
	switch c {
	case R, RG, RGB, RGBA:
		return int(c)
	}
	return 0
}

func (c Components) String() string {
	switch c {
	case R:
		return "R"
	case RG:
		return "RG"
	case RGB:
		return "RGB"
	case RGBA:
		return "RGBA"
	}
	return fmt.Sprintf("Components(%d)", uint8(c))
}

// PixelType is the numeric interpretation of uncompressed channels.
type PixelType uint8

// Pixel types. Untyped channels are unsigned normalized.
const (
	Untyped PixelType = iota
	UInt
	Float
)

// PixelSize is the total bit width of an uncompressed pixel.
type PixelSize uint8

// Pixel sizes.
const (
	Size8 PixelSize = iota + 1
	Size16
	Size24
	Size32
	Size48
	Size64
	Size96
	Size128
)

// Bytes returns the pixel size in bytes.
func (s PixelSize) Bytes() int {
	switch s {
	case Size8:
		return 1
	case Size16:
		return 2
	case Size24:
		return 3
	case Size32:
		return 4
	case Size48:
		return 6
	case Size64:
		return 8
	case Size96:
		return 12
	case Size128:
		return 16
	}
	return 0
}

// Scheme is a block compression scheme. All schemes use 4x4 blocks.
type Scheme uint8

// Compression schemes.
const (
	BC1 Scheme = iota + 1
	BC1A
	BC2
	BC3
	BC4
	BC4S
	BC5
	BC5S
)

func (s Scheme) String() string {
	switch s {
	case BC1:
		return "BC1"
	case BC1A:
		return "BC1A"
	case BC2:
		return "BC2"
	case BC3:
		return "BC3"
	case BC4:
		return "BC4"
	case BC4S:
		return "BC4S"
	case BC5:
		return "BC5"
	case BC5S:
		return "BC5S"
	}
	return fmt.Sprintf("Scheme(%d)", uint8(s))
}

// BlockBytes returns the size of one 4x4 block.
func (s Scheme) BlockBytes() int {
	switch s {
	case BC1, BC1A, BC4, BC4S:
		return 8
	case BC2, BC3, BC5, BC5S:
		return 16
	}
	return 0
}

// PixelKind discriminates PixelFormat variants.
type PixelKind uint8

// Pixel format variants.
const (
	KindUncompressed PixelKind = iota
	KindCompressed
	// KindDepthStencil is a depth-stencil attachment format chosen by the device.
	KindDepthStencil
	// KindOpaque is a native format supplied by a presenter.
	KindOpaque
)

// PixelFormat is a tagged union over uncompressed, compressed,
// depth-stencil and opaque native formats.
type PixelFormat struct {
	Kind       PixelKind
	Components Components
	Type       PixelType
	Size       PixelSize
	Scheme     Scheme
	SRGB       bool
	// Native is the backend format value for KindOpaque.
	Native uint32
}

// Uncompressed returns an uncompressed pixel format.
func Uncompressed(c Components, t PixelType, s PixelSize, srgb bool) PixelFormat {
	return PixelFormat{Kind: KindUncompressed, Components: c, Type: t, Size: s, SRGB: srgb}
}

// Compressed returns a block-compressed pixel format.
func Compressed(s Scheme, srgb bool) PixelFormat {
	return PixelFormat{Kind: KindCompressed, Scheme: s, SRGB: srgb}
}

// Opaque wraps a native format value supplied by a presenter.
func Opaque(native uint32) PixelFormat {
	return PixelFormat{Kind: KindOpaque, Native: native}
}

// Predefined formats.
var (
	R8        = Uncompressed(R, Untyped, Size8, false)
	RG8       = Uncompressed(RG, Untyped, Size16, false)
	RGBA8     = Uncompressed(RGBA, Untyped, Size32, false)
	RGBA8SRGB = Uncompressed(RGBA, Untyped, Size32, true)
	R16F      = Uncompressed(R, Float, Size16, false)
	R32F      = Uncompressed(R, Float, Size32, false)
	RG32F     = Uncompressed(RG, Float, Size64, false)
	RGB32F    = Uncompressed(RGB, Float, Size96, false)
	RGBA16F   = Uncompressed(RGBA, Float, Size64, false)
	RGBA32F   = Uncompressed(RGBA, Float, Size128, false)
	R32U      = Uncompressed(R, UInt, Size32, false)

	DepthStencil = PixelFormat{Kind: KindDepthStencil}
)

// ChannelBits returns the bit width of each channel, or 0 when the size does
// not divide evenly into 8, 16 or 32 bit channels.
func (f PixelFormat) ChannelBits() int {
	n := f.Components.Count()
	if n == 0 {
		return 0
	}
	bits := f.Size.Bytes() * 8
	if bits%n != 0 {
		return 0
	}
	switch w := bits / n; w {
	case 8, 16, 32:
		return w
	}
	return 0
}

// Validate checks the variant invariants.
func (f PixelFormat) Validate() error {
	switch f.Kind {
	case KindUncompressed:
		if f.Components.Count() == 0 {
			return coil.Errorf(coil.Validation, "pixel format", "unknown components %v", f.Components)
		}
		if f.Size.Bytes() == 0 {
			return coil.Errorf(coil.Validation, "pixel format", "unknown pixel size %d", f.Size)
		}
		w := f.ChannelBits()
		if w == 0 {
			return coil.Errorf(coil.Validation, "pixel format", "size %d bytes does not fit %v", f.Size.Bytes(), f.Components)
		}
		if f.Type == Float && w == 8 {
			return coil.Errorf(coil.Validation, "pixel format", "8-bit float channels")
		}
		if f.SRGB && (f.Components != RGB && f.Components != RGBA || f.Type != Untyped || w != 8) {
			return coil.Errorf(coil.Validation, "pixel format", "sRGB requires 8-bit untyped RGB or RGBA")
		}
	case KindCompressed:
		if f.Scheme.BlockBytes() == 0 {
			return coil.Errorf(coil.Validation, "pixel format", "unknown compression scheme %v", f.Scheme)
		}
		if f.SRGB {
			switch f.Scheme {
			case BC1, BC1A, BC2, BC3:
			default:
				return coil.Errorf(coil.Validation, "pixel format", "sRGB not available for %v", f.Scheme)
			}
		}
	case KindDepthStencil, KindOpaque:
	default:
		return coil.Errorf(coil.Validation, "pixel format", "unknown kind %d", f.Kind)
	}
	return nil
}

// BlockSize returns the edge length of a storage block: 4 for compressed
// formats, 1 otherwise.
func (f PixelFormat) BlockSize() int {
	if f.Kind == KindCompressed {
		return 4
	}
	return 1
}

// BlockBytes returns the size of one storage block in bytes.
// Depth-stencil and opaque formats are treated as 4 bytes per pixel.
func (f PixelFormat) BlockBytes() int {
	switch f.Kind {
	case KindUncompressed:
		return f.Size.Bytes()
	case KindCompressed:
		return f.Scheme.BlockBytes()
	}
	return 4
}

func (f PixelFormat) String() string {
	switch f.Kind {
	case KindUncompressed:
		t := [...]string{Untyped: "unorm", UInt: "uint", Float: "float"}[f.Type]
		s := fmt.Sprintf("%v%d_%s", f.Components, f.ChannelBits(), t)
		if f.SRGB {
			s += "_srgb"
		}
		return s
	case KindCompressed:
		if f.SRGB {
			return f.Scheme.String() + "_srgb"
		}
		return f.Scheme.String()
	case KindDepthStencil:
		return "depth_stencil"
	case KindOpaque:
		return fmt.Sprintf("native(%d)", f.Native)
	}
	return "invalid"
}
