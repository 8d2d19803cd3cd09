package gpu

import (
	coil "github.com/quyse/coil-core-sub001"
	"github.com/quyse/coil-core-sub001/backend"
	"github.com/quyse/coil-core-sub001/format"
)

// Offsets of the numeric variants inside one channel-layout group of the
// native format enumeration (UNORM, SNORM, USCALED, SSCALED, UINT, SINT,
// then SRGB for 8-bit or SFLOAT for 16-bit channels).
const (
	offsetUNorm = 0
	offsetSNorm = 1
	offsetUInt  = 4
	offsetSInt  = 5
	offsetLast  = 6
)

var (
	// group8 and group16 are the first native formats of the R, RG, RGB
	// and RGBA groups with 8 and 16 bit channels.
	group8  = [...]backend.Format{9, 16, 23, 37}
	group16 = [...]backend.Format{70, 77, 84, 91}
	// group32 starts the R, RG, RGB, RGBA groups of UINT, SINT, SFLOAT.
	group32 = [...]backend.Format{98, 101, 104, 107}
)

// compressedFormats maps a scheme to its linear and sRGB native formats.
var compressedFormats = map[format.Scheme][2]backend.Format{
	format.BC1:  {131, 132},
	format.BC1A: {133, 134},
	format.BC2:  {135, 136},
	format.BC3:  {137, 138},
	format.BC4:  {139, 0},
	format.BC4S: {140, 0},
	format.BC5:  {141, 0},
	format.BC5S: {142, 0},
}

// PixelFormat maps a pixel format to the backend format. Depth-stencil
// formats resolve to the device's preferred depth-stencil format.
func (d *Device) PixelFormat(f format.PixelFormat) (backend.Format, error) {
	if f.Kind == format.KindDepthStencil {
		return d.props.DepthStencilFormat, nil
	}
	return pixelFormat(f)
}

func pixelFormat(f format.PixelFormat) (backend.Format, error) {
	if err := f.Validate(); err != nil {
		return backend.FormatUndefined, err
	}
	switch f.Kind {
	case format.KindOpaque:
		return backend.Format(f.Native), nil
	case format.KindCompressed:
		v := compressedFormats[f.Scheme]
		if f.SRGB {
			return v[1], nil
		}
		return v[0], nil
	case format.KindDepthStencil:
		return backend.FormatUndefined, coil.Errorf(coil.Validation, "pixel format", "depth-stencil format depends on the device")
	}

	c := int(f.Components) - 1
	switch f.ChannelBits() {
	case 8:
		switch {
		case f.SRGB:
			return group8[c] + offsetLast, nil
		case f.Type == format.UInt:
			return group8[c] + offsetUInt, nil
		case f.Type == format.Untyped:
			return group8[c] + offsetUNorm, nil
		}
	case 16:
		switch f.Type {
		case format.Untyped:
			return group16[c] + offsetUNorm, nil
		case format.UInt:
			return group16[c] + offsetUInt, nil
		case format.Float:
			return group16[c] + offsetLast, nil
		}
	case 32:
		switch f.Type {
		case format.UInt:
			return group32[c], nil
		case format.Float:
			return group32[c] + 2, nil
		}
	}
	return backend.FormatUndefined, coil.Errorf(coil.Validation, "pixel format", "%v has no native equivalent", f)
}

// vertexFormat maps a vertex attribute format to the backend format.
func vertexFormat(f format.VertexFormat) (backend.Format, error) {
	if err := f.Validate(); err != nil {
		return backend.FormatUndefined, err
	}
	c := f.Components - 1
	switch f.Size {
	case 1, 2:
		group := group8
		if f.Size == 2 {
			group = group16
		}
		switch f.Scalar {
		case format.ScalarUNorm:
			return group[c] + offsetUNorm, nil
		case format.ScalarSNorm:
			return group[c] + offsetSNorm, nil
		case format.ScalarUInt:
			return group[c] + offsetUInt, nil
		case format.ScalarSInt:
			return group[c] + offsetSInt, nil
		case format.ScalarFloat:
			if f.Size == 2 {
				return group[c] + offsetLast, nil
			}
		}
	case 4:
		switch f.Scalar {
		case format.ScalarUInt:
			return group32[c], nil
		case format.ScalarSInt:
			return group32[c] + 1, nil
		case format.ScalarFloat:
			return group32[c] + 2, nil
		}
	}
	return backend.FormatUndefined, coil.Errorf(coil.Validation, "vertex format", "%v has no native equivalent", f)
}
