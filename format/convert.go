package format

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// FromImage converts img to a 2D RGBA8 image buffer. With mips set, the full
// mip chain is generated by successive bilinear downscaling.
func FromImage(img image.Image, srgb, mips bool) (*ImageBuffer, error) {
	b := img.Bounds()
	f := ImageFormat{
		Pixel:     Uncompressed(RGBA, Untyped, Size32, srgb),
		Width:     b.Dx(),
		Height:    b.Dy(),
		MipLevels: 1,
	}
	if mips {
		f.MipLevels = MaxMipLevels(f.Width, f.Height, 0)
	}
	buf, err := NewImageBuffer(f)
	if err != nil {
		return nil, err
	}

	m := f.Metrics()
	var prev *image.RGBA
	for i, mm := range m.Mips {
		level := &image.RGBA{
			Pix:    buf.Level(0, i),
			Stride: mm.BufferWidth * 4,
			Rect:   image.Rect(0, 0, mm.Width, mm.Height),
		}
		if prev == nil {
			xdraw.Draw(level, level.Rect, img, b.Min, xdraw.Src)
		} else {
			xdraw.BiLinear.Scale(level, level.Rect, prev, prev.Rect, xdraw.Src, nil)
		}
		prev = level
	}
	return buf, nil
}

// ToImage returns the first mip of layer 0 of an RGBA8 buffer as an image
// sharing the buffer's memory.
func (b *ImageBuffer) ToImage() (*image.RGBA, bool) {
	p := b.Format.Pixel
	if p.Kind != KindUncompressed || p.Components != RGBA || p.Size != Size32 || p.Type != Untyped {
		return nil, false
	}
	mm := b.Format.Metrics().Mips[0]
	return &image.RGBA{
		Pix:    b.Level(0, 0),
		Stride: mm.BufferWidth * 4,
		Rect:   image.Rect(0, 0, mm.Width, mm.Height),
	}, true
}
