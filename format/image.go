package format

import (
	"math/bits"

	coil "github.com/quyse/coil-core-sub001"
)

// ImageFormat describes the shape of an image.
type ImageFormat struct {
	Pixel PixelFormat
	Width int
	// Height is 0 for 1D images.
	Height int
	// Depth is 0 for 2D images and arrays.
	Depth     int
	MipLevels int
	// Count is the number of array layers, 0 for a single image.
	Count int
}

// MipMetrics is the layout of one mip level inside an image buffer.
type MipMetrics struct {
	Width, Height, Depth int
	// BufferWidth and BufferHeight are rounded up to whole blocks.
	BufferWidth, BufferHeight int
	// Offset is relative to the start of the layer.
	Offset int
	Size   int
}

// ImageMetrics is the derived layout of an image buffer.
// Array layers are equally sized blocks of LayerSize bytes.
type ImageMetrics struct {
	Mips      []MipMetrics
	LayerSize int
	TotalSize int
}

// Layers returns max(Count, 1).
func (f ImageFormat) Layers() int {
	return max(f.Count, 1)
}

// Dim returns 1, 2 or 3.
func (f ImageFormat) Dim() int {
	switch {
	case f.Depth > 0:
		return 3
	case f.Height > 0:
		return 2
	}
	return 1
}

// Validate checks the format for consistency.
func (f ImageFormat) Validate() error {
	if err := f.Pixel.Validate(); err != nil {
		return err
	}
	if f.Width <= 0 || f.Height < 0 || f.Depth < 0 || f.Count < 0 {
		return coil.Errorf(coil.Validation, "image format", "invalid dimensions %dx%dx%d", f.Width, f.Height, f.Depth)
	}
	if f.Depth > 0 && f.Count > 0 {
		return coil.Errorf(coil.Validation, "image format", "3D image arrays are not supported")
	}
	if f.MipLevels < 1 || f.MipLevels > MaxMipLevels(f.Width, f.Height, f.Depth) {
		return coil.Errorf(coil.Validation, "image format", "mip levels = %d, want 1..%d", f.MipLevels, MaxMipLevels(f.Width, f.Height, f.Depth))
	}
	return nil
}

// MaxMipLevels returns the length of a full mip chain.
func MaxMipLevels(w, h, d int) int {
	m := max(w, h, d, 1)
	return bits.Len(uint(m))
}

// Metrics computes per-mip sizes and offsets. Mips of one layer are laid out
// contiguously; layers follow each other.
func (f ImageFormat) Metrics() ImageMetrics {
	block := f.Pixel.BlockSize()
	blockBytes := f.Pixel.BlockBytes()
	w, h, d := f.Width, max(f.Height, 1), max(f.Depth, 1)
	levels := max(f.MipLevels, 1)

	m := ImageMetrics{Mips: make([]MipMetrics, levels)}
	offset := 0
	for i := range levels {
		bw := (w + block - 1) / block
		bh := (h + block - 1) / block
		size := bw * bh * d * blockBytes
		m.Mips[i] = MipMetrics{
			Width: w, Height: h, Depth: d,
			BufferWidth: bw * block, BufferHeight: bh * block,
			Offset: offset,
			Size:   size,
		}
		offset += size
		w, h, d = max(w/2, 1), max(h/2, 1), max(d/2, 1)
	}
	m.LayerSize = offset
	m.TotalSize = offset * f.Layers()
	return m
}

// ImageBuffer holds image data laid out as described by Format.Metrics.
type ImageBuffer struct {
	Format ImageFormat
	Data   []byte
}

// NewImageBuffer allocates a zeroed buffer for f.
func NewImageBuffer(f ImageFormat) (*ImageBuffer, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &ImageBuffer{Format: f, Data: make([]byte, f.Metrics().TotalSize)}, nil
}

// Level returns the bytes of one mip of one layer.
func (b *ImageBuffer) Level(layer, mip int) []byte {
	m := b.Format.Metrics()
	mm := m.Mips[mip]
	start := layer*m.LayerSize + mm.Offset
	return b.Data[start : start+mm.Size]
}
