package gpu

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gputypes"

	coil "github.com/quyse/coil-core-sub001"
	"github.com/quyse/coil-core-sub001/backend"
	"github.com/quyse/coil-core-sub001/book"
	"github.com/quyse/coil-core-sub001/format"
)

// hostMemory are the memory properties of buffers written by the host.
const hostMemory = backend.MemoryHostVisible | backend.MemoryHostCoherent

// Buffer is a device buffer bound to pool memory.
type Buffer struct {
	id     uint64
	handle backend.Buffer
	size   uint64
	mem    MemoryBlock
}

// ID returns the creation-ordered id of the buffer.
func (b *Buffer) ID() uint64 { return b.id }

// Handle returns the backend buffer.
func (b *Buffer) Handle() backend.Buffer { return b.handle }

// Size returns the buffer size in bytes.
func (b *Buffer) Size() uint64 { return b.size }

func (d *Device) createBuffer(bk *book.Book, pool *Pool, size uint64, usage backend.BufferUsage, flags backend.MemoryProperty) (*Buffer, error) {
	if size == 0 {
		return nil, coil.Errorf(coil.Validation, "create buffer", "empty buffer")
	}
	h, req, err := d.dev.CreateBuffer(backend.BufferDesc{Size: size, Usage: usage})
	if err != nil {
		return nil, coil.Wrap(coil.Resource, "create buffer", err)
	}
	bk.Defer(func() { d.dev.DestroyBuffer(h) })
	mem, err := d.AllocateMemory(pool, req, flags)
	if err != nil {
		return nil, err
	}
	if err := d.dev.BindBufferMemory(h, mem.Memory, mem.Offset); err != nil {
		return nil, coil.Wrap(coil.Resource, "bind buffer memory", err)
	}
	if uint64(len(mem.Data)) > size {
		mem.Data = mem.Data[:size:size]
	}
	return &Buffer{id: d.newID(), handle: h, size: size, mem: mem}, nil
}

// VertexBuffer is an immutable buffer of vertex data.
type VertexBuffer struct {
	Buffer
}

// CreateVertexBuffer creates a vertex buffer holding data.
func (d *Device) CreateVertexBuffer(bk *book.Book, pool *Pool, data []byte) (*VertexBuffer, error) {
	b, err := d.createBuffer(bk, pool, uint64(len(data)), backend.BufferVertex, hostMemory)
	if err != nil {
		return nil, err
	}
	copy(b.mem.Data, data)
	return &VertexBuffer{Buffer: *b}, nil
}

// IndexBuffer is an immutable buffer of 16 or 32 bit indices.
type IndexBuffer struct {
	Buffer
	indexType backend.IndexType
	count     int
}

// IndexType returns the index width.
func (b *IndexBuffer) IndexType() backend.IndexType { return b.indexType }

// Count returns the number of indices.
func (b *IndexBuffer) Count() int { return b.count }

// CreateIndexBuffer creates an index buffer. Indices are stored as 16-bit
// values when all of them fit.
func (d *Device) CreateIndexBuffer(bk *book.Book, pool *Pool, indices []uint32) (*IndexBuffer, error) {
	t := backend.IndexUint16
	for _, i := range indices {
		if i > math.MaxUint16 {
			t = backend.IndexUint32
			break
		}
	}
	var data []byte
	for _, i := range indices {
		if t == backend.IndexUint16 {
			data = binary.NativeEndian.AppendUint16(data, uint16(i))
		} else {
			data = binary.NativeEndian.AppendUint32(data, i)
		}
	}
	b, err := d.createBuffer(bk, pool, uint64(len(data)), backend.BufferIndex, hostMemory)
	if err != nil {
		return nil, err
	}
	copy(b.mem.Data, data)
	return &IndexBuffer{Buffer: *b, indexType: t, count: len(indices)}, nil
}

// StorageBuffer is a host-visible buffer shaders read and write.
type StorageBuffer struct {
	Buffer
}

// CreateStorageBuffer creates a zeroed storage buffer of size bytes.
func (d *Device) CreateStorageBuffer(bk *book.Book, pool *Pool, size uint64) (*StorageBuffer, error) {
	b, err := d.createBuffer(bk, pool, size, backend.BufferStorage, hostMemory)
	if err != nil {
		return nil, err
	}
	clear(b.mem.Data)
	return &StorageBuffer{Buffer: *b}, nil
}

// Write copies data into the buffer at offset.
func (b *StorageBuffer) Write(offset uint64, data []byte) error {
	if offset+uint64(len(data)) > b.size {
		return coil.Errorf(coil.Validation, "write storage buffer", "range [%d, %d) exceeds %d bytes", offset, offset+uint64(len(data)), b.size)
	}
	copy(b.mem.Data[offset:], data)
	return nil
}

// Read returns a copy of the buffer contents. Work writing the buffer must
// have completed.
func (b *StorageBuffer) Read() []byte {
	return append([]byte(nil), b.mem.Data[:b.size]...)
}

// Mesh is a vertex buffer with optional indices.
type Mesh struct {
	id       uint64
	vertices *VertexBuffer
	indices  *IndexBuffer
	count    int
}

// NewMesh combines buffers into a mesh drawing count vertices or indices.
func (d *Device) NewMesh(vertices *VertexBuffer, indices *IndexBuffer, count int) *Mesh {
	return &Mesh{id: d.newID(), vertices: vertices, indices: indices, count: count}
}

// CreateMesh creates the buffers of a mesh. With nil indices the mesh draws
// vertexCount vertices.
func (d *Device) CreateMesh(bk *book.Book, pool *Pool, vertices []byte, vertexCount int, indices []uint32) (*Mesh, error) {
	vb, err := d.CreateVertexBuffer(bk, pool, vertices)
	if err != nil {
		return nil, err
	}
	if indices == nil {
		return d.NewMesh(vb, nil, vertexCount), nil
	}
	ib, err := d.CreateIndexBuffer(bk, pool, indices)
	if err != nil {
		return nil, err
	}
	return d.NewMesh(vb, ib, len(indices)), nil
}

// ID returns the creation-ordered id of the mesh.
func (m *Mesh) ID() uint64 { return m.id }

// Vertices returns the vertex buffer.
func (m *Mesh) Vertices() *VertexBuffer { return m.vertices }

// Indices returns the index buffer, nil for non-indexed meshes.
func (m *Mesh) Indices() *IndexBuffer { return m.indices }

// Count returns the number of vertices or indices drawn.
func (m *Mesh) Count() int { return m.count }

// AttachmentView is an image usable as a framebuffer attachment.
type AttachmentView interface {
	ImageView() backend.ImageView
}

// Image is a device image with a view over all its mips and layers.
type Image struct {
	id     uint64
	handle backend.Image
	view   backend.ImageView
	format format.ImageFormat
	native backend.Format
	aspect backend.ImageAspect
	// layout is the layout the image has when sampled.
	layout backend.ImageLayout
}

// ID returns the creation-ordered id of the image.
func (i *Image) ID() uint64 { return i.id }

// Handle returns the backend image.
func (i *Image) Handle() backend.Image { return i.handle }

// ImageView implements AttachmentView.
func (i *Image) ImageView() backend.ImageView { return i.view }

// Format returns the image format.
func (i *Image) Format() format.ImageFormat { return i.format }

func (d *Device) createImage(bk *book.Book, pool *Pool, f format.ImageFormat, usage backend.ImageUsage) (*Image, error) {
	native, err := d.PixelFormat(f.Pixel)
	if err != nil {
		return nil, err
	}
	desc := backend.ImageDesc{
		Dim:       f.Dim(),
		Format:    native,
		Width:     uint32(f.Width),
		Height:    uint32(max(f.Height, 1)),
		Depth:     uint32(max(f.Depth, 1)),
		MipLevels: uint32(max(f.MipLevels, 1)),
		Layers:    uint32(f.Layers()),
		Usage:     usage,
	}
	h, req, err := d.dev.CreateImage(desc)
	if err != nil {
		return nil, coil.Wrap(coil.Resource, "create image", err)
	}
	bk.Defer(func() { d.dev.DestroyImage(h) })
	mem, err := d.AllocateMemory(pool, req, backend.MemoryDeviceLocal)
	if err != nil {
		return nil, err
	}
	if err := d.dev.BindImageMemory(h, mem.Memory, mem.Offset); err != nil {
		return nil, coil.Wrap(coil.Resource, "bind image memory", err)
	}

	aspect := backend.AspectColor
	if native.IsDepthStencil() {
		aspect = backend.AspectDepth
		if native.HasStencil() {
			aspect |= backend.AspectStencil
		}
	}
	view, err := d.dev.CreateImageView(backend.ImageViewDesc{
		Image:     h,
		Format:    native,
		Type:      viewType(f),
		Aspect:    aspect,
		MipLevels: desc.MipLevels,
		Layers:    desc.Layers,
	})
	if err != nil {
		return nil, coil.Wrap(coil.Resource, "create image view", err)
	}
	bk.Defer(func() { d.dev.DestroyImageView(view) })
	return &Image{
		id:     d.newID(),
		handle: h,
		view:   view,
		format: f,
		native: native,
		aspect: aspect,
		layout: backend.LayoutShaderReadOnlyOptimal,
	}, nil
}

func viewType(f format.ImageFormat) backend.ViewType {
	switch f.Dim() {
	case 1:
		if f.Count > 0 {
			return backend.View1DArray
		}
		return backend.View1D
	case 3:
		return backend.View3D
	}
	if f.Count > 0 {
		return backend.View2DArray
	}
	return backend.View2D
}

// CreateImage creates a sampled image. Its contents are uploaded with
// Context.SetTextureData.
func (d *Device) CreateImage(bk *book.Book, pool *Pool, f format.ImageFormat) (*Image, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return d.createImage(bk, pool, f, backend.ImageSampled|backend.ImageTransferDst)
}

// CreateRenderImage creates a 2D color attachment. A sampled render image
// can be bound with Context.BindImage after a pass whose attachment is
// marked Sampled.
func (d *Device) CreateRenderImage(bk *book.Book, pool *Pool, pf format.PixelFormat, width, height int, sampled bool) (*Image, error) {
	usage := backend.ImageColorAttachment | backend.ImageInputAttachment
	if sampled {
		usage |= backend.ImageSampled
	}
	f := format.ImageFormat{Pixel: pf, Width: width, Height: height, MipLevels: 1}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return d.createImage(bk, pool, f, usage)
}

// CreateDepthStencilImage creates a 2D depth-stencil attachment in the
// device's preferred depth-stencil format.
func (d *Device) CreateDepthStencilImage(bk *book.Book, pool *Pool, width, height int, sampled bool) (*Image, error) {
	usage := backend.ImageDepthStencilAttachment | backend.ImageInputAttachment
	if sampled {
		usage |= backend.ImageSampled
	}
	f := format.ImageFormat{Pixel: format.DepthStencil, Width: width, Height: height, MipLevels: 1}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	img, err := d.createImage(bk, pool, f, usage)
	if err != nil {
		return nil, err
	}
	img.layout = backend.LayoutDepthStencilReadOnlyOptimal
	return img, nil
}

// SamplerConfig describes a sampler. Equal configurations share one
// backend sampler.
type SamplerConfig = gputypes.SamplerDescriptor

// Sampler is a device-lifetime sampler.
type Sampler struct {
	handle backend.Sampler
}

// Handle returns the backend sampler.
func (s *Sampler) Handle() backend.Sampler { return s.handle }

// CreateSampler returns a sampler for cfg. Samplers are deduplicated and
// owned by the device.
func (d *Device) CreateSampler(cfg SamplerConfig) (*Sampler, error) {
	if cfg.MaxAnisotropy == 0 {
		cfg.MaxAnisotropy = 1
	}
	h, err := d.samplers.GetOrCreate(cfg, func() (backend.Sampler, error) {
		s, err := d.dev.CreateSampler(cfg)
		if err != nil {
			return 0, coil.Wrap(coil.Resource, "create sampler", err)
		}
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return &Sampler{handle: h}, nil
}
