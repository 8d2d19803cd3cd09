package gpu

import (
	"encoding/binary"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coil "github.com/quyse/coil-core-sub001"
	"github.com/quyse/coil-core-sub001/backend"
	"github.com/quyse/coil-core-sub001/book"
	"github.com/quyse/coil-core-sub001/format"
)

func TestNewDeviceUnknownBackend(t *testing.T) {
	bk := book.New()
	defer bk.Free()
	cfg := DefaultConfig()
	cfg.Backend = "nope"
	_, err := NewDevice(bk, cfg)
	assert.ErrorIs(t, err, coil.ErrValidation)
	assert.ErrorIs(t, err, backend.ErrNotAvailable)
}

func TestDeviceFreedWithBook(t *testing.T) {
	d, rec, bk := newTestDevice(t)
	assert.Equal(t, "Recorder", d.Adapter().Name)
	assert.Equal(t, DefaultChunkSize, int(d.Config().ChunkSize))
	_, err := d.CreateVertexBuffer(bk, d.CreatePool(bk, 0), []byte{1, 2, 3})
	require.NoError(t, err)
	bk.Free()
	assert.True(t, rec.Destroyed())
	assert.Zero(t, rec.Live(""))
}

func TestCreateSamplerDeduplicates(t *testing.T) {
	d, rec, _ := newTestDevice(t)
	linear := SamplerConfig{MagFilter: gputypes.FilterModeLinear, MinFilter: gputypes.FilterModeLinear}
	a, err := d.CreateSampler(linear)
	require.NoError(t, err)
	b, err := d.CreateSampler(linear)
	require.NoError(t, err)
	c, err := d.CreateSampler(SamplerConfig{})
	require.NoError(t, err)
	assert.Equal(t, a.Handle(), b.Handle())
	assert.NotEqual(t, a.Handle(), c.Handle())
	assert.Equal(t, 2, rec.Live("sampler"))
}

func TestCreateIndexBuffer(t *testing.T) {
	d, rec, bk := newTestDevice(t)
	pool := d.CreatePool(bk, 0)

	small, err := d.CreateIndexBuffer(bk, pool, []uint32{0, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, backend.IndexUint16, small.IndexType())
	assert.Equal(t, 3, small.Count())
	assert.EqualValues(t, 6, small.Size())
	assert.Equal(t, uint16(2), binary.NativeEndian.Uint16(rec.BufferData(small.Handle())[4:]))

	large, err := d.CreateIndexBuffer(bk, pool, []uint32{0, 70000})
	require.NoError(t, err)
	assert.Equal(t, backend.IndexUint32, large.IndexType())
	assert.Equal(t, uint32(70000), binary.NativeEndian.Uint32(rec.BufferData(large.Handle())[4:]))
}

func TestCreateMesh(t *testing.T) {
	d, rec, bk := newTestDevice(t)
	pool := d.CreatePool(bk, 0)

	plain, err := d.CreateMesh(bk, pool, make([]byte, 36), 3, nil)
	require.NoError(t, err)
	assert.Nil(t, plain.Indices())
	assert.Equal(t, 3, plain.Count())

	indexed, err := d.CreateMesh(bk, pool, []byte{1, 2, 3, 4}, 1, []uint32{0, 0, 0, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, 6, indexed.Count())
	assert.Greater(t, indexed.ID(), plain.ID())
	assert.Equal(t, []byte{1, 2, 3, 4}, rec.BufferData(indexed.Vertices().Handle()))

	_, err = d.CreateMesh(bk, pool, nil, 0, nil)
	assert.ErrorIs(t, err, coil.ErrValidation)
}

func TestStorageBuffer(t *testing.T) {
	d, _, bk := newTestDevice(t)
	sb, err := d.CreateStorageBuffer(bk, d.CreatePool(bk, 0), 16)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 16), sb.Read())

	require.NoError(t, sb.Write(4, []byte{9, 8}))
	assert.Equal(t, []byte{0, 0, 0, 0, 9, 8}, sb.Read()[:6])
	assert.ErrorIs(t, sb.Write(15, []byte{1, 2}), coil.ErrValidation)

	odd, err := d.CreateStorageBuffer(bk, d.CreatePool(bk, 0), 20)
	require.NoError(t, err)
	assert.Len(t, odd.Read(), 20)
}

func TestCreateImage(t *testing.T) {
	d, rec, bk := newTestDevice(t)
	pool := d.CreatePool(bk, 0)

	img, err := d.CreateImage(bk, pool, format.ImageFormat{Pixel: format.RGBA8SRGB, Width: 32, Height: 16, MipLevels: 3, Count: 4})
	require.NoError(t, err)
	desc, ok := rec.ImageDesc(img.Handle())
	require.True(t, ok)
	assert.Equal(t, backend.FormatR8G8B8A8Srgb, desc.Format)
	assert.EqualValues(t, 3, desc.MipLevels)
	assert.EqualValues(t, 4, desc.Layers)
	assert.Equal(t, backend.ImageSampled|backend.ImageTransferDst, desc.Usage)
	assert.Equal(t, backend.View2DArray, viewType(img.Format()))

	depth, err := d.CreateDepthStencilImage(bk, pool, 8, 8, false)
	require.NoError(t, err)
	assert.Equal(t, backend.AspectDepth|backend.AspectStencil, depth.aspect)
	assert.Equal(t, backend.LayoutDepthStencilReadOnlyOptimal, depth.layout)

	_, err = d.CreateImage(bk, pool, format.ImageFormat{Pixel: format.RGBA8, MipLevels: 1})
	assert.ErrorIs(t, err, coil.ErrValidation)
}
