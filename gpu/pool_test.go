package gpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coil "github.com/quyse/coil-core-sub001"
	"github.com/quyse/coil-core-sub001/backend"
	"github.com/quyse/coil-core-sub001/backend/recorder"
)

func TestPoolAlignment(t *testing.T) {
	d, _, bk := newTestDevice(t)
	pool := d.CreatePool(bk, 4096)

	tests := []struct {
		name      string
		typeIndex int
		coherent  bool
	}{
		{"coherent", recorder.MemoryTypeHostCoherent, true},
		{"non-coherent", recorder.MemoryTypeHostCached, false},
	}
	requests := []struct{ size, align uint64 }{
		{10, 4}, {100, 256}, {3, 1}, {64, 64}, {200, 16}, {1000, 512}, {7, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, r := range requests {
				b, err := pool.AllocateMemory(tt.typeIndex, r.size, r.align)
				require.NoError(t, err)
				assert.Zero(t, b.Offset%r.align, "offset %d for alignment %d", b.Offset, r.align)
				assert.Len(t, b.Data, int(r.size))
				if !tt.coherent {
					c := pool.chunks[tt.typeIndex]
					assert.Zero(t, c.cursor%recorder.NonCoherentAtomSize, "cursor %d after %d bytes", c.cursor, r.size)
				}
			}
		})
	}
}

func TestPoolChunks(t *testing.T) {
	d, rec, bk := newTestDevice(t)
	pool := d.CreatePool(bk, 1024)

	a, err := pool.AllocateMemory(recorder.MemoryTypeDeviceLocal, 600, 16)
	require.NoError(t, err)
	b, err := pool.AllocateMemory(recorder.MemoryTypeDeviceLocal, 600, 16)
	require.NoError(t, err)
	assert.NotEqual(t, a.Memory, b.Memory, "overflowing request starts a new chunk")
	assert.Zero(t, b.Offset)
	assert.Nil(t, a.Data, "device-local memory is not mapped")

	c, err := pool.AllocateMemory(recorder.MemoryTypeDeviceLocal, 100, 16)
	require.NoError(t, err)
	assert.Equal(t, b.Memory, c.Memory)
	assert.EqualValues(t, 640, c.Offset, "non-coherent cursor rounds up to the atom size")

	dedicated, err := pool.AllocateMemory(recorder.MemoryTypeDeviceLocal, 5000, 16)
	require.NoError(t, err)
	assert.Zero(t, dedicated.Offset)
	assert.EqualValues(t, 5000, dedicated.Size)
	next, err := pool.AllocateMemory(recorder.MemoryTypeDeviceLocal, 16, 16)
	require.NoError(t, err)
	assert.Equal(t, c.Memory, next.Memory, "dedicated blocks leave the current chunk alone")

	assert.Equal(t, 3, rec.Live("memory"))
	_, err = pool.AllocateMemory(7, 16, 16)
	assert.ErrorIs(t, err, coil.ErrValidation)
}

func TestDeviceAllocateMemoryType(t *testing.T) {
	d, _, bk := newTestDevice(t)
	pool := d.CreatePool(bk, 0)
	assert.EqualValues(t, DefaultChunkSize, pool.ChunkSize())

	req := backend.MemoryRequirements{Size: 64, Alignment: 64, TypeBits: 0b111}
	b, err := d.AllocateMemory(pool, req, backend.MemoryHostVisible|backend.MemoryHostCoherent)
	require.NoError(t, err)
	assert.Equal(t, recorder.MemoryTypeHostCoherent, b.TypeIndex)

	b, err = d.AllocateMemory(pool, req, backend.MemoryHostCached)
	require.NoError(t, err)
	assert.Equal(t, recorder.MemoryTypeHostCached, b.TypeIndex)

	req.TypeBits = 1 << recorder.MemoryTypeDeviceLocal
	_, err = d.AllocateMemory(pool, req, backend.MemoryHostVisible)
	assert.ErrorIs(t, err, coil.ErrResource)
}

// Allocating more descriptor sets than one pool holds creates more pools.
func TestDescriptorPoolOverflow(t *testing.T) {
	d, rec, bk := newTestDevice(t)
	rec.SetPoolCapacity(3)
	pool := d.CreatePool(bk, 0)
	layout, err := d.dev.CreateDescriptorSetLayout(backend.SetLayoutDesc{Bindings: []backend.LayoutBinding{
		{Slot: 0, Type: backend.DescriptorUniformBuffer, Count: 1},
	}})
	require.NoError(t, err)
	bk.Defer(func() { d.dev.DestroyDescriptorSetLayout(layout) })

	seen := make(map[backend.DescriptorSet]bool)
	for range 10 {
		set, err := pool.AllocateDescriptorSet(layout)
		require.NoError(t, err)
		assert.False(t, seen[set])
		seen[set] = true
	}
	assert.Equal(t, 4, pool.DescriptorPools())
	assert.Len(t, rec.EventsOf(recorder.EvCreateDescriptorPool), 4)

	require.NoError(t, pool.ResetDescriptorSets())
	for range 3 {
		_, err := pool.AllocateDescriptorSet(layout)
		require.NoError(t, err)
	}
	assert.Equal(t, 4, pool.DescriptorPools(), "reset pools are reused")
}

func TestDescriptorSetTooLarge(t *testing.T) {
	d, _, bk := newTestDevice(t)
	pool := d.CreatePool(bk, 0)
	layout, err := d.dev.CreateDescriptorSetLayout(backend.SetLayoutDesc{Bindings: []backend.LayoutBinding{
		{Slot: 0, Type: backend.DescriptorStorageBuffer, Count: DescriptorPoolStorage + 1},
	}})
	require.NoError(t, err)
	bk.Defer(func() { d.dev.DestroyDescriptorSetLayout(layout) })

	_, err = pool.AllocateDescriptorSet(layout)
	assert.ErrorIs(t, err, coil.ErrResource)
	assert.ErrorIs(t, err, backend.ErrOutOfPoolMemory)
	assert.Equal(t, 1, pool.DescriptorPools())
}
