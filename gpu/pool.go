package gpu

import (
	"errors"

	coil "github.com/quyse/coil-core-sub001"
	"github.com/quyse/coil-core-sub001/backend"
	"github.com/quyse/coil-core-sub001/book"
)

// Descriptor pool capacities. A pool that runs out is never enlarged;
// another one with the same capacities is created instead.
const (
	DescriptorPoolMaxSets  = 4096
	DescriptorPoolUniforms = 4096
	DescriptorPoolStorage  = 4096
	DescriptorPoolSamplers = 4096
	DescriptorPoolInputs   = 4096
)

// MemoryBlock is a range of device memory returned by a Pool.
type MemoryBlock struct {
	Memory    backend.Memory
	Offset    uint64
	Size      uint64
	TypeIndex int
	// Data is the mapped range for host-visible memory, nil otherwise.
	Data []byte
}

// chunk is the current suballocation chunk of one memory type.
type chunk struct {
	memory backend.Memory
	data   []byte
	size   uint64
	cursor uint64
}

// Pool is a bump allocator over chunks of device memory, plus a descriptor
// pool grown on demand. Memory is never returned to a pool: it is released
// with the book the pool was created in.
//
// A Pool is not safe for concurrent use; use one pool per goroutine that
// creates resources.
type Pool struct {
	dev       *Device
	bk        *book.Book
	chunkSize uint64
	chunks    map[int]*chunk

	descriptorPools []backend.DescriptorPool
	descriptorPool  int
}

// CreatePool creates a pool with the given chunk size; 0 uses the device
// configuration.
func (d *Device) CreatePool(bk *book.Book, chunkSize uint64) *Pool {
	if chunkSize == 0 {
		chunkSize = d.cfg.ChunkSize
	}
	return &Pool{
		dev:       d,
		bk:        bk,
		chunkSize: chunkSize,
		chunks:    make(map[int]*chunk),
	}
}

// ChunkSize returns the pool's chunk size.
func (p *Pool) ChunkSize() uint64 { return p.chunkSize }

// AllocateMemory suballocates size bytes aligned to alignment from memory
// type typeIndex. Requests larger than the chunk size get a dedicated
// allocation at offset 0. For memory types that are not host-coherent the
// cursor is kept aligned to the non-coherent atom size, so flushes of one
// block never touch another.
func (p *Pool) AllocateMemory(typeIndex int, size, alignment uint64) (MemoryBlock, error) {
	if typeIndex < 0 || typeIndex >= len(p.dev.props.MemoryTypes) {
		return MemoryBlock{}, coil.Errorf(coil.Validation, "allocate memory", "memory type %d out of range", typeIndex)
	}
	if size > p.chunkSize {
		c, err := p.allocateChunk(typeIndex, size)
		if err != nil {
			return MemoryBlock{}, err
		}
		slogger().Debug("gpu: dedicated allocation", "type", typeIndex, "size", size)
		return c.block(typeIndex, 0, size), nil
	}

	c := p.chunks[typeIndex]
	var offset uint64
	if c != nil {
		offset = alignUp(c.cursor, alignment)
	}
	if c == nil || offset+size > c.size {
		var err error
		if c, err = p.allocateChunk(typeIndex, p.chunkSize); err != nil {
			return MemoryBlock{}, err
		}
		p.chunks[typeIndex] = c
		offset = 0
	}

	c.cursor = offset + size
	if p.dev.props.MemoryTypes[typeIndex].Flags&backend.MemoryHostCoherent == 0 {
		c.cursor = alignUp(c.cursor, p.dev.props.Limits.NonCoherentAtomSize)
	}
	return c.block(typeIndex, offset, size), nil
}

func (p *Pool) allocateChunk(typeIndex int, size uint64) (*chunk, error) {
	dev := p.dev.dev
	mem, err := dev.AllocateMemory(size, typeIndex)
	if err != nil {
		return nil, coil.Wrap(coil.Resource, "allocate memory", err)
	}
	p.bk.Defer(func() { dev.FreeMemory(mem) })

	c := &chunk{memory: mem, size: size}
	if p.dev.props.MemoryTypes[typeIndex].Flags&backend.MemoryHostVisible != 0 {
		data, err := dev.MapMemory(mem, 0, size)
		if err != nil {
			return nil, coil.Wrap(coil.Resource, "map memory", err)
		}
		p.bk.Defer(func() { dev.UnmapMemory(mem) })
		c.data = data
	}
	return c, nil
}

func (c *chunk) block(typeIndex int, offset, size uint64) MemoryBlock {
	b := MemoryBlock{Memory: c.memory, Offset: offset, Size: size, TypeIndex: typeIndex}
	if c.data != nil {
		b.Data = c.data[offset : offset+size : offset+size]
	}
	return b
}

// AllocateDescriptorSet allocates a set of the given layout. When the
// current descriptor pool is exhausted the next one is used, creating it
// if needed; failing on a fresh pool is a Resource error.
func (p *Pool) AllocateDescriptorSet(layout backend.DescriptorSetLayout) (backend.DescriptorSet, error) {
	dev := p.dev.dev
	for {
		fresh := false
		if p.descriptorPool == len(p.descriptorPools) {
			pool, err := p.createDescriptorPool()
			if err != nil {
				return 0, err
			}
			p.descriptorPools = append(p.descriptorPools, pool)
			fresh = true
		}
		set, err := dev.AllocateDescriptorSet(p.descriptorPools[p.descriptorPool], layout)
		if err == nil {
			return set, nil
		}
		if fresh || !errors.Is(err, backend.ErrOutOfPoolMemory) {
			return 0, coil.Wrap(coil.Resource, "allocate descriptor set", err)
		}
		p.descriptorPool++
	}
}

func (p *Pool) createDescriptorPool() (backend.DescriptorPool, error) {
	dev := p.dev.dev
	pool, err := dev.CreateDescriptorPool(backend.DescriptorPoolDesc{
		MaxSets: DescriptorPoolMaxSets,
		Sizes: []backend.PoolSize{
			{Type: backend.DescriptorUniformBuffer, Count: DescriptorPoolUniforms},
			{Type: backend.DescriptorStorageBuffer, Count: DescriptorPoolStorage},
			{Type: backend.DescriptorCombinedImageSampler, Count: DescriptorPoolSamplers},
			{Type: backend.DescriptorInputAttachment, Count: DescriptorPoolInputs},
		},
	})
	if err != nil {
		return 0, coil.Wrap(coil.Resource, "create descriptor pool", err)
	}
	p.bk.Defer(func() { dev.DestroyDescriptorPool(pool) })
	if n := len(p.descriptorPools); n > 0 {
		slogger().Warn("gpu: descriptor pool exhausted, growing", "pools", n+1)
	}
	return pool, nil
}

// ResetDescriptorSets returns every descriptor set allocated from the pool.
// Sets must no longer be in use by the device.
func (p *Pool) ResetDescriptorSets() error {
	for _, pool := range p.descriptorPools {
		if err := p.dev.dev.ResetDescriptorPool(pool); err != nil {
			return coil.Wrap(coil.Resource, "reset descriptor pool", err)
		}
	}
	p.descriptorPool = 0
	return nil
}

// DescriptorPools returns the number of descriptor pools created so far.
func (p *Pool) DescriptorPools() int { return len(p.descriptorPools) }

func alignUp(v, a uint64) uint64 {
	if a <= 1 {
		return v
	}
	return (v + a - 1) / a * a
}
