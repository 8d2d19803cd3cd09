package gpu

import (
	coil "github.com/quyse/coil-core-sub001"
	"github.com/quyse/coil-core-sub001/backend"
	"github.com/quyse/coil-core-sub001/book"
)

// transientUsages are the buffer usages served by a transient allocator.
var transientUsages = [...]backend.BufferUsage{
	backend.BufferVertex,
	backend.BufferIndex,
	backend.BufferUniform,
	backend.BufferTransferSrc,
}

// transientList is the buffers of one usage and the position in them.
type transientList struct {
	usage   backend.BufferUsage
	buffers []*Buffer
	current int
	cursor  uint64
}

// transientAllocator hands out per-frame ranges of host-visible buffers.
// Buffers are created on demand, kept for the lifetime of bk and reused
// after reset.
type transientAllocator struct {
	dev   *Device
	bk    *book.Book
	pool  *Pool
	size  uint64
	lists [len(transientUsages)]transientList
}

func newTransientAllocator(dev *Device, bk *book.Book, pool *Pool, size uint64) *transientAllocator {
	t := &transientAllocator{dev: dev, bk: bk, pool: pool, size: size}
	for i, u := range transientUsages {
		t.lists[i].usage = u
	}
	return t
}

func (t *transientAllocator) list(usage backend.BufferUsage) *transientList {
	for i := range t.lists {
		if t.lists[i].usage == usage {
			return &t.lists[i]
		}
	}
	panic("gpu: no transient buffers for usage")
}

// transientRange is a range of a transient buffer.
type transientRange struct {
	buffer *Buffer
	offset uint64
	data   []byte
}

// allocate returns size bytes aligned to alignment. When the current buffer
// cannot hold the request the next one is used, created if absent.
func (t *transientAllocator) allocate(usage backend.BufferUsage, size, alignment uint64) (transientRange, error) {
	if size > t.size {
		return transientRange{}, coil.Errorf(coil.Validation, "allocate transient buffer", "%d bytes exceed transient buffer size %d", size, t.size)
	}
	l := t.list(usage)
	for {
		if l.current == len(l.buffers) {
			b, err := t.dev.createBuffer(t.bk, t.pool, t.size, usage, hostMemory)
			if err != nil {
				return transientRange{}, err
			}
			l.buffers = append(l.buffers, b)
			if l.current > 0 {
				slogger().Debug("gpu: transient buffers grown", "usage", usage, "buffers", len(l.buffers))
			}
		}
		offset := alignUp(l.cursor, alignment)
		if offset+size <= t.size {
			l.cursor = offset + size
			b := l.buffers[l.current]
			return transientRange{buffer: b, offset: offset, data: b.mem.Data[offset : offset+size : offset+size]}, nil
		}
		l.current++
		l.cursor = 0
	}
}

// reset makes every buffer available again. The device must be done with
// the previous contents.
func (t *transientAllocator) reset() {
	for i := range t.lists {
		t.lists[i].current = 0
		t.lists[i].cursor = 0
	}
}
