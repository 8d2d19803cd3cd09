// Package book provides scoped ownership arenas.
//
// A Book owns heterogeneous objects and runs their destructors in reverse
// order of registration when freed. It is the only ownership channel for GPU
// objects: every factory in the gpu package takes the Book that will destroy
// the object it creates.
//
// A Book is not safe for concurrent use.
package book

import (
	"unsafe"
)

// DefaultChunkSize is the size of byte chunks used by AllocateRaw.
const DefaultChunkSize = 4096

// Book is an arena with LIFO destructors and a bump-allocated byte pool.
// The zero value is ready to use.
type Book struct {
	dtors  []func()
	chunks [][]byte
	cursor int
	freed  bool
}

// New returns an empty book.
func New() *Book {
	return &Book{}
}

// Allocate stores v in the book and registers destroy to run when the book
// is freed. The returned pointer stays valid for the book's lifetime.
// destroy may be nil.
func Allocate[T any](b *Book, v T, destroy func(*T)) *T {
	p := new(T)
	*p = v
	if destroy != nil {
		b.Defer(func() { destroy(p) })
	}
	return p
}

// Defer registers fn to run when the book is freed.
func (b *Book) Defer(fn func()) {
	b.freed = false
	b.dtors = append(b.dtors, fn)
}

// Sub creates a child book owned by b. Freeing b frees the child first if
// the child was registered after everything else still pending.
func (b *Book) Sub() *Book {
	child := New()
	b.Defer(child.Free)
	return child
}

// AllocateRaw returns size bytes aligned to align, without a destructor.
// align must be a power of two. The memory is zeroed and never moves.
func (b *Book) AllocateRaw(size, align int) []byte {
	if align <= 0 {
		align = 1
	}
	if align&(align-1) != 0 {
		panic("book: alignment must be a power of two")
	}
	if size+align > DefaultChunkSize {
		// Dedicated chunk; inserted before the current one so the cursor keeps working.
		buf := make([]byte, size+align)
		off := alignOffset(buf, 0, align)
		if n := len(b.chunks); n > 0 {
			b.chunks = append(b.chunks[:n-1], buf, b.chunks[n-1])
		} else {
			b.chunks = append(b.chunks, buf)
			b.cursor = len(buf)
		}
		return buf[off : off+size : off+size]
	}
	if len(b.chunks) > 0 {
		cur := b.chunks[len(b.chunks)-1]
		off := alignOffset(cur, b.cursor, align)
		if off+size <= len(cur) {
			b.cursor = off + size
			return cur[off : off+size : off+size]
		}
	}
	cur := make([]byte, DefaultChunkSize)
	b.chunks = append(b.chunks, cur)
	off := alignOffset(cur, 0, align)
	b.cursor = off + size
	return cur[off : off+size : off+size]
}

// alignOffset returns the smallest offset >= off such that the address of
// buf[offset] is a multiple of align.
func alignOffset(buf []byte, off, align int) int {
	base := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	addr := base + uintptr(off)
	aligned := (addr + uintptr(align-1)) &^ uintptr(align-1)
	return off + int(aligned-addr)
}

// Len returns the number of pending destructors.
func (b *Book) Len() int {
	return len(b.dtors)
}

// Free runs all pending destructors in LIFO order and discards the byte pool.
// A destructor may register new destructors; they run before Free returns.
// The book can be reused afterwards.
func (b *Book) Free() {
	for len(b.dtors) > 0 {
		n := len(b.dtors) - 1
		fn := b.dtors[n]
		b.dtors[n] = nil
		b.dtors = b.dtors[:n]
		fn()
	}
	b.chunks = nil
	b.cursor = 0
	b.freed = true
}

// Freed reports whether Free has run and nothing was registered since.
func (b *Book) Freed() bool {
	return b.freed
}
