package cache

// entry is a cached value linked into the recency ring of its cache.
type entry[K comparable, V any] struct {
	key        K
	value      V
	prev, next *entry[K, V]
}

// ring orders entries by recency around a sentinel: root.next is the
// most recently used entry and root.prev the least. Not safe for
// concurrent use.
type ring[K comparable, V any] struct {
	root entry[K, V]
}

func (r *ring[K, V]) init() {
	r.root.next = &r.root
	r.root.prev = &r.root
}

func (r *ring[K, V]) empty() bool {
	return r.root.next == &r.root
}

// pushFront links e as the most recently used entry.
func (r *ring[K, V]) pushFront(e *entry[K, V]) {
	e.prev = &r.root
	e.next = r.root.next
	r.root.next.prev = e
	r.root.next = e
}

// touch marks a linked entry as the most recently used.
func (r *ring[K, V]) touch(e *entry[K, V]) {
	if r.root.next == e {
		return
	}
	r.unlink(e)
	r.pushFront(e)
}

func (r *ring[K, V]) unlink(e *entry[K, V]) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev, e.next = nil, nil
}

// popOldest unlinks and returns the least recently used entry, or nil.
func (r *ring[K, V]) popOldest() *entry[K, V] {
	if r.empty() {
		return nil
	}
	e := r.root.prev
	r.unlink(e)
	return e
}
