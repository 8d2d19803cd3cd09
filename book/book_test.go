package book

import (
	"reflect"
	"testing"
	"unsafe"
)

func TestFreeRunsLIFO(t *testing.T) {
	var order []int
	b := New()
	for i := 1; i <= 5; i++ {
		Allocate(b, i, func(p *int) { order = append(order, *p) })
	}
	if b.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", b.Len())
	}
	b.Free()

	want := []int{5, 4, 3, 2, 1}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("destructor order = %v, want %v", order, want)
	}
	if b.Len() != 0 {
		t.Errorf("Len() after Free = %d, want 0", b.Len())
	}
}

func TestSubBookOrdering(t *testing.T) {
	var order []string
	push := func(s string) func() { return func() { order = append(order, s) } }

	b := New()
	b.Defer(push("a1"))
	sub := b.Sub()
	sub.Defer(push("s1"))
	sub.Defer(push("s2"))
	b.Defer(push("a3"))
	b.Free()

	want := []string{"a3", "s2", "s1", "a1"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("destructor order = %v, want %v", order, want)
	}
}

func TestSubBookFreedEarly(t *testing.T) {
	calls := 0
	b := New()
	sub := b.Sub()
	sub.Defer(func() { calls++ })
	sub.Free()
	b.Free()
	if calls != 1 {
		t.Errorf("sub destructor ran %d times, want 1", calls)
	}
}

func TestFreeIdempotentAndReusable(t *testing.T) {
	calls := 0
	b := New()
	b.Defer(func() { calls++ })
	b.Free()
	b.Free()
	if calls != 1 {
		t.Errorf("destructor ran %d times, want 1", calls)
	}
	if !b.Freed() {
		t.Error("Freed() = false after Free")
	}
	b.Defer(func() { calls++ })
	if b.Freed() {
		t.Error("Freed() = true after new registration")
	}
	b.Free()
	if calls != 2 {
		t.Errorf("destructor ran %d times, want 2", calls)
	}
}

func TestDestructorRegistersDuringFree(t *testing.T) {
	var order []int
	b := New()
	b.Defer(func() { order = append(order, 1) })
	b.Defer(func() {
		order = append(order, 2)
		b.Defer(func() { order = append(order, 3) })
	})
	b.Free()
	want := []int{2, 3, 1}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("destructor order = %v, want %v", order, want)
	}
}

func TestAllocatePointerStable(t *testing.T) {
	type obj struct{ id int }
	b := New()
	ptrs := make([]*obj, 0, 100)
	for i := range 100 {
		ptrs = append(ptrs, Allocate(b, obj{id: i}, nil))
	}
	for i, p := range ptrs {
		if p.id != i {
			t.Fatalf("ptrs[%d].id = %d, want %d", i, p.id, i)
		}
	}
}

func TestAllocateRawAlignment(t *testing.T) {
	tests := []struct {
		size, align int
	}{
		{1, 1}, {3, 4}, {7, 8}, {16, 16}, {100, 64}, {5000, 256}, {1, 1}, {33, 32},
	}
	b := New()
	var prev []byte
	for _, tt := range tests {
		buf := b.AllocateRaw(tt.size, tt.align)
		if len(buf) != tt.size {
			t.Errorf("AllocateRaw(%d, %d) len = %d", tt.size, tt.align, len(buf))
		}
		addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
		if addr%uintptr(tt.align) != 0 {
			t.Errorf("AllocateRaw(%d, %d) address %#x not aligned", tt.size, tt.align, addr)
		}
		for i := range buf {
			buf[i] = 0xAB
		}
		if prev != nil && prev[0] != 0xAB {
			t.Error("previous allocation was overwritten")
		}
		prev = buf
	}
}

func TestAllocateRawBadAlignPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("AllocateRaw with non power of two alignment did not panic")
		}
	}()
	New().AllocateRaw(8, 3)
}
