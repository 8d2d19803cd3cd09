package rendercache

import (
	"cmp"
	"sync/atomic"
	"unsafe"

	"github.com/quyse/coil-core-sub001/gpu"
)

// Context receives the state applied by knobs. *gpu.Context implements it.
type Context interface {
	BindPipeline(p *gpu.Pipeline) error
	BindMesh(m *gpu.Mesh) error
	BindUniformBuffer(set, slot int, data []byte) error
	BindImage(set, slot int, img *gpu.Image, s *gpu.Sampler) error
	AddInstanceData(slot int, data []byte)
	EndInstance() error
	Flush() error
}

var _ Context = (*gpu.Context)(nil)

// Knob is one piece of render state with its sort key.
type Knob interface {
	Key() Key

	// Apply applies the state unconditionally.
	Apply(ctx Context) error

	// ApplyDiff applies the state after prev was applied and reports
	// whether anything was bound. prev is the previous knob in sort order;
	// knobs of another type are applied in full.
	ApplyDiff(ctx Context, prev Knob) (bool, error)
}

// applyDiff applies k unless prev has the same type and same reports true.
func applyDiff[K Knob](ctx Context, k K, prev Knob, same func(K) bool) (bool, error) {
	if p, ok := prev.(K); ok && same(p) {
		return false, nil
	}
	return true, k.Apply(ctx)
}

// PipelineKnob binds a pipeline.
type PipelineKnob struct {
	Pipeline *gpu.Pipeline
}

func (k PipelineKnob) Key() Key { return Uint(k.Pipeline.ID()) }

func (k PipelineKnob) Apply(ctx Context) error { return ctx.BindPipeline(k.Pipeline) }

func (k PipelineKnob) ApplyDiff(ctx Context, prev Knob) (bool, error) {
	return applyDiff(ctx, k, prev, func(p PipelineKnob) bool { return p.Pipeline == k.Pipeline })
}

// MeshKnob binds a mesh.
type MeshKnob struct {
	Mesh *gpu.Mesh
}

func (k MeshKnob) Key() Key { return Uint(k.Mesh.ID()) }

func (k MeshKnob) Apply(ctx Context) error { return ctx.BindMesh(k.Mesh) }

func (k MeshKnob) ApplyDiff(ctx Context, prev Knob) (bool, error) {
	return applyDiff(ctx, k, prev, func(p MeshKnob) bool { return p.Mesh == k.Mesh })
}

// UniformBufferKnob binds *Data as a uniform buffer. T must be laid out
// the way the shader reads the buffer. The key is the address of Data, and
// its contents are copied only when the knob is applied.
type UniformBufferKnob[T any] struct {
	Set, Slot int
	Data      *T
}

func (k UniformBufferKnob[T]) Key() Key { return Uint(uint64(uintptr(unsafe.Pointer(k.Data)))) }

func (k UniformBufferKnob[T]) Apply(ctx Context) error {
	return ctx.BindUniformBuffer(k.Set, k.Slot, bytesOf(k.Data))
}

func (k UniformBufferKnob[T]) ApplyDiff(ctx Context, prev Knob) (bool, error) {
	return applyDiff(ctx, k, prev, func(p UniformBufferKnob[T]) bool { return p == k })
}

// ImageKnob binds an image with a sampler.
type ImageKnob struct {
	Set, Slot int
	Image     *gpu.Image
	Sampler   *gpu.Sampler
}

func (k ImageKnob) Key() Key {
	return Concat(Uint(k.Image.ID()), Uint(uint64(k.Sampler.Handle())))
}

func (k ImageKnob) Apply(ctx Context) error {
	return ctx.BindImage(k.Set, k.Slot, k.Image, k.Sampler)
}

func (k ImageKnob) ApplyDiff(ctx Context, prev Knob) (bool, error) {
	return applyDiff(ctx, k, prev, func(p ImageKnob) bool {
		return p.Set == k.Set && p.Slot == k.Slot && p.Image == k.Image &&
			p.Sampler.Handle() == k.Sampler.Handle()
	})
}

var instanceSerial atomic.Uint64

// InstanceDataKnob adds per-instance vertex data for one instance. Every
// instance knob is unique and sorts after the ones created before it.
type InstanceDataKnob[T any] struct {
	Slot   int
	Data   T
	serial uint64
}

// NewInstanceData returns a knob adding data to vertex slot.
func NewInstanceData[T any](slot int, data T) InstanceDataKnob[T] {
	return InstanceDataKnob[T]{Slot: slot, Data: data, serial: instanceSerial.Add(1)}
}

func (k InstanceDataKnob[T]) Key() Key { return Uint(k.serial) }

func (k InstanceDataKnob[T]) Apply(ctx Context) error {
	ctx.AddInstanceData(k.Slot, bytesOf(&k.Data))
	return nil
}

// ApplyDiff adds the data and reports no change: instance data does not
// break a batch.
func (k InstanceDataKnob[T]) ApplyDiff(ctx Context, _ Knob) (bool, error) {
	return false, k.Apply(ctx)
}

// OrderKnob only orders; it applies nothing.
type OrderKnob[K cmp.Ordered] struct {
	Value K
}

func (k OrderKnob[K]) Key() Key { return ordered(k.Value) }

func (OrderKnob[K]) Apply(Context) error { return nil }

func (OrderKnob[K]) ApplyDiff(Context, Knob) (bool, error) { return false, nil }

// Tuple combines knobs. Tuples sort lexicographically. Applied after
// another tuple of the same length, fields are diffed left to right and
// every field after the first changed one is applied in full.
type Tuple []Knob

func (t Tuple) Key() Key {
	keys := make([]Key, len(t))
	for i, k := range t {
		keys[i] = k.Key()
	}
	return Concat(keys...)
}

func (t Tuple) Apply(ctx Context) error {
	for _, k := range t {
		if err := k.Apply(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (t Tuple) ApplyDiff(ctx Context, prev Knob) (bool, error) {
	p, ok := prev.(Tuple)
	if !ok || len(p) != len(t) {
		return true, t.Apply(ctx)
	}
	changed := false
	for i, k := range t {
		if changed {
			if err := k.Apply(ctx); err != nil {
				return true, err
			}
			continue
		}
		c, err := k.ApplyDiff(ctx, p[i])
		if err != nil {
			return true, err
		}
		changed = c
	}
	return changed, nil
}

// Variant is one of several knob alternatives identified by Tag. Variants
// sort by tag first, then by the key of the alternative.
type Variant struct {
	Tag  uint32
	Knob Knob
}

func (v Variant) Key() Key { return Concat(Uint(uint64(v.Tag)), v.Knob.Key()) }

func (v Variant) Apply(ctx Context) error { return v.Knob.Apply(ctx) }

func (v Variant) ApplyDiff(ctx Context, prev Knob) (bool, error) {
	if p, ok := prev.(Variant); ok && p.Tag == v.Tag {
		return v.Knob.ApplyDiff(ctx, p.Knob)
	}
	return true, v.Apply(ctx)
}

// bytesOf returns the memory of *p.
func bytesOf[T any](p *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), unsafe.Sizeof(*p))
}
