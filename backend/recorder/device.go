package recorder

import (
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"

	coil "github.com/quyse/coil-core-sub001"
	"github.com/quyse/coil-core-sub001/backend"
)

// Memory type indices exposed by the recording device.
const (
	MemoryTypeDeviceLocal = iota
	MemoryTypeHostCoherent
	MemoryTypeHostCached
)

// Limits reported by the recording device.
const (
	UniformAlignment    = 256
	NonCoherentAtomSize = 64
)

type bufferState struct {
	desc   backend.BufferDesc
	mem    backend.Memory
	offset uint64
}

type fenceState struct {
	signaled bool
	pending  []*CommandBuffer
}

type poolState struct {
	desc backend.DescriptorPoolDesc
	sets []backend.DescriptorSet
	used map[backend.DescriptorType]int
}

type swapchainState struct {
	state    backend.SwapchainState
	next     int
	acquired map[int]bool
}

type result struct {
	suboptimal bool
	err        error
}

// Device records every call and checks queue synchronization. Submitted
// work completes immediately; completion becomes visible to the host only
// through WaitFence or WaitIdle, which is what the checks rely on.
type Device struct {
	mu    sync.Mutex
	props backend.Properties
	next  uint64

	objects    map[uint64]string
	memory     map[backend.Memory][]byte
	buffers    map[backend.Buffer]*bufferState
	images     map[backend.Image]backend.ImageDesc
	passes     map[backend.RenderPass]backend.RenderPassDesc
	pipelines  map[backend.Pipeline]any
	setLayouts map[backend.DescriptorSetLayout]backend.SetLayoutDesc
	pools      map[backend.DescriptorPool]*poolState
	fences     map[backend.Fence]*fenceState
	semaphores map[backend.Semaphore]bool
	swapchains map[backend.Swapchain]*swapchainState
	commands   map[uint64]*CommandBuffer

	events     []Event
	violations []string

	poolCapacity   int
	acquireResults []result
	presentResults []result
	submitErrors   []error
	destroyed      bool
}

// NewDevice creates a recording device.
func NewDevice() *Device {
	return &Device{
		props: backend.Properties{
			Adapter: gpucontext.AdapterInfo{Name: "Recorder", Type: gpucontext.AdapterTypeSoftware},
			Limits: backend.Limits{
				MinUniformBufferOffsetAlignment: UniformAlignment,
				MinStorageBufferOffsetAlignment: UniformAlignment,
				NonCoherentAtomSize:             NonCoherentAtomSize,
				MaxImageDimension2D:             16384,
			},
			MemoryTypes: []backend.MemoryType{
				MemoryTypeDeviceLocal:  {Flags: backend.MemoryDeviceLocal},
				MemoryTypeHostCoherent: {Flags: backend.MemoryHostVisible | backend.MemoryHostCoherent, Heap: 1},
				MemoryTypeHostCached:   {Flags: backend.MemoryHostVisible | backend.MemoryHostCached, Heap: 1},
			},
			DepthStencilFormat: backend.FormatD24UnormS8Uint,
		},
		objects:    make(map[uint64]string),
		memory:     make(map[backend.Memory][]byte),
		buffers:    make(map[backend.Buffer]*bufferState),
		images:     make(map[backend.Image]backend.ImageDesc),
		passes:     make(map[backend.RenderPass]backend.RenderPassDesc),
		pipelines:  make(map[backend.Pipeline]any),
		setLayouts: make(map[backend.DescriptorSetLayout]backend.SetLayoutDesc),
		pools:      make(map[backend.DescriptorPool]*poolState),
		fences:     make(map[backend.Fence]*fenceState),
		semaphores: make(map[backend.Semaphore]bool),
		swapchains: make(map[backend.Swapchain]*swapchainState),
		commands:   make(map[uint64]*CommandBuffer),
	}
}

// SetPoolCapacity limits every descriptor pool to n sets. Zero removes the limit.
func (d *Device) SetPoolCapacity(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.poolCapacity = n
}

// QueueAcquireResult makes a future AcquireNextImage report suboptimal
// or fail with err. Results are consumed in order.
func (d *Device) QueueAcquireResult(suboptimal bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.acquireResults = append(d.acquireResults, result{suboptimal, err})
}

// QueuePresentResult makes a future Present report suboptimal or fail with err.
func (d *Device) QueuePresentResult(suboptimal bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.presentResults = append(d.presentResults, result{suboptimal, err})
}

// QueueSubmitError makes a future Submit fail with err before it has any
// effect. Errors are consumed in order.
func (d *Device) QueueSubmitError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.submitErrors = append(d.submitErrors, err)
}

// Events returns a copy of the device log.
func (d *Device) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Event(nil), d.events...)
}

// EventsOf returns the logged events of type t.
func (d *Device) EventsOf(t EventType) []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var r []Event
	for _, e := range d.events {
		if e.Type == t {
			r = append(r, e)
		}
	}
	return r
}

// Violations returns the synchronization and lifetime errors detected so far.
func (d *Device) Violations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.violations...)
}

// Live returns the number of live objects of the given kind, or of every
// kind when kind is empty.
func (d *Device) Live(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, k := range d.objects {
		if kind == "" || k == kind {
			n++
		}
	}
	return n
}

// RenderPass returns the description a render pass was created with.
func (d *Device) RenderPass(p backend.RenderPass) (backend.RenderPassDesc, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	desc, ok := d.passes[p]
	return desc, ok
}

// GraphicsPipeline returns the description a graphics pipeline was created with.
func (d *Device) GraphicsPipeline(p backend.Pipeline) (backend.GraphicsPipelineDesc, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	desc, ok := d.pipelines[p].(backend.GraphicsPipelineDesc)
	return desc, ok
}

// SetLayout returns the description a descriptor set layout was created with.
func (d *Device) SetLayout(l backend.DescriptorSetLayout) (backend.SetLayoutDesc, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	desc, ok := d.setLayouts[l]
	return desc, ok
}

// ImageDesc returns the description an image was created with.
func (d *Device) ImageDesc(i backend.Image) (backend.ImageDesc, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	desc, ok := d.images[i]
	return desc, ok
}

// BufferData returns the memory bound to b, or nil.
func (d *Device) BufferData(b backend.Buffer) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.buffers[b]
	if !ok || s.mem == 0 {
		return nil
	}
	m := d.memory[s.mem]
	return m[s.offset : s.offset+s.desc.Size]
}

// DescriptorPools returns the number of live descriptor pools.
func (d *Device) DescriptorPools() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pools)
}

func (d *Device) violate(format string, args ...any) {
	d.violations = append(d.violations, fmt.Sprintf(format, args...))
}

func (d *Device) create(kind string) uint64 {
	d.next++
	d.objects[d.next] = kind
	return d.next
}

func (d *Device) destroy(h uint64, kind string) bool {
	if h == 0 {
		return false
	}
	if k, ok := d.objects[h]; !ok || k != kind {
		d.violate("destroy %s %d: not a live %s", kind, h, kind)
		return false
	}
	delete(d.objects, h)
	return true
}

func (d *Device) log(e Event) {
	d.events = append(d.events, e)
}

// Properties implements backend.Device.
func (d *Device) Properties() backend.Properties {
	return d.props
}

// WaitIdle implements backend.Device.
func (d *Device) WaitIdle() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.log(Event{Type: EvWaitIdle})
	for _, f := range d.fences {
		d.complete(f)
	}
	for _, cb := range d.commands {
		if cb.state == statePending {
			cb.state = stateExecutable
		}
	}
	return nil
}

// Destroy implements backend.Device. Live objects left at this point are
// reported as violations.
func (d *Device) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.objects) > 0 {
		kinds := make(map[string]int)
		for _, k := range d.objects {
			kinds[k]++
		}
		d.violate("device destroyed with live objects: %v", kinds)
	}
	d.destroyed = true
}

// Destroyed reports whether Destroy was called.
func (d *Device) Destroyed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.destroyed
}

// AllocateMemory implements backend.Device.
func (d *Device) AllocateMemory(size uint64, typeIndex int) (backend.Memory, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if typeIndex < 0 || typeIndex >= len(d.props.MemoryTypes) {
		return 0, coil.Errorf(coil.Validation, "allocate memory", "memory type %d out of range", typeIndex)
	}
	m := backend.Memory(d.create("memory"))
	d.memory[m] = make([]byte, size)
	return m, nil
}

// FreeMemory implements backend.Device.
func (d *Device) FreeMemory(m backend.Memory) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroy(uint64(m), "memory") {
		delete(d.memory, m)
	}
}

// MapMemory implements backend.Device.
func (d *Device) MapMemory(m backend.Memory, offset, size uint64) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	data, ok := d.memory[m]
	if !ok {
		return nil, coil.Errorf(coil.Validation, "map memory", "unknown memory %d", m)
	}
	if offset+size > uint64(len(data)) {
		return nil, coil.Errorf(coil.Validation, "map memory", "range [%d, %d) exceeds %d bytes", offset, offset+size, len(data))
	}
	return data[offset : offset+size : offset+size], nil
}

// UnmapMemory implements backend.Device.
func (d *Device) UnmapMemory(backend.Memory) {}

// FlushMemory implements backend.Device.
func (d *Device) FlushMemory(m backend.Memory, offset, size uint64) error {
	return d.checkAtom("flush memory", offset, size)
}

// InvalidateMemory implements backend.Device.
func (d *Device) InvalidateMemory(m backend.Memory, offset, size uint64) error {
	return d.checkAtom("invalidate memory", offset, size)
}

func (d *Device) checkAtom(op string, offset, size uint64) error {
	if offset%NonCoherentAtomSize != 0 {
		return coil.Errorf(coil.Validation, op, "offset %d not a multiple of %d", offset, NonCoherentAtomSize)
	}
	return nil
}

// CreateBuffer implements backend.Device.
func (d *Device) CreateBuffer(desc backend.BufferDesc) (backend.Buffer, backend.MemoryRequirements, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if desc.Size == 0 {
		return 0, backend.MemoryRequirements{}, coil.Errorf(coil.Validation, "create buffer", "zero size")
	}
	b := backend.Buffer(d.create("buffer"))
	d.buffers[b] = &bufferState{desc: desc}
	align := uint64(16)
	if desc.Usage&(backend.BufferUniform|backend.BufferStorage) != 0 {
		align = UniformAlignment
	}
	return b, backend.MemoryRequirements{Size: alignUp(desc.Size, align), Alignment: align, TypeBits: 0b111}, nil
}

// BindBufferMemory implements backend.Device.
func (d *Device) BindBufferMemory(b backend.Buffer, m backend.Memory, offset uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.buffers[b]
	if !ok {
		return coil.Errorf(coil.Validation, "bind buffer memory", "unknown buffer %d", b)
	}
	if offset+s.desc.Size > uint64(len(d.memory[m])) {
		return coil.Errorf(coil.Validation, "bind buffer memory", "buffer does not fit memory %d at %d", m, offset)
	}
	s.mem, s.offset = m, offset
	return nil
}

// DestroyBuffer implements backend.Device.
func (d *Device) DestroyBuffer(b backend.Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroy(uint64(b), "buffer") {
		delete(d.buffers, b)
	}
}

// CreateImage implements backend.Device.
func (d *Device) CreateImage(desc backend.ImageDesc) (backend.Image, backend.MemoryRequirements, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if desc.Width == 0 || desc.Height == 0 || desc.Depth == 0 || desc.MipLevels == 0 || desc.Layers == 0 {
		return 0, backend.MemoryRequirements{}, coil.Errorf(coil.Validation, "create image", "empty extent %+v", desc)
	}
	i := backend.Image(d.create("image"))
	d.images[i] = desc
	size := uint64(desc.Width) * uint64(desc.Height) * uint64(desc.Depth) * uint64(desc.Layers) * 16 * 2
	return i, backend.MemoryRequirements{Size: size, Alignment: 1024, TypeBits: 1 << MemoryTypeDeviceLocal}, nil
}

// BindImageMemory implements backend.Device.
func (d *Device) BindImageMemory(i backend.Image, m backend.Memory, offset uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.images[i]; !ok {
		return coil.Errorf(coil.Validation, "bind image memory", "unknown image %d", i)
	}
	if _, ok := d.memory[m]; !ok {
		return coil.Errorf(coil.Validation, "bind image memory", "unknown memory %d", m)
	}
	return nil
}

// DestroyImage implements backend.Device.
func (d *Device) DestroyImage(i backend.Image) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroy(uint64(i), "image") {
		delete(d.images, i)
	}
}

// CreateImageView implements backend.Device.
func (d *Device) CreateImageView(desc backend.ImageViewDesc) (backend.ImageView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.objects[uint64(desc.Image)]; !ok {
		return 0, coil.Errorf(coil.Validation, "create image view", "unknown image %d", desc.Image)
	}
	return backend.ImageView(d.create("image view")), nil
}

// DestroyImageView implements backend.Device.
func (d *Device) DestroyImageView(v backend.ImageView) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(uint64(v), "image view")
}

// CreateSampler implements backend.Device.
func (d *Device) CreateSampler(backend.SamplerDesc) (backend.Sampler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return backend.Sampler(d.create("sampler")), nil
}

// DestroySampler implements backend.Device.
func (d *Device) DestroySampler(s backend.Sampler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(uint64(s), "sampler")
}

// CreateRenderPass implements backend.Device.
func (d *Device) CreateRenderPass(desc backend.RenderPassDesc) (backend.RenderPass, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, a := range desc.Attachments {
		if a.Final == backend.LayoutUndefined {
			return 0, coil.Errorf(coil.Validation, "create render pass", "attachment %d has undefined final layout", i)
		}
	}
	p := backend.RenderPass(d.create("render pass"))
	d.passes[p] = desc
	return p, nil
}

// DestroyRenderPass implements backend.Device.
func (d *Device) DestroyRenderPass(p backend.RenderPass) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroy(uint64(p), "render pass") {
		delete(d.passes, p)
	}
}

// CreateFramebuffer implements backend.Device.
func (d *Device) CreateFramebuffer(desc backend.FramebufferDesc) (backend.Framebuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	pass, ok := d.passes[desc.Pass]
	if !ok {
		return 0, coil.Errorf(coil.Validation, "create framebuffer", "unknown render pass %d", desc.Pass)
	}
	if len(desc.Views) != len(pass.Attachments) {
		return 0, coil.Errorf(coil.Validation, "create framebuffer", "%d views for %d attachments", len(desc.Views), len(pass.Attachments))
	}
	return backend.Framebuffer(d.create("framebuffer")), nil
}

// DestroyFramebuffer implements backend.Device.
func (d *Device) DestroyFramebuffer(f backend.Framebuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(uint64(f), "framebuffer")
}

// CreateShaderModule implements backend.Device.
func (d *Device) CreateShaderModule(code []uint32) (backend.ShaderModule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(code) < 5 || code[0] != 0x07230203 {
		return 0, coil.Errorf(coil.Validation, "create shader module", "not a SPIR-V module")
	}
	return backend.ShaderModule(d.create("shader module")), nil
}

// DestroyShaderModule implements backend.Device.
func (d *Device) DestroyShaderModule(m backend.ShaderModule) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(uint64(m), "shader module")
}

// CreateDescriptorSetLayout implements backend.Device.
func (d *Device) CreateDescriptorSetLayout(desc backend.SetLayoutDesc) (backend.DescriptorSetLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	l := backend.DescriptorSetLayout(d.create("descriptor set layout"))
	d.setLayouts[l] = desc
	return l, nil
}

// DestroyDescriptorSetLayout implements backend.Device.
func (d *Device) DestroyDescriptorSetLayout(l backend.DescriptorSetLayout) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroy(uint64(l), "descriptor set layout") {
		delete(d.setLayouts, l)
	}
}

// CreatePipelineLayout implements backend.Device.
func (d *Device) CreatePipelineLayout(sets []backend.DescriptorSetLayout) (backend.PipelineLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range sets {
		if _, ok := d.setLayouts[s]; !ok {
			return 0, coil.Errorf(coil.Validation, "create pipeline layout", "unknown set layout %d", s)
		}
	}
	return backend.PipelineLayout(d.create("pipeline layout")), nil
}

// DestroyPipelineLayout implements backend.Device.
func (d *Device) DestroyPipelineLayout(l backend.PipelineLayout) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(uint64(l), "pipeline layout")
}

// CreateGraphicsPipeline implements backend.Device.
func (d *Device) CreateGraphicsPipeline(desc backend.GraphicsPipelineDesc) (backend.Pipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	pass, ok := d.passes[desc.Pass]
	if !ok {
		return 0, coil.Errorf(coil.Validation, "create graphics pipeline", "unknown render pass %d", desc.Pass)
	}
	if desc.Subpass < 0 || desc.Subpass >= len(pass.Subpasses) {
		return 0, coil.Errorf(coil.Validation, "create graphics pipeline", "subpass %d out of range", desc.Subpass)
	}
	if n := len(pass.Subpasses[desc.Subpass].Colors); len(desc.Blends) != n {
		return 0, coil.Errorf(coil.Validation, "create graphics pipeline", "%d blend states for %d color attachments", len(desc.Blends), n)
	}
	p := backend.Pipeline(d.create("pipeline"))
	d.pipelines[p] = desc
	return p, nil
}

// CreateComputePipeline implements backend.Device.
func (d *Device) CreateComputePipeline(desc backend.ComputePipelineDesc) (backend.Pipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if desc.Stage.Module == 0 {
		return 0, coil.Errorf(coil.Validation, "create compute pipeline", "no shader module")
	}
	p := backend.Pipeline(d.create("pipeline"))
	d.pipelines[p] = desc
	return p, nil
}

// DestroyPipeline implements backend.Device.
func (d *Device) DestroyPipeline(p backend.Pipeline) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroy(uint64(p), "pipeline") {
		delete(d.pipelines, p)
	}
}

// CreateDescriptorPool implements backend.Device.
func (d *Device) CreateDescriptorPool(desc backend.DescriptorPoolDesc) (backend.DescriptorPool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := backend.DescriptorPool(d.create("descriptor pool"))
	d.pools[p] = &poolState{desc: desc, used: make(map[backend.DescriptorType]int)}
	d.log(Event{Type: EvCreateDescriptorPool, Object: uint64(p)})
	return p, nil
}

// ResetDescriptorPool implements backend.Device.
func (d *Device) ResetDescriptorPool(p backend.DescriptorPool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.pools[p]
	if !ok {
		return coil.Errorf(coil.Validation, "reset descriptor pool", "unknown pool %d", p)
	}
	d.resetPool(s)
	d.log(Event{Type: EvResetDescriptorPool, Object: uint64(p)})
	return nil
}

func (d *Device) resetPool(s *poolState) {
	for _, set := range s.sets {
		delete(d.objects, uint64(set))
	}
	s.sets = nil
	clear(s.used)
}

// DestroyDescriptorPool implements backend.Device.
func (d *Device) DestroyDescriptorPool(p backend.DescriptorPool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.pools[p]; ok {
		d.resetPool(s)
		delete(d.pools, p)
	}
	d.destroy(uint64(p), "descriptor pool")
}

// AllocateDescriptorSet implements backend.Device.
func (d *Device) AllocateDescriptorSet(p backend.DescriptorPool, layout backend.DescriptorSetLayout) (backend.DescriptorSet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.pools[p]
	if !ok {
		return 0, coil.Errorf(coil.Validation, "allocate descriptor set", "unknown pool %d", p)
	}
	l, ok := d.setLayouts[layout]
	if !ok {
		return 0, coil.Errorf(coil.Validation, "allocate descriptor set", "unknown layout %d", layout)
	}
	maxSets := s.desc.MaxSets
	if d.poolCapacity > 0 {
		maxSets = min(maxSets, d.poolCapacity)
	}
	if len(s.sets) >= maxSets {
		return 0, coil.Wrap(coil.Resource, "allocate descriptor set", backend.ErrOutOfPoolMemory)
	}
	need := make(map[backend.DescriptorType]int)
	for _, b := range l.Bindings {
		need[b.Type] += b.Count
	}
	for t, n := range need {
		capacity := 0
		for _, size := range s.desc.Sizes {
			if size.Type == t {
				capacity += size.Count
			}
		}
		if s.used[t]+n > capacity {
			return 0, coil.Wrap(coil.Resource, "allocate descriptor set", backend.ErrOutOfPoolMemory)
		}
	}
	for t, n := range need {
		s.used[t] += n
	}
	set := backend.DescriptorSet(d.create("descriptor set"))
	s.sets = append(s.sets, set)
	return set, nil
}

// UpdateDescriptorSets implements backend.Device.
func (d *Device) UpdateDescriptorSets(writes []backend.DescriptorWrite) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, w := range writes {
		if k := d.objects[uint64(w.Set)]; k != "descriptor set" {
			d.violate("update descriptor set %d: not a live descriptor set", w.Set)
		}
	}
	d.log(Event{Type: EvUpdateDescriptorSets, Index: len(writes)})
}

// AllocateCommandBuffer implements backend.Device.
func (d *Device) AllocateCommandBuffer() (backend.CommandBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cb := &CommandBuffer{dev: d, id: d.create("command buffer")}
	d.commands[cb.id] = cb
	return cb, nil
}

// FreeCommandBuffer implements backend.Device.
func (d *Device) FreeCommandBuffer(c backend.CommandBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cb, ok := c.(*CommandBuffer)
	if !ok {
		d.violate("free foreign command buffer %T", c)
		return
	}
	if cb.state == statePending {
		d.violate("free command buffer %d while pending", cb.id)
	}
	if d.destroy(cb.id, "command buffer") {
		delete(d.commands, cb.id)
	}
}

// CommandBuffers returns the live command buffers.
func (d *Device) CommandBuffers() []*CommandBuffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := make([]*CommandBuffer, 0, len(d.commands))
	for _, cb := range d.commands {
		r = append(r, cb)
	}
	return r
}

// CreateFence implements backend.Device.
func (d *Device) CreateFence(signaled bool) (backend.Fence, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f := backend.Fence(d.create("fence"))
	d.fences[f] = &fenceState{signaled: signaled}
	return f, nil
}

// complete makes the work guarded by f visible to the host.
func (d *Device) complete(f *fenceState) {
	for _, cb := range f.pending {
		if cb.state == statePending {
			cb.state = stateExecutable
		}
	}
	f.pending = nil
}

// WaitFence implements backend.Device. Waiting on a fence that was never
// signaled nor submitted would block forever and is reported.
func (d *Device) WaitFence(f backend.Fence) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.fences[f]
	if !ok {
		return coil.Errorf(coil.Validation, "wait fence", "unknown fence %d", f)
	}
	d.log(Event{Type: EvWaitFence, Object: uint64(f)})
	if !s.signaled {
		d.violate("wait on fence %d that will never be signaled", f)
		return coil.Errorf(coil.DeviceLost, "wait fence", "fence %d never signaled", f)
	}
	d.complete(s)
	return nil
}

// ResetFence implements backend.Device.
func (d *Device) ResetFence(f backend.Fence) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.fences[f]
	if !ok {
		return coil.Errorf(coil.Validation, "reset fence", "unknown fence %d", f)
	}
	d.log(Event{Type: EvResetFence, Object: uint64(f)})
	if len(s.pending) > 0 {
		d.violate("reset fence %d before waiting for its work", f)
	}
	s.signaled = false
	return nil
}

// DestroyFence implements backend.Device.
func (d *Device) DestroyFence(f backend.Fence) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroy(uint64(f), "fence") {
		delete(d.fences, f)
	}
}

// CreateSemaphore implements backend.Device.
func (d *Device) CreateSemaphore() (backend.Semaphore, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := backend.Semaphore(d.create("semaphore"))
	d.semaphores[s] = false
	return s, nil
}

// DestroySemaphore implements backend.Device.
func (d *Device) DestroySemaphore(s backend.Semaphore) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroy(uint64(s), "semaphore") {
		delete(d.semaphores, s)
	}
}

// Submit implements backend.Device.
func (d *Device) Submit(info backend.SubmitInfo) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.submitErrors) > 0 {
		err := d.submitErrors[0]
		d.submitErrors = d.submitErrors[1:]
		return err
	}
	if len(info.Wait) != len(info.WaitStages) {
		return coil.Errorf(coil.Validation, "submit", "%d wait semaphores with %d stages", len(info.Wait), len(info.WaitStages))
	}
	sub := &Submission{
		Wait:       append([]backend.Semaphore(nil), info.Wait...),
		WaitStages: append([]backend.PipelineStage(nil), info.WaitStages...),
		Signal:     append([]backend.Semaphore(nil), info.Signal...),
		Fence:      info.Fence,
	}
	var cbs []*CommandBuffer
	for _, c := range info.Commands {
		cb, ok := c.(*CommandBuffer)
		if !ok {
			return coil.Errorf(coil.Validation, "submit", "foreign command buffer %T", c)
		}
		if cb.state != stateExecutable {
			d.violate("submit command buffer %d in state %v", cb.id, cb.state)
		}
		cbs = append(cbs, cb)
		sub.Buffers = append(sub.Buffers, cb.id)
		sub.Commands = append(sub.Commands, append([]Command(nil), cb.cmds...))
	}
	for _, s := range info.Wait {
		if !d.semaphores[s] {
			d.violate("submit waits on semaphore %d that is not signaled", s)
		}
		d.semaphores[s] = false
	}
	for _, s := range info.Signal {
		if d.semaphores[s] {
			d.violate("submit signals semaphore %d that is already signaled", s)
		}
		d.semaphores[s] = true
	}
	for _, cb := range cbs {
		cb.state = statePending
	}
	if info.Fence != 0 {
		f, ok := d.fences[info.Fence]
		if !ok {
			return coil.Errorf(coil.Validation, "submit", "unknown fence %d", info.Fence)
		}
		if f.signaled {
			d.violate("submit with fence %d still signaled", info.Fence)
		}
		f.signaled = true
		f.pending = append(f.pending, cbs...)
	}
	d.log(Event{Type: EvSubmit, Object: uint64(info.Fence), Submit: sub})
	return nil
}

// CreateSwapchain implements backend.Device.
func (d *Device) CreateSwapchain(desc backend.SwapchainDesc) (backend.SwapchainState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if desc.Surface == 0 {
		return backend.SwapchainState{}, coil.Errorf(coil.Validation, "create swapchain", "no surface")
	}
	n := max(desc.MinImages, 2)
	sc := backend.Swapchain(d.create("swapchain"))
	state := backend.SwapchainState{
		Swapchain: sc,
		Format:    backend.FormatB8G8R8A8Unorm,
		Width:     desc.Width,
		Height:    desc.Height,
	}
	for range n {
		img := backend.Image(d.create("swapchain image"))
		d.images[img] = backend.ImageDesc{
			Format: state.Format, Width: desc.Width, Height: desc.Height,
			Depth: 1, MipLevels: 1, Layers: 1, Usage: backend.ImageColorAttachment,
		}
		state.Images = append(state.Images, img)
	}
	d.swapchains[sc] = &swapchainState{state: state, acquired: make(map[int]bool)}
	d.log(Event{Type: EvCreateSwapchain, Object: uint64(sc), Index: n})
	return state, nil
}

// DestroySwapchain implements backend.Device.
func (d *Device) DestroySwapchain(sc backend.Swapchain) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.swapchains[sc]
	if !ok {
		d.violate("destroy unknown swapchain %d", sc)
		return
	}
	for _, img := range s.state.Images {
		delete(d.objects, uint64(img))
		delete(d.images, img)
	}
	delete(d.swapchains, sc)
	d.destroy(uint64(sc), "swapchain")
	d.log(Event{Type: EvDestroySwapchain, Object: uint64(sc)})
}

func (d *Device) popResult(q *[]result) result {
	if len(*q) == 0 {
		return result{}
	}
	r := (*q)[0]
	*q = (*q)[1:]
	return r
}

// AcquireNextImage implements backend.Device. Images are handed out
// round-robin.
func (d *Device) AcquireNextImage(sc backend.Swapchain, signal backend.Semaphore) (int, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.swapchains[sc]
	if !ok {
		return 0, false, coil.Errorf(coil.Validation, "acquire next image", "unknown swapchain %d", sc)
	}
	r := d.popResult(&d.acquireResults)
	if r.err != nil {
		return 0, false, r.err
	}
	if d.semaphores[signal] {
		d.violate("acquire signals semaphore %d that is already signaled", signal)
	}
	d.semaphores[signal] = true
	index := s.next
	s.next = (s.next + 1) % len(s.state.Images)
	s.acquired[index] = true
	d.log(Event{Type: EvAcquire, Object: uint64(sc), Semaphore: signal, Index: index})
	return index, r.suboptimal, nil
}

// Present implements backend.Device.
func (d *Device) Present(sc backend.Swapchain, index int, wait backend.Semaphore) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.swapchains[sc]
	if !ok {
		return false, coil.Errorf(coil.Validation, "present", "unknown swapchain %d", sc)
	}
	if !s.acquired[index] {
		d.violate("present image %d that was not acquired", index)
	}
	delete(s.acquired, index)
	if !d.semaphores[wait] {
		d.violate("present waits on semaphore %d that is not signaled", wait)
	}
	d.semaphores[wait] = false
	d.log(Event{Type: EvPresent, Object: uint64(sc), Semaphore: wait, Index: index})
	r := d.popResult(&d.presentResults)
	return r.suboptimal, r.err
}

func alignUp(v, a uint64) uint64 {
	return (v + a - 1) / a * a
}
