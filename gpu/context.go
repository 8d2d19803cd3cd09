package gpu

import (
	"encoding/binary"

	coil "github.com/quyse/coil-core-sub001"
	"github.com/quyse/coil-core-sub001/backend"
	"github.com/quyse/coil-core-sub001/book"
	"github.com/quyse/coil-core-sub001/format"
	"github.com/quyse/coil-core-sub001/shader"
)

// Transient allocation alignments that do not come from device limits.
const (
	vertexAlignment   = 16
	indexAlignment    = 4
	transferAlignment = 16
)

// descriptor is the resource bound to one slot of a descriptor set.
type descriptor struct {
	typ     backend.DescriptorType
	buffer  backend.Buffer
	offset  uint64
	size    uint64
	view    backend.ImageView
	sampler backend.Sampler
	layout  backend.ImageLayout
}

func (d descriptor) appendKey(b []byte, slot int) []byte {
	b = binary.AppendUvarint(b, uint64(slot))
	b = binary.AppendUvarint(b, uint64(d.typ))
	b = binary.AppendUvarint(b, uint64(d.buffer))
	b = binary.AppendUvarint(b, d.offset)
	b = binary.AppendUvarint(b, d.size)
	b = binary.AppendUvarint(b, uint64(d.view))
	b = binary.AppendUvarint(b, uint64(d.sampler))
	return binary.AppendUvarint(b, uint64(d.layout))
}

// instanceSlot accumulates per-instance vertex data of one slot.
type instanceSlot struct {
	slot int
	data []byte
}

// Context records commands into the command buffer of a frame or a
// computer. Bindings are remembered and applied lazily: descriptor sets
// are written and bound, and the pipeline is bound, right before a draw or
// dispatch, and only where something changed since the previous one.
//
// A Context is valid until the end of the frame or computation that
// returned it.
type Context struct {
	dev       *Device
	cb        backend.CommandBuffer
	pool      *Pool
	transient *transientAllocator

	pipeline      *Pipeline
	boundPipeline *Pipeline
	boundPoint    backend.BindPoint
	boundLayout   *PipelineLayout
	boundSets     []backend.DescriptorSet
	bindings      map[int]map[int]descriptor
	dirty         map[int]bool
	// sets caches descriptor sets written this frame by layout and contents.
	sets map[string]backend.DescriptorSet

	mesh      *Mesh
	indexed   bool
	instances int
	instance  []instanceSlot
	inPass    bool
}

func newContext(dev *Device, bk *book.Book) *Context {
	pool := dev.CreatePool(bk, 0)
	return &Context{
		dev:       dev,
		pool:      pool,
		transient: newTransientAllocator(dev, bk, pool, dev.cfg.TransientBufferSize),
		bindings:  make(map[int]map[int]descriptor),
		dirty:     make(map[int]bool),
		sets:      make(map[string]backend.DescriptorSet),
	}
}

// reset prepares the context for recording into cb. Everything the
// previous recording used must no longer be in use by the device.
func (c *Context) reset(cb backend.CommandBuffer) error {
	if err := c.pool.ResetDescriptorSets(); err != nil {
		return err
	}
	c.transient.reset()
	c.cb = cb
	clear(c.sets)
	c.resetState()
	c.inPass = false
	return nil
}

// resetState forgets the pipeline, bindings and pending instances while
// keeping the descriptor sets and transient buffers of the frame.
func (c *Context) resetState() {
	c.pipeline = nil
	c.boundPipeline = nil
	c.boundLayout = nil
	c.boundSets = nil
	clear(c.bindings)
	clear(c.dirty)
	c.mesh = nil
	c.indexed = false
	c.instances = 0
	c.instance = c.instance[:0]
}

// Device returns the device the context records for.
func (c *Context) Device() *Device { return c.dev }

// BindPipeline selects the pipeline for subsequent draws or dispatches.
func (c *Context) BindPipeline(p *Pipeline) error {
	if err := c.Flush(); err != nil {
		return err
	}
	c.pipeline = p
	return nil
}

// BindVertexBuffer binds vb to a vertex slot.
func (c *Context) BindVertexBuffer(slot int, vb *VertexBuffer) error {
	if err := c.Flush(); err != nil {
		return err
	}
	c.cb.BindVertexBuffers(slot, []backend.Buffer{vb.handle}, []uint64{0})
	return nil
}

// BindDynamicVertexBuffer copies data to a transient buffer and binds it to
// a vertex slot. The data is only used by the current frame.
func (c *Context) BindDynamicVertexBuffer(slot int, data []byte) error {
	if err := c.Flush(); err != nil {
		return err
	}
	return c.bindDynamicVertices(slot, data)
}

func (c *Context) bindDynamicVertices(slot int, data []byte) error {
	r, err := c.transient.allocate(backend.BufferVertex, uint64(len(data)), vertexAlignment)
	if err != nil {
		return err
	}
	copy(r.data, data)
	c.cb.BindVertexBuffers(slot, []backend.Buffer{r.buffer.handle}, []uint64{r.offset})
	return nil
}

// BindIndexBuffer binds ib for indexed draws. A nil ib switches back to
// non-indexed draws.
func (c *Context) BindIndexBuffer(ib *IndexBuffer) error {
	if err := c.Flush(); err != nil {
		return err
	}
	c.bindIndices(ib)
	return nil
}

func (c *Context) bindIndices(ib *IndexBuffer) {
	c.indexed = ib != nil
	if ib != nil {
		c.cb.BindIndexBuffer(ib.handle, 0, ib.indexType)
	}
}

// BindMesh binds the vertices of m to slot 0 and its indices, and makes m
// the mesh drawn by EndInstance.
func (c *Context) BindMesh(m *Mesh) error {
	if err := c.Flush(); err != nil {
		return err
	}
	c.cb.BindVertexBuffers(0, []backend.Buffer{m.vertices.handle}, []uint64{0})
	c.bindIndices(m.indices)
	c.mesh = m
	return nil
}

// BindUniformBuffer copies data to a transient uniform buffer and binds it
// to a descriptor slot.
func (c *Context) BindUniformBuffer(set, slot int, data []byte) error {
	if err := c.Flush(); err != nil {
		return err
	}
	r, err := c.transient.allocate(backend.BufferUniform, uint64(len(data)), c.dev.props.Limits.MinUniformBufferOffsetAlignment)
	if err != nil {
		return err
	}
	copy(r.data, data)
	c.bind(set, slot, descriptor{
		typ:    backend.DescriptorUniformBuffer,
		buffer: r.buffer.handle,
		offset: r.offset,
		size:   uint64(len(data)),
	})
	return nil
}

// BindStorageBuffer binds sb to a descriptor slot.
func (c *Context) BindStorageBuffer(set, slot int, sb *StorageBuffer) error {
	if err := c.Flush(); err != nil {
		return err
	}
	c.bind(set, slot, descriptor{
		typ:    backend.DescriptorStorageBuffer,
		buffer: sb.handle,
		size:   sb.size,
	})
	return nil
}

// BindImage binds img with sampler s to a descriptor slot.
func (c *Context) BindImage(set, slot int, img *Image, s *Sampler) error {
	if err := c.Flush(); err != nil {
		return err
	}
	c.bind(set, slot, descriptor{
		typ:     backend.DescriptorCombinedImageSampler,
		view:    img.view,
		sampler: s.handle,
		layout:  img.layout,
	})
	return nil
}

func (c *Context) bind(set, slot int, d descriptor) {
	slots := c.bindings[set]
	if slots == nil {
		slots = make(map[int]descriptor)
		c.bindings[set] = slots
	}
	if old, ok := slots[slot]; ok && old == d {
		return
	}
	slots[slot] = d
	c.dirty[set] = true
}

// Draw draws count vertices, or indices when an index buffer is bound,
// instances times.
func (c *Context) Draw(count, instances int) error {
	if err := c.Flush(); err != nil {
		return err
	}
	return c.draw(count, instances)
}

func (c *Context) draw(count, instances int) error {
	if !c.inPass {
		return coil.Errorf(coil.Validation, "draw", "draw outside a render pass")
	}
	if err := c.prepare(backend.BindGraphics); err != nil {
		return err
	}
	if c.indexed {
		c.cb.DrawIndexed(uint32(count), uint32(instances), 0, 0, 0)
	} else {
		c.cb.Draw(uint32(count), uint32(instances), 0, 0)
	}
	return nil
}

// Dispatch runs the bound compute pipeline over x*y*z workgroups.
func (c *Context) Dispatch(x, y, z int) error {
	if c.inPass {
		return coil.Errorf(coil.Validation, "dispatch", "dispatch inside a render pass")
	}
	if err := c.prepare(backend.BindCompute); err != nil {
		return err
	}
	c.cb.Dispatch(uint32(x), uint32(y), uint32(z))
	return nil
}

// AddInstanceData appends per-instance vertex data for slot to the current
// instance.
func (c *Context) AddInstanceData(slot int, data []byte) {
	for i := range c.instance {
		if c.instance[i].slot == slot {
			c.instance[i].data = append(c.instance[i].data, data...)
			return
		}
	}
	c.instance = append(c.instance, instanceSlot{slot: slot, data: append([]byte(nil), data...)})
}

// EndInstance ends one instance of the bound mesh. Without instance data
// the mesh is drawn right away; otherwise instances accumulate until the
// next binding change or Flush draws them in one instanced draw.
func (c *Context) EndInstance() error {
	if c.mesh == nil {
		return coil.Errorf(coil.Validation, "end instance", "no mesh bound")
	}
	if len(c.instance) == 0 {
		return c.draw(c.mesh.count, 1)
	}
	c.instances++
	return nil
}

// Flush draws the accumulated instances, if any.
func (c *Context) Flush() error {
	if c.instances == 0 {
		c.instance = c.instance[:0]
		return nil
	}
	n := c.instances
	c.instances = 0
	defer func() { c.instance = c.instance[:0] }()
	for _, s := range c.instance {
		if err := c.bindDynamicVertices(s.slot, s.data); err != nil {
			return err
		}
	}
	return c.draw(c.mesh.count, n)
}

// prepare brings descriptor sets and the pipeline up to date for point.
func (c *Context) prepare(point backend.BindPoint) error {
	const op = "prepare"
	p := c.pipeline
	if p == nil {
		return coil.Errorf(coil.Validation, op, "no pipeline bound")
	}
	if p.point != point {
		return coil.Errorf(coil.Validation, op, "pipeline cannot be used here")
	}
	layout := p.layout
	relayout := c.boundLayout != layout || c.boundPoint != point
	if relayout {
		c.boundLayout = layout
		c.boundPoint = point
		c.boundSets = make([]backend.DescriptorSet, len(layout.sets))
		c.boundPipeline = nil
	}

	changed := make([]bool, len(layout.sets))
	var writes []backend.DescriptorWrite
	for i := range layout.sets {
		if !relayout && !c.dirty[i] {
			continue
		}
		set, w, err := c.descriptorSet(layout, i)
		if err != nil {
			return err
		}
		writes = append(writes, w...)
		if relayout || set != c.boundSets[i] {
			c.boundSets[i] = set
			changed[i] = true
		}
	}
	clear(c.dirty)
	if len(writes) > 0 {
		c.dev.dev.UpdateDescriptorSets(writes)
	}

	if c.boundPipeline != p {
		c.cb.BindPipeline(point, p.handle)
		c.boundPipeline = p
	}
	for i := 0; i < len(changed); {
		if !changed[i] {
			i++
			continue
		}
		j := i + 1
		for j < len(changed) && changed[j] {
			j++
		}
		c.cb.BindDescriptorSets(point, layout.handle, i, c.boundSets[i:j])
		i = j
	}
	return nil
}

// descriptorSet returns a descriptor set of set index i holding the current
// bindings, with the writes needed when it was just allocated.
func (c *Context) descriptorSet(layout *PipelineLayout, i int) (backend.DescriptorSet, []backend.DescriptorWrite, error) {
	sl := layout.sets[i]
	slots := sl.SortedSlots()
	key := binary.AppendUvarint(nil, uint64(layout.setHandles[i]))
	for _, slot := range slots {
		want := descriptorType(sl.Binding(slot).Type)
		d, ok := c.bindings[i][slot]
		if !ok {
			return 0, nil, coil.Errorf(coil.Validation, "prepare", "set %d slot %d: nothing bound", i, slot)
		}
		if d.typ != want {
			return 0, nil, coil.Errorf(coil.Validation, "prepare", "set %d slot %d: %s bound where the layout wants %s", i, slot, descriptorName(d.typ), descriptorName(want))
		}
		key = d.appendKey(key, slot)
	}
	if set, ok := c.sets[string(key)]; ok {
		return set, nil, nil
	}
	set, err := c.pool.AllocateDescriptorSet(layout.setHandles[i])
	if err != nil {
		return 0, nil, err
	}
	writes := make([]backend.DescriptorWrite, 0, len(slots))
	for _, slot := range slots {
		d := c.bindings[i][slot]
		writes = append(writes, backend.DescriptorWrite{
			Set:     set,
			Slot:    slot,
			Type:    d.typ,
			Buffer:  d.buffer,
			Offset:  d.offset,
			Range:   d.size,
			View:    d.view,
			Sampler: d.sampler,
			Layout:  d.layout,
		})
	}
	c.sets[string(key)] = set
	return set, writes, nil
}

func descriptorName(t backend.DescriptorType) string {
	switch t {
	case backend.DescriptorUniformBuffer:
		return shader.BindingUniformBuffer.String()
	case backend.DescriptorStorageBuffer:
		return shader.BindingStorageBuffer.String()
	case backend.DescriptorCombinedImageSampler:
		return shader.BindingSampledImage.String()
	}
	return "input_attachment"
}

// SetTextureData uploads buf into img through transient staging memory and
// leaves img ready for sampling. It must be called outside a render pass.
// Each mip level of each layer must fit a transient buffer.
func (c *Context) SetTextureData(img *Image, buf *format.ImageBuffer) error {
	const op = "set texture data"
	if c.inPass {
		return coil.Errorf(coil.Validation, op, "upload inside a render pass")
	}
	if buf.Format != img.format {
		return coil.Errorf(coil.Validation, op, "buffer format %+v does not match image format %+v", buf.Format, img.format)
	}
	m := img.format.Metrics()
	if len(buf.Data) < m.TotalSize {
		return coil.Errorf(coil.Validation, op, "buffer holds %d bytes, want %d", len(buf.Data), m.TotalSize)
	}
	align := lcm(transferAlignment, uint64(img.format.Pixel.BlockBytes()))

	var regions []backend.BufferImageCopy
	var src []backend.Buffer
	for layer := range img.format.Layers() {
		for mip, mm := range m.Mips {
			r, err := c.transient.allocate(backend.BufferTransferSrc, uint64(mm.Size), align)
			if err != nil {
				return err
			}
			copy(r.data, buf.Level(layer, mip))
			regions = append(regions, backend.BufferImageCopy{
				BufferOffset: r.offset,
				Aspect:       img.aspect,
				Mip:          uint32(mip),
				BaseLayer:    uint32(layer),
				Layers:       1,
				Width:        uint32(mm.Width),
				Height:       uint32(mm.Height),
				Depth:        uint32(mm.Depth),
			})
			src = append(src, r.buffer.handle)
		}
	}

	whole := backend.ImageBarrier{
		Image:  img.handle,
		Aspect: img.aspect,
		Mips:   uint32(len(m.Mips)),
		Layers: uint32(img.format.Layers()),
	}
	before := whole
	before.Old, before.New = backend.LayoutUndefined, backend.LayoutTransferDstOptimal
	before.DstAccess = backend.AccessTransferWrite
	c.cb.PipelineBarrier(backend.Barrier{
		SrcStage: backend.StageTopOfPipe,
		DstStage: backend.StageTransfer,
		Images:   []backend.ImageBarrier{before},
	})
	// Consecutive regions from one staging buffer go in one copy.
	for i := 0; i < len(regions); {
		j := i + 1
		for j < len(regions) && src[j] == src[i] {
			j++
		}
		c.cb.CopyBufferToImage(src[i], img.handle, regions[i:j])
		i = j
	}
	after := whole
	after.Old, after.New = backend.LayoutTransferDstOptimal, img.layout
	after.SrcAccess, after.DstAccess = backend.AccessTransferWrite, backend.AccessShaderRead
	c.cb.PipelineBarrier(backend.Barrier{
		SrcStage: backend.StageTransfer,
		DstStage: backend.StageVertexShader | backend.StageFragmentShader | backend.StageComputeShader,
		Images:   []backend.ImageBarrier{after},
	})
	return nil
}

func lcm(a, b uint64) uint64 {
	x, y := a, b
	for y != 0 {
		x, y = y, x%y
	}
	return a / x * b
}
