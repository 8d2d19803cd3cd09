package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"

	coil "github.com/quyse/coil-core-sub001"
	"github.com/quyse/coil-core-sub001/backend"
	"github.com/quyse/coil-core-sub001/book"
	"github.com/quyse/coil-core-sub001/format"
	"github.com/quyse/coil-core-sub001/shader"
	"github.com/quyse/coil-core-sub001/shader/spirv"
)

// Shader is a compiled shader module with its reflection data.
type Shader struct {
	module backend.ShaderModule
	out    *spirv.Output
}

// CreateShader creates a shader module from compiler output.
func (d *Device) CreateShader(bk *book.Book, out *spirv.Output) (*Shader, error) {
	m, err := d.dev.CreateShaderModule(out.Code)
	if err != nil {
		return nil, coil.Wrap(coil.Resource, "create shader", err)
	}
	bk.Defer(func() { d.dev.DestroyShaderModule(m) })
	return &Shader{module: m, out: out}, nil
}

// CompileShader compiles p to SPIR-V and creates a shader module.
func (d *Device) CompileShader(bk *book.Book, p shader.Program) (*Shader, error) {
	out, err := spirv.Compile(p)
	if err != nil {
		return nil, err
	}
	return d.CreateShader(bk, out)
}

// Output returns the compiler output the shader was created from.
func (s *Shader) Output() *spirv.Output { return s.out }

func (s *Shader) stage(stage gputypes.ShaderStage) (backend.ShaderStageDesc, error) {
	entry := s.out.Entry(stage)
	if entry == "" {
		return backend.ShaderStageDesc{}, coil.Errorf(coil.Validation, "create pipeline", "shader has no %v entry point", stage)
	}
	return backend.ShaderStageDesc{Module: s.module, Entry: entry, Stage: stage}, nil
}

// PipelineLayout is the merged descriptor-set layout list of a pipeline.
type PipelineLayout struct {
	id         uint64
	handle     backend.PipelineLayout
	sets       []shader.SetLayout
	setHandles []backend.DescriptorSetLayout
}

// Handle returns the backend pipeline layout.
func (l *PipelineLayout) Handle() backend.PipelineLayout { return l.handle }

// Sets returns the descriptor-set layouts.
func (l *PipelineLayout) Sets() []shader.SetLayout { return l.sets }

// CreatePipelineLayout merges the descriptor-set layouts of shaders and
// creates the pipeline layout. Set layouts are shared across the device.
func (d *Device) CreatePipelineLayout(bk *book.Book, shaders ...*Shader) (*PipelineLayout, error) {
	per := make([][]shader.SetLayout, len(shaders))
	for i, s := range shaders {
		per[i] = s.out.Layouts
	}
	sets, err := shader.MergeLayouts(per...)
	if err != nil {
		return nil, fmt.Errorf("create pipeline layout: %w", err)
	}
	handles := make([]backend.DescriptorSetLayout, len(sets))
	for i, l := range sets {
		if handles[i], err = d.setLayout(l); err != nil {
			return nil, err
		}
	}
	h, err := d.dev.CreatePipelineLayout(handles)
	if err != nil {
		return nil, coil.Wrap(coil.Resource, "create pipeline layout", err)
	}
	bk.Defer(func() { d.dev.DestroyPipelineLayout(h) })
	return &PipelineLayout{id: d.newID(), handle: h, sets: sets, setHandles: handles}, nil
}

// setLayout returns the shared backend layout of l.
func (d *Device) setLayout(l shader.SetLayout) (backend.DescriptorSetLayout, error) {
	return d.setLayouts.GetOrCreate(l.Key(), func() (backend.DescriptorSetLayout, error) {
		var desc backend.SetLayoutDesc
		for _, slot := range l.SortedSlots() {
			b := l.Binding(slot)
			desc.Bindings = append(desc.Bindings, backend.LayoutBinding{
				Slot:   slot,
				Type:   descriptorType(b.Type),
				Count:  b.Count,
				Stages: b.Stages,
			})
		}
		h, err := d.dev.CreateDescriptorSetLayout(desc)
		if err != nil {
			return 0, coil.Wrap(coil.Resource, "create descriptor set layout", err)
		}
		return h, nil
	})
}

func descriptorType(t shader.BindingType) backend.DescriptorType {
	switch t {
	case shader.BindingStorageBuffer:
		return backend.DescriptorStorageBuffer
	case shader.BindingSampledImage:
		return backend.DescriptorCombinedImageSampler
	}
	return backend.DescriptorUniformBuffer
}

// VertexSlot describes one vertex buffer slot.
type VertexSlot struct {
	Stride      int
	PerInstance bool
}

// VertexAttribute places the shader input at the attribute's index in a
// vertex buffer slot.
type VertexAttribute struct {
	Slot   int
	Offset int
	Format format.VertexFormat
}

// VertexLayout describes the vertex input of a pipeline. Attribute i feeds
// shader location i.
type VertexLayout struct {
	Slots      []VertexSlot
	Attributes []VertexAttribute
}

// Blending configures color blending of one attachment.
type Blending struct {
	SrcColor, DstColor gputypes.BlendFactor
	ColorOp            gputypes.BlendOperation
	SrcAlpha, DstAlpha gputypes.BlendFactor
	AlphaOp            gputypes.BlendOperation
}

// AlphaBlending is the usual non-premultiplied alpha blending.
var AlphaBlending = Blending{
	SrcColor: gputypes.BlendFactorSrcAlpha,
	DstColor: gputypes.BlendFactorOneMinusSrcAlpha,
	ColorOp:  gputypes.BlendOperationAdd,
	SrcAlpha: gputypes.BlendFactorOne,
	DstAlpha: gputypes.BlendFactorOneMinusSrcAlpha,
	AlphaOp:  gputypes.BlendOperationAdd,
}

// AttachmentConfig is the per color attachment state of a pipeline.
type AttachmentConfig struct {
	// Blending is nil for no blending.
	Blending *Blending
}

// PipelineConfig is the fixed-function state of a graphics pipeline.
// Rasterization is always a triangle list with back faces culled and
// counter-clockwise front faces.
type PipelineConfig struct {
	Viewport     backend.Viewport
	DepthTest    bool
	DepthWrite   bool
	DepthCompare gputypes.CompareFunction
	VertexLayout VertexLayout
	// Attachments has one entry per color slot of the subpass; nil
	// disables blending on every attachment.
	Attachments []AttachmentConfig
}

// Pipeline is a graphics or compute pipeline.
type Pipeline struct {
	id     uint64
	handle backend.Pipeline
	point  backend.BindPoint
	layout *PipelineLayout
}

// ID returns the creation-ordered id of the pipeline.
func (p *Pipeline) ID() uint64 { return p.id }

// Handle returns the backend pipeline.
func (p *Pipeline) Handle() backend.Pipeline { return p.handle }

// BindPoint returns whether the pipeline is graphics or compute.
func (p *Pipeline) BindPoint() backend.BindPoint { return p.point }

// Layout returns the pipeline layout.
func (p *Pipeline) Layout() *PipelineLayout { return p.layout }

// CreatePipeline creates a graphics pipeline for a subpass of pass.
// vs and fs may be the same shader.
func (d *Device) CreatePipeline(bk *book.Book, layout *PipelineLayout, pass *Pass, subpass int, vs, fs *Shader, cfg PipelineConfig) (*Pipeline, error) {
	const op = "create pipeline"
	if subpass < 0 || subpass >= pass.Subpasses() {
		return nil, coil.Errorf(coil.Validation, op, "subpass %d out of range", subpass)
	}
	for _, s := range []*Shader{vs, fs} {
		if !shader.LayoutsWithin(s.out.Layouts, layout.sets) {
			return nil, coil.Errorf(coil.Validation, op, "shader bindings are not covered by the pipeline layout")
		}
	}
	vstage, err := vs.stage(gputypes.ShaderStageVertex)
	if err != nil {
		return nil, err
	}
	fstage, err := fs.stage(gputypes.ShaderStageFragment)
	if err != nil {
		return nil, err
	}

	desc := backend.GraphicsPipelineDesc{
		Layout:       layout.handle,
		Pass:         pass.handle,
		Subpass:      subpass,
		Stages:       []backend.ShaderStageDesc{vstage, fstage},
		Viewport:     cfg.Viewport,
		DepthTest:    cfg.DepthTest,
		DepthWrite:   cfg.DepthWrite,
		DepthCompare: cfg.DepthCompare,
	}
	if desc.DepthTest && desc.DepthCompare == gputypes.CompareFunctionUndefined {
		desc.DepthCompare = gputypes.CompareFunctionLess
	}
	for i, s := range cfg.VertexLayout.Slots {
		step := gputypes.VertexStepModeVertex
		if s.PerInstance {
			step = gputypes.VertexStepModeInstance
		}
		desc.Bindings = append(desc.Bindings, backend.VertexBinding{Slot: i, Stride: uint32(s.Stride), Step: step})
	}
	for i, a := range cfg.VertexLayout.Attributes {
		if a.Slot < 0 || a.Slot >= len(cfg.VertexLayout.Slots) {
			return nil, coil.Errorf(coil.Validation, op, "attribute %d: slot %d out of range", i, a.Slot)
		}
		f, err := vertexFormat(a.Format)
		if err != nil {
			return nil, fmt.Errorf("%s: attribute %d: %w", op, i, err)
		}
		desc.Attributes = append(desc.Attributes, backend.VertexAttribute{Location: i, Slot: a.Slot, Offset: uint32(a.Offset), Format: f})
	}
	for _, a := range vs.out.Attributes {
		if a.Location >= len(cfg.VertexLayout.Attributes) {
			return nil, coil.Errorf(coil.Validation, op, "shader attribute at location %d has no vertex layout entry", a.Location)
		}
	}

	colors := len(pass.plan.Subpasses[subpass].Colors)
	if cfg.Attachments != nil && len(cfg.Attachments) != colors {
		return nil, coil.Errorf(coil.Validation, op, "%d attachment configs for %d color attachments", len(cfg.Attachments), colors)
	}
	desc.Blends = make([]*gputypes.BlendState, colors)
	for i, a := range cfg.Attachments {
		if b := a.Blending; b != nil {
			desc.Blends[i] = &gputypes.BlendState{
				Color: gputypes.BlendComponent{SrcFactor: b.SrcColor, DstFactor: b.DstColor, Operation: b.ColorOp},
				Alpha: gputypes.BlendComponent{SrcFactor: b.SrcAlpha, DstFactor: b.DstAlpha, Operation: b.AlphaOp},
			}
		}
	}

	h, err := d.dev.CreateGraphicsPipeline(desc)
	if err != nil {
		return nil, coil.Wrap(coil.Resource, op, err)
	}
	bk.Defer(func() { d.dev.DestroyPipeline(h) })
	return &Pipeline{id: d.newID(), handle: h, point: backend.BindGraphics, layout: layout}, nil
}

// CreateComputePipeline creates a compute pipeline.
func (d *Device) CreateComputePipeline(bk *book.Book, layout *PipelineLayout, cs *Shader) (*Pipeline, error) {
	const op = "create compute pipeline"
	if !shader.LayoutsWithin(cs.out.Layouts, layout.sets) {
		return nil, coil.Errorf(coil.Validation, op, "shader bindings are not covered by the pipeline layout")
	}
	stage, err := cs.stage(gputypes.ShaderStageCompute)
	if err != nil {
		return nil, err
	}
	h, err := d.dev.CreateComputePipeline(backend.ComputePipelineDesc{Layout: layout.handle, Stage: stage})
	if err != nil {
		return nil, coil.Wrap(coil.Resource, op, err)
	}
	bk.Defer(func() { d.dev.DestroyPipeline(h) })
	return &Pipeline{id: d.newID(), handle: h, point: backend.BindCompute, layout: layout}, nil
}
