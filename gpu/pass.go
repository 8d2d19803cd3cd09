package gpu

import (
	"slices"

	"github.com/gogpu/gputypes"

	coil "github.com/quyse/coil-core-sub001"
	"github.com/quyse/coil-core-sub001/backend"
	"github.com/quyse/coil-core-sub001/book"
	"github.com/quyse/coil-core-sub001/format"
)

// AttachmentKind distinguishes color and depth-stencil attachments.
type AttachmentKind uint8

// Attachment kinds.
const (
	AttachmentColor AttachmentKind = iota
	AttachmentDepthStencil
)

// Attachment is a logical image slot of a pass.
type Attachment struct {
	Kind AttachmentKind

	// Format is the pixel format of a color attachment. Depth-stencil
	// attachments use the device's depth-stencil format.
	Format format.PixelFormat

	// Clear is the clear color of a color attachment.
	Clear gputypes.Color

	// ClearDepth and ClearStencil clear a depth-stencil attachment.
	ClearDepth   float32
	ClearStencil uint32

	// KeepBefore loads the previous contents instead of clearing.
	KeepBefore bool

	// KeepAfter stores the contents at the end of the pass.
	KeepAfter bool

	// Sampled leaves the attachment in a shader-readable layout at the end
	// of the pass so later passes can sample it.
	Sampled bool
}

// ColorAttachment returns a color attachment cleared to clear.
func ColorAttachment(f format.PixelFormat, clear gputypes.Color) Attachment {
	return Attachment{Kind: AttachmentColor, Format: f, Clear: clear}
}

// DepthStencilAttachment returns a depth-stencil attachment.
func DepthStencilAttachment(depth float32, stencil uint32) Attachment {
	return Attachment{Kind: AttachmentDepthStencil, Format: format.DepthStencil, ClearDepth: depth, ClearStencil: stencil}
}

// UsageKind is how a subpass uses an attachment.
type UsageKind uint8

// Attachment usages.
const (
	// UsageColor renders to the attachment at a color slot.
	UsageColor UsageKind = iota
	// UsageDepthStencil uses the attachment for depth and stencil tests.
	UsageDepthStencil
	// UsageInput reads the attachment as an input attachment at a slot.
	UsageInput
	// UsageShader samples the attachment in shaders.
	UsageShader
)

func (k UsageKind) String() string {
	switch k {
	case UsageColor:
		return "color"
	case UsageDepthStencil:
		return "depth-stencil"
	case UsageInput:
		return "input"
	case UsageShader:
		return "shader"
	}
	return "unknown"
}

// Use references an attachment from a subpass.
type Use struct {
	Attachment int
	Kind       UsageKind
	// Slot is the color or input slot.
	Slot int
}

// ColorUse renders to attachment at a color slot.
func ColorUse(attachment, slot int) Use {
	return Use{Attachment: attachment, Kind: UsageColor, Slot: slot}
}

// DepthStencilUse uses attachment as the depth-stencil buffer.
func DepthStencilUse(attachment int) Use {
	return Use{Attachment: attachment, Kind: UsageDepthStencil}
}

// InputUse reads attachment as an input attachment at slot.
func InputUse(attachment, slot int) Use {
	return Use{Attachment: attachment, Kind: UsageInput, Slot: slot}
}

// ShaderUse samples attachment in shaders.
func ShaderUse(attachment int) Use {
	return Use{Attachment: attachment, Kind: UsageShader}
}

// Subpass is one rasterization phase of a pass.
type Subpass struct {
	Uses []Use
}

// PassConfig declares the attachments and subpasses of a pass.
type PassConfig struct {
	Attachments []Attachment
	Subpasses   []Subpass
}

// PassPlan is the render pass derived from a PassConfig.
type PassPlan struct {
	Attachments []backend.AttachmentDesc
	Subpasses   []backend.SubpassDesc
	// Dependencies are the subpass-to-subpass dependencies; none of them
	// is implied by the others.
	Dependencies []backend.Dependency
	// External are dependencies on work before and after the pass.
	External []backend.Dependency
	Clears   []backend.ClearValue
}

// scope is one side of a dependency.
type scope struct {
	stage  backend.PipelineStage
	access backend.Access
}

// usageInfo is what a usage does to an attachment.
type usageInfo struct {
	layout backend.ImageLayout
	read   scope
	write  scope
}

const fragmentTests = backend.StageEarlyFragmentTests | backend.StageLateFragmentTests

func usageOf(kind UsageKind, depth bool) usageInfo {
	readOnly := backend.LayoutShaderReadOnlyOptimal
	if depth {
		readOnly = backend.LayoutDepthStencilReadOnlyOptimal
	}
	switch kind {
	case UsageColor:
		return usageInfo{
			layout: backend.LayoutColorAttachmentOptimal,
			read:   scope{backend.StageColorAttachmentOutput, backend.AccessColorAttachmentRead},
			write:  scope{backend.StageColorAttachmentOutput, backend.AccessColorAttachmentWrite},
		}
	case UsageDepthStencil:
		return usageInfo{
			layout: backend.LayoutDepthStencilAttachmentOptimal,
			read:   scope{fragmentTests, backend.AccessDepthStencilAttachmentRead},
			write:  scope{fragmentTests, backend.AccessDepthStencilAttachmentWrite},
		}
	case UsageInput:
		return usageInfo{
			layout: readOnly,
			read:   scope{backend.StageFragmentShader, backend.AccessInputAttachmentRead},
		}
	}
	return usageInfo{
		layout: readOnly,
		read:   scope{backend.StageVertexShader | backend.StageFragmentShader, backend.AccessShaderRead},
	}
}

// dependency is an accumulated execution and memory dependency.
type dependency struct {
	src, dst scope
	byRegion bool
}

func (d dependency) or(o dependency) dependency {
	return dependency{
		src:      scope{d.src.stage | o.src.stage, d.src.access | o.src.access},
		dst:      scope{d.dst.stage | o.dst.stage, d.dst.access | o.dst.access},
		byRegion: d.byRegion && o.byRegion,
	}
}

// covers reports whether d guarantees everything n needs. Source stages
// implicitly include logically earlier stages, destination stages later ones.
func (d dependency) covers(n dependency) bool {
	return n.src.stage&^logicallyEarlier(d.src.stage) == 0 &&
		n.src.access&^d.src.access == 0 &&
		n.dst.stage&^logicallyLater(d.dst.stage) == 0 &&
		n.dst.access&^d.dst.access == 0
}

// chain composes first (i→k) with second (k→j). ok is false when the
// second dependency's source scope does not wait for the first one's
// destination scope.
func chain(first, second dependency) (dependency, bool) {
	if first.dst.stage&logicallyEarlier(second.src.stage) == 0 {
		return dependency{}, false
	}
	return dependency{src: first.src, dst: second.dst, byRegion: first.byRegion && second.byRegion}, true
}

// graphicsStages lists the graphics pipeline stages in logical order.
var graphicsStages = [...]backend.PipelineStage{
	backend.StageTopOfPipe,
	backend.StageDrawIndirect,
	backend.StageVertexInput,
	backend.StageVertexShader,
	backend.StageEarlyFragmentTests,
	backend.StageFragmentShader,
	backend.StageLateFragmentTests,
	backend.StageColorAttachmentOutput,
	backend.StageBottomOfPipe,
}

func logicallyEarlier(mask backend.PipelineStage) backend.PipelineStage {
	r, seen := mask, false
	for i := len(graphicsStages) - 1; i >= 0; i-- {
		seen = seen || mask&graphicsStages[i] != 0
		if seen {
			r |= graphicsStages[i]
		}
	}
	return r
}

func logicallyLater(mask backend.PipelineStage) backend.PipelineStage {
	r, seen := mask, false
	for _, s := range graphicsStages {
		seen = seen || mask&s != 0
		if seen {
			r |= s
		}
	}
	return r
}

type reader struct {
	subpass int
	stage   backend.PipelineStage
}

// attachmentState tracks an attachment while walking subpasses.
type attachmentState struct {
	writer     int
	writeScope scope
	readers    []reader
	first      int
	last       int
	lastLayout backend.ImageLayout
	refs       []int
}

type candidate struct {
	src int
	dep dependency
}

// PlanPass derives a render pass from cfg: per-attachment layouts and
// load/store operations, subpass references, preserved attachments and a
// minimal set of subpass dependencies. Depth-stencil attachment formats
// are left undefined; CreatePass fills them in.
func PlanPass(cfg PassConfig) (*PassPlan, error) {
	const op = "plan pass"
	if len(cfg.Subpasses) == 0 {
		return nil, coil.Errorf(coil.Validation, op, "no subpasses")
	}

	plan := &PassPlan{
		Attachments: make([]backend.AttachmentDesc, len(cfg.Attachments)),
		Subpasses:   make([]backend.SubpassDesc, len(cfg.Subpasses)),
		Clears:      make([]backend.ClearValue, len(cfg.Attachments)),
	}
	states := make([]attachmentState, len(cfg.Attachments))
	for i := range states {
		states[i] = attachmentState{writer: -1, first: -1, last: -1}
	}

	emitted := make([]map[int]dependency, len(cfg.Subpasses))
	reach := make([]map[int]dependency, len(cfg.Subpasses))

	for j, sp := range cfg.Subpasses {
		var cands []candidate
		desc := &plan.Subpasses[j]
		seen := make(map[int]bool)
		var shaderRefs []backend.AttachmentRef

		for _, u := range sp.Uses {
			if u.Attachment < 0 || u.Attachment >= len(cfg.Attachments) {
				return nil, coil.Errorf(coil.Validation, op, "subpass %d: attachment %d out of range", j, u.Attachment)
			}
			if seen[u.Attachment] {
				return nil, coil.Errorf(coil.Validation, op, "subpass %d: attachment %d used twice", j, u.Attachment)
			}
			seen[u.Attachment] = true

			a := cfg.Attachments[u.Attachment]
			depth := a.Kind == AttachmentDepthStencil
			switch {
			case u.Kind == UsageColor && depth:
				return nil, coil.Errorf(coil.Validation, op, "subpass %d: depth-stencil attachment %d used as color", j, u.Attachment)
			case u.Kind == UsageDepthStencil && !depth:
				return nil, coil.Errorf(coil.Validation, op, "subpass %d: color attachment %d used as depth-stencil", j, u.Attachment)
			case u.Kind > UsageShader:
				return nil, coil.Errorf(coil.Validation, op, "subpass %d: unknown usage %d", j, u.Kind)
			}

			st := &states[u.Attachment]
			info := usageOf(u.Kind, depth)
			ref := backend.AttachmentRef{Attachment: u.Attachment, Layout: info.layout}
			switch u.Kind {
			case UsageColor:
				if err := setRef(&desc.Colors, u.Slot, ref); err != nil {
					return nil, coil.Errorf(coil.Validation, op, "subpass %d: color %w", j, err)
				}
			case UsageDepthStencil:
				if desc.DepthStencil != nil {
					return nil, coil.Errorf(coil.Validation, op, "subpass %d: more than one depth-stencil attachment", j)
				}
				desc.DepthStencil = &ref
			case UsageInput:
				if err := setRef(&desc.Inputs, u.Slot, ref); err != nil {
					return nil, coil.Errorf(coil.Validation, op, "subpass %d: input %w", j, err)
				}
			case UsageShader:
				shaderRefs = append(shaderRefs, ref)
			}

			if info.write.stage == 0 && st.writer < 0 && !a.KeepBefore {
				return nil, coil.Errorf(coil.Validation, op, "subpass %d reads attachment %d which has no contents", j, u.Attachment)
			}

			// Read after write, and write after write for color and depth.
			if st.writer >= 0 {
				cands = append(cands, candidate{src: st.writer, dep: dependency{
					src:      st.writeScope,
					dst:      scope{info.read.stage | info.write.stage, info.read.access | info.write.access},
					byRegion: u.Kind != UsageShader,
				}})
			}
			// Write after read needs only an execution dependency.
			if info.write.stage != 0 {
				for _, r := range st.readers {
					cands = append(cands, candidate{src: r.subpass, dep: dependency{
						src:      scope{stage: r.stage},
						dst:      scope{stage: info.write.stage},
						byRegion: true,
					}})
				}
			}

			if st.first < 0 {
				st.first = j
			}
			st.last = j
			st.lastLayout = info.layout
			st.refs = append(st.refs, j)
		}
		// Sampled attachments are referenced as trailing inputs so that
		// they transition to a read-only layout.
		desc.Inputs = append(desc.Inputs, shaderRefs...)

		// Walk earlier subpasses from the nearest, emitting only what the
		// dependencies already emitted for j do not imply transitively.
		emitted[j] = make(map[int]dependency)
		for i := j - 1; i >= 0; i-- {
			for _, c := range cands {
				if c.src != i || impliedVia(emitted[j], reach, i, j, c.dep) {
					continue
				}
				if e, ok := emitted[j][i]; ok {
					emitted[j][i] = e.or(c.dep)
				} else {
					emitted[j][i] = c.dep
				}
			}
		}
		reach[j] = make(map[int]dependency)
		for i := range j {
			r, ok := emitted[j][i]
			for k := i + 1; k < j; k++ {
				e, ok1 := emitted[j][k]
				p, ok2 := reach[k][i]
				if !ok1 || !ok2 {
					continue
				}
				if c, chained := chain(p, e); chained {
					if ok {
						r = r.or(c)
					} else {
						r, ok = c, true
					}
				}
			}
			if ok {
				reach[j][i] = r
			}
		}
		for i := j - 1; i >= 0; i-- {
			if e, ok := emitted[j][i]; ok {
				plan.Dependencies = append(plan.Dependencies, backend.Dependency{
					Src: i, Dst: j,
					SrcStage: e.src.stage, DstStage: e.dst.stage,
					SrcAccess: e.src.access, DstAccess: e.dst.access,
					ByRegion: e.byRegion,
				})
			}
		}

		// Update writers and readers after all uses of j are accounted for.
		for _, u := range sp.Uses {
			st := &states[u.Attachment]
			info := usageOf(u.Kind, cfg.Attachments[u.Attachment].Kind == AttachmentDepthStencil)
			if info.write.stage != 0 {
				st.writer = j
				st.writeScope = info.write
				st.readers = nil
			} else {
				st.readers = append(st.readers, reader{subpass: j, stage: info.read.stage})
			}
		}
	}
	slices.SortStableFunc(plan.Dependencies, func(a, b backend.Dependency) int {
		if a.Dst != b.Dst {
			return a.Dst - b.Dst
		}
		return a.Src - b.Src
	})

	for i, a := range cfg.Attachments {
		st := states[i]
		depth := a.Kind == AttachmentDepthStencil
		desc := &plan.Attachments[i]
		if !depth {
			f, err := pixelFormat(a.Format)
			if err != nil {
				return nil, coil.Errorf(coil.Validation, op, "attachment %d: %w", i, err)
			}
			desc.Format = f
		}

		desc.Final = st.lastLayout
		if st.last < 0 {
			desc.Final = usageOf(UsageColor, false).layout
			if depth {
				desc.Final = usageOf(UsageDepthStencil, true).layout
			}
		}
		if a.Sampled && a.KeepAfter {
			desc.Final = usageOf(UsageShader, depth).layout
		}
		desc.Initial = backend.LayoutUndefined
		desc.Load = backend.LoadOpClear
		if a.KeepBefore {
			desc.Initial = desc.Final
			desc.Load = backend.LoadOpLoad
		}
		desc.Store = backend.StoreOpDontCare
		if a.KeepAfter {
			desc.Store = backend.StoreOpStore
		}
		desc.StencilLoad, desc.StencilStore = backend.LoadOpDontCare, backend.StoreOpDontCare
		if depth {
			desc.StencilLoad, desc.StencilStore = desc.Load, desc.Store
			plan.Clears[i] = backend.ClearValue{Depth: a.ClearDepth, Stencil: a.ClearStencil, DepthStencil: true}
		} else {
			plan.Clears[i] = backend.ClearValue{Color: a.Clear}
		}

		// Subpasses between two uses keep the contents alive.
		hasContents := a.KeepBefore
		for n, r := range st.refs {
			if n > 0 && hasContents {
				for m := st.refs[n-1] + 1; m < r; m++ {
					plan.Subpasses[m].Preserve = append(plan.Subpasses[m].Preserve, i)
				}
			}
			if writes(cfg, i, r) {
				hasContents = true
			}
		}

		plan.External = append(plan.External, externalDependencies(cfg, i, st)...)
	}
	plan.External = mergeExternal(plan.External)
	return plan, nil
}

// writes reports whether subpass j writes attachment a.
func writes(cfg PassConfig, a, j int) bool {
	for _, u := range cfg.Subpasses[j].Uses {
		if u.Attachment == a {
			return u.Kind == UsageColor || u.Kind == UsageDepthStencil
		}
	}
	return false
}

// externalDependencies orders the first use of an attachment after earlier
// work on it, and later sampling after the last use.
func externalDependencies(cfg PassConfig, a int, st attachmentState) []backend.Dependency {
	if st.first < 0 {
		return nil
	}
	att := cfg.Attachments[a]
	depth := att.Kind == AttachmentDepthStencil
	var firstUse Use
	for _, u := range cfg.Subpasses[st.first].Uses {
		if u.Attachment == a {
			firstUse = u
		}
	}
	natural := usageOf(UsageColor, false).write
	if depth {
		natural = usageOf(UsageDepthStencil, true).write
	}
	info := usageOf(firstUse.Kind, depth)
	in := backend.Dependency{
		Src:       backend.SubpassExternal,
		Dst:       st.first,
		SrcStage:  natural.stage,
		DstStage:  info.read.stage | info.write.stage,
		DstAccess: info.read.access | info.write.access,
	}
	if att.KeepBefore {
		in.SrcAccess = natural.access
	}
	deps := []backend.Dependency{in}
	if att.Sampled && att.KeepAfter {
		deps = append(deps, backend.Dependency{
			Src:       st.last,
			Dst:       backend.SubpassExternal,
			SrcStage:  natural.stage,
			SrcAccess: natural.access,
			DstStage:  backend.StageFragmentShader,
			DstAccess: backend.AccessShaderRead,
		})
	}
	return deps
}

// mergeExternal merges external dependencies with the same endpoints.
func mergeExternal(deps []backend.Dependency) []backend.Dependency {
	var out []backend.Dependency
	for _, d := range deps {
		i := slices.IndexFunc(out, func(o backend.Dependency) bool { return o.Src == d.Src && o.Dst == d.Dst })
		if i < 0 {
			out = append(out, d)
			continue
		}
		out[i].SrcStage |= d.SrcStage
		out[i].DstStage |= d.DstStage
		out[i].SrcAccess |= d.SrcAccess
		out[i].DstAccess |= d.DstAccess
	}
	return out
}

// impliedVia reports whether need (i→j) is implied by a dependency already
// emitted for j from some k between i and j, chained with what k waits on i.
func impliedVia(emitted map[int]dependency, reach []map[int]dependency, i, j int, need dependency) bool {
	for k := i + 1; k < j; k++ {
		e, ok := emitted[k]
		if !ok {
			continue
		}
		p, ok := reach[k][i]
		if !ok {
			continue
		}
		if c, chained := chain(p, e); chained && c.covers(need) {
			return true
		}
	}
	return false
}

func setRef(refs *[]backend.AttachmentRef, slot int, ref backend.AttachmentRef) error {
	if slot < 0 {
		return coil.Errorf(coil.Validation, "plan pass", "slot %d out of range", slot)
	}
	for len(*refs) <= slot {
		*refs = append(*refs, backend.AttachmentRef{Attachment: backend.AttachmentUnused})
	}
	if (*refs)[slot].Attachment != backend.AttachmentUnused {
		return coil.Errorf(coil.Validation, "plan pass", "slot %d used twice", slot)
	}
	(*refs)[slot] = ref
	return nil
}

// Pass is a created render pass.
type Pass struct {
	id     uint64
	handle backend.RenderPass
	plan   *PassPlan
}

// CreatePass plans cfg and creates the render pass.
func (d *Device) CreatePass(bk *book.Book, cfg PassConfig) (*Pass, error) {
	plan, err := PlanPass(cfg)
	if err != nil {
		return nil, err
	}
	for i, a := range cfg.Attachments {
		if a.Kind == AttachmentDepthStencil {
			plan.Attachments[i].Format = d.props.DepthStencilFormat
		}
	}
	deps := append(slices.Clone(plan.Dependencies), plan.External...)
	h, err := d.dev.CreateRenderPass(backend.RenderPassDesc{
		Attachments:  plan.Attachments,
		Subpasses:    plan.Subpasses,
		Dependencies: deps,
	})
	if err != nil {
		return nil, coil.Wrap(coil.Resource, "create pass", err)
	}
	bk.Defer(func() { d.dev.DestroyRenderPass(h) })
	slogger().Debug("gpu: pass created",
		"attachments", len(plan.Attachments),
		"subpasses", len(plan.Subpasses),
		"dependencies", len(plan.Dependencies))
	return &Pass{id: d.newID(), handle: h, plan: plan}, nil
}

// Handle returns the backend render pass.
func (p *Pass) Handle() backend.RenderPass { return p.handle }

// Plan returns the derived pass description.
func (p *Pass) Plan() *PassPlan { return p.plan }

// Subpasses returns the number of subpasses.
func (p *Pass) Subpasses() int { return len(p.plan.Subpasses) }

// Framebuffer binds image views to the attachments of a pass.
type Framebuffer struct {
	handle backend.Framebuffer
	pass   *Pass
	views  []AttachmentView
	width  uint32
	height uint32
}

// CreateFramebuffer creates a framebuffer for pass with one view per
// attachment.
func (d *Device) CreateFramebuffer(bk *book.Book, pass *Pass, views []AttachmentView, width, height int) (*Framebuffer, error) {
	if len(views) != len(pass.plan.Attachments) {
		return nil, coil.Errorf(coil.Validation, "create framebuffer", "%d views for %d attachments", len(views), len(pass.plan.Attachments))
	}
	handles := make([]backend.ImageView, len(views))
	for i, v := range views {
		handles[i] = v.ImageView()
	}
	h, err := d.dev.CreateFramebuffer(backend.FramebufferDesc{
		Pass:   pass.handle,
		Views:  handles,
		Width:  uint32(width),
		Height: uint32(height),
	})
	if err != nil {
		return nil, coil.Wrap(coil.Resource, "create framebuffer", err)
	}
	bk.Defer(func() { d.dev.DestroyFramebuffer(h) })
	return &Framebuffer{handle: h, pass: pass, views: slices.Clone(views), width: uint32(width), height: uint32(height)}, nil
}

// Handle returns the backend framebuffer.
func (f *Framebuffer) Handle() backend.Framebuffer { return f.handle }

// Size returns the framebuffer extent.
func (f *Framebuffer) Size() (width, height int) { return int(f.width), int(f.height) }
