package gpu

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coil "github.com/quyse/coil-core-sub001"
	"github.com/quyse/coil-core-sub001/backend"
	"github.com/quyse/coil-core-sub001/format"
)

var (
	colorToInput = backend.Dependency{
		SrcStage:  backend.StageColorAttachmentOutput,
		SrcAccess: backend.AccessColorAttachmentWrite,
		DstStage:  backend.StageFragmentShader,
		DstAccess: backend.AccessInputAttachmentRead,
		ByRegion:  true,
	}
	black = gputypes.Color{A: 1}
)

func dep(src, dst int, d backend.Dependency) backend.Dependency {
	d.Src, d.Dst = src, dst
	return d
}

// A color attachment written in the first subpass and read as an input in
// the second needs exactly one dependency, and the depth buffer used only
// by the first subpass is not preserved.
func TestPlanPassInputDependency(t *testing.T) {
	plan, err := PlanPass(PassConfig{
		Attachments: []Attachment{
			ColorAttachment(format.RGBA8, black),
			DepthStencilAttachment(1, 0),
			ColorAttachment(format.RGBA8, black),
		},
		Subpasses: []Subpass{
			{Uses: []Use{ColorUse(0, 0), DepthStencilUse(1)}},
			{Uses: []Use{InputUse(0, 0), ColorUse(2, 0)}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []backend.Dependency{dep(0, 1, colorToInput)}, plan.Dependencies)
	assert.Empty(t, plan.Subpasses[1].Preserve)
	assert.Empty(t, plan.Subpasses[0].Preserve)

	assert.Equal(t, []backend.AttachmentRef{{Attachment: 0, Layout: backend.LayoutShaderReadOnlyOptimal}}, plan.Subpasses[1].Inputs)
	require.NotNil(t, plan.Subpasses[0].DepthStencil)
	assert.Equal(t, backend.LayoutDepthStencilAttachmentOptimal, plan.Subpasses[0].DepthStencil.Layout)
}

// Dependencies implied through an intermediate subpass are not emitted.
func TestPlanPassTransitiveMinimality(t *testing.T) {
	plan, err := PlanPass(PassConfig{
		Attachments: []Attachment{
			ColorAttachment(format.RGBA8, black),
			ColorAttachment(format.RGBA8, black),
			ColorAttachment(format.RGBA8, black),
		},
		Subpasses: []Subpass{
			{Uses: []Use{ColorUse(0, 0)}},
			{Uses: []Use{InputUse(0, 0), ColorUse(1, 0)}},
			{Uses: []Use{InputUse(0, 0), InputUse(1, 1), ColorUse(2, 0)}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []backend.Dependency{
		dep(0, 1, colorToInput),
		dep(1, 2, colorToInput),
	}, plan.Dependencies)
}

// Without an intermediate dependency both direct dependencies are needed,
// and the attachment skipped by the middle subpass is preserved there.
func TestPlanPassPreserve(t *testing.T) {
	plan, err := PlanPass(PassConfig{
		Attachments: []Attachment{
			ColorAttachment(format.RGBA8, black),
			ColorAttachment(format.RGBA8, black),
			ColorAttachment(format.RGBA8, black),
		},
		Subpasses: []Subpass{
			{Uses: []Use{ColorUse(0, 0)}},
			{Uses: []Use{ColorUse(1, 0)}},
			{Uses: []Use{InputUse(0, 0), InputUse(1, 1), ColorUse(2, 0)}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []backend.Dependency{
		dep(0, 2, colorToInput),
		dep(1, 2, colorToInput),
	}, plan.Dependencies)
	assert.Equal(t, []int{0}, plan.Subpasses[1].Preserve)
	assert.Empty(t, plan.Subpasses[2].Preserve)
}

func TestPlanPassWriteAfterRead(t *testing.T) {
	a := ColorAttachment(format.RGBA8, black)
	a.KeepBefore = true
	plan, err := PlanPass(PassConfig{
		Attachments: []Attachment{a, ColorAttachment(format.RGBA8, black)},
		Subpasses: []Subpass{
			{Uses: []Use{ShaderUse(0), ColorUse(1, 0)}},
			{Uses: []Use{ColorUse(0, 0)}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []backend.Dependency{{
		Src: 0, Dst: 1,
		SrcStage: backend.StageVertexShader | backend.StageFragmentShader,
		DstStage: backend.StageColorAttachmentOutput,
		ByRegion: true,
	}}, plan.Dependencies)
	// Sampled attachments are referenced as trailing inputs.
	assert.Equal(t, []backend.AttachmentRef{{Attachment: 0, Layout: backend.LayoutShaderReadOnlyOptimal}}, plan.Subpasses[0].Inputs)
}

// Initial layouts follow keepBefore, final layouts are the last layout of
// the pass, and the presentation layout never appears.
func TestPlanPassLayouts(t *testing.T) {
	keep := ColorAttachment(format.RGBA8, black)
	keep.KeepBefore, keep.KeepAfter = true, true
	sampled := ColorAttachment(format.RGBA8, black)
	sampled.KeepAfter, sampled.Sampled = true, true
	depth := DepthStencilAttachment(1, 0)
	depth.KeepAfter = true
	unused := ColorAttachment(format.R8, black)

	cfg := PassConfig{
		Attachments: []Attachment{keep, sampled, depth, unused},
		Subpasses: []Subpass{
			{Uses: []Use{ColorUse(0, 0), ColorUse(1, 1), DepthStencilUse(2)}},
			{Uses: []Use{InputUse(2, 0), ColorUse(0, 0)}},
		},
	}
	plan, err := PlanPass(cfg)
	require.NoError(t, err)

	want := []struct {
		initial, final backend.ImageLayout
		load           backend.LoadOp
		store          backend.StoreOp
	}{
		{backend.LayoutColorAttachmentOptimal, backend.LayoutColorAttachmentOptimal, backend.LoadOpLoad, backend.StoreOpStore},
		{backend.LayoutUndefined, backend.LayoutShaderReadOnlyOptimal, backend.LoadOpClear, backend.StoreOpStore},
		{backend.LayoutUndefined, backend.LayoutDepthStencilReadOnlyOptimal, backend.LoadOpClear, backend.StoreOpStore},
		{backend.LayoutUndefined, backend.LayoutColorAttachmentOptimal, backend.LoadOpClear, backend.StoreOpDontCare},
	}
	for i, w := range want {
		a := plan.Attachments[i]
		assert.Equal(t, w.initial, a.Initial, "attachment %d initial", i)
		assert.Equal(t, w.final, a.Final, "attachment %d final", i)
		assert.Equal(t, w.load, a.Load, "attachment %d load", i)
		assert.Equal(t, w.store, a.Store, "attachment %d store", i)
	}
	assert.Equal(t, backend.LoadOpClear, plan.Attachments[2].StencilLoad)
	assert.Equal(t, backend.LoadOpDontCare, plan.Attachments[0].StencilLoad)
	assert.Equal(t, backend.ClearValue{Depth: 1, DepthStencil: true}, plan.Clears[2])

	for i, a := range plan.Attachments {
		assert.NotEqual(t, backend.LayoutPresentSrc, a.Initial, "attachment %d", i)
		assert.NotEqual(t, backend.LayoutPresentSrc, a.Final, "attachment %d", i)
	}
	for j, sp := range plan.Subpasses {
		for _, r := range append(append([]backend.AttachmentRef(nil), sp.Colors...), sp.Inputs...) {
			assert.NotEqual(t, backend.LayoutPresentSrc, r.Layout, "subpass %d", j)
		}
	}

	// The sampled attachment is made visible to later fragment shaders.
	assert.Contains(t, plan.External, backend.Dependency{
		Src: 0, Dst: backend.SubpassExternal,
		SrcStage:  backend.StageColorAttachmentOutput,
		SrcAccess: backend.AccessColorAttachmentWrite,
		DstStage:  backend.StageFragmentShader,
		DstAccess: backend.AccessShaderRead,
	})
}

func TestPlanPassExternalIn(t *testing.T) {
	keep := ColorAttachment(format.RGBA8, black)
	keep.KeepBefore = true
	plan, err := PlanPass(PassConfig{
		Attachments: []Attachment{keep, ColorAttachment(format.RGBA8, black)},
		Subpasses: []Subpass{
			{Uses: []Use{ColorUse(1, 0)}},
			{Uses: []Use{ShaderUse(0), ColorUse(1, 0)}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []backend.Dependency{
		{
			Src: backend.SubpassExternal, Dst: 1,
			SrcStage:  backend.StageColorAttachmentOutput,
			SrcAccess: backend.AccessColorAttachmentWrite,
			DstStage:  backend.StageVertexShader | backend.StageFragmentShader,
			DstAccess: backend.AccessShaderRead,
		},
		{
			Src: backend.SubpassExternal, Dst: 0,
			SrcStage:  backend.StageColorAttachmentOutput,
			DstStage:  backend.StageColorAttachmentOutput,
			DstAccess: backend.AccessColorAttachmentRead | backend.AccessColorAttachmentWrite,
		},
	}, plan.External)
	assert.Equal(t, []backend.Dependency{{
		Src: 0, Dst: 1,
		SrcStage:  backend.StageColorAttachmentOutput,
		SrcAccess: backend.AccessColorAttachmentWrite,
		DstStage:  backend.StageColorAttachmentOutput,
		DstAccess: backend.AccessColorAttachmentRead | backend.AccessColorAttachmentWrite,
		ByRegion:  true,
	}}, plan.Dependencies)
}

func TestPlanPassErrors(t *testing.T) {
	color := ColorAttachment(format.RGBA8, black)
	depth := DepthStencilAttachment(1, 0)
	tests := []struct {
		name string
		cfg  PassConfig
	}{
		{"no subpasses", PassConfig{Attachments: []Attachment{color}}},
		{"out of range", PassConfig{Attachments: []Attachment{color}, Subpasses: []Subpass{{Uses: []Use{ColorUse(1, 0)}}}}},
		{"used twice", PassConfig{Attachments: []Attachment{color}, Subpasses: []Subpass{{Uses: []Use{ColorUse(0, 0), ColorUse(0, 1)}}}}},
		{"two depth-stencil", PassConfig{Attachments: []Attachment{depth, depth}, Subpasses: []Subpass{{Uses: []Use{DepthStencilUse(0), DepthStencilUse(1)}}}}},
		{"depth as color", PassConfig{Attachments: []Attachment{depth}, Subpasses: []Subpass{{Uses: []Use{ColorUse(0, 0)}}}}},
		{"color as depth", PassConfig{Attachments: []Attachment{color}, Subpasses: []Subpass{{Uses: []Use{DepthStencilUse(0)}}}}},
		{"slot twice", PassConfig{Attachments: []Attachment{color, color}, Subpasses: []Subpass{{Uses: []Use{ColorUse(0, 0), ColorUse(1, 0)}}}}},
		{"read without contents", PassConfig{Attachments: []Attachment{color}, Subpasses: []Subpass{{Uses: []Use{InputUse(0, 0)}}}}},
		{"bad format", PassConfig{Attachments: []Attachment{ColorAttachment(format.Compressed(format.BC4, true), black)}, Subpasses: []Subpass{{Uses: []Use{ColorUse(0, 0)}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PlanPass(tt.cfg)
			assert.ErrorIs(t, err, coil.ErrValidation)
		})
	}
}

func TestCreatePass(t *testing.T) {
	d, rec, bk := newTestDevice(t)
	pass, err := d.CreatePass(bk, PassConfig{
		Attachments: []Attachment{ColorAttachment(format.RGBA8, black), DepthStencilAttachment(1, 0)},
		Subpasses:   []Subpass{{Uses: []Use{ColorUse(0, 0), DepthStencilUse(1)}}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, pass.Subpasses())

	desc, ok := rec.RenderPass(pass.Handle())
	require.True(t, ok)
	assert.Equal(t, backend.FormatR8G8B8A8Unorm, desc.Attachments[0].Format)
	assert.Equal(t, backend.FormatD24UnormS8Uint, desc.Attachments[1].Format)
	assert.Len(t, desc.Dependencies, len(pass.Plan().Dependencies)+len(pass.Plan().External))

	color, err := d.CreateRenderImage(bk, d.CreatePool(bk, 0), format.RGBA8, 16, 16, false)
	require.NoError(t, err)
	_, err = d.CreateFramebuffer(bk, pass, []AttachmentView{color}, 16, 16)
	assert.ErrorIs(t, err, coil.ErrValidation)
}
