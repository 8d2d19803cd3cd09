package gpu

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coil "github.com/quyse/coil-core-sub001"
	"github.com/quyse/coil-core-sub001/backend"
	"github.com/quyse/coil-core-sub001/format"
	"github.com/quyse/coil-core-sub001/shader"
)

// uniformOnlyProgram reads the camera uniform in both stages.
func uniformOnlyProgram() shader.Program {
	cam := shader.NewUniformBuffer(cameraType, 0, 0)
	pos := shader.NewAttribute(0, shader.TVec3)
	color := shader.NewFragment(0, shader.TVec4)
	return shader.Program{
		Vertex: shader.NewInterpolantBuiltin(shader.BuiltinPosition).Write(
			shader.Mul(cam.Field("viewProj"), shader.Vec(pos.Read(), shader.F(1)))),
		Fragment: color.Write(shader.Vec(cam.Field("tint"), shader.F(1))),
	}
}

func TestCreatePipelineLayoutSharesSetLayouts(t *testing.T) {
	f := newFrameFixture(t)
	textured, err := f.d.CompileShader(f.bk, texturedProgram())
	require.NoError(t, err)
	uniform, err := f.d.CompileShader(f.bk, uniformOnlyProgram())
	require.NoError(t, err)

	a, err := f.d.CreatePipelineLayout(f.bk, textured)
	require.NoError(t, err)
	b, err := f.d.CreatePipelineLayout(f.bk, uniform, textured)
	require.NoError(t, err)
	require.Len(t, a.Sets(), 2)
	assert.True(t, shader.LayoutsEqual(a.Sets(), b.Sets()))
	assert.Equal(t, a.setHandles, b.setHandles)
	assert.Equal(t, 2, f.rec.Live("descriptor set layout"))

	c, err := f.d.CreatePipelineLayout(f.bk, uniform)
	require.NoError(t, err)
	require.Len(t, c.Sets(), 1)
	assert.Equal(t, a.setHandles[0], c.setHandles[0])

	desc, ok := f.rec.SetLayout(a.setHandles[1])
	require.True(t, ok)
	assert.Equal(t, []backend.LayoutBinding{{
		Slot:   0,
		Type:   backend.DescriptorCombinedImageSampler,
		Count:  1,
		Stages: gputypes.ShaderStageFragment,
	}}, desc.Bindings)
}

func TestCreatePipeline(t *testing.T) {
	f := newFrameFixture(t)
	s, err := f.d.CompileShader(f.bk, texturedProgram())
	require.NoError(t, err)
	layout, err := f.d.CreatePipelineLayout(f.bk, s)
	require.NoError(t, err)

	blend := AlphaBlending
	p, err := f.d.CreatePipeline(f.bk, layout, f.pass, 0, s, s, PipelineConfig{
		DepthTest:    true,
		VertexLayout: texturedLayout,
		Attachments:  []AttachmentConfig{{Blending: &blend}},
	})
	require.NoError(t, err)
	assert.Equal(t, backend.BindGraphics, p.BindPoint())
	assert.Same(t, layout, p.Layout())

	desc, ok := f.rec.GraphicsPipeline(p.Handle())
	require.True(t, ok)
	assert.Equal(t, gputypes.CompareFunctionLess, desc.DepthCompare)
	require.Len(t, desc.Stages, 2)
	assert.Equal(t, gputypes.ShaderStageVertex, desc.Stages[0].Stage)
	assert.Equal(t, gputypes.ShaderStageFragment, desc.Stages[1].Stage)
	assert.Equal(t, []backend.VertexBinding{{Slot: 0, Stride: 20, Step: gputypes.VertexStepModeVertex}}, desc.Bindings)
	assert.Equal(t, []backend.VertexAttribute{
		{Location: 0, Slot: 0, Offset: 0, Format: backend.FormatR32G32B32Sfloat},
		{Location: 1, Slot: 0, Offset: 12, Format: backend.FormatR32G32Sfloat},
	}, desc.Attributes)
	require.Len(t, desc.Blends, 1)
	require.NotNil(t, desc.Blends[0])
	assert.Equal(t, gputypes.BlendFactorSrcAlpha, desc.Blends[0].Color.SrcFactor)
}

func TestCreatePipelineInstanceStep(t *testing.T) {
	f := newFrameFixture(t)
	p := f.pipeline(t, instancedProgram(), instancedLayout)
	desc, ok := f.rec.GraphicsPipeline(p.Handle())
	require.True(t, ok)
	require.Len(t, desc.Bindings, 2)
	assert.Equal(t, gputypes.VertexStepModeInstance, desc.Bindings[1].Step)
	assert.Equal(t, []*gputypes.BlendState{nil}, desc.Blends)
}

func TestCreatePipelineErrors(t *testing.T) {
	f := newFrameFixture(t)
	textured, err := f.d.CompileShader(f.bk, texturedProgram())
	require.NoError(t, err)
	uniform, err := f.d.CompileShader(f.bk, uniformOnlyProgram())
	require.NoError(t, err)
	compute, err := f.d.CompileShader(f.bk, matVecProgram())
	require.NoError(t, err)
	full, err := f.d.CreatePipelineLayout(f.bk, textured)
	require.NoError(t, err)
	small, err := f.d.CreatePipelineLayout(f.bk, uniform)
	require.NoError(t, err)

	oneAttribute := VertexLayout{
		Slots:      []VertexSlot{{Stride: 12}},
		Attributes: []VertexAttribute{{Slot: 0, Format: format.VertexVec3}},
	}
	tests := []struct {
		name    string
		layout  *PipelineLayout
		subpass int
		vs, fs  *Shader
		cfg     PipelineConfig
	}{
		{"subpass out of range", full, 1, textured, textured, PipelineConfig{VertexLayout: texturedLayout}},
		{"layout too small", small, 0, textured, textured, PipelineConfig{VertexLayout: texturedLayout}},
		{"no vertex entry", full, 0, compute, textured, PipelineConfig{VertexLayout: texturedLayout}},
		{"missing attribute", full, 0, textured, textured, PipelineConfig{VertexLayout: oneAttribute}},
		{"attribute slot", full, 0, textured, textured, PipelineConfig{VertexLayout: VertexLayout{
			Slots:      []VertexSlot{{Stride: 20}},
			Attributes: []VertexAttribute{{Slot: 0, Format: format.VertexVec3}, {Slot: 1, Format: format.VertexVec2}},
		}}},
		{"attachment count", full, 0, textured, textured, PipelineConfig{
			VertexLayout: texturedLayout,
			Attachments:  []AttachmentConfig{{}, {}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.d.CreatePipeline(f.bk, tt.layout, f.pass, tt.subpass, tt.vs, tt.fs, tt.cfg)
			assert.ErrorIs(t, err, coil.ErrValidation)
		})
	}
}

func TestCreateComputePipeline(t *testing.T) {
	d, _, bk := newTestDevice(t)
	cs, err := d.CompileShader(bk, matVecProgram())
	require.NoError(t, err)
	layout, err := d.CreatePipelineLayout(bk, cs)
	require.NoError(t, err)
	p, err := d.CreateComputePipeline(bk, layout, cs)
	require.NoError(t, err)
	assert.Equal(t, backend.BindCompute, p.BindPoint())

	vs, err := d.CompileShader(bk, uniformOnlyProgram())
	require.NoError(t, err)
	_, err = d.CreateComputePipeline(bk, layout, vs)
	assert.ErrorIs(t, err, coil.ErrValidation)
}
