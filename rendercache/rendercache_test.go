package rendercache

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coil "github.com/quyse/coil-core-sub001"
	"github.com/quyse/coil-core-sub001/backend"
	_ "github.com/quyse/coil-core-sub001/backend/recorder"
	"github.com/quyse/coil-core-sub001/book"
	"github.com/quyse/coil-core-sub001/format"
	"github.com/quyse/coil-core-sub001/gpu"
	"github.com/quyse/coil-core-sub001/shader"
)

// fakeContext logs every call it receives.
type fakeContext struct {
	calls   []string
	uniform [][]byte
	data    [][]byte
	failOn  string
}

func (c *fakeContext) log(call string) error {
	c.calls = append(c.calls, call)
	if c.failOn != "" && call == c.failOn {
		return coil.Errorf(coil.Validation, "fake", "%s failed", call)
	}
	return nil
}

func (c *fakeContext) BindPipeline(p *gpu.Pipeline) error {
	return c.log(fmt.Sprintf("pipeline %d", p.ID()))
}

func (c *fakeContext) BindMesh(m *gpu.Mesh) error {
	return c.log(fmt.Sprintf("mesh %d", m.ID()))
}

func (c *fakeContext) BindUniformBuffer(set, slot int, data []byte) error {
	c.uniform = append(c.uniform, append([]byte(nil), data...))
	return c.log(fmt.Sprintf("uniform %d/%d", set, slot))
}

func (c *fakeContext) BindImage(set, slot int, img *gpu.Image, _ *gpu.Sampler) error {
	return c.log(fmt.Sprintf("image %d/%d %d", set, slot, img.ID()))
}

func (c *fakeContext) AddInstanceData(slot int, data []byte) {
	c.data = append(c.data, append([]byte(nil), data...))
	_ = c.log(fmt.Sprintf("instance %d", slot))
}

func (c *fakeContext) EndInstance() error { return c.log("end") }

func (c *fakeContext) Flush() error { return c.log("flush") }

// objects creates pipelines, meshes and images in creation order, so their
// ids increase in that order.
type objects struct {
	d    *gpu.Device
	bk   *book.Book
	pool *gpu.Pool
}

func newObjects(t *testing.T) *objects {
	t.Helper()
	cfg := gpu.DefaultConfig()
	cfg.Backend = backend.NameRecorder
	bk := book.New()
	t.Cleanup(bk.Free)
	d, err := gpu.NewDevice(bk, cfg)
	require.NoError(t, err)
	return &objects{d: d, bk: bk, pool: d.CreatePool(bk, 0)}
}

func (o *objects) pipeline(t *testing.T) *gpu.Pipeline {
	t.Helper()
	buf := shader.NewStorageBuffer(shader.StructOf("Data",
		shader.Field{Name: "x", Type: shader.TVec4},
		shader.Field{Name: "r", Type: shader.TVec4},
	), 0, 0)
	s, err := o.d.CompileShader(o.bk, shader.Program{
		Compute:   buf.Store("r", buf.Field("x")),
		Workgroup: [3]uint32{1},
	})
	require.NoError(t, err)
	layout, err := o.d.CreatePipelineLayout(o.bk, s)
	require.NoError(t, err)
	p, err := o.d.CreateComputePipeline(o.bk, layout, s)
	require.NoError(t, err)
	return p
}

func (o *objects) mesh(t *testing.T) *gpu.Mesh {
	t.Helper()
	m, err := o.d.CreateMesh(o.bk, o.pool, make([]byte, 36), 3, nil)
	require.NoError(t, err)
	return m
}

func (o *objects) image(t *testing.T) *gpu.Image {
	t.Helper()
	img, err := o.d.CreateImage(o.bk, o.pool, format.ImageFormat{Pixel: format.RGBA8, Width: 4, Height: 4, MipLevels: 1})
	require.NoError(t, err)
	return img
}

func pipelineCall(p *gpu.Pipeline) string { return fmt.Sprintf("pipeline %d", p.ID()) }
func meshCall(m *gpu.Mesh) string         { return fmt.Sprintf("mesh %d", m.ID()) }

func TestFlushBindsSharedStateOnce(t *testing.T) {
	o := newObjects(t)
	p1 := o.pipeline(t)
	m1, m2 := o.mesh(t), o.mesh(t)

	rc := New()
	rc.Render(Tuple{PipelineKnob{p1}, MeshKnob{m1}})
	rc.Render(Tuple{PipelineKnob{p1}, MeshKnob{m2}})
	rc.Render(Tuple{PipelineKnob{p1}, MeshKnob{m1}})
	require.Equal(t, 3, rc.Len())

	ctx := &fakeContext{}
	require.NoError(t, rc.Flush(ctx))
	assert.Equal(t, []string{
		pipelineCall(p1), meshCall(m1), "end",
		"end",
		meshCall(m2), "end",
		"flush",
	}, ctx.calls)
	assert.Zero(t, rc.Len())
}

// probe is a knob applying its name.
type probe struct {
	key  int64
	name string
}

func (p probe) Key() Key { return Int(p.key) }

func (p probe) Apply(ctx Context) error {
	return ctx.(*fakeContext).log(p.name)
}

func (p probe) ApplyDiff(ctx Context, _ Knob) (bool, error) { return true, p.Apply(ctx) }

func TestFlushIsStable(t *testing.T) {
	rc := New()
	for i, key := range []int64{2, 1, 2, -5, 1, 2} {
		rc.Render(probe{key: key, name: fmt.Sprint(i)})
	}
	ctx := &fakeContext{}
	require.NoError(t, rc.Flush(ctx))
	assert.Equal(t, []string{
		"3", "end", "1", "end", "4", "end", "0", "end", "2", "end", "5", "end", "flush",
	}, ctx.calls)
}

func TestTupleReappliesAfterFirstChange(t *testing.T) {
	o := newObjects(t)
	p := o.pipeline(t)
	m1, m2 := o.mesh(t), o.mesh(t)
	img := o.image(t)
	s, err := o.d.CreateSampler(gpu.SamplerConfig{})
	require.NoError(t, err)
	imageCall := fmt.Sprintf("image 1/0 %d", img.ID())

	rc := New()
	rc.Render(Tuple{PipelineKnob{p}, MeshKnob{m2}, ImageKnob{Set: 1, Image: img, Sampler: s}})
	rc.Render(Tuple{PipelineKnob{p}, MeshKnob{m1}, ImageKnob{Set: 1, Image: img, Sampler: s}})
	rc.Render(Tuple{PipelineKnob{p}, MeshKnob{m1}, ImageKnob{Set: 1, Image: img, Sampler: s}})

	ctx := &fakeContext{}
	require.NoError(t, rc.Flush(ctx))
	assert.Equal(t, []string{
		pipelineCall(p), meshCall(m1), imageCall, "end",
		"end",
		meshCall(m2), imageCall, "end",
		"flush",
	}, ctx.calls)
}

func TestImageKnobComparesSamplerHandles(t *testing.T) {
	o := newObjects(t)
	img := o.image(t)
	a, err := o.d.CreateSampler(gpu.SamplerConfig{})
	require.NoError(t, err)
	b, err := o.d.CreateSampler(gpu.SamplerConfig{})
	require.NoError(t, err)

	ctx := &fakeContext{}
	changed, err := ImageKnob{Image: img, Sampler: b}.ApplyDiff(ctx, ImageKnob{Image: img, Sampler: a})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, ctx.calls)
}

func TestOrderKnob(t *testing.T) {
	o := newObjects(t)
	p1, p2 := o.pipeline(t), o.pipeline(t)

	rc := New()
	rc.Render(Tuple{OrderKnob[string]{"ui"}, PipelineKnob{p1}})
	rc.Render(Tuple{OrderKnob[string]{"opaque"}, PipelineKnob{p2}})
	rc.Render(Tuple{OrderKnob[string]{"opaque"}, PipelineKnob{p1}})

	ctx := &fakeContext{}
	require.NoError(t, rc.Flush(ctx))
	assert.Equal(t, []string{
		pipelineCall(p1), "end",
		pipelineCall(p2), "end",
		pipelineCall(p1), "end",
		"flush",
	}, ctx.calls)
}

func TestVariant(t *testing.T) {
	o := newObjects(t)
	p := o.pipeline(t)
	m := o.mesh(t)

	rc := New()
	rc.Render(Variant{Tag: 1, Knob: MeshKnob{m}})
	rc.Render(Variant{Tag: 0, Knob: PipelineKnob{p}})
	rc.Render(Variant{Tag: 1, Knob: MeshKnob{m}})

	ctx := &fakeContext{}
	require.NoError(t, rc.Flush(ctx))
	assert.Equal(t, []string{
		pipelineCall(p), "end",
		meshCall(m), "end",
		"end",
		"flush",
	}, ctx.calls)
}

func TestInstanceData(t *testing.T) {
	o := newObjects(t)
	p := o.pipeline(t)
	m := o.mesh(t)

	rc := New()
	for i := range 3 {
		rc.Render(Tuple{PipelineKnob{p}, MeshKnob{m}, NewInstanceData(1, [2]uint32{uint32(i), 7})})
	}
	ctx := &fakeContext{}
	require.NoError(t, rc.Flush(ctx))
	assert.Equal(t, []string{
		pipelineCall(p), meshCall(m), "instance 1", "end",
		"instance 1", "end",
		"instance 1", "end",
		"flush",
	}, ctx.calls)
	require.Len(t, ctx.data, 3)
	for i, d := range ctx.data {
		require.Len(t, d, 8)
		assert.EqualValues(t, i, binary.NativeEndian.Uint32(d))
		assert.EqualValues(t, 7, binary.NativeEndian.Uint32(d[4:]))
	}
}

func TestUniformBufferKnobKeyedByAddress(t *testing.T) {
	type params struct{ Scale, Bias float32 }
	a := &params{Scale: 1}
	b := &params{Scale: 2}

	rc := New()
	rc.Render(UniformBufferKnob[params]{Data: a})
	rc.Render(UniformBufferKnob[params]{Data: b})
	rc.Render(UniformBufferKnob[params]{Data: a})
	a.Bias = 3

	ctx := &fakeContext{}
	require.NoError(t, rc.Flush(ctx))
	// a and b sort by address, so only the counts are fixed.
	counts := make(map[string]int)
	for _, c := range ctx.calls {
		counts[c]++
	}
	assert.Equal(t, map[string]int{"uniform 0/0": 2, "end": 3, "flush": 1}, counts)
	require.Len(t, ctx.uniform, 2)
	assert.Contains(t, ctx.uniform, bytesOf(a))
	assert.Contains(t, ctx.uniform, bytesOf(b))
}

func TestFlushError(t *testing.T) {
	o := newObjects(t)
	p := o.pipeline(t)
	m1, m2 := o.mesh(t), o.mesh(t)

	rc := New()
	rc.Render(Tuple{PipelineKnob{p}, MeshKnob{m1}})
	rc.Render(Tuple{PipelineKnob{p}, MeshKnob{m2}})

	ctx := &fakeContext{failOn: meshCall(m2)}
	err := rc.Flush(ctx)
	assert.ErrorIs(t, err, coil.ErrValidation)
	assert.NotContains(t, ctx.calls, "flush")
	assert.Zero(t, rc.Len())
}

func TestFlushEmpty(t *testing.T) {
	ctx := &fakeContext{}
	require.NoError(t, New().Flush(ctx))
	assert.Equal(t, []string{"flush"}, ctx.calls)
}

func TestReset(t *testing.T) {
	rc := New()
	rc.Render(probe{name: "dropped"})
	rc.Reset()
	ctx := &fakeContext{}
	require.NoError(t, rc.Flush(ctx))
	assert.Equal(t, []string{"flush"}, ctx.calls)
}
