package gpu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quyse/coil-core-sub001/backend"
	"github.com/quyse/coil-core-sub001/backend/recorder"
	"github.com/quyse/coil-core-sub001/book"
	"github.com/quyse/coil-core-sub001/format"
	"github.com/quyse/coil-core-sub001/shader"
	"github.com/quyse/coil-core-sub001/surface"
)

var cameraType = shader.StructOf("Camera",
	shader.Field{Name: "viewProj", Type: shader.TMat4},
	shader.Field{Name: "tint", Type: shader.TVec3},
	shader.Field{Name: "scale", Type: shader.TFloat},
)

// cameraSize is the std140 size of cameraType.
const cameraSize = 80

// texturedProgram reads a camera uniform from set 0 and a texture from
// set 1.
func texturedProgram() shader.Program {
	cam := shader.NewUniformBuffer(cameraType, 0, 0)
	tex := shader.NewSampledImage(shader.Dim2D, 1, 0)
	pos := shader.NewAttribute(0, shader.TVec3)
	uvIn := shader.NewAttribute(1, shader.TVec2)
	uv := shader.NewInterpolant(0, shader.TVec2)
	color := shader.NewFragment(0, shader.TVec4)

	world := shader.Vec(pos.Read().Mul(cam.Field("scale")), shader.F(1))
	return shader.Program{
		Vertex: shader.Seq(
			shader.NewInterpolantBuiltin(shader.BuiltinPosition).Write(shader.Mul(cam.Field("viewProj"), world)),
			uv.Write(uvIn.Read()),
		),
		Fragment: color.Write(shader.Mul(tex.Sample(uv.Read()),
			shader.Vec(cam.Field("tint"), shader.F(1)))),
	}
}

var texturedLayout = VertexLayout{
	Slots: []VertexSlot{{Stride: 20}},
	Attributes: []VertexAttribute{
		{Slot: 0, Offset: 0, Format: format.VertexVec3},
		{Slot: 0, Offset: 12, Format: format.VertexVec2},
	},
}

// instancedProgram offsets every instance by a per-instance attribute.
func instancedProgram() shader.Program {
	pos := shader.NewAttribute(0, shader.TVec3)
	offset := shader.NewAttribute(1, shader.TVec4)
	color := shader.NewFragment(0, shader.TVec4)
	return shader.Program{
		Vertex: shader.NewInterpolantBuiltin(shader.BuiltinPosition).Write(
			shader.Add(shader.Vec(pos.Read(), shader.F(1)), offset.Read())),
		Fragment: color.Write(shader.Vec(shader.F(1), shader.F(0), shader.F(0), shader.F(1))),
	}
}

var instancedLayout = VertexLayout{
	Slots: []VertexSlot{{Stride: 12}, {Stride: 16, PerInstance: true}},
	Attributes: []VertexAttribute{
		{Slot: 0, Format: format.VertexVec3},
		{Slot: 1, Format: format.VertexVec4},
	},
}

// matVecProgram stores w*x into r.
func matVecProgram() shader.Program {
	buf := shader.NewStorageBuffer(shader.StructOf("MatVec",
		shader.Field{Name: "w", Type: shader.TMat4},
		shader.Field{Name: "x", Type: shader.TVec4},
		shader.Field{Name: "r", Type: shader.TVec4},
	), 0, 0)
	return shader.Program{
		Compute:   buf.Store("r", shader.Mul(buf.Field("w"), buf.Field("x"))),
		Workgroup: [3]uint32{1},
	}
}

func floatBytes(vals ...float32) []byte {
	var b []byte
	for _, v := range vals {
		b = binary.NativeEndian.AppendUint32(b, math.Float32bits(v))
	}
	return b
}

func camera(scale float32) []byte {
	b := floatBytes(
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
		1, 1, 1, scale,
	)
	return b[:cameraSize]
}

var swapchainFormat = format.Opaque(uint32(backend.FormatB8G8R8A8Unorm))

// frameFixture is a window device with a presenter rendering one
// single-subpass pass into the swapchain.
type frameFixture struct {
	d   *Device
	rec *recorder.Device
	bk  *book.Book
	win *surface.Headless

	pool       *Pool
	pass       *Pass
	p          *Presenter
	fbs        []*Framebuffer
	infos      []SwapchainInfo
	imageCalls int
}

func newFrameFixture(t *testing.T) *frameFixture {
	return newFrameFixtureConfig(t, recorderConfig())
}

func newFrameFixtureConfig(t *testing.T, cfg Config) *frameFixture {
	t.Helper()
	d, rec, bk, win := newWindowTestDevice(t, cfg, 64, 32)
	f := &frameFixture{d: d, rec: rec, bk: bk, win: win, pool: d.CreatePool(bk, 0)}

	screen := ColorAttachment(swapchainFormat, black)
	screen.KeepAfter = true
	var err error
	f.pass, err = d.CreatePass(bk, PassConfig{
		Attachments: []Attachment{screen},
		Subpasses:   []Subpass{{Uses: []Use{ColorUse(0, 0)}}},
	})
	require.NoError(t, err)

	f.p, err = d.CreatePresenter(bk, d.PresenterConfig(),
		func(_ *book.Book, info SwapchainInfo) error {
			f.infos = append(f.infos, info)
			f.fbs = nil
			return nil
		},
		func(sbk *book.Book, img *SwapchainImage) error {
			f.imageCalls++
			info := f.infos[len(f.infos)-1]
			fb, err := d.CreateFramebuffer(sbk, f.pass, []AttachmentView{img}, info.Width, info.Height)
			if err != nil {
				return err
			}
			f.fbs = append(f.fbs, fb)
			return nil
		})
	require.NoError(t, err)
	return f
}

func noDraw(int, *Context) error { return nil }

// frame renders one frame with body as the only subpass.
func (f *frameFixture) frame(t *testing.T, body func(subpass int, ctx *Context) error) {
	t.Helper()
	fr, err := f.p.StartFrame()
	require.NoError(t, err)
	require.NoError(t, fr.Pass(f.pass, f.fbs[fr.Image().Index()], body))
	require.NoError(t, fr.EndFrame())
}

// lastCommands returns the commands of the latest submission.
func (f *frameFixture) lastCommands(t *testing.T) []recorder.Command {
	t.Helper()
	subs := submissions(f.rec)
	require.NotEmpty(t, subs)
	return subs[len(subs)-1].Commands[0]
}

func (f *frameFixture) pipeline(t *testing.T, p shader.Program, layout VertexLayout) *Pipeline {
	t.Helper()
	s, err := f.d.CompileShader(f.bk, p)
	require.NoError(t, err)
	pl, err := f.d.CreatePipelineLayout(f.bk, s)
	require.NoError(t, err)
	pipeline, err := f.d.CreatePipeline(f.bk, pl, f.pass, 0, s, s, PipelineConfig{
		Viewport:     backend.Viewport{Width: 64, Height: 32},
		VertexLayout: layout,
	})
	require.NoError(t, err)
	return pipeline
}

func (f *frameFixture) triangle(t *testing.T, stride int) *Mesh {
	t.Helper()
	m, err := f.d.CreateMesh(f.bk, f.pool, make([]byte, 3*stride), 3, []uint32{0, 1, 2})
	require.NoError(t, err)
	return m
}

func (f *frameFixture) texture(t *testing.T) *Image {
	t.Helper()
	img, err := f.d.CreateImage(f.bk, f.pool, format.ImageFormat{Pixel: format.RGBA8, Width: 4, Height: 4, MipLevels: 1})
	require.NoError(t, err)
	return img
}
