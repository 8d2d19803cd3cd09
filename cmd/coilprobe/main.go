// Command coilprobe opens a graphics device, prints what it found and
// runs a compute self-test on it.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"

	coil "github.com/quyse/coil-core-sub001"
	_ "github.com/quyse/coil-core-sub001/backend/recorder"
	_ "github.com/quyse/coil-core-sub001/backend/vulkan"
	"github.com/quyse/coil-core-sub001/book"
	"github.com/quyse/coil-core-sub001/gpu"
	"github.com/quyse/coil-core-sub001/shader"
)

func main() {
	var (
		config     = flag.String("config", "", "TOML or YAML device config")
		driver     = flag.String("backend", "", "driver name (default: best available)")
		validation = flag.Bool("validation", false, "enable driver validation layers")
		verbose    = flag.Bool("v", false, "debug logging")
		compute    = flag.Bool("compute", true, "run the compute self-test")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	coil.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := gpu.DefaultConfig()
	if *config != "" {
		var err error
		if cfg, err = gpu.LoadConfig(*config); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *driver != "" {
		cfg.Backend = *driver
	}
	cfg.Validation = cfg.Validation || *validation
	cfg.AppName = "coilprobe"

	bk := book.New()
	defer bk.Free()
	d, err := gpu.NewDevice(bk, cfg)
	if err != nil {
		log.Fatalf("Failed to open device: %v", err)
	}
	printProperties(d)

	if *compute {
		r, err := matVec(bk, d)
		if err != nil {
			log.Fatalf("Compute self-test failed: %v", err)
		}
		fmt.Printf("compute: 2*I * (1 2 3 4) = %v\n", r)
	}
}

func printProperties(d *gpu.Device) {
	p := d.Properties()
	fmt.Printf("adapter: %s (%s)\n", p.Adapter.Name, p.Adapter.Type)
	fmt.Printf("depth/stencil format: %d\n", p.DepthStencilFormat)
	fmt.Printf("uniform alignment: %d, storage alignment: %d, atom: %d, max 2D: %d\n",
		p.Limits.MinUniformBufferOffsetAlignment, p.Limits.MinStorageBufferOffsetAlignment,
		p.Limits.NonCoherentAtomSize, p.Limits.MaxImageDimension2D)
	for i, t := range p.MemoryTypes {
		fmt.Printf("memory type %d: flags %#x heap %d\n", i, uint32(t.Flags), t.Heap)
	}
}

// matVec multiplies a doubled identity matrix by (1, 2, 3, 4) on the GPU.
func matVec(bk *book.Book, d *gpu.Device) ([]float32, error) {
	buf := shader.NewStorageBuffer(shader.StructOf("MatVec",
		shader.Field{Name: "w", Type: shader.TMat4},
		shader.Field{Name: "x", Type: shader.TVec4},
		shader.Field{Name: "r", Type: shader.TVec4},
	), 0, 0)
	cs, err := d.CompileShader(bk, shader.Program{
		Compute:   buf.Store("r", shader.Mul(buf.Field("w"), buf.Field("x"))),
		Workgroup: [3]uint32{1},
	})
	if err != nil {
		return nil, err
	}
	layout, err := d.CreatePipelineLayout(bk, cs)
	if err != nil {
		return nil, err
	}
	pipeline, err := d.CreateComputePipeline(bk, layout, cs)
	if err != nil {
		return nil, err
	}
	sb, err := d.CreateStorageBuffer(bk, d.CreatePool(bk, 0), 96)
	if err != nil {
		return nil, err
	}
	var input []byte
	for _, v := range []float32{2, 0, 0, 0, 0, 2, 0, 0, 0, 0, 2, 0, 0, 0, 0, 2, 1, 2, 3, 4} {
		input = binary.NativeEndian.AppendUint32(input, math.Float32bits(v))
	}
	if err := sb.Write(0, input); err != nil {
		return nil, err
	}

	c, err := d.CreateComputer(bk)
	if err != nil {
		return nil, err
	}
	ctx, err := c.Begin()
	if err != nil {
		return nil, err
	}
	if err := ctx.BindPipeline(pipeline); err != nil {
		return nil, err
	}
	if err := ctx.BindStorageBuffer(0, 0, sb); err != nil {
		return nil, err
	}
	if err := ctx.Dispatch(1, 1, 1); err != nil {
		return nil, err
	}
	if err := c.Run(); err != nil {
		return nil, err
	}

	out := sb.Read()[80:96]
	r := make([]float32, 4)
	for i := range r {
		r[i] = math.Float32frombits(binary.NativeEndian.Uint32(out[i*4:]))
	}
	return r, nil
}
