package spirv

import (
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/quyse/coil-core-sub001/shader"
)

const blitWGSL = `
struct Params {
    scale: vec4<f32>,
}

@group(0) @binding(0) var<uniform> params: Params;

@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> @builtin(position) vec4<f32> {
    let x = f32(idx & 1u) * 2.0 - 1.0;
    let y = f32(idx >> 1u) * 2.0 - 1.0;
    return vec4<f32>(x, y, 0.0, 1.0) * params.scale;
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return params.scale;
}
`

func TestCompileWGSL(t *testing.T) {
	out, err := CompileWGSL(blitWGSL)
	if err != nil {
		t.Fatalf("CompileWGSL() error = %v", err)
	}
	if out.Entry(gputypes.ShaderStageVertex) != "vs_main" {
		t.Errorf("vertex entry = %q, want vs_main", out.Entry(gputypes.ShaderStageVertex))
	}
	if out.Entry(gputypes.ShaderStageFragment) != "fs_main" {
		t.Errorf("fragment entry = %q, want fs_main", out.Entry(gputypes.ShaderStageFragment))
	}
	if len(out.Layouts) != 1 {
		t.Fatalf("len(Layouts) = %d, want 1", len(out.Layouts))
	}
	if b := out.Layouts[0].Binding(0); b.Type != shader.BindingUniformBuffer || b.Count != 1 {
		t.Errorf("binding 0 = %+v, want one uniform buffer", b)
	}
}

func TestCompileWGSLSyntaxError(t *testing.T) {
	if _, err := CompileWGSL("fn broken( {"); err == nil {
		t.Error("CompileWGSL(broken) error = nil")
	}
}
