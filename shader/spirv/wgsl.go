package spirv

import (
	"encoding/binary"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"

	coil "github.com/quyse/coil-core-sub001"
)

// CompileWGSL compiles WGSL source with naga and reflects the result, so
// hand-written shaders can be used wherever DSL output is accepted.
// Entry point names are taken from the source.
func CompileWGSL(source string) (*Output, error) {
	bytes, err := naga.Compile(source)
	if err != nil {
		return nil, coil.Wrap(coil.Validation, "compile wgsl", err)
	}
	code := make([]uint32, len(bytes)/4)
	for i := range code {
		code[i] = binary.LittleEndian.Uint32(bytes[i*4:])
	}
	r, err := Decode(code)
	if err != nil {
		return nil, err
	}
	out := &Output{
		Code:    code,
		Entries: make(map[gputypes.ShaderStage]string),
		Layouts: r.Layouts(),
	}
	for _, e := range r.EntryPoints {
		if _, ok := out.Entries[e.Stage]; ok || e.Stage == gputypes.ShaderStageNone {
			continue
		}
		out.Entries[e.Stage] = e.Name
		out.Stages |= e.Stage
	}
	return out, nil
}
