package spirv

import (
	"slices"

	"github.com/gogpu/gputypes"
	spv "github.com/gogpu/naga/spirv"

	coil "github.com/quyse/coil-core-sub001"
	"github.com/quyse/coil-core-sub001/shader"
)

const storageClassStorageBuffer = 12

// EntryPoint is an entry point recovered from a module.
type EntryPoint struct {
	Name  string
	Stage gputypes.ShaderStage
}

// BindingInfo is a descriptor binding recovered from a module.
type BindingInfo struct {
	Set, Slot int
	Type      shader.BindingType
	Count     int
	// Stages is the mask of entry points whose code references the binding.
	Stages gputypes.ShaderStage
}

// Reflection is the interface of a SPIR-V module.
type Reflection struct {
	Version     uint32
	Bound       uint32
	EntryPoints []EntryPoint
	Bindings    []BindingInfo
}

// Layouts rebuilds the descriptor-set layout list from the bindings.
func (r *Reflection) Layouts() []shader.SetLayout {
	var layouts []shader.SetLayout
	for _, b := range r.Bindings {
		for len(layouts) <= b.Set {
			layouts = append(layouts, shader.SetLayout{})
		}
		layouts[b.Set].Set(b.Slot, shader.Binding{Type: b.Type, Count: b.Count, Stages: b.Stages})
	}
	return layouts
}

// Entry returns the name of the first entry point of stage.
func (r *Reflection) Entry(stage gputypes.ShaderStage) (string, bool) {
	for _, e := range r.EntryPoints {
		if e.Stage == stage {
			return e.Name, true
		}
	}
	return "", false
}

type decodedVar struct {
	class   uint32
	pointee uint32
	set     int
	slot    int
	hasSet  bool
	hasSlot bool
	stages  gputypes.ShaderStage
}

// Decode parses the entry points and descriptor bindings of a module.
func Decode(code []uint32) (*Reflection, error) {
	if len(code) < 5 || code[0] != spv.MagicNumber {
		return nil, coil.Errorf(coil.Validation, "decode", "not a SPIR-V module")
	}
	r := &Reflection{Version: code[1], Bound: code[3]}

	type typeInfo struct {
		op    spv.OpCode
		elem  uint32
		count uint32
	}
	types := make(map[uint32]typeInfo)
	pointers := make(map[uint32]uint32)
	constants := make(map[uint32]uint32)
	decorations := make(map[uint32][]spv.Decoration)
	vars := make(map[uint32]*decodedVar)
	var varOrder []uint32
	entryFns := make(map[uint32]gputypes.ShaderStage)
	sets := make(map[uint32]int)
	slots := make(map[uint32]int)
	var fnStage gputypes.ShaderStage
	type use struct {
		id    uint32
		stage gputypes.ShaderStage
	}
	var uses []use

	for i := 5; i < len(code); {
		count := int(code[i] >> 16)
		op := spv.OpCode(code[i] & 0xffff)
		if count == 0 || i+count > len(code) {
			return nil, coil.Errorf(coil.Validation, "decode", "truncated instruction at word %d", i)
		}
		w := code[i+1 : i+count]
		i += count

		switch op {
		case spv.OpEntryPoint:
			if len(w) < 3 {
				continue
			}
			name, _ := literalString(w[2:])
			stage := modelStage(spv.ExecutionModel(w[0]))
			r.EntryPoints = append(r.EntryPoints, EntryPoint{Name: name, Stage: stage})
			entryFns[w[1]] |= stage
		case spv.OpDecorate:
			if len(w) < 2 {
				continue
			}
			d := spv.Decoration(w[1])
			decorations[w[0]] = append(decorations[w[0]], d)
			switch {
			case d == spv.DecorationDescriptorSet && len(w) > 2:
				sets[w[0]] = int(w[2])
			case d == spv.DecorationBinding && len(w) > 2:
				slots[w[0]] = int(w[2])
			}
		case spv.OpConstant:
			if len(w) >= 3 {
				constants[w[1]] = w[2]
			}
		case spv.OpTypeStruct, opTypeImage, opTypeSampler:
			types[w[0]] = typeInfo{op: op}
		case opTypeSampledImage, spv.OpTypeRuntimeArray:
			types[w[0]] = typeInfo{op: op, elem: w[1]}
		case spv.OpTypeArray:
			types[w[0]] = typeInfo{op: op, elem: w[1], count: w[2]}
		case spv.OpTypePointer:
			pointers[w[0]] = w[2]
		case spv.OpVariable:
			if fnStage != 0 || len(w) < 3 {
				continue
			}
			vars[w[1]] = &decodedVar{class: w[2], pointee: pointers[w[0]]}
			varOrder = append(varOrder, w[1])
		case spv.OpFunction:
			fnStage = entryFns[w[1]]
			if fnStage == 0 {
				// Helper functions are attributed to every stage.
				fnStage = gputypes.ShaderStageVertex | gputypes.ShaderStageFragment | gputypes.ShaderStageCompute
			}
		case spv.OpFunctionEnd:
			fnStage = 0
		case spv.OpLoad, spv.OpAccessChain, opInBoundsAccessChain:
			if len(w) >= 3 {
				uses = append(uses, use{w[2], fnStage})
			}
		case spv.OpStore:
			if len(w) >= 1 {
				uses = append(uses, use{w[0], fnStage})
			}
		}
	}

	var present gputypes.ShaderStage
	for _, e := range r.EntryPoints {
		present |= e.Stage
	}
	for _, u := range uses {
		if v, ok := vars[u.id]; ok {
			v.stages |= u.stage & present
		}
	}

	for _, id := range varOrder {
		v := vars[id]
		set, hasSet := sets[id]
		slot, hasSlot := slots[id]
		if !hasSet || !hasSlot {
			continue
		}
		count := 1
		t := v.pointee
		for types[t].op == spv.OpTypeArray {
			count *= int(constants[types[t].count])
			t = types[t].elem
		}
		var bt shader.BindingType
		switch {
		case v.class == storageClassStorageBuffer:
			bt = shader.BindingStorageBuffer
		case v.class == uint32(spv.StorageClassUniform) && slices.Contains(decorations[t], decorationBufferBlock):
			bt = shader.BindingStorageBuffer
		case v.class == uint32(spv.StorageClassUniform):
			bt = shader.BindingUniformBuffer
		case v.class == uint32(spv.StorageClassUniformConstant) && types[t].op == opTypeSampledImage:
			bt = shader.BindingSampledImage
		default:
			continue
		}
		r.Bindings = append(r.Bindings, BindingInfo{Set: set, Slot: slot, Type: bt, Count: count, Stages: v.stages})
	}
	slices.SortFunc(r.Bindings, func(a, b BindingInfo) int {
		if a.Set != b.Set {
			return a.Set - b.Set
		}
		return a.Slot - b.Slot
	})
	return r, nil
}

func modelStage(m spv.ExecutionModel) gputypes.ShaderStage {
	switch m {
	case spv.ExecutionModelVertex:
		return gputypes.ShaderStageVertex
	case spv.ExecutionModelFragment:
		return gputypes.ShaderStageFragment
	case spv.ExecutionModelGLCompute:
		return gputypes.ShaderStageCompute
	}
	return gputypes.ShaderStageNone
}

// literalString decodes a nul-terminated string literal and returns it
// with the number of words it occupies.
func literalString(words []uint32) (string, int) {
	var b []byte
	for i, w := range words {
		for shift := 0; shift < 32; shift += 8 {
			c := byte(w >> shift)
			if c == 0 {
				return string(b), i + 1
			}
			b = append(b, c)
		}
	}
	return string(b), len(words)
}
