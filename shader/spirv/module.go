package spirv

import (
	"fmt"

	spv "github.com/gogpu/naga/spirv"

	"github.com/quyse/coil-core-sub001/shader"
)

// Opcodes and decorations not exported by the naga encoder.
const (
	opConstantTrue           spv.OpCode = 41
	opConstantFalse          spv.OpCode = 42
	opTypeImage              spv.OpCode = 25
	opTypeSampler            spv.OpCode = 26
	opTypeSampledImage       spv.OpCode = 27
	opSampledImage           spv.OpCode = 86
	opImageSampleImplicitLod spv.OpCode = 87
	opImageSampleExplicitLod spv.OpCode = 88
	opDot                    spv.OpCode = 148
	opInBoundsAccessChain    spv.OpCode = 66

	decorationBufferBlock spv.Decoration = 3

	imageOperandsLod = 0x2
)

// Version1_0 is the SPIR-V version word emitted in module headers.
const Version1_0 = 0x00010000

// layoutNone marks types that carry no explicit layout decorations.
const layoutNone shader.MemoryLayout = 255

// module accumulates instructions in logical layout order.
type module struct {
	ib    *spv.InstructionBuilder
	bound uint32

	capabilities []spv.Instruction
	imports      []spv.Instruction
	entryPoints  []spv.Instruction
	execModes    []spv.Instruction
	names        []spv.Instruction
	annotations  []spv.Instruction
	types        []spv.Instruction
	functions    []spv.Instruction

	ids       map[string]uint32
	caps      map[spv.Capability]bool
	decorated map[uint32]bool
	glsl      uint32
}

func newModule() *module {
	m := &module{
		ib:        spv.NewInstructionBuilder(),
		ids:       make(map[string]uint32),
		caps:      make(map[spv.Capability]bool),
		decorated: make(map[uint32]bool),
	}
	m.capability(spv.CapabilityShader)
	return m
}

func (m *module) id() uint32 {
	m.bound++
	return m.bound
}

func (m *module) inst(op spv.OpCode, words ...uint32) spv.Instruction {
	m.ib.Reset()
	for _, w := range words {
		m.ib.AddWord(w)
	}
	return m.ib.Build(op)
}

// named builds an instruction whose operands are words followed by a
// literal string and then tail.
func (m *module) named(op spv.OpCode, words []uint32, s string, tail ...uint32) spv.Instruction {
	m.ib.Reset()
	for _, w := range words {
		m.ib.AddWord(w)
	}
	m.ib.AddString(s)
	for _, w := range tail {
		m.ib.AddWord(w)
	}
	return m.ib.Build(op)
}

func (m *module) capability(c spv.Capability) {
	if m.caps[c] {
		return
	}
	m.caps[c] = true
	m.capabilities = append(m.capabilities, m.inst(spv.OpCapability, uint32(c)))
}

func (m *module) glslImport() uint32 {
	if m.glsl == 0 {
		m.glsl = m.id()
		m.imports = append(m.imports, m.named(spv.OpExtInstImport, []uint32{m.glsl}, "GLSL.std.450"))
	}
	return m.glsl
}

func (m *module) decorate(target uint32, d spv.Decoration, args ...uint32) {
	m.annotations = append(m.annotations, m.inst(spv.OpDecorate, append([]uint32{target, uint32(d)}, args...)...))
}

func (m *module) memberDecorate(target uint32, member int, d spv.Decoration, args ...uint32) {
	m.annotations = append(m.annotations, m.inst(spv.OpMemberDecorate, append([]uint32{target, uint32(member), uint32(d)}, args...)...))
}

func (m *module) name(target uint32, s string) {
	m.names = append(m.names, m.named(spv.OpName, []uint32{target}, s))
}

// cached returns the id registered under key, emitting it with emit on
// first use. emit receives the fresh result id.
func (m *module) cached(key string, emit func(id uint32)) uint32 {
	if id, ok := m.ids[key]; ok {
		return id
	}
	id := m.id()
	m.ids[key] = id
	emit(id)
	return id
}

func (m *module) voidType() uint32 {
	return m.cached("void", func(id uint32) {
		m.types = append(m.types, m.inst(spv.OpTypeVoid, id))
	})
}

func (m *module) funcType() uint32 {
	void := m.voidType()
	return m.cached("fn()void", func(id uint32) {
		m.types = append(m.types, m.inst(spv.OpTypeFunction, id, void))
	})
}

func (m *module) pointerType(class spv.StorageClass, pointee uint32) uint32 {
	return m.cached(fmt.Sprintf("ptr:%d:%d", class, pointee), func(id uint32) {
		m.types = append(m.types, m.inst(spv.OpTypePointer, id, uint32(class), pointee))
	})
}

func (m *module) scalarType(s shader.ScalarKind) uint32 {
	return m.typeID(shader.Scalar(s), layoutNone)
}

// typeID returns the id of t. Arrays and structs are keyed by layout too,
// since their stride and offset decorations depend on it.
func (m *module) typeID(t shader.DataType, layout shader.MemoryLayout) uint32 {
	key := t.String()
	switch t.Kind() {
	case shader.KindArray, shader.KindStruct:
		if layout != layoutNone {
			key = fmt.Sprintf("%s@%d", key, layout)
		}
	default:
		layout = layoutNone
	}
	if id, ok := m.ids[key]; ok {
		return id
	}

	var inst spv.Instruction
	var post func(id uint32)
	switch t.Kind() {
	case shader.KindScalar:
		switch t.ScalarKind() {
		case shader.Bool:
			inst = m.inst(spv.OpTypeBool, 0)
		case shader.Int:
			inst = m.inst(spv.OpTypeInt, 0, 32, 1)
		case shader.UInt:
			inst = m.inst(spv.OpTypeInt, 0, 32, 0)
		default:
			inst = m.inst(spv.OpTypeFloat, 0, 32)
		}
	case shader.KindVector:
		inst = m.inst(spv.OpTypeVector, 0, m.scalarType(t.ScalarKind()), uint32(t.Len()))
	case shader.KindMatrix:
		inst = m.inst(spv.OpTypeMatrix, 0, m.typeID(t.Elem(), layoutNone), uint32(t.Columns()))
	case shader.KindArray:
		elem := m.typeID(t.Elem(), layout)
		length := m.constant(shader.TUInt, uint32(t.Len()))
		inst = m.inst(spv.OpTypeArray, 0, elem, length)
		if layout != layoutNone {
			post = func(id uint32) { m.decorate(id, spv.DecorationArrayStride, uint32(layout.ArrayStride(t))) }
		}
	case shader.KindStruct:
		fields := t.Fields()
		words := []uint32{0}
		for _, f := range fields {
			words = append(words, m.typeID(f.Type, layout))
		}
		inst = m.inst(spv.OpTypeStruct, words...)
		post = func(id uint32) {
			m.name(id, t.Name())
			var offsets []int
			if layout != layoutNone {
				offsets = layout.Offsets(t)
			}
			for i, f := range fields {
				m.names = append(m.names, m.named(spv.OpMemberName, []uint32{id, uint32(i)}, f.Name))
				if layout == layoutNone {
					continue
				}
				m.memberDecorate(id, i, spv.DecorationOffset, uint32(offsets[i]))
				if mt, ok := matrixOf(f.Type); ok {
					m.memberDecorate(id, i, spv.DecorationColMajor)
					m.memberDecorate(id, i, spv.DecorationMatrixStride, uint32(layout.MatrixStride(mt)))
				}
			}
		}
	default:
		panic(fmt.Sprintf("spirv: invalid type %v", t))
	}

	id := m.id()
	m.ids[key] = id
	inst.Words[0] = id
	m.types = append(m.types, inst)
	if post != nil {
		post(id)
	}
	return id
}

// matrixOf returns the matrix type of t or of its innermost array element.
func matrixOf(t shader.DataType) (shader.DataType, bool) {
	for t.Kind() == shader.KindArray {
		t = t.Elem()
	}
	return t, t.Kind() == shader.KindMatrix
}

// constant returns the id of a constant of type t from its component words,
// laid out column by column for matrices.
func (m *module) constant(t shader.DataType, words ...uint32) uint32 {
	key := fmt.Sprintf("const:%v:%v", t, words)
	if id, ok := m.ids[key]; ok {
		return id
	}
	var inst spv.Instruction
	typ := m.typeID(t, layoutNone)
	switch t.Kind() {
	case shader.KindScalar:
		switch {
		case t.ScalarKind() != shader.Bool:
			inst = m.inst(spv.OpConstant, typ, 0, words[0])
		case words[0] != 0:
			inst = m.inst(opConstantTrue, typ, 0)
		default:
			inst = m.inst(opConstantFalse, typ, 0)
		}
	case shader.KindVector:
		parts := []uint32{typ, 0}
		for _, w := range words {
			parts = append(parts, m.constant(shader.Scalar(t.ScalarKind()), w))
		}
		inst = m.inst(spv.OpConstantComposite, parts...)
	case shader.KindMatrix:
		rows := t.Rows()
		parts := []uint32{typ, 0}
		for c := range t.Columns() {
			parts = append(parts, m.constant(t.Elem(), words[c*rows:(c+1)*rows]...))
		}
		inst = m.inst(spv.OpConstantComposite, parts...)
	default:
		panic(fmt.Sprintf("spirv: constant of type %v", t))
	}
	id := m.id()
	m.ids[key] = id
	inst.Words[1] = id
	m.types = append(m.types, inst)
	return id
}

// encode serializes the module into words.
func (m *module) encode() []uint32 {
	code := []uint32{spv.MagicNumber, Version1_0, spv.GeneratorID, m.bound + 1, 0}
	memoryModel := m.inst(spv.OpMemoryModel, uint32(spv.AddressingModelLogical), uint32(spv.MemoryModelGLSL450))
	sections := [][]spv.Instruction{
		m.capabilities, m.imports, {memoryModel}, m.entryPoints, m.execModes,
		m.names, m.annotations, m.types, m.functions,
	}
	for _, section := range sections {
		for _, inst := range section {
			code = append(code, inst.Encode()...)
		}
	}
	return code
}
