package spirv

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"
	spv "github.com/gogpu/naga/spirv"

	coil "github.com/quyse/coil-core-sub001"
	"github.com/quyse/coil-core-sub001/shader"
)

// Entry point names, one per stage.
const (
	EntryVertex   = "mainVertex"
	EntryFragment = "mainFragment"
	EntryCompute  = "mainCompute"
)

// AttributeInfo describes a vertex input consumed by the vertex stage.
type AttributeInfo struct {
	Location int
	Type     shader.DataType
}

// Output is a compiled shader module.
type Output struct {
	// Code is the SPIR-V module in host word order.
	Code []uint32
	// Stages is the mask of stages with an entry point.
	Stages gputypes.ShaderStage
	// Entries maps each stage to its entry point name.
	Entries map[gputypes.ShaderStage]string
	// Layouts is the descriptor-set layout list, merged across stages.
	Layouts []shader.SetLayout
	// Attributes lists vertex inputs by increasing location.
	Attributes []AttributeInfo
}

// Entry returns the entry point name of stage, or "" when absent.
func (o *Output) Entry(stage gputypes.ShaderStage) string {
	return o.Entries[stage]
}

var stageOrder = []struct {
	stage gputypes.ShaderStage
	name  string
	model spv.ExecutionModel
}{
	{gputypes.ShaderStageVertex, EntryVertex, spv.ExecutionModelVertex},
	{gputypes.ShaderStageFragment, EntryFragment, spv.ExecutionModelFragment},
	{gputypes.ShaderStageCompute, EntryCompute, spv.ExecutionModelGLCompute},
}

// Compile lowers every present stage of p into one SPIR-V 1.0 module.
// Type errors recorded by the DSL are returned as they were built;
// constructs the backend cannot express fail with SHADER_UNSUPPORTED_OP.
func Compile(p shader.Program) (*Output, error) {
	if p.Stages() == 0 {
		return nil, coil.Errorf(coil.Validation, "compile", "program has no stages")
	}
	for _, s := range stageOrder {
		if err := p.Root(s.stage).Err(); err != nil {
			return nil, err
		}
	}
	layouts, err := shader.ProgramLayouts(p)
	if err != nil {
		return nil, err
	}

	c := &compiler{
		m:       newModule(),
		globals: make(map[globalKey]uint32),
	}
	out := &Output{
		Stages:  p.Stages(),
		Entries: make(map[gputypes.ShaderStage]string),
		Layouts: layouts,
	}
	for _, s := range stageOrder {
		root := p.Root(s.stage)
		if root.IsEmpty() {
			continue
		}
		if err := c.stage(s.stage, s.name, s.model, root, p.Workgroup); err != nil {
			return nil, err
		}
		out.Entries[s.stage] = s.name
	}
	out.Code = c.m.encode()
	out.Attributes = c.attributes
	slices.SortFunc(out.Attributes, func(a, b AttributeInfo) int { return a.Location - b.Location })
	return out, nil
}

type globalKey struct {
	node  *shader.Node
	class spv.StorageClass
}

type value struct {
	id  uint32
	typ uint32
	t   shader.DataType
}

type compiler struct {
	m          *module
	globals    map[globalKey]uint32
	attributes []AttributeInfo

	// per stage
	stageMask  gputypes.ShaderStage
	interfaces []uint32
	values     map[*shader.Node]value
	body       []spv.Instruction
	depth      bool
}

func unsupported(format string, args ...any) error {
	return coil.Errorf(coil.ShaderUnsupportedOp, "compile", format, args...)
}

func (c *compiler) stage(stage gputypes.ShaderStage, name string, model spv.ExecutionModel, root shader.Stmt, wg [3]uint32) error {
	c.stageMask = stage
	c.interfaces = nil
	c.values = make(map[*shader.Node]value)
	c.body = nil
	c.depth = false

	if err := c.stmt(root.Node()); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	m := c.m
	fn := m.id()
	label := m.id()
	m.name(fn, name)
	m.functions = append(m.functions,
		m.inst(spv.OpFunction, m.voidType(), fn, uint32(spv.FunctionControlNone), m.funcType()),
		m.inst(spv.OpLabel, label))
	m.functions = append(m.functions, c.body...)
	m.functions = append(m.functions, m.inst(spv.OpReturn), m.inst(spv.OpFunctionEnd))

	m.entryPoints = append(m.entryPoints, m.named(spv.OpEntryPoint, []uint32{uint32(model), fn}, name, c.interfaces...))
	switch stage {
	case gputypes.ShaderStageFragment:
		m.execModes = append(m.execModes, m.inst(spv.OpExecutionMode, fn, uint32(spv.ExecutionModeOriginUpperLeft)))
		if c.depth {
			m.execModes = append(m.execModes, m.inst(spv.OpExecutionMode, fn, uint32(spv.ExecutionModeDepthReplacing)))
		}
	case gputypes.ShaderStageCompute:
		size := [3]uint32{}
		for i, v := range wg {
			size[i] = max(v, 1)
		}
		m.execModes = append(m.execModes, m.inst(spv.OpExecutionMode, fn, uint32(spv.ExecutionModeLocalSize), size[0], size[1], size[2]))
	}
	return nil
}

func (c *compiler) emit(op spv.OpCode, words ...uint32) {
	c.body = append(c.body, c.m.inst(op, words...))
}

// result emits an instruction producing a value of type t.
func (c *compiler) result(op spv.OpCode, t shader.DataType, operands ...uint32) value {
	typ := c.m.typeID(t, layoutNone)
	id := c.m.id()
	c.emit(op, append([]uint32{typ, id}, operands...)...)
	return value{id: id, typ: typ, t: t}
}

func (c *compiler) stmt(n *shader.Node) error {
	if n == nil {
		return nil
	}
	switch n.Stmt {
	case shader.StmtSequence:
		for _, a := range n.Args {
			if err := c.stmt(a); err != nil {
				return err
			}
		}
		return nil
	case shader.StmtWrite:
		ptr, err := c.variable(n.Ref, true)
		if err != nil {
			return err
		}
		v, err := c.expr(n.Args[0])
		if err != nil {
			return err
		}
		if v.typ != c.m.typeID(n.Ref.Type, layoutNone) {
			return unsupported("writing laid-out %v to a stage variable", v.t)
		}
		c.emit(spv.OpStore, ptr, v.id)
		return nil
	case shader.StmtStore:
		return c.store(n)
	}
	return unsupported("statement kind %d", n.Stmt)
}

func (c *compiler) store(n *shader.Node) error {
	buf := n.Ref
	field := buf.Type.Fields()[n.Field].Type
	v, err := c.expr(n.Args[0])
	if err != nil {
		return err
	}
	indices := []uint32{c.m.constant(shader.TInt, uint32(n.Field))}
	target := field
	if len(n.Args) > 1 {
		idx, err := c.expr(n.Args[1])
		if err != nil {
			return err
		}
		indices = append(indices, idx.id)
		target = field.Elem()
	}
	ptr := c.chain(buf, target, indices...)
	if v.typ != c.m.typeID(target, shader.Std430) {
		return unsupported("storing %v into a laid-out buffer member", v.t)
	}
	c.emit(spv.OpStore, ptr, v.id)
	return nil
}

// chain emits an access chain into a buffer and returns a pointer to a
// member of type t.
func (c *compiler) chain(buf *shader.Node, t shader.DataType, indices ...uint32) uint32 {
	base := c.buffer(buf)
	layout := bufferLayout(buf)
	ptrType := c.m.pointerType(spv.StorageClassUniform, c.m.typeID(t, layout))
	id := c.m.id()
	c.emit(spv.OpAccessChain, append([]uint32{ptrType, id, base}, indices...)...)
	return id
}

func bufferLayout(buf *shader.Node) shader.MemoryLayout {
	if buf.Kind == shader.NodeStorageBuffer {
		return shader.Std430
	}
	return shader.Std140
}

// buffer returns the global variable of a uniform or storage buffer.
func (c *compiler) buffer(n *shader.Node) uint32 {
	key := globalKey{n, spv.StorageClassUniform}
	if id, ok := c.globals[key]; ok {
		return id
	}
	m := c.m
	layout := bufferLayout(n)
	st := m.typeID(n.Type, layout)
	if !m.decorated[st] {
		m.decorated[st] = true
		if layout == shader.Std430 {
			m.decorate(st, decorationBufferBlock)
		} else {
			m.decorate(st, spv.DecorationBlock)
		}
	}
	id := m.id()
	m.types = append(m.types, m.inst(spv.OpVariable, m.pointerType(spv.StorageClassUniform, st), id, uint32(spv.StorageClassUniform)))
	m.decorate(id, spv.DecorationDescriptorSet, uint32(n.Set))
	m.decorate(id, spv.DecorationBinding, uint32(n.Slot))
	c.globals[key] = id
	return id
}

func (c *compiler) image(n *shader.Node) (uint32, uint32) {
	m := c.m
	dim, arrayed := uint32(1), uint32(0)
	switch n.Dim {
	case shader.Dim1D:
		dim = 0
		m.capability(spv.CapabilitySampled1D)
	case shader.Dim3D:
		dim = 2
	case shader.DimCube:
		dim = 3
	case shader.Dim2DArray:
		arrayed = 1
	}
	float := m.scalarType(shader.Float)
	img := m.cached(fmt.Sprintf("image:%d:%d", dim, arrayed), func(id uint32) {
		m.types = append(m.types, m.inst(opTypeImage, id, float, dim, 0, arrayed, 0, 1, 0))
	})
	sampled := m.cached(fmt.Sprintf("sampled:%d", img), func(id uint32) {
		m.types = append(m.types, m.inst(opTypeSampledImage, id, img))
	})
	key := globalKey{n, spv.StorageClassUniformConstant}
	if id, ok := c.globals[key]; ok {
		return id, sampled
	}
	id := m.id()
	m.types = append(m.types, m.inst(spv.OpVariable, m.pointerType(spv.StorageClassUniformConstant, sampled), id, uint32(spv.StorageClassUniformConstant)))
	m.decorate(id, spv.DecorationDescriptorSet, uint32(n.Set))
	m.decorate(id, spv.DecorationBinding, uint32(n.Slot))
	c.globals[key] = id
	return id, sampled
}

// variable returns the pointer to a stage variable as seen by the current
// stage, declaring it on first use.
func (c *compiler) variable(n *shader.Node, write bool) (uint32, error) {
	class, builtin, err := c.classify(n)
	if err != nil {
		return 0, err
	}
	if write && class != spv.StorageClassOutput {
		return 0, unsupported("writing %v input in %v stage", n.Class, c.stageMask)
	}
	if builtin == spv.BuiltInFragDepth {
		c.depth = true
	}
	key := globalKey{n, class}
	if id, ok := c.globals[key]; ok {
		if !slices.Contains(c.interfaces, id) {
			c.interfaces = append(c.interfaces, id)
		}
		return id, nil
	}
	m := c.m
	t := n.Type
	if builtin == spv.BuiltInFragCoord {
		t = shader.TVec4
	}
	id := m.id()
	m.types = append(m.types, m.inst(spv.OpVariable, m.pointerType(class, m.typeID(t, layoutNone)), id, uint32(class)))
	if n.Builtin != shader.BuiltinNone {
		m.decorate(id, spv.DecorationBuiltIn, uint32(builtin))
	} else {
		m.decorate(id, spv.DecorationLocation, uint32(n.Location))
		if class == spv.StorageClassInput && c.stageMask == gputypes.ShaderStageFragment && t.ScalarKind() != shader.Float {
			m.decorate(id, spv.DecorationFlat)
		}
		if n.Class == shader.Attribute {
			c.attributes = append(c.attributes, AttributeInfo{Location: n.Location, Type: t})
		}
	}
	c.globals[key] = id
	c.interfaces = append(c.interfaces, id)
	return id, nil
}

// classify maps a variable to its storage class and builtin in the
// current stage.
func (c *compiler) classify(n *shader.Node) (spv.StorageClass, spv.BuiltIn, error) {
	stage := c.stageMask
	wrongStage := func() (spv.StorageClass, spv.BuiltIn, error) {
		if n.Builtin != shader.BuiltinNone {
			return 0, 0, coil.Errorf(coil.ShaderUnknownBuiltin, "compile", "%v is not available in %v stage", n.Builtin, stageName(stage))
		}
		return 0, 0, unsupported("variable class %d at location %d in %v stage", n.Class, n.Location, stageName(stage))
	}

	var class spv.StorageClass
	switch {
	case n.Class == shader.Attribute && stage == gputypes.ShaderStageVertex:
		class = spv.StorageClassInput
	case n.Class == shader.Attribute && stage == gputypes.ShaderStageCompute && n.Builtin == shader.BuiltinGlobalInvocationID:
		class = spv.StorageClassInput
	case n.Class == shader.Interpolant && stage == gputypes.ShaderStageVertex:
		class = spv.StorageClassOutput
	case n.Class == shader.Interpolant && stage == gputypes.ShaderStageFragment:
		class = spv.StorageClassInput
	case n.Class == shader.Fragment && stage == gputypes.ShaderStageFragment:
		class = spv.StorageClassOutput
	default:
		return wrongStage()
	}

	var builtin spv.BuiltIn
	switch n.Builtin {
	case shader.BuiltinNone:
	case shader.BuiltinVertexIndex:
		builtin = spv.BuiltInVertexIndex
	case shader.BuiltinInstanceIndex:
		builtin = spv.BuiltInInstanceIndex
	case shader.BuiltinGlobalInvocationID:
		if stage != gputypes.ShaderStageCompute {
			return wrongStage()
		}
		builtin = spv.BuiltInGlobalInvocationID
	case shader.BuiltinPosition:
		builtin = spv.BuiltInPosition
		if stage == gputypes.ShaderStageFragment {
			builtin = spv.BuiltInFragCoord
		}
	case shader.BuiltinPointSize:
		if stage != gputypes.ShaderStageVertex {
			return wrongStage()
		}
		builtin = spv.BuiltInPointSize
	case shader.BuiltinFragCoord:
		if stage != gputypes.ShaderStageFragment {
			return wrongStage()
		}
		builtin = spv.BuiltInFragCoord
	case shader.BuiltinFragDepth:
		builtin = spv.BuiltInFragDepth
	default:
		return 0, 0, coil.Errorf(coil.ShaderUnknownBuiltin, "compile", "unknown builtin %v", n.Builtin)
	}
	return class, builtin, nil
}

func stageName(s gputypes.ShaderStage) string {
	switch s {
	case gputypes.ShaderStageVertex:
		return "vertex"
	case gputypes.ShaderStageFragment:
		return "fragment"
	case gputypes.ShaderStageCompute:
		return "compute"
	}
	return fmt.Sprintf("stage(%d)", uint32(s))
}

func (c *compiler) expr(n *shader.Node) (value, error) {
	if v, ok := c.values[n]; ok {
		return v, nil
	}
	v, err := c.lower(n)
	if err != nil {
		return value{}, err
	}
	c.values[n] = v
	return v, nil
}

func (c *compiler) args(n *shader.Node) ([]value, error) {
	vals := make([]value, len(n.Args))
	for i, a := range n.Args {
		v, err := c.expr(a)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func (c *compiler) lower(n *shader.Node) (value, error) {
	m := c.m
	switch n.Op {
	case shader.OpConst:
		return value{id: m.constant(n.Type, n.Const...), typ: m.typeID(n.Type, layoutNone), t: n.Type}, nil
	case shader.OpRead:
		ptr, err := c.variable(n.Ref, false)
		if err != nil {
			return value{}, err
		}
		return c.result(spv.OpLoad, n.Type, ptr), nil
	case shader.OpField:
		return c.load(n.Ref, n.Type, m.constant(shader.TInt, uint32(n.Field))), nil
	case shader.OpIndex:
		return c.index(n)
	case shader.OpSample:
		return c.sample(n)
	}

	args, err := c.args(n)
	if err != nil {
		return value{}, err
	}
	switch n.Op {
	case shader.OpCast:
		return c.cast(args[0], n.Type)
	case shader.OpConstruct:
		ids := make([]uint32, len(args))
		for i, a := range args {
			ids[i] = a.id
		}
		if n.Type.Kind() == shader.KindArray || n.Type.Kind() == shader.KindStruct {
			for i, a := range args {
				if a.typ != m.typeID(a.t, layoutNone) {
					return value{}, unsupported("constructing %v from laid-out member %d", n.Type, i)
				}
			}
		}
		return c.result(spv.OpCompositeConstruct, n.Type, ids...), nil
	case shader.OpSwizzle:
		if len(n.Swizzle) == 1 {
			return c.result(spv.OpCompositeExtract, n.Type, args[0].id, uint32(n.Swizzle[0])), nil
		}
		words := []uint32{args[0].id, args[0].id}
		for _, s := range n.Swizzle {
			words = append(words, uint32(s))
		}
		return c.result(spv.OpVectorShuffle, n.Type, words...), nil
	case shader.OpNegate:
		if n.Type.ScalarKind() == shader.Float {
			return c.result(spv.OpFNegate, n.Type, args[0].id), nil
		}
		return c.result(spv.OpSNegate, n.Type, args[0].id), nil
	case shader.OpAdd, shader.OpSub, shader.OpMul, shader.OpDiv:
		return c.arith(n, args[0], args[1])
	case shader.OpDot:
		return c.result(opDot, n.Type, args[0].id, args[1].id), nil
	case shader.OpCross:
		return c.ext(n.Type, spv.GLSLstd450Cross, args...), nil
	case shader.OpNormalize:
		return c.ext(n.Type, spv.GLSLstd450Normalize, args...), nil
	case shader.OpLength:
		return c.ext(n.Type, spv.GLSLstd450Length, args...), nil
	case shader.OpAbs:
		if n.Type.ScalarKind() == shader.Float {
			return c.ext(n.Type, spv.GLSLstd450FAbs, args...), nil
		}
		return c.ext(n.Type, spv.GLSLstd450SAbs, args...), nil
	case shader.OpFloor:
		return c.ext(n.Type, spv.GLSLstd450Floor, args...), nil
	case shader.OpCeil:
		return c.ext(n.Type, spv.GLSLstd450Ceil, args...), nil
	case shader.OpTrunc:
		return c.ext(n.Type, spv.GLSLstd450Trunc, args...), nil
	case shader.OpSqrt:
		return c.ext(n.Type, spv.GLSLstd450Sqrt, args...), nil
	case shader.OpSin:
		return c.ext(n.Type, spv.GLSLstd450Sin, args...), nil
	case shader.OpCos:
		return c.ext(n.Type, spv.GLSLstd450Cos, args...), nil
	}
	return value{}, unsupported("operation %v", n.Op)
}

func (c *compiler) ext(t shader.DataType, inst uint32, args ...value) value {
	words := []uint32{c.m.glslImport(), inst}
	for _, a := range args {
		words = append(words, a.id)
	}
	return c.result(spv.OpExtInst, t, words...)
}

// load reads a buffer member through an access chain.
func (c *compiler) load(buf *shader.Node, t shader.DataType, indices ...uint32) value {
	ptr := c.chain(buf, t, indices...)
	typ := c.m.typeID(t, bufferLayout(buf))
	id := c.m.id()
	c.emit(spv.OpLoad, typ, id, ptr)
	return value{id: id, typ: typ, t: t}
}

func (c *compiler) index(n *shader.Node) (value, error) {
	base, at := n.Args[0], n.Args[1]
	// Indexing a buffer member reads through the access chain, which also
	// allows dynamic indices into arrays.
	if base.Op == shader.OpField && base.Kind == shader.NodeExpression {
		idx, err := c.expr(at)
		if err != nil {
			return value{}, err
		}
		return c.load(base.Ref, n.Type, c.m.constant(shader.TInt, uint32(base.Field)), idx.id), nil
	}
	b, err := c.expr(base)
	if err != nil {
		return value{}, err
	}
	if at.Op == shader.OpConst {
		return c.result(spv.OpCompositeExtract, n.Type, b.id, at.Const[0]), nil
	}
	if b.t.Kind() != shader.KindVector {
		return value{}, unsupported("dynamic index into %v value", b.t)
	}
	idx, err := c.expr(at)
	if err != nil {
		return value{}, err
	}
	return c.result(spv.OpVectorExtractDynamic, n.Type, b.id, idx.id), nil
}

func (c *compiler) sample(n *shader.Node) (value, error) {
	coord, err := c.expr(n.Args[0])
	if err != nil {
		return value{}, err
	}
	ptr, sampledType := c.image(n.Ref)
	img := c.m.id()
	c.emit(spv.OpLoad, sampledType, img, ptr)
	if c.stageMask == gputypes.ShaderStageFragment {
		return c.result(opImageSampleImplicitLod, shader.TVec4, img, coord.id), nil
	}
	lod := c.m.constant(shader.TFloat, 0)
	return c.result(opImageSampleExplicitLod, shader.TVec4, img, coord.id, imageOperandsLod, lod), nil
}

func (c *compiler) cast(v value, to shader.DataType) (value, error) {
	from := v.t.ScalarKind()
	dst := to.ScalarKind()
	switch {
	case from == dst:
		return v, nil
	case from == shader.Float && dst == shader.Int:
		return c.result(spv.OpConvertFToS, to, v.id), nil
	case from == shader.Float && dst == shader.UInt:
		return c.result(spv.OpConvertFToU, to, v.id), nil
	case from == shader.Int && dst == shader.Float:
		return c.result(spv.OpConvertSToF, to, v.id), nil
	case from == shader.UInt && dst == shader.Float:
		return c.result(spv.OpConvertUToF, to, v.id), nil
	case (from == shader.Int || from == shader.UInt) && (dst == shader.Int || dst == shader.UInt):
		return c.result(spv.OpBitcast, to, v.id), nil
	case dst == shader.Bool:
		zero := c.splat(v.t, c.zero(from))
		if from == shader.Float {
			return c.result(spv.OpFOrdNotEqual, to, v.id, zero), nil
		}
		return c.result(spv.OpINotEqual, to, v.id, zero), nil
	case from == shader.Bool:
		one, zero := c.splat(to, c.one(dst)), c.splat(to, c.zero(dst))
		return c.result(spv.OpSelect, to, v.id, one, zero), nil
	}
	return value{}, unsupported("cast from %v to %v", v.t, to)
}

func (c *compiler) zero(s shader.ScalarKind) uint32 {
	return c.m.constant(shader.Scalar(s), 0)
}

func (c *compiler) one(s shader.ScalarKind) uint32 {
	if s == shader.Float {
		return c.m.constant(shader.TFloat, 0x3f800000)
	}
	return c.m.constant(shader.Scalar(s), 1)
}

// splat returns a constant of type t with every component equal to the
// scalar constant id.
func (c *compiler) splat(t shader.DataType, id uint32) uint32 {
	if t.Kind() != shader.KindVector {
		return id
	}
	m := c.m
	typ := m.typeID(t, layoutNone)
	return m.cached(fmt.Sprintf("splat:%d:%d", typ, id), func(res uint32) {
		words := []uint32{typ, res}
		for range t.Len() {
			words = append(words, id)
		}
		m.types = append(m.types, m.inst(spv.OpConstantComposite, words...))
	})
}

// broadcast replicates a scalar value into a vector of type t.
func (c *compiler) broadcast(v value, t shader.DataType) value {
	ids := make([]uint32, t.Len())
	for i := range ids {
		ids[i] = v.id
	}
	return c.result(spv.OpCompositeConstruct, t, ids...)
}

var arithOps = map[shader.Op][3]spv.OpCode{
	// float, int, uint
	shader.OpAdd: {spv.OpFAdd, spv.OpIAdd, spv.OpIAdd},
	shader.OpSub: {spv.OpFSub, spv.OpISub, spv.OpISub},
	shader.OpMul: {spv.OpFMul, spv.OpIMul, spv.OpIMul},
	shader.OpDiv: {spv.OpFDiv, spv.OpSDiv, spv.OpUDiv},
}

func (c *compiler) arith(n *shader.Node, a, b value) (value, error) {
	ka, kb := a.t.Kind(), b.t.Kind()
	if n.Op == shader.OpMul {
		switch {
		case ka == shader.KindMatrix && kb == shader.KindMatrix:
			return c.result(spv.OpMatrixTimesMatrix, n.Type, a.id, b.id), nil
		case ka == shader.KindMatrix && kb == shader.KindVector:
			return c.result(spv.OpMatrixTimesVector, n.Type, a.id, b.id), nil
		case ka == shader.KindVector && kb == shader.KindMatrix:
			return c.result(spv.OpVectorTimesMatrix, n.Type, a.id, b.id), nil
		case ka == shader.KindMatrix:
			return c.result(spv.OpMatrixTimesScalar, n.Type, a.id, b.id), nil
		case kb == shader.KindMatrix:
			return c.result(spv.OpMatrixTimesScalar, n.Type, b.id, a.id), nil
		case n.Type.ScalarKind() == shader.Float && ka == shader.KindVector && kb == shader.KindScalar:
			return c.result(spv.OpVectorTimesScalar, n.Type, a.id, b.id), nil
		case n.Type.ScalarKind() == shader.Float && ka == shader.KindScalar && kb == shader.KindVector:
			return c.result(spv.OpVectorTimesScalar, n.Type, b.id, a.id), nil
		}
	}
	if ka == shader.KindScalar && kb == shader.KindVector {
		a = c.broadcast(a, n.Type)
	}
	if kb == shader.KindScalar && ka == shader.KindVector {
		b = c.broadcast(b, n.Type)
	}
	ops, ok := arithOps[n.Op]
	if !ok {
		return value{}, unsupported("operation %v", n.Op)
	}
	var op spv.OpCode
	switch n.Type.ScalarKind() {
	case shader.Float:
		op = ops[0]
	case shader.Int:
		op = ops[1]
	case shader.UInt:
		op = ops[2]
	default:
		return value{}, unsupported("%v on %v", n.Op, n.Type)
	}
	return c.result(op, n.Type, a.id, b.id), nil
}

// IsUnsupported reports whether err is a SHADER_UNSUPPORTED_OP error.
func IsUnsupported(err error) bool {
	return errors.Is(err, coil.ErrShaderUnsupportedOp)
}
