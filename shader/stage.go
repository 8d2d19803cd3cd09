package shader

import (
	"github.com/gogpu/gputypes"

	coil "github.com/quyse/coil-core-sub001"
)

// Stmt is a typed handle to a statement node. The zero Stmt is empty.
type Stmt struct {
	n *Node
}

// Node returns the underlying IR node, nil for the empty statement.
func (s Stmt) Node() *Node { return s.n }

// IsEmpty reports whether s is the zero statement.
func (s Stmt) IsEmpty() bool { return s.n == nil }

// Err returns the first type error in the statement tree.
func (s Stmt) Err() error { return s.n.Check() }

// Seq runs statements in order. Empty statements are skipped.
func Seq(stmts ...Stmt) Stmt {
	n := &Node{Kind: NodeStatement, Stmt: StmtSequence}
	for _, s := range stmts {
		if s.n != nil {
			n.Args = append(n.Args, s.n)
		}
	}
	return Stmt{n}
}

// Var is a stage variable: a vertex attribute, an interpolant or a
// fragment output, bound by location or builtin.
type Var struct {
	n *Node
}

// Node returns the underlying IR node.
func (v Var) Node() *Node { return v.n }

// Type returns the variable type.
func (v Var) Type() DataType { return v.n.Type }

func newVar(class VarClass, location int, t DataType) Var {
	return Var{&Node{Kind: NodeVariable, Class: class, Location: location, Type: t}}
}

// builtinType returns the type of b and whether it belongs to class.
func builtinType(class VarClass, b Builtin) (DataType, bool) {
	switch b {
	case BuiltinVertexIndex, BuiltinInstanceIndex:
		return TInt, class == Attribute
	case BuiltinGlobalInvocationID:
		return TUVec3, class == Attribute
	case BuiltinPosition:
		return TVec4, class == Interpolant
	case BuiltinPointSize:
		return TFloat, class == Interpolant
	case BuiltinFragCoord:
		return TVec4, class == Interpolant
	case BuiltinFragDepth:
		return TFloat, class == Fragment
	}
	return DataType{}, false
}

func newBuiltin(class VarClass, b Builtin) Var {
	t, ok := builtinType(class, b)
	n := &Node{Kind: NodeVariable, Class: class, Builtin: b, Type: t, Location: -1}
	if !ok {
		n.Err = coil.Errorf(coil.ShaderUnknownBuiltin, "variable", "%v is not a builtin of this variable class", b)
	}
	return Var{n}
}

// NewAttribute declares a vertex input at location.
func NewAttribute(location int, t DataType) Var { return newVar(Attribute, location, t) }

// NewAttributeBuiltin declares VertexIndex, InstanceIndex or GlobalInvocationID.
func NewAttributeBuiltin(b Builtin) Var { return newBuiltin(Attribute, b) }

// NewInterpolant declares a vertex-to-fragment varying at location.
func NewInterpolant(location int, t DataType) Var { return newVar(Interpolant, location, t) }

// NewInterpolantBuiltin declares Position, PointSize or FragCoord.
// Position read from the fragment stage yields the fragment coordinate.
func NewInterpolantBuiltin(b Builtin) Var { return newBuiltin(Interpolant, b) }

// NewFragment declares a fragment output at location.
func NewFragment(location int, t DataType) Var { return newVar(Fragment, location, t) }

// NewFragmentBuiltin declares FragDepth.
func NewFragmentBuiltin(b Builtin) Var { return newBuiltin(Fragment, b) }

// Read loads the variable.
func (v Var) Read() Expr {
	return Expr{&Node{Kind: NodeExpression, Op: OpRead, Type: v.n.Type, Ref: v.n}}
}

// Write stores e into the variable.
func (v Var) Write(e Expr) Stmt {
	n := &Node{Kind: NodeStatement, Stmt: StmtWrite, Ref: v.n, Args: []*Node{e.node()}}
	if !e.Type().Equal(v.n.Type) {
		n.Err = coil.Errorf(coil.ShaderTypeMismatch, "write", "%v to variable of type %v", e.Type(), v.n.Type)
	}
	return Stmt{n}
}

func newBuffer(kind NodeKind, t DataType, set, slot int) *Node {
	n := &Node{Kind: kind, Type: t, Set: set, Slot: slot}
	if t.kind != KindStruct || len(t.fields) == 0 {
		n.Err = coil.Errorf(coil.ShaderTypeMismatch, "buffer", "buffer type %v is not a non-empty struct", t)
	}
	if set < 0 || slot < 0 {
		n.Err = coil.Errorf(coil.Validation, "buffer", "negative binding (%d, %d)", set, slot)
	}
	return n
}

func field(buf *Node, name string) Expr {
	i := buf.Type.FieldIndex(name)
	n := &Node{Kind: NodeExpression, Op: OpField, Ref: buf, Field: i}
	if i < 0 {
		n.Err = mismatch(OpField, "%s has no field %q", buf.Type.name, name)
	} else {
		n.Type = buf.Type.fields[i].Type
	}
	return Expr{n}
}

// UniformBuffer is a read-only struct bound at (set, slot), laid out std140.
type UniformBuffer struct {
	n *Node
}

// NewUniformBuffer declares a uniform buffer of struct type t.
func NewUniformBuffer(t DataType, set, slot int) UniformBuffer {
	return UniformBuffer{newBuffer(NodeUniformBuffer, t, set, slot)}
}

// Node returns the underlying IR node.
func (u UniformBuffer) Node() *Node { return u.n }

// Field reads a member.
func (u UniformBuffer) Field(name string) Expr { return field(u.n, name) }

// StorageBuffer is a read-write struct bound at (set, slot), laid out std430.
type StorageBuffer struct {
	n *Node
}

// NewStorageBuffer declares a storage buffer of struct type t.
func NewStorageBuffer(t DataType, set, slot int) StorageBuffer {
	return StorageBuffer{newBuffer(NodeStorageBuffer, t, set, slot)}
}

// Node returns the underlying IR node.
func (s StorageBuffer) Node() *Node { return s.n }

// Field reads a member.
func (s StorageBuffer) Field(name string) Expr { return field(s.n, name) }

// Store writes e into a member.
func (s StorageBuffer) Store(name string, e Expr) Stmt {
	f := field(s.n, name)
	n := &Node{Kind: NodeStatement, Stmt: StmtStore, Ref: s.n, Field: f.n.Field, Args: []*Node{e.node()}, Err: f.n.Err}
	if n.Err == nil && !e.Type().Equal(f.Type()) {
		n.Err = mismatch(OpField, "storing %v to %s of type %v", e.Type(), name, f.Type())
	}
	return Stmt{n}
}

// StoreAt writes e into element index of an array member.
func (s StorageBuffer) StoreAt(name string, index, e Expr) Stmt {
	f := field(s.n, name)
	n := &Node{Kind: NodeStatement, Stmt: StmtStore, Ref: s.n, Field: f.n.Field, Args: []*Node{e.node(), index.node()}, Err: f.n.Err}
	if n.Err != nil {
		return Stmt{n}
	}
	ft, it := f.Type(), index.Type()
	switch {
	case ft.kind != KindArray:
		n.Err = mismatch(OpIndex, "%s is %v, not an array", name, ft)
	case it.kind != KindScalar || (it.scalar != Int && it.scalar != UInt):
		n.Err = mismatch(OpIndex, "index of type %v", it)
	case !e.Type().Equal(ft.Elem()):
		n.Err = mismatch(OpField, "storing %v to element of %v", e.Type(), ft)
	}
	return Stmt{n}
}

// SampledImage is a combined image and sampler bound at (set, slot).
type SampledImage struct {
	n *Node
}

// NewSampledImage declares a float sampled image.
func NewSampledImage(dim ImageDim, set, slot int) SampledImage {
	n := &Node{Kind: NodeSampledImage, Dim: dim, Set: set, Slot: slot, Type: TVec4}
	if dim.CoordComponents() == 0 {
		n.Err = coil.Errorf(coil.Validation, "sampled image", "unknown dimensionality %d", dim)
	}
	return SampledImage{n}
}

// Node returns the underlying IR node.
func (s SampledImage) Node() *Node { return s.n }

// Sample reads a filtered texel at coord.
func (s SampledImage) Sample(coord Expr) Expr {
	want := s.n.Dim.CoordComponents()
	t := coord.Type()
	n := &Node{Kind: NodeExpression, Op: OpSample, Type: TVec4, Ref: s.n, Args: []*Node{coord.node()}}
	if !t.IsFloat() || t.Components() != want {
		n.Err = mismatch(OpSample, "coordinate %v, want %d float components", t, want)
	}
	return Expr{n}
}

// Program is a set of stage roots. A zero Stmt means the stage is absent.
type Program struct {
	Vertex   Stmt
	Fragment Stmt
	Compute  Stmt
	// Workgroup is the compute local size; zero components count as 1.
	Workgroup [3]uint32
}

// Stages returns the mask of present stages.
func (p Program) Stages() gputypes.ShaderStage {
	var s gputypes.ShaderStage
	if !p.Vertex.IsEmpty() {
		s |= gputypes.ShaderStageVertex
	}
	if !p.Fragment.IsEmpty() {
		s |= gputypes.ShaderStageFragment
	}
	if !p.Compute.IsEmpty() {
		s |= gputypes.ShaderStageCompute
	}
	return s
}

// Root returns the root statement of one stage.
func (p Program) Root(stage gputypes.ShaderStage) Stmt {
	switch stage {
	case gputypes.ShaderStageVertex:
		return p.Vertex
	case gputypes.ShaderStageFragment:
		return p.Fragment
	case gputypes.ShaderStageCompute:
		return p.Compute
	}
	return Stmt{}
}
