package shader

import "fmt"

// NodeKind discriminates IR nodes.
type NodeKind uint8

// Node kinds.
const (
	NodeExpression NodeKind = iota + 1
	NodeStatement
	NodeVariable
	NodeUniformBuffer
	NodeStorageBuffer
	NodeSampledImage
)

// Op is an expression operation.
type Op uint8

// Expression operations.
const (
	OpConst Op = iota + 1
	OpCast
	OpConstruct
	OpSwizzle
	OpIndex
	OpNegate
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpDot
	OpCross
	OpNormalize
	OpLength
	OpAbs
	OpFloor
	OpCeil
	OpTrunc
	OpSqrt
	OpSin
	OpCos
	OpSample
	// OpRead loads a stage variable.
	OpRead
	// OpField loads a member of a uniform or storage buffer.
	OpField
)

var opNames = [...]string{
	OpConst: "const", OpCast: "cast", OpConstruct: "construct", OpSwizzle: "swizzle",
	OpIndex: "index", OpNegate: "negate", OpAdd: "add", OpSub: "sub", OpMul: "mul",
	OpDiv: "div", OpDot: "dot", OpCross: "cross", OpNormalize: "normalize",
	OpLength: "length", OpAbs: "abs", OpFloor: "floor", OpCeil: "ceil",
	OpTrunc: "trunc", OpSqrt: "sqrt", OpSin: "sin", OpCos: "cos",
	OpSample: "sample", OpRead: "read", OpField: "field",
}

func (o Op) String() string {
	if int(o) < len(opNames) && opNames[o] != "" {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

// StmtKind discriminates statements.
type StmtKind uint8

// Statement kinds.
const (
	// StmtWrite stores an expression into a stage variable.
	StmtWrite StmtKind = iota + 1
	// StmtStore stores an expression into a storage buffer member.
	StmtStore
	// StmtSequence runs its children in order.
	StmtSequence
)

// VarClass is the role of a stage variable.
type VarClass uint8

// Variable classes.
const (
	// Attribute is a vertex input, or a compute invocation builtin.
	Attribute VarClass = iota + 1
	// Interpolant is written by the vertex stage and read by the fragment stage.
	Interpolant
	// Fragment is a fragment stage output.
	Fragment
)

// Builtin is a predefined stage variable.
type Builtin uint8

// Builtins. BuiltinNone marks a location-bound variable.
const (
	BuiltinNone Builtin = iota
	BuiltinVertexIndex
	BuiltinInstanceIndex
	BuiltinGlobalInvocationID
	BuiltinPosition
	BuiltinPointSize
	BuiltinFragCoord
	BuiltinFragDepth
)

func (b Builtin) String() string {
	switch b {
	case BuiltinNone:
		return "none"
	case BuiltinVertexIndex:
		return "VertexIndex"
	case BuiltinInstanceIndex:
		return "InstanceIndex"
	case BuiltinGlobalInvocationID:
		return "GlobalInvocationID"
	case BuiltinPosition:
		return "Position"
	case BuiltinPointSize:
		return "PointSize"
	case BuiltinFragCoord:
		return "FragCoord"
	case BuiltinFragDepth:
		return "FragDepth"
	}
	return fmt.Sprintf("Builtin(%d)", uint8(b))
}

// ImageDim is the dimensionality of a sampled image.
type ImageDim uint8

// Image dimensionalities.
const (
	Dim1D ImageDim = iota + 1
	Dim2D
	Dim3D
	DimCube
	Dim2DArray
)

// CoordComponents returns the number of float coordinates sampling needs.
func (d ImageDim) CoordComponents() int {
	switch d {
	case Dim1D:
		return 1
	case Dim2D:
		return 2
	case Dim3D, DimCube, Dim2DArray:
		return 3
	}
	return 0
}

// Node is one vertex of the shader IR graph. Which fields are meaningful
// depends on Kind (and Op or Stmt for expressions and statements).
// Nodes are immutable once built and may be shared between expressions
// and between stages.
type Node struct {
	Kind NodeKind
	Op   Op
	Stmt StmtKind
	// Type is the expression type, the variable type or the buffer struct type.
	Type DataType
	Args []*Node

	// Const holds raw 32-bit component values of OpConst, column-major.
	Const []uint32
	// Swizzle holds component indices of OpSwizzle.
	Swizzle []int
	// Field is the member index of OpField and StmtStore.
	Field int
	// Ref is the variable, buffer or image an expression or statement uses.
	Ref *Node

	Class    VarClass
	Location int
	Builtin  Builtin

	Set, Slot int
	Dim       ImageDim

	// Err records a type error found while building the node.
	Err error
}

// Check returns the innermost error recorded in n or its operands.
func (n *Node) Check() error {
	if n == nil {
		return nil
	}
	for _, a := range n.Args {
		if err := a.Check(); err != nil {
			return err
		}
	}
	if n.Ref != nil && n.Ref.Err != nil {
		return n.Ref.Err
	}
	return n.Err
}

// Walk calls fn for n and every node reachable from it, each node once.
// Referenced variables and resources are visited too.
func Walk(n *Node, fn func(*Node)) {
	seen := make(map[*Node]bool)
	var visit func(*Node)
	visit = func(n *Node) {
		if n == nil || seen[n] {
			return
		}
		seen[n] = true
		fn(n)
		for _, a := range n.Args {
			visit(a)
		}
		visit(n.Ref)
	}
	visit(n)
}
