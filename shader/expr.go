package shader

import (
	"math"

	coil "github.com/quyse/coil-core-sub001"
)

// Expr is a typed handle to an expression node. The zero Expr is invalid;
// using it records a type error instead of panicking.
type Expr struct {
	n *Node
}

// Node returns the underlying IR node.
func (e Expr) Node() *Node { return e.node() }

// Type returns the static type of the expression.
func (e Expr) Type() DataType { return e.node().Type }

// Err returns the first type error in the expression tree.
func (e Expr) Err() error { return e.node().Check() }

var missing = &Node{Kind: NodeExpression, Err: coil.Errorf(coil.ShaderTypeMismatch, "expr", "missing operand")}

func (e Expr) node() *Node {
	if e.n == nil {
		return missing
	}
	return e.n
}

func mismatch(op Op, format string, args ...any) error {
	return coil.Errorf(coil.ShaderTypeMismatch, op.String(), format, args...)
}

func makeExpr(op Op, t DataType, err error, args ...Expr) Expr {
	n := &Node{Kind: NodeExpression, Op: op, Type: t, Err: err}
	for _, a := range args {
		n.Args = append(n.Args, a.node())
	}
	return Expr{n}
}

func constExpr(t DataType, vals ...uint32) Expr {
	return Expr{&Node{Kind: NodeExpression, Op: OpConst, Type: t, Const: vals}}
}

// F returns a float constant.
func F(v float32) Expr { return constExpr(TFloat, math.Float32bits(v)) }

// I returns an int constant.
func I(v int32) Expr { return constExpr(TInt, uint32(v)) }

// U returns a uint constant.
func U(v uint32) Expr { return constExpr(TUInt, v) }

// B returns a bool constant.
func B(v bool) Expr {
	if v {
		return constExpr(TBool, 1)
	}
	return constExpr(TBool, 0)
}

// ConstVec returns a float vector constant of 2 to 4 components.
func ConstVec(vals ...float32) Expr {
	if len(vals) < 2 || len(vals) > 4 {
		return makeExpr(OpConst, DataType{}, mismatch(OpConst, "vector of %d components", len(vals)))
	}
	words := make([]uint32, len(vals))
	for i, v := range vals {
		words[i] = math.Float32bits(v)
	}
	return constExpr(Vector(Float, len(vals)), words...)
}

// ConstMat returns a float matrix constant from column-major values.
func ConstMat(cols, rows int, vals ...float32) Expr {
	if cols < 2 || cols > 4 || rows < 2 || rows > 4 || len(vals) != cols*rows {
		return makeExpr(OpConst, DataType{}, mismatch(OpConst, "mat%dx%d with %d values", cols, rows, len(vals)))
	}
	words := make([]uint32, len(vals))
	for i, v := range vals {
		words[i] = math.Float32bits(v)
	}
	return constExpr(Matrix(cols, rows), words...)
}

// Vec builds a vector from scalars and vectors of one scalar kind,
// concatenating their components.
func Vec(args ...Expr) Expr {
	total := 0
	var scalar ScalarKind
	for i, a := range args {
		t := a.Type()
		if t.kind != KindScalar && t.kind != KindVector {
			return makeExpr(OpConstruct, DataType{}, mismatch(OpConstruct, "argument %d is %v", i, t), args...)
		}
		if i == 0 {
			scalar = t.scalar
		} else if t.scalar != scalar {
			return makeExpr(OpConstruct, DataType{}, mismatch(OpConstruct, "argument %d is %v, want %v components", i, t, scalar), args...)
		}
		total += t.Components()
	}
	if total < 2 || total > 4 {
		return makeExpr(OpConstruct, DataType{}, mismatch(OpConstruct, "%d components", total), args...)
	}
	return makeExpr(OpConstruct, Vector(scalar, total), nil, args...)
}

// Construct builds a value of type t from its constituents: vector
// components, matrix columns, array elements or struct fields.
func Construct(t DataType, args ...Expr) Expr {
	var err error
	switch t.kind {
	case KindVector:
		v := Vec(args...)
		if v.n.Err == nil && !v.Type().Equal(t) {
			err = mismatch(OpConstruct, "%v from %v", t, v.Type())
		} else {
			err = v.n.Err
		}
	case KindMatrix, KindArray:
		if len(args) != t.n {
			err = mismatch(OpConstruct, "%v from %d values", t, len(args))
			break
		}
		for i, a := range args {
			if !a.Type().Equal(t.Elem()) {
				err = mismatch(OpConstruct, "%v element %d is %v", t, i, a.Type())
				break
			}
		}
	case KindStruct:
		if len(args) != len(t.fields) {
			err = mismatch(OpConstruct, "%s from %d values", t.name, len(args))
			break
		}
		for i, a := range args {
			if !a.Type().Equal(t.fields[i].Type) {
				err = mismatch(OpConstruct, "%s.%s is %v", t.name, t.fields[i].Name, a.Type())
				break
			}
		}
	default:
		err = mismatch(OpConstruct, "cannot construct %v", t)
	}
	return makeExpr(OpConstruct, t, err, args...)
}

// Cast converts a scalar or vector to another scalar kind.
func Cast(e Expr, to ScalarKind) Expr {
	t := e.Type()
	if t.kind != KindScalar && t.kind != KindVector || to < Bool || to > Float {
		return makeExpr(OpCast, DataType{}, mismatch(OpCast, "%v to %v", t, to), e)
	}
	r := t
	r.scalar = to
	return makeExpr(OpCast, r, nil, e)
}

func arithType(op Op, a, b DataType) (DataType, error) {
	if op == OpMul {
		switch {
		case a.kind == KindMatrix && b.kind == KindMatrix:
			if a.n != b.rows {
				return DataType{}, mismatch(op, "%v * %v", a, b)
			}
			return Matrix(b.n, a.rows), nil
		case a.kind == KindMatrix && b.kind == KindVector:
			if b.scalar != Float || b.n != a.n {
				return DataType{}, mismatch(op, "%v * %v", a, b)
			}
			return Vector(Float, a.rows), nil
		case a.kind == KindVector && b.kind == KindMatrix:
			if a.scalar != Float || a.n != b.rows {
				return DataType{}, mismatch(op, "%v * %v", a, b)
			}
			return Vector(Float, b.n), nil
		case a.kind == KindMatrix && b.Equal(TFloat):
			return a, nil
		case a.Equal(TFloat) && b.kind == KindMatrix:
			return b, nil
		}
	}
	if !a.IsNumeric() || !b.IsNumeric() || a.scalar != b.scalar {
		return DataType{}, mismatch(op, "%v and %v", a, b)
	}
	switch {
	case a.Equal(b):
		return a, nil
	case a.kind == KindScalar:
		return b, nil
	case b.kind == KindScalar:
		return a, nil
	}
	return DataType{}, mismatch(op, "%v and %v", a, b)
}

func binary(op Op, a, b Expr) Expr {
	t, err := arithType(op, a.Type(), b.Type())
	return makeExpr(op, t, err, a, b)
}

// Add returns a + b. A scalar operand is broadcast over a vector.
func Add(a, b Expr) Expr { return binary(OpAdd, a, b) }

// Sub returns a - b.
func Sub(a, b Expr) Expr { return binary(OpSub, a, b) }

// Mul returns a * b: component-wise for scalars and vectors, linear algebra
// products for matrices.
func Mul(a, b Expr) Expr { return binary(OpMul, a, b) }

// Div returns a / b.
func Div(a, b Expr) Expr { return binary(OpDiv, a, b) }

// Neg returns -e.
func Neg(e Expr) Expr {
	t := e.Type()
	if !t.IsNumeric() || t.scalar == UInt {
		return makeExpr(OpNegate, DataType{}, mismatch(OpNegate, "%v", t), e)
	}
	return makeExpr(OpNegate, t, nil, e)
}

// Dot returns the dot product of two float vectors.
func Dot(a, b Expr) Expr {
	ta, tb := a.Type(), b.Type()
	if ta.kind != KindVector || ta.scalar != Float || !ta.Equal(tb) {
		return makeExpr(OpDot, DataType{}, mismatch(OpDot, "%v and %v", ta, tb), a, b)
	}
	return makeExpr(OpDot, TFloat, nil, a, b)
}

// Cross returns the cross product of two vec3.
func Cross(a, b Expr) Expr {
	if !a.Type().Equal(TVec3) || !b.Type().Equal(TVec3) {
		return makeExpr(OpCross, DataType{}, mismatch(OpCross, "%v and %v", a.Type(), b.Type()), a, b)
	}
	return makeExpr(OpCross, TVec3, nil, a, b)
}

func floatUnary(op Op, e Expr) Expr {
	t := e.Type()
	if !t.IsFloat() {
		return makeExpr(op, DataType{}, mismatch(op, "%v", t), e)
	}
	return makeExpr(op, t, nil, e)
}

// Normalize returns e scaled to unit length.
func Normalize(e Expr) Expr {
	if e.Type().kind != KindVector {
		return makeExpr(OpNormalize, DataType{}, mismatch(OpNormalize, "%v", e.Type()), e)
	}
	return floatUnary(OpNormalize, e)
}

// Length returns the Euclidean length of a float vector or scalar.
func Length(e Expr) Expr {
	if !e.Type().IsFloat() {
		return makeExpr(OpLength, DataType{}, mismatch(OpLength, "%v", e.Type()), e)
	}
	return makeExpr(OpLength, TFloat, nil, e)
}

// Abs returns |e| for float and signed int operands.
func Abs(e Expr) Expr {
	t := e.Type()
	if !t.IsNumeric() || t.scalar == UInt {
		return makeExpr(OpAbs, DataType{}, mismatch(OpAbs, "%v", t), e)
	}
	return makeExpr(OpAbs, t, nil, e)
}

// Floor rounds toward negative infinity.
func Floor(e Expr) Expr { return floatUnary(OpFloor, e) }

// Ceil rounds toward positive infinity.
func Ceil(e Expr) Expr { return floatUnary(OpCeil, e) }

// Trunc rounds toward zero.
func Trunc(e Expr) Expr { return floatUnary(OpTrunc, e) }

// Sqrt returns the square root.
func Sqrt(e Expr) Expr { return floatUnary(OpSqrt, e) }

// Sin returns the sine.
func Sin(e Expr) Expr { return floatUnary(OpSin, e) }

// Cos returns the cosine.
func Cos(e Expr) Expr { return floatUnary(OpCos, e) }

// Add returns e + o.
func (e Expr) Add(o Expr) Expr { return Add(e, o) }

// Sub returns e - o.
func (e Expr) Sub(o Expr) Expr { return Sub(e, o) }

// Mul returns e * o.
func (e Expr) Mul(o Expr) Expr { return Mul(e, o) }

// Div returns e / o.
func (e Expr) Div(o Expr) Expr { return Div(e, o) }

// Neg returns -e.
func (e Expr) Neg() Expr { return Neg(e) }

// Swizzle selects vector components by name, e.g. "xyz", "bgra" or "x".
func (e Expr) Swizzle(s string) Expr {
	t := e.Type()
	if t.kind != KindVector || len(s) < 1 || len(s) > 4 {
		return makeExpr(OpSwizzle, DataType{}, mismatch(OpSwizzle, "%q of %v", s, t), e)
	}
	idx := make([]int, len(s))
	for i := range len(s) {
		c := swizzleIndex(s[i])
		if c < 0 || c >= t.n {
			return makeExpr(OpSwizzle, DataType{}, mismatch(OpSwizzle, "%q of %v", s, t), e)
		}
		idx[i] = c
	}
	r := Scalar(t.scalar)
	if len(idx) > 1 {
		r = Vector(t.scalar, len(idx))
	}
	x := makeExpr(OpSwizzle, r, nil, e)
	x.n.Swizzle = idx
	return x
}

func swizzleIndex(c byte) int {
	switch c {
	case 'x', 'r', 's':
		return 0
	case 'y', 'g', 't':
		return 1
	case 'z', 'b', 'p':
		return 2
	case 'w', 'a', 'q':
		return 3
	}
	return -1
}

// Index selects a vector component, matrix column or array element.
// i must be an int or uint scalar.
func (e Expr) Index(i Expr) Expr {
	t, it := e.Type(), i.Type()
	if it.kind != KindScalar || (it.scalar != Int && it.scalar != UInt) {
		return makeExpr(OpIndex, DataType{}, mismatch(OpIndex, "index of type %v", it), e, i)
	}
	switch t.kind {
	case KindVector, KindMatrix, KindArray:
		return makeExpr(OpIndex, t.Elem(), nil, e, i)
	}
	return makeExpr(OpIndex, DataType{}, mismatch(OpIndex, "indexing %v", t), e, i)
}

// At is Index with a constant index.
func (e Expr) At(i int) Expr {
	return e.Index(U(uint32(i)))
}
