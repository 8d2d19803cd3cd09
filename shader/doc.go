// Package shader is a typed shader IR with a small construction DSL.
//
// Shaders are graphs of [Node] values built through typed wrappers:
// [Expr] for expressions, [Stmt] for statements, [Var] for stage variables
// and [UniformBuffer], [StorageBuffer] and [SampledImage] for resources.
// Operators are plain functions (Add, Mul, Dot, ...) and methods on Expr.
//
// Type errors never panic. They are recorded in the offending node and
// reported when the program is compiled.
//
//	pos := shader.NewAttribute(0, shader.TVec2)
//	uv := shader.NewInterpolant(0, shader.TVec2)
//	out := shader.NewFragment(0, shader.TVec4)
//
//	prog := shader.Program{
//	    Vertex: shader.Seq(
//	        shader.NewInterpolantBuiltin(shader.BuiltinPosition).Write(
//	            shader.Vec(pos.Read(), shader.F(0), shader.F(1))),
//	        uv.Write(pos.Read()),
//	    ),
//	    Fragment: out.Write(shader.Vec(uv.Read(), shader.F(0), shader.F(1))),
//	}
//
// Descriptor-set layouts are derived from the resources a program touches,
// see [ProgramLayouts] and [MergeLayouts].
package shader
