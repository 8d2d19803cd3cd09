// Package coil is the graphics core of the Coil toolkit: an explicit,
// Vulkan-style rendering and compute layer with a typed shader DSL compiled
// to SPIR-V.
//
// # Overview
//
// The module is organized leaves-first:
//   - [github.com/quyse/coil-core-sub001/book]: scoped ownership arenas
//   - [github.com/quyse/coil-core-sub001/format]: pixel, vertex and image formats
//   - [github.com/quyse/coil-core-sub001/shader]: shader IR and DSL
//   - [github.com/quyse/coil-core-sub001/shader/spirv]: SPIR-V 1.0 compiler
//   - [github.com/quyse/coil-core-sub001/gpu]: device, pools, passes, pipelines,
//     the command context, frames and the presenter
//   - [github.com/quyse/coil-core-sub001/rendercache]: sorted, differential draw batching
//
// Drivers live under backend/. The Vulkan driver talks to the system loader
// through pure Go FFI; the recorder driver keeps everything in memory and is
// used for headless runs and tests.
//
// # Quick Start
//
//	bk := book.New()
//	defer bk.Free()
//
//	dev, err := gpu.NewDevice(bk, gpu.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	prog := shader.Program{Compute: ...}
//	out, err := spirv.Compile(prog)
//
// # Errors
//
// Every failure returned by the core can be classified with [KindOf].
// [Suboptimal] never reaches the caller of the presenter; it is converted
// into a swapchain recreation on the next frame.
//
// # Logging
//
// The core is silent by default. Use [SetLogger] to route diagnostics to a
// [log/slog] handler.
package coil

// Version is the current version of the module.
const Version = "0.3.0"
