// Package backend defines the driver contract the graphics core is built on.
//
// The contract follows the shape of Vulkan: handles are opaque integers,
// enums carry Vulkan values and every object is created and destroyed
// explicitly. Higher layers (package gpu) own lifetimes through arenas;
// drivers never track ownership themselves.
//
// # Driver Registration
//
// Drivers register themselves via init() functions and are selected at
// runtime:
//
//	import _ "github.com/quyse/coil-core-sub001/backend/vulkan"
//
//	inst, err := backend.Open("", backend.InstanceConfig{AppName: "demo"})
//
// # Available Drivers
//
//   - "vulkan": Vulkan 1.0 through github.com/gogpu/wgpu/hal/vulkan/vk (pure Go, no cgo)
//   - "recorder": in-memory driver recording every call, for tests and headless runs
//
// # Errors
//
// Driver failures are *coil.Error values whose cause is one of the
// package sentinels (ErrOutOfPoolMemory, ErrOutOfDate, ...), so both
// errors.Is(err, coil.ErrResource) and errors.Is(err, backend.ErrOutOfPoolMemory)
// work.
package backend
