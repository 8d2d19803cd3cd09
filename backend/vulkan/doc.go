// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package vulkan implements the backend driver on Vulkan through the
// pure Go bindings of github.com/gogpu/wgpu, without cgo.
//
// Importing the package registers the "vulkan" driver and the Xlib, XCB,
// Wayland and Win32 surface providers:
//
//	import _ "github.com/quyse/coil-core-sub001/backend/vulkan"
//
// The driver opens one queue supporting graphics and compute, and
// presentation when a surface is given. Descriptor pool exhaustion is
// reported as backend.ErrOutOfPoolMemory and out-of-date swapchains as
// backend.ErrOutOfDate, both carrying their coil error kind.
package vulkan
