// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package surface connects windows to the graphics core.
//
// A Window reports its drawable size and DPI scale (through
// gpucontext.WindowProvider), lets the core hook resize notifications and
// accepts the presenter that renders into it, so that a resize can request
// swapchain recreation.
//
// # Providers
//
// Surface providers are process-wide and registered once from init()
// functions of driver packages. Each provider contributes two handlers:
//
//   - Extensions: appends the instance extensions a window needs
//     (for example VK_KHR_surface and VK_KHR_xlib_surface)
//   - Create: returns an opaque surface handle for a window on an instance
//
// gpu.NewWindowDevice queries every available provider for extensions,
// creates the instance, then asks the providers in priority order to
// create the surface.
//
// # Native Windows
//
// Windowing layers expose native handles by implementing one of
// XlibWindow, XcbWindow, WaylandWindow or Win32Window. Headless is a
// window without a native handle for offscreen rendering and tests.
package surface
