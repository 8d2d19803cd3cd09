// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import "github.com/gogpu/gpucontext"

// Presenter is the part of a presenter a window may drive.
type Presenter interface {
	// Resize asks for swapchain recreation before the next frame.
	Resize()
}

// Window is the contract between a windowing layer and the graphics core.
//
// Size reports the drawable size in physical pixels and ScaleFactor the
// DPI scale. The window calls every OnResize callback after its size
// changes and forwards the change to the presenter set with SetPresenter.
type Window interface {
	gpucontext.WindowProvider

	// OnResize registers fn to be called with the new drawable size.
	OnResize(fn func(width, height int))

	// SetPresenter binds the presenter that renders into the window.
	// Passing nil unbinds it.
	SetPresenter(p Presenter)
}

// XlibWindow is a window backed by an X11 connection.
type XlibWindow interface {
	Window
	// XlibHandles returns the Display pointer and the Window id.
	XlibHandles() (display, window uintptr)
}

// XcbWindow is a window backed by an XCB connection.
type XcbWindow interface {
	Window
	// XcbHandles returns the xcb_connection_t pointer and the xcb_window_t id.
	XcbHandles() (connection, window uintptr)
}

// WaylandWindow is a window backed by a Wayland surface.
type WaylandWindow interface {
	Window
	// WaylandHandles returns the wl_display and wl_surface pointers.
	WaylandHandles() (display, surface uintptr)
}

// Win32Window is a window backed by a Win32 HWND.
type Win32Window interface {
	Window
	// Win32Handles returns the HINSTANCE and HWND.
	Win32Handles() (instance, window uintptr)
}
