// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !(js && wasm)

package vulkan

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/gogpu/wgpu/hal/vulkan/vk"

	"github.com/quyse/coil-core-sub001/backend"
	"github.com/quyse/coil-core-sub001/surface"
)

// Surface provider names registered by this package.
const (
	ProviderXlib    = "vulkan-xlib"
	ProviderXcb     = "vulkan-xcb"
	ProviderWayland = "vulkan-wayland"
	ProviderWin32   = "vulkan-win32"
)

const (
	xlibSurfaceExtension    = "VK_KHR_xlib_surface"
	xcbSurfaceExtension     = "VK_KHR_xcb_surface"
	waylandSurfaceExtension = "VK_KHR_wayland_surface"
	win32SurfaceExtension   = "VK_KHR_win32_surface"
)

// loaderAvailable reports whether the Vulkan loader can be opened.
var loaderAvailable = sync.OnceValue(func() bool {
	return vk.Init() == nil
})

func unixAvailable() bool {
	return runtime.GOOS != "windows" && runtime.GOOS != "darwin" && loaderAvailable()
}

func windowsAvailable() bool {
	return runtime.GOOS == "windows" && loaderAvailable()
}

func registerSurfaceProviders() {
	surface.Register(surface.Provider{
		Name:     ProviderWayland,
		Priority: 100,
		Extensions: func(w surface.Window) []string {
			if _, ok := w.(surface.WaylandWindow); ok {
				return []string{waylandSurfaceExtension}
			}
			return nil
		},
		Create:    createWaylandSurface,
		Available: unixAvailable,
	})
	surface.Register(surface.Provider{
		Name:     ProviderWin32,
		Priority: 100,
		Extensions: func(w surface.Window) []string {
			if _, ok := w.(surface.Win32Window); ok {
				return []string{win32SurfaceExtension}
			}
			return nil
		},
		Create:    createWin32Surface,
		Available: windowsAvailable,
	})
	surface.Register(surface.Provider{
		Name:     ProviderXlib,
		Priority: 90,
		Extensions: func(w surface.Window) []string {
			if _, ok := w.(surface.XlibWindow); ok {
				return []string{xlibSurfaceExtension}
			}
			return nil
		},
		Create:    createXlibSurface,
		Available: unixAvailable,
	})
	surface.Register(surface.Provider{
		Name:     ProviderXcb,
		Priority: 90,
		Extensions: func(w surface.Window) []string {
			if _, ok := w.(surface.XcbWindow); ok {
				return []string{xcbSurfaceExtension}
			}
			return nil
		},
		Create:    createXcbSurface,
		Available: unixAvailable,
	})
}

// vulkanInstance returns inst as a Vulkan instance created with ext.
func vulkanInstance(inst backend.Instance, ext string) (*Instance, error) {
	vi, ok := inst.(*Instance)
	if !ok {
		return nil, fmt.Errorf("%w: %T is not a Vulkan instance", surface.ErrUnsupported, inst)
	}
	if !vi.HasExtension(ext) {
		return nil, fmt.Errorf("%w: instance lacks %s", surface.ErrUnsupported, ext)
	}
	return vi, nil
}

func surfaceResult(op string, r vk.Result, s vk.SurfaceKHR) (backend.Surface, error) {
	if err := check(op, r); err != nil {
		return 0, err
	}
	return backend.Surface(s), nil
}

func createXlibSurface(inst backend.Instance, w surface.Window) (backend.Surface, error) {
	xw, ok := w.(surface.XlibWindow)
	if !ok {
		return 0, fmt.Errorf("%w: %T is not an Xlib window", surface.ErrUnsupported, w)
	}
	vi, err := vulkanInstance(inst, xlibSurfaceExtension)
	if err != nil {
		return 0, err
	}
	if !vi.cmds.HasCreateXlibSurfaceKHR() {
		return 0, fmt.Errorf("%w: vkCreateXlibSurfaceKHR not loaded", surface.ErrUnsupported)
	}
	display, window := xw.XlibHandles()
	info := vk.XlibSurfaceCreateInfoKHR{
		SType:  vk.StructureTypeXlibSurfaceCreateInfoKhr,
		Window: vk.XlibWindow(window),
	}
	*(*uintptr)(unsafe.Pointer(&info.Dpy)) = display
	var s vk.SurfaceKHR
	return surfaceResult("vulkan: create xlib surface", vi.cmds.CreateXlibSurfaceKHR(vi.handle, &info, nil, &s), s)
}

func createXcbSurface(inst backend.Instance, w surface.Window) (backend.Surface, error) {
	xw, ok := w.(surface.XcbWindow)
	if !ok {
		return 0, fmt.Errorf("%w: %T is not an XCB window", surface.ErrUnsupported, w)
	}
	vi, err := vulkanInstance(inst, xcbSurfaceExtension)
	if err != nil {
		return 0, err
	}
	conn, window := xw.XcbHandles()
	info := vk.XcbSurfaceCreateInfoKHR{
		SType:  vk.StructureTypeXcbSurfaceCreateInfoKhr,
		Window: vk.XcbWindow(window),
	}
	*(*uintptr)(unsafe.Pointer(&info.Connection)) = conn
	var s vk.SurfaceKHR
	return surfaceResult("vulkan: create xcb surface", vi.cmds.CreateXcbSurfaceKHR(vi.handle, &info, nil, &s), s)
}

func createWaylandSurface(inst backend.Instance, w surface.Window) (backend.Surface, error) {
	ww, ok := w.(surface.WaylandWindow)
	if !ok {
		return 0, fmt.Errorf("%w: %T is not a Wayland window", surface.ErrUnsupported, w)
	}
	vi, err := vulkanInstance(inst, waylandSurfaceExtension)
	if err != nil {
		return 0, err
	}
	if !vi.cmds.HasCreateWaylandSurfaceKHR() {
		return 0, fmt.Errorf("%w: vkCreateWaylandSurfaceKHR not loaded", surface.ErrUnsupported)
	}
	display, wlSurface := ww.WaylandHandles()
	info := vk.WaylandSurfaceCreateInfoKHR{SType: vk.StructureTypeWaylandSurfaceCreateInfoKhr}
	*(*uintptr)(unsafe.Pointer(&info.Display)) = display
	*(*uintptr)(unsafe.Pointer(&info.Surface)) = wlSurface
	var s vk.SurfaceKHR
	return surfaceResult("vulkan: create wayland surface", vi.cmds.CreateWaylandSurfaceKHR(vi.handle, &info, nil, &s), s)
}

func createWin32Surface(inst backend.Instance, w surface.Window) (backend.Surface, error) {
	ww, ok := w.(surface.Win32Window)
	if !ok {
		return 0, fmt.Errorf("%w: %T is not a Win32 window", surface.ErrUnsupported, w)
	}
	vi, err := vulkanInstance(inst, win32SurfaceExtension)
	if err != nil {
		return 0, err
	}
	if !vi.cmds.HasCreateWin32SurfaceKHR() {
		return 0, fmt.Errorf("%w: vkCreateWin32SurfaceKHR not loaded", surface.ErrUnsupported)
	}
	hinstance, hwnd := ww.Win32Handles()
	info := vk.Win32SurfaceCreateInfoKHR{
		SType:     vk.StructureTypeWin32SurfaceCreateInfoKhr,
		Hinstance: hinstance,
		Hwnd:      hwnd,
	}
	var s vk.SurfaceKHR
	return surfaceResult("vulkan: create win32 surface", vi.cmds.CreateWin32SurfaceKHR(vi.handle, &info, nil, &s), s)
}
