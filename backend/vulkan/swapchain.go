// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !(js && wasm)

package vulkan

import (
	"slices"

	"github.com/gogpu/wgpu/hal/vulkan/vk"

	coil "github.com/quyse/coil-core-sub001"
	"github.com/quyse/coil-core-sub001/backend"
)

// CreateSwapchain implements backend.Device. The extent follows the
// surface when it reports one and desc otherwise, clamped to the surface
// limits.
func (d *Device) CreateSwapchain(desc backend.SwapchainDesc) (backend.SwapchainState, error) {
	const op = "vulkan: create swapchain"
	surface := vk.SurfaceKHR(desc.Surface)
	var caps vk.SurfaceCapabilitiesKHR
	if err := check(op, d.cmds.GetPhysicalDeviceSurfaceCapabilitiesKHR(d.phys, surface, &caps)); err != nil {
		return backend.SwapchainState{}, err
	}
	format, err := d.surfaceFormat(surface)
	if err != nil {
		return backend.SwapchainState{}, err
	}
	mode, err := d.presentMode(surface, desc.Vsync)
	if err != nil {
		return backend.SwapchainState{}, err
	}

	extent := caps.CurrentExtent
	if extent.Width == ^uint32(0) {
		extent = vk.Extent2D{
			Width:  min(max(desc.Width, caps.MinImageExtent.Width), caps.MaxImageExtent.Width),
			Height: min(max(desc.Height, caps.MinImageExtent.Height), caps.MaxImageExtent.Height),
		}
	}
	if extent.Width == 0 || extent.Height == 0 {
		return backend.SwapchainState{}, coil.Wrap(coil.Suboptimal, op, backend.ErrOutOfDate)
	}
	images := max(uint32(desc.MinImages), caps.MinImageCount)
	if caps.MaxImageCount > 0 {
		images = min(images, caps.MaxImageCount)
	}

	info := vk.SwapchainCreateInfoKHR{
		SType:            vk.StructureTypeSwapchainCreateInfoKhr,
		Surface:          surface,
		MinImageCount:    images,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferDstBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBitKhr,
		PresentMode:      mode,
		Clipped:          vk.True,
		OldSwapchain:     vk.SwapchainKHR(desc.Old),
	}
	var sc vk.SwapchainKHR
	if err := check(op, d.cmds.CreateSwapchainKHR(d.handle, &info, nil, &sc)); err != nil {
		return backend.SwapchainState{}, err
	}

	var count uint32
	if err := check(op, d.cmds.GetSwapchainImagesKHR(d.handle, sc, &count, nil)); err != nil {
		d.cmds.DestroySwapchainKHR(d.handle, sc, nil)
		return backend.SwapchainState{}, err
	}
	handles := make([]vk.Image, count)
	if count > 0 {
		if err := check(op, d.cmds.GetSwapchainImagesKHR(d.handle, sc, &count, &handles[0])); err != nil {
			d.cmds.DestroySwapchainKHR(d.handle, sc, nil)
			return backend.SwapchainState{}, err
		}
	}
	state := backend.SwapchainState{
		Swapchain: backend.Swapchain(sc),
		Format:    backend.Format(format.Format),
		Width:     extent.Width,
		Height:    extent.Height,
		Images:    make([]backend.Image, count),
	}
	for i, h := range handles[:count] {
		state.Images[i] = backend.Image(h)
	}
	coil.Logger().Debug("vulkan: swapchain created",
		"width", extent.Width, "height", extent.Height, "images", count, "mode", int32(mode))
	return state, nil
}

// surfaceFormat prefers 8-bit BGRA with sRGB nonlinear color space.
func (d *Device) surfaceFormat(surface vk.SurfaceKHR) (vk.SurfaceFormatKHR, error) {
	const op = "vulkan: surface formats"
	var count uint32
	if err := check(op, d.cmds.GetPhysicalDeviceSurfaceFormatsKHR(d.phys, surface, &count, nil)); err != nil {
		return vk.SurfaceFormatKHR{}, err
	}
	if count == 0 {
		return vk.SurfaceFormatKHR{}, coil.Errorf(coil.SurfaceLost, op, "surface reports no formats")
	}
	formats := make([]vk.SurfaceFormatKHR, count)
	if err := check(op, d.cmds.GetPhysicalDeviceSurfaceFormatsKHR(d.phys, surface, &count, &formats[0])); err != nil {
		return vk.SurfaceFormatKHR{}, err
	}
	formats = formats[:count]
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Unorm && f.ColorSpace == vk.ColorSpaceSrgbNonlinearKhr {
			return f, nil
		}
	}
	if len(formats) == 1 && formats[0].Format == vk.FormatUndefined {
		return vk.SurfaceFormatKHR{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinearKhr}, nil
	}
	return formats[0], nil
}

// presentMode picks FIFO for vsync, and mailbox or immediate when
// available otherwise. FIFO support is guaranteed.
func (d *Device) presentMode(surface vk.SurfaceKHR, vsync bool) (vk.PresentModeKHR, error) {
	if vsync {
		return vk.PresentModeFifoKhr, nil
	}
	const op = "vulkan: present modes"
	var count uint32
	if err := check(op, d.cmds.GetPhysicalDeviceSurfacePresentModesKHR(d.phys, surface, &count, nil)); err != nil {
		return 0, err
	}
	modes := make([]vk.PresentModeKHR, count)
	if count > 0 {
		if err := check(op, d.cmds.GetPhysicalDeviceSurfacePresentModesKHR(d.phys, surface, &count, &modes[0])); err != nil {
			return 0, err
		}
	}
	for _, want := range []vk.PresentModeKHR{vk.PresentModeMailboxKhr, vk.PresentModeImmediateKhr} {
		if slices.Contains(modes[:count], want) {
			return want, nil
		}
	}
	return vk.PresentModeFifoKhr, nil
}

// DestroySwapchain implements backend.Device.
func (d *Device) DestroySwapchain(s backend.Swapchain) {
	d.cmds.DestroySwapchainKHR(d.handle, vk.SwapchainKHR(s), nil)
}

// AcquireNextImage implements backend.Device. It blocks until an image
// is available.
func (d *Device) AcquireNextImage(s backend.Swapchain, signal backend.Semaphore) (int, bool, error) {
	var index uint32
	r := d.cmds.AcquireNextImageKHR(d.handle, vk.SwapchainKHR(s), ^uint64(0), vk.Semaphore(signal), 0, &index)
	switch r {
	case vk.Success:
		return int(index), false, nil
	case vk.SuboptimalKhr:
		return int(index), true, nil
	default:
		return 0, false, check("vulkan: acquire image", r)
	}
}

// Present implements backend.Device.
func (d *Device) Present(s backend.Swapchain, index int, wait backend.Semaphore) (bool, error) {
	sem := vk.Semaphore(wait)
	sc := vk.SwapchainKHR(s)
	idx := uint32(index)
	info := vk.PresentInfoKHR{
		SType:          vk.StructureTypePresentInfoKhr,
		SwapchainCount: 1,
		PSwapchains:    &sc,
		PImageIndices:  &idx,
	}
	if wait != 0 {
		info.WaitSemaphoreCount = 1
		info.PWaitSemaphores = &sem
	}
	r := d.cmds.QueuePresentKHR(d.queue, &info)
	switch r {
	case vk.Success:
		return false, nil
	case vk.SuboptimalKhr:
		return true, nil
	default:
		return false, check("vulkan: present", r)
	}
}
