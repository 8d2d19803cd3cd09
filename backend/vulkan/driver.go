// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !(js && wasm)

package vulkan

import (
	"fmt"
	"runtime"
	"slices"
	"unsafe"

	"github.com/gogpu/wgpu/hal/vulkan/vk"

	coil "github.com/quyse/coil-core-sub001"
	"github.com/quyse/coil-core-sub001/backend"
)

const (
	validationLayer    = "VK_LAYER_KHRONOS_validation"
	surfaceExtension   = "VK_KHR_surface"
	swapchainExtension = "VK_KHR_swapchain"
)

func init() {
	backend.Register(backend.NameVulkan, func() backend.Driver { return Driver{} })
	registerSurfaceProviders()
}

// Driver opens Vulkan instances.
type Driver struct{}

// Name implements backend.Driver.
func (Driver) Name() string { return backend.NameVulkan }

// CreateInstance implements backend.Driver. It fails with
// backend.ErrNotAvailable when the Vulkan loader cannot be opened.
func (Driver) CreateInstance(cfg backend.InstanceConfig) (backend.Instance, error) {
	const op = "vulkan: create instance"
	if err := vk.Init(); err != nil {
		return nil, coil.Wrap(coil.Resource, op, fmt.Errorf("%w: %v", backend.ErrNotAvailable, err))
	}
	cmds := vk.NewCommands()
	if err := cmds.LoadGlobal(); err != nil {
		return nil, coil.Wrap(coil.Resource, op, fmt.Errorf("%w: %v", backend.ErrNotAvailable, err))
	}

	appName := cString(cfg.AppName)
	engineName := cString("coil")
	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   uintptr(unsafe.Pointer(&appName[0])),
		ApplicationVersion: makeVersion(1, 0, 0),
		PEngineName:        uintptr(unsafe.Pointer(&engineName[0])),
		EngineVersion:      makeVersion(1, 0, 0),
		ApiVersion:         makeVersion(1, 1, 0),
	}

	var exts []string
	if len(cfg.Extensions) > 0 {
		exts = append(exts, surfaceExtension)
	}
	for _, e := range cfg.Extensions {
		if !slices.Contains(exts, e) {
			exts = append(exts, e)
		}
	}
	var layers []string
	if cfg.Validation {
		if layerAvailable(cmds, validationLayer) {
			layers = append(layers, validationLayer)
		} else {
			coil.Logger().Warn("vulkan: validation layer not installed", "layer", validationLayer)
		}
	}
	extNames, extPtrs := cStrings(exts)
	layerNames, layerPtrs := cStrings(layers)

	info := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     firstPtr(layerPtrs),
		EnabledExtensionCount:   uint32(len(exts)),
		PpEnabledExtensionNames: firstPtr(extPtrs),
	}
	var handle vk.Instance
	r := cmds.CreateInstance(&info, nil, &handle)
	runtime.KeepAlive(appName)
	runtime.KeepAlive(engineName)
	runtime.KeepAlive(extNames)
	runtime.KeepAlive(extPtrs)
	runtime.KeepAlive(layerNames)
	runtime.KeepAlive(layerPtrs)
	if err := check(op, r); err != nil {
		return nil, err
	}
	if err := cmds.LoadInstance(handle); err != nil {
		cmds.DestroyInstance(handle, nil)
		return nil, coil.Wrap(coil.Resource, op, err)
	}
	vk.SetDeviceProcAddr(handle)

	coil.Logger().Debug("vulkan: instance created", "extensions", exts, "layers", layers)
	return &Instance{handle: handle, cmds: cmds, extensions: exts}, nil
}

func layerAvailable(cmds *vk.Commands, name string) bool {
	var count uint32
	if cmds.EnumerateInstanceLayerProperties(&count, nil) != vk.Success || count == 0 {
		return false
	}
	props := make([]vk.LayerProperties, count)
	if cmds.EnumerateInstanceLayerProperties(&count, &props[0]) != vk.Success {
		return false
	}
	for i := range props[:count] {
		if cStringToGo(props[i].LayerName[:]) == name {
			return true
		}
	}
	return false
}

func makeVersion(major, minor, patch uint32) uint32 {
	return major<<22 | minor<<12 | patch
}

// Instance is a Vulkan instance.
type Instance struct {
	handle     vk.Instance
	cmds       *vk.Commands
	extensions []string
}

// Handle implements backend.Instance.
func (i *Instance) Handle() uintptr { return uintptr(i.handle) }

// HasExtension reports whether the instance was created with ext.
func (i *Instance) HasExtension(ext string) bool {
	return slices.Contains(i.extensions, ext)
}

// DestroySurface implements backend.Instance.
func (i *Instance) DestroySurface(s backend.Surface) {
	i.cmds.DestroySurfaceKHR(i.handle, vk.SurfaceKHR(s), nil)
}

// Destroy implements backend.Instance.
func (i *Instance) Destroy() {
	i.cmds.DestroyInstance(i.handle, nil)
}

type candidate struct {
	phys   vk.PhysicalDevice
	props  vk.PhysicalDeviceProperties
	family uint32
	score  int
}

// CreateDevice implements backend.Instance. It picks the highest ranked
// physical device with a queue family supporting graphics and compute,
// and presentation to cfg.Surface when set.
func (i *Instance) CreateDevice(cfg backend.DeviceConfig) (backend.Device, error) {
	const op = "vulkan: create device"
	var count uint32
	if err := check(op, i.cmds.EnumeratePhysicalDevices(i.handle, &count, nil)); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, coil.Wrap(coil.Resource, op, backend.ErrNoDevice)
	}
	physical := make([]vk.PhysicalDevice, count)
	if err := check(op, i.cmds.EnumeratePhysicalDevices(i.handle, &count, &physical[0])); err != nil {
		return nil, err
	}

	var best *candidate
	for _, phys := range physical[:count] {
		family, ok := i.queueFamily(phys, vk.SurfaceKHR(cfg.Surface))
		if !ok {
			continue
		}
		c := &candidate{phys: phys, family: family}
		i.cmds.GetPhysicalDeviceProperties(phys, &c.props)
		c.score = deviceScore(c.props.DeviceType)
		coil.Logger().Debug("vulkan: physical device",
			"name", cStringToGo(c.props.DeviceName[:]),
			"vendor", vendorName(c.props.VendorID),
			"score", c.score)
		if best == nil || c.score > best.score {
			best = c
		}
	}
	if best == nil {
		return nil, coil.Wrap(coil.Resource, op, backend.ErrNoDevice)
	}
	return newDevice(i, best, cfg)
}

func (i *Instance) queueFamily(phys vk.PhysicalDevice, surface vk.SurfaceKHR) (uint32, bool) {
	var count uint32
	i.cmds.GetPhysicalDeviceQueueFamilyProperties(phys, &count, nil)
	if count == 0 {
		return 0, false
	}
	families := make([]vk.QueueFamilyProperties, count)
	i.cmds.GetPhysicalDeviceQueueFamilyProperties(phys, &count, &families[0])

	want := vk.QueueFlags(vk.QueueGraphicsBit | vk.QueueComputeBit)
	for idx, f := range families[:count] {
		if f.QueueFlags&want != want || f.QueueCount == 0 {
			continue
		}
		if surface != 0 {
			var supported vk.Bool32
			if i.cmds.GetPhysicalDeviceSurfaceSupportKHR(phys, uint32(idx), surface, &supported) != vk.Success ||
				supported != vk.True {
				continue
			}
		}
		return uint32(idx), true
	}
	return 0, false
}
