// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !(js && wasm)

package vulkan

import (
	"runtime"
	"unsafe"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal/vulkan/vk"

	coil "github.com/quyse/coil-core-sub001"
	"github.com/quyse/coil-core-sub001/backend"
)

// Device is a Vulkan logical device with one graphics and compute queue.
type Device struct {
	inst   *Instance
	phys   vk.PhysicalDevice
	handle vk.Device
	cmds   vk.Commands
	queue  vk.Queue
	family uint32
	pool   vk.CommandPool
	props  backend.Properties

	anisotropy    bool
	maxAnisotropy float32
}

var _ backend.Device = (*Device)(nil)

func newDevice(inst *Instance, c *candidate, cfg backend.DeviceConfig) (*Device, error) {
	const op = "vulkan: create device"
	priority := float32(1)
	queueInfo := vk.DeviceQueueCreateInfo{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: c.family,
		QueueCount:       1,
		PQueuePriorities: &priority,
	}

	var supported, enabled vk.PhysicalDeviceFeatures
	inst.cmds.GetPhysicalDeviceFeatures(c.phys, &supported)
	enabled.SamplerAnisotropy = supported.SamplerAnisotropy

	var exts []string
	if cfg.Surface != 0 {
		exts = append(exts, swapchainExtension)
	}
	extNames, extPtrs := cStrings(exts)
	info := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    1,
		PQueueCreateInfos:       &queueInfo,
		EnabledExtensionCount:   uint32(len(exts)),
		PpEnabledExtensionNames: firstPtr(extPtrs),
		PEnabledFeatures:        &enabled,
	}
	var handle vk.Device
	r := inst.cmds.CreateDevice(c.phys, &info, nil, &handle)
	runtime.KeepAlive(extNames)
	runtime.KeepAlive(extPtrs)
	if err := check(op, r); err != nil {
		return nil, err
	}

	d := &Device{
		inst:          inst,
		phys:          c.phys,
		handle:        handle,
		cmds:          *inst.cmds,
		family:        c.family,
		anisotropy:    enabled.SamplerAnisotropy == vk.True,
		maxAnisotropy: c.props.Limits.MaxSamplerAnisotropy,
	}
	if err := d.cmds.LoadDevice(handle); err != nil {
		inst.cmds.DestroyDevice(handle, nil)
		return nil, coil.Wrap(coil.Resource, op, err)
	}
	d.cmds.GetDeviceQueue(handle, c.family, 0, &d.queue)

	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: c.family,
	}
	if err := check(op, d.cmds.CreateCommandPool(handle, &poolInfo, nil, &d.pool)); err != nil {
		d.cmds.DestroyDevice(handle, nil)
		return nil, err
	}
	d.props = d.queryProperties(c)

	coil.Logger().Info("vulkan: device created",
		"adapter", d.props.Adapter.Name,
		"type", d.props.Adapter.Type.String(),
		"vendor", vendorName(c.props.VendorID),
		"family", c.family)
	return d, nil
}

func (d *Device) queryProperties(c *candidate) backend.Properties {
	var mem vk.PhysicalDeviceMemoryProperties
	d.cmds.GetPhysicalDeviceMemoryProperties(d.phys, &mem)
	types := make([]backend.MemoryType, mem.MemoryTypeCount)
	for i := range types {
		types[i] = backend.MemoryType{
			Flags: backend.MemoryProperty(mem.MemoryTypes[i].PropertyFlags),
			Heap:  int(mem.MemoryTypes[i].HeapIndex),
		}
	}
	limits := c.props.Limits
	return backend.Properties{
		Adapter: gpucontext.AdapterInfo{
			Name: cStringToGo(c.props.DeviceName[:]),
			Type: adapterType(c.props.DeviceType),
		},
		Limits: backend.Limits{
			MinUniformBufferOffsetAlignment: uint64(limits.MinUniformBufferOffsetAlignment),
			MinStorageBufferOffsetAlignment: uint64(limits.MinStorageBufferOffsetAlignment),
			NonCoherentAtomSize:             uint64(limits.NonCoherentAtomSize),
			MaxImageDimension2D:             limits.MaxImageDimension2D,
		},
		MemoryTypes:        types,
		DepthStencilFormat: d.depthStencilFormat(),
	}
}

// depthStencilFormat returns the first depth format usable as an
// optimal-tiling attachment, preferring ones with stencil.
func (d *Device) depthStencilFormat() backend.Format {
	for _, f := range []backend.Format{
		backend.FormatD24UnormS8Uint,
		backend.FormatD32SfloatS8Uint,
		backend.FormatD32Sfloat,
	} {
		var props vk.FormatProperties
		d.cmds.GetPhysicalDeviceFormatProperties(d.phys, vk.Format(f), &props)
		if props.OptimalTilingFeatures&vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit) != 0 {
			return f
		}
	}
	return backend.FormatUndefined
}

// Properties implements backend.Device.
func (d *Device) Properties() backend.Properties { return d.props }

// WaitIdle implements backend.Device.
func (d *Device) WaitIdle() error {
	return check("vulkan: wait idle", d.cmds.DeviceWaitIdle(d.handle))
}

// Destroy implements backend.Device.
func (d *Device) Destroy() {
	d.cmds.DestroyCommandPool(d.handle, d.pool, nil)
	d.cmds.DestroyDevice(d.handle, nil)
}

// AllocateMemory implements backend.Device.
func (d *Device) AllocateMemory(size uint64, typeIndex int) (backend.Memory, error) {
	info := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(size),
		MemoryTypeIndex: uint32(typeIndex),
	}
	var m vk.DeviceMemory
	if err := check("vulkan: allocate memory", d.cmds.AllocateMemory(d.handle, &info, nil, &m)); err != nil {
		return 0, err
	}
	return backend.Memory(m), nil
}

// FreeMemory implements backend.Device.
func (d *Device) FreeMemory(m backend.Memory) {
	d.cmds.FreeMemory(d.handle, vk.DeviceMemory(m), nil)
}

// MapMemory implements backend.Device.
func (d *Device) MapMemory(m backend.Memory, offset, size uint64) ([]byte, error) {
	var ptr uintptr
	r := d.cmds.MapMemory(d.handle, vk.DeviceMemory(m), vk.DeviceSize(offset), vk.DeviceSize(size), 0,
		uintptr(unsafe.Pointer(&ptr)))
	if err := check("vulkan: map memory", r); err != nil {
		return nil, err
	}
	return unsafe.Slice(ptrFromUintptr(ptr), size), nil
}

// UnmapMemory implements backend.Device.
func (d *Device) UnmapMemory(m backend.Memory) {
	d.cmds.UnmapMemory(d.handle, vk.DeviceMemory(m))
}

// FlushMemory implements backend.Device.
func (d *Device) FlushMemory(m backend.Memory, offset, size uint64) error {
	rng := mappedRange(m, offset, size)
	return check("vulkan: flush memory", d.cmds.FlushMappedMemoryRanges(d.handle, 1, &rng))
}

// InvalidateMemory implements backend.Device.
func (d *Device) InvalidateMemory(m backend.Memory, offset, size uint64) error {
	rng := mappedRange(m, offset, size)
	return check("vulkan: invalidate memory", d.cmds.InvalidateMappedMemoryRanges(d.handle, 1, &rng))
}

func mappedRange(m backend.Memory, offset, size uint64) vk.MappedMemoryRange {
	return vk.MappedMemoryRange{
		SType:  vk.StructureTypeMappedMemoryRange,
		Memory: vk.DeviceMemory(m),
		Offset: vk.DeviceSize(offset),
		Size:   vk.DeviceSize(size),
	}
}

// CreateBuffer implements backend.Device.
func (d *Device) CreateBuffer(desc backend.BufferDesc) (backend.Buffer, backend.MemoryRequirements, error) {
	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(desc.Size),
		Usage:       vk.BufferUsageFlags(desc.Usage),
		SharingMode: vk.SharingModeExclusive,
	}
	var b vk.Buffer
	if err := check("vulkan: create buffer", d.cmds.CreateBuffer(d.handle, &info, nil, &b)); err != nil {
		return 0, backend.MemoryRequirements{}, err
	}
	var req vk.MemoryRequirements
	d.cmds.GetBufferMemoryRequirements(d.handle, b, &req)
	return backend.Buffer(b), requirements(req), nil
}

// BindBufferMemory implements backend.Device.
func (d *Device) BindBufferMemory(b backend.Buffer, m backend.Memory, offset uint64) error {
	r := d.cmds.BindBufferMemory(d.handle, vk.Buffer(b), vk.DeviceMemory(m), vk.DeviceSize(offset))
	return check("vulkan: bind buffer memory", r)
}

// DestroyBuffer implements backend.Device.
func (d *Device) DestroyBuffer(b backend.Buffer) {
	d.cmds.DestroyBuffer(d.handle, vk.Buffer(b), nil)
}

// CreateImage implements backend.Device.
func (d *Device) CreateImage(desc backend.ImageDesc) (backend.Image, backend.MemoryRequirements, error) {
	info := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: imageType(desc.Dim),
		Format:    vk.Format(desc.Format),
		Extent: vk.Extent3D{
			Width:  desc.Width,
			Height: max(desc.Height, 1),
			Depth:  max(desc.Depth, 1),
		},
		MipLevels:     max(desc.MipLevels, 1),
		ArrayLayers:   max(desc.Layers, 1),
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(desc.Usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	if desc.Cube {
		info.Flags = vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit)
	}
	var img vk.Image
	if err := check("vulkan: create image", d.cmds.CreateImage(d.handle, &info, nil, &img)); err != nil {
		return 0, backend.MemoryRequirements{}, err
	}
	var req vk.MemoryRequirements
	d.cmds.GetImageMemoryRequirements(d.handle, img, &req)
	return backend.Image(img), requirements(req), nil
}

func requirements(req vk.MemoryRequirements) backend.MemoryRequirements {
	return backend.MemoryRequirements{
		Size:      uint64(req.Size),
		Alignment: uint64(req.Alignment),
		TypeBits:  req.MemoryTypeBits,
	}
}

// BindImageMemory implements backend.Device.
func (d *Device) BindImageMemory(i backend.Image, m backend.Memory, offset uint64) error {
	r := d.cmds.BindImageMemory(d.handle, vk.Image(i), vk.DeviceMemory(m), vk.DeviceSize(offset))
	return check("vulkan: bind image memory", r)
}

// DestroyImage implements backend.Device.
func (d *Device) DestroyImage(i backend.Image) {
	d.cmds.DestroyImage(d.handle, vk.Image(i), nil)
}

// CreateImageView implements backend.Device.
func (d *Device) CreateImageView(desc backend.ImageViewDesc) (backend.ImageView, error) {
	info := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    vk.Image(desc.Image),
		ViewType: viewType(desc.Type),
		Format:   vk.Format(desc.Format),
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(desc.Aspect),
			LevelCount: max(desc.MipLevels, 1),
			LayerCount: max(desc.Layers, 1),
		},
	}
	var v vk.ImageView
	if err := check("vulkan: create image view", d.cmds.CreateImageView(d.handle, &info, nil, &v)); err != nil {
		return 0, err
	}
	return backend.ImageView(v), nil
}

// DestroyImageView implements backend.Device.
func (d *Device) DestroyImageView(v backend.ImageView) {
	d.cmds.DestroyImageView(d.handle, vk.ImageView(v), nil)
}

// CreateSampler implements backend.Device. Anisotropy is clamped to the
// device limit and ignored when the feature is missing.
func (d *Device) CreateSampler(desc backend.SamplerDesc) (backend.Sampler, error) {
	maxLod := desc.LodMaxClamp
	if maxLod == 0 {
		maxLod = vk.LodClampNone
	}
	info := vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    filter(desc.MagFilter),
		MinFilter:    filter(desc.MinFilter),
		MipmapMode:   mipmapMode(desc.MipmapFilter),
		AddressModeU: addressMode(desc.AddressModeU),
		AddressModeV: addressMode(desc.AddressModeV),
		AddressModeW: addressMode(desc.AddressModeW),
		MinLod:       desc.LodMinClamp,
		MaxLod:       maxLod,
		BorderColor:  vk.BorderColorFloatTransparentBlack,
	}
	if desc.MaxAnisotropy > 1 && d.anisotropy {
		info.AnisotropyEnable = vk.True
		info.MaxAnisotropy = min(float32(desc.MaxAnisotropy), d.maxAnisotropy)
	}
	if desc.Compare != 0 {
		info.CompareEnable = vk.True
		info.CompareOp = compareOp(desc.Compare)
	}
	var s vk.Sampler
	if err := check("vulkan: create sampler", d.cmds.CreateSampler(d.handle, &info, nil, &s)); err != nil {
		return 0, err
	}
	return backend.Sampler(s), nil
}

// DestroySampler implements backend.Device.
func (d *Device) DestroySampler(s backend.Sampler) {
	d.cmds.DestroySampler(d.handle, vk.Sampler(s), nil)
}

// CreateShaderModule implements backend.Device.
func (d *Device) CreateShaderModule(code []uint32) (backend.ShaderModule, error) {
	if len(code) == 0 {
		return 0, coil.Errorf(coil.Validation, "vulkan: create shader module", "empty code")
	}
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uintptr(len(code) * 4),
		PCode:    &code[0],
	}
	var m vk.ShaderModule
	if err := check("vulkan: create shader module", d.cmds.CreateShaderModule(d.handle, &info, nil, &m)); err != nil {
		return 0, err
	}
	return backend.ShaderModule(m), nil
}

// DestroyShaderModule implements backend.Device.
func (d *Device) DestroyShaderModule(m backend.ShaderModule) {
	d.cmds.DestroyShaderModule(d.handle, vk.ShaderModule(m), nil)
}

// CreateFence implements backend.Device.
func (d *Device) CreateFence(signaled bool) (backend.Fence, error) {
	info := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	if signaled {
		info.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var f vk.Fence
	if err := check("vulkan: create fence", d.cmds.CreateFence(d.handle, &info, nil, &f)); err != nil {
		return 0, err
	}
	return backend.Fence(f), nil
}

// WaitFence implements backend.Device. It blocks without a timeout.
func (d *Device) WaitFence(f backend.Fence) error {
	h := vk.Fence(f)
	return check("vulkan: wait fence", d.cmds.WaitForFences(d.handle, 1, &h, vk.True, ^uint64(0)))
}

// ResetFence implements backend.Device.
func (d *Device) ResetFence(f backend.Fence) error {
	h := vk.Fence(f)
	return check("vulkan: reset fence", d.cmds.ResetFences(d.handle, 1, &h))
}

// DestroyFence implements backend.Device.
func (d *Device) DestroyFence(f backend.Fence) {
	d.cmds.DestroyFence(d.handle, vk.Fence(f), nil)
}

// CreateSemaphore implements backend.Device.
func (d *Device) CreateSemaphore() (backend.Semaphore, error) {
	info := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	var s vk.Semaphore
	if err := check("vulkan: create semaphore", d.cmds.CreateSemaphore(d.handle, &info, nil, &s)); err != nil {
		return 0, err
	}
	return backend.Semaphore(s), nil
}

// DestroySemaphore implements backend.Device.
func (d *Device) DestroySemaphore(s backend.Semaphore) {
	d.cmds.DestroySemaphore(d.handle, vk.Semaphore(s), nil)
}

// Submit implements backend.Device.
func (d *Device) Submit(info backend.SubmitInfo) error {
	const op = "vulkan: submit"
	if len(info.Wait) != len(info.WaitStages) {
		return coil.Errorf(coil.Validation, op, "%d wait semaphores with %d stages", len(info.Wait), len(info.WaitStages))
	}
	cbs := make([]vk.CommandBuffer, len(info.Commands))
	for i, c := range info.Commands {
		cb, ok := c.(*CommandBuffer)
		if !ok {
			return coil.Errorf(coil.Validation, op, "foreign command buffer %T", c)
		}
		cbs[i] = cb.handle
	}
	wait := make([]vk.Semaphore, len(info.Wait))
	stages := make([]vk.PipelineStageFlags, len(info.Wait))
	for i, s := range info.Wait {
		wait[i] = vk.Semaphore(s)
		stages[i] = vk.PipelineStageFlags(info.WaitStages[i])
	}
	signal := make([]vk.Semaphore, len(info.Signal))
	for i, s := range info.Signal {
		signal[i] = vk.Semaphore(s)
	}

	submit := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(wait)),
		PWaitSemaphores:      first(wait),
		PWaitDstStageMask:    first(stages),
		CommandBufferCount:   uint32(len(cbs)),
		PCommandBuffers:      first(cbs),
		SignalSemaphoreCount: uint32(len(signal)),
		PSignalSemaphores:    first(signal),
	}
	r := d.cmds.QueueSubmit(d.queue, 1, &submit, vk.Fence(info.Fence))
	runtime.KeepAlive(cbs)
	runtime.KeepAlive(wait)
	runtime.KeepAlive(stages)
	runtime.KeepAlive(signal)
	return check(op, r)
}

// AllocateCommandBuffer implements backend.Device.
func (d *Device) AllocateCommandBuffer() (backend.CommandBuffer, error) {
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	var h vk.CommandBuffer
	if err := check("vulkan: allocate command buffer", d.cmds.AllocateCommandBuffers(d.handle, &info, &h)); err != nil {
		return nil, err
	}
	return &CommandBuffer{d: d, handle: h}, nil
}

// FreeCommandBuffer implements backend.Device.
func (d *Device) FreeCommandBuffer(cb backend.CommandBuffer) {
	c, ok := cb.(*CommandBuffer)
	if !ok {
		return
	}
	d.cmds.FreeCommandBuffers(d.handle, d.pool, 1, &c.handle)
}
