package backend

import (
	"errors"
)

// Backend errors. Drivers return them wrapped in a *coil.Error carrying
// the matching kind, so callers can test either the kind or the cause.
var (
	// ErrNotAvailable is returned when a driver is not registered or its
	// system library cannot be loaded.
	ErrNotAvailable = errors.New("backend: not available")

	// ErrNoDevice is returned when no physical device satisfies the request.
	ErrNoDevice = errors.New("backend: no suitable device")

	// ErrOutOfPoolMemory is returned by AllocateDescriptorSet when the pool
	// cannot hold another set.
	ErrOutOfPoolMemory = errors.New("backend: out of descriptor pool memory")

	// ErrOutOfMemory is returned when host or device memory is exhausted.
	ErrOutOfMemory = errors.New("backend: out of memory")

	// ErrOutOfDate is returned by swapchain operations when the surface
	// changed and the swapchain must be recreated before use.
	ErrOutOfDate = errors.New("backend: swapchain out of date")
)

// InstanceConfig configures instance creation.
type InstanceConfig struct {
	AppName string
	// Validation enables driver validation layers when available.
	Validation bool
	// Extensions are extra instance extensions, typically requested by
	// surface providers.
	Extensions []string
}

// DeviceConfig selects a physical device.
type DeviceConfig struct {
	// Surface, when non-zero, requires presentation support and the
	// swapchain extension.
	Surface Surface
	// Compute requires storage buffer support in compute shaders.
	Compute bool
}

// Driver opens instances of one graphics API.
type Driver interface {
	// Name returns the registry name of the driver.
	Name() string

	// CreateInstance loads the API and creates an instance.
	CreateInstance(cfg InstanceConfig) (Instance, error)
}

// Instance is an initialized graphics API.
type Instance interface {
	// Handle returns the native instance handle, used by surface providers.
	Handle() uintptr

	// CreateDevice selects a physical device and opens a logical device
	// with a single graphics and compute queue.
	CreateDevice(cfg DeviceConfig) (Device, error)

	DestroySurface(s Surface)
	Destroy()
}

// Device is a logical device with one queue. Methods are not safe for
// concurrent use unless the driver says otherwise.
type Device interface {
	Properties() Properties
	WaitIdle() error
	Destroy()

	AllocateMemory(size uint64, typeIndex int) (Memory, error)
	FreeMemory(m Memory)
	// MapMemory maps size bytes at offset. The slice stays valid until
	// UnmapMemory or FreeMemory.
	MapMemory(m Memory, offset, size uint64) ([]byte, error)
	UnmapMemory(m Memory)
	FlushMemory(m Memory, offset, size uint64) error
	InvalidateMemory(m Memory, offset, size uint64) error

	CreateBuffer(desc BufferDesc) (Buffer, MemoryRequirements, error)
	BindBufferMemory(b Buffer, m Memory, offset uint64) error
	DestroyBuffer(b Buffer)

	CreateImage(desc ImageDesc) (Image, MemoryRequirements, error)
	BindImageMemory(i Image, m Memory, offset uint64) error
	DestroyImage(i Image)

	CreateImageView(desc ImageViewDesc) (ImageView, error)
	DestroyImageView(v ImageView)

	CreateSampler(desc SamplerDesc) (Sampler, error)
	DestroySampler(s Sampler)

	CreateRenderPass(desc RenderPassDesc) (RenderPass, error)
	DestroyRenderPass(p RenderPass)

	CreateFramebuffer(desc FramebufferDesc) (Framebuffer, error)
	DestroyFramebuffer(f Framebuffer)

	CreateShaderModule(code []uint32) (ShaderModule, error)
	DestroyShaderModule(m ShaderModule)

	CreateDescriptorSetLayout(desc SetLayoutDesc) (DescriptorSetLayout, error)
	DestroyDescriptorSetLayout(l DescriptorSetLayout)

	CreatePipelineLayout(sets []DescriptorSetLayout) (PipelineLayout, error)
	DestroyPipelineLayout(l PipelineLayout)

	CreateGraphicsPipeline(desc GraphicsPipelineDesc) (Pipeline, error)
	CreateComputePipeline(desc ComputePipelineDesc) (Pipeline, error)
	DestroyPipeline(p Pipeline)

	CreateDescriptorPool(desc DescriptorPoolDesc) (DescriptorPool, error)
	ResetDescriptorPool(p DescriptorPool) error
	DestroyDescriptorPool(p DescriptorPool)
	// AllocateDescriptorSet fails with ErrOutOfPoolMemory when p is full.
	AllocateDescriptorSet(p DescriptorPool, layout DescriptorSetLayout) (DescriptorSet, error)
	UpdateDescriptorSets(writes []DescriptorWrite)

	AllocateCommandBuffer() (CommandBuffer, error)
	FreeCommandBuffer(cb CommandBuffer)

	CreateFence(signaled bool) (Fence, error)
	WaitFence(f Fence) error
	ResetFence(f Fence) error
	DestroyFence(f Fence)

	CreateSemaphore() (Semaphore, error)
	DestroySemaphore(s Semaphore)

	Submit(info SubmitInfo) error

	CreateSwapchain(desc SwapchainDesc) (SwapchainState, error)
	DestroySwapchain(s Swapchain)
	// AcquireNextImage returns the index of the next image, which becomes
	// available once signal is signaled. suboptimal is true when the
	// swapchain still works but should be recreated.
	AcquireNextImage(s Swapchain, signal Semaphore) (index int, suboptimal bool, err error)
	// Present queues image index for presentation after wait is signaled.
	Present(s Swapchain, index int, wait Semaphore) (suboptimal bool, err error)
}

// CommandBuffer records commands for one submission.
type CommandBuffer interface {
	Begin() error
	End() error
	Reset() error

	BeginRenderPass(pass RenderPass, fb Framebuffer, width, height uint32, clears []ClearValue)
	NextSubpass()
	EndRenderPass()

	BindPipeline(point BindPoint, p Pipeline)
	BindDescriptorSets(point BindPoint, layout PipelineLayout, first int, sets []DescriptorSet)
	BindVertexBuffers(first int, buffers []Buffer, offsets []uint64)
	BindIndexBuffer(b Buffer, offset uint64, t IndexType)

	Draw(vertices, instances, firstVertex, firstInstance uint32)
	DrawIndexed(indices, instances, firstIndex uint32, vertexOffset int32, firstInstance uint32)
	Dispatch(x, y, z uint32)

	CopyBufferToImage(src Buffer, dst Image, regions []BufferImageCopy)
	PipelineBarrier(b Barrier)
}
