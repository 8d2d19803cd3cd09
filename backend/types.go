package backend

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// Handles to driver objects. The zero value is the null handle.
type (
	Buffer              uint64
	Image               uint64
	ImageView           uint64
	Sampler             uint64
	Memory              uint64
	RenderPass          uint64
	Framebuffer         uint64
	ShaderModule        uint64
	DescriptorSetLayout uint64
	PipelineLayout      uint64
	Pipeline            uint64
	DescriptorPool      uint64
	DescriptorSet       uint64
	Fence               uint64
	Semaphore           uint64
	Surface             uint64
	Swapchain           uint64
)

// Format is a native image or vertex format. Values match VkFormat.
type Format uint32

// Formats known to the core.
const (
	FormatUndefined          Format = 0
	FormatR8Unorm            Format = 9
	FormatR8Uint             Format = 13
	FormatR8G8Unorm          Format = 16
	FormatR8G8B8A8Unorm      Format = 37
	FormatR8G8B8A8Snorm      Format = 38
	FormatR8G8B8A8Uint       Format = 41
	FormatR8G8B8A8Sint       Format = 42
	FormatR8G8B8A8Srgb       Format = 43
	FormatB8G8R8A8Unorm      Format = 44
	FormatB8G8R8A8Srgb       Format = 50
	FormatR16Sfloat          Format = 76
	FormatR16G16Sfloat       Format = 83
	FormatR16G16B16A16Sfloat Format = 97
	FormatR32Uint            Format = 98
	FormatR32Sint            Format = 99
	FormatR32Sfloat          Format = 100
	FormatR32G32Uint         Format = 101
	FormatR32G32Sint         Format = 102
	FormatR32G32Sfloat       Format = 103
	FormatR32G32B32Uint      Format = 104
	FormatR32G32B32Sint      Format = 105
	FormatR32G32B32Sfloat    Format = 106
	FormatR32G32B32A32Uint   Format = 107
	FormatR32G32B32A32Sint   Format = 108
	FormatR32G32B32A32Sfloat Format = 109
	FormatD32Sfloat          Format = 126
	FormatD24UnormS8Uint     Format = 129
	FormatD32SfloatS8Uint    Format = 130
	FormatBC1RGBUnorm        Format = 131
	FormatBC1RGBSrgb         Format = 132
	FormatBC1RGBAUnorm       Format = 133
	FormatBC1RGBASrgb        Format = 134
	FormatBC2Unorm           Format = 135
	FormatBC2Srgb            Format = 136
	FormatBC3Unorm           Format = 137
	FormatBC3Srgb            Format = 138
	FormatBC4Unorm           Format = 139
	FormatBC4Snorm           Format = 140
	FormatBC5Unorm           Format = 141
	FormatBC5Snorm           Format = 142
)

// IsDepthStencil reports whether f is a depth or depth-stencil format.
func (f Format) IsDepthStencil() bool {
	return f == FormatD32Sfloat || f == FormatD24UnormS8Uint || f == FormatD32SfloatS8Uint
}

// HasStencil reports whether f carries a stencil aspect.
func (f Format) HasStencil() bool {
	return f == FormatD24UnormS8Uint || f == FormatD32SfloatS8Uint
}

// ImageLayout is the layout of an image subresource. Values match VkImageLayout.
type ImageLayout uint32

// Image layouts.
const (
	LayoutUndefined                     ImageLayout = 0
	LayoutGeneral                       ImageLayout = 1
	LayoutColorAttachmentOptimal        ImageLayout = 2
	LayoutDepthStencilAttachmentOptimal ImageLayout = 3
	LayoutDepthStencilReadOnlyOptimal   ImageLayout = 4
	LayoutShaderReadOnlyOptimal         ImageLayout = 5
	LayoutTransferSrcOptimal            ImageLayout = 6
	LayoutTransferDstOptimal            ImageLayout = 7
	LayoutPresentSrc                    ImageLayout = 1000001002
)

func (l ImageLayout) String() string {
	switch l {
	case LayoutUndefined:
		return "UNDEFINED"
	case LayoutGeneral:
		return "GENERAL"
	case LayoutColorAttachmentOptimal:
		return "COLOR_ATTACHMENT_OPTIMAL"
	case LayoutDepthStencilAttachmentOptimal:
		return "DEPTH_STENCIL_ATTACHMENT_OPTIMAL"
	case LayoutDepthStencilReadOnlyOptimal:
		return "DEPTH_STENCIL_READ_ONLY_OPTIMAL"
	case LayoutShaderReadOnlyOptimal:
		return "SHADER_READ_ONLY_OPTIMAL"
	case LayoutTransferSrcOptimal:
		return "TRANSFER_SRC_OPTIMAL"
	case LayoutTransferDstOptimal:
		return "TRANSFER_DST_OPTIMAL"
	case LayoutPresentSrc:
		return "PRESENT_SRC"
	}
	return "UNKNOWN"
}

// PipelineStage is a mask of pipeline stages. Bits match VkPipelineStageFlagBits.
type PipelineStage uint32

// Pipeline stages.
const (
	StageTopOfPipe             PipelineStage = 0x00000001
	StageDrawIndirect          PipelineStage = 0x00000002
	StageVertexInput           PipelineStage = 0x00000004
	StageVertexShader          PipelineStage = 0x00000008
	StageFragmentShader        PipelineStage = 0x00000080
	StageEarlyFragmentTests    PipelineStage = 0x00000100
	StageLateFragmentTests     PipelineStage = 0x00000200
	StageColorAttachmentOutput PipelineStage = 0x00000400
	StageComputeShader         PipelineStage = 0x00000800
	StageTransfer              PipelineStage = 0x00001000
	StageBottomOfPipe          PipelineStage = 0x00002000
	StageHost                  PipelineStage = 0x00004000
	StageAllGraphics           PipelineStage = 0x00008000
	StageAllCommands           PipelineStage = 0x00010000
)

// Access is a mask of memory access types. Bits match VkAccessFlagBits.
type Access uint32

// Access types.
const (
	AccessIndirectCommandRead         Access = 0x00000001
	AccessIndexRead                   Access = 0x00000002
	AccessVertexAttributeRead         Access = 0x00000004
	AccessUniformRead                 Access = 0x00000008
	AccessInputAttachmentRead         Access = 0x00000010
	AccessShaderRead                  Access = 0x00000020
	AccessShaderWrite                 Access = 0x00000040
	AccessColorAttachmentRead         Access = 0x00000080
	AccessColorAttachmentWrite        Access = 0x00000100
	AccessDepthStencilAttachmentRead  Access = 0x00000200
	AccessDepthStencilAttachmentWrite Access = 0x00000400
	AccessTransferRead                Access = 0x00000800
	AccessTransferWrite               Access = 0x00001000
	AccessHostRead                    Access = 0x00002000
	AccessHostWrite                   Access = 0x00004000
	AccessMemoryRead                  Access = 0x00008000
	AccessMemoryWrite                 Access = 0x00010000
)

// BufferUsage is a mask of buffer usages. Bits match VkBufferUsageFlagBits.
type BufferUsage uint32

// Buffer usages.
const (
	BufferTransferSrc BufferUsage = 0x00000001
	BufferTransferDst BufferUsage = 0x00000002
	BufferUniform     BufferUsage = 0x00000010
	BufferStorage     BufferUsage = 0x00000020
	BufferIndex       BufferUsage = 0x00000040
	BufferVertex      BufferUsage = 0x00000080
)

// ImageUsage is a mask of image usages. Bits match VkImageUsageFlagBits.
type ImageUsage uint32

// Image usages.
const (
	ImageTransferSrc            ImageUsage = 0x00000001
	ImageTransferDst            ImageUsage = 0x00000002
	ImageSampled                ImageUsage = 0x00000004
	ImageStorage                ImageUsage = 0x00000008
	ImageColorAttachment        ImageUsage = 0x00000010
	ImageDepthStencilAttachment ImageUsage = 0x00000020
	ImageInputAttachment        ImageUsage = 0x00000080
)

// ImageAspect selects the aspects of an image subresource.
type ImageAspect uint32

// Image aspects.
const (
	AspectColor   ImageAspect = 0x1
	AspectDepth   ImageAspect = 0x2
	AspectStencil ImageAspect = 0x4
)

// MemoryProperty is a mask of memory type properties.
type MemoryProperty uint32

// Memory properties.
const (
	MemoryDeviceLocal  MemoryProperty = 0x1
	MemoryHostVisible  MemoryProperty = 0x2
	MemoryHostCoherent MemoryProperty = 0x4
	MemoryHostCached   MemoryProperty = 0x8
)

// LoadOp is the attachment load operation.
type LoadOp uint32

// Load operations.
const (
	LoadOpLoad LoadOp = iota
	LoadOpClear
	LoadOpDontCare
)

// StoreOp is the attachment store operation.
type StoreOp uint32

// Store operations.
const (
	StoreOpStore StoreOp = iota
	StoreOpDontCare
)

// BindPoint selects the graphics or compute pipeline slot.
type BindPoint uint32

// Bind points.
const (
	BindGraphics BindPoint = iota
	BindCompute
)

// DescriptorType is the type of a descriptor. Values match VkDescriptorType.
type DescriptorType uint32

// Descriptor types.
const (
	DescriptorCombinedImageSampler DescriptorType = 1
	DescriptorUniformBuffer        DescriptorType = 6
	DescriptorStorageBuffer        DescriptorType = 7
	DescriptorInputAttachment      DescriptorType = 10
)

// IndexType is the width of index buffer elements.
type IndexType uint32

// Index types.
const (
	IndexUint16 IndexType = iota
	IndexUint32
)

// ViewType is the dimensionality of an image view.
type ViewType uint32

// View types.
const (
	View1D ViewType = iota
	View2D
	View3D
	ViewCube
	View1DArray
	View2DArray
	ViewCubeArray
)

// SubpassExternal designates operations outside the render pass in a Dependency.
const SubpassExternal = -1

// AttachmentUnused marks a hole in the color or input references of a subpass.
const AttachmentUnused = -1

// MemoryType is one memory type exposed by the device.
type MemoryType struct {
	Flags MemoryProperty
	Heap  int
}

// MemoryRequirements describes what memory a buffer or image needs.
type MemoryRequirements struct {
	Size      uint64
	Alignment uint64
	// TypeBits has bit i set when memory type i is acceptable.
	TypeBits uint32
}

// Limits are device limits the core depends on.
type Limits struct {
	MinUniformBufferOffsetAlignment uint64
	MinStorageBufferOffsetAlignment uint64
	NonCoherentAtomSize             uint64
	MaxImageDimension2D             uint32
}

// Properties describes an opened device.
type Properties struct {
	Adapter     gpucontext.AdapterInfo
	Limits      Limits
	MemoryTypes []MemoryType
	// DepthStencilFormat is the preferred depth-stencil attachment format.
	DepthStencilFormat Format
}

// BufferDesc describes a buffer.
type BufferDesc struct {
	Size  uint64
	Usage BufferUsage
}

// ImageDesc describes an image. Height and Depth are 1 for lower dimensions.
type ImageDesc struct {
	// Dim is the number of dimensions, 1 to 3. Zero means 2.
	Dim       int
	Format    Format
	Width     uint32
	Height    uint32
	Depth     uint32
	MipLevels uint32
	Layers    uint32
	Cube      bool
	Usage     ImageUsage
}

// ImageViewDesc describes an image view.
type ImageViewDesc struct {
	Image     Image
	Format    Format
	Type      ViewType
	Aspect    ImageAspect
	MipLevels uint32
	Layers    uint32
}

// AttachmentDesc describes one render pass attachment.
type AttachmentDesc struct {
	Format       Format
	Load         LoadOp
	Store        StoreOp
	StencilLoad  LoadOp
	StencilStore StoreOp
	Initial      ImageLayout
	Final        ImageLayout
}

// AttachmentRef references an attachment from a subpass.
type AttachmentRef struct {
	Attachment int
	Layout     ImageLayout
}

// SubpassDesc describes one subpass.
type SubpassDesc struct {
	Inputs       []AttachmentRef
	Colors       []AttachmentRef
	DepthStencil *AttachmentRef
	Preserve     []int
}

// Dependency is a subpass dependency.
type Dependency struct {
	Src, Dst             int
	SrcStage, DstStage   PipelineStage
	SrcAccess, DstAccess Access
	ByRegion             bool
}

// RenderPassDesc describes a render pass.
type RenderPassDesc struct {
	Attachments  []AttachmentDesc
	Subpasses    []SubpassDesc
	Dependencies []Dependency
}

// FramebufferDesc describes a framebuffer.
type FramebufferDesc struct {
	Pass   RenderPass
	Views  []ImageView
	Width  uint32
	Height uint32
}

// LayoutBinding is one slot of a descriptor set layout.
type LayoutBinding struct {
	Slot   int
	Type   DescriptorType
	Count  int
	Stages gputypes.ShaderStage
}

// SetLayoutDesc describes a descriptor set layout.
type SetLayoutDesc struct {
	Bindings []LayoutBinding
}

// ShaderStageDesc selects an entry point of a shader module.
type ShaderStageDesc struct {
	Module ShaderModule
	Entry  string
	Stage  gputypes.ShaderStage
}

// VertexBinding describes one vertex buffer slot.
type VertexBinding struct {
	Slot   int
	Stride uint32
	Step   gputypes.VertexStepMode
}

// VertexAttribute describes one vertex shader input.
type VertexAttribute struct {
	Location int
	Slot     int
	Offset   uint32
	Format   Format
}

// Viewport is the fixed viewport of a graphics pipeline.
type Viewport struct {
	X, Y, Width, Height float32
}

// GraphicsPipelineDesc describes a graphics pipeline. Rasterization is a
// triangle list with back faces culled and counter-clockwise front faces.
type GraphicsPipelineDesc struct {
	Layout     PipelineLayout
	Pass       RenderPass
	Subpass    int
	Stages     []ShaderStageDesc
	Bindings   []VertexBinding
	Attributes []VertexAttribute
	Viewport   Viewport

	DepthTest    bool
	DepthWrite   bool
	DepthCompare gputypes.CompareFunction

	// Blends has one entry per color attachment; nil disables blending.
	Blends []*gputypes.BlendState
}

// ComputePipelineDesc describes a compute pipeline.
type ComputePipelineDesc struct {
	Layout PipelineLayout
	Stage  ShaderStageDesc
}

// PoolSize is the descriptor capacity of a pool for one type.
type PoolSize struct {
	Type  DescriptorType
	Count int
}

// DescriptorPoolDesc describes a descriptor pool.
type DescriptorPoolDesc struct {
	MaxSets int
	Sizes   []PoolSize
}

// DescriptorWrite updates one slot of a descriptor set.
// Buffer descriptors use Buffer, Offset and Range; image descriptors use
// View, Sampler and Layout.
type DescriptorWrite struct {
	Set     DescriptorSet
	Slot    int
	Type    DescriptorType
	Buffer  Buffer
	Offset  uint64
	Range   uint64
	View    ImageView
	Sampler Sampler
	Layout  ImageLayout
}

// ClearValue is the clear value of one attachment. DepthStencil selects
// Depth and Stencil over Color.
type ClearValue struct {
	Color        gputypes.Color
	Depth        float32
	Stencil      uint32
	DepthStencil bool
}

// MemoryBarrier is a global memory barrier.
type MemoryBarrier struct {
	SrcAccess, DstAccess Access
}

// ImageBarrier is an image memory barrier with a layout transition.
type ImageBarrier struct {
	Image                Image
	SrcAccess, DstAccess Access
	Old, New             ImageLayout
	Aspect               ImageAspect
	BaseMip, Mips        uint32
	BaseLayer, Layers    uint32
}

// Barrier groups the barriers of one pipeline barrier command.
type Barrier struct {
	SrcStage, DstStage PipelineStage
	Memory             []MemoryBarrier
	Images             []ImageBarrier
}

// BufferImageCopy is one region of a buffer to image copy. The buffer
// data is tightly packed.
type BufferImageCopy struct {
	BufferOffset         uint64
	Aspect               ImageAspect
	Mip                  uint32
	BaseLayer, Layers    uint32
	Width, Height, Depth uint32
}

// SubmitInfo describes one queue submission.
type SubmitInfo struct {
	Commands   []CommandBuffer
	Wait       []Semaphore
	WaitStages []PipelineStage
	Signal     []Semaphore
	Fence      Fence
}

// SwapchainDesc describes a swapchain.
type SwapchainDesc struct {
	Surface   Surface
	Width     uint32
	Height    uint32
	MinImages int
	Vsync     bool
	Old       Swapchain
}

// SwapchainState is a created swapchain with its images.
type SwapchainState struct {
	Swapchain Swapchain
	Format    Format
	Width     uint32
	Height    uint32
	Images    []Image
}

// SamplerDesc describes a sampler.
type SamplerDesc = gputypes.SamplerDescriptor
