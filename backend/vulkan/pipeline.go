// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !(js && wasm)

package vulkan

import (
	"runtime"
	"unsafe"

	"github.com/gogpu/wgpu/hal/vulkan/vk"

	coil "github.com/quyse/coil-core-sub001"
	"github.com/quyse/coil-core-sub001/backend"
)

func attachmentIndex(i int) uint32 {
	if i < 0 {
		return vk.AttachmentUnused
	}
	return uint32(i)
}

func subpassIndex(i int) uint32 {
	if i == backend.SubpassExternal {
		return vk.SubpassExternal
	}
	return uint32(i)
}

func attachmentRefs(refs []backend.AttachmentRef) []vk.AttachmentReference {
	out := make([]vk.AttachmentReference, len(refs))
	for i, r := range refs {
		out[i] = vk.AttachmentReference{Attachment: attachmentIndex(r.Attachment), Layout: vk.ImageLayout(r.Layout)}
	}
	return out
}

// CreateRenderPass implements backend.Device.
func (d *Device) CreateRenderPass(desc backend.RenderPassDesc) (backend.RenderPass, error) {
	attachments := make([]vk.AttachmentDescription, len(desc.Attachments))
	for i, a := range desc.Attachments {
		attachments[i] = vk.AttachmentDescription{
			Format:         vk.Format(a.Format),
			Samples:        vk.SampleCount1Bit,
			LoadOp:         loadOp(a.Load),
			StoreOp:        storeOp(a.Store),
			StencilLoadOp:  loadOp(a.StencilLoad),
			StencilStoreOp: storeOp(a.StencilStore),
			InitialLayout:  vk.ImageLayout(a.Initial),
			FinalLayout:    vk.ImageLayout(a.Final),
		}
	}

	// Reference arrays are allocated up front so the pointers stored in
	// the subpass descriptions stay valid for the call.
	inputs := make([][]vk.AttachmentReference, len(desc.Subpasses))
	colors := make([][]vk.AttachmentReference, len(desc.Subpasses))
	depths := make([]vk.AttachmentReference, len(desc.Subpasses))
	preserve := make([][]uint32, len(desc.Subpasses))
	subpasses := make([]vk.SubpassDescription, len(desc.Subpasses))
	for i, s := range desc.Subpasses {
		inputs[i] = attachmentRefs(s.Inputs)
		colors[i] = attachmentRefs(s.Colors)
		for _, p := range s.Preserve {
			preserve[i] = append(preserve[i], uint32(p))
		}
		subpasses[i] = vk.SubpassDescription{
			PipelineBindPoint:       vk.PipelineBindPointGraphics,
			InputAttachmentCount:    uint32(len(inputs[i])),
			PInputAttachments:       first(inputs[i]),
			ColorAttachmentCount:    uint32(len(colors[i])),
			PColorAttachments:       first(colors[i]),
			PreserveAttachmentCount: uint32(len(preserve[i])),
			PPreserveAttachments:    first(preserve[i]),
		}
		if s.DepthStencil != nil {
			depths[i] = vk.AttachmentReference{
				Attachment: attachmentIndex(s.DepthStencil.Attachment),
				Layout:     vk.ImageLayout(s.DepthStencil.Layout),
			}
			subpasses[i].PDepthStencilAttachment = &depths[i]
		}
	}

	deps := make([]vk.SubpassDependency, len(desc.Dependencies))
	for i, dep := range desc.Dependencies {
		deps[i] = vk.SubpassDependency{
			SrcSubpass:    subpassIndex(dep.Src),
			DstSubpass:    subpassIndex(dep.Dst),
			SrcStageMask:  vk.PipelineStageFlags(dep.SrcStage),
			DstStageMask:  vk.PipelineStageFlags(dep.DstStage),
			SrcAccessMask: vk.AccessFlags(dep.SrcAccess),
			DstAccessMask: vk.AccessFlags(dep.DstAccess),
		}
		if dep.ByRegion {
			deps[i].DependencyFlags = vk.DependencyFlags(vk.DependencyByRegionBit)
		}
	}

	info := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    first(attachments),
		SubpassCount:    uint32(len(subpasses)),
		PSubpasses:      first(subpasses),
		DependencyCount: uint32(len(deps)),
		PDependencies:   first(deps),
	}
	var p vk.RenderPass
	r := d.cmds.CreateRenderPass(d.handle, &info, nil, &p)
	runtime.KeepAlive(inputs)
	runtime.KeepAlive(colors)
	runtime.KeepAlive(depths)
	runtime.KeepAlive(preserve)
	if err := check("vulkan: create render pass", r); err != nil {
		return 0, err
	}
	return backend.RenderPass(p), nil
}

// DestroyRenderPass implements backend.Device.
func (d *Device) DestroyRenderPass(p backend.RenderPass) {
	d.cmds.DestroyRenderPass(d.handle, vk.RenderPass(p), nil)
}

// CreateFramebuffer implements backend.Device.
func (d *Device) CreateFramebuffer(desc backend.FramebufferDesc) (backend.Framebuffer, error) {
	views := make([]vk.ImageView, len(desc.Views))
	for i, v := range desc.Views {
		views[i] = vk.ImageView(v)
	}
	info := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      vk.RenderPass(desc.Pass),
		AttachmentCount: uint32(len(views)),
		PAttachments:    first(views),
		Width:           desc.Width,
		Height:          desc.Height,
		Layers:          1,
	}
	var fb vk.Framebuffer
	if err := check("vulkan: create framebuffer", d.cmds.CreateFramebuffer(d.handle, &info, nil, &fb)); err != nil {
		return 0, err
	}
	return backend.Framebuffer(fb), nil
}

// DestroyFramebuffer implements backend.Device.
func (d *Device) DestroyFramebuffer(f backend.Framebuffer) {
	d.cmds.DestroyFramebuffer(d.handle, vk.Framebuffer(f), nil)
}

// CreateDescriptorSetLayout implements backend.Device.
func (d *Device) CreateDescriptorSetLayout(desc backend.SetLayoutDesc) (backend.DescriptorSetLayout, error) {
	bindings := make([]vk.DescriptorSetLayoutBinding, len(desc.Bindings))
	for i, b := range desc.Bindings {
		bindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         uint32(b.Slot),
			DescriptorType:  vk.DescriptorType(b.Type),
			DescriptorCount: uint32(max(b.Count, 1)),
			StageFlags:      stageFlags(b.Stages),
		}
	}
	info := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    first(bindings),
	}
	var l vk.DescriptorSetLayout
	if err := check("vulkan: create set layout", d.cmds.CreateDescriptorSetLayout(d.handle, &info, nil, &l)); err != nil {
		return 0, err
	}
	return backend.DescriptorSetLayout(l), nil
}

// DestroyDescriptorSetLayout implements backend.Device.
func (d *Device) DestroyDescriptorSetLayout(l backend.DescriptorSetLayout) {
	d.cmds.DestroyDescriptorSetLayout(d.handle, vk.DescriptorSetLayout(l), nil)
}

// CreatePipelineLayout implements backend.Device.
func (d *Device) CreatePipelineLayout(sets []backend.DescriptorSetLayout) (backend.PipelineLayout, error) {
	layouts := make([]vk.DescriptorSetLayout, len(sets))
	for i, s := range sets {
		layouts[i] = vk.DescriptorSetLayout(s)
	}
	info := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(layouts)),
		PSetLayouts:    first(layouts),
	}
	var l vk.PipelineLayout
	if err := check("vulkan: create pipeline layout", d.cmds.CreatePipelineLayout(d.handle, &info, nil, &l)); err != nil {
		return 0, err
	}
	return backend.PipelineLayout(l), nil
}

// DestroyPipelineLayout implements backend.Device.
func (d *Device) DestroyPipelineLayout(l backend.PipelineLayout) {
	d.cmds.DestroyPipelineLayout(d.handle, vk.PipelineLayout(l), nil)
}

func shaderStage(s backend.ShaderStageDesc, name []byte) vk.PipelineShaderStageCreateInfo {
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stageBit(s.Stage),
		Module: vk.ShaderModule(s.Module),
		PName:  uintptr(unsafe.Pointer(&name[0])),
	}
}

// CreateGraphicsPipeline implements backend.Device. Pipelines draw
// triangle lists with back faces culled and counter-clockwise front
// faces into a fixed viewport.
func (d *Device) CreateGraphicsPipeline(desc backend.GraphicsPipelineDesc) (backend.Pipeline, error) {
	const op = "vulkan: create graphics pipeline"
	if len(desc.Stages) == 0 {
		return 0, coil.Errorf(coil.Validation, op, "no shader stages")
	}
	names := make([][]byte, len(desc.Stages))
	stages := make([]vk.PipelineShaderStageCreateInfo, len(desc.Stages))
	for i, s := range desc.Stages {
		names[i] = cString(s.Entry)
		stages[i] = shaderStage(s, names[i])
	}

	bindings := make([]vk.VertexInputBindingDescription, len(desc.Bindings))
	for i, b := range desc.Bindings {
		bindings[i] = vk.VertexInputBindingDescription{
			Binding:   uint32(b.Slot),
			Stride:    b.Stride,
			InputRate: stepRate(b.Step),
		}
	}
	attributes := make([]vk.VertexInputAttributeDescription, len(desc.Attributes))
	for i, a := range desc.Attributes {
		attributes[i] = vk.VertexInputAttributeDescription{
			Location: uint32(a.Location),
			Binding:  uint32(a.Slot),
			Format:   vk.Format(a.Format),
			Offset:   a.Offset,
		}
	}
	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(bindings)),
		PVertexBindingDescriptions:      first(bindings),
		VertexAttributeDescriptionCount: uint32(len(attributes)),
		PVertexAttributeDescriptions:    first(attributes),
	}
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vk.PrimitiveTopologyTriangleList,
	}

	v := desc.Viewport
	viewport := vk.Viewport{X: v.X, Y: v.Y, Width: v.Width, Height: v.Height, MinDepth: 0, MaxDepth: 1}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: int32(v.X), Y: int32(v.Y)},
		Extent: vk.Extent2D{Width: uint32(v.Width), Height: uint32(v.Height)},
	}
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports:    &viewport,
		ScissorCount:  1,
		PScissors:     &scissor,
	}
	raster := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		CullMode:    vk.CullModeFlags(vk.CullModeBackBit),
		FrontFace:   vk.FrontFaceCounterClockwise,
		LineWidth:   1,
	}
	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
	}
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:          vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthCompareOp: compareOp(desc.DepthCompare),
		MaxDepthBounds: 1,
	}
	if desc.DepthTest {
		depthStencil.DepthTestEnable = vk.True
	}
	if desc.DepthWrite {
		depthStencil.DepthWriteEnable = vk.True
	}
	blends := make([]vk.PipelineColorBlendAttachmentState, len(desc.Blends))
	for i, b := range desc.Blends {
		blends[i] = blendAttachment(b)
	}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: uint32(len(blends)),
		PAttachments:    first(blends),
	}

	info := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             &stages[0],
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &raster,
		PMultisampleState:   &multisample,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlend,
		Layout:              vk.PipelineLayout(desc.Layout),
		RenderPass:          vk.RenderPass(desc.Pass),
		Subpass:             uint32(desc.Subpass),
		BasePipelineIndex:   -1,
	}
	var p vk.Pipeline
	r := d.cmds.CreateGraphicsPipelines(d.handle, 0, 1, &info, nil, &p)
	runtime.KeepAlive(names)
	runtime.KeepAlive(bindings)
	runtime.KeepAlive(attributes)
	runtime.KeepAlive(blends)
	if err := check(op, r); err != nil {
		return 0, err
	}
	return backend.Pipeline(p), nil
}

// CreateComputePipeline implements backend.Device.
func (d *Device) CreateComputePipeline(desc backend.ComputePipelineDesc) (backend.Pipeline, error) {
	name := cString(desc.Stage.Entry)
	info := vk.ComputePipelineCreateInfo{
		SType:             vk.StructureTypeComputePipelineCreateInfo,
		Stage:             shaderStage(desc.Stage, name),
		Layout:            vk.PipelineLayout(desc.Layout),
		BasePipelineIndex: -1,
	}
	var p vk.Pipeline
	r := d.cmds.CreateComputePipelines(d.handle, 0, 1, &info, nil, &p)
	runtime.KeepAlive(name)
	if err := check("vulkan: create compute pipeline", r); err != nil {
		return 0, err
	}
	return backend.Pipeline(p), nil
}

// DestroyPipeline implements backend.Device.
func (d *Device) DestroyPipeline(p backend.Pipeline) {
	d.cmds.DestroyPipeline(d.handle, vk.Pipeline(p), nil)
}

// CreateDescriptorPool implements backend.Device.
func (d *Device) CreateDescriptorPool(desc backend.DescriptorPoolDesc) (backend.DescriptorPool, error) {
	sizes := make([]vk.DescriptorPoolSize, len(desc.Sizes))
	for i, s := range desc.Sizes {
		sizes[i] = vk.DescriptorPoolSize{Type: vk.DescriptorType(s.Type), DescriptorCount: uint32(s.Count)}
	}
	info := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       uint32(desc.MaxSets),
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    first(sizes),
	}
	var p vk.DescriptorPool
	if err := check("vulkan: create descriptor pool", d.cmds.CreateDescriptorPool(d.handle, &info, nil, &p)); err != nil {
		return 0, err
	}
	return backend.DescriptorPool(p), nil
}

// ResetDescriptorPool implements backend.Device.
func (d *Device) ResetDescriptorPool(p backend.DescriptorPool) error {
	return check("vulkan: reset descriptor pool", d.cmds.ResetDescriptorPool(d.handle, vk.DescriptorPool(p), 0))
}

// DestroyDescriptorPool implements backend.Device.
func (d *Device) DestroyDescriptorPool(p backend.DescriptorPool) {
	d.cmds.DestroyDescriptorPool(d.handle, vk.DescriptorPool(p), nil)
}

// AllocateDescriptorSet implements backend.Device. Pool exhaustion and
// fragmentation both surface as backend.ErrOutOfPoolMemory.
func (d *Device) AllocateDescriptorSet(p backend.DescriptorPool, layout backend.DescriptorSetLayout) (backend.DescriptorSet, error) {
	l := vk.DescriptorSetLayout(layout)
	info := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     vk.DescriptorPool(p),
		DescriptorSetCount: 1,
		PSetLayouts:        &l,
	}
	var s vk.DescriptorSet
	if err := check("vulkan: allocate descriptor set", d.cmds.AllocateDescriptorSets(d.handle, &info, &s)); err != nil {
		return 0, err
	}
	return backend.DescriptorSet(s), nil
}

// UpdateDescriptorSets implements backend.Device.
func (d *Device) UpdateDescriptorSets(writes []backend.DescriptorWrite) {
	if len(writes) == 0 {
		return
	}
	images := make([]vk.DescriptorImageInfo, len(writes))
	buffers := make([]vk.DescriptorBufferInfo, len(writes))
	out := make([]vk.WriteDescriptorSet, len(writes))
	for i, w := range writes {
		out[i] = vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          vk.DescriptorSet(w.Set),
			DstBinding:      uint32(w.Slot),
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorType(w.Type),
		}
		switch w.Type {
		case backend.DescriptorUniformBuffer, backend.DescriptorStorageBuffer:
			rng := vk.DeviceSize(w.Range)
			if w.Range == 0 {
				rng = vk.DeviceSize(vk.WholeSize)
			}
			buffers[i] = vk.DescriptorBufferInfo{
				Buffer: vk.Buffer(w.Buffer),
				Offset: vk.DeviceSize(w.Offset),
				Range:  rng,
			}
			out[i].PBufferInfo = &buffers[i]
		default:
			images[i] = vk.DescriptorImageInfo{
				Sampler:     vk.Sampler(w.Sampler),
				ImageView:   vk.ImageView(w.View),
				ImageLayout: vk.ImageLayout(w.Layout),
			}
			out[i].PImageInfo = &images[i]
		}
	}
	d.cmds.UpdateDescriptorSets(d.handle, uint32(len(out)), &out[0], 0, nil)
	runtime.KeepAlive(images)
	runtime.KeepAlive(buffers)
}
