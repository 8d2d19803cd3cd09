// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !(js && wasm)

package vulkan

import (
	"runtime"

	"github.com/gogpu/wgpu/hal/vulkan/vk"

	"github.com/quyse/coil-core-sub001/backend"
)

// CommandBuffer is a primary command buffer of the device pool.
type CommandBuffer struct {
	d      *Device
	handle vk.CommandBuffer
}

var _ backend.CommandBuffer = (*CommandBuffer)(nil)

// Begin implements backend.CommandBuffer. Buffers are recorded for a
// single submission.
func (c *CommandBuffer) Begin() error {
	info := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	return check("vulkan: begin command buffer", c.d.cmds.BeginCommandBuffer(c.handle, &info))
}

// End implements backend.CommandBuffer.
func (c *CommandBuffer) End() error {
	return check("vulkan: end command buffer", c.d.cmds.EndCommandBuffer(c.handle))
}

// Reset implements backend.CommandBuffer.
func (c *CommandBuffer) Reset() error {
	return check("vulkan: reset command buffer", c.d.cmds.ResetCommandBuffer(c.handle, 0))
}

// BeginRenderPass implements backend.CommandBuffer.
func (c *CommandBuffer) BeginRenderPass(pass backend.RenderPass, fb backend.Framebuffer, width, height uint32, clears []backend.ClearValue) {
	values := make([]vk.ClearValue, len(clears))
	for i, cv := range clears {
		if cv.DepthStencil {
			values[i] = vk.ClearValueDepthStencil(cv.Depth, cv.Stencil)
			continue
		}
		values[i] = vk.ClearValueColor(float32(cv.Color.R), float32(cv.Color.G), float32(cv.Color.B), float32(cv.Color.A))
	}
	info := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  vk.RenderPass(pass),
		Framebuffer: vk.Framebuffer(fb),
		RenderArea: vk.Rect2D{
			Extent: vk.Extent2D{Width: width, Height: height},
		},
		ClearValueCount: uint32(len(values)),
		PClearValues:    first(values),
	}
	c.d.cmds.CmdBeginRenderPass(c.handle, &info, vk.SubpassContentsInline)
	runtime.KeepAlive(values)
}

// NextSubpass implements backend.CommandBuffer.
func (c *CommandBuffer) NextSubpass() {
	c.d.cmds.CmdNextSubpass(c.handle, vk.SubpassContentsInline)
}

// EndRenderPass implements backend.CommandBuffer.
func (c *CommandBuffer) EndRenderPass() {
	c.d.cmds.CmdEndRenderPass(c.handle)
}

// BindPipeline implements backend.CommandBuffer.
func (c *CommandBuffer) BindPipeline(point backend.BindPoint, p backend.Pipeline) {
	c.d.cmds.CmdBindPipeline(c.handle, bindPoint(point), vk.Pipeline(p))
}

// BindDescriptorSets implements backend.CommandBuffer.
func (c *CommandBuffer) BindDescriptorSets(point backend.BindPoint, layout backend.PipelineLayout, firstSet int, sets []backend.DescriptorSet) {
	if len(sets) == 0 {
		return
	}
	handles := make([]vk.DescriptorSet, len(sets))
	for i, s := range sets {
		handles[i] = vk.DescriptorSet(s)
	}
	c.d.cmds.CmdBindDescriptorSets(c.handle, bindPoint(point), vk.PipelineLayout(layout),
		uint32(firstSet), uint32(len(handles)), &handles[0], 0, nil)
	runtime.KeepAlive(handles)
}

// BindVertexBuffers implements backend.CommandBuffer.
func (c *CommandBuffer) BindVertexBuffers(firstSlot int, buffers []backend.Buffer, offsets []uint64) {
	if len(buffers) == 0 {
		return
	}
	handles := make([]vk.Buffer, len(buffers))
	offs := make([]vk.DeviceSize, len(buffers))
	for i, b := range buffers {
		handles[i] = vk.Buffer(b)
		if i < len(offsets) {
			offs[i] = vk.DeviceSize(offsets[i])
		}
	}
	c.d.cmds.CmdBindVertexBuffers(c.handle, uint32(firstSlot), uint32(len(handles)), &handles[0], &offs[0])
	runtime.KeepAlive(handles)
	runtime.KeepAlive(offs)
}

// BindIndexBuffer implements backend.CommandBuffer.
func (c *CommandBuffer) BindIndexBuffer(b backend.Buffer, offset uint64, t backend.IndexType) {
	c.d.cmds.CmdBindIndexBuffer(c.handle, vk.Buffer(b), vk.DeviceSize(offset), indexType(t))
}

// Draw implements backend.CommandBuffer.
func (c *CommandBuffer) Draw(vertices, instances, firstVertex, firstInstance uint32) {
	c.d.cmds.CmdDraw(c.handle, vertices, instances, firstVertex, firstInstance)
}

// DrawIndexed implements backend.CommandBuffer.
func (c *CommandBuffer) DrawIndexed(indices, instances, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	c.d.cmds.CmdDrawIndexed(c.handle, indices, instances, firstIndex, vertexOffset, firstInstance)
}

// Dispatch implements backend.CommandBuffer.
func (c *CommandBuffer) Dispatch(x, y, z uint32) {
	c.d.cmds.CmdDispatch(c.handle, x, y, z)
}

// CopyBufferToImage implements backend.CommandBuffer. The image must be
// in the transfer destination layout.
func (c *CommandBuffer) CopyBufferToImage(src backend.Buffer, dst backend.Image, regions []backend.BufferImageCopy) {
	if len(regions) == 0 {
		return
	}
	out := make([]vk.BufferImageCopy, len(regions))
	for i, r := range regions {
		out[i] = vk.BufferImageCopy{
			BufferOffset: vk.DeviceSize(r.BufferOffset),
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask:     vk.ImageAspectFlags(r.Aspect),
				MipLevel:       r.Mip,
				BaseArrayLayer: r.BaseLayer,
				LayerCount:     max(r.Layers, 1),
			},
			ImageExtent: vk.Extent3D{
				Width:  r.Width,
				Height: max(r.Height, 1),
				Depth:  max(r.Depth, 1),
			},
		}
	}
	c.d.cmds.CmdCopyBufferToImage(c.handle, vk.Buffer(src), vk.Image(dst),
		vk.ImageLayoutTransferDstOptimal, uint32(len(out)), &out[0])
	runtime.KeepAlive(out)
}

// PipelineBarrier implements backend.CommandBuffer.
func (c *CommandBuffer) PipelineBarrier(b backend.Barrier) {
	mem := make([]vk.MemoryBarrier, len(b.Memory))
	for i, m := range b.Memory {
		mem[i] = vk.MemoryBarrier{
			SType:         vk.StructureTypeMemoryBarrier,
			SrcAccessMask: vk.AccessFlags(m.SrcAccess),
			DstAccessMask: vk.AccessFlags(m.DstAccess),
		}
	}
	images := make([]vk.ImageMemoryBarrier, len(b.Images))
	for i, ib := range b.Images {
		images[i] = vk.ImageMemoryBarrier{
			SType:               vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:       vk.AccessFlags(ib.SrcAccess),
			DstAccessMask:       vk.AccessFlags(ib.DstAccess),
			OldLayout:           vk.ImageLayout(ib.Old),
			NewLayout:           vk.ImageLayout(ib.New),
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Image:               vk.Image(ib.Image),
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(ib.Aspect),
				BaseMipLevel:   ib.BaseMip,
				LevelCount:     max(ib.Mips, 1),
				BaseArrayLayer: ib.BaseLayer,
				LayerCount:     max(ib.Layers, 1),
			},
		}
	}
	c.d.cmds.CmdPipelineBarrier(c.handle,
		vk.PipelineStageFlags(b.SrcStage), vk.PipelineStageFlags(b.DstStage), 0,
		uint32(len(mem)), first(mem), 0, nil, uint32(len(images)), first(images))
	runtime.KeepAlive(mem)
	runtime.KeepAlive(images)
}
