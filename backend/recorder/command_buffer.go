package recorder

import (
	"slices"

	coil "github.com/quyse/coil-core-sub001"
	"github.com/quyse/coil-core-sub001/backend"
)

type cbState uint8

const (
	stateInitial cbState = iota
	stateRecording
	stateExecutable
	statePending
)

func (s cbState) String() string {
	return [...]string{"initial", "recording", "executable", "pending"}[s]
}

// CommandBuffer records commands into a list.
type CommandBuffer struct {
	dev   *Device
	id    uint64
	state cbState
	cmds  []Command
	pass  bool
}

// ID returns the command buffer id used in events.
func (c *CommandBuffer) ID() uint64 { return c.id }

// Commands returns the commands recorded since the last Begin.
func (c *CommandBuffer) Commands() []Command {
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()
	return slices.Clone(c.cmds)
}

func (c *CommandBuffer) restart(op string) error {
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()
	if c.state == statePending {
		c.dev.violate("%s command buffer %d before its fence was waited", op, c.id)
		return coil.Errorf(coil.Validation, op, "command buffer %d is pending", c.id)
	}
	c.cmds = nil
	c.pass = false
	return nil
}

// Begin implements backend.CommandBuffer. Beginning a buffer whose
// submission was not yet waited for is a violation.
func (c *CommandBuffer) Begin() error {
	if err := c.restart("begin"); err != nil {
		return err
	}
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()
	c.state = stateRecording
	c.dev.log(Event{Type: EvBegin, Object: c.id})
	return nil
}

// End implements backend.CommandBuffer.
func (c *CommandBuffer) End() error {
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()
	if c.state != stateRecording {
		return coil.Errorf(coil.Validation, "end command buffer", "command buffer %d is %v", c.id, c.state)
	}
	if c.pass {
		return coil.Errorf(coil.Validation, "end command buffer", "render pass still open")
	}
	c.state = stateExecutable
	return nil
}

// Reset implements backend.CommandBuffer.
func (c *CommandBuffer) Reset() error {
	if err := c.restart("reset"); err != nil {
		return err
	}
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()
	c.state = stateInitial
	return nil
}

func (c *CommandBuffer) record(cmd Command) {
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()
	if c.state != stateRecording {
		c.dev.violate("%v recorded into command buffer %d in state %v", cmd.Type(), c.id, c.state)
	}
	switch cmd.(type) {
	case BeginRenderPass:
		if c.pass {
			c.dev.violate("nested render pass in command buffer %d", c.id)
		}
		c.pass = true
	case EndRenderPass:
		c.pass = false
	case NextSubpass:
		if !c.pass {
			c.dev.violate("next subpass outside a render pass in command buffer %d", c.id)
		}
	case Draw, DrawIndexed:
		if !c.pass {
			c.dev.violate("draw outside a render pass in command buffer %d", c.id)
		}
	case Dispatch, CopyBufferToImage:
		if c.pass {
			c.dev.violate("%v inside a render pass in command buffer %d", cmd.Type(), c.id)
		}
	}
	c.cmds = append(c.cmds, cmd)
}

// BeginRenderPass implements backend.CommandBuffer.
func (c *CommandBuffer) BeginRenderPass(pass backend.RenderPass, fb backend.Framebuffer, width, height uint32, clears []backend.ClearValue) {
	c.record(BeginRenderPass{Pass: pass, Framebuffer: fb, Width: width, Height: height, Clears: slices.Clone(clears)})
}

// NextSubpass implements backend.CommandBuffer.
func (c *CommandBuffer) NextSubpass() { c.record(NextSubpass{}) }

// EndRenderPass implements backend.CommandBuffer.
func (c *CommandBuffer) EndRenderPass() { c.record(EndRenderPass{}) }

// BindPipeline implements backend.CommandBuffer.
func (c *CommandBuffer) BindPipeline(point backend.BindPoint, p backend.Pipeline) {
	c.record(BindPipeline{Point: point, Pipeline: p})
}

// BindDescriptorSets implements backend.CommandBuffer.
func (c *CommandBuffer) BindDescriptorSets(point backend.BindPoint, layout backend.PipelineLayout, first int, sets []backend.DescriptorSet) {
	c.record(BindDescriptorSets{Point: point, Layout: layout, First: first, Sets: slices.Clone(sets)})
}

// BindVertexBuffers implements backend.CommandBuffer.
func (c *CommandBuffer) BindVertexBuffers(first int, buffers []backend.Buffer, offsets []uint64) {
	c.record(BindVertexBuffers{First: first, Buffers: slices.Clone(buffers), Offsets: slices.Clone(offsets)})
}

// BindIndexBuffer implements backend.CommandBuffer.
func (c *CommandBuffer) BindIndexBuffer(b backend.Buffer, offset uint64, t backend.IndexType) {
	c.record(BindIndexBuffer{Buffer: b, Offset: offset, IndexType: t})
}

// Draw implements backend.CommandBuffer.
func (c *CommandBuffer) Draw(vertices, instances, firstVertex, firstInstance uint32) {
	c.record(Draw{Vertices: vertices, Instances: instances, FirstVertex: firstVertex, FirstInstance: firstInstance})
}

// DrawIndexed implements backend.CommandBuffer.
func (c *CommandBuffer) DrawIndexed(indices, instances, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	c.record(DrawIndexed{Indices: indices, Instances: instances, FirstIndex: firstIndex, VertexOffset: vertexOffset, FirstInstance: firstInstance})
}

// Dispatch implements backend.CommandBuffer.
func (c *CommandBuffer) Dispatch(x, y, z uint32) {
	c.record(Dispatch{X: x, Y: y, Z: z})
}

// CopyBufferToImage implements backend.CommandBuffer.
func (c *CommandBuffer) CopyBufferToImage(src backend.Buffer, dst backend.Image, regions []backend.BufferImageCopy) {
	c.record(CopyBufferToImage{Src: src, Dst: dst, Regions: slices.Clone(regions)})
}

// PipelineBarrier implements backend.CommandBuffer.
func (c *CommandBuffer) PipelineBarrier(b backend.Barrier) {
	b.Memory = slices.Clone(b.Memory)
	b.Images = slices.Clone(b.Images)
	c.record(PipelineBarrier{Barrier: b})
}
