package recorder

import "github.com/quyse/coil-core-sub001/backend"

// CommandType identifies a recorded command.
type CommandType uint8

const (
	// Render pass commands
	CmdBeginRenderPass CommandType = iota
	CmdNextSubpass
	CmdEndRenderPass

	// Binding commands
	CmdBindPipeline
	CmdBindDescriptorSets
	CmdBindVertexBuffers
	CmdBindIndexBuffer

	// Work commands
	CmdDraw
	CmdDrawIndexed
	CmdDispatch

	// Transfer and synchronization commands
	CmdCopyBufferToImage
	CmdPipelineBarrier
)

var commandTypeNames = [...]string{
	CmdBeginRenderPass:    "BeginRenderPass",
	CmdNextSubpass:        "NextSubpass",
	CmdEndRenderPass:      "EndRenderPass",
	CmdBindPipeline:       "BindPipeline",
	CmdBindDescriptorSets: "BindDescriptorSets",
	CmdBindVertexBuffers:  "BindVertexBuffers",
	CmdBindIndexBuffer:    "BindIndexBuffer",
	CmdDraw:               "Draw",
	CmdDrawIndexed:        "DrawIndexed",
	CmdDispatch:           "Dispatch",
	CmdCopyBufferToImage:  "CopyBufferToImage",
	CmdPipelineBarrier:    "PipelineBarrier",
}

// String returns the string representation of a CommandType.
func (c CommandType) String() string {
	if int(c) < len(commandTypeNames) {
		return commandTypeNames[c]
	}
	return "Unknown"
}

// Command is the interface implemented by all recorded commands.
type Command interface {
	// Type returns the CommandType for this command.
	Type() CommandType
}

// BeginRenderPass records the start of a render pass instance.
type BeginRenderPass struct {
	Pass          backend.RenderPass
	Framebuffer   backend.Framebuffer
	Width, Height uint32
	Clears        []backend.ClearValue
}

// NextSubpass records a subpass transition.
type NextSubpass struct{}

// EndRenderPass records the end of a render pass instance.
type EndRenderPass struct{}

// BindPipeline records a pipeline bind.
type BindPipeline struct {
	Point    backend.BindPoint
	Pipeline backend.Pipeline
}

// BindDescriptorSets records a descriptor set bind.
type BindDescriptorSets struct {
	Point  backend.BindPoint
	Layout backend.PipelineLayout
	First  int
	Sets   []backend.DescriptorSet
}

// BindVertexBuffers records a vertex buffer bind.
type BindVertexBuffers struct {
	First   int
	Buffers []backend.Buffer
	Offsets []uint64
}

// BindIndexBuffer records an index buffer bind.
type BindIndexBuffer struct {
	Buffer    backend.Buffer
	Offset    uint64
	IndexType backend.IndexType
}

// Draw records a non-indexed draw.
type Draw struct {
	Vertices, Instances        uint32
	FirstVertex, FirstInstance uint32
}

// DrawIndexed records an indexed draw.
type DrawIndexed struct {
	Indices, Instances uint32
	FirstIndex         uint32
	VertexOffset       int32
	FirstInstance      uint32
}

// Dispatch records a compute dispatch.
type Dispatch struct {
	X, Y, Z uint32
}

// CopyBufferToImage records a buffer to image copy.
type CopyBufferToImage struct {
	Src     backend.Buffer
	Dst     backend.Image
	Regions []backend.BufferImageCopy
}

// PipelineBarrier records a pipeline barrier.
type PipelineBarrier struct {
	Barrier backend.Barrier
}

func (BeginRenderPass) Type() CommandType    { return CmdBeginRenderPass }
func (NextSubpass) Type() CommandType        { return CmdNextSubpass }
func (EndRenderPass) Type() CommandType      { return CmdEndRenderPass }
func (BindPipeline) Type() CommandType       { return CmdBindPipeline }
func (BindDescriptorSets) Type() CommandType { return CmdBindDescriptorSets }
func (BindVertexBuffers) Type() CommandType  { return CmdBindVertexBuffers }
func (BindIndexBuffer) Type() CommandType    { return CmdBindIndexBuffer }
func (Draw) Type() CommandType               { return CmdDraw }
func (DrawIndexed) Type() CommandType        { return CmdDrawIndexed }
func (Dispatch) Type() CommandType           { return CmdDispatch }
func (CopyBufferToImage) Type() CommandType  { return CmdCopyBufferToImage }
func (PipelineBarrier) Type() CommandType    { return CmdPipelineBarrier }

// Types returns the command types of cmds in order.
func Types(cmds []Command) []CommandType {
	types := make([]CommandType, len(cmds))
	for i, c := range cmds {
		types[i] = c.Type()
	}
	return types
}
