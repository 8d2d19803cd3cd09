package gpu

import (
	"fmt"

	coil "github.com/quyse/coil-core-sub001"
	"github.com/quyse/coil-core-sub001/backend"
	"github.com/quyse/coil-core-sub001/book"
)

// Computer runs compute work synchronously: record with the context
// returned by Begin, then Run submits it and waits for completion.
type Computer struct {
	dev     *Device
	cb      backend.CommandBuffer
	fence   backend.Fence
	ctx     *Context
	running bool
}

// CreateComputer creates a computer with its own command buffer and fence.
func (d *Device) CreateComputer(bk *book.Book) (*Computer, error) {
	const op = "create computer"
	cb, err := d.dev.AllocateCommandBuffer()
	if err != nil {
		return nil, coil.Wrap(coil.Resource, op, err)
	}
	bk.Defer(func() { d.dev.FreeCommandBuffer(cb) })
	fence, err := d.dev.CreateFence(false)
	if err != nil {
		return nil, coil.Wrap(coil.Resource, op, err)
	}
	bk.Defer(func() { d.dev.DestroyFence(fence) })
	return &Computer{dev: d, cb: cb, fence: fence, ctx: newContext(d, bk.Sub())}, nil
}

// Begin starts recording and returns the context to record with.
func (c *Computer) Begin() (*Context, error) {
	if c.running {
		return nil, coil.Errorf(coil.Validation, "begin compute", "previous computation not run")
	}
	if err := c.ctx.reset(c.cb); err != nil {
		return nil, fmt.Errorf("begin compute: %w", err)
	}
	if err := c.cb.Begin(); err != nil {
		return nil, fmt.Errorf("begin compute: %w", err)
	}
	c.running = true
	return c.ctx, nil
}

// Run submits the recorded work and blocks until it completes. Shader
// writes are made visible to the host, so storage buffers can be read
// right after Run returns.
func (c *Computer) Run() error {
	const op = "run compute"
	if !c.running {
		return coil.Errorf(coil.Validation, op, "Begin not called")
	}
	c.running = false
	dev := c.dev.dev
	c.cb.PipelineBarrier(backend.Barrier{
		SrcStage: backend.StageComputeShader,
		DstStage: backend.StageHost,
		Memory:   []backend.MemoryBarrier{{SrcAccess: backend.AccessShaderWrite, DstAccess: backend.AccessHostRead}},
	})
	if err := c.cb.End(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := dev.Submit(backend.SubmitInfo{Commands: []backend.CommandBuffer{c.cb}, Fence: c.fence}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := dev.WaitFence(c.fence); err != nil {
		return coil.Wrap(coil.DeviceLost, op, err)
	}
	if err := dev.ResetFence(c.fence); err != nil {
		return coil.Wrap(coil.DeviceLost, op, err)
	}
	slogger().Debug("gpu: computation finished")
	return nil
}
