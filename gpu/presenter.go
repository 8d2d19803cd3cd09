package gpu

import (
	"errors"
	"fmt"

	coil "github.com/quyse/coil-core-sub001"
	"github.com/quyse/coil-core-sub001/backend"
	"github.com/quyse/coil-core-sub001/book"
	"github.com/quyse/coil-core-sub001/format"
	"github.com/quyse/coil-core-sub001/surface"
)

// PresenterConfig configures a presenter.
type PresenterConfig struct {
	// FrameCount is the number of frames in flight; values below 2 are raised to 2.
	FrameCount int
	// Vsync selects FIFO presentation.
	Vsync bool
}

// PresenterConfig returns the presenter configuration of the device config.
func (d *Device) PresenterConfig() PresenterConfig {
	return PresenterConfig{FrameCount: d.cfg.FrameCount, Vsync: d.cfg.Vsync}
}

// SwapchainInfo describes a newly created swapchain.
type SwapchainInfo struct {
	// Format is the opaque pixel format of the swapchain images, usable in
	// pass attachments.
	Format     format.PixelFormat
	Width      int
	Height     int
	ImageCount int
}

// SwapchainImage is one image of the swapchain.
type SwapchainImage struct {
	index int
	image backend.Image
	view  backend.ImageView
}

// Index returns the index of the image in the swapchain.
func (i *SwapchainImage) Index() int { return i.index }

// ImageView implements AttachmentView.
func (i *SwapchainImage) ImageView() backend.ImageView { return i.view }

// SwapchainFunc is called after every swapchain (re)creation. Objects that
// depend on the swapchain size or format go into bk, which is freed before
// the next recreation.
type SwapchainFunc func(bk *book.Book, info SwapchainInfo) error

// ImageFunc is called once per swapchain image after SwapchainFunc,
// typically to create the image's framebuffer.
type ImageFunc func(bk *book.Book, image *SwapchainImage) error

// frameSlot is the per-frame-in-flight state of a presenter.
type frameSlot struct {
	cb             backend.CommandBuffer
	imageAvailable backend.Semaphore
	frameFinished  backend.Semaphore
	inFlight       backend.Fence
	// unsubmitted is set when inFlight was reset but the submission
	// that signals it failed.
	unsubmitted bool
	ctx         *Context
	// bk holds objects that live until the slot is reused.
	bk *book.Book
}

// Presenter renders frames into the swapchain of a window device.
// Swapchain recreation is requested by Resize or by a suboptimal or
// out-of-date result from the swapchain, and happens at the start of the
// next frame.
type Presenter struct {
	dev         *Device
	cfg         PresenterConfig
	onSwapchain SwapchainFunc
	onImage     ImageFunc

	sizeBook  *book.Book
	swapchain backend.SwapchainState
	images    []*SwapchainImage
	frames    []*frameSlot
	next      int
	recreate  bool
}

// CreatePresenter creates a presenter for the device's surface. The
// swapchain itself is created by the first StartFrame.
func (d *Device) CreatePresenter(bk *book.Book, cfg PresenterConfig, onSwapchain SwapchainFunc, onImage ImageFunc) (*Presenter, error) {
	const op = "create presenter"
	if d.surface == 0 {
		return nil, coil.Errorf(coil.Validation, op, "device has no surface")
	}
	cfg.FrameCount = max(cfg.FrameCount, 2)
	p := &Presenter{
		dev:         d,
		cfg:         cfg,
		onSwapchain: onSwapchain,
		onImage:     onImage,
		recreate:    true,
	}
	bk.Defer(func() {
		if p.swapchain.Swapchain != 0 {
			d.dev.DestroySwapchain(p.swapchain.Swapchain)
		}
	})
	p.sizeBook = bk.Sub()

	for range cfg.FrameCount {
		slot, err := d.createFrameSlot(bk)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		p.frames = append(p.frames, slot)
	}
	if d.window != nil {
		d.window.SetPresenter(p)
		bk.Defer(func() { d.window.SetPresenter(nil) })
	}
	bk.Defer(func() {
		if err := d.dev.WaitIdle(); err != nil {
			slogger().Warn("gpu: wait idle before presenter destruction", "err", err)
		}
	})
	slogger().Info("gpu: presenter created", "frames", cfg.FrameCount, "vsync", cfg.Vsync)
	return p, nil
}

func (d *Device) createFrameSlot(bk *book.Book) (*frameSlot, error) {
	cb, err := d.dev.AllocateCommandBuffer()
	if err != nil {
		return nil, coil.Wrap(coil.Resource, "allocate command buffer", err)
	}
	bk.Defer(func() { d.dev.FreeCommandBuffer(cb) })
	s := &frameSlot{cb: cb}
	for _, sem := range []*backend.Semaphore{&s.imageAvailable, &s.frameFinished} {
		h, err := d.dev.CreateSemaphore()
		if err != nil {
			return nil, coil.Wrap(coil.Resource, "create semaphore", err)
		}
		*sem = h
		bk.Defer(func() { d.dev.DestroySemaphore(*sem) })
	}
	if s.inFlight, err = d.dev.CreateFence(true); err != nil {
		return nil, coil.Wrap(coil.Resource, "create fence", err)
	}
	fence := s.inFlight
	bk.Defer(func() { d.dev.DestroyFence(fence) })
	s.ctx = newContext(d, bk.Sub())
	s.bk = bk.Sub()
	return s, nil
}

var _ surface.Presenter = (*Presenter)(nil)

// Resize requests swapchain recreation before the next frame.
func (p *Presenter) Resize() { p.recreate = true }

// Images returns the current swapchain images.
func (p *Presenter) Images() []*SwapchainImage { return p.images }

func (p *Presenter) extent() (uint32, uint32) {
	if w := p.dev.window; w != nil {
		width, height := w.Size()
		return uint32(width), uint32(height)
	}
	return p.swapchain.Width, p.swapchain.Height
}

// recreateSwapchain drops everything sized after the old swapchain and
// creates a new one.
func (p *Presenter) recreateSwapchain() error {
	const op = "recreate swapchain"
	dev := p.dev.dev
	if err := dev.WaitIdle(); err != nil {
		return coil.Wrap(coil.DeviceLost, op, err)
	}
	p.sizeBook.Free()
	p.images = nil

	width, height := p.extent()
	old := p.swapchain.Swapchain
	sc, err := dev.CreateSwapchain(backend.SwapchainDesc{
		Surface:   p.dev.surface,
		Width:     width,
		Height:    height,
		MinImages: p.cfg.FrameCount + 1,
		Vsync:     p.cfg.Vsync,
		Old:       old,
	})
	if err != nil {
		return coil.Wrap(coil.SurfaceLost, op, err)
	}
	if old != 0 {
		dev.DestroySwapchain(old)
	}
	p.swapchain = sc
	p.recreate = false

	for i, img := range sc.Images {
		view, err := dev.CreateImageView(backend.ImageViewDesc{
			Image:     img,
			Format:    sc.Format,
			Type:      backend.View2D,
			Aspect:    backend.AspectColor,
			MipLevels: 1,
			Layers:    1,
		})
		if err != nil {
			return coil.Wrap(coil.Resource, op, err)
		}
		p.sizeBook.Defer(func() { dev.DestroyImageView(view) })
		p.images = append(p.images, &SwapchainImage{index: i, image: img, view: view})
	}

	info := SwapchainInfo{
		Format:     format.Opaque(uint32(sc.Format)),
		Width:      int(sc.Width),
		Height:     int(sc.Height),
		ImageCount: len(sc.Images),
	}
	slogger().Info("gpu: swapchain created", "width", info.Width, "height", info.Height, "images", info.ImageCount)
	if p.onSwapchain != nil {
		if err := p.onSwapchain(p.sizeBook, info); err != nil {
			return fmt.Errorf("swapchain callback: %w", err)
		}
	}
	if p.onImage != nil {
		for _, img := range p.images {
			if err := p.onImage(p.sizeBook, img); err != nil {
				return fmt.Errorf("swapchain image callback: %w", err)
			}
		}
	}
	return nil
}

// outOfDate reports whether err asks for swapchain recreation.
func outOfDate(err error) bool {
	return errors.Is(err, backend.ErrOutOfDate) || coil.KindOf(err) == coil.Suboptimal
}

// StartFrame waits for the oldest frame in flight to complete, acquires a
// swapchain image and begins recording. The returned frame must be ended
// with EndFrame.
func (p *Presenter) StartFrame() (*Frame, error) {
	const op = "start frame"
	if p.recreate {
		if err := p.recreateSwapchain(); err != nil {
			return nil, err
		}
	}
	slot := p.frames[p.next]
	p.next = (p.next + 1) % len(p.frames)

	dev := p.dev.dev
	if slot.unsubmitted {
		if err := p.recoverSlot(slot); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	} else if err := dev.WaitFence(slot.inFlight); err != nil {
		return nil, coil.Wrap(coil.DeviceLost, op, err)
	}
	slot.bk.Free()
	if err := slot.ctx.reset(slot.cb); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	index, suboptimal, err := dev.AcquireNextImage(p.swapchain.Swapchain, slot.imageAvailable)
	if err != nil && outOfDate(err) {
		slogger().Warn("gpu: swapchain out of date on acquire")
		if err := p.recreateSwapchain(); err != nil {
			return nil, err
		}
		index, suboptimal, err = dev.AcquireNextImage(p.swapchain.Swapchain, slot.imageAvailable)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if suboptimal {
		slogger().Warn("gpu: swapchain suboptimal on acquire")
		p.recreate = true
	}

	if err := slot.cb.Begin(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Frame{p: p, slot: slot, image: p.images[index], layout: backend.LayoutUndefined}, nil
}

// recoverSlot prepares a slot whose last submission failed. Its fence was
// reset and will not be signaled, and its image-available semaphore was
// signaled by an acquire nothing waits on, so the semaphore is replaced.
func (p *Presenter) recoverSlot(slot *frameSlot) error {
	dev := p.dev.dev
	if err := dev.WaitIdle(); err != nil {
		return coil.Wrap(coil.DeviceLost, "recover frame", err)
	}
	sem, err := dev.CreateSemaphore()
	if err != nil {
		return coil.Wrap(coil.Resource, "recover frame", err)
	}
	dev.DestroySemaphore(slot.imageAvailable)
	slot.imageAvailable = sem
	slot.unsubmitted = false
	return nil
}

// Frame is one frame being recorded.
type Frame struct {
	p     *Presenter
	slot  *frameSlot
	image *SwapchainImage
	// layout is the layout the swapchain image is left in by the last pass.
	layout backend.ImageLayout
	ended  bool
}

// Image returns the swapchain image the frame renders to.
func (f *Frame) Image() *SwapchainImage { return f.image }

// Book returns the arena of the frame. It is freed when the frame's slot
// is reused, after the device has finished with the frame.
func (f *Frame) Book() *book.Book { return f.slot.bk }

// Context returns the frame's context, for uploads outside passes.
func (f *Frame) Context() *Context { return f.slot.ctx }

// Pass records pass into fb. body is called once per subpass in order,
// each time with a context that has no pipeline or bindings.
func (f *Frame) Pass(pass *Pass, fb *Framebuffer, body func(subpass int, ctx *Context) error) error {
	if f.ended {
		return coil.Errorf(coil.Validation, "frame pass", "frame already ended")
	}
	if fb.pass != pass {
		return coil.Errorf(coil.Validation, "frame pass", "framebuffer belongs to another pass")
	}
	ctx := f.slot.ctx
	if err := ctx.Flush(); err != nil {
		return err
	}
	clears := make([]backend.ClearValue, len(pass.plan.Clears))
	copy(clears, pass.plan.Clears)
	f.slot.cb.BeginRenderPass(pass.handle, fb.handle, fb.width, fb.height, clears)
	ctx.inPass = true
	var err error
	n := len(pass.plan.Subpasses)
	for i := 0; i < n; i++ {
		if i > 0 {
			f.slot.cb.NextSubpass()
		}
		ctx.resetState()
		if err = body(i, ctx); err == nil {
			err = ctx.Flush()
		}
		if err != nil {
			err = fmt.Errorf("subpass %d: %w", i, err)
			// The pass must still step through its remaining subpasses.
			for range n - 1 - i {
				f.slot.cb.NextSubpass()
			}
			break
		}
	}
	f.slot.cb.EndRenderPass()
	ctx.inPass = false
	if err != nil {
		return err
	}

	for i, v := range fb.views {
		if v.ImageView() == f.image.view {
			f.layout = pass.plan.Attachments[i].Final
		}
	}
	return nil
}

// EndFrame transitions the swapchain image for presentation, submits the
// frame and presents it.
func (f *Frame) EndFrame() error {
	const op = "end frame"
	if f.ended {
		return coil.Errorf(coil.Validation, op, "frame already ended")
	}
	f.ended = true
	p, slot := f.p, f.slot
	dev := p.dev.dev

	if err := slot.ctx.Flush(); err != nil {
		return err
	}
	slot.cb.PipelineBarrier(backend.Barrier{
		SrcStage: backend.StageColorAttachmentOutput,
		DstStage: backend.StageBottomOfPipe,
		Images: []backend.ImageBarrier{{
			Image:     f.image.image,
			SrcAccess: backend.AccessColorAttachmentWrite,
			Old:       f.layout,
			New:       backend.LayoutPresentSrc,
			Aspect:    backend.AspectColor,
			Mips:      1,
			Layers:    1,
		}},
	})
	if err := slot.cb.End(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := dev.ResetFence(slot.inFlight); err != nil {
		return coil.Wrap(coil.DeviceLost, op, err)
	}
	slot.unsubmitted = true
	if err := dev.Submit(backend.SubmitInfo{
		Commands:   []backend.CommandBuffer{slot.cb},
		Wait:       []backend.Semaphore{slot.imageAvailable},
		WaitStages: []backend.PipelineStage{backend.StageColorAttachmentOutput},
		Signal:     []backend.Semaphore{slot.frameFinished},
		Fence:      slot.inFlight,
	}); err != nil {
		// The acquired image is never presented; a new swapchain releases it.
		p.recreate = true
		return fmt.Errorf("%s: %w", op, err)
	}
	slot.unsubmitted = false

	suboptimal, err := dev.Present(p.swapchain.Swapchain, f.image.index, slot.frameFinished)
	switch {
	case err != nil && outOfDate(err):
		slogger().Warn("gpu: swapchain out of date on present")
		p.recreate = true
	case err != nil:
		return fmt.Errorf("%s: %w", op, err)
	case suboptimal:
		slogger().Warn("gpu: swapchain suboptimal on present")
		p.recreate = true
	}
	return nil
}
