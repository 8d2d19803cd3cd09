// Package gpu is the explicit rendering and compute layer of coil.
//
// A Device wraps one backend device (see package backend) and creates every
// GPU object through a book.Book, which owns it and destroys it in reverse
// order of creation:
//
//	bk := book.New()
//	defer bk.Free()
//
//	dev, err := gpu.NewWindowDevice(bk, window, gpu.DefaultConfig())
//	pool := dev.CreatePool(bk, 0)
//	pass, err := dev.CreatePass(bk, gpu.PassConfig{...})
//	presenter, err := dev.CreatePresenter(bk, gpu.PresenterConfig{}, onSwapchain, onImage)
//
//	for running {
//		frame, err := presenter.StartFrame()
//		err = frame.Pass(pass, fb, func(subpass int, ctx *gpu.Context) error {
//			ctx.BindPipeline(pipeline)
//			ctx.BindMesh(mesh)
//			return ctx.Draw(mesh.Count(), 1)
//		})
//		err = frame.EndFrame()
//	}
//
// Render passes are declared as attachments plus subpass usages; PlanPass
// derives layouts, load/store operations, preserved attachments and a
// minimal set of subpass dependencies.
//
// A Device, its Pools and Contexts must be driven by one goroutine at a time.
package gpu
