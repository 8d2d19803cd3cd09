package gpu

import (
	"fmt"

	"github.com/gogpu/gpucontext"

	coil "github.com/quyse/coil-core-sub001"
	"github.com/quyse/coil-core-sub001/backend"
	"github.com/quyse/coil-core-sub001/book"
	"github.com/quyse/coil-core-sub001/internal/cache"
	"github.com/quyse/coil-core-sub001/surface"
)

// Device is an opened backend device with its instance and, for window
// devices, its surface.
type Device struct {
	cfg     Config
	inst    backend.Instance
	dev     backend.Device
	props   backend.Properties
	surface backend.Surface
	window  surface.Window
	nextID  uint64

	setLayouts *cache.Cache[string, backend.DescriptorSetLayout]
	samplers   *cache.Cache[SamplerConfig, backend.Sampler]
}

// NewDevice opens a device without presentation support.
// The device and its instance are destroyed when bk is freed.
func NewDevice(bk *book.Book, cfg Config) (*Device, error) {
	cfg = cfg.withDefaults()
	inst, err := backend.Open(cfg.Backend, backend.InstanceConfig{
		AppName:    cfg.AppName,
		Validation: cfg.Validation,
	})
	if err != nil {
		return nil, fmt.Errorf("create device: %w", err)
	}
	bk.Defer(inst.Destroy)
	return openDevice(bk, cfg, inst, 0, nil)
}

// NewWindowDevice opens a device able to present to w. Every available
// surface provider contributes the instance extensions it needs for w, then
// the best provider creates the surface.
func NewWindowDevice(bk *book.Book, w surface.Window, cfg Config) (*Device, error) {
	cfg = cfg.withDefaults()
	inst, err := backend.Open(cfg.Backend, backend.InstanceConfig{
		AppName:    cfg.AppName,
		Validation: cfg.Validation,
		Extensions: surface.Extensions(w),
	})
	if err != nil {
		return nil, fmt.Errorf("create window device: %w", err)
	}
	bk.Defer(inst.Destroy)

	s, err := surface.Create(inst, w)
	if err != nil {
		return nil, coil.Wrap(coil.SurfaceLost, "create window device", err)
	}
	bk.Defer(func() { inst.DestroySurface(s) })
	return openDevice(bk, cfg, inst, s, w)
}

func openDevice(bk *book.Book, cfg Config, inst backend.Instance, s backend.Surface, w surface.Window) (*Device, error) {
	dev, err := inst.CreateDevice(backend.DeviceConfig{Surface: s, Compute: true})
	if err != nil {
		return nil, fmt.Errorf("create device: %w", err)
	}
	d := &Device{
		cfg:        cfg,
		inst:       inst,
		dev:        dev,
		props:      dev.Properties(),
		surface:    s,
		window:     w,
		setLayouts: cache.New[string, backend.DescriptorSetLayout](0),
		samplers:   cache.New[SamplerConfig, backend.Sampler](0),
	}
	bk.Defer(func() {
		if err := dev.WaitIdle(); err != nil {
			slogger().Warn("gpu: wait idle before device destruction", "err", err)
		}
		d.samplers.Drain(func(_ SamplerConfig, s backend.Sampler) { dev.DestroySampler(s) })
		d.setLayouts.Drain(func(_ string, l backend.DescriptorSetLayout) { dev.DestroyDescriptorSetLayout(l) })
		dev.Destroy()
	})

	slogger().Info("gpu: device created",
		"adapter", d.props.Adapter.Name,
		"type", d.props.Adapter.Type,
		"memory_types", len(d.props.MemoryTypes),
		"window", w != nil)
	return d, nil
}

// Backend returns the underlying backend device.
func (d *Device) Backend() backend.Device { return d.dev }

// Config returns the effective configuration.
func (d *Device) Config() Config { return d.cfg }

// Properties returns the device limits and memory types.
func (d *Device) Properties() backend.Properties { return d.props }

// Adapter describes the physical device.
func (d *Device) Adapter() gpucontext.AdapterInfo { return d.props.Adapter }

// Surface returns the surface of a window device, 0 otherwise.
func (d *Device) Surface() backend.Surface { return d.surface }

// Window returns the window of a window device.
func (d *Device) Window() surface.Window { return d.window }

// WaitIdle blocks until the device has finished all submitted work.
func (d *Device) WaitIdle() error {
	return d.dev.WaitIdle()
}

// newID returns a device-unique object id. Ids order objects by creation
// and serve as render cache keys.
func (d *Device) newID() uint64 {
	d.nextID++
	return d.nextID
}

// AllocateMemory allocates memory satisfying req from pool, using the first
// memory type allowed by req.TypeBits whose properties cover flags.
func (d *Device) AllocateMemory(pool *Pool, req backend.MemoryRequirements, flags backend.MemoryProperty) (MemoryBlock, error) {
	typeIndex, ok := d.findMemoryType(req.TypeBits, flags)
	if !ok {
		return MemoryBlock{}, coil.Errorf(coil.Resource, "allocate memory", "no memory type in %#b with flags %#x", req.TypeBits, flags)
	}
	return pool.AllocateMemory(typeIndex, req.Size, req.Alignment)
}

func (d *Device) findMemoryType(typeBits uint32, flags backend.MemoryProperty) (int, bool) {
	for i, t := range d.props.MemoryTypes {
		if typeBits&(1<<i) != 0 && t.Flags&flags == flags {
			return i, true
		}
	}
	return 0, false
}
