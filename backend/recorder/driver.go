package recorder

import (
	"fmt"
	"sync"

	coil "github.com/quyse/coil-core-sub001"
	"github.com/quyse/coil-core-sub001/backend"
	"github.com/quyse/coil-core-sub001/surface"
)

// ProviderName is the name of the surface provider registered by this package.
const ProviderName = "headless"

func init() {
	backend.Register(backend.NameRecorder, func() backend.Driver { return Driver{} })
	surface.Register(surface.Provider{
		Name:     ProviderName,
		Priority: 10,
		Create:   createSurface,
	})
}

// createSurface creates a headless surface for any window on a
// recording instance.
func createSurface(inst backend.Instance, w surface.Window) (backend.Surface, error) {
	ri, ok := inst.(*Instance)
	if !ok {
		return 0, fmt.Errorf("%w: %T is not a recording instance", surface.ErrUnsupported, inst)
	}
	width, height := w.Size()
	return ri.CreateSurface(width, height), nil
}

// Driver creates recording instances.
type Driver struct{}

// Name implements backend.Driver.
func (Driver) Name() string { return backend.NameRecorder }

// CreateInstance implements backend.Driver.
func (Driver) CreateInstance(cfg backend.InstanceConfig) (backend.Instance, error) {
	return NewInstance(cfg), nil
}

// Instance is a recording instance. Surfaces are plain extents.
type Instance struct {
	mu        sync.Mutex
	cfg       backend.InstanceConfig
	next      uint64
	surfaces  map[backend.Surface][2]int
	destroyed bool
}

// NewInstance creates a recording instance.
func NewInstance(cfg backend.InstanceConfig) *Instance {
	return &Instance{cfg: cfg, surfaces: make(map[backend.Surface][2]int)}
}

// Config returns the configuration the instance was created with.
func (i *Instance) Config() backend.InstanceConfig { return i.cfg }

// Handle implements backend.Instance.
func (i *Instance) Handle() uintptr { return 1 }

// CreateSurface creates a headless surface of the given size.
func (i *Instance) CreateSurface(width, height int) backend.Surface {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.next++
	s := backend.Surface(i.next)
	i.surfaces[s] = [2]int{width, height}
	return s
}

// SurfaceCount returns the number of live surfaces.
func (i *Instance) SurfaceCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.surfaces)
}

// DestroySurface implements backend.Instance.
func (i *Instance) DestroySurface(s backend.Surface) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.surfaces, s)
}

// CreateDevice implements backend.Instance.
func (i *Instance) CreateDevice(cfg backend.DeviceConfig) (backend.Device, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.destroyed {
		return nil, coil.Errorf(coil.Validation, "create device", "instance destroyed")
	}
	if cfg.Surface != 0 {
		if _, ok := i.surfaces[cfg.Surface]; !ok {
			return nil, coil.Errorf(coil.SurfaceLost, "create device", "unknown surface %d", cfg.Surface)
		}
	}
	return NewDevice(), nil
}

// Destroy implements backend.Instance.
func (i *Instance) Destroy() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.destroyed = true
}

// Destroyed reports whether Destroy was called.
func (i *Instance) Destroyed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.destroyed
}
