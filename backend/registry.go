package backend

import (
	"slices"

	"github.com/gogpu/gpucontext"

	coil "github.com/quyse/coil-core-sub001"
)

// Driver names.
const (
	NameVulkan   = "vulkan"
	NameRecorder = "recorder"
)

// DriverFactory creates a driver.
type DriverFactory func() Driver

// drivers holds registered drivers. Selection order is Vulkan first,
// then the recording driver used for headless runs.
var (
	priority = []string{NameVulkan, NameRecorder}
	drivers  = gpucontext.NewRegistry[Driver](gpucontext.WithPriority(priority...))
)

// Register registers a driver factory with the given name.
// This is typically called from init() functions in driver packages.
// If a driver with the same name is already registered, it is replaced.
func Register(name string, factory DriverFactory) {
	drivers.Register(name, factory)
}

// Unregister removes a driver from the registry.
func Unregister(name string) {
	drivers.Unregister(name)
}

// Available returns the registered driver names in sorted order.
func Available() []string {
	names := drivers.Available()
	slices.Sort(names)
	return names
}

// IsRegistered checks if a driver with the given name is registered.
func IsRegistered(name string) bool {
	return drivers.Has(name)
}

// Get returns the driver registered under name.
func Get(name string) (Driver, error) {
	if !drivers.Has(name) {
		return nil, coil.Errorf(coil.Validation, "get driver", "%q: %w", name, ErrNotAvailable)
	}
	return drivers.Get(name), nil
}

// Default returns the best registered driver, or nil if there is none.
func Default() Driver {
	return drivers.Best()
}

// MustDefault returns the default driver or panics.
func MustDefault() Driver {
	d := Default()
	if d == nil {
		panic("backend: no driver available")
	}
	return d
}

// Open creates an instance of the named driver. An empty name picks the
// default driver; when it cannot be loaded the remaining drivers are
// tried in priority order.
func Open(name string, cfg InstanceConfig) (Instance, error) {
	if name != "" {
		d, err := Get(name)
		if err != nil {
			return nil, err
		}
		return d.CreateInstance(cfg)
	}

	var candidates []string
	for _, n := range priority {
		if drivers.Has(n) {
			candidates = append(candidates, n)
		}
	}
	for _, n := range Available() {
		if !slices.Contains(candidates, n) {
			candidates = append(candidates, n)
		}
	}
	var lastErr error
	for _, n := range candidates {
		inst, err := drivers.Get(n).CreateInstance(cfg)
		if err == nil {
			return inst, nil
		}
		coil.Logger().Debug("backend: driver unavailable", "driver", n, "err", err)
		lastErr = err
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, coil.Wrap(coil.Resource, "open driver", ErrNotAvailable)
}
