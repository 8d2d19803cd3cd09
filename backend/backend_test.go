package backend

import (
	"errors"
	"slices"
	"testing"

	coil "github.com/quyse/coil-core-sub001"
)

type stubDriver struct {
	name string
	err  error
}

func (d *stubDriver) Name() string { return d.name }

func (d *stubDriver) CreateInstance(InstanceConfig) (Instance, error) {
	if d.err != nil {
		return nil, d.err
	}
	return stubInstance{}, nil
}

type stubInstance struct{}

func (stubInstance) Handle() uintptr                           { return 1 }
func (stubInstance) CreateDevice(DeviceConfig) (Device, error) { return nil, ErrNoDevice }
func (stubInstance) DestroySurface(Surface)                    {}
func (stubInstance) Destroy()                                  {}

func withDrivers(t *testing.T, ds ...*stubDriver) {
	t.Helper()
	saved := Available()
	factories := make(map[string]DriverFactory)
	for _, n := range saved {
		d := drivers.Get(n)
		factories[n] = func() Driver { return d }
		Unregister(n)
	}
	for _, d := range ds {
		Register(d.name, func() Driver { return d })
	}
	t.Cleanup(func() {
		for _, d := range ds {
			Unregister(d.name)
		}
		for n, f := range factories {
			Register(n, f)
		}
	})
}

func TestRegistryRegisterAndGet(t *testing.T) {
	withDrivers(t, &stubDriver{name: "test"})

	if !IsRegistered("test") {
		t.Fatal("test driver should be registered")
	}
	d, err := Get("test")
	if err != nil {
		t.Fatalf("Get(test) error = %v", err)
	}
	if d.Name() != "test" {
		t.Errorf("Get(test).Name() = %q, want %q", d.Name(), "test")
	}
}

func TestRegistryGetUnregistered(t *testing.T) {
	withDrivers(t)

	_, err := Get("nonexistent")
	if !errors.Is(err, ErrNotAvailable) {
		t.Errorf("Get(nonexistent) error = %v, want ErrNotAvailable", err)
	}
	if coil.KindOf(err) != coil.Validation {
		t.Errorf("KindOf() = %v, want %v", coil.KindOf(err), coil.Validation)
	}
}

func TestRegistryAvailableSorted(t *testing.T) {
	withDrivers(t, &stubDriver{name: "b"}, &stubDriver{name: "a"})

	got := Available()
	if !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("Available() = %v, want [a b]", got)
	}
}

func TestRegistryDefaultPriority(t *testing.T) {
	withDrivers(t, &stubDriver{name: NameRecorder}, &stubDriver{name: NameVulkan})

	if got := Default().Name(); got != NameVulkan {
		t.Errorf("Default().Name() = %q, want %q", got, NameVulkan)
	}
}

func TestRegistryMustDefaultPanics(t *testing.T) {
	withDrivers(t)

	defer func() {
		if recover() == nil {
			t.Error("MustDefault() with no drivers should panic")
		}
	}()
	MustDefault()
}

func TestOpenFallsBack(t *testing.T) {
	withDrivers(t,
		&stubDriver{name: NameVulkan, err: coil.Wrap(coil.Resource, "load vulkan", ErrNotAvailable)},
		&stubDriver{name: NameRecorder},
	)

	inst, err := Open("", InstanceConfig{AppName: "test"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if inst.Handle() != 1 {
		t.Errorf("Open() returned unexpected instance %v", inst)
	}
}

func TestOpenNamedFailure(t *testing.T) {
	withDrivers(t,
		&stubDriver{name: NameVulkan, err: coil.Wrap(coil.Resource, "load vulkan", ErrNotAvailable)},
		&stubDriver{name: NameRecorder},
	)

	if _, err := Open(NameVulkan, InstanceConfig{}); !errors.Is(err, ErrNotAvailable) {
		t.Errorf("Open(vulkan) error = %v, want ErrNotAvailable", err)
	}
}

func TestOpenNoDrivers(t *testing.T) {
	withDrivers(t)

	_, err := Open("", InstanceConfig{})
	if !errors.Is(err, coil.ErrResource) {
		t.Errorf("Open() error = %v, want resource error", err)
	}
}

func TestFormatDepthStencil(t *testing.T) {
	tests := []struct {
		f            Format
		depth, stenc bool
	}{
		{FormatD32Sfloat, true, false},
		{FormatD24UnormS8Uint, true, true},
		{FormatD32SfloatS8Uint, true, true},
		{FormatB8G8R8A8Unorm, false, false},
	}
	for _, tt := range tests {
		if got := tt.f.IsDepthStencil(); got != tt.depth {
			t.Errorf("Format(%d).IsDepthStencil() = %v, want %v", tt.f, got, tt.depth)
		}
		if got := tt.f.HasStencil(); got != tt.stenc {
			t.Errorf("Format(%d).HasStencil() = %v, want %v", tt.f, got, tt.stenc)
		}
	}
}

func TestImageLayoutString(t *testing.T) {
	if got := LayoutPresentSrc.String(); got != "PRESENT_SRC" {
		t.Errorf("LayoutPresentSrc.String() = %q", got)
	}
	if got := ImageLayout(99).String(); got != "UNKNOWN" {
		t.Errorf("ImageLayout(99).String() = %q", got)
	}
}
