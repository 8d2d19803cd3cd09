// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/quyse/coil-core-sub001/backend"
)

// ExtensionFunc returns the instance extensions a provider needs to
// create a surface for w, or nil when it cannot handle w.
type ExtensionFunc func(w Window) []string

// CreateFunc creates a surface for w on inst. It returns an error wrapping
// ErrUnsupported when the window or instance is not one it handles.
type CreateFunc func(inst backend.Instance, w Window) (backend.Surface, error)

// Provider is a registered surface provider.
type Provider struct {
	// Name is the unique identifier for this provider.
	Name string

	// Priority determines selection order (higher = preferred).
	// Standard priorities:
	//   - 100: native window systems (Wayland, Win32)
	//   - 90: X11
	//   - 10: headless
	Priority int

	// Extensions reports the instance extensions needed for a window.
	Extensions ExtensionFunc

	// Create creates surfaces.
	Create CreateFunc

	// Available reports if the provider is usable on this system.
	Available func() bool
}

// globalRegistry is the default registry.
var globalRegistry = &Registry{}

// Registry manages registered surface providers. Providers register
// themselves from init() of the driver packages:
//
//	func init() {
//	    surface.Register(surface.Provider{
//	        Name:       "xlib",
//	        Priority:   90,
//	        Extensions: xlibExtensions,
//	        Create:     createXlibSurface,
//	        Available:  vulkanAvailable,
//	    })
//	}
//
// Device construction for a window then calls Extensions and Create.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Provider
}

// NewRegistry creates a new empty registry.
// Most code should use the global registry via Register and Create.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*Provider),
	}
}

// Register adds a provider to the global registry.
// If p.Available is nil, the provider is assumed always available.
// Registering a name that already exists replaces the previous entry.
func Register(p Provider) {
	globalRegistry.Register(p)
}

// Unregister removes a provider from the global registry.
func Unregister(name string) {
	globalRegistry.Unregister(name)
}

// List returns all registered provider names sorted by priority (highest first).
func List() []string {
	return globalRegistry.List()
}

// Available returns names of all available providers sorted by priority.
func Available() []string {
	return globalRegistry.Available()
}

// Get returns a copy of a registered provider.
func Get(name string) (*Provider, bool) {
	return globalRegistry.Get(name)
}

// Extensions returns the instance extensions every available provider of
// the global registry needs for w.
func Extensions(w Window) []string {
	return globalRegistry.Extensions(w)
}

// Create creates a surface for w with the best provider of the global
// registry that handles it.
func Create(inst backend.Instance, w Window) (backend.Surface, error) {
	return globalRegistry.Create(inst, w)
}

// Register adds a provider to this registry.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries == nil {
		r.entries = make(map[string]*Provider)
	}
	if p.Available == nil {
		p.Available = func() bool { return true }
	}
	r.entries[p.Name] = &p
}

// Unregister removes a provider from this registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, name)
}

// List returns all registered provider names sorted by priority.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sortedNames(false)
}

// Available returns names of all available providers sorted by priority.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sortedNames(true)
}

// Get returns a copy of a registered provider.
func (r *Registry) Get(name string) (*Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	p := *entry
	return &p, true
}

// Extensions returns the union of the instance extensions the available
// providers need for w, in priority order without duplicates.
func (r *Registry) Extensions(w Window) []string {
	var exts []string
	for _, p := range r.available() {
		if p.Extensions == nil {
			continue
		}
		for _, e := range p.Extensions(w) {
			if !slices.Contains(exts, e) {
				exts = append(exts, e)
			}
		}
	}
	return exts
}

// Create tries the available providers in priority order and returns the
// first surface created. Providers that report ErrUnsupported are skipped.
func (r *Registry) Create(inst backend.Instance, w Window) (backend.Surface, error) {
	providers := r.available()
	if len(providers) == 0 {
		return 0, ErrNoProvider
	}

	for _, p := range providers {
		s, err := p.Create(inst, w)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, ErrUnsupported) {
			return 0, fmt.Errorf("surface %s: %w", p.Name, err)
		}
	}
	return 0, fmt.Errorf("%w for %T", ErrNoProvider, w)
}

// CreateByName creates a surface with a specific provider.
func (r *Registry) CreateByName(name string, inst backend.Instance, w Window) (backend.Surface, error) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return 0, &ProviderNotFoundError{Name: name}
	}
	if !entry.Available() {
		return 0, &ProviderUnavailableError{Name: name}
	}
	return entry.Create(inst, w)
}

func (r *Registry) available() []*Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := r.sortedNames(true)
	providers := make([]*Provider, len(names))
	for i, n := range names {
		providers[i] = r.entries[n]
	}
	return providers
}

// sortedNames returns provider names sorted by priority (highest first),
// ties broken by name. If onlyAvailable is true, filters to available
// providers only. Must be called with lock held.
func (r *Registry) sortedNames(onlyAvailable bool) []string {
	if len(r.entries) == 0 {
		return nil
	}

	type entry struct {
		name     string
		priority int
	}

	entries := make([]entry, 0, len(r.entries))
	for name, e := range r.entries {
		if onlyAvailable && !e.Available() {
			continue
		}
		entries = append(entries, entry{name: name, priority: e.Priority})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].priority != entries[j].priority {
			return entries[i].priority > entries[j].priority
		}
		return entries[i].name < entries[j].name
	})

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names
}

// Errors.
var (
	// ErrNoProvider is returned when no registered provider can create a
	// surface for a window.
	ErrNoProvider = errors.New("surface: no provider available")

	// ErrUnsupported is returned by a provider for windows or instances it
	// does not handle.
	ErrUnsupported = errors.New("surface: window not supported by provider")
)

// ProviderNotFoundError indicates a named provider is not registered.
type ProviderNotFoundError struct {
	Name string
}

func (e *ProviderNotFoundError) Error() string {
	return "surface: provider not found: " + e.Name
}

// ProviderUnavailableError indicates a provider exists but is not available.
type ProviderUnavailableError struct {
	Name string
}

func (e *ProviderUnavailableError) Error() string {
	return "surface: provider unavailable: " + e.Name
}
