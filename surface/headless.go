// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"slices"
	"sync"
)

// Headless is an invisible window of a fixed size. It is used for
// offscreen rendering and in tests; SetSize simulates a window resize.
//
// Headless is safe for concurrent use.
type Headless struct {
	mu        sync.Mutex
	width     int
	height    int
	scale     float64
	callbacks []func(width, height int)
	presenter Presenter
	redraws   int
}

// NewHeadless creates a headless window with a scale factor of 1.
func NewHeadless(width, height int) *Headless {
	return &Headless{width: width, height: height, scale: 1}
}

// Size implements gpucontext.WindowProvider.
func (h *Headless) Size() (width, height int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.width, h.height
}

// ScaleFactor implements gpucontext.WindowProvider.
func (h *Headless) ScaleFactor() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.scale
}

// SetScaleFactor changes the reported DPI scale.
func (h *Headless) SetScaleFactor(scale float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scale = scale
}

// RequestRedraw implements gpucontext.WindowProvider.
func (h *Headless) RequestRedraw() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.redraws++
}

// Redraws returns the number of RequestRedraw calls.
func (h *Headless) Redraws() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.redraws
}

// OnResize implements Window.
func (h *Headless) OnResize(fn func(width, height int)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.callbacks = append(h.callbacks, fn)
}

// SetPresenter implements Window.
func (h *Headless) SetPresenter(p Presenter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.presenter = p
}

// SetSize resizes the window, runs the resize callbacks and asks the
// bound presenter to recreate its swapchain.
func (h *Headless) SetSize(width, height int) {
	h.mu.Lock()
	if h.width == width && h.height == height {
		h.mu.Unlock()
		return
	}
	h.width, h.height = width, height
	callbacks := slices.Clone(h.callbacks)
	p := h.presenter
	h.mu.Unlock()

	for _, fn := range callbacks {
		fn(width, height)
	}
	if p != nil {
		p.Resize()
	}
}
