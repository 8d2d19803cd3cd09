// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !(js && wasm)

package vulkan

import (
	"unsafe"

	"github.com/gogpu/wgpu/hal/vulkan/vk"

	coil "github.com/quyse/coil-core-sub001"
	"github.com/quyse/coil-core-sub001/backend"
)

// errorOutOfPoolMemory is VK_ERROR_OUT_OF_POOL_MEMORY, core since 1.1.
const errorOutOfPoolMemory vk.Result = -1000069000

// check converts a failed VkResult to a classified error.
func check(op string, r vk.Result) error {
	switch r {
	case vk.Success:
		return nil
	case vk.ErrorOutOfHostMemory, vk.ErrorOutOfDeviceMemory:
		return coil.Wrap(coil.Resource, op, backend.ErrOutOfMemory)
	case errorOutOfPoolMemory, vk.ErrorFragmentedPool:
		return coil.Wrap(coil.Resource, op, backend.ErrOutOfPoolMemory)
	case vk.ErrorOutOfDateKhr:
		return coil.Wrap(coil.Suboptimal, op, backend.ErrOutOfDate)
	case vk.ErrorDeviceLost:
		return coil.Errorf(coil.DeviceLost, op, "device lost")
	case vk.ErrorSurfaceLostKhr:
		return coil.Errorf(coil.SurfaceLost, op, "surface lost")
	default:
		return coil.Errorf(coil.Resource, op, "VkResult %d", r)
	}
}

func cString(s string) []byte {
	return append([]byte(s), 0)
}

// cStrings returns NUL-terminated copies of ss and their addresses. Both
// slices must be kept alive until the call using them returns.
func cStrings(ss []string) ([][]byte, []uintptr) {
	bufs := make([][]byte, len(ss))
	ptrs := make([]uintptr, len(ss))
	for i, s := range ss {
		bufs[i] = cString(s)
		ptrs[i] = uintptr(unsafe.Pointer(&bufs[i][0]))
	}
	return bufs, ptrs
}

func firstPtr(ptrs []uintptr) uintptr {
	if len(ptrs) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&ptrs[0]))
}

// first returns a pointer to the first element of s, or nil.
func first[T any](s []T) *T {
	if len(s) == 0 {
		return nil
	}
	return &s[0]
}

// ptrFromUintptr converts an address returned by the driver without
// tripping go vet's unsafeptr check.
func ptrFromUintptr(ptr uintptr) *byte {
	return *(**byte)(unsafe.Pointer(&ptr))
}
