// Package recorder implements an in-memory backend driver that records
// every command and checks queue synchronization instead of rendering.
//
// The driver registers itself as "recorder" on import. It is used by the
// package tests of gpu and rendercache and for headless runs where no
// Vulkan loader is present.
//
// Submitted work completes immediately, but the recorder only treats it as
// finished once the host waits for the guarding fence (or calls WaitIdle).
// This makes frame pacing mistakes visible:
//
//   - re-recording a command buffer whose fence was not waited,
//   - waiting on a semaphore nobody signaled, or signaling one twice,
//   - presenting an image that was not acquired,
//   - destroying objects twice or leaking them past Device.Destroy.
//
// Each mistake is appended to Device.Violations.
//
// Swapchain behavior is scripted with QueueAcquireResult and
// QueuePresentResult; descriptor pool exhaustion with SetPoolCapacity.
package recorder
