package recorder

import "github.com/quyse/coil-core-sub001/backend"

// EventType identifies a queue or synchronization event on the device.
type EventType uint8

const (
	EvBegin EventType = iota
	EvSubmit
	EvWaitFence
	EvResetFence
	EvAcquire
	EvPresent
	EvWaitIdle
	EvCreateSwapchain
	EvDestroySwapchain
	EvCreateDescriptorPool
	EvResetDescriptorPool
	EvUpdateDescriptorSets
)

var eventTypeNames = [...]string{
	EvBegin:                "Begin",
	EvSubmit:               "Submit",
	EvWaitFence:            "WaitFence",
	EvResetFence:           "ResetFence",
	EvAcquire:              "Acquire",
	EvPresent:              "Present",
	EvWaitIdle:             "WaitIdle",
	EvCreateSwapchain:      "CreateSwapchain",
	EvDestroySwapchain:     "DestroySwapchain",
	EvCreateDescriptorPool: "CreateDescriptorPool",
	EvResetDescriptorPool:  "ResetDescriptorPool",
	EvUpdateDescriptorSets: "UpdateDescriptorSets",
}

// String returns the string representation of an EventType.
func (e EventType) String() string {
	if int(e) < len(eventTypeNames) {
		return eventTypeNames[e]
	}
	return "Unknown"
}

// Event is one entry of the device log.
type Event struct {
	Type EventType
	// Object is the main handle the event is about: the command buffer id
	// for Begin, the fence for fence events, the swapchain for swapchain
	// events, the pool for descriptor pool events.
	Object uint64
	// Semaphore is signaled by Acquire and waited by Present.
	Semaphore backend.Semaphore
	// Index is the image index of Acquire and Present, or the number of
	// writes of UpdateDescriptorSets.
	Index int
	// Submit is set for EvSubmit.
	Submit *Submission
}

// Submission is a snapshot of one queue submission.
type Submission struct {
	Buffers    []uint64
	Commands   [][]Command
	Wait       []backend.Semaphore
	WaitStages []backend.PipelineStage
	Signal     []backend.Semaphore
	Fence      backend.Fence
}
