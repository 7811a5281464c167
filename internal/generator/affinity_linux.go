// Copyright 2024 The PWM Generator Authors.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package generator

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// fifoPriority is the SCHED_FIFO priority given to the generator thread,
// taken unchanged from the original's startPinnedThread.
const fifoPriority = 99

// Pin locks the calling goroutine to its current OS thread, restricts
// that thread to core, and raises its scheduling policy to SCHED_FIFO at
// fifoPriority. It must be called from the goroutine that will go on to
// call Run, before calling it, and that goroutine must never call
// runtime.UnlockOSThread — this mirrors the original's
// pthread_attr_setaffinity_np/pthread_attr_setschedpolicy pair applied at
// thread-creation time, which Go's API instead applies to an
// already-running, already-pinned goroutine.
func Pin(core int) error {
	runtime.LockOSThread()

	var set unix.CPUSet
	set.Zero()
	set.Set(core)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("generator: SchedSetaffinity(core=%d): %w", core, err)
	}

	param := &unix.SchedParam{Priority: int32(fifoPriority)}
	if err := unix.SchedSetscheduler(0, unix.SCHED_FIFO, param); err != nil {
		return fmt.Errorf("generator: SchedSetscheduler(SCHED_FIFO, priority=%d): %w", fifoPriority, err)
	}
	return nil
}
