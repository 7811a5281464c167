// Copyright 2024 The PWM Generator Authors.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hosttune applies the kernel and CPU governor settings the
// generator's real-time loop needs and that the original left to the
// shell script wrapping the binary: lifting the SCHED_FIFO/SCHED_RR
// runtime throttle and forcing the pinned core to its highest fixed
// frequency.
package hosttune

import (
	"fmt"
	"os"
)

// fileWrite is a package variable, like host/sysfs's fileIOOpen
// indirection, so tests can substitute a fake without touching the real
// kernel interface.
var fileWrite = os.WriteFile

// SetRTRuntime writes microseconds to /proc/sys/kernel/sched_rt_runtime_us.
// Passing -1 removes the default 95%-of-period throttle the kernel
// imposes on SCHED_FIFO/SCHED_RR threads, which would otherwise starve
// the rest of the system of the remaining 5% in exchange for occasional
// multi-millisecond generator stalls.
func SetRTRuntime(microseconds int) error {
	path := "/proc/sys/kernel/sched_rt_runtime_us"
	if err := fileWrite(path, []byte(fmt.Sprintf("%d", microseconds)), 0); err != nil {
		return fmt.Errorf("hosttune: write %s: %w", path, err)
	}
	return nil
}

// SetGovernor forces the given CPU core's cpufreq governor, typically to
// "performance" so the core the generator is pinned to never idles down
// mid-frame.
func SetGovernor(core int, governor string) error {
	path := fmt.Sprintf("/sys/devices/system/cpu/cpu%d/cpufreq/scaling_governor", core)
	if err := fileWrite(path, []byte(governor), 0); err != nil {
		return fmt.Errorf("hosttune: write %s: %w", path, err)
	}
	return nil
}
