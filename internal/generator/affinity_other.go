// Copyright 2024 The PWM Generator Authors.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !linux

package generator

import "runtime"

// Pin locks the calling goroutine to its OS thread but cannot set CPU
// affinity or a real-time scheduling policy outside Linux; the generator
// still runs, just without the timing guarantees the target platform
// gives it.
func Pin(core int) error {
	runtime.LockOSThread()
	return nil
}
